package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Environment variables that control where and how configuration is loaded.
const (
	EnvConfigDir      = "APPLICATION_CONFIGURATION_DIR"
	EnvProfilesActive = "APPLICATION_PROFILES_ACTIVE"
	EnvPrefix         = "APPLICATION_CONFIGURATION_PREFIX"

	DefaultConfigDir = "./configs"
	baseConfigName   = "application.yaml"
)

// ErrConfigDirNotFound is returned by Load when the configuration directory is missing.
var ErrConfigDirNotFound = errors.New("configuration directory does not exist")

// Config wraps koanf.Koanf. A Config with an empty prefix is the root config;
// sub-configs share the same koanf instance and only differ by key prefix.
// @see https://github.com/knadh/koanf .
type Config struct {
	k      *koanf.Koanf
	prefix string
}

// New returns an empty root configuration. Every getter falls back to its default.
func New() *Config {
	return &Config{k: koanf.New("."), prefix: ""}
}

// Load reads, in order, <dir>/application.yaml (mandatory),
// <dir>/application-<profile>.yaml for every active profile and finally the
// environment. Later sources override earlier ones.
func Load() (*Config, error) {
	return load(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})))
}

// LoadOrDefault behaves like Load, but a missing configuration directory
// yields a configuration built from the environment only.
func LoadOrDefault() (*Config, error) {
	cfg, err := Load()
	if errors.Is(err, ErrConfigDirNotFound) {
		cfg = New()
		if err := cfg.loadEnv(); err != nil {
			return nil, err
		}
		return cfg, nil
	}
	return cfg, err
}

func load(bootLogger *slog.Logger) (*Config, error) {
	cfg := New()

	configDir := os.Getenv(EnvConfigDir)
	if configDir == "" {
		configDir = DefaultConfigDir
	}
	bootLogger.Debug("Loading configuration", "directory", configDir)

	if _, err := os.Stat(configDir); os.IsNotExist(err) {
		// expected when running without files; the caller decides whether it matters
		bootLogger.Debug("Configuration directory does not exist", "directory", configDir)
		return nil, fmt.Errorf("%w: %s", ErrConfigDirNotFound, configDir)
	}

	basePath := filepath.Join(configDir, baseConfigName)
	if _, err := os.Stat(basePath); os.IsNotExist(err) {
		bootLogger.Error("Base configuration file does not exist", "file", basePath)
		return nil, fmt.Errorf("base configuration file does not exist: %s", basePath)
	}
	if err := cfg.k.Load(file.Provider(basePath), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("failed to load base configuration: %w", err)
	}

	for _, profile := range activeProfiles() {
		profilePath := filepath.Join(configDir, fmt.Sprintf("application-%s.yaml", profile))
		if _, err := os.Stat(profilePath); os.IsNotExist(err) {
			bootLogger.Warn("Profile configuration file not found", "profile", profile, "file", profilePath)
			continue
		}

		bootLogger.Info("Loading profile configuration", "profile", profile, "file", profilePath)
		if err := cfg.k.Load(file.Provider(profilePath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load profile configuration %s: %w", profile, err)
		}
	}

	if err := cfg.loadEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// activeProfiles splits APPLICATION_PROFILES_ACTIVE, dropping blanks.
func activeProfiles() []string {
	var profiles []string
	for _, p := range strings.Split(os.Getenv(EnvProfilesActive), ",") {
		if p = strings.TrimSpace(p); p != "" {
			profiles = append(profiles, p)
		}
	}
	return profiles
}

// loadEnv maps SERVER_PORT (or <PREFIX>_SERVER_PORT when a prefix is set) to server.port.
// Every "_" becomes a key separator and names are lowercased, so keys that
// must be reachable from the environment are single lowercase words
// (server.shutdowntimeout, instance.lockfile).
func (c *Config) loadEnv() error {
	envPrefix := os.Getenv(EnvPrefix)
	if envPrefix != "" {
		envPrefix += "_"
	}
	err := c.k.Load(env.Provider(envPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(s, envPrefix)
		return strings.ToLower(strings.ReplaceAll(s, "_", "."))
	}), nil)
	if err != nil {
		return fmt.Errorf("failed to load environment variables: %w", err)
	}
	return nil
}

func (c *Config) buildKey(key string) string {
	if c.prefix == "" {
		return key
	}
	return c.prefix + "." + key
}

// GetSubConfig returns a view of the sub-tree under prefix.
func (c *Config) GetSubConfig(prefix string) *Config {
	return &Config{
		k:      c.k,
		prefix: c.buildKey(prefix),
	}
}

// Set overrides a value. Mostly useful in tests and for flags.
func (c *Config) Set(key string, value any) error {
	return c.k.Set(c.buildKey(key), value)
}

func (c *Config) GetString(key string) string {
	return c.k.String(c.buildKey(key))
}

func (c *Config) GetInt(key string) int {
	return c.k.Int(c.buildKey(key))
}

func (c *Config) GetBool(key string) bool {
	return c.k.Bool(c.buildKey(key))
}

// Exists checks if a key exists
func (c *Config) Exists(key string) bool {
	return c.k.Exists(c.buildKey(key))
}

func (c *Config) GetStringWithDefault(key, defaultValue string) string {
	if c.Exists(key) {
		return c.GetString(key)
	}
	return defaultValue
}

func (c *Config) GetIntWithDefault(key string, defaultValue int) int {
	if c.Exists(key) {
		return c.GetInt(key)
	}
	return defaultValue
}

func (c *Config) GetBoolWithDefault(key string, defaultValue bool) bool {
	if c.Exists(key) {
		return c.GetBool(key)
	}
	return defaultValue
}

// GetSecondsWithDefault reads an integer number of seconds as a time.Duration.
func (c *Config) GetSecondsWithDefault(key string, defaultSeconds int) time.Duration {
	return time.Duration(c.GetIntWithDefault(key, defaultSeconds)) * time.Second
}

// GetLogLevel gets the log level from logging.level with default fallback
func (c *Config) GetLogLevel(defaultLevel slog.Level) slog.Level {
	if !c.Exists("logging.level") {
		return defaultLevel
	}
	switch strings.ToLower(c.GetString("logging.level")) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return defaultLevel
	}
}

// All returns the flattened configuration under the current prefix.
func (c *Config) All() map[string]interface{} {
	result := make(map[string]interface{})
	if c.prefix == "" {
		for _, key := range c.k.Keys() {
			// bare keys come from unrelated environment variables
			if strings.Contains(key, ".") {
				result[key] = c.k.Get(key)
			}
		}
		return result
	}

	prefixWithDot := c.prefix + "."
	for _, key := range c.k.Keys() {
		if strings.HasPrefix(key, prefixWithDot) {
			result[strings.TrimPrefix(key, prefixWithDot)] = c.k.Get(key)
		}
	}
	return result
}
