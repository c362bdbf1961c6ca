package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/basakil/salve-server/internal/instance"
	"github.com/basakil/salve-server/internal/server"
	"github.com/basakil/salve-server/pkg/config"
)

func main() {
	if err := run(os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "salve-server: %v\n", err)
		os.Exit(1)
	}
}

// newLogger builds the process logger from logging.level and logging.format
func newLogger(cfg *config.Config, out io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.GetLogLevel(slog.LevelInfo)}
	if cfg.GetStringWithDefault("logging.format", "text") == "json" {
		return slog.New(slog.NewJSONHandler(out, opts))
	}
	return slog.New(slog.NewTextHandler(out, opts))
}

// run serves until a signal arrives or a listener fails. Logs go to out.
func run(out io.Writer) error {
	cfg, err := config.LoadOrDefault()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := newLogger(cfg, out)
	slog.SetDefault(logger)
	logger.Debug("Effective configuration", "values", cfg.All())

	instanceCfg := cfg.GetSubConfig("instance")
	if lockFile := instanceCfg.GetString("lockfile"); lockFile != "" {
		lock, err := instance.New(lockFile, instanceCfg.GetSecondsWithDefault("locktimeout", 0))
		if err != nil {
			return err
		}
		if err := lock.Acquire(context.Background()); err != nil {
			return err
		}
		defer lock.Release()
		logger.Info("Instance lock acquired", "file", lock.Path())
	}

	serverCfg := cfg.GetSubConfig("server")
	srv := server.New(serverCfg, logger)

	// Buffered for both listeners so a late failure never blocks a goroutine.
	serveErr := make(chan error, 2)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- fmt.Errorf("server failed on %s: %w", srv.Addr(), err)
		}
	}()

	var management *server.Management
	if cfg.GetBoolWithDefault("management.enabled", false) {
		management = server.NewManagement(cfg.GetSubConfig("management"), logger)
		go func() {
			if err := management.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serveErr <- fmt.Errorf("management listener failed: %w", err)
			}
		}()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	var failure error
	select {
	case failure = <-serveErr:
		logger.Error("Listener failed", "error", failure)
	case sig := <-sigChan:
		logger.Info("Received signal", "signal", sig.String())
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(),
		serverCfg.GetSecondsWithDefault("shutdowntimeout", 10))
	defer shutdownCancel()

	// Close whatever did come up, even after a failure.
	if failure == nil {
		logger.Info("Shutting down server gracefully")
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", "error", err)
	}
	if management != nil {
		if err := management.Shutdown(shutdownCtx); err != nil {
			logger.Error("Management shutdown error", "error", err)
		}
	}

	if failure != nil {
		return failure
	}
	logger.Info("Server shutdown complete")
	return nil
}
