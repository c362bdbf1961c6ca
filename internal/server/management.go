package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"os"
	"runtime"
	"strconv"
	"time"

	"github.com/basakil/salve-server/pkg/config"
	"github.com/basakil/salve-server/pkg/models"
)

// lookupHostname returns the host name, or "unknown" when it cannot be read
func lookupHostname() string {
	h, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	return h
}

// Management is the optional status listener. It is kept off the public
// listener so that only "/" is ever routed there.
type Management struct {
	httpServer *http.Server
	logger     *slog.Logger
	hostname   string
	startedAt  time.Time
}

// NewManagement creates the status listener from the management sub-config.
func NewManagement(managementCfg *config.Config, logger *slog.Logger) *Management {
	host := managementCfg.GetStringWithDefault("host", "127.0.0.1")
	port := managementCfg.GetIntWithDefault("port", 8081)

	m := &Management{
		logger:    logger,
		hostname:  lookupHostname(),
		startedAt: time.Now(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /status", m.statusHandler)

	m.httpServer = &http.Server{
		Addr:         net.JoinHostPort(host, strconv.Itoa(port)),
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}
	return m
}

// statusHandler reports runtime information as JSON
func (m *Management) statusHandler(w http.ResponseWriter, r *http.Request) {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	response := models.StatusResponse{
		Host:              m.hostname,
		Uptime:            time.Since(m.startedAt).Round(time.Second).String(),
		Goroutines:        runtime.NumGoroutine(),
		CPUs:              runtime.NumCPU(),
		MemoryAllocatedKB: mem.Alloc / 1024,
		MemoryTotalKB:     mem.TotalAlloc / 1024,
		GCCycles:          mem.NumGC,
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		m.logger.Warn("Failed to encode status", "error", err)
		return
	}
	m.logger.Debug("Status endpoint accessed", "goroutines", response.Goroutines)
}

// Start binds and serves the status listener
func (m *Management) Start() error {
	ln, err := net.Listen("tcp", m.httpServer.Addr)
	if err != nil {
		return err
	}
	return m.Serve(ln)
}

// Serve accepts connections on ln
func (m *Management) Serve(ln net.Listener) error {
	m.logger.Info("Starting management listener", "addr", ln.Addr().String())
	return m.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the status listener
func (m *Management) Shutdown(ctx context.Context) error {
	return m.httpServer.Shutdown(ctx)
}

// Handler returns the status mux
func (m *Management) Handler() http.Handler {
	return m.httpServer.Handler
}
