package server

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strconv"

	"github.com/basakil/salve-server/pkg/config"
)

// Server is the public HTTP responder
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
	host       string
	port       int
}

// New creates a server from the server sub-config. Routes are registered once, here.
func New(serverCfg *config.Config, logger *slog.Logger) *Server {
	host := serverCfg.GetStringWithDefault("host", "0.0.0.0")
	port := serverCfg.GetIntWithDefault("port", 80)

	srv := &Server{
		logger: logger,
		host:   host,
		port:   port,
	}

	mux := http.NewServeMux()
	srv.setupRoutes(mux)

	srv.httpServer = &http.Server{
		Addr:         net.JoinHostPort(host, strconv.Itoa(port)),
		Handler:      withRequestID(mux, logger),
		ReadTimeout:  serverCfg.GetSecondsWithDefault("readtimeout", 15),
		WriteTimeout: serverCfg.GetSecondsWithDefault("writetimeout", 15),
		IdleTimeout:  serverCfg.GetSecondsWithDefault("idletimeout", 60),
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
	}
	return srv
}

// setupRoutes registers the root route. "GET" patterns also match HEAD.
// Everything else falls through to the ServeMux defaults: 404 for unknown
// paths, 405 for other methods on "/".
func (s *Server) setupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", s.greetingHandler)
	mux.HandleFunc("OPTIONS /{$}", s.optionsHandler)
}

// Start binds the configured address and serves until Shutdown.
// Bind errors (address in use, permission denied) are returned immediately.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve accepts connections on ln
func (s *Server) Serve(ln net.Listener) error {
	s.logger.Info("Starting salve server", "addr", ln.Addr().String())
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Addr returns the configured bind address
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Port returns the configured port
func (s *Server) Port() int {
	return s.port
}

// Handler returns the root handler including middleware
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}
