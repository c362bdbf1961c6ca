package server

import (
	"io"
	"net/http"
	"strconv"
)

// Greeting is the fixed body served on "/".
const Greeting = "Salve, app atualizada mais uma vez !!"

// AllowedMethods lists what "/" answers to.
const AllowedMethods = "GET, HEAD, OPTIONS"

// greetingHandler serves GET and HEAD on "/". The request body, query and
// headers are ignored.
func (s *Server) greetingHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Length", strconv.Itoa(len(Greeting)))
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return
	}
	if _, err := io.WriteString(w, Greeting); err != nil {
		s.logger.Debug("Failed to write greeting", "error", err)
	}
}

func (s *Server) optionsHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Allow", AllowedMethods)
	w.WriteHeader(http.StatusOK)
}
