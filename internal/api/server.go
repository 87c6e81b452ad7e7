package api

import (
	"context"
	"net/http"
	"time"
)

// Server wraps the HTTP listener.
type Server struct {
	handler http.Handler
	server  *http.Server
}

// NewServer creates a server for the given handlers.
func NewServer(h *Handlers, opts RouterOptions) *Server {
	return &Server{handler: NewRouter(h, opts)}
}

// ListenAndServe starts the HTTP server and blocks until it stops.
func (s *Server) ListenAndServe(addr string) error {
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.handler,
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      2 * time.Minute,
		IdleTimeout:       120 * time.Second,
	}
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Handler returns the HTTP handler for testing
func (s *Server) Handler() http.Handler {
	return s.handler
}
