package main

import (
	"context"
	"crypto/tls"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/lyraio/lyra/internal/api"
)

// ServerConfig holds configuration for the HTTP server.
type ServerConfig struct {
	// Addr is the address to listen on (e.g., ":8080").
	Addr string

	// TLSCertFile and TLSKeyFile enable HTTPS when both are set.
	TLSCertFile string
	TLSKeyFile  string

	// Ready gates /readyz. Nil means always ready.
	Ready api.HealthCheck
}

// Server serves the ingest, API and metrics routes plus liveness and
// readiness probes.
type Server struct {
	config  ServerConfig
	handler http.Handler
	logger  *zap.Logger
	server  *http.Server
}

// NewServer creates a new server. handler receives every request that is not
// a probe.
func NewServer(config ServerConfig, handler http.Handler, logger *zap.Logger) *Server {
	return &Server{
		config:  config,
		handler: handler,
		logger:  logger.Named("server"),
	}
}

// routes returns the top-level mux.
func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)
	mux.Handle("/", s.handler)
	return mux
}

// Start starts the server and blocks until the context is cancelled.
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:         s.config.Addr,
		Handler:      s.routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	if s.tlsEnabled() {
		s.server.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	// Start server in a goroutine
	errCh := make(chan error, 1)
	go func() {
		var err error
		if s.tlsEnabled() {
			s.logger.Info("Starting HTTPS server", zap.String("addr", s.config.Addr))
			err = s.server.ListenAndServeTLS(s.config.TLSCertFile, s.config.TLSKeyFile)
		} else {
			s.logger.Info("Starting HTTP server", zap.String("addr", s.config.Addr))
			err = s.server.ListenAndServe()
		}

		if err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for context cancellation or error
	select {
	case <-ctx.Done():
		s.logger.Info("Shutting down server")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		return s.server.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func (s *Server) tlsEnabled() bool {
	return s.config.TLSCertFile != "" && s.config.TLSKeyFile != ""
}

// handleHealth handles the /healthz endpoint.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// handleReady handles the /readyz endpoint.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.config.Ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()
		if err := s.config.Ready(ctx); err != nil {
			s.logger.Warn("Readiness check failed", zap.Error(err))
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}
