package httpapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"deepcheck/internal/config"
	"deepcheck/internal/logging"
)

// Server owns the HTTP listener.
type Server struct {
	server   *http.Server
	shutdown time.Duration
	logger   *slog.Logger
}

// NewServer wires the router into an http.Server bound per cfg.
func NewServer(cfg config.Server, analyzer Analyzer, logger *slog.Logger) (*Server, error) {
	router, err := NewRouter(cfg, analyzer, logger)
	if err != nil {
		return nil, err
	}
	return &Server{
		server: &http.Server{
			Addr:              cfg.Bind,
			Handler:           router,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       30 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		shutdown: time.Duration(cfg.ShutdownTimeout) * time.Second,
		logger:   logging.NewComponentLogger(logger, "httpapi"),
	}, nil
}

// Serve listens until ctx ends, then drains in-flight requests for up to
// the configured shutdown timeout.
func (s *Server) Serve(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	return s.serveListener(ctx, listener)
}

func (s *Server) serveListener(ctx context.Context, listener net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.server.Serve(listener)
	}()
	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("api serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdown)
	defer cancel()
	s.logger.Info("api server shutting down", logging.Duration("grace", s.shutdown))
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("api shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("api serve: %w", err)
	}
	return nil
}
