package metrics

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/yaklabco/tmscope/internal/logging"
)

// MetricsPath is where a Server exposes the collector.
const MetricsPath = "/metrics"

// Server exposes a Collector over HTTP at MetricsPath.
type Server struct {
	server   *http.Server
	listener net.Listener
}

// Serve starts an HTTP server at addr for the collector. Use port 0 to let
// the system pick one; Addr reports the result.
func (c *Collector) Serve(ctx context.Context, addr string) (*Server, error) {
	mux := http.NewServeMux()
	mux.Handle(MetricsPath, c.Handler())

	var lc net.ListenConfig
	listener, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}

	srv := &http.Server{Handler: mux}
	logger := logging.FromContext(ctx)
	go func() {
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server stopped", logging.FieldError, err)
		}
	}()

	return &Server{server: srv, listener: listener}, nil
}

// Addr returns the address the server listens on.
func (s *Server) Addr() string {
	return s.listener.Addr().String()
}

// Close shuts the server down, letting in-flight scrapes finish until ctx
// expires.
func (s *Server) Close(ctx context.Context) error {
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown metrics server: %w", err)
	}
	return nil
}
