package actuator

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/itsneelabh/autowire/core"
	"github.com/itsneelabh/autowire/host"
)

// TracingMiddlewareName is the service the tracing module registers its
// HTTP middleware under. The management handler is wrapped with it when
// present.
const TracingMiddlewareName = "tracing.http_middleware"

// Server serves the management handler.
type Server struct {
	addr   string
	logger core.Logger

	mu        sync.Mutex
	server    *http.Server
	listener  net.Listener
	started   bool
	listening chan struct{}
}

// NewServer creates a server for addr; it listens once Start is called.
func NewServer(addr string, logger core.Logger) *Server {
	return &Server{
		addr:      addr,
		logger:    core.LoggerOrNoOp(logger),
		listening: make(chan struct{}),
	}
}

// Start listens and serves handler until Stop. It returns nil after a
// clean Stop.
func (s *Server) Start(handler http.Handler) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return core.NewFrameworkError("actuator.Server.Start", "actuator", core.ErrAlreadyStarted)
	}
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("listen on %s: %w", s.addr, err)
	}
	s.server = &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	s.listener = ln
	s.started = true
	close(s.listening)
	srv := s.server
	s.mu.Unlock()

	s.logger.Info("Starting management server", map[string]interface{}{
		"address": ln.Addr().String(),
	})
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Listening is closed once the server accepts connections.
func (s *Server) Listening() <-chan struct{} { return s.listening }

// Addr returns the bound address, or "" before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.server == nil {
		return nil
	}
	s.logger.Info("Stopping management server", map[string]interface{}{
		"address": s.listener.Addr().String(),
	})
	return s.server.Shutdown(ctx)
}

// serve runs the management server for the lifetime of the host. The
// application is marked ready while the server listens.
func serve(ctx context.Context, h *host.Host, opts Options) error {
	srv, err := host.Resolve[*Server](ctx, h.Services(), ServerName)
	if err != nil {
		return err
	}
	availability, err := host.Resolve[*Availability](ctx, h.Services(), AvailabilityName)
	if err != nil {
		return err
	}

	handler := NewHandler(h, opts)
	if h.Services().Has(TracingMiddlewareName) {
		mw, err := host.Resolve[func(http.Handler) http.Handler](ctx, h.Services(), TracingMiddlewareName)
		if err != nil {
			return err
		}
		handler = mw(handler)
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start(handler) }()

	select {
	case err := <-errCh:
		return err
	case <-srv.Listening():
		availability.SetReadiness(ReadinessAccepting)
	}

	select {
	case err := <-errCh:
		availability.SetReadiness(ReadinessRefusing)
		return err
	case <-ctx.Done():
	}

	availability.SetReadiness(ReadinessRefusing)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), opts.ShutdownTimeout)
	defer cancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
