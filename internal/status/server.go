package status

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/nerrad567/ventoagent/internal/infrastructure/logging"
	"github.com/nerrad567/ventoagent/internal/monitor"
	"github.com/nerrad567/ventoagent/internal/registry"
)

const (
	gracefulShutdownTimeout = 5 * time.Second
	readHeaderTimeout       = 5 * time.Second
)

// HealthChecker is implemented by the MQTT and InfluxDB clients.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// DeviceSource provides the device description.
type DeviceSource interface {
	DevicePayload() registry.DevicePayload
}

// StatsSource provides monitor counters.
type StatsSource interface {
	Stats() []monitor.Stat
}

// Deps holds the dependencies of the status server. MQTT, Registry and
// Logger are required; InfluxDB and Monitors may be nil.
type Deps struct {
	Listen   string
	Logger   *logging.Logger
	Version  string
	MQTT     HealthChecker
	InfluxDB HealthChecker
	Registry DeviceSource
	Monitors StatsSource
}

// Server is the local status HTTP server.
type Server struct {
	deps    Deps
	runID   string
	started time.Time

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
}

// New validates deps and returns a server that is not yet listening.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.MQTT == nil {
		return nil, fmt.Errorf("mqtt health checker is required")
	}
	if deps.Registry == nil {
		return nil, fmt.Errorf("registry is required")
	}
	return &Server{
		deps:    deps,
		runID:   uuid.NewString(),
		started: time.Now(),
	}, nil
}

// RunID identifies this agent process.
func (s *Server) RunID() string {
	return s.runID
}

// Handler returns the router. Exposed for tests and embedding.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(s.recoveryMiddleware)
	r.Use(s.loggingMiddleware)

	r.Get("/healthz", s.handleHealth)
	r.Get("/device", s.handleDevice)
	r.Get("/monitors", s.handleMonitors)
	return r
}

// Start binds the listener synchronously, so address errors are returned,
// then serves in the background.
func (s *Server) Start(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.server != nil {
		return fmt.Errorf("status server already started")
	}

	ln, err := net.Listen("tcp", s.deps.Listen)
	if err != nil {
		return fmt.Errorf("status listen on %s: %w", s.deps.Listen, err)
	}
	s.listener = ln
	s.server = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	srv := s.server
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.deps.Logger.Error("status server error", "error", err)
		}
	}()

	s.deps.Logger.Info("status server listening", "address", ln.Addr().String())
	return nil
}

// Addr returns the bound address, or "" before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Close shuts the server down, waiting briefly for in-flight requests.
func (s *Server) Close() error {
	s.mu.Lock()
	srv := s.server
	s.server = nil
	s.listener = nil
	s.mu.Unlock()

	if srv == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("status server shutdown: %w", err)
	}
	return nil
}
