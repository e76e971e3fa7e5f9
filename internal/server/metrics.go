package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/teemow/tailortalk/internal/instrumentation"
)

const (
	// DefaultMetricsAddr is where the scrape endpoint listens unless configured.
	DefaultMetricsAddr = ":9090"

	// DefaultShutdownTimeout bounds graceful shutdown of both HTTP listeners.
	DefaultShutdownTimeout = 30 * time.Second

	scrapeTimeout        = 10 * time.Second
	maxConcurrentScrapes = 4
)

// MetricsServerConfig configures the Prometheus scrape endpoint.
type MetricsServerConfig struct {
	// Addr is the listen address, e.g. ":9090".
	Addr string

	// InstrumentationProvider supplies the registry that holds the
	// conversation, booking and calendar metrics.
	InstrumentationProvider *instrumentation.Provider
}

// MetricsServer serves the provider's registry on /metrics. It listens
// apart from the MCP endpoint so scrapes are not rate limited per IP.
type MetricsServer struct {
	addr    string
	handler http.Handler

	mu  sync.Mutex
	srv *http.Server
	ln  net.Listener
}

// NewMetricsServer builds the scrape handler. It fails unless the provider
// exports metrics through prometheus.
func NewMetricsServer(config MetricsServerConfig) (*MetricsServer, error) {
	provider := config.InstrumentationProvider
	if provider == nil {
		return nil, errors.New("instrumentation provider is required for metrics server")
	}
	if !provider.Enabled() {
		return nil, errors.New("instrumentation provider is not enabled")
	}
	gatherer := provider.Gatherer()
	if gatherer == nil {
		return nil, errors.New("instrumentation provider does not export prometheus metrics")
	}

	addr := config.Addr
	if addr == "" {
		addr = DefaultMetricsAddr
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{
		ErrorLog:            slog.NewLogLogger(slog.Default().Handler(), slog.LevelWarn),
		ErrorHandling:       promhttp.ContinueOnError,
		MaxRequestsInFlight: maxConcurrentScrapes,
		Timeout:             scrapeTimeout,
	}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return &MetricsServer{addr: addr, handler: mux}, nil
}

// Handler returns the scrape mux.
func (s *MetricsServer) Handler() http.Handler {
	return s.handler
}

// Serve binds the listener, closes ready (when non-nil) and blocks until
// Shutdown. It returns http.ErrServerClosed after a clean shutdown.
func (s *MetricsServer) Serve(ready chan<- struct{}) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}

	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: scrapeTimeout,
		WriteTimeout:      scrapeTimeout + time.Second,
	}

	s.mu.Lock()
	s.ln, s.srv = ln, srv
	s.mu.Unlock()

	slog.Info("serving prometheus metrics", "addr", ln.Addr().String())
	if ready != nil {
		close(ready)
	}
	return srv.Serve(ln)
}

// Shutdown stops a running server. It is a no-op before Serve.
func (s *MetricsServer) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.srv
	s.mu.Unlock()

	if srv == nil {
		return nil
	}
	slog.Info("stopping metrics server")
	return srv.Shutdown(ctx)
}

// Addr is the bound address once serving, the configured one before.
func (s *MetricsServer) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln != nil {
		return s.ln.Addr().String()
	}
	return s.addr
}
