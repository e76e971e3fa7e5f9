package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/tailortalk/internal/instrumentation"
)

// MCPEndpoint is the path of the streamable-http transport.
const MCPEndpoint = "/mcp"

// HTTPServerConfig configures the streamable-http listener.
type HTTPServerConfig struct {
	// Addr is the address to listen on, e.g. ":8080"
	Addr string

	// RateLimit is the number of requests per second allowed per client IP.
	// Zero disables rate limiting.
	RateLimit float64
	RateBurst int

	// TrustProxy takes the client IP from X-Forwarded-For
	TrustProxy bool
}

// HTTPServer exposes an MCP server over streamable HTTP
type HTTPServer struct {
	mcpServer *mcpserver.MCPServer
	config    HTTPServerConfig
	health    *HealthChecker
	metrics   *instrumentation.Metrics
	limiter   *IPRateLimiter

	mu         sync.Mutex
	httpServer *http.Server
	listener   net.Listener
}

// NewHTTPServer creates a streamable-http server for mcpServer
func NewHTTPServer(mcpServer *mcpserver.MCPServer, config HTTPServerConfig) (*HTTPServer, error) {
	if mcpServer == nil {
		return nil, fmt.Errorf("MCP server is required")
	}
	if config.Addr == "" {
		config.Addr = ":8080"
	}

	s := &HTTPServer{
		mcpServer: mcpServer,
		config:    config,
	}
	if config.RateLimit > 0 {
		s.limiter = NewIPRateLimiter(config.RateLimit, config.RateBurst, config.TrustProxy)
	}
	return s, nil
}

// SetHealthChecker enables /healthz, /readyz and /healthz/detailed
func (s *HTTPServer) SetHealthChecker(h *HealthChecker) {
	s.health = h
}

// SetMetrics enables HTTP request metrics
func (s *HTTPServer) SetMetrics(m *instrumentation.Metrics) {
	s.metrics = m
}

// Handler builds the request router
func (s *HTTPServer) Handler() http.Handler {
	mux := http.NewServeMux()

	var mcpHandler http.Handler = mcpserver.NewStreamableHTTPServer(s.mcpServer,
		mcpserver.WithEndpointPath(MCPEndpoint),
	)
	if s.limiter != nil {
		mcpHandler = s.limiter.Middleware(mcpHandler)
	}
	mux.Handle(MCPEndpoint, mcpHandler)

	if s.health != nil {
		s.health.RegisterHealthEndpoints(mux)
	}

	return s.instrument(mux)
}

// instrument records the request count and latency of every request
func (s *HTTPServer) instrument(next http.Handler) http.Handler {
	if s.metrics == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.metrics.RecordHTTPRequest(r.Context(), r.Method, routeLabel(r.URL.Path), rec.status, time.Since(start))
	})
}

// routeLabel keeps unknown paths out of metric labels
func routeLabel(path string) string {
	switch path {
	case MCPEndpoint, "/healthz", "/readyz", "/healthz/detailed":
		return path
	}
	return "other"
}

// Start listens on the configured address and serves until Shutdown
func (s *HTTPServer) Start() error {
	ln, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Addr, err)
	}
	return s.Serve(ln)
}

// Serve serves on ln until Shutdown
func (s *HTTPServer) Serve(ln net.Listener) error {
	s.mu.Lock()
	s.listener = ln
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	srv := s.httpServer
	s.mu.Unlock()

	slog.Info("starting MCP HTTP server", "addr", ln.Addr().String(), "endpoint", MCPEndpoint)
	return srv.Serve(ln)
}

// Addr returns the bound address once the server is listening, else the configured one
func (s *HTTPServer) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.config.Addr
}

// Shutdown gracefully shuts down the server
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.limiter != nil {
		s.limiter.Stop()
	}

	s.mu.Lock()
	srv := s.httpServer
	s.mu.Unlock()
	if srv != nil {
		return srv.Shutdown(ctx)
	}
	return nil
}

// statusRecorder captures the response status for metrics
type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (r *statusRecorder) WriteHeader(code int) {
	if !r.wroteHeader {
		r.status = code
		r.wroteHeader = true
	}
	r.ResponseWriter.WriteHeader(code)
}

// Flush keeps server-sent event streams working through the recorder
func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap lets http.ResponseController reach the underlying writer
func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}
