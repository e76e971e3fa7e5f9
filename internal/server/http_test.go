package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/teemow/tailortalk/internal/instrumentation"
)

func newTestMCPServer() *mcpserver.MCPServer {
	return mcpserver.NewMCPServer("tailortalk-test", "test", mcpserver.WithToolCapabilities(true))
}

func TestNewHTTPServer_RequiresMCPServer(t *testing.T) {
	_, err := NewHTTPServer(nil, HTTPServerConfig{})
	assert.Error(t, err)
}

func TestHTTPServer_HealthEndpoints(t *testing.T) {
	s, err := NewHTTPServer(newTestMCPServer(), HTTPServerConfig{})
	require.NoError(t, err)
	s.SetHealthChecker(NewHealthChecker(nil))
	assert.Equal(t, ":8080", s.Addr())

	handler := s.Handler()
	for _, path := range []string{"/healthz", "/readyz", "/healthz/detailed"} {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}

func TestHTTPServer_Initialize(t *testing.T) {
	s, err := NewHTTPServer(newTestMCPServer(), HTTPServerConfig{})
	require.NoError(t, err)

	body := `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2025-03-26","capabilities":{},"clientInfo":{"name":"test","version":"1"}}}`
	req := httptest.NewRequest(http.MethodPost, MCPEndpoint, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json, text/event-stream")

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "tailortalk-test")
}

func TestHTTPServer_RateLimitAndMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	metrics, err := instrumentation.NewMetrics(sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)).Meter("test"), false)
	require.NoError(t, err)

	s, err := NewHTTPServer(newTestMCPServer(), HTTPServerConfig{RateLimit: 0.001, RateBurst: 1})
	require.NoError(t, err)
	s.SetMetrics(metrics)
	t.Cleanup(func() { _ = s.Shutdown(context.Background()) })

	handler := s.Handler()
	codes := make([]int, 0, 2)
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, MCPEndpoint, strings.NewReader(`{}`))
		req.RemoteAddr = "192.0.2.1:1234"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	assert.NotEqual(t, http.StatusTooManyRequests, codes[0])
	assert.Equal(t, http.StatusTooManyRequests, codes[1])

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	var limited int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "http_requests_total" {
				continue
			}
			for _, dp := range m.Data.(metricdata.Sum[int64]).DataPoints {
				if code, ok := dp.Attributes.Value("status"); ok && code.AsString() == "429" {
					limited += dp.Value
				}
			}
		}
	}
	assert.Equal(t, int64(1), limited)
}

func TestRouteLabel(t *testing.T) {
	assert.Equal(t, MCPEndpoint, routeLabel("/mcp"))
	assert.Equal(t, "/readyz", routeLabel("/readyz"))
	assert.Equal(t, "other", routeLabel("/wp-admin"))
}
