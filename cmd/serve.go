package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/tailortalk/internal/instrumentation"
	"github.com/teemow/tailortalk/internal/resources"
	"github.com/teemow/tailortalk/internal/server"
	"github.com/teemow/tailortalk/internal/tools/schedule_tools"
)

const (
	transportStdio          = "stdio"
	transportStreamableHTTP = "streamable-http"
)

func newServeCmd() *cobra.Command {
	var (
		transport  string
		trustProxy bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server",
		Long: `Start the Model Context Protocol (MCP) server so AI assistants can book
appointments through tailortalk.

Supports multiple transport types:
  - stdio: Standard input/output (default)
  - streamable-http: Streamable HTTP transport on --http-addr

With streamable-http, liveness and readiness checks are served on /healthz
and /readyz and Prometheus metrics on --metrics-addr.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, transport, trustProxy)
		},
	}

	cmd.Flags().StringVar(&transport, "transport", transportStdio, "Transport type: stdio or streamable-http")
	cmd.Flags().String("http-addr", ":8080", "HTTP server address (for streamable-http transport). Can also use TAILORTALK_HTTP_ADDR env var.")
	cmd.Flags().Float64("http-rate-limit", 10, "Requests per second allowed per client IP, 0 disables limiting. Can also use TAILORTALK_HTTP_RATE_LIMIT env var.")
	cmd.Flags().Int("http-rate-burst", 20, "Request burst allowed per client IP. Can also use TAILORTALK_HTTP_RATE_BURST env var.")
	cmd.Flags().BoolVar(&trustProxy, "trust-proxy", false, "Take client IPs from X-Forwarded-For (only behind a trusted proxy)")
	cmd.Flags().Bool("metrics-enabled", true, "Enable the metrics server on a dedicated port. Can also use TAILORTALK_METRICS_ENABLED env var.")
	cmd.Flags().String("metrics-addr", ":9090", "Metrics server address. Can also use TAILORTALK_METRICS_ADDR env var.")

	return cmd
}

func runServe(cmd *cobra.Command, transport string, trustProxy bool) error {
	if transport != transportStdio && transport != transportStreamableHTTP {
		return fmt.Errorf("unsupported transport type: %s (supported: stdio, streamable-http)", transport)
	}

	// Setup graceful shutdown
	shutdownCtx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Initialize instrumentation provider
	instrConfig := instrumentation.DefaultConfig()
	instrConfig.ServiceVersion = version

	provider, err := instrumentation.NewProvider(shutdownCtx, instrConfig)
	if err != nil {
		return fmt.Errorf("failed to create instrumentation provider: %w", err)
	}

	// stdout belongs to the protocol in stdio mode, so logs always go to stderr
	a, err := newApp(shutdownCtx, cmd.Flags(), appOptions{
		logOutput: os.Stderr,
		metrics:   provider.Metrics(),
		audit:     &instrConfig.AuditLogging,
	})
	if err != nil {
		_ = provider.Shutdown(context.Background())
		return err
	}
	logger := a.logger

	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
		defer cancel()
		if err := provider.Shutdown(ctx); err != nil {
			logger.Warn("instrumentation shutdown failed", slog.Any("error", err))
		}
	}()

	serverContext, err := server.NewServerContext(shutdownCtx, a.service)
	if err != nil {
		_ = a.Close()
		return fmt.Errorf("failed to create server context: %w", err)
	}
	serverContext.SetLogger(logger)
	serverContext.SetMetrics(provider.Metrics())
	serverContext.SetAuditLogger(instrumentation.NewAuditLoggerWithConfig(logger, instrConfig.AuditLogging))
	serverContext.OnShutdown(a.Close)
	defer func() {
		if err := serverContext.Shutdown(); err != nil {
			logger.Warn("server context shutdown failed", slog.Any("error", err))
		}
	}()

	mcpSrv := mcpserver.NewMCPServer("tailortalk", version,
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithResourceCapabilities(false, false),
	)
	if err := schedule_tools.RegisterScheduleTools(mcpSrv, serverContext); err != nil {
		return fmt.Errorf("failed to register scheduling tools: %w", err)
	}
	if err := resources.RegisterSessionResources(mcpSrv, serverContext); err != nil {
		return fmt.Errorf("failed to register session resources: %w", err)
	}

	switch transport {
	case transportStdio:
		return runStdioServer(mcpSrv)
	default:
		return runStreamableHTTPServer(shutdownCtx, mcpSrv, serverContext, a, provider, trustProxy)
	}
}

func runStdioServer(mcpSrv *mcpserver.MCPServer) error {
	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := mcpserver.ServeStdio(mcpSrv); err != nil {
			serverDone <- err
		}
	}()

	err := <-serverDone
	if err != nil {
		return fmt.Errorf("server stopped with error: %w", err)
	}
	return nil
}

func runStreamableHTTPServer(ctx context.Context, mcpSrv *mcpserver.MCPServer, serverContext *server.ServerContext, a *app, provider *instrumentation.Provider, trustProxy bool) error {
	logger := a.logger
	cfg := a.cfg

	// only the prometheus exporter has a scrape endpoint
	if cfg.MetricsEnabled && provider.Gatherer() != nil {
		metricsServer, err := startMetricsServer(cfg.MetricsAddr, provider)
		if err != nil {
			return err
		}
		logger.Info("metrics server started", slog.String("addr", metricsServer.Addr()))
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
			defer cancel()
			if err := metricsServer.Shutdown(shutdownCtx); err != nil {
				logger.Warn("metrics server shutdown failed", slog.Any("error", err))
			}
		}()
	}

	health := server.NewHealthChecker(serverContext)
	for name, check := range a.checks {
		health.AddReadinessCheck(name, check)
	}

	httpServer, err := server.NewHTTPServer(mcpSrv, server.HTTPServerConfig{
		Addr:       cfg.HTTPAddr,
		RateLimit:  cfg.HTTPRateLimit,
		RateBurst:  cfg.HTTPRateBurst,
		TrustProxy: trustProxy,
	})
	if err != nil {
		return fmt.Errorf("failed to create HTTP server: %w", err)
	}
	httpServer.SetHealthChecker(health)
	httpServer.SetMetrics(provider.Metrics())

	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := httpServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverDone <- err
		}
	}()
	logger.Info("MCP server listening",
		slog.String("addr", cfg.HTTPAddr),
		slog.String("endpoint", server.MCPEndpoint))

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received, stopping server")
		health.SetReady(false)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("error shutting down HTTP server: %w", err)
		}
		return nil
	case err := <-serverDone:
		if err != nil {
			return fmt.Errorf("server stopped with error: %w", err)
		}
		return nil
	}
}

// startMetricsServer starts the Prometheus endpoint and waits until it is
// listening.
func startMetricsServer(addr string, provider *instrumentation.Provider) (*server.MetricsServer, error) {
	metricsServer, err := server.NewMetricsServer(server.MetricsServerConfig{
		Addr:                    addr,
		InstrumentationProvider: provider,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics server: %w", err)
	}

	metricsReady := make(chan struct{})
	metricsErr := make(chan error, 1)
	go func() {
		if err := metricsServer.Serve(metricsReady); err != nil && !errors.Is(err, http.ErrServerClosed) {
			metricsErr <- err
		}
		close(metricsErr)
	}()

	select {
	case <-metricsReady:
		return metricsServer, nil
	case err := <-metricsErr:
		return nil, fmt.Errorf("metrics server failed to start: %w", err)
	case <-time.After(5 * time.Second):
		return nil, fmt.Errorf("metrics server startup timed out")
	}
}
