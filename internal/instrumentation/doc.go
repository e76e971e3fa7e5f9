// Package instrumentation provides OpenTelemetry metrics, tracing and audit
// logging for tailortalk.
//
// # Metrics
//
// Conversation metrics:
//   - conversation_turns_total: turns by intent and by state before and after
//   - conversation_turn_duration_seconds: end-to-end turn latency by intent
//   - bookings_total: booking attempts by result (success, conflict, unavailable, timeout)
//   - offered_slots: histogram of how many slots a search offered
//
// Calendar metrics:
//   - calendar_operations_total: calendar calls by backend, operation and status
//   - calendar_operation_duration_seconds: calendar call latency
//
// Server metrics:
//   - http_requests_total, http_request_duration_seconds
//   - active_sessions: sessions currently held by the session store
//   - mcp_tool_invocations_total, mcp_tool_duration_seconds
//
// # Tracing
//
// Spans are created for conversation turns (conversation.turn), calendar
// calls (calendar.<backend>.<operation>) and MCP tool invocations
// (tool.<name>).
//
// # Configuration
//
// DefaultConfig reads the usual OpenTelemetry environment variables:
//   - INSTRUMENTATION_ENABLED (default: true)
//   - METRICS_EXPORTER: prometheus, otlp or stdout (default: prometheus)
//   - TRACING_EXPORTER: otlp, stdout or none (default: none)
//   - OTEL_EXPORTER_OTLP_ENDPOINT, OTEL_EXPORTER_OTLP_INSECURE
//   - OTEL_TRACES_SAMPLER_ARG (default: 0.1)
//   - OTEL_SERVICE_NAME (default: tailortalk)
//
// # Example Usage
//
//	provider, err := instrumentation.NewProvider(ctx, instrumentation.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	defer provider.Shutdown(ctx)
//
//	metrics := provider.Metrics()
//	metrics.RecordBooking(ctx, instrumentation.ResultSuccess)
package instrumentation
