package instrumentation

import (
	"context"
	"testing"
	"time"
)

func newTestMetrics(t *testing.T, detailed bool) (*Metrics, context.Context) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	config := testConfig(ExporterPrometheus, ExporterNone)
	config.DetailedLabels = detailed
	provider, err := NewProvider(ctx, config)
	if err != nil {
		t.Fatalf("failed to create provider: %v", err)
	}
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	return provider.Metrics(), ctx
}

func TestMetrics_Record(t *testing.T) {
	for _, detailed := range []bool{false, true} {
		metrics, ctx := newTestMetrics(t, detailed)

		// Should not panic
		metrics.RecordHTTPRequest(ctx, "POST", "/mcp", 200, 100*time.Millisecond)
		metrics.RecordTurn(ctx, "query_availability", "INITIAL", "PRESENTING_OPTIONS", 250*time.Millisecond)
		metrics.RecordBooking(ctx, ResultSuccess)
		metrics.RecordBooking(ctx, ResultConflict)
		metrics.RecordOfferedSlots(ctx, 3)
		metrics.RecordCalendarOperation(ctx, BackendGoogle, "primary", OperationGetBusy, ResultSuccess, 80*time.Millisecond)
		metrics.RecordCalendarOperation(ctx, BackendMemory, "", OperationCreateEvent, ResultTimeout, time.Second)
		metrics.RecordToolInvocation(ctx, "schedule_message", StatusSuccess, 10*time.Millisecond)
		metrics.IncrementActiveSessions(ctx)
		metrics.DecrementActiveSessions(ctx)
	}
}

func TestMetrics_NoOp(t *testing.T) {
	ctx := context.Background()

	for name, metrics := range map[string]*Metrics{"zero": {}, "nil": nil} {
		t.Run(name, func(t *testing.T) {
			metrics.RecordHTTPRequest(ctx, "GET", "/healthz", 200, time.Millisecond)
			metrics.RecordTurn(ctx, "confirm", "CONFIRMING", "BOOKED", time.Millisecond)
			metrics.RecordBooking(ctx, ResultError)
			metrics.RecordOfferedSlots(ctx, 0)
			metrics.RecordCalendarOperation(ctx, BackendGoogle, "primary", OperationGetBusy, ResultError, time.Millisecond)
			metrics.RecordToolInvocation(ctx, "schedule_find_slots", StatusError, time.Millisecond)
			metrics.IncrementActiveSessions(ctx)
			metrics.DecrementActiveSessions(ctx)
		})
	}
}
