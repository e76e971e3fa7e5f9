package instrumentation

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func useRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })
	return recorder
}

func TestSpanAttributeBuilder(t *testing.T) {
	attrs := NewSpanAttributeBuilder().
		WithSession("session:abc").
		WithIntent("select_slot").
		WithTransition("PRESENTING_OPTIONS", "CONFIRMING").
		WithEventID("evt1").
		WithSlots(3).
		Build()

	got := make(map[string]any)
	for _, attr := range attrs {
		got[string(attr.Key)] = attr.Value.AsInterface()
	}

	want := map[string]any{
		SpanAttrSession:   "session:abc",
		SpanAttrIntent:    "select_slot",
		SpanAttrFromState: "PRESENTING_OPTIONS",
		SpanAttrToState:   "CONFIRMING",
		SpanAttrEventID:   "evt1",
		SpanAttrSlots:     int64(3),
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("attribute %s = %v, want %v", k, got[k], v)
		}
	}
}

func TestSpanAttributeBuilder_EmptyValues(t *testing.T) {
	attrs := NewSpanAttributeBuilder().WithSession("").WithEventID("").Build()
	if len(attrs) != 0 {
		t.Errorf("expected no attributes, got %d", len(attrs))
	}
}

func TestSpans(t *testing.T) {
	recorder := useRecorder(t)
	ctx := context.Background()

	_, turn := StartTurnSpan(ctx, "session:abc")
	SetSpanSuccess(turn)
	turn.End()

	_, cal := StartCalendarSpan(ctx, BackendGoogle, OperationGetBusy)
	SetSpanError(cal, errors.New("backend down"))
	cal.End()

	toolCtx, tool := StartToolSpan(ctx, "schedule_message")
	if GetTraceID(toolCtx) == "" || GetSpanID(toolCtx) == "" {
		t.Error("expected trace and span IDs inside a span")
	}
	tool.End()

	spans := recorder.Ended()
	if len(spans) != 3 {
		t.Fatalf("expected 3 spans, got %d", len(spans))
	}

	names := []string{"conversation.turn", "calendar.google.get_busy", "tool.schedule_message"}
	for i, name := range names {
		if spans[i].Name() != name {
			t.Errorf("span %d name = %q, want %q", i, spans[i].Name(), name)
		}
	}
	if spans[0].Status().Code != codes.Ok {
		t.Errorf("turn span status = %v, want Ok", spans[0].Status().Code)
	}
	if spans[1].Status().Code != codes.Error {
		t.Errorf("calendar span status = %v, want Error", spans[1].Status().Code)
	}
}

func TestSetSpanError_Nil(t *testing.T) {
	recorder := useRecorder(t)
	_, span := StartSpan(context.Background(), "noop")
	SetSpanError(span, nil)
	span.End()

	if got := recorder.Ended()[0].Status().Code; got != codes.Unset {
		t.Errorf("status = %v, want Unset", got)
	}
}

func TestIDs_NoSpan(t *testing.T) {
	if GetTraceID(context.Background()) != "" {
		t.Error("expected empty trace ID")
	}
	if GetSpanID(context.Background()) != "" {
		t.Error("expected empty span ID")
	}
}
