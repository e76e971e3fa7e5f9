package calendar

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/teemow/tailortalk/internal/instrumentation"
	"github.com/teemow/tailortalk/internal/logging"
	"github.com/teemow/tailortalk/internal/schedule"
)

// Instrumented records metrics, spans and debug logs for every call to the
// wrapped backend.
type Instrumented struct {
	next       Backend
	backend    string
	calendarID string
	metrics    *instrumentation.Metrics
	logger     *slog.Logger
}

// Instrument wraps next. metrics may be nil.
func Instrument(next Backend, backend, calendarID string, metrics *instrumentation.Metrics) *Instrumented {
	return &Instrumented{
		next:       next,
		backend:    backend,
		calendarID: calendarID,
		metrics:    metrics,
		logger:     slog.Default(),
	}
}

// WithLogger replaces the default logger.
func (i *Instrumented) WithLogger(logger *slog.Logger) *Instrumented {
	if logger != nil {
		i.logger = logger
	}
	return i
}

func (i *Instrumented) finish(ctx context.Context, operation string, start time.Time, err error, attrs ...slog.Attr) {
	duration := time.Since(start)
	i.metrics.RecordCalendarOperation(ctx, i.backend, i.calendarID, operation, instrumentation.ErrorResult(err), duration)

	attrs = append(attrs,
		logging.Backend(i.backend),
		logging.Operation(operation),
		slog.Duration(logging.KeyDuration, duration),
		logging.Status(instrumentation.Status(err)),
	)
	if err != nil {
		attrs = append(attrs, logging.Err(err))
		i.logger.LogAttrs(ctx, slog.LevelWarn, "calendar call failed", attrs...)
		return
	}
	i.logger.LogAttrs(ctx, slog.LevelDebug, "calendar call completed", attrs...)
}

// GetBusy implements Backend.
func (i *Instrumented) GetBusy(ctx context.Context, window schedule.TimeRange) ([]schedule.BusyInterval, error) {
	ctx, span := instrumentation.StartCalendarSpan(ctx, i.backend, instrumentation.OperationGetBusy,
		attribute.String(instrumentation.SpanAttrCalendar, i.calendarID))
	defer span.End()

	start := time.Now()
	busy, err := i.next.GetBusy(ctx, window)
	i.finish(ctx, instrumentation.OperationGetBusy, start, err, slog.Int("busy", len(busy)))

	if err != nil {
		instrumentation.SetSpanError(span, err)
		return nil, err
	}
	instrumentation.SetSpanSuccess(span)
	return busy, nil
}

// CreateEvent implements Backend.
func (i *Instrumented) CreateEvent(ctx context.Context, req schedule.BookingRequest) (string, error) {
	ctx, span := instrumentation.StartCalendarSpan(ctx, i.backend, instrumentation.OperationCreateEvent,
		attribute.String(instrumentation.SpanAttrCalendar, i.calendarID))
	defer span.End()

	start := time.Now()
	id, err := i.next.CreateEvent(ctx, req)
	i.finish(ctx, instrumentation.OperationCreateEvent, start, err, logging.EventID(id))

	if err != nil {
		instrumentation.SetSpanError(span, err)
		return "", err
	}
	span.SetAttributes(instrumentation.NewSpanAttributeBuilder().WithEventID(id).Build()...)
	instrumentation.SetSpanSuccess(span)
	return id, nil
}

// ListEvents implements Backend.
func (i *Instrumented) ListEvents(ctx context.Context, q EventQuery) ([]Event, error) {
	ctx, span := instrumentation.StartCalendarSpan(ctx, i.backend, instrumentation.OperationListEvents,
		attribute.String(instrumentation.SpanAttrCalendar, i.calendarID))
	defer span.End()

	start := time.Now()
	events, err := i.next.ListEvents(ctx, q)
	i.finish(ctx, instrumentation.OperationListEvents, start, err, slog.Int("events", len(events)))

	if err != nil {
		instrumentation.SetSpanError(span, err)
		return nil, err
	}
	instrumentation.SetSpanSuccess(span)
	return events, nil
}
