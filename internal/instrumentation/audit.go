package instrumentation

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/teemow/tailortalk/internal/logging"
)

// ToolInvocation captures one MCP tool call for audit logging.
//
// SessionID identifies a conversation and lets any holder resume it, so it is
// hashed in logs unless IncludeSessionIDs is configured.
type ToolInvocation struct {
	Tool      string
	SessionID string

	// Conversation state before and after the call, if the tool drove a turn
	FromState string
	ToState   string

	StartTime time.Time
	Duration  time.Duration
	Success   bool
	Error     string

	TraceID string
	SpanID  string
}

// NewToolInvocation creates a new ToolInvocation with timing started.
// Call Complete when the tool operation finishes.
func NewToolInvocation(tool string) *ToolInvocation {
	return &ToolInvocation{
		Tool:      tool,
		StartTime: time.Now(),
	}
}

// WithSession sets the conversation session ID.
func (ti *ToolInvocation) WithSession(id string) *ToolInvocation {
	ti.SessionID = id
	return ti
}

// WithTransition records the conversation states around the call.
func (ti *ToolInvocation) WithTransition(from, to string) *ToolInvocation {
	ti.FromState = from
	ti.ToState = to
	return ti
}

// WithSpanContext extracts trace context from the current span.
func (ti *ToolInvocation) WithSpanContext(ctx context.Context) *ToolInvocation {
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		ti.TraceID = span.SpanContext().TraceID().String()
		ti.SpanID = span.SpanContext().SpanID().String()
	}
	return ti
}

// Complete marks the invocation as completed and calculates duration.
func (ti *ToolInvocation) Complete(err error) *ToolInvocation {
	ti.Duration = time.Since(ti.StartTime)
	ti.Success = err == nil
	if err != nil {
		ti.Error = err.Error()
	}
	return ti
}

// Status returns "success" or "error" based on the Success field.
func (ti *ToolInvocation) Status() string {
	if ti.Success {
		return StatusSuccess
	}
	return StatusError
}

// LogAttrs returns slog attributes for the invocation. The session ID is
// included verbatim only when rawSession is set.
func (ti *ToolInvocation) LogAttrs(rawSession bool) []slog.Attr {
	attrs := []slog.Attr{
		slog.String("tool", ti.Tool),
		slog.Duration("duration", ti.Duration),
		slog.Bool("success", ti.Success),
	}

	if ti.SessionID != "" {
		if rawSession {
			attrs = append(attrs, slog.String("session_id", ti.SessionID))
		} else {
			attrs = append(attrs, logging.SessionHash(ti.SessionID))
		}
	}
	if ti.FromState != "" || ti.ToState != "" {
		attrs = append(attrs, logging.Transition(ti.FromState, ti.ToState))
	}
	if ti.TraceID != "" {
		attrs = append(attrs, slog.String("trace_id", ti.TraceID))
	}
	if ti.SpanID != "" {
		attrs = append(attrs, slog.String("span_id", ti.SpanID))
	}
	if ti.Error != "" {
		attrs = append(attrs, slog.String("error", ti.Error))
	}

	return attrs
}

// BookingRecord is the audit trail of one booking attempt.
type BookingRecord struct {
	SessionID string
	Start     time.Time
	End       time.Time
	EventID   string
	Result    string
	Duration  time.Duration
	TraceID   string
}

// AuditLogger provides structured audit logging for tool invocations and
// bookings.
type AuditLogger struct {
	logger            *slog.Logger
	includeSessionIDs bool
	enabled           bool
}

// NewAuditLogger creates a new AuditLogger with the given slog.Logger.
// Session IDs are hashed by default.
func NewAuditLogger(logger *slog.Logger) *AuditLogger {
	return NewAuditLoggerWithConfig(logger, AuditLoggingConfig{Enabled: true})
}

// NewAuditLoggerWithConfig creates a new AuditLogger with the given configuration.
func NewAuditLoggerWithConfig(logger *slog.Logger, config AuditLoggingConfig) *AuditLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditLogger{
		logger:            logger,
		includeSessionIDs: config.IncludeSessionIDs,
		enabled:           config.Enabled,
	}
}

// SetEnabled sets whether audit logging is enabled.
func (al *AuditLogger) SetEnabled(enabled bool) {
	al.enabled = enabled
}

// LogToolInvocation logs a tool invocation.
func (al *AuditLogger) LogToolInvocation(ti *ToolInvocation) {
	if al == nil || !al.enabled {
		return
	}

	args := attrsToArgs(ti.LogAttrs(al.includeSessionIDs))
	if ti.Success {
		al.logger.Info("tool_executed", args...)
	} else {
		al.logger.Warn("tool_failed", args...)
	}
}

// LogBooking logs a booking attempt. Successful bookings log at info level,
// everything else at warn.
func (al *AuditLogger) LogBooking(rec BookingRecord) {
	if al == nil || !al.enabled {
		return
	}

	attrs := []slog.Attr{
		slog.Time("start", rec.Start),
		slog.Time("end", rec.End),
		slog.String("result", rec.Result),
		slog.Duration("duration", rec.Duration),
	}
	if al.includeSessionIDs {
		attrs = append(attrs, slog.String("session_id", rec.SessionID))
	} else {
		attrs = append(attrs, logging.SessionHash(rec.SessionID))
	}
	if rec.EventID != "" {
		attrs = append(attrs, logging.EventID(rec.EventID))
	}
	if rec.TraceID != "" {
		attrs = append(attrs, slog.String("trace_id", rec.TraceID))
	}

	args := attrsToArgs(attrs)
	if rec.Result == ResultSuccess {
		al.logger.Info("booking_audit", args...)
	} else {
		al.logger.Warn("booking_audit", args...)
	}
}

func attrsToArgs(attrs []slog.Attr) []any {
	args := make([]any, len(attrs))
	for i, attr := range attrs {
		args[i] = attr
	}
	return args
}
