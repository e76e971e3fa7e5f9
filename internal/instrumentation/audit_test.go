package instrumentation

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"
)

const testSession = "5f1c2a8e-session"

func TestToolInvocation_Complete(t *testing.T) {
	ti := NewToolInvocation("schedule_message").WithSession(testSession)
	if ti.StartTime.IsZero() {
		t.Fatal("StartTime should be set")
	}

	ti.Complete(nil)
	if !ti.Success || ti.Status() != StatusSuccess || ti.Error != "" {
		t.Errorf("unexpected success state: %+v", ti)
	}

	failed := NewToolInvocation("schedule_message").Complete(errors.New("calendar down"))
	if failed.Success || failed.Status() != StatusError || failed.Error != "calendar down" {
		t.Errorf("unexpected failure state: %+v", failed)
	}
}

func TestToolInvocation_LogAttrs(t *testing.T) {
	ti := NewToolInvocation("schedule_message").
		WithSession(testSession).
		WithTransition("INITIAL", "PRESENTING_OPTIONS").
		Complete(nil)

	keys := func(raw bool) map[string]string {
		out := make(map[string]string)
		for _, a := range ti.LogAttrs(raw) {
			out[a.Key] = a.Value.String()
		}
		return out
	}

	hashed := keys(false)
	if _, ok := hashed["session_id"]; ok {
		t.Error("raw session ID should not be logged by default")
	}
	if !strings.HasPrefix(hashed["session_hash"], "session:") {
		t.Errorf("expected hashed session, got %q", hashed["session_hash"])
	}
	if _, ok := hashed["state"]; !ok {
		t.Error("expected state group")
	}

	raw := keys(true)
	if raw["session_id"] != testSession {
		t.Errorf("session_id = %q, want %q", raw["session_id"], testSession)
	}
}

func TestAuditLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	audit := NewAuditLogger(logger)

	audit.LogToolInvocation(NewToolInvocation("schedule_message").Complete(nil))
	audit.LogToolInvocation(NewToolInvocation("schedule_message").Complete(errors.New("boom")))
	audit.LogBooking(BookingRecord{
		SessionID: testSession,
		Start:     time.Date(2025, 1, 16, 15, 0, 0, 0, time.UTC),
		End:       time.Date(2025, 1, 16, 16, 0, 0, 0, time.UTC),
		EventID:   "evt1",
		Result:    ResultSuccess,
	})

	out := buf.String()
	for _, want := range []string{"tool_executed", "tool_failed", "booking_audit", "event_id=evt1"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}
	if strings.Contains(out, testSession) {
		t.Error("session ID leaked into audit log")
	}
}

func TestAuditLogger_Disabled(t *testing.T) {
	var buf bytes.Buffer
	audit := NewAuditLoggerWithConfig(slog.New(slog.NewTextHandler(&buf, nil)), AuditLoggingConfig{Enabled: false})

	audit.LogToolInvocation(NewToolInvocation("schedule_message").Complete(nil))
	audit.LogBooking(BookingRecord{Result: ResultConflict})

	if buf.Len() != 0 {
		t.Errorf("expected no output, got %q", buf.String())
	}

	var nilLogger *AuditLogger
	nilLogger.LogBooking(BookingRecord{})
}
