package calendar

import (
	"context"
	"time"

	"github.com/teemow/tailortalk/internal/schedule"
)

// Backend is the calendar collaborator used by the conversation service.
type Backend interface {
	// GetBusy returns the busy intervals overlapping window.
	GetBusy(ctx context.Context, window schedule.TimeRange) ([]schedule.BusyInterval, error)

	// CreateEvent books req and returns the event ID. Repeating a request
	// with the same idempotency key returns the existing event.
	CreateEvent(ctx context.Context, req schedule.BookingRequest) (string, error)

	// ListEvents returns events ending after q.From, ordered by start.
	ListEvents(ctx context.Context, q EventQuery) ([]Event, error)
}

// DefaultMaxEvents caps ListEvents when EventQuery.Max is not set.
const DefaultMaxEvents = 10

// EventQuery selects events for ListEvents.
type EventQuery struct {
	From time.Time
	// Text matches summary, description or location; empty matches everything
	Text string
	Max  int
}

func (q EventQuery) limit() int {
	if q.Max <= 0 {
		return DefaultMaxEvents
	}
	return q.Max
}

// Event is a calendar event.
type Event struct {
	ID          string    `json:"id"`
	Summary     string    `json:"summary"`
	Description string    `json:"description,omitempty"`
	Location    string    `json:"location,omitempty"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
}

// Range returns the event's time span.
func (e Event) Range() schedule.TimeRange {
	return schedule.TimeRange{Start: e.Start, End: e.End}
}

// overlapping returns the busy intervals that overlap window.
func overlapping(busy []schedule.BusyInterval, window schedule.TimeRange) []schedule.BusyInterval {
	var out []schedule.BusyInterval
	for _, b := range busy {
		if b.Range().Overlaps(window) {
			out = append(out, b)
		}
	}
	return out
}
