package calendar

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/teemow/tailortalk/internal/schedule"
)

// Memory is an in-process calendar. Fixed busy blocks and booked events both
// count as busy.
type Memory struct {
	mu     sync.Mutex
	busy   []schedule.BusyInterval
	events map[string]Event
}

// NewMemory returns a memory calendar with the given busy blocks.
func NewMemory(busy ...schedule.BusyInterval) *Memory {
	return &Memory{
		busy:   append([]schedule.BusyInterval(nil), busy...),
		events: make(map[string]Event),
	}
}

// NewDemo returns a memory calendar with a plausible working week: a daily
// stand-up at 10:00, lunch at 12:00 and a meeting at 15:00 on every working
// day in the days starting at now's date in loc.
func NewDemo(now time.Time, loc *time.Location, days int) *Memory {
	if loc == nil {
		loc = time.UTC
	}
	blocks := []struct {
		hour, minute int
		length       time.Duration
	}{
		{10, 0, 30 * time.Minute},
		{12, 0, time.Hour},
		{15, 0, time.Hour},
	}

	local := now.In(loc)
	day := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)

	var busy []schedule.BusyInterval
	for i := 0; i < days; i++ {
		d := day.AddDate(0, 0, i)
		if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			continue
		}
		for _, b := range blocks {
			start := time.Date(d.Year(), d.Month(), d.Day(), b.hour, b.minute, 0, 0, loc)
			busy = append(busy, schedule.BusyInterval{Start: start, End: start.Add(b.length)})
		}
	}
	return NewMemory(busy...)
}

// GetBusy returns fixed blocks and booked events overlapping window, ordered by start.
func (m *Memory) GetBusy(ctx context.Context, window schedule.TimeRange) ([]schedule.BusyInterval, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.busyLocked(window), nil
}

func (m *Memory) busyLocked(window schedule.TimeRange) []schedule.BusyInterval {
	out := overlapping(m.busy, window)
	for _, e := range m.events {
		if e.Range().Overlaps(window) {
			out = append(out, schedule.BusyInterval{Start: e.Start, End: e.End})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out
}

// CreateEvent books req unless it overlaps something already busy.
func (m *Memory) CreateEvent(ctx context.Context, req schedule.BookingRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if !req.Range.Valid() {
		return "", schedule.ErrInvalidRange
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if req.IdempotencyKey != "" {
		if e, ok := m.events[req.IdempotencyKey]; ok {
			if !e.Range().Equal(req.Range) {
				return "", fmt.Errorf("idempotency key %s reused for a different slot", req.IdempotencyKey)
			}
			return e.ID, nil
		}
	}
	if len(m.busyLocked(req.Range)) > 0 {
		return "", schedule.ErrSlotConflict
	}

	id := req.IdempotencyKey
	if id == "" {
		id = uuid.NewString()
	}
	m.events[id] = Event{
		ID:          id,
		Summary:     req.Summary,
		Description: req.Description,
		Start:       req.Range.Start,
		End:         req.Range.End,
	}
	return id, nil
}

// Events returns booked events ordered by start.
func (m *Memory) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Event, 0, len(m.events))
	for _, e := range m.events {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out
}

// ListEvents returns booked events matching q. Fixed busy blocks are not events.
func (m *Memory) ListEvents(ctx context.Context, q EventQuery) ([]Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	text := strings.ToLower(strings.TrimSpace(q.Text))
	var out []Event
	for _, e := range m.Events() {
		if !e.End.After(q.From) {
			continue
		}
		if text != "" && !e.matches(text) {
			continue
		}
		out = append(out, e)
		if len(out) == q.limit() {
			break
		}
	}
	return out, nil
}

func (e Event) matches(lower string) bool {
	for _, field := range []string{e.Summary, e.Description, e.Location} {
		if strings.Contains(strings.ToLower(field), lower) {
			return true
		}
	}
	return false
}
