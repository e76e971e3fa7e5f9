package availability

import (
	"sort"
	"time"

	"github.com/teemow/tailortalk/internal/schedule"
)

// DefaultGranularity is the step between candidate slot starts
const DefaultGranularity = 30 * time.Minute

// Engine finds free slots inside a window
type Engine struct {
	// Granularity is the step between consecutive candidates within a free gap.
	// Candidate starts are aligned to this grid, counted from local midnight.
	Granularity time.Duration
}

// NewEngine returns an engine with the given granularity, falling back to
// DefaultGranularity for non-positive values
func NewEngine(granularity time.Duration) *Engine {
	if granularity <= 0 {
		granularity = DefaultGranularity
	}
	return &Engine{Granularity: granularity}
}

// FindSlots returns up to maxResults slots of exactly duration inside window
// that do not overlap any busy interval. maxResults <= 0 means no limit.
func (e *Engine) FindSlots(window schedule.TimeRange, duration time.Duration, busy []schedule.BusyInterval, maxResults int) []schedule.Slot {
	slots := []schedule.Slot{}
	if !window.Valid() || duration <= 0 || duration > window.Duration() {
		return slots
	}

	step := e.Granularity
	if step <= 0 {
		step = DefaultGranularity
	}

	for _, gap := range freeGaps(window, Merge(busy)) {
		if gap.Duration() < duration {
			continue
		}

		start := alignUp(gap.Start, step)
		if start.Add(duration).After(gap.End) {
			// the grid does not fit; the gap itself still holds one slot
			start = gap.Start
		}

		for !start.Add(duration).After(gap.End) {
			slots = append(slots, schedule.NewSlot(schedule.TimeRange{Start: start, End: start.Add(duration)}))
			if maxResults > 0 && len(slots) >= maxResults {
				return slots
			}
			start = start.Add(step)
		}
	}

	return slots
}

// Merge sorts busy intervals by start (then end) and coalesces overlapping or
// adjacent ones. Invalid intervals are dropped. Merge is idempotent.
func Merge(busy []schedule.BusyInterval) []schedule.BusyInterval {
	sorted := make([]schedule.BusyInterval, 0, len(busy))
	for _, b := range busy {
		if b.Start.Before(b.End) {
			sorted = append(sorted, b)
		}
	}

	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].Start.Equal(sorted[j].Start) {
			return sorted[i].Start.Before(sorted[j].Start)
		}
		return sorted[i].End.Before(sorted[j].End)
	})

	merged := make([]schedule.BusyInterval, 0, len(sorted))
	for _, b := range sorted {
		if n := len(merged); n > 0 && !b.Start.After(merged[n-1].End) {
			if b.End.After(merged[n-1].End) {
				merged[n-1].End = b.End
			}
			continue
		}
		merged = append(merged, b)
	}
	return merged
}

// freeGaps walks the window left to right and returns the maximal free
// ranges between merged busy intervals
func freeGaps(window schedule.TimeRange, merged []schedule.BusyInterval) []schedule.TimeRange {
	var gaps []schedule.TimeRange
	cursor := window.Start

	for _, b := range merged {
		if !b.End.After(cursor) {
			continue
		}
		if !b.Start.Before(window.End) {
			break
		}
		if b.Start.After(cursor) {
			gaps = append(gaps, schedule.TimeRange{Start: cursor, End: b.Start})
		}
		cursor = b.End
	}

	if cursor.Before(window.End) {
		gaps = append(gaps, schedule.TimeRange{Start: cursor, End: window.End})
	}
	return gaps
}

// alignUp rounds t up to the next multiple of step since local midnight
func alignUp(t time.Time, step time.Duration) time.Time {
	y, m, d := t.Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, t.Location())
	offset := t.Sub(midnight)
	if rem := offset % step; rem != 0 {
		return t.Add(step - rem)
	}
	return t
}
