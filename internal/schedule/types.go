package schedule

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

var (
	// ErrInvalidRange is returned when a range does not satisfy Start < End
	ErrInvalidRange = errors.New("invalid time range: start must be before end")

	// ErrNaiveTimestamp is returned for timestamps without an explicit zone
	ErrNaiveTimestamp = errors.New("timestamp has no time zone designator")

	// ErrCalendarUnavailable is returned by calendar backends that cannot be reached
	ErrCalendarUnavailable = errors.New("calendar unavailable")

	// ErrSlotConflict is returned when a slot is no longer free at booking time
	ErrSlotConflict = errors.New("slot is no longer free")
)

// TimeRange is a half-open interval [Start, End)
type TimeRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// NewTimeRange builds a TimeRange, rejecting empty or inverted ranges
func NewTimeRange(start, end time.Time) (TimeRange, error) {
	if !start.Before(end) {
		return TimeRange{}, fmt.Errorf("%w: %s >= %s", ErrInvalidRange, start.Format(time.RFC3339), end.Format(time.RFC3339))
	}
	return TimeRange{Start: start, End: end}, nil
}

// Duration returns the length of the range
func (r TimeRange) Duration() time.Duration {
	return r.End.Sub(r.Start)
}

// Valid reports whether Start < End
func (r TimeRange) Valid() bool {
	return r.Start.Before(r.End)
}

// Contains reports whether other lies entirely within r
func (r TimeRange) Contains(other TimeRange) bool {
	return !other.Start.Before(r.Start) && !other.End.After(r.End)
}

// Overlaps reports whether the two half-open ranges share any instant
func (r TimeRange) Overlaps(other TimeRange) bool {
	return r.Start.Before(other.End) && other.Start.Before(r.End)
}

// In converts both ends to loc
func (r TimeRange) In(loc *time.Location) TimeRange {
	return TimeRange{Start: r.Start.In(loc), End: r.End.In(loc)}
}

// Equal compares instants, ignoring location
func (r TimeRange) Equal(other TimeRange) bool {
	return r.Start.Equal(other.Start) && r.End.Equal(other.End)
}

func (r TimeRange) String() string {
	return r.Start.Format(time.RFC3339) + "/" + r.End.Format(time.RFC3339)
}

var zoneSuffix = regexp.MustCompile(`(?i)(z|[+-]\d{2}:?\d{2})$`)

// ParseTimestamp parses an RFC3339 timestamp. Timestamps without an explicit
// zone designator are rejected rather than guessed.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if !zoneSuffix.MatchString(s) {
		return time.Time{}, fmt.Errorf("%w: %q", ErrNaiveTimestamp, s)
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse timestamp %q: %w", s, err)
	}
	return t, nil
}

// ParseRange parses two RFC3339 timestamps into a validated range
func ParseRange(start, end string) (TimeRange, error) {
	s, err := ParseTimestamp(start)
	if err != nil {
		return TimeRange{}, err
	}
	e, err := ParseTimestamp(end)
	if err != nil {
		return TimeRange{}, err
	}
	return NewTimeRange(s, e)
}

// BusyInterval is a period during which the calendar is occupied
type BusyInterval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Range returns the interval as a TimeRange
func (b BusyInterval) Range() TimeRange {
	return TimeRange{Start: b.Start, End: b.End}
}

// Slot is a concrete candidate booking offered to the user
type Slot struct {
	Range TimeRange `json:"range"`
	Label string    `json:"label"`
}

// NewSlot builds a slot for r with a generated label
func NewSlot(r TimeRange) Slot {
	return Slot{Range: r, Label: FormatRange(r)}
}

// BookingRequest is the payload submitted to the calendar when a slot is confirmed
type BookingRequest struct {
	Range          TimeRange
	Summary        string
	Description    string
	TimeZone       string
	IdempotencyKey string
}
