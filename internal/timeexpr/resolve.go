package timeexpr

import (
	"fmt"
	"strings"
	"time"

	"github.com/teemow/tailortalk/internal/schedule"
)

// Precision describes how specific the resolved window is
type Precision int

const (
	// PrecisionDay covers whole days; working hours still apply
	PrecisionDay Precision = iota
	// PrecisionDaypart covers a named part of the day or a daily range
	PrecisionDaypart
	// PrecisionClock starts at a time the user named explicitly
	PrecisionClock
)

func (p Precision) String() string {
	switch p {
	case PrecisionDay:
		return "day"
	case PrecisionDaypart:
		return "daypart"
	case PrecisionClock:
		return "clock"
	}
	return "unknown"
}

// DailyRange restricts a multi-day window to the same hours on every day
type DailyRange struct {
	From time.Duration
	To   time.Duration
}

// Resolution is a successfully resolved time expression
type Resolution struct {
	Window    schedule.TimeRange
	Duration  time.Duration
	Precision Precision
	// Pinned is set when the user named an explicit start time
	Pinned bool
	// Daily is set for multi-day windows that carry a time of day
	Daily *DailyRange
}

// ErrorKind classifies resolution failures
type ErrorKind int

const (
	Unresolvable ErrorKind = iota
	Ambiguous
)

func (k ErrorKind) String() string {
	if k == Ambiguous {
		return "ambiguous"
	}
	return "unresolvable"
}

// Reason explains an unresolvable expression
type Reason string

const (
	ReasonNoTime       Reason = "no date or time found"
	ReasonPast         Reason = "the requested time has already passed"
	ReasonInvalidRange Reason = "the end time is not after the start time"
	ReasonInvalidDate  Reason = "the date does not exist"
)

// ResolutionError is returned when text cannot be turned into a single window
type ResolutionError struct {
	Kind       ErrorKind
	Reason     Reason
	Candidates []schedule.TimeRange
}

func (e *ResolutionError) Error() string {
	if e.Kind == Ambiguous {
		parts := make([]string, len(e.Candidates))
		for i, c := range e.Candidates {
			parts[i] = c.String()
		}
		return fmt.Sprintf("ambiguous time expression: %s", strings.Join(parts, ", "))
	}
	return fmt.Sprintf("unresolvable time expression: %s", e.Reason)
}

func unresolvable(reason Reason) error {
	return &ResolutionError{Kind: Unresolvable, Reason: reason}
}

// Options configures a Resolver
type Options struct {
	Location        *time.Location
	DefaultDuration time.Duration
	// HorizonDays bounds how far ahead a bare weekday may still mean the
	// following week; when both occurrences fall inside it the result is ambiguous
	HorizonDays int
}

// Resolver turns utterances into search windows
type Resolver struct {
	opts Options
}

// NewResolver returns a resolver, filling in UTC and a one hour default duration
func NewResolver(opts Options) *Resolver {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.DefaultDuration <= 0 {
		opts.DefaultDuration = time.Hour
	}
	if opts.HorizonDays < 0 {
		opts.HorizonDays = 0
	}
	return &Resolver{opts: opts}
}

// Location returns the zone all resolutions are normalized to
func (r *Resolver) Location() *time.Location {
	return r.opts.Location
}

// DefaultDuration returns the duration used when the text names none
func (r *Resolver) DefaultDuration() time.Duration {
	return r.opts.DefaultDuration
}

// timeOfDay is a [from, to) offset pair within one day
type timeOfDay struct {
	from, to  time.Duration
	precision Precision
	pinned    bool
}

// dayspan is a candidate run of whole days [start, end)
type dayspan struct {
	start, end time.Time
}

func (d dayspan) multiDay() bool {
	return d.end.Sub(d.start) > 26*time.Hour
}

// Resolve resolves text relative to ref
func (r *Resolver) Resolve(text string, ref time.Time) (Resolution, error) {
	return r.ResolveTokens(Scan(text), ref)
}

// ResolveTokens resolves an already scanned utterance relative to ref
func (r *Resolver) ResolveTokens(tok Tokens, ref time.Time) (Resolution, error) {
	loc := r.opts.Location
	ref = ref.In(loc)

	if !tok.HasTime() {
		return Resolution{}, unresolvable(ReasonNoTime)
	}

	duration := tok.Duration
	explicitDuration := duration > 0
	if !explicitDuration {
		duration = r.opts.DefaultDuration
	}

	times, err := timesOfDay(tok, duration)
	if err != nil {
		return Resolution{}, err
	}

	days, err := r.days(tok, ref)
	if err != nil {
		return Resolution{}, err
	}
	dated := len(days) > 0
	if !dated {
		days = []dayspan{dayAt(ref, 0), dayAt(ref, 1)}
	}

	var candidates []Resolution
	for _, day := range days {
		for _, tod := range times {
			res, ok := r.build(day, tod, duration, explicitDuration, ref)
			if !ok {
				continue
			}
			candidates = append(candidates, res)
		}
		// without a date the first day that is still possible wins
		if !dated && len(candidates) > 0 {
			break
		}
	}

	switch len(candidates) {
	case 0:
		return Resolution{}, unresolvable(ReasonPast)
	case 1:
		return candidates[0], nil
	}

	windows := make([]schedule.TimeRange, len(candidates))
	for i, c := range candidates {
		windows[i] = c.Window
	}
	return Resolution{}, &ResolutionError{Kind: Ambiguous, Candidates: windows}
}

// timesOfDay returns the time-of-day restrictions named in tok. A nil entry
// means the whole day.
func timesOfDay(tok Tokens, duration time.Duration) ([]*timeOfDay, error) {
	switch {
	case tok.Range != nil:
		s, e, ok := resolveRange(tok.Range[0], tok.Range[1])
		if !ok {
			return nil, unresolvable(ReasonInvalidRange)
		}
		return []*timeOfDay{{
			from:      time.Duration(s) * time.Minute,
			to:        time.Duration(e) * time.Minute,
			precision: PrecisionClock,
			pinned:    true,
		}}, nil

	case len(tok.Clocks) > 0:
		seen := make(map[time.Duration]bool)
		var out []*timeOfDay
		for _, c := range tok.Clocks {
			h, ok := c.hour24()
			if !ok {
				continue
			}
			from := time.Duration(h)*time.Hour + time.Duration(c.Minute)*time.Minute
			if seen[from] {
				continue
			}
			seen[from] = true
			out = append(out, &timeOfDay{from: from, to: from + duration, precision: PrecisionClock, pinned: true})
		}
		if len(out) > 0 {
			return out, nil
		}

	case tok.Daypart != DaypartNone:
		from, to := daypartHours(tok.Daypart)
		return []*timeOfDay{{from: from, to: to, precision: PrecisionDaypart}}, nil
	}

	return []*timeOfDay{nil}, nil
}

func daypartHours(p Daypart) (time.Duration, time.Duration) {
	switch p {
	case DaypartMorning:
		return 8 * time.Hour, 12 * time.Hour
	case DaypartAfternoon:
		return 12 * time.Hour, 17 * time.Hour
	default:
		return 17 * time.Hour, 21 * time.Hour
	}
}

// days resolves the day references of tok into distinct candidate spans
func (r *Resolver) days(tok Tokens, ref time.Time) ([]dayspan, error) {
	var week *DayRef
	for i := range tok.Days {
		if tok.Days[i].Kind == DayWeek {
			week = &tok.Days[i]
			break
		}
	}

	var spans []dayspan
	seen := make(map[time.Time]bool)
	add := func(d dayspan) {
		if !seen[d.start] {
			seen[d.start] = true
			spans = append(spans, d)
		}
	}

	for _, dr := range tok.Days {
		switch dr.Kind {
		case DayOffset:
			add(dayAt(ref, dr.Offset))

		case DayWeekday:
			if week != nil {
				// "friday next week"
				monday := weekStart(ref, week.Offset)
				add(dayFrom(monday, (int(dr.Weekday)+6)%7))
				continue
			}
			for _, d := range r.weekday(dr, ref) {
				add(d)
			}

		case DayDate:
			d, ok := calendarDate(ref, dr.Year, dr.Month, dr.Day)
			if !ok {
				return nil, unresolvable(ReasonInvalidDate)
			}
			add(d)

		case DayOfMonth:
			d, ok := monthDay(ref, dr.Day)
			if !ok {
				return nil, unresolvable(ReasonInvalidDate)
			}
			add(d)

		case DayWeek:
			if hasWeekday(tok.Days) {
				continue
			}
			monday := weekStart(ref, dr.Offset)
			add(dayspan{start: monday, end: dayFrom(monday, 5).start})
		}
	}

	return spans, nil
}

func hasWeekday(refs []DayRef) bool {
	for _, d := range refs {
		if d.Kind == DayWeekday {
			return true
		}
	}
	return false
}

// weekday resolves a weekday reference. "this" is the nearest occurrence
// including today, "next" the nearest one after today. A bare weekday yields
// both upcoming occurrences when the second still falls inside the horizon.
func (r *Resolver) weekday(d DayRef, ref time.Time) []dayspan {
	delta := (int(d.Weekday) - int(ref.Weekday()) + 7) % 7

	switch d.Modifier {
	case "this":
		return []dayspan{dayAt(ref, delta)}
	case "next":
		if delta == 0 {
			delta = 7
		}
		return []dayspan{dayAt(ref, delta)}
	}

	out := []dayspan{dayAt(ref, delta)}
	if delta+7 <= r.opts.HorizonDays {
		out = append(out, dayAt(ref, delta+7))
	}
	return out
}

// build applies a time of day to a day span and clips the result against ref
func (r *Resolver) build(day dayspan, tod *timeOfDay, duration time.Duration, explicitDuration bool, ref time.Time) (Resolution, bool) {
	res := Resolution{Duration: duration, Precision: PrecisionDay}

	switch {
	case tod == nil:
		res.Window = schedule.TimeRange{Start: day.start, End: day.end}

	case day.multiDay():
		res.Window = schedule.TimeRange{Start: day.start, End: day.end}
		res.Daily = &DailyRange{From: tod.from, To: tod.to}
		res.Precision = PrecisionDaypart

	default:
		res.Window = schedule.TimeRange{Start: atOffset(day.start, tod.from), End: atOffset(day.start, tod.to)}
		res.Precision = tod.precision
		res.Pinned = tod.pinned
	}

	if res.Pinned && res.Window.Start.Before(ref) {
		return Resolution{}, false
	}
	if !res.Window.End.After(ref) {
		return Resolution{}, false
	}
	if res.Window.Start.Before(ref) {
		res.Window.Start = ref
	}

	if !explicitDuration {
		limit := res.Window.Duration()
		if res.Daily != nil {
			limit = res.Daily.To - res.Daily.From
		}
		if res.Duration > limit {
			res.Duration = limit
		}
	}

	return res, true
}

func dayAt(ref time.Time, offset int) dayspan {
	y, m, d := ref.Date()
	return dayFrom(time.Date(y, m, d, 0, 0, 0, 0, ref.Location()), offset)
}

func dayFrom(midnight time.Time, offset int) dayspan {
	start := time.Date(midnight.Year(), midnight.Month(), midnight.Day()+offset, 0, 0, 0, 0, midnight.Location())
	return dayspan{start: start, end: time.Date(start.Year(), start.Month(), start.Day()+1, 0, 0, 0, 0, start.Location())}
}

// weekStart returns local midnight of the Monday of the current week plus
// offset weeks
func weekStart(ref time.Time, offset int) time.Time {
	sinceMonday := (int(ref.Weekday()) + 6) % 7
	return dayAt(ref, 7*offset-sinceMonday).start
}

// calendarDate resolves a date; without a year it is the next occurrence
// that is not before today
func calendarDate(ref time.Time, year int, month time.Month, day int) (dayspan, bool) {
	today := dayAt(ref, 0).start
	if year == 0 {
		year = ref.Year()
		if d, ok := validDate(year, month, day, ref.Location()); ok && !d.Before(today) {
			return dayFrom(d, 0), true
		}
		year++
	}
	d, ok := validDate(year, month, day, ref.Location())
	if !ok {
		return dayspan{}, false
	}
	return dayFrom(d, 0), true
}

// monthDay resolves "the 17th" to this month or, once passed, the next
// month that has that day
func monthDay(ref time.Time, day int) (dayspan, bool) {
	today := dayAt(ref, 0).start
	for i := 0; i < 3; i++ {
		first := time.Date(ref.Year(), ref.Month()+time.Month(i), 1, 0, 0, 0, 0, ref.Location())
		if d, ok := validDate(first.Year(), first.Month(), day, ref.Location()); ok && !d.Before(today) {
			return dayFrom(d, 0), true
		}
	}
	return dayspan{}, false
}

func validDate(year int, month time.Month, day int, loc *time.Location) (time.Time, bool) {
	d := time.Date(year, month, day, 0, 0, 0, 0, loc)
	return d, d.Month() == month && d.Day() == day
}

func atOffset(midnight time.Time, offset time.Duration) time.Time {
	minutes := int(offset / time.Minute)
	return time.Date(midnight.Year(), midnight.Month(), midnight.Day(), minutes/60, minutes%60, 0, 0, midnight.Location())
}
