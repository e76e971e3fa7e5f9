package availability

import (
	"fmt"
	"time"

	"github.com/teemow/tailortalk/internal/schedule"
)

// Workday describes the bookable hours of a day, in whole hours
type Workday struct {
	StartHour int
	EndHour   int
}

// DefaultWorkday is 09:00-17:00
var DefaultWorkday = Workday{StartHour: 9, EndHour: 17}

// Validate checks 0 <= StartHour < EndHour <= 24
func (w Workday) Validate() error {
	if w.StartHour < 0 || w.EndHour > 24 || w.StartHour >= w.EndHour {
		return fmt.Errorf("invalid working hours %02d-%02d", w.StartHour, w.EndHour)
	}
	return nil
}

// Hours returns the working hours of the day containing t, in loc
func (w Workday) Hours(t time.Time, loc *time.Location) schedule.TimeRange {
	t = t.In(loc)
	y, m, d := t.Date()
	return schedule.TimeRange{
		Start: time.Date(y, m, d, w.StartHour, 0, 0, 0, loc),
		End:   time.Date(y, m, d, w.EndHour, 0, 0, 0, loc),
	}
}

// OffHours returns busy intervals covering everything in window that falls
// outside working hours
func (w Workday) OffHours(window schedule.TimeRange, loc *time.Location) []schedule.BusyInterval {
	return Outside(window, loc, time.Duration(w.StartHour)*time.Hour, time.Duration(w.EndHour)*time.Hour)
}

// Outside returns busy intervals blocking, on every day touched by window,
// the time before from and after to (both offsets from local midnight)
func Outside(window schedule.TimeRange, loc *time.Location, from, to time.Duration) []schedule.BusyInterval {
	var blocked []schedule.BusyInterval

	y, m, d := window.Start.In(loc).Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, loc)

	for day.Before(window.End) {
		next := time.Date(day.Year(), day.Month(), day.Day()+1, 0, 0, 0, 0, loc)
		open := atOffset(day, from)
		closed := atOffset(day, to)

		if day.Before(open) {
			blocked = append(blocked, schedule.BusyInterval{Start: day, End: open})
		}
		if closed.Before(next) {
			blocked = append(blocked, schedule.BusyInterval{Start: closed, End: next})
		}
		day = next
	}

	return blocked
}

// atOffset returns the wall-clock time offset from midnight on day, so that
// DST transitions do not shift the result
func atOffset(midnight time.Time, offset time.Duration) time.Time {
	minutes := int(offset / time.Minute)
	return time.Date(midnight.Year(), midnight.Month(), midnight.Day(), minutes/60, minutes%60, 0, 0, midnight.Location())
}
