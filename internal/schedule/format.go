package schedule

import (
	"fmt"
	"time"
)

// FormatDay renders a date as "Friday, January 16"
func FormatDay(t time.Time) string {
	return t.Format("Monday, January 2")
}

// FormatClock renders a time of day as "3:00 PM"
func FormatClock(t time.Time) string {
	return t.Format("3:04 PM")
}

// FormatRange renders a range as "Friday, January 16 3:00-4:00 PM". Ranges
// crossing a meridiem or a day boundary keep both designators.
func FormatRange(r TimeRange) string {
	start, end := r.Start, r.End.In(r.Start.Location())
	day := FormatDay(start)

	sy, sm, sd := start.Date()
	ey, em, ed := end.Date()
	if sy != ey || sm != em || sd != ed {
		// a range ending exactly at midnight still reads as one day
		if !(end.Hour() == 0 && end.Minute() == 0 && end.Sub(start) <= 24*time.Hour) {
			return fmt.Sprintf("%s %s - %s %s", day, FormatClock(start), FormatDay(end), FormatClock(end))
		}
	}

	if start.Format("PM") == end.Format("PM") {
		return fmt.Sprintf("%s %s-%s", day, start.Format("3:04"), FormatClock(end))
	}
	return fmt.Sprintf("%s %s-%s", day, FormatClock(start), FormatClock(end))
}

// FormatDuration renders a duration as "1 hour", "30 minutes" or "1 hour 30 minutes"
func FormatDuration(d time.Duration) string {
	d = d.Round(time.Minute)
	h := int(d / time.Hour)
	m := int((d % time.Hour) / time.Minute)

	unit := func(n int, singular string) string {
		if n == 1 {
			return fmt.Sprintf("1 %s", singular)
		}
		return fmt.Sprintf("%d %ss", n, singular)
	}

	switch {
	case h > 0 && m > 0:
		return unit(h, "hour") + " " + unit(m, "minute")
	case h > 0:
		return unit(h, "hour")
	default:
		return unit(m, "minute")
	}
}
