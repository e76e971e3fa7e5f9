package timeexpr

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// DayKind identifies how a day was referenced
type DayKind int

const (
	// DayOffset is a day relative to today (today, tomorrow, ...)
	DayOffset DayKind = iota
	// DayWeekday is a named weekday, optionally with "this" or "next"
	DayWeekday
	// DayDate is a calendar date; Year is zero when it must be inferred
	DayDate
	// DayOfMonth is "the 17th": month and year are inferred
	DayOfMonth
	// DayWeek is "this week" (Offset 0) or "next week" (Offset 1)
	DayWeek
)

// DayRef is a single day reference found in the text
type DayRef struct {
	Kind     DayKind
	Offset   int
	Weekday  time.Weekday
	Modifier string
	Year     int
	Month    time.Month
	Day      int

	pos int
}

// Clock is a time of day as written by the user
type Clock struct {
	Hour     int
	Minute   int
	Meridiem string
	// TwentyFour is set when the hour cannot be on a 12-hour clock ("15:00", "09:30")
	TwentyFour bool

	pos int
}

// Daypart is a named part of the day
type Daypart int

const (
	DaypartNone Daypart = iota
	DaypartMorning
	DaypartAfternoon
	DaypartEvening
)

// Tokens is the raw result of scanning an utterance
type Tokens struct {
	Days     []DayRef
	Clocks   []Clock
	Range    *[2]Clock
	Daypart  Daypart
	Duration time.Duration
}

// HasTime reports whether the text referenced a day, a time of day or a daypart
func (t Tokens) HasTime() bool {
	return len(t.Days) > 0 || len(t.Clocks) > 0 || t.Range != nil || t.Daypart != DaypartNone
}

// StartClock returns the 24-hour start time named in the text, if exactly one was given
func (t Tokens) StartClock() (hour, minute int, ok bool) {
	switch {
	case t.Range != nil:
		start, _, valid := resolveRange(t.Range[0], t.Range[1])
		if !valid {
			return 0, 0, false
		}
		return start / 60, start % 60, true
	case len(t.Clocks) == 1:
		h, valid := t.Clocks[0].hour24()
		return h, t.Clocks[0].Minute, valid
	}
	return 0, 0, false
}

const monthPattern = `jan(?:uary)?|feb(?:ruary)?|mar(?:ch)?|apr(?:il)?|may|june?|july?|aug(?:ust)?|sept?(?:ember)?|oct(?:ober)?|nov(?:ember)?|dec(?:ember)?`

const weekdayPattern = `monday|mon|tuesday|tues|tue|wednesday|wed|thursday|thurs|thur|thu|friday|fri|saturday|sat|sunday|sun`

const clockPattern = `(\d{1,2})(?::(\d{2}))?\s*(am|pm)?`

var (
	isoDateRe    = regexp.MustCompile(`\b(\d{4})-(\d{1,2})-(\d{1,2})\b`)
	monthDayRe   = regexp.MustCompile(`\b(` + monthPattern + `)\.?\s+(\d{1,2})(?:st|nd|rd|th)?\b(?:,?\s+(\d{4})\b)?`)
	dayMonthRe   = regexp.MustCompile(`\b(\d{1,2})(?:st|nd|rd|th)?\s+(?:of\s+)?(` + monthPattern + `)\b(?:,?\s+(\d{4})\b)?`)
	dayOfMonthRe = regexp.MustCompile(`\bthe\s+(\d{1,2})(?:st|nd|rd|th)\b`)

	durationWordRe = regexp.MustCompile(`\b(?:(an?|one)\s+hour\s+and\s+a\s+half|half\s+an?\s+hour|half[\s-]hour|quarter\s+(?:of\s+)?an?\s+hour|(?:an?|one)\s+hour|(two|three|four)\s+hours)\b`)
	durationNumRe  = regexp.MustCompile(`\b(\d+(?:\.\d+)?)\s*-?\s*(minutes?|mins?|hours?|hrs?|hr|h|m)\b`)

	relativeRe = regexp.MustCompile(`\b(day\s+after\s+tomorrow|tomorrow|tmrw|today|tonight|(?:this|next)\s+week|this\s+(?:morning|afternoon|evening))\b`)
	weekdayRe  = regexp.MustCompile(`\b(?:(this|next|coming)\s+)?(` + weekdayPattern + `)\b`)
	daypartRe  = regexp.MustCompile(`\b(morning|afternoon|evening)\b`)

	betweenRe = regexp.MustCompile(`\bbetween\s+` + clockPattern + `\s+and\s+` + clockPattern + `\b`)
	rangeRe   = regexp.MustCompile(`\b(from\s+)?` + clockPattern + `\s*(?:-|to|until|till|through)\s*` + clockPattern + `\b`)

	colonClockRe    = regexp.MustCompile(`\b(\d{1,2}):(\d{2})\s*(am|pm)?\b`)
	meridiemClockRe = regexp.MustCompile(`\b(\d{1,2})\s*(am|pm)\b`)
	namedClockRe    = regexp.MustCompile(`\b(noon|midday|midnight)\b`)
	bareClockRe     = regexp.MustCompile(`(?:\bat|\baround|@)\s*(\d{1,2})\b`)
)

var months = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March, "apr": time.April,
	"may": time.May, "jun": time.June, "jul": time.July, "aug": time.August,
	"sep": time.September, "oct": time.October, "nov": time.November, "dec": time.December,
}

var weekdays = map[string]time.Weekday{
	"mon": time.Monday, "tue": time.Tuesday, "wed": time.Wednesday, "thu": time.Thursday,
	"fri": time.Friday, "sat": time.Saturday, "sun": time.Sunday,
}

var normalizer = strings.NewReplacer(
	"a.m.", "am",
	"p.m.", "pm",
	"–", "-",
	"—", "-",
	"’", "'",
	"o'clock", "",
	"oclock", "",
)

// Normalize lower-cases text and folds punctuation variants
func Normalize(text string) string {
	return normalizer.Replace(strings.ToLower(text))
}

// scanner consumes matched spans so later patterns do not see them again
type scanner struct {
	buf []byte
}

func (s *scanner) each(re *regexp.Regexp, fn func(groups []string, pos int) bool) {
	text := string(s.buf)
	for _, idx := range re.FindAllStringSubmatchIndex(text, -1) {
		groups := make([]string, len(idx)/2)
		for i := range groups {
			if idx[2*i] >= 0 {
				groups[i] = text[idx[2*i]:idx[2*i+1]]
			}
		}
		if fn(groups, idx[0]) {
			for i := idx[0]; i < idx[1]; i++ {
				s.buf[i] = ' '
			}
		}
	}
}

// Scan extracts day, clock, daypart and duration tokens from text
func Scan(text string) Tokens {
	var tok Tokens
	sc := &scanner{buf: []byte(Normalize(text))}

	sc.each(isoDateRe, func(g []string, pos int) bool {
		y, _ := strconv.Atoi(g[1])
		m, _ := strconv.Atoi(g[2])
		d, _ := strconv.Atoi(g[3])
		if m < 1 || m > 12 || d < 1 || d > 31 {
			return false
		}
		tok.Days = append(tok.Days, DayRef{Kind: DayDate, Year: y, Month: time.Month(m), Day: d, pos: pos})
		return true
	})

	monthDate := func(monthName, day, year string, pos int) bool {
		d, _ := strconv.Atoi(day)
		if d < 1 || d > 31 {
			return false
		}
		y, _ := strconv.Atoi(year)
		tok.Days = append(tok.Days, DayRef{Kind: DayDate, Year: y, Month: months[monthName[:3]], Day: d, pos: pos})
		return true
	}
	sc.each(monthDayRe, func(g []string, pos int) bool { return monthDate(g[1], g[2], g[3], pos) })
	sc.each(dayMonthRe, func(g []string, pos int) bool { return monthDate(g[2], g[1], g[3], pos) })
	sc.each(dayOfMonthRe, func(g []string, pos int) bool {
		d, _ := strconv.Atoi(g[1])
		if d < 1 || d > 31 {
			return false
		}
		tok.Days = append(tok.Days, DayRef{Kind: DayOfMonth, Day: d, pos: pos})
		return true
	})

	sc.each(durationWordRe, func(g []string, _ int) bool {
		if tok.Duration == 0 {
			tok.Duration = wordDuration(g[0], g[2])
		}
		return true
	})
	sc.each(durationNumRe, func(g []string, _ int) bool {
		n, err := strconv.ParseFloat(g[1], 64)
		if err != nil || n <= 0 {
			return false
		}
		if tok.Duration == 0 {
			unit := time.Minute
			if strings.HasPrefix(g[2], "h") {
				unit = time.Hour
			}
			tok.Duration = time.Duration(n * float64(unit)).Round(time.Minute)
		}
		return true
	})

	sc.each(relativeRe, func(g []string, pos int) bool {
		phrase := strings.Join(strings.Fields(g[1]), " ")
		switch phrase {
		case "day after tomorrow":
			tok.Days = append(tok.Days, DayRef{Kind: DayOffset, Offset: 2, pos: pos})
		case "tomorrow", "tmrw":
			tok.Days = append(tok.Days, DayRef{Kind: DayOffset, Offset: 1, pos: pos})
		case "today":
			tok.Days = append(tok.Days, DayRef{Kind: DayOffset, pos: pos})
		case "tonight":
			tok.Days = append(tok.Days, DayRef{Kind: DayOffset, pos: pos})
			tok.Daypart = DaypartEvening
		case "this week":
			tok.Days = append(tok.Days, DayRef{Kind: DayWeek, pos: pos})
		case "next week":
			tok.Days = append(tok.Days, DayRef{Kind: DayWeek, Offset: 1, pos: pos})
		default:
			// this morning / this afternoon / this evening
			tok.Days = append(tok.Days, DayRef{Kind: DayOffset, pos: pos})
			tok.Daypart = parseDaypart(strings.Fields(phrase)[1])
		}
		return true
	})

	sc.each(weekdayRe, func(g []string, pos int) bool {
		modifier := g[1]
		if modifier == "coming" {
			modifier = "next"
		}
		tok.Days = append(tok.Days, DayRef{Kind: DayWeekday, Weekday: weekdays[g[2][:3]], Modifier: modifier, pos: pos})
		return true
	})

	sc.each(daypartRe, func(g []string, _ int) bool {
		if tok.Daypart == DaypartNone {
			tok.Daypart = parseDaypart(g[1])
		}
		return true
	})

	rangeMatch := func(g []string, pos int) bool {
		if tok.Range != nil {
			return false
		}
		start, ok1 := parseClock(g[1], g[2], g[3], pos)
		end, ok2 := parseClock(g[4], g[5], g[6], pos)
		if !ok1 || !ok2 {
			return false
		}
		tok.Range = &[2]Clock{start, end}
		return true
	}
	sc.each(betweenRe, rangeMatch)
	sc.each(rangeRe, func(g []string, pos int) bool {
		// "2 to 3 people" is a count: bare numbers need "from", minutes or am/pm
		if g[1] == "" && g[3] == "" && g[4] == "" && g[6] == "" && g[7] == "" {
			return false
		}
		return rangeMatch(append([]string{g[0]}, g[2:]...), pos)
	})

	sc.each(colonClockRe, func(g []string, pos int) bool {
		c, ok := parseClock(g[1], g[2], g[3], pos)
		if ok {
			tok.Clocks = append(tok.Clocks, c)
		}
		return ok
	})
	sc.each(meridiemClockRe, func(g []string, pos int) bool {
		c, ok := parseClock(g[1], "", g[2], pos)
		if ok {
			tok.Clocks = append(tok.Clocks, c)
		}
		return ok
	})
	sc.each(namedClockRe, func(g []string, pos int) bool {
		c := Clock{Hour: 12, TwentyFour: true, pos: pos}
		if g[1] == "midnight" {
			c.Hour = 0
		}
		tok.Clocks = append(tok.Clocks, c)
		return true
	})
	sc.each(bareClockRe, func(g []string, pos int) bool {
		c, ok := parseClock(g[1], "", "", pos)
		if ok {
			tok.Clocks = append(tok.Clocks, c)
		}
		return ok
	})

	sort.SliceStable(tok.Days, func(i, j int) bool { return tok.Days[i].pos < tok.Days[j].pos })
	sort.SliceStable(tok.Clocks, func(i, j int) bool { return tok.Clocks[i].pos < tok.Clocks[j].pos })
	return tok
}

func parseDaypart(word string) Daypart {
	switch word {
	case "morning":
		return DaypartMorning
	case "afternoon":
		return DaypartAfternoon
	case "evening":
		return DaypartEvening
	}
	return DaypartNone
}

func wordDuration(phrase, count string) time.Duration {
	switch {
	case strings.Contains(phrase, "and a half"):
		return 90 * time.Minute
	case strings.HasPrefix(phrase, "half"):
		return 30 * time.Minute
	case strings.HasPrefix(phrase, "quarter"):
		return 15 * time.Minute
	case count == "two":
		return 2 * time.Hour
	case count == "three":
		return 3 * time.Hour
	case count == "four":
		return 4 * time.Hour
	}
	return time.Hour
}

func parseClock(hour, minute, meridiem string, pos int) (Clock, bool) {
	h, err := strconv.Atoi(hour)
	if err != nil {
		return Clock{}, false
	}
	m := 0
	if minute != "" {
		if m, err = strconv.Atoi(minute); err != nil || m > 59 {
			return Clock{}, false
		}
	}

	c := Clock{
		Hour:       h,
		Minute:     m,
		Meridiem:   meridiem,
		TwentyFour: meridiem == "" && (h == 0 || h >= 13 || (len(hour) == 2 && hour[0] == '0')),
		pos:        pos,
	}
	if _, ok := c.hour24(); !ok {
		return Clock{}, false
	}
	return c, true
}

// hour24 converts to a 24-hour value. Without a meridiem, 1-7 are read as
// afternoon hours and 8-11 as morning hours.
func (c Clock) hour24() (int, bool) {
	return c.withMeridiem(c.Meridiem)
}

func (c Clock) withMeridiem(meridiem string) (int, bool) {
	h := c.Hour
	switch {
	case meridiem == "am":
		if h < 1 || h > 12 {
			return 0, false
		}
		if h == 12 {
			return 0, true
		}
		return h, true
	case meridiem == "pm":
		if h < 1 || h > 12 {
			return 0, false
		}
		if h == 12 {
			return 12, true
		}
		return h + 12, true
	case c.TwentyFour:
		return h, h <= 23
	case h >= 1 && h <= 7:
		return h + 12, true
	case h >= 8 && h <= 12:
		return h, true
	}
	return 0, false
}

// resolveRange returns start and end in minutes since midnight. A missing
// meridiem is taken from the other end when that keeps start before end.
func resolveRange(start, end Clock) (int, int, bool) {
	minutes := func(c Clock, meridiem string) (int, bool) {
		h, ok := c.withMeridiem(meridiem)
		return h*60 + c.Minute, ok
	}
	flip := map[string]string{"am": "pm", "pm": "am"}

	var s, e int
	var ok bool

	switch {
	case start.Meridiem == "" && end.Meridiem != "" && !start.TwentyFour:
		if e, ok = minutes(end, end.Meridiem); !ok {
			return 0, 0, false
		}
		if s, ok = minutes(start, end.Meridiem); !ok || s >= e {
			s, ok = minutes(start, flip[end.Meridiem])
		}
	case end.Meridiem == "" && start.Meridiem != "" && !end.TwentyFour:
		if s, ok = minutes(start, start.Meridiem); !ok {
			return 0, 0, false
		}
		if e, ok = minutes(end, start.Meridiem); !ok || e <= s {
			e, ok = minutes(end, flip[start.Meridiem])
		}
	default:
		if s, ok = minutes(start, start.Meridiem); !ok {
			return 0, 0, false
		}
		if e, ok = minutes(end, end.Meridiem); !ok {
			return 0, 0, false
		}
		if e <= s && end.Meridiem == "" && !end.TwentyFour && e < 12*60 {
			e += 12 * 60
		}
	}

	if !ok || s >= e {
		return 0, 0, false
	}
	return s, e, true
}
