package intent

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/teemow/tailortalk/internal/schedule"
	"github.com/teemow/tailortalk/internal/timeexpr"
)

// Kind is the classified intent of a turn
type Kind int

const (
	Unknown Kind = iota
	QueryAvailability
	SelectSlot
	Confirm
	Cancel
)

func (k Kind) String() string {
	switch k {
	case QueryAvailability:
		return "query_availability"
	case SelectSlot:
		return "select_slot"
	case Confirm:
		return "confirm"
	case Cancel:
		return "cancel"
	}
	return "unknown"
}

// Intent is the result of classifying one utterance
type Intent struct {
	Kind Kind
	// Ordinal is the 1-based option the user picked; it is not range checked
	Ordinal int
	// Tokens holds the time expressions found in the utterance
	Tokens timeexpr.Tokens
}

var (
	cancelRe      = regexp.MustCompile(`\b(cancel|stop|never\s*mind|forget\s+(?:it|about\s+it)|abort|quit)\b`)
	negationRe    = regexp.MustCompile(`\b(?:don'?t|do\s+not|not|never|no\s+need\s+to)\s+(?:\w+\s+)?$`)
	negativeRe    = regexp.MustCompile(`^\W*(no|nope|nah|no\s+thanks?(?:\s+you)?)\W*$`)
	affirmativeRe = regexp.MustCompile(`\b(yes|yeah|yep|yup|sure|ok|okay|confirm|confirmed|correct|book\s+it|do\s+it|that\s+works|works\s+for\s+me|sounds\s+good|go\s+ahead|perfect)\b`)
	alternativeRe = regexp.MustCompile(`\b(different|other|another|alternatives?|else)\b`)
	cueRe         = regexp.MustCompile(`\b(book|booking|schedule|appointment|meeting|meet|call|slots?|available|availability|free|open|reserve|arrange|set\s+up|how\s+about|what\s+about|time)\b`)

	numberWord    = `one|two|three|four|five|six|seven|eight|nine|ten`
	optionRe      = regexp.MustCompile(`\b(?:option|number|choice|slot|no\.)\s*#?\s*(\d{1,2}|` + numberWord + `)\b`)
	hashRe        = regexp.MustCompile(`#\s*(\d{1,2})\b`)
	bareNumberRe  = regexp.MustCompile(`^\W*(\d{1,2}|` + numberWord + `)\W*$`)
	ordinalWords  = `first|second|third|fourth|fifth|sixth|seventh|eighth|ninth|tenth`
	ordinalWordRe = regexp.MustCompile(`\b(` + ordinalWords + `)\b`)
	anchoredRe    = regexp.MustCompile(`\b(` + ordinalWords + `)\s+(?:one|option|slot|choice)\b`)
	lastOptionRe  = regexp.MustCompile(`\blast\s+(?:one|option|slot|choice)\b`)
	ordinalNumRe  = regexp.MustCompile(`\b(\d{1,2})(?:st|nd|rd|th)\s+(?:one|option|slot)\b`)
	lastRe        = regexp.MustCompile(`\b(?:the\s+)?last(?:\s+(?:one|option|slot))?\b`)
)

var ordinals = map[string]int{
	"one": 1, "two": 2, "three": 3, "four": 4, "five": 5,
	"six": 6, "seven": 7, "eight": 8, "nine": 9, "ten": 10,
	"first": 1, "second": 2, "third": 3, "fourth": 4, "fifth": 5,
	"sixth": 6, "seventh": 7, "eighth": 8, "ninth": 9, "tenth": 10,
}

// Classify maps text to an intent given the current session. It has no side
// effects and depends only on its arguments.
func Classify(text string, sess schedule.Session) Intent {
	normalized := timeexpr.Normalize(strings.TrimSpace(text))
	tok := timeexpr.Scan(normalized)
	in := Intent{Kind: Unknown, Tokens: tok}

	if sess.State.IsTerminal() || !sess.State.Known() {
		return in
	}

	if isCancel(normalized) || (negativeRe.MatchString(normalized) && !tok.HasTime()) {
		in.Kind = Cancel
		return in
	}

	switch sess.State {
	case schedule.StateConfirming:
		if affirmativeRe.MatchString(normalized) && !tok.HasTime() {
			in.Kind = Confirm
			return in
		}
		if alternativeRe.MatchString(normalized) {
			in.Kind = QueryAvailability
			return in
		}

	case schedule.StatePresentingOptions:
		if n, ok := ordinal(normalized, len(sess.Slots), tok.HasTime()); ok {
			in.Kind = SelectSlot
			in.Ordinal = n
			return in
		}

		switch matches := matchRestatedTime(tok, sess.Slots); len(matches) {
		case 0:
		case 1:
			in.Kind = SelectSlot
			in.Ordinal = matches[0] + 1
			return in
		default:
			// the restated time fits more than one offered slot
			return in
		}

		if len(sess.Slots) == 1 && affirmativeRe.MatchString(normalized) && !tok.HasTime() {
			in.Kind = SelectSlot
			in.Ordinal = 1
			return in
		}
	}

	if tok.HasTime() || cueRe.MatchString(normalized) {
		in.Kind = QueryAvailability
	}
	return in
}

// isCancel reports a cancel phrase that is not negated ("don't stop").
func isCancel(text string) bool {
	for _, loc := range cancelRe.FindAllStringIndex(text, -1) {
		if !negationRe.MatchString(text[:loc[0]]) {
			return true
		}
	}
	return false
}

// ordinal extracts an explicit option reference. "last" needs the number of
// offered slots to resolve. A bare ordinal word next to a time expression
// ("first thing next week") is part of a new request, not a selection.
func ordinal(text string, offered int, hasTime bool) (int, bool) {
	for _, re := range []*regexp.Regexp{optionRe, hashRe, bareNumberRe, ordinalNumRe, anchoredRe} {
		if m := re.FindStringSubmatch(text); m != nil {
			return parseOrdinal(m[1])
		}
	}
	if offered > 0 && lastOptionRe.MatchString(text) {
		return offered, true
	}
	if hasTime {
		return 0, false
	}
	if m := ordinalWordRe.FindStringSubmatch(text); m != nil {
		return ordinals[m[1]], true
	}
	if offered > 0 && lastRe.MatchString(text) {
		return offered, true
	}
	return 0, false
}

func parseOrdinal(s string) (int, bool) {
	if n, ok := ordinals[s]; ok {
		return n, true
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}

// matchRestatedTime returns the indexes of offered slots starting at the
// clock time named in tok, narrowed by any weekday or date also named
func matchRestatedTime(tok timeexpr.Tokens, slots []schedule.Slot) []int {
	hour, minute, ok := tok.StartClock()
	if !ok {
		return nil
	}

	var matches []int
	for i, slot := range slots {
		start := slot.Range.Start
		if start.Hour() != hour || start.Minute() != minute {
			continue
		}
		if !matchesDays(tok.Days, start) {
			continue
		}
		matches = append(matches, i)
	}
	return matches
}

func matchesDays(days []timeexpr.DayRef, t time.Time) bool {
	for _, d := range days {
		switch d.Kind {
		case timeexpr.DayWeekday:
			if t.Weekday() != d.Weekday {
				return false
			}
		case timeexpr.DayDate:
			if t.Month() != d.Month || t.Day() != d.Day {
				return false
			}
		case timeexpr.DayOfMonth:
			if t.Day() != d.Day {
				return false
			}
		}
	}
	return true
}
