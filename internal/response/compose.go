package response

import (
	"fmt"
	"strings"
	"time"

	"github.com/teemow/tailortalk/internal/schedule"
)

const helpText = "Hello! I can help you book an appointment. Tell me when you'd like to meet, " +
	"for example \"a call tomorrow afternoon\" or \"30 minutes next friday at 3pm\"."

// Compose renders payload for a session in state
func Compose(state schedule.State, payload Payload) string {
	switch p := payload.(type) {
	case Help:
		return helpText

	case Clarify:
		return composeClarify(p)

	case SlotList:
		return composeSlotList(p)

	case NoAvailability:
		return fmt.Sprintf("I couldn't find any free time %s. Would you like to try another day or time?", describeWindow(p.Window))

	case ConfirmPrompt:
		return composeConfirm(p.Slot)

	case Booked:
		msg := fmt.Sprintf("Done! Your appointment is booked for %s.", p.Slot.Label)
		if p.EventID != "" {
			msg += fmt.Sprintf(" (event ID: %s)", p.EventID)
		}
		return msg

	case Cancelled:
		return "Okay, I've cancelled this booking request. Start a new conversation whenever you want to schedule something."

	case BookingFailed:
		switch p.Kind {
		case FailureConflict:
			return fmt.Sprintf("Sorry, %s was just taken. Suggest another time, or say \"cancel\" to stop.", p.Slot.Label)
		case FailureTimeout:
			return fmt.Sprintf("The calendar took too long to answer, so I can't tell yet whether %s was booked. Say \"yes\" to try again safely, or \"cancel\" to stop.", p.Slot.Label)
		default:
			return fmt.Sprintf("I couldn't reach the calendar to book %s. Say \"yes\" to try again, or \"cancel\" to stop.", p.Slot.Label)
		}

	case AvailabilityFailed:
		if p.Kind == FailureTimeout {
			return "The calendar took too long to answer. Please ask again in a moment."
		}
		return "I couldn't reach the calendar right now. Please ask again in a moment."

	case SessionEnded:
		return fmt.Sprintf("This conversation has ended (%s). Please start a new session to book another appointment.", strings.ToLower(state.String()))

	case Failure:
		return "Something went wrong on my side and this conversation had to end. Please start a new session."
	}

	return helpText
}

func composeClarify(p Clarify) string {
	var b strings.Builder

	switch p.Reason {
	case ClarifyAmbiguous:
		b.WriteString("Did you mean ")
		for i, c := range p.Candidates {
			switch {
			case i == 0:
			case i == len(p.Candidates)-1:
				b.WriteString(" or ")
			default:
				b.WriteString(", ")
			}
			b.WriteString(describeCandidate(c))
		}
		b.WriteString("?")

	case ClarifyUnresolvable:
		if p.Detail != "" {
			fmt.Fprintf(&b, "I couldn't use that time: %s.", p.Detail)
		} else {
			b.WriteString("I couldn't work out a time from that.")
		}
		b.WriteString(" When would you like to meet? For example \"tomorrow at 3pm\" or \"friday afternoon\".")

	case ClarifyInvalidOption:
		fmt.Fprintf(&b, "There is no option %d. Please pick a number between 1 and %d.", p.Ordinal, len(p.Slots))

	case ClarifyConfirmation:
		if p.Selected != nil {
			fmt.Fprintf(&b, "Should I book %s? Please answer \"yes\" or \"no\".", p.Selected.Label)
		} else {
			b.WriteString("Please answer \"yes\" or \"no\".")
		}

	default:
		if len(p.Slots) > 0 {
			b.WriteString("Sorry, I didn't catch which option you want.")
		} else {
			b.WriteString("Sorry, I didn't understand. When would you like to meet?")
		}
	}

	if len(p.Slots) > 0 && p.Reason != ClarifyConfirmation {
		b.WriteString("\n")
		writeSlots(&b, p.Slots)
	}
	return b.String()
}

func composeSlotList(p SlotList) string {
	var b strings.Builder

	switch p.Match {
	case MatchExact:
		b.WriteString("Good news, that time is free:")
	case MatchAlternatives:
		b.WriteString("That time isn't available, but these are open:")
	default:
		b.WriteString("Here are the available times:")
	}
	b.WriteString("\n")
	writeSlots(&b, p.Slots)

	if len(p.Slots) == 1 {
		b.WriteString("\nShould I take it? Say \"option 1\" or \"yes\".")
	} else {
		b.WriteString("\nWhich one works for you? Say for example \"option 1\".")
	}
	return b.String()
}

func composeConfirm(slot schedule.Slot) string {
	start := slot.Range.Start
	return fmt.Sprintf("Please confirm: %s, %s-%s (%s, %s). Shall I book it?",
		schedule.FormatDay(start),
		schedule.FormatClock(start),
		schedule.FormatClock(slot.Range.End.In(start.Location())),
		schedule.FormatDuration(slot.Range.Duration()),
		start.Format("MST"),
	)
}

func writeSlots(b *strings.Builder, slots []schedule.Slot) {
	for i, s := range slots {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(b, "Option %d: %s", i+1, s.Label)
	}
}

func describeCandidate(r schedule.TimeRange) string {
	if first, last, ok := wholeDays(r); ok {
		if first == last {
			return first
		}
		return first + " to " + last
	}
	return schedule.FormatRange(r)
}

func describeWindow(r schedule.TimeRange) string {
	if r.Start.IsZero() {
		return "for that time"
	}
	if first, last, ok := wholeDays(r); ok {
		if first == last {
			return "on " + first
		}
		return "between " + first + " and " + last
	}
	return "for " + schedule.FormatRange(r)
}

// wholeDays reports whether r ends at midnight and returns the first and
// last day it covers
func wholeDays(r schedule.TimeRange) (string, string, bool) {
	end := r.End.In(r.Start.Location())
	if end.Hour() != 0 || end.Minute() != 0 {
		return "", "", false
	}
	return schedule.FormatDay(r.Start), schedule.FormatDay(end.Add(-time.Minute)), true
}
