package response

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/teemow/tailortalk/internal/schedule"
)

func slotAt(day, hour int) schedule.Slot {
	start := time.Date(2025, 1, day, hour, 0, 0, 0, time.UTC)
	return schedule.NewSlot(schedule.TimeRange{Start: start, End: start.Add(time.Hour)})
}

func TestComposeSlotListOrder(t *testing.T) {
	slots := []schedule.Slot{slotAt(16, 15), slotAt(16, 16), slotAt(17, 9)}

	text := Compose(schedule.StatePresentingOptions, SlotList{Slots: slots})

	lines := strings.Split(text, "\n")
	assert.Equal(t, "Option 1: Thursday, January 16 3:00-4:00 PM", lines[1])
	assert.Equal(t, "Option 2: Thursday, January 16 4:00-5:00 PM", lines[2])
	assert.Equal(t, "Option 3: Friday, January 17 9:00-10:00 AM", lines[3])
}

func TestComposeExactMatch(t *testing.T) {
	text := Compose(schedule.StatePresentingOptions, SlotList{Slots: []schedule.Slot{slotAt(16, 15)}, Match: MatchExact})
	assert.Contains(t, text, "Option 1: Thursday, January 16 3:00-4:00 PM")
	assert.Contains(t, text, "that time is free")
}

func TestComposeConfirmPromptHasDetails(t *testing.T) {
	text := Compose(schedule.StateConfirming, ConfirmPrompt{Slot: slotAt(16, 15)})

	assert.Contains(t, text, "Thursday, January 16")
	assert.Contains(t, text, "3:00 PM-4:00 PM")
	assert.Contains(t, text, "1 hour")
	assert.Contains(t, text, "UTC")
}

func TestComposeClarify(t *testing.T) {
	friday := time.Date(2025, 1, 17, 0, 0, 0, 0, time.UTC)
	nextFriday := friday.AddDate(0, 0, 7)

	tests := []struct {
		name    string
		payload Clarify
		want    []string
	}{
		{
			name: "ambiguous days",
			payload: Clarify{Reason: ClarifyAmbiguous, Candidates: []schedule.TimeRange{
				{Start: friday, End: friday.AddDate(0, 0, 1)},
				{Start: nextFriday, End: nextFriday.AddDate(0, 0, 1)},
			}},
			want: []string{"Did you mean Friday, January 17 or Friday, January 24?"},
		},
		{
			name:    "unresolvable",
			payload: Clarify{Reason: ClarifyUnresolvable, Detail: "no date or time found"},
			want:    []string{"no date or time found", "When would you like to meet?"},
		},
		{
			name:    "invalid option keeps listing",
			payload: Clarify{Reason: ClarifyInvalidOption, Ordinal: 7, Slots: []schedule.Slot{slotAt(16, 15), slotAt(16, 16)}},
			want:    []string{"There is no option 7", "between 1 and 2", "Option 2: Thursday, January 16 4:00-5:00 PM"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text := Compose(schedule.StateGatheringInfo, tt.payload)
			for _, want := range tt.want {
				assert.Contains(t, text, want)
			}
		})
	}
}

func TestComposeNoAvailability(t *testing.T) {
	monday := time.Date(2025, 1, 20, 0, 0, 0, 0, time.UTC)

	text := Compose(schedule.StateGatheringInfo, NoAvailability{Window: schedule.TimeRange{Start: monday, End: monday.AddDate(0, 0, 5)}})
	assert.Contains(t, text, "between Monday, January 20 and Friday, January 24")

	text = Compose(schedule.StateGatheringInfo, NoAvailability{Window: schedule.TimeRange{Start: monday.Add(10 * time.Hour), End: monday.AddDate(0, 0, 1)}})
	assert.Contains(t, text, "on Monday, January 20")
}

func TestComposeTerminal(t *testing.T) {
	booked := Compose(schedule.StateBooked, Booked{Slot: slotAt(16, 15), EventID: "evt1"})
	assert.Contains(t, booked, "Thursday, January 16 3:00-4:00 PM")
	assert.Contains(t, booked, "evt1")

	ended := Compose(schedule.StateBooked, SessionEnded{})
	assert.Contains(t, ended, "new session")

	assert.Contains(t, Compose(schedule.StateCancelled, Cancelled{}), "cancelled")
}

func TestComposeFailures(t *testing.T) {
	slot := slotAt(16, 15)

	assert.Contains(t, Compose(schedule.StateConfirming, BookingFailed{Kind: FailureConflict, Slot: slot}), "was just taken")
	assert.Contains(t, Compose(schedule.StateConfirming, BookingFailed{Kind: FailureTimeout, Slot: slot}), "took too long")
	assert.Contains(t, Compose(schedule.StateConfirming, BookingFailed{Kind: FailureUnavailable, Slot: slot}), "couldn't reach")
	assert.Contains(t, Compose(schedule.StateGatheringInfo, AvailabilityFailed{Kind: FailureTimeout}), "took too long")
}
