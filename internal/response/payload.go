package response

import (
	"time"

	"github.com/teemow/tailortalk/internal/schedule"
)

// Payload is the structured content of a reply
type Payload interface {
	payload()
}

// Help greets the user and explains what can be asked
type Help struct{}

// ClarifyReason says what the user needs to clarify
type ClarifyReason int

const (
	// ClarifyUnknown means the message was not understood
	ClarifyUnknown ClarifyReason = iota
	// ClarifyAmbiguous means the time matched several candidates
	ClarifyAmbiguous
	// ClarifyUnresolvable means no usable time was found
	ClarifyUnresolvable
	// ClarifyInvalidOption means the picked option does not exist
	ClarifyInvalidOption
	// ClarifyConfirmation means a yes or no is expected
	ClarifyConfirmation
)

// Clarify asks the user to restate something
type Clarify struct {
	Reason     ClarifyReason
	Detail     string
	Candidates []schedule.TimeRange
	Ordinal    int
	// Slots are the options still on offer, listed again after the question
	Slots    []schedule.Slot
	Selected *schedule.Slot
}

// Match describes how the offered slots relate to the request
type Match int

const (
	// MatchOptions lists slots inside the requested window
	MatchOptions Match = iota
	// MatchExact offers exactly the requested time
	MatchExact
	// MatchAlternatives offers other times because the requested one is taken
	MatchAlternatives
)

// SlotList presents slots to choose from
type SlotList struct {
	Slots    []schedule.Slot
	Match    Match
	Duration time.Duration
}

// NoAvailability reports an empty search
type NoAvailability struct {
	Window schedule.TimeRange
}

// ConfirmPrompt asks the user to confirm the selected slot
type ConfirmPrompt struct {
	Slot schedule.Slot
}

// Booked reports a committed booking
type Booked struct {
	Slot    schedule.Slot
	EventID string
}

// Cancelled reports that the session was cancelled
type Cancelled struct{}

// FailureKind classifies calendar failures
type FailureKind int

const (
	FailureUnavailable FailureKind = iota
	FailureTimeout
	FailureConflict
)

func (k FailureKind) String() string {
	switch k {
	case FailureTimeout:
		return "timeout"
	case FailureConflict:
		return "conflict"
	}
	return "unavailable"
}

// BookingFailed reports a failed booking attempt; the selection is kept
type BookingFailed struct {
	Kind FailureKind
	Slot schedule.Slot
}

// AvailabilityFailed reports a failed availability lookup
type AvailabilityFailed struct {
	Kind FailureKind
}

// SessionEnded is returned for any message after a terminal state
type SessionEnded struct{}

// Failure reports an internal error that ended the session
type Failure struct{}

func (Help) payload()               {}
func (Clarify) payload()            {}
func (SlotList) payload()           {}
func (NoAvailability) payload()     {}
func (ConfirmPrompt) payload()      {}
func (Booked) payload()             {}
func (Cancelled) payload()          {}
func (BookingFailed) payload()      {}
func (AvailabilityFailed) payload() {}
func (SessionEnded) payload()       {}
func (Failure) payload()            {}
