package schedule

import (
	"encoding/json"
	"fmt"
	"time"
)

// State is the conversation state of a booking session
type State int

const (
	StateInitial State = iota
	StateGatheringInfo
	StatePresentingOptions
	StateConfirming
	StateBooked
	StateCancelled
	StateError
)

var stateNames = map[State]string{
	StateInitial:           "INITIAL",
	StateGatheringInfo:     "GATHERING_INFO",
	StatePresentingOptions: "PRESENTING_OPTIONS",
	StateConfirming:        "CONFIRMING",
	StateBooked:            "BOOKED",
	StateCancelled:         "CANCELLED",
	StateError:             "ERROR",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Known reports whether s is one of the defined states
func (s State) Known() bool {
	_, ok := stateNames[s]
	return ok
}

// IsTerminal reports whether the session can no longer transition
func (s State) IsTerminal() bool {
	return s == StateBooked || s == StateCancelled || s == StateError
}

// ParseState is the inverse of String
func ParseState(name string) (State, error) {
	for s, n := range stateNames {
		if n == name {
			return s, nil
		}
	}
	return 0, fmt.Errorf("unknown state %q", name)
}

func (s State) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *State) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	parsed, err := ParseState(name)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Query is the last resolved availability request of a session
type Query struct {
	Window   TimeRange     `json:"window"`
	Duration time.Duration `json:"duration"`
	// Pinned is set when the user named an explicit start time
	Pinned bool `json:"pinned,omitempty"`
}

// Session is the per-conversation state. It is a plain value: callers get
// copies from the store and hand back modified copies.
type Session struct {
	ID        string    `json:"id"`
	State     State     `json:"state"`
	Query     *Query    `json:"query,omitempty"`
	Slots     []Slot    `json:"slots,omitempty"`
	Selected  *Slot     `json:"selected,omitempty"`
	EventID   string    `json:"event_id,omitempty"`
	Turns     int       `json:"turns"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewSession returns a session in the initial state
func NewSession(id string, now time.Time) Session {
	return Session{
		ID:        id,
		State:     StateInitial,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Clone returns a deep copy
func (s Session) Clone() Session {
	out := s
	if s.Query != nil {
		q := *s.Query
		out.Query = &q
	}
	if s.Slots != nil {
		out.Slots = make([]Slot, len(s.Slots))
		copy(out.Slots, s.Slots)
	}
	if s.Selected != nil {
		sel := *s.Selected
		out.Selected = &sel
	}
	return out
}

// ClearSearch drops everything gathered while filling the request
func (s *Session) ClearSearch() {
	s.Query = nil
	s.Slots = nil
	s.Selected = nil
}

// SlotIndex returns the position of slot in the offered list, or -1
func (s Session) SlotIndex(slot Slot) int {
	for i, offered := range s.Slots {
		if offered.Range.Equal(slot.Range) {
			return i
		}
	}
	return -1
}
