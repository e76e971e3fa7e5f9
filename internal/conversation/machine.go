package conversation

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/teemow/tailortalk/internal/availability"
	"github.com/teemow/tailortalk/internal/intent"
	"github.com/teemow/tailortalk/internal/response"
	"github.com/teemow/tailortalk/internal/schedule"
	"github.com/teemow/tailortalk/internal/timeexpr"
)

// ErrInvariantViolation is returned when a stored session is inconsistent
// with its state. The session moves to ERROR.
var ErrInvariantViolation = errors.New("session invariant violated")

// Effect is the single calendar interaction a turn may need.
type Effect interface {
	effect()
}

// SearchEffect asks for the busy intervals of Fetch. The slots are then
// searched in Window.
type SearchEffect struct {
	Window    schedule.TimeRange
	Duration  time.Duration
	Precision timeexpr.Precision
	Pinned    bool
	Daily     *timeexpr.DailyRange

	// Fetch covers Window and, for pinned requests, the surrounding working
	// day that alternatives are drawn from
	Fetch schedule.TimeRange

	// Fallback is the working day searched when a pinned window is taken.
	// It is zero when there is none.
	Fallback schedule.TimeRange
}

// BookEffect submits a booking request.
type BookEffect struct {
	Request schedule.BookingRequest
}

func (SearchEffect) effect() {}
func (BookEffect) effect()   {}

// Plan is the outcome of Decide: the session to store, the effect to run and
// the reply payload. Payload is nil while an effect is pending.
type Plan struct {
	// Prev is the session the turn started from
	Prev    schedule.Session
	Session schedule.Session
	Intent  intent.Intent
	Effect  Effect
	Payload response.Payload
	Now     time.Time

	// Err is set when the turn hit an invariant violation
	Err error

	// unchanged marks turns that leave the stored session as it was
	unchanged bool
}

// Changed reports whether Session should be written back to the store.
func (p Plan) Changed() bool {
	return !p.unchanged
}

// Machine is the pure conversation state machine.
type Machine struct {
	cfg      Config
	resolver *timeexpr.Resolver
	engine   *availability.Engine
}

// NewMachine creates a Machine. Zero fields of cfg fall back to DefaultConfig.
func NewMachine(cfg Config) *Machine {
	def := DefaultConfig()
	if cfg.DefaultDuration <= 0 {
		cfg.DefaultDuration = def.DefaultDuration
	}
	if cfg.Granularity <= 0 {
		cfg.Granularity = def.Granularity
	}
	if cfg.MaxSlots <= 0 {
		cfg.MaxSlots = def.MaxSlots
	}
	if cfg.Location == nil {
		cfg.Location = def.Location
	}
	if cfg.Workday.Validate() != nil {
		cfg.Workday = def.Workday
	}
	if cfg.CalendarTimeout <= 0 {
		cfg.CalendarTimeout = def.CalendarTimeout
	}
	if cfg.EventSummary == "" {
		cfg.EventSummary = def.EventSummary
	}

	return &Machine{
		cfg: cfg,
		resolver: timeexpr.NewResolver(timeexpr.Options{
			Location:        cfg.Location,
			DefaultDuration: cfg.DefaultDuration,
			HorizonDays:     cfg.HorizonDays,
		}),
		engine: availability.NewEngine(cfg.Granularity),
	}
}

// Config returns the effective configuration.
func (m *Machine) Config() Config {
	return m.cfg
}

// Decide computes the next step for one turn. It has no side effects.
func (m *Machine) Decide(sess schedule.Session, in intent.Intent, now time.Time) Plan {
	plan := Plan{Prev: sess, Intent: in, Now: now}

	if sess.State.IsTerminal() {
		plan.Session = sess
		plan.Payload = response.SessionEnded{}
		plan.unchanged = true
		return plan
	}

	plan.Session = sess.Clone()
	plan.Session.Turns++
	plan.Session.UpdatedAt = now

	if err := CheckInvariants(sess); err != nil {
		plan.Session.State = schedule.StateError
		plan.Session.ClearSearch()
		plan.Payload = response.Failure{}
		plan.Err = err
		return plan
	}

	if in.Kind == intent.Cancel {
		plan.Session.State = schedule.StateCancelled
		plan.Session.ClearSearch()
		plan.Payload = response.Cancelled{}
		return plan
	}

	switch sess.State {
	case schedule.StateInitial, schedule.StateGatheringInfo:
		m.decideGathering(&plan)
	case schedule.StatePresentingOptions:
		m.decidePresenting(&plan)
	case schedule.StateConfirming:
		m.decideConfirming(&plan)
	}
	return plan
}

func (m *Machine) decideGathering(plan *Plan) {
	next := &plan.Session

	if plan.Intent.Kind == intent.QueryAvailability {
		if err := m.search(plan); err != nil {
			next.State = schedule.StateGatheringInfo
			plan.Payload = clarifyResolution(err)
		}
		return
	}

	if next.State == schedule.StateInitial {
		next.State = schedule.StateGatheringInfo
		plan.Payload = response.Help{}
		return
	}
	plan.Payload = response.Clarify{Reason: response.ClarifyUnknown}
}

func (m *Machine) decidePresenting(plan *Plan) {
	next := &plan.Session

	switch plan.Intent.Kind {
	case intent.SelectSlot:
		n := plan.Intent.Ordinal
		if n < 1 || n > len(next.Slots) {
			plan.Payload = response.Clarify{
				Reason:  response.ClarifyInvalidOption,
				Ordinal: n,
				Slots:   next.Slots,
			}
			return
		}
		selected := next.Slots[n-1]
		next.Selected = &selected
		next.State = schedule.StateConfirming
		plan.Payload = response.ConfirmPrompt{Slot: selected}

	case intent.QueryAvailability:
		if err := m.search(plan); err != nil {
			c := clarifyResolution(err)
			c.Slots = next.Slots
			plan.Payload = c
		}

	default:
		plan.Payload = response.Clarify{Reason: response.ClarifyUnknown, Slots: next.Slots}
	}
}

func (m *Machine) decideConfirming(plan *Plan) {
	next := &plan.Session

	switch plan.Intent.Kind {
	case intent.Confirm:
		plan.Effect = BookEffect{Request: m.bookingRequest(*next)}

	case intent.QueryAvailability:
		err := m.search(plan)
		if err == nil {
			return
		}
		var rerr *timeexpr.ResolutionError
		if errors.As(err, &rerr) && rerr.Kind == timeexpr.Unresolvable && rerr.Reason == timeexpr.ReasonNoTime {
			// "something else": offer the stored list again
			next.Selected = nil
			next.State = schedule.StatePresentingOptions
			plan.Payload = response.SlotList{Slots: next.Slots, Match: response.MatchOptions, Duration: queryDuration(next)}
			return
		}
		c := clarifyResolution(err)
		c.Selected = next.Selected
		plan.Payload = c

	default:
		plan.Payload = response.Clarify{Reason: response.ClarifyConfirmation, Selected: next.Selected}
	}
}

// search resolves the time expression of the turn and plans a search
func (m *Machine) search(plan *Plan) error {
	res, err := m.resolver.ResolveTokens(plan.Intent.Tokens, plan.Now)
	if err != nil {
		return err
	}

	eff := SearchEffect{
		Window:    res.Window,
		Duration:  res.Duration,
		Precision: res.Precision,
		Pinned:    res.Pinned,
		Daily:     res.Daily,
		Fetch:     res.Window,
	}

	if res.Pinned {
		day := m.cfg.Workday.Hours(res.Window.Start, m.cfg.Location)
		if day.Start.Before(plan.Now) {
			day.Start = plan.Now
		}
		if day.Valid() {
			eff.Fallback = day
			if day.Start.Before(eff.Fetch.Start) {
				eff.Fetch.Start = day.Start
			}
			if day.End.After(eff.Fetch.End) {
				eff.Fetch.End = day.End
			}
		}
	}

	plan.Effect = eff
	return nil
}

// CompleteSearch folds the busy intervals read for a SearchEffect into the
// plan. It panics if the plan has no SearchEffect.
func (m *Machine) CompleteSearch(plan Plan, busy []schedule.BusyInterval) Plan {
	eff := plan.Effect.(SearchEffect)
	loc := m.cfg.Location

	blocked := append([]schedule.BusyInterval(nil), busy...)
	switch {
	case eff.Daily != nil:
		blocked = append(blocked, availability.Outside(eff.Window, loc, eff.Daily.From, eff.Daily.To)...)
	case eff.Precision == timeexpr.PrecisionDay:
		blocked = append(blocked, m.cfg.Workday.OffHours(eff.Window, loc)...)
	}

	match := response.MatchOptions
	slots := m.engine.FindSlots(eff.Window, eff.Duration, blocked, m.cfg.MaxSlots)
	if eff.Pinned {
		switch {
		case len(slots) > 0 && slots[0].Range.Start.Equal(eff.Window.Start):
			// the requested start is free, so only that slot is offered
			slots = slots[:1]
			match = response.MatchExact
		case len(slots) == 0 && eff.Fallback.Valid():
			slots = m.engine.FindSlots(eff.Fallback, eff.Duration, busy, m.cfg.MaxSlots)
			match = response.MatchAlternatives
		}
	}

	next := &plan.Session
	next.Selected = nil
	if len(slots) == 0 {
		next.State = schedule.StateGatheringInfo
		next.ClearSearch()
		plan.Payload = response.NoAvailability{Window: eff.Window}
		return plan
	}

	next.State = schedule.StatePresentingOptions
	next.Slots = slots
	next.Query = &schedule.Query{Window: eff.Window, Duration: eff.Duration, Pinned: eff.Pinned}
	plan.Payload = response.SlotList{Slots: slots, Match: match, Duration: eff.Duration}
	return plan
}

// CompleteBooking folds the outcome of a BookEffect into the plan. A failed
// booking keeps the session in CONFIRMING with its selection.
func (m *Machine) CompleteBooking(plan Plan, eventID string, err error) Plan {
	next := &plan.Session
	slot := *next.Selected

	if err != nil {
		plan.Payload = response.BookingFailed{Kind: failureKind(err), Slot: slot}
		return plan
	}

	next.State = schedule.StateBooked
	next.EventID = eventID
	next.Slots = nil
	next.Query = nil
	plan.Payload = response.Booked{Slot: slot, EventID: eventID}
	return plan
}

// Fail turns a pending plan into a reply for a calendar failure that left
// the session untouched.
func (m *Machine) Fail(plan Plan, err error) Plan {
	plan.Session = plan.Prev
	plan.unchanged = true
	plan.Payload = response.AvailabilityFailed{Kind: failureKind(err)}
	return plan
}

func (m *Machine) bookingRequest(sess schedule.Session) schedule.BookingRequest {
	r := sess.Selected.Range
	return schedule.BookingRequest{
		Range:          r,
		Summary:        m.cfg.EventSummary,
		Description:    fmt.Sprintf("Booked by tailortalk: %s", schedule.FormatRange(r)),
		TimeZone:       m.cfg.Location.String(),
		IdempotencyKey: IdempotencyKey(sess.ID, r),
	}
}

// IdempotencyKey derives a stable booking key for a session and range.
// Retrying the same confirmation yields the same key.
func IdempotencyKey(sessionID string, r schedule.TimeRange) string {
	sum := sha256.Sum256([]byte(sessionID + "|" + r.Start.UTC().Format(time.RFC3339) + "|" + r.End.UTC().Format(time.RFC3339)))
	return hex.EncodeToString(sum[:])
}

// CheckInvariants reports whether sess is consistent with its state.
func CheckInvariants(sess schedule.Session) error {
	switch sess.State {
	case schedule.StateInitial, schedule.StateGatheringInfo, schedule.StateBooked, schedule.StateCancelled, schedule.StateError:
		return nil
	case schedule.StatePresentingOptions:
		if len(sess.Slots) == 0 {
			return fmt.Errorf("%w: %s without offered slots", ErrInvariantViolation, sess.State)
		}
		return nil
	case schedule.StateConfirming:
		if sess.Selected == nil {
			return fmt.Errorf("%w: %s without a selected slot", ErrInvariantViolation, sess.State)
		}
		if sess.SlotIndex(*sess.Selected) < 0 {
			return fmt.Errorf("%w: selected slot %s was never offered", ErrInvariantViolation, sess.Selected.Range)
		}
		return nil
	}
	return fmt.Errorf("%w: unknown state %s", ErrInvariantViolation, sess.State)
}

func clarifyResolution(err error) response.Clarify {
	var rerr *timeexpr.ResolutionError
	if !errors.As(err, &rerr) {
		return response.Clarify{Reason: response.ClarifyUnresolvable}
	}
	if rerr.Kind == timeexpr.Ambiguous {
		return response.Clarify{Reason: response.ClarifyAmbiguous, Candidates: rerr.Candidates}
	}
	c := response.Clarify{Reason: response.ClarifyUnresolvable}
	if rerr.Reason != timeexpr.ReasonNoTime {
		c.Detail = string(rerr.Reason)
	}
	return c
}

func failureKind(err error) response.FailureKind {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return response.FailureTimeout
	case errors.Is(err, schedule.ErrSlotConflict):
		return response.FailureConflict
	}
	return response.FailureUnavailable
}

func queryDuration(sess *schedule.Session) time.Duration {
	if sess.Query != nil {
		return sess.Query.Duration
	}
	if len(sess.Slots) > 0 {
		return sess.Slots[0].Range.Duration()
	}
	return 0
}
