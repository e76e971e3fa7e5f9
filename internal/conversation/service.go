package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/teemow/tailortalk/internal/calendar"
	"github.com/teemow/tailortalk/internal/instrumentation"
	"github.com/teemow/tailortalk/internal/intent"
	"github.com/teemow/tailortalk/internal/logging"
	"github.com/teemow/tailortalk/internal/response"
	"github.com/teemow/tailortalk/internal/schedule"
	"github.com/teemow/tailortalk/internal/session"
)

// Calendar is the calendar backend the service books against.
// Implementations must be safe for concurrent use.
type Calendar interface {
	GetBusy(ctx context.Context, window schedule.TimeRange) ([]schedule.BusyInterval, error)
	CreateEvent(ctx context.Context, req schedule.BookingRequest) (string, error)
}

// EventLister is implemented by calendars that can list their events.
type EventLister interface {
	ListEvents(ctx context.Context, q calendar.EventQuery) ([]calendar.Event, error)
}

// Reply is the result of one turn.
type Reply struct {
	SessionID string          `json:"session_id"`
	Previous  schedule.State  `json:"previous_state"`
	State     schedule.State  `json:"state"`
	Text      string          `json:"text"`
	Slots     []schedule.Slot `json:"slots,omitempty"`
	EventID   string          `json:"event_id,omitempty"`

	Payload response.Payload `json:"-"`
}

// Service runs conversation turns against a calendar and a session store.
type Service struct {
	machine  *Machine
	calendar Calendar
	store    session.Store

	logger  *slog.Logger
	metrics *instrumentation.Metrics
	audit   *instrumentation.AuditLogger
	now     func() time.Time

	locks keyedMutex
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(metrics *instrumentation.Metrics) Option {
	return func(s *Service) {
		s.metrics = metrics
	}
}

// WithAuditLogger sets the audit logger used for bookings.
func WithAuditLogger(audit *instrumentation.AuditLogger) Option {
	return func(s *Service) {
		s.audit = audit
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService creates a Service.
func NewService(cfg Config, cal Calendar, store session.Store, opts ...Option) *Service {
	s := &Service{
		machine:  NewMachine(cfg),
		calendar: cal,
		store:    store,
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Machine returns the state machine used by the service.
func (s *Service) Machine() *Machine {
	return s.machine
}

// HandleTurn processes one user message. An empty sessionID starts a new
// session with a generated ID.
//
// Turns of the same session are serialized. The returned error is non-nil
// only for store failures and invariant violations; calendar failures are
// reported in the reply.
func (s *Service) HandleTurn(ctx context.Context, sessionID, text string) (Reply, error) {
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	unlock, err := s.lock(ctx, sessionID)
	if err != nil {
		return Reply{SessionID: sessionID}, err
	}
	defer unlock()

	start := time.Now()
	ctx, span := instrumentation.StartTurnSpan(ctx, logging.AnonymizeSession(sessionID))
	defer span.End()

	logger := logging.WithSession(s.logger, sessionID)

	sess, found, err := s.store.Get(ctx, sessionID)
	if err != nil {
		instrumentation.SetSpanError(span, err)
		return Reply{SessionID: sessionID}, fmt.Errorf("failed to load session: %w", err)
	}
	now := s.now().In(s.machine.cfg.Location)
	if !found {
		sess = schedule.NewSession(sessionID, now)
	}

	in := intent.Classify(text, sess)
	plan := s.machine.Decide(sess, in, now)
	plan = s.execute(ctx, plan, logger)

	if plan.Changed() {
		if err := s.store.Save(ctx, plan.Session); err != nil {
			instrumentation.SetSpanError(span, err)
			return Reply{SessionID: sessionID, State: sess.State}, fmt.Errorf("failed to save session: %w", err)
		}
	}

	reply := newReply(plan)

	span.SetAttributes(instrumentation.NewSpanAttributeBuilder().
		WithIntent(in.Kind.String()).
		WithTransition(sess.State.String(), reply.State.String()).
		WithEventID(reply.EventID).
		Build()...)
	s.metrics.RecordTurn(ctx, in.Kind.String(), sess.State.String(), reply.State.String(), time.Since(start))

	if plan.Err != nil {
		instrumentation.SetSpanError(span, plan.Err)
		logger.Error("session ended in error", logging.Err(plan.Err))
		return reply, plan.Err
	}

	instrumentation.SetSpanSuccess(span)
	logger.Debug("turn handled",
		logging.Intent(in.Kind.String()),
		logging.Transition(sess.State.String(), reply.State.String()),
		slog.Duration(logging.KeyDuration, time.Since(start)),
	)
	return reply, nil
}

// execute runs the plan's effect, if any, and completes the plan
func (s *Service) execute(ctx context.Context, plan Plan, logger *slog.Logger) Plan {
	switch eff := plan.Effect.(type) {
	case SearchEffect:
		callCtx, cancel := context.WithTimeout(ctx, s.machine.cfg.CalendarTimeout)
		defer cancel()

		busy, err := s.calendar.GetBusy(callCtx, eff.Fetch)
		if err != nil {
			logger.Warn("availability lookup failed", logging.Operation(instrumentation.OperationGetBusy), logging.Err(err))
			return s.machine.Fail(plan, err)
		}
		plan = s.machine.CompleteSearch(plan, busy)
		s.metrics.RecordOfferedSlots(ctx, len(plan.Session.Slots))
		return plan

	case BookEffect:
		if plan.Prev.State != schedule.StateConfirming || plan.Intent.Kind != intent.Confirm || plan.Prev.Selected == nil {
			err := fmt.Errorf("%w: booking requested from %s", ErrInvariantViolation, plan.Prev.State)
			plan.Effect = nil
			plan.Session.State = schedule.StateError
			plan.Session.ClearSearch()
			plan.Payload = response.Failure{}
			plan.Err = err
			return plan
		}

		callCtx, cancel := context.WithTimeout(ctx, s.machine.cfg.CalendarTimeout)
		defer cancel()

		started := time.Now()
		eventID, err := s.calendar.CreateEvent(callCtx, eff.Request)
		result := instrumentation.ErrorResult(err)
		s.metrics.RecordBooking(ctx, result)
		s.audit.LogBooking(instrumentation.BookingRecord{
			SessionID: plan.Session.ID,
			Start:     eff.Request.Range.Start,
			End:       eff.Request.Range.End,
			EventID:   eventID,
			Result:    result,
			Duration:  time.Since(started),
			TraceID:   instrumentation.GetTraceID(ctx),
		})
		if err != nil {
			logger.Warn("booking failed", logging.Operation(instrumentation.OperationCreateEvent), logging.Status(result), logging.Err(err))
		} else {
			logger.Info("booking created", logging.EventID(eventID))
		}
		return s.machine.CompleteBooking(plan, eventID, err)
	}

	return plan
}

func newReply(plan Plan) Reply {
	sess := plan.Session
	reply := Reply{
		SessionID: sess.ID,
		Previous:  plan.Prev.State,
		State:     sess.State,
		Text:      response.Compose(sess.State, plan.Payload),
		EventID:   sess.EventID,
		Payload:   plan.Payload,
	}
	if sess.State == schedule.StatePresentingOptions {
		reply.Slots = sess.Slots
	}
	return reply
}

// lock serializes turns of one session in this process and, when the store
// is shared, across processes.
func (s *Service) lock(ctx context.Context, sessionID string) (func(), error) {
	unlock := s.locks.Lock(sessionID)

	locker, ok := s.store.(session.Locker)
	if !ok {
		return unlock, nil
	}
	release, err := locker.Lock(ctx, sessionID)
	if err != nil {
		unlock()
		return nil, fmt.Errorf("failed to lock session: %w", err)
	}
	return func() {
		release()
		unlock()
	}, nil
}

// Reset deletes a session. Deleting an unknown session is not an error.
func (s *Service) Reset(ctx context.Context, sessionID string) error {
	unlock, err := s.lock(ctx, sessionID)
	if err != nil {
		return err
	}
	defer unlock()

	if err := s.store.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// ResetAll deletes every stored session and returns how many were removed.
// Turns running concurrently may save their session again.
func (s *Service) ResetAll(ctx context.Context) (int, error) {
	n, err := s.store.Clear(ctx)
	if err != nil {
		return n, fmt.Errorf("failed to clear sessions: %w", err)
	}
	s.logger.Info("cleared all sessions", slog.Int("count", n))
	return n, nil
}

// ErrEventsUnsupported is returned by UpcomingEvents when the calendar
// cannot list events.
var ErrEventsUnsupported = errors.New("calendar does not support listing events")

// UpcomingEvents lists events that have not ended yet, optionally filtered
// by free text.
func (s *Service) UpcomingEvents(ctx context.Context, text string, maxResults int) ([]calendar.Event, error) {
	lister, ok := s.calendar.(EventLister)
	if !ok {
		return nil, ErrEventsUnsupported
	}

	callCtx, cancel := context.WithTimeout(ctx, s.machine.cfg.CalendarTimeout)
	defer cancel()

	events, err := lister.ListEvents(callCtx, calendar.EventQuery{From: s.now(), Text: text, Max: maxResults})
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	loc := s.machine.cfg.Location
	for i := range events {
		events[i].Start = events[i].Start.In(loc)
		events[i].End = events[i].End.In(loc)
	}
	return events, nil
}

// Session returns a copy of a stored session.
func (s *Service) Session(ctx context.Context, sessionID string) (schedule.Session, bool, error) {
	return s.store.Get(ctx, sessionID)
}

// ErrInvalidQuery is returned by FindSlots for unusable arguments.
var ErrInvalidQuery = errors.New("invalid availability query")

// FindSlots answers a direct availability query outside any conversation.
// Slots are returned in the configured time zone.
func (s *Service) FindSlots(ctx context.Context, window schedule.TimeRange, duration time.Duration, maxResults int) ([]schedule.Slot, error) {
	if !window.Valid() {
		return nil, fmt.Errorf("%w: %w", ErrInvalidQuery, schedule.ErrInvalidRange)
	}
	if duration <= 0 {
		return nil, fmt.Errorf("%w: duration must be positive", ErrInvalidQuery)
	}
	if maxResults <= 0 {
		maxResults = s.machine.cfg.MaxSlots
	}

	callCtx, cancel := context.WithTimeout(ctx, s.machine.cfg.CalendarTimeout)
	defer cancel()

	window = window.In(s.machine.cfg.Location)
	busy, err := s.calendar.GetBusy(callCtx, window)
	if err != nil {
		return nil, fmt.Errorf("failed to read availability: %w", err)
	}

	slots := s.machine.engine.FindSlots(window, duration, busy, maxResults)
	s.metrics.RecordOfferedSlots(ctx, len(slots))
	return slots, nil
}
