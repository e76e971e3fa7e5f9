package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/teemow/tailortalk/internal/instrumentation"
	"github.com/teemow/tailortalk/internal/schedule"
)

// DefaultCleanupInterval is how often expired sessions are swept.
const DefaultCleanupInterval = 10 * time.Minute

type memoryEntry struct {
	session    schedule.Session
	lastAccess time.Time
}

// MemoryStore keeps sessions in memory. Sessions idle for longer than the
// TTL are dropped; a zero TTL keeps them forever.
type MemoryStore struct {
	sessions map[string]*memoryEntry
	mu       sync.RWMutex

	ttl             time.Duration
	cleanupInterval time.Duration
	cleanupDone     chan struct{}
	stopOnce        sync.Once

	metrics *instrumentation.Metrics
	logger  *slog.Logger
	now     func() time.Time
}

// MemoryOption configures a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithTTL sets the idle timeout.
func WithTTL(ttl time.Duration) MemoryOption {
	return func(s *MemoryStore) { s.ttl = ttl }
}

// WithCleanupInterval sets how often the sweeper runs.
func WithCleanupInterval(d time.Duration) MemoryOption {
	return func(s *MemoryStore) {
		if d > 0 {
			s.cleanupInterval = d
		}
	}
}

// WithMetrics reports the number of stored sessions to metrics.
func WithMetrics(m *instrumentation.Metrics) MemoryOption {
	return func(s *MemoryStore) { s.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) MemoryOption {
	return func(s *MemoryStore) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) {
		if now != nil {
			s.now = now
		}
	}
}

// NewMemoryStore creates an in-memory store. Call Start to run the sweeper.
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		sessions:        make(map[string]*memoryEntry),
		cleanupInterval: DefaultCleanupInterval,
		cleanupDone:     make(chan struct{}),
		logger:          slog.Default(),
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, id string) (schedule.Session, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.sessions[id]
	if !ok || s.expired(e) {
		return schedule.Session{}, false, nil
	}
	e.lastAccess = s.now()
	return e.session.Clone(), true, nil
}

// Save implements Store.
func (s *MemoryStore) Save(ctx context.Context, sess schedule.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[sess.ID]; !ok {
		s.metrics.IncrementActiveSessions(ctx)
	}
	s.sessions[sess.ID] = &memoryEntry{
		session:    sess.Clone(),
		lastAccess: s.now(),
	}
	return nil
}

// Delete implements Store.
func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[id]; ok {
		delete(s.sessions, id)
		s.metrics.DecrementActiveSessions(ctx)
	}
	return nil
}

// Clear implements Store.
func (s *MemoryStore) Clear(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.sessions)
	for range n {
		s.metrics.DecrementActiveSessions(ctx)
	}
	s.sessions = make(map[string]*memoryEntry)
	return n, nil
}

// Len returns the number of stored sessions, including expired ones not yet swept.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Sweep removes expired sessions and returns how many were removed.
func (s *MemoryStore) Sweep(ctx context.Context) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, e := range s.sessions {
		if s.expired(e) {
			delete(s.sessions, id)
			s.metrics.DecrementActiveSessions(ctx)
			removed++
		}
	}
	return removed
}

func (s *MemoryStore) expired(e *memoryEntry) bool {
	return s.ttl > 0 && s.now().Sub(e.lastAccess) > s.ttl
}

// Start runs the expiry sweeper until Stop is called. It does nothing
// without a TTL.
func (s *MemoryStore) Start() {
	if s.ttl <= 0 {
		return
	}
	go s.cleanupExpiredSessions()
}

func (s *MemoryStore) cleanupExpiredSessions() {
	ticker := time.NewTicker(s.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := s.Sweep(context.Background()); n > 0 {
				s.logger.Info("cleaned up expired sessions", "count", n)
			}
		case <-s.cleanupDone:
			return
		}
	}
}

// Stop stops the sweeper. It is safe to call more than once.
func (s *MemoryStore) Stop() {
	s.stopOnce.Do(func() { close(s.cleanupDone) })
}
