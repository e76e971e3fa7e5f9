package session

import (
	"context"

	"github.com/teemow/tailortalk/internal/schedule"
)

// Store persists sessions by ID.
type Store interface {
	// Get returns the session and whether it exists
	Get(ctx context.Context, id string) (schedule.Session, bool, error)
	Save(ctx context.Context, sess schedule.Session) error
	// Delete removes a session; unknown IDs are ignored
	Delete(ctx context.Context, id string) error
	// Clear removes every session and returns how many were removed
	Clear(ctx context.Context) (int, error)
}

// Locker is implemented by stores shared between processes. Lock blocks
// until the session is held by the caller or ctx is done.
type Locker interface {
	Lock(ctx context.Context, id string) (unlock func(), err error)
}
