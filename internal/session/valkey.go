package session

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/valkey-io/valkey-go"

	"github.com/teemow/tailortalk/internal/schedule"
)

// DefaultKeyPrefix is prepended to every session key.
const DefaultKeyPrefix = "tailortalk:session:"

// DefaultLockTTL bounds how long a crashed holder can block a session.
const DefaultLockTTL = 30 * time.Second

const (
	lockRetryInterval = 25 * time.Millisecond
	scanBatch         = 200
)

// ErrLockTimeout is returned when another process holds a session for
// longer than the lock TTL.
var ErrLockTimeout = errors.New("timed out waiting for session lock")

// releaseLock deletes the lock only if it still carries the caller's token,
// so a holder whose lock expired cannot release its successor's.
var releaseLock = valkey.NewLuaScript(`if redis.call("GET", KEYS[1]) == ARGV[1] then return redis.call("DEL", KEYS[1]) end return 0`)

// ValkeyConfig configures the Valkey backend.
type ValkeyConfig struct {
	// URL is the server address, e.g. "valkey.namespace.svc:6379"
	URL        string
	Password   string
	TLSEnabled bool
	KeyPrefix  string
	DB         int
	// TTL is refreshed on every save; zero keeps keys forever
	TTL time.Duration
	// LockTTL is the expiry of per-session turn locks
	LockTTL time.Duration
}

// ValkeyStore keeps sessions in Valkey as JSON documents.
type ValkeyStore struct {
	client  valkey.Client
	prefix  string
	ttl     time.Duration
	lockTTL time.Duration
}

// NewValkeyStore connects to Valkey.
func NewValkeyStore(cfg ValkeyConfig) (*ValkeyStore, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("valkey URL is required")
	}

	opt := valkey.ClientOption{
		InitAddress: []string{cfg.URL},
		Password:    cfg.Password,
		SelectDB:    cfg.DB,
	}
	if cfg.TLSEnabled {
		opt.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	client, err := valkey.NewClient(opt)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to valkey: %w", err)
	}
	store := NewValkeyStoreWithClient(client, cfg.KeyPrefix, cfg.TTL)
	if cfg.LockTTL > 0 {
		store.lockTTL = cfg.LockTTL
	}
	return store, nil
}

// NewValkeyStoreWithClient wraps an existing client.
func NewValkeyStoreWithClient(client valkey.Client, prefix string, ttl time.Duration) *ValkeyStore {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &ValkeyStore{client: client, prefix: prefix, ttl: ttl, lockTTL: DefaultLockTTL}
}

func (s *ValkeyStore) key(id string) string {
	return s.prefix + id
}

// lockKey lives outside the session prefix so Clear leaves held locks alone.
func (s *ValkeyStore) lockKey(id string) string {
	return "lock:" + s.prefix + id
}

// Get implements Store.
func (s *ValkeyStore) Get(ctx context.Context, id string) (schedule.Session, bool, error) {
	data, err := s.client.Do(ctx, s.client.B().Get().Key(s.key(id)).Build()).AsBytes()
	if valkey.IsValkeyNil(err) {
		return schedule.Session{}, false, nil
	}
	if err != nil {
		return schedule.Session{}, false, fmt.Errorf("failed to read session: %w", err)
	}
	return decodeSession(data)
}

// Save implements Store.
func (s *ValkeyStore) Save(ctx context.Context, sess schedule.Session) error {
	data, err := encodeSession(sess)
	if err != nil {
		return err
	}

	set := s.client.B().Set().Key(s.key(sess.ID)).Value(valkey.BinaryString(data))
	var cmd valkey.Completed
	if secs := int64(s.ttl / time.Second); secs > 0 {
		cmd = set.ExSeconds(secs).Build()
	} else {
		cmd = set.Build()
	}

	if err := s.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("failed to write session: %w", err)
	}
	return nil
}

// Delete implements Store.
func (s *ValkeyStore) Delete(ctx context.Context, id string) error {
	if err := s.client.Do(ctx, s.client.B().Del().Key(s.key(id)).Build()).Error(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// Clear implements Store. It scans the key prefix, so sessions saved while
// it runs may survive.
func (s *ValkeyStore) Clear(ctx context.Context) (int, error) {
	var (
		cursor  uint64
		removed int64
	)
	for {
		entry, err := s.client.Do(ctx, s.client.B().Scan().Cursor(cursor).Match(s.prefix+"*").Count(scanBatch).Build()).AsScanEntry()
		if err != nil {
			return int(removed), fmt.Errorf("failed to scan sessions: %w", err)
		}
		if len(entry.Elements) > 0 {
			n, err := s.client.Do(ctx, s.client.B().Del().Key(entry.Elements...).Build()).AsInt64()
			if err != nil {
				return int(removed), fmt.Errorf("failed to delete sessions: %w", err)
			}
			removed += n
		}
		if entry.Cursor == 0 {
			return int(removed), nil
		}
		cursor = entry.Cursor
	}
}

// Lock implements Locker with SET NX PX. The lock expires after the lock TTL
// even if unlock is never called.
func (s *ValkeyStore) Lock(ctx context.Context, id string) (func(), error) {
	key := s.lockKey(id)
	token := uuid.NewString()

	deadline := time.Now().Add(s.lockTTL)
	for {
		// built per attempt: completed commands are recycled after Do
		cmd := s.client.B().Set().Key(key).Value(token).Nx().PxMilliseconds(s.lockTTL.Milliseconds()).Build()
		err := s.client.Do(ctx, cmd).Error()
		if err == nil {
			break
		}
		if !valkey.IsValkeyNil(err) {
			return nil, fmt.Errorf("failed to lock session: %w", err)
		}
		if time.Now().After(deadline) {
			return nil, ErrLockTimeout
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(lockRetryInterval):
		}
	}

	return func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		// a failed release is cleaned up by the lock TTL
		_ = releaseLock.Exec(releaseCtx, s.client, []string{key}, []string{token}).Error()
	}, nil
}

// Ping checks connectivity.
func (s *ValkeyStore) Ping(ctx context.Context) error {
	return s.client.Do(ctx, s.client.B().Ping().Build()).Error()
}

// Close closes the client.
func (s *ValkeyStore) Close() {
	s.client.Close()
}

func encodeSession(sess schedule.Session) ([]byte, error) {
	data, err := json.Marshal(sess)
	if err != nil {
		return nil, fmt.Errorf("failed to encode session: %w", err)
	}
	return data, nil
}

func decodeSession(data []byte) (schedule.Session, bool, error) {
	var sess schedule.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return schedule.Session{}, false, fmt.Errorf("failed to decode session: %w", err)
	}
	return sess, true, nil
}
