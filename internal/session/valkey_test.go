package session

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/tailortalk/internal/schedule"
)

func TestSessionEncoding(t *testing.T) {
	sess := testSession("enc")
	sel := sess.Slots[0]
	sess.Selected = &sel
	sess.State = schedule.StateConfirming
	sess.Query = &schedule.Query{Window: sel.Range, Duration: time.Hour, Pinned: true}

	data, err := encodeSession(sess)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"state":"CONFIRMING"`)

	got, ok, err := decodeSession(data)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, schedule.StateConfirming, got.State)
	assert.True(t, got.Selected.Range.Equal(sel.Range))
	assert.Equal(t, 0, got.SlotIndex(*got.Selected))
	assert.Equal(t, time.Hour, got.Query.Duration)

	_, _, err = decodeSession([]byte(`{"state":"SLEEPING"}`))
	assert.Error(t, err)
}

func TestNewValkeyStore_RequiresURL(t *testing.T) {
	_, err := NewValkeyStore(ValkeyConfig{})
	assert.Error(t, err)
}

// TestValkeyStore runs against a real server when TAILORTALK_TEST_VALKEY_URL is set.
func TestValkeyStore(t *testing.T) {
	url := os.Getenv("TAILORTALK_TEST_VALKEY_URL")
	if url == "" {
		t.Skip("TAILORTALK_TEST_VALKEY_URL not set")
	}

	ctx := context.Background()
	store, err := NewValkeyStore(ValkeyConfig{URL: url, KeyPrefix: "tailortalk:test:", TTL: time.Minute})
	require.NoError(t, err)
	defer store.Close()
	require.NoError(t, store.Ping(ctx))

	id := uuid.NewString()
	_, ok, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Save(ctx, testSession(id)))
	got, ok, err := store.Get(ctx, id)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, id, got.ID)

	require.NoError(t, store.Delete(ctx, id))
	_, ok, err = store.Get(ctx, id)
	require.NoError(t, err)
	assert.False(t, ok)

	t.Run("clear", func(t *testing.T) {
		prefix := "tailortalk:test:" + uuid.NewString() + ":"
		scoped := NewValkeyStoreWithClient(store.client, prefix, time.Minute)
		for i := 0; i < 3; i++ {
			require.NoError(t, scoped.Save(ctx, testSession(uuid.NewString())))
		}
		n, err := scoped.Clear(ctx)
		require.NoError(t, err)
		assert.Equal(t, 3, n)
	})

	t.Run("lock", func(t *testing.T) {
		locker := NewValkeyStoreWithClient(store.client, "tailortalk:test:", time.Minute)
		locker.lockTTL = 200 * time.Millisecond
		id := uuid.NewString()

		unlock, err := locker.Lock(ctx, id)
		require.NoError(t, err)

		// a second replica waits for the holder
		waitCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
		defer cancel()
		_, err = locker.Lock(waitCtx, id)
		assert.ErrorIs(t, err, context.DeadlineExceeded)

		unlock()
		unlock2, err := locker.Lock(ctx, id)
		require.NoError(t, err)
		unlock2()
	})
}

func TestValkeyStore_LockKeyOutsideSessionPrefix(t *testing.T) {
	s := NewValkeyStoreWithClient(nil, "", 0)
	assert.Equal(t, "tailortalk:session:abc", s.key("abc"))
	assert.Equal(t, "lock:tailortalk:session:abc", s.lockKey("abc"))
	assert.False(t, strings.HasPrefix(s.lockKey("abc"), s.prefix))
	assert.Equal(t, DefaultLockTTL, s.lockTTL)
}
