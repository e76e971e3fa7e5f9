package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/tailortalk/internal/schedule"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func testSession(id string) schedule.Session {
	now := time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)
	sess := schedule.NewSession(id, now)
	sess.State = schedule.StatePresentingOptions
	sess.Slots = []schedule.Slot{
		schedule.NewSlot(schedule.TimeRange{Start: now.Add(5 * time.Hour), End: now.Add(6 * time.Hour)}),
	}
	return sess
}

func TestMemoryStore_GetSaveDelete(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	_, ok, err := store.Get(ctx, "a")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Save(ctx, testSession("a")))
	got, ok, err := store.Get(ctx, "a")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, schedule.StatePresentingOptions, got.State)
	assert.Len(t, got.Slots, 1)

	require.NoError(t, store.Delete(ctx, "a"))
	require.NoError(t, store.Delete(ctx, "a"))
	_, ok, _ = store.Get(ctx, "a")
	assert.False(t, ok)
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	sess := testSession("a")
	require.NoError(t, store.Save(ctx, sess))

	// mutating the saved value must not leak into the store
	sess.Slots[0].Label = "changed"

	got, _, _ := store.Get(ctx, "a")
	got.Slots[0].Label = "changed again"
	got.State = schedule.StateCancelled

	again, _, _ := store.Get(ctx, "a")
	assert.NotEqual(t, "changed", again.Slots[0].Label)
	assert.NotEqual(t, "changed again", again.Slots[0].Label)
	assert.Equal(t, schedule.StatePresentingOptions, again.State)
}

func TestMemoryStore_TTL(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)}
	store := NewMemoryStore(WithTTL(time.Hour), WithClock(clock.Now))

	require.NoError(t, store.Save(ctx, testSession("idle")))
	require.NoError(t, store.Save(ctx, testSession("active")))

	clock.Advance(40 * time.Minute)
	_, ok, _ := store.Get(ctx, "active")
	require.True(t, ok)

	clock.Advance(40 * time.Minute)
	_, ok, _ = store.Get(ctx, "idle")
	assert.False(t, ok, "idle session should have expired")

	assert.Equal(t, 1, store.Sweep(ctx))
	assert.Equal(t, 1, store.Len())
}

func TestMemoryStore_StartStop(t *testing.T) {
	store := NewMemoryStore(WithTTL(time.Minute), WithCleanupInterval(time.Millisecond))
	store.Start()
	store.Stop()
	store.Stop()

	NewMemoryStore().Start()
}

func TestMemoryStore_Concurrent(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := string(rune('a' + i))
			_ = store.Save(ctx, testSession(id))
			_, _, _ = store.Get(ctx, id)
			if i%2 == 0 {
				_ = store.Delete(ctx, id)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 10, store.Len())
}

func TestMemoryStore_Clear(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	n, err := store.Clear(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, store.Save(ctx, testSession(id)))
	}
	n, err = store.Clear(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Zero(t, store.Len())

	_, ok, _ := store.Get(ctx, "b")
	assert.False(t, ok)
}
