package cart

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	pkgerrors "github.com/smartdot/storefront-backend/pkg/errors"
)

type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestManager(t *testing.T, slot Slot, clock *manualClock) *Manager {
	t.Helper()
	m, err := NewManager(ManagerParams{
		Slot:    slot,
		IdleTTL: 10 * time.Minute,
		Clock:   clock.Now,
	})
	require.NoError(t, err)
	t.Cleanup(m.Close)
	return m
}

func TestNewManagerRequiresSlot(t *testing.T) {
	_, err := NewManager(ManagerParams{})
	require.Error(t, err)
}

func TestManagerAcquireSharesStorePerSession(t *testing.T) {
	ctx := context.Background()
	clock := &manualClock{now: fixedNow}
	m := newTestManager(t, NewMemorySlot(), clock)

	a, releaseA, err := m.Acquire(ctx, "sess-a")
	require.NoError(t, err)
	again, releaseAgain, err := m.Acquire(ctx, "sess-a")
	require.NoError(t, err)
	b, releaseB, err := m.Acquire(ctx, "sess-b")
	require.NoError(t, err)
	defer releaseA()
	defer releaseAgain()
	defer releaseB()

	require.Same(t, a, again)
	require.NotSame(t, a, b)
	require.Equal(t, 2, m.ActiveSessions())

	_, err = a.AddItem(ctx, lamp(), 1)
	require.NoError(t, err)
	require.True(t, again.IsInCart("p1"))
	require.False(t, b.IsInCart("p1"))
}

func TestManagerAcquireRejectsBlankSession(t *testing.T) {
	clock := &manualClock{now: fixedNow}
	m := newTestManager(t, NewMemorySlot(), clock)

	_, _, err := m.Acquire(context.Background(), "  ")
	require.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
}

func TestManagerEvictsIdleStoresAndRestoresFromSlot(t *testing.T) {
	ctx := context.Background()
	clock := &manualClock{now: fixedNow}
	slot := NewMemorySlot()
	m := newTestManager(t, slot, clock)

	store, release, err := m.Acquire(ctx, "sess-a")
	require.NoError(t, err)
	_, err = store.AddItem(ctx, lamp(), 3)
	require.NoError(t, err)
	release()
	release()

	clock.Advance(11 * time.Minute)
	_, releaseB, err := m.Acquire(ctx, "sess-b")
	require.NoError(t, err)
	defer releaseB()
	require.Equal(t, 1, m.ActiveSessions(), "idle sess-a should be evicted")
	require.Panics(t, func() { store.Snapshot() }, "evicted store must not be reused")

	restored, releaseA, err := m.Acquire(ctx, "sess-a")
	require.NoError(t, err)
	defer releaseA()
	require.NotSame(t, store, restored)
	require.Equal(t, 3, restored.Snapshot().ItemCount)
}

func TestManagerKeepsHeldStoresPastIdleTTL(t *testing.T) {
	ctx := context.Background()
	clock := &manualClock{now: fixedNow}
	m := newTestManager(t, NewMemorySlot(), clock)

	held, release, err := m.Acquire(ctx, "sess-a")
	require.NoError(t, err)
	defer release()

	clock.Advance(time.Hour)
	_, releaseB, err := m.Acquire(ctx, "sess-b")
	require.NoError(t, err)
	defer releaseB()

	require.Equal(t, 2, m.ActiveSessions())
	require.NotPanics(t, func() { held.Snapshot() })
}

func TestManagerReleaseWaitsForHolders(t *testing.T) {
	ctx := context.Background()
	clock := &manualClock{now: fixedNow}
	m := newTestManager(t, NewMemorySlot(), clock)

	store, release, err := m.Acquire(ctx, "sess-a")
	require.NoError(t, err)

	m.Release("sess-a")
	require.Equal(t, 1, m.ActiveSessions())
	require.NotPanics(t, func() { store.Snapshot() })

	release()
	require.Equal(t, 0, m.ActiveSessions())
	require.Panics(t, func() { store.Snapshot() })

	m.Release("unknown")
}

func TestManagerCloseTearsDownEverything(t *testing.T) {
	ctx := context.Background()
	clock := &manualClock{now: fixedNow}
	m := newTestManager(t, NewMemorySlot(), clock)

	store, release, err := m.Acquire(ctx, "sess-a")
	require.NoError(t, err)
	m.Close()
	release()

	require.Equal(t, 0, m.ActiveSessions())
	require.Panics(t, func() { store.Snapshot() })
	_, _, err = m.Acquire(ctx, "sess-a")
	require.Error(t, err)
}

func TestManagerConcurrentAcquireSameSession(t *testing.T) {
	ctx := context.Background()
	clock := &manualClock{now: fixedNow}
	m := newTestManager(t, NewMemorySlot(), clock)

	const workers = 20
	stores := make([]*Store, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			store, release, err := m.Acquire(ctx, "shared")
			if err != nil {
				t.Errorf("acquire: %v", err)
				return
			}
			defer release()
			stores[i] = store
			_, _ = store.AddItem(ctx, lamp(), 1)
		}(i)
	}
	wg.Wait()

	require.Equal(t, 1, m.ActiveSessions())
	final, release, err := m.Acquire(ctx, "shared")
	require.NoError(t, err)
	defer release()
	for _, s := range stores {
		require.Same(t, final, s)
	}
	require.Equal(t, workers, final.Snapshot().ItemCount)
}

func TestManagersSharingSlotSeeEachOthersWrites(t *testing.T) {
	ctx := context.Background()
	clock := &manualClock{now: fixedNow}
	slot := NewMemorySlot()
	replicaA := newTestManager(t, slot, clock)
	replicaB := newTestManager(t, slot, clock)

	add := func(m *Manager, c Candidate) {
		t.Helper()
		store, release, err := m.Acquire(ctx, "shared")
		require.NoError(t, err)
		defer release()
		_, err = store.AddItem(ctx, c, 1)
		require.NoError(t, err)
	}
	add(replicaA, lamp())
	add(replicaB, Candidate{ID: "p2", Name: "Cable", Price: 2})
	add(replicaA, Candidate{ID: "p3", Name: "Plug", Price: 3})

	restored, ok := newTestAdapterForSession(slot, "shared").Load(ctx)
	require.True(t, ok)
	ids := make([]string, 0, len(restored.Items))
	for _, item := range restored.Items {
		ids = append(ids, item.ID)
	}
	require.Equal(t, []string{"p1", "p2", "p3"}, ids)

	store, release, err := replicaB.Acquire(ctx, "shared")
	require.NoError(t, err)
	defer release()
	require.True(t, store.IsInCart("p3"), "cached store should pick up writes from the other manager")
}

func TestManagerSeesClearFromOtherManager(t *testing.T) {
	ctx := context.Background()
	clock := &manualClock{now: fixedNow}
	slot := NewMemorySlot()
	replicaA := newTestManager(t, slot, clock)
	replicaB := newTestManager(t, slot, clock)

	storeA, releaseA, err := replicaA.Acquire(ctx, "shared")
	require.NoError(t, err)
	_, err = storeA.AddItem(ctx, lamp(), 2)
	require.NoError(t, err)
	releaseA()

	storeB, releaseB, err := replicaB.Acquire(ctx, "shared")
	require.NoError(t, err)
	require.Equal(t, 2, storeB.Snapshot().ItemCount)
	storeB.Clear(ctx)
	releaseB()

	var heard []CartState
	storeA, releaseA, err = replicaA.Acquire(ctx, "shared")
	require.NoError(t, err)
	defer releaseA()
	unsubscribe := storeA.Subscribe(func(s CartState) { heard = append(heard, s) })
	defer unsubscribe()

	state, err := storeA.AddItem(ctx, Candidate{ID: "p2", Name: "Cable", Price: 2}, 1)
	require.NoError(t, err)
	require.Equal(t, 1, state.ItemCount)
	require.False(t, storeA.IsInCart("p1"))
	require.Len(t, heard, 1)
}

func TestManagerReleaseTrimsSessionID(t *testing.T) {
	ctx := context.Background()
	clock := &manualClock{now: fixedNow}
	m := newTestManager(t, NewMemorySlot(), clock)

	store, release, err := m.Acquire(ctx, "sess-a")
	require.NoError(t, err)
	release()

	m.Release("  sess-a ")
	require.Equal(t, 0, m.ActiveSessions())
	require.Panics(t, func() { store.Snapshot() })

	again, releaseAgain, err := m.Acquire(ctx, "sess-a")
	require.NoError(t, err)
	defer releaseAgain()
	require.NotSame(t, store, again)
	require.NotPanics(t, func() { again.Snapshot() })
}
