package cart

import (
	"context"
	"encoding/base64"
	"errors"
	"time"

	"github.com/smartdot/storefront-backend/pkg/uri"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time {
	return fixedNow
}

func encodeRaw(json string) string {
	return base64.StdEncoding.EncodeToString([]byte(uri.EscapeComponent(json)))
}

var errSlotDown = errors.New("slot unavailable")

// flakySlot fails selected operations on snapshot keys. The availability probe key is never failed
// unless failProbe is set.
type flakySlot struct {
	*MemorySlot
	failGet    bool
	failSet    bool
	failDelete bool
	failProbe  bool
}

// Len returns the number of stored keys, expired or not.
func (m *MemorySlot) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

func newFlakySlot() *flakySlot {
	return &flakySlot{MemorySlot: NewMemorySlot()}
}

func (f *flakySlot) Get(ctx context.Context, key string) (string, bool, error) {
	if f.failGet {
		return "", false, errSlotDown
	}
	return f.MemorySlot.Get(ctx, key)
}

func (f *flakySlot) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if f.failProbe && key == availabilityProbeKey {
		return errSlotDown
	}
	if f.failSet && key != availabilityProbeKey {
		return errSlotDown
	}
	return f.MemorySlot.Set(ctx, key, value, ttl)
}

func (f *flakySlot) Delete(ctx context.Context, key string) error {
	if f.failDelete {
		return errSlotDown
	}
	return f.MemorySlot.Delete(ctx, key)
}

func newTestAdapter(slot Slot, opts ...AdapterOption) *Adapter {
	return newTestAdapterForSession(slot, "sess-1", opts...)
}

func newTestAdapterForSession(slot Slot, sessionID string, opts ...AdapterOption) *Adapter {
	all := append([]AdapterOption{WithClock(fixedClock)}, opts...)
	adapter, err := NewAdapter(slot, SlotKey(DefaultStorageKey, sessionID), all...)
	if err != nil {
		panic(err)
	}
	return adapter
}
