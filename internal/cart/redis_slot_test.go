package cart

import (
	"context"
	"errors"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

type stubRedisKV struct {
	data   map[string]string
	ttls   map[string]time.Duration
	getErr error
}

func newStubRedisKV() *stubRedisKV {
	return &stubRedisKV{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (s *stubRedisKV) Get(_ context.Context, key string) (string, error) {
	if s.getErr != nil {
		return "", s.getErr
	}
	v, ok := s.data[key]
	if !ok {
		return "", goredis.Nil
	}
	return v, nil
}

func (s *stubRedisKV) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	s.data[key] = value.(string)
	s.ttls[key] = ttl
	return nil
}

func (s *stubRedisKV) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(s.data, k)
	}
	return nil
}

func (s *stubRedisKV) CartKey(slotKey string) string {
	return "sd:cart:" + slotKey
}

func TestRedisSlotNamespacesKeysAndMapsMissing(t *testing.T) {
	ctx := context.Background()
	kv := newStubRedisKV()
	slot, err := NewRedisSlot(kv)
	if err != nil {
		t.Fatalf("new slot: %v", err)
	}

	if _, found, err := slot.Get(ctx, "smartdot_cart:s1"); err != nil || found {
		t.Fatalf("expected missing key, got found=%v err=%v", found, err)
	}
	if err := slot.Set(ctx, "smartdot_cart:s1", "payload", DefaultMaxAge); err != nil {
		t.Fatalf("set: %v", err)
	}
	if kv.data["sd:cart:smartdot_cart:s1"] != "payload" {
		t.Fatalf("expected namespaced key, got %v", kv.data)
	}
	if kv.ttls["sd:cart:smartdot_cart:s1"] != DefaultMaxAge {
		t.Fatalf("expected ttl to be forwarded")
	}
	value, found, err := slot.Get(ctx, "smartdot_cart:s1")
	if err != nil || !found || value != "payload" {
		t.Fatalf("unexpected get result %q %v %v", value, found, err)
	}
	if err := slot.Delete(ctx, "smartdot_cart:s1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(kv.data) != 0 {
		t.Fatalf("expected key removed")
	}
}

func TestRedisSlotSurfacesTransportErrors(t *testing.T) {
	kv := newStubRedisKV()
	kv.getErr = errors.New("connection refused")
	slot, _ := NewRedisSlot(kv)

	if _, _, err := slot.Get(context.Background(), "k"); err == nil {
		t.Fatalf("expected transport error")
	}
	if _, err := NewRedisSlot(nil); err == nil {
		t.Fatalf("expected error for nil client")
	}
}
