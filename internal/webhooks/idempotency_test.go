package webhooks

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeIdempotencyStore struct {
	keys   map[string]time.Duration
	setErr error
}

func newFakeIdempotencyStore() *fakeIdempotencyStore {
	return &fakeIdempotencyStore{keys: map[string]time.Duration{}}
}

func (f *fakeIdempotencyStore) Get(_ context.Context, key string) (string, error) {
	if _, ok := f.keys[key]; ok {
		return "1", nil
	}
	return "", errors.New("missing")
}

func (f *fakeIdempotencyStore) SetNX(_ context.Context, key string, _ any, ttl time.Duration) (bool, error) {
	if f.setErr != nil {
		return false, f.setErr
	}
	if _, ok := f.keys[key]; ok {
		return false, nil
	}
	f.keys[key] = ttl
	return true, nil
}

func (f *fakeIdempotencyStore) IdempotencyKey(scope, id string) string {
	return "warb:idempotency:" + scope + ":" + id
}

func (f *fakeIdempotencyStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.keys, key)
	}
	return nil
}

func TestIdempotencyGuardDetectsDuplicates(t *testing.T) {
	store := newFakeIdempotencyStore()
	guard, err := NewIdempotencyGuard(store, 72*time.Hour, "razorpay")
	if err != nil {
		t.Fatalf("new guard: %v", err)
	}
	ctx := context.Background()

	dup, err := guard.CheckAndMark(ctx, "evt_1")
	if err != nil || dup {
		t.Fatalf("first delivery should not be a duplicate: dup=%v err=%v", dup, err)
	}
	if ttl := store.keys["warb:idempotency:razorpay:evt_1"]; ttl != 72*time.Hour {
		t.Fatalf("expected key stored with ttl, got %v", ttl)
	}
	dup, err = guard.CheckAndMark(ctx, "evt_1")
	if err != nil || !dup {
		t.Fatalf("second delivery should be a duplicate: dup=%v err=%v", dup, err)
	}

	if err := guard.Delete(ctx, "evt_1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	dup, _ = guard.CheckAndMark(ctx, "evt_1")
	if dup {
		t.Fatalf("deleted key should allow a retry")
	}
}

func TestIdempotencyGuardValidation(t *testing.T) {
	if _, err := NewIdempotencyGuard(nil, time.Hour, "x"); err == nil {
		t.Fatalf("expected store error")
	}
	if _, err := NewIdempotencyGuard(newFakeIdempotencyStore(), -time.Second, "x"); err == nil {
		t.Fatalf("expected ttl error")
	}
	if _, err := NewIdempotencyGuard(newFakeIdempotencyStore(), time.Hour, ""); err == nil {
		t.Fatalf("expected scope error")
	}
	guard, _ := NewIdempotencyGuard(newFakeIdempotencyStore(), time.Hour, "x")
	if _, err := guard.CheckAndMark(context.Background(), ""); err == nil {
		t.Fatalf("expected event id error")
	}
}

func TestIdempotencyGuardSurfacesStoreErrors(t *testing.T) {
	store := newFakeIdempotencyStore()
	store.setErr = errors.New("redis down")
	guard, _ := NewIdempotencyGuard(store, time.Hour, "shiprocket")
	if _, err := guard.CheckAndMark(context.Background(), "SR-1:picked_up"); err == nil {
		t.Fatalf("expected store error")
	}
}
