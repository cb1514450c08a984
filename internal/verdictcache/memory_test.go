package verdictcache

import (
	"context"
	"testing"
	"time"
)

func TestMemoryStoreExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	store := NewMemoryStore()
	store.now = func() time.Time { return now }

	if err := store.Put(ctx, "video:abc", []byte("v1"), time.Minute); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, ok, err := store.Get(ctx, "video:abc")
	if err != nil || !ok || string(got) != "v1" {
		t.Fatalf("Get = %q, %v, %v", got, ok, err)
	}

	now = now.Add(time.Minute)
	if _, ok, _ := store.Get(ctx, "video:abc"); ok {
		t.Fatal("expected entry to expire at its deadline")
	}
	if store.Len() != 0 {
		t.Fatalf("expired entry not evicted, len=%d", store.Len())
	}
}

func TestMemoryStoreSweepAndPurge(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	store := NewMemoryStore()
	store.now = func() time.Time { return now }

	_ = store.Put(ctx, "a", []byte("1"), time.Second)
	_ = store.Put(ctx, "b", []byte("2"), time.Hour)
	now = now.Add(2 * time.Second)

	if removed := store.Sweep(); removed != 1 {
		t.Fatalf("Sweep removed %d, want 1", removed)
	}
	removed, err := store.Purge(ctx)
	if err != nil || removed != 1 {
		t.Fatalf("Purge = %d, %v", removed, err)
	}
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	value := []byte("abc")
	_ = store.Put(ctx, "k", value, time.Hour)
	value[0] = 'x'
	got, _, _ := store.Get(ctx, "k")
	if string(got) != "abc" {
		t.Fatalf("stored value aliased caller slice: %q", got)
	}
}

func TestMemoryStoreIgnoresNonPositiveTTL(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	_ = store.Put(ctx, "k", []byte("v"), 0)
	if _, ok, _ := store.Get(ctx, "k"); ok {
		t.Fatal("zero ttl should not store")
	}
}
