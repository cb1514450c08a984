package verdictcache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"deepcheck/internal/config"
)

type failingStore struct{ NopStore }

func (failingStore) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, errors.New("backend down")
}

func (failingStore) Put(context.Context, string, []byte, time.Duration) error {
	return errors.New("backend down")
}

func TestResolveCachesCacheableValues(t *testing.T) {
	ctx := context.Background()
	cache := New(NewMemoryStore(), time.Hour, nil)
	var calls atomic.Int32
	compute := func(context.Context) ([]byte, bool, error) {
		calls.Add(1)
		return []byte("verdict"), true, nil
	}

	value, outcome, err := cache.Resolve(ctx, "video:1", compute)
	if err != nil || string(value) != "verdict" || outcome.Hit {
		t.Fatalf("first Resolve = %q, %+v, %v", value, outcome, err)
	}
	value, outcome, err = cache.Resolve(ctx, "video:1", compute)
	if err != nil || string(value) != "verdict" || !outcome.Hit {
		t.Fatalf("second Resolve = %q, %+v, %v", value, outcome, err)
	}
	if calls.Load() != 1 {
		t.Fatalf("compute called %d times, want 1", calls.Load())
	}
}

func TestResolveSkipsUncacheableValues(t *testing.T) {
	ctx := context.Background()
	cache := New(NewMemoryStore(), time.Hour, nil)
	var calls atomic.Int32
	compute := func(context.Context) ([]byte, bool, error) {
		calls.Add(1)
		return []byte("error verdict"), false, nil
	}
	for range 2 {
		if _, _, err := cache.Resolve(ctx, "video:err", compute); err != nil {
			t.Fatalf("Resolve: %v", err)
		}
	}
	if calls.Load() != 2 {
		t.Fatalf("uncacheable result was cached; calls=%d", calls.Load())
	}
}

func TestResolveSingleFlight(t *testing.T) {
	ctx := context.Background()
	cache := New(NewMemoryStore(), time.Hour, nil)
	release := make(chan struct{})
	var calls atomic.Int32
	compute := func(context.Context) ([]byte, bool, error) {
		calls.Add(1)
		<-release
		return []byte("shared"), true, nil
	}

	const callers = 8
	var wg sync.WaitGroup
	results := make([]string, callers)
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			value, _, err := cache.Resolve(ctx, "image:same", compute)
			if err != nil {
				t.Errorf("Resolve: %v", err)
				return
			}
			results[i] = string(value)
		}()
	}
	// Let the callers pile up behind the first flight.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if calls.Load() != 1 {
		t.Fatalf("compute called %d times, want 1", calls.Load())
	}
	for i, got := range results {
		if got != "shared" {
			t.Fatalf("caller %d got %q", i, got)
		}
	}
}

func TestResolveCallerCancelDoesNotAbortFlight(t *testing.T) {
	cache := New(NewMemoryStore(), time.Hour, nil)
	release := make(chan struct{})
	done := make(chan error, 1)
	compute := func(ctx context.Context) ([]byte, bool, error) {
		<-release
		done <- ctx.Err()
		return []byte("late"), true, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	if _, _, err := cache.Resolve(ctx, "k", compute); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	close(release)
	if err := <-done; err != nil {
		t.Fatalf("computation saw cancellation: %v", err)
	}

	// The detached flight still populated the cache.
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if value, ok := cache.Lookup(context.Background(), "k"); ok {
			if string(value) != "late" {
				t.Fatalf("cached %q", value)
			}
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("detached computation never stored its result")
}

func TestResolvePropagatesComputeError(t *testing.T) {
	cache := New(NewMemoryStore(), time.Hour, nil)
	boom := errors.New("boom")
	_, _, err := cache.Resolve(context.Background(), "k", func(context.Context) ([]byte, bool, error) {
		return nil, false, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if _, ok := cache.Lookup(context.Background(), "k"); ok {
		t.Fatal("failed computation left an entry behind")
	}
}

func TestResolveDegradesOnStoreFailure(t *testing.T) {
	cache := New(failingStore{}, time.Hour, nil)
	value, outcome, err := cache.Resolve(context.Background(), "k", func(context.Context) ([]byte, bool, error) {
		return []byte("fresh"), true, nil
	})
	if err != nil || string(value) != "fresh" || outcome.Hit {
		t.Fatalf("Resolve = %q, %+v, %v", value, outcome, err)
	}
}

func TestOpenBackends(t *testing.T) {
	ctx := context.Background()
	cases := []struct {
		backend string
		want    string
	}{
		{config.CacheBackendNone, "none"},
		{config.CacheBackendMemory, "memory"},
	}
	for _, tc := range cases {
		store, err := Open(ctx, config.Cache{Backend: tc.backend}, nil)
		if err != nil {
			t.Fatalf("Open(%s): %v", tc.backend, err)
		}
		if store.Name() != tc.want {
			t.Fatalf("Open(%s) = %s", tc.backend, store.Name())
		}
		_ = store.Close()
	}
}

func TestOpenAutoFallsBackToMemory(t *testing.T) {
	store, err := Open(context.Background(), config.Cache{
		Backend:  config.CacheBackendAuto,
		RedisURL: "redis://127.0.0.1:1",
	}, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer store.Close()
	if store.Name() != "memory" {
		t.Fatalf("auto backend = %s, want memory", store.Name())
	}
}
