package verdictcache

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"deepcheck/internal/logging"
	"deepcheck/internal/services"
)

// ComputeFunc produces the value for a missing key. cacheable=false keeps
// the value out of the store (used for error verdicts).
type ComputeFunc func(ctx context.Context) (value []byte, cacheable bool, err error)

// Outcome describes how Resolve obtained its value.
type Outcome struct {
	Hit    bool
	Shared bool
}

// Cache fronts a Store with single-flight and error degradation.
type Cache struct {
	store  Store
	ttl    time.Duration
	group  singleflight.Group
	logger *slog.Logger
}

// New wraps store. A nil store behaves as NopStore.
func New(store Store, ttl time.Duration, logger *slog.Logger) *Cache {
	if store == nil {
		store = NopStore{}
	}
	return &Cache{store: store, ttl: ttl, logger: logging.NewComponentLogger(logger, "verdictcache")}
}

// Backend reports the underlying store name.
func (c *Cache) Backend() string { return c.store.Name() }

// Store exposes the underlying store for maintenance commands.
func (c *Cache) Store() Store { return c.store }

// Lookup returns the cached bytes for key. Store failures are logged and
// reported as a miss.
func (c *Cache) Lookup(ctx context.Context, key string) ([]byte, bool) {
	value, ok, err := c.store.Get(ctx, key)
	if err != nil {
		c.degraded(ctx, "cache lookup failed", err)
		return nil, false
	}
	return value, ok
}

// Save writes value under key with the configured TTL. Store failures are
// logged and swallowed.
func (c *Cache) Save(ctx context.Context, key string, value []byte) {
	if err := c.store.Put(ctx, key, value, c.ttl); err != nil {
		c.degraded(ctx, "cache write failed", err)
	}
}

// Resolve returns the cached value for key or computes it. Concurrent
// callers for the same key share one compute call. The computation runs on
// a context detached from the first caller's cancellation, so a caller that
// gives up only stops waiting.
func (c *Cache) Resolve(ctx context.Context, key string, compute ComputeFunc) ([]byte, Outcome, error) {
	if value, ok := c.Lookup(ctx, key); ok {
		return value, Outcome{Hit: true}, nil
	}

	detached := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (any, error) {
		// A racing caller may have stored the value between our miss and the flight.
		if value, ok := c.Lookup(detached, key); ok {
			return value, nil
		}
		value, cacheable, err := compute(detached)
		if err != nil {
			return nil, err
		}
		if cacheable {
			c.Save(detached, key, value)
		}
		return value, nil
	})

	select {
	case <-ctx.Done():
		return nil, Outcome{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, Outcome{Shared: res.Shared}, res.Err
		}
		value, ok := res.Val.([]byte)
		if !ok {
			return nil, Outcome{Shared: res.Shared}, fmt.Errorf("verdictcache: unexpected flight result %T", res.Val)
		}
		return value, Outcome{Shared: res.Shared}, nil
	}
}

func (c *Cache) degraded(ctx context.Context, msg string, err error) {
	logging.WarnWithContext(logging.WithContext(ctx, c.logger), msg, "cache_degraded",
		logging.String("backend", c.store.Name()),
		logging.Error(fmt.Errorf("%w: %w", services.ErrCache, err)),
		logging.String(logging.FieldErrorHint, "check the cache backend; requests continue uncached"),
		logging.String(logging.FieldImpact, "verdict computed without cache"))
}
