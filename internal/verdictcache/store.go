package verdictcache

import (
	"context"
	"time"
)

// Store persists opaque values with a time-to-live. Implementations must be
// safe for concurrent use. Last write wins.
type Store interface {
	// Get returns the stored value and true, or false when absent or expired.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Put stores value under key for ttl.
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Delete removes key. Missing keys are not an error.
	Delete(ctx context.Context, key string) error
	// Purge removes every entry owned by the store and returns how many were removed.
	Purge(ctx context.Context) (int, error)
	// Name identifies the backend in logs.
	Name() string
	Close() error
}

// NopStore never stores anything; every Get is a miss.
type NopStore struct{}

func (NopStore) Get(context.Context, string) ([]byte, bool, error) { return nil, false, nil }
func (NopStore) Put(context.Context, string, []byte, time.Duration) error { return nil }
func (NopStore) Delete(context.Context, string) error { return nil }
func (NopStore) Purge(context.Context) (int, error) { return 0, nil }
func (NopStore) Name() string { return "none" }
func (NopStore) Close() error { return nil }
