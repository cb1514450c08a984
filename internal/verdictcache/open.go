package verdictcache

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"deepcheck/internal/config"
	"deepcheck/internal/logging"
)

const redisProbeTimeout = 2 * time.Second

// Sweeper is implemented by stores that need periodic removal of expired entries.
type Sweeper interface {
	Sweep(ctx context.Context) (int, error)
}

// Open builds the store named by cfg.Backend.
func Open(ctx context.Context, cfg config.Cache, logger *slog.Logger) (Store, error) {
	logger = logging.NewComponentLogger(logger, "verdictcache")
	switch cfg.Backend {
	case config.CacheBackendNone:
		return NopStore{}, nil
	case config.CacheBackendMemory:
		return NewMemoryStore(), nil
	case config.CacheBackendSQLite:
		return OpenSQLite(ctx, cfg.SQLitePath)
	case config.CacheBackendRedis:
		store, err := NewRedisStore(cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.CacheBackendAuto, "":
		store, err := NewRedisStore(cfg.RedisURL)
		if err == nil {
			probeCtx, cancel := context.WithTimeout(ctx, redisProbeTimeout)
			err = store.Ping(probeCtx)
			cancel()
			if err == nil {
				logger.Info("verdict cache backend selected",
					logging.Args(logging.DecisionAttrs("cache_backend", "redis", "redis answered ping")...)...)
				return store, nil
			}
			_ = store.Close()
		}
		logger.Info("verdict cache backend selected",
			logging.Args(append(logging.DecisionAttrs("cache_backend", "memory", "redis unavailable"), logging.Error(err))...)...)
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}

// memorySweeper adapts MemoryStore to Sweeper.
type memorySweeper struct{ m *MemoryStore }

func (s memorySweeper) Sweep(context.Context) (int, error) { return s.m.Sweep(), nil }

// SweeperFor returns the sweeper for store, or false when the backend
// expires entries natively.
func SweeperFor(store Store) (Sweeper, bool) {
	switch s := store.(type) {
	case *MemoryStore:
		return memorySweeper{m: s}, true
	case Sweeper:
		return s, true
	default:
		return nil, false
	}
}

// RunSweeper removes expired entries every interval until ctx is done.
// Stores with native expiry are left alone.
func RunSweeper(ctx context.Context, store Store, interval time.Duration, logger *slog.Logger) {
	sweeper, ok := SweeperFor(store)
	if !ok || interval <= 0 {
		return
	}
	logger = logging.NewComponentLogger(logger, "verdictcache")
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := sweeper.Sweep(ctx)
			if err != nil {
				logging.WarnWithContext(logger, "cache sweep failed", "cache_sweep_failed",
					logging.Error(err),
					logging.String(logging.FieldImpact, "expired verdicts linger until the next sweep"))
				continue
			}
			if removed > 0 {
				logger.Debug("cache sweep", logging.Int("removed", removed))
			}
		}
	}
}
