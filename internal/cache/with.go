package cache

import (
	"context"
	"log"
	"time"
)

// ComputeFunc produces the value for a cache miss. It must be idempotent
// and read-only against upstream state: two concurrent misses on the same
// key may both run it, with the last writer winning (no single-flight).
type ComputeFunc func(ctx context.Context) ([]byte, error)

// WithCache returns the cached value for key if present, otherwise runs
// compute, stores the result under key with ttl, and returns it. The bool
// reports whether the value came from the cache.
//
// Store failures are logged and bypassed: the cache is an optimization,
// never a hard dependency. A failed compute propagates and caches nothing.
func WithCache(ctx context.Context, store Store, key string, ttl time.Duration, compute ComputeFunc) ([]byte, bool, error) {
	if store != nil {
		value, ok, err := store.Get(ctx, key)
		if err != nil {
			log.Printf("cache get failed for %s, bypassing: %v", key, err)
		} else if ok {
			// Hit: stored value returned unchanged, no TTL refresh.
			return value, true, nil
		}
	}

	value, err := compute(ctx)
	if err != nil {
		return nil, false, err
	}

	if store != nil {
		if err := store.Set(ctx, key, value, ttl); err != nil {
			log.Printf("cache set failed for %s, result not cached: %v", key, err)
		}
	}

	return value, false, nil
}
