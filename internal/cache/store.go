// Package cache provides the TTL key/value store backing response caching
// and overflow handle storage, the deterministic cache-key builder, and the
// WithCache read-through wrapper.
package cache

import (
	"context"
	"sync"
	"time"
)

// Store is a key/value store with per-key time-to-live. Both the response
// cache and the handle store sit on this interface. Expiry is hard: a read
// never extends an entry's life and there is no stale-but-served state.
type Store interface {
	// Get retrieves a value by key. The bool reports whether a fresh
	// entry was found.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value under key with the given TTL, overwriting any
	// previous entry (last writer wins).
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes an entry. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// memoryEntry captures a stored value and its expiry instant.
type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// MemoryStore is a lightweight in-memory Store. Expired entries are
// evicted lazily on Get and opportunistically on Set once the map grows.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time

	hits   int64
	misses int64
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

// sweepThreshold triggers a full expired-entry sweep on Set.
const sweepThreshold = 4096

// Get retrieves an entry if still fresh.
func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	entry, ok := s.entries[key]
	now := s.now()
	s.mu.RUnlock()

	if !ok || now.After(entry.expiresAt) {
		s.mu.Lock()
		// Re-check under the write lock: a concurrent Set may have
		// refreshed the entry between the two locks, and that fresh
		// entry must survive.
		if cur, present := s.entries[key]; present && s.now().After(cur.expiresAt) {
			delete(s.entries, key)
		}
		s.misses++
		s.mu.Unlock()
		return nil, false, nil
	}

	s.mu.Lock()
	s.hits++
	s.mu.Unlock()

	// Copy so callers cannot mutate the stored value.
	out := make([]byte, len(entry.value))
	copy(out, entry.value)
	return out, true, nil
}

// Set stores an entry. A non-positive TTL stores nothing.
func (s *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}

	stored := make([]byte, len(value))
	copy(stored, value)

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.entries) >= sweepThreshold {
		now := s.now()
		for k, e := range s.entries {
			if now.After(e.expiresAt) {
				delete(s.entries, k)
			}
		}
	}

	s.entries[key] = memoryEntry{
		value:     stored,
		expiresAt: s.now().Add(ttl),
	}
	return nil
}

// Delete removes an entry.
func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
	return nil
}

// Stats reports hit/miss counters and the current entry count.
func (s *MemoryStore) Stats() (hits, misses int64, size int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hits, s.misses, len(s.entries)
}

// SetClock injects a clock for TTL tests.
func (s *MemoryStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	s.now = now
	s.mu.Unlock()
}
