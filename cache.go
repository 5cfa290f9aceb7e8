package session

import (
	"context"
	"sync"
	"time"
)

type cacheEntry[T any] struct {
	value     T
	fetchedAt time.Time
	ttl       time.Duration
}

func (e *cacheEntry[T]) fresh(now time.Time) bool {
	return now.Sub(e.fetchedAt) < e.ttl
}

// flight is the shared in-flight fetch for a key. The done channel closes
// once value/err are set.
type flight[T any] struct {
	done  chan struct{}
	value T
	err   error
}

// Cache is a generic single-flight TTL cache: a fresh entry answers
// without fetching, and at most one fetch per key is ever in flight, with
// every concurrent caller sharing its result. A failed fetch never
// populates an entry, so the next call retries.
type Cache[T any] struct {
	mu      sync.RWMutex
	entries map[string]*cacheEntry[T]
	flights map[string]*flight[T]
	now     Clock
}

// NewCache returns an empty cache.
func NewCache[T any]() *Cache[T] {
	return &Cache[T]{
		entries: map[string]*cacheEntry[T]{},
		flights: map[string]*flight[T]{},
		now:     time.Now,
	}
}

// WithClock injects a custom clock (useful for tests).
func (c *Cache[T]) WithClock(clock Clock) *Cache[T] {
	if clock != nil {
		c.now = clock
	}
	return c
}

// Get returns the cached value for key while it is fresh, otherwise joins
// or starts the single in-flight fetch. The freshness check repeats after
// the exclusive lock is acquired because the fast-path read and the start
// of a fetch are not atomic with each other.
func (c *Cache[T]) Get(ctx context.Context, key string, ttl time.Duration, fetch func(ctx context.Context) (T, error)) (T, error) {
	// Fast path: shared lock only.
	c.mu.RLock()
	if entry, ok := c.entries[key]; ok && entry.fresh(c.now()) {
		value := entry.value
		c.mu.RUnlock()
		return value, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()

	// Re-check: another caller may have populated the entry between the
	// shared and exclusive sections.
	if entry, ok := c.entries[key]; ok && entry.fresh(c.now()) {
		value := entry.value
		c.mu.Unlock()
		return value, nil
	}

	if inflight, ok := c.flights[key]; ok {
		c.mu.Unlock()
		return c.await(ctx, inflight)
	}

	inflight := &flight[T]{done: make(chan struct{})}
	c.flights[key] = inflight
	c.mu.Unlock()

	value, err := fetch(ctx)

	c.mu.Lock()
	if err == nil {
		c.entries[key] = &cacheEntry[T]{value: value, fetchedAt: c.now(), ttl: ttl}
	}
	// The in-flight marker clears on success and failure alike.
	delete(c.flights, key)
	c.mu.Unlock()

	inflight.value = value
	inflight.err = err
	close(inflight.done)

	return value, err
}

// await blocks on a flight started by another caller. Abandoning here does
// not cancel the shared fetch; it still populates the cache for others.
func (c *Cache[T]) await(ctx context.Context, inflight *flight[T]) (T, error) {
	select {
	case <-inflight.done:
		return inflight.value, inflight.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Invalidate drops the entry for key. An in-flight fetch is unaffected.
func (c *Cache[T]) Invalidate(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// Reset drops every cached entry.
func (c *Cache[T]) Reset() {
	c.mu.Lock()
	c.entries = map[string]*cacheEntry[T]{}
	c.mu.Unlock()
}
