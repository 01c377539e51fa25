// Package cache memoizes content per key with time-based staleness and
// collapses concurrent requests for the same key into one producer call.
package cache

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/vietddude/noor/internal/content/metrics"
)

// DefaultTTL applies when a caller passes ttl <= 0.
const DefaultTTL = 5 * time.Minute

// Producer resolves the value for a key. It runs at most once per key at a
// time and is detached from the cancellation of the caller that started it.
type Producer func(ctx context.Context) (any, error)

// Entry is an immutable memoized value.
type Entry struct {
	Key       string
	Value     any
	FetchedAt time.Time
	TTL       time.Duration
}

// Fresh reports whether the entry is still valid at now.
func (e Entry) Fresh(now time.Time) bool {
	return now.Sub(e.FetchedAt) < e.TTL
}

// Stats is a point-in-time view of the cache.
type Stats struct {
	Entries  int    `json:"entries"`
	InFlight int64  `json:"in_flight"`
	Hits     uint64 `json:"hits"`
	Misses   uint64 `json:"misses"`
	Shared   uint64 `json:"shared"`
}

// Cache is the process-wide content memo. Construct one per application
// session and pass it to every consumer.
type Cache struct {
	mu         sync.RWMutex
	entries    map[string]Entry
	generation uint64

	group      singleflight.Group
	now        func() time.Time
	defaultTTL time.Duration

	inFlight atomic.Int64
	hits     atomic.Uint64
	misses   atomic.Uint64
	shared   atomic.Uint64
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// WithDefaultTTL overrides DefaultTTL.
func WithDefaultTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		if ttl > 0 {
			c.defaultTTL = ttl
		}
	}
}

// New creates an empty cache.
func New(opts ...Option) *Cache {
	c := &Cache{
		entries:    make(map[string]Entry),
		now:        time.Now,
		defaultTTL: DefaultTTL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the fresh value for key, joins the in-flight producer for key,
// or starts producer. A failed producer leaves no entry behind. If ctx ends
// first Get returns ctx.Err() while the producer keeps running and still
// populates the cache.
func (c *Cache) Get(ctx context.Context, key string, producer Producer, ttl time.Duration) (any, error) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	if e, ok := c.fresh(key); ok {
		c.hits.Add(1)
		metrics.CacheLookupsTotal.WithLabelValues("hit").Inc()
		return e.Value, nil
	}

	c.mu.RLock()
	gen := c.generation
	c.mu.RUnlock()

	// Flights started before a Reset are not joined by later callers.
	detached := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key+"#"+strconv.FormatUint(gen, 10), func() (any, error) {
		// A flight that settled between our lookup and DoChan already stored it.
		if e, ok := c.fresh(key); ok {
			return e.Value, nil
		}

		c.misses.Add(1)
		metrics.CacheLookupsTotal.WithLabelValues("miss").Inc()
		c.inFlight.Add(1)
		defer c.inFlight.Add(-1)

		v, err := producer(detached)
		if err != nil {
			return nil, err
		}
		c.store(key, v, ttl, gen)
		return v, nil
	})

	select {
	case res := <-ch:
		if res.Shared {
			c.shared.Add(1)
			metrics.CacheLookupsTotal.WithLabelValues("shared").Inc()
		}
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Lookup returns the entry for key whether or not it is stale.
func (c *Cache) Lookup(key string) (Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	return e, ok
}

// Set replaces the entry for key.
func (c *Cache) Set(key string, value any, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = Entry{Key: key, Value: value, FetchedAt: c.now(), TTL: ttl}
}

// Invalidate drops the entry for key. An in-flight producer is unaffected.
func (c *Cache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Reset drops every entry. Producers already in flight finish, but their
// results are discarded and callers arriving later start a new flight.
func (c *Cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]Entry)
	c.generation++
}

// Stats returns counters and sizes.
func (c *Cache) Stats() Stats {
	c.mu.RLock()
	n := len(c.entries)
	c.mu.RUnlock()

	return Stats{
		Entries:  n,
		InFlight: c.inFlight.Load(),
		Hits:     c.hits.Load(),
		Misses:   c.misses.Load(),
		Shared:   c.shared.Load(),
	}
}

func (c *Cache) fresh(key string) (Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	if !ok || !e.Fresh(c.now()) {
		return Entry{}, false
	}
	return e, true
}

func (c *Cache) store(key string, value any, ttl time.Duration, gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation {
		return
	}
	c.entries[key] = Entry{Key: key, Value: value, FetchedAt: c.now(), TTL: ttl}
}
