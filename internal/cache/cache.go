// Package cache provides the key-addressed memoization store for
// calculation results: TTL-expiring, size-bounded, least-recently-used
// eviction tracked via an access counter.
package cache

import (
	"log/slog"
	"sync"
	"time"

	"github.com/mrdeadlift/relic-engine/internal/model"
)

// DefaultTTL is the entry lifetime used when a caller passes ttl <= 0.
const DefaultTTL = 5 * time.Minute

// DefaultMaxEntries bounds the cache when the configured size is invalid.
const DefaultMaxEntries = 256

type entry struct {
	result    *model.CalculationResult
	createdAt time.Time
	ttl       time.Duration
	access    uint64 // value of the access counter at last touch
}

// Cache is a bounded TTL + LRU store of calculation results.
//
// All methods hold the mutex for their full duration, so a Clear racing
// an in-flight calculation only affects future lookups: a result pointer
// already handed out stays valid, it just won't be found again.
type Cache struct {
	mu         sync.Mutex
	entries    map[string]*entry
	maxEntries int
	counter    uint64

	hits, misses uint64
}

// New creates a cache bounded to maxEntries results.
func New(maxEntries int) *Cache {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &Cache{
		entries:    make(map[string]*entry, maxEntries),
		maxEntries: maxEntries,
	}
}

// Get returns the cached result for key, or nil if absent or expired.
// Expired entries are purged on access.
func (c *Cache) Get(key string) *model.CalculationResult {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		c.misses++
		return nil
	}
	if time.Since(e.createdAt) > e.ttl {
		delete(c.entries, key)
		c.misses++
		return nil
	}

	c.counter++
	e.access = c.counter
	c.hits++
	return e.result
}

// Set stores a result under key. A ttl <= 0 falls back to DefaultTTL.
// When the cache is at capacity the least-recently-used entry is evicted.
func (c *Cache) Set(key string, result *model.CalculationResult, ttl time.Duration) {
	if result == nil {
		return
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.maxEntries {
		c.evictLRU()
	}

	c.counter++
	c.entries[key] = &entry{
		result:    result,
		createdAt: time.Now(),
		ttl:       ttl,
		access:    c.counter,
	}
}

// evictLRU removes the entry with the oldest access counter.
// Caller must hold c.mu.
func (c *Cache) evictLRU() {
	var (
		victim    string
		oldest    uint64
		haveEntry bool
	)
	for key, e := range c.entries {
		if !haveEntry || e.access < oldest {
			victim = key
			oldest = e.access
			haveEntry = true
		}
	}
	if haveEntry {
		delete(c.entries, victim)
		slog.Debug("cache evicted LRU entry", "key", victim)
	}
}

// Clear drops all entries. In-flight calculations holding results from
// earlier Gets are unaffected.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*entry, c.maxEntries)
}

// Len returns the current entry count.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Stats returns cumulative hit/miss counters.
func (c *Cache) Stats() (hits, misses uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}
