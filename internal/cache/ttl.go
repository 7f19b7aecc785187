// Package cache provides the two process-local caches that sit in front of
// the store: a simple TTL key-value cache for short-lived derived values and
// an LRU+TTL query-result cache for heavy aggregate reads. Both are safe for
// concurrent use. Neither invalidates on writes by itself; callers decide
// the cost/staleness tradeoff and invalidate explicitly.
package cache

import (
	"sync"
	"time"
)

// Recorder receives cache hit/miss events. internal/observability.Metrics
// satisfies it; a nil Recorder disables instrumentation.
type Recorder interface {
	CacheHit(cache string)
	CacheMiss(cache string)
}

type ttlEntry struct {
	value      any
	expiresAt  time.Time
	insertedAt time.Time
}

// TTLCache is a capacity-bounded key-value cache with per-entry TTLs.
// Expired entries are pruned lazily on read. When over capacity the oldest
// inserted entry is evicted, regardless of how recently it was read.
type TTLCache struct {
	mu         sync.Mutex
	name       string
	maxEntries int
	defaultTTL time.Duration
	entries    map[string]ttlEntry
	recorder   Recorder
}

// NewTTLCache creates a TTLCache holding at most maxEntries values, each
// living for defaultTTL unless SetTTL overrides it.
func NewTTLCache(name string, maxEntries int, defaultTTL time.Duration, recorder Recorder) *TTLCache {
	return &TTLCache{
		name:       name,
		maxEntries: maxEntries,
		defaultTTL: defaultTTL,
		entries:    make(map[string]ttlEntry),
		recorder:   recorder,
	}
}

// Get returns the value for key if present and not expired. An expired entry
// is removed and reported as a miss.
func (c *TTLCache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		c.miss()
		return nil, false
	}
	if time.Now().After(entry.expiresAt) {
		delete(c.entries, key)
		c.miss()
		return nil, false
	}
	c.hit()
	return entry.value, true
}

// Set stores value under key with the default TTL.
func (c *TTLCache) Set(key string, value any) {
	c.SetTTL(key, value, c.defaultTTL)
}

// SetTTL stores value under key with an explicit TTL.
func (c *TTLCache) SetTTL(key string, value any, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	inserted := now
	if existing, ok := c.entries[key]; ok {
		// Re-setting a key keeps its original insertion slot.
		inserted = existing.insertedAt
	}
	c.entries[key] = ttlEntry{value: value, expiresAt: now.Add(ttl), insertedAt: inserted}

	for len(c.entries) > c.maxEntries {
		c.evictOldest()
	}
}

// Clear removes all entries.
func (c *TTLCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]ttlEntry)
}

// Size returns the number of entries, including any not yet lazily pruned.
func (c *TTLCache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// evictOldest removes the entry with the earliest insertion time.
// Caller must hold c.mu.
func (c *TTLCache) evictOldest() {
	var (
		oldestKey string
		oldestAt  time.Time
		found     bool
	)
	for key, entry := range c.entries {
		if !found || entry.insertedAt.Before(oldestAt) {
			oldestKey = key
			oldestAt = entry.insertedAt
			found = true
		}
	}
	if found {
		delete(c.entries, oldestKey)
	}
}

func (c *TTLCache) hit() {
	if c.recorder != nil {
		c.recorder.CacheHit(c.name)
	}
}

func (c *TTLCache) miss() {
	if c.recorder != nil {
		c.recorder.CacheMiss(c.name)
	}
}
