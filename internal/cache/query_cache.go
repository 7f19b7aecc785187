package cache

import (
	"container/list"
	"encoding/json"
	"strings"
	"sync"
	"time"
)

type queryEntry struct {
	key       string
	value     any
	expiresAt time.Time
}

// QueryCache caches query results keyed by normalized query text plus
// JSON-encoded parameters. Eviction is true LRU: a hit moves the entry to
// most-recently-used. Entries expire after a global default TTL unless a
// per-call TTL overrides it. Invalidation is by key substring, so keys built
// from SQL text can be invalidated per table via InvalidateTable.
type QueryCache struct {
	mu         sync.Mutex
	name       string
	capacity   int
	defaultTTL time.Duration
	ll         *list.List // front = most recently used
	items      map[string]*list.Element
	recorder   Recorder
}

// NewQueryCache creates a QueryCache with the given capacity and default TTL.
func NewQueryCache(name string, capacity int, defaultTTL time.Duration, recorder Recorder) *QueryCache {
	return &QueryCache{
		name:       name,
		capacity:   capacity,
		defaultTTL: defaultTTL,
		ll:         list.New(),
		items:      make(map[string]*list.Element),
		recorder:   recorder,
	}
}

// Key builds a cache key from query text and its parameters.
func Key(query string, params any) string {
	encoded, err := json.Marshal(params)
	if err != nil {
		// Unencodable params still need a stable key; fall back to the query
		// text alone so such entries collide rather than error.
		return query
	}
	return query + "|" + string(encoded)
}

// Get returns the cached value for key and promotes it to most recently
// used. Expired entries are removed and reported as misses.
func (c *QueryCache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if !ok {
		c.miss()
		return nil, false
	}

	entry := elem.Value.(*queryEntry)
	if time.Now().After(entry.expiresAt) {
		c.removeElement(elem)
		c.miss()
		return nil, false
	}

	c.ll.MoveToFront(elem)
	c.hit()
	return entry.value, true
}

// Set stores value under key with the default TTL.
func (c *QueryCache) Set(key string, value any) {
	c.SetTTL(key, value, c.defaultTTL)
}

// SetTTL stores value under key with an explicit TTL.
func (c *QueryCache) SetTTL(key string, value any, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	expires := time.Now().Add(ttl)
	if elem, ok := c.items[key]; ok {
		entry := elem.Value.(*queryEntry)
		entry.value = value
		entry.expiresAt = expires
		c.ll.MoveToFront(elem)
		return
	}

	elem := c.ll.PushFront(&queryEntry{key: key, value: value, expiresAt: expires})
	c.items[key] = elem

	for c.ll.Len() > c.capacity {
		if back := c.ll.Back(); back != nil {
			c.removeElement(back)
		}
	}
}

// Invalidate removes every entry whose key contains pattern. An empty
// pattern clears the whole cache. Returns the number of entries removed.
func (c *QueryCache) Invalidate(pattern string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	if pattern == "" {
		removed := c.ll.Len()
		c.ll.Init()
		c.items = make(map[string]*list.Element)
		return removed
	}

	removed := 0
	for key, elem := range c.items {
		if strings.Contains(key, pattern) {
			c.removeElement(elem)
			removed++
		}
	}
	return removed
}

// InvalidateTable removes entries whose key mentions the given table name.
func (c *QueryCache) InvalidateTable(table string) int {
	return c.Invalidate(table)
}

// Size returns the number of cached entries.
func (c *QueryCache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len()
}

// removeElement removes an entry. Caller must hold c.mu.
func (c *QueryCache) removeElement(elem *list.Element) {
	entry := elem.Value.(*queryEntry)
	c.ll.Remove(elem)
	delete(c.items, entry.key)
}

func (c *QueryCache) hit() {
	if c.recorder != nil {
		c.recorder.CacheHit(c.name)
	}
}

func (c *QueryCache) miss() {
	if c.recorder != nil {
		c.recorder.CacheMiss(c.name)
	}
}
