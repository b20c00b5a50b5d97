package cache

import (
	"container/list"
	"sync"
	"time"
)

// Config bounds a Cache.
type Config struct {
	// Capacity is the maximum number of entries; the least recently used
	// entry is evicted to make room.
	Capacity int

	// TTL is the sliding time-to-live. Every Get or Has restarts it.
	// Zero disables expiry.
	TTL time.Duration

	// Now overrides the clock. Nil means time.Now.
	Now func() time.Time
}

// Stats is a point-in-time view of cache activity.
type Stats struct {
	Hits        uint64 `json:"hits"`
	Misses      uint64 `json:"misses"`
	Evictions   uint64 `json:"evictions"`
	Expirations uint64 `json:"expirations"`
	Size        int    `json:"size"`
	Capacity    int    `json:"capacity"`
}

type entry[K comparable, V any] struct {
	key        K
	value      V
	lastAccess time.Time
	node       *list.Element
}

// Cache is a thread-safe key/value store with LRU eviction and a sliding
// TTL.
type Cache[K comparable, V any] struct {
	capacity int
	ttl      time.Duration
	now      func() time.Time

	mu      sync.Mutex
	entries map[K]*entry[K, V]
	lru     *list.List // front is most recently used

	hits        uint64
	misses      uint64
	evictions   uint64
	expirations uint64
}

// New creates a cache. A capacity below one is treated as one.
func New[K comparable, V any](cfg Config) *Cache[K, V] {
	if cfg.Capacity < 1 {
		cfg.Capacity = 1
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Cache[K, V]{
		capacity: cfg.Capacity,
		ttl:      cfg.TTL,
		now:      cfg.Now,
		entries:  make(map[K]*entry[K, V], cfg.Capacity),
		lru:      list.New(),
	}
}

// Get returns the value for key if present and not expired, refreshing
// its recency and TTL.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.lookup(key)
	if !ok {
		c.misses++
		var zero V
		return zero, false
	}
	c.hits++
	return e.value, true
}

// Has reports whether key is present, with the same refresh as Get.
func (c *Cache[K, V]) Has(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, ok := c.lookup(key)
	return ok
}

// Set inserts or overwrites key, evicting the least recently used entry
// when the cache is full.
func (c *Cache[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if e, ok := c.entries[key]; ok {
		e.value = value
		e.lastAccess = now
		c.lru.MoveToFront(e.node)
		return
	}

	for len(c.entries) >= c.capacity {
		c.evictOldest()
	}

	e := &entry[K, V]{key: key, value: value, lastAccess: now}
	e.node = c.lru.PushFront(e)
	c.entries[key] = e
}

// Delete removes key. It reports whether an entry was present.
func (c *Cache[K, V]) Delete(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return false
	}
	c.remove(e)
	return true
}

// Clear drops every entry. Counters are kept.
func (c *Cache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[K]*entry[K, V], c.capacity)
	c.lru.Init()
}

// Len returns the number of stored entries, expired or not.
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Stats returns a snapshot of the counters.
func (c *Cache[K, V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	return Stats{
		Hits:        c.hits,
		Misses:      c.misses,
		Evictions:   c.evictions,
		Expirations: c.expirations,
		Size:        len(c.entries),
		Capacity:    c.capacity,
	}
}

// lookup must be called with mu held.
func (c *Cache[K, V]) lookup(key K) (*entry[K, V], bool) {
	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}

	now := c.now()
	if c.ttl > 0 && now.Sub(e.lastAccess) > c.ttl {
		c.remove(e)
		c.expirations++
		return nil, false
	}

	e.lastAccess = now
	c.lru.MoveToFront(e.node)
	return e, true
}

func (c *Cache[K, V]) evictOldest() {
	oldest := c.lru.Back()
	if oldest == nil {
		return
	}
	c.remove(oldest.Value.(*entry[K, V]))
	c.evictions++
}

func (c *Cache[K, V]) remove(e *entry[K, V]) {
	c.lru.Remove(e.node)
	delete(c.entries, e.key)
}
