package cache

import (
	"container/list"
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// lruCache implements a TTL cache with optional LRU bounding
type lruCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	max     int
	now     func() time.Time
	items   map[Key]*list.Element
	lruList *list.List
	hits    uint64
	misses  uint64
}

// cacheEntry represents a single cache entry
type cacheEntry struct {
	key      Key
	value    []byte
	storedAt time.Time
}

// NewLRUCache creates a new cache
func NewLRUCache(config *Config) Cache {
	if config == nil {
		config = DefaultConfig()
	}

	c := &lruCache{
		ttl:     config.TTL,
		max:     config.MaxItems,
		now:     config.Now,
		items:   make(map[Key]*list.Element),
		lruList: list.New(),
	}
	if c.ttl <= 0 {
		c.ttl = DefaultTTL
	}
	if c.now == nil {
		c.now = time.Now
	}

	return c
}

// Get retrieves a value from the cache
func (c *lruCache) Get(ctx context.Context, key Key) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	element, found := c.items[key]
	if !found {
		atomic.AddUint64(&c.misses, 1)
		return nil, false
	}

	entry := element.Value.(*cacheEntry)

	// Valid only while now - storedAt < ttl
	if c.now().Sub(entry.storedAt) >= c.ttl {
		c.removeElement(element)
		atomic.AddUint64(&c.misses, 1)
		return nil, false
	}

	c.lruList.MoveToFront(element)

	atomic.AddUint64(&c.hits, 1)
	return entry.value, true
}

// Set stores a value in the cache
func (c *lruCache) Set(ctx context.Context, key Key, value []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()

	if element, found := c.items[key]; found {
		entry := element.Value.(*cacheEntry)
		entry.value = value
		entry.storedAt = now
		c.lruList.MoveToFront(element)
		return nil
	}

	// Evict least recently used if bounded
	for c.max > 0 && c.lruList.Len() >= c.max {
		c.removeElement(c.lruList.Back())
	}

	entry := &cacheEntry{
		key:      key,
		value:    value,
		storedAt: now,
	}

	c.items[key] = c.lruList.PushFront(entry)

	return nil
}

// Delete removes a value from the cache
func (c *lruCache) Delete(ctx context.Context, key Key) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if element, found := c.items[key]; found {
		c.removeElement(element)
	}

	return nil
}

// Clear removes all values from the cache
func (c *lruCache) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[Key]*list.Element)
	c.lruList = list.New()

	return nil
}

// Stats returns cache statistics
func (c *lruCache) Stats() CacheStats {
	c.mu.Lock()
	items := c.lruList.Len()
	c.mu.Unlock()

	return CacheStats{
		Hits:   atomic.LoadUint64(&c.hits),
		Misses: atomic.LoadUint64(&c.misses),
		Items:  uint64(items),
	}
}

// removeElement removes an element from the cache (must be called with lock held)
func (c *lruCache) removeElement(element *list.Element) {
	entry := element.Value.(*cacheEntry)
	delete(c.items, entry.key)
	c.lruList.Remove(element)
}
