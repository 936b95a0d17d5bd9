package scraper

import (
	"container/list"
	"strings"
	"sync"
	"time"
)

// Cache is a TTL response cache bounded by entry count. Insertion beyond the
// bound evicts the oldest entry by insertion order (FIFO, not LRU: a Get does
// not refresh an entry's position).
type Cache struct {
	mu      sync.Mutex
	ttl     time.Duration
	maxSize int
	entries map[string]*list.Element
	order   *list.List
	now     func() time.Time
}

type cacheEntry struct {
	key        string
	value      any
	insertedAt time.Time
}

func NewCache(ttl time.Duration, maxSize int) *Cache {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if maxSize <= 0 {
		maxSize = 500
	}
	return &Cache{
		ttl:     ttl,
		maxSize: maxSize,
		entries: make(map[string]*list.Element),
		order:   list.New(),
		now:     time.Now,
	}
}

// CacheKey normalizes a request signature into an exact-match cache key.
func CacheKey(parts ...string) string {
	norm := make([]string, 0, len(parts))
	for _, p := range parts {
		norm = append(norm, strings.ToLower(strings.TrimSpace(p)))
	}
	return strings.Join(norm, "|")
}

func (c *Cache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	ent := el.Value.(*cacheEntry)
	if c.now().Sub(ent.insertedAt) > c.ttl {
		c.order.Remove(el)
		delete(c.entries, key)
		return nil, false
	}
	return ent.value, true
}

func (c *Cache) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[key]; ok {
		c.order.Remove(el)
		delete(c.entries, key)
	}
	for len(c.entries) >= c.maxSize {
		oldest := c.order.Front()
		if oldest == nil {
			break
		}
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*cacheEntry).key)
	}
	el := c.order.PushBack(&cacheEntry{key: key, value: value, insertedAt: c.now()})
	c.entries[key] = el
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
