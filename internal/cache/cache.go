package cache

import (
	"container/list"
	"sync"
	"time"
)

// Cache is a bounded, concurrency-safe lookup cache. Entries are evicted
// least-recently-used first once the size bound is hit, and lazily on TTL
// expiry. Content is never authoritative; callers must tolerate misses.
type Cache[K comparable, V any] interface {
	Get(key K) (V, bool)
	Set(key K, value V, ttl time.Duration)
	Has(key K) bool
	Delete(key K)
	Len() int
}

type lruEntry[K comparable, V any] struct {
	key       K
	value     V
	expiresAt time.Time
}

type lruCache[K comparable, V any] struct {
	mu      sync.Mutex
	maxSize int
	order   *list.List
	items   map[K]*list.Element
}

// NewLRU returns a Cache bounded to maxSize entries. A non-positive size
// falls back to a small default rather than an unbounded cache.
func NewLRU[K comparable, V any](maxSize int) Cache[K, V] {
	if maxSize <= 0 {
		maxSize = 128
	}
	return &lruCache[K, V]{
		maxSize: maxSize,
		order:   list.New(),
		items:   make(map[K]*list.Element),
	}
}

func (c *lruCache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if !ok {
		var zero V
		return zero, false
	}
	entry := elem.Value.(*lruEntry[K, V])
	if !entry.expiresAt.IsZero() && time.Now().After(entry.expiresAt) {
		c.removeLocked(elem)
		var zero V
		return zero, false
	}
	c.order.MoveToFront(elem)
	return entry.value, true
}

func (c *lruCache[K, V]) Set(key K, value V, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = time.Now().Add(ttl)
	}

	if elem, ok := c.items[key]; ok {
		entry := elem.Value.(*lruEntry[K, V])
		entry.value = value
		entry.expiresAt = expiresAt
		c.order.MoveToFront(elem)
		return
	}

	elem := c.order.PushFront(&lruEntry[K, V]{key: key, value: value, expiresAt: expiresAt})
	c.items[key] = elem

	for c.order.Len() > c.maxSize {
		c.removeLocked(c.order.Back())
	}
}

func (c *lruCache[K, V]) Has(key K) bool {
	_, ok := c.Get(key)
	return ok
}

func (c *lruCache[K, V]) Delete(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if elem, ok := c.items[key]; ok {
		c.removeLocked(elem)
	}
}

func (c *lruCache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

func (c *lruCache[K, V]) removeLocked(elem *list.Element) {
	if elem == nil {
		return
	}
	entry := elem.Value.(*lruEntry[K, V])
	delete(c.items, entry.key)
	c.order.Remove(elem)
}
