// Package cache memoizes derived read models, currently the per-user
// dashboard summary. Entries age out on a TTL and the least recently read
// key is evicted once the cache is full; a ledger mutation deletes the
// user's entry directly, so the TTL only bounds staleness for entries
// whose invalidation was missed.
package cache

import (
	"container/list"
	"sync"
	"time"
)

// LRUCache is a fixed-capacity cache with per-entry expiry. The zero value
// is not usable; construct with NewLRUCache.
type LRUCache[T any] struct {
	mu    sync.Mutex
	cap   int
	ttl   time.Duration
	index map[string]*list.Element
	order *list.List // front = most recently read
}

type record[T any] struct {
	key      string
	value    T
	deadline time.Time
}

func NewLRUCache[T any](capacity int, ttl time.Duration) *LRUCache[T] {
	return &LRUCache[T]{
		cap:   capacity,
		ttl:   ttl,
		index: make(map[string]*list.Element),
		order: list.New(),
	}
}

// Get returns the cached value for key. An expired entry is removed on
// discovery and reported as a miss.
func (c *LRUCache[T]) Get(key string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero T
	elem, ok := c.index[key]
	if !ok {
		return zero, false
	}

	rec := elem.Value.(*record[T])
	if time.Now().After(rec.deadline) {
		c.evict(elem)
		return zero, false
	}

	c.order.MoveToFront(elem)
	return rec.value, true
}

// Set stores value under key with a fresh deadline, evicting the least
// recently read entry when the cache is at capacity.
func (c *LRUCache[T]) Set(key string, value T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	rec := &record[T]{key: key, value: value, deadline: time.Now().Add(c.ttl)}

	if elem, ok := c.index[key]; ok {
		elem.Value = rec
		c.order.MoveToFront(elem)
		return
	}

	c.index[key] = c.order.PushFront(rec)
	if c.order.Len() > c.cap {
		if oldest := c.order.Back(); oldest != nil {
			c.evict(oldest)
		}
	}
}

// Delete drops the entry for key, if present.
func (c *LRUCache[T]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.index[key]; ok {
		c.evict(elem)
	}
}

// CleanExpired removes every entry past its deadline and reports how many
// were dropped.
func (c *LRUCache[T]) CleanExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	var stale []*list.Element
	for elem := c.order.Front(); elem != nil; elem = elem.Next() {
		if now.After(elem.Value.(*record[T]).deadline) {
			stale = append(stale, elem)
		}
	}
	for _, elem := range stale {
		c.evict(elem)
	}
	return len(stale)
}

// Size reports the number of live entries, expired or not.
func (c *LRUCache[T]) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.index)
}

func (c *LRUCache[T]) evict(elem *list.Element) {
	delete(c.index, elem.Value.(*record[T]).key)
	c.order.Remove(elem)
}
