package memocache

import (
	"container/list"
	"sync"
	"time"
)

// Metrics is a point-in-time snapshot of cache effectiveness counters.
type Metrics struct {
	Hits      int64
	Misses    int64
	Evictions int64
	Size      int
}

// HitRate returns the fraction of lookups served from the cache, in [0, 1].
func (m Metrics) HitRate() float64 {
	total := m.Hits + m.Misses
	if total == 0 {
		return 0
	}
	return float64(m.Hits) / float64(total)
}

type entry[K comparable, V any] struct {
	key       K
	value     V
	expiresAt time.Time
}

// Cache is a bounded TTL+LRU cache. A zero maxSize means unbounded; a zero
// ttl means entries never expire. All operations hold a single coarse lock,
// so concurrent callers never observe a torn or duplicated entry.
type Cache[K comparable, V any] struct {
	mu        sync.Mutex
	maxSize   int
	ttl       time.Duration
	order     *list.List
	index     map[K]*list.Element
	hits      int64
	misses    int64
	evictions int64

	// now is swappable for expiry tests.
	now func() time.Time
}

// New constructs a cache holding at most maxSize entries, each valid for ttl
// after its last Set.
func New[K comparable, V any](maxSize int, ttl time.Duration) *Cache[K, V] {
	return &Cache[K, V]{
		maxSize: maxSize,
		ttl:     ttl,
		order:   list.New(),
		index:   make(map[K]*list.Element),
		now:     time.Now,
	}
}

// Get returns the cached value for key. An expired entry is purged and
// reported as a miss. A hit refreshes the entry's recency, not its TTL.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	elem, ok := c.index[key]
	if !ok {
		c.misses++
		return zero, false
	}
	ent := elem.Value.(*entry[K, V])
	if !ent.expiresAt.IsZero() && !c.now().Before(ent.expiresAt) {
		c.order.Remove(elem)
		delete(c.index, key)
		c.misses++
		return zero, false
	}
	c.order.MoveToFront(elem)
	c.hits++
	return ent.value, true
}

// Set stores value under key, resetting its TTL. If the insert would exceed
// the size bound, the least-recently-touched entry is evicted first.
func (c *Cache[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var expiresAt time.Time
	if c.ttl > 0 {
		expiresAt = c.now().Add(c.ttl)
	}

	if elem, ok := c.index[key]; ok {
		ent := elem.Value.(*entry[K, V])
		ent.value = value
		ent.expiresAt = expiresAt
		c.order.MoveToFront(elem)
		return
	}

	if c.maxSize > 0 && c.order.Len() >= c.maxSize {
		oldest := c.order.Back()
		if oldest != nil {
			c.order.Remove(oldest)
			delete(c.index, oldest.Value.(*entry[K, V]).key)
			c.evictions++
		}
	}

	c.index[key] = c.order.PushFront(&entry[K, V]{key: key, value: value, expiresAt: expiresAt})
}

// Delete removes key if present.
func (c *Cache[K, V]) Delete(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.index[key]; ok {
		c.order.Remove(elem)
		delete(c.index, key)
	}
}

// Flush discards all entries. Counters are preserved.
func (c *Cache[K, V]) Flush() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.order.Init()
	clear(c.index)
}

// Len reports the number of resident entries, including any not yet purged
// after expiry.
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Metrics returns a snapshot of the cache counters.
func (c *Cache[K, V]) Metrics() Metrics {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Metrics{
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
		Size:      c.order.Len(),
	}
}

// SetClock replaces the cache's time source. Intended for tests.
func (c *Cache[K, V]) SetClock(now func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}
