// Package cache memoizes rule resolution. Keys encode the source types, target
// type and strategy of a request, so the key space is small and bounded by the
// type lattice.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/freewebtopdf/block-engine/internal/domain"
)

const defaultMaxSize = 256

// entry is one resolution in the recency list. A nil rule records that no rule
// matched the key.
type entry struct {
	key  string
	rule *domain.Rule

	prev *entry
	next *entry
}

// LRUCache implements domain.ResolutionCache with least-recently-used eviction
type LRUCache struct {
	mutex   sync.Mutex
	maxSize int
	size    int

	// sentinels; head.next is the most recent entry
	head *entry
	tail *entry

	cache map[string]*entry

	hits      int64
	misses    int64
	evictions int64
}

// NewLRUCache creates a cache holding at most maxSize resolutions
func NewLRUCache(maxSize int) *LRUCache {
	if maxSize <= 0 {
		maxSize = defaultMaxSize
	}

	c := &LRUCache{
		maxSize: maxSize,
		head:    &entry{},
		tail:    &entry{},
		cache:   make(map[string]*entry, maxSize),
	}
	c.head.next = c.tail
	c.tail.prev = c.head
	return c
}

// Get returns a copy of the cached rule. found is true for cached misses too, in
// which case the rule is nil.
func (c *LRUCache) Get(key string) (rule *domain.Rule, found bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	e, ok := c.cache[key]
	if !ok {
		c.misses++
		return nil, false
	}

	c.hits++
	c.unlink(e)
	c.pushFront(e)
	return copyRule(e.rule), true
}

// Set records the resolution of key; rule may be nil
func (c *LRUCache) Set(key string, rule *domain.Rule) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if e, ok := c.cache[key]; ok {
		e.rule = copyRule(rule)
		c.unlink(e)
		c.pushFront(e)
		return
	}

	e := &entry{key: key, rule: copyRule(rule)}
	c.pushFront(e)
	c.cache[key] = e
	c.size++

	for c.size > c.maxSize {
		oldest := c.tail.prev
		c.unlink(oldest)
		delete(c.cache, oldest.key)
		c.size--
		c.evictions++
	}
}

// Invalidate drops one key
func (c *LRUCache) Invalidate(key string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if e, ok := c.cache[key]; ok {
		c.unlink(e)
		delete(c.cache, key)
		c.size--
	}
}

// Clear drops every entry and resets the counters
func (c *LRUCache) Clear() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.head.next = c.tail
	c.tail.prev = c.head
	c.cache = make(map[string]*entry, c.maxSize)
	c.size = 0
	c.hits, c.misses, c.evictions = 0, 0, 0
}

// Stats returns a snapshot of the counters
func (c *LRUCache) Stats() domain.CacheStats {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	stats := domain.CacheStats{
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
		Size:      c.size,
		MaxSize:   c.maxSize,
	}
	if lookups := c.hits + c.misses; lookups > 0 {
		stats.HitRatio = float64(c.hits) / float64(lookups)
	}
	return stats
}

// HealthCheck reports degraded once the cache is full: the type combinations in
// use outgrew the configured size and resolutions start being recomputed.
func (c *LRUCache) HealthCheck(ctx context.Context) domain.HealthStatus {
	stats := c.Stats()
	status := domain.HealthStatus{
		Status:    domain.HealthStatusHealthy,
		Message:   "Resolution cache is operating normally",
		Details:   stats.Map(),
		Timestamp: time.Now(),
	}

	if stats.Size >= stats.MaxSize {
		status.Status = domain.HealthStatusDegraded
		status.Message = "Resolution cache is at capacity"
		status.Details["warning"] = "Increase ENGINE_RESOLUTION_CACHE_SIZE"
	}
	return status
}

func (c *LRUCache) pushFront(e *entry) {
	e.prev = c.head
	e.next = c.head.next
	c.head.next.prev = e
	c.head.next = e
}

func (c *LRUCache) unlink(e *entry) {
	e.prev.next = e.next
	e.next.prev = e.prev
}

func copyRule(rule *domain.Rule) *domain.Rule {
	if rule == nil {
		return nil
	}
	copied := *rule
	return &copied
}
