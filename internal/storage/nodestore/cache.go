package nodestore

import (
	"container/list"
	"sync"
	"time"

	"github.com/LeJamon/goledgerd/internal/core/types"
)

// cacheEntry represents an entry in the LRU cache.
type cacheEntry struct {
	key       types.Hash256
	node      *Node
	expiresAt time.Time
}

func (e *cacheEntry) isExpired() bool {
	return time.Now().After(e.expiresAt)
}

// Cache implements an LRU cache with TTL support for the node store.
type Cache struct {
	mu sync.Mutex

	maxSize int
	ttl     time.Duration

	items map[types.Hash256]*list.Element
	lru   *list.List

	hits   uint64
	misses uint64
}

// NewCache creates a new LRU cache with the specified configuration.
func NewCache(maxSize int, ttl time.Duration) *Cache {
	return &Cache{
		maxSize: maxSize,
		ttl:     ttl,
		items:   make(map[types.Hash256]*list.Element),
		lru:     list.New(),
	}
}

// Get retrieves a node from the cache.
func (c *Cache) Get(hash types.Hash256) (*Node, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	element, found := c.items[hash]
	if !found {
		c.misses++
		return nil, false
	}

	entry := element.Value.(*cacheEntry)
	if entry.isExpired() {
		c.removeLocked(element)
		c.misses++
		return nil, false
	}

	c.lru.MoveToFront(element)
	c.hits++
	return entry.node, true
}

// Put inserts a node, evicting the least recently used entry when full.
func (c *Cache) Put(node *Node) {
	if c.maxSize <= 0 || node == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if element, found := c.items[node.Hash]; found {
		entry := element.Value.(*cacheEntry)
		entry.node = node
		entry.expiresAt = time.Now().Add(c.ttl)
		c.lru.MoveToFront(element)
		return
	}

	entry := &cacheEntry{
		key:       node.Hash,
		node:      node,
		expiresAt: time.Now().Add(c.ttl),
	}
	c.items[node.Hash] = c.lru.PushFront(entry)

	for c.lru.Len() > c.maxSize {
		c.removeLocked(c.lru.Back())
	}
}

// Sweep drops expired entries.
func (c *Cache) Sweep() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for element := c.lru.Back(); element != nil; {
		prev := element.Prev()
		if element.Value.(*cacheEntry).isExpired() {
			c.removeLocked(element)
		}
		element = prev
	}
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

// Stats returns hit and miss counts.
func (c *Cache) Stats() (hits, misses uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}

func (c *Cache) removeLocked(element *list.Element) {
	if element == nil {
		return
	}
	entry := element.Value.(*cacheEntry)
	delete(c.items, entry.key)
	c.lru.Remove(element)
}
