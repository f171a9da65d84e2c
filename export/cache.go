package export

import (
	"container/list"
	"sync"
)

// lruCache implements a thread-safe LRU cache
type lruCache[K comparable, V any] struct {
	size      int
	evictList *list.List
	items     map[K]*list.Element
	mu        sync.Mutex
}

// entry is stored in the cache
type entry[K comparable, V any] struct {
	key   K
	value V
}

// newLRUCache creates a new LRU cache with the given size
func newLRUCache[K comparable, V any](size int) *lruCache[K, V] {
	if size <= 0 {
		size = 1
	}
	return &lruCache[K, V]{
		size:      size,
		evictList: list.New(),
		items:     make(map[K]*list.Element),
	}
}

// Get retrieves a value from the cache
func (c *lruCache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	node, exists := c.items[key]
	if !exists {
		var zero V
		return zero, false
	}

	// Move to front (most recently used)
	c.evictList.MoveToFront(node)
	return node.Value.(*entry[K, V]).value, true
}

// Put adds or updates a value in the cache
func (c *lruCache[K, V]) Put(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if node, exists := c.items[key]; exists {
		c.evictList.MoveToFront(node)
		node.Value.(*entry[K, V]).value = value
		return
	}

	node := c.evictList.PushFront(&entry[K, V]{key: key, value: value})
	c.items[key] = node

	if c.evictList.Len() > c.size {
		c.removeOldest()
	}
}

// removeOldest removes the least recently used item
func (c *lruCache[K, V]) removeOldest() {
	node := c.evictList.Back()
	if node != nil {
		c.evictList.Remove(node)
		delete(c.items, node.Value.(*entry[K, V]).key)
	}
}

// Len returns the number of items in the cache
func (c *lruCache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.evictList.Len()
}
