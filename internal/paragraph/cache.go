package paragraph

import (
	"container/list"
	"sync"
	"time"

	"github.com/revisely/revisely/internal/suggestion"
)

const (
	// DefaultTTL is how long a cached paragraph result stays valid.
	DefaultTTL = 5 * time.Minute
	// DefaultCapacity bounds the number of cached paragraphs.
	DefaultCapacity = 100
)

type cacheEntry struct {
	hash        string
	suggestions []suggestion.Suggestion
	storedAt    time.Time
}

// Cache maps paragraph hashes to the suggestions the analysis service
// produced for them. Entries expire after a TTL and the least recently used
// entry is evicted at capacity. The cache is a hint structure: an expired or
// evicted entry is a miss, never an error or a fabricated empty result.
type Cache struct {
	mu       sync.Mutex
	ttl      time.Duration
	capacity int
	entries  map[string]*list.Element
	order    *list.List // front = most recently used
	now      func() time.Time
}

// NewCache creates a cache with the given TTL and capacity; zero values fall
// back to the defaults.
func NewCache(ttl time.Duration, capacity int) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Cache{
		ttl:      ttl,
		capacity: capacity,
		entries:  make(map[string]*list.Element),
		order:    list.New(),
		now:      time.Now,
	}
}

// Get returns the cached suggestions for a paragraph hash. ok is false on
// a miss, including entries that have outlived the TTL.
func (c *Cache) Get(hash string) (suggestions []suggestion.Suggestion, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, found := c.entries[hash]
	if !found {
		return nil, false
	}
	entry := elem.Value.(*cacheEntry)
	if c.now().Sub(entry.storedAt) > c.ttl {
		c.order.Remove(elem)
		delete(c.entries, hash)
		return nil, false
	}
	c.order.MoveToFront(elem)
	return entry.suggestions, true
}

// Put stores the suggestions for a paragraph hash, evicting the least
// recently used entry when at capacity.
func (c *Cache) Put(hash string, suggestions []suggestion.Suggestion) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, found := c.entries[hash]; found {
		entry := elem.Value.(*cacheEntry)
		entry.suggestions = suggestions
		entry.storedAt = c.now()
		c.order.MoveToFront(elem)
		return
	}

	for len(c.entries) >= c.capacity {
		oldest := c.order.Back()
		if oldest == nil {
			break
		}
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*cacheEntry).hash)
	}

	elem := c.order.PushFront(&cacheEntry{
		hash:        hash,
		suggestions: suggestions,
		storedAt:    c.now(),
	})
	c.entries[hash] = elem
}

// Len returns the number of live entries, counting expired ones until they
// are touched.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Clear drops every entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*list.Element)
	c.order.Init()
}
