package speech

import "sync"

const defaultCacheCap = 20

type cacheKey struct {
	text  string
	voice string
}

// Cache keeps recently synthesized audio keyed by text and voice. When full,
// the oldest entry is evicted.
type Cache struct {
	mu      sync.Mutex
	cap     int
	entries map[cacheKey][]byte
	order   []cacheKey
}

// NewCache builds a cache holding up to capacity entries (default 20 when
// capacity is not positive).
func NewCache(capacity int) *Cache {
	if capacity <= 0 {
		capacity = defaultCacheCap
	}
	return &Cache{
		cap:     capacity,
		entries: make(map[cacheKey][]byte),
	}
}

// Get returns the cached audio for the text/voice pair, if present.
func (c *Cache) Get(text, voice string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	audio, ok := c.entries[cacheKey{text, voice}]
	return audio, ok
}

// Put stores audio for the pair, evicting the oldest entry when at capacity.
// Re-storing an existing pair refreshes the bytes without changing its age.
func (c *Cache) Put(text, voice string, audio []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	k := cacheKey{text, voice}
	if _, exists := c.entries[k]; exists {
		c.entries[k] = audio
		return
	}
	if len(c.order) >= c.cap {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}
	c.entries[k] = audio
	c.order = append(c.order, k)
}

// Len reports the number of cached entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
