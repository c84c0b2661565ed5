package pricing

import (
	"sync"
	"time"
)

// PriceCache caches resolved prices, including misses, to reduce API calls
type PriceCache struct {
	data  map[string]*cacheEntry
	ttl   time.Duration
	mutex sync.RWMutex
}

type cacheEntry struct {
	price     *float64
	expiresAt time.Time
}

func NewPriceCache(ttl time.Duration) *PriceCache {
	return &PriceCache{
		data: make(map[string]*cacheEntry),
		ttl:  ttl,
	}
}

// Get returns the cached price and whether the key was present
func (c *PriceCache) Get(key string) (*float64, bool) {
	c.mutex.RLock()
	entry, exists := c.data[key]
	c.mutex.RUnlock()

	if !exists {
		return nil, false
	}

	if time.Now().After(entry.expiresAt) {
		// Expired
		c.mutex.Lock()
		delete(c.data, key)
		c.mutex.Unlock()
		return nil, false
	}

	return entry.price, true
}

func (c *PriceCache) Set(key string, price *float64) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.data[key] = &cacheEntry{
		price:     price,
		expiresAt: time.Now().Add(c.ttl),
	}
}

func (c *PriceCache) Clear() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.data = make(map[string]*cacheEntry)
}
