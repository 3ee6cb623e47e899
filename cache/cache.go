package cache

import (
	"sync"
	"time"

	"safr-server/entities"
)

type cityEntry struct {
	City     entities.City
	CachedAt time.Time
}

// CityCache keeps recently read cities in memory. Cities only change when the
// external seeding and enrichment jobs run, so a short TTL is enough.
type CityCache struct {
	mu      sync.RWMutex
	cities  map[uint]cityEntry
	ttl     time.Duration
	maxSize int
	now     func() time.Time

	hits   uint64
	misses uint64
}

// NewCityCache returns a cache whose entries expire after ttl. maxSize <= 0 means unbounded.
func NewCityCache(ttl time.Duration, maxSize int) *CityCache {
	return &CityCache{
		cities:  make(map[uint]cityEntry),
		ttl:     ttl,
		maxSize: maxSize,
		now:     time.Now,
	}
}

// Get returns a copy of the cached city if present and fresh.
func (cc *CityCache) Get(id uint) (entities.City, bool) {
	cc.mu.Lock()
	defer cc.mu.Unlock()

	entry, ok := cc.cities[id]
	if ok && cc.ttl > 0 && cc.now().Sub(entry.CachedAt) > cc.ttl {
		delete(cc.cities, id)
		ok = false
	}
	if !ok {
		cc.misses++
		return entities.City{}, false
	}
	cc.hits++
	return copyCity(entry.City), true
}

// Set stores a city. When the cache is full, expired entries are dropped first
// and then an arbitrary entry is evicted.
func (cc *CityCache) Set(city entities.City) {
	cc.mu.Lock()
	defer cc.mu.Unlock()

	if _, exists := cc.cities[city.ID]; !exists && cc.maxSize > 0 && len(cc.cities) >= cc.maxSize {
		cc.evictLocked()
	}
	cc.cities[city.ID] = cityEntry{City: copyCity(city), CachedAt: cc.now()}
}

func (cc *CityCache) evictLocked() {
	now := cc.now()
	for id, entry := range cc.cities {
		if cc.ttl > 0 && now.Sub(entry.CachedAt) > cc.ttl {
			delete(cc.cities, id)
		}
	}
	if len(cc.cities) < cc.maxSize {
		return
	}
	for id := range cc.cities {
		delete(cc.cities, id)
		return
	}
}

// Invalidate drops one city.
func (cc *CityCache) Invalidate(id uint) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	delete(cc.cities, id)
}

// Clear drops everything but keeps the hit/miss counters.
func (cc *CityCache) Clear() {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.cities = make(map[uint]cityEntry)
}

// Stats reports the cache size and counters.
func (cc *CityCache) Stats() map[string]interface{} {
	cc.mu.RLock()
	defer cc.mu.RUnlock()

	return map[string]interface{}{
		"entries":     len(cc.cities),
		"hits":        cc.hits,
		"misses":      cc.misses,
		"ttl_seconds": cc.ttl.Seconds(),
	}
}

// copyCity detaches the attribute slice so callers cannot mutate cached state.
func copyCity(c entities.City) entities.City {
	if c.Attributes != nil {
		attrs := make([]entities.CityAttribute, len(c.Attributes))
		copy(attrs, c.Attributes)
		c.Attributes = attrs
	}
	return c
}
