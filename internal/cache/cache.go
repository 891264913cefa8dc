package cache

import (
	"context"
	"sync"
	"time"

	"github.com/kjstillabower/weather-prediction-demo/internal/models"
)

// Cache stores computed predictions keyed by kind and normalized inputs.
// Get returns (value, true, nil) on hit and (zero, false, nil) on miss or expiry.
type Cache interface {
	Get(ctx context.Context, key string) (models.Prediction, bool, error)
	Set(ctx context.Context, key string, value models.Prediction, ttl time.Duration) error
}

// Pinger is implemented by networked backends so health checks can report reachability.
type Pinger interface {
	Ping() error
}

// DefaultMaxEntries bounds an InMemoryCache built by NewInMemoryCache.
const DefaultMaxEntries = 10000

// sweepEvery is the number of writes between sweeps of expired entries.
const sweepEvery = 256

// InMemoryCache implements Cache using a map with TTL-based expiration.
// Expired entries are removed on access and swept periodically on write. Once
// maxEntries is reached the entry closest to expiry is evicted. Safe for concurrent use.
type InMemoryCache struct {
	mu         sync.Mutex
	data       map[string]cacheEntry
	now        func() time.Time
	maxEntries int
	writes     int
}

type cacheEntry struct {
	value     models.Prediction
	expiresAt time.Time
}

// NewInMemoryCache creates a cache holding at most DefaultMaxEntries entries.
func NewInMemoryCache() *InMemoryCache {
	return NewInMemoryCacheSize(DefaultMaxEntries)
}

// NewInMemoryCacheSize creates a cache holding at most maxEntries entries.
// maxEntries <= 0 selects DefaultMaxEntries.
func NewInMemoryCacheSize(maxEntries int) *InMemoryCache {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &InMemoryCache{
		data:       make(map[string]cacheEntry),
		now:        time.Now,
		maxEntries: maxEntries,
	}
}

// Get retrieves the prediction for key if present and not expired.
func (c *InMemoryCache) Get(ctx context.Context, key string) (models.Prediction, bool, error) {
	if err := ctx.Err(); err != nil {
		return models.Prediction{}, false, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.data[key]
	if !ok {
		return models.Prediction{}, false, nil
	}
	if c.now().After(entry.expiresAt) {
		delete(c.data, key)
		return models.Prediction{}, false, nil
	}
	return entry.value, true, nil
}

// Set stores the prediction with the given TTL.
func (c *InMemoryCache) Set(ctx context.Context, key string, value models.Prediction, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	c.writes++
	_, exists := c.data[key]
	if c.writes%sweepEvery == 0 || (!exists && len(c.data) >= c.maxEntries) {
		c.sweep(now)
	}
	if !exists && len(c.data) >= c.maxEntries {
		c.evictSoonest()
	}
	c.data[key] = cacheEntry{
		value:     value,
		expiresAt: now.Add(ttl),
	}
	return nil
}

func (c *InMemoryCache) sweep(now time.Time) {
	for k, e := range c.data {
		if now.After(e.expiresAt) {
			delete(c.data, k)
		}
	}
}

func (c *InMemoryCache) evictSoonest() {
	var victim string
	var soonest time.Time
	for k, e := range c.data {
		if victim == "" || e.expiresAt.Before(soonest) {
			victim, soonest = k, e.expiresAt
		}
	}
	delete(c.data, victim)
}

// Len returns the number of stored entries, expired or not.
func (c *InMemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.data)
}
