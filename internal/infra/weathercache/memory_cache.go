package weathercache

import (
	"context"
	"sync"
	"time"

	"github.com/yanqian/meteo-burkina/internal/domain/weather"
)

type entry[T any] struct {
	value     T
	expiresAt time.Time
}

// MemoryCache keeps weather lookups in process memory for tests and single-node runs.
type MemoryCache struct {
	mu        sync.RWMutex
	snapshots map[string]entry[weather.Snapshot]
	forecasts map[string]entry[[]weather.ForecastDay]
	now       func() time.Time
}

// NewMemoryCache constructs an empty cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		snapshots: make(map[string]entry[weather.Snapshot]),
		forecasts: make(map[string]entry[[]weather.ForecastDay]),
		now:       time.Now,
	}
}

// GetSnapshot implements weather.Cache.
func (c *MemoryCache) GetSnapshot(_ context.Context, key string) (weather.Snapshot, bool, error) {
	c.mu.RLock()
	item, ok := c.snapshots[key]
	c.mu.RUnlock()
	if !ok {
		return weather.Snapshot{}, false, nil
	}
	if c.expired(item.expiresAt) {
		c.mu.Lock()
		delete(c.snapshots, key)
		c.mu.Unlock()
		return weather.Snapshot{}, false, nil
	}
	return item.value, true, nil
}

// SaveSnapshot stores the snapshot with an optional TTL.
func (c *MemoryCache) SaveSnapshot(_ context.Context, key string, snapshot weather.Snapshot, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snapshots[key] = entry[weather.Snapshot]{value: snapshot, expiresAt: c.expiry(ttl)}
	return nil
}

// GetForecast implements weather.Cache.
func (c *MemoryCache) GetForecast(_ context.Context, key string) ([]weather.ForecastDay, bool, error) {
	c.mu.RLock()
	item, ok := c.forecasts[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if c.expired(item.expiresAt) {
		c.mu.Lock()
		delete(c.forecasts, key)
		c.mu.Unlock()
		return nil, false, nil
	}
	return append([]weather.ForecastDay(nil), item.value...), true, nil
}

// SaveForecast stores a copy of the forecast with an optional TTL.
func (c *MemoryCache) SaveForecast(_ context.Context, key string, days []weather.ForecastDay, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.forecasts[key] = entry[[]weather.ForecastDay]{
		value:     append([]weather.ForecastDay(nil), days...),
		expiresAt: c.expiry(ttl),
	}
	return nil
}

func (c *MemoryCache) expiry(ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return c.now().Add(ttl)
}

func (c *MemoryCache) expired(ts time.Time) bool {
	if ts.IsZero() {
		return false
	}
	return ts.Before(c.now())
}

var _ weather.Cache = (*MemoryCache)(nil)
