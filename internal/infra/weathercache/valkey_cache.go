package weathercache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/valkey-io/valkey-go"

	"github.com/yanqian/meteo-burkina/internal/domain/weather"
)

// ValkeyCache stores weather lookups in a Valkey-compatible database.
type ValkeyCache struct {
	client valkey.Client
	prefix string
}

// NewValkeyCache constructs a cache backed by Valkey.
func NewValkeyCache(client valkey.Client, prefix string) *ValkeyCache {
	if prefix == "" {
		prefix = "meteo"
	}
	return &ValkeyCache{client: client, prefix: prefix}
}

func (c *ValkeyCache) GetSnapshot(ctx context.Context, key string) (weather.Snapshot, bool, error) {
	var snapshot weather.Snapshot
	ok, err := c.getJSON(ctx, c.snapshotKey(key), &snapshot)
	return snapshot, ok, err
}

func (c *ValkeyCache) SaveSnapshot(ctx context.Context, key string, snapshot weather.Snapshot, ttl time.Duration) error {
	return c.setJSON(ctx, c.snapshotKey(key), snapshot, ttl)
}

func (c *ValkeyCache) GetForecast(ctx context.Context, key string) ([]weather.ForecastDay, bool, error) {
	var days []weather.ForecastDay
	ok, err := c.getJSON(ctx, c.forecastKey(key), &days)
	return days, ok, err
}

func (c *ValkeyCache) SaveForecast(ctx context.Context, key string, days []weather.ForecastDay, ttl time.Duration) error {
	return c.setJSON(ctx, c.forecastKey(key), days, ttl)
}

func (c *ValkeyCache) getJSON(ctx context.Context, key string, out any) (bool, error) {
	cmd := c.client.B().Get().Key(key).Build()
	payload, err := c.client.Do(ctx, cmd).ToString()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal([]byte(payload), out); err != nil {
		return false, fmt.Errorf("decode cached %s: %w", key, err)
	}
	return true, nil
}

func (c *ValkeyCache) setJSON(ctx context.Context, key string, value any, ttl time.Duration) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	builder := c.client.B().Set().Key(key).Value(string(payload))
	var cmd valkey.Completed
	if ttl > 0 {
		if ttl < time.Second {
			ttl = time.Second
		}
		cmd = builder.Ex(ttl).Build()
	} else {
		cmd = builder.Build()
	}
	return c.client.Do(ctx, cmd).Error()
}

func (c *ValkeyCache) snapshotKey(key string) string {
	return fmt.Sprintf("%s:weather:%s", c.prefix, key)
}

func (c *ValkeyCache) forecastKey(key string) string {
	return fmt.Sprintf("%s:forecast:%s", c.prefix, key)
}

var _ weather.Cache = (*ValkeyCache)(nil)
