package weather

import (
	"context"
	"errors"
	"time"
)

// ErrLocationNotFound is returned by a Provider when the upstream API does not
// know the requested city.
var ErrLocationNotFound = errors.New("weather location not found")

// Provider fetches live conditions from the upstream weather API.
type Provider interface {
	CurrentWeather(ctx context.Context, q Query) (Snapshot, error)
	Forecast(ctx context.Context, city string) ([]ForecastDay, error)
}

// Cache keeps recent upstream responses to spare the API quota.
type Cache interface {
	GetSnapshot(ctx context.Context, key string) (Snapshot, bool, error)
	SaveSnapshot(ctx context.Context, key string, snapshot Snapshot, ttl time.Duration) error
	GetForecast(ctx context.Context, key string) ([]ForecastDay, bool, error)
	SaveForecast(ctx context.Context, key string, days []ForecastDay, ttl time.Duration) error
}
