package weather

import "time"

// Snapshot is the current conditions for one location.
type Snapshot struct {
	Name        string  `json:"name"`
	Country     string  `json:"country"`
	Temperature float64 `json:"temperature"`
	FeelsLike   float64 `json:"feels_like"`
	Description string  `json:"description"`
	Humidity    float64 `json:"humidity"`
	WindSpeed   float64 `json:"wind_speed"`
	Icon        string  `json:"icon"`
	// Timestamp is the capture time in unix milliseconds.
	Timestamp int64 `json:"timestamp"`
}

// CapturedAt converts Timestamp to a time value.
func (s Snapshot) CapturedAt() time.Time {
	return time.UnixMilli(s.Timestamp).UTC()
}

// ForecastDay is one daily entry of the 5-day forecast.
type ForecastDay struct {
	Date        string  `json:"date"`
	TempMin     float64 `json:"temp_min"`
	TempMax     float64 `json:"temp_max"`
	Description string  `json:"description"`
	Icon        string  `json:"icon"`
}

// Dashboard combines current conditions with the forecast for a city.
type Dashboard struct {
	City     string        `json:"city"`
	Current  Snapshot      `json:"current"`
	Forecast []ForecastDay `json:"forecast"`
}

// Query selects a location either by name or by coordinates.
type Query struct {
	City string
	Lat  float64
	Lon  float64
	// ByCoords is set when Lat/Lon should be used instead of City.
	ByCoords bool
}

// Config controls caching of upstream lookups.
type Config struct {
	CacheTTL    time.Duration
	DefaultCity string
}
