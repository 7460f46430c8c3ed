package openweather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/yanqian/meteo-burkina/internal/domain/weather"
)

const (
	defaultBaseURL = "https://api.openweathermap.org/data/2.5"
	// forecastStride picks one 3-hour slot per day.
	forecastStride = 8
	forecastDays   = 5
)

// ErrNoConditions is returned when the upstream payload has no weather entry.
var ErrNoConditions = errors.New("openweather response has no weather conditions")

// StatusError is a non-2xx answer from OpenWeatherMap.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("weather request error: status=%d body=%s", e.Status, e.Body)
}

// Unwrap exposes weather.ErrLocationNotFound for 404 answers.
func (e *StatusError) Unwrap() error {
	if e.Status == http.StatusNotFound {
		return weather.ErrLocationNotFound
	}
	return nil
}

// callerFault reports errors caused by the request itself. They say nothing
// about upstream health and do not count against the breaker.
func callerFault(err error) bool {
	var statusErr *StatusError
	return errors.As(err, &statusErr) && statusErr.Status >= 400 && statusErr.Status < 500 &&
		statusErr.Status != http.StatusTooManyRequests
}

// Config holds the OpenWeatherMap API settings.
type Config struct {
	APIKey         string
	BaseURL        string
	Units          string
	Lang           string
	Timeout        time.Duration
	BreakerMaxFail uint32
	BreakerTimeout time.Duration
}

// Client fetches current conditions and forecasts from OpenWeatherMap.
type Client struct {
	apiKey     string
	baseURL    string
	units      string
	lang       string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	now        func() time.Time
}

// NewClient builds an API client guarded by a circuit breaker.
func NewClient(cfg Config) *Client {
	base := strings.TrimSpace(cfg.BaseURL)
	if base == "" {
		base = defaultBaseURL
	}
	units := cfg.Units
	if units == "" {
		units = "metric"
	}
	lang := cfg.Lang
	if lang == "" {
		lang = "fr"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	maxFail := cfg.BreakerMaxFail
	if maxFail == 0 {
		maxFail = 5
	}
	openFor := cfg.BreakerTimeout
	if openFor <= 0 {
		openFor = 30 * time.Second
	}
	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimRight(base, "/"),
		units:      units,
		lang:       lang,
		httpClient: &http.Client{Timeout: timeout},
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "openweather",
			Timeout: openFor,
			ReadyToTrip: func(c gobreaker.Counts) bool {
				return c.ConsecutiveFailures >= maxFail
			},
			IsSuccessful: func(err error) bool {
				return err == nil || callerFault(err)
			},
		}),
		now: time.Now,
	}
}

// CurrentWeather returns the present conditions for a city or coordinates.
func (c *Client) CurrentWeather(ctx context.Context, q weather.Query) (weather.Snapshot, error) {
	params := url.Values{}
	if q.ByCoords {
		params.Set("lat", strconv.FormatFloat(q.Lat, 'f', -1, 64))
		params.Set("lon", strconv.FormatFloat(q.Lon, 'f', -1, 64))
	} else {
		params.Set("q", q.City)
	}

	var raw currentResponse
	if err := c.get(ctx, "/weather", params, &raw); err != nil {
		return weather.Snapshot{}, err
	}
	if len(raw.Weather) == 0 {
		return weather.Snapshot{}, ErrNoConditions
	}
	return weather.Snapshot{
		Name:        raw.Name,
		Country:     raw.Sys.Country,
		Temperature: math.Round(raw.Main.Temp),
		FeelsLike:   math.Round(raw.Main.FeelsLike),
		Description: raw.Weather[0].Description,
		Humidity:    raw.Main.Humidity,
		WindSpeed:   math.Round(raw.Wind.Speed * 3.6),
		Icon:        raw.Weather[0].Icon,
		Timestamp:   c.now().UnixMilli(),
	}, nil
}

// Forecast returns up to five daily entries sampled from the 3-hour series.
func (c *Client) Forecast(ctx context.Context, city string) ([]weather.ForecastDay, error) {
	params := url.Values{}
	params.Set("q", city)

	var raw forecastResponse
	if err := c.get(ctx, "/forecast", params, &raw); err != nil {
		return nil, err
	}

	days := make([]weather.ForecastDay, 0, forecastDays)
	for i := 0; i < len(raw.List) && len(days) < forecastDays; i += forecastStride {
		item := raw.List[i]
		day := weather.ForecastDay{
			Date:    weather.DayLabel(time.Unix(item.Dt, 0).UTC()),
			TempMin: math.Round(item.Main.TempMin),
			TempMax: math.Round(item.Main.TempMax),
		}
		if len(item.Weather) > 0 {
			day.Description = item.Weather[0].Description
			day.Icon = item.Weather[0].Icon
		}
		days = append(days, day)
	}
	return days, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	params.Set("appid", c.apiKey)
	params.Set("units", c.units)
	params.Set("lang", c.lang)
	endpoint := c.baseURL + path + "?" + params.Encode()

	body, err := c.breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, fmt.Errorf("build weather request: %w", err)
		}
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("weather request failed: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 300 {
			payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
			return nil, &StatusError{Status: resp.StatusCode, Body: string(payload)}
		}
		return io.ReadAll(resp.Body)
	})
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body.([]byte), out); err != nil {
		return fmt.Errorf("decode weather response: %w", err)
	}
	return nil
}

type condition struct {
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

type currentResponse struct {
	Name string `json:"name"`
	Sys  struct {
		Country string `json:"country"`
	} `json:"sys"`
	Main struct {
		Temp      float64 `json:"temp"`
		FeelsLike float64 `json:"feels_like"`
		Humidity  float64 `json:"humidity"`
	} `json:"main"`
	Wind struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
	Weather []condition `json:"weather"`
}

type forecastResponse struct {
	List []forecastItem `json:"list"`
}

type forecastItem struct {
	Dt   int64 `json:"dt"`
	Main struct {
		TempMin float64 `json:"temp_min"`
		TempMax float64 `json:"temp_max"`
	} `json:"main"`
	Weather []condition `json:"weather"`
}

var _ weather.Provider = (*Client)(nil)
