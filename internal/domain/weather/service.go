package weather

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	apperrors "github.com/yanqian/meteo-burkina/pkg/errors"
)

const defaultCacheTTL = 10 * time.Minute

// Service exposes weather lookups for the dashboard.
type Service interface {
	Current(ctx context.Context, city string) (Snapshot, error)
	CurrentByCoords(ctx context.Context, lat, lon float64) (Snapshot, error)
	Forecast(ctx context.Context, city string) ([]ForecastDay, error)
	Dashboard(ctx context.Context, city string) (Dashboard, error)
	Cities(query string) []City
}

type service struct {
	cfg      Config
	provider Provider
	cache    Cache
	logger   *slog.Logger
}

// NewService wires the weather domain. cache may be nil.
func NewService(cfg Config, provider Provider, cache Cache, logger *slog.Logger) Service {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = defaultCacheTTL
	}
	if cfg.DefaultCity == "" {
		cfg.DefaultCity = DefaultCity
	}
	return &service{
		cfg:      cfg,
		provider: provider,
		cache:    cache,
		logger:   logger.With("component", "weather.service"),
	}
}

func (s *service) Current(ctx context.Context, city string) (Snapshot, error) {
	city, err := s.normalizeCity(city)
	if err != nil {
		return Snapshot{}, err
	}
	return s.current(ctx, Query{City: city}, "current:"+strings.ToLower(city))
}

func (s *service) CurrentByCoords(ctx context.Context, lat, lon float64) (Snapshot, error) {
	if lat < -90 || lat > 90 {
		return Snapshot{}, apperrors.Wrap("invalid_input", "latitude must be between -90 and 90", nil)
	}
	if lon < -180 || lon > 180 {
		return Snapshot{}, apperrors.Wrap("invalid_input", "longitude must be between -180 and 180", nil)
	}
	key := fmt.Sprintf("coords:%.2f:%.2f", lat, lon)
	return s.current(ctx, Query{Lat: lat, Lon: lon, ByCoords: true}, key)
}

func (s *service) Forecast(ctx context.Context, city string) ([]ForecastDay, error) {
	city, err := s.normalizeCity(city)
	if err != nil {
		return nil, err
	}
	key := "forecast:" + strings.ToLower(city)
	if s.cache != nil {
		days, ok, err := s.cache.GetForecast(ctx, key)
		if err != nil {
			s.logger.Warn("forecast cache read failed", "key", key, "error", err)
		} else if ok {
			return days, nil
		}
	}
	days, err := s.provider.Forecast(ctx, city)
	if err != nil {
		if errors.Is(err, ErrLocationNotFound) {
			return nil, apperrors.Wrap("not_found", "Ville introuvable", err)
		}
		s.logger.Error("forecast lookup failed", "city", city, "error", err)
		return nil, apperrors.Wrap("weather_error", "Impossible de récupérer les prévisions", err)
	}
	if s.cache != nil {
		if err := s.cache.SaveForecast(ctx, key, days, s.cfg.CacheTTL); err != nil {
			s.logger.Warn("forecast cache write failed", "key", key, "error", err)
		}
	}
	return days, nil
}

func (s *service) Dashboard(ctx context.Context, city string) (Dashboard, error) {
	city, err := s.normalizeCity(city)
	if err != nil {
		return Dashboard{}, err
	}
	var (
		current  Snapshot
		forecast []ForecastDay
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		current, err = s.Current(gctx, city)
		return err
	})
	g.Go(func() error {
		var err error
		forecast, err = s.Forecast(gctx, city)
		return err
	})
	if err := g.Wait(); err != nil {
		return Dashboard{}, err
	}
	return Dashboard{City: city, Current: current, Forecast: forecast}, nil
}

func (s *service) Cities(query string) []City {
	return Cities(query)
}

func (s *service) current(ctx context.Context, q Query, key string) (Snapshot, error) {
	if s.cache != nil {
		snap, ok, err := s.cache.GetSnapshot(ctx, key)
		if err != nil {
			s.logger.Warn("weather cache read failed", "key", key, "error", err)
		} else if ok {
			return snap, nil
		}
	}
	snap, err := s.provider.CurrentWeather(ctx, q)
	if err != nil {
		if errors.Is(err, ErrLocationNotFound) {
			return Snapshot{}, apperrors.Wrap("not_found", "Ville introuvable", err)
		}
		s.logger.Error("current weather lookup failed", "key", key, "error", err)
		return Snapshot{}, apperrors.Wrap("weather_error", "Impossible de récupérer la météo", err)
	}
	if s.cache != nil {
		if err := s.cache.SaveSnapshot(ctx, key, snap, s.cfg.CacheTTL); err != nil {
			s.logger.Warn("weather cache write failed", "key", key, "error", err)
		}
	}
	return snap, nil
}

func (s *service) normalizeCity(city string) (string, error) {
	city = strings.TrimSpace(city)
	if city == "" {
		return "", apperrors.Wrap("invalid_input", "Le nom de la ville est requis", nil)
	}
	if known, ok := LookupCity(city); ok {
		return known.Name, nil
	}
	return city, nil
}
