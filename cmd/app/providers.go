package main

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/valkey-io/valkey-go"

	"github.com/yanqian/meteo-burkina/internal/domain/advice"
	"github.com/yanqian/meteo-burkina/internal/domain/auth"
	"github.com/yanqian/meteo-burkina/internal/domain/payment"
	"github.com/yanqian/meteo-burkina/internal/domain/weather"
	"github.com/yanqian/meteo-burkina/internal/infra/config"
	"github.com/yanqian/meteo-burkina/internal/infra/llm/chatgpt"
	"github.com/yanqian/meteo-burkina/internal/infra/llm/gemini"
	"github.com/yanqian/meteo-burkina/internal/infra/mailer"
	"github.com/yanqian/meteo-burkina/internal/infra/openweather"
	"github.com/yanqian/meteo-burkina/internal/infra/paydunya"
	"github.com/yanqian/meteo-burkina/internal/infra/subscriptionrepo"
	"github.com/yanqian/meteo-burkina/internal/infra/userrepo"
	"github.com/yanqian/meteo-burkina/internal/infra/weathercache"
	"github.com/yanqian/meteo-burkina/pkg/metrics"
)

const pingAttempts = 3

func provideTokenCounter(cfg *config.Config, logger *slog.Logger) *metrics.TokenCounter {
	return metrics.NewTokenCounter(cfg.LLM.Tokenizer, logger)
}

func provideWeatherConfig(cfg *config.Config) weather.Config {
	return weather.Config{
		CacheTTL:    cfg.Weather.CacheTTL,
		DefaultCity: weather.DefaultCity,
	}
}

func provideWeatherProvider(cfg *config.Config) weather.Provider {
	return openweather.NewClient(openweather.Config{
		APIKey:         cfg.Weather.APIKey,
		BaseURL:        cfg.Weather.BaseURL,
		Units:          cfg.Weather.Units,
		Lang:           cfg.Weather.Lang,
		Timeout:        cfg.Weather.Timeout,
		BreakerMaxFail: cfg.Weather.BreakerMaxFail,
		BreakerTimeout: cfg.Weather.BreakerTimeout,
	})
}

func provideWeatherCache(cfg *config.Config, logger *slog.Logger) weather.Cache {
	if !cfg.Weather.Redis.Enabled {
		return weathercache.NewMemoryCache()
	}
	opt, err := buildValkeyOptions(cfg.Weather.Redis.Addr)
	if err != nil {
		logger.Error("invalid valkey configuration, falling back to memory cache", "error", err)
		return weathercache.NewMemoryCache()
	}
	client, err := valkey.NewClient(opt)
	if err != nil {
		logger.Error("failed to create valkey client, falling back to memory cache", "error", err)
		return weathercache.NewMemoryCache()
	}
	err = pingWithRetry(func(ctx context.Context) error {
		return client.Do(ctx, client.B().Ping().Build()).Error()
	})
	if err != nil {
		logger.Error("valkey ping failed, falling back to memory cache", "error", err)
		client.Close()
		return weathercache.NewMemoryCache()
	}
	logger.Info("weather valkey cache enabled", "addr", cfg.Weather.Redis.Addr)
	return weathercache.NewValkeyCache(client, cfg.Weather.Redis.Prefix)
}

func buildValkeyOptions(addr string) (valkey.ClientOption, error) {
	if strings.Contains(addr, "://") {
		return valkey.ParseURL(addr)
	}
	return valkey.ClientOption{InitAddress: []string{addr}}, nil
}

func provideGenerator(cfg *config.Config, logger *slog.Logger) (advice.Generator, error) {
	if strings.TrimSpace(cfg.LLM.APIKey) == "" {
		logger.Warn("llm api key not set, advice will use the rule engine only")
		return unavailableGenerator{}, nil
	}
	switch strings.ToLower(strings.TrimSpace(cfg.LLM.Provider)) {
	case "openai":
		client, err := chatgpt.NewClient(cfg.LLM.APIKey, cfg.LLM.BaseURL, cfg.LLM.Timeout)
		if err != nil {
			return nil, err
		}
		return chatgpt.NewGenerator(client, cfg.LLM.Model)
	default:
		return gemini.NewGenerator(context.Background(), gemini.Config{
			APIKey:  cfg.LLM.APIKey,
			BaseURL: cfg.LLM.BaseURL,
			Model:   cfg.LLM.Model,
			Timeout: cfg.LLM.Timeout,
		})
	}
}

var errGeneratorUnavailable = errors.New("llm generator not configured")

type unavailableGenerator struct{}

func (unavailableGenerator) Generate(context.Context, advice.GenerationRequest) (string, error) {
	return "", errGeneratorUnavailable
}

func provideAuthConfig(cfg *config.Config) auth.Config {
	return auth.Config{
		Secret:          cfg.Auth.Secret,
		TokenTTL:        cfg.Auth.TokenTTL,
		RefreshTokenTTL: cfg.Auth.RefreshTokenTTL,
		VerificationTTL: cfg.Auth.VerificationTTL,
		PublicBaseURL:   cfg.HTTP.PublicBaseURL,
		Google: auth.GoogleConfig{
			ClientID:             cfg.Auth.Google.ClientID,
			ClientSecret:         cfg.Auth.Google.ClientSecret,
			RedirectURL:          cfg.Auth.Google.RedirectURL,
			TokenEncryptionKey:   cfg.Auth.Google.TokenEncryptionKey,
			PostLoginRedirectURL: cfg.Auth.Google.PostLoginRedirectURL,
		},
	}
}

func provideMailer(cfg *config.Config, logger *slog.Logger) auth.Mailer {
	if strings.TrimSpace(cfg.Mail.Host) == "" {
		logger.Info("mail host not set, verification emails will be logged")
		return mailer.NewLogMailer(logger)
	}
	smtp, err := mailer.NewSMTPMailer(mailer.SMTPConfig{
		Host:     cfg.Mail.Host,
		Port:     cfg.Mail.Port,
		Username: cfg.Mail.Username,
		Password: cfg.Mail.Password,
		From:     cfg.Mail.From,
	})
	if err != nil {
		logger.Error("invalid smtp configuration, verification emails will be logged", "error", err)
		return mailer.NewLogMailer(logger)
	}
	return smtp
}

// providePostgresPool returns nil when no DSN is configured or the database
// is unreachable; repositories then fall back to memory.
func providePostgresPool(cfg *config.Config, logger *slog.Logger) *pgxpool.Pool {
	dsn := strings.TrimSpace(cfg.Postgres.DSN)
	if dsn == "" {
		logger.Info("postgres dsn not set, using memory repositories")
		return nil
	}
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		logger.Error("invalid postgres dsn, using memory repositories", "error", err)
		return nil
	}
	if cfg.Postgres.MaxConns > 0 {
		poolConfig.MaxConns = cfg.Postgres.MaxConns
	}
	if cfg.Postgres.MinConns > 0 {
		poolConfig.MinConns = cfg.Postgres.MinConns
	}
	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		logger.Error("failed to initialize postgres pool, using memory repositories", "error", err)
		return nil
	}
	if err := pingWithRetry(pool.Ping); err != nil {
		logger.Error("postgres ping failed, using memory repositories", "error", err)
		pool.Close()
		return nil
	}
	logger.Info("postgres repositories enabled")
	return pool
}

func provideAuthRepository(pool *pgxpool.Pool) auth.Repository {
	if pool == nil {
		return userrepo.NewMemoryRepository()
	}
	return userrepo.NewPostgresRepository(pool)
}

func provideSubscriptionRepository(pool *pgxpool.Pool) payment.Repository {
	if pool == nil {
		return subscriptionrepo.NewMemoryRepository()
	}
	return subscriptionrepo.NewPostgresRepository(pool)
}

func providePaymentConfig(cfg *config.Config) payment.Config {
	store := cfg.Payment.Store
	return payment.Config{
		Period:        cfg.Payment.SubscriptionPeriod,
		PublicBaseURL: cfg.HTTP.PublicBaseURL,
		Store: payment.Store{
			Name:    store.Name,
			Tagline: store.Tagline,
			Phone:   store.Phone,
			Email:   store.Email,
			Website: store.Website,
		},
	}
}

func providePaymentGateway(cfg *config.Config) payment.Gateway {
	return paydunya.NewClient(paydunya.Config{
		BaseURL:    cfg.Payment.BaseURL,
		MasterKey:  cfg.Payment.MasterKey,
		PrivateKey: cfg.Payment.PrivateKey,
		Token:      cfg.Payment.Token,
		Sandbox:    cfg.Payment.Sandbox,
		Timeout:    cfg.Payment.Timeout,
	})
}

// pingWithRetry retries a startup health check with exponential backoff.
func pingWithRetry(ping func(ctx context.Context) error) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 200 * time.Millisecond
	bo.MaxElapsedTime = 10 * time.Second
	return backoff.Retry(func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return ping(ctx)
	}, backoff.WithMaxRetries(bo, pingAttempts-1))
}
