package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const defaultConfigPath = "configs/config.yaml"

// Config aggregates runtime configuration used across the service.
type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	LLM      LLMConfig      `yaml:"llm"`
	Weather  WeatherConfig  `yaml:"weather"`
	Auth     AuthConfig     `yaml:"auth"`
	Mail     MailConfig     `yaml:"mail"`
	Payment  PaymentConfig  `yaml:"payment"`
	Postgres PostgresConfig `yaml:"postgres"`
}

// HTTPConfig controls server level behavior.
type HTTPConfig struct {
	Address        string          `yaml:"address"`
	ReadTimeout    time.Duration   `yaml:"readTimeout"`
	WriteTimeout   time.Duration   `yaml:"writeTimeout"`
	AllowedOrigins []string        `yaml:"allowedOrigins"`
	PublicBaseURL  string          `yaml:"publicBaseUrl"`
	RateLimit      RateLimitConfig `yaml:"rateLimit"`
}

// RateLimitConfig drives the request limiting middleware.
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled"`
	RequestsPerMinute int  `yaml:"requestsPerMinute"`
	Burst             int  `yaml:"burst"`
}

// LLMConfig selects and configures the advice text generator.
type LLMConfig struct {
	// Provider is either "gemini" or "openai".
	Provider  string        `yaml:"provider"`
	APIKey    string        `yaml:"apiKey"`
	BaseURL   string        `yaml:"baseUrl"`
	Model     string        `yaml:"model"`
	Timeout   time.Duration `yaml:"timeout"`
	Tokenizer string        `yaml:"tokenizer"`
}

// WeatherConfig contains OpenWeatherMap and cache settings.
type WeatherConfig struct {
	APIKey         string        `yaml:"apiKey"`
	BaseURL        string        `yaml:"baseUrl"`
	Units          string        `yaml:"units"`
	Lang           string        `yaml:"lang"`
	Timeout        time.Duration `yaml:"timeout"`
	CacheTTL       time.Duration `yaml:"cacheTtl"`
	BreakerMaxFail uint32        `yaml:"breakerMaxFailures"`
	BreakerTimeout time.Duration `yaml:"breakerTimeout"`
	Redis          RedisConfig   `yaml:"redis"`
}

// RedisConfig contains connection information for cache storage.
type RedisConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
	Prefix  string `yaml:"prefix"`
}

// AuthConfig controls JWT and account verification.
type AuthConfig struct {
	Secret          string        `yaml:"secret"`
	TokenTTL        time.Duration `yaml:"tokenTtl"`
	RefreshTokenTTL time.Duration `yaml:"refreshTokenTtl"`
	VerificationTTL time.Duration `yaml:"verificationTtl"`
	Google          GoogleConfig  `yaml:"google"`
}

// GoogleConfig holds OAuth settings for Google sign-in.
type GoogleConfig struct {
	ClientID             string `yaml:"clientId"`
	ClientSecret         string `yaml:"clientSecret"`
	RedirectURL          string `yaml:"redirectUrl"`
	TokenEncryptionKey   string `yaml:"tokenEncryptionKey"`
	PostLoginRedirectURL string `yaml:"postLoginRedirectUrl"`
}

// MailConfig configures the SMTP relay for verification emails.
type MailConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
}

// PaymentConfig configures the PayDunya checkout integration.
type PaymentConfig struct {
	BaseURL            string        `yaml:"baseUrl"`
	MasterKey          string        `yaml:"masterKey"`
	PrivateKey         string        `yaml:"privateKey"`
	PublicKey          string        `yaml:"publicKey"`
	Token              string        `yaml:"token"`
	Sandbox            bool          `yaml:"sandbox"`
	Timeout            time.Duration `yaml:"timeout"`
	SubscriptionPeriod time.Duration `yaml:"subscriptionPeriod"`
	Store              StoreConfig   `yaml:"store"`
}

// StoreConfig is the merchant identity shown on checkout pages.
type StoreConfig struct {
	Name    string `yaml:"name"`
	Tagline string `yaml:"tagline"`
	Phone   string `yaml:"phone"`
	Email   string `yaml:"email"`
	Website string `yaml:"website"`
}

// PostgresConfig contains DSN and pooling settings.
type PostgresConfig struct {
	DSN      string `yaml:"dsn"`
	MaxConns int32  `yaml:"maxConns"`
	MinConns int32  `yaml:"minConns"`
}

// Load reads configuration from defaults, an optional .env file, a YAML
// file and environment variables, in that order.
func Load() (*Config, error) {
	cfg := defaultConfig()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if err := hydrateFromFile(cfg, path); err != nil {
			return nil, err
		}
	} else if _, err := os.Stat(defaultConfigPath); err == nil {
		if err := hydrateFromFile(cfg, defaultConfigPath); err != nil {
			return nil, err
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func hydrateFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	envString("HTTP_ADDRESS", &cfg.HTTP.Address)
	envString("PUBLIC_BASE_URL", &cfg.HTTP.PublicBaseURL)
	if v := os.Getenv("HTTP_ALLOWED_ORIGINS"); v != "" {
		cfg.HTTP.AllowedOrigins = splitList(v)
	}
	envBool("HTTP_RATE_LIMIT_ENABLED", &cfg.HTTP.RateLimit.Enabled)
	envInt("HTTP_RATE_LIMIT_RPM", &cfg.HTTP.RateLimit.RequestsPerMinute)
	envInt("HTTP_RATE_LIMIT_BURST", &cfg.HTTP.RateLimit.Burst)

	envString("LLM_PROVIDER", &cfg.LLM.Provider)
	envString("LLM_API_KEY", &cfg.LLM.APIKey)
	envString("GEMINI_API_KEY", &cfg.LLM.APIKey)
	envString("LLM_BASE_URL", &cfg.LLM.BaseURL)
	envString("LLM_MODEL", &cfg.LLM.Model)
	envString("GEMINI_MODEL", &cfg.LLM.Model)
	envDuration("LLM_TIMEOUT", &cfg.LLM.Timeout)
	envString("LLM_TOKENIZER", &cfg.LLM.Tokenizer)

	envString("OPEN_WEATHER_MAP_API_KEY", &cfg.Weather.APIKey)
	envString("OPEN_WEATHER_MAP_BASE_URL", &cfg.Weather.BaseURL)
	envDuration("WEATHER_CACHE_TTL", &cfg.Weather.CacheTTL)
	envBool("WEATHER_REDIS_ENABLED", &cfg.Weather.Redis.Enabled)
	envString("WEATHER_REDIS_ADDR", &cfg.Weather.Redis.Addr)

	envString("AUTH_SECRET", &cfg.Auth.Secret)
	envDuration("AUTH_TOKEN_TTL", &cfg.Auth.TokenTTL)
	envDuration("AUTH_REFRESH_TOKEN_TTL", &cfg.Auth.RefreshTokenTTL)
	envDuration("AUTH_VERIFICATION_TTL", &cfg.Auth.VerificationTTL)
	envString("GOOGLE_CLIENT_ID", &cfg.Auth.Google.ClientID)
	envString("GOOGLE_CLIENT_SECRET", &cfg.Auth.Google.ClientSecret)
	envString("GOOGLE_REDIRECT_URL", &cfg.Auth.Google.RedirectURL)
	envString("GOOGLE_TOKEN_ENCRYPTION_KEY", &cfg.Auth.Google.TokenEncryptionKey)
	envString("GOOGLE_POST_LOGIN_REDIRECT_URL", &cfg.Auth.Google.PostLoginRedirectURL)

	envString("EMAIL_SERVER_HOST", &cfg.Mail.Host)
	envInt("EMAIL_SERVER_PORT", &cfg.Mail.Port)
	envString("EMAIL_SERVER_USER", &cfg.Mail.Username)
	envString("EMAIL_SERVER_PASSWORD", &cfg.Mail.Password)
	envString("EMAIL_FROM", &cfg.Mail.From)

	envString("PAYDUNYA_BASE_URL", &cfg.Payment.BaseURL)
	envString("PAYDUNYA_MASTER_KEY", &cfg.Payment.MasterKey)
	envString("PAYDUNYA_PRIVATE_KEY", &cfg.Payment.PrivateKey)
	envString("PAYDUNYA_PUBLIC_KEY", &cfg.Payment.PublicKey)
	envString("PAYDUNYA_TOKEN", &cfg.Payment.Token)
	envBool("PAYDUNYA_SANDBOX", &cfg.Payment.Sandbox)
	envDuration("PAYMENT_SUBSCRIPTION_PERIOD", &cfg.Payment.SubscriptionPeriod)

	envString("POSTGRES_DSN", &cfg.Postgres.DSN)
	envString("DATABASE_URL", &cfg.Postgres.DSN)
	if v := os.Getenv("POSTGRES_MAX_CONNS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.MaxConns = int32(parsed)
		}
	}
	if v := os.Getenv("POSTGRES_MIN_CONNS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.MinConns = int32(parsed)
		}
	}
}

func envString(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envInt(key string, dst *int) {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			*dst = parsed
		}
	}
}

func envBool(key string, dst *bool) {
	if v := os.Getenv(key); v != "" {
		*dst = v == "1" || strings.EqualFold(v, "true")
	}
}

func envDuration(key string, dst *time.Duration) {
	if v := os.Getenv(key); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			*dst = parsed
		}
	}
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func defaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Address:        ":8080",
			ReadTimeout:    10 * time.Second,
			WriteTimeout:   30 * time.Second,
			AllowedOrigins: []string{"http://localhost:3000"},
			PublicBaseURL:  "http://localhost:3000",
			RateLimit: RateLimitConfig{
				Enabled:           true,
				RequestsPerMinute: 60,
				Burst:             20,
			},
		},
		LLM: LLMConfig{
			Provider:  "gemini",
			Model:     "gemini-2.0-flash",
			Timeout:   20 * time.Second,
			Tokenizer: "cl100k_base",
		},
		Weather: WeatherConfig{
			BaseURL:        "https://api.openweathermap.org/data/2.5",
			Units:          "metric",
			Lang:           "fr",
			Timeout:        8 * time.Second,
			CacheTTL:       10 * time.Minute,
			BreakerMaxFail: 5,
			BreakerTimeout: 30 * time.Second,
			Redis: RedisConfig{
				Prefix: "meteo",
			},
		},
		Auth: AuthConfig{
			TokenTTL:        time.Hour,
			RefreshTokenTTL: 7 * 24 * time.Hour,
			VerificationTTL: 24 * time.Hour,
		},
		Mail: MailConfig{
			Port: 587,
			From: "Météo App <no-reply@meteo.bf>",
		},
		Payment: PaymentConfig{
			BaseURL:            "https://app.paydunya.com/api/v1",
			Timeout:            15 * time.Second,
			SubscriptionPeriod: 30 * 24 * time.Hour,
			Store: StoreConfig{
				Name:    "Conseils Météo App",
				Tagline: "Vos conseils météo personnalisés",
			},
		},
		Postgres: PostgresConfig{
			MaxConns: 4,
		},
	}
}

// Validate ensures the configuration is safe to use.
func (c *Config) Validate() error {
	if c.HTTP.Address == "" {
		return errors.New("http.address cannot be empty")
	}
	if strings.TrimSpace(c.HTTP.PublicBaseURL) == "" {
		return errors.New("http.publicBaseUrl cannot be empty")
	}
	if c.HTTP.RateLimit.Enabled {
		if c.HTTP.RateLimit.RequestsPerMinute <= 0 {
			return errors.New("http.rateLimit.requestsPerMinute must be positive")
		}
		if c.HTTP.RateLimit.Burst <= 0 {
			return errors.New("http.rateLimit.burst must be positive")
		}
	}
	switch strings.ToLower(strings.TrimSpace(c.LLM.Provider)) {
	case "gemini", "openai":
	default:
		return fmt.Errorf("llm.provider must be gemini or openai, got %q", c.LLM.Provider)
	}
	if strings.TrimSpace(c.LLM.Model) == "" {
		return errors.New("llm.model cannot be empty")
	}
	if strings.TrimSpace(c.Weather.BaseURL) == "" {
		return errors.New("weather.baseUrl cannot be empty")
	}
	if c.Weather.CacheTTL < 0 {
		return errors.New("weather.cacheTtl cannot be negative")
	}
	if c.Weather.Redis.Enabled && strings.TrimSpace(c.Weather.Redis.Addr) == "" {
		return errors.New("weather.redis.addr cannot be empty when redis cache is enabled")
	}
	if strings.TrimSpace(c.Auth.Secret) == "" {
		return errors.New("auth.secret cannot be empty")
	}
	if c.Auth.TokenTTL <= 0 || c.Auth.RefreshTokenTTL <= 0 {
		return errors.New("auth token ttls must be positive")
	}
	if key := c.Auth.Google.TokenEncryptionKey; key != "" {
		switch len(key) {
		case 16, 24, 32:
		default:
			return errors.New("auth.google.tokenEncryptionKey must be 16, 24, or 32 bytes")
		}
	}
	if c.Mail.Host != "" && c.Mail.Port <= 0 {
		return errors.New("mail.port must be positive when mail.host is set")
	}
	if c.Payment.SubscriptionPeriod <= 0 {
		return errors.New("payment.subscriptionPeriod must be positive")
	}
	if c.Postgres.MinConns > c.Postgres.MaxConns && c.Postgres.MaxConns > 0 {
		return errors.New("postgres.minConns cannot exceed postgres.maxConns")
	}
	return nil
}
