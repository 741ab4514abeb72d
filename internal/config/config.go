package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/toko-pricing/internal/shipping"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	DatabaseURL        string
	RedisURL           string
	CORSAllowedOrigins []string
	MigrateOnStart     bool
	ShutdownTimeout    time.Duration

	SettingsCacheTTL time.Duration
	DealConcurrency  int

	LookupBreakerMinRequests  int
	LookupBreakerFailureRatio float64
	LookupBreakerOpenFor      time.Duration

	RateLimitQuoteMax int
	RateLimitWindow   time.Duration
	MaxBodyBytes      int64

	SecurityHeaders bool
	EnableHSTS      bool

	Shipping shipping.Defaults
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		AppEnv:             valueOrDefault(k.String("APP_ENV"), "development"),
		Port:               valueOrDefault(k.String("PORT"), "8080"),
		DatabaseURL:        k.String("DATABASE_URL"),
		RedisURL:           k.String("REDIS_URL"),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),
		MigrateOnStart:     parseBool(k.String("MIGRATE_ON_START")),
		ShutdownTimeout:    parseDuration(k.String("SHUTDOWN_TIMEOUT"), "15s"),

		SettingsCacheTTL: parseDuration(k.String("SETTINGS_CACHE_TTL"), "60s"),
		DealConcurrency:  parseInt(k.String("DEAL_RESOLVE_CONCURRENCY"), 8),

		LookupBreakerMinRequests:  parseInt(k.String("LOOKUP_BREAKER_MIN_REQUESTS"), 5),
		LookupBreakerFailureRatio: parseFloat(k.String("LOOKUP_BREAKER_FAILURE_RATIO"), 0.5),
		LookupBreakerOpenFor:      parseDuration(k.String("LOOKUP_BREAKER_OPEN_FOR"), "30s"),

		RateLimitQuoteMax: parseInt(k.String("RATE_LIMIT_QUOTE_MAX"), 120),
		RateLimitWindow:   parseDuration(k.String("RATE_LIMIT_WINDOW"), "1m"),
		MaxBodyBytes:      int64(parseInt(k.String("HTTP_MAX_BODY_BYTES"), 1<<20)),

		SecurityHeaders: parseBoolDefault(k.String("SECURITY_HEADERS_ENABLED"), true),
		EnableHSTS:      parseBool(k.String("SECURITY_HSTS_ENABLED")),
	}

	var err error
	if cfg.Shipping, err = loadShippingDefaults(k); err != nil {
		return nil, err
	}

	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}

	return cfg, nil
}

func loadShippingDefaults(k *koanf.Koanf) (shipping.Defaults, error) {
	var out shipping.Defaults
	fields := []struct {
		key      string
		fallback string
		dst      *decimal.Decimal
	}{
		{"SHIPPING_DEFAULT_BASE_RATE", "50", &out.BaseRate},
		{"SHIPPING_DEFAULT_REGION_MULTIPLIER", "1", &out.RegionMultiplier},
		{"SHIPPING_DEFAULT_EXPRESS_MULTIPLIER", "1.5", &out.ExpressMultiplier},
		{"SHIPPING_DEFAULT_FREE_THRESHOLD", "1000", &out.FreeShippingThreshold},
		{"SHIPPING_DEFAULT_PER_KG_RATE", "10", &out.PerKgRate},
	}
	for _, f := range fields {
		raw := valueOrDefault(k.String(f.key), f.fallback)
		d, err := decimal.NewFromString(strings.TrimSpace(raw))
		if err != nil {
			return shipping.Defaults{}, fmt.Errorf("%s: %w", f.key, err)
		}
		if d.IsNegative() {
			return shipping.Defaults{}, fmt.Errorf("%s must not be negative", f.key)
		}
		*f.dst = d
	}
	return out, nil
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

func parseBool(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

func parseBoolDefault(value string, fallback bool) bool {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return parseBool(value)
}

func parseInt(value string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func parseFloat(value string, fallback float64) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return fallback
	}
	return f
}

// MustLoad behaves like Load but panics on error. Useful for tests and command entrypoints.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadForTests allows tests to override environment variables without touching the real environment.
func LoadForTests(env map[string]string) (*Config, error) {
	original := make(map[string]string, len(env))
	for key := range env {
		original[key] = os.Getenv(key)
		if err := setEnvVar(key, env[key]); err != nil {
			return nil, err
		}
	}
	cfg, err := Load()
	restoreErr := restoreEnv(original)
	if err != nil {
		return nil, err
	}
	return cfg, restoreErr
}

func setEnvVar(key, value string) error {
	if value == "" {
		return os.Unsetenv(key)
	}
	return os.Setenv(key, value)
}

func restoreEnv(values map[string]string) error {
	var errs []string
	for key, value := range values {
		if err := setEnvVar(key, value); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("restore env: %s", strings.Join(errs, "; "))
	}
	return nil
}
