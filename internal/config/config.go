package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Cache backends
const (
	CacheBackendMemory = "memory"
	CacheBackendBadger = "badger"
)

// MaxRetries is the largest accepted RETRY_MAX_RETRIES
const MaxRetries = 10

type Config struct {
	HTTPServer  HTTPServer
	Frankfurter Frankfurter
	Cache       Cache
	Resilience  Resilience
	Provider    Provider
	Conversion  Conversion
	Log         Log
}

type HTTPServer struct {
	Port            string        `env:"HTTP_PORT" env-default:"8080"`
	ReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT" env-default:"10s"`
	WriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT" env-default:"60s"`
	IdleTimeout     time.Duration `env:"HTTP_IDLE_TIMEOUT" env-default:"60s"`
	ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" env-default:"15s"`
}

type Frankfurter struct {
	URL     string        `env:"FRANKFURTER_URL" env-default:"https://api.frankfurter.dev/"`
	Timeout time.Duration `env:"FRANKFURTER_TIMEOUT" env-default:"10s"`
}

type Cache struct {
	Backend         string        `env:"CACHE_BACKEND" env-default:"memory"`
	CleanupInterval time.Duration `env:"CACHE_CLEANUP_INTERVAL" env-default:"10m"`
}

type Resilience struct {
	MaxRetries       int           `env:"RETRY_MAX_RETRIES" env-default:"3"`
	RetryBaseDelay   time.Duration `env:"RETRY_BASE_DELAY" env-default:"1s"`
	FailureThreshold int           `env:"BREAKER_FAILURE_THRESHOLD" env-default:"2"`
	BreakDuration    time.Duration `env:"BREAKER_BREAK_DURATION" env-default:"1m"`
}

type Provider struct {
	SingleFlight bool `env:"PROVIDER_SINGLE_FLIGHT" env-default:"true"`
}

type Conversion struct {
	BlockedCurrencies string `env:"CONVERSION_BLOCKED_CURRENCIES" env-default:"TRY,PLN,THB,MXN"`
}

type Log struct {
	Level string `env:"LOG_LEVEL" env-default:"INFO"`
}

// Load reads configuration from the environment, after loading .env if present
func Load() (*Config, error) {
	_ = godotenv.Load(".env")

	cfg := &Config{}
	if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to read config from environment: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Cache.Backend {
	case CacheBackendMemory, CacheBackendBadger:
	default:
		return fmt.Errorf("unknown cache backend %q", c.Cache.Backend)
	}

	if c.Resilience.MaxRetries < 0 || c.Resilience.MaxRetries > MaxRetries {
		return fmt.Errorf("RETRY_MAX_RETRIES must be between 0 and %d, got %d", MaxRetries, c.Resilience.MaxRetries)
	}
	if c.Resilience.FailureThreshold < 1 {
		return fmt.Errorf("BREAKER_FAILURE_THRESHOLD must be at least 1, got %d", c.Resilience.FailureThreshold)
	}
	return nil
}

// Blocked returns the currencies excluded from conversion, upper-cased
func (c Conversion) Blocked() []string {
	var codes []string
	for _, code := range strings.Split(c.BlockedCurrencies, ",") {
		code = strings.ToUpper(strings.TrimSpace(code))
		if code != "" {
			codes = append(codes, code)
		}
	}
	return codes
}

// Addr returns the listen address
func (s HTTPServer) Addr() string {
	if strings.Contains(s.Port, ":") {
		return s.Port
	}
	return ":" + s.Port
}
