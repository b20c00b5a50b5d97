package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Storage backends
const (
	BackendLocal  = "local"
	BackendMemory = "memory"
)

// Config holds all application configuration.
type Config struct {
	Server      ServerConfig
	Storage     StorageConfig
	Cache       CacheConfig
	Batch       BatchConfig
	Transaction TransactionConfig
	Logging     LogConfig
	RateLimit   RateLimitConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8000"`
	Host string `envconfig:"HOST" default:"0.0.0.0"`
}

// StorageConfig selects the filesystem the mutation primitives act on.
type StorageConfig struct {
	Root    string `envconfig:"STORAGE_ROOT" default:"/tmp/fsorch"`
	Backend string `envconfig:"STORAGE_BACKEND" default:"local"`
}

// CacheConfig bounds the operation cache.
type CacheConfig struct {
	Capacity int           `envconfig:"CACHE_CAPACITY" default:"1000"`
	TTL      time.Duration `envconfig:"CACHE_TTL" default:"5m"`
}

// BatchConfig holds batch engine limits.
type BatchConfig struct {
	DefaultConcurrency int `envconfig:"BATCH_CONCURRENCY" default:"5"`
	MaxConcurrency     int `envconfig:"BATCH_MAX_CONCURRENCY" default:"64"`
}

// TransactionConfig controls how long finished transactions and batches
// stay queryable.
type TransactionConfig struct {
	Retention time.Duration `envconfig:"TX_RETENTION" default:"1h"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"100"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"200"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "8000",
			Host: "0.0.0.0",
		},
		Storage: StorageConfig{
			Root:    "/tmp/fsorch",
			Backend: BackendLocal,
		},
		Cache: CacheConfig{
			Capacity: 1000,
			TTL:      5 * time.Minute,
		},
		Batch: BatchConfig{
			DefaultConcurrency: 5,
			MaxConcurrency:     64,
		},
		Transaction: TransactionConfig{
			Retention: time.Hour,
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           true,
		},
	}
}

// Validate rejects settings the engines cannot run with.
func (c *Config) Validate() error {
	var errs []error

	switch c.Storage.Backend {
	case BackendLocal:
		if c.Storage.Root == "" {
			errs = append(errs, errors.New("storage root is required for the local backend"))
		}
	case BackendMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown storage backend %q", c.Storage.Backend))
	}

	if c.Cache.Capacity < 1 {
		errs = append(errs, fmt.Errorf("cache capacity must be positive, got %d", c.Cache.Capacity))
	}
	if c.Cache.TTL <= 0 {
		errs = append(errs, fmt.Errorf("cache ttl must be positive, got %s", c.Cache.TTL))
	}
	if c.Batch.DefaultConcurrency < 1 {
		errs = append(errs, fmt.Errorf("batch concurrency must be at least 1, got %d", c.Batch.DefaultConcurrency))
	}
	if c.Batch.MaxConcurrency < c.Batch.DefaultConcurrency {
		errs = append(errs, fmt.Errorf("batch max concurrency %d is below default %d",
			c.Batch.MaxConcurrency, c.Batch.DefaultConcurrency))
	}

	return errors.Join(errs...)
}
