package config

import (
	"fmt"
	"time"

	"github.com/schemaloop/schemaloop/types"
)

// Config is the complete library configuration.
type Config struct {
	Extraction ExtractionConfig `yaml:"extraction" env:"EXTRACTION"`
	Retry      RetryConfig      `yaml:"retry" env:"RETRY"`
	Cache      CacheConfig      `yaml:"cache" env:"CACHE"`
	Redis      RedisConfig      `yaml:"redis" env:"REDIS"`
	Log        LogConfig        `yaml:"log" env:"LOG"`
}

// ExtractionConfig shapes the provider request and validation policy.
type ExtractionConfig struct {
	// Model is the provider model identifier.
	Model string `yaml:"model" env:"MODEL"`
	// Mode is the structured-output wire convention.
	Mode string `yaml:"mode" env:"MODE"`
	// MaxTokens caps the completion length. 0 leaves it to the provider.
	MaxTokens int `yaml:"max_tokens" env:"MAX_TOKENS"`
	// Strict rejects unknown fields in candidates.
	Strict bool `yaml:"strict" env:"STRICT"`
}

// RetryConfig configures the reask budget.
type RetryConfig struct {
	// MaxAttempts is the total attempt ceiling, not a retry count.
	MaxAttempts int `yaml:"max_attempts" env:"MAX_ATTEMPTS"`
	// Backoff enables the exponential inter-attempt delay. Off, the
	// budget is a plain attempt counter.
	Backoff      bool          `yaml:"backoff" env:"BACKOFF"`
	InitialDelay time.Duration `yaml:"initial_delay" env:"INITIAL_DELAY"`
	MaxDelay     time.Duration `yaml:"max_delay" env:"MAX_DELAY"`
	Multiplier   float64       `yaml:"multiplier" env:"MULTIPLIER"`
	Jitter       bool          `yaml:"jitter" env:"JITTER"`
}

// CacheConfig configures the result cache tiers.
type CacheConfig struct {
	Enabled      bool          `yaml:"enabled" env:"ENABLED"`
	LocalMaxSize int           `yaml:"local_max_size" env:"LOCAL_MAX_SIZE"`
	LocalTTL     time.Duration `yaml:"local_ttl" env:"LOCAL_TTL"`
	RedisTTL     time.Duration `yaml:"redis_ttl" env:"REDIS_TTL"`
	UseRedis     bool          `yaml:"use_redis" env:"USE_REDIS"`
}

// RedisConfig configures the shared cache tier connection.
type RedisConfig struct {
	Addr     string `yaml:"addr" env:"ADDR"`
	Password string `yaml:"password" env:"PASSWORD"`
	DB       int    `yaml:"db" env:"DB"`
	PoolSize int    `yaml:"pool_size" env:"POOL_SIZE"`
}

// LogConfig configures logging.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level" env:"LEVEL"`
	// Format is json or console.
	Format string `yaml:"format" env:"FORMAT"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Extraction: ExtractionConfig{
			Model:     "gpt-4o",
			Mode:      string(types.ModeToolCall),
			MaxTokens: 0,
			Strict:    false,
		},
		Retry: RetryConfig{
			MaxAttempts:  3,
			Backoff:      false,
			InitialDelay: 500 * time.Millisecond,
			MaxDelay:     10 * time.Second,
			Multiplier:   2.0,
			Jitter:       true,
		},
		Cache: CacheConfig{
			Enabled:      false,
			LocalMaxSize: 1000,
			LocalTTL:     5 * time.Minute,
			RedisTTL:     time.Hour,
			UseRedis:     false,
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			DB:       0,
			PoolSize: 10,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Validate checks cross-field consistency.
func (c *Config) Validate() error {
	if c.Extraction.Model == "" {
		return fmt.Errorf("extraction.model must not be empty")
	}
	if mode := types.Mode(c.Extraction.Mode); !mode.Valid() {
		return fmt.Errorf("extraction.mode %q is not a known mode", c.Extraction.Mode)
	}
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("retry.max_attempts must be at least 1, got %d", c.Retry.MaxAttempts)
	}
	if c.Retry.Backoff && c.Retry.Multiplier < 1.0 {
		return fmt.Errorf("retry.multiplier must be at least 1.0, got %v", c.Retry.Multiplier)
	}
	if c.Cache.Enabled && c.Cache.UseRedis && c.Redis.Addr == "" {
		return fmt.Errorf("redis.addr required when cache.use_redis is set")
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level %q is not one of debug, info, warn, error", c.Log.Level)
	}
	return nil
}

// Mode returns the configured mode as its typed form.
func (c *Config) Mode() types.Mode {
	return types.Mode(c.Extraction.Mode)
}
