package ratelimit

import (
	"time"

	"fleet-manager/internal/config"
)

const DefaultCategory = "default"

// Config holds the configuration for rate limiting
type Config struct {
	// Limits per category; categories without an entry use "default".
	DefaultLimits map[string]RateLimit `json:"defaultLimits"`

	// Redis key prefix for rate limiting data
	RedisKeyPrefix string `json:"redisKeyPrefix"`

	// Cleanup interval for idle in-memory buckets
	CleanupInterval time.Duration `json:"cleanupInterval"`

	Enabled bool `json:"enabled"`
}

// DefaultConfig returns a default rate limiting configuration
func DefaultConfig() *Config {
	return &Config{
		DefaultLimits: map[string]RateLimit{
			"auth_login":    {RequestsPerMinute: 5, BurstSize: 5, WindowSize: time.Minute},
			"auth_register": {RequestsPerMinute: 3, BurstSize: 3, WindowSize: time.Minute},
			"health":        {RequestsPerMinute: 1000, BurstSize: 100, WindowSize: time.Minute},
			DefaultCategory: {RequestsPerMinute: 60, BurstSize: 15, WindowSize: time.Minute},
		},
		RedisKeyPrefix:  "ratelimit:",
		CleanupInterval: 5 * time.Minute,
		Enabled:         true,
	}
}

// NewConfig applies the application's rate limit settings to the defaults.
func NewConfig(cfg config.RateLimitConfig) *Config {
	c := DefaultConfig()
	c.Enabled = cfg.Enabled
	if cfg.LoginPerMinute > 0 {
		c.DefaultLimits["auth_login"] = RateLimit{RequestsPerMinute: cfg.LoginPerMinute, BurstSize: cfg.LoginPerMinute, WindowSize: time.Minute}
	}
	if cfg.RegisterPerMinute > 0 {
		c.DefaultLimits["auth_register"] = RateLimit{RequestsPerMinute: cfg.RegisterPerMinute, BurstSize: cfg.RegisterPerMinute, WindowSize: time.Minute}
	}
	return c
}

// LimitFor returns the limit for a category, falling back to the default.
func (c *Config) LimitFor(category string) RateLimit {
	if limit, ok := c.DefaultLimits[category]; ok {
		return limit
	}
	if limit, ok := c.DefaultLimits[DefaultCategory]; ok {
		return limit
	}
	return RateLimit{RequestsPerMinute: 60, BurstSize: 15, WindowSize: time.Minute}
}
