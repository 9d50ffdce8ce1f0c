package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Env var prefixes that map to nested config sections, e.g.
// MONGO_CONNECT_MODE -> mongo.connect_mode.
var sections = []string{"mongo", "jwt", "redis", "cache", "ratelimit", "log"}

type Config struct {
	Port        string `koanf:"port" validate:"required"`
	GinMode     string `koanf:"gin_mode" validate:"oneof=debug release test"`
	APIBasePath string `koanf:"api_base_path"`
	RequireAuth bool   `koanf:"require_auth"`

	// TrustedProxies lists the proxy addresses or CIDRs whose forwarding
	// headers are believed. Empty trusts none.
	TrustedProxies []string `koanf:"trusted_proxies" validate:"dive,ip|cidr"`

	Mongo     MongoConfig     `koanf:"mongo"`
	JWT       JWTConfig       `koanf:"jwt"`
	Redis     RedisConfig     `koanf:"redis"`
	Cache     CacheConfig     `koanf:"cache"`
	RateLimit RateLimitConfig `koanf:"ratelimit"`
	Log       LogConfig       `koanf:"log"`
}

type MongoConfig struct {
	URI         string        `koanf:"uri" validate:"required"`
	Database    string        `koanf:"database"`
	ConnectMode string        `koanf:"connect_mode" validate:"oneof=per_request pooled"`
	Timeout     time.Duration `koanf:"timeout" validate:"gt=0"`
}

type JWTConfig struct {
	Secret string        `koanf:"secret" validate:"required,min=16"`
	Expiry time.Duration `koanf:"expiry" validate:"gt=0"`
}

// RedisConfig is optional; an empty URL disables caching and the Redis
// backed rate limiter.
type RedisConfig struct {
	URL          string        `koanf:"url"`
	PoolSize     int           `koanf:"pool_size" validate:"gte=1"`
	MinIdleConns int           `koanf:"min_idle_conns"`
	DialTimeout  time.Duration `koanf:"dial_timeout"`
	ReadTimeout  time.Duration `koanf:"read_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout"`
}

type CacheConfig struct {
	TTL     time.Duration `koanf:"ttl"`
	ListTTL time.Duration `koanf:"list_ttl"`
}

type RateLimitConfig struct {
	Enabled           bool `koanf:"enabled"`
	LoginPerMinute    int  `koanf:"login_per_minute" validate:"gte=1"`
	RegisterPerMinute int  `koanf:"register_per_minute" validate:"gte=1"`
}

type LogConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error fatal panic"`
	Format string `koanf:"format" validate:"oneof=json text"`
	File   string `koanf:"file"`
}

func defaults() *Config {
	return &Config{
		Port:    "8080",
		GinMode: "release",
		Mongo: MongoConfig{
			ConnectMode: "per_request",
			Timeout:     10 * time.Second,
		},
		JWT: JWTConfig{
			Expiry: 24 * time.Hour,
		},
		Redis: RedisConfig{
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Cache: CacheConfig{
			TTL:     30 * time.Second,
			ListTTL: 2 * time.Minute,
		},
		RateLimit: RateLimitConfig{
			Enabled:           true,
			LoginPerMinute:    5,
			RegisterPerMinute: 3,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads an optional .env file, maps the process environment onto Config
// and validates it. MONGO_URI and JWT_SECRET have no defaults.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	k := koanf.New(".")
	if err := k.Load(env.ProviderWithValue("", ".", envValue), nil); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	cfg := defaults()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	cfg.APIBasePath = strings.TrimRight(cfg.APIBasePath, "/")
	return cfg, nil
}

// envValue maps an env var to its config key. List settings are comma
// separated.
func envValue(k, v string) (string, interface{}) {
	key := envKey(k)
	if key != "trusted_proxies" {
		return key, v
	}
	var list []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			list = append(list, item)
		}
	}
	return key, list
}

func envKey(s string) string {
	key := strings.ToLower(s)
	for _, section := range sections {
		if strings.HasPrefix(key, section+"_") {
			return section + "." + strings.TrimPrefix(key, section+"_")
		}
	}
	return key
}
