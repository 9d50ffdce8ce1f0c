package cache

import (
	"fleet-manager/internal/config"
	"fleet-manager/pkg/redis"
)

// NewCacheManager creates a Redis-backed cache manager with TTLs taken from
// the application config.
func NewCacheManager(redisClient *redis.Client, cfg config.CacheConfig) CacheManager {
	return NewRedisCacheManager(redisClient.GetClient(), ConfigFrom(cfg))
}

// ConfigFrom applies the configured TTLs to the defaults.
func ConfigFrom(cfg config.CacheConfig) CacheConfig {
	cacheConfig := DefaultCacheConfig()
	if cfg.TTL > 0 {
		cacheConfig.TruckTTL = cfg.TTL
	}
	if cfg.ListTTL > 0 {
		cacheConfig.ListTTL = cfg.ListTTL
	}
	return cacheConfig
}
