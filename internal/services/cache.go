package services

import (
	"context"
	"time"

	"fleet-manager/pkg/cache"

	"github.com/sirupsen/logrus"
)

// cacheSupport is embedded by services that read through or invalidate the
// shared cache. Every method is a no-op when no cache manager is set.
type cacheSupport struct {
	cacheManager cache.CacheManager
	cacheConfig  cache.CacheConfig
}

// SetCacheManager allows setting the cache manager for caching operations
func (c *cacheSupport) SetCacheManager(cacheManager cache.CacheManager) {
	c.cacheManager = cacheManager
}

// SetCacheConfig allows setting custom cache configuration
func (c *cacheSupport) SetCacheConfig(config cache.CacheConfig) {
	c.cacheConfig = config
}

func (c *cacheSupport) cached(ctx context.Context, key string, dest interface{}) bool {
	if c.cacheManager == nil {
		return false
	}
	hit, err := c.cacheManager.Get(ctx, key, dest)
	if err != nil {
		logrus.WithError(err).WithField("key", key).Warn("cache read failed")
		return false
	}
	return hit
}

func (c *cacheSupport) store(ctx context.Context, key string, value interface{}, ttl time.Duration, tags ...string) {
	if c.cacheManager == nil {
		return
	}
	if err := c.cacheManager.Set(ctx, key, value, ttl, tags...); err != nil {
		logrus.WithError(err).WithField("key", key).Warn("cache write failed")
	}
}

func (c *cacheSupport) invalidate(ctx context.Context, tags ...string) {
	if c.cacheManager == nil {
		return
	}
	for _, tag := range tags {
		if err := c.cacheManager.InvalidateByTag(ctx, tag); err != nil {
			logrus.WithError(err).WithField("tag", tag).Warn("cache invalidation failed")
		}
	}
}
