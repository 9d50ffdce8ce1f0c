package cache

import (
	"context"
	"time"
)

// CacheManager defines the interface for caching operations
type CacheManager interface {
	// Get decodes the cached value into dest and reports whether the key was
	// present.
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	// Set stores value and associates the key with tags for invalidation.
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration, tags ...string) error
	Delete(ctx context.Context, key string) error

	// Tag operations for intelligent invalidation
	InvalidateByTag(ctx context.Context, tag string) error

	// Statistics and health
	GetCacheStats(ctx context.Context) CacheStats
	HealthCheck(ctx context.Context) error
	Close() error
}

// CacheStats provides cache performance metrics
type CacheStats struct {
	HitRate       float64 `json:"hitRate"`
	MissRate      float64 `json:"missRate"`
	MemoryUsage   int64   `json:"memoryUsage"`
	KeyCount      int     `json:"keyCount"`
	EvictionCount int     `json:"evictionCount"`
	TotalHits     int64   `json:"totalHits"`
	TotalMisses   int64   `json:"totalMisses"`
}

// Tags shared by the services that read and invalidate fleet data.
const (
	TagTrucks = "collection:trucks"
	TagTrips  = "collection:trips"
)

func TagTruck(id string) string {
	return "truck:" + id
}
