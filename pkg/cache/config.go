package cache

import "time"

// CacheConfig holds configuration for cache TTL values and behavior
type CacheConfig struct {
	TruckTTL  time.Duration `json:"truckTTL"`
	ListTTL   time.Duration `json:"listTTL"`
	KeyPrefix string        `json:"keyPrefix"`
	TagPrefix string        `json:"tagPrefix"`
}

// DefaultCacheConfig returns default cache configuration
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		TruckTTL:  30 * time.Second,
		ListTTL:   2 * time.Minute,
		KeyPrefix: "fleet:",
		TagPrefix: "tag:",
	}
}

// tagTTL keeps tag sets alive longer than the entries they point to.
func (c CacheConfig) tagTTL() time.Duration {
	ttl := c.TruckTTL
	if c.ListTTL > ttl {
		ttl = c.ListTTL
	}
	return ttl * 2
}
