package ratelimit

import (
	"context"
	"time"
)

// RateLimiter decides whether a client may make another request in the given
// category. Categories are route names such as "auth_login".
type RateLimiter interface {
	Allow(ctx context.Context, clientID string, category string) (bool, time.Duration, error)
	Limit(category string) RateLimit
	GetStats() RateLimiterStats
}

// RateLimit defines the configuration for rate limiting
type RateLimit struct {
	RequestsPerMinute int           `json:"requestsPerMinute"`
	BurstSize         int           `json:"burstSize"`
	WindowSize        time.Duration `json:"windowSize"`
}

// RateLimiterStats provides statistics about rate limiting
type RateLimiterStats struct {
	TotalRequests   int64 `json:"totalRequests"`
	BlockedRequests int64 `json:"blockedRequests"`
	ActiveClients   int   `json:"activeClients"`
}

// TokenBucket represents a token bucket for rate limiting
type TokenBucket struct {
	Capacity   int       `json:"capacity"`
	Tokens     float64   `json:"tokens"`
	RefillRate int       `json:"refillRate"`
	LastRefill time.Time `json:"lastRefill"`
}
