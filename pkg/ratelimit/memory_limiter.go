package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// MemoryRateLimiter implements RateLimiter with per-process token buckets.
// It is used when Redis is not configured.
type MemoryRateLimiter struct {
	config  *Config
	stats   RateLimiterStats
	tokens  map[string]*TokenBucket
	mu      sync.Mutex
	stop    chan struct{}
	stopped sync.Once
}

func NewMemoryRateLimiter(config *Config) *MemoryRateLimiter {
	if config == nil {
		config = DefaultConfig()
	}

	limiter := &MemoryRateLimiter{
		config: config,
		tokens: make(map[string]*TokenBucket),
		stop:   make(chan struct{}),
	}

	go limiter.cleanupExpiredTokens()

	return limiter
}

func (r *MemoryRateLimiter) Allow(_ context.Context, clientID string, category string) (bool, time.Duration, error) {
	if !r.config.Enabled {
		return true, 0, nil
	}

	atomic.AddInt64(&r.stats.TotalRequests, 1)

	limit := r.config.LimitFor(category)
	key := fmt.Sprintf("%s:%s", clientID, category)

	r.mu.Lock()
	defer r.mu.Unlock()

	bucket := r.getOrCreateTokenBucket(key, limit)
	now := time.Now()

	// Refill tokens based on time elapsed
	elapsed := now.Sub(bucket.LastRefill)
	bucket.Tokens = minFloat(float64(bucket.Capacity), bucket.Tokens+float64(limit.RequestsPerMinute)*elapsed.Minutes())
	bucket.LastRefill = now

	if bucket.Tokens >= 1 {
		bucket.Tokens--
		return true, 0, nil
	}

	// Time until one whole token is available
	missing := 1 - bucket.Tokens
	resetTime := time.Duration(missing / float64(limit.RequestsPerMinute) * float64(time.Minute))

	atomic.AddInt64(&r.stats.BlockedRequests, 1)
	return false, resetTime, nil
}

func (r *MemoryRateLimiter) getOrCreateTokenBucket(key string, limit RateLimit) *TokenBucket {
	if bucket, exists := r.tokens[key]; exists {
		return bucket
	}

	bucket := &TokenBucket{
		Capacity:   limit.BurstSize,
		Tokens:     float64(limit.BurstSize),
		RefillRate: limit.RequestsPerMinute,
		LastRefill: time.Now(),
	}
	r.tokens[key] = bucket
	return bucket
}

func (r *MemoryRateLimiter) Limit(category string) RateLimit {
	return r.config.LimitFor(category)
}

func (r *MemoryRateLimiter) GetStats() RateLimiterStats {
	r.mu.Lock()
	active := len(r.tokens)
	r.mu.Unlock()

	return RateLimiterStats{
		TotalRequests:   atomic.LoadInt64(&r.stats.TotalRequests),
		BlockedRequests: atomic.LoadInt64(&r.stats.BlockedRequests),
		ActiveClients:   active,
	}
}

// Close stops the background cleanup.
func (r *MemoryRateLimiter) Close() {
	r.stopped.Do(func() { close(r.stop) })
}

// cleanupExpiredTokens drops buckets that have been idle for an hour.
func (r *MemoryRateLimiter) cleanupExpiredTokens() {
	ticker := time.NewTicker(r.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stop:
			return
		case <-ticker.C:
			r.mu.Lock()
			now := time.Now()
			for key, bucket := range r.tokens {
				if now.Sub(bucket.LastRefill) > time.Hour {
					delete(r.tokens, key)
				}
			}
			r.mu.Unlock()
		}
	}
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
