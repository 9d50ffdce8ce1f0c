package ratelimit

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

// Fixed-window counter kept in a hash. Returns {allowed, seconds_until_reset}.
var windowScript = redis.NewScript(`
	local key = KEYS[1]
	local burst_size = tonumber(ARGV[1])
	local window_size = tonumber(ARGV[2])
	local now = tonumber(ARGV[3])

	local count = tonumber(redis.call('HGET', key, 'count')) or 0
	local window_start = tonumber(redis.call('HGET', key, 'window_start')) or now

	if now - window_start >= window_size then
		count = 0
		window_start = now
	end

	local allowed = count < burst_size
	if allowed then
		count = count + 1
	end

	local reset_time = 0
	if not allowed then
		reset_time = math.ceil(((window_start + window_size) - now) / 1000)
	end

	redis.call('HSET', key, 'count', count)
	redis.call('HSET', key, 'window_start', window_start)
	redis.call('PEXPIRE', key, window_size + 1000)

	return {allowed and 1 or 0, reset_time}
`)

// RedisRateLimiter implements RateLimiter using Redis as the backend, so
// limits hold across server instances.
type RedisRateLimiter struct {
	client *redis.Client
	config *Config
	stats  RateLimiterStats
}

func NewRedisRateLimiter(client *redis.Client, config *Config) *RedisRateLimiter {
	if config == nil {
		config = DefaultConfig()
	}
	return &RedisRateLimiter{client: client, config: config}
}

func (r *RedisRateLimiter) Allow(ctx context.Context, clientID string, category string) (bool, time.Duration, error) {
	if !r.config.Enabled {
		return true, 0, nil
	}

	atomic.AddInt64(&r.stats.TotalRequests, 1)

	limit := r.config.LimitFor(category)
	key := fmt.Sprintf("%s%s:%s", r.config.RedisKeyPrefix, clientID, category)

	result, err := windowScript.Run(ctx, r.client, []string{key},
		limit.BurstSize,
		limit.WindowSize.Milliseconds(),
		time.Now().UnixMilli(),
	).Int64Slice()
	if err != nil {
		return false, 0, fmt.Errorf("rate limit check failed: %w", err)
	}
	if len(result) != 2 {
		return false, 0, fmt.Errorf("unexpected script result format")
	}

	if result[0] != 1 {
		atomic.AddInt64(&r.stats.BlockedRequests, 1)
		return false, time.Duration(result[1]) * time.Second, nil
	}
	return true, 0, nil
}

func (r *RedisRateLimiter) Limit(category string) RateLimit {
	return r.config.LimitFor(category)
}

func (r *RedisRateLimiter) GetStats() RateLimiterStats {
	return RateLimiterStats{
		TotalRequests:   atomic.LoadInt64(&r.stats.TotalRequests),
		BlockedRequests: atomic.LoadInt64(&r.stats.BlockedRequests),
	}
}
