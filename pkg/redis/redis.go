package redis

import (
	"context"
	"fmt"
	"sync"
	"time"

	"fleet-manager/internal/config"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

type Client struct {
	client      *redis.Client
	addr        string
	mu          sync.RWMutex
	isConnected bool
}

type HealthStatus struct {
	IsConnected    bool          `json:"isConnected"`
	LastPing       time.Time     `json:"lastPing"`
	ResponseTime   time.Duration `json:"responseTime"`
	ConnectionInfo string        `json:"connectionInfo"`
	Error          string        `json:"error,omitempty"`
}

// NewClient parses cfg.URL, applies the pool settings and verifies the
// connection with a ping. A failed ping is logged, not returned; go-redis
// redials on the next command.
func NewClient(ctx context.Context, cfg config.RedisConfig) (*Client, error) {
	opt, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid Redis URL: %w", err)
	}

	opt.PoolSize = cfg.PoolSize
	opt.MinIdleConns = cfg.MinIdleConns
	if cfg.DialTimeout > 0 {
		opt.DialTimeout = cfg.DialTimeout
	}
	if cfg.ReadTimeout > 0 {
		opt.ReadTimeout = cfg.ReadTimeout
	}
	if cfg.WriteTimeout > 0 {
		opt.WriteTimeout = cfg.WriteTimeout
	}

	c := &Client{client: redis.NewClient(opt), addr: opt.Addr}

	status := c.HealthCheck(ctx)
	if status.IsConnected {
		logrus.WithField("addr", c.addr).Info("Redis connected successfully")
	} else {
		logrus.WithField("addr", c.addr).Warnf("Redis connection failed: %s", status.Error)
	}

	return c, nil
}

// Wrap adopts an existing go-redis client.
func Wrap(client *redis.Client) *Client {
	return &Client{client: client, addr: client.Options().Addr}
}

// GetClient returns the underlying go-redis client.
func (c *Client) GetClient() *redis.Client {
	return c.client
}

func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.isConnected
}

// HealthCheck pings Redis and records the outcome.
func (c *Client) HealthCheck(ctx context.Context) HealthStatus {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	start := time.Now()
	err := c.client.Ping(ctx).Err()

	status := HealthStatus{
		IsConnected:    err == nil,
		LastPing:       time.Now(),
		ResponseTime:   time.Since(start),
		ConnectionInfo: c.addr,
	}
	if err != nil {
		status.Error = err.Error()
	}

	c.mu.Lock()
	c.isConnected = status.IsConnected
	c.mu.Unlock()

	return status
}

func (c *Client) Close() error {
	return c.client.Close()
}

// GetConnectionStats returns connection pool statistics
func (c *Client) GetConnectionStats() map[string]interface{} {
	stats := c.client.PoolStats()
	return map[string]interface{}{
		"hits":        stats.Hits,
		"misses":      stats.Misses,
		"timeouts":    stats.Timeouts,
		"totalConns":  stats.TotalConns,
		"idleConns":   stats.IdleConns,
		"staleConns":  stats.StaleConns,
		"isConnected": c.IsConnected(),
	}
}
