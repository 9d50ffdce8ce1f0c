package redis

import (
	"context"
	"testing"

	"fleet-manager/internal/config"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client, err := NewClient(context.Background(), config.RedisConfig{
		URL:      "redis://" + mr.Addr() + "/0",
		PoolSize: 5,
	})
	require.NoError(t, err)
	defer client.Close()

	assert.NotNil(t, client.GetClient())
	assert.True(t, client.IsConnected())
}

func TestNewClient_InvalidURL(t *testing.T) {
	_, err := NewClient(context.Background(), config.RedisConfig{URL: "http://nope", PoolSize: 1})
	assert.Error(t, err)
}

func TestHealthCheck(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	client, err := NewClient(context.Background(), config.RedisConfig{URL: "redis://" + mr.Addr(), PoolSize: 2})
	require.NoError(t, err)
	defer client.Close()

	status := client.HealthCheck(context.Background())
	assert.True(t, status.IsConnected)
	assert.Equal(t, mr.Addr(), status.ConnectionInfo)
	assert.False(t, status.LastPing.IsZero())

	mr.Close()

	status = client.HealthCheck(context.Background())
	assert.False(t, status.IsConnected)
	assert.NotEmpty(t, status.Error)
	assert.False(t, client.IsConnected())
}

func TestGetConnectionStats(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client, err := NewClient(context.Background(), config.RedisConfig{URL: "redis://" + mr.Addr(), PoolSize: 2})
	require.NoError(t, err)
	defer client.Close()

	stats := client.GetConnectionStats()
	for _, key := range []string{"hits", "misses", "totalConns", "idleConns", "isConnected"} {
		assert.Contains(t, stats, key)
	}
}
