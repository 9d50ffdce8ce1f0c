package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Setenv("MONGO_URI", "mongodb://localhost:27017/fleet_test")
	t.Setenv("JWT_SECRET", "0123456789abcdef0123")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "per_request", cfg.Mongo.ConnectMode)
	assert.Equal(t, 10*time.Second, cfg.Mongo.Timeout)
	assert.Equal(t, 24*time.Hour, cfg.JWT.Expiry)
	assert.Empty(t, cfg.Redis.URL)
	assert.True(t, cfg.RateLimit.Enabled)
	assert.False(t, cfg.RequireAuth)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Empty(t, cfg.TrustedProxies)
}

func TestLoad_Overrides(t *testing.T) {
	setRequired(t)
	t.Setenv("PORT", "9090")
	t.Setenv("API_BASE_PATH", "/api/")
	t.Setenv("REQUIRE_AUTH", "true")
	t.Setenv("MONGO_CONNECT_MODE", "pooled")
	t.Setenv("MONGO_TIMEOUT", "3s")
	t.Setenv("JWT_EXPIRY", "2h")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("RATELIMIT_LOGIN_PER_MINUTE", "20")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("TRUSTED_PROXIES", "10.0.0.0/8, 192.168.1.10")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "/api", cfg.APIBasePath)
	assert.True(t, cfg.RequireAuth)
	assert.Equal(t, "pooled", cfg.Mongo.ConnectMode)
	assert.Equal(t, 3*time.Second, cfg.Mongo.Timeout)
	assert.Equal(t, 2*time.Hour, cfg.JWT.Expiry)
	assert.Equal(t, "redis://localhost:6379/0", cfg.Redis.URL)
	assert.Equal(t, 20, cfg.RateLimit.LoginPerMinute)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, []string{"10.0.0.0/8", "192.168.1.10"}, cfg.TrustedProxies)
}

func TestLoad_InvalidTrustedProxy(t *testing.T) {
	setRequired(t)
	t.Setenv("TRUSTED_PROXIES", "not-an-address")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_MissingSecrets(t *testing.T) {
	t.Run("no mongo uri", func(t *testing.T) {
		t.Setenv("MONGO_URI", "")
		t.Setenv("JWT_SECRET", "0123456789abcdef0123")
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("no jwt secret", func(t *testing.T) {
		t.Setenv("MONGO_URI", "mongodb://localhost:27017")
		t.Setenv("JWT_SECRET", "")
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("short jwt secret", func(t *testing.T) {
		t.Setenv("MONGO_URI", "mongodb://localhost:27017")
		t.Setenv("JWT_SECRET", "short")
		_, err := Load()
		assert.Error(t, err)
	})
}

func TestLoad_InvalidConnectMode(t *testing.T) {
	setRequired(t)
	t.Setenv("MONGO_CONNECT_MODE", "shared")

	_, err := Load()
	assert.Error(t, err)
}

func TestEnvKey(t *testing.T) {
	assert.Equal(t, "mongo.connect_mode", envKey("MONGO_CONNECT_MODE"))
	assert.Equal(t, "jwt.secret", envKey("JWT_SECRET"))
	assert.Equal(t, "ratelimit.login_per_minute", envKey("RATELIMIT_LOGIN_PER_MINUTE"))
	assert.Equal(t, "require_auth", envKey("REQUIRE_AUTH"))
	assert.Equal(t, "port", envKey("PORT"))
}
