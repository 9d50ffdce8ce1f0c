package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"fleet-manager/pkg/ratelimit"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// withRoute names the request the way the route table does before running
// route middleware.
func withRoute(name string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("route", name)
		c.Next()
	}
}

func setupTestMiddleware(t *testing.T) (*gin.Engine, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() { client.Close() })
	require.NoError(t, client.Ping(context.Background()).Err())

	config := ratelimit.DefaultConfig()
	config.RedisKeyPrefix = "test_ratelimit:"
	config.DefaultLimits["default"] = ratelimit.RateLimit{
		RequestsPerMinute: 5,
		BurstSize:         2,
		WindowSize:        time.Minute,
	}
	config.DefaultLimits["auth_login"] = ratelimit.RateLimit{
		RequestsPerMinute: 1,
		BurstSize:         1,
		WindowSize:        time.Minute,
	}

	limiter := ratelimit.NewRedisRateLimiter(client, config)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	require.NoError(t, router.SetTrustedProxies(nil))

	ok := func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"message": "ok"}) }
	router.POST("/login", withRoute("auth_login"), RateLimit(limiter), ok)
	router.GET("/trucks", withRoute("trucks_list_or_get"), RateLimit(limiter), ok)
	router.GET("/me", func(c *gin.Context) {
		c.Set("user_id", "user123")
		c.Next()
	}, RateLimit(limiter), ok)

	return router, mr
}

func do(router http.Handler, method, path, ip string, headers ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if ip != "" {
		req.RemoteAddr = ip + ":40000"
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRateLimit_LoginLimitExceeded(t *testing.T) {
	router, _ := setupTestMiddleware(t)

	w1 := do(router, http.MethodPost, "/login", "192.168.1.2")
	assert.Equal(t, http.StatusOK, w1.Code)
	assert.Equal(t, "1", w1.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "1", w1.Header().Get("X-RateLimit-Burst"))

	w2 := do(router, http.MethodPost, "/login", "192.168.1.2")
	assert.Equal(t, http.StatusTooManyRequests, w2.Code)
	assert.NotEmpty(t, w2.Header().Get("Retry-After"))
	assert.Contains(t, w2.Body.String(), "RATE_LIMIT_EXCEEDED")
	assert.Contains(t, w2.Body.String(), `"message"`)
}

func TestRateLimit_SpoofedForwardingHeaders(t *testing.T) {
	router, _ := setupTestMiddleware(t)

	assert.Equal(t, http.StatusOK, do(router, http.MethodPost, "/login", "192.168.1.6").Code)

	// Rotating the forwarding headers does not buy a fresh budget.
	w := do(router, http.MethodPost, "/login", "192.168.1.6", "X-Forwarded-For", "198.51.100.1")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	w = do(router, http.MethodPost, "/login", "192.168.1.6", "X-Real-IP", "198.51.100.2")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestRateLimit_DefaultCategory(t *testing.T) {
	router, _ := setupTestMiddleware(t)

	for i := 0; i < 2; i++ {
		w := do(router, http.MethodGet, "/trucks", "192.168.1.5")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "5", w.Header().Get("X-RateLimit-Limit"))
		assert.Equal(t, "60", w.Header().Get("X-RateLimit-Window"))
	}

	assert.Equal(t, http.StatusTooManyRequests, do(router, http.MethodGet, "/trucks", "192.168.1.5").Code)

	// The login budget is separate.
	assert.Equal(t, http.StatusOK, do(router, http.MethodPost, "/login", "192.168.1.5").Code)
}

func TestRateLimit_DifferentClients(t *testing.T) {
	router, _ := setupTestMiddleware(t)

	assert.Equal(t, http.StatusOK, do(router, http.MethodPost, "/login", "192.168.1.3").Code)
	assert.Equal(t, http.StatusOK, do(router, http.MethodPost, "/login", "192.168.1.4").Code)
}

func TestRateLimit_AuthenticatedUserIgnoresIP(t *testing.T) {
	router, _ := setupTestMiddleware(t)

	assert.Equal(t, http.StatusOK, do(router, http.MethodGet, "/me", "10.0.0.1").Code)
	assert.Equal(t, http.StatusOK, do(router, http.MethodGet, "/me", "10.0.0.2").Code)
	// Same user, third address: the user's budget of two is spent.
	assert.Equal(t, http.StatusTooManyRequests, do(router, http.MethodGet, "/me", "10.0.0.3").Code)
}

func TestRateLimit_FailsOpen(t *testing.T) {
	router, mr := setupTestMiddleware(t)
	mr.Close()

	w := do(router, http.MethodGet, "/trucks", "192.168.1.9")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Rate limiter unavailable", w.Header().Get("X-RateLimit-Error"))
}

func TestGetClientID(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name     string
		proxies  []string
		remote   string
		setup    func(*gin.Context)
		expected string
	}{
		{
			name:     "authenticated user",
			remote:   "192.168.1.1:1234",
			setup:    func(c *gin.Context) { c.Set("user_id", "user123") },
			expected: "user:user123",
		},
		{
			name:     "trusted proxy forwards",
			proxies:  []string{"10.0.0.0/8"},
			remote:   "10.0.0.9:443",
			setup:    func(c *gin.Context) { c.Request.Header.Set("X-Forwarded-For", "192.168.1.1, 10.0.0.1") },
			expected: "ip:192.168.1.1",
		},
		{
			name:     "untrusted sender ignored",
			remote:   "203.0.113.5:5000",
			setup:    func(c *gin.Context) { c.Request.Header.Set("X-Forwarded-For", "192.168.1.1") },
			expected: "ip:203.0.113.5",
		},
		{
			name:     "real ip from untrusted sender ignored",
			remote:   "203.0.113.5:5000",
			setup:    func(c *gin.Context) { c.Request.Header.Set("X-Real-IP", "172.16.0.7") },
			expected: "ip:203.0.113.5",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, engine := gin.CreateTestContext(httptest.NewRecorder())
			require.NoError(t, engine.SetTrustedProxies(tt.proxies))
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
			c.Request.RemoteAddr = tt.remote
			tt.setup(c)
			assert.Equal(t, tt.expected, getClientID(c))
		})
	}
}
