package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"fleet-manager/pkg/ratelimit"
	"fleet-manager/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// RateLimit limits requests per client. The category is the matched route
// name, so login and register get their own budgets and every other route
// shares the default one.
func RateLimit(limiter ratelimit.RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		category := c.GetString("route")
		if category == "" {
			category = ratelimit.DefaultCategory
		}
		clientID := getClientID(c)

		allowed, resetTime, err := limiter.Allow(c.Request.Context(), clientID, category)
		if err != nil {
			// Requests pass while the limiter is unavailable.
			logrus.WithError(err).WithField("category", category).Warn("rate limiter unavailable")
			c.Header("X-RateLimit-Error", "Rate limiter unavailable")
			c.Next()
			return
		}

		setRateLimitHeaders(c, limiter.Limit(category), allowed, resetTime)

		if !allowed {
			logrus.WithFields(logrus.Fields{
				"client":     clientID,
				"category":   category,
				"request_id": c.GetString("request_id"),
			}).Info("rate limit exceeded")

			c.AbortWithStatusJSON(http.StatusTooManyRequests, utils.APIResponse{
				Success: false,
				Message: fmt.Sprintf("Too many requests. Try again in %v", resetTime.Round(time.Second)),
				Error:   "RATE_LIMIT_EXCEEDED",
			})
			return
		}

		c.Next()
	}
}

// getClientID prefers the authenticated user and falls back to the client IP.
// Forwarding headers only count when the engine trusts the sending proxy.
func getClientID(c *gin.Context) string {
	if userID := c.GetString("user_id"); userID != "" {
		return "user:" + userID
	}
	return "ip:" + c.ClientIP()
}

// setRateLimitHeaders sets standard rate limiting headers
func setRateLimitHeaders(c *gin.Context, limit ratelimit.RateLimit, allowed bool, resetTime time.Duration) {
	c.Header("X-RateLimit-Limit", strconv.Itoa(limit.RequestsPerMinute))
	c.Header("X-RateLimit-Window", strconv.Itoa(int(limit.WindowSize.Seconds())))
	c.Header("X-RateLimit-Burst", strconv.Itoa(limit.BurstSize))

	if !allowed {
		retry := int(resetTime.Seconds())
		if retry < 1 {
			retry = 1
		}
		c.Header("Retry-After", strconv.Itoa(retry))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(resetTime).Unix(), 10))
	}
}
