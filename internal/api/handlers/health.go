package handlers

import (
	"context"
	"net/http"
	"time"

	"fleet-manager/pkg/database"
	"fleet-manager/pkg/redis"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type HealthHandler struct {
	db          database.Connector
	redisClient *redis.Client
}

type HealthResponse struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Services  map[string]interface{} `json:"services"`
}

// NewHealthHandler builds the health check. redisClient may be nil when the
// cache is not configured.
func NewHealthHandler(db database.Connector, redisClient *redis.Client) *HealthHandler {
	return &HealthHandler{
		db:          db,
		redisClient: redisClient,
	}
}

func (h *HealthHandler) HealthCheck(c *gin.Context) {
	response := HealthResponse{
		Timestamp: time.Now(),
		Services:  make(map[string]interface{}),
	}

	mongoStatus := h.checkMongoDB(c.Request.Context())
	response.Services["mongodb"] = mongoStatus
	overallHealthy := mongoStatus["healthy"].(bool)

	redisStatus := h.checkRedis(c.Request.Context())
	response.Services["redis"] = redisStatus
	if enabled, _ := redisStatus["enabled"].(bool); enabled && !redisStatus["healthy"].(bool) {
		overallHealthy = false
	}

	if overallHealthy {
		response.Status = "healthy"
		c.JSON(http.StatusOK, response)
	} else {
		response.Status = "unhealthy"
		c.JSON(http.StatusServiceUnavailable, response)
	}
}

func (h *HealthHandler) checkMongoDB(ctx context.Context) map[string]interface{} {
	status := map[string]interface{}{
		"service": "mongodb",
		"healthy": false,
	}

	if h.db == nil {
		status["error"] = "Database client not initialized"
		return status
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	start := time.Now()
	if err := h.db.Ping(ctx); err != nil {
		logrus.WithError(err).Warn("mongodb health check failed")
		status["error"] = "unreachable"
		return status
	}

	status["healthy"] = true
	status["message"] = "Connected"
	status["responseTime"] = time.Since(start).String()
	return status
}

func (h *HealthHandler) checkRedis(ctx context.Context) map[string]interface{} {
	status := map[string]interface{}{
		"service": "redis",
		"enabled": h.redisClient != nil,
		"healthy": false,
	}

	if h.redisClient == nil {
		status["message"] = "Cache disabled"
		return status
	}

	healthStatus := h.redisClient.HealthCheck(ctx)
	status["healthy"] = healthStatus.IsConnected
	status["responseTime"] = healthStatus.ResponseTime.String()
	status["lastPing"] = healthStatus.LastPing
	status["connectionStats"] = h.redisClient.GetConnectionStats()

	if healthStatus.Error != "" {
		status["error"] = healthStatus.Error
	}

	return status
}
