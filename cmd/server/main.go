package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fleet-manager/internal/api/routes"
	"fleet-manager/internal/config"
	"fleet-manager/internal/logger"
	"fleet-manager/internal/websocket"
	"fleet-manager/pkg/cache"
	"fleet-manager/pkg/database"
	"fleet-manager/pkg/jwt"
	"fleet-manager/pkg/ratelimit"
	"fleet-manager/pkg/redis"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}

	if err := logger.Setup(cfg.Log); err != nil {
		logrus.WithError(err).Fatal("Failed to set up logging")
	}
	gin.SetMode(cfg.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Connect to MongoDB
	db, err := database.NewConnector(ctx, cfg.Mongo)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to connect to database")
	}
	defer db.Close(context.Background())

	if err := database.EnsureIndexes(ctx, db); err != nil {
		logrus.WithError(err).Warn("Failed to ensure indexes")
	}

	deps := routes.Dependencies{
		Config: cfg,
		Repos:  routes.MongoRepositories(db, cfg.Mongo.Timeout),
		DB:     db,
		JWT:    jwt.NewJWTUtil(cfg.JWT.Secret, cfg.JWT.Expiry),
	}

	// Redis is optional: it backs the read cache and the shared rate limiter.
	limiterConfig := ratelimit.NewConfig(cfg.RateLimit)
	if cfg.Redis.URL != "" {
		redisClient, err := redis.NewClient(ctx, cfg.Redis)
		if err != nil {
			logrus.WithError(err).Fatal("Failed to configure Redis")
		}
		defer redisClient.Close()

		deps.Redis = redisClient
		deps.Cache = cache.NewCacheManager(redisClient, cfg.Cache)
		deps.Limiter = ratelimit.NewRedisRateLimiter(redisClient.GetClient(), limiterConfig)
	} else {
		logrus.Info("REDIS_URL not set, caching disabled and rate limits kept in memory")
		memoryLimiter := ratelimit.NewMemoryRateLimiter(limiterConfig)
		defer memoryLimiter.Close()
		deps.Limiter = memoryLimiter
	}

	// Live change feed
	hub := websocket.NewManager()
	hub.Start()
	defer hub.Stop()
	deps.Events = hub

	// Setup Gin router
	router := gin.New()
	router.Use(gin.Recovery())
	table := routes.SetupRoutes(router, deps)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logrus.WithFields(logrus.Fields{
			"port":   cfg.Port,
			"base":   cfg.APIBasePath,
			"routes": len(table.Routes()),
			"auth":   cfg.RequireAuth,
		}).Info("Server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.WithError(err).Fatal("Server failed")
		}
	}()

	<-ctx.Done()
	logrus.Info("Shutting down server")
	hub.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Error("Server shutdown failed")
	}
}
