package main

import (
	"context"
	"net/http"
	"strings"

	"fleet-manager/internal/api/routes"
	"fleet-manager/internal/config"
	"fleet-manager/internal/logger"
	"fleet-manager/pkg/cache"
	"fleet-manager/pkg/database"
	"fleet-manager/pkg/jwt"
	"fleet-manager/pkg/ratelimit"
	"fleet-manager/pkg/redis"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	ginadapter "github.com/awslabs/aws-lambda-go-api-proxy/gin"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}
	if err := logger.Setup(cfg.Log); err != nil {
		logrus.WithError(err).Fatal("Failed to set up logging")
	}
	gin.SetMode(cfg.GinMode)

	// Invocations may be frozen between requests, so no connection is kept
	// across them.
	cfg.Mongo.ConnectMode = "per_request"
	db, err := database.NewConnector(ctx, cfg.Mongo)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to configure database")
	}
	// Runs once per cold start; the unique username index backs Register.
	if err := database.EnsureIndexes(ctx, db); err != nil {
		logrus.WithError(err).Warn("Failed to ensure indexes")
	}

	deps := routes.Dependencies{
		Config: cfg,
		Repos:  routes.MongoRepositories(db, cfg.Mongo.Timeout),
		DB:     db,
		JWT:    jwt.NewJWTUtil(cfg.JWT.Secret, cfg.JWT.Expiry),
	}
	if cfg.Redis.URL != "" {
		redisClient, err := redis.NewClient(ctx, cfg.Redis)
		if err != nil {
			logrus.WithError(err).Fatal("Failed to configure Redis")
		}
		deps.Redis = redisClient
		deps.Cache = cache.NewCacheManager(redisClient, cfg.Cache)
		deps.Limiter = ratelimit.NewRedisRateLimiter(redisClient.GetClient(), ratelimit.NewConfig(cfg.RateLimit))
	}

	router := gin.New()
	router.Use(gin.Recovery())
	routes.SetupRoutes(router, deps)

	lambda.Start(newHandler(router))
}

// sourceIPHeader carries the caller address API Gateway observed. Any value
// the client sent under the same name is replaced.
const sourceIPHeader = "X-Apigw-Source-Ip"

// newHandler serves API Gateway HTTP API (payload v2) events with router.
// Client IPs come from the request context, never from forwarding headers.
func newHandler(router *gin.Engine) func(context.Context, events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	router.TrustedPlatform = sourceIPHeader
	adapter := ginadapter.NewV2(router)

	return func(ctx context.Context, event events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
		headers := make(map[string]string, len(event.Headers)+1)
		for k, v := range event.Headers {
			if !strings.EqualFold(k, sourceIPHeader) {
				headers[k] = v
			}
		}
		if ip := event.RequestContext.HTTP.SourceIP; ip != "" {
			headers[sourceIPHeader] = ip
		}
		event.Headers = headers
		if event.RequestContext.HTTP.Method == "" {
			event.RequestContext.HTTP.Method = http.MethodGet
		}

		return adapter.ProxyWithContext(ctx, event)
	}
}
