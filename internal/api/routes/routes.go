package routes

import (
	"net/http"
	"time"

	"fleet-manager/internal/api/handlers"
	"fleet-manager/internal/api/middleware"
	"fleet-manager/internal/config"
	"fleet-manager/internal/models"
	"fleet-manager/internal/repository"
	"fleet-manager/internal/services"
	"fleet-manager/internal/websocket"
	"fleet-manager/pkg/cache"
	"fleet-manager/pkg/database"
	"fleet-manager/pkg/jwt"
	"fleet-manager/pkg/ratelimit"
	"fleet-manager/pkg/redis"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Repositories groups the data access used by the API.
type Repositories struct {
	Trucks          repository.TruckRepository
	Trips           repository.TripRepository
	MonthlyExpenses repository.ExpenseRepository
	YearlyExpenses  repository.ExpenseRepository
	Users           repository.UserRepository
}

// MongoRepositories returns the Mongo-backed repositories for conn.
func MongoRepositories(conn database.Connector, timeout time.Duration) Repositories {
	return Repositories{
		Trucks:          repository.NewTruckRepository(conn, timeout),
		Trips:           repository.NewTripRepository(conn, timeout),
		MonthlyExpenses: repository.NewExpenseRepository(conn, models.ExpenseMonthly, timeout),
		YearlyExpenses:  repository.NewExpenseRepository(conn, models.ExpenseYearly, timeout),
		Users:           repository.NewUserRepository(conn, timeout),
	}
}

// Dependencies are the collaborators SetupRoutes wires together. DB is only
// used for health checks. Redis, Cache, Limiter and Events may be nil.
type Dependencies struct {
	Config  *config.Config
	Repos   Repositories
	DB      database.Connector
	Redis   *redis.Client
	Cache   cache.CacheManager
	Limiter ratelimit.RateLimiter
	JWT     *jwt.JWTUtil
	Events  *websocket.Manager
}

func SetupRoutes(router *gin.Engine, deps Dependencies) *Table {
	cfg := deps.Config

	// Initialize services
	integrity := services.NewIntegrityService(deps.Repos.Trucks, deps.Repos.Trips,
		deps.Repos.MonthlyExpenses, deps.Repos.YearlyExpenses)
	truckService := services.NewTruckService(deps.Repos.Trucks, deps.Repos.Trips, integrity)
	tripService := services.NewTripService(deps.Repos.Trips, integrity)
	monthlyService := services.NewExpenseService(deps.Repos.MonthlyExpenses, integrity)
	yearlyService := services.NewExpenseService(deps.Repos.YearlyExpenses, integrity)
	authService := services.NewAuthService(deps.Repos.Users, deps.JWT)

	if deps.Cache != nil {
		cacheConfig := cache.ConfigFrom(cfg.Cache)
		for _, s := range []interface {
			SetCacheManager(cache.CacheManager)
			SetCacheConfig(cache.CacheConfig)
		}{truckService, tripService, monthlyService, yearlyService} {
			s.SetCacheManager(deps.Cache)
			s.SetCacheConfig(cacheConfig)
		}
	}

	if deps.Events != nil {
		for _, s := range []interface {
			SetEventPublisher(services.EventPublisher)
		}{truckService, tripService, monthlyService, yearlyService} {
			s.SetEventPublisher(deps.Events)
		}
	}

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService)
	healthHandler := handlers.NewHealthHandler(deps.DB, deps.Redis)
	truckHandler := handlers.NewTruckHandler(truckService)
	tripHandler := handlers.NewTripHandler(tripService)
	expenseHandlers := map[models.ExpenseKind]*handlers.ExpenseHandler{
		models.ExpenseMonthly: handlers.NewExpenseHandler(monthlyService),
		models.ExpenseYearly:  handlers.NewExpenseHandler(yearlyService),
	}

	table := NewTable(cfg.APIBasePath)
	var limit gin.HandlerFunc
	if deps.Limiter != nil {
		limit = middleware.RateLimit(deps.Limiter)
	}
	switch {
	case cfg.RequireAuth:
		// Protected routes are limited after auth so their budget follows
		// the user rather than the address.
		table.Protect(middleware.Auth(deps.JWT))
		if limit != nil {
			table.Public(limit)
			table.Protect(limit)
		}
	case limit != nil:
		table.Use(limit)
	}

	table.Add(
		Route{Name: "health", Method: http.MethodGet, Pattern: "/health", Public: true, Handler: healthHandler.HealthCheck},
		Route{Name: "auth_login", Method: http.MethodPost, Pattern: "/login", Public: true, Handler: authHandler.Login},
		Route{Name: "auth_register", Method: http.MethodPost, Pattern: "/register", Public: true, Handler: authHandler.Register},

		// Trucks
		Route{Name: "trucks_status", Method: http.MethodGet, Pattern: "/trucks/status", Handler: truckHandler.GetTruckStatus},
		Route{Name: "trucks_get", Method: http.MethodGet, Pattern: "/trucks/:id", Handler: truckHandler.GetTruck},
		Route{Name: "trucks_list_or_get", Method: http.MethodGet, Pattern: "/trucks", Handler: truckHandler.GetTrucks},
		Route{Name: "trucks_create", Method: http.MethodPost, Pattern: "/trucks", Handler: truckHandler.CreateTruck},
		Route{Name: "trucks_update", Method: http.MethodPut, Pattern: "/trucks/:id", Handler: truckHandler.UpdateTruck},
		Route{Name: "trucks_update", Method: http.MethodPut, Pattern: "/trucks", Handler: truckHandler.UpdateTruck},
		Route{Name: "trucks_delete", Method: http.MethodDelete, Pattern: "/trucks/:id", Handler: truckHandler.DeleteTruck},
		Route{Name: "trucks_delete", Method: http.MethodDelete, Pattern: "/trucks", Handler: truckHandler.DeleteTruck},

		// Trips: status listings before the per-truck lookup
		Route{Name: "trips_pending", Method: http.MethodGet, Pattern: "/trips/status/pending", Handler: tripHandler.GetPendingTrips},
		Route{Name: "trips_completed_period", Method: http.MethodGet, Pattern: "/trips/status/completed/:month/:year", Handler: tripHandler.GetCompletedTrips},
		Route{Name: "trips_completed", Method: http.MethodGet, Pattern: "/trips/status/completed", Handler: tripHandler.GetCompletedTrips},
		Route{Name: "trips_by_truck_period", Method: http.MethodGet, Pattern: "/trips/:truck/:year/:month", Handler: tripHandler.GetTripsByTruckPeriod},
		Route{Name: "trips_get", Method: http.MethodGet, Pattern: "/trips/:id", Handler: tripHandler.GetTrip},
		Route{Name: "trips_list_or_get", Method: http.MethodGet, Pattern: "/trips", Handler: tripHandler.GetTrips},
		Route{Name: "trips_create", Method: http.MethodPost, Pattern: "/trips", Handler: tripHandler.CreateTrip},
		Route{Name: "trips_update", Method: http.MethodPut, Pattern: "/trips/:id", Handler: tripHandler.UpdateTrip},
		Route{Name: "trips_update", Method: http.MethodPut, Pattern: "/trips", Handler: tripHandler.UpdateTrip},
		Route{Name: "trips_delete", Method: http.MethodDelete, Pattern: "/trips/:id", Handler: tripHandler.DeleteTrip},
		Route{Name: "trips_delete", Method: http.MethodDelete, Pattern: "/trips", Handler: tripHandler.DeleteTrip},
	)

	if deps.Events != nil {
		eventsHandler := handlers.NewEventsHandler(deps.Events)
		table.Add(
			Route{Name: "events_stats", Method: http.MethodGet, Pattern: "/events/stats", Handler: eventsHandler.Stats},
			Route{Name: "events", Method: http.MethodGet, Pattern: "/events", Handler: eventsHandler.Subscribe},
		)
	}

	for _, kind := range []models.ExpenseKind{models.ExpenseMonthly, models.ExpenseYearly} {
		h := expenseHandlers[kind]
		base := "/expenses/" + string(kind)
		name := "expenses_" + string(kind)
		table.Add(
			Route{Name: name + "_get", Method: http.MethodGet, Pattern: base + "/:id", Handler: h.GetExpense},
			Route{Name: name + "_list_or_get", Method: http.MethodGet, Pattern: base, Handler: h.GetExpenses},
			Route{Name: name + "_create", Method: http.MethodPost, Pattern: base, Handler: h.CreateExpense},
			Route{Name: name + "_update", Method: http.MethodPut, Pattern: base + "/:id", Handler: h.UpdateExpense},
			Route{Name: name + "_update", Method: http.MethodPut, Pattern: base, Handler: h.UpdateExpense},
			Route{Name: name + "_delete", Method: http.MethodDelete, Pattern: base + "/:id", Handler: h.DeleteExpense},
			Route{Name: name + "_delete", Method: http.MethodDelete, Pattern: base, Handler: h.DeleteExpense},
		)
	}

	if err := router.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		logrus.WithError(err).Warn("invalid trusted proxies, trusting none")
		_ = router.SetTrustedProxies(nil)
	}
	router.Use(middleware.RequestLogger(), cors.New(corsConfig()))
	router.Any("/*path", table.Dispatch)
	router.NoRoute(table.Dispatch)

	return table
}

// corsConfig allows any origin. Preflight requests are answered with 200.
func corsConfig() cors.Config {
	return cors.Config{
		AllowAllOrigins:           true,
		AllowMethods:              []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:              []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		ExposeHeaders:             []string{"Content-Length", "X-Request-ID", "X-RateLimit-Limit", "Retry-After"},
		MaxAge:                    12 * time.Hour,
		OptionsResponseStatusCode: http.StatusOK,
	}
}
