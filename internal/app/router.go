package app

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"carpool/internal/handler"
	"carpool/internal/middleware"
)

// RouterDeps contains all dependencies needed for the router.
type RouterDeps struct {
	RideHandler   *handler.RideHandler
	HealthHandler *handler.HealthHandler
	RedisClient   *redis.Client // nil disables idempotency keys
	NewRelicApp   *newrelic.Application
	Logger        *slog.Logger
	JWTSecret     string
}

// NewRouter creates a new Gin router with all routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()

	router.Use(gin.Recovery())

	if deps.NewRelicApp != nil {
		router.Use(nrgin.Middleware(deps.NewRelicApp))
	}

	router.GET("/health", deps.HealthHandler.Live)
	router.GET("/ready", deps.HealthHandler.Ready)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/v1")
	v1.Use(middleware.CallerIdentity(deps.JWTSecret))
	v1.Use(middleware.RequestLogger(deps.Logger))
	{
		rides := v1.Group("/rides")
		{
			rides.GET("", deps.RideHandler.ListRides)
			rides.GET("/:id", deps.RideHandler.GetRide)
		}

		// Mutations need a caller and honour Idempotency-Key.
		mutations := rides.Group("",
			middleware.RequireCaller(),
			middleware.Idempotency(deps.RedisClient, deps.Logger),
		)
		{
			mutations.POST("", deps.RideHandler.CreateRide)
			mutations.POST("/:id/seats", deps.RideHandler.BookSeat)
			mutations.DELETE("/:id/seats", deps.RideHandler.CancelSeat)
			mutations.PUT("/:id/status", deps.RideHandler.ChangeStatus)
			mutations.PUT("/:id/end", deps.RideHandler.EndRide)
			mutations.POST("/:id/comments", deps.RideHandler.AddComment)
		}
	}

	return router
}
