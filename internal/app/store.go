package app

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"carpool/internal/config"
	internalRedis "carpool/internal/redis"
	"carpool/internal/repository"
	"carpool/internal/repository/memory"
	"carpool/internal/repository/postgres"
)

// NewRideRepository selects the ride store for STORE_BACKEND and, when a Redis
// client is given, puts the read-through cache in front of it.
func NewRideRepository(
	backend string,
	db *sql.DB,
	redisClient *redis.Client,
	cacheTTL time.Duration,
	log *slog.Logger,
) (repository.RideRepository, error) {
	var store repository.RideRepository
	switch backend {
	case config.StorePostgres:
		if db == nil {
			return nil, fmt.Errorf("postgres store requires a database connection")
		}
		store = postgres.NewRideRepository(db)
	case config.StoreMemory:
		store = memory.NewRideRepository()
	default:
		return nil, fmt.Errorf("unknown store backend %q", backend)
	}

	if redisClient != nil {
		store = internalRedis.NewRideCache(redisClient, store, cacheTTL, log)
	}
	return store, nil
}
