package redis

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"carpool/internal/domain"
	"carpool/internal/repository"
)

// DefaultRideTTL is used when NewRideCache is given a non-positive TTL.
const DefaultRideTTL = 10 * time.Second

const rideCachePrefix = "cache:ride:"

// cachedRide is the JSON form of a ride kept in Redis.
type cachedRide struct {
	ID              string            `json:"id"`
	DriverID        string            `json:"driver_id"`
	Passengers      []string          `json:"passengers"`
	TotalSeats      int               `json:"total_seats"`
	AvailableSeats  int               `json:"available_seats"`
	Status          domain.RideStatus `json:"status"`
	StartLocationID string            `json:"start_location_id"`
	DestinationID   string            `json:"destination_id"`
	ScheduledAt     time.Time         `json:"scheduled_at"`
	Comments        []domain.Comment  `json:"comments"`
	Version         int64             `json:"version"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

func toCached(r *domain.Ride) cachedRide {
	return cachedRide{
		ID:              r.ID,
		DriverID:        r.DriverID,
		Passengers:      r.Passengers,
		TotalSeats:      r.TotalSeats,
		AvailableSeats:  r.AvailableSeats,
		Status:          r.Status,
		StartLocationID: r.StartLocationID,
		DestinationID:   r.DestinationID,
		ScheduledAt:     r.ScheduledAt,
		Comments:        r.Comments,
		Version:         r.Version,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
}

func (c cachedRide) toDomain() *domain.Ride {
	r := &domain.Ride{
		ID:              c.ID,
		DriverID:        c.DriverID,
		Passengers:      c.Passengers,
		TotalSeats:      c.TotalSeats,
		AvailableSeats:  c.AvailableSeats,
		Status:          c.Status,
		StartLocationID: c.StartLocationID,
		DestinationID:   c.DestinationID,
		ScheduledAt:     c.ScheduledAt,
		Comments:        c.Comments,
		Version:         c.Version,
		CreatedAt:       c.CreatedAt,
		UpdatedAt:       c.UpdatedAt,
	}
	if r.Passengers == nil {
		r.Passengers = []string{}
	}
	if r.Comments == nil {
		r.Comments = []domain.Comment{}
	}
	return r
}

// RideCache is a read-through cache in front of another RideRepository.
// Writes always go to the wrapped store. GetByID may return a stale entry for
// up to the TTL, so mutations load through GetFresh instead.
type RideCache struct {
	client *redis.Client
	next   repository.RideRepository
	ttl    time.Duration
	log    *slog.Logger
}

// NewRideCache wraps next with a Redis cache.
func NewRideCache(client *redis.Client, next repository.RideRepository, ttl time.Duration, log *slog.Logger) *RideCache {
	if ttl <= 0 {
		ttl = DefaultRideTTL
	}
	if log == nil {
		log = slog.Default()
	}
	return &RideCache{client: client, next: next, ttl: ttl, log: log}
}

// Create persists through the wrapped store and primes the cache.
func (c *RideCache) Create(ctx context.Context, spec domain.RideSpec) (*domain.Ride, error) {
	ride, err := c.next.Create(ctx, spec)
	if err != nil {
		return nil, err
	}
	c.set(ctx, ride)
	return ride, nil
}

// GetByID serves from Redis when possible and falls back to the wrapped store.
func (c *RideCache) GetByID(ctx context.Context, id string) (*domain.Ride, error) {
	data, err := c.client.Get(ctx, rideCachePrefix+id).Bytes()
	switch {
	case err == nil:
		var cached cachedRide
		if err := json.Unmarshal(data, &cached); err == nil {
			return cached.toDomain(), nil
		}
		c.log.WarnContext(ctx, "dropping undecodable cached ride", "ride_id", id)
		c.Invalidate(ctx, id)
	case !errors.Is(err, redis.Nil):
		c.log.WarnContext(ctx, "ride cache read failed", "ride_id", id, "error", err)
	}

	ride, err := c.next.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	c.set(ctx, ride)
	return ride, nil
}

// GetFresh reads the wrapped store and refreshes the cached entry.
func (c *RideCache) GetFresh(ctx context.Context, id string) (*domain.Ride, error) {
	ride, err := c.next.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.Invalidate(ctx, id)
		}
		return nil, err
	}
	c.set(ctx, ride)
	return ride, nil
}

// List is never cached.
func (c *RideCache) List(ctx context.Context, driverID string, limit int) ([]*domain.Ride, error) {
	return c.next.List(ctx, driverID, limit)
}

// CompareAndSwap writes through and refreshes or drops the cached entry.
func (c *RideCache) CompareAndSwap(ctx context.Context, expectedVersion int64, ride *domain.Ride) (*domain.Ride, error) {
	stored, err := c.next.CompareAndSwap(ctx, expectedVersion, ride)
	if err != nil {
		if errors.Is(err, repository.ErrConflict) || errors.Is(err, repository.ErrNotFound) {
			c.Invalidate(ctx, ride.ID)
		}
		return nil, err
	}
	c.set(ctx, stored)
	return stored, nil
}

// Invalidate removes a ride from the cache.
func (c *RideCache) Invalidate(ctx context.Context, rideID string) {
	if err := c.client.Del(ctx, rideCachePrefix+rideID).Err(); err != nil {
		c.log.WarnContext(ctx, "ride cache invalidate failed", "ride_id", rideID, "error", err)
	}
}

func (c *RideCache) set(ctx context.Context, ride *domain.Ride) {
	data, err := json.Marshal(toCached(ride))
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, rideCachePrefix+ride.ID, data, c.ttl).Err(); err != nil {
		c.log.WarnContext(ctx, "ride cache write failed", "ride_id", ride.ID, "error", err)
		// The previous entry may now be older than the store.
		c.Invalidate(ctx, ride.ID)
	}
}

// Ensure RideCache can bypass itself for mutations.
var _ repository.FreshReader = (*RideCache)(nil)

// Ensure RideCache implements repository.RideRepository.
var _ repository.RideRepository = (*RideCache)(nil)
