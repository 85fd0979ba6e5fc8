// Package memory is an in-process implementation of repository.RideRepository.
// It honours the same version checks as the Postgres store and is used for tests
// and single-instance deployments without a database.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"carpool/internal/domain"
	"carpool/internal/repository"
)

// RideRepository stores rides in a map guarded by a mutex.
type RideRepository struct {
	mu    sync.RWMutex
	rides map[string]*domain.Ride
	now   func() time.Time
}

// NewRideRepository creates an empty in-memory ride repository.
func NewRideRepository() *RideRepository {
	return &RideRepository{
		rides: make(map[string]*domain.Ride),
		now:   time.Now,
	}
}

// Create persists a new ride built from spec.
func (r *RideRepository) Create(ctx context.Context, spec domain.RideSpec) (*domain.Ride, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	ride := domain.NewRide(uuid.New().String(), spec)
	ride.Version = 1
	ride.CreatedAt = r.now().UTC()
	ride.UpdatedAt = ride.CreatedAt

	r.mu.Lock()
	defer r.mu.Unlock()
	r.rides[ride.ID] = ride
	return ride.Clone(), nil
}

// GetByID retrieves a ride by ID.
func (r *RideRepository) GetByID(ctx context.Context, id string) (*domain.Ride, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ride, ok := r.rides[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return ride.Clone(), nil
}

// List retrieves the most recent rides, newest first.
func (r *RideRepository) List(ctx context.Context, driverID string, limit int) ([]*domain.Ride, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rides := make([]*domain.Ride, 0, len(r.rides))
	for _, ride := range r.rides {
		if driverID != "" && ride.DriverID != driverID {
			continue
		}
		rides = append(rides, ride.Clone())
	}
	sort.Slice(rides, func(i, j int) bool {
		return rides[i].CreatedAt.After(rides[j].CreatedAt)
	})
	if limit <= 0 || limit > repository.MaxListLimit {
		limit = repository.MaxListLimit
	}
	if len(rides) > limit {
		rides = rides[:limit]
	}
	return rides, nil
}

// CompareAndSwap replaces the stored ride if its version equals expectedVersion.
func (r *RideRepository) CompareAndSwap(ctx context.Context, expectedVersion int64, ride *domain.Ride) (*domain.Ride, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.rides[ride.ID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if current.Version != expectedVersion {
		return nil, fmt.Errorf("ride %s: stored version %d, expected %d: %w",
			ride.ID, current.Version, expectedVersion, repository.ErrConflict)
	}

	next := ride.Clone()
	next.Version = expectedVersion + 1
	next.CreatedAt = current.CreatedAt
	next.UpdatedAt = r.now().UTC()
	r.rides[next.ID] = next
	return next.Clone(), nil
}

// Count returns the number of stored rides.
func (r *RideRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rides)
}

// Ensure RideRepository implements repository.RideRepository.
var _ repository.RideRepository = (*RideRepository)(nil)
