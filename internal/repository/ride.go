package repository

import (
	"context"

	"carpool/internal/domain"
)

// MaxListLimit caps List; a non-positive limit also means MaxListLimit.
const MaxListLimit = 100

// RideRepository defines the persistence operations for rides.
// CompareAndSwap is the only way to change a stored ride.
type RideRepository interface {
	// Create persists a new ride built from spec and returns it with Version 1.
	// Returns domain.ErrInvalidSpec when the spec does not validate.
	Create(ctx context.Context, spec domain.RideSpec) (*domain.Ride, error)

	// GetByID retrieves a ride by ID.
	GetByID(ctx context.Context, id string) (*domain.Ride, error)

	// List retrieves the most recent rides, newest first.
	// An empty driverID lists rides of every driver.
	List(ctx context.Context, driverID string, limit int) ([]*domain.Ride, error)

	// CompareAndSwap replaces the stored ride only if its version still equals
	// expectedVersion, and returns the stored ride with the bumped version.
	// Returns ErrConflict on version mismatch and ErrNotFound if the ride is gone.
	CompareAndSwap(ctx context.Context, expectedVersion int64, ride *domain.Ride) (*domain.Ride, error)
}

// FreshReader is implemented by repositories that serve GetByID from a cache.
// GetFresh always reads the backing store.
type FreshReader interface {
	GetFresh(ctx context.Context, id string) (*domain.Ride, error)
}

// LoadFresh reads a ride from the backing store, bypassing any cache in front of it.
func LoadFresh(ctx context.Context, repo RideRepository, id string) (*domain.Ride, error) {
	if fr, ok := repo.(FreshReader); ok {
		return fr.GetFresh(ctx, id)
	}
	return repo.GetByID(ctx, id)
}
