package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"carpool/internal/domain"
	"carpool/internal/repository"
)

const rideColumns = `id, driver_id, passengers, total_seats, available_seats, status,
	start_location_id, destination_id, scheduled_at, comments, version, created_at, updated_at`

// RideRepository is a PostgreSQL implementation of repository.RideRepository.
type RideRepository struct {
	q Querier
}

// NewRideRepository creates a new PostgreSQL ride repository.
func NewRideRepository(db *sql.DB) *RideRepository {
	return &RideRepository{q: db}
}

// NewRideRepositoryWithTx creates a ride repository using a transaction.
func NewRideRepositoryWithTx(tx *sql.Tx) *RideRepository {
	return &RideRepository{q: tx}
}

// Create persists a new ride built from spec.
func (r *RideRepository) Create(ctx context.Context, spec domain.RideSpec) (*domain.Ride, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	ride := domain.NewRide(uuid.New().String(), spec)
	comments, err := json.Marshal(ride.Comments)
	if err != nil {
		return nil, fmt.Errorf("postgres.RideRepository.Create: encode comments: %w", err)
	}

	query := `
		INSERT INTO rides (id, driver_id, passengers, total_seats, available_seats, status,
			start_location_id, destination_id, scheduled_at, comments, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, 1)
		RETURNING ` + rideColumns

	row := r.q.QueryRowContext(ctx, query,
		ride.ID,
		ride.DriverID,
		pq.Array(ride.Passengers),
		ride.TotalSeats,
		ride.AvailableSeats,
		ride.Status,
		ride.StartLocationID,
		ride.DestinationID,
		ride.ScheduledAt,
		string(comments),
	)
	created, err := scanRide(row)
	if err != nil {
		return nil, fmt.Errorf("postgres.RideRepository.Create: %w", err)
	}
	return created, nil
}

// GetByID retrieves a ride by ID.
func (r *RideRepository) GetByID(ctx context.Context, id string) (*domain.Ride, error) {
	query := `SELECT ` + rideColumns + ` FROM rides WHERE id = $1`

	ride, err := scanRide(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("postgres.RideRepository.GetByID: %w", err)
	}
	return ride, nil
}

// List retrieves the most recent rides, newest first.
func (r *RideRepository) List(ctx context.Context, driverID string, limit int) ([]*domain.Ride, error) {
	if limit <= 0 || limit > repository.MaxListLimit {
		limit = repository.MaxListLimit
	}

	query := `
		SELECT ` + rideColumns + `
		FROM rides
		WHERE ($1::text = '' OR driver_id = $1)
		ORDER BY created_at DESC
		LIMIT $2`

	rows, err := r.q.QueryContext(ctx, query, driverID, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres.RideRepository.List: %w", err)
	}
	defer rows.Close()

	rides := make([]*domain.Ride, 0)
	for rows.Next() {
		ride, err := scanRide(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres.RideRepository.List: scan: %w", err)
		}
		rides = append(rides, ride)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres.RideRepository.List: rows: %w", err)
	}
	return rides, nil
}

// CompareAndSwap writes the mutable columns of ride if the stored version equals expectedVersion.
// Identity, driver, locations and seat total are never rewritten.
func (r *RideRepository) CompareAndSwap(ctx context.Context, expectedVersion int64, ride *domain.Ride) (*domain.Ride, error) {
	comments, err := json.Marshal(ride.Comments)
	if err != nil {
		return nil, fmt.Errorf("postgres.RideRepository.CompareAndSwap: encode comments: %w", err)
	}

	query := `
		UPDATE rides
		SET passengers = $1, available_seats = $2, status = $3, comments = $4,
			version = version + 1, updated_at = now()
		WHERE id = $5 AND version = $6
		RETURNING ` + rideColumns

	row := r.q.QueryRowContext(ctx, query,
		pq.Array(ride.Passengers),
		ride.AvailableSeats,
		ride.Status,
		string(comments),
		ride.ID,
		expectedVersion,
	)
	stored, err := scanRide(row)
	if err == nil {
		return stored, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("postgres.RideRepository.CompareAndSwap: %w", err)
	}

	// No row matched: either the ride is gone or someone else committed first.
	var exists bool
	if err := r.q.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM rides WHERE id = $1)`, ride.ID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("postgres.RideRepository.CompareAndSwap: check existence: %w", err)
	}
	if !exists {
		return nil, repository.ErrNotFound
	}
	return nil, fmt.Errorf("ride %s at version %d: %w", ride.ID, expectedVersion, repository.ErrConflict)
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRide(s scanner) (*domain.Ride, error) {
	var (
		ride     domain.Ride
		comments []byte
	)

	err := s.Scan(
		&ride.ID,
		&ride.DriverID,
		pq.Array(&ride.Passengers),
		&ride.TotalSeats,
		&ride.AvailableSeats,
		&ride.Status,
		&ride.StartLocationID,
		&ride.DestinationID,
		&ride.ScheduledAt,
		&comments,
		&ride.Version,
		&ride.CreatedAt,
		&ride.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if ride.Passengers == nil {
		ride.Passengers = []string{}
	}
	ride.Comments = []domain.Comment{}
	if len(comments) > 0 {
		if err := json.Unmarshal(comments, &ride.Comments); err != nil {
			return nil, fmt.Errorf("decode comments: %w", err)
		}
	}
	return &ride, nil
}

// Ensure RideRepository implements repository.RideRepository.
var _ repository.RideRepository = (*RideRepository)(nil)
