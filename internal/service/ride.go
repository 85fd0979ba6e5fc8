package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"carpool/internal/domain"
	"carpool/internal/events"
	"carpool/internal/lifecycle"
	"carpool/internal/observability"
	"carpool/internal/repository"
)

// DefaultMaxAttempts bounds the load, apply, compare-and-swap loop.
const DefaultMaxAttempts = 3

// RideService is the entry point for every ride operation.
// It loads the ride, applies a lifecycle rule and commits the result with
// compare-and-swap, reloading and retrying when another writer got there first.
type RideService struct {
	rideRepo    repository.RideRepository
	publisher   events.Publisher
	log         *slog.Logger
	maxAttempts int
	now         func() time.Time
}

// NewRideService creates a new RideService.
// A nil publisher discards events and maxAttempts < 1 falls back to DefaultMaxAttempts.
func NewRideService(
	rideRepo repository.RideRepository,
	publisher events.Publisher,
	log *slog.Logger,
	maxAttempts int,
) *RideService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	if log == nil {
		log = slog.Default()
	}
	if maxAttempts < 1 {
		maxAttempts = DefaultMaxAttempts
	}
	return &RideService{
		rideRepo:    rideRepo,
		publisher:   publisher,
		log:         log,
		maxAttempts: maxAttempts,
		now:         time.Now,
	}
}

// CreateRideRequest contains the parameters for offering a ride.
type CreateRideRequest struct {
	DriverID        string
	TotalSeats      int
	StartLocationID string
	DestinationID   string
	ScheduledAt     time.Time
}

// CreateRide stores a new ride in the Waiting status.
func (s *RideService) CreateRide(ctx context.Context, req CreateRideRequest) (*domain.Ride, error) {
	const op = "create_ride"
	defer s.observe(op, time.Now())

	spec := domain.RideSpec{
		DriverID:        req.DriverID,
		TotalSeats:      req.TotalSeats,
		StartLocationID: req.StartLocationID,
		DestinationID:   req.DestinationID,
		ScheduledAt:     req.ScheduledAt,
	}
	if err := spec.Validate(); err != nil {
		return nil, s.finish(ctx, op, "", fmt.Errorf("%w: %w", ErrValidation, err))
	}

	ride, err := s.rideRepo.Create(ctx, spec)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidSpec) {
			return nil, s.finish(ctx, op, "", fmt.Errorf("%w: %w", ErrValidation, err))
		}
		return nil, s.finish(ctx, op, "", storeError(err))
	}

	s.finish(ctx, op, ride.ID, nil)
	s.publish(ctx, events.NewEvent(events.TypeRideCreated, ride.DriverID, ride))
	return ride, nil
}

// GetRide returns the current state of a ride.
func (s *RideService) GetRide(ctx context.Context, rideID string) (*domain.Ride, error) {
	if rideID == "" {
		return nil, fmt.Errorf("%w: ride id is required", ErrValidation)
	}
	ride, err := s.rideRepo.GetByID(ctx, rideID)
	if err != nil {
		return nil, storeError(err)
	}
	return ride, nil
}

// ListRides returns recent rides, newest first, optionally restricted to one driver.
func (s *RideService) ListRides(ctx context.Context, driverID string, limit int) ([]*domain.Ride, error) {
	rides, err := s.rideRepo.List(ctx, driverID, limit)
	if err != nil {
		return nil, storeError(err)
	}
	return rides, nil
}

// BookSeat reserves a seat on a ride for passengerID.
func (s *RideService) BookSeat(ctx context.Context, rideID, passengerID string) (*domain.Ride, error) {
	if passengerID == "" {
		return nil, fmt.Errorf("%w: passenger id is required", ErrValidation)
	}
	return s.mutate(ctx, "book_seat", events.TypeSeatBooked, passengerID, rideID,
		func(r *domain.Ride) (*domain.Ride, error) {
			return lifecycle.BookSeat(r, passengerID)
		})
}

// CancelSeat releases the seat passengerID holds on a ride.
func (s *RideService) CancelSeat(ctx context.Context, rideID, passengerID string) (*domain.Ride, error) {
	if passengerID == "" {
		return nil, fmt.Errorf("%w: passenger id is required", ErrValidation)
	}
	return s.mutate(ctx, "cancel_seat", events.TypeSeatCancelled, passengerID, rideID,
		func(r *domain.Ride) (*domain.Ride, error) {
			return lifecycle.CancelSeat(r, passengerID)
		})
}

// ChangeStatusRequest contains the parameters for a status change.
type ChangeStatusRequest struct {
	RideID string
	Status domain.RideStatus
	// ActorID, when set, must be the ride's driver.
	ActorID string
}

// ChangeStatus moves a ride along the status machine.
func (s *RideService) ChangeStatus(ctx context.Context, req ChangeStatusRequest) (*domain.Ride, error) {
	status, err := domain.ParseRideStatus(string(req.Status))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	return s.mutate(ctx, "change_status", events.TypeStatusChanged, req.ActorID, req.RideID,
		func(r *domain.Ride) (*domain.Ride, error) {
			if req.ActorID != "" && req.ActorID != r.DriverID {
				return nil, ErrNotRideDriver
			}
			return lifecycle.ChangeStatus(r, status)
		})
}

// EndRide finishes a ride that is en route.
func (s *RideService) EndRide(ctx context.Context, rideID, actorID string) (*domain.Ride, error) {
	return s.mutate(ctx, "end_ride", events.TypeStatusChanged, actorID, rideID,
		func(r *domain.Ride) (*domain.Ride, error) {
			if actorID != "" && actorID != r.DriverID {
				return nil, ErrNotRideDriver
			}
			return lifecycle.EndRide(r)
		})
}

// AddCommentRequest contains the parameters for leaving feedback.
type AddCommentRequest struct {
	RideID   string
	AuthorID string
	Like     bool
	Dislike  bool
	Text     string
}

// AddComment appends the author's single comment to a ride.
func (s *RideService) AddComment(ctx context.Context, req AddCommentRequest) (*domain.Ride, error) {
	if req.AuthorID == "" {
		return nil, fmt.Errorf("%w: author id is required", ErrValidation)
	}
	in := lifecycle.CommentInput{
		AuthorID: req.AuthorID,
		Like:     req.Like,
		Dislike:  req.Dislike,
		Text:     req.Text,
	}
	return s.mutate(ctx, "add_comment", events.TypeCommentAdded, req.AuthorID, req.RideID,
		func(r *domain.Ride) (*domain.Ride, error) {
			return lifecycle.AddComment(r, in, s.now())
		})
}

// mutate runs the load, apply, compare-and-swap loop for one ride.
// Errors returned by apply are handed back unchanged and never retried.
func (s *RideService) mutate(
	ctx context.Context,
	op, eventType, actorID, rideID string,
	apply func(*domain.Ride) (*domain.Ride, error),
) (*domain.Ride, error) {
	defer s.observe(op, time.Now())

	if rideID == "" {
		return nil, s.finish(ctx, op, rideID, fmt.Errorf("%w: ride id is required", ErrValidation))
	}

	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, s.finish(ctx, op, rideID, err)
		}

		// Rule checks must see committed state, never a cached copy.
		current, err := repository.LoadFresh(ctx, s.rideRepo, rideID)
		if err != nil {
			return nil, s.finish(ctx, op, rideID, storeError(err))
		}

		next, err := apply(current)
		if err != nil {
			return nil, s.finish(ctx, op, rideID, err)
		}

		stored, err := s.rideRepo.CompareAndSwap(ctx, current.Version, next)
		if err == nil {
			s.finish(ctx, op, rideID, nil)
			s.publish(ctx, events.NewEvent(eventType, actorID, stored))
			return stored, nil
		}
		if !errors.Is(err, repository.ErrConflict) {
			return nil, s.finish(ctx, op, rideID, storeError(err))
		}

		observability.VersionConflicts.WithLabelValues(op).Inc()
		s.log.DebugContext(ctx, "ride version conflict, retrying",
			"operation", op, "ride_id", rideID, "attempt", attempt, "version", current.Version)
	}

	err := fmt.Errorf("%w: ride %s after %d attempts", ErrContention, rideID, s.maxAttempts)
	return nil, s.finish(ctx, op, rideID, err)
}

// finish records the outcome of op and logs failures that are not the caller's fault.
// It returns err so callers can write `return nil, s.finish(...)`.
func (s *RideService) finish(ctx context.Context, op, rideID string, err error) error {
	outcome := outcomeOf(err)
	observability.RideOperations.WithLabelValues(op, outcome).Inc()

	switch outcome {
	case observability.OutcomeContention:
		s.log.WarnContext(ctx, "ride operation gave up under contention",
			"operation", op, "ride_id", rideID, "attempts", s.maxAttempts)
	case observability.OutcomeError:
		s.log.ErrorContext(ctx, "ride operation failed", "operation", op, "ride_id", rideID, "error", err)
	}
	return err
}

func (s *RideService) observe(op string, start time.Time) {
	observability.RideOperationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

// publish delivers e on a best-effort basis; the ride is already committed.
func (s *RideService) publish(ctx context.Context, e events.Event) {
	if err := s.publisher.Publish(ctx, e); err != nil {
		observability.EventPublishFailures.Inc()
		s.log.WarnContext(ctx, "failed to publish ride event",
			"event", e.RoutingKey(), "ride_id", e.RideID, "version", e.Version, "error", err)
	}
}

// storeError translates a repository failure into the service error taxonomy.
func storeError(err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return ErrRideNotFound
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return observability.OutcomeOK
	case errors.Is(err, ErrRideNotFound):
		return observability.OutcomeNotFound
	case errors.Is(err, ErrContention):
		return observability.OutcomeContention
	case errors.Is(err, ErrValidation), errors.Is(err, ErrNotRideDriver), lifecycle.IsStateConflict(err):
		return observability.OutcomeRejected
	default:
		return observability.OutcomeError
	}
}
