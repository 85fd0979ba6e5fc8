package tests

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"carpool/internal/domain"
	"carpool/internal/events"
	"carpool/internal/repository"
	"carpool/internal/repository/memory"
	"carpool/internal/service"
)

// ──────────────────────────────────────────────
// MOCK RIDE REPOSITORY
// ──────────────────────────────────────────────

// MockRideRepository wraps the in-memory store with call counters and
// error injection.
type MockRideRepository struct {
	store *memory.RideRepository

	// Counters for verification
	GetByIDCallCount        int32
	CompareAndSwapCallCount int32

	// Error injection
	CreateError  error
	GetByIDError error
	CASError     error
	// AlwaysConflict makes every CompareAndSwap lose to a phantom writer.
	AlwaysConflict bool

	mu sync.Mutex
	// beforeCAS runs once per CompareAndSwap call, before the store sees it.
	beforeCAS func()
}

// NewMockRideRepository creates a new mock ride repository.
func NewMockRideRepository() *MockRideRepository {
	return &MockRideRepository{store: memory.NewRideRepository()}
}

// SetBeforeCAS installs a hook that runs ahead of every CompareAndSwap.
func (m *MockRideRepository) SetBeforeCAS(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.beforeCAS = fn
}

func (m *MockRideRepository) Create(ctx context.Context, spec domain.RideSpec) (*domain.Ride, error) {
	if m.CreateError != nil {
		return nil, m.CreateError
	}
	return m.store.Create(ctx, spec)
}

func (m *MockRideRepository) GetByID(ctx context.Context, id string) (*domain.Ride, error) {
	atomic.AddInt32(&m.GetByIDCallCount, 1)
	if m.GetByIDError != nil {
		return nil, m.GetByIDError
	}
	return m.store.GetByID(ctx, id)
}

func (m *MockRideRepository) List(ctx context.Context, driverID string, limit int) ([]*domain.Ride, error) {
	return m.store.List(ctx, driverID, limit)
}

func (m *MockRideRepository) CompareAndSwap(ctx context.Context, expectedVersion int64, ride *domain.Ride) (*domain.Ride, error) {
	atomic.AddInt32(&m.CompareAndSwapCallCount, 1)

	m.mu.Lock()
	hook := m.beforeCAS
	m.mu.Unlock()
	if hook != nil {
		hook()
	}

	if m.CASError != nil {
		return nil, m.CASError
	}
	if m.AlwaysConflict {
		return nil, repository.ErrConflict
	}
	return m.store.CompareAndSwap(ctx, expectedVersion, ride)
}

// Store exposes the backing store so tests can commit behind the service's back.
func (m *MockRideRepository) Store() *memory.RideRepository {
	return m.store
}

// ──────────────────────────────────────────────
// HELPERS
// ──────────────────────────────────────────────

var errConnectionRefused = errors.New("dial tcp 127.0.0.1:5432: connect: connection refused")

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newRideService(repo repository.RideRepository, publisher events.Publisher) *service.RideService {
	return service.NewRideService(repo, publisher, discardLogger(), 3)
}

func createRide(ctx context.Context, s *service.RideService, seats int) (*domain.Ride, error) {
	return s.CreateRide(ctx, service.CreateRideRequest{
		DriverID:        "driver-1",
		TotalSeats:      seats,
		StartLocationID: "loc-campus",
		DestinationID:   "loc-station",
		ScheduledAt:     scheduledAt,
	})
}
