package lifecycle_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carpool/internal/domain"
	"carpool/internal/lifecycle"
)

func newRide(seats int) *domain.Ride {
	return domain.NewRide("ride-1", domain.RideSpec{
		DriverID:        "driver-1",
		TotalSeats:      seats,
		StartLocationID: "loc-a",
		DestinationID:   "loc-b",
		ScheduledAt:     time.Date(2026, 5, 1, 8, 30, 0, 0, time.UTC),
	})
}

func rideWithStatus(status domain.RideStatus) *domain.Ride {
	r := newRide(2)
	r.Status = status
	return r
}

func assertSeatInvariant(t *testing.T, r *domain.Ride) {
	t.Helper()
	assert.Equal(t, r.TotalSeats, r.AvailableSeats+len(r.Passengers), "available + passengers must equal total seats")
	assert.GreaterOrEqual(t, r.AvailableSeats, 0)
}

func TestBookSeat_Success(t *testing.T) {
	t.Parallel()

	ride := newRide(2)

	got, err := lifecycle.BookSeat(ride, "p-a")

	require.NoError(t, err)
	assert.Equal(t, []string{"p-a"}, got.Passengers)
	assert.Equal(t, 1, got.AvailableSeats)
	assertSeatInvariant(t, got)

	// The input snapshot is left untouched.
	assert.Empty(t, ride.Passengers)
	assert.Equal(t, 2, ride.AvailableSeats)
}

func TestBookSeat_Failures(t *testing.T) {
	t.Parallel()

	full := newRide(1)
	full.Passengers = []string{"p-a"}
	full.AvailableSeats = 0

	booked := newRide(2)
	booked.Passengers = []string{"p-a"}
	booked.AvailableSeats = 1

	tests := []struct {
		name      string
		ride      *domain.Ride
		passenger string
		want      error
	}{
		{name: "en route", ride: rideWithStatus(domain.RideStatusEnRoute), passenger: "p-b", want: lifecycle.ErrRideNotWaiting},
		{name: "finished", ride: rideWithStatus(domain.RideStatusFinished), passenger: "p-b", want: lifecycle.ErrRideNotWaiting},
		{name: "crashed", ride: rideWithStatus(domain.RideStatusCrashed), passenger: "p-b", want: lifecycle.ErrRideNotWaiting},
		{name: "driver", ride: newRide(2), passenger: "driver-1", want: lifecycle.ErrSelfBooking},
		{name: "already booked", ride: booked, passenger: "p-a", want: lifecycle.ErrAlreadyBooked},
		{name: "no capacity", ride: full, passenger: "p-b", want: lifecycle.ErrNoCapacity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := tt.ride.Clone()

			got, err := lifecycle.BookSeat(tt.ride, tt.passenger)

			assert.Nil(t, got)
			assert.ErrorIs(t, err, tt.want)
			assert.True(t, lifecycle.IsStateConflict(err))
			assert.Equal(t, before, tt.ride, "failed booking must not change state")
		})
	}
}

func TestCancelSeat(t *testing.T) {
	t.Parallel()

	ride := newRide(3)
	ride, err := lifecycle.BookSeat(ride, "p-a")
	require.NoError(t, err)
	ride, err = lifecycle.BookSeat(ride, "p-b")
	require.NoError(t, err)

	got, err := lifecycle.CancelSeat(ride, "p-a")

	require.NoError(t, err)
	assert.Equal(t, []string{"p-b"}, got.Passengers)
	assert.Equal(t, 2, got.AvailableSeats)
	assertSeatInvariant(t, got)
	assert.Equal(t, []string{"p-a", "p-b"}, ride.Passengers)
}

func TestCancelSeat_NotBooked(t *testing.T) {
	t.Parallel()

	_, err := lifecycle.CancelSeat(newRide(2), "p-a")

	assert.ErrorIs(t, err, lifecycle.ErrNotBooked)
}

func TestCancelSeat_NotWaiting(t *testing.T) {
	t.Parallel()

	ride := rideWithStatus(domain.RideStatusEnRoute)
	ride.Passengers = []string{"p-a"}
	ride.AvailableSeats = 1

	_, err := lifecycle.CancelSeat(ride, "p-a")

	assert.ErrorIs(t, err, lifecycle.ErrRideNotWaiting)
}

func TestSeatInvariant_AcrossSequence(t *testing.T) {
	t.Parallel()

	ride := newRide(3)
	ops := []struct {
		book bool
		id   string
	}{
		{true, "p-a"}, {true, "p-b"}, {false, "p-a"}, {true, "p-c"},
		{true, "p-d"}, {true, "p-e"}, {false, "p-x"}, {false, "p-c"}, {true, "p-a"},
	}

	for i, op := range ops {
		var (
			next *domain.Ride
			err  error
		)
		if op.book {
			next, err = lifecycle.BookSeat(ride, op.id)
		} else {
			next, err = lifecycle.CancelSeat(ride, op.id)
		}
		if err == nil {
			ride = next
		}
		assertSeatInvariant(t, ride)
		assert.LessOrEqual(t, len(ride.Passengers), ride.TotalSeats, "step %d", i)
	}
}

func TestChangeStatus_TransitionMatrix(t *testing.T) {
	t.Parallel()

	allowed := map[[2]domain.RideStatus]bool{
		{domain.RideStatusWaiting, domain.RideStatusEnRoute}:  true,
		{domain.RideStatusEnRoute, domain.RideStatusFinished}: true,
		{domain.RideStatusEnRoute, domain.RideStatusCrashed}:  true,
	}

	for _, from := range domain.RideStatuses {
		for _, to := range domain.RideStatuses {
			t.Run(fmt.Sprintf("%s_to_%s", from, to), func(t *testing.T) {
				ride := rideWithStatus(from)

				got, err := lifecycle.ChangeStatus(ride, to)

				if allowed[[2]domain.RideStatus{from, to}] {
					require.NoError(t, err)
					assert.Equal(t, to, got.Status)
					assert.Equal(t, from, ride.Status)
					return
				}
				assert.ErrorIs(t, err, lifecycle.ErrInvalidTransition)
				assert.Nil(t, got)
			})
		}
	}
}

func TestEndRide(t *testing.T) {
	t.Parallel()

	got, err := lifecycle.EndRide(rideWithStatus(domain.RideStatusEnRoute))
	require.NoError(t, err)
	assert.Equal(t, domain.RideStatusFinished, got.Status)
	assert.True(t, got.RideFinished())

	_, err = lifecycle.EndRide(rideWithStatus(domain.RideStatusWaiting))
	assert.ErrorIs(t, err, lifecycle.ErrInvalidTransition)
}

func TestTerminalRide_SeatsFrozen(t *testing.T) {
	t.Parallel()

	for _, status := range []domain.RideStatus{domain.RideStatusFinished, domain.RideStatusCrashed} {
		ride := rideWithStatus(status)
		ride.Passengers = []string{"p-a"}
		ride.AvailableSeats = 1

		_, err := lifecycle.BookSeat(ride, "p-b")
		assert.ErrorIs(t, err, lifecycle.ErrRideNotWaiting)

		_, err = lifecycle.CancelSeat(ride, "p-a")
		assert.ErrorIs(t, err, lifecycle.ErrRideNotWaiting)
	}
}

func TestScenario_TwoSeatRide(t *testing.T) {
	t.Parallel()

	ride := newRide(2)

	ride, err := lifecycle.BookSeat(ride, "A")
	require.NoError(t, err)
	assert.Equal(t, 1, ride.AvailableSeats)

	_, err = lifecycle.BookSeat(ride, "A")
	assert.ErrorIs(t, err, lifecycle.ErrAlreadyBooked)

	ride, err = lifecycle.BookSeat(ride, "B")
	require.NoError(t, err)
	assert.Equal(t, 0, ride.AvailableSeats)

	_, err = lifecycle.BookSeat(ride, "C")
	assert.ErrorIs(t, err, lifecycle.ErrNoCapacity)

	ride, err = lifecycle.ChangeStatus(ride, domain.RideStatusEnRoute)
	require.NoError(t, err)

	ride, err = lifecycle.ChangeStatus(ride, domain.RideStatusFinished)
	require.NoError(t, err)

	_, err = lifecycle.CancelSeat(ride, "A")
	assert.ErrorIs(t, err, lifecycle.ErrRideNotWaiting)
	assertSeatInvariant(t, ride)
}

func TestIsStateConflict(t *testing.T) {
	t.Parallel()

	assert.True(t, lifecycle.IsStateConflict(fmt.Errorf("wrapped: %w", lifecycle.ErrNoCapacity)))
	assert.False(t, lifecycle.IsStateConflict(fmt.Errorf("boom")))
	assert.False(t, lifecycle.IsStateConflict(nil))
}
