// Package lifecycle holds the ride state machine, seat bookkeeping and feedback rules.
// Every operation takes a ride snapshot and returns a new snapshot or a *RuleError;
// nothing here performs I/O, and the input snapshot is never modified.
package lifecycle

import (
	"slices"

	"carpool/internal/domain"
)

// transitions lists the allowed status edges.
var transitions = map[domain.RideStatus][]domain.RideStatus{
	domain.RideStatusWaiting: {domain.RideStatusEnRoute},
	domain.RideStatusEnRoute: {domain.RideStatusFinished, domain.RideStatusCrashed},
}

// CanTransition reports whether a ride may move from one status to another.
func CanTransition(from, to domain.RideStatus) bool {
	return slices.Contains(transitions[from], to)
}

// BookSeat reserves one seat on ride for passengerID.
func BookSeat(ride *domain.Ride, passengerID string) (*domain.Ride, error) {
	if ride.Status != domain.RideStatusWaiting {
		return nil, ErrRideNotWaiting
	}
	if passengerID == ride.DriverID {
		return nil, ErrSelfBooking
	}
	if ride.HasPassenger(passengerID) {
		return nil, ErrAlreadyBooked
	}
	if ride.AvailableSeats <= 0 {
		return nil, ErrNoCapacity
	}

	next := ride.Clone()
	next.Passengers = append(next.Passengers, passengerID)
	next.AvailableSeats--
	return next, nil
}

// CancelSeat releases the seat held by passengerID.
func CancelSeat(ride *domain.Ride, passengerID string) (*domain.Ride, error) {
	if ride.Status != domain.RideStatusWaiting {
		return nil, ErrRideNotWaiting
	}
	idx := slices.Index(ride.Passengers, passengerID)
	if idx < 0 {
		return nil, ErrNotBooked
	}

	next := ride.Clone()
	next.Passengers = slices.Delete(next.Passengers, idx, idx+1)
	next.AvailableSeats++
	return next, nil
}

// ChangeStatus moves ride to status along one of the allowed edges.
// Same-state changes and re-entering a terminal status are rejected.
func ChangeStatus(ride *domain.Ride, status domain.RideStatus) (*domain.Ride, error) {
	if !CanTransition(ride.Status, status) {
		return nil, ErrInvalidTransition
	}

	next := ride.Clone()
	next.Status = status
	return next, nil
}

// EndRide finishes a ride that is en route.
func EndRide(ride *domain.Ride) (*domain.Ride, error) {
	return ChangeStatus(ride, domain.RideStatusFinished)
}
