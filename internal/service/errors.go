package service

import "errors"

var (
	// ErrRideNotFound is returned when the requested ride does not exist.
	ErrRideNotFound = errors.New("ride not found")

	// ErrValidation is returned for malformed requests, such as a missing ride id or totalSeats < 1.
	ErrValidation = errors.New("validation failed")

	// ErrContention is returned when every compare-and-swap attempt lost to a concurrent writer.
	ErrContention = errors.New("ride is being modified concurrently, retry later")

	// ErrStoreUnavailable wraps failures of the ride store itself.
	ErrStoreUnavailable = errors.New("ride store unavailable")

	// ErrNotRideDriver is returned when someone other than the driver changes a ride's status.
	ErrNotRideDriver = errors.New("only the ride's driver may change its status")
)
