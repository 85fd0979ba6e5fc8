package domain

import "errors"

var (
	// ErrInvalidSpec is returned when a ride cannot be created from the supplied spec.
	ErrInvalidSpec = errors.New("invalid ride spec")
)
