package repository

import "errors"

var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("entity not found")

	// ErrConflict is returned by CompareAndSwap when the stored version moved on.
	ErrConflict = errors.New("version conflict")
)
