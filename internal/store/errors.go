package store

import "errors"

// Sentinel errors for the store package.
var (
	// ErrNotFound is returned when a requested row does not exist.
	ErrNotFound = errors.New("row not found")

	// ErrInvalidEvent is returned when an event fails validation.
	ErrInvalidEvent = errors.New("invalid event")
)
