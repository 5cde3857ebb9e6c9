package event

import "errors"

// Domain errors for event store operations.
var (
	// ErrInvalidEvent is returned when an event is malformed.
	ErrInvalidEvent = errors.New("invalid event")

	// ErrStoreClosed is returned when an operation hits a closed store.
	ErrStoreClosed = errors.New("event store closed")
)
