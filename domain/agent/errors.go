package agent

import (
	"errors"
	"fmt"
)

// Domain errors for the agent.
var (
	// ErrInvalidState indicates the state is not a recognized canonical state.
	ErrInvalidState = errors.New("invalid state")

	// ErrInvalidTransition indicates a proposed transition is outside the table.
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrEmptyQueue indicates a pop was attempted on an empty queue.
	ErrEmptyQueue = errors.New("queue is empty")
)

// InvalidTransitionError names the offending (from, to) pair.
type InvalidTransitionError struct {
	From State
	To   State
}

// Error implements the error interface.
func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("%s: %s -> %s", ErrInvalidTransition, e.From, e.To)
}

// Unwrap allows errors.Is(err, ErrInvalidTransition).
func (e *InvalidTransitionError) Unwrap() error {
	return ErrInvalidTransition
}
