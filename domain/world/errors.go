package world

import "errors"

// Errors returned by world collaborators.
var (
	// ErrUnknownCategory indicates a category name is not recognized.
	ErrUnknownCategory = errors.New("unknown category")

	// ErrOutOfBounds indicates a coordinate lies outside the world.
	ErrOutOfBounds = errors.New("coordinate out of bounds")

	// ErrBlocked indicates the destination tile cannot be entered.
	ErrBlocked = errors.New("tile is blocked")

	// ErrNoEnergy indicates the body lacks energy for the operation.
	ErrNoEnergy = errors.New("not enough energy")

	// ErrNoPath indicates the planner found no route to the target.
	ErrNoPath = errors.New("no path to target")

	// ErrNotPlanned indicates ActionsTo was called before Plan.
	ErrNotPlanned = errors.New("planner has no cost model")

	// ErrUnknownHandle indicates a handle does not belong to this world.
	ErrUnknownHandle = errors.New("handle does not belong to this world")
)
