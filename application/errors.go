package application

import "errors"

// Application errors.
var (
	// ErrMissingCollaborator indicates a required world port was not configured.
	ErrMissingCollaborator = errors.New("collaborator is required")

	// ErrInvalidBudgetRange indicates the render budget range is empty.
	ErrInvalidBudgetRange = errors.New("render budget range is empty")

	// ErrEmptyCatalog indicates no artifacts were configured.
	ErrEmptyCatalog = errors.New("artifact catalog is empty")

	// ErrScanFailed indicates the scanner reported a failed scan.
	ErrScanFailed = errors.New("scan failed")

	// ErrUnknownOutcome indicates the renderer returned an unrecognized outcome.
	ErrUnknownOutcome = errors.New("unknown render outcome")
)
