package quota

import "errors"

// Domain errors for quota tracking.
var (
	// ErrUnknownMode indicates the matching mode is not recognized.
	ErrUnknownMode = errors.New("unknown quota mode")

	// ErrNoQuotas indicates a tracker was created without quotas.
	ErrNoQuotas = errors.New("at least one quota is required")

	// ErrInvalidTarget indicates a quota target is not positive.
	ErrInvalidTarget = errors.New("quota target must be positive")
)
