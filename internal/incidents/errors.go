package incidents

import "errors"

// Domain errors surfaced verbatim to callers.
var (
	ErrNotFound          = errors.New("incident not found")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrInvalidStatus     = errors.New("invalid status")
	ErrInvalidActionType = errors.New("invalid action type")
)
