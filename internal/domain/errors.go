package domain

import "errors"

// Sentinel errors used across layers.
var (
	ErrNotFound          = errors.New("not found")
	ErrMalformedState    = errors.New("malformed timer state")
	ErrInvalidTimerType  = errors.New("invalid timer type")
	ErrInvalidCustomTime = errors.New("custom time must be between 1 second and 3 hours")
	ErrUnknownAction     = errors.New("unknown action")
	ErrClosed            = errors.New("closed")
)
