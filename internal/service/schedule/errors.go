package schedule

import "errors"

// Sentinel errors for the event scheduler.
var (
	ErrNotFound     = errors.New("scheduled event not found")
	ErrTypeMismatch = errors.New("category does not match event type")
)
