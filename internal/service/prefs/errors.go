package prefs

import "errors"

// Sentinel errors for the preference accessor.
var (
	ErrNotFound      = errors.New("preferences not found")
	ErrInvalidWindow = errors.New("allowed window start is after end")
)
