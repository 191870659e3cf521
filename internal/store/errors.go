package store

import "errors"

// ErrNotFound is returned when a record does not exist. Absence is a valid
// result for callers, not a failure.
var ErrNotFound = errors.New("record not found")
