package storage

import "errors"

// ErrRunNotFound is returned when no run exists with the requested ID
var ErrRunNotFound = errors.New("run not found")
