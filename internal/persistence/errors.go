package persistence

import "errors"

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("persistence: not found")
	// ErrClosed is returned by writers and stores used after Close.
	ErrClosed = errors.New("persistence: closed")
)
