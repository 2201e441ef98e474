package errors

import "errors"

var (
	ErrNotFound = errors.New("queue entry not found")

	ErrInvalidID = errors.New("invalid queue entry ID format")

	ErrNotWaiting = errors.New("queue entry is not waiting")
)
