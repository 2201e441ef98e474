package errors

import "errors"

var (
	ErrNotFound = errors.New("unit not found")

	ErrInvalidID = errors.New("invalid unit ID format")

	ErrProfessionalNotFound = errors.New("professional not found")

	ErrServiceNotFound = errors.New("service not found")

	ErrClientNotFound = errors.New("client not found")

	ErrArchived = errors.New("unit is archived")
)
