// Package services holds the application logic behind the HTTP layer: the
// error response builder and the error event journal. This file centralizes
// service-level error values so callers can check them with errors.Is.
//
// Translation into HTTP statuses happens in the handler layer.
package services

import "errors"

// Journal errors.
var (
	// ErrEventNotFound indicates that the requested error event does not exist.
	ErrEventNotFound = errors.New("error event not found")

	// ErrInvalidFilter is returned for a status outside 400–599 or an unknown
	// event source.
	ErrInvalidFilter = errors.New("invalid error event filter")
)
