package server

import "errors"

var (
	// ErrServiceRequired is returned when a handler is created without a service.
	ErrServiceRequired = errors.New("recommendation service required")
)
