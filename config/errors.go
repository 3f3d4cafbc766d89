package config

import "errors"

var (
	// ErrReadConfig is returned when a config file exists but cannot be read.
	ErrReadConfig = errors.New("error reading config file")

	// ErrInvalidConfig is returned when a loaded value is out of range.
	ErrInvalidConfig = errors.New("invalid configuration")
)
