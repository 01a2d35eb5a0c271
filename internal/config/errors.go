package config

import "errors"

var (
	// ErrParse means a configuration file could not be decoded.
	ErrParse = errors.New("config parse error")

	// ErrInvalidValue means a setting is outside its usable range.
	ErrInvalidValue = errors.New("invalid config value")
)
