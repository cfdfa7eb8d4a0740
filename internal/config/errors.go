package config

import "errors"

// Sentinel error kinds for errors.Is checks by callers.
var (
	ErrInvalidConfig = errors.New("invalid config")
	ErrLoadConfig    = errors.New("load config failed")
)
