package health

import "errors"

var (
	// ErrCheckTimeout is attached to checks that did not finish in time.
	ErrCheckTimeout = errors.New("health: check timeout")

	// ErrServerFailed is returned when the probe server stops unexpectedly.
	ErrServerFailed = errors.New("health: server failed")
)
