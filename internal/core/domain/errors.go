package domain

import "errors"

var (
	ErrJobNotFound      = errors.New("job not found")
	ErrInvalidURL       = errors.New("invalid product URL")
	ErrNotInteractive   = errors.New("browser not available")
	ErrGateTimeout      = errors.New("gate not cleared in time")
	ErrInputQueueFull   = errors.New("input queue full")
	ErrInputRateLimited = errors.New("input rate limited")
	ErrInvalidInput     = errors.New("invalid input event")

	// ErrDriver marks faults of the browser driver itself (launch failure, closed
	// target). Anything wrapping it terminates the job.
	ErrDriver = errors.New("browser driver fault")
)
