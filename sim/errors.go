package sim

import "errors"

var (
	// ErrInvalidTime is returned when an event or a stop is requested at a
	// virtual time earlier than the current time.
	ErrInvalidTime = errors.New("sim: time is earlier than now")

	// ErrInvalidDelay is returned when a negative delay is given.
	ErrInvalidDelay = errors.New("sim: delay is negative")

	// ErrAlreadyRunning is returned when Run is called while the scheduler is
	// already running, including from inside a callback.
	ErrAlreadyRunning = errors.New("sim: scheduler is already running")
)
