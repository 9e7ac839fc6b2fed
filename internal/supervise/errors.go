package supervise

import "errors"

// Domain errors for the supervise package.
var (
	// ErrLaunchFailed is returned when the remapper process could not be
	// started. The group stays idle; the next readiness evaluation may
	// try again.
	ErrLaunchFailed = errors.New("supervise: launch failed")

	// ErrAlreadyRunning is returned when a launch is requested for a key
	// that is not idle.
	ErrAlreadyRunning = errors.New("supervise: already running")

	// ErrBackoff is returned when a launch is requested for a key still
	// inside its post-crash hold-off window.
	ErrBackoff = errors.New("supervise: in crash backoff")
)
