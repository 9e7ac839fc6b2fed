package classify

import "errors"

// Domain errors for the classify package.
var (
	// ErrUnavailable is returned when the oracle cannot produce a class:
	// missing binary, non-zero exit, timeout, or unparseable output.
	// Callers treat the device as still-unresolved and retry later.
	ErrUnavailable = errors.New("classify: oracle unavailable")
)
