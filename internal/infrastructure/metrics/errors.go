package metrics

import "errors"

// Domain errors for the metrics package.
//
// Connect is the only operation that fails synchronously; everything after
// it is fire-and-forget. Check with errors.Is():
//
//	if errors.Is(err, metrics.ErrDisabled) {
//	    // run without telemetry
//	}
var (
	// ErrDisabled indicates telemetry is disabled in config.
	ErrDisabled = errors.New("metrics: disabled in configuration")

	// ErrConnectionFailed indicates the initial connection attempt failed.
	ErrConnectionFailed = errors.New("metrics: connection failed")
)
