package devpath

import "errors"

// Domain errors for the devpath package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, devpath.ErrMalformedPath) {
//	    // skip the node, it does not follow the naming convention
//	}
var (
	// ErrMalformedPath is returned when a node name does not follow the
	// physical-path naming convention: no recognised role tag, or the
	// remaining prefix does not end in a bus topology segment.
	ErrMalformedPath = errors.New("devpath: malformed path")
)
