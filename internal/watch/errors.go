package watch

import "errors"

// Domain errors for the watch package.
var (
	// ErrWatchUnavailable is returned when the device namespace cannot
	// be watched: the inotify watcher could not be created or the
	// directory could not be added. Fatal at startup.
	ErrWatchUnavailable = errors.New("watch: device namespace unavailable")
)
