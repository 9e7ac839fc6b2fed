// Package watch turns device-namespace directory changes into a stream of
// add/remove events.
//
// The watcher observes a single flat directory (normally
// /dev/input/by-path) via inotify. On start it first enumerates what is
// already there, so a fresh start and a hotplug arrive through the same
// channel:
//
//	events, err := watch.New(dir).Start(ctx)
//	// Added usb-1.2-event-kbd      (seeded from the initial scan)
//	// Added usb-1.2-event-mouse    (live hotplug)
//	// Removed usb-1.2-event-mouse
//
// A node that is both seeded and reported live produces a duplicate Added
// event; consumers treat adds as idempotent. Write and chmod noise is
// filtered out here.
//
// If the directory cannot be watched at all the daemon cannot do its job:
// Start fails with ErrWatchUnavailable and the caller exits non-zero.
package watch
