// Package classify resolves ambiguous pointer devices via an external oracle.
//
// A node tagged "mouse" or "event-mouse" may be a multitouch trackpad or an
// ordinary mouse; the tag alone cannot tell. The oracle is an external
// command invoked with the device node path as its only argument. It prints
// a single class token on stdout:
//
//	$ padclass /dev/input/by-path/usb-1.2-event-mouse
//	multitouch-trackpad
//
// Only "multitouch-trackpad" marks a device as a trackpad; any other token
// is a non-trackpad pointer. A missing oracle, non-zero exit, timeout or
// unparseable output yields ErrUnavailable: the device simply stays
// unresolved and the query is retried on the next evaluation.
//
// Results are cached per node name and invalidated when the node is
// removed, so a re-plugged device is re-queried.
//
// # Thread Safety
//
// Classifier is safe for concurrent use; queries run outside the cache
// lock.
package classify
