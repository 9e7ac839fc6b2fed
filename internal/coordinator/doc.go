// Package coordinator serialises everything the daemon does into one loop.
//
// Device arrivals and removals, classification verdicts and remapper
// lifecycle transitions all land on a single queue and are applied by a
// single goroutine, so group state never needs a lock and every decision
// sees a consistent picture:
//
//	watcher ──▶ deviceAdded / deviceRemoved ──┐
//	classify workers ──▶ classResolved ───────┤
//	launch workers ──▶ launchCompleted ───────┼──▶ queue ──▶ Run loop
//	lifecycle manager ──▶ processExited ──────┤
//	stop workers ──▶ stopCompleted ───────────┘
//
// Device events do not trigger evaluation directly. Each one marks its
// group pending and arms a debounce timer; further events push the timer
// back, bounded by a settle cap measured from the first event of the
// window. When the timer fires, every pending group is evaluated exactly
// once. Hotplug bursts (a USB hub enumerating four nodes in a few
// milliseconds) therefore produce one launch, not four aborted ones.
//
// Evaluation compares a group snapshot against the requirement and the
// lifecycle state: a ready group with no instance is launched, a running
// group that is no longer ready is stopped. Blocking work (oracle queries,
// fork or exec, graceful termination) happens in worker goroutines that
// report back through the queue; the loop itself never blocks.
//
// A crashed remapper is not restarted. Its group sits in backoff and is
// reconsidered only when a later device event marks it pending again.
//
// # Thread Safety
//
// DeviceAdded, DeviceRemoved and SetLogger are safe to call from any
// goroutine. All other state belongs to the Run goroutine.
package coordinator
