// Package supervise runs one external remapper instance per ready device
// group and owns its full lifecycle.
//
// Each group key moves through a small state machine:
//
//	            Launch                 exit monitor
//	  ┌──────┐ ───────▶ ┌──────────┐ ─────────────▶ ┌─────────┐
//	  │ idle │          │ starting │                │ running │
//	  └──────┘ ◀─────── └──────────┘                └─────────┘
//	     ▲      failure                               │      │
//	     │                                     Stop   │      │ unexpected
//	     │                                            ▼      ▼ exit
//	     │     confirmed dead   ┌──────────┐      ┌─────────┐
//	     ├──────────────────────│ stopping │      │ backoff │
//	     │                      └──────────┘      └─────────┘
//	     └────────────────────────────────────────────┘
//	                     backoff elapsed
//
// At most one process ever runs per key: a launch is only accepted from
// idle, and a key only returns to idle once its process is confirmed dead.
// A crash moves the key to backoff. There is no automatic restart; the
// next device-event-triggered evaluation relaunches once the backoff has
// elapsed.
//
// Stopping follows the usual escalation: SIGTERM to the process group,
// a bounded grace period, then SIGKILL. Remapper instances are started in
// their own process group so the whole tree is signalled together.
package supervise
