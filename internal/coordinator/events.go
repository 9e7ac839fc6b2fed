package coordinator

import (
	"github.com/nerrad567/padherd/internal/classify"
	"github.com/nerrad567/padherd/internal/supervise"
)

// event is one unit of work for the coordination loop. Everything that can
// change device or lifecycle state arrives as one of these, in order.
type event interface {
	isEvent()
}

// deviceAdded reports a node appearing in the watched directory.
type deviceAdded struct {
	node string
}

// deviceRemoved reports a node leaving the watched directory.
type deviceRemoved struct {
	node string
}

// classResolved delivers a classification worker's outcome. err set means
// no verdict; the device stays unresolved. gen ties the verdict to the
// query that produced it, so a verdict for a since-replugged node is
// recognised as stale and dropped.
type classResolved struct {
	node  string
	gen   uint64
	class classify.Class
	err   error
}

// launchCompleted delivers a launch worker's outcome.
type launchCompleted struct {
	key  string
	proc supervise.ManagedProcess
	err  error
}

// processExited reports a running remapper dying without being asked to.
type processExited struct {
	key      string
	launchID string
	err      error
}

// stopCompleted reports a requested termination finishing.
type stopCompleted struct {
	key      string
	launchID string
}

func (deviceAdded) isEvent()     {}
func (deviceRemoved) isEvent()   {}
func (classResolved) isEvent()   {}
func (launchCompleted) isEvent() {}
func (processExited) isEvent()   {}
func (stopCompleted) isEvent()   {}
