package group

import (
	"time"

	"github.com/nerrad567/padherd/internal/classify"
	"github.com/nerrad567/padherd/internal/devpath"
)

// Device is one tracked input device node.
type Device struct {
	// Node is the device node name (base name, no directory part).
	Node string
	// Prefix is the physical-path prefix the device is grouped by.
	Prefix string
	// Role is the role parsed from the node's tag.
	Role devpath.Role
	// Class is the oracle's verdict for pointer devices.
	// classify.ClassUnknown until resolved; keyboards never get one.
	Class classify.Class
	// Present is true while the node is attached. Copies handed out
	// before a removal keep their value.
	Present bool
	// AddedAt is when the device was first seen.
	AddedAt time.Time
}

// Group is a snapshot of one prefix group.
type Group struct {
	// Key is the shared physical-path prefix.
	Key string
	// Members are copies of the group's devices, sorted by node name.
	Members []Device
}

// Requirement is what a group must contain to be considered ready.
type Requirement struct {
	// Keyboards is the minimum number of keyboard-role members.
	Keyboards int
	// Trackpads is the minimum number of members confirmed as
	// multitouch trackpads.
	Trackpads int
}

// Readiness is the result of evaluating a group against a Requirement.
type Readiness string

const (
	// ReadinessEmpty means the group has no members (and is about to be
	// dropped from the table).
	ReadinessEmpty Readiness = "empty"
	// ReadinessIncomplete means the group exists but does not meet the
	// requirement, possibly because classification is still pending.
	ReadinessIncomplete Readiness = "incomplete"
	// ReadinessReady means the requirement is met and a remapper
	// instance should be running for this group.
	ReadinessReady Readiness = "ready"
)

// Tally is a breakdown of group members by what they count for.
type Tally struct {
	// Keyboards is the number of keyboard-role members.
	Keyboards int
	// Trackpads is the number of confirmed multitouch trackpads.
	Trackpads int
	// Unresolved is the number of pointer-role members awaiting
	// classification.
	Unresolved int
	// Others is the number of pointer-role members confirmed as
	// something other than a trackpad.
	Others int
}
