package group

import (
	"github.com/nerrad567/padherd/internal/classify"
	"github.com/nerrad567/padherd/internal/devpath"
)

// CountMembers breaks a member list down by what each device counts for.
func CountMembers(members []Device) Tally {
	var t Tally
	for _, d := range members {
		switch {
		case d.Role == devpath.RoleKeyboard:
			t.Keyboards++
		case d.Class == classify.ClassTrackpad:
			t.Trackpads++
		case d.Class == classify.ClassUnknown:
			t.Unresolved++
		default:
			t.Others++
		}
	}
	return t
}

// Evaluate determines a group's readiness against a requirement.
//
// Pure function: no members means empty; enough keyboards and enough
// confirmed trackpads means ready; anything else is incomplete. An
// unresolved pointer contributes nothing, so readiness can only go up
// once the oracle confirms it, never down.
func Evaluate(members []Device, req Requirement) Readiness {
	if len(members) == 0 {
		return ReadinessEmpty
	}

	t := CountMembers(members)
	if t.Keyboards >= req.Keyboards && t.Trackpads >= req.Trackpads {
		return ReadinessReady
	}
	return ReadinessIncomplete
}
