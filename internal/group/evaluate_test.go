package group

import (
	"testing"

	"github.com/nerrad567/padherd/internal/classify"
	"github.com/nerrad567/padherd/internal/devpath"
)

func kbd(node string) Device {
	return Device{Node: node, Role: devpath.RoleKeyboard, Present: true}
}

func pointer(node string, class classify.Class) Device {
	return Device{Node: node, Role: devpath.RolePointer, Class: class, Present: true}
}

func TestEvaluate(t *testing.T) {
	oneEach := Requirement{Keyboards: 1, Trackpads: 1}

	tests := []struct {
		name    string
		members []Device
		req     Requirement
		want    Readiness
	}{
		{
			name:    "no members",
			members: nil,
			req:     oneEach,
			want:    ReadinessEmpty,
		},
		{
			name:    "keyboard alone",
			members: []Device{kbd("usb-1.2-kbd")},
			req:     oneEach,
			want:    ReadinessIncomplete,
		},
		{
			name: "keyboard plus unresolved pointer",
			members: []Device{
				kbd("usb-1.2-kbd"),
				pointer("usb-1.2-mouse", classify.ClassUnknown),
			},
			req:  oneEach,
			want: ReadinessIncomplete,
		},
		{
			name: "keyboard plus ordinary mouse",
			members: []Device{
				kbd("usb-1.2-kbd"),
				pointer("usb-1.2-mouse", classify.ClassOther),
			},
			req:  oneEach,
			want: ReadinessIncomplete,
		},
		{
			name: "keyboard plus confirmed trackpad",
			members: []Device{
				kbd("usb-1.2-kbd"),
				pointer("usb-1.2-mouse", classify.ClassTrackpad),
			},
			req:  oneEach,
			want: ReadinessReady,
		},
		{
			name: "surplus devices still ready",
			members: []Device{
				kbd("usb-1.2-kbd"),
				kbd("usb-1.2-event-kbd"),
				pointer("usb-1.2-mouse", classify.ClassTrackpad),
				pointer("usb-1.2-event-mouse", classify.ClassTrackpad),
			},
			req:  oneEach,
			want: ReadinessReady,
		},
		{
			name: "trackpad only requirement",
			members: []Device{
				pointer("usb-1.2-mouse", classify.ClassTrackpad),
			},
			req:  Requirement{Keyboards: 0, Trackpads: 1},
			want: ReadinessReady,
		},
		{
			name: "two keyboards wanted one present",
			members: []Device{
				kbd("usb-1.2-kbd"),
				pointer("usb-1.2-mouse", classify.ClassTrackpad),
			},
			req:  Requirement{Keyboards: 2, Trackpads: 1},
			want: ReadinessIncomplete,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Evaluate(tt.members, tt.req); got != tt.want {
				t.Errorf("Evaluate() = %q, want %q", got, tt.want)
			}
		})
	}
}

// readinessRank orders readiness for monotonicity checks.
func readinessRank(r Readiness) int {
	switch r {
	case ReadinessEmpty:
		return 0
	case ReadinessIncomplete:
		return 1
	case ReadinessReady:
		return 2
	}
	return -1
}

func TestEvaluate_MonotoneInClassResolution(t *testing.T) {
	// Resolving an unresolved pointer (to either verdict) must never
	// demote readiness: unknown counts for nothing, so flipping it to a
	// verdict can only add.
	req := Requirement{Keyboards: 1, Trackpads: 1}

	bases := [][]Device{
		{kbd("k1")},
		{kbd("k1"), pointer("p1", classify.ClassUnknown)},
		{kbd("k1"), pointer("p1", classify.ClassUnknown), pointer("p2", classify.ClassTrackpad)},
		{pointer("p1", classify.ClassUnknown), pointer("p2", classify.ClassUnknown)},
	}

	for _, base := range bases {
		before := Evaluate(base, req)

		for i, d := range base {
			if d.Role != devpath.RolePointer || d.Class != classify.ClassUnknown {
				continue
			}
			for _, verdict := range []classify.Class{classify.ClassTrackpad, classify.ClassOther} {
				resolved := make([]Device, len(base))
				copy(resolved, base)
				resolved[i].Class = verdict

				after := Evaluate(resolved, req)
				if readinessRank(after) < readinessRank(before) {
					t.Errorf("resolving %q to %q demoted readiness %q -> %q",
						d.Node, verdict, before, after)
				}
			}
		}
	}
}

func TestCountMembers(t *testing.T) {
	members := []Device{
		kbd("k1"),
		kbd("k2"),
		pointer("p1", classify.ClassTrackpad),
		pointer("p2", classify.ClassUnknown),
		pointer("p3", classify.ClassOther),
	}

	tally := CountMembers(members)

	if tally.Keyboards != 2 {
		t.Errorf("Keyboards = %d, want 2", tally.Keyboards)
	}
	if tally.Trackpads != 1 {
		t.Errorf("Trackpads = %d, want 1", tally.Trackpads)
	}
	if tally.Unresolved != 1 {
		t.Errorf("Unresolved = %d, want 1", tally.Unresolved)
	}
	if tally.Others != 1 {
		t.Errorf("Others = %d, want 1", tally.Others)
	}
}
