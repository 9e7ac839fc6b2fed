package group

import (
	"testing"

	"github.com/nerrad567/padherd/internal/classify"
	"github.com/nerrad567/padherd/internal/devpath"
)

func mustParse(t *testing.T, name string) devpath.Identity {
	t.Helper()

	id, err := devpath.Parse(name)
	if err != nil {
		t.Fatalf("Parse(%q) error = %v", name, err)
	}
	return id
}

func TestAssembler_AddCreatesGroup(t *testing.T) {
	a := NewAssembler()

	key, fresh := a.Add(mustParse(t, "usb-1.2-event-kbd"))
	if key != "usb-1.2" {
		t.Errorf("Add() key = %q, want %q", key, "usb-1.2")
	}
	if !fresh {
		t.Error("Add() fresh = false, want true for new node")
	}

	g, ok := a.Snapshot("usb-1.2")
	if !ok {
		t.Fatal("Snapshot() ok = false, want true")
	}
	if len(g.Members) != 1 {
		t.Fatalf("group has %d members, want 1", len(g.Members))
	}

	d := g.Members[0]
	if d.Node != "usb-1.2-event-kbd" {
		t.Errorf("member Node = %q, want %q", d.Node, "usb-1.2-event-kbd")
	}
	if d.Role != devpath.RoleKeyboard {
		t.Errorf("member Role = %q, want %q", d.Role, devpath.RoleKeyboard)
	}
	if d.Class != classify.ClassUnknown {
		t.Errorf("member Class = %q, want unresolved", d.Class)
	}
	if !d.Present {
		t.Error("member Present = false, want true")
	}
	if d.AddedAt.IsZero() {
		t.Error("member AddedAt is zero")
	}
}

func TestAssembler_AddIsIdempotent(t *testing.T) {
	a := NewAssembler()

	id := mustParse(t, "usb-1.2-event-kbd")
	a.Add(id)

	first, _ := a.Lookup(id.Node)

	key, fresh := a.Add(id)
	if fresh {
		t.Error("second Add() fresh = true, want false")
	}
	if key != "usb-1.2" {
		t.Errorf("second Add() key = %q, want %q", key, "usb-1.2")
	}

	if a.Len() != 1 {
		t.Errorf("Len() = %d, want 1 after duplicate add", a.Len())
	}

	second, _ := a.Lookup(id.Node)
	if !second.AddedAt.Equal(first.AddedAt) {
		t.Error("duplicate Add() changed AddedAt")
	}
}

func TestAssembler_PartitionByPrefix(t *testing.T) {
	a := NewAssembler()

	nodes := []string{
		"usb-1.2-event-kbd",
		"usb-1.2-event-mouse",
		"usb-3.1-event-kbd",
		"platform-i8042-serio-0-event-kbd",
	}
	for _, n := range nodes {
		a.Add(mustParse(t, n))
	}

	groups := a.Groups()
	if len(groups) != 3 {
		t.Fatalf("Groups() returned %d groups, want 3", len(groups))
	}

	// Every device is in exactly one group, and only in the group
	// matching its prefix.
	seen := make(map[string]int)
	for _, g := range groups {
		for _, d := range g.Members {
			seen[d.Node]++
			if d.Prefix != g.Key {
				t.Errorf("device %q with prefix %q filed under group %q", d.Node, d.Prefix, g.Key)
			}
		}
	}

	for _, n := range nodes {
		if seen[n] != 1 {
			t.Errorf("device %q appears in %d groups, want 1", n, seen[n])
		}
	}
}

func TestAssembler_RemovePurgesEmptyGroup(t *testing.T) {
	a := NewAssembler()

	a.Add(mustParse(t, "usb-1.2-event-kbd"))
	a.Add(mustParse(t, "usb-1.2-event-mouse"))

	key, ok := a.Remove("usb-1.2-event-kbd")
	if !ok {
		t.Fatal("Remove() ok = false, want true")
	}
	if key != "usb-1.2" {
		t.Errorf("Remove() key = %q, want %q", key, "usb-1.2")
	}

	g, ok := a.Snapshot("usb-1.2")
	if !ok {
		t.Fatal("group should survive while it has a member")
	}
	if len(g.Members) != 1 {
		t.Errorf("group has %d members, want 1", len(g.Members))
	}

	a.Remove("usb-1.2-event-mouse")

	if _, ok := a.Snapshot("usb-1.2"); ok {
		t.Error("empty group should be purged")
	}
	if a.Len() != 0 {
		t.Errorf("Len() = %d, want 0", a.Len())
	}
}

func TestAssembler_RemoveUnknownNode(t *testing.T) {
	a := NewAssembler()
	a.Add(mustParse(t, "usb-1.2-event-kbd"))

	key, ok := a.Remove("usb-9.9-event-kbd")
	if ok {
		t.Error("Remove() of unknown node ok = true, want false")
	}
	if key != "" {
		t.Errorf("Remove() of unknown node key = %q, want empty", key)
	}
	if a.Len() != 1 {
		t.Errorf("Len() = %d, want 1 (no state change)", a.Len())
	}
}

func TestAssembler_ResolveSetsClassInPlace(t *testing.T) {
	a := NewAssembler()
	a.Add(mustParse(t, "usb-1.2-event-mouse"))

	key, ok := a.Resolve("usb-1.2-event-mouse", classify.ClassTrackpad)
	if !ok {
		t.Fatal("Resolve() ok = false, want true")
	}
	if key != "usb-1.2" {
		t.Errorf("Resolve() key = %q, want %q", key, "usb-1.2")
	}

	d, ok := a.Lookup("usb-1.2-event-mouse")
	if !ok {
		t.Fatal("Lookup() ok = false, want true")
	}
	if d.Class != classify.ClassTrackpad {
		t.Errorf("Class = %q, want %q", d.Class, classify.ClassTrackpad)
	}

	// Resolving does not move the device between groups.
	groups := a.Groups()
	if len(groups) != 1 || groups[0].Key != "usb-1.2" {
		t.Errorf("partition changed after Resolve: %+v", groups)
	}
}

func TestAssembler_ResolveAbsentNodeDropped(t *testing.T) {
	a := NewAssembler()

	_, ok := a.Resolve("usb-1.2-event-mouse", classify.ClassTrackpad)
	if ok {
		t.Error("Resolve() of absent node ok = true, want false")
	}

	// A verdict arriving after removal is dropped the same way.
	a.Add(mustParse(t, "usb-1.2-event-mouse"))
	a.Remove("usb-1.2-event-mouse")

	if _, ok := a.Resolve("usb-1.2-event-mouse", classify.ClassTrackpad); ok {
		t.Error("Resolve() after removal ok = true, want false")
	}
}

func TestAssembler_SnapshotIsACopy(t *testing.T) {
	a := NewAssembler()
	a.Add(mustParse(t, "usb-1.2-event-mouse"))

	g1, _ := a.Snapshot("usb-1.2")
	g1.Members[0].Class = classify.ClassTrackpad
	g1.Members[0].Node = "tampered"

	g2, _ := a.Snapshot("usb-1.2")
	if g2.Members[0].Class != classify.ClassUnknown {
		t.Error("mutating a snapshot changed assembler state (class)")
	}
	if g2.Members[0].Node != "usb-1.2-event-mouse" {
		t.Error("mutating a snapshot changed assembler state (node)")
	}
}

func TestAssembler_SnapshotMembersSorted(t *testing.T) {
	a := NewAssembler()
	a.Add(mustParse(t, "usb-1.2-mouse"))
	a.Add(mustParse(t, "usb-1.2-event-kbd"))
	a.Add(mustParse(t, "usb-1.2-event-mouse"))

	g, _ := a.Snapshot("usb-1.2")
	for i := 1; i < len(g.Members); i++ {
		if g.Members[i-1].Node >= g.Members[i].Node {
			t.Errorf("members not sorted: %q before %q", g.Members[i-1].Node, g.Members[i].Node)
		}
	}
}

func TestAssembler_ReaddAfterRemoveIsFresh(t *testing.T) {
	a := NewAssembler()

	id := mustParse(t, "usb-1.2-event-mouse")
	a.Add(id)
	a.Resolve(id.Node, classify.ClassTrackpad)
	a.Remove(id.Node)

	_, fresh := a.Add(id)
	if !fresh {
		t.Error("re-add after remove fresh = false, want true")
	}

	// The new record starts unresolved; any stale verdict belongs to the
	// classifier cache, not the table.
	d, _ := a.Lookup(id.Node)
	if d.Class != classify.ClassUnknown {
		t.Errorf("re-added device Class = %q, want unresolved", d.Class)
	}
}
