package group

import (
	"sort"
	"time"

	"github.com/nerrad567/padherd/internal/classify"
	"github.com/nerrad567/padherd/internal/devpath"
)

// Assembler maintains the device table and its partition into prefix
// groups. Every present device belongs to exactly one group, keyed by its
// prefix; empty groups do not exist.
//
// Not safe for concurrent use: the coordinating goroutine owns it.
type Assembler struct {
	devices map[string]*Device            // node -> device
	groups  map[string]map[string]*Device // prefix -> node -> device
}

// NewAssembler creates an empty Assembler.
func NewAssembler() *Assembler {
	return &Assembler{
		devices: make(map[string]*Device),
		groups:  make(map[string]map[string]*Device),
	}
}

// Add inserts a parsed device into the table, creating its group if this
// is the first member. Adding an already-present node is a no-op.
//
// Returns:
//   - key: The group key (the identity's prefix)
//   - fresh: true if the node was not present before
func (a *Assembler) Add(id devpath.Identity) (key string, fresh bool) {
	if _, ok := a.devices[id.Node]; ok {
		return id.Prefix, false
	}

	d := &Device{
		Node:    id.Node,
		Prefix:  id.Prefix,
		Role:    id.Role,
		Present: true,
		AddedAt: time.Now(),
	}

	a.devices[id.Node] = d

	members, ok := a.groups[id.Prefix]
	if !ok {
		members = make(map[string]*Device)
		a.groups[id.Prefix] = members
	}
	members[id.Node] = d

	return id.Prefix, true
}

// Remove deletes a device from the table and purges its group if that
// leaves the group empty.
//
// Returns:
//   - key: The group key the device belonged to
//   - ok: false if the node was not present (no state change)
func (a *Assembler) Remove(node string) (key string, ok bool) {
	d, present := a.devices[node]
	if !present {
		return "", false
	}

	d.Present = false
	delete(a.devices, node)

	members := a.groups[d.Prefix]
	delete(members, node)
	if len(members) == 0 {
		delete(a.groups, d.Prefix)
	}

	return d.Prefix, true
}

// Resolve records the oracle's verdict for a present device. The
// partition does not change; only the member's class does. Verdicts for
// nodes that have since been removed are dropped.
//
// Returns:
//   - key: The group key of the resolved device
//   - ok: false if the node was not present (verdict dropped)
func (a *Assembler) Resolve(node string, class classify.Class) (key string, ok bool) {
	d, present := a.devices[node]
	if !present {
		return "", false
	}

	d.Class = class
	return d.Prefix, true
}

// Lookup returns a copy of a present device.
func (a *Assembler) Lookup(node string) (Device, bool) {
	d, present := a.devices[node]
	if !present {
		return Device{}, false
	}
	return *d, true
}

// Snapshot returns a copy of one group, members sorted by node name.
// ok is false if no group exists for the key.
func (a *Assembler) Snapshot(key string) (Group, bool) {
	members, present := a.groups[key]
	if !present {
		return Group{}, false
	}
	return a.snapshotMembers(key, members), true
}

// Groups returns copies of all groups, sorted by key.
func (a *Assembler) Groups() []Group {
	out := make([]Group, 0, len(a.groups))
	for key, members := range a.groups {
		out = append(out, a.snapshotMembers(key, members))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Len returns the number of present devices.
func (a *Assembler) Len() int {
	return len(a.devices)
}

func (a *Assembler) snapshotMembers(key string, members map[string]*Device) Group {
	g := Group{
		Key:     key,
		Members: make([]Device, 0, len(members)),
	}
	for _, d := range members {
		g.Members = append(g.Members, *d)
	}
	sort.Slice(g.Members, func(i, j int) bool { return g.Members[i].Node < g.Members[j].Node })
	return g
}
