package devpath

import (
	"fmt"
	"strings"
)

// Role classifies what kind of input device a node name claims to be.
type Role string

const (
	// RoleKeyboard is a keyboard-tagged node. The tag is trusted as-is;
	// keyboards never need external classification.
	RoleKeyboard Role = "keyboard"
	// RolePointer is a pointer-tagged node. The tag alone is ambiguous:
	// a pointer may be a multitouch trackpad or an ordinary mouse, which
	// only the classification oracle can tell apart.
	RolePointer Role = "pointer"
)

// Identity is the parsed form of a device node name.
type Identity struct {
	// Node is the original node name, unchanged.
	Node string
	// Prefix is the physical-path portion shared by co-located devices.
	Prefix string
	// Role is derived from the node's tag suffix.
	Role Role
}

// roleTags maps recognised tag suffixes to roles. Ordered longest first
// so that "event-kbd" wins over "kbd" for names carrying both.
var roleTags = []struct {
	tag  string
	role Role
}{
	{"event-mouse", RolePointer},
	{"event-kbd", RoleKeyboard},
	{"mouse", RolePointer},
	{"kbd", RoleKeyboard},
}

// Parse splits a device node name into its physical-path prefix and role.
//
// The name must end in a recognised role tag ("event-kbd", "kbd",
// "event-mouse", "mouse") separated by a dash, and the remaining prefix
// must end in a bus topology segment: a run of digits, dots and colons
// containing at least one digit (e.g. "usb-1.2", "usb-0:1:1.0").
//
// Parameters:
//   - name: Base name of the device node (no directory part)
//
// Returns:
//   - Identity: Parsed node, prefix and role
//   - error: ErrMalformedPath (wrapped with the offending name) when the
//     name does not follow the convention
func Parse(name string) (Identity, error) {
	for _, rt := range roleTags {
		suffix := "-" + rt.tag
		if !strings.HasSuffix(name, suffix) {
			continue
		}

		prefix := strings.TrimSuffix(name, suffix)
		if !endsInTopologySegment(prefix) {
			return Identity{}, fmt.Errorf("%w: %q prefix lacks a topology segment", ErrMalformedPath, name)
		}

		return Identity{
			Node:   name,
			Prefix: prefix,
			Role:   rt.role,
		}, nil
	}

	return Identity{}, fmt.Errorf("%w: %q has no recognised role tag", ErrMalformedPath, name)
}

// endsInTopologySegment reports whether s ends in a run of digits, dots
// and colons that contains at least one digit. This is the shape of USB
// and PCI position segments ("1.2", "0:1:1.0", "0000:00:14.0").
func endsInTopologySegment(s string) bool {
	sawDigit := false
	i := len(s)
	for i > 0 {
		c := s[i-1]
		if c >= '0' && c <= '9' {
			sawDigit = true
			i--
			continue
		}
		if c == '.' || c == ':' {
			i--
			continue
		}
		break
	}
	return sawDigit && i < len(s)
}
