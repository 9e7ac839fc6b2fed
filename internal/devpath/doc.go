// Package devpath parses physical-path device node names.
//
// Input device nodes exposed under /dev/input/by-path encode the device's
// position on the bus plus a role tag:
//
//	pci-0000:00:14.0-usb-0:1:1.0-event-kbd
//	└──────────── prefix ───────┘ └─ tag ─┘
//
// Devices that share a physical enclosure (a trackpad with an integrated
// keyboard on one USB port) share the prefix and differ only in the tag,
// which is what makes prefix-based grouping possible.
//
// Parsing is pure string work: no filesystem access, no device queries.
// A name that does not follow the convention fails with ErrMalformedPath
// and is simply not managed.
package devpath
