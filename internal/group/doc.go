// Package group maintains the device table and its partition into groups.
//
// Devices are grouped by the physical-path prefix of their node names: two
// devices behind the same USB position belong to the same group. The
// partition is maintained incrementally as devices come and go:
//
//	             Add / Remove / Resolve
//	                      │
//	                      ▼
//	┌─────────────────────────────────────────────┐
//	│                 Assembler                    │
//	│                                              │
//	│  usb-1.2 ──▶ { usb-1.2-kbd, usb-1.2-mouse } │
//	│  usb-3.1 ──▶ { usb-3.1-event-kbd }          │
//	└─────────────────────────────────────────────┘
//	                      │
//	                      ▼
//	          Evaluate(members, requirement)
//	          empty / incomplete / ready
//
// Readiness is a pure function of a group's members and the configured
// Requirement: enough keyboards, enough confirmed trackpads. A pointer
// device whose class is still unresolved counts for nothing until the
// oracle answers.
//
// # Thread Safety
//
// Assembler is NOT safe for concurrent use. It is owned by the single
// coordinating goroutine; everything it hands out (snapshots) is a copy.
package group
