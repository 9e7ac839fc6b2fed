// Package journal persists daemon lifecycle events to a local SQLite
// database.
//
// The journal is an append-only record: device arrivals and removals,
// classification results, remapper launches, exits, and stops are written
// as they happen so a session can be reconstructed after the fact. Engine
// state never depends on journal contents. Group membership reseeds from
// a fresh enumeration of the device directory at startup, so the journal
// file can be deleted at any time without changing behaviour.
//
// Storage is a single events table created on open; a one-table journal
// does not warrant a migration pipeline. Writes funnel through a single
// connection (SQLite supports one writer), and callers treat journal
// failures as log-and-continue, never fatal.
package journal
