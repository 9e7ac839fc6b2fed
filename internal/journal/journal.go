package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// Storage constants.
const (
	// dirPermissions is the permission mode for the journal directory.
	dirPermissions = 0750

	// filePermissions is the permission mode for the journal file.
	filePermissions = 0600

	// msPerSecond converts seconds to milliseconds.
	msPerSecond = 1000

	// connectTimeout bounds the connectivity check at open.
	connectTimeout = 5 * time.Second
)

// Event kinds recorded by the daemon.
const (
	EventDeviceAdded   = "device_added"
	EventDeviceRemoved = "device_removed"
	EventClassResolved = "class_resolved"
	EventLaunchStarted = "launch_started"
	EventProcessExited = "process_exited"
	EventStopCompleted = "stop_completed"
)

// Entry is a single journalled lifecycle event.
type Entry struct {
	ID        string         `json:"id"`
	Event     string         `json:"event"`
	GroupKey  string         `json:"group_key,omitempty"`
	Node      string         `json:"node,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// Filter narrows Recent results. Zero-valued fields match everything.
type Filter struct {
	Event    string // optional: filter by event kind
	GroupKey string // optional: filter by group key
	Node     string // optional: filter by device node
	Limit    int    // default 50, max 500
}

// Config contains journal storage options.
// These map to the journal section of config.yaml.
type Config struct {
	// Path is the filesystem path to the SQLite database file.
	// The directory will be created if it doesn't exist.
	Path string

	// WALMode enables Write-Ahead Logging so reads (ad-hoc inspection
	// with the sqlite3 CLI) don't block the daemon's writes.
	WALMode bool

	// BusyTimeout is the maximum time to wait for a database lock (seconds).
	BusyTimeout int
}

// Journal appends lifecycle events to SQLite.
type Journal struct {
	db   *sql.DB
	path string
}

// schema is applied on every open; CREATE IF NOT EXISTS keeps it
// idempotent across restarts.
const schema = `
CREATE TABLE IF NOT EXISTS events (
	id         TEXT PRIMARY KEY,
	event      TEXT NOT NULL,
	group_key  TEXT,
	node       TEXT,
	details    TEXT,
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_events_created_at ON events(created_at);
CREATE INDEX IF NOT EXISTS idx_events_group_key ON events(group_key);
`

// Open creates (or reopens) the journal database at cfg.Path.
//
// It performs the following setup:
//  1. Creates the journal directory if it doesn't exist
//  2. Opens the database file with busy-timeout and optional WAL pragmas
//  3. Verifies the connection with a ping
//  4. Applies the events schema
//  5. Restricts file permissions (0600)
//
// Parameters:
//   - cfg: Journal storage configuration
//
// Returns:
//   - *Journal: Connected journal
//   - error: If connection or schema setup fails
func Open(cfg Config) (*Journal, error) {
	dir := filepath.Dir(cfg.Path)
	if err := os.MkdirAll(dir, dirPermissions); err != nil {
		return nil, fmt.Errorf("creating journal directory: %w", err)
	}

	// Build connection string with pragmas
	// See: https://github.com/mattn/go-sqlite3#connection-string
	connStr := fmt.Sprintf("file:%s?_busy_timeout=%d",
		cfg.Path,
		cfg.BusyTimeout*msPerSecond,
	)
	if cfg.WALMode {
		connStr += "&_journal_mode=WAL&_synchronous=NORMAL"
	}

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("opening journal database: %w", err)
	}

	// SQLite only supports one writer, and the journal has exactly one.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close() //nolint:errcheck // Best effort cleanup on error path
		return nil, fmt.Errorf("verifying journal database: %w", err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close() //nolint:errcheck // Best effort cleanup on error path
		return nil, fmt.Errorf("creating journal schema: %w", err)
	}

	// Owner read/write only. The file might not exist until the first
	// write on some filesystems, so the error is ignored.
	_ = os.Chmod(cfg.Path, filePermissions) //nolint:errcheck // Intentional: first run creates file later

	return &Journal{db: db, path: cfg.Path}, nil
}

// Record inserts a lifecycle event. The ID and CreatedAt are generated
// when empty.
func (j *Journal) Record(ctx context.Context, e *Entry) error {
	if e.ID == "" {
		e.ID = "evt-" + uuid.NewString()[:8]
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	var detailsJSON *string
	if e.Details != nil {
		b, err := json.Marshal(e.Details)
		if err != nil {
			return fmt.Errorf("marshalling event details: %w", err)
		}
		s := string(b)
		detailsJSON = &s
	}

	_, err := j.db.ExecContext(ctx,
		`INSERT INTO events (id, event, group_key, node, details, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		e.ID, e.Event,
		nullableString(e.GroupKey), nullableString(e.Node),
		detailsJSON,
		e.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting journal event: %w", err)
	}

	return nil
}

// nullableString returns nil for empty strings, or the string otherwise.
// Used for nullable TEXT columns in SQLite.
func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// Recent returns the newest events matching the filter, most recent
// first. It exists for tooling and tests; engine state never depends on
// journal contents.
func (j *Journal) Recent(ctx context.Context, filter Filter) ([]Entry, error) {
	// Clamp limit.
	if filter.Limit <= 0 {
		filter.Limit = 50
	}
	if filter.Limit > 500 { //nolint:mnd // max page size for journal queries
		filter.Limit = 500
	}

	// Build WHERE clause dynamically.
	var conditions []string
	var args []any

	if filter.Event != "" {
		conditions = append(conditions, "event = ?")
		args = append(args, filter.Event)
	}
	if filter.GroupKey != "" {
		conditions = append(conditions, "group_key = ?")
		args = append(args, filter.GroupKey)
	}
	if filter.Node != "" {
		conditions = append(conditions, "node = ?")
		args = append(args, filter.Node)
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	// rowid breaks ties between events recorded within the same second.
	query := fmt.Sprintf( //nolint:gosec // WHERE built from parameterised conditions, not user input
		"SELECT id, event, group_key, node, details, created_at FROM events %s ORDER BY created_at DESC, rowid DESC LIMIT ?",
		where,
	)
	args = append(args, filter.Limit)

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying journal events: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var groupKey, node, detailsJSON sql.NullString
		var createdAt string

		if err := rows.Scan(&e.ID, &e.Event, &groupKey, &node, &detailsJSON, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning journal event: %w", err)
		}

		if groupKey.Valid {
			e.GroupKey = groupKey.String
		}
		if node.Valid {
			e.Node = node.String
		}
		if detailsJSON.Valid && detailsJSON.String != "" {
			var details map[string]any
			if json.Unmarshal([]byte(detailsJSON.String), &details) == nil {
				e.Details = details
			}
		}

		t, err := time.Parse(time.RFC3339, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing journal timestamp %q: %w", createdAt, err)
		}
		e.CreatedAt = t

		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating journal events: %w", err)
	}

	return entries, nil
}

// Close closes the journal database.
//
// Returns:
//   - error: If closing fails
func (j *Journal) Close() error {
	if j.db == nil {
		return nil
	}
	if err := j.db.Close(); err != nil {
		return fmt.Errorf("closing journal database: %w", err)
	}
	return nil
}

// Path returns the filesystem path to the journal file.
func (j *Journal) Path() string {
	return j.path
}
