package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// EventType says whether a node appeared or disappeared.
type EventType string

const (
	// Added means a node appeared in the watched directory.
	Added EventType = "added"
	// Removed means a node disappeared from the watched directory.
	Removed EventType = "removed"
)

// Event is one observed change to the device namespace.
type Event struct {
	Type EventType
	// Node is the base name of the device node, no directory part.
	Node string
}

// eventBuffer bounds the outgoing channel so a slow consumer does not
// stall the inotify pump during a hotplug burst.
const eventBuffer = 64

// Logger defines the logging interface for the watcher.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Watcher observes one directory for device node changes.
type Watcher struct {
	dir    string
	logger Logger
}

// New creates a watcher for the given directory. Nothing is opened until
// Start.
func New(dir string) *Watcher {
	return &Watcher{
		dir:    dir,
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the watcher.
func (w *Watcher) SetLogger(logger Logger) {
	w.logger = logger
}

// Start opens the watch and returns the event stream.
//
// The directory's current contents are enumerated first and delivered as
// Added events; live changes follow on the same channel, so a consumer
// rebuilds its full state just by reading. The channel closes when ctx is
// cancelled.
//
// Parameters:
//   - ctx: Cancels the watch and closes the stream
//
// Returns:
//   - <-chan Event: Ordered stream of add/remove events
//   - error: ErrWatchUnavailable (wrapped) if the directory cannot be
//     watched
func (w *Watcher) Start(ctx context.Context) (<-chan Event, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("%w: creating watcher: %v", ErrWatchUnavailable, err)
	}

	if err := fsw.Add(w.dir); err != nil {
		fsw.Close() //nolint:errcheck // already failing
		return nil, fmt.Errorf("%w: watching %s: %v", ErrWatchUnavailable, w.dir, err)
	}

	// Enumerate after the watch is in place so nothing slips between
	// scan and watch; a node seen by both just produces a duplicate add.
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		fsw.Close() //nolint:errcheck // already failing
		return nil, fmt.Errorf("%w: enumerating %s: %v", ErrWatchUnavailable, w.dir, err)
	}

	seeds := make([]Event, 0, len(entries))
	for _, entry := range entries {
		seeds = append(seeds, Event{Type: Added, Node: entry.Name()})
	}

	w.logger.Info("watching device namespace", "dir", w.dir, "present", len(seeds))

	events := make(chan Event, eventBuffer)
	go w.pump(ctx, fsw, seeds, events)

	return events, nil
}

// pump forwards seed events then live inotify events until ctx ends.
func (w *Watcher) pump(ctx context.Context, fsw *fsnotify.Watcher, seeds []Event, out chan<- Event) {
	defer close(out)
	defer fsw.Close() //nolint:errcheck // nothing to do with a close error here

	for _, ev := range seeds {
		select {
		case out <- ev:
		case <-ctx.Done():
			return
		}
	}

	for {
		select {
		case <-ctx.Done():
			return

		case fsEvent, ok := <-fsw.Events:
			if !ok {
				return
			}

			ev, relevant := translate(fsEvent)
			if !relevant {
				continue
			}

			w.logger.Debug("device event", "type", string(ev.Type), "node", ev.Node)

			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}

		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch error", "dir", w.dir, "error", err)
		}
	}
}

// translate maps an inotify event onto the add/remove vocabulary.
// Write and chmod noise is dropped.
func translate(ev fsnotify.Event) (Event, bool) {
	node := filepath.Base(ev.Name)

	switch {
	case ev.Op.Has(fsnotify.Create):
		return Event{Type: Added, Node: node}, true
	case ev.Op.Has(fsnotify.Remove), ev.Op.Has(fsnotify.Rename):
		return Event{Type: Removed, Node: node}, true
	default:
		return Event{}, false
	}
}
