package classify

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"time"
)

// Class is the oracle's verdict for a pointer device.
type Class string

const (
	// ClassUnknown is the zero value: the device has not been resolved yet.
	ClassUnknown Class = ""
	// ClassTrackpad is a confirmed multitouch trackpad.
	ClassTrackpad Class = "multitouch-trackpad"
	// ClassOther is any pointer that is not a multitouch trackpad.
	ClassOther Class = "other"
)

// Logger defines the logging interface for the classifier.
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

// Classifier queries the external oracle and caches its verdicts.
type Classifier struct {
	command string
	timeout time.Duration
	logger  Logger

	mu    sync.Mutex
	cache map[string]Class
}

// New creates a Classifier for the given oracle command.
//
// Parameters:
//   - command: Oracle executable, resolved via PATH if not absolute
//   - timeout: Per-query deadline; zero means 5s
//
// Returns:
//   - *Classifier: Classifier ready for use
func New(command string, timeout time.Duration) *Classifier {
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	return &Classifier{
		command: command,
		timeout: timeout,
		logger:  noopLogger{},
		cache:   make(map[string]Class),
	}
}

// SetLogger sets the logger for the classifier.
func (c *Classifier) SetLogger(logger Logger) {
	c.logger = logger
}

// Classify resolves the class of the device node at the given path.
//
// A cached verdict is returned without consulting the oracle. Otherwise
// the oracle runs with the node path as its only argument, blocking up to
// the configured timeout. Successful verdicts are cached; failures are
// not, so the next call retries.
//
// Parameters:
//   - ctx: Context for cancellation; the per-query timeout is added on top
//   - node: Device node path handed to the oracle verbatim
//
// Returns:
//   - Class: ClassTrackpad or ClassOther
//   - error: ErrUnavailable (wrapped with detail) when no verdict could
//     be obtained
func (c *Classifier) Classify(ctx context.Context, node string) (Class, error) {
	c.mu.Lock()
	if class, ok := c.cache[node]; ok {
		c.mu.Unlock()
		return class, nil
	}
	c.mu.Unlock()

	class, err := c.query(ctx, node)
	if err != nil {
		return ClassUnknown, err
	}

	c.mu.Lock()
	c.cache[node] = class
	c.mu.Unlock()

	c.logger.Debug("device classified", "node", node, "class", string(class))

	return class, nil
}

// query runs the oracle once and parses its verdict.
func (c *Classifier) query(ctx context.Context, node string) (Class, error) {
	queryCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	cmd := exec.CommandContext(queryCtx, c.command, node) //nolint:gosec // command comes from validated config
	// Bounds pipe drain when the oracle leaves children holding stdout open.
	cmd.WaitDelay = time.Second

	out, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
			return ClassUnknown, fmt.Errorf("%w: %s %s: %v: %s",
				ErrUnavailable, c.command, node, err, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return ClassUnknown, fmt.Errorf("%w: %s %s: %v", ErrUnavailable, c.command, node, err)
	}

	token := strings.TrimSpace(string(out))
	if i := strings.IndexByte(token, '\n'); i >= 0 {
		token = strings.TrimSpace(token[:i])
	}

	if token == "" || strings.ContainsAny(token, " \t") {
		return ClassUnknown, fmt.Errorf("%w: %s %s: unparseable output %q",
			ErrUnavailable, c.command, node, token)
	}

	if Class(token) == ClassTrackpad {
		return ClassTrackpad, nil
	}
	return ClassOther, nil
}

// Invalidate drops the cached verdict for a node. Called when the node is
// removed so a re-plugged device at the same path is re-queried.
func (c *Classifier) Invalidate(node string) {
	c.mu.Lock()
	delete(c.cache, node)
	c.mu.Unlock()
}

// CacheSize returns the number of cached verdicts. Used in tests.
func (c *Classifier) CacheSize() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.cache)
}
