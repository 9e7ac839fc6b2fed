package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/nerrad567/padherd/internal/infrastructure/config"
)

// Logger is the daemon's root structured logger.
//
// It embeds slog.Logger, so the usual Debug/Info/Warn/Error methods are
// available directly and *Logger satisfies the small Logger interfaces the
// domain packages declare for themselves.
//
// Thread Safety:
//   - Safe for concurrent use from multiple goroutines.
type Logger struct {
	*slog.Logger
}

// levelNames maps configured level strings to slog levels. Lookups are
// lowercased first, so "DEBUG" and "debug" are equivalent.
var levelNames = map[string]slog.Level{
	"debug":   slog.LevelDebug,
	"info":    slog.LevelInfo,
	"warn":    slog.LevelWarn,
	"warning": slog.LevelWarn,
	"error":   slog.LevelError,
}

// New builds the root logger from the logging section of the loaded
// configuration.
//
// Format selects JSON (the default, suited to journald and log collectors)
// or text for reading during development. Every record carries the service
// name and build version, so output from several daemons on one host stays
// attributable.
//
// Parameters:
//   - cfg: Logging section of the configuration
//   - version: Build version stamped on every record
//
// Returns:
//   - *Logger: Root logger; derive per-subsystem children via Component
func New(cfg config.LoggingConfig, version string) *Logger {
	handler := newHandler(cfg, destination(cfg.Output)).WithAttrs([]slog.Attr{
		slog.String("service", "padherd"),
		slog.String("version", version),
	})

	return &Logger{Logger: slog.New(handler)}
}

// destination resolves the configured output name to a writer. Anything
// other than "stderr" lands on stdout.
func destination(name string) io.Writer {
	if strings.EqualFold(name, "stderr") {
		return os.Stderr
	}

	return os.Stdout
}

// newHandler constructs the slog handler for the configured format and
// level, writing to w. "text" opts into the human-readable form; every
// other format string means JSON.
func newHandler(cfg config.LoggingConfig, w io.Writer) slog.Handler {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}

	if strings.EqualFold(cfg.Format, "text") {
		return slog.NewTextHandler(w, opts)
	}

	return slog.NewJSONHandler(w, opts)
}

// parseLevel converts a configured level name to a slog.Level, falling
// back to info for anything it does not recognise.
func parseLevel(name string) slog.Level {
	if lvl, ok := levelNames[strings.ToLower(name)]; ok {
		return lvl
	}

	return slog.LevelInfo
}

// Component returns a child logger tagged with the subsystem it serves.
// Each of the daemon's moving parts (watch, classify, coordinator) logs
// through one of these, so a single attribute isolates one subsystem's
// behaviour in aggregated output.
//
// Parameters:
//   - name: Subsystem name (e.g. "watch", "coordinator")
//
// Returns:
//   - *Logger: New logger with the component attribute attached
//
// Example:
//
//	watchLog := logger.Component("watch")
//	watchLog.Info("watching") // Includes component=watch
func (l *Logger) Component(name string) *Logger {
	return &Logger{
		Logger: l.Logger.With("component", name),
	}
}

// Default returns a logger for the narrow window before configuration has
// been loaded: JSON to stdout at info level, version "dev". main replaces
// it with a configured logger as soon as Load succeeds.
//
// Returns:
//   - *Logger: Pre-configuration fallback logger
func Default() *Logger {
	return New(config.LoggingConfig{
		Level:  "info",
		Format: "json",
		Output: "stdout",
	}, "dev")
}
