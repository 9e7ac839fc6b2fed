// Package logging provides structured logging for padherd.
//
// It wraps log/slog: a handler picked by config (JSON for the journal,
// text for a terminal), level filtering, and service/version attributes
// stamped on every entry.
//
// # Configuration
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// # Usage
//
// The daemon builds one root logger after config loads, then hands each
// subsystem a component-tagged child:
//
//	log := logging.New(cfg.Logging, version)
//	watcher.SetLogger(log.Component("watch"))
//
// Before config is available there is Default(), an info-level text
// logger for startup messages and tests.
//
// The domain packages never import this package; each declares a small
// local Logger interface that *Logger happens to satisfy.
package logging
