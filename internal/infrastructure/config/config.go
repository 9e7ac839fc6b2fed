package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for padherd.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Devices     DevicesConfig     `yaml:"devices"`
	Remapper    RemapperConfig    `yaml:"remapper"`
	Requirement RequirementConfig `yaml:"requirement"`
	Classifier  ClassifierConfig  `yaml:"classifier"`
	Engine      EngineConfig      `yaml:"engine"`
	Supervise   SuperviseConfig   `yaml:"supervise"`
	Journal     JournalConfig     `yaml:"journal"`
	Telemetry   TelemetryConfig   `yaml:"telemetry"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// DevicesConfig contains device namespace settings.
type DevicesConfig struct {
	// Dir is the directory watched for device node hotplug events.
	// Node names under this directory carry the physical-path naming
	// convention (e.g. "pci-0000:00:14.0-usb-0:1:1.0-event-kbd").
	Dir string `yaml:"dir"`
}

// RemapperConfig contains settings for the external remapper executable.
type RemapperConfig struct {
	// Binary is the remapper executable. Resolved via PATH if not absolute.
	Binary string `yaml:"binary"`

	// Config is the path to the remapper's own configuration file.
	// It is passed through verbatim as the first argument of every
	// launched instance. Required.
	Config string `yaml:"config"`
}

// RequirementConfig describes what a device group must contain before a
// remapper instance is started for it.
type RequirementConfig struct {
	// Keyboards is the minimum number of keyboard-role devices.
	Keyboards int `yaml:"keyboards"`

	// Trackpads is the minimum number of confirmed multitouch trackpads.
	Trackpads int `yaml:"trackpads"`

	// Derive, when true, replaces the minima above with counts derived
	// from the remapper config file's keys_mappings/pad_mappings entries.
	Derive bool `yaml:"derive"`
}

// ClassifierConfig contains settings for the external classification oracle.
type ClassifierConfig struct {
	// Command is the oracle executable. Resolved via PATH if not absolute.
	// It is invoked as: command <device-node-path>
	Command string `yaml:"command"`

	// Timeout is the per-query timeout in seconds.
	Timeout int `yaml:"timeout"`

	// Workers is the number of concurrent classification workers.
	Workers int `yaml:"workers"`
}

// EngineConfig contains event coordination timing settings.
// All values are in milliseconds.
type EngineConfig struct {
	// DebounceMs is the quiet window after a device event before group
	// readiness is evaluated.
	DebounceMs int `yaml:"debounce_ms"`

	// SettleMaxMs bounds how long a continuous stream of events can defer
	// evaluation. Measured from the first deferred event.
	SettleMaxMs int `yaml:"settle_max_ms"`

	// CrashBackoffMs is how long a group is held out of relaunch
	// consideration after its remapper exits unexpectedly.
	CrashBackoffMs int `yaml:"crash_backoff_ms"`
}

// SuperviseConfig contains process lifecycle settings.
type SuperviseConfig struct {
	// GracefulTimeout is the time in seconds between SIGTERM and SIGKILL
	// when stopping a remapper instance.
	GracefulTimeout int `yaml:"graceful_timeout"`
}

// JournalConfig contains the optional SQLite event journal settings.
type JournalConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// TelemetryConfig contains optional InfluxDB telemetry settings.
type TelemetryConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: PADHERD_SECTION_KEY
// For example: PADHERD_DEVICES_DIR, PADHERD_REMAPPER_CONFIG
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	// Start with defaults
	cfg := defaultConfig()

	// Read and parse YAML file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Apply environment variable overrides
	applyEnvOverrides(cfg)

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Devices: DevicesConfig{
			Dir: "/dev/input/by-path",
		},
		Remapper: RemapperConfig{
			Binary: "trackjoy",
		},
		Requirement: RequirementConfig{
			Keyboards: 1,
			Trackpads: 1,
		},
		Classifier: ClassifierConfig{
			Command: "padclass",
			Timeout: 5,
			Workers: 4,
		},
		Engine: EngineConfig{
			DebounceMs:     500,
			SettleMaxMs:    2000,
			CrashBackoffMs: 10000,
		},
		Supervise: SuperviseConfig{
			GracefulTimeout: 10,
		},
		Journal: JournalConfig{
			Path:        "./data/padherd.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		Telemetry: TelemetryConfig{
			BatchSize:     100,
			FlushInterval: 10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: PADHERD_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Devices
	if v := os.Getenv("PADHERD_DEVICES_DIR"); v != "" {
		cfg.Devices.Dir = v
	}

	// Remapper
	if v := os.Getenv("PADHERD_REMAPPER_BINARY"); v != "" {
		cfg.Remapper.Binary = v
	}
	if v := os.Getenv("PADHERD_REMAPPER_CONFIG"); v != "" {
		cfg.Remapper.Config = v
	}

	// Classifier
	if v := os.Getenv("PADHERD_CLASSIFIER_COMMAND"); v != "" {
		cfg.Classifier.Command = v
	}

	// Journal
	if v := os.Getenv("PADHERD_JOURNAL_PATH"); v != "" {
		cfg.Journal.Path = v
	}

	// Telemetry
	if v := os.Getenv("PADHERD_TELEMETRY_TOKEN"); v != "" {
		cfg.Telemetry.Token = v
	}

	// Logging
	if v := os.Getenv("PADHERD_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	// Devices validation
	if c.Devices.Dir == "" {
		errs = append(errs, "devices.dir is required")
	}

	// Remapper validation
	if c.Remapper.Binary == "" {
		errs = append(errs, "remapper.binary is required")
	}
	if c.Remapper.Config == "" {
		errs = append(errs, "remapper.config is required (path to the remapper's own config file)")
	}

	// Requirement validation
	if c.Requirement.Keyboards < 0 {
		errs = append(errs, "requirement.keyboards must not be negative")
	}
	if c.Requirement.Trackpads < 0 {
		errs = append(errs, "requirement.trackpads must not be negative")
	}
	if !c.Requirement.Derive && c.Requirement.Keyboards == 0 && c.Requirement.Trackpads == 0 {
		errs = append(errs, "requirement must ask for at least one device (or set requirement.derive)")
	}

	// Classifier validation
	if c.Classifier.Command == "" {
		errs = append(errs, "classifier.command is required")
	}
	if c.Classifier.Timeout < 1 {
		errs = append(errs, "classifier.timeout must be at least 1 second")
	}
	if c.Classifier.Workers < 1 {
		errs = append(errs, "classifier.workers must be at least 1")
	}

	// Engine validation
	if c.Engine.DebounceMs < 0 {
		errs = append(errs, "engine.debounce_ms must not be negative")
	}
	if c.Engine.SettleMaxMs < c.Engine.DebounceMs {
		errs = append(errs, "engine.settle_max_ms must be at least engine.debounce_ms")
	}
	if c.Engine.CrashBackoffMs < 0 {
		errs = append(errs, "engine.crash_backoff_ms must not be negative")
	}

	// Supervise validation
	if c.Supervise.GracefulTimeout < 1 {
		errs = append(errs, "supervise.graceful_timeout must be at least 1 second")
	}

	// Journal validation
	if c.Journal.Enabled && c.Journal.Path == "" {
		errs = append(errs, "journal.path is required when journal is enabled")
	}

	// Telemetry validation
	if c.Telemetry.Enabled {
		if c.Telemetry.URL == "" {
			errs = append(errs, "telemetry.url is required when telemetry is enabled")
		}
		if c.Telemetry.Org == "" {
			errs = append(errs, "telemetry.org is required when telemetry is enabled")
		}
		if c.Telemetry.Bucket == "" {
			errs = append(errs, "telemetry.bucket is required when telemetry is enabled")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetDebounce returns the event debounce window as a Duration.
func (c *Config) GetDebounce() time.Duration {
	return time.Duration(c.Engine.DebounceMs) * time.Millisecond
}

// GetSettleMax returns the debounce extension bound as a Duration.
func (c *Config) GetSettleMax() time.Duration {
	return time.Duration(c.Engine.SettleMaxMs) * time.Millisecond
}

// GetCrashBackoff returns the post-crash relaunch hold-off as a Duration.
func (c *Config) GetCrashBackoff() time.Duration {
	return time.Duration(c.Engine.CrashBackoffMs) * time.Millisecond
}

// GetClassifyTimeout returns the per-query oracle timeout as a Duration.
func (c *Config) GetClassifyTimeout() time.Duration {
	return time.Duration(c.Classifier.Timeout) * time.Second
}

// GetGracefulTimeout returns the SIGTERM-to-SIGKILL grace period as a Duration.
func (c *Config) GetGracefulTimeout() time.Duration {
	return time.Duration(c.Supervise.GracefulTimeout) * time.Second
}
