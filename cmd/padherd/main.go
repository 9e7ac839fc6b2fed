// padherd - Hotplug-Aware Remapper Herder
//
// This is the main entry point for the padherd daemon. padherd watches
// the input device namespace for hotplug changes and keeps one external
// remapper instance running per physically co-located device group:
//   - Parses node names into (physical path, role)
//   - Confirms ambiguous pointers via an external classification oracle
//   - Launches the remapper once a group satisfies its device requirement
//   - Tears the instance down when a required member disappears
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/nerrad567/padherd/internal/classify"
	"github.com/nerrad567/padherd/internal/coordinator"
	"github.com/nerrad567/padherd/internal/group"
	"github.com/nerrad567/padherd/internal/infrastructure/config"
	"github.com/nerrad567/padherd/internal/infrastructure/logging"
	"github.com/nerrad567/padherd/internal/infrastructure/metrics"
	"github.com/nerrad567/padherd/internal/journal"
	"github.com/nerrad567/padherd/internal/watch"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting padherd",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load configuration
	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Resolve the group requirement, possibly from the remapper's own
	// config. A requirement that cannot be resolved is a startup failure.
	requirement, err := resolveRequirement(cfg)
	if err != nil {
		return fmt.Errorf("resolving requirement: %w", err)
	}
	log.Info("group requirement resolved",
		"keyboards", requirement.Keyboards,
		"trackpads", requirement.Trackpads,
		"derived", cfg.Requirement.Derive,
	)

	// Open the lifecycle journal (optional)
	var jrnl *journal.Journal
	if cfg.Journal.Enabled {
		jrnl, err = journal.Open(journal.Config{
			Path:        cfg.Journal.Path,
			WALMode:     cfg.Journal.WALMode,
			BusyTimeout: cfg.Journal.BusyTimeout,
		})
		if err != nil {
			return fmt.Errorf("opening journal: %w", err)
		}
		defer func() {
			log.Info("closing journal")
			if closeErr := jrnl.Close(); closeErr != nil {
				log.Error("error closing journal", "error", closeErr)
			}
		}()
		log.Info("journal opened", "path", cfg.Journal.Path)
	} else {
		log.Info("journal disabled")
	}

	// Connect to InfluxDB telemetry (optional)
	var telemetry *metrics.Client
	if cfg.Telemetry.Enabled {
		telemetry, err = metrics.Connect(cfg.Telemetry)
		if err != nil {
			return fmt.Errorf("connecting telemetry: %w", err)
		}
		defer func() {
			log.Info("closing telemetry connection")
			if closeErr := telemetry.Close(); closeErr != nil {
				log.Error("error closing telemetry", "error", closeErr)
			}
		}()
		log.Info("telemetry connected",
			"url", cfg.Telemetry.URL,
			"org", cfg.Telemetry.Org,
			"bucket", cfg.Telemetry.Bucket,
		)

		// Write errors surface through the log, never the data path
		telemetry.SetOnError(func(err error) {
			log.Error("telemetry write error", "error", err)
		})
	} else {
		log.Info("telemetry disabled")
	}

	// Classification oracle for ambiguous pointer devices
	classifier := classify.New(cfg.Classifier.Command, cfg.GetClassifyTimeout())
	classifier.SetLogger(log.Component("classify"))

	coord := coordinator.New(coordinator.Config{
		DevicesDir:      cfg.Devices.Dir,
		Requirement:     requirement,
		Debounce:        cfg.GetDebounce(),
		SettleMax:       cfg.GetSettleMax(),
		Workers:         cfg.Classifier.Workers,
		RemapperBinary:  cfg.Remapper.Binary,
		RemapperConfig:  cfg.Remapper.Config,
		GracefulTimeout: cfg.GetGracefulTimeout(),
		CrashBackoff:    cfg.GetCrashBackoff(),
	}, classifier, jrnl, telemetry)
	coord.SetLogger(log.Component("coordinator"))

	// Watch failure is fatal: without hotplug events the daemon is blind.
	// The stream opens with one Added event per node already present.
	watcher := watch.New(cfg.Devices.Dir)
	watcher.SetLogger(log.Component("watch"))
	events, err := watcher.Start(ctx)
	if err != nil {
		return fmt.Errorf("starting device watch: %w", err)
	}

	log.Info("initialisation complete, coordinating")

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return coord.Run(ctx)
	})

	g.Go(func() error {
		// Forward until the watcher closes the stream on shutdown.
		for ev := range events {
			switch ev.Type {
			case watch.Added:
				coord.DeviceAdded(ev.Node)
			case watch.Removed:
				coord.DeviceRemoved(ev.Node)
			}
		}
		return nil
	})

	err = g.Wait()

	log.Info("padherd stopped")
	return err
}

// getConfigPath returns the configuration file path.
// Uses PADHERD_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("PADHERD_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// resolveRequirement returns the group requirement: the static minima from
// the daemon config, or counts derived from the remapper's own mappings
// when requirement.derive is set.
//
// Parameters:
//   - cfg: Loaded application configuration
//
// Returns:
//   - group.Requirement: Effective per-group device requirement
//   - error: If derivation was requested and the remapper config cannot
//     supply it
func resolveRequirement(cfg *config.Config) (group.Requirement, error) {
	if cfg.Requirement.Derive {
		return group.DeriveRequirement(cfg.Remapper.Config)
	}

	return group.Requirement{
		Keyboards: cfg.Requirement.Keyboards,
		Trackpads: cfg.Requirement.Trackpads,
	}, nil
}
