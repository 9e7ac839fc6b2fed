// Package config loads and validates padherd configuration.
//
// Values resolve in three layers: hardcoded defaults, then the YAML file,
// then PADHERD_* environment variables. Validate() runs last and collects
// every problem into one error, so a broken config fails startup with the
// full list instead of one complaint per restart.
//
// Timing fields are plain ints in the file (seconds, or milliseconds
// where the engine needs finer grain) with Get*() helpers converting to
// time.Duration, so the YAML stays free of duration-string parsing.
//
// The telemetry token should come from PADHERD_TELEMETRY_TOKEN rather
// than the file; the file may be world-readable in /etc.
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Devices.Dir)
package config
