// Package metrics writes padherd lifecycle telemetry to InfluxDB.
//
// # Purpose
//
// One point per lifecycle moment: a device arriving or leaving, a group
// readiness evaluation with its keyboard/trackpad tally, a remapper
// launch, a requested stop, a crash. The points answer "what has this
// machine's hotplug life looked like" without grepping logs.
//
// # Usage
//
//	client, err := metrics.Connect(cfg.Telemetry)
//	if err != nil {
//	    // telemetry is optional; a nil client is a valid no-op sink
//	}
//	defer client.Close()
//
//	client.WriteLaunch("usb-1.2", "lch-a1b2c3d4", 4242)
//
// Telemetry is never load-bearing. Deployments without InfluxDB pass a nil
// *Client around and every write helper returns immediately; nothing in
// the daemon checks whether a point landed.
//
// # Thread Safety
//
// All methods are safe for concurrent use. Writes are batched and
// non-blocking; asynchronous failures surface through SetOnError.
package metrics
