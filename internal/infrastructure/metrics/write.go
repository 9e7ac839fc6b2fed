package metrics

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Points carry the group key as a tag (a handful of physical ports, low
// cardinality) and anything per-device or per-launch as fields.

// WriteDeviceEvent records a device arrival or removal.
//
// Parameters:
//   - event: "added" or "removed"
//   - groupKey: physical-path prefix the device belongs to
//   - node: device node name
func (c *Client) WriteDeviceEvent(event, groupKey, node string) {
	if !c.Active() {
		return
	}

	c.writeAPI.WritePoint(write.NewPoint(
		"device_events",
		map[string]string{
			"event": event,
			"group": groupKey,
		},
		map[string]interface{}{
			"node": node,
		},
		time.Now(),
	))
}

// WriteReadiness records the outcome of a group readiness evaluation.
//
// Parameters:
//   - groupKey: group being evaluated
//   - readiness: "empty", "incomplete", or "ready"
//   - keyboards, trackpads: counts of resolved members by kind
//   - unresolved: pointer-role members still awaiting classification
func (c *Client) WriteReadiness(groupKey, readiness string, keyboards, trackpads, unresolved int) {
	if !c.Active() {
		return
	}

	c.writeAPI.WritePoint(write.NewPoint(
		"group_readiness",
		map[string]string{
			"group":     groupKey,
			"readiness": readiness,
		},
		map[string]interface{}{
			"keyboards":  keyboards,
			"trackpads":  trackpads,
			"unresolved": unresolved,
		},
		time.Now(),
	))
}

// WriteLaunch records a remapper process launch.
//
// Parameters:
//   - groupKey: group the process serves
//   - launchID: unique launch identifier (lch-xxxxxxxx)
//   - pid: operating system process ID
func (c *Client) WriteLaunch(groupKey, launchID string, pid int) {
	if !c.Active() {
		return
	}

	c.writeAPI.WritePoint(write.NewPoint(
		"launches",
		map[string]string{
			"group": groupKey,
		},
		map[string]interface{}{
			"launch_id": launchID,
			"pid":       pid,
		},
		time.Now(),
	))
}

// WriteExit records a remapper process exit.
//
// Parameters:
//   - groupKey: group the process served
//   - launchID: launch identifier of the exited process
//   - crashed: true for unexpected exits, false for requested stops
func (c *Client) WriteExit(groupKey, launchID string, crashed bool) {
	if !c.Active() {
		return
	}

	outcome := "stopped"
	if crashed {
		outcome = "crashed"
	}

	c.writeAPI.WritePoint(write.NewPoint(
		"process_exits",
		map[string]string{
			"group":   groupKey,
			"outcome": outcome,
		},
		map[string]interface{}{
			"launch_id": launchID,
		},
		time.Now(),
	))
}

// WritePoint writes a custom point for measurements the lifecycle helpers
// don't cover.
//
// Parameters:
//   - measurement: The measurement name
//   - tags: Key-value pairs for indexing (low cardinality)
//   - fields: Key-value pairs for the actual data
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.Active() {
		return
	}

	c.writeAPI.WritePoint(write.NewPoint(measurement, tags, fields, time.Now()))
}
