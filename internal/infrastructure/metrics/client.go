package metrics

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"

	"github.com/nerrad567/padherd/internal/infrastructure/config"
)

const (
	// connectTimeout bounds the verification ping at Connect.
	connectTimeout = 10 * time.Second

	// defaultBatchSize is used when the config leaves batch_size unset.
	defaultBatchSize = 100

	// defaultFlushSeconds is used when the config leaves flush_interval
	// unset.
	defaultFlushSeconds = 10

	// msPerSecond converts the config's second-granularity flush interval
	// to the milliseconds the InfluxDB client expects.
	msPerSecond = 1000
)

// Client writes padherd lifecycle points to InfluxDB. A nil *Client is a
// valid no-op sink: a deployment with telemetry disabled passes nil around
// and every write helper returns immediately, so call sites never guard.
//
// Writes are batched and non-blocking; failures surface asynchronously
// through the SetOnError callback. All methods are safe for concurrent use.
type Client struct {
	influx   influxdb2.Client
	writeAPI api.WriteAPI

	closed atomic.Bool

	mu      sync.Mutex
	onError func(error)
}

// Connect dials the configured InfluxDB server, verifies it answers, and
// starts the asynchronous write pipeline.
//
// Parameters:
//   - cfg: Telemetry configuration from config.yaml
//
// Returns:
//   - *Client: Connected client ready for use
//   - error: ErrDisabled when telemetry is off, ErrConnectionFailed
//     (wrapped) when the server does not answer
func Connect(cfg config.TelemetryConfig) (*Client, error) {
	if !cfg.Enabled {
		return nil, ErrDisabled
	}

	influx := influxdb2.NewClientWithOptions(cfg.URL, cfg.Token, writeOptions(cfg))

	if err := verify(influx); err != nil {
		influx.Close()
		return nil, err
	}

	c := &Client{
		influx:   influx,
		writeAPI: influx.WriteAPI(cfg.Org, cfg.Bucket),
	}
	go c.pumpWriteErrors()

	return c, nil
}

// writeOptions converts the config's batching settings into client
// options, substituting defaults for unset values.
func writeOptions(cfg config.TelemetryConfig) *influxdb2.Options {
	batch := cfg.BatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}
	flush := cfg.FlushInterval
	if flush <= 0 {
		flush = defaultFlushSeconds
	}

	// #nosec G115 -- both values forced positive above
	return influxdb2.DefaultOptions().
		SetBatchSize(uint(batch)).
		SetFlushInterval(uint(flush) * msPerSecond)
}

// verify pings the server once, bounded by the connect timeout.
func verify(influx influxdb2.Client) error {
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	healthy, err := influx.Ping(ctx)
	if err != nil {
		return fmt.Errorf("%w: ping failed: %w", ErrConnectionFailed, err)
	}
	if !healthy {
		return fmt.Errorf("%w: server not healthy", ErrConnectionFailed)
	}
	return nil
}

// pumpWriteErrors forwards asynchronous write failures to the registered
// callback. The channel closes when the underlying client shuts down.
func (c *Client) pumpWriteErrors() {
	for err := range c.writeAPI.Errors() {
		c.mu.Lock()
		callback := c.onError
		c.mu.Unlock()

		if callback != nil {
			callback(err)
		}
	}
}

// SetOnError registers a callback for asynchronous write failures. Writes
// are non-blocking, so this is the only place errors come out.
func (c *Client) SetOnError(callback func(err error)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onError = callback
}

// Active reports whether the client accepts writes: non-nil and not yet
// closed. Safe on a nil receiver.
func (c *Client) Active() bool {
	return c != nil && !c.closed.Load()
}

// Flush blocks until all buffered points are written. No-op once closed.
func (c *Client) Flush() {
	if !c.Active() {
		return
	}
	c.writeAPI.Flush()
}

// Close flushes pending writes and shuts the connection down. Further
// writes become no-ops.
//
// Returns:
//   - error: nil (the InfluxDB client's Close doesn't return errors)
func (c *Client) Close() error {
	if c == nil || c.closed.Swap(true) {
		return nil
	}

	c.writeAPI.Flush()
	c.influx.Close()

	return nil
}
