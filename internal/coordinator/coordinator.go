package coordinator

import (
	"context"
	"path/filepath"
	"sort"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/nerrad567/padherd/internal/classify"
	"github.com/nerrad567/padherd/internal/devpath"
	"github.com/nerrad567/padherd/internal/group"
	"github.com/nerrad567/padherd/internal/infrastructure/metrics"
	"github.com/nerrad567/padherd/internal/journal"
	"github.com/nerrad567/padherd/internal/supervise"
)

const (
	// queueSize bounds the event queue. Producers block (briefly) once a
	// burst outruns the loop rather than dropping events.
	queueSize = 128

	// defaultDebounce is the quiet window after a device event.
	defaultDebounce = 500 * time.Millisecond

	// defaultWorkers bounds concurrent oracle queries.
	defaultWorkers = 4

	// settleFactor derives the default settle cap from the debounce.
	settleFactor = 4
)

// Logger defines the logging interface for the coordinator.
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

// Oracle is what the coordinator needs from the classification layer.
// Classify blocks and is only ever called from worker goroutines.
type Oracle interface {
	Classify(ctx context.Context, node string) (classify.Class, error)
	Invalidate(node string)
}

// Config holds configuration for the coordinator.
type Config struct {
	// DevicesDir is the watched directory. Node names are joined to it
	// to form the paths handed to the oracle and the remapper.
	DevicesDir string

	// Requirement every group is evaluated against.
	Requirement group.Requirement

	// Debounce is the quiet window after a device event before pending
	// groups are evaluated. Defaults to 500ms.
	Debounce time.Duration

	// SettleMax caps consecutive debounce extensions, measured from the
	// first event of the window. Defaults to four times Debounce.
	SettleMax time.Duration

	// Workers bounds concurrent classification queries. Defaults to 4.
	Workers int

	// RemapperBinary is the remapper executable to launch per ready group.
	RemapperBinary string

	// RemapperConfig is the config file path passed as its first argument.
	RemapperConfig string

	// GracefulTimeout is the SIGTERM grace before SIGKILL.
	GracefulTimeout time.Duration

	// CrashBackoff is how long a crashed group is held out of relaunch.
	CrashBackoff time.Duration
}

// Coordinator owns the device inventory and drives remapper lifecycles
// from a single event loop.
type Coordinator struct {
	cfg       Config
	oracle    Oracle
	journal   *journal.Journal
	telemetry *metrics.Client
	logger    Logger

	assembler *group.Assembler
	manager   *supervise.Manager
	sem       *semaphore.Weighted

	queue chan event
	done  chan struct{} // closed once the loop has shut down

	// Loop-owned state. Only the Run goroutine touches these.
	pending     map[string]struct{} // group keys awaiting evaluation
	classifying map[string]uint64   // node → generation of the in-flight query
	classifyGen uint64
	ops         map[string]struct{} // keys with a launch or stop in flight
	windowStart time.Time
	timer       *time.Timer
	timerActive bool
}

// New creates a coordinator. jrnl and telemetry may be nil when those
// sinks are disabled; the coordinator simply skips them.
func New(cfg Config, oracle Oracle, jrnl *journal.Journal, telemetry *metrics.Client) *Coordinator {
	if cfg.Debounce <= 0 {
		cfg.Debounce = defaultDebounce
	}
	if cfg.SettleMax < cfg.Debounce {
		cfg.SettleMax = settleFactor * cfg.Debounce
	}
	if cfg.Workers <= 0 {
		cfg.Workers = defaultWorkers
	}

	c := &Coordinator{
		cfg:         cfg,
		oracle:      oracle,
		journal:     jrnl,
		telemetry:   telemetry,
		logger:      noopLogger{},
		assembler:   group.NewAssembler(),
		sem:         semaphore.NewWeighted(int64(cfg.Workers)),
		queue:       make(chan event, queueSize),
		done:        make(chan struct{}),
		pending:     make(map[string]struct{}),
		classifying: make(map[string]uint64),
		ops:         make(map[string]struct{}),
	}

	c.manager = supervise.NewManager(supervise.Config{
		Binary:          cfg.RemapperBinary,
		ConfigPath:      cfg.RemapperConfig,
		GracefulTimeout: cfg.GracefulTimeout,
		CrashBackoff:    cfg.CrashBackoff,
		OnExit: func(key, launchID string, err error) {
			c.enqueue(processExited{key: key, launchID: launchID, err: err})
		},
		OnStopped: func(key, launchID string) {
			c.enqueue(stopCompleted{key: key, launchID: launchID})
		},
	})

	return c
}

// SetLogger sets the logger for the coordinator and its lifecycle manager.
func (c *Coordinator) SetLogger(logger Logger) {
	if logger != nil {
		c.logger = logger
		c.manager.SetLogger(logger)
	}
}

// DeviceAdded feeds a node arrival into the loop. Safe from any goroutine.
func (c *Coordinator) DeviceAdded(node string) {
	c.enqueue(deviceAdded{node: node})
}

// DeviceRemoved feeds a node removal into the loop. Safe from any goroutine.
func (c *Coordinator) DeviceRemoved(node string) {
	c.enqueue(deviceRemoved{node: node})
}

// enqueue feeds the loop from producer goroutines. Events arriving after
// shutdown are dropped so producers never wedge.
func (c *Coordinator) enqueue(ev event) {
	select {
	case c.queue <- ev:
	case <-c.done:
	}
}

// Run processes events until ctx is cancelled, then terminates every
// running remapper before returning. It must be called exactly once.
func (c *Coordinator) Run(ctx context.Context) error {
	c.logger.Info("coordinator started",
		"devices_dir", c.cfg.DevicesDir,
		"keyboards", c.cfg.Requirement.Keyboards,
		"trackpads", c.cfg.Requirement.Trackpads,
		"debounce", c.cfg.Debounce.String(),
		"settle_max", c.cfg.SettleMax.String(),
		"workers", c.cfg.Workers,
	)

	for {
		// A nil channel never fires; the timer only participates in the
		// select while a debounce window is open.
		var timerC <-chan time.Time
		if c.timerActive {
			timerC = c.timer.C
		}

		select {
		case <-ctx.Done():
			c.shutdown()
			return nil

		case ev := <-c.queue:
			c.handle(ctx, ev)

		case <-timerC:
			c.timerActive = false
			c.settle(ctx)
		}
	}
}

// shutdown waits for in-flight workers, terminates every running
// remapper, then releases the queue. Completions arriving during teardown
// are drained so manager callbacks never block on a dead loop.
func (c *Coordinator) shutdown() {
	c.logger.Info("coordinator shutting down",
		"running", len(c.manager.Running()),
		"in_flight", len(c.ops),
	)

	// A launch still in flight would slip past StopAll's snapshot and
	// leave an orphaned remapper behind, so wait those out first.
	for len(c.ops) > 0 {
		switch ev := (<-c.queue).(type) {
		case launchCompleted:
			delete(c.ops, ev.key)
		case processExited:
			delete(c.ops, ev.key)
		case stopCompleted:
			delete(c.ops, ev.key)
		}
	}

	stopped := make(chan struct{})
	go func() {
		c.manager.StopAll()
		close(stopped)
	}()

	for {
		select {
		case <-c.queue:
			// Discarded: state no longer advances.
		case <-stopped:
			close(c.done)
			c.logger.Info("coordinator stopped")
			return
		}
	}
}

// handle applies one event to loop state.
func (c *Coordinator) handle(ctx context.Context, ev event) {
	switch ev := ev.(type) {
	case deviceAdded:
		c.handleAdded(ctx, ev.node)
	case deviceRemoved:
		c.handleRemoved(ctx, ev.node)
	case classResolved:
		c.handleResolved(ctx, ev)
	case launchCompleted:
		c.handleLaunched(ctx, ev)
	case processExited:
		c.handleExited(ctx, ev)
	case stopCompleted:
		c.handleStopped(ctx, ev)
	}
}

func (c *Coordinator) handleAdded(ctx context.Context, node string) {
	id, err := devpath.Parse(node)
	if err != nil {
		// Joysticks, tablets and friends share the directory; skipping
		// them is routine, not an error.
		c.logger.Debug("ignoring node outside naming convention", "node", node, "reason", err)
		return
	}

	key, fresh := c.assembler.Add(id)
	if !fresh {
		return
	}

	c.logger.Info("device added", "node", node, "key", key, "role", string(id.Role))
	c.record(ctx, journal.EventDeviceAdded, key, node, map[string]any{"role": string(id.Role)})
	c.telemetry.WriteDeviceEvent("added", key, node)

	// Pointers are queried as soon as they appear so the verdict is
	// usually in before the debounce window closes.
	if id.Role == devpath.RolePointer {
		c.dispatchClassify(ctx, node)
	}

	c.markPending(key)
}

func (c *Coordinator) handleRemoved(ctx context.Context, node string) {
	// Drop any cached verdict first. A re-plugged node may be different
	// hardware on the same port. Clearing the in-flight marker lets a
	// re-added node start a fresh query; the old query's verdict, if it
	// ever lands, fails the generation check.
	c.oracle.Invalidate(c.nodePath(node))
	delete(c.classifying, node)

	key, ok := c.assembler.Remove(node)
	if !ok {
		return
	}

	c.logger.Info("device removed", "node", node, "key", key)
	c.record(ctx, journal.EventDeviceRemoved, key, node, nil)
	c.telemetry.WriteDeviceEvent("removed", key, node)

	c.markPending(key)
}

func (c *Coordinator) handleResolved(ctx context.Context, ev classResolved) {
	gen, expected := c.classifying[ev.node]
	if !expected || gen != ev.gen {
		// The node was removed (and possibly re-added) while this query
		// ran. Whatever device answered, it is not the one on record.
		c.logger.Debug("dropping stale verdict", "node", ev.node)
		return
	}
	delete(c.classifying, ev.node)

	if ev.err != nil {
		// Not cached by the oracle, so the next evaluation of the group
		// retries the query.
		c.logger.Warn("classification unavailable", "node", ev.node, "error", ev.err)
		return
	}

	key, ok := c.assembler.Resolve(ev.node, ev.class)
	if !ok {
		c.logger.Debug("dropping verdict for departed node", "node", ev.node)
		return
	}

	c.logger.Info("device classified", "node", ev.node, "key", key, "class", string(ev.class))
	c.record(ctx, journal.EventClassResolved, key, ev.node, map[string]any{"class": string(ev.class)})

	c.markPending(key)
}

func (c *Coordinator) handleLaunched(ctx context.Context, ev launchCompleted) {
	delete(c.ops, ev.key)

	if ev.err != nil {
		// The group stays idle. No retry timer: the next device event
		// that makes it pending tries again.
		c.logger.Error("launch failed", "key", ev.key, "error", ev.err)
		return
	}

	c.record(ctx, journal.EventLaunchStarted, ev.key, "", map[string]any{
		"launch_id": ev.proc.LaunchID,
		"pid":       ev.proc.PID,
	})
	c.telemetry.WriteLaunch(ev.key, ev.proc.LaunchID, ev.proc.PID)
}

func (c *Coordinator) handleExited(ctx context.Context, ev processExited) {
	delete(c.ops, ev.key)

	exit := "exit status 0"
	if ev.err != nil {
		exit = ev.err.Error()
	}

	c.record(ctx, journal.EventProcessExited, ev.key, "", map[string]any{
		"launch_id": ev.launchID,
		"exit":      exit,
	})
	c.telemetry.WriteExit(ev.key, ev.launchID, true)

	// No relaunch here. The key sits in backoff and the next device
	// event re-evaluates it.
}

func (c *Coordinator) handleStopped(ctx context.Context, ev stopCompleted) {
	delete(c.ops, ev.key)

	c.record(ctx, journal.EventStopCompleted, ev.key, "", map[string]any{"launch_id": ev.launchID})
	c.telemetry.WriteExit(ev.key, ev.launchID, false)

	// Membership may have changed again while the stop was in flight.
	c.markPending(ev.key)
}

// markPending queues a group for evaluation once the debounce window
// closes. The window opens at the first pending key and is pushed back by
// each further event, never beyond the settle cap.
func (c *Coordinator) markPending(key string) {
	c.pending[key] = struct{}{}

	now := time.Now()
	if !c.timerActive {
		c.windowStart = now
		c.armTimer(c.cfg.Debounce)
		return
	}

	delay := c.cfg.Debounce
	if bound := c.windowStart.Add(c.cfg.SettleMax); now.Add(delay).After(bound) {
		delay = bound.Sub(now)
		if delay < 0 {
			delay = 0
		}
	}
	c.armTimer(delay)
}

func (c *Coordinator) armTimer(d time.Duration) {
	if c.timer == nil {
		c.timer = time.NewTimer(d)
	} else {
		c.timer.Reset(d)
	}
	c.timerActive = true
}

// settle evaluates every pending group in deterministic order.
func (c *Coordinator) settle(ctx context.Context) {
	if len(c.pending) == 0 {
		return
	}

	keys := make([]string, 0, len(c.pending))
	for key := range c.pending {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	c.pending = make(map[string]struct{})

	c.logger.Debug("debounce settled", "keys", keys)

	for _, key := range keys {
		c.evaluate(ctx, key)
	}
}

// evaluate compares one group against the requirement and the lifecycle
// state, dispatching a launch or stop when they disagree.
func (c *Coordinator) evaluate(ctx context.Context, key string) {
	snap, _ := c.assembler.Snapshot(key) // a purged group evaluates as empty

	readiness := group.Evaluate(snap.Members, c.cfg.Requirement)
	tally := group.CountMembers(snap.Members)

	c.logger.Info("group evaluated",
		"key", key,
		"readiness", string(readiness),
		"keyboards", tally.Keyboards,
		"trackpads", tally.Trackpads,
		"unresolved", tally.Unresolved,
	)
	c.telemetry.WriteReadiness(key, string(readiness), tally.Keyboards, tally.Trackpads, tally.Unresolved)

	// Re-query members that still lack a verdict. Oracle failures are
	// not cached, so this is also the retry path.
	for _, d := range snap.Members {
		if d.Role == devpath.RolePointer && d.Class == classify.ClassUnknown {
			c.dispatchClassify(ctx, d.Node)
		}
	}

	if _, busy := c.ops[key]; busy {
		// A launch or stop is already in flight; its completion event
		// drives the next look at this key.
		return
	}

	state := c.manager.State(key)
	switch {
	case readiness == group.ReadinessReady && state == supervise.StateIdle:
		c.dispatchLaunch(key, snap)
	case readiness != group.ReadinessReady && state == supervise.StateRunning:
		c.dispatchStop(key)
	}
}

// dispatchClassify starts an oracle query for a node unless one is
// already in flight. The verdict comes back as a classResolved event
// stamped with this query's generation.
func (c *Coordinator) dispatchClassify(ctx context.Context, node string) {
	if _, running := c.classifying[node]; running {
		return
	}
	c.classifyGen++
	gen := c.classifyGen
	c.classifying[node] = gen

	path := c.nodePath(node)
	go func() {
		if err := c.sem.Acquire(ctx, 1); err != nil {
			c.enqueue(classResolved{node: node, gen: gen, err: err})
			return
		}
		class, err := c.oracle.Classify(ctx, path)
		c.sem.Release(1)
		c.enqueue(classResolved{node: node, gen: gen, class: class, err: err})
	}()
}

// dispatchLaunch starts a remapper for a ready group in a worker.
func (c *Coordinator) dispatchLaunch(key string, snap group.Group) {
	c.ops[key] = struct{}{}
	spec := c.buildSpec(snap)

	c.logger.Info("launching remapper", "key", key, "devices", len(spec.Devices))

	go func() {
		proc, err := c.manager.Launch(key, spec)
		c.enqueue(launchCompleted{key: key, proc: proc, err: err})
	}()
}

// dispatchStop terminates a group's remapper in a worker. Completion
// arrives as stopCompleted, or as processExited if the process crashed
// just before the stop took hold.
func (c *Coordinator) dispatchStop(key string) {
	c.ops[key] = struct{}{}

	c.logger.Info("stopping remapper", "key", key)

	go func() {
		if err := c.manager.Stop(key); err != nil {
			c.logger.Error("failed to stop remapper", "key", key, "error", err)
		}
	}()
}

// buildSpec assembles the remapper's device arguments from a snapshot:
// every keyboard, then every confirmed trackpad, each with its kind
// keyword. Unresolved and non-trackpad pointers are left out. Members are
// already sorted by node, so the argv is deterministic.
func (c *Coordinator) buildSpec(snap group.Group) supervise.LaunchSpec {
	var devices []supervise.DeviceArg

	for _, d := range snap.Members {
		if d.Role == devpath.RoleKeyboard {
			devices = append(devices, supervise.DeviceArg{
				Kind: supervise.KindKeys,
				Path: c.nodePath(d.Node),
			})
		}
	}
	for _, d := range snap.Members {
		if d.Role == devpath.RolePointer && d.Class == classify.ClassTrackpad {
			devices = append(devices, supervise.DeviceArg{
				Kind: supervise.KindPad,
				Path: c.nodePath(d.Node),
			})
		}
	}

	return supervise.LaunchSpec{Devices: devices}
}

// record appends to the journal when one is configured. Journal failures
// are logged and never interrupt coordination.
func (c *Coordinator) record(ctx context.Context, eventKind, key, node string, details map[string]any) {
	if c.journal == nil {
		return
	}

	e := journal.Entry{Event: eventKind, GroupKey: key, Node: node, Details: details}
	if err := c.journal.Record(ctx, &e); err != nil {
		c.logger.Error("failed to record journal event", "event", eventKind, "error", err)
	}
}

func (c *Coordinator) nodePath(node string) string {
	return filepath.Join(c.cfg.DevicesDir, node)
}
