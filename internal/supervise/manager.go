package supervise

import (
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sort"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
)

// State is where a group key currently sits in its lifecycle.
type State string

const (
	// StateIdle means no process exists for the key. Launching is allowed.
	StateIdle State = "idle"
	// StateStarting means a launch is in progress.
	StateStarting State = "starting"
	// StateRunning means a remapper instance is alive for the key.
	StateRunning State = "running"
	// StateStopping means a requested termination is in progress.
	StateStopping State = "stopping"
	// StateBackoff means the process exited unexpectedly and relaunch is
	// held off until the backoff window elapses.
	StateBackoff State = "backoff"
)

// outputBufferSize is the buffer size for capturing remapper stdout/stderr.
const outputBufferSize = 4096

// DeviceKind is the argument keyword the remapper expects before each
// device path.
type DeviceKind string

const (
	// KindKeys marks a keyboard device argument.
	KindKeys DeviceKind = "keys"
	// KindPad marks a trackpad device argument.
	KindPad DeviceKind = "pad"
)

// DeviceArg is one (kind, path) pair handed to the remapper.
type DeviceArg struct {
	Kind DeviceKind
	Path string
}

// LaunchSpec describes the devices a remapper instance should drive.
type LaunchSpec struct {
	// Devices in the order they should appear on the command line.
	Devices []DeviceArg
}

// ManagedProcess is the record of one launched remapper instance.
type ManagedProcess struct {
	// LaunchID uniquely identifies this launch for logs and the journal.
	LaunchID string
	// Key is the group key the instance serves.
	Key string
	// PID of the remapper process.
	PID int
	// StartedAt is when the process started.
	StartedAt time.Time
}

// Config holds configuration for the lifecycle manager.
type Config struct {
	// Binary is the remapper executable. Resolved via PATH if not absolute.
	Binary string

	// ConfigPath is the remapper's own config file, passed as the first
	// argument of every instance.
	ConfigPath string

	// GracefulTimeout is how long to wait between SIGTERM and SIGKILL.
	GracefulTimeout time.Duration

	// CrashBackoff is how long a key is held out of relaunch
	// consideration after an unexpected exit.
	CrashBackoff time.Duration

	// OnExit is called when a running process exits without being asked
	// to. err is the exit error (nil for a clean exit, which is still
	// unexpected). Called outside the manager lock.
	OnExit func(key, launchID string, err error)

	// OnStopped is called when a requested stop has fully completed.
	// Called outside the manager lock.
	OnStopped func(key, launchID string)
}

// Logger defines the logging interface for the lifecycle manager.
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

// entry is the per-key lifecycle record. Keys with no entry are idle.
type entry struct {
	state        State
	proc         ManagedProcess
	cmd          *exec.Cmd
	done         chan struct{} // closed by the exit monitor once Wait returns
	backoffUntil time.Time
}

// Manager owns one lifecycle state machine per group key.
type Manager struct {
	config Config
	logger Logger

	mu      sync.Mutex
	entries map[string]*entry
}

// NewManager creates a lifecycle manager with the given configuration.
func NewManager(cfg Config) *Manager {
	// Apply defaults for zero values
	if cfg.GracefulTimeout == 0 {
		cfg.GracefulTimeout = 10 * time.Second
	}
	if cfg.CrashBackoff == 0 {
		cfg.CrashBackoff = 10 * time.Second
	}

	return &Manager{
		config:  cfg,
		logger:  noopLogger{},
		entries: make(map[string]*entry),
	}
}

// SetLogger sets the logger for the manager.
func (m *Manager) SetLogger(logger Logger) {
	m.logger = logger
}

// State returns the current lifecycle state for a key. Keys never seen or
// fully terminated report idle; an elapsed backoff also reads as idle.
func (m *Manager) State(key string) State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stateLocked(key)
}

// stateLocked resolves the state for a key, lazily expiring backoff.
// Caller holds m.mu.
func (m *Manager) stateLocked(key string) State {
	e, ok := m.entries[key]
	if !ok {
		return StateIdle
	}
	if e.state == StateBackoff && time.Now().After(e.backoffUntil) {
		delete(m.entries, key)
		return StateIdle
	}
	return e.state
}

// Running returns the keys that currently have a live process, sorted.
func (m *Manager) Running() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	keys := make([]string, 0, len(m.entries))
	for key, e := range m.entries {
		if e.state == StateRunning {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys
}

// Process returns the managed process record for a key, if one is live.
func (m *Manager) Process(key string) (ManagedProcess, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok || (e.state != StateRunning && e.state != StateStopping) {
		return ManagedProcess{}, false
	}
	return e.proc, true
}

// Launch starts a remapper instance for a group. Only an idle key can
// launch; a key in backoff refuses with ErrBackoff until the window
// elapses.
//
// The command line follows the remapper's convention:
//
//	<binary> <config> keys <path> [keys <path>]... pad <path>...
//
// Parameters:
//   - key: Group key the instance will serve
//   - spec: Devices to hand to the remapper
//
// Returns:
//   - ManagedProcess: Record of the started instance
//   - error: ErrAlreadyRunning, ErrBackoff, or ErrLaunchFailed (wrapped)
func (m *Manager) Launch(key string, spec LaunchSpec) (ManagedProcess, error) {
	m.mu.Lock()
	switch m.stateLocked(key) {
	case StateIdle:
		// proceed
	case StateBackoff:
		until := m.entries[key].backoffUntil
		m.mu.Unlock()
		return ManagedProcess{}, fmt.Errorf("%w: %s until %s", ErrBackoff, key, until.Format(time.RFC3339))
	default:
		m.mu.Unlock()
		return ManagedProcess{}, fmt.Errorf("%w: %s", ErrAlreadyRunning, key)
	}

	e, ok := m.entries[key]
	if !ok {
		e = &entry{}
		m.entries[key] = e
	}
	e.state = StateStarting
	m.mu.Unlock()

	proc, err := m.startProcess(key, e, spec)
	if err != nil {
		m.mu.Lock()
		delete(m.entries, key)
		m.mu.Unlock()
		return ManagedProcess{}, err
	}

	return proc, nil
}

// startProcess builds and starts the remapper command for a key.
// The key's entry is in StateStarting and owned by this call.
func (m *Manager) startProcess(key string, e *entry, spec LaunchSpec) (ManagedProcess, error) {
	launchID := "lch-" + uuid.NewString()[:8]
	args := buildArgs(m.config.ConfigPath, spec)

	m.logger.Info("launching remapper",
		"key", key,
		"launch_id", launchID,
		"binary", m.config.Binary,
		"args", args,
	)

	cmd := exec.Command(m.config.Binary, args...) //nolint:gosec // binary comes from validated config

	// Create a new process group so we can signal the remapper and any
	// children together on stop.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	// Capture stdout/stderr for logging
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return ManagedProcess{}, fmt.Errorf("%w: creating stdout pipe: %v", ErrLaunchFailed, err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return ManagedProcess{}, fmt.Errorf("%w: creating stderr pipe: %v", ErrLaunchFailed, err)
	}

	if err := cmd.Start(); err != nil {
		return ManagedProcess{}, fmt.Errorf("%w: %s: %v", ErrLaunchFailed, key, err)
	}

	proc := ManagedProcess{
		LaunchID:  launchID,
		Key:       key,
		PID:       cmd.Process.Pid,
		StartedAt: time.Now(),
	}

	done := make(chan struct{})

	m.mu.Lock()
	e.state = StateRunning
	e.proc = proc
	e.cmd = cmd
	e.done = done
	m.mu.Unlock()

	go m.captureOutput(key, launchID, "stdout", stdout)
	go m.captureOutput(key, launchID, "stderr", stderr)
	go m.monitor(key, e, cmd, done)

	m.logger.Info("remapper started",
		"key", key,
		"launch_id", launchID,
		"pid", proc.PID,
	)

	return proc, nil
}

// buildArgs assembles the remapper argv after the binary name.
func buildArgs(configPath string, spec LaunchSpec) []string {
	args := make([]string, 0, 1+2*len(spec.Devices))
	args = append(args, configPath)
	for _, d := range spec.Devices {
		args = append(args, string(d.Kind), d.Path)
	}
	return args
}

// captureOutput reads from the given reader and logs each chunk.
func (m *Manager) captureOutput(key, launchID, stream string, r io.Reader) {
	buf := make([]byte, outputBufferSize)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			m.logger.Debug("remapper output",
				"key", key,
				"launch_id", launchID,
				"stream", stream,
				"output", string(buf[:n]),
			)
		}
		if err != nil {
			return
		}
	}
}

// monitor waits for the process to exit and settles the key's state.
// A stop worker owns the transition for requested stops; the monitor only
// handles the unexpected case.
func (m *Manager) monitor(key string, e *entry, cmd *exec.Cmd, done chan struct{}) {
	err := cmd.Wait()
	close(done)

	m.mu.Lock()
	if e.state != StateRunning {
		// Requested stop in progress: the stop worker completes it.
		m.mu.Unlock()
		return
	}

	launchID := e.proc.LaunchID
	e.state = StateBackoff
	e.backoffUntil = time.Now().Add(m.config.CrashBackoff)
	e.cmd = nil
	m.mu.Unlock()

	m.logger.Warn("remapper exited unexpectedly",
		"key", key,
		"launch_id", launchID,
		"error", err,
		"backoff", m.config.CrashBackoff,
	)

	if m.config.OnExit != nil {
		m.config.OnExit(key, launchID, err)
	}
}

// Stop terminates the remapper instance for a key: SIGTERM to the process
// group, a bounded grace period, then SIGKILL. Blocks until the process is
// confirmed dead. Keys without a running process are a no-op.
//
// Parameters:
//   - key: Group key to stop
//
// Returns:
//   - error: Only when the process group could not be killed
func (m *Manager) Stop(key string) error {
	m.mu.Lock()
	e, ok := m.entries[key]
	if !ok || e.state != StateRunning {
		m.mu.Unlock()
		return nil
	}
	e.state = StateStopping
	cmd := e.cmd
	done := e.done
	launchID := e.proc.LaunchID
	m.mu.Unlock()

	pid := cmd.Process.Pid
	m.logger.Info("stopping remapper", "key", key, "launch_id", launchID, "pid", pid)

	// Send SIGTERM to the entire process group for graceful shutdown.
	// Use negative PID to signal the process group (created via Setpgid).
	if err := syscall.Kill(-pid, syscall.SIGTERM); err != nil {
		// Process might have already exited
		if !errors.Is(err, syscall.ESRCH) {
			m.logger.Warn("failed to send SIGTERM to process group", "key", key, "error", err)
		}
	}

	// Wait for graceful shutdown or timeout
	select {
	case <-done:
		m.finishStop(key, e)
		m.logger.Info("remapper stopped gracefully", "key", key, "launch_id", launchID)
		return nil
	case <-time.After(m.config.GracefulTimeout):
		m.logger.Warn("graceful stop timeout, sending SIGKILL",
			"key", key,
			"launch_id", launchID,
			"timeout", m.config.GracefulTimeout,
		)
	}

	// Force kill the entire process group
	if err := syscall.Kill(-pid, syscall.SIGKILL); err != nil {
		if !errors.Is(err, syscall.ESRCH) {
			return fmt.Errorf("killing process group for %s: %w", key, err)
		}
	}

	// Wait for the exit monitor to confirm death
	<-done
	m.finishStop(key, e)
	m.logger.Info("remapper killed", "key", key, "launch_id", launchID)

	return nil
}

// finishStop returns a stopped key to idle and notifies the owner.
func (m *Manager) finishStop(key string, e *entry) {
	m.mu.Lock()
	launchID := e.proc.LaunchID
	e.state = StateIdle
	e.cmd = nil
	delete(m.entries, key)
	m.mu.Unlock()

	if m.config.OnStopped != nil {
		m.config.OnStopped(key, launchID)
	}
}

// StopAll terminates every running instance concurrently and blocks until
// all are confirmed dead. Used at daemon shutdown.
func (m *Manager) StopAll() {
	keys := m.Running()
	if len(keys) == 0 {
		return
	}

	m.logger.Info("stopping all remappers", "count", len(keys))

	var wg sync.WaitGroup
	for _, key := range keys {
		wg.Add(1)
		go func(k string) {
			defer wg.Done()
			if err := m.Stop(k); err != nil {
				m.logger.Error("failed to stop remapper", "key", k, "error", err)
			}
		}(key)
	}
	wg.Wait()
}
