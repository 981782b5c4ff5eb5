package process

import (
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/loykin/dreamlauncher/internal/detector"
	"github.com/loykin/dreamlauncher/internal/history"
	"github.com/loykin/dreamlauncher/internal/metrics"
)

// Liveness answers whether the runtime is up, either through the handle this
// process owns or by scanning the OS process table.
type Liveness interface {
	IsRunning() bool
	IsRunningAnywhere() bool
}

// Manager tracks at most one launched runtime. The zero value is not usable;
// construct with NewManager.
type Manager struct {
	mu      sync.Mutex
	current *handle
	last    Status

	finder detector.Detector
	logger *slog.Logger

	histMu sync.RWMutex
	sinks  []history.Sink
}

var _ Liveness = (*Manager)(nil)

// NewManager returns a Manager that uses finder for enumeration-based
// liveness. A nil finder searches for DefaultExecutable.
func NewManager(finder detector.Detector, logger *slog.Logger) *Manager {
	if finder == nil {
		finder = detector.ProcessNameDetector{Name: DefaultExecutable}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{finder: finder, logger: logger}
}

// SetHistory configures history sinks that receive launch and exit events.
func (m *Manager) SetHistory(sinks ...history.Sink) {
	m.histMu.Lock()
	m.sinks = append([]history.Sink(nil), sinks...)
	m.histMu.Unlock()
}

func (m *Manager) emit(t history.EventType, st Status) {
	m.histMu.RLock()
	sinks := m.sinks
	m.histMu.RUnlock()
	if len(sinks) == 0 {
		return
	}
	history.Dispatch(m.logger, sinks, history.Event{
		Type:       t,
		OccurredAt: time.Now().UTC(),
		Record: history.Record{
			Name:      st.Name,
			PID:       st.PID,
			Address:   st.Address,
			StartedAt: st.StartedAt,
			StoppedAt: st.StoppedAt,
			ExitErr:   st.ExitErr,
		},
	})
}

// Launch spawns the runtime detached with spec.Address as its only argument
// and replaces the tracked handle. It does not wait for the runtime to exit.
// On spawn failure the previous handle is kept.
func (m *Manager) Launch(spec Spec) (string, error) {
	path := spec.ExecutablePath()
	if _, err := os.Stat(path); err != nil {
		metrics.IncLaunch(false)
		return "", fmt.Errorf("dreamseeker executable not found at %s: %w", path, os.ErrNotExist)
	}

	// #nosec G204 -- no shell; address is passed as a single argv entry
	cmd := exec.Command(path, spec.Address)
	configureSysProcAttr(cmd)
	h, err := startHandle(cmd, spec)
	if err != nil {
		metrics.IncLaunch(false)
		return "", fmt.Errorf("failed to launch dreamseeker: %w", err)
	}

	m.mu.Lock()
	prev := m.current
	m.current = h
	m.last = h.status(true)
	st := m.last
	m.mu.Unlock()

	if prev != nil {
		m.logger.Info("Replacing tracked runtime handle", "old_pid", prev.pid(), "new_pid", h.pid())
	}
	metrics.IncLaunch(true)
	metrics.SetRuntimeRunning(true)
	m.logger.Info("Runtime launched", "pid", st.PID, "address", spec.Address)
	m.emit(history.EventLaunch, st)
	return fmt.Sprintf("Started DreamSeeker for %s", spec.Address), nil
}

// IsRunning is the handle-based query. It clears the handle once the process
// has exited or the status check fails, and never returns an error.
func (m *Manager) IsRunning() bool {
	running, exited := m.checkHandle()
	if exited != nil {
		m.emit(history.EventExit, *exited)
	}
	metrics.ObserveLiveness("handle", running)
	return running
}

// checkHandle holds the lock across check and clear. exited is non-nil when
// this call observed the exit.
func (m *Manager) checkHandle() (running bool, exited *Status) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.checkHandleLocked()
}

func (m *Manager) checkHandleLocked() (running bool, exited *Status) {
	h := m.current
	if h == nil {
		return false, nil
	}
	done, failed := h.poll()
	if !done {
		return true, nil
	}
	if failed {
		m.logger.Warn("Runtime status check failed, dropping handle", "pid", h.pid(), "error", h.err)
	} else {
		m.logger.Info("Runtime exited", "pid", h.pid(), "exit", h.exitErr())
	}
	m.current = nil
	m.last = h.status(false)
	metrics.SetRuntimeRunning(false)
	st := m.last
	return false, &st
}

// IsRunningAnywhere is the enumeration-based query. Enumeration errors are
// logged and reported as not running.
func (m *Manager) IsRunningAnywhere() bool {
	alive := m.enumerate()
	metrics.ObserveLiveness("enumeration", alive)
	return alive
}

func (m *Manager) enumerate() bool {
	alive, err := m.finder.Alive()
	if err != nil {
		m.logger.Debug("Process enumeration failed", "detector", m.finder.Describe(), "error", err)
		return false
	}
	return alive
}

// HasHandle reports whether a launched runtime is currently tracked.
func (m *Manager) HasHandle() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current != nil
}

// Status refreshes the handle state and returns the latest session snapshot.
// When no handle is tracked the enumeration detector decides Running. It is
// a report, not a liveness query, so it records no liveness metrics.
func (m *Manager) Status() Status {
	m.mu.Lock()
	running, exited := m.checkHandleLocked()
	st := m.last
	m.mu.Unlock()

	if exited != nil {
		m.emit(history.EventExit, *exited)
	}
	if running {
		return st
	}
	st.Running = false
	st.DetectedBy = ""
	if m.enumerate() {
		st.Running = true
		st.DetectedBy = m.finder.Describe()
	}
	return st
}

func (h *handle) status(running bool) Status {
	st := Status{
		Name:      h.spec.Executable,
		Running:   running,
		PID:       h.pid(),
		Address:   h.spec.Address,
		StartedAt: h.startedAt,
	}
	if st.Name == "" {
		st.Name = DefaultExecutable
	}
	if running {
		st.DetectedBy = "handle"
	} else {
		st.StoppedAt = h.stoppedAt
		st.ExitErr = h.exitErr()
	}
	return st
}
