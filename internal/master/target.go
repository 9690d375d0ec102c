package master

import (
	"fmt"
	"time"

	"github.com/yndnr/herdsman/internal/configurator"
)

// The setters below are called by Commit while m.mu is held.

// SetTimeout implements configurator.TimeoutSetter.
func (m *Master) SetTimeout(d time.Duration) error {
	m.state.timeout = d
	return nil
}

// SetWorkerProcesses implements configurator.WorkerProcessesSetter.
func (m *Master) SetWorkerProcesses(n int) error {
	m.state.workerProcesses = n
	return nil
}

// SetListeners implements configurator.ListenersSetter.
func (m *Master) SetListeners(addrs []string) error {
	m.state.listeners = addrs
	return nil
}

// SetBacklog implements configurator.BacklogSetter. The kernel clamps
// oversized values, but a negative backlog is never meaningful.
func (m *Master) SetBacklog(n int) error {
	if n < 0 {
		return fmt.Errorf("backlog %d: must not be negative", n)
	}
	m.state.backlog = n
	return nil
}

// SetLogger implements configurator.LoggerSetter.
func (m *Master) SetLogger(l configurator.Logger) error {
	m.state.logger = l
	return nil
}

// ApplyRaw stores settings without a typed setter.
func (m *Master) ApplyRaw(key configurator.Key, value any) error {
	m.state.raw[key] = value
	return nil
}

// Logger implements configurator.Server. It returns the committed logger
// setting, or nil before one was committed.
func (m *Master) Logger() configurator.Logger {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.logger
}

// RunBeforeFork runs the committed before_fork hook for workerNr.
func (m *Master) RunBeforeFork(workerNr int) error {
	return m.runForkHook(configurator.KeyBeforeFork, workerNr)
}

// RunAfterFork runs the committed after_fork hook for workerNr.
func (m *Master) RunAfterFork(workerNr int) error {
	return m.runForkHook(configurator.KeyAfterFork, workerNr)
}

// RunBeforeExec runs the committed before_exec hook.
func (m *Master) RunBeforeExec() error {
	m.mu.RLock()
	h, _ := m.state.raw[configurator.KeyBeforeExec].(configurator.ExecHook)
	m.mu.RUnlock()

	if h == nil {
		return nil
	}
	if err := h(m); err != nil {
		return fmt.Errorf("%s hook: %w", configurator.KeyBeforeExec, err)
	}
	return nil
}

// runForkHook calls the hook without holding the lock, so the hook may
// call back into Logger.
func (m *Master) runForkHook(key configurator.Key, workerNr int) error {
	m.mu.RLock()
	h, _ := m.state.raw[key].(configurator.ForkHook)
	m.mu.RUnlock()

	if h == nil {
		return nil
	}
	if err := h(m, workerNr); err != nil {
		return fmt.Errorf("%s hook for worker %d: %w", key, workerNr, err)
	}
	return nil
}
