package master

import (
	"time"

	"github.com/yndnr/herdsman/internal/configurator"
)

// Snapshot is a copy of the applied settings.
type Snapshot struct {
	Generation      string        `json:"generation" yaml:"generation"`
	Timeout         time.Duration `json:"timeout" yaml:"timeout"`
	WorkerProcesses int           `json:"worker_processes" yaml:"worker_processes"`
	Listeners       []string      `json:"listeners" yaml:"listeners"`
	Backlog         int           `json:"backlog" yaml:"backlog"`
	PID             string        `json:"pid,omitempty" yaml:"pid,omitempty"`
	StderrPath      string        `json:"stderr_path,omitempty" yaml:"stderr_path,omitempty"`
	StdoutPath      string        `json:"stdout_path,omitempty" yaml:"stdout_path,omitempty"`
	PreloadApp      bool          `json:"preload_app" yaml:"preload_app"`
}

// Snapshot returns the applied settings.
func (m *Master) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshotLocked()
}

func (m *Master) snapshotLocked() Snapshot {
	s := Snapshot{
		Timeout:         m.state.timeout,
		WorkerProcesses: m.state.workerProcesses,
		Listeners:       append([]string(nil), m.state.listeners...),
		Backlog:         m.state.backlog,
	}
	if m.started {
		s.Generation = m.generation.String()
	}
	s.PID, _ = m.state.raw[configurator.KeyPID].(string)
	s.StderrPath, _ = m.state.raw[configurator.KeyStderrPath].(string)
	s.StdoutPath, _ = m.state.raw[configurator.KeyStdoutPath].(string)
	s.PreloadApp, _ = m.state.raw[configurator.KeyPreloadApp].(bool)
	return s
}
