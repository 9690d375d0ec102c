package configurator

import (
	"time"

	"github.com/yndnr/herdsman/internal/telemetry/logger"
)

// Default values.
const (
	DefaultTimeout         = 60 * time.Second
	DefaultWorkerProcesses = 1
	DefaultBacklog         = 1024
)

// Setting is one defaults-table entry.
type Setting struct {
	Key   Key
	Value any
}

// Defaults returns the defaults table in its fixed order. Each call builds
// fresh values, so callers may keep or modify the result.
func Defaults() []Setting {
	return []Setting{
		{KeyTimeout, DefaultTimeout},
		{KeyLogger, Logger(logger.Default())},
		{KeyWorkerProcesses, DefaultWorkerProcesses},
		{KeyAfterFork, ForkHook(DefaultAfterFork)},
		{KeyBeforeFork, ForkHook(DefaultBeforeFork)},
		{KeyBeforeExec, ExecHook(DefaultBeforeExec)},
		{KeyPID, nil},
		{KeyBacklog, DefaultBacklog},
		{KeyListeners, []string{}},
		{KeyPreloadApp, false},
		{KeyStderrPath, nil},
		{KeyStdoutPath, nil},
	}
}

// DefaultValue returns the default for key.
func DefaultValue(key Key) (any, bool) {
	for _, s := range Defaults() {
		if s.Key == key {
			return s.Value, true
		}
	}
	return nil, false
}
