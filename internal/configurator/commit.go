package configurator

import "time"

// Target receives committed settings. ApplyRaw takes every setting the
// target has no typed setter for.
type Target interface {
	ApplyRaw(key Key, value any) error
}

// Typed setters a Target may implement. Path setters receive "" for nil.
type (
	BacklogSetter         interface{ SetBacklog(n int) error }
	TimeoutSetter         interface{ SetTimeout(d time.Duration) error }
	WorkerProcessesSetter interface{ SetWorkerProcesses(n int) error }
	ListenersSetter       interface{ SetListeners(addrs []string) error }
	PIDSetter             interface{ SetPID(path string) error }
	StderrPathSetter      interface{ SetStderrPath(path string) error }
	StdoutPathSetter      interface{ SetStdoutPath(path string) error }
	PreloadAppSetter      interface{ SetPreloadApp(preload bool) error }
	LoggerSetter          interface{ SetLogger(l Logger) error }
	AfterForkSetter       interface{ SetAfterFork(h ForkHook) error }
	BeforeForkSetter      interface{ SetBeforeFork(h ForkHook) error }
	BeforeExecSetter      interface{ SetBeforeExec(h ExecHook) error }
)

// Commit writes every configured setting onto target in insertion order,
// skipping the keys in skip. The first error from target is returned as is
// and stops the commit.
func (c *Configurator) Commit(target Target, skip ...Key) error {
	skipped := make(map[Key]bool, len(skip))
	for _, key := range skip {
		skipped[key] = true
	}

	applied := 0
	for _, key := range c.set.order {
		v := c.set.values[key]
		if IsUnset(v) || skipped[key] {
			continue
		}
		if err := apply(target, key, v); err != nil {
			return err
		}
		applied++
	}

	c.log.Debug("configuration committed", "applied", applied, "skipped", len(skip))
	return nil
}

// apply prefers the typed setter and falls back to ApplyRaw.
func apply(target Target, key Key, v any) error {
	switch key {
	case KeyBacklog:
		if s, ok := target.(BacklogSetter); ok {
			return s.SetBacklog(v.(int))
		}
	case KeyTimeout:
		if s, ok := target.(TimeoutSetter); ok {
			return s.SetTimeout(v.(time.Duration))
		}
	case KeyWorkerProcesses:
		if s, ok := target.(WorkerProcessesSetter); ok {
			return s.SetWorkerProcesses(v.(int))
		}
	case KeyListeners:
		if s, ok := target.(ListenersSetter); ok {
			addrs := v.([]string)
			return s.SetListeners(append([]string(nil), addrs...))
		}
	case KeyPID:
		if s, ok := target.(PIDSetter); ok {
			return s.SetPID(pathValue(v))
		}
	case KeyStderrPath:
		if s, ok := target.(StderrPathSetter); ok {
			return s.SetStderrPath(pathValue(v))
		}
	case KeyStdoutPath:
		if s, ok := target.(StdoutPathSetter); ok {
			return s.SetStdoutPath(pathValue(v))
		}
	case KeyPreloadApp:
		if s, ok := target.(PreloadAppSetter); ok {
			return s.SetPreloadApp(v.(bool))
		}
	case KeyLogger:
		if s, ok := target.(LoggerSetter); ok {
			return s.SetLogger(v.(Logger))
		}
	case KeyAfterFork:
		if s, ok := target.(AfterForkSetter); ok {
			return s.SetAfterFork(v.(ForkHook))
		}
	case KeyBeforeFork:
		if s, ok := target.(BeforeForkSetter); ok {
			return s.SetBeforeFork(v.(ForkHook))
		}
	case KeyBeforeExec:
		if s, ok := target.(BeforeExecSetter); ok {
			return s.SetBeforeExec(v.(ExecHook))
		}
	}
	return target.ApplyRaw(key, v)
}

func pathValue(v any) string {
	s, _ := v.(string)
	return s
}
