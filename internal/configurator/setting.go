package configurator

// Key names a recognized setting.
type Key string

// Recognized settings.
const (
	KeyBacklog         Key = "backlog"
	KeyTimeout         Key = "timeout"
	KeyWorkerProcesses Key = "worker_processes"
	KeyListeners       Key = "listeners"
	KeyPID             Key = "pid"
	KeyStderrPath      Key = "stderr_path"
	KeyStdoutPath      Key = "stdout_path"
	KeyPreloadApp      Key = "preload_app"
	KeyLogger          Key = "logger"
	KeyAfterFork       Key = "after_fork"
	KeyBeforeFork      Key = "before_fork"
	KeyBeforeExec      Key = "before_exec"

	// KeyListen appends to listeners. It is a setter, never a stored key.
	KeyListen Key = "listen"
)

// Construction overrides consumed before any setter runs.
const (
	OptionUseDefaults = "use_defaults"
	OptionConfigFile  = "config_file"
)

// Keys returns the stored settings in defaults-table order.
func Keys() []Key {
	return []Key{
		KeyTimeout,
		KeyLogger,
		KeyWorkerProcesses,
		KeyAfterFork,
		KeyBeforeFork,
		KeyBeforeExec,
		KeyPID,
		KeyBacklog,
		KeyListeners,
		KeyPreloadApp,
		KeyStderrPath,
		KeyStdoutPath,
	}
}

type unset struct{}

func (unset) String() string { return "unset" }

// Unset is returned by Get for settings that were never configured. It is
// distinct from every legal value, including nil, false and empty lists.
var Unset any = unset{}

// IsUnset reports whether v is the Unset sentinel.
func IsUnset(v any) bool {
	_, ok := v.(unset)
	return ok
}

// overlay is an insertion-ordered map. Re-setting a key keeps its position.
type overlay struct {
	order  []Key
	values map[Key]any
}

func newOverlay() *overlay {
	return &overlay{values: make(map[Key]any)}
}

func (o *overlay) get(key Key) any {
	if v, ok := o.values[key]; ok {
		return detach(v)
	}
	return Unset
}

func (o *overlay) lookup(key Key) (any, bool) {
	v, ok := o.values[key]
	return detach(v), ok
}

// detach copies address lists so callers cannot edit the overlay in place.
func detach(v any) any {
	if addrs, ok := v.([]string); ok {
		out := make([]string, len(addrs))
		copy(out, addrs)
		return out
	}
	return v
}

func (o *overlay) put(key Key, v any) {
	if _, ok := o.values[key]; !ok {
		o.order = append(o.order, key)
	}
	o.values[key] = v
}

func (o *overlay) keys() []Key {
	keys := make([]Key, len(o.order))
	copy(keys, o.order)
	return keys
}
