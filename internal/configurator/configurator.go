package configurator

import (
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/yndnr/herdsman/internal/infra/luastate"
	"github.com/yndnr/herdsman/internal/telemetry/logger"
)

// Configurator holds the settings overlay.
type Configurator struct {
	set        *overlay
	configFile string

	expandAddr    func(string) (string, error)
	scriptTimeout time.Duration
	log           Logger
}

// Option configures a Configurator.
type Option func(*Configurator)

// WithLogger sets the logger used for the Configurator's own diagnostics.
// It is unrelated to the logger setting.
func WithLogger(l Logger) Option {
	return func(c *Configurator) {
		c.log = l
	}
}

// WithScriptTimeout bounds each run of the configuration script and each
// call into a script-defined hook.
func WithScriptTimeout(d time.Duration) Option {
	return func(c *Configurator) {
		c.scriptTimeout = d
	}
}

// WithAddressExpander normalizes every address given to listen and
// listeners. A failing expander rejects the address.
func WithAddressExpander(fn func(string) (string, error)) Option {
	return func(c *Configurator) {
		c.expandAddr = fn
	}
}

// New builds a Configurator from construction overrides and runs the
// configuration script once.
//
// The "use_defaults" and "config_file" overrides are consumed first. The
// remaining overrides are applied through Set in ascending key order, so
// construction is deterministic.
func New(overrides map[string]any, opts ...Option) (*Configurator, error) {
	c := &Configurator{
		set:           newOverlay(),
		scriptTimeout: luastate.DefaultExecutionTimeout,
		log:           logger.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}

	rest := make(map[string]any, len(overrides))
	for k, v := range overrides {
		rest[k] = v
	}

	useDefaults := false
	if v, ok := rest[OptionUseDefaults]; ok {
		delete(rest, OptionUseDefaults)
		b, ok := v.(bool)
		if !ok {
			return nil, invalid(OptionUseDefaults, v, "not a boolean")
		}
		useDefaults = b
	}
	if v, ok := rest[OptionConfigFile]; ok {
		delete(rest, OptionConfigFile)
		switch p := v.(type) {
		case nil:
		case string:
			c.configFile = p
		default:
			return nil, invalid(OptionConfigFile, v, "not a path")
		}
	}

	if useDefaults {
		for _, s := range Defaults() {
			c.set.put(s.Key, s.Value)
		}
	}

	names := make([]string, 0, len(rest))
	for name := range rest {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := c.Set(name, rest[name]); err != nil {
			return nil, err
		}
	}

	if err := c.Reload(); err != nil {
		return nil, err
	}
	return c, nil
}

// ConfigFile returns the configuration script path, or "" if none.
func (c *Configurator) ConfigFile() string {
	return c.configFile
}

// Reload re-runs the configuration script against the current overlay.
// Settings the script does not mention keep their values. Statements that
// ran before a failing one stay applied.
func (c *Configurator) Reload() error {
	if c.configFile == "" {
		return nil
	}

	src, err := os.ReadFile(c.configFile)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	start := time.Now()
	if err := c.runScript(c.configFile, src); err != nil {
		return err
	}
	c.log.Debug("configuration loaded",
		"config_file", c.configFile,
		"settings", len(c.set.order),
		"duration", time.Since(start),
	)
	return nil
}

// Set validates value and stores it under name. It is the entry point for
// overrides and script statements; the typed setters delegate to it.
func (c *Configurator) Set(name string, value any) error {
	key := Key(name)
	if key == KeyListen {
		return c.listen(value)
	}
	validate, ok := validators[key]
	if !ok {
		return &UnknownSettingError{Name: name}
	}
	v, err := validate(c, key, value)
	if err != nil {
		return err
	}
	c.set.put(key, v)
	return nil
}

// Get returns the overlay value for key, or Unset. Defaults are not
// consulted.
func (c *Configurator) Get(key Key) any {
	return c.set.get(key)
}

// Lookup returns the overlay value for key and whether it is set.
func (c *Configurator) Lookup(key Key) (any, bool) {
	return c.set.lookup(key)
}

// Names returns the configured keys in insertion order.
func (c *Configurator) Names() []Key {
	return c.set.keys()
}

// Backlog sets the listen backlog.
func (c *Configurator) Backlog(n int) error {
	return c.Set(string(KeyBacklog), n)
}

// Timeout sets the worker timeout. It must be positive.
func (c *Configurator) Timeout(d time.Duration) error {
	return c.Set(string(KeyTimeout), d)
}

// WorkerProcesses sets the worker count. Zero is allowed.
func (c *Configurator) WorkerProcesses(n int) error {
	return c.Set(string(KeyWorkerProcesses), n)
}

// Listeners replaces the listener list.
func (c *Configurator) Listeners(addrs ...string) error {
	if addrs == nil {
		addrs = []string{}
	}
	return c.Set(string(KeyListeners), addrs)
}

// Listen appends one listener address.
func (c *Configurator) Listen(addr string) error {
	return c.Set(string(KeyListen), addr)
}

// PID sets the pid file path.
func (c *Configurator) PID(path string) error {
	return c.Set(string(KeyPID), path)
}

// StderrPath sets the file stderr is redirected to.
func (c *Configurator) StderrPath(path string) error {
	return c.Set(string(KeyStderrPath), path)
}

// StdoutPath sets the file stdout is redirected to.
func (c *Configurator) StdoutPath(path string) error {
	return c.Set(string(KeyStdoutPath), path)
}

// PreloadApp sets whether the application loads before forking.
func (c *Configurator) PreloadApp(preload bool) error {
	return c.Set(string(KeyPreloadApp), preload)
}

// Logger sets the server logger.
func (c *Configurator) Logger(l Logger) error {
	if l == nil {
		return c.Set(string(KeyLogger), nil)
	}
	return c.Set(string(KeyLogger), l)
}

// AfterFork sets the hook run in each worker after it is forked. nil
// restores DefaultAfterFork.
func (c *Configurator) AfterFork(h ForkHook) error {
	return c.Set(string(KeyAfterFork), h)
}

// BeforeFork sets the hook run in the master before each fork. nil
// restores DefaultBeforeFork.
func (c *Configurator) BeforeFork(h ForkHook) error {
	return c.Set(string(KeyBeforeFork), h)
}

// BeforeExec sets the hook run before re-executing. nil restores
// DefaultBeforeExec.
func (c *Configurator) BeforeExec(h ExecHook) error {
	return c.Set(string(KeyBeforeExec), h)
}
