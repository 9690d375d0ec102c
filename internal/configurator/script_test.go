package configurator

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	lua "github.com/yuin/gopher-lua"

	"github.com/yndnr/herdsman/internal/infra/luastate"
)

func writeScript(t *testing.T, path, src string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatalf("write script: %v", err)
	}
}

func newFromScript(t *testing.T, src string, opts ...Option) (*Configurator, string, error) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "herdsman.lua")
	writeScript(t, path, src)
	c, err := New(map[string]any{OptionConfigFile: path}, opts...)
	return c, path, err
}

func TestScript_Settings(t *testing.T) {
	src := `
		worker_processes(4)
		timeout(30)
		listen("0.0.0.0:8080")
		listen("unix:/tmp/app.sock")
		preload_app(true)
		backlog(2048)
		stdout_path(nil)
	`
	c, path, err := newFromScript(t, src)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if c.ConfigFile() != path {
		t.Errorf("ConfigFile() = %q, want %q", c.ConfigFile(), path)
	}
	want := []Key{KeyWorkerProcesses, KeyTimeout, KeyListeners, KeyPreloadApp, KeyBacklog, KeyStdoutPath}
	if !reflect.DeepEqual(c.Names(), want) {
		t.Errorf("Names() = %v, want %v", c.Names(), want)
	}
	if got := c.Get(KeyWorkerProcesses); got != 4 {
		t.Errorf("worker_processes = %v, want 4", got)
	}
	if got := c.Get(KeyTimeout); got != 30*time.Second {
		t.Errorf("timeout = %v, want 30s", got)
	}
	if got := c.Get(KeyListeners); !reflect.DeepEqual(got, []string{"0.0.0.0:8080", "unix:/tmp/app.sock"}) {
		t.Errorf("listeners = %v", got)
	}
	if got := c.Get(KeyPreloadApp); got != true {
		t.Errorf("preload_app = %v, want true", got)
	}
}

func TestScript_ListenersForms(t *testing.T) {
	tests := []struct {
		src  string
		want []string
	}{
		{`listeners("a")`, []string{"a"}},
		{`listeners("a", "b")`, []string{"a", "b"}},
		{`listeners({"a", "b"})`, []string{"a", "b"}},
		{`listeners({})`, []string{}},
		{`listeners(8080)`, []string{"8080"}},
		{`listen(8080) listen("b")`, []string{"8080", "b"}},
	}

	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			c, _, err := newFromScript(t, tt.src)
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}
			if got := c.Get(KeyListeners); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("listeners = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestScript_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want error
	}{
		{"unknown setting", `worker_procesess(4)`, ErrUnknownSetting},
		{"invalid value", `timeout(0)`, ErrInvalidValue},
		{"float backlog", `backlog(1.5)`, ErrInvalidValue},
		{"sub-nanosecond timeout", `timeout(1e-10)`, ErrInvalidValue},
		{"too many arguments", `backlog(1, 2)`, ErrInvalidValue},
		{"pcall does not hide failures", `local ok = pcall(timeout, -1) backlog(5)`, ErrInvalidValue},
		{"hook arity", `after_fork(function(server) end)`, ErrInvalidValue},
		{"builtin as hook", `before_exec(print)`, ErrInvalidValue},
		{"incomplete logger", `logger({ debug = function() end })`, ErrInvalidValue},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, path, err := newFromScript(t, tt.src)
			if !errors.Is(err, tt.want) {
				t.Fatalf("New() error = %v, want %v", err, tt.want)
			}
			if !strings.Contains(err.Error(), path) {
				t.Errorf("error %q does not name the script", err)
			}
		})
	}
}

func TestScript_SyntaxError(t *testing.T) {
	_, path, err := newFromScript(t, `worker_processes(`)
	if err == nil {
		t.Fatal("New() should fail on a syntax error")
	}
	if !strings.Contains(err.Error(), path) {
		t.Errorf("error %q does not name the script", err)
	}
}

func TestScript_Sandboxed(t *testing.T) {
	for _, src := range []string{
		`os.exit(1)`,
		`io.write("x")`,
		`require("os")`,
		`dofile("/etc/passwd")`,
	} {
		if _, _, err := newFromScript(t, src); err == nil {
			t.Errorf("script %q should fail", src)
		}
	}
}

func TestScript_Timeout(t *testing.T) {
	_, _, err := newFromScript(t, `while true do end`, WithScriptTimeout(50*time.Millisecond))
	if !errors.Is(err, luastate.ErrExecutionTimeout) {
		t.Errorf("New() error = %v, want ErrExecutionTimeout", err)
	}
}

func TestScript_PrintGoesToLogger(t *testing.T) {
	l := &fakeLogger{}
	if _, _, err := newFromScript(t, `print("hello")`, WithLogger(l)); err != nil {
		t.Fatalf("New() error = %v", err)
	}
	found := false
	for _, line := range l.lines {
		if line == "info config script output" {
			found = true
		}
	}
	if !found {
		t.Errorf("lines = %v, want script output", l.lines)
	}
}

func TestReload_Accumulates(t *testing.T) {
	c, path, err := newFromScript(t, `backlog(5) worker_processes(2)`)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	writeScript(t, path, `worker_processes(3)`)
	if err := c.Reload(); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}
	if got := c.Get(KeyBacklog); got != 5 {
		t.Errorf("backlog = %v, want 5 kept from first run", got)
	}
	if got := c.Get(KeyWorkerProcesses); got != 3 {
		t.Errorf("worker_processes = %v, want 3", got)
	}
}

func TestReload_PartialApplication(t *testing.T) {
	c, path, err := newFromScript(t, `backlog(5)`)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	writeScript(t, path, `backlog(7) timeout(0) worker_processes(9)`)
	if err := c.Reload(); !errors.Is(err, ErrInvalidValue) {
		t.Fatalf("Reload() error = %v, want ErrInvalidValue", err)
	}
	if got := c.Get(KeyBacklog); got != 7 {
		t.Errorf("backlog = %v, want 7 applied before the failure", got)
	}
	if !IsUnset(c.Get(KeyWorkerProcesses)) {
		t.Errorf("worker_processes = %v, want Unset", c.Get(KeyWorkerProcesses))
	}
}

func TestReload_NoConfigFile(t *testing.T) {
	c := newEmpty(t)
	if err := c.Reload(); err != nil {
		t.Errorf("Reload() error = %v", err)
	}
}

func TestScript_ForkHook(t *testing.T) {
	src := `
		after_fork(function(server, worker_nr)
			server:info("worker " .. worker_nr .. " ready")
		end)
		before_exec(function(server)
			server:warn("exec")
		end)
		before_fork(nil)
	`
	c, _, err := newFromScript(t, src)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	l := &fakeLogger{}
	srv := &fakeServer{log: l}
	if err := c.Get(KeyAfterFork).(ForkHook)(srv, 3); err != nil {
		t.Fatalf("after_fork hook error = %v", err)
	}
	if err := c.Get(KeyBeforeExec).(ExecHook)(srv); err != nil {
		t.Fatalf("before_exec hook error = %v", err)
	}
	if err := c.Get(KeyBeforeFork).(ForkHook)(srv, 1); err != nil {
		t.Fatalf("default before_fork error = %v", err)
	}

	want := []string{"info worker 3 ready", "warn exec"}
	if !reflect.DeepEqual(l.lines, want) {
		t.Errorf("lines = %v, want %v", l.lines, want)
	}
}

func TestScript_HookCannotChangeSettings(t *testing.T) {
	c, _, err := newFromScript(t, `
		worker_processes(1)
		after_fork(function(server, nr) worker_processes(9) end)
	`)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if err := c.Get(KeyAfterFork).(ForkHook)(&fakeServer{}, 0); err == nil {
		t.Error("hook calling a setter should fail")
	}
	if got := c.Get(KeyWorkerProcesses); got != 1 {
		t.Errorf("worker_processes = %v, want 1", got)
	}
}

func TestScript_Logger(t *testing.T) {
	src := `
		local log = {}
		function log:debug(line) last = "debug " .. line end
		function log:info(line) last = "info " .. line end
		function log:warn(line) last = "warn " .. line end
		function log:error(line) last = "error " .. line end
		function log:fatal(line) last = "fatal " .. line end
		function log:close() closed = true end
		logger(log)
	`
	c, _, err := newFromScript(t, src)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	l, ok := c.Get(KeyLogger).(*luaLogger)
	if !ok {
		t.Fatalf("logger = %T, want script logger", c.Get(KeyLogger))
	}
	l.Info("listening", "addr", ":8080")
	if got := l.state.Global("last").String(); got != "info listening addr=:8080" {
		t.Errorf("last = %q", got)
	}
	l.Fatal("boom")
	if got := l.state.Global("last").String(); got != "fatal boom" {
		t.Errorf("last = %q", got)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if l.state.Global("closed") != lua.LTrue {
		t.Error("close method not called")
	}

	// A hook logging through a server whose logger lives in the same state.
	writeHook := `after_fork(function(server, nr) server:error("from hook") end)`
	path := c.ConfigFile()
	writeScript(t, path, src+writeHook)
	if err := c.Reload(); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}
	hookLogger := c.Get(KeyLogger).(*luaLogger)
	if err := c.Get(KeyAfterFork).(ForkHook)(&fakeServer{log: hookLogger}, 0); err != nil {
		t.Fatalf("hook error = %v", err)
	}
	if got := hookLogger.state.Global("last").String(); got != "error from hook" {
		t.Errorf("last = %q, want error from hook", got)
	}
}

func TestScript_LoggerThroughMetatable(t *testing.T) {
	src := `
		local proto = {}
		function proto:debug(line) last = "debug " .. line end
		function proto:info(line) last = "info " .. line end
		function proto:warn(line) last = "warn " .. line end
		function proto:error(line) last = "error " .. line end
		function proto:fatal(line) last = "fatal " .. line end
		function proto:close() end
		logger(setmetatable({}, {__index = proto}))
	`
	c, _, err := newFromScript(t, src)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	l, ok := c.Get(KeyLogger).(*luaLogger)
	if !ok {
		t.Fatalf("logger = %T, want script logger", c.Get(KeyLogger))
	}
	l.Warn("slow start")
	if got := l.state.Global("last").String(); got != "warn slow start" {
		t.Errorf("last = %q", got)
	}
}

func TestScript_IncompleteLoggerNamesMissing(t *testing.T) {
	_, _, err := newFromScript(t, `
		local log = {}
		function log:debug(line) end
		function log:info(line) end
		function log:warn(line) end
		function log:error(line) end
		function log:close() end
		logger(log)
	`)
	var invalid *InvalidValueError
	if !errors.As(err, &invalid) {
		t.Fatalf("New() error = %v, want *InvalidValueError", err)
	}
	if invalid.Reason != "does not respond to fatal" {
		t.Errorf("Reason = %q", invalid.Reason)
	}
}
