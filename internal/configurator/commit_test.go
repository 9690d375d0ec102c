package configurator

import (
	"errors"
	"reflect"
	"testing"
	"time"
)

// rawTarget implements only ApplyRaw.
type rawTarget struct {
	applied []Key
	values  map[Key]any
	failOn  Key
}

func (t *rawTarget) ApplyRaw(key Key, value any) error {
	if key == t.failOn {
		return errRejected
	}
	if t.values == nil {
		t.values = make(map[Key]any)
	}
	t.applied = append(t.applied, key)
	t.values[key] = value
	return nil
}

var errRejected = errors.New("rejected")

// typedTarget adds typed setters for timeout, listeners and pid.
type typedTarget struct {
	rawTarget
	timeout   time.Duration
	listeners []string
	pid       string
	pidSet    bool
}

func (t *typedTarget) SetTimeout(d time.Duration) error {
	t.timeout = d
	return nil
}

func (t *typedTarget) SetListeners(addrs []string) error {
	t.listeners = addrs
	return nil
}

func (t *typedTarget) SetPID(path string) error {
	t.pid = path
	t.pidSet = true
	return nil
}

func TestCommit_TypedSetter(t *testing.T) {
	c, err := New(map[string]any{"timeout": 30})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	target := &typedTarget{}
	if err := c.Commit(target); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}
	if target.timeout != 30*time.Second {
		t.Errorf("timeout = %v, want 30s", target.timeout)
	}
	if len(target.applied) != 0 {
		t.Errorf("ApplyRaw called for %v", target.applied)
	}
}

func TestCommit_RawFallbackInOrder(t *testing.T) {
	c := newEmpty(t)
	for _, step := range []func() error{
		func() error { return c.WorkerProcesses(3) },
		func() error { return c.Backlog(10) },
		func() error { return c.PreloadApp(false) },
		func() error { return c.WorkerProcesses(4) },
	} {
		if err := step(); err != nil {
			t.Fatalf("setter error = %v", err)
		}
	}

	target := &rawTarget{}
	if err := c.Commit(target); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}
	want := []Key{KeyWorkerProcesses, KeyBacklog, KeyPreloadApp}
	if !reflect.DeepEqual(target.applied, want) {
		t.Errorf("applied = %v, want %v", target.applied, want)
	}
	if target.values[KeyWorkerProcesses] != 4 {
		t.Errorf("worker_processes = %v, want 4", target.values[KeyWorkerProcesses])
	}
	if target.values[KeyPreloadApp] != false {
		t.Errorf("preload_app = %v, want false", target.values[KeyPreloadApp])
	}
}

func TestCommit_Skip(t *testing.T) {
	c, err := New(map[string]any{"timeout": 30, "backlog": 5})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	target := &typedTarget{}
	if err := c.Commit(target, KeyTimeout); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}
	if target.timeout != 0 {
		t.Errorf("timeout written despite skip: %v", target.timeout)
	}
	if !reflect.DeepEqual(target.applied, []Key{KeyBacklog}) {
		t.Errorf("applied = %v, want [backlog]", target.applied)
	}
}

func TestCommit_NilPathAndListenersCopy(t *testing.T) {
	c := newEmpty(t)
	if err := c.Set("pid", nil); err != nil {
		t.Fatalf("Set(pid) error = %v", err)
	}
	if err := c.Listeners("a", "b"); err != nil {
		t.Fatalf("Listeners() error = %v", err)
	}

	target := &typedTarget{}
	if err := c.Commit(target); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}
	if !target.pidSet || target.pid != "" {
		t.Errorf("pid = %q (set %v), want empty", target.pid, target.pidSet)
	}
	target.listeners[0] = "changed"
	if got := c.Get(KeyListeners).([]string); got[0] != "a" {
		t.Errorf("target aliased overlay listeners: %v", got)
	}
}

func TestCommit_StopsOnError(t *testing.T) {
	c := newEmpty(t)
	_ = c.Backlog(1)
	_ = c.WorkerProcesses(2)
	_ = c.PreloadApp(true)

	target := &rawTarget{failOn: KeyWorkerProcesses}
	err := c.Commit(target)
	if err != errRejected {
		t.Errorf("Commit() error = %v, want target error unwrapped", err)
	}
	if !reflect.DeepEqual(target.applied, []Key{KeyBacklog}) {
		t.Errorf("applied = %v, want [backlog]", target.applied)
	}
}

func TestCommit_Defaults(t *testing.T) {
	c, err := New(map[string]any{OptionUseDefaults: true})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	target := &rawTarget{}
	if err := c.Commit(target, KeyListeners, KeyPID); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}
	if len(target.applied) != len(Keys())-2 {
		t.Errorf("applied %d settings, want %d", len(target.applied), len(Keys())-2)
	}
	if _, ok := target.values[KeyAfterFork].(ForkHook); !ok {
		t.Errorf("after_fork = %T, want ForkHook", target.values[KeyAfterFork])
	}
}
