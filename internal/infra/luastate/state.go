package luastate

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	lua "github.com/yuin/gopher-lua"
)

// DefaultExecutionTimeout bounds a single Exec or Call.
const DefaultExecutionTimeout = 5 * time.Second

// State is a sandboxed Lua runtime.
type State struct {
	L *lua.LState

	mu sync.Mutex

	executionTimeout time.Duration
	print            func(string)

	closed bool
}

// Option configures a State.
type Option func(*State)

// WithExecutionTimeout sets the deadline applied to each Exec and Call.
// A non-positive duration disables the deadline.
func WithExecutionTimeout(d time.Duration) Option {
	return func(s *State) {
		s.executionTimeout = d
	}
}

// WithPrint routes the Lua print function to fn, one call per print
// statement. Without it print output is dropped.
func WithPrint(fn func(string)) Option {
	return func(s *State) {
		s.print = fn
	}
}

// New creates a sandboxed Lua state.
func New(opts ...Option) *State {
	s := &State{
		executionTimeout: DefaultExecutionTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.L = lua.NewState(lua.Options{
		SkipOpenLibs: true,
	})
	openSafeLibraries(s.L)
	installSandbox(s.L, s.print)

	return s
}

// openSafeLibraries opens only the libraries a configuration script needs.
// io, os, debug, package, channel and coroutine stay closed.
func openSafeLibraries(L *lua.LState) {
	libs := []struct {
		name string
		fn   lua.LGFunction
	}{
		{lua.BaseLibName, lua.OpenBase},
		{lua.TabLibName, lua.OpenTable},
		{lua.StringLibName, lua.OpenString},
		{lua.MathLibName, lua.OpenMath},
	}
	for _, lib := range libs {
		L.Push(L.NewFunction(lib.fn))
		L.Push(lua.LString(lib.name))
		L.Call(1, 0)
	}
}

// Register binds a Go function to a global name.
func (s *State) Register(name string, fn lua.LGFunction) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.L.SetGlobal(name, s.L.NewFunction(fn))
}

// RegisterType creates a metatable for userdata values of the given type
// name, with methods reachable through the colon syntax.
func (s *State) RegisterType(typeName string, methods map[string]lua.LGFunction) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	mt := s.L.NewTypeMetatable(typeName)
	s.L.SetField(mt, "__index", s.L.SetFuncs(s.L.NewTable(), methods))
}

// OnUndefinedGlobal installs fn as the handler for reads of globals that
// were never assigned. fn usually raises a Lua error; if it returns, the
// read evaluates to nil. The globals metatable is protected so scripts
// cannot remove the handler.
func (s *State) OnUndefinedGlobal(fn func(L *lua.LState, name string)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	mt := s.L.NewTable()
	s.L.SetField(mt, "__index", s.L.NewFunction(func(L *lua.LState) int {
		fn(L, lua.LVAsString(L.Get(2)))
		L.Push(lua.LNil)
		return 1
	}))
	s.L.SetField(mt, "__metatable", lua.LString("protected"))
	s.L.SetMetatable(s.L.G.Global, mt)
}

// Global returns the raw value of a global, bypassing the undefined-global
// handler.
func (s *State) Global(name string) lua.LValue {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return lua.LNil
	}
	return s.L.G.Global.RawGetString(name)
}

// Exec compiles and runs src. name appears in error positions.
func (s *State) Exec(name string, src []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStateClosed
	}

	fn, err := s.L.Load(bytes.NewReader(src), name)
	if err != nil {
		return fmt.Errorf("compile %s: %w", name, err)
	}
	return s.protectedCall(fn, nil)
}

// Call invokes fn. args is evaluated with the state locked so it can
// allocate Lua values such as userdata.
func (s *State) Call(fn *lua.LFunction, args func(L *lua.LState) []lua.LValue) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStateClosed
	}

	var argv []lua.LValue
	if args != nil {
		argv = args(s.L)
	}
	return s.protectedCall(fn, argv)
}

// protectedCall runs fn with the execution deadline. Callers hold s.mu.
func (s *State) protectedCall(fn *lua.LFunction, args []lua.LValue) (err error) {
	ctx := context.Background()
	if s.executionTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.executionTimeout)
		defer cancel()
	}
	s.L.SetContext(ctx)
	defer s.L.RemoveContext()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("lua panic: %v", r)
		}
	}()

	err = s.L.CallByParam(lua.P{Fn: fn, NRet: 0, Protect: true}, args...)
	if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w after %s", ErrExecutionTimeout, s.executionTimeout)
	}
	return err
}

// IsClosed returns true if the state has been closed.
func (s *State) IsClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Close releases the Lua state. Later calls return ErrStateClosed.
func (s *State) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.L.Close()
	s.closed = true
	return nil
}
