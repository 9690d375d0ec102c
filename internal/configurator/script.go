package configurator

import (
	"errors"
	"fmt"
	"strings"

	lua "github.com/yuin/gopher-lua"

	"github.com/yndnr/herdsman/internal/infra/luastate"
	"github.com/yndnr/herdsman/internal/telemetry/logger"
)

// serverTypeName is the metatable of the server handle passed to hooks.
const serverTypeName = "herdsman.server"

var errScriptFinished = errors.New("settings can only change while the configuration script runs")

// scriptBinding connects one script run to the Configurator.
type scriptBinding struct {
	c     *Configurator
	state *luastate.State

	// failure is the first setter error. It survives pcall.
	failure error
	// retained is set once a Lua function or table escapes into the
	// overlay; the state must then outlive the run.
	retained bool
	finished bool
}

// runScript executes src with every setting exposed as a global function.
func (c *Configurator) runScript(path string, src []byte) error {
	st := luastate.New(
		luastate.WithExecutionTimeout(c.scriptTimeout),
		luastate.WithPrint(func(line string) {
			c.log.Info("config script output", "config_file", path, "line", line)
		}),
	)
	b := &scriptBinding{c: c, state: st}

	st.RegisterType(serverTypeName, serverMethods)
	for _, key := range Keys() {
		st.Register(string(key), b.setter(key))
	}
	st.Register(string(KeyListen), b.setter(KeyListen))
	st.OnUndefinedGlobal(func(L *lua.LState, name string) {
		b.fail(L, &UnknownSettingError{Name: name})
	})

	err := st.Exec(path, src)
	b.finished = true
	if !b.retained {
		_ = st.Close()
	}

	if b.failure != nil {
		return fmt.Errorf("%s: %w", path, b.failure)
	}
	if err != nil {
		return fmt.Errorf("execute %s: %w", path, err)
	}
	return nil
}

func (b *scriptBinding) setter(key Key) lua.LGFunction {
	return func(L *lua.LState) int {
		if b.finished {
			L.RaiseError("%s: %v", key, errScriptFinished)
			return 0
		}
		v, err := b.args(L, key)
		if err == nil {
			err = b.c.Set(string(key), v)
		}
		if err != nil {
			b.fail(L, err)
		}
		return 0
	}
}

func (b *scriptBinding) fail(L *lua.LState, err error) {
	if b.failure == nil && !b.finished {
		b.failure = err
	}
	L.RaiseError("%s", err.Error())
}

// args converts the call arguments. listeners also takes its addresses as
// separate arguments; a call without arguments passes nil.
func (b *scriptBinding) args(L *lua.LState, key Key) (any, error) {
	n := L.GetTop()
	if key == KeyListeners && n > 1 {
		items := make([]any, n)
		for i := 1; i <= n; i++ {
			items[i-1] = b.value(L.Get(i))
		}
		return items, nil
	}
	switch n {
	case 0:
		return nil, nil
	case 1:
		return b.value(L.Get(1)), nil
	}
	return nil, invalid(key, nil, "takes one argument, got %d", n)
}

func (b *scriptBinding) value(lv lua.LValue) any {
	switch v := luastate.ToGoValue(lv).(type) {
	case *lua.LFunction:
		b.retained = true
		return &luaFunction{state: b.state, fn: v}
	case *lua.LTable:
		b.retained = true
		return &luaObject{state: b.state, table: v}
	default:
		return v
	}
}

// luaFunction is a script function given to a hook setting.
type luaFunction struct {
	state *luastate.State
	fn    *lua.LFunction
}

func (f *luaFunction) checkArity(key Key, want int) error {
	params, _ := luastate.Arity(f.fn)
	switch {
	case params < 0:
		return invalid(key, f, "builtin functions cannot be hooks")
	case params != want:
		return invalid(key, f, "arity %d, want %d", params, want)
	}
	return nil
}

func (f *luaFunction) forkHook() ForkHook {
	return func(srv Server, workerNr int) error {
		return f.state.Call(f.fn, func(L *lua.LState) []lua.LValue {
			return []lua.LValue{serverValue(L, srv), lua.LNumber(workerNr)}
		})
	}
}

func (f *luaFunction) execHook() ExecHook {
	return func(srv Server) error {
		return f.state.Call(f.fn, func(L *lua.LState) []lua.LValue {
			return []lua.LValue{serverValue(L, srv)}
		})
	}
}

func serverValue(L *lua.LState, srv Server) lua.LValue {
	ud := L.NewUserData()
	ud.Value = srv
	L.SetMetatable(ud, L.GetTypeMetatable(serverTypeName))
	return ud
}

// serverMethods are callable on the server handle, e.g. server:info("up").
var serverMethods = map[string]lua.LGFunction{
	"debug": serverLogMethod("debug"),
	"info":  serverLogMethod("info"),
	"warn":  serverLogMethod("warn"),
	"error": serverLogMethod("error"),
}

func serverLogMethod(level string) lua.LGFunction {
	return func(L *lua.LState) int {
		srv, _ := L.CheckUserData(1).Value.(Server)
		msg := L.CheckString(2)

		l := serverLogger(srv)
		// A script logger living in this state is already locked by the
		// running hook, so call it in place.
		if ll, ok := l.(*luaLogger); ok && ll.state.L == L {
			ll.callInline(L, level, msg)
			return 0
		}
		switch level {
		case "debug":
			l.Debug(msg)
		case "info":
			l.Info(msg)
		case "warn":
			l.Warn(msg)
		default:
			l.Error(msg)
		}
		return 0
	}
}

// luaObject is a script table given to the logger setting.
type luaObject struct {
	state *luastate.State
	table *lua.LTable
}

// asLogger looks up each capability as a method on the table. It runs
// while the script holds the state.
func (o *luaObject) asLogger() (Logger, []string) {
	fns := make(map[string]*lua.LFunction, len(loggerCapabilities))
	var missing []string
	for _, name := range loggerCapabilities {
		fn, ok := o.state.L.GetField(o.table, name).(*lua.LFunction)
		if !ok {
			missing = append(missing, name)
			continue
		}
		fns[name] = fn
	}
	if len(missing) > 0 {
		return nil, missing
	}
	return &luaLogger{state: o.state, self: o.table, fns: fns}, nil
}

// luaLogger forwards log lines to a script table's methods. Each method
// receives the table and one formatted line.
type luaLogger struct {
	state *luastate.State
	self  *lua.LTable
	fns   map[string]*lua.LFunction
}

func (l *luaLogger) Debug(msg string, args ...any) { l.log("debug", msg, args) }
func (l *luaLogger) Info(msg string, args ...any)  { l.log("info", msg, args) }
func (l *luaLogger) Warn(msg string, args ...any)  { l.log("warn", msg, args) }
func (l *luaLogger) Error(msg string, args ...any) { l.log("error", msg, args) }
func (l *luaLogger) Fatal(msg string, args ...any) { l.log("fatal", msg, args) }

func (l *luaLogger) Close() error {
	return l.state.Call(l.fns["close"], func(*lua.LState) []lua.LValue {
		return []lua.LValue{l.self}
	})
}

func (l *luaLogger) log(method, msg string, args []any) {
	line := formatLine(msg, args)
	err := l.state.Call(l.fns[method], func(*lua.LState) []lua.LValue {
		return []lua.LValue{l.self, lua.LString(line)}
	})
	if err != nil {
		logger.Warn("script logger failed", "method", method, "error", err)
	}
}

func (l *luaLogger) callInline(L *lua.LState, method, msg string) {
	L.Push(l.fns[method])
	L.Push(l.self)
	L.Push(lua.LString(msg))
	L.Call(2, 0)
}

// formatLine renders msg followed by key=value pairs.
func formatLine(msg string, args []any) string {
	if len(args) == 0 {
		return msg
	}
	var sb strings.Builder
	sb.WriteString(msg)
	for i := 0; i < len(args); i += 2 {
		sb.WriteByte(' ')
		if i+1 < len(args) {
			fmt.Fprintf(&sb, "%v=%v", args[i], args[i+1])
		} else {
			fmt.Fprintf(&sb, "%v", args[i])
		}
	}
	return sb.String()
}
