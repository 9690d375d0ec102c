// Package luastate provides the sandboxed Lua runtime that executes
// configuration scripts.
//
// A State opens only the base, table, string and math libraries, removes
// every function that can load code from disk or from strings, and exposes
// no io, os, debug or package module. Callers register the functions that
// make up the script's vocabulary and may install a handler for reads of
// undefined globals, which turns typos into errors instead of nil values.
//
//	st := luastate.New(luastate.WithExecutionTimeout(2 * time.Second))
//	defer st.Close()
//
//	st.Register("worker_processes", func(L *lua.LState) int { ... })
//	if err := st.Exec("herdsman.conf.lua", src); err != nil {
//	    return err
//	}
//
// gopher-lua's LState is not goroutine-safe. Exec and Call serialize on the
// State's mutex, so functions captured by a script may be called later from
// other goroutines.
package luastate
