package luastate

import (
	"strings"

	lua "github.com/yuin/gopher-lua"
)

// removedGlobals are base library functions that load code, reach into
// other environments or expose interpreter internals.
var removedGlobals = []string{
	"dofile",
	"loadfile",
	"load",
	"loadstring",
	"require",
	"module",
	"getfenv",
	"setfenv",
	"collectgarbage",
	"newproxy",
	"_printregs",
}

// installSandbox strips the base library down and replaces print.
func installSandbox(L *lua.LState, print func(string)) {
	for _, name := range removedGlobals {
		L.SetGlobal(name, lua.LNil)
	}

	L.SetGlobal("print", L.NewFunction(func(L *lua.LState) int {
		if print == nil {
			return 0
		}
		top := L.GetTop()
		parts := make([]string, 0, top)
		for i := 1; i <= top; i++ {
			parts = append(parts, L.ToStringMeta(L.Get(i)).String())
		}
		print(strings.Join(parts, "\t"))
		return 0
	}))
}
