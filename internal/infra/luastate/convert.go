package luastate

import (
	"math"

	lua "github.com/yuin/gopher-lua"
)

// ToGoValue converts a Lua value into the Go form configuration setters
// accept:
//
//   - nil, booleans and strings map directly
//   - integral numbers become int, others float64
//   - sequences (including the empty table) become []any
//   - tables with a metatable, other tables and functions are returned as
//     *lua.LTable and *lua.LFunction so callers can probe or call them later
//   - userdata yields its Go value
func ToGoValue(lv lua.LValue) any {
	switch v := lv.(type) {
	case nil:
		return nil
	case *lua.LNilType:
		return nil
	case lua.LBool:
		return bool(v)
	case lua.LNumber:
		f := float64(v)
		if f == math.Trunc(f) && f >= math.MinInt64 && f < math.MaxInt64 {
			return int(f)
		}
		return f
	case lua.LString:
		return string(v)
	case *lua.LTable:
		if hasMetatable(v) {
			return v
		}
		if items, ok := sequence(v); ok {
			return items
		}
		return v
	case *lua.LUserData:
		return v.Value
	default:
		return v
	}
}

// hasMetatable reports whether t may answer lookups through __index.
func hasMetatable(t *lua.LTable) bool {
	return t.Metatable != nil && t.Metatable != lua.LNil
}

// sequence returns the elements of t when t has exactly the keys 1..n.
func sequence(t *lua.LTable) ([]any, bool) {
	n := t.Len()
	count := 0
	t.ForEach(func(_, _ lua.LValue) {
		count++
	})
	if count != n {
		return nil, false
	}
	items := make([]any, n)
	for i := 1; i <= n; i++ {
		items[i-1] = ToGoValue(t.RawGetInt(i))
	}
	return items, true
}

// Arity reports the declared parameter count of a Lua function and whether
// it also accepts varargs. Go functions report -1.
func Arity(fn *lua.LFunction) (params int, variadic bool) {
	if fn == nil || fn.IsG || fn.Proto == nil {
		return -1, false
	}
	return int(fn.Proto.NumParameters), fn.Proto.IsVarArg != 0
}
