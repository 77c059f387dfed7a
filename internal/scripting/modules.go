package scripting

import (
	"math"

	lua "github.com/yuin/gopher-lua"
)

// RegisterModules registers the rules.* helper table into L:
//
//	rules.floor_div(a, b)  floored integer division; b == 0 raises an error
//	rules.clamp(v, lo, hi) v limited to [lo, hi]
//
// Precondition: L must be from NewSandboxedState.
// Postcondition: rules global is defined in L.
func (m *Manager) RegisterModules(L *lua.LState) {
	rules := L.NewTable()
	L.SetField(rules, "floor_div", L.NewFunction(luaFloorDiv))
	L.SetField(rules, "clamp", L.NewFunction(luaClamp))
	L.SetGlobal("rules", rules)
}

func luaFloorDiv(L *lua.LState) int {
	a := float64(L.CheckNumber(1))
	b := float64(L.CheckNumber(2))
	if b == 0 {
		L.RaiseError("rules.floor_div: division by zero")
		return 0
	}
	L.Push(lua.LNumber(math.Floor(a / b)))
	return 1
}

func luaClamp(L *lua.LState) int {
	v := float64(L.CheckNumber(1))
	lo := float64(L.CheckNumber(2))
	hi := float64(L.CheckNumber(3))
	L.Push(lua.LNumber(math.Max(lo, math.Min(v, hi))))
	return 1
}
