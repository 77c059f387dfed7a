package scripting

import (
	"errors"
	"fmt"
	"math"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// ModifierHook is the Lua global a system script defines to map an attribute
// score to its roll modifier.
const ModifierHook = "modifier"

// ErrNoScript is returned when no VM is loaded for a key.
var ErrNoScript = errors.New("scripting: no script loaded")

type vm struct {
	mu sync.Mutex
	L  *lua.LState
}

// Manager owns one sandboxed LState per rule system and exposes hook dispatch.
//
// Manager is safe for concurrent use. Each LState is single-threaded; calls
// to the same system are serialized while different systems run concurrently.
type Manager struct {
	mu        sync.RWMutex
	vms       map[string]*vm
	instLimit int
	logger    *zap.Logger
}

// NewManager creates a Manager whose calls each run under instLimit opcodes.
//
// Precondition: logger must be non-nil; instLimit >= 0 (0 uses DefaultInstructionLimit).
// Postcondition: Returns a non-nil Manager with no systems loaded.
func NewManager(logger *zap.Logger, instLimit int) *Manager {
	if logger == nil {
		panic("scripting.NewManager: logger must not be nil")
	}
	return &Manager{
		vms:       make(map[string]*vm),
		instLimit: instLimit,
		logger:    logger,
	}
}

// LoadFormula compiles the body of a modifier formula for key. The body sees
// the attribute score as `score` and must return a number, e.g.
// "return math.floor(score / 3)".
//
// Precondition: key must be non-empty.
// Postcondition: key's VM defines ModifierHook; returns an error on Lua load failure.
func (m *Manager) LoadFormula(key, body string) error {
	src := "function " + ModifierHook + "(score)\n" + body + "\nend"
	return m.load(key, func(L *lua.LState) error { return L.DoString(src) })
}

// LoadFile executes the Lua file at path in a fresh VM for key. The file is
// expected to define ModifierHook.
//
// Precondition: key must be non-empty; path must be readable.
// Postcondition: key's VM is registered; returns an error on Lua load failure.
func (m *Manager) LoadFile(key, path string) error {
	return m.load(key, func(L *lua.LState) error { return L.DoFile(path) })
}

func (m *Manager) load(key string, run func(*lua.LState) error) error {
	L, cancel := NewSandboxedState(m.instLimit)
	defer cancel()
	m.RegisterModules(L)

	if err := run(L); err != nil {
		L.Close()
		return fmt.Errorf("scripting: loading %q: %w", key, err)
	}

	m.mu.Lock()
	if old, ok := m.vms[key]; ok {
		old.mu.Lock()
		old.L.Close()
		old.mu.Unlock()
	}
	m.vms[key] = &vm{L: L}
	m.mu.Unlock()
	return nil
}

// Has reports whether a VM is loaded for key.
func (m *Manager) Has(key string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.vms[key]
	return ok
}

// CallHook calls the named Lua global function in key's VM under a fresh
// instruction budget. Lua runtime errors are logged at Warn level and returned.
//
// Precondition: args must be valid lua.LValue instances.
// Postcondition: Returns the first return value of the hook, (LNil, nil) when
// the hook is undefined, or ErrNoScript when key has no VM.
func (m *Manager) CallHook(key, hook string, args ...lua.LValue) (lua.LValue, error) {
	m.mu.RLock()
	v, ok := m.vms[key]
	m.mu.RUnlock()
	if !ok {
		return lua.LNil, fmt.Errorf("%w for %q", ErrNoScript, key)
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	fn := v.L.GetGlobal(hook)
	if fn == lua.LNil {
		return lua.LNil, nil
	}

	cancel := Rearm(v.L, m.instLimit)
	defer cancel()
	if err := v.L.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, args...); err != nil {
		m.logger.Warn("scripting: Lua runtime error",
			zap.String("system", key),
			zap.String("hook", hook),
			zap.Error(err),
		)
		return lua.LNil, fmt.Errorf("scripting: calling %s for %q: %w", hook, key, err)
	}

	ret := v.L.Get(-1)
	v.L.Pop(1)
	return ret, nil
}

// Modifier evaluates key's ModifierHook for score.
//
// Postcondition: Returns the floored numeric result, or an error when the
// hook is missing, fails, or returns a non-number.
func (m *Manager) Modifier(key string, score int) (int, error) {
	ret, err := m.CallHook(key, ModifierHook, lua.LNumber(score))
	if err != nil {
		return 0, err
	}
	n, ok := ret.(lua.LNumber)
	if !ok {
		return 0, fmt.Errorf("scripting: %s for %q returned %s, want number", ModifierHook, key, ret.Type())
	}
	f := float64(n)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("scripting: %s for %q returned %v", ModifierHook, key, f)
	}
	return int(math.Floor(f)), nil
}

// Close releases every VM. The Manager may be reloaded afterwards.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key, v := range m.vms {
		v.mu.Lock()
		v.L.Close()
		v.mu.Unlock()
		delete(m.vms, key)
	}
}
