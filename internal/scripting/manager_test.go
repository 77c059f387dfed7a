package scripting_test

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/dicebot/internal/scripting"
)

func newTestManager(t testing.TB, instLimit int) (*scripting.Manager, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zap.DebugLevel)
	mgr := scripting.NewManager(zap.New(core), instLimit)
	t.Cleanup(mgr.Close)
	return mgr, logs
}

func writeTempLua(t testing.TB, filename, src string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), filename)
	require.NoError(t, os.WriteFile(path, []byte(src), 0644))
	return path
}

func TestManager_LoadFormula_Modifier(t *testing.T) {
	mgr, _ := newTestManager(t, 0)
	require.NoError(t, mgr.LoadFormula("gurps", "return math.floor(score / 3)"))
	assert.True(t, mgr.Has("gurps"))

	mod, err := mgr.Modifier("gurps", 14)
	require.NoError(t, err)
	assert.Equal(t, 4, mod)
}

func TestManager_Modifier_FloorsFractions(t *testing.T) {
	mgr, _ := newTestManager(t, 0)
	require.NoError(t, mgr.LoadFormula("half", "return (score - 10) / 2"))
	mod, err := mgr.Modifier("half", 9)
	require.NoError(t, err)
	assert.Equal(t, -1, mod)
}

func TestManager_LoadFile_CallsHook(t *testing.T) {
	mgr, _ := newTestManager(t, 0)
	path := writeTempLua(t, "fate.lua", `
		function modifier(score)
			return rules.clamp(score - 2, -2, 4)
		end
	`)
	require.NoError(t, mgr.LoadFile("fate", path))
	mod, err := mgr.Modifier("fate", 9)
	require.NoError(t, err)
	assert.Equal(t, 4, mod)
}

func TestManager_CallHook_MissingHook_NoOp(t *testing.T) {
	mgr, _ := newTestManager(t, 0)
	require.NoError(t, mgr.LoadFormula("sys", "return score"))
	ret, err := mgr.CallHook("sys", "nonexistent_hook")
	require.NoError(t, err)
	assert.Equal(t, lua.LNil, ret)
}

func TestManager_CallHook_UnknownSystem(t *testing.T) {
	mgr, _ := newTestManager(t, 0)
	_, err := mgr.CallHook("no_such_system", "modifier")
	assert.True(t, errors.Is(err, scripting.ErrNoScript))
}

func TestManager_CallHook_RuntimeError_WarnLog(t *testing.T) {
	mgr, logs := newTestManager(t, 0)
	require.NoError(t, mgr.LoadFormula("bad", `error("intentional error")`))
	_, err := mgr.Modifier("bad", 10)
	assert.Error(t, err)
	assert.Equal(t, 1, logs.FilterLevelExact(zap.WarnLevel).Len())
}

func TestManager_Modifier_NonNumberIsError(t *testing.T) {
	mgr, _ := newTestManager(t, 0)
	require.NoError(t, mgr.LoadFormula("str", `return "high"`))
	_, err := mgr.Modifier("str", 10)
	assert.Error(t, err)
}

func TestManager_Modifier_RunawayFormulaStopped(t *testing.T) {
	mgr, _ := newTestManager(t, 100)
	require.NoError(t, mgr.LoadFormula("loop", "while true do end"))
	_, err := mgr.Modifier("loop", 10)
	assert.Error(t, err)

	// a later call gets a fresh budget
	require.NoError(t, mgr.LoadFormula("loop", "return score"))
	mod, err := mgr.Modifier("loop", 10)
	require.NoError(t, err)
	assert.Equal(t, 10, mod)
}

func TestManager_FloorDivByZero(t *testing.T) {
	mgr, _ := newTestManager(t, 0)
	require.NoError(t, mgr.LoadFormula("zero", "return rules.floor_div(score, 0)"))
	_, err := mgr.Modifier("zero", 10)
	assert.Error(t, err)
}

func TestManager_LoadFormula_InvalidLua_ReturnsError(t *testing.T) {
	mgr, _ := newTestManager(t, 0)
	err := mgr.LoadFormula("broken", `this is not valid lua @@@@`)
	assert.Error(t, err)
	assert.False(t, mgr.Has("broken"))
}

func TestManager_Close_ReleasesSystems(t *testing.T) {
	mgr, _ := newTestManager(t, 0)
	require.NoError(t, mgr.LoadFormula("sys", "return score"))
	mgr.Close()
	assert.False(t, mgr.Has("sys"))
	_, err := mgr.Modifier("sys", 10)
	assert.True(t, errors.Is(err, scripting.ErrNoScript))
}

func TestNewManager_PanicsOnNilLogger(t *testing.T) {
	assert.Panics(t, func() {
		scripting.NewManager(nil, 0)
	})
}

func TestProperty_FloorDivMatchesDndRule(t *testing.T) {
	mgr, _ := newTestManager(t, 0)
	require.NoError(t, mgr.LoadFormula("dnd", "return rules.floor_div(score - 10, 2)"))
	rapid.Check(t, func(rt *rapid.T) {
		score := rapid.IntRange(-30, 60).Draw(rt, "score")
		mod, err := mgr.Modifier("dnd", score)
		if err != nil {
			rt.Fatalf("modifier(%d): %v", score, err)
		}
		want := (score - 10) / 2
		if (score-10)%2 != 0 && score < 10 {
			want--
		}
		if mod != want {
			rt.Fatalf("modifier(%d) = %d, want %d", score, mod, want)
		}
	})
}

func TestProperty_ConcurrentModifierCalls_NoRace(t *testing.T) {
	mgr, _ := newTestManager(t, 0)
	require.NoError(t, mgr.LoadFormula("conc", "return score + 1"))

	const goroutines = 10
	const callsEach = 5
	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < callsEach; j++ {
				mod, err := mgr.Modifier("conc", 2)
				assert.NoError(t, err)
				assert.Equal(t, 3, mod)
			}
		}()
	}
	wg.Wait()
}
