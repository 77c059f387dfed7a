package testutil

import (
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/cory-johannsen/dicebot/internal/config"
	"github.com/cory-johannsen/dicebot/internal/game/breakdown"
	"github.com/cory-johannsen/dicebot/internal/game/dice"
	"github.com/cory-johannsen/dicebot/internal/game/engine"
)

// EngineConfig returns the default engine settings used by tests.
func EngineConfig() config.EngineConfig {
	lim := dice.DefaultLimits()
	return config.EngineConfig{
		MaxLength:      100,
		MaxDiceTerms:   10,
		MaxOperators:   15,
		MaxDicePerTerm: lim.MaxDicePerTerm,
		MaxFaces:       lim.MaxFaces,
		MaxExplosions:  lim.MaxExplosions,
		MaxTotalDice:   lim.MaxTotalDice,
		FastPathLength: lim.FastPathLength,
		FastPathStars:  lim.FastPathStars,
		FastPathPluses: lim.FastPathPluses,
		MaxRepeat:      20,
		Workers:        4,
		EvalTimeout:    2 * time.Second,
	}
}

// TestEngine bundles an engine with the logs it produced.
type TestEngine struct {
	*engine.Engine
	Logs *observer.ObservedLogs
}

// NewEngine builds an English-labelled engine over src with a debug-level
// observed logger.
//
// Postcondition: Returns a ready engine; every log entry is captured in Logs.
func NewEngine(t testing.TB, src dice.Source) *TestEngine {
	t.Helper()
	return NewEngineWithConfig(t, src, EngineConfig())
}

// NewEngineWithConfig is NewEngine with explicit engine settings.
func NewEngineWithConfig(t testing.TB, src dice.Source, cfg config.EngineConfig) *TestEngine {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	logger := zap.New(core)
	roller := dice.NewLoggedRoller(src, logger)
	return &TestEngine{
		Engine: engine.New(roller, cfg, breakdown.English(), logger),
		Logs:   logs,
	}
}
