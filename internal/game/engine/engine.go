// Package engine is the roll entry point. It routes an expression through the
// normalizer and evaluator and, when that fails or the expression is too
// costly, through an ordered chain of cheaper fallback tiers. A caller always
// receives a displayable total and text.
package engine

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/cory-johannsen/dicebot/internal/config"
	"github.com/cory-johannsen/dicebot/internal/game/breakdown"
	"github.com/cory-johannsen/dicebot/internal/game/dice"
)

// Tier names reported in Outcome.Tier.
const (
	TierDirect   = "direct"
	TierSpecial  = "special"
	TierMinimal  = "minimal"
	TierTokens   = "tokens"
	TierEstimate = "estimate"
	TierFailed   = "failed"
)

// ErrTimeout is returned when an evaluation exceeds the wall-clock guard.
var ErrTimeout = errors.New("engine: evaluation timed out")

var (
	reDiceTerm  = regexp.MustCompile(`(\d*)[dD](\d+)`)
	reOperators = regexp.MustCompile(`[+\-*/]`)
)

// Outcome is the result of one roll request.
type Outcome struct {
	Total      int
	Text       string
	Tier       string
	Expression string           // canonical expression, when one was evaluated
	Result     *dice.RollResult // nil for text-only tiers
	Hint       breakdown.Hint
	Parts      []Outcome // one entry per repetition of "N#expr"
}

// Engine evaluates dice expressions with bounded cost.
//
// Engine holds no per-call state and is safe for concurrent use.
type Engine struct {
	roller *dice.Roller
	cfg    config.EngineConfig
	labels breakdown.Labels
	logger *zap.Logger
	pool   *semaphore.Weighted
}

// New creates an Engine.
//
// Precondition: roller and logger must be non-nil; cfg must have passed Validate.
// Postcondition: Returns a non-nil Engine whose roller parses with cfg.Limits().
func New(roller *dice.Roller, cfg config.EngineConfig, labels breakdown.Labels, logger *zap.Logger) *Engine {
	return &Engine{
		roller: roller.WithLimits(cfg.Limits()),
		cfg:    cfg,
		labels: labels,
		logger: logger,
		pool:   semaphore.NewWeighted(int64(cfg.Workers)),
	}
}

// Labels returns the labels the engine renders with.
func (e *Engine) Labels() breakdown.Labels { return e.labels }

// Source returns the dice source backing the engine.
func (e *Engine) Source() dice.Source { return e.roller.Source() }

// RollDice evaluates expr and returns its total and breakdown text.
//
// Postcondition: never panics; the worst case is an estimate or the
// localized failure string with total 0.
func (e *Engine) RollDice(ctx context.Context, expr string) (int, string) {
	o := e.Roll(ctx, expr)
	return o.Total, o.Text
}

// Roll evaluates expr and returns the full Outcome.
//
// Postcondition: never panics; Outcome.Tier names the path that produced it.
func (e *Engine) Roll(ctx context.Context, expr string) (out Outcome) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("roll failed catastrophically",
				zap.String("expression", expr),
				zap.Any("panic", r),
			)
			out = Outcome{Text: e.labels.Failed, Tier: TierFailed}
		}
	}()

	raw := strings.TrimSpace(expr)
	if o, ok := e.special(ctx, raw); ok {
		return o
	}
	return e.evaluate(ctx, raw)
}

// IsComplex reports whether expr exceeds any configured complexity threshold:
// length, dice-term count or operator count.
func (e *Engine) IsComplex(expr string) bool {
	return len(expr) > e.cfg.MaxLength ||
		len(reDiceTerm.FindAllStringIndex(expr, -1)) > e.cfg.MaxDiceTerms ||
		len(reOperators.FindAllStringIndex(expr, -1)) > e.cfg.MaxOperators
}

// Evaluate rolls an already-canonical expression through the worker pool and
// the wall-clock guard, without normalization or fallback.
//
// Postcondition: Returns a RollResult, an *dice.EvalError, ErrTimeout, or ctx's error.
func (e *Engine) Evaluate(ctx context.Context, canonical string) (dice.RollResult, error) {
	return e.eval(ctx, canonical)
}

func (e *Engine) evaluate(ctx context.Context, raw string) Outcome {
	if e.IsComplex(raw) {
		e.logger.Info("expression over complexity thresholds",
			zap.String("expression", raw),
			zap.Int("length", len(raw)),
		)
		return e.fallback(ctx, raw)
	}

	canonical := dice.Normalize(raw, e.roller.Limits())
	res, err := e.eval(ctx, canonical)
	if err != nil {
		e.logger.Info("evaluation failed, entering fallback chain",
			zap.String("expression", raw),
			zap.String("canonical", canonical),
			zap.Error(err),
		)
		return e.fallback(ctx, raw)
	}

	adv := dice.DetectAdvantage(raw)
	hint := breakdown.Detect(canonical, adv)
	return Outcome{
		Total:      res.Total(),
		Text:       breakdown.Format(breakdown.Input{Result: &res, Advantage: adv}, hint, e.labels),
		Tier:       TierDirect,
		Expression: canonical,
		Result:     &res,
		Hint:       hint,
	}
}

type evalResult struct {
	res dice.RollResult
	err error
}

// eval runs one evaluation on the worker pool under the wall-clock guard.
// A timed-out evaluation keeps its pool slot until it returns, so the pool
// bounds the work actually running.
func (e *Engine) eval(ctx context.Context, canonical string) (dice.RollResult, error) {
	if err := ctx.Err(); err != nil {
		return dice.RollResult{}, err
	}
	if err := e.pool.Acquire(ctx, 1); err != nil {
		return dice.RollResult{}, fmt.Errorf("acquiring evaluation slot: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, e.cfg.EvalTimeout)
	defer cancel()

	done := make(chan evalResult, 1)
	go func() {
		defer e.pool.Release(1)
		defer func() {
			if r := recover(); r != nil {
				done <- evalResult{err: fmt.Errorf("engine: evaluator panic: %v", r)}
			}
		}()
		res, err := e.roller.RollExpr(canonical)
		done <- evalResult{res: res, err: err}
	}()

	select {
	case r := <-done:
		return r.res, r.err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return dice.RollResult{}, ErrTimeout
		}
		return dice.RollResult{}, ctx.Err()
	}
}
