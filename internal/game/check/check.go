// Package check resolves attribute and skill checks: one d20 (two under
// advantage or disadvantage) plus the attribute modifier, the skill bonus
// and an optional ad-hoc modifier expression.
package check

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cory-johannsen/dicebot/internal/game/breakdown"
	"github.com/cory-johannsen/dicebot/internal/game/character"
	"github.com/cory-johannsen/dicebot/internal/game/dice"
	"github.com/cory-johannsen/dicebot/internal/game/engine"
	"github.com/cory-johannsen/dicebot/internal/game/ruleset"
)

// Natural faces that mark a critical success and a fumble.
const (
	CritFace   = 20
	FumbleFace = 1
)

// Request selects what to check. Skill takes precedence over Attribute.
type Request struct {
	System       string // empty uses the sheet's system
	Skill        string
	Attribute    string
	Advantage    dice.Advantage
	TempModifier string // e.g. "+2" or "1d4"
}

// Result is a resolved check.
//
// Invariant: FinalTotal == Natural + AttributeModifier + SkillBonus + TempModifier.
type Result struct {
	ID                uuid.UUID
	FinalTotal        int
	Natural           int
	AttributeModifier int
	SkillBonus        int
	TempModifier      int
	Attribute         string
	Breakdown         string
	IsCrit            bool
	IsFumble          bool
	Title             string
	AdvantageText     string
}

// Resolver executes attribute and skill checks.
//
// Resolver is safe for concurrent use.
type Resolver struct {
	engine *engine.Engine
	rules  *ruleset.Registry
	logger *zap.Logger
}

// NewResolver creates a Resolver.
//
// Precondition: eng, rules and logger must be non-nil.
// Postcondition: Returns a non-nil Resolver.
func NewResolver(eng *engine.Engine, rules *ruleset.Registry, logger *zap.Logger) *Resolver {
	if eng == nil || rules == nil || logger == nil {
		panic("check.NewResolver: precondition violated: engine, rules and logger must be non-nil")
	}
	return &Resolver{engine: eng, rules: rules, logger: logger}
}

// ExecuteAttributeCheck rolls req for rec.
//
// A skill recorded on the sheet supplies its base attribute and bonus; an
// unrecorded skill takes its attribute from the system's skill table. The
// temporary modifier is evaluated as a dice expression; when it cannot be
// evaluated it is ignored and the breakdown says so. IsCrit and IsFumble
// reflect the kept natural face only.
//
// Postcondition: never panics; a failed d20 roll yields the localized
// failure text with FinalTotal 0.
func (r *Resolver) ExecuteAttributeCheck(ctx context.Context, rec *character.Record, req Request) (res Result) {
	labels := r.engine.Labels()
	res.ID = uuid.New()
	logger := r.logger.With(zap.String("check_id", res.ID.String()))
	defer func() {
		if p := recover(); p != nil {
			logger.Error("check resolution failed", zap.Any("panic", p))
			res = Result{ID: res.ID, Breakdown: labels.Failed, Title: res.Title}
		}
	}()

	if rec == nil {
		rec = &character.Record{}
	}
	system := strings.TrimSpace(req.System)
	if system == "" {
		system = rec.System()
	}

	subject := r.resolveSubject(rec, system, req, &res)
	res.Title = fmt.Sprintf(labels.Check, subject)
	res.AdvantageText = advantageText(req.Advantage, labels)

	term := req.Advantage.D20Term()
	roll, err := r.engine.Evaluate(ctx, term)
	if err != nil {
		logger.Warn("d20 roll failed", zap.String("term", term), zap.Error(err))
		return Result{ID: res.ID, Title: res.Title, AdvantageText: res.AdvantageText, Breakdown: labels.Failed}
	}
	res.Natural = roll.Total()
	res.IsCrit = res.Natural == CritFace
	res.IsFumble = res.Natural == FumbleFace

	lines := []string{breakdown.Format(
		breakdown.Input{Result: &roll, Advantage: req.Advantage},
		breakdown.Detect(term, req.Advantage),
		labels,
	)}

	var terms []string
	if res.Attribute != "" {
		terms = append(terms, fmt.Sprintf("%s %+d", res.Attribute, res.AttributeModifier))
	}
	if res.SkillBonus != 0 {
		terms = append(terms, fmt.Sprintf("%s %+d", strings.TrimSpace(req.Skill), res.SkillBonus))
	}
	if t := r.tempModifier(ctx, logger, req.TempModifier, &res); t != "" {
		terms = append(terms, t)
	}
	if len(terms) > 0 {
		lines = append(lines, strings.Join(terms, " | "))
	}

	res.FinalTotal = res.Natural + res.AttributeModifier + res.SkillBonus + res.TempModifier
	lines = append(lines, fmt.Sprintf("**%s**: `%d`", labels.Total, res.FinalTotal))
	switch {
	case res.IsCrit:
		lines = append(lines, labels.Critical)
	case res.IsFumble:
		lines = append(lines, labels.Fumble)
	}
	res.Breakdown = strings.Join(lines, "\n")

	logger.Info("check resolved",
		zap.String("system", system),
		zap.String("title", res.Title),
		zap.Stringer("advantage", req.Advantage),
		zap.Int("natural", res.Natural),
		zap.Int("total", res.FinalTotal),
		zap.Bool("crit", res.IsCrit),
		zap.Bool("fumble", res.IsFumble),
	)
	return res
}

// resolveSubject fills the attribute, its modifier and the skill bonus, and
// returns the name the check is titled after.
func (r *Resolver) resolveSubject(rec *character.Record, system string, req Request, res *Result) string {
	subject := strings.TrimSpace(req.Attribute)
	res.Attribute = subject

	if skill := strings.TrimSpace(req.Skill); skill != "" {
		subject = skill
		attr := ""
		if s, ok := rec.Skill(skill); ok {
			res.SkillBonus = int(s.Bonus)
			attr = s.BaseAttribute
		}
		if attr == "" {
			attr, _ = r.rules.SkillAttribute(system, skill)
		}
		if attr != "" {
			res.Attribute = attr
		}
	}
	if subject == "" {
		subject = "d20"
	}

	if res.Attribute != "" {
		res.AttributeModifier = r.rules.Modifier(system, rec.Score(res.Attribute))
	}
	return subject
}

// tempModifier evaluates expr and records its value on res. It returns the
// breakdown fragment, noting an expression that was ignored.
func (r *Resolver) tempModifier(ctx context.Context, logger *zap.Logger, expr string, res *Result) string {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return ""
	}
	o := r.engine.Roll(ctx, strings.TrimLeft(expr, "+"))
	if o.Tier != engine.TierDirect || o.Result == nil {
		logger.Info("temporary modifier ignored",
			zap.String("modifier", expr),
			zap.String("tier", o.Tier),
		)
		return fmt.Sprintf("%s: %s", expr, r.engine.Labels().Ignored)
	}
	res.TempModifier = o.Total
	if len(o.Result.Root.DiceNodes()) == 0 {
		return fmt.Sprintf("%+d", o.Total)
	}
	return o.Text
}

func advantageText(adv dice.Advantage, l breakdown.Labels) string {
	switch adv {
	case dice.WithAdvantage:
		return l.Advantage
	case dice.WithDisadvantage:
		return l.Disadvantage
	default:
		return ""
	}
}
