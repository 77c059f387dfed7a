// Package combat resolves attacks from a character sheet: the to-hit roll,
// critical detection and the damage roll, including repeated ("3#1d20+MOD")
// and over-complex attack formulas.
package combat

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cory-johannsen/dicebot/internal/game/character"
	"github.com/cory-johannsen/dicebot/internal/game/dice"
	"github.com/cory-johannsen/dicebot/internal/game/engine"
	"github.com/cory-johannsen/dicebot/internal/game/ruleset"
)

// Shape selects how an Outcome should be presented.
type Shape int

const (
	// ShapeSingle is one to-hit roll and one damage roll.
	ShapeSingle Shape = iota
	// ShapeMultiple is a repeated attack with one detail per repetition.
	ShapeMultiple
	// ShapeComplex is an attack whose formula exceeded the complexity
	// thresholds; criticals may be estimated.
	ShapeComplex
)

// String returns the shape name.
func (s Shape) String() string {
	switch s {
	case ShapeMultiple:
		return "multiple"
	case ShapeComplex:
		return "complex"
	default:
		return "single"
	}
}

// reModPlaceholder matches the MOD placeholder as a whole word, with an
// optional sign.
var reModPlaceholder = regexp.MustCompile(`(?i)(?:[+-]\s*)?\bmod\b`)

// Detail is one to-hit and damage pair.
type Detail struct {
	HitExpression string
	HitTotal      int
	HitText       string
	IsCritical    bool
	// CritEstimated is true when IsCritical was drawn from the critical
	// probability rather than read from rolled faces.
	CritEstimated bool
	DamageTotal   int
	DamageText    string
}

// Outcome is the result of one attack.
//
// Invariant: for ShapeMultiple, DamageTotal is the sum of Attacks' damage and
// IsCritical is true iff any attack is critical.
type Outcome struct {
	ID         uuid.UUID
	Name       string
	Shape      Shape
	Advantage  dice.Advantage
	Modifier   int
	DamageType string
	Effects    string
	UsedItems  []string

	HitTotal    int
	HitText     string
	IsCritical  bool
	DamageTotal int
	DamageText  string

	Attacks []Detail
}

// Resolver executes attack rolls.
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
		panic("combat.NewResolver: precondition violated: engine, rules and logger must be non-nil")
	}
	return &Resolver{engine: eng, rules: rules, logger: logger}
}

// attackPlan is the per-attack input shared by every repetition.
type attackPlan struct {
	attack character.AttackDefinition
	mod    int
	bound  bool
	damage string
	adv    dice.Advantage
}

// ExecuteAttackRoll rolls attack for rec.
//
// The bound attribute's score is looked up tolerating case and accents
// (default 10) and mapped to a modifier by rec's system. The to-hit formula
// takes the modifier through its MOD placeholder or, when it has none and an
// attribute is bound, as an appended term. adv replaces the first d20 term.
// Damage is the attack's damage plus that of every linked inventory item
// matched by exact name; the modifier is added once unless the damage
// formula used MOD, and a critical multiplies (dice + modifier).
//
// Postcondition: never panics; failures degrade to zero damage and a
// labelled breakdown.
func (r *Resolver) ExecuteAttackRoll(ctx context.Context, rec *character.Record, attack character.AttackDefinition, adv dice.Advantage) (out Outcome) {
	attack = attack.Normalized()
	out = Outcome{
		ID:         uuid.New(),
		Name:       attack.Name,
		Advantage:  adv,
		DamageType: attack.DamageType,
		Effects:    attack.Effects,
	}
	logger := r.logger.With(
		zap.String("attack_id", out.ID.String()),
		zap.String("attack", attack.Name),
	)
	defer func() {
		if p := recover(); p != nil {
			logger.Error("attack resolution failed", zap.Any("panic", p))
			out.HitText = r.engine.Labels().Failed
			out.DamageTotal = 0
			out.DamageText = ""
		}
	}()

	plan := attackPlan{attack: attack, adv: adv}
	plan.mod, plan.bound = r.modifier(rec, attack)
	plan.damage, out.UsedItems = damageFormula(rec, attack)
	out.Modifier = plan.mod

	switch n, rest, ok := engine.SplitRepeat(attack.ToHit); {
	case ok:
		out.Shape = ShapeMultiple
		r.multiple(ctx, &out, plan, r.engine.RepeatCount(n), rest)
	case r.engine.IsComplex(attack.ToHit):
		out.Shape = ShapeComplex
		r.fill(&out, r.complex(ctx, plan, attack.ToHit))
	default:
		out.Shape = ShapeSingle
		r.fill(&out, r.single(ctx, plan, attack.ToHit))
	}

	logger.Info("attack resolved",
		zap.Stringer("shape", out.Shape),
		zap.Stringer("advantage", adv),
		zap.Int("modifier", out.Modifier),
		zap.Int("hit", out.HitTotal),
		zap.Bool("critical", out.IsCritical),
		zap.Int("damage", out.DamageTotal),
	)
	return out
}

func (r *Resolver) fill(out *Outcome, d Detail) {
	out.Attacks = []Detail{d}
	out.HitTotal = d.HitTotal
	out.HitText = d.HitText
	out.IsCritical = d.IsCritical
	out.DamageTotal = d.DamageTotal
	out.DamageText = d.DamageText
}

// multiple runs the single-attack algorithm n times on rest.
func (r *Resolver) multiple(ctx context.Context, out *Outcome, plan attackPlan, n int, rest string) {
	hits := make([]string, 0, n)
	damages := make([]string, 0, n)
	for i := range n {
		d := r.single(ctx, plan, rest)
		out.Attacks = append(out.Attacks, d)
		out.HitTotal += d.HitTotal
		out.DamageTotal += d.DamageTotal
		out.IsCritical = out.IsCritical || d.IsCritical

		mark := ""
		if d.IsCritical {
			mark = " " + r.engine.Labels().Critical
		}
		hits = append(hits, fmt.Sprintf("`#%d` %s%s", i+1, d.HitText, mark))
		if d.DamageText != "" {
			damages = append(damages, fmt.Sprintf("`#%d` %s", i+1, d.DamageText))
		}
	}
	out.HitText = strings.Join(hits, "\n")
	if len(damages) > 0 {
		damages = append(damages, fmt.Sprintf("**%s**: `%d`", r.engine.Labels().Total, out.DamageTotal))
	}
	out.DamageText = strings.Join(damages, "\n")
}

// single rolls one to-hit formula, detects a critical from its faces and
// rolls damage.
func (r *Resolver) single(ctx context.Context, plan attackPlan, formula string) Detail {
	expr := dice.ApplyAdvantage(withModifier(formula, plan.mod, plan.bound), plan.adv)
	hit := r.engine.Roll(ctx, expr)

	text := hit.Text
	if hit.Tier == engine.TierEstimate || hit.Tier == engine.TierFailed {
		text = ""
	}
	d := Detail{
		HitExpression: expr,
		HitTotal:      hit.Total,
		HitText:       hit.Text,
		IsCritical:    DetectCritical(hit.Result, text, CountD20(expr), int(plan.attack.CritRange)),
	}
	d.DamageTotal, d.DamageText = r.damage(ctx, plan, d.IsCritical)
	return d
}

// complex rolls an over-threshold formula through the fallback chain. When
// no roll tree survives, the critical is drawn from CritProbability.
func (r *Resolver) complex(ctx context.Context, plan attackPlan, formula string) Detail {
	expr := dice.ApplyAdvantage(withModifier(formula, plan.mod, plan.bound), plan.adv)
	hit := r.engine.Roll(ctx, expr)
	cr := int(plan.attack.CritRange)

	d := Detail{HitExpression: expr, HitTotal: hit.Total, HitText: hit.Text}
	if hit.Result != nil {
		d.IsCritical = DetectCritical(hit.Result, "", 0, cr)
	} else {
		p := CritProbability(CountD20(expr), cr)
		d.IsCritical = rollChance(r.engine.Source(), p)
		d.CritEstimated = true
		r.logger.Debug("critical estimated",
			zap.String("expression", expr),
			zap.Float64("probability", p),
			zap.Bool("critical", d.IsCritical),
		)
	}
	d.DamageTotal, d.DamageText = r.damage(ctx, plan, d.IsCritical)
	return d
}

// damage rolls plan.damage and applies the modifier and critical multiplier.
func (r *Resolver) damage(ctx context.Context, plan attackPlan, crit bool) (int, string) {
	if plan.damage == "" {
		return 0, ""
	}
	expr, usedMod := substituteMod(plan.damage, plan.mod)
	rolled := r.engine.Roll(ctx, expr)
	if rolled.Tier == engine.TierFailed {
		return 0, rolled.Text
	}

	mod := plan.mod
	if usedMod {
		mod = 0
	}
	total := rolled.Total + mod
	lines := []string{rolled.Text}
	if mod != 0 {
		lines = append(lines, fmt.Sprintf("MOD %+d = `%d`", mod, total))
	}
	if crit {
		mult := int(plan.attack.CritMultiplier)
		crited := total * mult
		lines = append(lines, fmt.Sprintf("**%s** (%d %+d) × %d = `%d`",
			r.engine.Labels().Critical, rolled.Total, mod, mult, crited))
		total = crited
	}
	return total, strings.Join(lines, "\n")
}

// modifier resolves the modifier of the attack's bound attribute. An
// unbound attack has modifier 0.
func (r *Resolver) modifier(rec *character.Record, attack character.AttackDefinition) (int, bool) {
	if strings.TrimSpace(attack.Attribute) == "" || rec == nil {
		return 0, false
	}
	score := rec.Score(attack.Attribute)
	return r.rules.Modifier(rec.System(), score), true
}

// damageFormula joins the attack's damage with the damage of every linked
// item found by exact name.
func damageFormula(rec *character.Record, attack character.AttackDefinition) (string, []string) {
	parts := make([]string, 0, 1+len(attack.LinkedItems))
	if attack.Damage != "" {
		parts = append(parts, attack.Damage)
	}
	var used []string
	if rec != nil {
		for _, name := range attack.LinkedItems {
			item, ok := rec.ItemByName(name)
			dmg := strings.TrimLeft(strings.TrimSpace(item.Damage), "+")
			if !ok || dmg == "" {
				continue
			}
			parts = append(parts, dmg)
			used = append(used, item.Name)
		}
	}
	return strings.Join(parts, "+"), used
}

// withModifier substitutes MOD in formula, or appends the modifier when the
// formula has no placeholder and an attribute is bound.
func withModifier(formula string, mod int, bound bool) string {
	expr, used := substituteMod(formula, mod)
	if !used && bound && mod != 0 {
		expr += fmt.Sprintf("%+d", mod)
	}
	return expr
}

// substituteMod replaces every MOD placeholder, case-insensitively, with
// mod, folding a preceding sign into the value.
func substituteMod(formula string, mod int) (string, bool) {
	used := false
	out := reModPlaceholder.ReplaceAllStringFunc(formula, func(m string) string {
		used = true
		switch m[0] {
		case '+':
			return fmt.Sprintf("%+d", mod)
		case '-':
			return fmt.Sprintf("%+d", -mod)
		default:
			return strconv.Itoa(mod)
		}
	})
	return out, used
}
