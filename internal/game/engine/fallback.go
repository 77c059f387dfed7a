package engine

import (
	"context"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/cory-johannsen/dicebot/internal/game/dice"
)

var (
	// reToken matches one signed dice term, one signed modifier, or a leading
	// unsigned modifier.
	reToken = regexp.MustCompile(`([+-]?)\s*(\d*)[dD](\d+)|([+-])\s*(\d+)|^\s*(\d+)`)

	errNoTokens = errors.New("engine: no dice tokens found")
)

// tier is one step of the fallback chain. A tier either produces an Outcome
// or fails, handing the expression to the next tier.
type tier struct {
	name string
	run  func(ctx context.Context, raw string) (Outcome, error)
}

// tiers returns the fallback chain in the order it is attempted.
//
// Postcondition: the last tier never fails.
func (e *Engine) tiers() []tier {
	return []tier{
		{name: TierMinimal, run: e.minimal},
		{name: TierTokens, run: e.tokens},
		{name: TierEstimate, run: e.estimate},
	}
}

// fallback runs raw through the tiers until one succeeds.
func (e *Engine) fallback(ctx context.Context, raw string) Outcome {
	for _, t := range e.tiers() {
		o, err := t.run(ctx, raw)
		if err == nil {
			o.Tier = t.name
			e.logger.Info("fallback tier succeeded",
				zap.String("expression", raw),
				zap.String("tier", t.name),
				zap.Int("total", o.Total),
			)
			return o
		}
		e.logger.Warn("fallback tier failed",
			zap.String("expression", raw),
			zap.String("tier", t.name),
			zap.Error(err),
		)
	}
	// unreachable: estimate never fails
	return Outcome{Text: e.labels.Failed, Tier: TierFailed}
}

// minimal evaluates raw with only implicit-multiplication fixups and renders
// a compact summary of the dice types rolled, e.g. "3d6, 2d8 = `27`".
func (e *Engine) minimal(ctx context.Context, raw string) (Outcome, error) {
	canonical := dice.FixImplicitMultiplication(raw)
	res, err := e.eval(ctx, canonical)
	if err != nil {
		return Outcome{}, fmt.Errorf("minimal evaluation: %w", err)
	}

	var (
		order  []int
		counts = map[int]int{}
	)
	for _, n := range res.Root.DiceNodes() {
		if _, seen := counts[n.Sides]; !seen {
			order = append(order, n.Sides)
		}
		counts[n.Sides] += n.Count
	}
	parts := make([]string, 0, len(order))
	for _, sides := range order {
		parts = append(parts, fmt.Sprintf("%dd%d", counts[sides], sides))
	}
	text := fmt.Sprintf("`%d`", res.Total())
	if len(parts) > 0 {
		text = strings.Join(parts, ", ") + " = " + text
	}
	if res.Comment != "" {
		text += " " + res.Comment
	}
	return Outcome{
		Total:      res.Total(),
		Text:       text,
		Expression: canonical,
		Result:     &res,
	}, nil
}

// tokens rolls every dice token of raw independently and sums them with the
// bare numeric modifiers, ignoring any other structure.
func (e *Engine) tokens(ctx context.Context, raw string) (Outcome, error) {
	lim := e.roller.Limits()
	src := e.roller.Source()

	var (
		lines  []string
		total  int
		rolled int
		found  bool
	)
	for _, m := range reToken.FindAllStringSubmatch(raw, -1) {
		if err := ctx.Err(); err != nil {
			return Outcome{}, err
		}
		found = true
		switch {
		case m[3] != "":
			count, err := strconv.Atoi(orOne(m[2]))
			if err != nil || count < 1 || count > lim.MaxDicePerTerm {
				return Outcome{}, fmt.Errorf("token %q: dice count out of range", strings.TrimSpace(m[0]))
			}
			sides, err := strconv.Atoi(m[3])
			if err != nil || sides < 1 || sides > lim.MaxFaces {
				return Outcome{}, fmt.Errorf("token %q: faces out of range", strings.TrimSpace(m[0]))
			}
			rolled += count
			if rolled > lim.MaxTotalDice {
				return Outcome{}, fmt.Errorf("tokens: more than %d dice", lim.MaxTotalDice)
			}
			faces := make([]string, count)
			sum := 0
			for i := range faces {
				f := src.Intn(sides) + 1
				sum += f
				faces[i] = strconv.Itoa(f)
			}
			if m[1] == "-" {
				sum = -sum
			}
			total += sum
			lines = append(lines, fmt.Sprintf("%s%dd%d (%s) = %d", m[1], count, sides, strings.Join(faces, ", "), sum))
		case m[5] != "":
			v, err := strconv.Atoi(m[5])
			if err != nil {
				return Outcome{}, fmt.Errorf("token %q: %w", m[0], err)
			}
			if m[4] == "-" {
				v = -v
			}
			total += v
			lines = append(lines, fmt.Sprintf("%+d", v))
		case m[6] != "":
			v, err := strconv.Atoi(m[6])
			if err != nil {
				return Outcome{}, fmt.Errorf("token %q: %w", m[0], err)
			}
			total += v
			lines = append(lines, strconv.Itoa(v))
		}
	}
	if !found || rolled == 0 {
		return Outcome{}, errNoTokens
	}
	lines = append(lines, fmt.Sprintf("**%s**: `%d`", e.labels.Total, total))
	return Outcome{Total: total, Text: strings.Join(lines, "\n")}, nil
}

// estimate returns ten per die found in raw, labelled as an approximation.
// It never fails.
func (e *Engine) estimate(_ context.Context, raw string) (Outcome, error) {
	const ceiling = math.MaxInt32 / 10
	count := 0
	for _, m := range reDiceTerm.FindAllStringSubmatch(raw, -1) {
		n, err := strconv.Atoi(orOne(m[1]))
		if err != nil || n > ceiling {
			n = ceiling
		}
		count = min(count+n, ceiling)
	}
	total := count * 10
	return Outcome{
		Total: total,
		Text:  fmt.Sprintf("≈ `%d` (%s)", total, e.labels.Estimate),
	}, nil
}

func orOne(s string) string {
	if s == "" {
		return "1"
	}
	return s
}
