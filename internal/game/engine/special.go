package engine

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/cory-johannsen/dicebot/internal/game/breakdown"
	"github.com/cory-johannsen/dicebot/internal/game/dice"
)

var reCommand = regexp.MustCompile(`(?i)^(s|ore|fortune|group|\d+)\s*#\s*(.*)$`)

// SplitRepeat splits "N#rest" into N and rest.
//
// Postcondition: ok is false when expr has no numeric repeat prefix.
func SplitRepeat(expr string) (n int, rest string, ok bool) {
	m := reCommand.FindStringSubmatch(strings.TrimSpace(expr))
	if m == nil {
		return 0, "", false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, "", false
	}
	return n, m[2], true
}

// special dispatches the "<cmd>#" prefixed commands.
//
// Postcondition: ok is false when raw carries no command prefix.
func (e *Engine) special(ctx context.Context, raw string) (Outcome, bool) {
	m := reCommand.FindStringSubmatch(raw)
	if m == nil {
		return Outcome{}, false
	}
	cmd, rest := strings.ToLower(m[1]), strings.TrimSpace(m[2])
	e.logger.Debug("special command", zap.String("command", cmd), zap.String("rest", rest))

	var o Outcome
	switch cmd {
	case "s":
		o = e.sorted(ctx, rest)
	case "ore":
		o = e.oneRoll(ctx, rest)
	case "fortune":
		o = e.fortune(ctx, rest)
	case "group":
		o = e.grouped(ctx, rest)
	default:
		n, _ := strconv.Atoi(cmd)
		o = e.repeat(ctx, n, rest)
	}
	if o.Tier == "" {
		o.Tier = TierSpecial
	}
	return o, true
}

// RepeatCount clamps a requested repetition count to [1, MaxRepeat].
func (e *Engine) RepeatCount(n int) int {
	return max(1, min(n, e.cfg.MaxRepeat))
}

// repeat evaluates rest n times concurrently, one line per repetition.
// n is clamped by RepeatCount.
func (e *Engine) repeat(ctx context.Context, n int, rest string) Outcome {
	n = e.RepeatCount(n)
	parts := make([]Outcome, n)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Workers)
	for i := range parts {
		g.Go(func() error {
			parts[i] = e.evaluate(gctx, rest)
			return nil
		})
	}
	_ = g.Wait()

	lines := make([]string, 0, n+1)
	total := 0
	for i, p := range parts {
		total += p.Total
		lines = append(lines, fmt.Sprintf("`#%d` %s", i+1, p.Text))
	}
	lines = append(lines, fmt.Sprintf("**%s**: `%d`", e.labels.Total, total))
	return Outcome{
		Total: total,
		Text:  strings.Join(lines, "\n"),
		Parts: parts,
	}
}

// sorted evaluates rest and renders every dice term with its faces in
// descending order.
func (e *Engine) sorted(ctx context.Context, rest string) Outcome {
	canonical := dice.Normalize(rest, e.roller.Limits())
	res, err := e.eval(ctx, canonical)
	if err != nil {
		return e.fallback(ctx, rest)
	}
	for _, n := range res.Root.DiceNodes() {
		sort.SliceStable(n.Dice, func(a, b int) bool { return n.Dice[a].Face > n.Dice[b].Face })
	}
	return Outcome{
		Total:      res.Total(),
		Text:       breakdown.Format(breakdown.Input{Result: &res}, breakdown.Plain, e.labels),
		Expression: canonical,
		Result:     &res,
	}
}

// poolSize parses the dice count argument of ore# and fortune#.
func (e *Engine) poolSize(arg string, lowest int) int {
	n, err := strconv.Atoi(strings.TrimSpace(arg))
	if err != nil {
		n = lowest
	}
	return max(lowest, min(n, e.cfg.MaxRepeat))
}

// Set is a group of matching faces in a One-Roll Engine roll.
type Set struct {
	Width  int // number of matching dice
	Height int // the face they share
}

func (s Set) String() string { return fmt.Sprintf("%dx%d", s.Width, s.Height) }

// MatchSets groups faces into sets of matching values, widest first, ties
// broken by height. Faces appearing once are returned as loose, highest first.
func MatchSets(faces []int) (sets []Set, loose []int) {
	counts := map[int]int{}
	for _, f := range faces {
		counts[f]++
	}
	for face, c := range counts {
		if c > 1 {
			sets = append(sets, Set{Width: c, Height: face})
		} else {
			loose = append(loose, face)
		}
	}
	sort.Slice(sets, func(a, b int) bool {
		if sets[a].Width != sets[b].Width {
			return sets[a].Width > sets[b].Width
		}
		return sets[a].Height > sets[b].Height
	})
	sort.Sort(sort.Reverse(sort.IntSlice(loose)))
	return sets, loose
}

// oneRoll rolls N d10 and reports matching sets. The total is the width of
// the widest set, or 0 without sets.
func (e *Engine) oneRoll(ctx context.Context, arg string) Outcome {
	n := e.poolSize(arg, 1)
	canonical := fmt.Sprintf("%dd10", n)
	res, err := e.eval(ctx, canonical)
	if err != nil {
		return e.fallback(ctx, canonical)
	}
	sets, loose := MatchSets(res.Dice())

	setText := "-"
	if len(sets) > 0 {
		parts := make([]string, len(sets))
		for i, s := range sets {
			parts[i] = s.String()
		}
		setText = strings.Join(parts, ", ")
	}
	looseText := "-"
	if len(loose) > 0 {
		parts := make([]string, len(loose))
		for i, f := range loose {
			parts[i] = strconv.Itoa(f)
		}
		looseText = strings.Join(parts, ", ")
	}

	total := 0
	if len(sets) > 0 {
		total = sets[0].Width
	}
	text := fmt.Sprintf("%s (%s)\n%s: %s | %s: %s",
		canonical, joinFaces(res.Dice()), e.labels.Sets, setText, e.labels.Loose, looseText)
	return Outcome{Total: total, Text: text, Expression: canonical, Result: &res}
}

// FortuneResult grades a Forged-in-the-Dark fortune roll.
type FortuneResult int

const (
	FortuneBad FortuneResult = iota
	FortunePartial
	FortuneFull
	FortuneCritical
)

// GradeFortune grades the kept face of a fortune roll. critical requires at
// least two sixes among the kept-highest pool.
func GradeFortune(kept int, sixes int, zeroDice bool) FortuneResult {
	switch {
	case !zeroDice && sixes >= 2:
		return FortuneCritical
	case kept == 6:
		return FortuneFull
	case kept >= 4:
		return FortunePartial
	default:
		return FortuneBad
	}
}

func (e *Engine) fortuneLabel(r FortuneResult) string {
	switch r {
	case FortuneCritical:
		return e.labels.Critical
	case FortuneFull:
		return e.labels.FortuneFull
	case FortunePartial:
		return e.labels.FortunePartial
	default:
		return e.labels.FortuneBad
	}
}

// fortune rolls N d6 keeping the highest; zero dice rolls 2d6 keeping the lowest.
func (e *Engine) fortune(ctx context.Context, arg string) Outcome {
	n := e.poolSize(arg, 0)
	canonical := fmt.Sprintf("%dd6kh1", n)
	if n == 0 {
		canonical = "2d6kl1"
	}
	res, err := e.eval(ctx, canonical)
	if err != nil {
		return e.fallback(ctx, canonical)
	}

	sixes := 0
	for _, node := range res.Root.DiceNodes() {
		for _, f := range node.Faces() {
			if f == 6 {
				sixes++
			}
		}
	}
	grade := GradeFortune(res.Total(), sixes, n == 0)
	text := breakdown.Format(breakdown.Input{Result: &res}, breakdown.Plain, e.labels) +
		"\n→ " + e.fortuneLabel(grade)
	return Outcome{Total: res.Total(), Text: text, Expression: canonical, Result: &res}
}

// grouped rolls rest and lists its kept faces grouped by value, e.g. "6×3, 2×5".
func (e *Engine) grouped(ctx context.Context, rest string) Outcome {
	canonical := dice.Normalize(rest, e.roller.Limits())
	res, err := e.eval(ctx, canonical)
	if err != nil {
		return e.fallback(ctx, rest)
	}
	sets, loose := MatchSets(res.Dice())
	groups := make([]string, 0, len(sets)+len(loose))
	for _, s := range sets {
		groups = append(groups, fmt.Sprintf("%d×%d", s.Height, s.Width))
	}
	for _, f := range loose {
		groups = append(groups, fmt.Sprintf("%d×1", f))
	}
	text := breakdown.Format(breakdown.Input{Result: &res}, breakdown.Plain, e.labels)
	if len(groups) > 0 {
		text += "\n" + strings.Join(groups, ", ")
	}
	return Outcome{Total: res.Total(), Text: text, Expression: canonical, Result: &res}
}

func joinFaces(faces []int) string {
	parts := make([]string, len(faces))
	for i, f := range faces {
		parts[i] = strconv.Itoa(f)
	}
	return strings.Join(parts, ", ")
}
