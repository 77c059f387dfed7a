// Package breakdown renders roll results as human-readable, localized text
// for the four presentations the bot uses: plain, advantage/disadvantage,
// drop/keep and comparison.
//
// Every formatter degrades leniently: when the structure it needs cannot be
// recovered the raw breakdown is returned unchanged.
package breakdown

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/cory-johannsen/dicebot/internal/game/dice"
)

// Hint selects a presentation.
type Hint int

const (
	Plain Hint = iota
	AdvantageHint
	DropKeep
	Comparison
)

// String returns the hint name used in logs.
func (h Hint) String() string {
	switch h {
	case AdvantageHint:
		return "advantage"
	case DropKeep:
		return "drop_keep"
	case Comparison:
		return "comparison"
	default:
		return "plain"
	}
}

// Input is what the formatter works from. Result may be nil when only the
// rendered text survived (fallback tiers); Text may be empty when Result is set.
type Input struct {
	Text      string
	Result    *dice.RollResult
	Advantage dice.Advantage
}

func (in Input) text() string {
	if in.Text == "" && in.Result != nil && in.Result.Root != nil {
		return in.Result.String()
	}
	return in.Text
}

var (
	reCompareOp    = regexp.MustCompile(`(>=|<=|<<|>>|>|<|=)\s*(-?\d+)`)
	reKeepTerm     = regexp.MustCompile(`(\d+)d(\d+)!?(kh|kl)(\d+)`)
	reFirstGroup   = regexp.MustCompile(`\(([^()]*)\)`)
	reTotalMarker  = regexp.MustCompile("= `(-?\\d+)`")
	reDuplicate    = regexp.MustCompile("^(-?\\d+) = `(-?\\d+)`")
	reEmptyParens  = regexp.MustCompile(`\s*\(\s*\)`)
	stripMarkup    = strings.NewReplacer("*", "", "~", "", "!", "")
	advantageTerms = []string{"2d20kh1", "2d20kl1"}
)

// Detect picks the presentation for a canonical expression.
func Detect(expr string, adv dice.Advantage) Hint {
	switch {
	case strings.ContainsAny(expr, "<>="):
		return Comparison
	case adv != dice.Normal:
		return AdvantageHint
	}
	for _, t := range advantageTerms {
		if strings.Contains(expr, t) {
			return AdvantageHint
		}
	}
	if reKeepTerm.MatchString(expr) {
		return DropKeep
	}
	return Plain
}

// Format renders in for hint using l.
//
// Postcondition: never panics; returns the raw text when extraction fails.
func Format(in Input, hint Hint, l Labels) (out string) {
	raw := in.text()
	defer func() {
		if recover() != nil {
			out = raw
		}
	}()
	var (
		extra string
		ok    bool
	)
	switch hint {
	case AdvantageHint:
		extra, ok = advantage(in, raw, l)
	case DropKeep:
		extra, ok = dropKeep(in, raw, l)
	case Comparison:
		extra, ok = comparison(in, raw, l)
	default:
		return plain(raw)
	}
	if !ok {
		return raw
	}
	return plain(raw) + "\n" + extra
}

func plain(raw string) string {
	s := reEmptyParens.ReplaceAllString(raw, "")
	if m := reDuplicate.FindStringSubmatch(s); m != nil && m[1] == m[2] {
		s = "`" + m[2] + "`" + s[len(m[0]):]
	}
	return s
}

func advantage(in Input, raw string, l Labels) (string, bool) {
	kept, discarded, mode, ok := advantageFromTree(in.Result)
	if !ok {
		kept, discarded, ok = advantageFromText(raw)
		if !ok {
			return "", false
		}
		mode = dice.KeepHighest
		switch {
		case in.Advantage == dice.WithDisadvantage:
			mode = dice.KeepLowest
		case in.Advantage == dice.Normal && kept < discarded:
			mode = dice.KeepLowest
		}
	}
	label := l.Advantage
	if mode == dice.KeepLowest {
		label = l.Disadvantage
	}
	return fmt.Sprintf("%s: %s %d, %s %d", label, l.Kept, kept, l.Discarded, discarded), true
}

func advantageFromTree(r *dice.RollResult) (kept, discarded int, mode dice.KeepMode, ok bool) {
	if r == nil {
		return 0, 0, dice.KeepAll, false
	}
	for _, n := range r.Root.DiceNodes() {
		if n.Sides != 20 || n.Keep == dice.KeepAll {
			continue
		}
		k, d := n.KeptFaces(), n.DroppedFaces()
		if len(k) != 1 || len(d) != 1 {
			continue
		}
		return k[0], d[0], n.Keep, true
	}
	return 0, 0, dice.KeepAll, false
}

// advantageFromText reads the first parenthesised group of a rendered
// breakdown, e.g. "(~~3~~, 17)", where the struck-through face was discarded.
func advantageFromText(raw string) (kept, discarded int, ok bool) {
	m := reFirstGroup.FindStringSubmatch(raw)
	if m == nil {
		return 0, 0, false
	}
	var keptFaces, droppedFaces []int
	for _, part := range strings.Split(m[1], ",") {
		part = strings.TrimSpace(part)
		v, err := strconv.Atoi(stripMarkup.Replace(part))
		if err != nil {
			return 0, 0, false
		}
		if strings.Contains(part, "~~") {
			droppedFaces = append(droppedFaces, v)
		} else {
			keptFaces = append(keptFaces, v)
		}
	}
	if len(keptFaces) != 1 || len(droppedFaces) != 1 {
		return 0, 0, false
	}
	return keptFaces[0], droppedFaces[0], true
}

func dropKeep(in Input, raw string, l Labels) (string, bool) {
	all, mode, keepN, ok := keepFromTree(in.Result)
	if !ok {
		all, mode, keepN, ok = keepFromText(raw)
		if !ok {
			return "", false
		}
	}
	sorted := append([]int(nil), all...)
	sort.Slice(sorted, func(a, b int) bool {
		if mode == dice.KeepHighest {
			return sorted[a] > sorted[b]
		}
		return sorted[a] < sorted[b]
	})
	if keepN > len(sorted) {
		keepN = len(sorted)
	}
	if keepN < 0 {
		keepN = 0
	}
	return fmt.Sprintf("%s: %s | %s: %s", l.Kept, joinInts(sorted[:keepN]), l.Dropped, joinInts(sorted[keepN:])), true
}

func keepFromTree(r *dice.RollResult) ([]int, dice.KeepMode, int, bool) {
	if r == nil {
		return nil, dice.KeepAll, 0, false
	}
	for _, n := range r.Root.DiceNodes() {
		if n.Keep != dice.KeepAll {
			return n.Faces(), n.Keep, n.KeepN, true
		}
	}
	return nil, dice.KeepAll, 0, false
}

func keepFromText(raw string) ([]int, dice.KeepMode, int, bool) {
	term := reKeepTerm.FindStringSubmatch(raw)
	group := reFirstGroup.FindStringSubmatch(raw)
	if term == nil || group == nil {
		return nil, dice.KeepAll, 0, false
	}
	keepN, err := strconv.Atoi(term[4])
	if err != nil {
		return nil, dice.KeepAll, 0, false
	}
	mode := dice.KeepHighest
	if term[3] == "kl" {
		mode = dice.KeepLowest
	}
	var all []int
	for _, part := range strings.Split(group[1], ",") {
		v, err := strconv.Atoi(strings.TrimSpace(stripMarkup.Replace(part)))
		if err != nil {
			return nil, dice.KeepAll, 0, false
		}
		all = append(all, v)
	}
	return all, mode, keepN, true
}

func comparison(in Input, raw string, l Labels) (string, bool) {
	var (
		op          string
		value, rhs  int
		verdict, ok bool
	)
	if in.Result != nil && in.Result.Root != nil {
		root := in.Result.Root
		verdict, ok = root.Verdict()
		if ok {
			op, value, rhs = root.Op, root.Value, root.Right.Value
		}
	}
	if !ok {
		expr := raw
		if in.Result != nil {
			expr = in.Result.Expression
		}
		m := reCompareOp.FindStringSubmatch(expr)
		t := reTotalMarker.FindStringSubmatch(raw)
		if m == nil || t == nil {
			return "", false
		}
		op = m[1]
		rhs, _ = strconv.Atoi(m[2])
		value, _ = strconv.Atoi(t[1])
		verdict = compare(value, op, rhs)
	}
	word := l.False
	if verdict {
		word = l.True
	}
	if op == ">>" || op == "<<" {
		noun := l.Successes
		if value == 1 {
			noun = l.Success
		}
		return fmt.Sprintf("%d %s (%s %d) → %s", value, noun, op, rhs, word), true
	}
	return fmt.Sprintf("%d %s %d → %s", value, op, rhs, word), true
}

func compare(value int, op string, rhs int) bool {
	switch op {
	case ">>", "<<":
		return value > 0
	case ">=":
		return value >= rhs
	case "<=":
		return value <= rhs
	case ">":
		return value > rhs
	case "<":
		return value < rhs
	case "=":
		return value == rhs
	}
	return false
}

func joinInts(v []int) string {
	parts := make([]string, len(v))
	for i, n := range v {
		parts[i] = strconv.Itoa(n)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
