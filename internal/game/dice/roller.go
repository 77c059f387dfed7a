package dice

import (
	"math"
	"sort"
)

// Roll evaluates an Expression using the given Source and returns a RollResult.
//
// Precondition: expr must come from Parse; src must be non-nil.
// Postcondition: result.Total() == result.Root.Value; every Die.Face is in [1, Sides];
// returns an *EvalError on division by zero or when the total dice limit is exceeded.
func Roll(expr Expression, src Source) (RollResult, error) {
	if expr.Root == nil {
		return RollResult{}, &EvalError{Expr: expr.Raw, Msg: "expression was not parsed"}
	}
	lim := expr.limits
	if lim.MaxTotalDice == 0 {
		lim = DefaultLimits()
	}
	ev := &evaluator{src: src, expr: expr.Raw, limits: lim}
	root, err := ev.eval(expr.Root)
	if err != nil {
		return RollResult{}, err
	}
	return RollResult{Expression: expr.Raw, Root: root, Comment: expr.Comment}, nil
}

// RollExpr parses expr and rolls it using src in a single call.
//
// Precondition: expr must be a valid dice expression string; src must be non-nil.
// Postcondition: Returns a RollResult or a parse/roll error.
func RollExpr(expr string, src Source) (RollResult, error) {
	e, err := Parse(expr)
	if err != nil {
		return RollResult{}, err
	}
	return Roll(e, src)
}

type evaluator struct {
	src    Source
	expr   string
	limits Limits
	rolled int
}

func (ev *evaluator) fail(msg string) error {
	return &EvalError{Expr: ev.expr, Msg: msg}
}

// eval returns a rolled copy of the template node n.
func (ev *evaluator) eval(n *Node) (*Node, error) {
	out := *n
	out.Left, out.Right, out.Dice = nil, nil, nil
	switch n.Kind {
	case KindLiteral:
		return &out, nil
	case KindDice:
		if err := ev.rollDice(&out); err != nil {
			return nil, err
		}
		return &out, nil
	case KindNegate, KindGroup:
		inner, err := ev.eval(n.Left)
		if err != nil {
			return nil, err
		}
		out.Left = inner
		out.Value = inner.Value
		if n.Kind == KindNegate {
			if inner.Value == math.MinInt {
				return nil, ev.fail("integer overflow")
			}
			out.Value = -inner.Value
		}
		return &out, nil
	}

	left, err := ev.eval(n.Left)
	if err != nil {
		return nil, err
	}
	right, err := ev.eval(n.Right)
	if err != nil {
		return nil, err
	}
	out.Left, out.Right = left, right

	if n.Kind == KindCompare {
		out.Value = left.Value
		switch n.Op {
		case ">>", "<<":
			out.Value = countSuccesses(left, n.Op, right.Value)
		}
		return &out, nil
	}

	var ok bool
	switch n.Op {
	case "+":
		out.Value, ok = addInt(left.Value, right.Value)
	case "-":
		out.Value, ok = subInt(left.Value, right.Value)
	case "*":
		out.Value, ok = mulInt(left.Value, right.Value)
	case "/":
		if right.Value == 0 {
			return nil, ev.fail("division by zero")
		}
		out.Value, ok = floorDiv(left.Value, right.Value), left.Value != math.MinInt || right.Value != -1
	default:
		return nil, ev.fail("unknown operator " + n.Op)
	}
	if !ok {
		return nil, ev.fail("integer overflow")
	}
	return &out, nil
}

func (ev *evaluator) rollDice(n *Node) error {
	ev.rolled += n.Count
	if ev.rolled > ev.limits.MaxTotalDice {
		return ev.fail("too many dice")
	}
	dice := make([]Die, 0, n.Count)
	for i := 0; i < n.Count; i++ {
		dice = append(dice, Die{Face: ev.src.Intn(n.Sides) + 1, Kept: true})
	}
	if n.Explode {
		extra := 0
		for i := 0; i < len(dice) && extra < ev.limits.MaxExplosions; i++ {
			if dice[i].Face == n.Sides {
				dice = append(dice, Die{Face: ev.src.Intn(n.Sides) + 1, Kept: true, Exploded: true})
				extra++
			}
		}
		ev.rolled += extra
	}

	if n.Keep != KeepAll {
		order := make([]int, len(dice))
		for i := range order {
			order[i] = i
		}
		sort.SliceStable(order, func(a, b int) bool {
			if n.Keep == KeepHighest {
				return dice[order[a]].Face > dice[order[b]].Face
			}
			return dice[order[a]].Face < dice[order[b]].Face
		})
		for rank, idx := range order {
			dice[idx].Kept = rank < n.KeepN
		}
	}

	n.Dice = dice
	n.Value = 0
	for _, d := range dice {
		if d.Kept {
			n.Value += d.Face
		}
	}
	return nil
}

// countSuccesses counts the kept faces under n strictly above (">>") or
// below ("<<") target.
func countSuccesses(n *Node, op string, target int) int {
	count := 0
	for _, d := range n.DiceNodes() {
		for _, f := range d.KeptFaces() {
			if (op == ">>" && f > target) || (op == "<<" && f < target) {
				count++
			}
		}
	}
	return count
}

// addInt, subInt and mulInt report false when the result does not fit in an int.
func addInt(a, b int) (int, bool) {
	if (b > 0 && a > math.MaxInt-b) || (b < 0 && a < math.MinInt-b) {
		return 0, false
	}
	return a + b, true
}

func subInt(a, b int) (int, bool) {
	if (b < 0 && a > math.MaxInt+b) || (b > 0 && a < math.MinInt+b) {
		return 0, false
	}
	return a - b, true
}

func mulInt(a, b int) (int, bool) {
	if a == 0 || b == 0 {
		return 0, true
	}
	p := a * b
	if p/b != a || (a == -1 && b == math.MinInt) || (b == -1 && a == math.MinInt) {
		return 0, false
	}
	return p, true
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
