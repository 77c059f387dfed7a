// Package dice provides the randomness abstraction, the notation normalizer,
// the expression evaluator, and the structured roll tree used by every roll
// the bot performs.
package dice

import (
	"fmt"
	"strconv"
	"strings"
)

// Source is the randomness provider for dice rolls.
//
// Implementations MUST be safe for concurrent use.
type Source interface {
	// Intn returns a non-negative random int in [0, n).
	//
	// Precondition: n > 0.
	Intn(n int) int
}

// Advantage selects how the primary d20 of a roll is rolled.
type Advantage int

const (
	// Normal rolls a single d20.
	Normal Advantage = iota
	// WithAdvantage rolls two d20 and keeps the higher face.
	WithAdvantage
	// WithDisadvantage rolls two d20 and keeps the lower face.
	WithDisadvantage
)

// String returns the canonical name of the advantage state.
func (a Advantage) String() string {
	switch a {
	case WithAdvantage:
		return "advantage"
	case WithDisadvantage:
		return "disadvantage"
	default:
		return "normal"
	}
}

// D20Term returns the canonical d20 notation for the advantage state:
// "2d20kh1", "2d20kl1" or "1d20".
func (a Advantage) D20Term() string {
	switch a {
	case WithAdvantage:
		return "2d20kh1"
	case WithDisadvantage:
		return "2d20kl1"
	default:
		return "1d20"
	}
}

// ParseAdvantage maps user-facing names to an Advantage. Unknown names are Normal.
func ParseAdvantage(s string) Advantage {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "adv", "advantage", "vantagem", "vant":
		return WithAdvantage
	case "dis", "disadvantage", "desvantagem", "desv":
		return WithDisadvantage
	default:
		return Normal
	}
}

// KeepMode is the keep modifier of a dice term.
type KeepMode int

const (
	// KeepAll keeps every die.
	KeepAll KeepMode = iota
	// KeepHighest keeps the N highest dice (kh).
	KeepHighest
	// KeepLowest keeps the N lowest dice (kl).
	KeepLowest
)

// Die is one physical die of a dice term.
type Die struct {
	Face     int
	Kept     bool
	Exploded bool // rolled because the previous die showed its maximum face
}

// NodeKind identifies the shape of a roll tree node.
type NodeKind int

const (
	KindLiteral NodeKind = iota
	KindDice
	KindBinary
	KindNegate
	KindGroup
	KindCompare
)

// Node is one node of the structured roll tree produced by Roll.
//
// Invariant: Value holds the evaluated total of the subtree after Roll.
type Node struct {
	Kind  NodeKind
	Value int
	Op    string // binary or comparison operator
	Left  *Node  // binary/compare lhs, negate/group operand
	Right *Node  // binary/compare rhs

	// Dice term fields, set when Kind == KindDice.
	Count   int
	Sides   int
	Keep    KeepMode
	KeepN   int
	Explode bool
	Dice    []Die
}

// Verdict reports the boolean outcome of a comparison node.
//
// Postcondition: ok is false when n is not a KindCompare node.
func (n *Node) Verdict() (verdict bool, ok bool) {
	if n == nil || n.Kind != KindCompare {
		return false, false
	}
	rhs := n.Right.Value
	switch n.Op {
	case ">>", "<<":
		return n.Value > 0, true
	case ">=":
		return n.Value >= rhs, true
	case "<=":
		return n.Value <= rhs, true
	case ">":
		return n.Value > rhs, true
	case "<":
		return n.Value < rhs, true
	case "=":
		return n.Value == rhs, true
	}
	return false, false
}

// Notation renders the term as canonical notation, e.g. "2d20kh1".
func (n *Node) Notation() string {
	if n.Kind != KindDice {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%dd%d", n.Count, n.Sides)
	if n.Explode {
		b.WriteString("!")
	}
	switch n.Keep {
	case KeepHighest:
		fmt.Fprintf(&b, "kh%d", n.KeepN)
	case KeepLowest:
		fmt.Fprintf(&b, "kl%d", n.KeepN)
	}
	return b.String()
}

// Faces returns every rolled face of a dice node in roll order, kept or not.
func (n *Node) Faces() []int {
	out := make([]int, 0, len(n.Dice))
	for _, d := range n.Dice {
		out = append(out, d.Face)
	}
	return out
}

// KeptFaces returns the faces of a dice node that count toward its total.
func (n *Node) KeptFaces() []int {
	var out []int
	for _, d := range n.Dice {
		if d.Kept {
			out = append(out, d.Face)
		}
	}
	return out
}

// DroppedFaces returns the faces of a dice node discarded by its keep modifier.
func (n *Node) DroppedFaces() []int {
	var out []int
	for _, d := range n.Dice {
		if !d.Kept {
			out = append(out, d.Face)
		}
	}
	return out
}

// Walk visits n and all of its descendants depth-first, left to right.
func (n *Node) Walk(fn func(*Node)) {
	if n == nil {
		return
	}
	fn(n)
	n.Left.Walk(fn)
	n.Right.Walk(fn)
}

// DiceNodes returns every dice term of the tree in expression order.
func (n *Node) DiceNodes() []*Node {
	var out []*Node
	n.Walk(func(c *Node) {
		if c.Kind == KindDice {
			out = append(out, c)
		}
	})
	return out
}

// RollResult holds the full audit trail for a single expression evaluation.
//
// Postcondition: Total() == Root.Value.
type RollResult struct {
	Expression string // canonical expression that was rolled
	Root       *Node
	Comment    string // trailing free text, e.g. "1d20+5 sneak attack"
}

// Total returns the evaluated total of the expression.
func (r RollResult) Total() int {
	if r.Root == nil {
		return 0
	}
	return r.Root.Value
}

// Dice returns all kept faces of every dice term, in expression order.
func (r RollResult) Dice() []int {
	var out []int
	for _, n := range r.Root.DiceNodes() {
		out = append(out, n.KeptFaces()...)
	}
	return out
}

// String returns the human-readable breakdown in the format:
//
//	"1d20 (**20**) + 5 = `25`"
//
// Dropped dice are struck through (~~3~~); maximum faces and ones are bold.
//
// Precondition: r.Root is non-nil.
func (r RollResult) String() string {
	if r.Root == nil {
		panic("dice: RollResult.String() precondition violated: Root must be non-nil")
	}
	var b strings.Builder
	render(&b, r.Root)
	fmt.Fprintf(&b, " = `%d`", r.Total())
	if r.Comment != "" {
		b.WriteString(" ")
		b.WriteString(r.Comment)
	}
	return b.String()
}

func render(b *strings.Builder, n *Node) {
	switch n.Kind {
	case KindLiteral:
		b.WriteString(strconv.Itoa(n.Value))
	case KindDice:
		b.WriteString(n.Notation())
		b.WriteString(" (")
		for i, d := range n.Dice {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(renderDie(d, n.Sides))
		}
		b.WriteString(")")
	case KindNegate:
		b.WriteString("-")
		render(b, n.Left)
	case KindGroup:
		b.WriteString("(")
		render(b, n.Left)
		b.WriteString(")")
	case KindBinary, KindCompare:
		render(b, n.Left)
		b.WriteString(" ")
		b.WriteString(n.Op)
		b.WriteString(" ")
		render(b, n.Right)
	}
}

func renderDie(d Die, sides int) string {
	s := strconv.Itoa(d.Face)
	if d.Face == sides || d.Face == 1 {
		s = "**" + s + "**"
	}
	if d.Exploded {
		s += "!"
	}
	if !d.Kept {
		s = "~~" + s + "~~"
	}
	return s
}
