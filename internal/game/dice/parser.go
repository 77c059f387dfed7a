package dice

import (
	"fmt"
	"strconv"
	"strings"
)

// Limits bounds the cost of normalizing and evaluating a single expression.
type Limits struct {
	// MaxDicePerTerm is the largest count accepted for a single NdM term.
	MaxDicePerTerm int
	// MaxFaces is the largest die accepted.
	MaxFaces int
	// MaxExplosions caps the extra dice an exploding term may add.
	MaxExplosions int
	// MaxTotalDice caps the dice rolled across a whole expression.
	MaxTotalDice int
	// FastPathLength, FastPathStars and FastPathPluses select the normalizer's
	// minimal-fixup fast path.
	FastPathLength int
	FastPathStars  int
	FastPathPluses int
}

// DefaultLimits returns the limits used when none are configured.
func DefaultLimits() Limits {
	return Limits{
		MaxDicePerTerm: 1000,
		MaxFaces:       10000,
		MaxExplosions:  100,
		MaxTotalDice:   1000,
		FastPathLength: 100,
		FastPathStars:  5,
		FastPathPluses: 10,
	}
}

// EvalError reports an expression that cannot be parsed or evaluated.
// Callers route it to the fallback chain; it never reaches the user.
type EvalError struct {
	Expr string
	Pos  int
	Msg  string
}

// Error implements error.
func (e *EvalError) Error() string {
	return fmt.Sprintf("dice: %s at position %d in %q", e.Msg, e.Pos, e.Expr)
}

// Expression represents a parsed dice expression ready to be rolled.
//
// Invariant: Root is an unrolled template; Roll never mutates it.
type Expression struct {
	Raw     string // original input string
	Root    *Node
	Comment string
	limits  Limits
}

// Parse parses a canonical dice expression using DefaultLimits.
//
// Supported forms include "d20", "2d6+3", "4d6kh3", "2d20kl1-1", "(1d4+1)*2",
// "3d6!>=10", "6d6>>4" and "1d20+5 sneak attack".
//
// Precondition: expr must be a non-empty string.
// Postcondition: Returns an Expression or an *EvalError.
func Parse(expr string) (Expression, error) {
	return ParseWithLimits(expr, DefaultLimits())
}

// ParseWithLimits parses expr, enforcing lim on every dice term.
//
// Postcondition: Returns an Expression or an *EvalError.
func ParseWithLimits(expr string, lim Limits) (Expression, error) {
	if strings.TrimSpace(expr) == "" {
		return Expression{}, &EvalError{Expr: expr, Msg: "empty expression"}
	}
	p := &parser{lex: newLexer(expr), input: expr, limits: lim}
	p.advance()
	root, err := p.parseCompare()
	if err != nil {
		return Expression{}, err
	}
	comment := ""
	switch {
	case p.cur.typ == tokEOF:
	case p.cur.typ == tokHash && p.cur.spaced:
		comment = strings.TrimSpace(expr[p.cur.pos+1:])
	case p.cur.typ == tokWord && p.cur.spaced:
		comment = strings.TrimSpace(expr[p.cur.pos:])
	default:
		return Expression{}, p.errorf("unexpected %q", p.cur.lit)
	}
	return Expression{Raw: expr, Root: root, Comment: comment, limits: lim}, nil
}

// MustParse parses expr and panics on error. Useful for package-level constants.
//
// Precondition: expr must be a valid dice expression.
func MustParse(expr string) Expression {
	e, err := Parse(expr)
	if err != nil {
		panic("dice: MustParse failed for expression " + expr + ": " + err.Error())
	}
	return e
}

type parser struct {
	lex    *lexer
	input  string
	cur    token
	limits Limits
}

func (p *parser) advance() { p.cur = p.lex.next() }

func (p *parser) errorf(format string, args ...any) *EvalError {
	return &EvalError{Expr: p.input, Pos: p.cur.pos, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) parseCompare() (*Node, error) {
	left, err := p.parseSum()
	if err != nil {
		return nil, err
	}
	if p.cur.typ != tokCompare {
		return left, nil
	}
	op := p.cur.lit
	p.advance()
	right, err := p.parseSum()
	if err != nil {
		return nil, err
	}
	return &Node{Kind: KindCompare, Op: op, Left: left, Right: right}, nil
}

func (p *parser) parseSum() (*Node, error) {
	left, err := p.parseProduct()
	if err != nil {
		return nil, err
	}
	for p.cur.typ == tokPlus || p.cur.typ == tokMinus {
		op := p.cur.lit
		p.advance()
		right, err := p.parseProduct()
		if err != nil {
			return nil, err
		}
		left = &Node{Kind: KindBinary, Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseProduct() (*Node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.cur.typ == tokStar || p.cur.typ == tokSlash {
		op := p.cur.lit
		p.advance()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &Node{Kind: KindBinary, Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseUnary() (*Node, error) {
	switch p.cur.typ {
	case tokMinus:
		p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &Node{Kind: KindNegate, Left: operand}, nil
	case tokPlus:
		p.advance()
		return p.parseUnary()
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (*Node, error) {
	switch p.cur.typ {
	case tokLParen:
		p.advance()
		inner, err := p.parseSum()
		if err != nil {
			return nil, err
		}
		if p.cur.typ != tokRParen {
			return nil, p.errorf("missing closing parenthesis")
		}
		p.advance()
		return &Node{Kind: KindGroup, Left: inner}, nil
	case tokInt:
		n, err := p.integer()
		if err != nil {
			return nil, err
		}
		if p.cur.typ == tokDie && !p.cur.spaced {
			return p.parseDice(n)
		}
		return &Node{Kind: KindLiteral, Value: n}, nil
	case tokDie:
		return p.parseDice(1)
	case tokEOF:
		return nil, p.errorf("unexpected end of expression")
	}
	return nil, p.errorf("unexpected %q", p.cur.lit)
}

func (p *parser) integer() (int, error) {
	n, err := strconv.Atoi(p.cur.lit)
	if err != nil {
		return 0, p.errorf("invalid number %q", p.cur.lit)
	}
	p.advance()
	return n, nil
}

// parseDice parses the remainder of a dice term; p.cur is the 'd' token.
func (p *parser) parseDice(count int) (*Node, error) {
	p.advance()
	if p.cur.typ != tokInt || p.cur.spaced {
		return nil, p.errorf("missing die faces")
	}
	sides, err := p.integer()
	if err != nil {
		return nil, err
	}
	if count < 1 || count > p.limits.MaxDicePerTerm {
		return nil, p.errorf("die count %d out of range [1, %d]", count, p.limits.MaxDicePerTerm)
	}
	if sides < 1 || sides > p.limits.MaxFaces {
		return nil, p.errorf("die faces %d out of range [1, %d]", sides, p.limits.MaxFaces)
	}
	n := &Node{Kind: KindDice, Count: count, Sides: sides}
	if p.cur.typ == tokBang && !p.cur.spaced {
		if sides < 2 {
			return nil, p.errorf("cannot explode a d%d", sides)
		}
		n.Explode = true
		p.advance()
	}
	if (p.cur.typ == tokKeepHigh || p.cur.typ == tokKeepLow) && !p.cur.spaced {
		n.Keep = KeepHighest
		if p.cur.typ == tokKeepLow {
			n.Keep = KeepLowest
		}
		p.advance()
		if p.cur.typ != tokInt {
			return nil, p.errorf("missing keep count")
		}
		keep, err := p.integer()
		if err != nil {
			return nil, err
		}
		n.KeepN = keep
	}
	return n, nil
}
