package dice

import "strings"

type tokenType int

const (
	tokIllegal tokenType = iota
	tokEOF
	tokInt
	tokWord // free text; only legal as the start of a trailing comment
	tokDie  // d
	tokKeepHigh
	tokKeepLow
	tokBang
	tokPlus
	tokMinus
	tokStar
	tokSlash
	tokLParen
	tokRParen
	tokHash
	tokCompare // >= <= > < = << >>
)

type token struct {
	typ    tokenType
	lit    string
	pos    int
	spaced bool // preceded by whitespace
}

type lexer struct {
	input string
	pos   int
}

func newLexer(input string) *lexer {
	return &lexer{input: input}
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c >= 0x80
}

func (l *lexer) next() token {
	start := l.pos
	for l.pos < len(l.input) && (l.input[l.pos] == ' ' || l.input[l.pos] == '\t' || l.input[l.pos] == '\n' || l.input[l.pos] == '\r') {
		l.pos++
	}
	spaced := l.pos > start
	if l.pos >= len(l.input) {
		return token{typ: tokEOF, pos: l.pos, spaced: spaced}
	}
	pos := l.pos
	c := l.input[pos]
	tok := func(t tokenType, width int) token {
		l.pos += width
		return token{typ: t, lit: l.input[pos:l.pos], pos: pos, spaced: spaced}
	}
	switch {
	case isDigit(c):
		end := pos
		for end < len(l.input) && isDigit(l.input[end]) {
			end++
		}
		return tok(tokInt, end-pos)
	case isLetter(c):
		end := pos
		for end < len(l.input) && isLetter(l.input[end]) {
			end++
		}
		switch strings.ToLower(l.input[pos:end]) {
		case "d":
			return tok(tokDie, end-pos)
		case "kh":
			return tok(tokKeepHigh, end-pos)
		case "kl":
			return tok(tokKeepLow, end-pos)
		}
		return tok(tokWord, end-pos)
	}
	two := ""
	if pos+1 < len(l.input) {
		two = l.input[pos : pos+2]
	}
	switch two {
	case ">=", "<=", "<<", ">>":
		return tok(tokCompare, 2)
	}
	switch c {
	case '>', '<', '=':
		return tok(tokCompare, 1)
	case '+':
		return tok(tokPlus, 1)
	case '-':
		return tok(tokMinus, 1)
	case '*':
		return tok(tokStar, 1)
	case '/':
		return tok(tokSlash, 1)
	case '(':
		return tok(tokLParen, 1)
	case ')':
		return tok(tokRParen, 1)
	case '!':
		return tok(tokBang, 1)
	case '#':
		return tok(tokHash, 1)
	}
	return tok(tokIllegal, 1)
}
