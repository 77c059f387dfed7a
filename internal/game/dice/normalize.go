package dice

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	reNumParen     = regexp.MustCompile(`(\d)\s*\(`)
	reParenTerm    = regexp.MustCompile(`\)\s*([\ddD])`)
	reParenParen   = regexp.MustCompile(`\)\s*\(`)
	reSpecial      = regexp.MustCompile(`(?i)^\s*(s|ore|fortune|group|\d+)\s*#`)
	reFate         = regexp.MustCompile(`(\d*)[dD][fF]`)
	rePerDieBonus  = regexp.MustCompile(`(\d*)[dD](\d+)(\+\+|--)(\d+)`)
	reAdvKeyword   = regexp.MustCompile(`(?i)\b(adv|dis)\b`)
	reD20          = regexp.MustCompile(`(\d*)[dD]20([kK][hHlL]|\d|!)?`)
	reDropShortcut = regexp.MustCompile(`(\d+)[dD](\d+)\s*([dD][lLhH]|[dD])(\d+)`)
	reBareDie      = regexp.MustCompile(`(^|[+\-*/(\s])[dD](\d+)`)
)

// Normalize rewrites shorthand dice notation into the canonical grammar
// understood by Parse. Rules run once each, in a fixed order, so overlapping
// shorthands resolve deterministically. Normalize never fails; anything it
// cannot rewrite is passed through for the evaluator to reject.
//
// Postcondition: canonical input ("2d6+3", "2d20kh1-1") is returned unchanged.
func Normalize(raw string, lim Limits) string {
	s := strings.TrimSpace(raw)

	if IsComplex(s, lim) {
		return FixImplicitMultiplication(s)
	}
	if IsSpecial(s) {
		return s
	}

	s = reFate.ReplaceAllStringFunc(s, func(m string) string {
		n := countOf(reFate.FindStringSubmatch(m)[1])
		return strconv.Itoa(n) + "d3-" + strconv.Itoa(n*2)
	})

	s = rePerDieBonus.ReplaceAllStringFunc(s, func(m string) string {
		g := rePerDieBonus.FindStringSubmatch(m)
		n := countOf(g[1])
		k, _ := strconv.Atoi(g[4])
		sign := "+"
		if g[3] == "--" {
			sign = "-"
		}
		return strconv.Itoa(n) + "d" + g[2] + sign + strconv.Itoa(n*k)
	})

	if adv := DetectAdvantage(s); adv != Normal {
		s = strings.Join(strings.Fields(reAdvKeyword.ReplaceAllString(s, "")), " ")
		s = ApplyAdvantage(s, adv)
	}

	s = reDropShortcut.ReplaceAllStringFunc(s, func(m string) string {
		g := reDropShortcut.FindStringSubmatch(m)
		n, _ := strconv.Atoi(g[1])
		k, _ := strconv.Atoi(g[4])
		keep := n - k
		if keep < 0 {
			keep = 0
		}
		mode := "kh"
		if strings.EqualFold(g[3], "dh") {
			mode = "kl"
		}
		return g[1] + "d" + g[2] + mode + strconv.Itoa(keep)
	})

	return reBareDie.ReplaceAllString(s, "${1}1d$2")
}

// IsComplex reports whether s should skip full normalization: it is longer
// than lim.FastPathLength or carries more '*' or '+' than the fast-path limits.
func IsComplex(s string, lim Limits) bool {
	return len(s) > lim.FastPathLength ||
		strings.Count(s, "*") > lim.FastPathStars ||
		strings.Count(s, "+") > lim.FastPathPluses
}

// IsSpecial reports whether s uses syntax that bypasses normalization:
// command prefixes (s#, ore#, fortune#, group#, N#), comparisons, or
// exploding dice.
func IsSpecial(s string) bool {
	return reSpecial.MatchString(s) || strings.ContainsAny(s, "<>=!")
}

// FixImplicitMultiplication inserts '*' between a number or dice term and an
// adjacent parenthesis: "2(1d6)" becomes "2*(1d6)" and "(1d4)(2)" becomes "(1d4)*(2)".
func FixImplicitMultiplication(s string) string {
	s = reNumParen.ReplaceAllString(s, "$1*(")
	s = reParenParen.ReplaceAllString(s, ")*(")
	return reParenTerm.ReplaceAllString(s, ")*$1")
}

// DetectAdvantage reports the advantage keyword present in s, if any.
// The first keyword wins.
func DetectAdvantage(s string) Advantage {
	m := reAdvKeyword.FindString(s)
	switch strings.ToLower(m) {
	case "adv":
		return WithAdvantage
	case "dis":
		return WithDisadvantage
	}
	return Normal
}

// ApplyAdvantage replaces the first single d20 term of s ("d20" or "1d20",
// without a keep modifier) with adv's two-dice term. When s has no such term
// the two-dice term is prepended. Later d20 terms are left untouched.
//
// Postcondition: s is returned unchanged when adv is Normal.
func ApplyAdvantage(s string, adv Advantage) string {
	if adv == Normal {
		return s
	}
	term := adv.D20Term()
	for _, loc := range reD20.FindAllStringSubmatchIndex(s, -1) {
		count := s[loc[2]:loc[3]]
		if count != "" && count != "1" {
			continue
		}
		if loc[4] >= 0 {
			continue
		}
		if loc[0] > 0 && isLetter(s[loc[0]-1]) {
			continue
		}
		end := loc[1]
		return s[:loc[0]] + term + s[end:]
	}
	switch {
	case s == "":
		return term
	case strings.HasPrefix(s, "+"), strings.HasPrefix(s, "-"):
		return term + s
	default:
		return term + "+" + s
	}
}

func countOf(s string) int {
	if s == "" {
		return 1
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 1
	}
	return n
}
