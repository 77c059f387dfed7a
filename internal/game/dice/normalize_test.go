package dice_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/dicebot/internal/game/dice"
)

func TestNormalize_Rules(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"bare die", "d20+5", "1d20+5"},
		{"bare die after operator", "1d20+d6", "1d20+1d6"},
		{"advantage", "d20+5 adv", "2d20kh1+5"},
		{"disadvantage", "d20+5 dis", "2d20kl1+5"},
		{"advantage keyword first", "adv 1d20+2", "2d20kh1+2"},
		{"advantage only first d20", "1d20+1d20 adv", "2d20kh1+1d20"},
		{"advantage skips multi d20", "2d20+1d20 adv", "2d20+2d20kh1"},
		{"advantage without d20", "adv +3", "2d20kh1+3"},
		{"advantage alone", "adv", "2d20kh1"},
		{"advantage prepends", "1d6 adv", "2d20kh1+1d6"},
		{"fate", "4dF", "4d3-8"},
		{"bare fate", "dF+1", "1d3-2+1"},
		{"per-die bonus", "3d6++2", "3d6+6"},
		{"per-die penalty", "2d8--1", "2d8-2"},
		{"drop lowest", "4d6dl1", "4d6kh3"},
		{"bare drop", "4d6d1", "4d6kh3"},
		{"drop highest", "4d6dh1", "4d6kl3"},
		{"drop spaced", "4d6 dl1", "4d6kh3"},
		{"drop everything", "2d6d5", "2d6kh0"},
		{"repeat prefix untouched", "3#1d20+5", "3#1d20+5"},
		{"comparison untouched", "d20>=15", "d20>=15"},
		{"explode untouched", "4d6!", "4d6!"},
		{"ore untouched", "ore#6", "ore#6"},
		{"advance is not a keyword", "1d20 advance", "1d20 advance"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, dice.Normalize(tc.in, dice.DefaultLimits()))
		})
	}
}

func TestNormalize_FastPathOnlyFixesMultiplication(t *testing.T) {
	long := "2(1d6)+" + strings.Repeat("1d4+", 30) + "d8 adv"
	got := dice.Normalize(long, dice.DefaultLimits())
	assert.True(t, strings.HasPrefix(got, "2*(1d6)+"), "implicit multiplication must be inserted, got %q", got)
	assert.True(t, strings.HasSuffix(got, "d8 adv"), "full rewriting must be skipped, got %q", got)
}

func TestFixImplicitMultiplication(t *testing.T) {
	assert.Equal(t, "2*(1d6)", dice.FixImplicitMultiplication("2(1d6)"))
	assert.Equal(t, "(1d4)*3", dice.FixImplicitMultiplication("(1d4)3"))
	assert.Equal(t, "(1d4)*(2)", dice.FixImplicitMultiplication("(1d4)(2)"))
	assert.Equal(t, "(2)*d6", dice.FixImplicitMultiplication("(2)d6"))
}

func TestApplyAdvantage_NormalIsNoop(t *testing.T) {
	assert.Equal(t, "1d20+5", dice.ApplyAdvantage("1d20+5", dice.Normal))
}

func TestApplyAdvantage_SkipsKeptAndLargerDice(t *testing.T) {
	assert.Equal(t, "2d20kl1+2d20kl1", dice.ApplyAdvantage("1d20+2d20kl1", dice.WithDisadvantage))
	assert.Equal(t, "d20kh1+2d20kh1", dice.ApplyAdvantage("d20kh1+d20", dice.WithAdvantage))
	assert.Equal(t, "1d200+2d20kh1", dice.ApplyAdvantage("1d200+d20", dice.WithAdvantage))
	assert.Equal(t, "2d20kl1-1", dice.ApplyAdvantage("-1", dice.WithDisadvantage))
}

// TestNormalize_Property_CanonicalFixpoint verifies that canonical
// "NdM(+/-K)*" expressions are left untouched.
func TestNormalize_Property_CanonicalFixpoint(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(1, 99).Draw(rt, "n")
		m := rapid.IntRange(1, 999).Draw(rt, "m")
		var b strings.Builder
		fmt.Fprintf(&b, "%dd%d", n, m)
		mods := rapid.SliceOfN(rapid.IntRange(-50, 50), 0, 5).Draw(rt, "mods")
		for _, k := range mods {
			fmt.Fprintf(&b, "%+d", k)
		}
		expr := b.String()
		assert.Equal(rt, expr, dice.Normalize(expr, dice.DefaultLimits()))
	})
}

// TestNormalize_Property_NeverPanics feeds arbitrary strings through the
// normalizer.
func TestNormalize_Property_NeverPanics(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		s := rapid.String().Draw(rt, "input")
		assert.NotPanics(rt, func() { dice.Normalize(s, dice.DefaultLimits()) })
	})
}
