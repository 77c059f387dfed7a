package dice_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/dicebot/internal/game/dice"
)

func TestRollResult_String(t *testing.T) {
	r, err := dice.RollExpr("1d20+5", faces(20))
	require.NoError(t, err)
	assert.Equal(t, 25, r.Total())
	assert.Equal(t, "1d20 (**20**) + 5 = `25`", r.String())
}

func TestRollResult_String_StrikesDroppedDice(t *testing.T) {
	r, err := dice.RollExpr("2d20kh1", faces(3, 17))
	require.NoError(t, err)
	assert.Equal(t, 17, r.Total())
	assert.Equal(t, "2d20kh1 (~~3~~, 17) = `17`", r.String())
}

func TestRollResult_String_PanicsWithoutTree(t *testing.T) {
	assert.Panics(t, func() { _ = dice.RollResult{Expression: "1d6"}.String() })
}

func TestRollExpr_KeepLowest(t *testing.T) {
	r, err := dice.RollExpr("2d20kl1+2", faces(3, 17))
	require.NoError(t, err)
	assert.Equal(t, 5, r.Total())
	nodes := r.Root.DiceNodes()
	require.Len(t, nodes, 1)
	assert.Equal(t, []int{3}, nodes[0].KeptFaces())
	assert.Equal(t, []int{17}, nodes[0].DroppedFaces())
}

func TestRollExpr_ArithmeticAndGroups(t *testing.T) {
	cases := []struct {
		expr  string
		faces []int
		want  int
	}{
		{"(1d4+1)*2", []int{3}, 8},
		{"2*3+4", nil, 10},
		{"10-2*3", nil, 4},
		{"-7/2", nil, -4},
		{"7/2", nil, 3},
		{"d6", []int{6}, 6},
		{"4d6kh3", []int{1, 5, 4, 6}, 15},
		{"2d6kh5", []int{2, 3}, 5},
	}
	for _, tc := range cases {
		t.Run(tc.expr, func(t *testing.T) {
			r, err := dice.RollExpr(tc.expr, faces(tc.faces...))
			require.NoError(t, err)
			assert.Equal(t, tc.want, r.Total())
		})
	}
}

func TestRollExpr_Comment(t *testing.T) {
	r, err := dice.RollExpr("1d20+5 sneak attack", faces(10))
	require.NoError(t, err)
	assert.Equal(t, 15, r.Total())
	assert.Equal(t, "sneak attack", r.Comment)
	assert.Contains(t, r.String(), "sneak attack")

	r, err = dice.RollExpr("2d6 # fire", faces(1, 2))
	require.NoError(t, err)
	assert.Equal(t, "fire", r.Comment)

	_, err = dice.RollExpr("3#1d6", faces())
	require.Error(t, err, "an unspaced # is not a comment")
}

func TestRollExpr_Exploding(t *testing.T) {
	r, err := dice.RollExpr("1d6!", faces(6, 6, 3))
	require.NoError(t, err)
	assert.Equal(t, 15, r.Total())
	d := r.Root.Dice
	require.Len(t, d, 3)
	assert.False(t, d[0].Exploded)
	assert.True(t, d[1].Exploded)
	assert.True(t, d[2].Exploded)
}

func TestRollExpr_Comparison(t *testing.T) {
	r, err := dice.RollExpr("1d20+5>=15", faces(10))
	require.NoError(t, err)
	assert.Equal(t, 15, r.Total())
	v, ok := r.Root.Verdict()
	require.True(t, ok)
	assert.True(t, v)

	r, err = dice.RollExpr("6d6>>4", faces(5, 6, 1, 2, 4, 5))
	require.NoError(t, err)
	assert.Equal(t, 3, r.Total(), ">> counts faces strictly above the target")
	v, ok = r.Root.Verdict()
	require.True(t, ok)
	assert.True(t, v)

	r, err = dice.RollExpr("3d6<<2", faces(5, 6, 2))
	require.NoError(t, err)
	assert.Equal(t, 0, r.Total())
	v, _ = r.Root.Verdict()
	assert.False(t, v)
}

func TestRollExpr_Errors(t *testing.T) {
	for _, expr := range []string{"", "   ", "1d0", "2d6+", "1/0", "(1d6", "1d6 kh1", "abc", "1d", "0d6", "2001d6"} {
		t.Run(expr, func(t *testing.T) {
			_, err := dice.RollExpr(expr, dice.NewSeededSource(1))
			require.Error(t, err)
			var evalErr *dice.EvalError
			assert.True(t, errors.As(err, &evalErr), "error must be an *EvalError, got %T", err)
		})
	}
}

func TestRollExpr_TotalDiceLimit(t *testing.T) {
	_, err := dice.RollExpr("1000d6+1d6", dice.NewSeededSource(7))
	require.Error(t, err)
}

func TestRollExpr_IntegerOverflow(t *testing.T) {
	for _, expr := range []string{
		"9999999999*9999999999",
		"9223372036854775807+1",
		"-9223372036854775807-2",
		"(0-9223372036854775807-1)/-1",
	} {
		t.Run(expr, func(t *testing.T) {
			_, err := dice.RollExpr(expr, faces())
			var evalErr *dice.EvalError
			require.True(t, errors.As(err, &evalErr), "expected *EvalError, got %v", err)
			assert.Equal(t, "integer overflow", evalErr.Msg)
		})
	}

	r, err := dice.RollExpr("9223372036854775806+1", faces())
	require.NoError(t, err)
	assert.Equal(t, 9223372036854775807, r.Total())
}

// TestRollExpr_Property_RangeAndFaceCount verifies that any NdM roll totals
// within [n, n*m] and lists exactly n faces in [1, m].
func TestRollExpr_Property_RangeAndFaceCount(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(1, 50).Draw(rt, "n")
		m := rapid.IntRange(1, 100).Draw(rt, "m")
		seed := rapid.Uint64().Draw(rt, "seed")

		r, err := dice.RollExpr(fmt.Sprintf("%dd%d", n, m), dice.NewSeededSource(seed))
		require.NoError(rt, err)
		assert.GreaterOrEqual(rt, r.Total(), n)
		assert.LessOrEqual(rt, r.Total(), n*m)
		require.Len(rt, r.Dice(), n)
		for _, f := range r.Dice() {
			assert.GreaterOrEqual(rt, f, 1)
			assert.LessOrEqual(rt, f, m)
		}
	})
}

// TestRollExpr_Property_KeepHighestDominatesKeepLowest rolls kh1 and kl1 from
// identically seeded sources so both see the same two faces.
func TestRollExpr_Property_KeepHighestDominatesKeepLowest(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		seed := rapid.Uint64().Draw(rt, "seed")
		hi, err := dice.RollExpr("2d20kh1", dice.NewSeededSource(seed))
		require.NoError(rt, err)
		lo, err := dice.RollExpr("2d20kl1", dice.NewSeededSource(seed))
		require.NoError(rt, err)
		assert.GreaterOrEqual(rt, hi.Total(), lo.Total())
		assert.ElementsMatch(rt, hi.Root.Faces(), lo.Root.Faces())
	})
}

func TestSeededSource_Deterministic(t *testing.T) {
	a, b := dice.NewSeededSource(42), dice.NewSeededSource(42)
	for i := 0; i < 100; i++ {
		assert.Equal(t, a.Intn(20), b.Intn(20))
	}
}

func TestCryptoSource_Intn_InRange(t *testing.T) {
	src := dice.NewCryptoSource()
	for i := 0; i < 1000; i++ {
		v := src.Intn(6)
		assert.GreaterOrEqual(t, v, 0)
		assert.Less(t, v, 6)
	}
}

func TestCryptoSource_Intn_PanicsOnZero(t *testing.T) {
	src := dice.NewCryptoSource()
	assert.Panics(t, func() { src.Intn(0) })
}

func TestRoller_LogsEveryRoll(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	roller := dice.NewLoggedRoller(faces(4, 5), zap.New(core))

	r, err := roller.RollExpr("2d6+3")
	require.NoError(t, err)
	assert.Equal(t, 12, r.Total())

	entries := logs.FilterMessage("dice roll").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "2d6+3", fields["expression"])
	assert.EqualValues(t, 12, fields["total"])
}

func TestRoller_WithLimits(t *testing.T) {
	lim := dice.DefaultLimits()
	lim.MaxDicePerTerm = 5
	roller := dice.NewLoggedRoller(dice.NewSeededSource(3), zap.NewNop()).WithLimits(lim)
	_, err := roller.RollExpr("6d6")
	assert.Error(t, err)
	_, err = roller.RollExpr("5d6")
	assert.NoError(t, err)
}

func TestParseAdvantage(t *testing.T) {
	assert.Equal(t, dice.WithAdvantage, dice.ParseAdvantage("Vantagem"))
	assert.Equal(t, dice.WithDisadvantage, dice.ParseAdvantage("dis"))
	assert.Equal(t, dice.Normal, dice.ParseAdvantage("whatever"))
	assert.Equal(t, "2d20kh1", dice.WithAdvantage.D20Term())
	assert.Equal(t, "2d20kl1", dice.WithDisadvantage.D20Term())
	assert.Equal(t, "1d20", dice.Normal.D20Term())
}
