package breakdown_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/dicebot/internal/game/breakdown"
	"github.com/cory-johannsen/dicebot/internal/game/dice"
)

type seq struct {
	faces []int
	i     int
}

func (s *seq) Intn(n int) int {
	f := s.faces[s.i%len(s.faces)]
	s.i++
	return (f - 1) % n
}

func roll(t *testing.T, expr string, faces ...int) *dice.RollResult {
	t.Helper()
	r, err := dice.RollExpr(expr, &seq{faces: faces})
	require.NoError(t, err)
	return &r
}

func TestDetect(t *testing.T) {
	assert.Equal(t, breakdown.Comparison, breakdown.Detect("1d20+5>=15", dice.Normal))
	assert.Equal(t, breakdown.AdvantageHint, breakdown.Detect("2d20kh1+5", dice.Normal))
	assert.Equal(t, breakdown.AdvantageHint, breakdown.Detect("1d20+5", dice.WithAdvantage))
	assert.Equal(t, breakdown.DropKeep, breakdown.Detect("4d6kh3", dice.Normal))
	assert.Equal(t, breakdown.Plain, breakdown.Detect("2d6+3", dice.Normal))
}

func TestFormat_AdvantageFromTree(t *testing.T) {
	r := roll(t, "2d20kh1+5", 3, 17)
	out := breakdown.Format(breakdown.Input{Result: r}, breakdown.AdvantageHint, breakdown.English())
	assert.Contains(t, out, "2d20kh1 (~~3~~, 17) + 5 = `22`")
	assert.Contains(t, out, "Advantage: kept 17, discarded 3")
}

func TestFormat_DisadvantageFromTree(t *testing.T) {
	r := roll(t, "2d20kl1", 3, 17)
	out := breakdown.Format(breakdown.Input{Result: r}, breakdown.AdvantageHint, breakdown.LabelsFor(language.BrazilianPortuguese))
	assert.Contains(t, out, "Desvantagem: mantido 3, descartado 17")
}

func TestFormat_AdvantageFromTextOnly(t *testing.T) {
	in := breakdown.Input{Text: "2d20kl1 (~~**20**~~, 4) + 1 = `5`", Advantage: dice.WithDisadvantage}
	out := breakdown.Format(in, breakdown.AdvantageHint, breakdown.English())
	assert.Contains(t, out, "Disadvantage: kept 4, discarded 20")
}

func TestFormat_AdvantageExtractionFailureReturnsRaw(t *testing.T) {
	in := breakdown.Input{Text: "nothing to see"}
	assert.Equal(t, "nothing to see", breakdown.Format(in, breakdown.AdvantageHint, breakdown.English()))
}

func TestFormat_DropKeep(t *testing.T) {
	r := roll(t, "4d6kh3", 1, 5, 4, 6)
	out := breakdown.Format(breakdown.Input{Result: r}, breakdown.DropKeep, breakdown.English())
	assert.Contains(t, out, "kept: [6, 5, 4] | dropped: [1]")

	r = roll(t, "4d6kl1", 1, 5, 4, 6)
	out = breakdown.Format(breakdown.Input{Result: r}, breakdown.DropKeep, breakdown.English())
	assert.Contains(t, out, "kept: [1] | dropped: [4, 5, 6]")
}

func TestFormat_DropKeepFromText(t *testing.T) {
	in := breakdown.Input{Text: "4d6kh3 (~~**1**~~, 5, 4, **6**) = `15`"}
	out := breakdown.Format(in, breakdown.DropKeep, breakdown.English())
	assert.Contains(t, out, "kept: [6, 5, 4] | dropped: [1]")
}

func TestFormat_Comparison(t *testing.T) {
	r := roll(t, "1d20+5>=15", 9)
	out := breakdown.Format(breakdown.Input{Result: r}, breakdown.Comparison, breakdown.English())
	assert.Contains(t, out, "14 >= 15 → False")

	r = roll(t, "6d6>>4", 5, 6, 1, 2, 4, 5)
	out = breakdown.Format(breakdown.Input{Result: r}, breakdown.Comparison, breakdown.English())
	assert.Contains(t, out, "3 successes (>> 4) → True")

	r = roll(t, "2d6>>4", 5, 2)
	out = breakdown.Format(breakdown.Input{Result: r}, breakdown.Comparison, breakdown.English())
	assert.Contains(t, out, "1 success (>> 4) → True")

	out = breakdown.Format(breakdown.Input{Result: r}, breakdown.Comparison, breakdown.LabelsForLocale("pt-BR"))
	assert.Contains(t, out, "1 sucesso (>> 4) → Verdadeiro")
}

func TestFormat_ComparisonFromText(t *testing.T) {
	in := breakdown.Input{Text: "1d20 (12) + 5 >= 15 = `17`"}
	out := breakdown.Format(in, breakdown.Comparison, breakdown.English())
	assert.Contains(t, out, "17 >= 15 → True")
}

func TestFormat_PlainStripsDuplicateTotal(t *testing.T) {
	assert.Equal(t, "`5`", breakdown.Format(breakdown.Input{Text: "5 = `5`"}, breakdown.Plain, breakdown.English()))
	assert.Equal(t, "1d6 (3) + 2 = `5`", breakdown.Format(breakdown.Input{Text: "1d6 (3) + 2 = `5`"}, breakdown.Plain, breakdown.English()))
}

func TestLabelsFor(t *testing.T) {
	assert.Equal(t, "Vantagem", breakdown.LabelsForLocale("pt-BR").Advantage)
	assert.Equal(t, "Advantage", breakdown.LabelsForLocale("en-US").Advantage)
	assert.Equal(t, "Advantage", breakdown.LabelsForLocale("not a locale!").Advantage)
}

// TestFormat_Property_NeverPanics verifies lenient degradation on arbitrary text.
func TestFormat_Property_NeverPanics(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		text := rapid.String().Draw(rt, "text")
		hint := breakdown.Hint(rapid.IntRange(0, 3).Draw(rt, "hint"))
		assert.NotPanics(rt, func() {
			breakdown.Format(breakdown.Input{Text: text}, hint, breakdown.English())
		})
	})
}
