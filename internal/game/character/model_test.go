package character_test

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/dicebot/internal/game/character"
)

const sheetJSON = `{
  "informacoes_basicas": {"nome": "Lyra", "sistema_rpg": "dnd"},
  "atributos": {"Força": 16, "Destreza": "14", "Carisma": "+1", "Sabedoria": 12.0},
  "pericias": {
    "Furtividade": {"atributo_base": "Destreza", "bonus": 2},
    "Atletismo": "Força",
    "Persuasão": {"atributo_base": "Carisma", "bonus": "3"}
  },
  "ataques": [
    {"nome": "Espada Longa", "acerto": "1d20+MOD", "dano": "1d8", "tipo_dano": "cortante",
     "margem_critico": "19", "itens_vinculados": ["Runa de Fogo"], "atributo": "Força"}
  ],
  "magias": [
    {"nome": "Raio de Fogo", "acerto": "1d20+5", "dano": "2d10", "efeitos": "incendeia"}
  ],
  "inventario": {
    "armas": [{"nome": "Espada Longa"}],
    "aneis": [{"nome": "Runa de Fogo", "dano": "1d6"}]
  }
}`

func parseSheet(t *testing.T) *character.Record {
	t.Helper()
	r, err := character.Parse([]byte(sheetJSON))
	require.NoError(t, err)
	return r
}

func TestParse_Attributes(t *testing.T) {
	r := parseSheet(t)
	assert.Equal(t, "dnd", r.System())
	assert.Equal(t, 16, r.Score("Força"))
	assert.Equal(t, 16, r.Score("forca"))
	assert.Equal(t, 16, r.Score(" FORÇA "))
	assert.Equal(t, 14, r.Score("destreza"))
	assert.Equal(t, 1, r.Score("Carisma"))
	assert.Equal(t, 12, r.Score("Sabedoria"))
}

func TestScore_DefaultsToTen(t *testing.T) {
	r := parseSheet(t)
	_, ok := r.AttributeScore("Constituição")
	assert.False(t, ok)
	assert.Equal(t, character.DefaultScore, r.Score("Constituição"))
	assert.Equal(t, character.DefaultScore, r.Score(""))
}

func TestParse_Skills(t *testing.T) {
	r := parseSheet(t)
	s, ok := r.Skill("furtividade")
	require.True(t, ok)
	assert.Equal(t, "Destreza", s.BaseAttribute)
	assert.Equal(t, character.Score(2), s.Bonus)

	s, ok = r.Skill("Atletismo")
	require.True(t, ok)
	assert.Equal(t, "Força", s.BaseAttribute, "legacy string form")
	assert.Equal(t, character.Score(0), s.Bonus)

	s, ok = r.Skill("persuasao")
	require.True(t, ok)
	assert.Equal(t, character.Score(3), s.Bonus)
}

func TestParse_AttackLookupAndDefaults(t *testing.T) {
	r := parseSheet(t)
	a, ok := r.Attack("espada longa")
	require.True(t, ok)
	assert.Equal(t, "1d20+MOD", a.ToHit)
	assert.Equal(t, character.Score(19), a.CritRange)
	assert.Equal(t, character.Score(2), a.CritMultiplier)
	assert.Equal(t, []string{"Runa de Fogo"}, a.LinkedItems)

	spell, ok := r.Attack("Raio de Fogo")
	require.True(t, ok)
	assert.Equal(t, character.Score(20), spell.CritRange)
	assert.Equal(t, "incendeia", spell.Effects)

	_, ok = r.Attack("Arco")
	assert.False(t, ok)
}

func TestItems_ExactNameMatch(t *testing.T) {
	r := parseSheet(t)
	assert.Len(t, r.Items(), 2)
	it, ok := r.ItemByName("Runa de Fogo")
	require.True(t, ok)
	assert.Equal(t, "1d6", it.Damage)
	_, ok = r.ItemByName("runa de fogo")
	assert.False(t, ok)
}

func TestParse_RejectsNonNumericScore(t *testing.T) {
	_, err := character.Parse([]byte(`{"atributos": {"Força": "forte"}}`))
	assert.Error(t, err)
}

func TestSystem_DefaultsToDnd(t *testing.T) {
	r, err := character.Parse([]byte(`{"atributos": {}}`))
	require.NoError(t, err)
	assert.Equal(t, "dnd", r.System())
}

func TestNormalized_ClampsCritRange(t *testing.T) {
	cases := []struct {
		in, want character.Score
	}{
		{0, 20}, {1, 2}, {-5, 2}, {18, 18}, {25, 20},
	}
	for _, tc := range cases {
		a := character.AttackDefinition{CritRange: tc.in}.Normalized()
		assert.Equal(t, tc.want, a.CritRange, "crit range %d", tc.in)
	}
	assert.Equal(t, character.Score(3), character.AttackDefinition{CritMultiplier: 3}.Normalized().CritMultiplier)
	assert.Equal(t, character.Score(2), character.AttackDefinition{CritMultiplier: -1}.Normalized().CritMultiplier)
}

func TestBuild(t *testing.T) {
	r, err := character.Build("Kael", "ordem_paranormal", map[string]int{"Agilidade": 3})
	require.NoError(t, err)
	r.AddSkill("Pontaria", "Agilidade", 5).
		AddAttack(character.AttackDefinition{Name: "Pistola", ToHit: "MODd20kh1"}).
		AddItem("armas", character.Item{Name: "Pistola", Damage: "1d12"})

	assert.Equal(t, "ordem_paranormal", r.System())
	assert.Equal(t, 3, r.Score("agilidade"))
	_, ok := r.Skill("pontaria")
	assert.True(t, ok)
	_, ok = r.Attack("pistola")
	assert.True(t, ok)
	_, ok = r.ItemByName("Pistola")
	assert.True(t, ok)

	_, err = character.Build(" ", "dnd", nil)
	assert.Error(t, err)
}

func TestLoadFile_YAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lyra.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
informacoes_basicas:
  nome: Lyra
  sistema_rpg: cyberpunk
atributos:
  REF: "7"
  BODY: 6
pericias:
  Esquiva: DEX
  Briga:
    atributo_base: DEX
    bonus: 4
ataques:
  - nome: Soco
    acerto: 1d10+MOD
    atributo: BODY
`), 0644))
	r, err := character.LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "cyberpunk", r.System())
	assert.Equal(t, 7, r.Score("ref"))
	s, _ := r.Skill("Esquiva")
	assert.Equal(t, "DEX", s.BaseAttribute)
	s, _ = r.Skill("Briga")
	assert.Equal(t, character.Score(4), s.Bonus)
	a, ok := r.Attack("soco")
	require.True(t, ok)
	assert.Equal(t, "BODY", a.Attribute)
}

func TestLoadFile_JSONAndMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lyra.json")
	require.NoError(t, os.WriteFile(path, []byte(sheetJSON), 0644))
	r, err := character.LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Lyra", r.Info.Name)

	_, err = character.LoadFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

// Property-based tests

func TestPropertyNumericStringScoresDecode(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(-1000, 1000).Draw(t, "n")
		asString := rapid.Bool().Draw(t, "string")
		val := []byte(`{"atributos": {"Vigor": ` + quoteIf(asString, strconv.Itoa(n)) + `}}`)
		r, err := character.Parse(val)
		if err != nil {
			t.Fatalf("parse: %v", err)
		}
		if got := r.Score("vigor"); got != n {
			t.Fatalf("score %d, want %d", got, n)
		}
	})
}

func TestPropertyNormalizedCritRangeInBounds(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		cr := rapid.IntRange(-50, 50).Draw(t, "crit_range")
		a := character.AttackDefinition{CritRange: character.Score(cr)}.Normalized()
		if a.CritRange < character.MinCritRange || a.CritRange > character.DefaultCritRange {
			t.Fatalf("crit range %d normalized to %d", cr, a.CritRange)
		}
	})
}

func quoteIf(quote bool, s string) string {
	if quote {
		return strconv.Quote(s)
	}
	return s
}
