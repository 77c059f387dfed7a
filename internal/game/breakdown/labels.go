package breakdown

import (
	"strings"

	"golang.org/x/text/language"
)

// Labels holds the user-facing words the formatter and resolvers emit.
type Labels struct {
	Advantage    string
	Disadvantage string
	Kept         string
	Discarded    string
	Dropped      string
	True         string
	False        string
	Success      string
	Successes    string
	Total        string
	Estimate     string
	Failed       string
	Check        string
	Critical     string
	Fumble       string
	Attack       string
	Damage       string
	Ignored      string

	FortuneFull    string
	FortunePartial string
	FortuneBad     string
	Sets           string
	Loose          string
}

var (
	english = Labels{
		Advantage:    "Advantage",
		Disadvantage: "Disadvantage",
		Kept:         "kept",
		Discarded:    "discarded",
		Dropped:      "dropped",
		True:         "True",
		False:        "False",
		Success:      "success",
		Successes:    "successes",
		Total:        "Total",
		Estimate:     "estimate",
		Failed:       "⚠️ roll failed",
		Check:        "%s check",
		Critical:     "Critical!",
		Fumble:       "Fumble!",
		Attack:       "Attack",
		Damage:       "Damage",
		Ignored:      "ignored",

		FortuneFull:    "full success",
		FortunePartial: "partial success",
		FortuneBad:     "bad outcome",
		Sets:           "sets",
		Loose:          "loose",
	}
	portuguese = Labels{
		Advantage:    "Vantagem",
		Disadvantage: "Desvantagem",
		Kept:         "mantido",
		Discarded:    "descartado",
		Dropped:      "descartados",
		True:         "Verdadeiro",
		False:        "Falso",
		Success:      "sucesso",
		Successes:    "sucessos",
		Total:        "Total",
		Estimate:     "estimativa",
		Failed:       "⚠️ falha na rolagem",
		Check:        "Teste de %s",
		Critical:     "Crítico!",
		Fumble:       "Falha crítica!",
		Attack:       "Ataque",
		Damage:       "Dano",
		Ignored:      "ignorado",

		FortuneFull:    "sucesso total",
		FortunePartial: "sucesso parcial",
		FortuneBad:     "resultado ruim",
		Sets:           "conjuntos",
		Loose:          "soltos",
	}
)

var (
	supported = []language.Tag{language.English, language.BrazilianPortuguese}
	matcher   = language.NewMatcher(supported)
)

// English returns the English labels. It is the fallback for every lookup.
func English() Labels { return english }

// LabelsFor returns the labels that best match tag.
//
// Postcondition: Unsupported tags resolve to English.
func LabelsFor(tag language.Tag) Labels {
	_, idx, conf := matcher.Match(tag)
	if conf == language.No {
		return english
	}
	if supported[idx] == language.BrazilianPortuguese {
		return portuguese
	}
	return english
}

// LabelsForLocale parses a BCP 47 locale string such as "pt-BR" and returns
// its labels. Unparseable locales resolve to English.
func LabelsForLocale(locale string) Labels {
	tag, err := language.Parse(strings.TrimSpace(locale))
	if err != nil {
		return english
	}
	return LabelsFor(tag)
}
