// Package names normalizes user-entered names (attributes, skills, systems,
// items) so lookups tolerate case, accents and spacing differences:
// "Força", "forca" and " FORÇA " all fold to "forca".
package names

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Fold returns the lookup key for s: case-folded, stripped of combining
// marks, with runs of whitespace collapsed to a single space.
//
// Postcondition: Fold(Fold(s)) == Fold(s).
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), cases.Fold(), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = strings.ToLower(s)
	}
	return strings.Join(strings.Fields(out), " ")
}

// Identifier folds s and joins its words with underscores, the form used for
// system IDs: "Ordem Paranormal" becomes "ordem_paranormal".
func Identifier(s string) string {
	f := strings.NewReplacer("-", " ", "_", " ").Replace(Fold(s))
	return strings.Join(strings.Fields(f), "_")
}

// Lookup finds key in m by folded comparison. An exact match wins over a
// folded one.
//
// Postcondition: ok is false when no key of m folds to Fold(key).
func Lookup[V any](m map[string]V, key string) (v V, ok bool) {
	if v, ok = m[key]; ok {
		return v, true
	}
	want := Fold(key)
	for k, candidate := range m {
		if Fold(k) == want {
			return candidate, true
		}
	}
	return v, false
}
