package combat

import (
	"errors"
	"math"
	"regexp"
	"strconv"

	"github.com/cory-johannsen/dicebot/internal/game/dice"
)

// errNoFaces marks a strategy that could not recover any d20 face.
var errNoFaces = errors.New("combat: no d20 faces recovered")

var (
	reStruck  = regexp.MustCompile(`~~\d+~~`)
	reGroup   = regexp.MustCompile(`\(([^()]*)\)`)
	reNumber  = regexp.MustCompile(`\b\d+\b`)
	reD20Term = regexp.MustCompile(`(\d*)[dD]20(?:\D|$)`)
)

// DetectCritical reports whether an attack roll is critical: any inspected
// d20 face at or above critRange.
//
// Faces are recovered by the first strategy that yields any:
//  1. the kept faces of every d20 term in result's roll tree;
//  2. the numbers in the first parenthesised group of text;
//  3. every number in [1, 20] in text, only when expectedD20 > 0.
//
// A roll tree is authoritative: when result carries one, the text is never
// inspected. Discarded faces rendered as ~~n~~ are ignored by the text
// strategies.
//
// Postcondition: Returns false when no strategy recovers a face.
func DetectCritical(result *dice.RollResult, text string, expectedD20, critRange int) bool {
	strategies := []func() ([]int, error){
		func() ([]int, error) { return treeFaces(result) },
		func() ([]int, error) { return groupFaces(text) },
		func() ([]int, error) { return textFaces(text, expectedD20) },
	}
	for _, extract := range strategies {
		faces, err := extract()
		if err != nil {
			continue
		}
		for _, f := range faces {
			if f >= critRange {
				return true
			}
		}
		return false
	}
	return false
}

func treeFaces(result *dice.RollResult) ([]int, error) {
	if result == nil || result.Root == nil {
		return nil, errNoFaces
	}
	faces := []int{}
	for _, n := range result.Root.DiceNodes() {
		if n.Sides == 20 {
			faces = append(faces, n.KeptFaces()...)
		}
	}
	return faces, nil
}

func groupFaces(text string) ([]int, error) {
	m := reGroup.FindStringSubmatch(reStruck.ReplaceAllString(text, ""))
	if m == nil {
		return nil, errNoFaces
	}
	faces := numbers(m[1], 1, math.MaxInt)
	if len(faces) == 0 {
		return nil, errNoFaces
	}
	return faces, nil
}

func textFaces(text string, expectedD20 int) ([]int, error) {
	if expectedD20 <= 0 {
		return nil, errNoFaces
	}
	faces := numbers(reStruck.ReplaceAllString(text, ""), 1, 20)
	if len(faces) == 0 {
		return nil, errNoFaces
	}
	return faces, nil
}

// numbers returns the standalone integers of s within [lo, hi].
func numbers(s string, lo, hi int) []int {
	var out []int
	for _, tok := range reNumber.FindAllString(s, -1) {
		v, err := strconv.Atoi(tok)
		if err != nil || v < lo || v > hi {
			continue
		}
		out = append(out, v)
	}
	return out
}

// CountD20 returns the number of d20 dice rolled by expr's d20 terms.
func CountD20(expr string) int {
	total := 0
	for _, m := range reD20Term.FindAllStringSubmatch(expr, -1) {
		n := 1
		if m[1] != "" {
			v, err := strconv.Atoi(m[1])
			if err != nil {
				continue
			}
			n = v
		}
		total += n
	}
	return total
}

// CritProbability is the chance that at least one of numD20 dice lands at
// or above critRange: 1 - ((critRange-1)/20)^numD20.
//
// Postcondition: Returns a value in [0, 1]; 0 when numD20 <= 0.
func CritProbability(numD20, critRange int) float64 {
	if numD20 <= 0 {
		return 0
	}
	critRange = max(1, min(critRange, 21))
	return 1 - math.Pow(float64(critRange-1)/20, float64(numD20))
}

// rollChance draws against src and reports success with probability p.
func rollChance(src dice.Source, p float64) bool {
	const resolution = 10000
	return src.Intn(resolution) < int(math.Round(p*resolution))
}
