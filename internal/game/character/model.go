// Package character defines the character sheet consumed by the attack and
// check resolvers, decoded from the bot's JSON character documents.
package character

import (
	"sort"
	"strings"

	"github.com/cory-johannsen/dicebot/internal/game/names"
	"github.com/cory-johannsen/dicebot/internal/game/ruleset"
)

// DefaultScore is the attribute score assumed when a sheet lacks the attribute.
const DefaultScore = 10

// BasicInfo holds the sheet header.
type BasicInfo struct {
	Name   string `json:"nome,omitempty" yaml:"nome,omitempty"`
	System string `json:"sistema_rpg,omitempty" yaml:"sistema_rpg,omitempty"`
}

// Skill is a trained skill: the attribute it rolls with plus a flat bonus.
type Skill struct {
	BaseAttribute string `json:"atributo_base" yaml:"atributo_base"`
	Bonus         Score  `json:"bonus" yaml:"bonus"`
}

// Item is one inventory entry. Damage is a dice formula added to attacks
// that link the item by name.
type Item struct {
	Name   string `json:"nome" yaml:"nome"`
	Damage string `json:"dano,omitempty" yaml:"dano,omitempty"`
}

// Record is a character sheet.
//
// Attribute, skill and attack lookups tolerate case and accent differences;
// item lookups match names exactly.
type Record struct {
	Info       BasicInfo          `json:"informacoes_basicas" yaml:"informacoes_basicas"`
	Attributes map[string]Score   `json:"atributos" yaml:"atributos"`
	Skills     map[string]Skill   `json:"pericias,omitempty" yaml:"pericias,omitempty"`
	Attacks    []AttackDefinition `json:"ataques,omitempty" yaml:"ataques,omitempty"`
	Spells     []AttackDefinition `json:"magias,omitempty" yaml:"magias,omitempty"`
	Inventory  map[string][]Item  `json:"inventario,omitempty" yaml:"inventario,omitempty"`
}

// System returns the sheet's system ID, defaulting to the dnd system.
func (r *Record) System() string {
	if s := strings.TrimSpace(r.Info.System); s != "" {
		return s
	}
	return ruleset.DefaultSystem
}

// AttributeScore looks up an attribute by name.
//
// Postcondition: ok is false when the sheet has no such attribute.
func (r *Record) AttributeScore(name string) (int, bool) {
	if strings.TrimSpace(name) == "" {
		return 0, false
	}
	s, ok := names.Lookup(r.Attributes, name)
	return int(s), ok
}

// Score returns the attribute's score, or DefaultScore when it is absent.
func (r *Record) Score(name string) int {
	if s, ok := r.AttributeScore(name); ok {
		return s
	}
	return DefaultScore
}

// Skill looks up a recorded skill by name.
func (r *Record) Skill(name string) (Skill, bool) {
	return names.Lookup(r.Skills, name)
}

// Attack finds an attack or spell by name, attacks first.
func (r *Record) Attack(name string) (AttackDefinition, bool) {
	want := names.Fold(name)
	for _, list := range [][]AttackDefinition{r.Attacks, r.Spells} {
		for _, a := range list {
			if names.Fold(a.Name) == want {
				return a.Normalized(), true
			}
		}
	}
	return AttackDefinition{}, false
}

// Items returns every inventory item, categories in name order.
func (r *Record) Items() []Item {
	cats := make([]string, 0, len(r.Inventory))
	for c := range r.Inventory {
		cats = append(cats, c)
	}
	sort.Strings(cats)
	var out []Item
	for _, c := range cats {
		out = append(out, r.Inventory[c]...)
	}
	return out
}

// ItemByName returns the first item whose name equals name exactly.
func (r *Record) ItemByName(name string) (Item, bool) {
	for _, it := range r.Items() {
		if it.Name == name {
			return it, true
		}
	}
	return Item{}, false
}
