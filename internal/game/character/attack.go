package character

import "strings"

// Crit defaults and bounds.
const (
	DefaultCritRange      = 20
	MinCritRange          = 2
	DefaultCritMultiplier = 2
)

// AttackDefinition is an attack or spell on a character sheet.
//
// ToHit and Damage may reference the attribute modifier as MOD. When Attribute
// is set and ToHit has no MOD, the modifier is appended to ToHit, so a formula
// that already spells out the bonus ("1d20+5") gets it twice; write "1d20+MOD"
// or leave Attribute empty. Damage always receives the modifier once, through
// MOD or by addition.
type AttackDefinition struct {
	Name           string   `json:"nome" yaml:"nome"`
	ToHit          string   `json:"acerto" yaml:"acerto"`
	Damage         string   `json:"dano,omitempty" yaml:"dano,omitempty"`
	DamageType     string   `json:"tipo_dano,omitempty" yaml:"tipo_dano,omitempty"`
	CritRange      Score    `json:"margem_critico,omitempty" yaml:"margem_critico,omitempty"`
	CritMultiplier Score    `json:"multiplicador_critico,omitempty" yaml:"multiplicador_critico,omitempty"`
	LinkedItems    []string `json:"itens_vinculados,omitempty" yaml:"itens_vinculados,omitempty"`
	Attribute      string   `json:"atributo,omitempty" yaml:"atributo,omitempty"`
	Effects        string   `json:"efeitos,omitempty" yaml:"efeitos,omitempty"`
}

// Normalized returns a copy with defaults applied: an unset crit range
// becomes 20 and is clamped to [2, 20]; a multiplier below 1 becomes 2.
//
// Postcondition: MinCritRange <= CritRange <= 20 and CritMultiplier >= 1.
func (a AttackDefinition) Normalized() AttackDefinition {
	switch {
	case a.CritRange == 0:
		a.CritRange = DefaultCritRange
	case a.CritRange < MinCritRange:
		a.CritRange = MinCritRange
	case a.CritRange > DefaultCritRange:
		a.CritRange = DefaultCritRange
	}
	if a.CritMultiplier < 1 {
		a.CritMultiplier = DefaultCritMultiplier
	}
	a.ToHit = strings.TrimSpace(a.ToHit)
	a.Damage = strings.TrimSpace(a.Damage)
	return a
}
