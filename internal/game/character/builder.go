package character

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Build constructs a Record from a name, a system ID and attribute scores.
//
// Precondition: name must be non-empty.
// Postcondition: Returns a Record with empty skill, attack and inventory
// collections, or a non-nil error.
func Build(name, system string, attributes map[string]int) (*Record, error) {
	if strings.TrimSpace(name) == "" {
		return nil, errors.New("character name must not be empty")
	}
	r := &Record{
		Info:       BasicInfo{Name: name, System: system},
		Attributes: make(map[string]Score, len(attributes)),
		Skills:     make(map[string]Skill),
		Inventory:  make(map[string][]Item),
	}
	for k, v := range attributes {
		r.Attributes[k] = Score(v)
	}
	return r, nil
}

// AddSkill records a trained skill.
func (r *Record) AddSkill(name, baseAttribute string, bonus int) *Record {
	if r.Skills == nil {
		r.Skills = make(map[string]Skill)
	}
	r.Skills[name] = Skill{BaseAttribute: baseAttribute, Bonus: Score(bonus)}
	return r
}

// AddAttack appends an attack.
func (r *Record) AddAttack(a AttackDefinition) *Record {
	r.Attacks = append(r.Attacks, a)
	return r
}

// AddItem appends an item to an inventory category.
func (r *Record) AddItem(category string, it Item) *Record {
	if r.Inventory == nil {
		r.Inventory = make(map[string][]Item)
	}
	r.Inventory[category] = append(r.Inventory[category], it)
	return r
}

// Parse decodes a JSON character document.
//
// Postcondition: Returns a Record or a non-nil error.
func Parse(data []byte) (*Record, error) {
	var r Record
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&r); err != nil {
		return nil, fmt.Errorf("parsing character: %w", err)
	}
	return &r, nil
}

// ParseYAML decodes a YAML character document with the same field names.
func ParseYAML(data []byte) (*Record, error) {
	var r Record
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parsing character: %w", err)
	}
	return &r, nil
}

// LoadFile reads a character from path, as YAML for .yaml/.yml files and
// JSON otherwise.
//
// Precondition: path must be readable.
// Postcondition: Returns a Record or a non-nil error.
func LoadFile(path string) (*Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ParseYAML(data)
	default:
		return Parse(data)
	}
}
