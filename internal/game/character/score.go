package character

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Score is an integer sheet value that decodes from a number or a numeric
// string ("16", "+2", "14.0").
type Score int

// UnmarshalJSON implements json.Unmarshaler.
func (s *Score) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	v, err := scoreOf(raw)
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (s *Score) UnmarshalYAML(node *yaml.Node) error {
	var raw any
	if err := node.Decode(&raw); err != nil {
		return err
	}
	v, err := scoreOf(raw)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*s = v
	return nil
}

func scoreOf(raw any) (Score, error) {
	switch v := raw.(type) {
	case nil:
		return 0, nil
	case float64:
		return Score(math.Trunc(v)), nil
	case int:
		return Score(v), nil
	case string:
		t := strings.TrimSpace(v)
		if t == "" {
			return 0, nil
		}
		if n, err := strconv.Atoi(t); err == nil {
			return Score(n), nil
		}
		if f, err := strconv.ParseFloat(t, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
			return Score(math.Trunc(f)), nil
		}
		return 0, fmt.Errorf("score %q is not a number", v)
	}
	return 0, fmt.Errorf("score of type %T is not a number", raw)
}

// UnmarshalJSON accepts the {atributo_base, bonus} object or the legacy
// plain string naming the base attribute.
func (s *Skill) UnmarshalJSON(data []byte) error {
	var legacy string
	if err := json.Unmarshal(data, &legacy); err == nil {
		*s = Skill{BaseAttribute: strings.TrimSpace(legacy)}
		return nil
	}
	type plain Skill
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("skill: %w", err)
	}
	*s = Skill(p)
	return nil
}

// UnmarshalYAML accepts the same two shapes as UnmarshalJSON.
func (s *Skill) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		*s = Skill{BaseAttribute: strings.TrimSpace(node.Value)}
		return nil
	}
	type plain Skill
	var p plain
	if err := node.Decode(&p); err != nil {
		return fmt.Errorf("skill: %w", err)
	}
	*s = Skill(p)
	return nil
}
