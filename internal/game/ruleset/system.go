// Package ruleset defines the RPG systems the bot knows: how each maps an
// attribute score to a roll modifier and which attribute backs each skill.
// Built-in systems are embedded YAML files; custom systems are loaded from a
// directory at startup.
package ruleset

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Rule selects how a system maps an attribute score to a modifier.
type Rule string

const (
	// RuleHalfMinusTen is floor((score-10)/2), the d20 family rule.
	RuleHalfMinusTen Rule = "half_minus_ten"
	// RuleScore uses the score itself as the modifier.
	RuleScore Rule = "score"
	// RuleZero contributes nothing; percentile systems roll against the score instead.
	RuleZero Rule = "zero"
	// RuleLua evaluates the system's Lua formula.
	RuleLua Rule = "lua"
)

// DefaultSystem is the system whose rule applies to unknown system IDs.
const DefaultSystem = "dnd"

// Apply computes the modifier for score under r. RuleLua and unknown rules
// fall back to RuleHalfMinusTen.
func (r Rule) Apply(score int) int {
	switch r {
	case RuleScore:
		return score
	case RuleZero:
		return 0
	default:
		return floorDiv(score-10, 2)
	}
}

// System is one RPG system definition.
//
// Precondition: ID and Modifier must be non-empty after loading; RuleLua
// systems need Formula or Script.
type System struct {
	ID         string            `yaml:"id"`
	Name       string            `yaml:"name"`
	Aliases    []string          `yaml:"aliases"`
	Modifier   Rule              `yaml:"modifier"`
	Formula    string            `yaml:"formula"` // Lua body, e.g. "return math.floor(score / 3)"
	Script     string            `yaml:"script"`  // Lua file defining modifier(score), relative to the system file
	Attributes []string          `yaml:"attributes"`
	Skills     map[string]string `yaml:"skills"` // skill name -> attribute name

	dir string
}

// Validate checks the definition's invariants.
//
// Postcondition: Returns nil or an error describing every violation.
func (s *System) Validate() error {
	var errs []error
	if strings.TrimSpace(s.ID) == "" {
		errs = append(errs, errors.New("id must not be empty"))
	}
	switch s.Modifier {
	case RuleHalfMinusTen, RuleScore, RuleZero:
	case RuleLua:
		if strings.TrimSpace(s.Formula) == "" && strings.TrimSpace(s.Script) == "" {
			errs = append(errs, errors.New("lua modifier needs a formula or a script"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown modifier rule %q", s.Modifier))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("system %q: %w", s.ID, err)
	}
	return nil
}

// ScriptPath returns the Lua script path resolved against the directory the
// system was loaded from, or "" without a script.
func (s *System) ScriptPath() string {
	if s.Script == "" {
		return ""
	}
	if filepath.IsAbs(s.Script) || s.dir == "" {
		return s.Script
	}
	return filepath.Join(s.dir, s.Script)
}

// ParseSystem decodes a single system definition.
//
// Postcondition: Returns a validated System or a non-nil error.
func ParseSystem(data []byte) (*System, error) {
	var s System
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parsing system: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// LoadSystems reads all .yaml files in dir and parses each as a System.
//
// Precondition: dir must be a readable directory path.
// Postcondition: Returns all parsed systems (may be empty slice) or a non-nil error.
func LoadSystems(dir string) ([]*System, error) {
	systems, err := loadFS(os.DirFS(dir), ".")
	if err != nil {
		return nil, err
	}
	for _, s := range systems {
		s.dir = dir
	}
	return systems, nil
}

func loadFS(fsys fs.FS, dir string) ([]*System, error) {
	files, err := yamlFiles(fsys, dir)
	if err != nil {
		return nil, err
	}
	systems := make([]*System, 0, len(files))
	for _, path := range files {
		data, err := fs.ReadFile(fsys, path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		s, err := ParseSystem(data)
		if err != nil {
			return nil, fmt.Errorf("system file %s: %w", path, err)
		}
		systems = append(systems, s)
	}
	return systems, nil
}

func yamlFiles(fsys fs.FS, dir string) ([]string, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("reading directory %s: %w", dir, err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml") {
			paths = append(paths, filepath.ToSlash(filepath.Join(dir, name)))
		}
	}
	return paths, nil
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
