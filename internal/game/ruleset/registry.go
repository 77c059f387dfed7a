package ruleset

import (
	"embed"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/cory-johannsen/dicebot/internal/game/names"
	"github.com/cory-johannsen/dicebot/internal/scripting"
)

//go:embed systems/*.yaml
var builtinFS embed.FS

var (
	builtinOnce sync.Once
	builtins    []*System
	builtinErr  error
)

// Builtins returns the embedded system definitions.
//
// Postcondition: Returns the same parsed slice on every call; panics if the
// embedded files are invalid, which is a build defect.
func Builtins() []*System {
	builtinOnce.Do(func() {
		builtins, builtinErr = loadFS(builtinFS, "systems")
	})
	if builtinErr != nil {
		panic("ruleset: embedded systems invalid: " + builtinErr.Error())
	}
	return builtins
}

// Modifier maps score to a modifier under the built-in rule of systemID.
// Unknown systems use the dnd rule; custom systems need a Registry.
func Modifier(systemID string, score int) int {
	id := names.Identifier(systemID)
	for _, s := range Builtins() {
		if s.ID == id || containsFolded(s.Aliases, id) {
			return s.Modifier.Apply(score)
		}
	}
	return RuleHalfMinusTen.Apply(score)
}

// Registry resolves system IDs and aliases to System definitions and
// computes modifiers, including Lua formulas of custom systems.
//
// Registry is safe for concurrent use after all Register calls complete.
type Registry struct {
	systems map[string]*System // keyed by ID and every alias, folded
	ids     []string
	scripts *scripting.Manager
	logger  *zap.Logger
}

// NewRegistry returns a Registry holding the built-in systems.
//
// Precondition: logger must be non-nil; scripts may be nil when no custom
// system uses a Lua rule.
// Postcondition: Every built-in system is resolvable by ID and alias.
func NewRegistry(scripts *scripting.Manager, logger *zap.Logger) *Registry {
	r := &Registry{
		systems: make(map[string]*System),
		scripts: scripts,
		logger:  logger,
	}
	for _, s := range Builtins() {
		if err := r.Register(s); err != nil {
			panic("ruleset: registering built-in system: " + err.Error())
		}
	}
	return r
}

// Register adds s, replacing any system with the same ID or alias. A Lua
// rule is compiled into the script manager under s.ID.
//
// Precondition: s must be non-nil and valid.
// Postcondition: s is resolvable via System by ID and aliases, or an error is returned.
func (r *Registry) Register(s *System) error {
	if s == nil {
		panic("Registry.Register: precondition violated: system must be non-nil")
	}
	if err := s.Validate(); err != nil {
		return err
	}
	id := names.Identifier(s.ID)
	if s.Modifier == RuleLua {
		if r.scripts == nil {
			return fmt.Errorf("system %q: lua modifier requires a script manager", s.ID)
		}
		var err error
		if path := s.ScriptPath(); path != "" {
			err = r.scripts.LoadFile(id, path)
		} else {
			err = r.scripts.LoadFormula(id, s.Formula)
		}
		if err != nil {
			return fmt.Errorf("system %q: %w", s.ID, err)
		}
	}

	if _, exists := r.systems[id]; !exists {
		r.ids = append(r.ids, id)
		sort.Strings(r.ids)
	}
	r.systems[id] = s
	for _, alias := range s.Aliases {
		r.systems[names.Identifier(alias)] = s
	}
	r.logger.Debug("system registered",
		zap.String("system", id),
		zap.String("rule", string(s.Modifier)),
	)
	return nil
}

// LoadDir registers every system file in dir.
//
// Postcondition: Returns the number of systems registered, or the first error.
func (r *Registry) LoadDir(dir string) (int, error) {
	systems, err := LoadSystems(dir)
	if err != nil {
		return 0, err
	}
	for _, s := range systems {
		if err := r.Register(s); err != nil {
			return 0, err
		}
	}
	r.logger.Info("custom systems loaded", zap.String("dir", dir), zap.Int("count", len(systems)))
	return len(systems), nil
}

// System resolves id or an alias, tolerating case and accents.
func (r *Registry) System(id string) (*System, bool) {
	s, ok := r.systems[names.Identifier(id)]
	return s, ok
}

// IDs returns the registered system IDs in sorted order.
func (r *Registry) IDs() []string {
	return append([]string(nil), r.ids...)
}

// Modifier maps score to a modifier under systemID's rule.
//
// Postcondition: Unknown systems and failing Lua formulas use the dnd rule.
func (r *Registry) Modifier(systemID string, score int) int {
	s, ok := r.System(systemID)
	if !ok {
		return RuleHalfMinusTen.Apply(score)
	}
	if s.Modifier != RuleLua {
		return s.Modifier.Apply(score)
	}
	mod, err := r.scripts.Modifier(names.Identifier(s.ID), score)
	if err != nil {
		r.logger.Warn("lua modifier failed, using dnd rule",
			zap.String("system", s.ID),
			zap.Int("score", score),
			zap.Error(err),
		)
		return RuleHalfMinusTen.Apply(score)
	}
	return mod
}

// SkillAttribute returns the default attribute backing skill in systemID.
// Unknown systems use the dnd table.
//
// Postcondition: ok is false when the system has no entry for skill.
func (r *Registry) SkillAttribute(systemID, skill string) (string, bool) {
	s, ok := r.System(systemID)
	if !ok {
		s, ok = r.System(DefaultSystem)
		if !ok {
			return "", false
		}
	}
	return names.Lookup(s.Skills, skill)
}

func containsFolded(list []string, id string) bool {
	for _, v := range list {
		if names.Identifier(v) == id {
			return true
		}
	}
	return false
}
