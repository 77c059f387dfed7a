// Package config provides Viper-based configuration loading for the dice bot.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/cory-johannsen/dicebot/internal/game/dice"
)

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// Format is the log output format: "json" or "console".
	Format string `mapstructure:"format"`
	// Output is "stderr", "stdout" or a file path; empty means stderr.
	// Roll results go to stdout, so logs default away from it.
	Output string `mapstructure:"output"`
}

// EngineConfig holds the cost bounds of the roll engine.
type EngineConfig struct {
	// MaxLength, MaxDiceTerms and MaxOperators route an expression to the
	// fallback chain when any is exceeded.
	MaxLength    int `mapstructure:"max_length"`
	MaxDiceTerms int `mapstructure:"max_dice_terms"`
	MaxOperators int `mapstructure:"max_operators"`

	MaxDicePerTerm int `mapstructure:"max_dice_per_term"`
	MaxFaces       int `mapstructure:"max_faces"`
	MaxExplosions  int `mapstructure:"max_explosions"`
	MaxTotalDice   int `mapstructure:"max_total_dice"`

	// FastPath* select the normalizer's minimal-fixup fast path.
	FastPathLength int `mapstructure:"fast_path_length"`
	FastPathStars  int `mapstructure:"fast_path_stars"`
	FastPathPluses int `mapstructure:"fast_path_pluses"`

	// MaxRepeat caps the N of "N#expr".
	MaxRepeat int `mapstructure:"max_repeat"`
	// Workers bounds concurrent evaluations.
	Workers int `mapstructure:"workers"`
	// EvalTimeout is the wall-clock guard around a single evaluation.
	EvalTimeout time.Duration `mapstructure:"eval_timeout"`
	// Seed selects a deterministic dice source when non-zero.
	Seed uint64 `mapstructure:"seed"`
}

// Limits converts the engine settings into evaluator limits.
func (e EngineConfig) Limits() dice.Limits {
	return dice.Limits{
		MaxDicePerTerm: e.MaxDicePerTerm,
		MaxFaces:       e.MaxFaces,
		MaxExplosions:  e.MaxExplosions,
		MaxTotalDice:   e.MaxTotalDice,
		FastPathLength: e.FastPathLength,
		FastPathStars:  e.FastPathStars,
		FastPathPluses: e.FastPathPluses,
	}
}

// RulesConfig holds RPG system rule settings.
type RulesConfig struct {
	// SystemsDir is an optional directory of custom system YAML files.
	SystemsDir string `mapstructure:"systems_dir"`
	// ScriptInstructionLimit bounds each Lua modifier formula.
	ScriptInstructionLimit int `mapstructure:"script_instruction_limit"`
	// Locale selects the output labels, e.g. "pt-BR" or "en".
	Locale string `mapstructure:"locale"`
}

// Config is the top-level application configuration.
type Config struct {
	Logging LoggingConfig `mapstructure:"logging"`
	Engine  EngineConfig  `mapstructure:"engine"`
	Rules   RulesConfig   `mapstructure:"rules"`
}

// Validate checks all configuration invariants.
//
// Postcondition: Returns nil if configuration is valid, or an error describing all violations.
func (c Config) Validate() error {
	var errs []string

	if err := validateLogging(c.Logging); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateEngine(c.Engine); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateRules(c.Rules); err != nil {
		errs = append(errs, err.Error())
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validateLogging(l LoggingConfig) error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[l.Level] {
		return fmt.Errorf("logging.level must be one of [debug, info, warn, error], got %q", l.Level)
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("logging.format must be one of [json, console], got %q", l.Format)
	}
	return nil
}

func validateEngine(e EngineConfig) error {
	var errs []string
	positive := []struct {
		name  string
		value int
	}{
		{"engine.max_length", e.MaxLength},
		{"engine.max_dice_terms", e.MaxDiceTerms},
		{"engine.max_operators", e.MaxOperators},
		{"engine.max_dice_per_term", e.MaxDicePerTerm},
		{"engine.max_faces", e.MaxFaces},
		{"engine.max_total_dice", e.MaxTotalDice},
		{"engine.fast_path_length", e.FastPathLength},
		{"engine.max_repeat", e.MaxRepeat},
		{"engine.workers", e.Workers},
	}
	for _, p := range positive {
		if p.value < 1 {
			errs = append(errs, fmt.Sprintf("%s must be >= 1, got %d", p.name, p.value))
		}
	}
	if e.MaxExplosions < 0 {
		errs = append(errs, fmt.Sprintf("engine.max_explosions must be >= 0, got %d", e.MaxExplosions))
	}
	if e.FastPathStars < 0 || e.FastPathPluses < 0 {
		errs = append(errs, "engine.fast_path_stars and engine.fast_path_pluses must not be negative")
	}
	if e.MaxDicePerTerm > e.MaxTotalDice {
		errs = append(errs, "engine.max_dice_per_term must not exceed engine.max_total_dice")
	}
	if e.EvalTimeout <= 0 {
		errs = append(errs, "engine.eval_timeout must be positive")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateRules(r RulesConfig) error {
	if r.ScriptInstructionLimit < 0 {
		return errors.New("rules.script_instruction_limit must not be negative")
	}
	if strings.TrimSpace(r.Locale) == "" {
		return errors.New("rules.locale must not be empty")
	}
	return nil
}

// Load reads configuration from the given file path, applies environment variable
// overrides, and validates the result.
//
// Precondition: path must be a valid file path to a YAML configuration file.
// Postcondition: Returns a valid Config or a non-nil error.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	// Environment variable overrides with DICEBOT_ prefix
	v.SetEnvPrefix("DICEBOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}

	return LoadFromViper(v)
}

// Default returns the configuration built from defaults and environment
// overrides alone, for callers that run without a config file.
//
// Postcondition: Returns a valid Config or a non-nil error.
func Default() (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("DICEBOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return LoadFromViper(v)
}

// LoadFromViper builds a Config from an already-configured Viper instance.
//
// Precondition: v must be non-nil and have configuration values set.
// Postcondition: Returns a valid Config or a non-nil error.
func LoadFromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stderr")

	lim := dice.DefaultLimits()
	v.SetDefault("engine.max_length", 100)
	v.SetDefault("engine.max_dice_terms", 10)
	v.SetDefault("engine.max_operators", 15)
	v.SetDefault("engine.max_dice_per_term", lim.MaxDicePerTerm)
	v.SetDefault("engine.max_faces", lim.MaxFaces)
	v.SetDefault("engine.max_explosions", lim.MaxExplosions)
	v.SetDefault("engine.max_total_dice", lim.MaxTotalDice)
	v.SetDefault("engine.fast_path_length", lim.FastPathLength)
	v.SetDefault("engine.fast_path_stars", lim.FastPathStars)
	v.SetDefault("engine.fast_path_pluses", lim.FastPathPluses)
	v.SetDefault("engine.max_repeat", 20)
	v.SetDefault("engine.workers", 8)
	v.SetDefault("engine.eval_timeout", "2s")
	v.SetDefault("engine.seed", 0)

	v.SetDefault("rules.systems_dir", "")
	v.SetDefault("rules.script_instruction_limit", 10000)
	v.SetDefault("rules.locale", "pt-BR")
}
