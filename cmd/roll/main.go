// Package main provides the roll binary: it evaluates a dice expression, an
// attack from a character sheet, or an attribute/skill check, and prints the
// breakdown.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"

	"go.uber.org/zap"

	"github.com/cory-johannsen/dicebot/internal/config"
	"github.com/cory-johannsen/dicebot/internal/game/breakdown"
	"github.com/cory-johannsen/dicebot/internal/game/character"
	"github.com/cory-johannsen/dicebot/internal/game/check"
	"github.com/cory-johannsen/dicebot/internal/game/combat"
	"github.com/cory-johannsen/dicebot/internal/game/dice"
	"github.com/cory-johannsen/dicebot/internal/game/engine"
	"github.com/cory-johannsen/dicebot/internal/game/ruleset"
	"github.com/cory-johannsen/dicebot/internal/observability"
	"github.com/cory-johannsen/dicebot/internal/scripting"
)

func main() {
	configPath := flag.String("config", "", "path to configuration file; empty = defaults and DICEBOT_ environment")
	sheetPath := flag.String("character", "", "path to a JSON or YAML character sheet")
	attackName := flag.String("attack", "", "attack or spell on the sheet to roll")
	skill := flag.String("skill", "", "skill to check")
	attribute := flag.String("attribute", "", "attribute to check")
	system := flag.String("system", "", "RPG system for checks; empty = the sheet's system")
	temp := flag.String("temp", "", "ad-hoc check modifier, e.g. +2 or 1d4")
	adv := flag.String("adv", "", "advantage state: adv, dis or empty")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	scripts := scripting.NewManager(logger, cfg.Rules.ScriptInstructionLimit)
	defer scripts.Close()

	rules := ruleset.NewRegistry(scripts, logger)
	if cfg.Rules.SystemsDir != "" {
		if _, err := rules.LoadDir(cfg.Rules.SystemsDir); err != nil {
			logger.Fatal("loading custom systems", zap.Error(err))
		}
	}

	roller := dice.NewLoggedRoller(newSource(cfg.Engine), logger)
	eng := engine.New(roller, cfg.Engine, breakdown.LabelsForLocale(cfg.Rules.Locale), logger)
	advantage := dice.ParseAdvantage(*adv)

	switch {
	case *attackName != "":
		rec := mustLoadSheet(logger, *sheetPath)
		attack, ok := rec.Attack(*attackName)
		if !ok {
			logger.Fatal("attack not on sheet", zap.String("attack", *attackName))
		}
		out := combat.NewResolver(eng, rules, logger).ExecuteAttackRoll(ctx, rec, attack, advantage)
		printAttack(eng.Labels(), out)

	case *skill != "" || *attribute != "":
		var rec *character.Record
		if *sheetPath != "" {
			rec = mustLoadSheet(logger, *sheetPath)
		}
		res := check.NewResolver(eng, rules, logger).ExecuteAttributeCheck(ctx, rec, check.Request{
			System:       *system,
			Skill:        *skill,
			Attribute:    *attribute,
			Advantage:    advantage,
			TempModifier: *temp,
		})
		fmt.Println(res.Title)
		fmt.Println(res.Breakdown)

	default:
		expr := strings.Join(flag.Args(), " ")
		if expr == "" {
			fmt.Fprintln(os.Stderr, "usage: roll [flags] <expression>")
			flag.PrintDefaults()
			os.Exit(2)
		}
		_, text := eng.RollDice(ctx, dice.ApplyAdvantage(expr, advantage))
		fmt.Println(text)
	}
}

func loadConfig(path string) (config.Config, error) {
	if path == "" {
		return config.Default()
	}
	return config.Load(path)
}

// newSource returns a seeded source when cfg.Seed is set, for reproducible
// rolls, and the crypto source otherwise.
func newSource(cfg config.EngineConfig) dice.Source {
	if cfg.Seed != 0 {
		return dice.NewSeededSource(cfg.Seed)
	}
	return dice.NewCryptoSource()
}

func mustLoadSheet(logger *zap.Logger, path string) *character.Record {
	if path == "" {
		logger.Fatal("a character sheet is required (-character)")
	}
	rec, err := character.LoadFile(path)
	if err != nil {
		logger.Fatal("loading character sheet", zap.String("path", path), zap.Error(err))
	}
	return rec
}

func printAttack(l breakdown.Labels, out combat.Outcome) {
	title := out.Name
	if out.IsCritical {
		title += " " + l.Critical
	}
	fmt.Println(title)
	fmt.Printf("%s:\n%s\n", l.Attack, out.HitText)
	if out.DamageText != "" {
		damage := l.Damage
		if out.DamageType != "" {
			damage += " (" + out.DamageType + ")"
		}
		fmt.Printf("%s:\n%s\n", damage, out.DamageText)
	}
	if out.Effects != "" {
		fmt.Println(out.Effects)
	}
}
