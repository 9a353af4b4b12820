// Package battle runs a declared sequence of attacks followed by a morale pass over a
// consolidated roster, and runs independent battles side by side.
package battle

import (
	"context"
	"errors"
	"fmt"

	"autoresolve/internal/combat"
	"autoresolve/internal/consolidate"
	"autoresolve/internal/dice"
	"autoresolve/internal/formation"
	"autoresolve/internal/logging"
	"autoresolve/internal/morale"
	"autoresolve/internal/replay"
	"autoresolve/internal/report"
)

// ErrUnknownFormation is returned when an attack names a formation the roster did not produce.
var ErrUnknownFormation = errors.New("unknown formation")

// ErrAmbiguousFormation is returned when consolidation produces two formations with the
// same name, so attack orders cannot tell them apart.
var ErrAmbiguousFormation = errors.New("ambiguous formation name")

// AttackOrder is one declared attack. Formations are named as consolidation names them.
type AttackOrder struct {
	Attacker     string
	AttackerUnit int
	Weapon       int
	Target       string
	TargetUnit   int
	Range        int
	Situation    combat.Situation
}

// Spec fully describes one battle.
type Spec struct {
	ID           string
	Scenario     string
	Seed         int64
	Rules        combat.RuleFlags
	Roster       consolidate.Roster
	Consolidator consolidate.Consolidator
	Attacks      []AttackOrder
	MoraleRules  []morale.Rule
}

// Options carry the per-run surroundings of a battle: sinks, logging and replay.
type Options struct {
	// Suppress selects the no-op reporters. Resolution is identical either way.
	Suppress bool
	// ReplayDir, when set, records a replay bundle per battle beneath it.
	ReplayDir string
	// Sink receives every event in addition to the in-memory log. It must be safe for
	// concurrent use when battles run in parallel. Sinks implementing report.BattleScoped
	// get a per-battle view so a shared consumer can tell the streams apart.
	Sink report.Sink
	// Source overrides the seeded dice; tests use scripted sources.
	Source func(spec Spec) dice.Source
}

// MoraleResult records one morale check from the end-of-battle pass.
type MoraleResult struct {
	Formation string
	Rule      string
	Threshold int
	Roll      dice.Roll
	Passed    bool
	Before    formation.MoraleStatus
	After     formation.MoraleStatus
}

// Result is everything a battle produced.
type Result struct {
	ID         string
	Formations []*formation.Formation
	Outcomes   []combat.Outcome
	Morale     []MoraleResult
	Events     []report.Event
	Rolls      uint64
	ReplayDir  string
	ReplayErr  error
}

// Survivors lists the formations still in the fight.
func (r *Result) Survivors() []*formation.Formation {
	var out []*formation.Formation
	for _, f := range r.Formations {
		if !f.Destroyed {
			out = append(out, f)
		}
	}
	return out
}

// Run resolves one battle to completion. Errors are only returned before the first
// attack; once resolution starts it always finishes.
func Run(ctx context.Context, spec Spec, opts Options) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	logger := logging.LoggerFromContext(ctx).ForBattle(spec.ID)

	//1.- Consolidate, compile the morale policy and bind every order before touching state.
	consolidator := spec.Consolidator
	if consolidator == nil {
		consolidator = consolidate.UseCurrentGroups{}
	}
	formations, err := consolidator.Consolidate(spec.Roster)
	if err != nil {
		return nil, fmt.Errorf("battle %s: consolidate: %w", spec.ID, err)
	}
	rules := spec.MoraleRules
	if len(rules) == 0 {
		rules = morale.DefaultRules()
	}
	policy, err := morale.NewPolicy(rules)
	if err != nil {
		return nil, fmt.Errorf("battle %s: %w", spec.ID, err)
	}
	byName := make(map[string]*formation.Formation, len(formations))
	for _, f := range formations {
		if first, dup := byName[f.Name]; dup {
			return nil, fmt.Errorf("battle %s: formations %d and %d are both named %q: %w", spec.ID, first.ID, f.ID, f.Name, ErrAmbiguousFormation)
		}
		byName[f.Name] = f
	}
	contexts := make([]combat.AttackContext, 0, len(spec.Attacks))
	for i, order := range spec.Attacks {
		attacker, ok := byName[order.Attacker]
		if !ok {
			return nil, fmt.Errorf("battle %s: attack %d attacker %q: %w", spec.ID, i+1, order.Attacker, ErrUnknownFormation)
		}
		target, ok := byName[order.Target]
		if !ok {
			return nil, fmt.Errorf("battle %s: attack %d target %q: %w", spec.ID, i+1, order.Target, ErrUnknownFormation)
		}
		contexts = append(contexts, combat.AttackContext{
			Attacker:     attacker,
			AttackerUnit: order.AttackerUnit,
			Weapon:       order.Weapon,
			Target:       target,
			TargetUnit:   order.TargetUnit,
			Range:        order.Range,
			Situation:    order.Situation,
		})
	}

	//2.- Wire dice and sinks. Each battle owns its roller, log and replay writer.
	var source dice.Source
	if opts.Source != nil {
		source = opts.Source(spec)
	}
	roller := dice.NewSeeded(spec.Seed)
	if source != nil {
		roller = dice.NewRoller(source)
	}
	log := report.NewLog()
	shared := opts.Sink
	if scoped, ok := shared.(report.BattleScoped); ok {
		shared = scoped.ForBattle(spec.ID)
	}
	sinks := []report.Sink{log, shared}
	result := &Result{ID: spec.ID, Formations: formations}

	var recorder *replay.Writer
	if opts.ReplayDir != "" {
		recorder, _, err = replay.NewWriter(opts.ReplayDir, spec.ID, nil)
		if err != nil {
			logger.Warn("replay disabled", logging.Error(err))
			result.ReplayErr = err
		} else {
			recorder.SetHeaderMetadata(spec.Scenario, spec.Seed, RuleSet(spec.Rules))
			result.ReplayDir = recorder.Directory()
			sinks = append(sinks, recorder)
		}
	}
	sink := report.Multi(sinks...)
	attacks := combat.NewResolver(roller, report.NewAttackReporter(sink, opts.Suppress), spec.Rules)
	checks := morale.NewResolver(roller, report.NewMoraleReporter(sink, opts.Suppress))
	snapshot := func(label string) {
		if recorder == nil {
			return
		}
		if err := recorder.AppendSnapshot(label, formations); err != nil && result.ReplayErr == nil {
			result.ReplayErr = err
		}
	}

	logger.Info("battle started",
		logging.Int("formations", len(formations)),
		logging.Int("attacks", len(contexts)),
		logging.Int64("seed", spec.Seed))
	snapshot("start")

	//3.- Attacks resolve strictly in declaration order.
	for i := range contexts {
		attack := &contexts[i]
		targetWasUp := !attack.Target.Destroyed
		outcome := attacks.Resolve(attack)
		attack.Attacker.RefreshAggregates()
		attack.Target.RefreshAggregates()
		result.Outcomes = append(result.Outcomes, outcome)
		if logger.Enabled(logging.DebugLevel) {
			logger.Debug("attack resolved", append(outcome.LoggingFields(),
				logging.Int("attack", i+1),
				logging.String("attacker", attack.Attacker.Name),
				logging.String("target", attack.Target.Name))...)
		}
		if targetWasUp && attack.Target.Destroyed {
			logger.Info("formation destroyed", logging.String("formation", attack.Target.Name), logging.Int("attack", i+1))
		}
		snapshot(fmt.Sprintf("attack %d", i+1))
	}

	//4.- One morale pass, then the stress flags reset for the next cycle.
	for _, f := range formations {
		rule, due, err := policy.Due(f)
		if err != nil {
			logger.Warn("morale rule failed", logging.String("formation", f.Name), logging.Error(err))
			continue
		}
		if !due {
			continue
		}
		before := f.Morale
		roll, passed := checks.Check(f, rule.Threshold)
		result.Morale = append(result.Morale, MoraleResult{
			Formation: f.Name,
			Rule:      rule.Name,
			Threshold: rule.Threshold,
			Roll:      roll,
			Passed:    passed,
			Before:    before,
			After:     f.Morale,
		})
	}
	for _, f := range formations {
		f.HighStressEpisode = false
	}
	snapshot("morale")

	if recorder != nil {
		if err := recorder.Close(); err != nil && result.ReplayErr == nil {
			result.ReplayErr = err
		}
		if result.ReplayErr != nil {
			logger.Warn("replay incomplete", logging.Error(result.ReplayErr))
		}
	}
	result.Events = log.Events()
	result.Rolls = roller.Count()
	logger.Info("battle resolved",
		logging.Int("survivors", len(result.Survivors())),
		logging.Int("morale_checks", len(result.Morale)),
		logging.Int("events", len(result.Events)))
	return result, nil
}

// RuleSet flattens the rule flags for replay headers.
func RuleSet(flags combat.RuleFlags) replay.RuleSet {
	return replay.RuleSet{
		"dial_down_damage":       flags.DialDownDamage,
		"altered_damage":         flags.AlteredDamage,
		"extended_range_halving": flags.ExtendedRangeHalving,
		"extreme_range_thirding": flags.ExtremeRangeThirding,
		"direct_blows":           flags.DirectBlows,
		"glancing_blows":         flags.GlancingBlows,
	}
}
