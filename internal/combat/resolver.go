package combat

import (
	"autoresolve/internal/dice"
	"autoresolve/internal/formation"
	"autoresolve/internal/logging"
	"autoresolve/internal/report"
)

const (
	// DestructionRoll is the 2d6 total that destroys a stressed unit outright.
	DestructionRoll = 10
	// TargetingCritRoll and DamageCritRoll are the lowest crit rolls for each effect.
	TargetingCritRoll = 8
	DamageCritRoll    = 10
)

// State is a step of the attack state machine.
type State string

const (
	StateStart     State = "start"
	StateEvaluated State = "evaluated"
	StateRolled    State = "rolled"
	StateMiss      State = "miss"
	StateHit       State = "hit"
	StateStress    State = "stress"
	StateCritical  State = "critical"
	StateTerminal  State = "terminal"
)

// Crit names the critical effect a hit produced.
type Crit string

const (
	CritNone      Crit = ""
	CritTargeting Crit = "targeting"
	CritDamage    Crit = "damage"
)

// Outcome summarises one resolved attack.
type Outcome struct {
	Path               []State
	ToHit              ToHitProfile
	Roll               dice.Roll
	CannotSucceed      bool
	Hit                bool
	Glancing           bool
	Damage             int
	Exploded           bool
	Stressed           bool
	UnitDestroyed      bool
	FormationDestroyed bool
	Crit               Crit
	Crippled           bool
}

// LoggingFields flattens the outcome for structured logs.
func (o Outcome) LoggingFields() []logging.Field {
	fields := []logging.Field{
		logging.Int("to_hit", o.ToHit.Value),
		logging.Int("roll", o.Roll.Total()),
		logging.Bool("hit", o.Hit),
		logging.Int("damage", o.Damage),
	}
	if o.CannotSucceed {
		fields = append(fields, logging.String("cannot_succeed", o.ToHit.Reason))
	}
	if o.Exploded {
		fields = append(fields, logging.Bool("exploded", true))
	}
	if o.UnitDestroyed {
		fields = append(fields, logging.Bool("unit_destroyed", true))
	}
	if o.Crit != CritNone {
		fields = append(fields, logging.String("crit", string(o.Crit)))
	}
	return fields
}

// Resolver drives attacks through the state machine. It owns no formation state; all
// mutation goes through the AttackContext it is handed.
type Resolver struct {
	roller   *dice.Roller
	reporter report.AttackReporter
	flags    RuleFlags
	checks   []Check
}

// NewResolver builds a resolver with the default post-roll checks.
func NewResolver(roller *dice.Roller, reporter report.AttackReporter, flags RuleFlags) *Resolver {
	if reporter == nil {
		reporter = report.NopAttackReporter{}
	}
	return &Resolver{roller: roller, reporter: reporter, flags: flags, checks: DefaultChecks()}
}

// WithChecks replaces the post-roll check list.
func (r *Resolver) WithChecks(checks ...Check) *Resolver {
	r.checks = append([]Check(nil), checks...)
	return r
}

// Flags returns the rule flags in force.
func (r *Resolver) Flags() RuleFlags {
	return r.flags
}

// Resolve runs one attack to completion, mutating the formations in ctx.
func (r *Resolver) Resolve(ctx *AttackContext) Outcome {
	out := Outcome{Path: []State{StateStart}}

	//1.- Evaluate and announce.
	ctx.ToHit = EvaluateToHit(*ctx, r.flags)
	out.ToHit = ctx.ToHit
	out.Path = append(out.Path, StateEvaluated)
	r.reporter.AttackStart(ctx.Attacker, ctx.AttackerUnit, ctx.Target)
	if ctx.ToHit.CannotSucceed {
		r.reporter.CannotSucceed(ctx.ToHit.Reason)
		out.CannotSucceed = true
		return r.finish(out)
	}

	//2.- Roll and run the post-roll checks before hit or miss is known to the log.
	r.reporter.ToHitValue(ctx.ToHit.Value, ctx.ToHit.String())
	ctx.Roll = r.roller.Roll2D6()
	ctx.ToHit = ctx.ToHit.WithRoll(ctx.Roll.Total())
	out.Roll = ctx.Roll
	out.ToHit = ctx.ToHit
	out.Path = append(out.Path, StateRolled)
	r.reporter.AttackRoll(ctx.Roll, ctx.Attacker)

	for _, check := range r.checks {
		result := check.Run(ctx, r.reporter)
		if check.Name == PulseExplosion && result != CheckNoEffect {
			out.Exploded = true
		}
		if result == CheckTerminal {
			return r.finish(out)
		}
	}

	//3.- Hit or miss.
	if ctx.Roll.Total() < ctx.ToHit.Value {
		r.reporter.AttackMiss()
		out.Path = append(out.Path, StateMiss)
		return r.finish(out)
	}
	r.reporter.AttackHit()
	out.Hit = true
	out.Path = append(out.Path, StateHit)
	ctx.Glancing = r.flags.GlancingBlows && ctx.Roll.Total() == ctx.ToHit.Value
	out.Glancing = ctx.Glancing

	//4.- Damage lands on armor first, then structure.
	target := ctx.TargetedUnit()
	armorBefore := target.Armor
	out.Damage = CalculateDamage(*ctx, r.flags)
	target.ApplyDamage(out.Damage)
	r.reporter.DamageDealt(target, out.Damage, target.Armor)

	if armorBefore > 0 && target.Armor == 0 {
		r.resolveStress(ctx, target, &out)
		if out.UnitDestroyed {
			return r.finish(out)
		}
	} else if target.Structure == 0 {
		destroyUnit(ctx.Target, target, r.reporter)
		out.UnitDestroyed = true
		out.FormationDestroyed = ctx.Target.Destroyed
		return r.finish(out)
	}

	r.resolveCritical(target, &out)
	return r.finish(out)
}

func (r *Resolver) resolveStress(ctx *AttackContext, target *formation.Unit, out *Outcome) {
	r.reporter.StressEpisode()
	ctx.Target.HighStressEpisode = true
	out.Stressed = true
	out.Path = append(out.Path, StateStress)

	roll := r.roller.Roll2D6()
	if target.Structure > 0 && roll.Total() < DestructionRoll {
		return
	}
	destroyUnit(ctx.Target, target, r.reporter)
	out.UnitDestroyed = true
	out.FormationDestroyed = ctx.Target.Destroyed
}

func (r *Resolver) resolveCritical(target *formation.Unit, out *Outcome) {
	r.reporter.CriticalCheck()
	out.Path = append(out.Path, StateCritical)

	roll := r.roller.Roll2D6().Total()
	switch {
	case roll >= DamageCritRoll:
		target.DamageCrits++
		out.Crit = CritDamage
		r.reporter.DamageCrit(target)
	case roll >= TargetingCritRoll:
		target.TargetingCrits++
		out.Crit = CritTargeting
		r.reporter.TargetingCrit(target)
	default:
		r.reporter.NoCrit()
		return
	}

	if !target.Crippled && crippled(target) {
		target.Crippled = true
		out.Crippled = true
		r.reporter.UnitCrippled(target)
	}
}

func crippled(unit *formation.Unit) bool {
	return unit.DamageCrits >= 2 ||
		unit.TargetingCrits >= 3 ||
		(unit.MaxStructure > 0 && unit.Structure*2 <= unit.MaxStructure)
}

func (r *Resolver) finish(out Outcome) Outcome {
	out.Path = append(out.Path, StateTerminal)
	return out
}
