package combat

import (
	"autoresolve/internal/formation"
	"autoresolve/internal/report"
)

// CheckResult is what a post-roll check did to the attack.
type CheckResult int

const (
	// CheckNoEffect means the check did not apply.
	CheckNoEffect CheckResult = iota
	// CheckContinue means a side effect was applied and resolution goes on.
	CheckContinue
	// CheckTerminal ends the attack after the check.
	CheckTerminal
)

func (r CheckResult) String() string {
	switch r {
	case CheckContinue:
		return "continue"
	case CheckTerminal:
		return "terminal"
	default:
		return "no_effect"
	}
}

// Check runs after the to-hit roll and before hit or miss is reported.
type Check struct {
	Name string
	Run  func(ctx *AttackContext, reporter report.AttackReporter) CheckResult
}

// DefaultChecks returns the standard post-roll checks in evaluation order.
func DefaultChecks() []Check {
	return []Check{PulseExplosionCheck()}
}

// PulseExplosion names the pulse-mode explosion check.
const PulseExplosion = "pulse_explosion"

// PulseExplosionCheck blows up a weapon firing in a pulse mode on a natural 2.
func PulseExplosionCheck() Check {
	return Check{Name: PulseExplosion, Run: runPulseExplosion}
}

func runPulseExplosion(ctx *AttackContext, reporter report.AttackReporter) CheckResult {
	weapon := ctx.FiringWeapon()
	if weapon == nil || ctx.Roll.Total() != 2 || !weapon.CurrentMode().IsPulse() {
		return CheckNoEffect
	}
	unit := ctx.AttackingUnit()
	reporter.WeaponExplosion(unit, weapon.Name)
	weapon.Disabled = true

	if weapon.Linked != nil && weapon.Linked.ExplosionDamage > 0 {
		unit.ApplyDamage(weapon.Linked.ExplosionDamage)
		reporter.ExplosionDamage(unit, weapon.Linked.Name, weapon.Linked.ExplosionDamage)
		destroyUnitIfGutted(ctx.Attacker, unit, reporter)
	}
	return CheckContinue
}

// destroyUnitIfGutted marks a unit with no structure left as destroyed.
func destroyUnitIfGutted(owner *formation.Formation, unit *formation.Unit, reporter report.AttackReporter) bool {
	if unit.Destroyed || unit.Structure > 0 {
		return false
	}
	destroyUnit(owner, unit, reporter)
	return true
}

func destroyUnit(owner *formation.Formation, unit *formation.Unit, reporter report.AttackReporter) {
	unit.Destroyed = true
	reporter.UnitDestroyed(unit)
	if owner.RefreshDestroyed() {
		reporter.FormationDestroyed(owner)
	}
}
