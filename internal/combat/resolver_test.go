package combat

import (
	"reflect"
	"testing"

	"autoresolve/internal/dice"
	"autoresolve/internal/formation"
	"autoresolve/internal/report"
)

func testWeapon() formation.WeaponProfile {
	return formation.WeaponProfile{
		Name:          "Large Laser",
		Damage:        5,
		Ranges:        formation.RangeBrackets{Short: 3, Medium: 6, Long: 9, Extreme: 12},
		InfantryClass: formation.ClassDirectFire,
	}
}

func testFormation(id int, name string, unit *formation.Unit) *formation.Formation {
	return &formation.Formation{ID: id, Name: name, Units: []*formation.Unit{unit}}
}

func testAttack(weapon formation.WeaponProfile, distance int) *AttackContext {
	attacker := testFormation(1, "Alpha", &formation.Unit{
		ID: 10, Name: "Warhammer", Kind: formation.KindMek, Skill: 4,
		Armor: 20, MaxArmor: 20, Structure: 10, MaxStructure: 10,
		Weapons: []formation.WeaponProfile{weapon},
	})
	target := testFormation(2, "Bravo", &formation.Unit{
		ID: 20, Name: "Locust", Kind: formation.KindMek, Skill: 4,
		Armor: 10, MaxArmor: 10, Structure: 6, MaxStructure: 6,
	})
	return &AttackContext{Attacker: attacker, Target: target, Range: distance}
}

func resolveWith(t *testing.T, ctx *AttackContext, flags RuleFlags, faces ...int) (Outcome, *report.Log, *dice.ScriptSource) {
	t.Helper()
	log := report.NewLog()
	src := dice.NewScriptSource(faces...)
	resolver := NewResolver(dice.NewRoller(src), report.NewAttackReporter(log, false), flags)
	return resolver.Resolve(ctx), log, src
}

func TestScenarioPlainHitWithoutCrit(t *testing.T) {
	//1.- Skill 4 at long range gives a target number of 8; roll 9 hits, crit roll 5 fails.
	ctx := testAttack(testWeapon(), 8)
	out, log, src := resolveWith(t, ctx, RuleFlags{}, dice.Pair(9, 5)...)

	if out.ToHit.Value != 8 || !out.Hit || out.Damage != 5 {
		t.Fatalf("unexpected outcome %+v", out)
	}
	if got := ctx.TargetedUnit().Armor; got != 5 {
		t.Fatalf("expected 5 armor remaining, got %d", got)
	}
	want := []int{
		report.CodeAttackStart, report.CodeToHitValue, report.CodeAttackRoll, report.CodeAttackHit,
		report.CodeDamageDealt, report.CodeCriticalCheck, report.CodeNoCrit,
	}
	if got := log.Codes(); !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected codes %v, want %v", got, want)
	}
	if src.Remaining() != 0 {
		t.Fatalf("expected every scripted die to be consumed")
	}
}

func TestScenarioPulseExplosionOnMiss(t *testing.T) {
	weapon := testWeapon()
	weapon.Modes = []formation.FiringMode{{Name: "Standard"}, {Name: "Pulse"}}
	weapon.Mode = 1
	weapon.Linked = &formation.LinkedEquipment{Name: "Capacitor", ExplosionDamage: 3}
	ctx := testAttack(weapon, 8)

	out, log, _ := resolveWith(t, ctx, RuleFlags{}, dice.Pair(2)...)

	if !out.Exploded || out.Hit {
		t.Fatalf("expected explosion and miss, got %+v", out)
	}
	if !ctx.FiringWeapon().Disabled {
		t.Fatalf("exploded weapon should be disabled")
	}
	if got := ctx.AttackingUnit().Armor; got != 17 {
		t.Fatalf("expected linked equipment damage on the firing unit, armor %d", got)
	}
	want := []int{
		report.CodeAttackStart, report.CodeToHitValue, report.CodeAttackRoll,
		report.CodeWeaponExplosion, report.CodeExplosionDamage, report.CodeAttackMiss,
	}
	if got := log.Codes(); !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected codes %v, want %v", got, want)
	}
}

func TestExplosionPrecedesHitReport(t *testing.T) {
	weapon := testWeapon()
	weapon.Modes = []formation.FiringMode{{Name: "Pulse"}}
	ctx := testAttack(weapon, 0)
	ctx.AttackingUnit().Skill = 2

	out, log, _ := resolveWith(t, ctx, RuleFlags{}, dice.Pair(2, 2)...)
	if !out.Exploded || !out.Hit {
		t.Fatalf("expected explosion and hit, got %+v", out)
	}
	codes := log.Codes()
	if codes[3] != report.CodeWeaponExplosion || codes[4] != report.CodeAttackHit {
		t.Fatalf("explosion must be reported before the hit: %v", codes)
	}
}

func TestScenarioInfantryDirectBlow(t *testing.T) {
	//1.- Medium range: 4 + 2 = 6, roll 9 gives margin 3 and a direct blow.
	ctx := testAttack(testWeapon(), 5)
	infantry := ctx.TargetedUnit()
	infantry.Kind = formation.KindConventionalInfantry
	infantry.Armor, infantry.MaxArmor = 0, 0
	infantry.Structure, infantry.MaxStructure = 20, 20

	out, _, _ := resolveWith(t, ctx, RuleFlags{DirectBlows: true}, dice.Pair(9, 5)...)
	if out.ToHit.MarginOfSuccess != 3 {
		t.Fatalf("expected margin 3, got %d", out.ToHit.MarginOfSuccess)
	}
	// 5/10 + 1 rounds up to 2; the generic path would have produced 6.
	if out.Damage != 2 {
		t.Fatalf("expected infantry conversion damage 2, got %d", out.Damage)
	}
}

func TestCannotSucceedStopsBeforeRolling(t *testing.T) {
	ctx := testAttack(testWeapon(), 8)
	ctx.Target.Destroyed = true

	out, log, _ := resolveWith(t, ctx, RuleFlags{})
	if !out.CannotSucceed || out.Hit {
		t.Fatalf("expected cannot-succeed outcome, got %+v", out)
	}
	want := []int{report.CodeAttackStart, report.CodeCannotSucceed}
	if got := log.Codes(); !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected codes %v", got)
	}
	if out.Path[len(out.Path)-1] != StateTerminal {
		t.Fatalf("path must end terminal: %v", out.Path)
	}
}

func TestStressEpisodeDestroysOnHighRoll(t *testing.T) {
	ctx := testAttack(testWeapon(), 0)
	ctx.TargetedUnit().Armor = 4

	out, log, _ := resolveWith(t, ctx, RuleFlags{}, dice.Pair(8, 11)...)
	if !out.Stressed || !out.UnitDestroyed || !out.FormationDestroyed {
		t.Fatalf("expected stress and destruction, got %+v", out)
	}
	if !ctx.Target.HighStressEpisode || !ctx.Target.Destroyed {
		t.Fatalf("target formation flags not set: %+v", ctx.Target)
	}
	want := []int{
		report.CodeAttackStart, report.CodeToHitValue, report.CodeAttackRoll, report.CodeAttackHit,
		report.CodeDamageDealt, report.CodeStressEpisode, report.CodeUnitDestroyed, report.CodeFormationLost,
	}
	if got := log.Codes(); !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected codes %v, want %v", got, want)
	}
}

func TestStressSurvivedFallsThroughToCrit(t *testing.T) {
	ctx := testAttack(testWeapon(), 0)
	ctx.TargetedUnit().Armor = 4

	out, _, _ := resolveWith(t, ctx, RuleFlags{}, dice.Pair(8, 6, 9)...)
	if !out.Stressed || out.UnitDestroyed || out.Crit != CritTargeting {
		t.Fatalf("unexpected outcome %+v", out)
	}
	if ctx.TargetedUnit().Structure != 5 {
		t.Fatalf("expected one point through to structure, got %d", ctx.TargetedUnit().Structure)
	}
}

func TestDamageCritsCripple(t *testing.T) {
	ctx := testAttack(testWeapon(), 0)
	ctx.TargetedUnit().Armor = 40
	ctx.TargetedUnit().MaxArmor = 40
	flags := RuleFlags{}
	log := report.NewLog()
	resolver := NewResolver(dice.Script(dice.Pair(8, 11, 8, 12)...), report.NewAttackReporter(log, false), flags)

	first := resolver.Resolve(ctx)
	second := resolver.Resolve(ctx)
	if first.Crippled || !second.Crippled {
		t.Fatalf("second damage crit should cripple: %+v / %+v", first, second)
	}
	if got := ctx.TargetedUnit().DamageCrits; got != 2 {
		t.Fatalf("expected 2 damage crits, got %d", got)
	}
	crippled := 0
	for _, code := range log.Codes() {
		if code == report.CodeUnitCrippled {
			crippled++
		}
	}
	if crippled != 1 {
		t.Fatalf("crippled must be reported once, got %d", crippled)
	}
}

func TestSuppressedReportingDoesNotChangeOutcome(t *testing.T) {
	faces := dice.Pair(9, 11)
	loud := testAttack(testWeapon(), 8)
	quiet := testAttack(testWeapon(), 8)

	loudOut := NewResolver(dice.Script(faces...), report.NewAttackReporter(report.NewLog(), false), RuleFlags{}).Resolve(loud)
	quietOut := NewResolver(dice.Script(faces...), report.NewAttackReporter(report.NewLog(), true), RuleFlags{}).Resolve(quiet)

	if !reflect.DeepEqual(loudOut, quietOut) {
		t.Fatalf("reporting changed the outcome: %+v vs %+v", loudOut, quietOut)
	}
	if !reflect.DeepEqual(loud.Target, quiet.Target) {
		t.Fatalf("reporting changed target state")
	}
}

func TestCustomCheckCanTerminate(t *testing.T) {
	ctx := testAttack(testWeapon(), 0)
	log := report.NewLog()
	jammed := Check{Name: "jam", Run: func(*AttackContext, report.AttackReporter) CheckResult { return CheckTerminal }}
	resolver := NewResolver(dice.Script(dice.Pair(10)...), report.NewAttackReporter(log, false), RuleFlags{}).WithChecks(jammed)

	out := resolver.Resolve(ctx)
	if out.Hit || ctx.TargetedUnit().Armor != 10 {
		t.Fatalf("terminal check must stop resolution: %+v", out)
	}
	if last := log.Codes()[log.Len()-1]; last != report.CodeAttackRoll {
		t.Fatalf("expected resolution to stop after the roll, last code %d", last)
	}
}
