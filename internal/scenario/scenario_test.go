package scenario

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"autoresolve/internal/battle"
	"autoresolve/internal/combat"
	"autoresolve/internal/consolidate"
	"autoresolve/internal/formation"
)

func builtin(t *testing.T) *Catalog {
	t.Helper()
	catalog, err := BuiltinCatalog()
	if err != nil {
		t.Fatalf("BuiltinCatalog: %v", err)
	}
	return catalog
}

func TestBuiltinCatalogHandsOutCopies(t *testing.T) {
	catalog := builtin(t)
	if len(catalog.Names()) == 0 || catalog.Names()[0] != "Small Laser" {
		t.Fatalf("unexpected catalog order %v", catalog.Names())
	}
	first, err := catalog.Weapon("ppc with capacitor")
	if err != nil {
		t.Fatalf("Weapon: %v", err)
	}
	if first.Linked == nil || first.Linked.ExplosionDamage != 5 || !first.Modes[1].IsPulse() {
		t.Fatalf("unexpected capacitor profile %+v", first)
	}
	first.Linked.ExplosionDamage = 99
	first.Modes[0].Name = "mutated"
	second, _ := catalog.Weapon("PPC with Capacitor")
	if second.Linked.ExplosionDamage != 5 || second.Modes[0].Name != "Standard" {
		t.Fatalf("catalog entries must not be shared: %+v", second)
	}
	if _, err := catalog.Weapon("Gauss Rifle"); !errors.Is(err, ErrUnknownWeapon) {
		t.Fatalf("expected ErrUnknownWeapon, got %v", err)
	}
	other := builtin(t)
	if err := other.Merge([]WeaponSpec{{Name: "PPC", Damage: 1}}); err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if ppc, _ := catalog.Weapon("PPC"); ppc.Damage != 10 {
		t.Fatalf("catalogs must be independent, got damage %d", ppc.Damage)
	}
}

func TestParseCatalogAggregatesProblems(t *testing.T) {
	doc := []byte(`
weapons:
  - name: ""
    damage: 1
  - name: Bent
    damage: 2
    ranges: {short: 5, medium: 2, long: 3, extreme: 4}
  - name: Odd
    damage: 1
    infantry_class: sonic
`)
	_, err := ParseCatalog(doc)
	if err == nil {
		t.Fatalf("expected catalog error")
	}
	for _, fragment := range []string{"name must be set", "ascending", "unknown infantry class"} {
		if !strings.Contains(err.Error(), fragment) {
			t.Fatalf("expected %q in %v", fragment, err)
		}
	}
}

func TestLoadBuildsBattleSpec(t *testing.T) {
	file, err := Load("testdata/ridge.yaml")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	spec, err := file.Build("", builtin(t), Defaults{Seed: 1, Rules: combat.RuleFlags{AlteredDamage: true}})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if spec.ID != "ridge" || spec.Seed != 42 {
		t.Fatalf("unexpected identity %s/%d", spec.ID, spec.Seed)
	}
	if !spec.Rules.DirectBlows || !spec.Rules.AlteredDamage || spec.Rules.GlancingBlows {
		t.Fatalf("unexpected rules %+v", spec.Rules)
	}
	if _, ok := spec.Consolidator.(consolidate.UseCurrentGroups); !ok {
		t.Fatalf("expected unbounded consolidation, got %T", spec.Consolidator)
	}
	warhammer := spec.Roster.Units[0]
	if warhammer.MaxArmor != 30 || len(warhammer.Weapons) != 2 || warhammer.Movement != 4 || warhammer.Heat != 6 {
		t.Fatalf("unexpected unit %+v", warhammer)
	}
	formations, err := spec.Consolidator.Consolidate(spec.Roster)
	if err != nil {
		t.Fatalf("Consolidate: %v", err)
	}
	if fox, dragon := formations[0], formations[1]; fox.Movement != 4 || fox.Heat != 6 || dragon.Movement != 1 || dragon.Heat != 2 {
		t.Fatalf("unexpected aggregates %s %d/%d, %s %d/%d", fox.Name, fox.Movement, fox.Heat, dragon.Name, dragon.Movement, dragon.Heat)
	}
	if pulse := warhammer.Weapons[1]; pulse.CurrentMode().Name != "Pulse" || pulse.InfantryClass != formation.ClassPulse {
		t.Fatalf("unexpected pulse weapon %+v", pulse)
	}
	if flamer := spec.Roster.Units[1].Weapons[0]; flamer.InfantryClass != formation.ClassAreaEffect {
		t.Fatalf("scenario weapons should resolve, got %+v", flamer)
	}
	if rifles := spec.Roster.Units[3].Weapons[0]; rifles.Name != "Rifles" || rifles.InfantryClass != formation.ClassDirectFire {
		t.Fatalf("inline weapons should default to direct fire, got %+v", rifles)
	}
	second := spec.Attacks[1]
	want := []combat.Modifier{{Value: 1, Description: "woods"}}
	if !second.Situation.ThroughBuilding || !reflect.DeepEqual(second.Situation.Extra, want) || second.TargetUnit != 1 {
		t.Fatalf("unexpected attack %+v", second)
	}
	if len(spec.MoraleRules) != 2 || spec.MoraleRules[1].Name != "bloodied" {
		t.Fatalf("unexpected morale rules %+v", spec.MoraleRules)
	}
}

func TestBuildBoundedConsolidation(t *testing.T) {
	file, err := Load("testdata/ridge.yaml")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	spec, err := file.Build("capped", builtin(t), Defaults{MaxFormationUnits: 1})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if bounded, ok := spec.Consolidator.(consolidate.Bounded); !ok || bounded.MaxUnits != 1 {
		t.Fatalf("expected bounded consolidation, got %#v", spec.Consolidator)
	}
	if spec.ID != "capped" {
		t.Fatalf("explicit id should win, got %s", spec.ID)
	}
}

func TestBuildCollectsProblems(t *testing.T) {
	file, err := Parse([]byte(`
units:
  - id: 0
    structure: 1
  - id: 2
    kind: dropship
    structure: 1
  - id: 3
    structure: 4
    weapons:
      - use: Gauss Rifle
  - id: 4
    structure: 4
    weapons:
      - use: PPC
        mode: overcharge
  - id: 5
    structure: 4
    heat: -1
groups:
  - {id: 1, name: Lance, owner: 1}
  - {id: 2, name: Lance, owner: 2}
attacks:
  - attacker: ""
    target: B
`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	_, err = file.Build("broken", builtin(t), Defaults{})
	if !errors.Is(err, ErrInvalidScenario) {
		t.Fatalf("expected ErrInvalidScenario, got %v", err)
	}
	for _, fragment := range []string{"id must be positive", "unknown kind", "Gauss Rifle", "no mode", "heat must be non-negative", `both named "Lance"`, "attack 1"} {
		if !strings.Contains(err.Error(), fragment) {
			t.Fatalf("expected %q in %v", fragment, err)
		}
	}
}

func TestParseRejectsUnknownKeys(t *testing.T) {
	if _, err := Parse([]byte("name: x\nsneaky: true\n")); err == nil {
		t.Fatalf("unknown keys must be rejected")
	}
	if _, err := Parse(nil); !errors.Is(err, ErrInvalidScenario) {
		t.Fatalf("expected ErrInvalidScenario for an empty document, got %v", err)
	}
}

func TestScenarioRunsEndToEnd(t *testing.T) {
	file, err := Load("testdata/ridge.yaml")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	spec, err := file.Build("", builtin(t), Defaults{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	first, err := battle.Run(context.Background(), spec, battle.Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(first.Outcomes) != 3 {
		t.Fatalf("expected three outcomes, got %d", len(first.Outcomes))
	}
	last := first.Outcomes[2]
	if !last.CannotSucceed || !strings.Contains(last.ToHit.Reason, "out of range") {
		t.Fatalf("30 hexes is past PPC extreme range: %+v", last.ToHit)
	}
	second, err := battle.Run(context.Background(), spec, battle.Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !reflect.DeepEqual(first.Events, second.Events) {
		t.Fatalf("the same scenario and seed must replay identically")
	}
}
