// Package scenario loads battle descriptions from YAML: the roster, unit loadouts drawn
// from a weapon catalog, the declared attacks and the morale trigger rules.
package scenario

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"autoresolve/internal/battle"
	"autoresolve/internal/combat"
	"autoresolve/internal/consolidate"
	"autoresolve/internal/formation"
	"autoresolve/internal/morale"
)

// ErrInvalidScenario wraps every structural problem found while building a battle.
var ErrInvalidScenario = errors.New("invalid scenario")

// File is the on-disk scenario document.
type File struct {
	Name              string               `yaml:"name"`
	Seed              *int64               `yaml:"seed"`
	Rules             combat.RuleFlags     `yaml:"rules"`
	MaxFormationUnits int                  `yaml:"max_formation_units"`
	Weapons           []WeaponSpec         `yaml:"weapons"`
	Players           []consolidate.Player `yaml:"players"`
	Groups            []consolidate.Group  `yaml:"groups"`
	Units             []UnitSpec           `yaml:"units"`
	Attacks           []AttackSpec         `yaml:"attacks"`
	Morale            []morale.Rule        `yaml:"morale"`
}

// UnitSpec is one unit definition. Max values default to the current ones.
type UnitSpec struct {
	ID               int         `yaml:"id"`
	Name             string      `yaml:"name"`
	Kind             string      `yaml:"kind"`
	Mechanized       bool        `yaml:"mechanized"`
	Skill            int         `yaml:"skill"`
	Armor            int         `yaml:"armor"`
	MaxArmor         int         `yaml:"max_armor"`
	Structure        int         `yaml:"structure"`
	MaxStructure     int         `yaml:"max_structure"`
	TargetingCrits   int         `yaml:"targeting_crits"`
	DamageCrits      int         `yaml:"damage_crits"`
	ShootingStrength int         `yaml:"shooting_strength"`
	SwarmTarget      int         `yaml:"swarm_target"`
	Movement         int         `yaml:"movement"`
	Heat             int         `yaml:"heat"`
	Weapons          []WeaponRef `yaml:"weapons"`
}

// WeaponRef mounts a catalog weapon by name, or declares one inline when Use is empty.
type WeaponRef struct {
	Use        string `yaml:"use"`
	Mode       string `yaml:"mode"`
	WeaponSpec `yaml:",inline"`
}

// AttackSpec declares one attack. Unit and weapon indexes are zero-based.
type AttackSpec struct {
	Attacker        string         `yaml:"attacker"`
	Unit            int            `yaml:"unit"`
	Weapon          int            `yaml:"weapon"`
	Target          string         `yaml:"target"`
	TargetUnit      int            `yaml:"target_unit"`
	Range           int            `yaml:"range"`
	TargetMovement  int            `yaml:"target_movement"`
	NoLineOfEffect  bool           `yaml:"no_line_of_effect"`
	BlockedReason   string         `yaml:"blocked_reason"`
	ThroughBuilding bool           `yaml:"through_building"`
	Modifiers       []ModifierSpec `yaml:"modifiers"`
}

// ModifierSpec is an extra to-hit term decided outside the engine.
type ModifierSpec struct {
	Value       int    `yaml:"value"`
	Description string `yaml:"description"`
}

// Defaults fill in what a scenario leaves open.
type Defaults struct {
	Seed              int64
	Rules             combat.RuleFlags
	MaxFormationUnits int
}

// Load reads and decodes a scenario file. Unknown keys are rejected.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	file, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if file.Name == "" {
		file.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return file, nil
}

// Parse decodes a scenario document.
func Parse(data []byte) (*File, error) {
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	var file File
	if err := decoder.Decode(&file); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("empty scenario: %w", ErrInvalidScenario)
		}
		return nil, fmt.Errorf("decode scenario: %w", err)
	}
	return &file, nil
}

// Build turns the file into a battle description using catalog for weapon lookups.
// The catalog is not modified; scenario-local weapons shadow catalog entries.
func (f *File) Build(id string, catalog *Catalog, defaults Defaults) (battle.Spec, error) {
	if catalog == nil {
		return battle.Spec{}, fmt.Errorf("weapon catalog must be provided")
	}
	local := &Catalog{weapons: make(map[string]WeaponSpec, len(catalog.weapons)), order: catalog.Names()}
	for key, weapon := range catalog.weapons {
		local.weapons[key] = weapon
	}
	if err := local.Merge(f.Weapons); err != nil {
		return battle.Spec{}, fmt.Errorf("scenario weapons: %w: %v", ErrInvalidScenario, err)
	}

	//1.- Units first; every problem is collected so authors fix a file in one pass.
	var problems []string
	units := make([]*formation.Unit, 0, len(f.Units))
	for i, spec := range f.Units {
		unit, err := spec.unit(local)
		if err != nil {
			problems = append(problems, fmt.Sprintf("unit %d: %v", i, err))
			continue
		}
		units = append(units, unit)
	}
	groupNames := make(map[string]int, len(f.Groups))
	for _, group := range f.Groups {
		if first, dup := groupNames[group.Name]; dup {
			problems = append(problems, fmt.Sprintf("groups %d and %d are both named %q", first, group.ID, group.Name))
			continue
		}
		groupNames[group.Name] = group.ID
	}
	attacks := make([]battle.AttackOrder, 0, len(f.Attacks))
	for i, spec := range f.Attacks {
		order, err := spec.order()
		if err != nil {
			problems = append(problems, fmt.Sprintf("attack %d: %v", i+1, err))
			continue
		}
		attacks = append(attacks, order)
	}
	if len(problems) > 0 {
		return battle.Spec{}, fmt.Errorf("%w: %s", ErrInvalidScenario, strings.Join(problems, "; "))
	}

	//2.- Scenario settings win; rule flags can only be switched on, never off.
	seed := defaults.Seed
	if f.Seed != nil {
		seed = *f.Seed
	}
	maxUnits := defaults.MaxFormationUnits
	if f.MaxFormationUnits > 0 {
		maxUnits = f.MaxFormationUnits
	}
	var consolidator consolidate.Consolidator = consolidate.UseCurrentGroups{}
	if maxUnits > 0 {
		consolidator = consolidate.Bounded{MaxUnits: maxUnits}
	}
	if id == "" {
		id = f.Name
	}
	return battle.Spec{
		ID:       id,
		Scenario: f.Name,
		Seed:     seed,
		Rules:    mergeRules(f.Rules, defaults.Rules),
		Roster: consolidate.Roster{
			Players: append([]consolidate.Player(nil), f.Players...),
			Groups:  append([]consolidate.Group(nil), f.Groups...),
			Units:   units,
		},
		Consolidator: consolidator,
		Attacks:      attacks,
		MoraleRules:  append([]morale.Rule(nil), f.Morale...),
	}, nil
}

func (u UnitSpec) unit(catalog *Catalog) (*formation.Unit, error) {
	if u.ID <= 0 {
		return nil, fmt.Errorf("id must be positive")
	}
	kind := formation.UnitKind(strings.ToLower(strings.TrimSpace(u.Kind)))
	if kind == "" {
		kind = formation.KindMek
	}
	if !kind.Valid() {
		return nil, fmt.Errorf("unknown kind %q", u.Kind)
	}
	if u.Armor < 0 || u.Structure <= 0 {
		return nil, fmt.Errorf("armor must be non-negative and structure positive")
	}
	if u.Movement < 0 || u.Heat < 0 {
		return nil, fmt.Errorf("movement and heat must be non-negative")
	}
	unit := &formation.Unit{
		ID:               u.ID,
		Name:             u.Name,
		Kind:             kind,
		Mechanized:       u.Mechanized,
		Skill:            u.Skill,
		Armor:            u.Armor,
		MaxArmor:         maxOf(u.MaxArmor, u.Armor),
		Structure:        u.Structure,
		MaxStructure:     maxOf(u.MaxStructure, u.Structure),
		TargetingCrits:   u.TargetingCrits,
		DamageCrits:      u.DamageCrits,
		ShootingStrength: u.ShootingStrength,
		SwarmTargetID:    u.SwarmTarget,
		Movement:         u.Movement,
		Heat:             u.Heat,
	}
	if unit.Name == "" {
		unit.Name = fmt.Sprintf("Unit %d", u.ID)
	}
	for i, ref := range u.Weapons {
		weapon, err := ref.profile(catalog)
		if err != nil {
			return nil, fmt.Errorf("weapon %d: %w", i, err)
		}
		unit.Weapons = append(unit.Weapons, weapon)
	}
	return unit, nil
}

func (r WeaponRef) profile(catalog *Catalog) (formation.WeaponProfile, error) {
	var weapon formation.WeaponProfile
	if r.Use != "" {
		found, err := catalog.Weapon(r.Use)
		if err != nil {
			return weapon, err
		}
		weapon = found
	} else {
		if err := r.WeaponSpec.validate(); err != nil {
			return weapon, err
		}
		weapon = r.WeaponSpec.Profile()
	}
	if r.Mode == "" {
		return weapon, nil
	}
	for i, mode := range weapon.Modes {
		if strings.EqualFold(mode.Name, r.Mode) {
			weapon.Mode = i
			return weapon, nil
		}
	}
	return weapon, fmt.Errorf("%s has no mode %q", weapon.Name, r.Mode)
}

func (a AttackSpec) order() (battle.AttackOrder, error) {
	if strings.TrimSpace(a.Attacker) == "" || strings.TrimSpace(a.Target) == "" {
		return battle.AttackOrder{}, fmt.Errorf("attacker and target must be named")
	}
	situation := combat.Situation{
		NoLineOfEffect:  a.NoLineOfEffect,
		BlockedReason:   a.BlockedReason,
		TargetMovement:  a.TargetMovement,
		ThroughBuilding: a.ThroughBuilding,
	}
	for _, mod := range a.Modifiers {
		situation.Extra = append(situation.Extra, combat.Modifier{Value: mod.Value, Description: mod.Description})
	}
	return battle.AttackOrder{
		Attacker:     a.Attacker,
		AttackerUnit: a.Unit,
		Weapon:       a.Weapon,
		Target:       a.Target,
		TargetUnit:   a.TargetUnit,
		Range:        a.Range,
		Situation:    situation,
	}, nil
}

func mergeRules(a, b combat.RuleFlags) combat.RuleFlags {
	return combat.RuleFlags{
		DialDownDamage:       a.DialDownDamage || b.DialDownDamage,
		AlteredDamage:        a.AlteredDamage || b.AlteredDamage,
		ExtendedRangeHalving: a.ExtendedRangeHalving || b.ExtendedRangeHalving,
		ExtremeRangeThirding: a.ExtremeRangeThirding || b.ExtremeRangeThirding,
		DirectBlows:          a.DirectBlows || b.DirectBlows,
		GlancingBlows:        a.GlancingBlows || b.GlancingBlows,
	}
}

func maxOf(a, b int) int {
	if a > b {
		return a
	}
	return b
}
