// Package combat resolves a single declared attack between formations: to-hit
// evaluation, the roll, damage, critical effects and unit destruction.
package combat

import (
	"fmt"
	"strings"

	"autoresolve/internal/dice"
	"autoresolve/internal/formation"
)

// RuleFlags toggles optional rules. Any subset may be enabled.
type RuleFlags struct {
	DialDownDamage       bool `yaml:"dial_down_damage" json:"dial_down_damage"`
	AlteredDamage        bool `yaml:"altered_damage" json:"altered_damage"`
	ExtendedRangeHalving bool `yaml:"extended_range_halving" json:"extended_range_halving"`
	ExtremeRangeThirding bool `yaml:"extreme_range_thirding" json:"extreme_range_thirding"`
	DirectBlows          bool `yaml:"direct_blows" json:"direct_blows"`
	GlancingBlows        bool `yaml:"glancing_blows" json:"glancing_blows"`
}

// Modifier is one additive term of a target number.
type Modifier struct {
	Value       int
	Description string
}

// Situation carries what movement and line-of-sight resolution already decided.
type Situation struct {
	NoLineOfEffect  bool
	BlockedReason   string
	TargetMovement  int
	ThroughBuilding bool
	Extra           []Modifier
}

// ToHitProfile is the computed difficulty of an attack.
type ToHitProfile struct {
	Value           int
	Modifiers       []Modifier
	CannotSucceed   bool
	Reason          string
	MarginOfSuccess int
}

// String renders the modifiers as "4 (gunnery skill) + 2 (medium range)".
func (p ToHitProfile) String() string {
	if p.CannotSucceed {
		return p.Reason
	}
	if len(p.Modifiers) == 0 {
		return fmt.Sprintf("%d", p.Value)
	}
	var b strings.Builder
	for i, mod := range p.Modifiers {
		switch {
		case i == 0:
			fmt.Fprintf(&b, "%d", mod.Value)
		case mod.Value < 0:
			fmt.Fprintf(&b, " - %d", -mod.Value)
		default:
			fmt.Fprintf(&b, " + %d", mod.Value)
		}
		fmt.Fprintf(&b, " (%s)", mod.Description)
	}
	return b.String()
}

// WithRoll fills MarginOfSuccess from the rolled total, clamped at zero.
func (p ToHitProfile) WithRoll(total int) ToHitProfile {
	p.MarginOfSuccess = total - p.Value
	if p.MarginOfSuccess < 0 {
		p.MarginOfSuccess = 0
	}
	return p
}

// AttackContext is the unit of work passed through the resolver pipeline.
type AttackContext struct {
	Attacker     *formation.Formation
	AttackerUnit int
	Weapon       int
	Target       *formation.Formation
	TargetUnit   int
	Range        int
	Situation    Situation
	ToHit        ToHitProfile
	Roll         dice.Roll
	Glancing     bool
}

// AttackingUnit returns the firing unit or nil.
func (c *AttackContext) AttackingUnit() *formation.Unit {
	return c.Attacker.Unit(c.AttackerUnit)
}

// TargetedUnit returns the target unit or nil.
func (c *AttackContext) TargetedUnit() *formation.Unit {
	return c.Target.Unit(c.TargetUnit)
}

// FiringWeapon returns the weapon in use or nil.
func (c *AttackContext) FiringWeapon() *formation.WeaponProfile {
	return c.AttackingUnit().Weapon(c.Weapon)
}
