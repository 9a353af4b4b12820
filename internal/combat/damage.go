package combat

import (
	"math"

	"autoresolve/internal/formation"
)

// CalculateDamage returns the damage a successful hit deals. Steps run in a fixed
// order and rounding up happens only once, at the end.
func CalculateDamage(ctx AttackContext, flags RuleFlags) int {
	attacker := ctx.AttackingUnit()
	target := ctx.TargetedUnit()
	weapon := ctx.FiringWeapon()
	if attacker == nil || target == nil || weapon == nil {
		return 0
	}

	//1.- Base damage, optionally dialed down by the selected mode.
	damage := float64(weapon.Damage)
	if flags.DialDownDamage && weapon.HasModes() {
		damage = math.Max(0, float64(weapon.Damage-weapon.CurrentMode().DialDown))
	}

	//2.- A swarming squad pools every trooper's shot into one block.
	if attacker.Kind == formation.KindBattleArmor &&
		!weapon.SquadSupport &&
		attacker.SwarmTargetID != 0 &&
		attacker.SwarmTargetID == target.ID {
		damage *= float64(attacker.ShootingStrength)
	}

	band := weapon.Ranges.Band(ctx.Range)

	//3.- Altered damage: closer shots hit harder, long shots weaker.
	if flags.AlteredDamage {
		switch band {
		case formation.BandShort:
			damage++
		case formation.BandLong:
			damage--
		}
		damage = math.Max(0, damage)
	}

	//4.- Extended range halves and 5.- extreme range thirds, each floored.
	if flags.ExtendedRangeHalving && band > formation.BandLong {
		damage = math.Floor(damage / 2.0)
	}
	if flags.ExtremeRangeThirding && band > formation.BandExtreme {
		damage = math.Floor(damage / 3.0)
	}

	//6.- Target type conversion; infantry replaces the generic direct-blow bonus.
	bonus := 0
	if flags.DirectBlows && ctx.ToHit.MarginOfSuccess/3 >= 1 {
		bonus = ctx.ToHit.MarginOfSuccess / 3
	}
	infantry := target.IsConventionalInfantry()
	if infantry {
		nonInfantryVsMechanized := target.Mechanized && !attacker.IsConventionalInfantry()
		damage = InfantryDamage(damage, bonus, weapon.InfantryClass, nonInfantryVsMechanized, ctx.Situation.ThroughBuilding)
	} else if bonus > 0 {
		damage = math.Min(damage+float64(bonus), damage*2)
	}

	//7.- Glancing blows halve damage against everything but conventional infantry.
	if ctx.Glancing && !infantry {
		damage = math.Floor(damage / 2.0)
	}

	result := int(math.Ceil(damage))
	if result < 0 {
		return 0
	}
	return result
}

// InfantryDamage converts weapon damage into damage against conventional infantry.
func InfantryDamage(damage float64, bonus int, class formation.InfantryDamageClass, nonInfantryVsMechanized, throughBuilding bool) float64 {
	switch class {
	case formation.ClassClusterBallistic:
		damage = damage/10 + 1
	case formation.ClassPulse:
		damage = damage/10 + 2
	case formation.ClassClusterMissile:
		damage = damage / 5
	case formation.ClassAreaEffect:
	default:
		damage = damage / 10
	}
	damage += float64(bonus)
	if nonInfantryVsMechanized {
		damage /= 2
	}
	if throughBuilding {
		damage /= 2
	}
	return math.Max(0, damage)
}
