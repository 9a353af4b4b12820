package combat

import (
	"fmt"

	"autoresolve/internal/formation"
)

// MaxTargetNumber is the highest value a 2d6 roll can meet.
const MaxTargetNumber = 12

var rangeModifiers = map[formation.RangeBand]int{
	formation.BandShort:   0,
	formation.BandMedium:  2,
	formation.BandLong:    4,
	formation.BandExtreme: 6,
	formation.BandBeyond:  8,
}

// EvaluateToHit computes the target number for ctx. It never rolls and never mutates.
func EvaluateToHit(ctx AttackContext, flags RuleFlags) ToHitProfile {
	attacker := ctx.AttackingUnit()
	target := ctx.TargetedUnit()
	weapon := ctx.FiringWeapon()

	//1.- Structural impossibilities come first, in a fixed order so reasons are stable.
	switch {
	case attacker == nil:
		return impossible("attacking unit not found")
	case ctx.Attacker.Destroyed || attacker.Destroyed:
		return impossible("attacker is destroyed")
	case weapon == nil:
		return impossible("weapon not found")
	case weapon.Disabled:
		return impossible(fmt.Sprintf("%s is disabled", weapon.Name))
	case target == nil:
		return impossible("target unit not found")
	case ctx.Target.Destroyed || target.Destroyed:
		return impossible("target is destroyed")
	case ctx.Situation.NoLineOfEffect:
		reason := ctx.Situation.BlockedReason
		if reason == "" {
			reason = "no line of effect"
		}
		return impossible(reason)
	case ctx.Range < 0:
		return impossible("invalid range")
	}

	band := weapon.Ranges.Band(ctx.Range)
	if !bandAllowed(band, flags) {
		return impossible(fmt.Sprintf("target out of range (%d hexes)", ctx.Range))
	}

	//2.- Collect modifiers in rule order; zero terms other than the base are omitted.
	mods := []Modifier{{Value: attacker.Skill, Description: "gunnery skill"}}
	mods = appendNonZero(mods, rangeModifiers[band], band.String())
	mods = appendNonZero(mods, weapon.ToHitModifier, "weapon modifier")
	mods = appendNonZero(mods, weapon.CurrentMode().ToHitModifier, "firing mode")
	mods = appendNonZero(mods, ctx.Situation.TargetMovement, "target movement")
	mods = appendNonZero(mods, attacker.TargetingCrits*2, "targeting damage")
	for _, extra := range ctx.Situation.Extra {
		mods = appendNonZero(mods, extra.Value, extra.Description)
	}

	value := 0
	for _, mod := range mods {
		value += mod.Value
	}
	profile := ToHitProfile{Value: value, Modifiers: mods}
	if value > MaxTargetNumber {
		profile.CannotSucceed = true
		profile.Reason = fmt.Sprintf("target number %d exceeds %d", value, MaxTargetNumber)
	}
	return profile
}

// bandAllowed gates shots past long range. Thirding only extends an extended-range
// game, so it never opens the extreme band on its own.
func bandAllowed(band formation.RangeBand, flags RuleFlags) bool {
	switch band {
	case formation.BandExtreme:
		return flags.ExtendedRangeHalving
	case formation.BandBeyond:
		return flags.ExtendedRangeHalving && flags.ExtremeRangeThirding
	default:
		return true
	}
}

func appendNonZero(mods []Modifier, value int, description string) []Modifier {
	if value == 0 {
		return mods
	}
	return append(mods, Modifier{Value: value, Description: description})
}

func impossible(reason string) ToHitProfile {
	return ToHitProfile{CannotSucceed: true, Reason: reason}
}
