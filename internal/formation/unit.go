package formation

import "strings"

// UnitKind distinguishes the unit families that change damage handling.
type UnitKind string

const (
	KindMek                  UnitKind = "mek"
	KindVehicle              UnitKind = "vehicle"
	KindBattleArmor          UnitKind = "battle_armor"
	KindConventionalInfantry UnitKind = "infantry"
)

// Valid reports whether the kind is one of the known families.
func (k UnitKind) Valid() bool {
	switch k {
	case KindMek, KindVehicle, KindBattleArmor, KindConventionalInfantry:
		return true
	default:
		return false
	}
}

// Unit is a single combat element inside a formation.
type Unit struct {
	ID               int
	Name             string
	Kind             UnitKind
	Mechanized       bool
	Skill            int
	Armor            int
	MaxArmor         int
	Structure        int
	MaxStructure     int
	TargetingCrits   int
	DamageCrits      int
	Crippled         bool
	Destroyed        bool
	ShootingStrength int
	SwarmTargetID    int
	Movement         int
	Heat             int
	Weapons          []WeaponProfile
}

// IsConventionalInfantry reports whether infantry damage conversion applies.
func (u *Unit) IsConventionalInfantry() bool {
	return u != nil && u.Kind == KindConventionalInfantry
}

// Weapon returns the weapon at index or nil.
func (u *Unit) Weapon(index int) *WeaponProfile {
	if u == nil || index < 0 || index >= len(u.Weapons) {
		return nil
	}
	return &u.Weapons[index]
}

// ApplyDamage removes damage from armor first and structure second, returning the
// amount that reached the structure.
func (u *Unit) ApplyDamage(damage int) int {
	if damage <= 0 {
		return 0
	}
	absorbed := damage
	if absorbed > u.Armor {
		absorbed = u.Armor
	}
	u.Armor -= absorbed
	overflow := damage - absorbed
	if overflow > u.Structure {
		overflow = u.Structure
	}
	u.Structure -= overflow
	return overflow
}

// Clone deep-copies the unit including its weapons.
func (u *Unit) Clone() *Unit {
	if u == nil {
		return nil
	}
	clone := *u
	clone.Weapons = make([]WeaponProfile, len(u.Weapons))
	for i, weapon := range u.Weapons {
		clone.Weapons[i] = weapon.Clone()
	}
	return &clone
}

// InfantryDamageClass selects the conversion used when a weapon hits conventional infantry.
type InfantryDamageClass string

const (
	ClassDirectFire       InfantryDamageClass = "direct_fire"
	ClassClusterBallistic InfantryDamageClass = "cluster_ballistic"
	ClassPulse            InfantryDamageClass = "pulse"
	ClassClusterMissile   InfantryDamageClass = "cluster_missile"
	ClassAreaEffect       InfantryDamageClass = "area_effect"
)

// RangeBrackets are the outer edges of each range band in hexes.
type RangeBrackets struct {
	Short   int `yaml:"short"`
	Medium  int `yaml:"medium"`
	Long    int `yaml:"long"`
	Extreme int `yaml:"extreme"`
}

// RangeBand names a bracket a distance falls into.
type RangeBand int

const (
	BandShort RangeBand = iota
	BandMedium
	BandLong
	BandExtreme
	BandBeyond
)

func (b RangeBand) String() string {
	switch b {
	case BandShort:
		return "short range"
	case BandMedium:
		return "medium range"
	case BandLong:
		return "long range"
	case BandExtreme:
		return "extreme range"
	default:
		return "beyond extreme range"
	}
}

// Band classifies distance against the brackets.
func (r RangeBrackets) Band(distance int) RangeBand {
	switch {
	case distance <= r.Short:
		return BandShort
	case distance <= r.Medium:
		return BandMedium
	case distance <= r.Long:
		return BandLong
	case distance <= r.Extreme:
		return BandExtreme
	default:
		return BandBeyond
	}
}

// FiringMode is one selectable weapon mode.
type FiringMode struct {
	Name          string `yaml:"name"`
	DialDown      int    `yaml:"dial_down"`
	ToHitModifier int    `yaml:"to_hit"`
}

// IsPulse reports whether the mode counts as pulse-capable.
func (m FiringMode) IsPulse() bool {
	return strings.HasPrefix(m.Name, "Pulse")
}

// LinkedEquipment is equipment that explodes together with its weapon.
type LinkedEquipment struct {
	Name            string `yaml:"name"`
	ExplosionDamage int    `yaml:"explosion_damage"`
}

// WeaponProfile describes a mounted weapon. It is not mutated during a resolution
// except for Disabled, which is set by an explosion.
type WeaponProfile struct {
	Name          string
	Damage        int
	Ranges        RangeBrackets
	ToHitModifier int
	Modes         []FiringMode
	Mode          int
	InfantryClass InfantryDamageClass
	SquadSupport  bool
	Linked        *LinkedEquipment
	Disabled      bool
}

// HasModes reports whether the weapon supports variable modes.
func (w *WeaponProfile) HasModes() bool {
	return len(w.Modes) > 0
}

// CurrentMode returns the selected mode, or a zero mode for single-mode weapons.
func (w *WeaponProfile) CurrentMode() FiringMode {
	if w.Mode < 0 || w.Mode >= len(w.Modes) {
		return FiringMode{}
	}
	return w.Modes[w.Mode]
}

// Clone copies the weapon so linked equipment is not shared.
func (w WeaponProfile) Clone() WeaponProfile {
	w.Modes = append([]FiringMode(nil), w.Modes...)
	if w.Linked != nil {
		linked := *w.Linked
		w.Linked = &linked
	}
	return w
}
