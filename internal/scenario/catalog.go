package scenario

import (
	"errors"
	"fmt"
	"strings"

	_ "embed"

	"gopkg.in/yaml.v3"

	"autoresolve/internal/formation"
)

// ErrUnknownWeapon is returned when a unit references a weapon the catalog lacks.
var ErrUnknownWeapon = errors.New("unknown weapon")

// WeaponSpec is the YAML form of a weapon profile.
type WeaponSpec struct {
	Name          string                     `yaml:"name"`
	Damage        int                        `yaml:"damage"`
	Ranges        formation.RangeBrackets    `yaml:"ranges"`
	ToHit         int                        `yaml:"to_hit"`
	Modes         []formation.FiringMode     `yaml:"modes"`
	InfantryClass string                     `yaml:"infantry_class"`
	SquadSupport  bool                       `yaml:"squad_support"`
	Linked        *formation.LinkedEquipment `yaml:"linked"`
}

// Profile converts the entry into a fresh weapon profile.
func (w WeaponSpec) Profile() formation.WeaponProfile {
	profile := formation.WeaponProfile{
		Name:          w.Name,
		Damage:        w.Damage,
		Ranges:        w.Ranges,
		ToHitModifier: w.ToHit,
		Modes:         w.Modes,
		InfantryClass: formation.InfantryDamageClass(w.InfantryClass),
		SquadSupport:  w.SquadSupport,
		Linked:        w.Linked,
	}
	if profile.InfantryClass == "" {
		profile.InfantryClass = formation.ClassDirectFire
	}
	return profile.Clone()
}

func (w WeaponSpec) validate() error {
	if strings.TrimSpace(w.Name) == "" {
		return fmt.Errorf("weapon name must be set")
	}
	if w.Damage < 0 {
		return fmt.Errorf("weapon %q: damage must be non-negative", w.Name)
	}
	r := w.Ranges
	if r.Short < 0 || r.Medium < r.Short || r.Long < r.Medium || r.Extreme < r.Long {
		return fmt.Errorf("weapon %q: range brackets must be ascending", w.Name)
	}
	switch formation.InfantryDamageClass(w.InfantryClass) {
	case "", formation.ClassDirectFire, formation.ClassClusterBallistic, formation.ClassPulse,
		formation.ClassClusterMissile, formation.ClassAreaEffect:
	default:
		return fmt.Errorf("weapon %q: unknown infantry class %q", w.Name, w.InfantryClass)
	}
	return nil
}

type catalogFile struct {
	Weapons []WeaponSpec `yaml:"weapons"`
}

//go:embed weapons.yaml
var builtinWeapons []byte

// Catalog maps weapon names to profiles. Lookups hand out copies.
type Catalog struct {
	order   []string
	weapons map[string]WeaponSpec
}

// BuiltinCatalog parses the weapon table shipped with the binary. Each call returns an
// independent catalog.
func BuiltinCatalog() (*Catalog, error) {
	return ParseCatalog(builtinWeapons)
}

// ParseCatalog decodes a YAML weapon table.
func ParseCatalog(data []byte) (*Catalog, error) {
	var decoded catalogFile
	if err := yaml.Unmarshal(data, &decoded); err != nil {
		return nil, fmt.Errorf("decode weapon catalog: %w", err)
	}
	catalog := &Catalog{weapons: make(map[string]WeaponSpec, len(decoded.Weapons))}
	var problems []string
	for _, weapon := range decoded.Weapons {
		if err := weapon.validate(); err != nil {
			problems = append(problems, err.Error())
			continue
		}
		key := catalogKey(weapon.Name)
		if _, dup := catalog.weapons[key]; dup {
			problems = append(problems, fmt.Sprintf("weapon %q defined twice", weapon.Name))
			continue
		}
		catalog.weapons[key] = weapon
		catalog.order = append(catalog.order, weapon.Name)
	}
	if len(problems) > 0 {
		return nil, fmt.Errorf("invalid weapon catalog: %s", strings.Join(problems, "; "))
	}
	return catalog, nil
}

// Merge overlays extra entries, replacing same-named weapons.
func (c *Catalog) Merge(extra []WeaponSpec) error {
	for _, weapon := range extra {
		if err := weapon.validate(); err != nil {
			return err
		}
		key := catalogKey(weapon.Name)
		if _, exists := c.weapons[key]; !exists {
			c.order = append(c.order, weapon.Name)
		}
		c.weapons[key] = weapon
	}
	return nil
}

// Weapon returns a fresh profile for name, matched case-insensitively.
func (c *Catalog) Weapon(name string) (formation.WeaponProfile, error) {
	spec, ok := c.weapons[catalogKey(name)]
	if !ok {
		return formation.WeaponProfile{}, fmt.Errorf("%q: %w", name, ErrUnknownWeapon)
	}
	return spec.Profile(), nil
}

// Names lists catalog entries in declaration order.
func (c *Catalog) Names() []string {
	return append([]string(nil), c.order...)
}

// Specs returns the raw entries in declaration order.
func (c *Catalog) Specs() []WeaponSpec {
	out := make([]WeaponSpec, 0, len(c.order))
	for _, name := range c.order {
		out = append(out, c.weapons[catalogKey(name)])
	}
	return out
}

func catalogKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
