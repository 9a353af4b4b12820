package report

import (
	"fmt"

	"autoresolve/internal/dice"
	"autoresolve/internal/formation"
)

// AttackReporter narrates one attack resolution.
type AttackReporter interface {
	AttackStart(attacker *formation.Formation, unitIndex int, target *formation.Formation)
	CannotSucceed(reason string)
	ToHitValue(value int, description string)
	AttackRoll(roll dice.Roll, attacker *formation.Formation)
	WeaponExplosion(unit *formation.Unit, weapon string)
	ExplosionDamage(unit *formation.Unit, equipment string, damage int)
	AttackMiss()
	AttackHit()
	DamageDealt(target *formation.Unit, damage, newArmor int)
	StressEpisode()
	UnitDestroyed(target *formation.Unit)
	FormationDestroyed(target *formation.Formation)
	CriticalCheck()
	NoCrit()
	TargetingCrit(target *formation.Unit)
	DamageCrit(target *formation.Unit)
	UnitCrippled(target *formation.Unit)
}

// NewAttackReporter returns the narrating implementation, or the no-op one when
// suppressed is set. The choice is made once, here, and never inside resolution.
func NewAttackReporter(sink Sink, suppressed bool) AttackReporter {
	if suppressed || sink == nil {
		return NopAttackReporter{}
	}
	return &attackReporter{sink: sink}
}

type attackReporter struct {
	sink Sink
}

// UnitLabel renders "Formation, unit N (Name)".
func UnitLabel(f *formation.Formation, unitIndex int) string {
	unit := f.Unit(unitIndex)
	if unit == nil {
		return fmt.Sprintf("%s, unit %d", f.Label(), unitIndex+1)
	}
	return fmt.Sprintf("%s, unit %d (%s)", f.Label(), unitIndex+1, unit.Name)
}

func (r *attackReporter) AttackStart(attacker *formation.Formation, unitIndex int, target *formation.Formation) {
	r.sink.Report(NewEvent(CodeAttackStart).Text(UnitLabel(attacker, unitIndex)).Text(target.Label()))
}

func (r *attackReporter) CannotSucceed(reason string) {
	r.sink.Report(NewEvent(CodeCannotSucceed).Text(reason))
}

func (r *attackReporter) ToHitValue(value int, description string) {
	r.sink.Report(NewEvent(CodeToHitValue).Indented(1).Number(value).Text(description))
}

func (r *attackReporter) AttackRoll(roll dice.Roll, attacker *formation.Formation) {
	r.sink.Report(NewEvent(CodeAttackRoll).Indented(1).NoNL().Text(attacker.Label()).Text(roll.String()))
}

func (r *attackReporter) WeaponExplosion(unit *formation.Unit, weapon string) {
	r.sink.Report(NewEvent(CodeWeaponExplosion).Indented(2).Text(weapon).Text(unit.Name))
}

func (r *attackReporter) ExplosionDamage(unit *formation.Unit, equipment string, damage int) {
	r.sink.Report(NewEvent(CodeExplosionDamage).Indented(3).Text(unit.Name).Number(damage).Text(equipment).Number(unit.Armor))
}

func (r *attackReporter) AttackMiss() {
	r.sink.Report(NewEvent(CodeAttackMiss).Indented(2))
}

func (r *attackReporter) AttackHit() {
	r.sink.Report(NewEvent(CodeAttackHit).Indented(2))
}

func (r *attackReporter) DamageDealt(target *formation.Unit, damage, newArmor int) {
	r.sink.Report(NewEvent(CodeDamageDealt).Text(target.Name).Number(damage).Number(newArmor).Indented(2))
}

func (r *attackReporter) StressEpisode() {
	r.sink.Report(NewEvent(CodeStressEpisode).Indented(3))
}

func (r *attackReporter) UnitDestroyed(target *formation.Unit) {
	r.sink.Report(NewEvent(CodeUnitDestroyed).Text(target.Name).Indented(3))
}

func (r *attackReporter) FormationDestroyed(target *formation.Formation) {
	r.sink.Report(NewEvent(CodeFormationLost).Text(target.Label()).Indented(3))
}

func (r *attackReporter) CriticalCheck() {
	r.sink.Report(NewEvent(CodeCriticalCheck).Indented(3))
}

func (r *attackReporter) NoCrit() {
	r.sink.Report(NewEvent(CodeNoCrit).Indented(3))
}

func (r *attackReporter) TargetingCrit(target *formation.Unit) {
	r.sink.Report(NewEvent(CodeTargetingCrit).Text(target.Name).Number(target.TargetingCrits).Indented(3))
}

func (r *attackReporter) DamageCrit(target *formation.Unit) {
	r.sink.Report(NewEvent(CodeDamageCrit).Text(target.Name).Number(target.DamageCrits).Indented(3))
}

func (r *attackReporter) UnitCrippled(target *formation.Unit) {
	r.sink.Report(NewEvent(CodeUnitCrippled).Text(target.Name).Indented(3))
}

// NopAttackReporter accepts every call and does nothing.
type NopAttackReporter struct{}

func (NopAttackReporter) AttackStart(*formation.Formation, int, *formation.Formation) {}
func (NopAttackReporter) CannotSucceed(string)                                      {}
func (NopAttackReporter) ToHitValue(int, string)                                    {}
func (NopAttackReporter) AttackRoll(dice.Roll, *formation.Formation)                {}
func (NopAttackReporter) WeaponExplosion(*formation.Unit, string)                   {}
func (NopAttackReporter) ExplosionDamage(*formation.Unit, string, int)              {}
func (NopAttackReporter) AttackMiss()                                               {}
func (NopAttackReporter) AttackHit()                                                {}
func (NopAttackReporter) DamageDealt(*formation.Unit, int, int)                     {}
func (NopAttackReporter) StressEpisode()                                            {}
func (NopAttackReporter) UnitDestroyed(*formation.Unit)                             {}
func (NopAttackReporter) FormationDestroyed(*formation.Formation)                   {}
func (NopAttackReporter) CriticalCheck()                                            {}
func (NopAttackReporter) NoCrit()                                                   {}
func (NopAttackReporter) TargetingCrit(*formation.Unit)                             {}
func (NopAttackReporter) DamageCrit(*formation.Unit)                                {}
func (NopAttackReporter) UnitCrippled(*formation.Unit)                              {}
