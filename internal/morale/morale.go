// Package morale runs single morale checks and decides, through a configurable
// policy, which formations owe one.
package morale

import (
	"autoresolve/internal/dice"
	"autoresolve/internal/formation"
	"autoresolve/internal/report"
)

// Resolver executes one morale check at a time. It never decides when a check is due.
type Resolver struct {
	roller   *dice.Roller
	reporter report.MoraleReporter
}

// NewResolver wires a resolver to its dice and reporter.
func NewResolver(roller *dice.Roller, reporter report.MoraleReporter) *Resolver {
	if reporter == nil {
		reporter = report.NopMoraleReporter{}
	}
	return &Resolver{roller: roller, reporter: reporter}
}

// Check rolls 2d6 against threshold. A failure worsens the formation's status by exactly
// one step; a pass leaves it alone.
func (r *Resolver) Check(f *formation.Formation, threshold int) (dice.Roll, bool) {
	r.reporter.CheckStart(f, threshold)
	roll := r.roller.Roll2D6()
	r.reporter.CheckRoll(f, roll)

	if roll.Total() >= threshold {
		r.reporter.CheckSuccess(f)
		return roll, true
	}
	old := f.Morale
	f.Morale = old.Worsen()
	r.reporter.CheckFailure(f, old, f.Morale)
	return roll, false
}
