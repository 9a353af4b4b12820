package report

import (
	"autoresolve/internal/dice"
	"autoresolve/internal/formation"
)

// MoraleReporter narrates a single morale check.
type MoraleReporter interface {
	CheckStart(f *formation.Formation, threshold int)
	CheckRoll(f *formation.Formation, roll dice.Roll)
	CheckSuccess(f *formation.Formation)
	CheckFailure(f *formation.Formation, oldStatus, newStatus formation.MoraleStatus)
}

// NewMoraleReporter mirrors NewAttackReporter for morale checks.
func NewMoraleReporter(sink Sink, suppressed bool) MoraleReporter {
	if suppressed || sink == nil {
		return NopMoraleReporter{}
	}
	return &moraleReporter{sink: sink}
}

type moraleReporter struct {
	sink Sink
}

func (r *moraleReporter) CheckStart(f *formation.Formation, threshold int) {
	r.sink.Report(NewEvent(CodeMoraleCheckStart).Text(f.Label()).Number(threshold))
}

func (r *moraleReporter) CheckRoll(f *formation.Formation, roll dice.Roll) {
	r.sink.Report(NewEvent(CodeMoraleCheckRoll).Indented(1).Text(f.Label()).Text(roll.String()))
}

func (r *moraleReporter) CheckSuccess(f *formation.Formation) {
	r.sink.Report(NewEvent(CodeMoraleSuccess).Indented(1).Text(f.Label()))
}

func (r *moraleReporter) CheckFailure(f *formation.Formation, oldStatus, newStatus formation.MoraleStatus) {
	r.sink.Report(NewEvent(CodeMoraleFailure).Indented(1).Text(f.Label()).Text(oldStatus.String()).Text(newStatus.String()))
}

// NopMoraleReporter accepts every call and does nothing.
type NopMoraleReporter struct{}

func (NopMoraleReporter) CheckStart(*formation.Formation, int)       {}
func (NopMoraleReporter) CheckRoll(*formation.Formation, dice.Roll)  {}
func (NopMoraleReporter) CheckSuccess(*formation.Formation)          {}
func (NopMoraleReporter) CheckFailure(*formation.Formation, formation.MoraleStatus, formation.MoraleStatus) {
}
