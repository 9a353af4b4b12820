package morale

import (
	"errors"
	"fmt"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"autoresolve/internal/formation"
)

// ErrInvalidRule marks a trigger rule that cannot be compiled or evaluated.
var ErrInvalidRule = errors.New("invalid morale rule")

// Rule declares when a formation owes a morale check and at what threshold.
type Rule struct {
	Name      string `yaml:"name"`
	When      string `yaml:"when"`
	Threshold int    `yaml:"threshold"`
}

// Facts is the environment trigger expressions are evaluated against.
type Facts struct {
	ArmorPercent      int
	InternalPercent   int
	HighStressEpisode bool
	Destroyed         bool
	Morale            string
	Units             int
	LiveUnits         int
	Movement          int
	Heat              int
}

// FactsOf snapshots the formation for rule evaluation.
func FactsOf(f *formation.Formation) Facts {
	return Facts{
		ArmorPercent:      f.ArmorPercent(),
		InternalPercent:   f.InternalPercent(),
		HighStressEpisode: f.HighStressEpisode,
		Destroyed:         f.Destroyed,
		Morale:            f.Morale.String(),
		Units:             len(f.Units),
		LiveUnits:         f.LiveUnits(),
		Movement:          f.Movement,
		Heat:              f.Heat,
	}
}

type compiledRule struct {
	Rule
	program *vm.Program
}

// Policy holds compiled trigger rules in declaration order.
type Policy struct {
	rules []compiledRule
}

// DefaultRules checks any formation that suffered a stress episode or lost half its
// armor during the cycle.
func DefaultRules() []Rule {
	return []Rule{
		{Name: "stress", When: "HighStressEpisode", Threshold: 8},
		{Name: "half_armor", When: "ArmorPercent <= 50 && LiveUnits > 0", Threshold: 7},
	}
}

// NewPolicy compiles every rule or fails naming the first bad one.
func NewPolicy(rules []Rule) (*Policy, error) {
	policy := &Policy{rules: make([]compiledRule, 0, len(rules))}
	for i, rule := range rules {
		if strings.TrimSpace(rule.When) == "" {
			return nil, fmt.Errorf("rule %d %q: empty condition: %w", i, rule.Name, ErrInvalidRule)
		}
		if rule.Threshold < 2 || rule.Threshold > 13 {
			return nil, fmt.Errorf("rule %d %q: threshold %d outside 2..13: %w", i, rule.Name, rule.Threshold, ErrInvalidRule)
		}
		program, err := expr.Compile(rule.When, expr.Env(Facts{}), expr.AsBool())
		if err != nil {
			return nil, fmt.Errorf("compile rule %q: %w: %v", rule.Name, ErrInvalidRule, err)
		}
		policy.rules = append(policy.rules, compiledRule{Rule: rule, program: program})
	}
	return policy, nil
}

// Due reports whether f owes a check and returns the first matching rule. Destroyed
// formations never owe one.
func (p *Policy) Due(f *formation.Formation) (Rule, bool, error) {
	if p == nil || f.Destroyed {
		return Rule{}, false, nil
	}
	facts := FactsOf(f)
	for _, rule := range p.rules {
		result, err := vm.Run(rule.program, facts)
		if err != nil {
			return Rule{}, false, fmt.Errorf("evaluate rule %q: %w: %v", rule.Name, ErrInvalidRule, err)
		}
		if match, ok := result.(bool); ok && match {
			return rule.Rule, true, nil
		}
	}
	return Rule{}, false, nil
}

// Len returns the number of compiled rules.
func (p *Policy) Len() int {
	if p == nil {
		return 0
	}
	return len(p.rules)
}
