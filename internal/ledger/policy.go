package ledger

import (
	"strings"
)

// ActionClass groups transaction action types by how they affect display
// and totals.
type ActionClass string

const (
	ClassAdjustment ActionClass = "adjustment"
	ClassDenial     ActionClass = "denial"
	ClassTransfer   ActionClass = "transfer"
	ClassOther      ActionClass = "other"
)

// ActionRule classifies action types whose name contains Match
// (case-insensitive). Sign converts the ledger amount, recorded as balance
// removed, into a display amount; zero means use the policy default.
type ActionRule struct {
	Match string      `yaml:"match" validate:"required"`
	Class ActionClass `yaml:"class" validate:"required,oneof=adjustment denial transfer other"`
	Sign  int         `yaml:"sign" validate:"oneof=-1 0 1"`
}

// Policy holds the domain rules that are not fixed accounting facts.
type Policy struct {
	// Rules are tried in order; the first match wins.
	Rules []ActionRule `yaml:"action_rules" validate:"dive"`
	// DefaultSign applies to actions without a rule or with Sign 0.
	DefaultSign int `yaml:"default_sign" validate:"oneof=-1 1"`
	// RejectedStatuses are invoice statuses that count as rejected.
	RejectedStatuses []string `yaml:"rejected_statuses"`
}

// DefaultPolicy returns the built-in rules: adjustment and not-allowed
// types are adjustments, denials are denials, next-responsible-party moves
// are transfers, and display amounts are the negated ledger amounts.
func DefaultPolicy() Policy {
	return Policy{
		Rules: []ActionRule{
			{Match: "not allowed", Class: ClassAdjustment},
			{Match: "adjust", Class: ClassAdjustment},
			{Match: "write off", Class: ClassAdjustment},
			{Match: "denial", Class: ClassDenial},
			{Match: "denied", Class: ClassDenial},
			{Match: "next responsible", Class: ClassTransfer},
			{Match: "transfer", Class: ClassTransfer},
		},
		DefaultSign:      -1,
		RejectedStatuses: []string{"Rejected", "Denied"},
	}
}

// Classify returns the class and display sign for an action type.
func (p Policy) Classify(actionType string) (ActionClass, int) {
	name := strings.ToLower(actionType)
	for _, r := range p.Rules {
		if r.Match != "" && strings.Contains(name, strings.ToLower(r.Match)) {
			return r.Class, p.sign(r.Sign)
		}
	}
	return ClassOther, p.sign(0)
}

func (p Policy) sign(s int) int {
	if s != 0 {
		return s
	}
	if p.DefaultSign != 0 {
		return p.DefaultSign
	}
	return -1
}

// IsRejected reports whether an invoice status counts as rejected.
func (p Policy) IsRejected(status *string) bool {
	if status == nil {
		return false
	}
	for _, s := range p.RejectedStatuses {
		if strings.EqualFold(strings.TrimSpace(*status), s) {
			return true
		}
	}
	return false
}

// amountLabel names the display amount of an action.
func amountLabel(class ActionClass, actionType string, nonZero bool) *string {
	var label string
	switch class {
	case ClassAdjustment:
		label = "Adjustment"
	case ClassDenial:
		label = "Denied"
	case ClassTransfer:
		label = "Transferred"
	default:
		if !nonZero || actionType == "" {
			return nil
		}
		label = actionType
	}
	return &label
}
