package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dealbase-inc/dealbase-engine/pkg/jsonutil"
)

// RuleType determines how a qualification rule participates in scoring.
type RuleType string

const (
	// RuleTypeFilter rules are gates: any failing enabled filter rejects
	// the deal outright. They never contribute score.
	RuleTypeFilter RuleType = "FILTER"
	// RuleTypeScoreComponent rules contribute their weight to the
	// qualification score when their condition holds.
	RuleTypeScoreComponent RuleType = "SCORE_COMPONENT"
)

// ValidRuleTypes contains all valid rule type values.
var ValidRuleTypes = []RuleType{RuleTypeFilter, RuleTypeScoreComponent}

// IsValidRuleType checks if the given type is valid.
func IsValidRuleType(t RuleType) bool {
	for _, v := range ValidRuleTypes {
		if v == t {
			return true
		}
	}
	return false
}

// RuleOperator is the comparison a rule applies to its target field.
type RuleOperator string

const (
	OperatorGT          RuleOperator = "GT"
	OperatorGTE         RuleOperator = "GTE"
	OperatorLT          RuleOperator = "LT"
	OperatorLTE         RuleOperator = "LTE"
	OperatorEQ          RuleOperator = "EQ"
	OperatorNEQ         RuleOperator = "NEQ"
	OperatorContains    RuleOperator = "CONTAINS"
	OperatorIn          RuleOperator = "IN"
)

// ValidRuleOperators contains all valid operator values.
var ValidRuleOperators = []RuleOperator{
	OperatorGT, OperatorGTE, OperatorLT, OperatorLTE,
	OperatorEQ, OperatorNEQ, OperatorContains, OperatorIn,
}

// IsValidRuleOperator checks if the given operator is valid.
func IsValidRuleOperator(op RuleOperator) bool {
	for _, v := range ValidRuleOperators {
		if v == op {
			return true
		}
	}
	return false
}

// RuleValue is the operator-dependent comparand: exactly one of Number,
// Text, or Set is populated. The variant is validated against the
// operator at rule-creation time so the evaluator never has to handle a
// type mismatch at runtime.
type RuleValue struct {
	Number *float64 `json:"number,omitempty"`
	Text   *string  `json:"text,omitempty"`
	Set    []string `json:"set,omitempty"`
}

// NumberValue builds a numeric rule value.
func NumberValue(n float64) RuleValue {
	return RuleValue{Number: &n}
}

// TextValue builds a string rule value.
func TextValue(s string) RuleValue {
	return RuleValue{Text: &s}
}

// SetValue builds a string-set rule value.
func SetValue(items ...string) RuleValue {
	return RuleValue{Set: items}
}

// UnmarshalJSON accepts both the tagged form ({"number": 5}) and bare
// scalars (5, "foreclosure", ["a","b"]) since imported rule sets use both.
func (v *RuleValue) UnmarshalJSON(data []byte) error {
	type tagged RuleValue
	var t tagged
	if err := json.Unmarshal(data, &t); err == nil && (t.Number != nil || t.Text != nil || t.Set != nil) {
		*v = RuleValue(t)
		return nil
	}

	var scalar any
	if err := json.Unmarshal(data, &scalar); err != nil {
		return fmt.Errorf("invalid rule value: %w", err)
	}

	switch val := scalar.(type) {
	case float64:
		v.Number = &val
	case string:
		v.Text = &val
	case []any:
		for _, item := range val {
			s, ok := jsonutil.FlexibleString(item)
			if !ok {
				return fmt.Errorf("invalid rule value: set items must be scalar")
			}
			v.Set = append(v.Set, s)
		}
	default:
		return fmt.Errorf("invalid rule value: unsupported type %T", scalar)
	}
	return nil
}

// QualificationRule is a single user-owned filter or score component.
// Evaluation order is (rule_type ASC, created_at ASC) so filters gate
// first and score components accumulate in a stable, reproducible order.
type QualificationRule struct {
	ID        uuid.UUID    `json:"id"`
	UserID    uuid.UUID    `json:"user_id"`
	RuleType  RuleType     `json:"rule_type"`
	FieldName string       `json:"field_name"` // dot-path into the property snapshot
	Operator  RuleOperator `json:"operator"`
	Value     RuleValue    `json:"value"`
	Weight    int          `json:"weight"` // 0-100, meaningful only for SCORE_COMPONENT
	Enabled   bool         `json:"enabled"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// Validate checks the rule's internal consistency. It runs at creation
// time, not during evaluation.
func (r *QualificationRule) Validate() error {
	if !IsValidRuleType(r.RuleType) {
		return fmt.Errorf("invalid rule_type %q", r.RuleType)
	}
	if r.FieldName == "" {
		return fmt.Errorf("field_name must not be empty")
	}
	if !IsValidRuleOperator(r.Operator) {
		return fmt.Errorf("invalid operator %q", r.Operator)
	}
	if r.Weight < 0 || r.Weight > 100 {
		return fmt.Errorf("weight must be 0-100, got %d", r.Weight)
	}

	switch r.Operator {
	case OperatorGT, OperatorGTE, OperatorLT, OperatorLTE:
		if r.Value.Number == nil {
			return fmt.Errorf("operator %s requires a numeric value", r.Operator)
		}
	case OperatorEQ, OperatorNEQ:
		if r.Value.Number == nil && r.Value.Text == nil {
			return fmt.Errorf("operator %s requires a numeric or string value", r.Operator)
		}
	case OperatorContains:
		if r.Value.Text == nil {
			return fmt.Errorf("operator %s requires a string value", r.Operator)
		}
	case OperatorIn:
		if len(r.Value.Set) == 0 {
			return fmt.Errorf("operator %s requires a non-empty set value", r.Operator)
		}
	}
	return nil
}
