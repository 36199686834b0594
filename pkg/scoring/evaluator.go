package scoring

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dealbase-inc/dealbase-engine/pkg/config"
	"github.com/dealbase-inc/dealbase-engine/pkg/jsonutil"
	"github.com/dealbase-inc/dealbase-engine/pkg/models"
)

// RuleResult is one rule's outcome within an evaluation.
type RuleResult struct {
	RuleID uuid.UUID `json:"rule_id"`
	// Result is nil when the target field was absent from the snapshot.
	Result *bool `json:"result"`
	// Scored is the points actually awarded: zero for filters, failing
	// components, and every component once a filter has rejected the deal.
	Scored int `json:"scored"`
}

// Evaluation is the full outcome of running a rule set against a
// property snapshot.
type Evaluation struct {
	Status    models.DealStatus `json:"status"`
	Score     int               `json:"qualification_score"`
	Breakdown []RuleResult      `json:"rule_breakdown"`
}

// Evaluate runs the ordered rule set against a property snapshot. Pure
// and deterministic: identical inputs always produce identical output.
// Business outcomes are never errors; the only error is a rule carrying
// an operator unknown to this implementation.
//
// Filters gate first: any failing enabled filter rejects the deal and
// zeroes the score. Score components still run afterward so the breakdown
// is complete for audit, but contribute nothing to a rejected deal.
func Evaluate(property *models.Property, rules []*models.QualificationRule, policy *config.QualificationPolicy) (*Evaluation, error) {
	if policy == nil {
		policy = config.DefaultPolicy()
	}

	ctx := NewContext(property, time.Now().UTC())

	// Re-establish canonical order defensively; callers should already
	// supply (rule_type ASC, created_at ASC).
	ordered := make([]*models.QualificationRule, 0, len(rules))
	for _, r := range rules {
		if r.Enabled {
			ordered = append(ordered, r)
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].RuleType != ordered[j].RuleType {
			return ordered[i].RuleType < ordered[j].RuleType
		}
		return ordered[i].CreatedAt.Before(ordered[j].CreatedAt)
	})

	evaluation := &Evaluation{
		Breakdown: make([]RuleResult, 0, len(ordered)),
	}

	filtersPassed := true
	score := 0

	for _, rule := range ordered {
		result, err := evalRule(ctx, rule)
		if err != nil {
			return nil, err
		}

		passed := result != nil && *result
		scored := 0

		switch rule.RuleType {
		case models.RuleTypeFilter:
			if !passed {
				filtersPassed = false
			}
		case models.RuleTypeScoreComponent:
			if passed {
				scored = rule.Weight
				score += rule.Weight
			}
		}

		evaluation.Breakdown = append(evaluation.Breakdown, RuleResult{
			RuleID: rule.ID,
			Result: result,
			Scored: scored,
		})
	}

	if !filtersPassed {
		evaluation.Status = models.DealStatusRejected
		evaluation.Score = 0
		// Zero out component awards in the breakdown: the deal is already
		// rejected, the rules ran for audit completeness only.
		for i := range evaluation.Breakdown {
			evaluation.Breakdown[i].Scored = 0
		}
		return evaluation, nil
	}

	evaluation.Score = score
	if score >= policy.MinScore {
		evaluation.Status = models.DealStatusQualified
	} else {
		evaluation.Status = models.DealStatusAnalyzing
	}
	return evaluation, nil
}

// evalRule applies one rule to the snapshot. A nil result means the
// target field was absent; the comparison is treated as false for both
// gating and scoring.
func evalRule(ctx *Context, rule *models.QualificationRule) (*bool, error) {
	value, found := ctx.Lookup(rule.FieldName)
	if !found {
		return nil, nil
	}

	var result bool
	switch rule.Operator {
	case models.OperatorGT, models.OperatorGTE, models.OperatorLT, models.OperatorLTE:
		num, ok := jsonutil.FlexibleFloat(value)
		if !ok || rule.Value.Number == nil {
			result = false
			break
		}
		switch rule.Operator {
		case models.OperatorGT:
			result = num > *rule.Value.Number
		case models.OperatorGTE:
			result = num >= *rule.Value.Number
		case models.OperatorLT:
			result = num < *rule.Value.Number
		case models.OperatorLTE:
			result = num <= *rule.Value.Number
		}

	case models.OperatorEQ, models.OperatorNEQ:
		equal := compareEqual(value, rule.Value)
		result = equal
		if rule.Operator == models.OperatorNEQ {
			result = !equal
		}

	case models.OperatorContains:
		if rule.Value.Text == nil {
			result = false
			break
		}
		result = contains(value, *rule.Value.Text)

	case models.OperatorIn:
		str, ok := jsonutil.FlexibleString(value)
		if !ok {
			result = false
			break
		}
		for _, item := range rule.Value.Set {
			if strings.EqualFold(str, item) {
				result = true
				break
			}
		}

	default:
		return nil, fmt.Errorf("unknown rule operator %q", rule.Operator)
	}

	return &result, nil
}

// compareEqual compares a snapshot value with a rule comparand, numeric
// when both sides read as numbers, string otherwise.
func compareEqual(value any, rv models.RuleValue) bool {
	if rv.Number != nil {
		if num, ok := jsonutil.FlexibleFloat(value); ok {
			return num == *rv.Number
		}
		return false
	}
	if rv.Text != nil {
		if str, ok := jsonutil.FlexibleString(value); ok {
			return strings.EqualFold(str, *rv.Text)
		}
	}
	return false
}

// contains checks collection membership: key presence for maps, element
// equality for slices, substring for strings.
func contains(value any, needle string) bool {
	switch v := value.(type) {
	case map[string]any:
		for key := range v {
			if strings.EqualFold(key, needle) {
				return true
			}
		}
	case []any:
		for _, item := range v {
			if str, ok := jsonutil.FlexibleString(item); ok && strings.EqualFold(str, needle) {
				return true
			}
		}
	case []string:
		for _, item := range v {
			if strings.EqualFold(item, needle) {
				return true
			}
		}
	case string:
		return strings.Contains(strings.ToLower(v), strings.ToLower(needle))
	}
	return false
}
