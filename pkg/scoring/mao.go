package scoring

import "fmt"

// MAOPercentage is the standard wholesale ceiling: 70% of estimated value.
const MAOPercentage = 0.70

// MAOResult is the maximum allowable offer with the formula that produced
// it. Callers apply their own additional discount when turning the MAO
// into an offer price.
type MAOResult struct {
	MAO     float64 `json:"mao"`
	Formula string  `json:"formula"`
}

// CalculateMAO computes estimatedValue * 0.70 - repairCosts, floored at
// zero. Pure; no validation beyond the floor, since a zero MAO is a
// meaningful answer ("do not offer").
func CalculateMAO(estimatedValue, repairCosts float64) MAOResult {
	mao := estimatedValue*MAOPercentage - repairCosts
	if mao < 0 {
		mao = 0
	}
	return MAOResult{
		MAO: mao,
		Formula: fmt.Sprintf("MAO = %.2f * %.2f - %.2f = %.2f",
			estimatedValue, MAOPercentage, repairCosts, mao),
	}
}
