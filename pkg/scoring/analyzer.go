package scoring

import (
	"fmt"
	"strings"
	"time"

	"github.com/dealbase-inc/dealbase-engine/pkg/jsonutil"
	"github.com/dealbase-inc/dealbase-engine/pkg/models"
)

// FlagSeverity grades an analysis flag.
type FlagSeverity string

const (
	SeverityInfo     FlagSeverity = "info"
	SeverityWarning  FlagSeverity = "warning"
	SeverityCritical FlagSeverity = "critical"
)

// Analysis flag categories.
const (
	FlagCompValidation      = "comp_validation"
	FlagRehabCosts          = "rehab_costs"
	FlagLiquidity           = "liquidity"
	FlagTransactionStrategy = "transaction_strategy"
	FlagCreativeFinance     = "creative_finance"
	FlagTaxConsequences     = "tax_consequences"
)

// AnalysisFlag is one human-review note produced by the deal analyzer.
type AnalysisFlag struct {
	Category string       `json:"category"`
	Severity FlagSeverity `json:"severity"`
	Message  string       `json:"message"`
}

// Analyze produces review flags for a prospective deal: comp-validation
// concerns, rehab-cost traps, liquidity notes, strategy suggestions,
// creative-finance risks, and tax warnings. Rule-based and deterministic,
// layered on the same snapshot as the evaluator but independent of
// scoring. Results are returned for human review, never persisted.
func Analyze(property *models.Property, repairCosts float64, purchasePrice *float64) []AnalysisFlag {
	flags := make([]AnalysisFlag, 0, 8)
	now := time.Now().UTC()

	flags = append(flags, compValidationFlags(property)...)
	flags = append(flags, rehabFlags(property, repairCosts)...)
	flags = append(flags, liquidityFlags(property)...)
	flags = append(flags, strategyFlags(property, now)...)
	flags = append(flags, creativeFinanceFlags(property)...)
	flags = append(flags, taxFlags(property, repairCosts, purchasePrice)...)

	return flags
}

func compValidationFlags(p *models.Property) []AnalysisFlag {
	var flags []AnalysisFlag
	if p.EstimatedValue == nil {
		return []AnalysisFlag{{
			Category: FlagCompValidation,
			Severity: SeverityWarning,
			Message:  "no estimated value on record; run comps before making any offer",
		}}
	}

	if p.TaxAssessedValue != nil && *p.TaxAssessedValue > 0 {
		ratio := *p.EstimatedValue / *p.TaxAssessedValue
		if ratio > 1.4 {
			flags = append(flags, AnalysisFlag{
				Category: FlagCompValidation,
				Severity: SeverityWarning,
				Message: fmt.Sprintf("estimated value is %.0f%% of tax assessment; verify comps support the premium",
					ratio*100),
			})
		}
	}

	if p.LastSalePrice != nil && *p.LastSalePrice > 0 && *p.EstimatedValue > 2**p.LastSalePrice {
		flags = append(flags, AnalysisFlag{
			Category: FlagCompValidation,
			Severity: SeverityWarning,
			Message:  "estimated value is more than double the last sale price; confirm appreciation is real, not a data error",
		})
	}

	return flags
}

func rehabFlags(p *models.Property, repairCosts float64) []AnalysisFlag {
	var flags []AnalysisFlag

	if repairCosts <= 0 {
		flags = append(flags, AnalysisFlag{
			Category: FlagRehabCosts,
			Severity: SeverityInfo,
			Message:  "no repair budget provided; MAO assumes zero rehab, which is rarely true for distressed stock",
		})
		return flags
	}

	if p.EstimatedValue != nil && *p.EstimatedValue > 0 {
		share := repairCosts / *p.EstimatedValue
		if share > 0.30 {
			flags = append(flags, AnalysisFlag{
				Category: FlagRehabCosts,
				Severity: SeverityWarning,
				Message: fmt.Sprintf("repair budget is %.0f%% of estimated value; heavy-rehab deals routinely overrun, pad the contingency",
					share*100),
			})
		}
	}

	return flags
}

func liquidityFlags(p *models.Property) []AnalysisFlag {
	propertyType := ""
	if p.RawData != nil {
		if v, ok := p.RawData["property_type"]; ok {
			propertyType, _ = jsonutil.FlexibleString(v)
		}
	}

	units := 0.0
	if p.RawData != nil {
		if v, ok := p.RawData["units"]; ok {
			units, _ = jsonutil.FlexibleFloat(v)
		}
	}

	isMultifamily := strings.Contains(strings.ToLower(propertyType), "multi") || units > 4
	if !isMultifamily {
		return nil
	}

	return []AnalysisFlag{{
		Category: FlagLiquidity,
		Severity: SeverityInfo,
		Message:  "multifamily asset: buyer pool is thinner than single-family, expect a longer disposition window",
	}}
}

func strategyFlags(p *models.Property, now time.Time) []AnalysisFlag {
	var flags []AnalysisFlag

	if p.EquityPercent != nil && *p.EquityPercent >= 50 {
		flags = append(flags, AnalysisFlag{
			Category: FlagTransactionStrategy,
			Severity: SeverityInfo,
			Message:  "high owner equity: a discounted cash offer is viable, owner can accept below market and still walk away whole",
		})
	}

	if days := p.DaysOnMarket(now); days != nil && *days > 180 {
		flags = append(flags, AnalysisFlag{
			Category: FlagTransactionStrategy,
			Severity: SeverityWarning,
			Message: fmt.Sprintf("source data is %d days old; re-verify status and valuation before offering", *days),
		})
	}

	if _, distressed := p.DistressSignals["foreclosure"]; distressed {
		flags = append(flags, AnalysisFlag{
			Category: FlagTransactionStrategy,
			Severity: SeverityInfo,
			Message:  "active foreclosure signal: timeline is driven by the auction date, move quickly or not at all",
		})
	}

	return flags
}

func creativeFinanceFlags(p *models.Property) []AnalysisFlag {
	if p.EquityPercent == nil || *p.EquityPercent >= 20 {
		return nil
	}

	return []AnalysisFlag{{
		Category: FlagCreativeFinance,
		Severity: SeverityWarning,
		Message:  "low equity: cash purchase cannot clear the mortgage, only subject-to or wrap structures work here and both carry due-on-sale risk",
	}}
}

func taxFlags(p *models.Property, repairCosts float64, purchasePrice *float64) []AnalysisFlag {
	var flags []AnalysisFlag

	if p.EstimatedValue != nil && p.LastSalePrice != nil {
		gain := *p.EstimatedValue - *p.LastSalePrice
		if gain > 250000 {
			flags = append(flags, AnalysisFlag{
				Category: FlagTaxConsequences,
				Severity: SeverityInfo,
				Message:  "owner's unrealized gain may exceed the primary-residence exclusion; capital gains exposure can stall the sale",
			})
		}
	}

	if purchasePrice != nil && p.EstimatedValue != nil {
		mao := CalculateMAO(*p.EstimatedValue, repairCosts)
		if *purchasePrice > mao.MAO {
			flags = append(flags, AnalysisFlag{
				Category: FlagTransactionStrategy,
				Severity: SeverityCritical,
				Message: fmt.Sprintf("proposed price %.0f exceeds the max allowable offer %.0f; margin does not support this deal",
					*purchasePrice, mao.MAO),
			})
		}
	}

	return flags
}
