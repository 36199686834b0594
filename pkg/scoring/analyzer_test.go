package scoring

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/dealbase-inc/dealbase-engine/pkg/models"
)

func categories(flags []AnalysisFlag) map[string]int {
	counts := make(map[string]int)
	for _, f := range flags {
		counts[f.Category]++
	}
	return counts
}

func TestAnalyze_MissingValueFlagsCompValidation(t *testing.T) {
	flags := Analyze(&models.Property{}, 0, nil)
	assert.Positive(t, categories(flags)[FlagCompValidation])
}

func TestAnalyze_HighRehabShare(t *testing.T) {
	p := &models.Property{EstimatedValue: float(200000)}
	flags := Analyze(p, 80000, nil) // 40% of value
	assert.Positive(t, categories(flags)[FlagRehabCosts])
}

func TestAnalyze_ZeroRepairBudgetIsInfoOnly(t *testing.T) {
	p := &models.Property{EstimatedValue: float(200000)}
	flags := Analyze(p, 0, nil)
	for _, f := range flags {
		if f.Category == FlagRehabCosts {
			assert.Equal(t, SeverityInfo, f.Severity)
		}
	}
}

func TestAnalyze_MultifamilyLiquidityNote(t *testing.T) {
	p := &models.Property{
		EstimatedValue: float(800000),
		RawData:        map[string]any{"property_type": "multifamily", "units": 8},
	}
	flags := Analyze(p, 10000, nil)
	assert.Positive(t, categories(flags)[FlagLiquidity])
}

func TestAnalyze_HighEquitySuggestsCashStrategy(t *testing.T) {
	p := &models.Property{
		EstimatedValue: float(300000),
		EquityPercent:  float(70),
	}
	flags := Analyze(p, 5000, nil)
	assert.Positive(t, categories(flags)[FlagTransactionStrategy])
}

func TestAnalyze_LowEquityFlagsCreativeFinance(t *testing.T) {
	p := &models.Property{
		EstimatedValue: float(300000),
		EquityPercent:  float(10),
	}
	flags := Analyze(p, 5000, nil)
	assert.Positive(t, categories(flags)[FlagCreativeFinance])
}

func TestAnalyze_StaleDataWarning(t *testing.T) {
	stale := time.Now().Add(-200 * 24 * time.Hour)
	p := &models.Property{
		EstimatedValue:    float(300000),
		DataFreshnessDate: &stale,
	}
	flags := Analyze(p, 5000, nil)

	found := false
	for _, f := range flags {
		if f.Category == FlagTransactionStrategy && f.Severity == SeverityWarning {
			found = true
		}
	}
	assert.True(t, found)
}

func TestAnalyze_PurchaseAboveMAOIsCritical(t *testing.T) {
	p := &models.Property{EstimatedValue: float(200000)}
	price := 150000.0 // MAO with 20k repairs is 120k
	flags := Analyze(p, 20000, &price)

	found := false
	for _, f := range flags {
		if f.Severity == SeverityCritical {
			found = true
		}
	}
	assert.True(t, found)
}

func TestAnalyze_LargeUnrealizedGainTaxNote(t *testing.T) {
	p := &models.Property{
		EstimatedValue: float(600000),
		LastSalePrice:  float(200000),
	}
	flags := Analyze(p, 0, nil)
	assert.Positive(t, categories(flags)[FlagTaxConsequences])
}
