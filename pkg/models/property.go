package models

import (
	"time"

	"github.com/google/uuid"
)

// Property is a prospect property originated by the import pipeline. It is
// read-only to this engine: the evaluator and analyzer consume snapshots
// of it but never write back.
type Property struct {
	ID uuid.UUID `json:"id"`

	// Address
	AddressLine1 string `json:"address_line1"`
	City         string `json:"city"`
	State        string `json:"state"`
	PostalCode   string `json:"postal_code"`

	// Valuation fields are nullable: imported records are frequently
	// incomplete and rules must evaluate them as absent, not zero.
	EstimatedValue   *float64 `json:"estimated_value,omitempty"`
	LastSalePrice    *float64 `json:"last_sale_price,omitempty"`
	TaxAssessedValue *float64 `json:"tax_assessed_value,omitempty"`
	EquityPercent    *float64 `json:"equity_percent,omitempty"`

	// DistressSignals maps signal name to whatever evidence the source
	// provided, e.g. {"foreclosure": true, "tax_lien": "2024-03-01"}.
	DistressSignals map[string]any `json:"distress_signals,omitempty"`

	// DataFreshnessDate is when the source data was captured. It drives
	// staleness checks and the derived days-on-market figure.
	DataFreshnessDate *time.Time `json:"data_freshness_date,omitempty"`

	// RawData carries source fields not otherwise modeled, addressable by
	// rules via dot-path (e.g. "rawData.property_type").
	RawData map[string]any `json:"raw_data,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DaysOnMarket derives the market age from the data freshness date.
// Returns nil when the capture date is unknown or in the future.
func (p *Property) DaysOnMarket(now time.Time) *int {
	if p.DataFreshnessDate == nil {
		return nil
	}
	days := int(now.Sub(*p.DataFreshnessDate).Hours() / 24)
	if days < 0 {
		return nil
	}
	return &days
}
