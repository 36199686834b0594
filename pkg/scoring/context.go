// Package scoring implements the deal decision logic: the pure rule
// evaluation engine, the max-allowable-offer calculator, and the advanced
// deal analyzer. Nothing in this package performs I/O.
package scoring

import (
	"strings"
	"time"

	"github.com/dealbase-inc/dealbase-engine/pkg/models"
)

// Context is the flat comparison view of a property snapshot that rules
// address by dot-path. Lookups fail closed: a missing field yields
// (nil, false), never an error, so the evaluator stays total.
type Context struct {
	fields map[string]any
}

// NewContext flattens a property snapshot. Numeric fields are exposed
// under their rule-facing names, distress signals as a map, and rawData
// entries under the "rawData." prefix.
func NewContext(p *models.Property, now time.Time) *Context {
	fields := map[string]any{
		"city":       p.City,
		"state":      p.State,
		"postalCode": p.PostalCode,
	}

	if p.EstimatedValue != nil {
		fields["estimatedValue"] = *p.EstimatedValue
	}
	if p.LastSalePrice != nil {
		fields["lastSalePrice"] = *p.LastSalePrice
	}
	if p.TaxAssessedValue != nil {
		fields["taxAssessedValue"] = *p.TaxAssessedValue
	}
	if p.EquityPercent != nil {
		fields["equityPercent"] = *p.EquityPercent
	}
	if days := p.DaysOnMarket(now); days != nil {
		fields["daysOnMarket"] = float64(*days)
	}
	if len(p.DistressSignals) > 0 {
		fields["distressSignals"] = p.DistressSignals
	}
	if len(p.RawData) > 0 {
		fields["rawData"] = p.RawData
	}

	return &Context{fields: fields}
}

// Lookup resolves a dot-path against the snapshot. Path segments after
// the first descend into map values; any miss returns (nil, false).
func (c *Context) Lookup(path string) (any, bool) {
	segments := strings.Split(path, ".")

	current, ok := c.fields[segments[0]]
	if !ok {
		return nil, false
	}

	for _, segment := range segments[1:] {
		m, isMap := current.(map[string]any)
		if !isMap {
			return nil, false
		}
		current, ok = m[segment]
		if !ok {
			return nil, false
		}
	}

	return current, true
}
