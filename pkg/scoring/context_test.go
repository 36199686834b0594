package scoring

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/dealbase-inc/dealbase-engine/pkg/models"
)

func float(v float64) *float64 { return &v }

func TestContext_Lookup_TopLevelFields(t *testing.T) {
	fresh := time.Now().Add(-10 * 24 * time.Hour)
	p := &models.Property{
		State:             "TX",
		EstimatedValue:    float(200000),
		EquityPercent:     float(65),
		DataFreshnessDate: &fresh,
	}

	ctx := NewContext(p, time.Now())

	v, ok := ctx.Lookup("estimatedValue")
	assert.True(t, ok)
	assert.Equal(t, 200000.0, v)

	v, ok = ctx.Lookup("state")
	assert.True(t, ok)
	assert.Equal(t, "TX", v)

	v, ok = ctx.Lookup("daysOnMarket")
	assert.True(t, ok)
	assert.Equal(t, 10.0, v)
}

func TestContext_Lookup_MissingFieldsFailClosed(t *testing.T) {
	ctx := NewContext(&models.Property{}, time.Now())

	_, ok := ctx.Lookup("estimatedValue")
	assert.False(t, ok)

	_, ok = ctx.Lookup("rawData.anything")
	assert.False(t, ok)

	_, ok = ctx.Lookup("distressSignals")
	assert.False(t, ok)
}

func TestContext_Lookup_DotPathIntoRawData(t *testing.T) {
	p := &models.Property{
		RawData: map[string]any{
			"property_type": "single_family",
			"listing": map[string]any{
				"source": "mls",
			},
		},
	}
	ctx := NewContext(p, time.Now())

	v, ok := ctx.Lookup("rawData.property_type")
	assert.True(t, ok)
	assert.Equal(t, "single_family", v)

	v, ok = ctx.Lookup("rawData.listing.source")
	assert.True(t, ok)
	assert.Equal(t, "mls", v)

	_, ok = ctx.Lookup("rawData.listing.missing")
	assert.False(t, ok)

	// Descending through a scalar is a miss, not a panic.
	_, ok = ctx.Lookup("rawData.property_type.deeper")
	assert.False(t, ok)
}

func TestContext_Lookup_DistressSignals(t *testing.T) {
	p := &models.Property{
		DistressSignals: map[string]any{"foreclosure": true},
	}
	ctx := NewContext(p, time.Now())

	v, ok := ctx.Lookup("distressSignals")
	assert.True(t, ok)
	assert.Contains(t, v.(map[string]any), "foreclosure")

	v, ok = ctx.Lookup("distressSignals.foreclosure")
	assert.True(t, ok)
	assert.Equal(t, true, v)
}
