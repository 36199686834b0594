package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validRule() *QualificationRule {
	return &QualificationRule{
		RuleType:  RuleTypeScoreComponent,
		FieldName: "estimatedValue",
		Operator:  OperatorGT,
		Value:     NumberValue(100000),
		Weight:    25,
		Enabled:   true,
	}
}

func TestQualificationRule_Validate(t *testing.T) {
	assert.NoError(t, validRule().Validate())
}

func TestQualificationRule_Validate_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*QualificationRule)
	}{
		{"bad rule type", func(r *QualificationRule) { r.RuleType = "GATE" }},
		{"empty field", func(r *QualificationRule) { r.FieldName = "" }},
		{"bad operator", func(r *QualificationRule) { r.Operator = "MATCHES" }},
		{"negative weight", func(r *QualificationRule) { r.Weight = -1 }},
		{"weight over 100", func(r *QualificationRule) { r.Weight = 101 }},
		{"GT without number", func(r *QualificationRule) { r.Value = TextValue("x") }},
		{"CONTAINS without text", func(r *QualificationRule) {
			r.Operator = OperatorContains
			r.Value = NumberValue(5)
		}},
		{"IN without set", func(r *QualificationRule) {
			r.Operator = OperatorIn
			r.Value = TextValue("x")
		}},
		{"EQ with set only", func(r *QualificationRule) {
			r.Operator = OperatorEQ
			r.Value = SetValue("a", "b")
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := validRule()
			tt.mutate(r)
			assert.Error(t, r.Validate())
		})
	}
}

func TestRuleValue_UnmarshalJSON_BareScalars(t *testing.T) {
	var v RuleValue
	require.NoError(t, json.Unmarshal([]byte(`150000`), &v))
	require.NotNil(t, v.Number)
	assert.Equal(t, 150000.0, *v.Number)

	v = RuleValue{}
	require.NoError(t, json.Unmarshal([]byte(`"foreclosure"`), &v))
	require.NotNil(t, v.Text)
	assert.Equal(t, "foreclosure", *v.Text)

	v = RuleValue{}
	require.NoError(t, json.Unmarshal([]byte(`["tx","fl"]`), &v))
	assert.Equal(t, []string{"tx", "fl"}, v.Set)
}

func TestRuleValue_UnmarshalJSON_TaggedForm(t *testing.T) {
	var v RuleValue
	require.NoError(t, json.Unmarshal([]byte(`{"number": 42}`), &v))
	require.NotNil(t, v.Number)
	assert.Equal(t, 42.0, *v.Number)
}

func TestRuleValue_UnmarshalJSON_RejectsObjects(t *testing.T) {
	var v RuleValue
	assert.Error(t, json.Unmarshal([]byte(`{"nested": {"x": 1}}`), &v))
}
