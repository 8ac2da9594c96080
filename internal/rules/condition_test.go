package rules

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, doc string) *Condition {
	t.Helper()
	cond, err := ParseCondition(json.RawMessage(doc))
	require.NoError(t, err)
	return cond
}

func TestCondition_OperatorKeyed(t *testing.T) {
	cond := parse(t, `{">=": ["size_cm", 1.5]}`)

	assert.True(t, cond.Eval(map[string]interface{}{"size_cm": 1.5}))
	assert.True(t, cond.Eval(map[string]interface{}{"size_cm": 2.0}))
	assert.False(t, cond.Eval(map[string]interface{}{"size_cm": 1.0}))
}

func TestCondition_PathKeyedShorthand(t *testing.T) {
	cond := parse(t, `{"size_cm": ">= 1.5"}`)

	assert.True(t, cond.Eval(map[string]interface{}{"size_cm": 1.5}))
	assert.False(t, cond.Eval(map[string]interface{}{"size_cm": 1.4}))
}

func TestCondition_PathKeyedEquality(t *testing.T) {
	cond := parse(t, `{"scan_pattern": "HOT"}`)

	assert.True(t, cond.Eval(map[string]interface{}{"scan_pattern": "HOT"}))
	assert.False(t, cond.Eval(map[string]interface{}{"scan_pattern": "COLD"}))
}

func TestCondition_PathKeyedListBecomesIn(t *testing.T) {
	cond := parse(t, `{"tsh_status": ["NORMAL", "HIGH"]}`)

	assert.True(t, cond.Eval(map[string]interface{}{"tsh_status": "HIGH"}))
	assert.False(t, cond.Eval(map[string]interface{}{"tsh_status": "LOW_OR_SUPPRESSED"}))
}

func TestCondition_MultiKeyObjectIsConjunction(t *testing.T) {
	cond := parse(t, `{"scan_pattern": "HOT", "concordance": "MATCH"}`)

	assert.True(t, cond.Eval(map[string]interface{}{
		"scan_pattern": "HOT",
		"concordance":  "MATCH",
	}))
	assert.False(t, cond.Eval(map[string]interface{}{
		"scan_pattern": "HOT",
		"concordance":  "MISMATCH",
	}))
}

func TestCondition_AnyAliasIsDisjunction(t *testing.T) {
	cond := parse(t, `{"any": [{"gross_ete": true}, {"multifocality": true}]}`)

	assert.True(t, cond.Eval(map[string]interface{}{"gross_ete": true}))
	assert.True(t, cond.Eval(map[string]interface{}{"multifocality": true}))
	assert.False(t, cond.Eval(map[string]interface{}{"gross_ete": false}))
}

func TestCondition_AllAliasIsConjunction(t *testing.T) {
	cond := parse(t, `{"all": [{"pregnant": false}, {"tsh_status": "LOW_OR_SUPPRESSED"}]}`)

	assert.True(t, cond.Eval(map[string]interface{}{
		"pregnant":   false,
		"tsh_status": "LOW_OR_SUPPRESSED",
	}))
	assert.False(t, cond.Eval(map[string]interface{}{
		"pregnant":   true,
		"tsh_status": "LOW_OR_SUPPRESSED",
	}))
}

func TestCondition_MissingNumericFailsClosed(t *testing.T) {
	cond := parse(t, `{">": ["size_cm", 1.0]}`)

	assert.False(t, cond.Eval(map[string]interface{}{}))
	assert.False(t, cond.Eval(map[string]interface{}{"size_cm": nil}))
}

func TestCondition_MissingStringFailsClosed(t *testing.T) {
	cond := parse(t, `{"scan_pattern": "HOT"}`)

	assert.False(t, cond.Eval(map[string]interface{}{}))
}

func TestCondition_EmptyOrAbsentMatchesAbsence(t *testing.T) {
	cond := parse(t, `{"empty_or_absent": "nodal_status"}`)

	assert.True(t, cond.Eval(map[string]interface{}{}))
	assert.True(t, cond.Eval(map[string]interface{}{"nodal_status": ""}))
	assert.False(t, cond.Eval(map[string]interface{}{"nodal_status": "cN1a"}))
}

func TestCondition_DottedPathLookup(t *testing.T) {
	cond := parse(t, `{"post_op_histology.margin_status": "positive"}`)

	ctx := map[string]interface{}{
		"post_op_histology": map[string]interface{}{
			"margin_status": "positive",
		},
	}
	assert.True(t, cond.Eval(ctx))
	assert.False(t, cond.Eval(map[string]interface{}{}))
}

func TestCondition_IntAndFloatCompareEqual(t *testing.T) {
	cond := parse(t, `{"eq": ["prior_nondiagnostic_count", 2]}`)

	assert.True(t, cond.Eval(map[string]interface{}{"prior_nondiagnostic_count": 2}))
	assert.True(t, cond.Eval(map[string]interface{}{"prior_nondiagnostic_count": 2.0}))
	assert.False(t, cond.Eval(map[string]interface{}{"prior_nondiagnostic_count": 3}))
}

func TestCondition_NotInverts(t *testing.T) {
	cond := parse(t, `{"not": {"scan_pattern": "HOT"}}`)

	assert.True(t, cond.Eval(map[string]interface{}{"scan_pattern": "COLD"}))
	assert.False(t, cond.Eval(map[string]interface{}{"scan_pattern": "HOT"}))
}
