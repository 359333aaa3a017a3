package aggregate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/terrafield-ag/paddock-engine/pkg/config"
	"github.com/terrafield-ag/paddock-engine/pkg/models"
)

func TestApplyRule_EmptyInputIsNullForEveryRule(t *testing.T) {
	rules := []RuleKind{RuleSum, RuleMean, RuleDivideByUnitCount, RuleFirst, RuleMajority}
	for _, rule := range rules {
		assert.True(t, ApplyRule(nil, rule, 3).IsNull(), "rule %s", rule)
		assert.True(t, ApplyRule([]models.Value{}, rule, 3).IsNull(), "rule %s", rule)
	}
}

func TestApplyRule_AllNullInputIsNullForEveryRule(t *testing.T) {
	values := []models.Value{models.NullValue(), models.NullValue()}
	rules := []RuleKind{RuleSum, RuleMean, RuleDivideByUnitCount, RuleFirst, RuleMajority}
	for _, rule := range rules {
		assert.True(t, ApplyRule(values, rule, 2).IsNull(), "rule %s", rule)
	}
}

func TestApplyRule_SumIgnoresNonNumeric(t *testing.T) {
	values := []models.Value{
		models.NumberValue(10),
		models.StringValue("not a number"),
		models.NumberValue(15.5),
		models.NullValue(),
		models.BoolValue(true),
	}

	got := ApplyRule(values, RuleSum, 1)
	n, ok := got.AsNumber()
	require.True(t, ok)
	assert.InDelta(t, 25.5, n, 1e-9)
}

func TestApplyRule_Mean(t *testing.T) {
	values := []models.Value{
		models.NumberValue(2),
		models.NumberValue(4),
		models.NumberValue(6),
	}

	got := ApplyRule(values, RuleMean, 1)
	n, ok := got.AsNumber()
	require.True(t, ok)
	assert.InDelta(t, 4, n, 1e-9)
}

func TestApplyRule_MeanWithNoNumericEntriesIsNull(t *testing.T) {
	values := []models.Value{models.StringValue("a"), models.StringValue("b")}
	assert.True(t, ApplyRule(values, RuleMean, 1).IsNull())
}

func TestApplyRule_DivideByUnitCount(t *testing.T) {
	values := []models.Value{models.NumberValue(30), models.NumberValue(60)}

	got := ApplyRule(values, RuleDivideByUnitCount, 3)
	n, ok := got.AsNumber()
	require.True(t, ok)
	assert.InDelta(t, 30, n, 1e-9)
}

func TestApplyRule_DivideByZeroUnitCountFallsBackToSum(t *testing.T) {
	values := []models.Value{models.NumberValue(30), models.NumberValue(60)}

	got := ApplyRule(values, RuleDivideByUnitCount, 0)
	n, ok := got.AsNumber()
	require.True(t, ok)
	assert.InDelta(t, 90, n, 1e-9)
}

func TestApplyRule_FirstSkipsNulls(t *testing.T) {
	values := []models.Value{
		models.NullValue(),
		models.StringValue("wheat"),
		models.StringValue("barley"),
	}

	got := ApplyRule(values, RuleFirst, 1)
	s, ok := got.AsString()
	require.True(t, ok)
	assert.Equal(t, "wheat", s)
}

func TestApplyRule_MajorityPicksMostFrequent(t *testing.T) {
	values := []models.Value{
		models.StringValue("angus"),
		models.StringValue("hereford"),
		models.StringValue("hereford"),
	}

	got := ApplyRule(values, RuleMajority, 1)
	s, ok := got.AsString()
	require.True(t, ok)
	assert.Equal(t, "hereford", s)
}

func TestApplyRule_MajorityTieKeepsFirstEncountered(t *testing.T) {
	values := []models.Value{
		models.StringValue("angus"),
		models.StringValue("hereford"),
		models.StringValue("angus"),
		models.StringValue("hereford"),
	}

	got := ApplyRule(values, RuleMajority, 1)
	s, ok := got.AsString()
	require.True(t, ok)
	assert.Equal(t, "angus", s)
}

func TestParseRuleKind(t *testing.T) {
	for _, name := range []string{"sum", "mean", "divide_by_unit_count", "first", "majority"} {
		_, ok := ParseRuleKind(name)
		assert.True(t, ok, "rule %s", name)
	}
	_, ok := ParseRuleKind("median")
	assert.False(t, ok)
}

func TestEngine_DefaultsToFirstWhenKeyUnconfigured(t *testing.T) {
	engine := NewEngine(config.RuleTable{
		"livestock": {"animal_count": "sum"},
	}, zap.NewNop())

	values := []models.Value{models.NumberValue(7), models.NumberValue(9)}

	// Configured key sums.
	got := engine.Apply("livestock", "animal_count", values, 2)
	n, ok := got.AsNumber()
	require.True(t, ok)
	assert.InDelta(t, 16, n, 1e-9)

	// Unconfigured key takes the first value.
	got = engine.Apply("livestock", "paddock_note", values, 2)
	n, ok = got.AsNumber()
	require.True(t, ok)
	assert.InDelta(t, 7, n, 1e-9)

	// Unconfigured namespace too.
	got = engine.Apply("soil", "ph", values, 2)
	n, ok = got.AsNumber()
	require.True(t, ok)
	assert.InDelta(t, 7, n, 1e-9)
}

func TestEngine_UnknownRuleFallsBackToFirst(t *testing.T) {
	engine := NewEngine(config.RuleTable{
		"livestock": {"animal_count": "median"},
	}, zap.NewNop())

	values := []models.Value{models.NumberValue(7), models.NumberValue(9)}
	got := engine.Apply("livestock", "animal_count", values, 2)
	n, ok := got.AsNumber()
	require.True(t, ok)
	assert.InDelta(t, 7, n, 1e-9)
}
