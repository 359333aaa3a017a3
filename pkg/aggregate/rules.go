// Package aggregate combines the attribute values of records that collapse
// onto the same (reference paddock, year, namespace) key. Rule application
// is best-effort and never fails: every call returns a definite scalar,
// possibly null, and anomalies surface only as warnings.
package aggregate

import (
	"go.uber.org/zap"

	"github.com/terrafield-ag/paddock-engine/pkg/config"
	"github.com/terrafield-ag/paddock-engine/pkg/models"
)

// RuleKind names an aggregation rule.
type RuleKind string

const (
	// RuleSum adds numeric entries; for distributive quantities where
	// merged paddocks add their contributions.
	RuleSum RuleKind = "sum"
	// RuleMean averages numeric entries; for intensive quantities (rates)
	// that must not add up when paddocks merge.
	RuleMean RuleKind = "mean"
	// RuleDivideByUnitCount sums numeric entries and divides by the number
	// of distinct original paddocks in the group.
	RuleDivideByUnitCount RuleKind = "divide_by_unit_count"
	// RuleFirst keeps the first non-null value in encounter order. Default
	// for keys with no configured rule.
	RuleFirst RuleKind = "first"
	// RuleMajority keeps the most frequent non-null value; ties go to the
	// value that appeared first.
	RuleMajority RuleKind = "majority"
)

// ParseRuleKind validates a configured rule name.
func ParseRuleKind(s string) (RuleKind, bool) {
	switch RuleKind(s) {
	case RuleSum, RuleMean, RuleDivideByUnitCount, RuleFirst, RuleMajority:
		return RuleKind(s), true
	}
	return "", false
}

// ApplyRule reduces values to a single scalar under the given rule.
// Null entries are discarded first; an all-null or empty input yields null
// for every rule. Non-numeric entries are silently dropped by the numeric
// rules. unitCount is the number of distinct original paddocks that
// contributed to the group; RuleDivideByUnitCount falls back to the plain
// sum when it is zero.
func ApplyRule(values []models.Value, rule RuleKind, unitCount int) models.Value {
	clean := values[:0:0]
	for _, v := range values {
		if !v.IsNull() {
			clean = append(clean, v)
		}
	}
	if len(clean) == 0 {
		return models.NullValue()
	}

	switch rule {
	case RuleSum:
		total, _ := sumNumeric(clean)
		return models.NumberValue(total)

	case RuleMean:
		total, n := sumNumeric(clean)
		if n == 0 {
			return models.NullValue()
		}
		return models.NumberValue(total / float64(n))

	case RuleDivideByUnitCount:
		total, _ := sumNumeric(clean)
		if unitCount > 0 {
			return models.NumberValue(total / float64(unitCount))
		}
		return models.NumberValue(total)

	case RuleMajority:
		counts := make(map[models.Value]int, len(clean))
		for _, v := range clean {
			counts[v]++
		}
		// Scan in encounter order so ties go to the value seen first.
		best := clean[0]
		bestCount := 0
		for _, v := range clean {
			if counts[v] > bestCount {
				best = v
				bestCount = counts[v]
			}
		}
		return best

	default:
		// RuleFirst and anything unrecognized that slipped past the
		// engine's lookup.
		return clean[0]
	}
}

func sumNumeric(values []models.Value) (total float64, n int) {
	for _, v := range values {
		if f, ok := v.AsNumber(); ok {
			total += f
			n++
		}
	}
	return total, n
}

// Engine resolves per-(namespace, key) rules from the configured table and
// applies them. The table is loaded once at session start and shared read-only.
type Engine struct {
	rules  config.RuleTable
	logger *zap.Logger
}

// NewEngine creates a rule engine over the given table.
func NewEngine(rules config.RuleTable, logger *zap.Logger) *Engine {
	return &Engine{
		rules:  rules,
		logger: logger.Named("aggregate"),
	}
}

// Apply reduces the values collected for one attribute key. Keys with no
// configured rule use RuleFirst; unknown rule names log a warning and also
// fall back to RuleFirst.
func (e *Engine) Apply(namespace, key string, values []models.Value, unitCount int) models.Value {
	rule := RuleFirst
	if name, ok := e.rules.Rule(namespace, key); ok {
		parsed, valid := ParseRuleKind(name)
		if valid {
			rule = parsed
		} else {
			e.logger.Warn("Unknown aggregation rule, falling back to first",
				zap.String("namespace", namespace),
				zap.String("key", key),
				zap.String("rule", name))
		}
	}
	return ApplyRule(values, rule, unitCount)
}
