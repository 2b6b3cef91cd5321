// Package evaluate implements the rule evaluation engine: it maps user
// metric inputs onto rule conditions and produces triggered
// recommendations with gap and effort estimates.
//
// Evaluation is total over arbitrary user input. Malformed values never
// abort a pass; they degrade to "not triggered" or a nil gap.
package evaluate

import (
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/fepilot/adoption-navigator/internal/model"
	"github.com/fepilot/adoption-navigator/internal/rules"
)

// Engine evaluates rule sets against user inputs.
type Engine struct {
	logger *slog.Logger
}

// New creates an evaluation engine.
func New(logger *slog.Logger) *Engine {
	return &Engine{logger: logger}
}

// Evaluate runs every rule whose metric has at least one provided input.
// A metric with no inputs gates all of its rules: none are evaluated.
// Output preserves rule-file order within each metric and the order of
// first metric appearance across the file; no cross-metric sorting or
// deduplication happens here.
func (e *Engine) Evaluate(ruleList []model.Rule, inputs map[string]model.UserInput) model.EvaluationResult {
	byMetric := make(map[string][]model.Rule)
	metricOrder := make([]string, 0, len(byMetric))
	for _, r := range ruleList {
		if _, seen := byMetric[r.Metric]; !seen {
			metricOrder = append(metricOrder, r.Metric)
		}
		byMetric[r.Metric] = append(byMetric[r.Metric], r)
	}

	inputsByMetric := flattenInputs(inputs, e.logger)

	var triggered []model.TriggeredRecommendation
	for _, metric := range metricOrder {
		metricInputs := inputsByMetric[metric]
		if metricInputs.empty() {
			continue
		}
		for _, rule := range byMetric[metric] {
			value, ok := relevantValue(rule, metricInputs)
			if !ok {
				continue
			}
			if !Triggered(rule, value) {
				continue
			}
			gap := Gap(rule, value)
			gapPercent := GapPercent(rule, value)
			triggered = append(triggered, model.TriggeredRecommendation{
				RuleID:         rule.ID,
				Metric:         rule.Metric,
				Scenario:       rule.Scenario,
				Recommendation: rule.Recommendation,
				Resources:      rule.Resources,
				Target:         rule.Target,
				UserValue:      value,
				Gap:            gap,
				GapPercent:     gapPercent,
				Effort:         EstimateEffort(gap, gapPercent),
			})
		}
	}

	return model.EvaluationResult{
		Triggered:      triggered,
		EvaluatedAt:    time.Now().UTC(),
		TotalInputs:    len(inputs),
		TotalTriggered: len(triggered),
	}
}

// metricInputSet is one metric's inputs as field key → value, with a
// deterministic field order for the first-available-value fallback:
// the metric's schema order first, then any unknown fields sorted.
type metricInputSet struct {
	values map[string]model.Value
	order  []string
}

func (s metricInputSet) empty() bool { return len(s.values) == 0 }

func (s metricInputSet) first() (model.Value, bool) {
	if len(s.order) == 0 {
		return model.Value{}, false
	}
	return s.values[s.order[0]], true
}

func flattenInputs(inputs map[string]model.UserInput, logger *slog.Logger) map[string]metricInputSet {
	byMetric := make(map[string]map[string]model.Value)
	for key, in := range inputs {
		metric, field, err := model.SplitInputKey(key)
		if err != nil {
			logger.Warn("evaluate: skipping malformed input key", "key", key)
			continue
		}
		if byMetric[metric] == nil {
			byMetric[metric] = make(map[string]model.Value)
		}
		byMetric[metric][field] = in.Value
	}

	sets := make(map[string]metricInputSet, len(byMetric))
	for metric, values := range byMetric {
		sets[metric] = metricInputSet{values: values, order: fieldOrder(metric, values)}
	}
	return sets
}

// fieldOrder returns the fields present for a metric, schema fields first
// in schema order, then any extras sorted for determinism.
func fieldOrder(metric string, values map[string]model.Value) []string {
	order := make([]string, 0, len(values))
	inSchema := make(map[string]bool, len(values))
	for _, f := range rules.MetricFields[metric] {
		if _, ok := values[f]; ok {
			order = append(order, f)
			inSchema[f] = true
		}
	}
	var extras []string
	for f := range values {
		if !inSchema[f] {
			extras = append(extras, f)
		}
	}
	sort.Strings(extras)
	return append(order, extras...)
}

// relevantValue resolves the input value a rule should be judged against.
// A scenario that maps to known fields is judged only against those fields;
// when none of them were provided the rule is skipped rather than matched
// to an unrelated input. The first-available-value fallback applies only to
// scenarios with no field mapping at all.
func relevantValue(rule model.Rule, inputs metricInputSet) (model.Value, bool) {
	if fields, ok := rules.FieldsForScenario(rule.Scenario); ok {
		for _, f := range fields {
			if v, present := inputs.values[f]; present {
				return v, true
			}
		}
		return model.Value{}, false
	}
	return inputs.first()
}

// Triggered reports whether a rule fires for the given value. Target types
// are checked in precedence order: label, none, then numeric comparisons.
// Values that cannot be coerced to a number fail closed for threshold and
// range targets.
func Triggered(rule model.Rule, value model.Value) bool {
	switch rule.TargetType {
	case model.TargetLabel:
		if rule.TargetLabel != "" && value.IsText() {
			return strings.Contains(strings.ToLower(value.Text()), strings.ToLower(rule.TargetLabel))
		}
		// No label to match: surface the rule whenever any input exists.
		return anyInput(value)

	case model.TargetNone:
		return anyInput(value)

	case model.TargetThreshold:
		n, ok := value.Float()
		if !ok || rule.TargetValue == nil {
			return false
		}
		return compare(n, rule.TargetOperator, *rule.TargetValue)

	case model.TargetRange:
		n, ok := value.Float()
		if !ok || rule.TargetMin == nil || rule.TargetMax == nil {
			return false
		}
		// The range is the desired band; firing means "needs attention".
		return n < *rule.TargetMin || n > *rule.TargetMax
	}
	return false
}

// anyInput reports whether the value counts as "provided": non-empty text,
// or any number at all.
func anyInput(v model.Value) bool {
	if v.IsText() {
		return strings.TrimSpace(v.Text()) != ""
	}
	return v.IsNumber()
}

func compare(value float64, operator string, target float64) bool {
	switch operator {
	case model.OpLT:
		return value < target
	case model.OpLTE:
		return value <= target
	case model.OpGT:
		return value > target
	case model.OpGTE:
		return value >= target
	case model.OpEQ, model.OpEQ2:
		return value == target
	case model.OpNEQ:
		return value != target
	default:
		return false
	}
}

// Gap returns the absolute distance from the value to the rule's target:
// |value − target| for thresholds, distance to the nearest bound for
// ranges, nil for label/none targets and non-numeric values.
func Gap(rule model.Rule, value model.Value) *float64 {
	n, ok := value.Float()
	if !ok {
		return nil
	}

	switch rule.TargetType {
	case model.TargetThreshold:
		if rule.TargetValue != nil {
			g := math.Abs(n - *rule.TargetValue)
			return &g
		}
	case model.TargetRange:
		if rule.TargetMin != nil && rule.TargetMax != nil {
			if n < *rule.TargetMin {
				g := *rule.TargetMin - n
				return &g
			}
			if n > *rule.TargetMax {
				g := n - *rule.TargetMax
				return &g
			}
		}
	}
	return nil
}

// GapPercent returns the signed percentage gap: relative to the target for
// thresholds, relative to the range midpoint for ranges. Nil when the
// reference point is zero or the value is non-numeric.
func GapPercent(rule model.Rule, value model.Value) *float64 {
	n, ok := value.Float()
	if !ok {
		return nil
	}

	switch rule.TargetType {
	case model.TargetThreshold:
		if rule.TargetValue != nil && *rule.TargetValue != 0 {
			p := (n - *rule.TargetValue) / *rule.TargetValue * 100
			return &p
		}
	case model.TargetRange:
		if rule.TargetMin != nil && rule.TargetMax != nil {
			mid := (*rule.TargetMin + *rule.TargetMax) / 2
			if mid != 0 {
				p := (n - mid) / mid * 100
				return &p
			}
		}
	}
	return nil
}

// EstimateEffort tiers remediation effort by gap size. Percentage gaps tier
// at 10% and 30%; absolute gaps (when no percentage is available) at 10 and
// 50. No gap at all defaults to medium.
func EstimateEffort(gap, gapPercent *float64) model.Effort {
	if gap == nil {
		return model.EffortMedium
	}
	if gapPercent != nil {
		abs := math.Abs(*gapPercent)
		switch {
		case abs < 10:
			return model.EffortLow
		case abs < 30:
			return model.EffortMedium
		default:
			return model.EffortHigh
		}
	}
	switch {
	case *gap < 10:
		return model.EffortLow
	case *gap < 50:
		return model.EffortMedium
	default:
		return model.EffortHigh
	}
}
