package model

import "time"

// TargetType discriminates how a rule's target is evaluated.
type TargetType string

const (
	// TargetNone has no condition; any provided input surfaces the rule.
	TargetNone TargetType = "none"
	// TargetThreshold compares the input against a single numeric bound.
	TargetThreshold TargetType = "threshold"
	// TargetRange fires when the input falls outside [min, max].
	TargetRange TargetType = "range"
	// TargetLabel matches a substring of a textual input, case-insensitively.
	TargetLabel TargetType = "label"
)

// Comparison operators accepted for threshold targets.
const (
	OpLT  = "<"
	OpLTE = "<="
	OpGT  = ">"
	OpGTE = ">="
	OpEQ  = "="
	OpEQ2 = "=="
	OpNEQ = "!="
)

// Rule is an authored condition plus recommendation text, tied to a metric
// and scenario. Rules are immutable; they are compiled offline from the
// adoption tracking CSV and loaded once at startup.
//
// Exactly one of the four target shapes is populated, per TargetType:
// threshold uses TargetValue/TargetOperator, range uses TargetMin/TargetMax,
// label uses TargetLabel, none uses nothing.
type Rule struct {
	ID             string     `json:"id"`
	Metric         string     `json:"metric"`
	Scenario       string     `json:"scenario"`
	Recommendation string     `json:"recommendation"`
	Resources      string     `json:"resources"`
	Target         string     `json:"target"` // Human-readable target as authored, e.g. "< 50%".
	TargetType     TargetType `json:"targetType"`
	TargetValue    *float64   `json:"targetValue,omitempty"`
	TargetOperator string     `json:"targetOperator,omitempty"`
	TargetUnit     string     `json:"targetUnit,omitempty"`
	TargetMin      *float64   `json:"targetMin,omitempty"`
	TargetMax      *float64   `json:"targetMax,omitempty"`
	TargetLabel    string     `json:"targetLabel,omitempty"`
}

// RuleSet is the on-disk rule file format: the flat rule list, a by-metric
// index, and provenance metadata from the compile step.
type RuleSet struct {
	Rules         []Rule            `json:"rules"`
	RulesByMetric map[string][]Rule `json:"rulesByMetric"`
	Metadata      RuleSetMetadata   `json:"metadata"`
}

// RuleSetMetadata records where and when a rule file was generated.
type RuleSetMetadata struct {
	GeneratedAt time.Time `json:"generatedAt"`
	Source      string    `json:"source"`
	TotalRules  int       `json:"totalRules"`
	Metrics     []string  `json:"metrics"`
}
