package model

import (
	"fmt"
	"strings"
	"time"
)

// UserInput is one value a user provided for a (metric, field) pair.
// Inputs arrive keyed "<metric>:<fieldKey>"; the Scenario field repeats the
// field key, not the rule's scenario text.
type UserInput struct {
	Metric   string `json:"metric"`
	Scenario string `json:"scenario"`
	Value    Value  `json:"value"`
	Label    string `json:"label,omitempty"`
}

// SplitInputKey splits an input key on its first colon into metric and field
// key. Keys without a separator are rejected.
func SplitInputKey(key string) (metric, field string, err error) {
	metric, field, ok := strings.Cut(key, ":")
	if !ok || metric == "" || field == "" {
		return "", "", fmt.Errorf("model: input key %q must be \"<metric>:<fieldKey>\"", key)
	}
	return metric, field, nil
}

// Effort is a coarse estimate of remediation difficulty.
type Effort string

const (
	EffortLow    Effort = "low"
	EffortMedium Effort = "medium"
	EffortHigh   Effort = "high"
)

// TriggeredRecommendation is one fired rule in an evaluation result.
// Gap and GapPercent are nil for label/none targets and for inputs that
// cannot be coerced to a number.
type TriggeredRecommendation struct {
	RuleID         string   `json:"ruleId"`
	Metric         string   `json:"metric"`
	Scenario       string   `json:"scenario"`
	Recommendation string   `json:"recommendation"`
	Resources      string   `json:"resources"`
	Target         string   `json:"target"`
	UserValue      Value    `json:"userValue"`
	Gap            *float64 `json:"gap,omitempty"`
	GapPercent     *float64 `json:"gapPercent,omitempty"`
	Effort         Effort   `json:"effort"`
}

// EvaluationResult is the output of one evaluation pass. Produced fresh on
// every call; never persisted by the engine.
type EvaluationResult struct {
	Triggered      []TriggeredRecommendation `json:"triggered"`
	EvaluatedAt    time.Time                 `json:"evaluatedAt"`
	TotalInputs    int                       `json:"totalInputs"`
	TotalTriggered int                       `json:"totalTriggered"`
}
