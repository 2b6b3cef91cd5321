package rules

import (
	"time"

	"github.com/fepilot/adoption-navigator/internal/model"
)

// Seed returns the built-in fallback rule set, used when no rule file is
// configured or the configured file cannot be read.
func Seed() model.RuleSet {
	rules := []model.Rule{
		{
			ID:             "seed-1",
			Metric:         "Usage Summary",
			Scenario:       "Low % active users",
			Recommendation: "Run a Copilot Awareness Campaign (kick-off email, manager comms, quick start guides).",
			Resources:      "Copilot Success Kit; Get Started with Copilot",
			Target:         "< 50%",
			TargetType:     model.TargetThreshold,
			TargetValue:    ptr(50.0),
			TargetOperator: model.OpLT,
			TargetUnit:     "%",
		},
		{
			ID:             "seed-2",
			Metric:         "Usage Summary",
			Scenario:       "Low weekly actions",
			Recommendation: "Launch an 11×20 Copilot Actions Challenge (target: 11 actions/week, 20 users reach power-user status).",
			Resources:      "Copilot Success Kit; Prompt-a-thon Guide; Great Copilot Journey",
			Target:         "< 11",
			TargetType:     model.TargetThreshold,
			TargetValue:    ptr(11.0),
			TargetOperator: model.OpLT,
			TargetUnit:     "actions/week",
		},
		{
			ID:             "seed-3",
			Metric:         "Feature Usage",
			Scenario:       "Usage concentrated in few apps",
			Recommendation: "Run an Office Suite Copilot Day (short demos for Word, Excel, PowerPoint, Outlook).",
			Resources:      "Word Copilot Guide; Copilot Video Tutorials",
			Target:         "< 3",
			TargetType:     model.TargetThreshold,
			TargetValue:    ptr(3.0),
			TargetOperator: model.OpLT,
			TargetUnit:     "apps",
		},
	}

	byMetric := make(map[string][]model.Rule)
	metrics := make([]string, 0, 2)
	for _, r := range rules {
		if _, seen := byMetric[r.Metric]; !seen {
			metrics = append(metrics, r.Metric)
		}
		byMetric[r.Metric] = append(byMetric[r.Metric], r)
	}

	return model.RuleSet{
		Rules:         rules,
		RulesByMetric: byMetric,
		Metadata: model.RuleSetMetadata{
			GeneratedAt: time.Now().UTC(),
			Source:      "seed",
			TotalRules:  len(rules),
			Metrics:     metrics,
		},
	}
}

func ptr[T any](v T) *T { return &v }
