// Package rules loads and validates the compiled rule set the evaluation
// engine runs against.
//
// Rules are authored offline in the adoption tracking CSV, compiled to a
// JSON rule file by cmd/ruleset, and loaded once at startup. The package
// also owns the scenario-keyword → input-field mapping table and the target
// string grammar shared with the compiler.
package rules

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/fepilot/adoption-navigator/internal/model"
)

// Store holds the loaded rule set. Immutable after construction; safe for
// concurrent readers.
type Store struct {
	set    model.RuleSet
	issues []string
}

// Load reads a rule file from path. An empty path or a missing file falls
// back to the embedded seed rules with a warning — the service stays usable
// before the first CSV compile.
func Load(path string, logger *slog.Logger) (*Store, error) {
	if path == "" {
		logger.Warn("rules: no rule file configured, using seed rules")
		return New(Seed(), logger), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Warn("rules: rule file not found, using seed rules", "path", path)
			return New(Seed(), logger), nil
		}
		return nil, fmt.Errorf("rules: read %s: %w", path, err)
	}

	var set model.RuleSet
	if err := json.Unmarshal(data, &set); err != nil {
		return nil, fmt.Errorf("rules: parse %s: %w", path, err)
	}
	if len(set.Rules) == 0 {
		return nil, fmt.Errorf("rules: %s contains no rules", path)
	}

	// Rebuild the by-metric index rather than trusting the file's copy;
	// a stale index would silently skip rules during evaluation.
	set.RulesByMetric = indexByMetric(set.Rules)

	logger.Info("rules: loaded rule file",
		"path", path,
		"rules", len(set.Rules),
		"metrics", len(set.RulesByMetric),
		"source", set.Metadata.Source)
	return New(set, logger), nil
}

// New wraps a rule set in a Store, running validation and logging every
// issue found. Issues are warnings, not errors: a partially-mapped rule
// set still evaluates, it just leans on the first-available-value fallback.
func New(set model.RuleSet, logger *slog.Logger) *Store {
	if set.RulesByMetric == nil {
		set.RulesByMetric = indexByMetric(set.Rules)
	}
	s := &Store{set: set, issues: Validate(set.Rules)}
	for _, issue := range s.issues {
		logger.Warn("rules: validation issue", "issue", issue)
	}
	return s
}

// All returns every rule in file order.
func (s *Store) All() []model.Rule {
	return s.set.Rules
}

// ByMetric returns the rules grouped by metric.
func (s *Store) ByMetric() map[string][]model.Rule {
	return s.set.RulesByMetric
}

// Set returns the full rule set including metadata.
func (s *Store) Set() model.RuleSet {
	return s.set
}

// Issues returns the validation issues found at load time.
func (s *Store) Issues() []string {
	return s.issues
}

// Validate checks structural invariants over a rule list:
//
//   - IDs are unique and non-empty.
//   - Exactly the fields of the declared target shape are populated.
//   - Each scenario maps to a field group, and at least one candidate
//     field exists in the metric's known field schema.
//
// Returns a human-readable issue per violation.
func Validate(ruleList []model.Rule) []string {
	var issues []string
	seen := make(map[string]bool, len(ruleList))

	for _, r := range ruleList {
		switch {
		case r.ID == "":
			issues = append(issues, fmt.Sprintf("rule for metric %q has an empty id", r.Metric))
		case seen[r.ID]:
			issues = append(issues, fmt.Sprintf("duplicate rule id %q", r.ID))
		default:
			seen[r.ID] = true
		}

		if issue := validateTargetShape(r); issue != "" {
			issues = append(issues, issue)
		}

		fields, ok := FieldsForScenario(r.Scenario)
		if !ok {
			issues = append(issues, fmt.Sprintf("rule %s: scenario %q matches no field mapping", r.ID, r.Scenario))
			continue
		}
		if known, exists := MetricFields[r.Metric]; exists && !anyFieldKnown(fields, known) {
			issues = append(issues, fmt.Sprintf("rule %s: mapped fields %v are not in metric %q schema", r.ID, fields, r.Metric))
		}
	}
	return issues
}

func validateTargetShape(r model.Rule) string {
	switch r.TargetType {
	case model.TargetThreshold:
		if r.TargetValue == nil || r.TargetOperator == "" {
			return fmt.Sprintf("rule %s: threshold target missing value or operator", r.ID)
		}
	case model.TargetRange:
		if r.TargetMin == nil || r.TargetMax == nil {
			return fmt.Sprintf("rule %s: range target missing min or max", r.ID)
		}
		if *r.TargetMin > *r.TargetMax {
			return fmt.Sprintf("rule %s: range target min %v exceeds max %v", r.ID, *r.TargetMin, *r.TargetMax)
		}
	case model.TargetLabel:
		if r.TargetLabel == "" {
			return fmt.Sprintf("rule %s: label target missing label text", r.ID)
		}
	case model.TargetNone:
		// Nothing to check.
	default:
		return fmt.Sprintf("rule %s: unknown target type %q", r.ID, r.TargetType)
	}
	return ""
}

func anyFieldKnown(candidates, known []string) bool {
	for _, c := range candidates {
		for _, k := range known {
			if c == k {
				return true
			}
		}
	}
	return false
}

func indexByMetric(ruleList []model.Rule) map[string][]model.Rule {
	byMetric := make(map[string][]model.Rule)
	for _, r := range ruleList {
		byMetric[r.Metric] = append(byMetric[r.Metric], r)
	}
	return byMetric
}
