package outcomes

import (
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

// SuccessThreshold defines what counts as a successful outcome for a
// metric. Exactly one variant applies: DeltaPercent compares the percent
// movement, AbsoluteDelta compares |delta|. When both are set,
// AbsoluteDelta wins.
type SuccessThreshold struct {
	DeltaPercent  float64 `yaml:"deltaPercent,omitempty"`
	AbsoluteDelta float64 `yaml:"absoluteDelta,omitempty"`
	Absolute      bool    `yaml:"-"`
}

// UnmarshalYAML keeps track of which variant the file configured.
func (t *SuccessThreshold) UnmarshalYAML(node *yaml.Node) error {
	var raw struct {
		DeltaPercent  *float64 `yaml:"deltaPercent"`
		AbsoluteDelta *float64 `yaml:"absoluteDelta"`
	}
	if err := node.Decode(&raw); err != nil {
		return err
	}
	if raw.AbsoluteDelta != nil {
		t.AbsoluteDelta = *raw.AbsoluteDelta
		t.Absolute = true
		return nil
	}
	if raw.DeltaPercent != nil {
		t.DeltaPercent = *raw.DeltaPercent
		return nil
	}
	return fmt.Errorf("threshold needs deltaPercent or absoluteDelta")
}

// Met reports whether the given movement satisfies the threshold.
func (t SuccessThreshold) Met(delta, deltaPercent float64) bool {
	if t.Absolute {
		if delta < 0 {
			delta = -delta
		}
		return delta >= t.AbsoluteDelta
	}
	return deltaPercent >= t.DeltaPercent
}

// defaultThreshold applies to any metric absent from the table.
var defaultThreshold = SuccessThreshold{DeltaPercent: 10}

// defaultThresholds is the built-in per-metric success table.
func defaultThresholds() map[string]SuccessThreshold {
	return map[string]SuccessThreshold{
		"Usage Summary":                     {DeltaPercent: 10},
		"Usage Trends Over Time":            {DeltaPercent: 15},
		"Usage Thresholds (Tiers)":          {DeltaPercent: 5},
		"Usage Since Activation":            {DeltaPercent: 8},
		"Feature Usage":                     {DeltaPercent: 12},
		"Usage Heatmap (by Group/Region)":   {DeltaPercent: 10},
		"Copilot-Assisted Hours":            {DeltaPercent: 20},
		"Work Patterns":                     {DeltaPercent: 5},
		"Mapping Features to Work Patterns": {DeltaPercent: 10},
	}
}

// LoadThresholds returns the success table, merging overrides from a YAML
// file when path is non-empty. Unknown metrics in the file extend the
// table rather than erroring.
func LoadThresholds(path string, logger *slog.Logger) (map[string]SuccessThreshold, error) {
	table := defaultThresholds()
	if path == "" {
		return table, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Warn("success threshold file missing, using defaults", "path", path)
			return table, nil
		}
		return nil, fmt.Errorf("outcomes: read thresholds: %w", err)
	}

	var overrides map[string]SuccessThreshold
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return nil, fmt.Errorf("outcomes: parse thresholds %s: %w", path, err)
	}
	for metric, t := range overrides {
		table[metric] = t
	}
	logger.Info("success thresholds loaded", "path", path, "overrides", len(overrides))
	return table, nil
}
