package rules

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fepilot/adoption-navigator/internal/model"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestParseTarget(t *testing.T) {
	tests := []struct {
		name   string
		target string
		want   model.Rule
	}{
		{
			name:   "threshold with unit",
			target: "< 50 %",
			want: model.Rule{
				TargetType:     model.TargetThreshold,
				TargetValue:    ptr(50.0),
				TargetOperator: model.OpLT,
				TargetUnit:     "%",
			},
		},
		{
			name:   "threshold no space no unit",
			target: ">=11",
			want: model.Rule{
				TargetType:     model.TargetThreshold,
				TargetValue:    ptr(11.0),
				TargetOperator: model.OpGTE,
			},
		},
		{
			name:   "unicode operator normalized",
			target: "≥ 8",
			want: model.Rule{
				TargetType:     model.TargetThreshold,
				TargetValue:    ptr(8.0),
				TargetOperator: model.OpGTE,
			},
		},
		{
			name:   "decimal threshold",
			target: "< 2.5 hours",
			want: model.Rule{
				TargetType:     model.TargetThreshold,
				TargetValue:    ptr(2.5),
				TargetOperator: model.OpLT,
				TargetUnit:     "hours",
			},
		},
		{
			name:   "range with unit",
			target: "3 - 5 apps",
			want: model.Rule{
				TargetType: model.TargetRange,
				TargetMin:  ptr(3.0),
				TargetMax:  ptr(5.0),
				TargetUnit: "apps",
			},
		},
		{
			name:   "range compact",
			target: "10-20%",
			want: model.Rule{
				TargetType: model.TargetRange,
				TargetMin:  ptr(10.0),
				TargetMax:  ptr(20.0),
				TargetUnit: "%",
			},
		},
		{
			name:   "label",
			target: "Steady growth",
			want: model.Rule{
				TargetType:  model.TargetLabel,
				TargetLabel: "Steady growth",
			},
		},
		{
			name:   "empty is none",
			target: "",
			want:   model.Rule{TargetType: model.TargetNone},
		},
		{
			name:   "whitespace is none",
			target: "   ",
			want:   model.Rule{TargetType: model.TargetNone},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseTarget(tt.target)
			assert.Equal(t, tt.want.TargetType, got.TargetType)
			assert.Equal(t, tt.want.TargetOperator, got.TargetOperator)
			assert.Equal(t, tt.want.TargetUnit, got.TargetUnit)
			assert.Equal(t, tt.want.TargetLabel, got.TargetLabel)
			if tt.want.TargetValue != nil {
				require.NotNil(t, got.TargetValue)
				assert.Equal(t, *tt.want.TargetValue, *got.TargetValue)
			}
			if tt.want.TargetMin != nil {
				require.NotNil(t, got.TargetMin)
				assert.Equal(t, *tt.want.TargetMin, *got.TargetMin)
				require.NotNil(t, got.TargetMax)
				assert.Equal(t, *tt.want.TargetMax, *got.TargetMax)
			}
		})
	}
}

func TestFieldsForScenario(t *testing.T) {
	fields, ok := FieldsForScenario("Low % active users")
	require.True(t, ok)
	assert.Equal(t, []string{"activeUsersPercent"}, fields)

	// Group order matters: "active users" shadows the bare "actions" group.
	fields, ok = FieldsForScenario("Inactive Users taking few actions")
	require.True(t, ok)
	assert.Equal(t, []string{"activeUsersPercent"}, fields)

	fields, ok = FieldsForScenario("Declining trend in usage")
	require.True(t, ok)
	assert.Equal(t, []string{"trendPattern", "workPatternChange"}, fields)

	_, ok = FieldsForScenario("Completely unrelated scenario text")
	assert.False(t, ok)
}

func TestValidate(t *testing.T) {
	valid := model.Rule{
		ID:             "r1",
		Metric:         "Usage Summary",
		Scenario:       "Low % active users",
		TargetType:     model.TargetThreshold,
		TargetValue:    ptr(50.0),
		TargetOperator: model.OpLT,
	}
	assert.Empty(t, Validate([]model.Rule{valid}))

	t.Run("duplicate and empty ids", func(t *testing.T) {
		dup := valid
		issues := Validate([]model.Rule{valid, dup, {Metric: "Usage Summary", Scenario: "Low % active users", TargetType: model.TargetNone}})
		require.Len(t, issues, 2)
		assert.Contains(t, issues[0], "duplicate rule id")
		assert.Contains(t, issues[1], "empty id")
	})

	t.Run("threshold missing operator", func(t *testing.T) {
		r := valid
		r.TargetOperator = ""
		issues := Validate([]model.Rule{r})
		require.Len(t, issues, 1)
		assert.Contains(t, issues[0], "missing value or operator")
	})

	t.Run("inverted range", func(t *testing.T) {
		r := model.Rule{
			ID:         "r2",
			Metric:     "Feature Usage",
			Scenario:   "Too few apps used",
			TargetType: model.TargetRange,
			TargetMin:  ptr(5.0),
			TargetMax:  ptr(3.0),
		}
		issues := Validate([]model.Rule{r})
		require.Len(t, issues, 1)
		assert.Contains(t, issues[0], "exceeds max")
	})

	t.Run("unmapped scenario", func(t *testing.T) {
		r := valid
		r.Scenario = "No keyword here at all"
		issues := Validate([]model.Rule{r})
		require.Len(t, issues, 1)
		assert.Contains(t, issues[0], "matches no field mapping")
	})

	t.Run("mapped field outside metric schema", func(t *testing.T) {
		r := valid
		r.Metric = "Work Patterns"
		issues := Validate([]model.Rule{r})
		require.Len(t, issues, 1)
		assert.Contains(t, issues[0], "not in metric")
	})
}

func TestLoadFallsBackToSeed(t *testing.T) {
	s, err := Load("", discard())
	require.NoError(t, err)
	assert.Len(t, s.All(), 3)
	assert.Equal(t, "seed", s.Set().Metadata.Source)

	s, err = Load(filepath.Join(t.TempDir(), "missing.json"), discard())
	require.NoError(t, err)
	assert.Equal(t, "seed", s.Set().Metadata.Source)
}

func TestLoadRuleFile(t *testing.T) {
	set := Seed()
	set.Metadata.Source = "data/tracking.csv"
	data, err := json.Marshal(set)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "rules.json")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	s, err := Load(path, discard())
	require.NoError(t, err)
	assert.Len(t, s.All(), 3)
	assert.Equal(t, "data/tracking.csv", s.Set().Metadata.Source)
	assert.Len(t, s.ByMetric()["Usage Summary"], 2)
	assert.Empty(t, s.Issues())
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	dir := t.TempDir()

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{not json"), 0o644))
	_, err := Load(bad, discard())
	assert.Error(t, err)

	empty := filepath.Join(dir, "empty.json")
	require.NoError(t, os.WriteFile(empty, []byte(`{"rules":[]}`), 0o644))
	_, err = Load(empty, discard())
	assert.Error(t, err)
}

func TestSeedValidates(t *testing.T) {
	assert.Empty(t, Validate(Seed().Rules))
}
