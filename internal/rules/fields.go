package rules

import "strings"

// FieldMapping binds a group of scenario keywords to the input fields that
// satisfy it. Keywords are matched as case-insensitive substrings of the
// rule's scenario text, in declaration order; the first matching group
// wins, and within a group the first field present in the metric's inputs
// is used.
//
// This table replaces ad-hoc keyword dispatch scattered through evaluation:
// it is validated against the metric field schema at rule-load time, so a
// scenario no mapping covers is reported loudly instead of silently falling
// back to an arbitrary input.
type FieldMapping struct {
	Keywords []string
	Fields   []string
}

// ScenarioFields is the ordered scenario-keyword → input-field table.
// Order matters: earlier groups shadow later ones (e.g. "active users"
// must be checked before the bare "actions" group would match "inactive
// user actions").
var ScenarioFields = []FieldMapping{
	{Keywords: []string{"active users", "activation"}, Fields: []string{"activeUsersPercent"}},
	{Keywords: []string{"weekly actions", "actions"}, Fields: []string{"weeklyActions"}},
	{Keywords: []string{"trend", "pattern"}, Fields: []string{"trendPattern", "workPatternChange"}},
	{Keywords: []string{"non-users"}, Fields: []string{"nonUsersPercent"}},
	{Keywords: []string{"low users"}, Fields: []string{"lowUsersPercent"}},
	{Keywords: []string{"habitual"}, Fields: []string{"habitualUsersPercent"}},
	{Keywords: []string{"power users"}, Fields: []string{"powerUsersPercent"}},
	{Keywords: []string{"weeks", "habit formation"}, Fields: []string{"weeksToHabit"}},
	{Keywords: []string{"adoption speed", "ramp"}, Fields: []string{"adoptionSpeed"}},
	{Keywords: []string{"apps", "feature diversity"}, Fields: []string{"appsPerWeek"}},
	{Keywords: []string{"lowest feature", "feature usage"}, Fields: []string{"lowestFeatureUsage"}},
	{Keywords: []string{"low adoption teams", "heatmap"}, Fields: []string{"lowAdoptionTeamsPercent"}},
	{Keywords: []string{"regional", "geography"}, Fields: []string{"regionalVariance"}},
	{Keywords: []string{"assisted hours", "copilot-assisted"}, Fields: []string{"assistedHoursPerWeek"}},
	{Keywords: []string{"hours difference", "gap between"}, Fields: []string{"hoursDeltaBetweenUsers"}},
	{Keywords: []string{"feature-to-pattern", "mapping"}, Fields: []string{"featureMappingStatus"}},
}

// MetricFields is the known input-field schema per metric, used to validate
// the mapping table against loaded rules.
var MetricFields = map[string][]string{
	"Usage Summary":                     {"activeUsersPercent", "weeklyActions"},
	"Usage Trends Over Time":            {"trendPattern"},
	"Usage Thresholds (Tiers)":          {"nonUsersPercent", "lowUsersPercent", "habitualUsersPercent", "powerUsersPercent"},
	"Usage Since Activation":            {"weeksToHabit", "adoptionSpeed"},
	"Feature Usage":                     {"appsPerWeek", "lowestFeatureUsage"},
	"Usage Heatmap (by Group/Region)":   {"lowAdoptionTeamsPercent", "regionalVariance"},
	"Copilot-Assisted Hours":            {"assistedHoursPerWeek", "hoursDeltaBetweenUsers"},
	"Work Patterns":                     {"workPatternChange"},
	"Mapping Features to Work Patterns": {"featureMappingStatus"},
}

// FieldsForScenario returns the candidate input fields for a rule's
// scenario text, or ok=false when no keyword group matches.
func FieldsForScenario(scenario string) ([]string, bool) {
	s := strings.ToLower(scenario)
	for _, m := range ScenarioFields {
		for _, kw := range m.Keywords {
			if strings.Contains(s, kw) {
				return m.Fields, true
			}
		}
	}
	return nil, false
}
