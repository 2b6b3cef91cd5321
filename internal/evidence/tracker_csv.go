package evidence

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/fepilot/adoption-navigator/internal/model"
)

// trackerHeaders mirrors the adoption tracker worksheet, columns A-N.
// Evaluation fills A-E and M; the rest are worked by hand after export.
var trackerHeaders = []string{
	"Metric",
	"Scenario",
	"Action (Recommendation)",
	"Resources",
	"Baseline Metric",
	"Post Metric",
	"Increase",
	"% Increase",
	"Start Date",
	"End Date",
	"Status",
	"Notes",
	"Target",
	"Feedback",
}

// WriteTrackerCSV writes triggered recommendations in the adoption
// tracker layout: one row per trigger, the user's value as the baseline
// metric and the rule's target in the Target column.
func WriteTrackerCSV(w io.Writer, triggered []model.TriggeredRecommendation) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(trackerHeaders); err != nil {
		return fmt.Errorf("evidence: write tracker header: %w", err)
	}
	for _, rec := range triggered {
		row := []string{
			rec.Metric,
			rec.Scenario,
			rec.Recommendation,
			rec.Resources,
			valueCell(rec.UserValue),
			"", // Post Metric
			"", // Increase
			"", // % Increase
			"", // Start Date
			"", // End Date
			"", // Status
			"", // Notes
			rec.Target,
			"", // Feedback
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("evidence: write tracker row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("evidence: flush tracker csv: %w", err)
	}
	return nil
}

func valueCell(v model.Value) string {
	if v.IsNumber() {
		n, _ := v.Float()
		return strconv.FormatFloat(n, 'g', -1, 64)
	}
	return v.Text()
}
