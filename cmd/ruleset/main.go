// Command ruleset compiles the adoption tracking CSV into the JSON rule
// file the server loads at startup. Rows missing a metric, scenario, or
// recommendation are skipped; target strings are parsed with the shared
// grammar so the compiler and the engine never disagree.
package main

import (
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/fepilot/adoption-navigator/internal/model"
	"github.com/fepilot/adoption-navigator/internal/rules"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	source := flag.String("source", "data/copilot_adoption_tracking.csv", "tracking CSV to compile")
	out := flag.String("out", "data/rules.json", "output rule file")
	flag.Parse()

	if err := run(*source, *out, logger); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run(source, out string, logger *slog.Logger) error {
	set, err := compile(source, logger)
	if err != nil {
		if !os.IsNotExist(err) {
			return err
		}
		// No CSV yet: emit the seed rules so the server has something
		// to load on a fresh checkout.
		logger.Warn("source CSV not found, writing seed rules", "source", source)
		set = rules.Seed()
	}

	if issues := rules.Validate(set.Rules); len(issues) > 0 {
		for _, issue := range issues {
			logger.Warn("validation issue", "issue", issue)
		}
	}

	data, err := json.MarshalIndent(set, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal rule set: %w", err)
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", out, err)
	}

	logger.Info("rule file written",
		"out", out,
		"rules", len(set.Rules),
		"metrics", len(set.Metadata.Metrics))
	return nil
}

// Column headers as authored in the tracking workbook.
const (
	colMetric         = "Metric"
	colScenario       = "Scenario"
	colRecommendation = "Action (Recommendation)"
	colResources      = "Resources"
	colTarget         = "Target"
)

func compile(source string, logger *slog.Logger) (model.RuleSet, error) {
	f, err := os.Open(source)
	if err != nil {
		return model.RuleSet{}, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return model.RuleSet{}, fmt.Errorf("read header: %w", err)
	}
	// Strip the UTF-8 BOM Excel prepends on export.
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\uFEFF")
	}
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.TrimSpace(name)] = i
	}
	for _, required := range []string{colMetric, colScenario, colRecommendation} {
		if _, ok := cols[required]; !ok {
			return model.RuleSet{}, fmt.Errorf("column %q missing from %s", required, source)
		}
	}

	cell := func(row []string, name string) string {
		idx, ok := cols[name]
		if !ok || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	var (
		ruleList []model.Rule
		skipped  int
	)
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return model.RuleSet{}, fmt.Errorf("read row: %w", err)
		}

		metric := cell(row, colMetric)
		scenario := cell(row, colScenario)
		recommendation := cell(row, colRecommendation)
		if metric == "" || scenario == "" || recommendation == "" {
			skipped++
			continue
		}

		target := cell(row, colTarget)
		rule := rules.ParseTarget(target)
		rule.ID = fmt.Sprintf("rule-%d", len(ruleList)+1)
		rule.Metric = metric
		rule.Scenario = scenario
		rule.Recommendation = recommendation
		rule.Resources = cell(row, colResources)
		rule.Target = target
		ruleList = append(ruleList, rule)
	}
	if skipped > 0 {
		logger.Info("skipped incomplete rows", "count", skipped)
	}
	if len(ruleList) == 0 {
		return model.RuleSet{}, fmt.Errorf("%s contains no usable rules", source)
	}

	byMetric := make(map[string][]model.Rule)
	var metrics []string
	for _, r := range ruleList {
		if _, seen := byMetric[r.Metric]; !seen {
			metrics = append(metrics, r.Metric)
		}
		byMetric[r.Metric] = append(byMetric[r.Metric], r)
	}

	return model.RuleSet{
		Rules:         ruleList,
		RulesByMetric: byMetric,
		Metadata: model.RuleSetMetadata{
			GeneratedAt: time.Now().UTC(),
			Source:      source,
			TotalRules:  len(ruleList),
			Metrics:     metrics,
		},
	}, nil
}
