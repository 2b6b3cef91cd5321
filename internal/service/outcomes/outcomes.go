// Package outcomes computes evidence scores for tracked recommendations
// and aggregates them into leaderboard statistics.
//
// An evidence score is derived on demand from a recommendation's
// baseline/final snapshots and its event ledger; nothing here writes to
// the store. The composite is |delta| × coverage × persistence, so a
// large metric movement with no recorded activity scores zero.
package outcomes

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/metric"

	"github.com/fepilot/adoption-navigator/internal/model"
	"github.com/fepilot/adoption-navigator/internal/storage"
	"github.com/fepilot/adoption-navigator/internal/telemetry"
)

// ErrRecommendationNotFound is returned when scoring an unknown
// recommendation. Unlike evaluation, scoring is not total: the caller
// named a specific instance and must learn it does not exist.
var ErrRecommendationNotFound = errors.New("outcomes: recommendation not found")

// Fixed win-rate placeholders. Stand-ins for a per-rule historical
// aggregate that is not computed yet; treat as an extension point.
const (
	winRateSuccess = 0.75
	winRateFailure = 0.25
)

// Fallback coverage for instances completed without any tracked
// engagement events ("we acted without tracking").
const fallbackCoverage = 0.30

const topN = 10

// Service computes evidence scores and leaderboard aggregates.
type Service struct {
	store      *storage.Store
	thresholds map[string]SuccessThreshold
	logger     *slog.Logger
	now        func() time.Time

	scoreHistogram metric.Float64Histogram
}

// New creates an outcomes Service with the given success-threshold table.
func New(store *storage.Store, thresholds map[string]SuccessThreshold, logger *slog.Logger) *Service {
	meter := telemetry.Meter("navigator/outcomes")
	hist, _ := meter.Float64Histogram("navigator.evidence.score",
		metric.WithDescription("Computed evidence scores"),
	)
	return &Service{
		store:          store,
		thresholds:     thresholds,
		logger:         logger,
		now:            func() time.Time { return time.Now().UTC() },
		scoreHistogram: hist,
	}
}

// SetClock overrides the service clock. For tests.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// CalculateEvidenceScore scores one tracked recommendation against the
// supplied baseline and final metric values. Fails if the recommendation
// cannot be resolved.
func (s *Service) CalculateEvidenceScore(ctx context.Context, recID uuid.UUID, baseline, final model.Value) (model.EvidenceScore, error) {
	rec, err := s.store.GetPlanRecommendation(ctx, recID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return model.EvidenceScore{}, fmt.Errorf("%w: %s", ErrRecommendationNotFound, recID)
		}
		return model.EvidenceScore{}, fmt.Errorf("outcomes: %w", err)
	}
	events, err := s.store.ListEventsByRecommendation(ctx, recID)
	if err != nil {
		return model.EvidenceScore{}, fmt.Errorf("outcomes: %w", err)
	}
	return s.score(rec, events, baseline, final), nil
}

func (s *Service) score(rec model.PlanRecommendation, events []model.RecommendationEvent, baseline, final model.Value) model.EvidenceScore {
	delta, deltaPercent := calculateDelta(baseline, final)
	coverage := calculateCoverage(events, rec.CompletedAt != nil)
	days := observationDays(rec.StartedAt, s.now())
	persistence := calculatePersistence(events, days)

	composite := math.Abs(delta) * coverage * persistence
	threshold, ok := s.thresholds[rec.Metric]
	if !ok {
		threshold = defaultThreshold
	}
	success := threshold.Met(delta, deltaPercent)

	winRate := winRateFailure
	if success {
		winRate = winRateSuccess
	}

	score := model.EvidenceScore{
		PlanRecommendationID: rec.ID,
		Metric:               rec.Metric,
		Scenario:             rec.Scenario,
		BaselineValue:        baseline,
		FinalValue:           final,
		Delta:                delta,
		DeltaPercent:         deltaPercent,
		Coverage:             coverage,
		Persistence:          persistence,
		EvidenceScore:        composite,
		Success:              success,
		WinRate:              winRate,
		ObservationDays:      days,
		CalculatedAt:         s.now(),
	}
	s.scoreHistogram.Record(context.Background(), composite)
	return score
}

// calculateDelta computes movement from baseline to final.
//
// Numeric pairs give final-baseline; textual pairs are qualitative, so
// any case-insensitive change counts as full positive movement. A mixed
// pair carries no signal.
func calculateDelta(baseline, final model.Value) (delta, deltaPercent float64) {
	b, bNum := baseline.Float()
	f, fNum := final.Float()
	switch {
	case bNum && fNum:
		delta = f - b
		if b != 0 {
			deltaPercent = delta / b * 100
		}
	case baseline.IsText() && final.IsText():
		if !strings.EqualFold(baseline.Text(), final.Text()) {
			delta, deltaPercent = 1, 100
		}
	}
	return delta, deltaPercent
}

// calculateCoverage estimates what share of the target audience the
// recorded engagement events reached.
//
// Only engagement events carrying an audienceSize qualify. Each event
// contributes its recorded reach (count, else attendees, else users)
// against the largest audience seen, clamped to [0,1]. With no qualifying events, a completed instance
// gets the flat fallback; an open one gets zero.
func calculateCoverage(events []model.RecommendationEvent, completed bool) float64 {
	var totalReached, totalAudience float64
	var qualifying bool
	for _, ev := range events {
		p, ok := ev.Engagement()
		if !ok {
			continue
		}
		qualifying = true
		totalReached += p.Reached()
		if p.AudienceSize > totalAudience {
			totalAudience = p.AudienceSize
		}
	}
	if !qualifying {
		if completed {
			return fallbackCoverage
		}
		return 0
	}
	if totalAudience == 0 {
		return 0
	}
	return math.Min(totalReached/totalAudience, 1.0)
}

// calculatePersistence rates how steadily the effort was sustained over
// the observation window.
//
// With no checkpoint snapshots it decays: full persistence for the first
// two weeks, minus 0.1 per week after, floored at 0.3. With checkpoints,
// one per week is ideal and saturates the score.
func calculatePersistence(events []model.RecommendationEvent, observationDays int) float64 {
	var checkpoints int
	for _, ev := range events {
		if ev.EventType == model.EventCheckpointSnapshot {
			checkpoints++
		}
	}
	weeks := float64(observationDays) / 7
	if checkpoints == 0 {
		return math.Min(math.Max(1.0-(weeks-2)*0.1, 0.3), 1.0)
	}
	if weeks == 0 {
		return 1.0
	}
	return math.Min(float64(checkpoints)/weeks, 1.0)
}

// observationDays counts whole days since the effort started, zero when
// it never did.
func observationDays(startedAt *time.Time, now time.Time) int {
	if startedAt == nil {
		return 0
	}
	d := now.Sub(*startedAt)
	if d < 0 {
		return 0
	}
	return int(d.Hours() / 24)
}

// snapshotPair finds a metric's baseline and final values among a plan's
// snapshots. The earliest snapshot of each type wins.
func snapshotPair(snaps []model.MetricSnapshot, metric string) (baseline, final model.Value, ok bool) {
	var haveBaseline, haveFinal bool
	for _, snap := range snaps {
		if snap.Metric != metric {
			continue
		}
		switch {
		case snap.SnapshotType == model.SnapshotBaseline && !haveBaseline:
			baseline, haveBaseline = snap.Value, true
		case snap.SnapshotType == model.SnapshotFinal && !haveFinal:
			final, haveFinal = snap.Value, true
		}
	}
	return baseline, final, haveBaseline && haveFinal
}

// ScoreRecommendation scores one tracked recommendation using its plan's
// stored baseline and final snapshots for the recommendation's metric.
// ok=false when either snapshot is missing.
func (s *Service) ScoreRecommendation(ctx context.Context, recID uuid.UUID) (model.EvidenceScore, bool, error) {
	rec, err := s.store.GetPlanRecommendation(ctx, recID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return model.EvidenceScore{}, false, fmt.Errorf("%w: %s", ErrRecommendationNotFound, recID)
		}
		return model.EvidenceScore{}, false, fmt.Errorf("outcomes: %w", err)
	}
	snaps, err := s.store.ListSnapshotsByPlan(ctx, rec.PlanID, rec.Metric)
	if err != nil {
		return model.EvidenceScore{}, false, fmt.Errorf("outcomes: %w", err)
	}
	baseline, final, ok := snapshotPair(snaps, rec.Metric)
	if !ok {
		return model.EvidenceScore{}, false, nil
	}
	events, err := s.store.ListEventsByRecommendation(ctx, recID)
	if err != nil {
		return model.EvidenceScore{}, false, fmt.Errorf("outcomes: %w", err)
	}
	return s.score(rec, events, baseline, final), true, nil
}

// ScoresForPlan computes evidence scores for every completed
// recommendation in a plan that has both a baseline and a final snapshot
// for its metric. Instances that cannot be scored are skipped and logged.
func (s *Service) ScoresForPlan(ctx context.Context, planID uuid.UUID) ([]model.EvidenceScore, error) {
	if _, err := s.store.GetPlan(ctx, planID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("outcomes: plan not found: %s", planID)
		}
		return nil, fmt.Errorf("outcomes: %w", err)
	}
	recs, err := s.store.ListPlanRecommendations(ctx, planID)
	if err != nil {
		return nil, fmt.Errorf("outcomes: %w", err)
	}
	snaps, err := s.store.ListSnapshotsByPlan(ctx, planID, "")
	if err != nil {
		return nil, fmt.Errorf("outcomes: %w", err)
	}

	var scores []model.EvidenceScore
	for _, rec := range recs {
		if rec.CompletedAt == nil {
			continue
		}
		baseline, final, ok := snapshotPair(snaps, rec.Metric)
		if !ok {
			continue
		}
		events, err := s.store.ListEventsByRecommendation(ctx, rec.ID)
		if err != nil {
			s.logger.Warn("skipping unscoreable recommendation",
				"recommendation_id", rec.ID, "error", err)
			continue
		}
		scores = append(scores, s.score(rec, events, baseline, final))
	}
	return scores, nil
}

// Leaderboard aggregates evidence scores across every completed
// recommendation, in any plan, that has both snapshots for its metric.
func (s *Service) Leaderboard(ctx context.Context) (model.LeaderboardStats, error) {
	completed, err := s.store.ListCompletedRecommendations(ctx)
	if err != nil {
		return model.LeaderboardStats{}, fmt.Errorf("outcomes: %w", err)
	}

	snapsByPlan := make(map[uuid.UUID][]model.MetricSnapshot)
	var scores []model.EvidenceScore
	for _, rec := range completed {
		snaps, ok := snapsByPlan[rec.PlanID]
		if !ok {
			snaps, err = s.store.ListSnapshotsByPlan(ctx, rec.PlanID, "")
			if err != nil {
				s.logger.Warn("skipping plan with unreadable snapshots",
					"plan_id", rec.PlanID, "error", err)
				continue
			}
			snapsByPlan[rec.PlanID] = snaps
		}
		baseline, final, ok := snapshotPair(snaps, rec.Metric)
		if !ok {
			continue
		}
		events, err := s.store.ListEventsByRecommendation(ctx, rec.ID)
		if err != nil {
			s.logger.Warn("skipping unscoreable recommendation",
				"recommendation_id", rec.ID, "error", err)
			continue
		}
		scores = append(scores, s.score(rec, events, baseline, final))
	}

	stats := model.LeaderboardStats{TotalRecommendations: len(scores)}
	if len(scores) == 0 {
		return stats, nil
	}

	var sumDelta, sumCoverage, sumPersistence float64
	for _, sc := range scores {
		if sc.Success {
			stats.SuccessfulRecommendations++
		}
		sumDelta += sc.Delta
		sumCoverage += sc.Coverage
		sumPersistence += sc.Persistence
	}
	n := float64(len(scores))
	stats.WinRate = float64(stats.SuccessfulRecommendations) / n * 100
	stats.AvgDelta = sumDelta / n
	stats.AvgCoverage = sumCoverage / n * 100
	stats.AvgPersistence = sumPersistence / n * 100

	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].EvidenceScore > scores[j].EvidenceScore
	})
	if len(scores) > topN {
		scores = scores[:topN]
	}
	stats.TopRecommendations = scores
	return stats, nil
}
