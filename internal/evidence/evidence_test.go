package evidence

import (
	"bytes"
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fepilot/adoption-navigator/internal/model"
	"github.com/fepilot/adoption-navigator/internal/storage"
)

func testStore(t *testing.T) *storage.Store {
	t.Helper()
	store, err := storage.Open(filepath.Join(t.TempDir(), "navigator.db"), slog.Default())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestBuildCard(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()
	builder := NewBuilder(store)

	plan, err := store.CreatePlan(ctx, model.CreatePlanRequest{TenantID: "t1", Name: "plan"})
	require.NoError(t, err)
	rec, err := store.CreatePlanRecommendation(ctx, plan.ID, model.AddRecommendationRequest{
		RecommendationID: "rule-1",
		Metric:           "Usage Summary",
		Scenario:         "Low active users",
		Recommendation:   "Run champions program",
		Resources:        "https://example.com/champions",
	})
	require.NoError(t, err)

	require.NoError(t, store.InsertEvent(ctx, model.RecommendationEvent{
		ID:                   uuid.New(),
		PlanRecommendationID: rec.ID,
		EventType:            model.EventOutreachSent,
		EventData:            map[string]any{"count": 120.0, "audienceSize": 500.0},
		RecordedAt:           time.Now().UTC(),
	}))
	_, err = store.CreateFeedback(ctx, rec.ID, model.CreateFeedbackRequest{
		FeedbackType: model.FeedbackQuote,
		FeedbackText: "My weekly report takes minutes now.",
	})
	require.NoError(t, err)
	_, err = store.CreateFeedback(ctx, rec.ID, model.CreateFeedbackRequest{
		FeedbackType: model.FeedbackChallenge,
		FeedbackText: "Licenses were slow to arrive.",
	})
	require.NoError(t, err)

	score := model.EvidenceScore{
		PlanRecommendationID: rec.ID,
		Metric:               "Usage Summary",
		Scenario:             "Low active users",
		BaselineValue:        model.NumberValue(40),
		FinalValue:           model.NumberValue(50),
		Delta:                10,
		DeltaPercent:         25,
		Coverage:             0.24,
		Persistence:          1,
		EvidenceScore:        2.4,
		ObservationDays:      14,
	}

	card, err := builder.BuildCard(ctx, score)
	require.NoError(t, err)
	assert.Equal(t, "Run champions program", card.Recommendation)
	assert.Equal(t, "https://example.com/champions", card.NextSteps)
	require.Len(t, card.Activities, 1)
	assert.Equal(t, model.EventOutreachSent, card.Activities[0].Type)
	assert.Equal(t, []string{"My weekly report takes minutes now."}, card.Quotes,
		"only quote feedback is surfaced")
	assert.Equal(t, 2.4, card.EvidenceScore)
}

func TestBuildCardDefaultNextSteps(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()
	builder := NewBuilder(store)

	plan, err := store.CreatePlan(ctx, model.CreatePlanRequest{TenantID: "t1", Name: "plan"})
	require.NoError(t, err)
	rec, err := store.CreatePlanRecommendation(ctx, plan.ID, model.AddRecommendationRequest{
		RecommendationID: "rule-1",
		Metric:           "Usage Summary",
		Scenario:         "Low active users",
		Recommendation:   "Run champions program",
	})
	require.NoError(t, err)

	card, err := builder.BuildCard(ctx, model.EvidenceScore{PlanRecommendationID: rec.ID})
	require.NoError(t, err)
	assert.Equal(t, defaultNextSteps, card.NextSteps)
}

func TestBuildCardUnknownRecommendation(t *testing.T) {
	builder := NewBuilder(testStore(t))
	_, err := builder.BuildCard(context.Background(), model.EvidenceScore{
		PlanRecommendationID: uuid.New(),
	})
	assert.Error(t, err)
}

func TestCardRoundTripPreservesScore(t *testing.T) {
	card := model.EvidenceCard{
		Metric:        "Usage Summary",
		Baseline:      model.NumberValue(40),
		Final:         model.TextValue("improving"),
		Delta:         0.30000000000000004, // deliberately awkward float
		EvidenceScore: 1.2345678901234567,
		Coverage:      0.7,
		Persistence:   0.3,
		Quotes:        []string{"great"},
		NextSteps:     defaultNextSteps,
	}

	data, err := ExportCard(card)
	require.NoError(t, err)
	got, err := ImportCard(data)
	require.NoError(t, err)

	assert.Equal(t, card.EvidenceScore, got.EvidenceScore, "score preserved exactly")
	assert.Equal(t, card.Delta, got.Delta)
	assert.Equal(t, card.Baseline, got.Baseline)
	assert.Equal(t, card.Final, got.Final)
	assert.Equal(t, card.Quotes, got.Quotes)
}

func TestCardFilename(t *testing.T) {
	assert.Equal(t, "evidence-card-usage-heatmap-by-groupregion.json",
		CardFilename("Usage Heatmap (by Group/Region)"))
	assert.Equal(t, "evidence-card-usage-summary.json", CardFilename("Usage Summary"))
}

func TestWriteTrackerCSV(t *testing.T) {
	gap := 20.0
	triggered := []model.TriggeredRecommendation{
		{
			RuleID:         "rule-1",
			Metric:         "Usage Summary",
			Scenario:       "Low active users",
			Recommendation: "Run champions program",
			Resources:      "https://example.com",
			Target:         "< 50%",
			UserValue:      model.NumberValue(30),
			Gap:            &gap,
		},
		{
			RuleID:    "rule-2",
			Metric:    "Work Patterns",
			Scenario:  "No pattern change",
			UserValue: model.TextValue("flat, no change"),
			Target:    "Positive shift",
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteTrackerCSV(&buf, triggered))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "Metric,Scenario,Action (Recommendation)"))

	first := strings.Split(lines[1], ",")
	require.Len(t, first, 14, "columns A through N")
	assert.Equal(t, "Usage Summary", first[0])
	assert.Equal(t, "30", first[4], "user value lands in Baseline Metric")
	assert.Equal(t, "< 50%", first[12], "target lands in column M")
	assert.Empty(t, first[5], "post metric left for manual tracking")

	assert.Contains(t, lines[2], `"flat, no change"`, "text values are CSV quoted")
}
