package server_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fepilot/adoption-navigator/internal/evaluate"
	"github.com/fepilot/adoption-navigator/internal/evidence"
	"github.com/fepilot/adoption-navigator/internal/model"
	"github.com/fepilot/adoption-navigator/internal/rules"
	"github.com/fepilot/adoption-navigator/internal/server"
	"github.com/fepilot/adoption-navigator/internal/service/outcomes"
	"github.com/fepilot/adoption-navigator/internal/service/tracker"
	"github.com/fepilot/adoption-navigator/internal/storage"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	store, err := storage.Open(filepath.Join(t.TempDir(), "navigator.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	ruleStore, err := rules.Load("", logger)
	require.NoError(t, err)

	thresholds, err := outcomes.LoadThresholds("", logger)
	require.NoError(t, err)

	srv := server.New(server.ServerConfig{
		Store:               store,
		RuleStore:           ruleStore,
		Engine:              evaluate.New(logger),
		TrackerSvc:          tracker.New(store, logger),
		OutcomeSvc:          outcomes.New(store, thresholds, logger),
		Cards:               evidence.NewBuilder(store),
		Logger:              logger,
		Port:                0,
		ReadTimeout:         30 * time.Second,
		WriteTimeout:        30 * time.Second,
		Version:             "test",
		MaxRequestBodyBytes: 1 << 20,
	})

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

// doJSON issues a request with a JSON body and decodes the envelope's data
// field into out (when out is non-nil).
func doJSON(t *testing.T, ts *httptest.Server, method, path string, body, out any) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, ts.URL+path, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if out != nil {
		var envelope struct {
			Data json.RawMessage `json:"data"`
		}
		require.NoError(t, json.Unmarshal(raw, &envelope), "body: %s", raw)
		require.NoError(t, json.Unmarshal(envelope.Data, out), "data: %s", envelope.Data)
	}
	return resp
}

func createPlan(t *testing.T, ts *httptest.Server) model.Plan {
	t.Helper()
	var plan model.Plan
	resp := doJSON(t, ts, http.MethodPost, "/v1/plans", model.CreatePlanRequest{
		TenantID: "contoso",
		Name:     "Q3 Adoption Push",
	}, &plan)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return plan
}

func addRecommendation(t *testing.T, ts *httptest.Server, planID uuid.UUID) model.PlanRecommendation {
	t.Helper()
	var rec model.PlanRecommendation
	resp := doJSON(t, ts, http.MethodPost, fmt.Sprintf("/v1/plans/%s/recommendations", planID), model.AddRecommendationRequest{
		RecommendationID: "seed-1",
		Metric:           "Usage Summary",
		Scenario:         "Low % active users",
		Recommendation:   "Run a Copilot Awareness Campaign",
		Resources:        "Copilot Success Kit",
	}, &rec)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return rec
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)

	var health map[string]any
	resp := doJSON(t, ts, http.MethodGet, "/health", nil, &health)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", health["status"])
	assert.Equal(t, "test", health["version"])
	assert.EqualValues(t, 3, health["total_rules"])
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
}

func TestEvaluate(t *testing.T) {
	ts := newTestServer(t)

	var result model.EvaluationResult
	resp := doJSON(t, ts, http.MethodPost, "/v1/evaluate", model.EvaluateRequest{
		Inputs: map[string]model.UserInput{
			"Usage Summary:activeUsersPercent": {
				Metric:   "Usage Summary",
				Scenario: "activeUsersPercent",
				Value:    model.NumberValue(30),
			},
		},
	}, &result)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	require.Len(t, result.Triggered, 1)
	tr := result.Triggered[0]
	assert.Equal(t, "seed-1", tr.RuleID)
	assert.Equal(t, "Usage Summary", tr.Metric)
	require.NotNil(t, tr.Gap)
	assert.InDelta(t, 20, *tr.Gap, 1e-9)
	require.NotNil(t, tr.GapPercent)
	assert.InDelta(t, -40, *tr.GapPercent, 1e-9)
	assert.Equal(t, 1, result.TotalInputs)
	assert.Equal(t, 1, result.TotalTriggered)
}

func TestEvaluateEmptyInputs(t *testing.T) {
	ts := newTestServer(t)

	resp := doJSON(t, ts, http.MethodPost, "/v1/evaluate", model.EvaluateRequest{}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetRules(t *testing.T) {
	ts := newTestServer(t)

	var set model.RuleSet
	resp := doJSON(t, ts, http.MethodGet, "/v1/rules", nil, &set)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, set.Rules, 3)
	assert.Equal(t, "seed", set.Metadata.Source)
}

func TestPlanLifecycle(t *testing.T) {
	ts := newTestServer(t)

	plan := createPlan(t, ts)
	assert.Equal(t, model.PlanPlanned, plan.Status)

	var fetched model.Plan
	resp := doJSON(t, ts, http.MethodGet, "/v1/plans/"+plan.ID.String(), nil, &fetched)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, plan.Name, fetched.Name)

	status := model.PlanInProgress
	var updated model.Plan
	resp = doJSON(t, ts, http.MethodPatch, "/v1/plans/"+plan.ID.String(), model.UpdatePlanRequest{
		Status: &status,
	}, &updated)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, model.PlanInProgress, updated.Status)

	var plans []model.Plan
	resp = doJSON(t, ts, http.MethodGet, "/v1/plans?tenant_id=contoso", nil, &plans)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, plans, 1)

	resp = doJSON(t, ts, http.MethodDelete, "/v1/plans/"+plan.ID.String(), nil, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = doJSON(t, ts, http.MethodGet, "/v1/plans/"+plan.ID.String(), nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestListPlansRequiresTenant(t *testing.T) {
	ts := newTestServer(t)

	resp := doJSON(t, ts, http.MethodGet, "/v1/plans", nil, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAddRecommendationRecordsEvent(t *testing.T) {
	ts := newTestServer(t)

	plan := createPlan(t, ts)
	rec := addRecommendation(t, ts, plan.ID)
	assert.Equal(t, "seed-1", rec.RecommendationID)

	var events []model.RecommendationEvent
	resp := doJSON(t, ts, http.MethodGet, fmt.Sprintf("/v1/recommendations/%s/events", rec.ID), nil, &events)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, events, 1)
	assert.Equal(t, model.EventAddedToPlan, events[0].EventType)
}

func TestTrackEventLifecycle(t *testing.T) {
	ts := newTestServer(t)

	plan := createPlan(t, ts)
	rec := addRecommendation(t, ts, plan.ID)

	var ev model.RecommendationEvent
	resp := doJSON(t, ts, http.MethodPost, "/v1/events", model.TrackRequest{
		EventType:            model.EventStarted,
		PlanRecommendationID: &rec.ID,
	}, &ev)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, model.EventStarted, ev.EventType)

	resp = doJSON(t, ts, http.MethodPost, "/v1/events", model.TrackRequest{
		EventType:            model.EventMarkedSuccess,
		PlanRecommendationID: &rec.ID,
	}, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var recs []model.PlanRecommendation
	resp = doJSON(t, ts, http.MethodGet, fmt.Sprintf("/v1/plans/%s/recommendations", plan.ID), nil, &recs)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, recs, 1)
	assert.NotNil(t, recs[0].StartedAt)
	assert.NotNil(t, recs[0].CompletedAt)

	var progress tracker.Progress
	resp = doJSON(t, ts, http.MethodGet, fmt.Sprintf("/v1/recommendations/%s/progress", rec.ID), nil, &progress)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, progress.HasStarted)
	assert.True(t, progress.HasCompleted)
}

func TestTrackEventWithoutRecommendationDropped(t *testing.T) {
	ts := newTestServer(t)

	var result map[string]any
	resp := doJSON(t, ts, http.MethodPost, "/v1/events", model.TrackRequest{
		EventType: model.EventOutreachSent,
	}, &result)
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.Equal(t, true, result["dropped"])
}

func TestTrackEventUnknownRecommendation(t *testing.T) {
	ts := newTestServer(t)

	missing := uuid.New()
	resp := doJSON(t, ts, http.MethodPost, "/v1/events", model.TrackRequest{
		EventType:            model.EventStarted,
		PlanRecommendationID: &missing,
	}, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestTrackBatch(t *testing.T) {
	ts := newTestServer(t)

	plan := createPlan(t, ts)
	rec := addRecommendation(t, ts, plan.ID)

	var result tracker.BatchResult
	resp := doJSON(t, ts, http.MethodPost, "/v1/events/batch", model.TrackBatchRequest{
		Events: []model.TrackRequest{
			{EventType: model.EventStarted, PlanRecommendationID: &rec.ID},
			{EventType: model.EventOutreachSent, PlanRecommendationID: &rec.ID, EventData: map[string]any{"count": 100, "audienceSize": 200}},
			{EventType: model.EventHeld},
		},
	}, &result)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 2, result.Recorded)
	assert.Equal(t, 1, result.Dropped)
}

func TestFeedbackRoundTrip(t *testing.T) {
	ts := newTestServer(t)

	plan := createPlan(t, ts)
	rec := addRecommendation(t, ts, plan.ID)

	var fb model.Feedback
	resp := doJSON(t, ts, http.MethodPost, "/v1/feedback", model.CreateFeedbackRequest{
		PlanRecommendationID: rec.ID,
		FeedbackType:         model.FeedbackQuote,
		FeedbackText:         "Copilot saves me an hour a day.",
		SubmittedBy:          "pilot-user",
	}, &fb)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "Copilot saves me an hour a day.", fb.FeedbackText)

	var items []model.Feedback
	resp = doJSON(t, ts, http.MethodGet, fmt.Sprintf("/v1/recommendations/%s/feedback", rec.ID), nil, &items)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, items, 1)

	// Feedback submission leaves a FEEDBACK_GIVEN event on the ledger.
	var events []model.RecommendationEvent
	resp = doJSON(t, ts, http.MethodGet, fmt.Sprintf("/v1/recommendations/%s/events", rec.ID), nil, &events)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotEmpty(t, events)
	assert.Equal(t, model.EventFeedbackGiven, events[len(events)-1].EventType)
}

func TestScoresAndLeaderboard(t *testing.T) {
	ts := newTestServer(t)

	plan := createPlan(t, ts)
	rec := addRecommendation(t, ts, plan.ID)

	for _, snap := range []model.CreateSnapshotRequest{
		{Metric: "Usage Summary", SnapshotType: model.SnapshotBaseline, Value: model.NumberValue(40)},
		{Metric: "Usage Summary", SnapshotType: model.SnapshotFinal, Value: model.NumberValue(55)},
	} {
		resp := doJSON(t, ts, http.MethodPost, fmt.Sprintf("/v1/plans/%s/snapshots", plan.ID), snap, nil)
		require.Equal(t, http.StatusCreated, resp.StatusCode)
	}

	for _, et := range []model.EventType{model.EventStarted, model.EventMarkedSuccess} {
		resp := doJSON(t, ts, http.MethodPost, "/v1/events", model.TrackRequest{
			EventType:            et,
			PlanRecommendationID: &rec.ID,
		}, nil)
		require.Equal(t, http.StatusCreated, resp.StatusCode)
	}

	var scores []model.EvidenceScore
	resp := doJSON(t, ts, http.MethodGet, fmt.Sprintf("/v1/plans/%s/scores", plan.ID), nil, &scores)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, scores, 1)
	assert.InDelta(t, 15, scores[0].Delta, 1e-9)
	assert.InDelta(t, 37.5, scores[0].DeltaPercent, 1e-9)
	assert.True(t, scores[0].Success)

	var board model.LeaderboardStats
	resp = doJSON(t, ts, http.MethodGet, "/v1/leaderboard", nil, &board)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, board.TotalRecommendations)
	assert.InDelta(t, 100, board.WinRate, 1e-9)
	require.Len(t, board.TopRecommendations, 1)
}

func TestEvidenceCard(t *testing.T) {
	ts := newTestServer(t)

	plan := createPlan(t, ts)
	rec := addRecommendation(t, ts, plan.ID)

	// No snapshots yet: card construction is refused.
	resp := doJSON(t, ts, http.MethodGet, fmt.Sprintf("/v1/recommendations/%s/evidence-card", rec.ID), nil, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	for _, snap := range []model.CreateSnapshotRequest{
		{Metric: "Usage Summary", SnapshotType: model.SnapshotBaseline, Value: model.NumberValue(40)},
		{Metric: "Usage Summary", SnapshotType: model.SnapshotFinal, Value: model.NumberValue(55)},
	} {
		r := doJSON(t, ts, http.MethodPost, fmt.Sprintf("/v1/plans/%s/snapshots", plan.ID), snap, nil)
		require.Equal(t, http.StatusCreated, r.StatusCode)
	}
	for _, et := range []model.EventType{model.EventStarted, model.EventMarkedSuccess} {
		r := doJSON(t, ts, http.MethodPost, "/v1/events", model.TrackRequest{
			EventType:            et,
			PlanRecommendationID: &rec.ID,
		}, nil)
		require.Equal(t, http.StatusCreated, r.StatusCode)
	}

	var card model.EvidenceCard
	resp = doJSON(t, ts, http.MethodGet, fmt.Sprintf("/v1/recommendations/%s/evidence-card", rec.ID), nil, &card)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Usage Summary", card.Metric)
	assert.NotEmpty(t, card.Activities)
	assert.InDelta(t, 15, card.Delta, 1e-9)

	// Import echoes the card back without recomputing the score.
	var imported model.EvidenceCard
	resp = doJSON(t, ts, http.MethodPost, "/v1/evidence-cards/import", card, &imported)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, card.EvidenceScore, imported.EvidenceScore)
}

func TestEstimateCoverage(t *testing.T) {
	ts := newTestServer(t)

	var est struct {
		Coverage float64 `json:"coverage"`
	}
	resp := doJSON(t, ts, http.MethodPost, "/v1/coverage/estimate", model.EstimateCoverageRequest{
		Activities:   map[string]float64{"outreach": 500, "events": 120},
		AudienceSize: 1000,
	}, &est)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.InDelta(t, 0.434, est.Coverage, 1e-9)
}

func TestActivityTemplate(t *testing.T) {
	ts := newTestServer(t)

	var tmpl struct {
		Category string `json:"category"`
	}
	resp := doJSON(t, ts, http.MethodGet, "/v1/activity-templates?recommendation=Run+a+Copilot+Awareness+Campaign", nil, &tmpl)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "awareness", tmpl.Category)

	resp = doJSON(t, ts, http.MethodGet, "/v1/activity-templates", nil, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestExportTracker(t *testing.T) {
	ts := newTestServer(t)

	body, err := json.Marshal(map[string]any{
		"triggered": []model.TriggeredRecommendation{
			{
				Metric:         "Usage Summary",
				Scenario:       "Low % active users",
				Recommendation: "Run a Copilot Awareness Campaign",
				Resources:      "Copilot Success Kit",
				UserValue:      model.NumberValue(30),
				Target:         "< 50%",
			},
		},
	})
	require.NoError(t, err)

	resp, err := http.Post(ts.URL+"/v1/export/tracker", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/csv", resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "copilot-adoption-tracker.csv")

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "Run a Copilot Awareness Campaign")
}

func TestErrorEnvelope(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/v1/plans/not-a-uuid")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var apiErr model.APIError
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&apiErr))
	assert.Equal(t, model.ErrCodeInvalidInput, apiErr.Error.Code)
	assert.NotEmpty(t, apiErr.Meta.RequestID)
	assert.False(t, apiErr.Meta.Timestamp.IsZero())
}

func TestUnknownFieldRejected(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Post(ts.URL+"/v1/plans", "application/json",
		bytes.NewReader([]byte(`{"tenant_id":"contoso","name":"p","bogus":true}`)))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
