package navigator

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
)

// mockServer creates an httptest server that mimics the navigator API.
func mockServer(t *testing.T, handlers map[string]http.HandlerFunc) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	for pattern, handler := range handlers {
		mux.HandleFunc(pattern, handler)
	}
	return httptest.NewServer(mux)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func newTestClient(t *testing.T, serverURL string) *Client {
	t.Helper()
	c, err := NewClient(Config{
		BaseURL: serverURL,
		Timeout: 5 * time.Second,
	})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	return c
}

func TestNewClientRequiresBaseURL(t *testing.T) {
	if _, err := NewClient(Config{}); err == nil {
		t.Fatal("expected error for empty BaseURL")
	}
}

func TestEvaluateReturnsTriggered(t *testing.T) {
	srv := mockServer(t, map[string]http.HandlerFunc{
		"POST /v1/evaluate": func(w http.ResponseWriter, r *http.Request) {
			var body struct {
				Inputs map[string]UserInput `json:"inputs"`
			}
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				t.Fatalf("decode request: %v", err)
			}
			if len(body.Inputs) != 1 {
				t.Errorf("expected 1 input, got %d", len(body.Inputs))
			}
			gap := 20.0
			writeJSON(w, http.StatusOK, map[string]any{
				"data": EvaluationResult{
					Triggered: []TriggeredRecommendation{
						{
							RuleID:         "seed-1",
							Metric:         "Usage Summary",
							Recommendation: "Run an awareness campaign",
							Gap:            &gap,
							Effort:         "high",
						},
					},
					TotalInputs:    1,
					TotalTriggered: 1,
				},
			})
		},
	})
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	result, err := client.Evaluate(context.Background(), map[string]UserInput{
		"Usage Summary:activeUsersPercent": {Metric: "Usage Summary", Value: 30},
	})
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if result.TotalTriggered != 1 {
		t.Fatalf("expected 1 triggered, got %d", result.TotalTriggered)
	}
	if result.Triggered[0].RuleID != "seed-1" {
		t.Errorf("expected rule seed-1, got %q", result.Triggered[0].RuleID)
	}
	if result.Triggered[0].Gap == nil || *result.Triggered[0].Gap != 20 {
		t.Errorf("expected gap 20, got %v", result.Triggered[0].Gap)
	}
}

func TestPlanLifecycle(t *testing.T) {
	planID := uuid.New()

	srv := mockServer(t, map[string]http.HandlerFunc{
		"POST /v1/plans": func(w http.ResponseWriter, r *http.Request) {
			var req CreatePlanRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				t.Fatalf("decode request: %v", err)
			}
			writeJSON(w, http.StatusCreated, map[string]any{
				"data": Plan{ID: planID, TenantID: req.TenantID, Name: req.Name, Status: "planned"},
			})
		},
		"GET /v1/plans/{plan_id}": func(w http.ResponseWriter, r *http.Request) {
			if r.PathValue("plan_id") != planID.String() {
				writeJSON(w, http.StatusNotFound, map[string]any{
					"error": map[string]any{"code": "NOT_FOUND", "message": "plan not found"},
				})
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{
				"data": Plan{ID: planID, Name: "Q3 rollout", Status: "in_progress"},
			})
		},
		"DELETE /v1/plans/{plan_id}": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		},
	})
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	ctx := context.Background()

	created, err := client.CreatePlan(ctx, CreatePlanRequest{TenantID: "contoso", Name: "Q3 rollout"})
	if err != nil {
		t.Fatalf("CreatePlan failed: %v", err)
	}
	if created.ID != planID {
		t.Errorf("expected plan ID %s, got %s", planID, created.ID)
	}

	fetched, err := client.GetPlan(ctx, planID)
	if err != nil {
		t.Fatalf("GetPlan failed: %v", err)
	}
	if fetched.Status != "in_progress" {
		t.Errorf("expected status in_progress, got %q", fetched.Status)
	}

	if err := client.DeletePlan(ctx, planID); err != nil {
		t.Fatalf("DeletePlan failed: %v", err)
	}
}

func TestGetPlanNotFound(t *testing.T) {
	srv := mockServer(t, map[string]http.HandlerFunc{
		"GET /v1/plans/{plan_id}": func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusNotFound, map[string]any{
				"error": map[string]any{"code": "NOT_FOUND", "message": "plan not found"},
			})
		},
	})
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	_, err := client.GetPlan(context.Background(), uuid.New())
	if err == nil {
		t.Fatal("expected error")
	}
	if !IsNotFound(err) {
		t.Errorf("expected IsNotFound, got %v", err)
	}
}

func TestTrackRecordedAndDropped(t *testing.T) {
	recID := uuid.New()
	eventID := uuid.New()

	srv := mockServer(t, map[string]http.HandlerFunc{
		"POST /v1/events": func(w http.ResponseWriter, r *http.Request) {
			var req TrackRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				t.Fatalf("decode request: %v", err)
			}
			if req.PlanRecommendationID == nil {
				writeJSON(w, http.StatusAccepted, map[string]any{
					"data": map[string]any{"dropped": true},
				})
				return
			}
			writeJSON(w, http.StatusCreated, map[string]any{
				"data": RecommendationEvent{
					ID:                   eventID,
					PlanRecommendationID: *req.PlanRecommendationID,
					EventType:            req.EventType,
					RecordedAt:           time.Now().UTC(),
				},
			})
		},
	})
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	ctx := context.Background()

	ev, err := client.Track(ctx, TrackRequest{EventType: EventStarted, PlanRecommendationID: &recID})
	if err != nil {
		t.Fatalf("Track failed: %v", err)
	}
	if ev == nil || ev.ID != eventID {
		t.Fatalf("expected recorded event %s, got %+v", eventID, ev)
	}

	dropped, err := client.Track(ctx, TrackRequest{EventType: EventOutreachSent})
	if err != nil {
		t.Fatalf("Track (dropped) failed: %v", err)
	}
	if dropped != nil {
		t.Errorf("expected nil event for dropped track, got %+v", dropped)
	}
}

func TestTrackBatch(t *testing.T) {
	srv := mockServer(t, map[string]http.HandlerFunc{
		"POST /v1/events/batch": func(w http.ResponseWriter, r *http.Request) {
			var body struct {
				Events []TrackRequest `json:"events"`
			}
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				t.Fatalf("decode request: %v", err)
			}
			writeJSON(w, http.StatusOK, map[string]any{
				"data": BatchResult{Recorded: len(body.Events) - 1, Dropped: 1},
			})
		},
	})
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	recID := uuid.New()
	result, err := client.TrackBatch(context.Background(), []TrackRequest{
		{EventType: EventStarted, PlanRecommendationID: &recID},
		{EventType: EventHeld, PlanRecommendationID: &recID},
		{EventType: EventOutreachSent},
	})
	if err != nil {
		t.Fatalf("TrackBatch failed: %v", err)
	}
	if result.Recorded != 2 || result.Dropped != 1 {
		t.Errorf("expected 2 recorded / 1 dropped, got %d / %d", result.Recorded, result.Dropped)
	}
}

func TestEvidenceCardConflict(t *testing.T) {
	srv := mockServer(t, map[string]http.HandlerFunc{
		"GET /v1/recommendations/{rec_id}/evidence-card": func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusConflict, map[string]any{
				"error": map[string]any{
					"code":    "CONFLICT",
					"message": "baseline and final snapshots are required before a card can be built",
				},
			})
		},
	})
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	_, err := client.EvidenceCard(context.Background(), uuid.New())
	if err == nil {
		t.Fatal("expected error")
	}
	if !IsConflict(err) {
		t.Errorf("expected IsConflict, got %v", err)
	}
}

func TestLeaderboard(t *testing.T) {
	srv := mockServer(t, map[string]http.HandlerFunc{
		"GET /v1/leaderboard": func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{
				"data": LeaderboardStats{
					TotalRecommendations:      4,
					SuccessfulRecommendations: 3,
					WinRate:                   75,
					TopRecommendations:        []EvidenceScore{{Metric: "Usage Summary", EvidenceScore: 0.82}},
				},
			})
		},
	})
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	board, err := client.Leaderboard(context.Background())
	if err != nil {
		t.Fatalf("Leaderboard failed: %v", err)
	}
	if board.WinRate != 75 {
		t.Errorf("expected win rate 75, got %v", board.WinRate)
	}
	if len(board.TopRecommendations) != 1 {
		t.Fatalf("expected 1 top recommendation, got %d", len(board.TopRecommendations))
	}
}

func TestEstimateCoverage(t *testing.T) {
	srv := mockServer(t, map[string]http.HandlerFunc{
		"POST /v1/coverage/estimate": func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{
				"data": CoverageEstimate{Coverage: 0.434, TotalTouches: 620, EstimatedUsers: 434, OverlapFactor: 0.7},
			})
		},
	})
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	est, err := client.EstimateCoverage(context.Background(),
		map[string]float64{"outreach": 500, "events": 120}, 1000)
	if err != nil {
		t.Fatalf("EstimateCoverage failed: %v", err)
	}
	if est.Coverage != 0.434 {
		t.Errorf("expected coverage 0.434, got %v", est.Coverage)
	}
}

func TestRateLimitedError(t *testing.T) {
	srv := mockServer(t, map[string]http.HandlerFunc{
		"POST /v1/evaluate": func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusTooManyRequests, map[string]any{
				"error": map[string]any{"code": "RATE_LIMITED", "message": "too many requests"},
			})
		},
	})
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	_, err := client.Evaluate(context.Background(), map[string]UserInput{
		"Usage Summary:activeUsersPercent": {Value: 30},
	})
	if !IsRateLimited(err) {
		t.Errorf("expected IsRateLimited, got %v", err)
	}
}

func TestNonEnvelopeResponseFallback(t *testing.T) {
	srv := mockServer(t, map[string]http.HandlerFunc{
		"GET /health": func(w http.ResponseWriter, r *http.Request) {
			// No "data" wrapper.
			writeJSON(w, http.StatusOK, Health{Status: "ok", TotalRules: 3})
		},
	})
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	health, err := client.Health(context.Background())
	if err != nil {
		t.Fatalf("Health failed: %v", err)
	}
	if health.Status != "ok" || health.TotalRules != 3 {
		t.Errorf("unexpected health: %+v", health)
	}
}
