package navigator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Config holds the settings needed to construct a Client.
type Config struct {
	// BaseURL is the root URL of the Adoption Navigator server
	// (e.g. "http://localhost:8080").
	BaseURL string

	// HTTPClient is an optional custom HTTP client. If nil, a default client
	// with a 30-second timeout is used.
	HTTPClient *http.Client

	// Timeout applies to individual API requests. Defaults to 30 seconds.
	Timeout time.Duration
}

// Client is an HTTP client for the Adoption Navigator API.
// All methods are safe for concurrent use.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a Client from the given configuration.
// Returns an error if BaseURL is empty.
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("navigator: BaseURL is required")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client:  httpClient,
	}, nil
}

// Evaluate runs the rule engine over a map of metric inputs keyed
// "<metric>:<fieldKey>" and returns the triggered recommendations.
func (c *Client) Evaluate(ctx context.Context, inputs map[string]UserInput) (*EvaluationResult, error) {
	body := map[string]any{"inputs": inputs}
	var resp EvaluationResult
	if err := c.post(ctx, "/v1/evaluate", body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Rules returns the loaded rule set with its metadata.
func (c *Client) Rules(ctx context.Context) (*RuleSet, error) {
	var resp RuleSet
	if err := c.get(ctx, "/v1/rules", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ---------------------------------------------------------------------------
// Plans
// ---------------------------------------------------------------------------

// CreatePlan creates a new adoption plan.
func (c *Client) CreatePlan(ctx context.Context, req CreatePlanRequest) (*Plan, error) {
	var resp Plan
	if err := c.post(ctx, "/v1/plans", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListPlans returns a tenant's plans, newest first.
func (c *Client) ListPlans(ctx context.Context, tenantID string) ([]Plan, error) {
	params := url.Values{}
	params.Set("tenant_id", tenantID)
	var resp []Plan
	if err := c.get(ctx, "/v1/plans?"+params.Encode(), &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// GetPlan fetches a single plan by ID.
func (c *Client) GetPlan(ctx context.Context, planID uuid.UUID) (*Plan, error) {
	var resp Plan
	if err := c.get(ctx, "/v1/plans/"+planID.String(), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// UpdatePlan partially updates a plan. Nil fields are left untouched.
func (c *Client) UpdatePlan(ctx context.Context, planID uuid.UUID, req UpdatePlanRequest) (*Plan, error) {
	var resp Plan
	if err := c.patch(ctx, "/v1/plans/"+planID.String(), req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// DeletePlan deletes a plan and all of its tracked state.
func (c *Client) DeletePlan(ctx context.Context, planID uuid.UUID) error {
	return c.doDelete(ctx, "/v1/plans/"+planID.String(), nil)
}

// AddRecommendation promotes a triggered recommendation into a plan for
// tracking. The server records an ADDED_TO_PLAN event on success.
func (c *Client) AddRecommendation(ctx context.Context, planID uuid.UUID, req AddRecommendationRequest) (*PlanRecommendation, error) {
	var resp PlanRecommendation
	if err := c.post(ctx, "/v1/plans/"+planID.String()+"/recommendations", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListRecommendations returns a plan's tracked recommendations in
// promotion order.
func (c *Client) ListRecommendations(ctx context.Context, planID uuid.UUID) ([]PlanRecommendation, error) {
	var resp []PlanRecommendation
	if err := c.get(ctx, "/v1/plans/"+planID.String()+"/recommendations", &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// ---------------------------------------------------------------------------
// Lifecycle events
// ---------------------------------------------------------------------------

// Track appends one lifecycle event to a recommendation's ledger.
// Events without a recommendation ID are accepted and dropped by the
// server; Track returns (nil, nil) in that case.
func (c *Client) Track(ctx context.Context, req TrackRequest) (*RecommendationEvent, error) {
	var resp trackResponse
	if err := c.post(ctx, "/v1/events", req, &resp); err != nil {
		return nil, err
	}
	if resp.Dropped {
		return nil, nil
	}
	ev := resp.RecommendationEvent
	return &ev, nil
}

// TrackBatch appends a batch of lifecycle events in order.
func (c *Client) TrackBatch(ctx context.Context, events []TrackRequest) (*BatchResult, error) {
	body := map[string]any{"events": events}
	var resp BatchResult
	if err := c.post(ctx, "/v1/events/batch", body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Events returns a recommendation's full event ledger in recorded order.
func (c *Client) Events(ctx context.Context, recID uuid.UUID) ([]RecommendationEvent, error) {
	var resp []RecommendationEvent
	if err := c.get(ctx, "/v1/recommendations/"+recID.String()+"/events", &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// Progress returns the derived lifecycle state of a recommendation.
func (c *Client) Progress(ctx context.Context, recID uuid.UUID) (*Progress, error) {
	var resp Progress
	if err := c.get(ctx, "/v1/recommendations/"+recID.String()+"/progress", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ---------------------------------------------------------------------------
// Snapshots and feedback
// ---------------------------------------------------------------------------

// CreateSnapshot records a metric snapshot for a plan.
func (c *Client) CreateSnapshot(ctx context.Context, planID uuid.UUID, req CreateSnapshotRequest) (*MetricSnapshot, error) {
	var resp MetricSnapshot
	if err := c.post(ctx, "/v1/plans/"+planID.String()+"/snapshots", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListSnapshots returns a plan's snapshots in recorded order, optionally
// filtered to one metric.
func (c *Client) ListSnapshots(ctx context.Context, planID uuid.UUID, metric string) ([]MetricSnapshot, error) {
	path := "/v1/plans/" + planID.String() + "/snapshots"
	if metric != "" {
		params := url.Values{}
		params.Set("metric", metric)
		path += "?" + params.Encode()
	}
	var resp []MetricSnapshot
	if err := c.get(ctx, path, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// CreateFeedback attaches qualitative feedback to a recommendation.
func (c *Client) CreateFeedback(ctx context.Context, req CreateFeedbackRequest) (*Feedback, error) {
	var resp Feedback
	if err := c.post(ctx, "/v1/feedback", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListFeedback returns a recommendation's feedback in submission order.
func (c *Client) ListFeedback(ctx context.Context, recID uuid.UUID) ([]Feedback, error) {
	var resp []Feedback
	if err := c.get(ctx, "/v1/recommendations/"+recID.String()+"/feedback", &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// ---------------------------------------------------------------------------
// Scoring and evidence
// ---------------------------------------------------------------------------

// PlanScores computes evidence scores for all of a plan's completed
// recommendations.
func (c *Client) PlanScores(ctx context.Context, planID uuid.UUID) ([]EvidenceScore, error) {
	var resp []EvidenceScore
	if err := c.get(ctx, "/v1/plans/"+planID.String()+"/scores", &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// Leaderboard aggregates evidence scores across all plans.
func (c *Client) Leaderboard(ctx context.Context) (*LeaderboardStats, error) {
	var resp LeaderboardStats
	if err := c.get(ctx, "/v1/leaderboard", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// EvidenceCard builds the evidence card for a scored recommendation.
// Returns a conflict error until both baseline and final snapshots exist;
// check with IsConflict.
func (c *Client) EvidenceCard(ctx context.Context, recID uuid.UUID) (*EvidenceCard, error) {
	var resp EvidenceCard
	if err := c.get(ctx, "/v1/recommendations/"+recID.String()+"/evidence-card", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ImportEvidenceCard re-imports a previously exported card. The score is
// never recomputed on import.
func (c *Client) ImportEvidenceCard(ctx context.Context, card EvidenceCard) (*EvidenceCard, error) {
	var resp EvidenceCard
	if err := c.post(ctx, "/v1/evidence-cards/import", card, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ---------------------------------------------------------------------------
// Activity planning
// ---------------------------------------------------------------------------

// EstimateCoverage previews audience coverage for planned activity counts.
func (c *Client) EstimateCoverage(ctx context.Context, activities map[string]float64, audienceSize float64) (*CoverageEstimate, error) {
	body := map[string]any{"activities": activities, "audience_size": audienceSize}
	var resp CoverageEstimate
	if err := c.post(ctx, "/v1/coverage/estimate", body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ActivityTemplate suggests activities to log for a recommendation.
func (c *Client) ActivityTemplate(ctx context.Context, recommendation string) (*ActivityTemplate, error) {
	params := url.Values{}
	params.Set("recommendation", recommendation)
	var resp ActivityTemplate
	if err := c.get(ctx, "/v1/activity-templates?"+params.Encode(), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Health checks server liveness and reports rule-store stats.
func (c *Client) Health(ctx context.Context) (*Health, error) {
	var resp Health
	if err := c.get(ctx, "/health", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// trackResponse covers both shapes of POST /v1/events: a recorded event
// (201) or the drop acknowledgement (202).
type trackResponse struct {
	Dropped bool `json:"dropped"`
	RecommendationEvent
}

// ---------------------------------------------------------------------------
// HTTP transport
// ---------------------------------------------------------------------------

// apiEnvelope is the server's standard response wrapper.
type apiEnvelope struct {
	Data json.RawMessage `json:"data"`
}

// apiErrorEnvelope is the server's standard error response wrapper.
type apiErrorEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Client) post(ctx context.Context, path string, body any, dest any) error {
	encoded, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("navigator: marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("navigator: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.doRequest(req, dest)
}

func (c *Client) get(ctx context.Context, path string, dest any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("navigator: create request: %w", err)
	}

	return c.doRequest(req, dest)
}

func (c *Client) patch(ctx context.Context, path string, body any, dest any) error {
	encoded, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("navigator: marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, c.baseURL+path, bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("navigator: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.doRequest(req, dest)
}

func (c *Client) doDelete(ctx context.Context, path string, dest any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("navigator: create request: %w", err)
	}

	return c.doRequest(req, dest)
}

func (c *Client) doRequest(req *http.Request, dest any) error {
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("navigator: %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	return handleResponse(resp, dest)
}

func handleResponse(resp *http.Response, dest any) error {
	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("navigator: read response body: %w", err)
	}

	if resp.StatusCode >= 400 {
		return parseErrorResponse(resp.StatusCode, bodyBytes)
	}

	// 204 No Content — nothing to decode.
	if resp.StatusCode == http.StatusNoContent || dest == nil {
		return nil
	}

	// Unwrap the server's { "data": ... } envelope.
	var envelope apiEnvelope
	if err := json.Unmarshal(bodyBytes, &envelope); err != nil {
		return fmt.Errorf("navigator: decode response envelope: %w", err)
	}

	if envelope.Data == nil {
		// Fallback: some endpoints may not wrap in "data".
		return json.Unmarshal(bodyBytes, dest)
	}

	return json.Unmarshal(envelope.Data, dest)
}

func parseErrorResponse(statusCode int, body []byte) *Error {
	apiErr := &Error{StatusCode: statusCode}

	var envelope apiErrorEnvelope
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error.Message != "" {
		apiErr.Code = envelope.Error.Code
		apiErr.Message = envelope.Error.Message
	} else {
		apiErr.Code = http.StatusText(statusCode)
		apiErr.Message = string(body)
	}

	return apiErr
}
