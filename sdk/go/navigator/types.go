package navigator

import (
	"time"

	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// Rules and evaluation
// ---------------------------------------------------------------------------

// Rule is one row of the adoption rule set: a metric scenario, the
// recommended action, and the parsed target condition.
type Rule struct {
	ID             string   `json:"id"`
	Metric         string   `json:"metric"`
	Scenario       string   `json:"scenario"`
	Recommendation string   `json:"recommendation"`
	Resources      string   `json:"resources"`
	Target         string   `json:"target"`
	TargetType     string   `json:"targetType"`
	TargetValue    *float64 `json:"targetValue,omitempty"`
	TargetOperator string   `json:"targetOperator,omitempty"`
	TargetUnit     string   `json:"targetUnit,omitempty"`
	TargetMin      *float64 `json:"targetMin,omitempty"`
	TargetMax      *float64 `json:"targetMax,omitempty"`
	TargetLabel    string   `json:"targetLabel,omitempty"`
}

// RuleSetMetadata describes where the rule set came from.
type RuleSetMetadata struct {
	GeneratedAt time.Time `json:"generatedAt"`
	Source      string    `json:"source"`
	TotalRules  int       `json:"totalRules"`
	Metrics     []string  `json:"metrics"`
}

// RuleSet is the full loaded rule set.
type RuleSet struct {
	Rules         []Rule            `json:"rules"`
	RulesByMetric map[string][]Rule `json:"rulesByMetric"`
	Metadata      RuleSetMetadata   `json:"metadata"`
}

// UserInput is one observed metric value, keyed in the evaluate request
// by "<metric>:<fieldKey>".
type UserInput struct {
	Metric   string `json:"metric"`
	Scenario string `json:"scenario"`
	Value    any    `json:"value"`
	Label    string `json:"label,omitempty"`
}

// TriggeredRecommendation is a rule that fired during evaluation, with
// the gap between the observed value and the target.
type TriggeredRecommendation struct {
	RuleID         string   `json:"ruleId"`
	Metric         string   `json:"metric"`
	Scenario       string   `json:"scenario"`
	Recommendation string   `json:"recommendation"`
	Resources      string   `json:"resources"`
	Target         string   `json:"target"`
	UserValue      any      `json:"userValue"`
	Gap            *float64 `json:"gap,omitempty"`
	GapPercent     *float64 `json:"gapPercent,omitempty"`
	Effort         string   `json:"effort"`
}

// EvaluationResult is the outcome of evaluating a set of inputs.
type EvaluationResult struct {
	Triggered      []TriggeredRecommendation `json:"triggered"`
	EvaluatedAt    time.Time                 `json:"evaluatedAt"`
	TotalInputs    int                       `json:"totalInputs"`
	TotalTriggered int                       `json:"totalTriggered"`
}

// ---------------------------------------------------------------------------
// Plans and recommendations
// ---------------------------------------------------------------------------

// Plan is an adoption plan owned by a tenant.
type Plan struct {
	ID            uuid.UUID  `json:"id"`
	TenantID      string     `json:"tenant_id"`
	Name          string     `json:"name"`
	Description   string     `json:"description,omitempty"`
	Status        string     `json:"status"`
	StartDate     *time.Time `json:"start_date,omitempty"`
	TargetDate    *time.Time `json:"target_date,omitempty"`
	CompletedDate *time.Time `json:"completed_date,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	CreatedBy     string     `json:"created_by,omitempty"`
}

// CreatePlanRequest creates a new plan. TenantID and Name are required.
type CreatePlanRequest struct {
	TenantID    string     `json:"tenant_id"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Status      string     `json:"status,omitempty"`
	StartDate   *time.Time `json:"start_date,omitempty"`
	TargetDate  *time.Time `json:"target_date,omitempty"`
	CreatedBy   string     `json:"created_by,omitempty"`
}

// UpdatePlanRequest partially updates a plan. Nil fields are untouched.
type UpdatePlanRequest struct {
	Name          *string    `json:"name,omitempty"`
	Description   *string    `json:"description,omitempty"`
	Status        *string    `json:"status,omitempty"`
	StartDate     *time.Time `json:"start_date,omitempty"`
	TargetDate    *time.Time `json:"target_date,omitempty"`
	CompletedDate *time.Time `json:"completed_date,omitempty"`
}

// PlanRecommendation is a triggered recommendation promoted into a plan
// for tracking.
type PlanRecommendation struct {
	ID               uuid.UUID  `json:"id"`
	PlanID           uuid.UUID  `json:"plan_id"`
	RecommendationID string     `json:"recommendation_id"`
	Metric           string     `json:"metric"`
	Scenario         string     `json:"scenario"`
	Recommendation   string     `json:"recommendation"`
	Resources        string     `json:"resources"`
	Priority         *int       `json:"priority,omitempty"`
	AddedAt          time.Time  `json:"added_at"`
	StartedAt        *time.Time `json:"started_at,omitempty"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
}

// AddRecommendationRequest promotes a triggered recommendation into a plan.
type AddRecommendationRequest struct {
	RecommendationID string `json:"recommendation_id"`
	Metric           string `json:"metric"`
	Scenario         string `json:"scenario"`
	Recommendation   string `json:"recommendation"`
	Resources        string `json:"resources,omitempty"`
	Priority         *int   `json:"priority,omitempty"`
	RecordedBy       string `json:"recorded_by,omitempty"`
}

// ---------------------------------------------------------------------------
// Lifecycle events
// ---------------------------------------------------------------------------

// Lifecycle event types accepted by Track.
const (
	EventAddedToPlan        = "ADDED_TO_PLAN"
	EventStarted            = "STARTED"
	EventOutreachSent       = "OUTREACH_SENT"
	EventHeld               = "EVENT_HELD"
	EventLearningAssigned   = "LEARNING_ASSIGNED"
	EventCheckpointSnapshot = "CHECKPOINT_SNAPSHOT"
	EventFeedbackGiven      = "FEEDBACK_GIVEN"
	EventMarkedSuccess      = "MARKED_SUCCESS"
	EventMarkedFail         = "MARKED_FAIL"
)

// RecommendationEvent is one entry in a recommendation's event ledger.
type RecommendationEvent struct {
	ID                   uuid.UUID      `json:"id"`
	PlanRecommendationID uuid.UUID      `json:"plan_recommendation_id"`
	EventType            string         `json:"event_type"`
	EventData            map[string]any `json:"event_data,omitempty"`
	RecordedAt           time.Time      `json:"recorded_at"`
	RecordedBy           string         `json:"recorded_by,omitempty"`
}

// TrackRequest appends one lifecycle event. A nil PlanRecommendationID is
// accepted by the server and dropped.
type TrackRequest struct {
	EventType            string         `json:"event_type"`
	PlanRecommendationID *uuid.UUID     `json:"plan_recommendation_id,omitempty"`
	EventData            map[string]any `json:"event_data,omitempty"`
	RecordedBy           string         `json:"recorded_by,omitempty"`
}

// BatchResult summarizes a batch ingest.
type BatchResult struct {
	Recorded int                   `json:"recorded"`
	Dropped  int                   `json:"dropped"`
	Events   []RecommendationEvent `json:"events"`
}

// Progress is the derived lifecycle state of a tracked recommendation.
type Progress struct {
	HasStarted      bool           `json:"has_started"`
	HasCompleted    bool           `json:"has_completed"`
	EngagementScore float64        `json:"engagement_score"`
	EventCounts     map[string]int `json:"event_counts"`
}

// ---------------------------------------------------------------------------
// Snapshots and feedback
// ---------------------------------------------------------------------------

// Snapshot types.
const (
	SnapshotBaseline   = "baseline"
	SnapshotCheckpoint = "checkpoint"
	SnapshotFinal      = "final"
)

// MetricSnapshot is a point-in-time metric reading for a plan.
type MetricSnapshot struct {
	ID           uuid.UUID `json:"id"`
	PlanID       uuid.UUID `json:"plan_id"`
	Metric       string    `json:"metric"`
	SnapshotType string    `json:"snapshot_type"`
	Value        any       `json:"value"`
	RecordedAt   time.Time `json:"recorded_at"`
	Notes        string    `json:"notes,omitempty"`
}

// CreateSnapshotRequest records a metric snapshot.
type CreateSnapshotRequest struct {
	Metric       string `json:"metric"`
	SnapshotType string `json:"snapshot_type"`
	Value        any    `json:"value"`
	Notes        string `json:"notes,omitempty"`
}

// Feedback types and sentiments.
const (
	FeedbackSuccess    = "success"
	FeedbackChallenge  = "challenge"
	FeedbackSuggestion = "suggestion"
	FeedbackQuote      = "quote"

	SentimentPositive = "positive"
	SentimentNeutral  = "neutral"
	SentimentNegative = "negative"
)

// Feedback is qualitative feedback attached to a recommendation.
type Feedback struct {
	ID                   uuid.UUID `json:"id"`
	PlanRecommendationID uuid.UUID `json:"plan_recommendation_id"`
	FeedbackType         string    `json:"feedback_type"`
	FeedbackText         string    `json:"feedback_text"`
	Sentiment            string    `json:"sentiment,omitempty"`
	SubmittedAt          time.Time `json:"submitted_at"`
	SubmittedBy          string    `json:"submitted_by,omitempty"`
}

// CreateFeedbackRequest attaches feedback to a recommendation.
type CreateFeedbackRequest struct {
	PlanRecommendationID uuid.UUID `json:"plan_recommendation_id"`
	FeedbackType         string    `json:"feedback_type"`
	FeedbackText         string    `json:"feedback_text"`
	Sentiment            string    `json:"sentiment,omitempty"`
	SubmittedBy          string    `json:"submitted_by,omitempty"`
}

// ---------------------------------------------------------------------------
// Scoring and evidence
// ---------------------------------------------------------------------------

// EvidenceScore is the computed outcome of one completed recommendation.
type EvidenceScore struct {
	PlanRecommendationID uuid.UUID `json:"plan_recommendation_id"`
	Metric               string    `json:"metric"`
	Scenario             string    `json:"scenario"`
	BaselineValue        any       `json:"baseline_value"`
	FinalValue           any       `json:"final_value"`
	Delta                float64   `json:"delta"`
	DeltaPercent         float64   `json:"delta_percent"`
	Coverage             float64   `json:"coverage"`
	Persistence          float64   `json:"persistence"`
	EvidenceScore        float64   `json:"evidence_score"`
	Success              bool      `json:"success"`
	WinRate              float64   `json:"win_rate"`
	ObservationDays      int       `json:"observation_days"`
	CalculatedAt         time.Time `json:"calculated_at"`
}

// LeaderboardStats aggregates evidence scores across all plans.
type LeaderboardStats struct {
	TotalRecommendations      int             `json:"total_recommendations"`
	SuccessfulRecommendations int             `json:"successful_recommendations"`
	WinRate                   float64         `json:"win_rate"`
	AvgDelta                  float64         `json:"avg_delta"`
	AvgCoverage               float64         `json:"avg_coverage"`
	AvgPersistence            float64         `json:"avg_persistence"`
	TopRecommendations        []EvidenceScore `json:"top_recommendations"`
}

// CardActivity is one logged activity shown on an evidence card.
type CardActivity struct {
	Type string         `json:"type"`
	Date time.Time      `json:"date"`
	Data map[string]any `json:"data,omitempty"`
}

// EvidenceCard is the shareable before/after summary of a scored
// recommendation.
type EvidenceCard struct {
	Metric          string         `json:"metric"`
	Scenario        string         `json:"scenario"`
	Recommendation  string         `json:"recommendation"`
	Baseline        any            `json:"baseline"`
	Final           any            `json:"final"`
	Delta           float64        `json:"delta"`
	DeltaPercent    float64        `json:"delta_percent"`
	EvidenceScore   float64        `json:"evidence_score"`
	Coverage        float64        `json:"coverage"`
	Persistence     float64        `json:"persistence"`
	ObservationDays int            `json:"observation_days"`
	Activities      []CardActivity `json:"activities"`
	Quotes          []string       `json:"quotes"`
	NextSteps       string         `json:"next_steps"`
}

// ---------------------------------------------------------------------------
// Activity planning
// ---------------------------------------------------------------------------

// CoverageEstimate previews how much of an audience a set of planned
// activities would reach.
type CoverageEstimate struct {
	Coverage       float64 `json:"coverage"`
	TotalTouches   float64 `json:"total_touches"`
	EstimatedUsers float64 `json:"estimated_users"`
	OverlapFactor  float64 `json:"overlap_factor"`
}

// ActivityType describes one loggable activity within a template.
type ActivityType struct {
	ID          string `json:"id"`
	Label       string `json:"label"`
	Description string `json:"description"`
}

// ActivityTemplate suggests which activities to log for a recommendation.
type ActivityTemplate struct {
	Category     string             `json:"category"`
	Activities   []ActivityType     `json:"activities"`
	AudienceSize float64            `json:"audience_size"`
	SampleCounts map[string]float64 `json:"sample_counts"`
	Explanation  string             `json:"explanation"`
}

// Health is the server's health report.
type Health struct {
	Status     string   `json:"status"`
	Version    string   `json:"version"`
	TotalRules int      `json:"total_rules"`
	Metrics    []string `json:"metrics"`
}
