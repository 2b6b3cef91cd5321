package model

import (
	"time"

	"github.com/google/uuid"
)

// EvidenceScore is the composite outcome for one tracked recommendation,
// recomputed on demand from its baseline/final snapshots and event history.
// Derived data; never the stored source of truth.
type EvidenceScore struct {
	PlanRecommendationID uuid.UUID `json:"plan_recommendation_id"`
	Metric               string    `json:"metric"`
	Scenario             string    `json:"scenario"`

	BaselineValue Value `json:"baseline_value"`
	FinalValue    Value `json:"final_value"`

	Delta        float64 `json:"delta"`
	DeltaPercent float64 `json:"delta_percent"`

	// Coverage and Persistence are both clamped to [0, 1].
	Coverage    float64 `json:"coverage"`
	Persistence float64 `json:"persistence"`

	// EvidenceScore = |Delta| × Coverage × Persistence.
	EvidenceScore float64 `json:"evidence_score"`

	Success bool    `json:"success"`
	WinRate float64 `json:"win_rate"`

	ObservationDays int       `json:"observation_days"`
	CalculatedAt    time.Time `json:"calculated_at"`
}

// LeaderboardStats aggregates evidence scores across every completed
// recommendation that has both a baseline and a final snapshot.
type LeaderboardStats struct {
	TotalRecommendations      int     `json:"total_recommendations"`
	SuccessfulRecommendations int     `json:"successful_recommendations"`
	WinRate                   float64 `json:"win_rate"` // Percentage, 0 when nothing scored.
	AvgDelta                  float64 `json:"avg_delta"`
	AvgCoverage               float64 `json:"avg_coverage"`    // Percentage.
	AvgPersistence            float64 `json:"avg_persistence"` // Percentage.

	// TopRecommendations holds the ten highest evidence scores, descending.
	TopRecommendations []EvidenceScore `json:"top_recommendations"`
}

// CardActivity is one event in an evidence card's activity history.
type CardActivity struct {
	Type EventType      `json:"type"`
	Date time.Time      `json:"date"`
	Data map[string]any `json:"data,omitempty"`
}

// EvidenceCard is the denormalized report artifact for one scored
// recommendation: the score, its recommendation text, the full event
// history, and any quote feedback. Serialization is pure — re-importing a
// card preserves EvidenceScore exactly, with no recomputation.
type EvidenceCard struct {
	Metric          string         `json:"metric"`
	Scenario        string         `json:"scenario"`
	Recommendation  string         `json:"recommendation"`
	Baseline        Value          `json:"baseline"`
	Final           Value          `json:"final"`
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
