package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Field length limits for caller-supplied text. These keep a single
// oversized field from filling SQLite TEXT columns with unbounded input.
const (
	MaxNameLen     = 200
	MaxTextLen     = 16 * 1024 // 16 KB
	MaxRecordedBy  = 200
	MaxPriority    = 5
	MaxBatchEvents = 100
)

// APIResponse is the standard response envelope for all HTTP API responses.
type APIResponse struct {
	Data any          `json:"data,omitempty"`
	Meta ResponseMeta `json:"meta"`
}

// APIError is the standard error response envelope.
type APIError struct {
	Error ErrorDetail  `json:"error"`
	Meta  ResponseMeta `json:"meta"`
}

// ResponseMeta contains request metadata included in every response.
type ResponseMeta struct {
	RequestID string    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`
}

// ErrorDetail describes an API error.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// ErrorCode constants for standard API error codes.
const (
	ErrCodeInvalidInput  = "INVALID_INPUT"
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeConflict      = "CONFLICT"
	ErrCodeRateLimited   = "RATE_LIMITED"
	ErrCodeInternalError = "INTERNAL_ERROR"
)

// EvaluateRequest is the request body for POST /v1/evaluate: the wholesale
// user-input map keyed "<metric>:<fieldKey>".
type EvaluateRequest struct {
	Inputs map[string]UserInput `json:"inputs"`
}

// CreatePlanRequest is the request body for POST /v1/plans.
type CreatePlanRequest struct {
	TenantID    string     `json:"tenant_id"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Status      PlanStatus `json:"status,omitempty"`
	StartDate   *time.Time `json:"start_date,omitempty"`
	TargetDate  *time.Time `json:"target_date,omitempty"`
	CreatedBy   string     `json:"created_by,omitempty"`
}

// Validate checks required fields and length limits.
func (r CreatePlanRequest) Validate() error {
	if r.TenantID == "" {
		return fmt.Errorf("tenant_id is required")
	}
	if r.Name == "" {
		return fmt.Errorf("name is required")
	}
	if len(r.Name) > MaxNameLen {
		return fmt.Errorf("name exceeds maximum length of %d characters", MaxNameLen)
	}
	if len(r.Description) > MaxTextLen {
		return fmt.Errorf("description exceeds maximum length of %d bytes", MaxTextLen)
	}
	if r.Status != "" && !ValidPlanStatus(r.Status) {
		return fmt.Errorf("unknown plan status %q", r.Status)
	}
	return nil
}

// UpdatePlanRequest is the request body for PATCH /v1/plans/{plan_id}.
// Nil fields are left unchanged.
type UpdatePlanRequest struct {
	Name          *string     `json:"name,omitempty"`
	Description   *string     `json:"description,omitempty"`
	Status        *PlanStatus `json:"status,omitempty"`
	StartDate     *time.Time  `json:"start_date,omitempty"`
	TargetDate    *time.Time  `json:"target_date,omitempty"`
	CompletedDate *time.Time  `json:"completed_date,omitempty"`
}

// Validate checks field constraints on the provided updates.
func (r UpdatePlanRequest) Validate() error {
	if r.Name != nil && (*r.Name == "" || len(*r.Name) > MaxNameLen) {
		return fmt.Errorf("name must be 1-%d characters", MaxNameLen)
	}
	if r.Status != nil && !ValidPlanStatus(*r.Status) {
		return fmt.Errorf("unknown plan status %q", *r.Status)
	}
	return nil
}

// AddRecommendationRequest promotes a triggered recommendation into
// tracking under a plan (POST /v1/plans/{plan_id}/recommendations).
type AddRecommendationRequest struct {
	RecommendationID string `json:"recommendation_id"`
	Metric           string `json:"metric"`
	Scenario         string `json:"scenario"`
	Recommendation   string `json:"recommendation"`
	Resources        string `json:"resources,omitempty"`
	Priority         *int   `json:"priority,omitempty"`
	RecordedBy       string `json:"recorded_by,omitempty"`
}

// Validate checks required fields and the priority range.
func (r AddRecommendationRequest) Validate() error {
	if r.RecommendationID == "" {
		return fmt.Errorf("recommendation_id is required")
	}
	if r.Metric == "" {
		return fmt.Errorf("metric is required")
	}
	if r.Recommendation == "" {
		return fmt.Errorf("recommendation is required")
	}
	if r.Priority != nil && (*r.Priority < 1 || *r.Priority > MaxPriority) {
		return fmt.Errorf("priority must be between 1 and %d", MaxPriority)
	}
	return nil
}

// TrackRequest is the request body for POST /v1/events.
type TrackRequest struct {
	EventType            EventType      `json:"event_type"`
	PlanRecommendationID *uuid.UUID     `json:"plan_recommendation_id,omitempty"`
	EventData            map[string]any `json:"event_data,omitempty"`
	RecordedBy           string         `json:"recorded_by,omitempty"`
}

// Validate checks the event type and attribution fields.
func (r TrackRequest) Validate() error {
	if !ValidEventType(r.EventType) {
		return fmt.Errorf("unknown event type %q", r.EventType)
	}
	if len(r.RecordedBy) > MaxRecordedBy {
		return fmt.Errorf("recorded_by exceeds maximum length of %d characters", MaxRecordedBy)
	}
	return nil
}

// TrackBatchRequest is the request body for POST /v1/events/batch.
type TrackBatchRequest struct {
	Events []TrackRequest `json:"events"`
}

// Validate checks the batch size and each contained event.
func (r TrackBatchRequest) Validate() error {
	if len(r.Events) == 0 {
		return fmt.Errorf("events is required")
	}
	if len(r.Events) > MaxBatchEvents {
		return fmt.Errorf("batch exceeds maximum of %d events", MaxBatchEvents)
	}
	for i, ev := range r.Events {
		if err := ev.Validate(); err != nil {
			return fmt.Errorf("events[%d]: %w", i, err)
		}
	}
	return nil
}

// CreateSnapshotRequest is the request body for
// POST /v1/plans/{plan_id}/snapshots.
type CreateSnapshotRequest struct {
	Metric       string       `json:"metric"`
	SnapshotType SnapshotType `json:"snapshot_type"`
	Value        Value        `json:"value"`
	Notes        string       `json:"notes,omitempty"`
}

// Validate checks required fields.
func (r CreateSnapshotRequest) Validate() error {
	if r.Metric == "" {
		return fmt.Errorf("metric is required")
	}
	if !ValidSnapshotType(r.SnapshotType) {
		return fmt.Errorf("unknown snapshot type %q", r.SnapshotType)
	}
	if r.Value.IsZero() {
		return fmt.Errorf("value is required")
	}
	return nil
}

// CreateFeedbackRequest is the request body for POST /v1/feedback.
type CreateFeedbackRequest struct {
	PlanRecommendationID uuid.UUID    `json:"plan_recommendation_id"`
	FeedbackType         FeedbackType `json:"feedback_type"`
	FeedbackText         string       `json:"feedback_text"`
	Sentiment            Sentiment    `json:"sentiment,omitempty"`
	SubmittedBy          string       `json:"submitted_by,omitempty"`
}

// Validate checks required fields and length limits.
func (r CreateFeedbackRequest) Validate() error {
	if r.PlanRecommendationID == uuid.Nil {
		return fmt.Errorf("plan_recommendation_id is required")
	}
	if !ValidFeedbackType(r.FeedbackType) {
		return fmt.Errorf("unknown feedback type %q", r.FeedbackType)
	}
	if r.FeedbackText == "" {
		return fmt.Errorf("feedback_text is required")
	}
	if len(r.FeedbackText) > MaxTextLen {
		return fmt.Errorf("feedback_text exceeds maximum length of %d bytes", MaxTextLen)
	}
	return nil
}

// EstimateCoverageRequest is the request body for POST /v1/coverage/estimate.
type EstimateCoverageRequest struct {
	Activities   map[string]float64 `json:"activities"`
	AudienceSize float64            `json:"audience_size"`
}

// Validate checks the audience size is usable as a denominator.
func (r EstimateCoverageRequest) Validate() error {
	if r.AudienceSize <= 0 {
		return fmt.Errorf("audience_size must be positive")
	}
	return nil
}
