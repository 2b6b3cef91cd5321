package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// EventType categorizes a recommendation lifecycle event. The set is closed:
// scoring logic switches on these exact values, and unknown types are
// ignored by coverage/persistence computation rather than treated as errors.
type EventType string

const (
	EventAddedToPlan        EventType = "ADDED_TO_PLAN"
	EventStarted            EventType = "STARTED"
	EventOutreachSent       EventType = "OUTREACH_SENT"
	EventHeld               EventType = "EVENT_HELD"
	EventLearningAssigned   EventType = "LEARNING_ASSIGNED"
	EventCheckpointSnapshot EventType = "CHECKPOINT_SNAPSHOT"
	EventFeedbackGiven      EventType = "FEEDBACK_GIVEN"
	EventMarkedSuccess      EventType = "MARKED_SUCCESS"
	EventMarkedFail         EventType = "MARKED_FAIL"
)

// ValidEventType reports whether t is in the closed event-type set.
func ValidEventType(t EventType) bool {
	switch t {
	case EventAddedToPlan, EventStarted, EventOutreachSent, EventHeld,
		EventLearningAssigned, EventCheckpointSnapshot, EventFeedbackGiven,
		EventMarkedSuccess, EventMarkedFail:
		return true
	}
	return false
}

// IsEngagement reports whether t is an outreach-style event whose payload
// may carry audience reach data used for coverage scoring.
func (t EventType) IsEngagement() bool {
	return t == EventOutreachSent || t == EventHeld || t == EventLearningAssigned
}

// IsCompletion reports whether t terminates a tracked recommendation.
func (t EventType) IsCompletion() bool {
	return t == EventMarkedSuccess || t == EventMarkedFail
}

// RecommendationEvent is an append-only record of an action taken against a
// tracked recommendation. Source of truth for the evidence engine.
// Never mutated or deleted.
type RecommendationEvent struct {
	ID                   uuid.UUID      `json:"id"`
	PlanRecommendationID uuid.UUID      `json:"plan_recommendation_id"`
	EventType            EventType      `json:"event_type"`
	EventData            map[string]any `json:"event_data,omitempty"`
	RecordedAt           time.Time      `json:"recorded_at"`
	RecordedBy           string         `json:"recorded_by,omitempty"`
}

// EngagementPayload is the decoded payload shape for OUTREACH_SENT,
// EVENT_HELD, and LEARNING_ASSIGNED events. Reach may arrive under any of
// count/attendees/users depending on the activity; Reached takes the first
// populated field, so an event carrying several does not double-count.
type EngagementPayload struct {
	Count        float64 `json:"count,omitempty"`
	Attendees    float64 `json:"attendees,omitempty"`
	Users        float64 `json:"users,omitempty"`
	AudienceSize float64 `json:"audienceSize,omitempty"`
}

// Reached returns the reach recorded on the event: count, else attendees,
// else users, else zero.
func (p EngagementPayload) Reached() float64 {
	switch {
	case p.Count != 0:
		return p.Count
	case p.Attendees != 0:
		return p.Attendees
	default:
		return p.Users
	}
}

// CheckpointPayload is the decoded payload shape for CHECKPOINT_SNAPSHOT
// events.
type CheckpointPayload struct {
	Metric string `json:"metric,omitempty"`
	Value  Value  `json:"value,omitempty"`
	Notes  string `json:"notes,omitempty"`
}

// Engagement decodes the event's payload as an EngagementPayload. Returns
// ok=false for non-engagement event types or payloads without an
// audienceSize, mirroring the scoring engine's qualifying-event filter.
func (e RecommendationEvent) Engagement() (EngagementPayload, bool) {
	if !e.EventType.IsEngagement() || e.EventData == nil {
		return EngagementPayload{}, false
	}
	p := EngagementPayload{
		Count:        payloadNumber(e.EventData, "count"),
		Attendees:    payloadNumber(e.EventData, "attendees"),
		Users:        payloadNumber(e.EventData, "users"),
		AudienceSize: payloadNumber(e.EventData, "audienceSize"),
	}
	if p.AudienceSize <= 0 {
		return EngagementPayload{}, false
	}
	return p, true
}

// payloadNumber reads a numeric payload field, tolerating the types a
// free-form JSON payload may carry. Anything non-numeric reads as zero.
func payloadNumber(data map[string]any, key string) float64 {
	switch v := data[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case json.Number:
		f, _ := v.Float64()
		return f
	default:
		return 0
	}
}
