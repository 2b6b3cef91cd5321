package model

import (
	"time"

	"github.com/google/uuid"
)

// PlanStatus tracks where a plan sits in its lifecycle.
type PlanStatus string

const (
	PlanPlanned    PlanStatus = "planned"
	PlanInProgress PlanStatus = "in_progress"
	PlanDone       PlanStatus = "done"
	PlanArchived   PlanStatus = "archived"
)

// ValidPlanStatus reports whether s is a recognized plan status.
func ValidPlanStatus(s PlanStatus) bool {
	switch s {
	case PlanPlanned, PlanInProgress, PlanDone, PlanArchived:
		return true
	}
	return false
}

// Plan is an adoption initiative grouping tracked recommendations and
// metric snapshots. TenantID is an identifier only; the service makes no
// isolation guarantees beyond scoping list queries by it.
type Plan struct {
	ID            uuid.UUID  `json:"id"`
	TenantID      string     `json:"tenant_id"`
	Name          string     `json:"name"`
	Description   string     `json:"description,omitempty"`
	Status        PlanStatus `json:"status"`
	StartDate     *time.Time `json:"start_date,omitempty"`
	TargetDate    *time.Time `json:"target_date,omitempty"`
	CompletedDate *time.Time `json:"completed_date,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	CreatedBy     string     `json:"created_by,omitempty"`
}

// PlanRecommendation is a triggered recommendation promoted into active
// tracking under a plan. StartedAt is set by the first STARTED event;
// CompletedAt by MARKED_SUCCESS or MARKED_FAIL.
type PlanRecommendation struct {
	ID               uuid.UUID  `json:"id"`
	PlanID           uuid.UUID  `json:"plan_id"`
	RecommendationID string     `json:"recommendation_id"` // Rule.ID the instance was promoted from.
	Metric           string     `json:"metric"`
	Scenario         string     `json:"scenario"`
	Recommendation   string     `json:"recommendation"`
	Resources        string     `json:"resources"`
	Priority         *int       `json:"priority,omitempty"` // 1-5.
	AddedAt          time.Time  `json:"added_at"`
	StartedAt        *time.Time `json:"started_at,omitempty"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
}
