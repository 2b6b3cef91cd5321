package model

import (
	"time"

	"github.com/google/uuid"
)

// SnapshotType marks where in a plan's life a metric value was captured.
type SnapshotType string

const (
	SnapshotBaseline   SnapshotType = "baseline"
	SnapshotCheckpoint SnapshotType = "checkpoint"
	SnapshotFinal      SnapshotType = "final"
)

// ValidSnapshotType reports whether t is a recognized snapshot type.
func ValidSnapshotType(t SnapshotType) bool {
	switch t {
	case SnapshotBaseline, SnapshotCheckpoint, SnapshotFinal:
		return true
	}
	return false
}

// MetricSnapshot is a point-in-time capture of a metric value for a plan.
// A plan may hold many checkpoints per metric; scoring assumes at most one
// baseline and one final per metric.
type MetricSnapshot struct {
	ID           uuid.UUID    `json:"id"`
	PlanID       uuid.UUID    `json:"plan_id"`
	Metric       string       `json:"metric"`
	SnapshotType SnapshotType `json:"snapshot_type"`
	Value        Value        `json:"value"`
	RecordedAt   time.Time    `json:"recorded_at"`
	Notes        string       `json:"notes,omitempty"`
}
