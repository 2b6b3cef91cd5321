package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/fepilot/adoption-navigator/internal/model"
)

// CreateSnapshot records a point-in-time metric value for a plan.
func (s *Store) CreateSnapshot(ctx context.Context, planID uuid.UUID, req model.CreateSnapshotRequest) (model.MetricSnapshot, error) {
	snap := model.MetricSnapshot{
		ID:           uuid.New(),
		PlanID:       planID,
		Metric:       req.Metric,
		SnapshotType: req.SnapshotType,
		Value:        req.Value,
		RecordedAt:   time.Now().UTC(),
		Notes:        req.Notes,
	}

	// Value is a number-or-text union; its JSON form preserves which it
	// was, so that is what goes into the column.
	encoded, err := json.Marshal(snap.Value)
	if err != nil {
		return model.MetricSnapshot{}, fmt.Errorf("storage: encode snapshot value: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO metric_snapshots (id, plan_id, metric, snapshot_type, value, recorded_at, notes)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		snap.ID.String(), snap.PlanID.String(), snap.Metric, string(snap.SnapshotType),
		string(encoded), formatTime(snap.RecordedAt), snap.Notes,
	)
	if err != nil {
		return model.MetricSnapshot{}, fmt.Errorf("storage: insert snapshot: %w", err)
	}
	return snap, nil
}

// ListSnapshotsByPlan returns every snapshot for a plan in recorded order,
// optionally filtered to one metric (empty metric means all).
func (s *Store) ListSnapshotsByPlan(ctx context.Context, planID uuid.UUID, metric string) ([]model.MetricSnapshot, error) {
	query := `SELECT id, plan_id, metric, snapshot_type, value, recorded_at, notes
		 FROM metric_snapshots WHERE plan_id = ?`
	args := []any{planID.String()}
	if metric != "" {
		query += ` AND metric = ?`
		args = append(args, metric)
	}
	query += ` ORDER BY recorded_at ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("storage: list snapshots: %w", err)
	}
	defer rows.Close()

	var snaps []model.MetricSnapshot
	for rows.Next() {
		var (
			snap          model.MetricSnapshot
			idStr, planID string
			snapType      string
			rawValue      string
			recordedAt    string
		)
		err := rows.Scan(&idStr, &planID, &snap.Metric, &snapType, &rawValue, &recordedAt, &snap.Notes)
		if err != nil {
			return nil, fmt.Errorf("storage: scan snapshot: %w", err)
		}
		if snap.ID, err = uuid.Parse(idStr); err != nil {
			return nil, fmt.Errorf("storage: parse snapshot id: %w", err)
		}
		if snap.PlanID, err = uuid.Parse(planID); err != nil {
			return nil, fmt.Errorf("storage: parse snapshot plan id: %w", err)
		}
		snap.SnapshotType = model.SnapshotType(snapType)
		if err := json.Unmarshal([]byte(rawValue), &snap.Value); err != nil {
			return nil, fmt.Errorf("storage: decode snapshot value: %w", err)
		}
		if snap.RecordedAt, err = parseTime(recordedAt); err != nil {
			return nil, err
		}
		snaps = append(snaps, snap)
	}
	return snaps, rows.Err()
}
