package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/fepilot/adoption-navigator/internal/model"
)

// InsertEvent appends an event to a recommendation's history. The events
// table is append-only; there is deliberately no update or delete.
func (s *Store) InsertEvent(ctx context.Context, ev model.RecommendationEvent) error {
	payload, err := marshalJSON(ev.EventData)
	if err != nil {
		return err
	}
	var data any
	if payload != "" {
		data = payload
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO recommendation_events (id, plan_recommendation_id, event_type, event_data, recorded_at, recorded_by)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		ev.ID.String(), ev.PlanRecommendationID.String(), string(ev.EventType),
		data, formatTime(ev.RecordedAt), ev.RecordedBy,
	)
	if err != nil {
		return fmt.Errorf("storage: insert event: %w", err)
	}
	return nil
}

// ListEventsByRecommendation returns a recommendation's event history in
// recorded order.
func (s *Store) ListEventsByRecommendation(ctx context.Context, recID uuid.UUID) ([]model.RecommendationEvent, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, plan_recommendation_id, event_type, event_data, recorded_at, recorded_by
		 FROM recommendation_events WHERE plan_recommendation_id = ? ORDER BY recorded_at ASC, id ASC`,
		recID.String())
	if err != nil {
		return nil, fmt.Errorf("storage: list events: %w", err)
	}
	defer rows.Close()

	var events []model.RecommendationEvent
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// CountEventsByType returns per-type event counts for a recommendation.
func (s *Store) CountEventsByType(ctx context.Context, recID uuid.UUID) (map[model.EventType]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT event_type, COUNT(*) FROM recommendation_events
		 WHERE plan_recommendation_id = ? GROUP BY event_type`,
		recID.String())
	if err != nil {
		return nil, fmt.Errorf("storage: count events: %w", err)
	}
	defer rows.Close()

	counts := make(map[model.EventType]int)
	for rows.Next() {
		var (
			t string
			n int
		)
		if err := rows.Scan(&t, &n); err != nil {
			return nil, fmt.Errorf("storage: scan event count: %w", err)
		}
		counts[model.EventType(t)] = n
	}
	return counts, rows.Err()
}

func scanEvent(row rowScanner) (model.RecommendationEvent, error) {
	var (
		ev            model.RecommendationEvent
		idStr, recStr string
		eventType     string
		payload       sql.NullString
		recordedAt    string
	)
	err := row.Scan(&idStr, &recStr, &eventType, &payload, &recordedAt, &ev.RecordedBy)
	if err != nil {
		return model.RecommendationEvent{}, fmt.Errorf("storage: scan event: %w", err)
	}

	if ev.ID, err = uuid.Parse(idStr); err != nil {
		return model.RecommendationEvent{}, fmt.Errorf("storage: parse event id: %w", err)
	}
	if ev.PlanRecommendationID, err = uuid.Parse(recStr); err != nil {
		return model.RecommendationEvent{}, fmt.Errorf("storage: parse event recommendation id: %w", err)
	}
	ev.EventType = model.EventType(eventType)
	if payload.Valid && payload.String != "" {
		if err := json.Unmarshal([]byte(payload.String), &ev.EventData); err != nil {
			return model.RecommendationEvent{}, fmt.Errorf("storage: decode event payload: %w", err)
		}
	}
	if ev.RecordedAt, err = parseTime(recordedAt); err != nil {
		return model.RecommendationEvent{}, err
	}
	return ev, nil
}
