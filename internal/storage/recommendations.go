package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/fepilot/adoption-navigator/internal/model"
)

// CreatePlanRecommendation promotes a triggered recommendation into
// tracking under a plan.
func (s *Store) CreatePlanRecommendation(ctx context.Context, planID uuid.UUID, req model.AddRecommendationRequest) (model.PlanRecommendation, error) {
	rec := model.PlanRecommendation{
		ID:               uuid.New(),
		PlanID:           planID,
		RecommendationID: req.RecommendationID,
		Metric:           req.Metric,
		Scenario:         req.Scenario,
		Recommendation:   req.Recommendation,
		Resources:        req.Resources,
		Priority:         req.Priority,
		AddedAt:          time.Now().UTC(),
	}

	var priority any
	if rec.Priority != nil {
		priority = *rec.Priority
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO plan_recommendations (id, plan_id, recommendation_id, metric, scenario, recommendation, resources, priority, added_at, started_at, completed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, NULL, NULL)`,
		rec.ID.String(), rec.PlanID.String(), rec.RecommendationID, rec.Metric,
		rec.Scenario, rec.Recommendation, rec.Resources, priority, formatTime(rec.AddedAt),
	)
	if err != nil {
		return model.PlanRecommendation{}, fmt.Errorf("storage: insert plan recommendation: %w", err)
	}
	return rec, nil
}

// GetPlanRecommendation retrieves a tracked recommendation by ID.
// Returns ErrNotFound if it does not exist.
func (s *Store) GetPlanRecommendation(ctx context.Context, id uuid.UUID) (model.PlanRecommendation, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, plan_id, recommendation_id, metric, scenario, recommendation, resources, priority, added_at, started_at, completed_at
		 FROM plan_recommendations WHERE id = ?`, id.String())
	rec, err := scanPlanRecommendation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.PlanRecommendation{}, ErrNotFound
	}
	return rec, err
}

// ListPlanRecommendations returns the tracked recommendations for a plan
// in promotion order.
func (s *Store) ListPlanRecommendations(ctx context.Context, planID uuid.UUID) ([]model.PlanRecommendation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, plan_id, recommendation_id, metric, scenario, recommendation, resources, priority, added_at, started_at, completed_at
		 FROM plan_recommendations WHERE plan_id = ? ORDER BY added_at ASC`, planID.String())
	if err != nil {
		return nil, fmt.Errorf("storage: list plan recommendations: %w", err)
	}
	defer rows.Close()

	var recs []model.PlanRecommendation
	for rows.Next() {
		rec, err := scanPlanRecommendation(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// ListCompletedRecommendations returns every tracked recommendation with
// completed_at set, across all plans. Input to leaderboard aggregation.
func (s *Store) ListCompletedRecommendations(ctx context.Context) ([]model.PlanRecommendation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, plan_id, recommendation_id, metric, scenario, recommendation, resources, priority, added_at, started_at, completed_at
		 FROM plan_recommendations WHERE completed_at IS NOT NULL ORDER BY completed_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("storage: list completed recommendations: %w", err)
	}
	defer rows.Close()

	var recs []model.PlanRecommendation
	for rows.Next() {
		rec, err := scanPlanRecommendation(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// MarkRecommendationStarted sets started_at if it is not already set.
// Idempotent: a second STARTED event never backdates or advances the
// original timestamp.
func (s *Store) MarkRecommendationStarted(ctx context.Context, id uuid.UUID, at time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE plan_recommendations SET started_at = ? WHERE id = ? AND started_at IS NULL`,
		formatTime(at), id.String())
	if err != nil {
		return fmt.Errorf("storage: mark recommendation started: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		// Either already started (fine) or missing; disambiguate.
		if _, err := s.GetPlanRecommendation(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// MarkRecommendationCompleted sets completed_at. Returns ErrNotFound for
// an unknown recommendation.
func (s *Store) MarkRecommendationCompleted(ctx context.Context, id uuid.UUID, at time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE plan_recommendations SET completed_at = ? WHERE id = ?`,
		formatTime(at), id.String())
	if err != nil {
		return fmt.Errorf("storage: mark recommendation completed: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func scanPlanRecommendation(row rowScanner) (model.PlanRecommendation, error) {
	var (
		rec                    model.PlanRecommendation
		idStr, planIDStr       string
		priority               sql.NullInt64
		addedAt                string
		startedAt, completedAt sql.NullString
	)
	err := row.Scan(&idStr, &planIDStr, &rec.RecommendationID, &rec.Metric, &rec.Scenario,
		&rec.Recommendation, &rec.Resources, &priority, &addedAt, &startedAt, &completedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.PlanRecommendation{}, err
		}
		return model.PlanRecommendation{}, fmt.Errorf("storage: scan plan recommendation: %w", err)
	}

	if rec.ID, err = uuid.Parse(idStr); err != nil {
		return model.PlanRecommendation{}, fmt.Errorf("storage: parse recommendation id: %w", err)
	}
	if rec.PlanID, err = uuid.Parse(planIDStr); err != nil {
		return model.PlanRecommendation{}, fmt.Errorf("storage: parse plan id: %w", err)
	}
	if priority.Valid {
		p := int(priority.Int64)
		rec.Priority = &p
	}
	if rec.AddedAt, err = parseTime(addedAt); err != nil {
		return model.PlanRecommendation{}, err
	}
	if rec.StartedAt, err = parseTimePtr(startedAt); err != nil {
		return model.PlanRecommendation{}, err
	}
	if rec.CompletedAt, err = parseTimePtr(completedAt); err != nil {
		return model.PlanRecommendation{}, err
	}
	return rec, nil
}
