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

// CreatePlan inserts a new plan, assigning its ID and timestamps.
func (s *Store) CreatePlan(ctx context.Context, req model.CreatePlanRequest) (model.Plan, error) {
	now := time.Now().UTC()
	status := req.Status
	if status == "" {
		status = model.PlanPlanned
	}
	p := model.Plan{
		ID:          uuid.New(),
		TenantID:    req.TenantID,
		Name:        req.Name,
		Description: req.Description,
		Status:      status,
		StartDate:   req.StartDate,
		TargetDate:  req.TargetDate,
		CreatedAt:   now,
		UpdatedAt:   now,
		CreatedBy:   req.CreatedBy,
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO plans (id, tenant_id, name, description, status, start_date, target_date, completed_date, created_at, updated_at, created_by)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID.String(), p.TenantID, p.Name, p.Description, string(p.Status),
		formatTimePtr(p.StartDate), formatTimePtr(p.TargetDate), nil,
		formatTime(p.CreatedAt), formatTime(p.UpdatedAt), p.CreatedBy,
	)
	if err != nil {
		return model.Plan{}, fmt.Errorf("storage: insert plan: %w", err)
	}
	return p, nil
}

// GetPlan retrieves a plan by ID. Returns ErrNotFound if it does not exist.
func (s *Store) GetPlan(ctx context.Context, id uuid.UUID) (model.Plan, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, tenant_id, name, description, status, start_date, target_date, completed_date, created_at, updated_at, created_by
		 FROM plans WHERE id = ?`, id.String())
	p, err := scanPlan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Plan{}, ErrNotFound
	}
	return p, err
}

// ListPlansByTenant returns every plan for a tenant, newest first.
func (s *Store) ListPlansByTenant(ctx context.Context, tenantID string) ([]model.Plan, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, tenant_id, name, description, status, start_date, target_date, completed_date, created_at, updated_at, created_by
		 FROM plans WHERE tenant_id = ? ORDER BY created_at DESC`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("storage: list plans: %w", err)
	}
	defer rows.Close()

	var plans []model.Plan
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		plans = append(plans, p)
	}
	return plans, rows.Err()
}

// UpdatePlan applies non-nil fields from the request and bumps updated_at.
// Returns the updated plan, or ErrNotFound.
func (s *Store) UpdatePlan(ctx context.Context, id uuid.UUID, req model.UpdatePlanRequest) (model.Plan, error) {
	p, err := s.GetPlan(ctx, id)
	if err != nil {
		return model.Plan{}, err
	}

	if req.Name != nil {
		p.Name = *req.Name
	}
	if req.Description != nil {
		p.Description = *req.Description
	}
	if req.Status != nil {
		p.Status = *req.Status
	}
	if req.StartDate != nil {
		p.StartDate = req.StartDate
	}
	if req.TargetDate != nil {
		p.TargetDate = req.TargetDate
	}
	if req.CompletedDate != nil {
		p.CompletedDate = req.CompletedDate
	}
	p.UpdatedAt = time.Now().UTC()

	_, err = s.db.ExecContext(ctx,
		`UPDATE plans SET name = ?, description = ?, status = ?, start_date = ?, target_date = ?, completed_date = ?, updated_at = ?
		 WHERE id = ?`,
		p.Name, p.Description, string(p.Status),
		formatTimePtr(p.StartDate), formatTimePtr(p.TargetDate), formatTimePtr(p.CompletedDate),
		formatTime(p.UpdatedAt), id.String(),
	)
	if err != nil {
		return model.Plan{}, fmt.Errorf("storage: update plan: %w", err)
	}
	return p, nil
}

// DeletePlan removes a plan. Returns ErrNotFound if no row was deleted.
// Tracked recommendations, events, snapshots, and feedback under the plan
// are left in place; the caller decides whether orphans matter.
func (s *Store) DeletePlan(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM plans WHERE id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("storage: delete plan: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("storage: delete plan rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPlan(row rowScanner) (model.Plan, error) {
	var (
		p                                  model.Plan
		idStr, status                      string
		startDate, targetDate, completedAt sql.NullString
		createdAt, updatedAt               string
	)
	err := row.Scan(&idStr, &p.TenantID, &p.Name, &p.Description, &status,
		&startDate, &targetDate, &completedAt, &createdAt, &updatedAt, &p.CreatedBy)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Plan{}, err
		}
		return model.Plan{}, fmt.Errorf("storage: scan plan: %w", err)
	}

	if p.ID, err = uuid.Parse(idStr); err != nil {
		return model.Plan{}, fmt.Errorf("storage: parse plan id: %w", err)
	}
	p.Status = model.PlanStatus(status)
	if p.StartDate, err = parseTimePtr(startDate); err != nil {
		return model.Plan{}, err
	}
	if p.TargetDate, err = parseTimePtr(targetDate); err != nil {
		return model.Plan{}, err
	}
	if p.CompletedDate, err = parseTimePtr(completedAt); err != nil {
		return model.Plan{}, err
	}
	if p.CreatedAt, err = parseTime(createdAt); err != nil {
		return model.Plan{}, err
	}
	if p.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return model.Plan{}, err
	}
	return p, nil
}
