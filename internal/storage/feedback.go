package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/fepilot/adoption-navigator/internal/model"
)

// CreateFeedback attaches qualitative feedback to a tracked recommendation.
func (s *Store) CreateFeedback(ctx context.Context, recID uuid.UUID, req model.CreateFeedbackRequest) (model.Feedback, error) {
	fb := model.Feedback{
		ID:                   uuid.New(),
		PlanRecommendationID: recID,
		FeedbackType:         req.FeedbackType,
		FeedbackText:         req.FeedbackText,
		Sentiment:            req.Sentiment,
		SubmittedAt:          time.Now().UTC(),
		SubmittedBy:          req.SubmittedBy,
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO feedback (id, plan_recommendation_id, feedback_type, feedback_text, sentiment, submitted_at, submitted_by)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		fb.ID.String(), fb.PlanRecommendationID.String(), string(fb.FeedbackType),
		fb.FeedbackText, string(fb.Sentiment), formatTime(fb.SubmittedAt), fb.SubmittedBy,
	)
	if err != nil {
		return model.Feedback{}, fmt.Errorf("storage: insert feedback: %w", err)
	}
	return fb, nil
}

// ListFeedbackByRecommendation returns a recommendation's feedback in
// submission order.
func (s *Store) ListFeedbackByRecommendation(ctx context.Context, recID uuid.UUID) ([]model.Feedback, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, plan_recommendation_id, feedback_type, feedback_text, sentiment, submitted_at, submitted_by
		 FROM feedback WHERE plan_recommendation_id = ? ORDER BY submitted_at ASC`,
		recID.String())
	if err != nil {
		return nil, fmt.Errorf("storage: list feedback: %w", err)
	}
	defer rows.Close()

	var items []model.Feedback
	for rows.Next() {
		var (
			fb            model.Feedback
			idStr, recStr string
			fbType        string
			sentiment     string
			submittedAt   string
		)
		err := rows.Scan(&idStr, &recStr, &fbType, &fb.FeedbackText, &sentiment, &submittedAt, &fb.SubmittedBy)
		if err != nil {
			return nil, fmt.Errorf("storage: scan feedback: %w", err)
		}
		if fb.ID, err = uuid.Parse(idStr); err != nil {
			return nil, fmt.Errorf("storage: parse feedback id: %w", err)
		}
		if fb.PlanRecommendationID, err = uuid.Parse(recStr); err != nil {
			return nil, fmt.Errorf("storage: parse feedback recommendation id: %w", err)
		}
		fb.FeedbackType = model.FeedbackType(fbType)
		fb.Sentiment = model.Sentiment(sentiment)
		if fb.SubmittedAt, err = parseTime(submittedAt); err != nil {
			return nil, err
		}
		items = append(items, fb)
	}
	return items, rows.Err()
}
