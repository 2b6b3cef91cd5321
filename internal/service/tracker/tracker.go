// Package tracker records recommendation lifecycle events and derives
// progress state from them.
//
// The event ledger is append-only: recording an event never rewrites
// history. Lifecycle side effects (started/completed timestamps on the
// tracked recommendation) are derived writes, applied alongside the event.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/fepilot/adoption-navigator/internal/model"
	"github.com/fepilot/adoption-navigator/internal/storage"
	"github.com/fepilot/adoption-navigator/internal/telemetry"
)

// ErrRecommendationNotFound is returned when an event references a tracked
// recommendation that does not exist.
var ErrRecommendationNotFound = errors.New("tracker: recommendation not found")

// Service records events and answers progress queries.
type Service struct {
	store  *storage.Store
	logger *slog.Logger
	now    func() time.Time

	eventsRecorded metric.Int64Counter
}

// New creates a tracker Service.
func New(store *storage.Store, logger *slog.Logger) *Service {
	meter := telemetry.Meter("navigator/tracker")
	recorded, _ := meter.Int64Counter("navigator.events.recorded",
		metric.WithDescription("Recommendation events recorded"),
	)
	return &Service{
		store:          store,
		logger:         logger,
		now:            func() time.Time { return time.Now().UTC() },
		eventsRecorded: recorded,
	}
}

// SetClock overrides the service clock. For tests.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// Track validates and appends a single event, applying lifecycle side
// effects:
//
//   - STARTED sets the recommendation's started_at, first event wins.
//   - MARKED_SUCCESS and MARKED_FAIL set completed_at.
//
// An event without a recommendation ID is accepted and dropped with a
// warning rather than rejected, so bulk ingestion of partially-filled
// exports does not abort.
func (s *Service) Track(ctx context.Context, req model.TrackRequest) (*model.RecommendationEvent, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("tracker: %w", err)
	}
	if req.PlanRecommendationID == nil || *req.PlanRecommendationID == uuid.Nil {
		s.logger.Warn("event without recommendation id dropped",
			"event_type", req.EventType)
		return nil, nil
	}
	recID := *req.PlanRecommendationID

	if _, err := s.store.GetPlanRecommendation(ctx, recID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrRecommendationNotFound, recID)
		}
		return nil, fmt.Errorf("tracker: %w", err)
	}

	ev := model.RecommendationEvent{
		ID:                   uuid.New(),
		PlanRecommendationID: recID,
		EventType:            req.EventType,
		EventData:            req.EventData,
		RecordedAt:           s.now(),
		RecordedBy:           req.RecordedBy,
	}
	if err := s.store.InsertEvent(ctx, ev); err != nil {
		return nil, fmt.Errorf("tracker: %w", err)
	}

	switch {
	case ev.EventType == model.EventStarted:
		if err := s.store.MarkRecommendationStarted(ctx, recID, ev.RecordedAt); err != nil {
			return nil, fmt.Errorf("tracker: %w", err)
		}
	case ev.EventType.IsCompletion():
		if err := s.store.MarkRecommendationCompleted(ctx, recID, ev.RecordedAt); err != nil {
			return nil, fmt.Errorf("tracker: %w", err)
		}
	}

	s.eventsRecorded.Add(ctx, 1,
		metric.WithAttributes(attribute.String("event_type", string(ev.EventType))))
	s.logger.Info("event recorded",
		"event_id", ev.ID,
		"event_type", ev.EventType,
		"recommendation_id", recID)
	return &ev, nil
}

// BatchResult summarizes a batch ingest.
type BatchResult struct {
	Recorded int                         `json:"recorded"`
	Dropped  int                         `json:"dropped"`
	Events   []model.RecommendationEvent `json:"events"`
}

// TrackBatch appends events in order. Events without a recommendation ID
// are dropped with a warning; any other failure aborts the batch.
func (s *Service) TrackBatch(ctx context.Context, req model.TrackBatchRequest) (BatchResult, error) {
	if err := req.Validate(); err != nil {
		return BatchResult{}, fmt.Errorf("tracker: %w", err)
	}

	var result BatchResult
	for i, item := range req.Events {
		ev, err := s.Track(ctx, item)
		if err != nil {
			return BatchResult{}, fmt.Errorf("tracker: batch item %d: %w", i, err)
		}
		if ev == nil {
			result.Dropped++
			continue
		}
		result.Recorded++
		result.Events = append(result.Events, *ev)
	}
	return result, nil
}

// History returns a recommendation's full event history in recorded order.
func (s *Service) History(ctx context.Context, recID uuid.UUID) ([]model.RecommendationEvent, error) {
	if _, err := s.store.GetPlanRecommendation(ctx, recID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrRecommendationNotFound, recID)
		}
		return nil, fmt.Errorf("tracker: %w", err)
	}
	events, err := s.store.ListEventsByRecommendation(ctx, recID)
	if err != nil {
		return nil, fmt.Errorf("tracker: %w", err)
	}
	return events, nil
}

// Progress is the derived lifecycle state of a tracked recommendation.
type Progress struct {
	HasStarted      bool                    `json:"has_started"`
	HasCompleted    bool                    `json:"has_completed"`
	EngagementScore float64                 `json:"engagement_score"`
	EventCounts     map[model.EventType]int `json:"event_counts"`
}

// ProgressFor computes the lifecycle state of a recommendation from its
// event ledger.
func (s *Service) ProgressFor(ctx context.Context, recID uuid.UUID) (Progress, error) {
	rec, err := s.store.GetPlanRecommendation(ctx, recID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return Progress{}, fmt.Errorf("%w: %s", ErrRecommendationNotFound, recID)
		}
		return Progress{}, fmt.Errorf("tracker: %w", err)
	}
	counts, err := s.store.CountEventsByType(ctx, recID)
	if err != nil {
		return Progress{}, fmt.Errorf("tracker: %w", err)
	}
	return Progress{
		HasStarted:      rec.StartedAt != nil || counts[model.EventStarted] > 0,
		HasCompleted:    rec.CompletedAt != nil,
		EngagementScore: engagementScore(counts),
		EventCounts:     counts,
	}, nil
}

// engagementScore rates activity against a recommendation on a 0-100
// scale: up to 50 points for breadth (distinct event types, 10 each)
// and up to 50 for volume (5 per event). Lifecycle events count the
// same as engagement events; any recorded activity is activity.
func engagementScore(counts map[model.EventType]int) float64 {
	var types, total int
	for _, n := range counts {
		if n == 0 {
			continue
		}
		types++
		total += n
	}
	breadth := min(float64(types)*10, 50)
	volume := min(float64(total)*5, 50)
	return breadth + volume
}
