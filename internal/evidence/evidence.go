// Package evidence assembles exportable report artifacts: denormalized
// evidence cards and the adoption-tracker CSV.
package evidence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/fepilot/adoption-navigator/internal/model"
	"github.com/fepilot/adoption-navigator/internal/storage"
)

// Fallback next-steps text when a recommendation carries no resources.
const defaultNextSteps = "Continue monitoring and expanding adoption"

// Builder assembles evidence cards from the store.
type Builder struct {
	store *storage.Store
}

// NewBuilder creates a card Builder.
func NewBuilder(store *storage.Store) *Builder {
	return &Builder{store: store}
}

// BuildCard denormalizes a computed evidence score into a standalone
// report artifact, folding in the recommendation text, its full event
// history, and any quote-type feedback.
func (b *Builder) BuildCard(ctx context.Context, score model.EvidenceScore) (model.EvidenceCard, error) {
	rec, err := b.store.GetPlanRecommendation(ctx, score.PlanRecommendationID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return model.EvidenceCard{}, fmt.Errorf("evidence: recommendation not found: %s", score.PlanRecommendationID)
		}
		return model.EvidenceCard{}, fmt.Errorf("evidence: %w", err)
	}
	events, err := b.store.ListEventsByRecommendation(ctx, rec.ID)
	if err != nil {
		return model.EvidenceCard{}, fmt.Errorf("evidence: %w", err)
	}
	feedback, err := b.store.ListFeedbackByRecommendation(ctx, rec.ID)
	if err != nil {
		return model.EvidenceCard{}, fmt.Errorf("evidence: %w", err)
	}

	activities := make([]model.CardActivity, len(events))
	for i, ev := range events {
		activities[i] = model.CardActivity{
			Type: ev.EventType,
			Date: ev.RecordedAt,
			Data: ev.EventData,
		}
	}

	var quotes []string
	for _, fb := range feedback {
		if fb.FeedbackType == model.FeedbackQuote {
			quotes = append(quotes, fb.FeedbackText)
		}
	}

	nextSteps := rec.Resources
	if nextSteps == "" {
		nextSteps = defaultNextSteps
	}

	return model.EvidenceCard{
		Metric:          score.Metric,
		Scenario:        score.Scenario,
		Recommendation:  rec.Recommendation,
		Baseline:        score.BaselineValue,
		Final:           score.FinalValue,
		Delta:           score.Delta,
		DeltaPercent:    score.DeltaPercent,
		EvidenceScore:   score.EvidenceScore,
		Coverage:        score.Coverage,
		Persistence:     score.Persistence,
		ObservationDays: score.ObservationDays,
		Activities:      activities,
		Quotes:          quotes,
		NextSteps:       nextSteps,
	}, nil
}

// ExportCard serializes a card to indented JSON. Serialization is pure:
// ImportCard(ExportCard(c)) preserves every score field numerically, no
// recomputation happens on either side.
func ExportCard(card model.EvidenceCard) ([]byte, error) {
	data, err := json.MarshalIndent(card, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("evidence: export card: %w", err)
	}
	return data, nil
}

// ImportCard deserializes a previously exported card.
func ImportCard(data []byte) (model.EvidenceCard, error) {
	var card model.EvidenceCard
	if err := json.Unmarshal(data, &card); err != nil {
		return model.EvidenceCard{}, fmt.Errorf("evidence: import card: %w", err)
	}
	return card, nil
}

// CardFilename derives the export filename for a card's metric.
func CardFilename(metric string) string {
	name := make([]rune, 0, len(metric))
	for _, r := range metric {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			name = append(name, r)
		case r >= 'A' && r <= 'Z':
			name = append(name, r+('a'-'A'))
		case r == ' ':
			name = append(name, '-')
		}
	}
	return "evidence-card-" + string(name) + ".json"
}
