package model

import (
	"time"

	"github.com/google/uuid"
)

// FeedbackType classifies qualitative feedback on a tracked recommendation.
type FeedbackType string

const (
	FeedbackSuccess    FeedbackType = "success"
	FeedbackChallenge  FeedbackType = "challenge"
	FeedbackSuggestion FeedbackType = "suggestion"
	FeedbackQuote      FeedbackType = "quote"
)

// ValidFeedbackType reports whether t is a recognized feedback type.
func ValidFeedbackType(t FeedbackType) bool {
	switch t {
	case FeedbackSuccess, FeedbackChallenge, FeedbackSuggestion, FeedbackQuote:
		return true
	}
	return false
}

// Sentiment is an optional tone tag on feedback.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNeutral  Sentiment = "neutral"
	SentimentNegative Sentiment = "negative"
)

// Feedback is a qualitative note attached to a tracked recommendation.
// Quote-type feedback is surfaced verbatim on evidence cards.
type Feedback struct {
	ID                   uuid.UUID    `json:"id"`
	PlanRecommendationID uuid.UUID    `json:"plan_recommendation_id"`
	FeedbackType         FeedbackType `json:"feedback_type"`
	FeedbackText         string       `json:"feedback_text"`
	Sentiment            Sentiment    `json:"sentiment,omitempty"`
	SubmittedAt          time.Time    `json:"submitted_at"`
	SubmittedBy          string       `json:"submitted_by,omitempty"`
}
