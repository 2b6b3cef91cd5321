package server

import (
	"errors"
	"net/http"

	"github.com/fepilot/adoption-navigator/internal/model"
	"github.com/fepilot/adoption-navigator/internal/service/outcomes"
	"github.com/fepilot/adoption-navigator/internal/service/tracker"
)

// HandleTrackEvent appends one lifecycle event. Events without a
// recommendation ID are accepted and dropped, mirroring bulk ingestion.
func (h *Handlers) HandleTrackEvent(w http.ResponseWriter, r *http.Request) {
	h.limitBody(w, r)
	var req model.TrackRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "invalid request body: "+err.Error())
		return
	}
	ev, err := h.trackerSvc.Track(r.Context(), req)
	if err != nil {
		if errors.Is(err, tracker.ErrRecommendationNotFound) {
			writeError(w, r, http.StatusNotFound, model.ErrCodeNotFound, "recommendation not found")
			return
		}
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, err.Error())
		return
	}
	if ev == nil {
		writeJSON(w, r, http.StatusAccepted, map[string]any{"dropped": true})
		return
	}
	writeJSON(w, r, http.StatusCreated, ev)
}

// HandleTrackBatch appends a batch of events in order.
func (h *Handlers) HandleTrackBatch(w http.ResponseWriter, r *http.Request) {
	h.limitBody(w, r)
	var req model.TrackBatchRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "invalid request body: "+err.Error())
		return
	}
	result, err := h.trackerSvc.TrackBatch(r.Context(), req)
	if err != nil {
		if errors.Is(err, tracker.ErrRecommendationNotFound) {
			writeError(w, r, http.StatusNotFound, model.ErrCodeNotFound, "recommendation not found")
			return
		}
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, err.Error())
		return
	}
	writeJSON(w, r, http.StatusOK, result)
}

// HandleEventHistory returns a recommendation's event ledger.
func (h *Handlers) HandleEventHistory(w http.ResponseWriter, r *http.Request) {
	recID, ok := pathUUID(w, r, "rec_id")
	if !ok {
		return
	}
	events, err := h.trackerSvc.History(r.Context(), recID)
	if err != nil {
		if errors.Is(err, tracker.ErrRecommendationNotFound) {
			writeError(w, r, http.StatusNotFound, model.ErrCodeNotFound, "recommendation not found")
			return
		}
		h.logger.Error("event history failed", "error", err)
		writeError(w, r, http.StatusInternalServerError, model.ErrCodeInternalError, "failed to load event history")
		return
	}
	writeJSON(w, r, http.StatusOK, events)
}

// HandleRecommendationProgress returns derived lifecycle state.
func (h *Handlers) HandleRecommendationProgress(w http.ResponseWriter, r *http.Request) {
	recID, ok := pathUUID(w, r, "rec_id")
	if !ok {
		return
	}
	progress, err := h.trackerSvc.ProgressFor(r.Context(), recID)
	if err != nil {
		if errors.Is(err, tracker.ErrRecommendationNotFound) {
			writeError(w, r, http.StatusNotFound, model.ErrCodeNotFound, "recommendation not found")
			return
		}
		h.logger.Error("progress lookup failed", "error", err)
		writeError(w, r, http.StatusInternalServerError, model.ErrCodeInternalError, "failed to compute progress")
		return
	}
	writeJSON(w, r, http.StatusOK, progress)
}

// HandleCreateFeedback attaches qualitative feedback to a recommendation.
func (h *Handlers) HandleCreateFeedback(w http.ResponseWriter, r *http.Request) {
	h.limitBody(w, r)
	var req model.CreateFeedbackRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "invalid request body: "+err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, err.Error())
		return
	}
	if _, err := h.store.GetPlanRecommendation(r.Context(), req.PlanRecommendationID); err != nil {
		writeError(w, r, http.StatusNotFound, model.ErrCodeNotFound, "recommendation not found")
		return
	}
	fb, err := h.store.CreateFeedback(r.Context(), req.PlanRecommendationID, req)
	if err != nil {
		h.logger.Error("create feedback failed", "error", err)
		writeError(w, r, http.StatusInternalServerError, model.ErrCodeInternalError, "failed to create feedback")
		return
	}

	if _, err := h.trackerSvc.Track(r.Context(), model.TrackRequest{
		EventType:            model.EventFeedbackGiven,
		PlanRecommendationID: &req.PlanRecommendationID,
		RecordedBy:           req.SubmittedBy,
	}); err != nil {
		h.logger.Warn("feedback event not recorded", "error", err)
	}
	writeJSON(w, r, http.StatusCreated, fb)
}

// HandleListFeedback returns a recommendation's feedback.
func (h *Handlers) HandleListFeedback(w http.ResponseWriter, r *http.Request) {
	recID, ok := pathUUID(w, r, "rec_id")
	if !ok {
		return
	}
	items, err := h.store.ListFeedbackByRecommendation(r.Context(), recID)
	if err != nil {
		h.logger.Error("list feedback failed", "error", err)
		writeError(w, r, http.StatusInternalServerError, model.ErrCodeInternalError, "failed to list feedback")
		return
	}
	writeJSON(w, r, http.StatusOK, items)
}

// HandlePlanScores computes evidence scores for a plan's completed
// recommendations.
func (h *Handlers) HandlePlanScores(w http.ResponseWriter, r *http.Request) {
	planID, ok := pathUUID(w, r, "plan_id")
	if !ok {
		return
	}
	scores, err := h.outcomeSvc.ScoresForPlan(r.Context(), planID)
	if err != nil {
		h.logger.Error("plan scores failed", "error", err)
		writeError(w, r, http.StatusNotFound, model.ErrCodeNotFound, "plan not found")
		return
	}
	writeJSON(w, r, http.StatusOK, scores)
}

// HandleLeaderboard aggregates evidence scores across all plans.
func (h *Handlers) HandleLeaderboard(w http.ResponseWriter, r *http.Request) {
	stats, err := h.outcomeSvc.Leaderboard(r.Context())
	if err != nil {
		h.logger.Error("leaderboard failed", "error", err)
		writeError(w, r, http.StatusInternalServerError, model.ErrCodeInternalError, "failed to compute leaderboard")
		return
	}
	writeJSON(w, r, http.StatusOK, stats)
}

// HandleEvidenceCard builds the denormalized evidence card for a scored
// recommendation.
func (h *Handlers) HandleEvidenceCard(w http.ResponseWriter, r *http.Request) {
	recID, ok := pathUUID(w, r, "rec_id")
	if !ok {
		return
	}
	score, scored, err := h.outcomeSvc.ScoreRecommendation(r.Context(), recID)
	if err != nil {
		if errors.Is(err, outcomes.ErrRecommendationNotFound) {
			writeError(w, r, http.StatusNotFound, model.ErrCodeNotFound, "recommendation not found")
			return
		}
		h.logger.Error("score recommendation failed", "error", err)
		writeError(w, r, http.StatusInternalServerError, model.ErrCodeInternalError, "failed to score recommendation")
		return
	}
	if !scored {
		writeError(w, r, http.StatusConflict, model.ErrCodeConflict, "baseline and final snapshots are required before a card can be built")
		return
	}
	card, err := h.cards.BuildCard(r.Context(), score)
	if err != nil {
		h.logger.Error("build card failed", "error", err)
		writeError(w, r, http.StatusInternalServerError, model.ErrCodeInternalError, "failed to build evidence card")
		return
	}
	writeJSON(w, r, http.StatusOK, card)
}

// HandleImportEvidenceCard re-imports a previously exported card.
// Serialization is pure: the evidence score comes back exactly as
// exported, nothing is recomputed.
func (h *Handlers) HandleImportEvidenceCard(w http.ResponseWriter, r *http.Request) {
	h.limitBody(w, r)
	var card model.EvidenceCard
	if err := decodeJSON(r, &card); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "invalid evidence card: "+err.Error())
		return
	}
	writeJSON(w, r, http.StatusOK, card)
}
