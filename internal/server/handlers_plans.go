package server

import (
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/fepilot/adoption-navigator/internal/model"
	"github.com/fepilot/adoption-navigator/internal/storage"
)

// pathUUID parses a UUID path value, writing a 400 on failure.
func pathUUID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue(name))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}

// HandleCreatePlan creates an adoption plan.
func (h *Handlers) HandleCreatePlan(w http.ResponseWriter, r *http.Request) {
	h.limitBody(w, r)
	var req model.CreatePlanRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "invalid request body: "+err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, err.Error())
		return
	}
	plan, err := h.store.CreatePlan(r.Context(), req)
	if err != nil {
		h.logger.Error("create plan failed", "error", err)
		writeError(w, r, http.StatusInternalServerError, model.ErrCodeInternalError, "failed to create plan")
		return
	}
	writeJSON(w, r, http.StatusCreated, plan)
}

// HandleListPlans lists a tenant's plans, newest first.
func (h *Handlers) HandleListPlans(w http.ResponseWriter, r *http.Request) {
	tenantID := r.URL.Query().Get("tenant_id")
	if tenantID == "" {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "tenant_id query parameter is required")
		return
	}
	plans, err := h.store.ListPlansByTenant(r.Context(), tenantID)
	if err != nil {
		h.logger.Error("list plans failed", "error", err)
		writeError(w, r, http.StatusInternalServerError, model.ErrCodeInternalError, "failed to list plans")
		return
	}
	writeJSON(w, r, http.StatusOK, plans)
}

// HandleGetPlan retrieves one plan.
func (h *Handlers) HandleGetPlan(w http.ResponseWriter, r *http.Request) {
	planID, ok := pathUUID(w, r, "plan_id")
	if !ok {
		return
	}
	plan, err := h.store.GetPlan(r.Context(), planID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, model.ErrCodeNotFound, "plan not found")
			return
		}
		h.logger.Error("get plan failed", "error", err)
		writeError(w, r, http.StatusInternalServerError, model.ErrCodeInternalError, "failed to get plan")
		return
	}
	writeJSON(w, r, http.StatusOK, plan)
}

// HandleUpdatePlan applies a partial update to a plan.
func (h *Handlers) HandleUpdatePlan(w http.ResponseWriter, r *http.Request) {
	planID, ok := pathUUID(w, r, "plan_id")
	if !ok {
		return
	}
	h.limitBody(w, r)
	var req model.UpdatePlanRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "invalid request body: "+err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, err.Error())
		return
	}
	plan, err := h.store.UpdatePlan(r.Context(), planID, req)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, model.ErrCodeNotFound, "plan not found")
			return
		}
		h.logger.Error("update plan failed", "error", err)
		writeError(w, r, http.StatusInternalServerError, model.ErrCodeInternalError, "failed to update plan")
		return
	}
	writeJSON(w, r, http.StatusOK, plan)
}

// HandleDeletePlan removes a plan.
func (h *Handlers) HandleDeletePlan(w http.ResponseWriter, r *http.Request) {
	planID, ok := pathUUID(w, r, "plan_id")
	if !ok {
		return
	}
	if err := h.store.DeletePlan(r.Context(), planID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, model.ErrCodeNotFound, "plan not found")
			return
		}
		h.logger.Error("delete plan failed", "error", err)
		writeError(w, r, http.StatusInternalServerError, model.ErrCodeInternalError, "failed to delete plan")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleAddRecommendation promotes a triggered recommendation into
// tracking under a plan and records the ADDED_TO_PLAN event.
func (h *Handlers) HandleAddRecommendation(w http.ResponseWriter, r *http.Request) {
	planID, ok := pathUUID(w, r, "plan_id")
	if !ok {
		return
	}
	h.limitBody(w, r)
	var req model.AddRecommendationRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "invalid request body: "+err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, err.Error())
		return
	}
	if _, err := h.store.GetPlan(r.Context(), planID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, model.ErrCodeNotFound, "plan not found")
			return
		}
		h.logger.Error("get plan failed", "error", err)
		writeError(w, r, http.StatusInternalServerError, model.ErrCodeInternalError, "failed to resolve plan")
		return
	}

	rec, err := h.store.CreatePlanRecommendation(r.Context(), planID, req)
	if err != nil {
		h.logger.Error("add recommendation failed", "error", err)
		writeError(w, r, http.StatusInternalServerError, model.ErrCodeInternalError, "failed to add recommendation")
		return
	}

	if _, err := h.trackerSvc.Track(r.Context(), model.TrackRequest{
		EventType:            model.EventAddedToPlan,
		PlanRecommendationID: &rec.ID,
		RecordedBy:           req.RecordedBy,
	}); err != nil {
		h.logger.Warn("added-to-plan event not recorded", "error", err, "recommendation_id", rec.ID)
	}
	writeJSON(w, r, http.StatusCreated, rec)
}

// HandleListRecommendations lists a plan's tracked recommendations.
func (h *Handlers) HandleListRecommendations(w http.ResponseWriter, r *http.Request) {
	planID, ok := pathUUID(w, r, "plan_id")
	if !ok {
		return
	}
	if _, err := h.store.GetPlan(r.Context(), planID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, model.ErrCodeNotFound, "plan not found")
			return
		}
		h.logger.Error("get plan failed", "error", err)
		writeError(w, r, http.StatusInternalServerError, model.ErrCodeInternalError, "failed to resolve plan")
		return
	}
	recs, err := h.store.ListPlanRecommendations(r.Context(), planID)
	if err != nil {
		h.logger.Error("list recommendations failed", "error", err)
		writeError(w, r, http.StatusInternalServerError, model.ErrCodeInternalError, "failed to list recommendations")
		return
	}
	writeJSON(w, r, http.StatusOK, recs)
}

// HandleCreateSnapshot records a metric snapshot for a plan.
func (h *Handlers) HandleCreateSnapshot(w http.ResponseWriter, r *http.Request) {
	planID, ok := pathUUID(w, r, "plan_id")
	if !ok {
		return
	}
	h.limitBody(w, r)
	var req model.CreateSnapshotRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "invalid request body: "+err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, err.Error())
		return
	}
	if _, err := h.store.GetPlan(r.Context(), planID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, model.ErrCodeNotFound, "plan not found")
			return
		}
		h.logger.Error("get plan failed", "error", err)
		writeError(w, r, http.StatusInternalServerError, model.ErrCodeInternalError, "failed to resolve plan")
		return
	}
	snap, err := h.store.CreateSnapshot(r.Context(), planID, req)
	if err != nil {
		h.logger.Error("create snapshot failed", "error", err)
		writeError(w, r, http.StatusInternalServerError, model.ErrCodeInternalError, "failed to create snapshot")
		return
	}
	writeJSON(w, r, http.StatusCreated, snap)
}

// HandleListSnapshots lists a plan's snapshots, optionally filtered by
// ?metric=.
func (h *Handlers) HandleListSnapshots(w http.ResponseWriter, r *http.Request) {
	planID, ok := pathUUID(w, r, "plan_id")
	if !ok {
		return
	}
	snaps, err := h.store.ListSnapshotsByPlan(r.Context(), planID, r.URL.Query().Get("metric"))
	if err != nil {
		h.logger.Error("list snapshots failed", "error", err)
		writeError(w, r, http.StatusInternalServerError, model.ErrCodeInternalError, "failed to list snapshots")
		return
	}
	writeJSON(w, r, http.StatusOK, snaps)
}
