package server

import (
	"log/slog"
	"net/http"

	"github.com/fepilot/adoption-navigator/internal/activity"
	"github.com/fepilot/adoption-navigator/internal/evaluate"
	"github.com/fepilot/adoption-navigator/internal/evidence"
	"github.com/fepilot/adoption-navigator/internal/model"
	"github.com/fepilot/adoption-navigator/internal/rules"
	"github.com/fepilot/adoption-navigator/internal/service/outcomes"
	"github.com/fepilot/adoption-navigator/internal/service/tracker"
	"github.com/fepilot/adoption-navigator/internal/storage"
)

// Handlers holds all HTTP handler dependencies.
type Handlers struct {
	store      *storage.Store
	ruleStore  *rules.Store
	engine     *evaluate.Engine
	trackerSvc *tracker.Service
	outcomeSvc *outcomes.Service
	cards      *evidence.Builder
	logger     *slog.Logger
	version    string
	maxBody    int64
	apiSpec    []byte
}

// HandlersDeps holds the dependencies for creating Handlers.
type HandlersDeps struct {
	Store               *storage.Store
	RuleStore           *rules.Store
	Engine              *evaluate.Engine
	TrackerSvc          *tracker.Service
	OutcomeSvc          *outcomes.Service
	Cards               *evidence.Builder
	Logger              *slog.Logger
	Version             string
	MaxRequestBodyBytes int64
	OpenAPISpec         []byte
}

// NewHandlers creates the handler set.
func NewHandlers(deps HandlersDeps) *Handlers {
	return &Handlers{
		store:      deps.Store,
		ruleStore:  deps.RuleStore,
		engine:     deps.Engine,
		trackerSvc: deps.TrackerSvc,
		outcomeSvc: deps.OutcomeSvc,
		cards:      deps.Cards,
		logger:     deps.Logger,
		version:    deps.Version,
		maxBody:    deps.MaxRequestBodyBytes,
		apiSpec:    deps.OpenAPISpec,
	}
}

// limitBody caps the request body size before decoding.
func (h *Handlers) limitBody(w http.ResponseWriter, r *http.Request) {
	if h.maxBody > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBody)
	}
}

// HandleHealth reports liveness plus rule-store stats.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Ping(r.Context()); err != nil {
		writeError(w, r, http.StatusServiceUnavailable, model.ErrCodeInternalError, "database unreachable")
		return
	}
	set := h.ruleStore.Set()
	writeJSON(w, r, http.StatusOK, map[string]any{
		"status":      "ok",
		"version":     h.version,
		"total_rules": len(set.Rules),
		"metrics":     set.Metadata.Metrics,
	})
}

// HandleOpenAPISpec serves the embedded OpenAPI document.
func (h *Handlers) HandleOpenAPISpec(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	w.WriteHeader(http.StatusOK)
	w.Write(h.apiSpec)
}

// HandleEvaluate runs the rule engine over a wholesale user-input map.
func (h *Handlers) HandleEvaluate(w http.ResponseWriter, r *http.Request) {
	h.limitBody(w, r)
	var req model.EvaluateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "invalid request body: "+err.Error())
		return
	}
	if len(req.Inputs) == 0 {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "inputs is required")
		return
	}
	result := h.engine.Evaluate(h.ruleStore.All(), req.Inputs)
	writeJSON(w, r, http.StatusOK, result)
}

// HandleGetRules returns the loaded rule set with its metadata.
func (h *Handlers) HandleGetRules(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, h.ruleStore.Set())
}

// HandleEstimateCoverage previews audience coverage for planned activity
// counts. This is the overlap-factor heuristic, not outcome scoring.
func (h *Handlers) HandleEstimateCoverage(w http.ResponseWriter, r *http.Request) {
	h.limitBody(w, r)
	var req model.EstimateCoverageRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "invalid request body: "+err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, err.Error())
		return
	}
	writeJSON(w, r, http.StatusOK, activity.EstimateCoverage(req.Activities, req.AudienceSize))
}

// HandleActivityTemplate suggests activities to log for a recommendation.
func (h *Handlers) HandleActivityTemplate(w http.ResponseWriter, r *http.Request) {
	rec := r.URL.Query().Get("recommendation")
	if rec == "" {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "recommendation query parameter is required")
		return
	}
	writeJSON(w, r, http.StatusOK, activity.TemplateFor(rec))
}

// HandleExportTracker renders triggered recommendations as the adoption
// tracker CSV.
func (h *Handlers) HandleExportTracker(w http.ResponseWriter, r *http.Request) {
	h.limitBody(w, r)
	var req struct {
		Triggered []model.TriggeredRecommendation `json:"triggered"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "invalid request body: "+err.Error())
		return
	}
	if len(req.Triggered) == 0 {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "triggered is required")
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="copilot-adoption-tracker.csv"`)
	if err := evidence.WriteTrackerCSV(w, req.Triggered); err != nil {
		h.logger.Error("tracker export failed", "error", err)
	}
}
