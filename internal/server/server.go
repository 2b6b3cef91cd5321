package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/fepilot/adoption-navigator/internal/evaluate"
	"github.com/fepilot/adoption-navigator/internal/evidence"
	"github.com/fepilot/adoption-navigator/internal/model"
	"github.com/fepilot/adoption-navigator/internal/ratelimit"
	"github.com/fepilot/adoption-navigator/internal/rules"
	"github.com/fepilot/adoption-navigator/internal/service/outcomes"
	"github.com/fepilot/adoption-navigator/internal/service/tracker"
	"github.com/fepilot/adoption-navigator/internal/storage"
)

// Server is the adoption navigator HTTP server.
type Server struct {
	httpServer *http.Server
	handler    http.Handler
	handlers   *Handlers
	logger     *slog.Logger
}

// Handler returns the root HTTP handler for use in tests.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// ServerConfig holds all dependencies and configuration for creating a Server.
type ServerConfig struct {
	// Required dependencies.
	Store      *storage.Store
	RuleStore  *rules.Store
	Engine     *evaluate.Engine
	TrackerSvc *tracker.Service
	OutcomeSvc *outcomes.Service
	Cards      *evidence.Builder
	Logger     *slog.Logger

	// Optional dependencies (nil = disabled).
	Limiter ratelimit.Limiter

	// HTTP server settings.
	Port                int
	ReadTimeout         time.Duration
	WriteTimeout        time.Duration
	Version             string
	MaxRequestBodyBytes int64
	OpenAPISpec         []byte
}

// New creates a new HTTP server with all routes configured.
func New(cfg ServerConfig) *Server {
	h := NewHandlers(HandlersDeps{
		Store:               cfg.Store,
		RuleStore:           cfg.RuleStore,
		Engine:              cfg.Engine,
		TrackerSvc:          cfg.TrackerSvc,
		OutcomeSvc:          cfg.OutcomeSvc,
		Cards:               cfg.Cards,
		Logger:              cfg.Logger,
		Version:             cfg.Version,
		MaxRequestBodyBytes: cfg.MaxRequestBodyBytes,
		OpenAPISpec:         cfg.OpenAPISpec,
	})

	// Per-IP rate limit on the write endpoints. Reads stay unlimited;
	// the evaluate endpoint is the hot path a misbehaving client hammers.
	writeLimit := ratelimit.Middleware(cfg.Limiter, ratelimit.IPKeyFunc,
		func(w http.ResponseWriter, r *http.Request) {
			writeError(w, r, http.StatusTooManyRequests, model.ErrCodeRateLimited, "too many requests")
		})

	mux := http.NewServeMux()

	// Rule evaluation.
	mux.Handle("POST /v1/evaluate", writeLimit(http.HandlerFunc(h.HandleEvaluate)))
	mux.HandleFunc("GET /v1/rules", h.HandleGetRules)

	// Adoption plans.
	mux.HandleFunc("POST /v1/plans", h.HandleCreatePlan)
	mux.HandleFunc("GET /v1/plans", h.HandleListPlans)
	mux.HandleFunc("GET /v1/plans/{plan_id}", h.HandleGetPlan)
	mux.HandleFunc("PATCH /v1/plans/{plan_id}", h.HandleUpdatePlan)
	mux.HandleFunc("DELETE /v1/plans/{plan_id}", h.HandleDeletePlan)

	// Recommendations within a plan.
	mux.HandleFunc("POST /v1/plans/{plan_id}/recommendations", h.HandleAddRecommendation)
	mux.HandleFunc("GET /v1/plans/{plan_id}/recommendations", h.HandleListRecommendations)

	// Lifecycle event ledger.
	mux.Handle("POST /v1/events", writeLimit(http.HandlerFunc(h.HandleTrackEvent)))
	mux.Handle("POST /v1/events/batch", writeLimit(http.HandlerFunc(h.HandleTrackBatch)))
	mux.HandleFunc("GET /v1/recommendations/{rec_id}/events", h.HandleEventHistory)
	mux.HandleFunc("GET /v1/recommendations/{rec_id}/progress", h.HandleRecommendationProgress)

	// Metric snapshots.
	mux.HandleFunc("POST /v1/plans/{plan_id}/snapshots", h.HandleCreateSnapshot)
	mux.HandleFunc("GET /v1/plans/{plan_id}/snapshots", h.HandleListSnapshots)

	// Feedback.
	mux.HandleFunc("POST /v1/feedback", h.HandleCreateFeedback)
	mux.HandleFunc("GET /v1/recommendations/{rec_id}/feedback", h.HandleListFeedback)

	// Outcome scoring.
	mux.HandleFunc("GET /v1/plans/{plan_id}/scores", h.HandlePlanScores)
	mux.HandleFunc("GET /v1/leaderboard", h.HandleLeaderboard)

	// Activity planning helpers.
	mux.HandleFunc("POST /v1/coverage/estimate", h.HandleEstimateCoverage)
	mux.HandleFunc("GET /v1/activity-templates", h.HandleActivityTemplate)

	// Evidence cards and tracker export.
	mux.HandleFunc("GET /v1/recommendations/{rec_id}/evidence-card", h.HandleEvidenceCard)
	mux.HandleFunc("POST /v1/evidence-cards/import", h.HandleImportEvidenceCard)
	mux.HandleFunc("POST /v1/export/tracker", h.HandleExportTracker)

	// Health and API reference (no middleware exemptions needed, the chain is cheap).
	mux.HandleFunc("GET /health", h.HandleHealth)
	mux.HandleFunc("GET /openapi.yaml", h.HandleOpenAPISpec)

	// Middleware chain (outermost executes first):
	// request ID → tracing → logging → recovery → handler.
	var handler http.Handler = mux
	handler = recoveryMiddleware(cfg.Logger, handler)
	handler = loggingMiddleware(cfg.Logger, handler)
	handler = tracingMiddleware(handler)
	handler = requestIDMiddleware(handler)

	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      handler,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
		handler:  handler,
		handlers: h,
		logger:   cfg.Logger,
	}
}

// Start begins serving HTTP requests.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("http server shutting down")
	return s.httpServer.Shutdown(ctx)
}
