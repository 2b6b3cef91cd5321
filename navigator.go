// Package navigator is the public API for embedding the Adoption Navigator
// server.
//
// Consumers import this package to construct and extend the server without
// forking it:
//
//	app, err := navigator.New(
//	    navigator.WithVersion(version),
//	    navigator.WithLogger(logger),
//	    navigator.WithExtraRoutes(myRoutes),
//	)
//	if err != nil { ... }
//	if err := app.Run(ctx); err != nil { ... }
//
// The import graph enforces a strict no-cycle rule: navigator (root) imports
// internal/*, but internal/* never imports navigator (root).
package navigator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/joho/godotenv"

	"github.com/fepilot/adoption-navigator/api"
	"github.com/fepilot/adoption-navigator/internal/config"
	"github.com/fepilot/adoption-navigator/internal/evaluate"
	"github.com/fepilot/adoption-navigator/internal/evidence"
	"github.com/fepilot/adoption-navigator/internal/ratelimit"
	"github.com/fepilot/adoption-navigator/internal/rules"
	"github.com/fepilot/adoption-navigator/internal/server"
	"github.com/fepilot/adoption-navigator/internal/service/outcomes"
	"github.com/fepilot/adoption-navigator/internal/service/tracker"
	"github.com/fepilot/adoption-navigator/internal/storage"
	"github.com/fepilot/adoption-navigator/internal/telemetry"
)

// App is the Adoption Navigator server lifecycle. Construct with New(),
// run with Run(). App has no public fields — use New() options to
// configure it.
type App struct {
	cfg          config.Config
	store        *storage.Store
	handler      http.Handler
	httpServer   *http.Server
	limiter      ratelimit.Limiter // nil when rate limiting is disabled
	otelShutdown func(context.Context) error
	logger       *slog.Logger
	version      string
}

// New initialises the navigator server. It opens the database, runs the
// embedded schema migrations, loads the rule set, and wires all subsystems.
// It does NOT start any goroutines or accept HTTP connections — call Run().
func New(opts ...Option) (*App, error) {
	o := resolvedOptions{}
	for _, fn := range opts {
		fn(&o)
	}

	logger := o.logger
	if logger == nil {
		logger = slog.Default()
	}

	// Load .env file if present (non-fatal; production won't have one).
	_ = godotenv.Load()

	// Load configuration (env vars), then apply option overrides.
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if o.port != 0 {
		cfg.Port = o.port
	}
	if o.databasePath != "" {
		cfg.DatabasePath = o.databasePath
	}
	if o.rulesPath != "" {
		cfg.RulesPath = o.rulesPath
	}
	if o.thresholdsPath != "" {
		cfg.ThresholdsPath = o.thresholdsPath
	}
	version := o.version
	if version == "" {
		version = "dev"
	}

	logger.Info("navigator starting", "version", version, "port", cfg.Port)

	// Initialize OpenTelemetry (noop when no endpoint is configured).
	otelShutdown, err := telemetry.Init(context.Background(), telemetry.Config{
		Endpoint:    cfg.OTELEndpoint,
		ServiceName: cfg.ServiceName,
		Version:     version,
		Insecure:    cfg.OTELInsecure,
	})
	if err != nil {
		return nil, fmt.Errorf("telemetry: %w", err)
	}

	// Open the database. Open runs the embedded schema migrations.
	store, err := storage.Open(cfg.DatabasePath, logger)
	if err != nil {
		_ = otelShutdown(context.Background())
		return nil, fmt.Errorf("storage: %w", err)
	}

	// Load the compiled rule set (falls back to seed rules when no file
	// is configured) and the success thresholds.
	ruleStore, err := rules.Load(cfg.RulesPath, logger)
	if err != nil {
		_ = store.Close()
		_ = otelShutdown(context.Background())
		return nil, fmt.Errorf("rules: %w", err)
	}
	thresholds, err := outcomes.LoadThresholds(cfg.ThresholdsPath, logger)
	if err != nil {
		_ = store.Close()
		_ = otelShutdown(context.Background())
		return nil, fmt.Errorf("thresholds: %w", err)
	}

	trackerSvc := tracker.New(store, logger)
	outcomeSvc := outcomes.New(store, thresholds, logger)

	var limiter ratelimit.Limiter
	if cfg.RateLimitEnabled {
		limiter = ratelimit.NewMemoryLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	}

	srv := server.New(server.ServerConfig{
		Store:               store,
		RuleStore:           ruleStore,
		Engine:              evaluate.New(logger),
		TrackerSvc:          trackerSvc,
		OutcomeSvc:          outcomeSvc,
		Cards:               evidence.NewBuilder(store),
		Logger:              logger,
		Limiter:             limiter,
		Port:                cfg.Port,
		ReadTimeout:         cfg.ReadTimeout,
		WriteTimeout:        cfg.WriteTimeout,
		Version:             version,
		MaxRequestBodyBytes: cfg.MaxRequestBodyBytes,
		OpenAPISpec:         api.OpenAPISpec,
	})

	// Compose the public handler: extra routes first, then embedder
	// middlewares (first registered is outermost).
	handler := srv.Handler()
	if len(o.routeRegistrars) > 0 {
		outer := http.NewServeMux()
		for _, register := range o.routeRegistrars {
			register(outer)
		}
		outer.Handle("/", handler)
		handler = outer
	}
	for i := len(o.middlewares) - 1; i >= 0; i-- {
		handler = o.middlewares[i](handler)
	}

	return &App{
		cfg:   cfg,
		store: store,
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      handler,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
		handler:      handler,
		limiter:      limiter,
		otelShutdown: otelShutdown,
		logger:       logger,
		version:      version,
	}, nil
}

// Handler returns the root HTTP handler, including any extra routes and
// middlewares. Useful for tests and for mounting the App under another mux.
func (a *App) Handler() http.Handler {
	return a.handler
}

// Run starts the HTTP server and blocks until ctx is cancelled or a fatal
// server error occurs. On return, Shutdown is called automatically —
// callers should not call Shutdown separately.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("http server listening", "addr", a.httpServer.Addr)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return err
	}

	return a.Shutdown(context.Background())
}

// Shutdown drains in-flight HTTP requests, then closes the rate limiter,
// OTEL provider, and database.
func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("navigator shutting down")

	httpCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := a.httpServer.Shutdown(httpCtx); err != nil {
		a.logger.Error("http shutdown error", "error", err)
	}

	if a.limiter != nil {
		_ = a.limiter.Close()
	}
	_ = a.otelShutdown(context.Background())
	if err := a.store.Close(); err != nil {
		return fmt.Errorf("close storage: %w", err)
	}

	a.logger.Info("navigator stopped")
	return nil
}
