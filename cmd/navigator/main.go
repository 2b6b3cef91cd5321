package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

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

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	os.Exit(run0())
}

func run0() int {
	level := slog.LevelInfo
	if os.Getenv("NAVIGATOR_LOG_LEVEL") == "debug" {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, logger); err != nil {
		slog.Error("fatal error", "error", err)
		return 1
	}
	return 0
}

func run(ctx context.Context, logger *slog.Logger) error {
	// Load .env file if present (non-fatal; production won't have one).
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	slog.Info("navigator starting", "version", version, "port", cfg.Port)

	// Initialize OpenTelemetry.
	otelShutdown, err := telemetry.Init(ctx, telemetry.Config{
		Endpoint:    cfg.OTELEndpoint,
		ServiceName: cfg.ServiceName,
		Version:     version,
		Insecure:    cfg.OTELInsecure,
	})
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() { _ = otelShutdown(context.Background()) }()

	// Open the database. Open runs the embedded schema migrations.
	store, err := storage.Open(cfg.DatabasePath, logger)
	if err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	defer store.Close()

	// Load the compiled rule set (falls back to seed rules when no file
	// is configured).
	ruleStore, err := rules.Load(cfg.RulesPath, logger)
	if err != nil {
		return fmt.Errorf("rules: %w", err)
	}

	// Load success thresholds, with optional YAML overrides.
	thresholds, err := outcomes.LoadThresholds(cfg.ThresholdsPath, logger)
	if err != nil {
		return fmt.Errorf("thresholds: %w", err)
	}

	trackerSvc := tracker.New(store, logger)
	outcomeSvc := outcomes.New(store, thresholds, logger)

	var limiter ratelimit.Limiter
	if cfg.RateLimitEnabled {
		limiter = ratelimit.NewMemoryLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
		defer func() { _ = limiter.Close() }()
		logger.Info("rate limiting: memory (in-process token bucket)",
			"rps", cfg.RateLimitRPS, "burst", cfg.RateLimitBurst)
	} else {
		logger.Info("rate limiting: disabled")
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

	// Run the server until a shutdown signal or a fatal serve error.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("navigator shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
