package navigator

import (
	"log/slog"
	"net/http"
)

// RouteRegistrar adds routes to the shared HTTP mux during App construction.
type RouteRegistrar func(mux *http.ServeMux)

// Middleware wraps the App's root HTTP handler.
type Middleware func(next http.Handler) http.Handler

// Option configures an App.
type Option func(*resolvedOptions)

// resolvedOptions holds all extension points after applying defaults.
// Unexported — callers use the With* functions.
type resolvedOptions struct {
	port            int
	databasePath    string
	rulesPath       string
	thresholdsPath  string
	logger          *slog.Logger
	version         string
	routeRegistrars []RouteRegistrar
	middlewares     []Middleware
}

// WithPort overrides the TCP port from config (NAVIGATOR_PORT env var).
func WithPort(port int) Option {
	return func(o *resolvedOptions) { o.port = port }
}

// WithDatabasePath overrides the SQLite file path from config
// (NAVIGATOR_DB_PATH env var). Use ":memory:" for an ephemeral database.
func WithDatabasePath(path string) Option {
	return func(o *resolvedOptions) { o.databasePath = path }
}

// WithRulesPath overrides the compiled rule file from config
// (NAVIGATOR_RULES_PATH env var). An empty path loads the seed rules.
func WithRulesPath(path string) Option {
	return func(o *resolvedOptions) { o.rulesPath = path }
}

// WithThresholdsPath overrides the YAML success-threshold file from config
// (NAVIGATOR_THRESHOLDS_PATH env var).
func WithThresholdsPath(path string) Option {
	return func(o *resolvedOptions) { o.thresholdsPath = path }
}

// WithLogger sets the structured logger for the App.
// If not set, the default slog logger is used.
func WithLogger(logger *slog.Logger) Option {
	return func(o *resolvedOptions) { o.logger = logger }
}

// WithVersion sets the version string reported in the health endpoint and logs.
func WithVersion(version string) Option {
	return func(o *resolvedOptions) { o.version = version }
}

// WithExtraRoutes registers additional routes on the shared HTTP mux.
// Multiple registrars may be registered; all are called in registration order.
func WithExtraRoutes(fn RouteRegistrar) Option {
	return func(o *resolvedOptions) { o.routeRegistrars = append(o.routeRegistrars, fn) }
}

// WithMiddleware registers an outermost HTTP middleware.
// Multiple middlewares may be registered. Applied in registration order:
// the first-registered middleware is outermost (called first by every request).
func WithMiddleware(mw Middleware) Option {
	return func(o *resolvedOptions) { o.middlewares = append(o.middlewares, mw) }
}
