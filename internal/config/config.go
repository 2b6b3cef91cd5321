// Package config loads and validates application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	// Server settings.
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// Storage settings.
	DatabasePath string // SQLite file path; ":memory:" for ephemeral.

	// Rule engine settings.
	RulesPath      string // Rule file (JSON); empty falls back to seed rules.
	ThresholdsPath string // Optional YAML success-threshold overrides.

	// OTEL settings.
	OTELEndpoint string
	OTELInsecure bool
	ServiceName  string

	// Rate limiting (per client IP, write endpoints only).
	RateLimitEnabled bool
	RateLimitRPS     float64
	RateLimitBurst   int

	// Operational settings.
	LogLevel            string
	MaxRequestBodyBytes int64 // Maximum request body size in bytes.
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (Config, error) {
	cfg := Config{
		Port:                envInt("NAVIGATOR_PORT", 8080),
		ReadTimeout:         envDuration("NAVIGATOR_READ_TIMEOUT", 30*time.Second),
		WriteTimeout:        envDuration("NAVIGATOR_WRITE_TIMEOUT", 30*time.Second),
		DatabasePath:        envStr("NAVIGATOR_DB_PATH", "data/navigator.db"),
		RulesPath:           envStr("NAVIGATOR_RULES_PATH", ""),
		ThresholdsPath:      envStr("NAVIGATOR_THRESHOLDS_PATH", ""),
		OTELEndpoint:        envStr("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		OTELInsecure:        envBool("OTEL_EXPORTER_OTLP_INSECURE", false),
		ServiceName:         envStr("OTEL_SERVICE_NAME", "navigator"),
		RateLimitEnabled:    envBool("NAVIGATOR_RATE_LIMIT_ENABLED", true),
		RateLimitRPS:        float64(envInt("NAVIGATOR_RATE_LIMIT_RPS", 10)),
		RateLimitBurst:      envInt("NAVIGATOR_RATE_LIMIT_BURST", 30),
		LogLevel:            envStr("NAVIGATOR_LOG_LEVEL", "info"),
		MaxRequestBodyBytes: int64(envInt("NAVIGATOR_MAX_REQUEST_BODY_BYTES", 1*1024*1024)), // 1 MB default
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that required configuration is present.
func (c Config) Validate() error {
	if c.DatabasePath == "" {
		return fmt.Errorf("config: NAVIGATOR_DB_PATH is required")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("config: NAVIGATOR_PORT must be a valid port")
	}
	if c.MaxRequestBodyBytes <= 0 {
		return fmt.Errorf("config: NAVIGATOR_MAX_REQUEST_BODY_BYTES must be positive")
	}
	return nil
}

func envStr(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultVal
}

func envBool(key string, defaultVal bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultVal
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}
