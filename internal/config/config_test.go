package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != 8080 {
		t.Fatalf("expected default port 8080, got %d", cfg.Port)
	}
	if cfg.DatabasePath != "data/navigator.db" {
		t.Fatalf("unexpected default db path: %s", cfg.DatabasePath)
	}
	if cfg.ServiceName != "navigator" {
		t.Fatalf("unexpected default service name: %s", cfg.ServiceName)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("NAVIGATOR_PORT", "9090")
	t.Setenv("NAVIGATOR_DB_PATH", ":memory:")
	t.Setenv("NAVIGATOR_READ_TIMEOUT", "5s")
	t.Setenv("NAVIGATOR_RULES_PATH", "rules/rules.json")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != 9090 {
		t.Fatalf("expected port 9090, got %d", cfg.Port)
	}
	if cfg.DatabasePath != ":memory:" {
		t.Fatalf("unexpected db path: %s", cfg.DatabasePath)
	}
	if cfg.ReadTimeout != 5*time.Second {
		t.Fatalf("unexpected read timeout: %s", cfg.ReadTimeout)
	}
	if cfg.RulesPath != "rules/rules.json" {
		t.Fatalf("unexpected rules path: %s", cfg.RulesPath)
	}
}

func TestEnvIntIgnoresGarbage(t *testing.T) {
	t.Setenv("TEST_INT_BAD", "abc")
	if v := envInt("TEST_INT_BAD", 7); v != 7 {
		t.Fatalf("expected fallback 7, got %d", v)
	}
}

func TestValidateRejectsBadPort(t *testing.T) {
	cfg := Config{Port: -1, DatabasePath: ":memory:", MaxRequestBodyBytes: 1}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for negative port")
	}
}

func TestValidateRequiresDatabasePath(t *testing.T) {
	cfg := Config{Port: 8080, MaxRequestBodyBytes: 1}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for empty db path")
	}
}
