package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("DATABASE_URL", "postgres://localhost/ledger")
	t.Setenv("LOG_LEVEL", "debug")

	cfg := Load()
	if cfg.Port != "9090" {
		t.Errorf("Port = %q, want 9090", cfg.Port)
	}
	if cfg.DatabaseURL != "postgres://localhost/ledger" {
		t.Errorf("DatabaseURL = %q", cfg.DatabaseURL)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
	}
}

func TestGetEnvFallback(t *testing.T) {
	if got := getEnv("LEDGERKIT_UNSET_KEY", "fallback"); got != "fallback" {
		t.Errorf("getEnv = %q, want fallback", got)
	}
	t.Setenv("LEDGERKIT_SET_KEY", "value")
	if got := getEnv("LEDGERKIT_SET_KEY", "fallback"); got != "value" {
		t.Errorf("getEnv = %q, want value", got)
	}
}
