package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"mandi/internal/locale"
	"mandi/internal/persona"
)

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("MANDI_LOCALE", "")
	t.Setenv("MANDI_ROLE", "")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.HasAI() {
		t.Fatal("hosted model should be off without an api key")
	}
	if cfg.Locale != locale.Hindi || cfg.Role != persona.RoleBuyer {
		t.Fatalf("unexpected defaults: %s %s", cfg.Locale, cfg.Role)
	}
	if cfg.LowPriceRatio != 0.10 || cfg.TotalTolerance != 0.15 {
		t.Fatalf("unexpected safety defaults: %v %v", cfg.LowPriceRatio, cfg.TotalTolerance)
	}
	if cfg.AITimeout != 20*time.Second || cfg.PriceCacheTTL != time.Hour {
		t.Fatalf("unexpected timeouts: %s %s", cfg.AITimeout, cfg.PriceCacheTTL)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Fatalf("unexpected log level: %s", cfg.LogLevel)
	}
}

func TestFromEnvSuccess(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "test-key")
	t.Setenv("OPENAI_BASE_URL", "https://example.com")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.APIKey != "test-key" || !cfg.HasAI() {
		t.Fatalf("unexpected api key: %s", cfg.APIKey)
	}
	if cfg.BaseURL != "https://example.com" {
		t.Fatalf("unexpected base url: %s", cfg.BaseURL)
	}
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("OPENAI_MODEL", "gpt-5-mini")
	t.Setenv("OPENAI_REQUEST_TIMEOUT", "90s")
	t.Setenv("OPENAI_API_MAX_RETRIES", "5")
	t.Setenv("MANDI_LOCALE", "ta-IN")
	t.Setenv("MANDI_ROLE", "farmer")
	t.Setenv("MANDI_SEED", "42")
	t.Setenv("MANDI_LOW_PRICE_RATIO", "0.2")
	t.Setenv("MANDI_TOTAL_TOLERANCE", "0.12")
	t.Setenv("MANDI_AI_TIMEOUT", "5s")
	t.Setenv("MANDI_PRICE_CACHE_TTL", "10m")
	t.Setenv("MANDI_MYSQL_DSN", "u:p@tcp(db:3306)/mandi")
	t.Setenv("MANDI_DEAL_DIR", "/tmp/deals")
	t.Setenv("MANDI_LOG_LEVEL", "debug")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Model != "gpt-5-mini" {
		t.Fatalf("unexpected model: %s", cfg.Model)
	}
	if cfg.RequestTimeout != 90*time.Second || cfg.APIMaxRetries != 5 {
		t.Fatalf("unexpected client settings: %s %d", cfg.RequestTimeout, cfg.APIMaxRetries)
	}
	if cfg.Locale != locale.Tamil {
		t.Fatalf("unexpected locale: %s", cfg.Locale)
	}
	if cfg.Role != persona.RoleSeller {
		t.Fatalf("unexpected role: %s", cfg.Role)
	}
	if cfg.Seed != 42 {
		t.Fatalf("unexpected seed: %d", cfg.Seed)
	}
	if cfg.LowPriceRatio != 0.2 || cfg.TotalTolerance != 0.12 {
		t.Fatalf("unexpected safety settings: %v %v", cfg.LowPriceRatio, cfg.TotalTolerance)
	}
	if cfg.AITimeout != 5*time.Second || cfg.PriceCacheTTL != 10*time.Minute {
		t.Fatalf("unexpected durations: %s %s", cfg.AITimeout, cfg.PriceCacheTTL)
	}
	if cfg.MySQLDSN != "u:p@tcp(db:3306)/mandi" || cfg.DealDir != "/tmp/deals" {
		t.Fatalf("unexpected storage settings: %s %s", cfg.MySQLDSN, cfg.DealDir)
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Fatalf("unexpected log level: %s", cfg.LogLevel)
	}
}

func TestFromEnvInvalidOverride(t *testing.T) {
	tests := map[string]string{
		"OPENAI_REQUEST_TIMEOUT": "soon",
		"OPENAI_API_MAX_RETRIES": "-1",
		"MANDI_SEED":             "abc",
		"MANDI_LOW_PRICE_RATIO":  "1.5",
		"MANDI_TOTAL_TOLERANCE":  "0.5",
		"MANDI_AI_TIMEOUT":       "0s",
		"MANDI_ROLE":             "broker",
		"MANDI_LOG_LEVEL":        "loud",
	}
	for env, value := range tests {
		t.Run(env, func(t *testing.T) {
			t.Setenv(env, value)
			_, err := FromEnv()
			if err == nil {
				t.Fatalf("expected error for %s=%s", env, value)
			}
			if !strings.Contains(err.Error(), env) {
				t.Fatalf("error should name %s: %v", env, err)
			}
		})
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("MANDI_LOCALE=bn\nMANDI_SEED=7\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("MANDI_LOCALE", "")
	t.Setenv("MANDI_SEED", "9")
	// godotenv only fills variables that are unset.
	os.Unsetenv("MANDI_LOCALE")

	if err := LoadDotEnv(filepath.Join(dir, "missing.env"), path); err != nil {
		t.Fatalf("load failed: %v", err)
	}
	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Locale != locale.Bengali {
		t.Fatalf("expected locale from .env, got %s", cfg.Locale)
	}
	if cfg.Seed != 9 {
		t.Fatalf("existing variables must win over .env, got %d", cfg.Seed)
	}
}
