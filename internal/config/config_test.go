package config

import (
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"APP_NAME", "APP_ENV", "LOG_LEVEL", "LOG_FILE", "API_URL", "NEXT_PUBLIC_API_URL", "OUTPUT_FORMAT",
		"PUBLISHERS_FILE", "STORAGE_TYPE", "BBOLT_PATH", "SESSION_TTL_SECONDS", "STORAGE_CLEANUP_INTERVAL_SECONDS",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.APIURL != "http://localhost:8000" {
		t.Fatalf("APIURL = %s", cfg.APIURL)
	}
	if cfg.OutputFormat != OutputText || cfg.StorageType != "bbolt" {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.SessionTTL != 24*time.Hour || cfg.StorageCleanupInterval != time.Hour {
		t.Fatalf("unexpected durations ttl=%s cleanup=%s", cfg.SessionTTL, cfg.StorageCleanupInterval)
	}
}

func TestLoadAPIURLFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("API_URL", "https://analytics.example.com/")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.APIURL != "https://analytics.example.com" {
		t.Fatalf("APIURL = %s", cfg.APIURL)
	}
}

func TestLoadFallsBackToFrontendVariable(t *testing.T) {
	clearEnv(t)
	t.Setenv("NEXT_PUBLIC_API_URL", "http://backend:8000")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.APIURL != "http://backend:8000" {
		t.Fatalf("APIURL = %s", cfg.APIURL)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"API_URL":             "localhost:8000",
		"OUTPUT_FORMAT":       "xml",
		"SESSION_TTL_SECONDS": "-5",
	}
	for key, val := range cases {
		t.Run(key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(key, val)
			if _, err := Load(); err == nil {
				t.Fatalf("expected error for %s=%s", key, val)
			}
		})
	}
}

func TestValidateAfterOverride(t *testing.T) {
	cfg := &Config{
		APIURL:                "http://localhost:8000",
		OutputFormat:          "JSON",
		SessionTTLSeconds:     60,
		StorageCleanupSeconds: 30,
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if cfg.OutputFormat != OutputJSON || cfg.SessionTTL != time.Minute {
		t.Fatalf("unexpected normalized config %+v", cfg)
	}
}
