package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("ENV", "")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("POS_LOADED_TTL", "")
	cfg := Load()
	if cfg.Port != "8080" {
		t.Fatalf("expected default port, got %s", cfg.Port)
	}
	if cfg.Env != "development" {
		t.Fatalf("expected default env, got %s", cfg.Env)
	}
	if cfg.POSLoadedTTL != 15*time.Minute {
		t.Fatalf("expected default loaded TTL, got %s", cfg.POSLoadedTTL)
	}
	if cfg.POSConfirmedTTL != 24*time.Hour {
		t.Fatalf("expected default confirmed TTL, got %s", cfg.POSConfirmedTTL)
	}
	if cfg.OutboxBatchSize != 50 {
		t.Fatalf("expected default outbox batch size, got %d", cfg.OutboxBatchSize)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("ENV", "production")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("DATABASE_URL", "postgres://user@host/db")
	t.Setenv("REPORTS_DSN", "postgres://user@replica/db")
	t.Setenv("POS_LOADED_TTL", "45m")
	t.Setenv("OUTBOX_BATCH_SIZE", "10")
	t.Setenv("DOCUMENTS_BUCKET", "clinic-docs")
	t.Setenv("EMAIL_PROVIDER", "ses")
	cfg := Load()
	if cfg.Port != "9090" {
		t.Fatalf("expected override port, got %s", cfg.Port)
	}
	if cfg.Env != "production" {
		t.Fatalf("expected env override, got %s", cfg.Env)
	}
	if cfg.DatabaseURL != "postgres://user@host/db" {
		t.Fatalf("expected db override, got %s", cfg.DatabaseURL)
	}
	if cfg.ReportsDSN != "postgres://user@replica/db" {
		t.Fatalf("expected reports dsn override, got %s", cfg.ReportsDSN)
	}
	if cfg.POSLoadedTTL != 45*time.Minute {
		t.Fatalf("expected loaded TTL override, got %s", cfg.POSLoadedTTL)
	}
	if cfg.OutboxBatchSize != 10 {
		t.Fatalf("expected outbox batch size override, got %d", cfg.OutboxBatchSize)
	}
	if cfg.DocumentsBucket != "clinic-docs" {
		t.Fatalf("expected documents bucket override, got %s", cfg.DocumentsBucket)
	}
	if cfg.EmailProvider != "ses" {
		t.Fatalf("expected email provider override, got %s", cfg.EmailProvider)
	}
}

func TestLoadCORSOrigins(t *testing.T) {
	t.Setenv("CORS_ALLOWED_ORIGINS", " https://desk.clinic.example , https://admin.clinic.example,,")
	cfg := Load()
	want := []string{"https://desk.clinic.example", "https://admin.clinic.example"}
	if len(cfg.CORSAllowedOrigins) != len(want) {
		t.Fatalf("expected %d origins, got %v", len(want), cfg.CORSAllowedOrigins)
	}
	for i, origin := range want {
		if cfg.CORSAllowedOrigins[i] != origin {
			t.Errorf("origin %d: expected %q, got %q", i, origin, cfg.CORSAllowedOrigins[i])
		}
	}
}

func TestLoadCORSOriginsUnset(t *testing.T) {
	t.Setenv("CORS_ALLOWED_ORIGINS", "")
	cfg := Load()
	if len(cfg.CORSAllowedOrigins) != 0 {
		t.Fatalf("expected no origins, got %v", cfg.CORSAllowedOrigins)
	}
}

func TestLoadBadDurationFallsBack(t *testing.T) {
	t.Setenv("POS_LOADED_TTL", "not-a-duration")
	cfg := Load()
	if cfg.POSLoadedTTL != 15*time.Minute {
		t.Fatalf("expected fallback TTL, got %s", cfg.POSLoadedTTL)
	}
}
