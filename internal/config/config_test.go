package config

import (
	"testing"
	"time"
)

func TestLoadDevelopmentDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("REDIS_URL", "")
	t.Setenv("SESSION_BACKEND", "")
	t.Setenv("IVR_DEMO_BYPASS", "")
	t.Setenv("PORT", "")
	t.Setenv("BASE_URL", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "3001" || cfg.BaseURL != "http://localhost:3001" {
		t.Fatalf("unexpected listen settings %q %q", cfg.Port, cfg.BaseURL)
	}
	if cfg.SessionBackend != SessionBackendMemory {
		t.Fatalf("expected memory sessions without redis, got %q", cfg.SessionBackend)
	}
	if cfg.DemoPIN != "" {
		t.Fatalf("expected bypass disabled by default")
	}
	if cfg.RecipientCodeLength != 8 || cfg.SessionTTL != 0 {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
}

func TestLoadRequiresStoresOutsideDevelopment(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("SESSION_BACKEND", "")
	t.Setenv("IVR_DEMO_BYPASS", "")

	if _, err := Load(); err == nil {
		t.Fatalf("expected missing DATABASE_URL to fail")
	}
}

func TestDemoBypassRefusedInProduction(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("DATABASE_URL", "postgres://localhost/ivr")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("SESSION_BACKEND", "")
	t.Setenv("IVR_DEMO_BYPASS", "true")

	if _, err := Load(); err == nil {
		t.Fatalf("expected bypass to be refused in production")
	}
}

func TestDemoBypassAndOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "staging")
	t.Setenv("DATABASE_URL", "postgres://localhost/ivr")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("SESSION_BACKEND", "badger")
	t.Setenv("IVR_DEMO_BYPASS", "1")
	t.Setenv("IVR_DEMO_PIN", "909")
	t.Setenv("SESSION_TTL", "30m")
	t.Setenv("IDEMPOTENCY_TTL_SECONDS", "60")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DemoPIN != "909" {
		t.Fatalf("expected demo pin 909, got %q", cfg.DemoPIN)
	}
	if cfg.SessionBackend != SessionBackendBadger || cfg.SessionTTL != 30*time.Minute {
		t.Fatalf("unexpected session settings %q %v", cfg.SessionBackend, cfg.SessionTTL)
	}
	if cfg.IdempotencyTTL != time.Minute {
		t.Fatalf("expected idempotency ttl 1m, got %v", cfg.IdempotencyTTL)
	}
}

func TestLoadRejectsUnknownBackend(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("SESSION_BACKEND", "etcd")
	t.Setenv("IVR_DEMO_BYPASS", "")

	if _, err := Load(); err == nil {
		t.Fatalf("expected unknown backend to fail")
	}
}
