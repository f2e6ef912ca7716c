package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("ENV", "")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("SMS_PROVIDER", "")
	cfg := Load()
	if cfg.Port != "8080" {
		t.Fatalf("expected default port, got %s", cfg.Port)
	}
	if cfg.Env != "development" {
		t.Fatalf("expected default env, got %s", cfg.Env)
	}
	if cfg.SMSProvider != "log" {
		t.Fatalf("expected default sms provider log, got %s", cfg.SMSProvider)
	}
	if cfg.TemplateCacheSize != 512 {
		t.Fatalf("expected default template cache size, got %d", cfg.TemplateCacheSize)
	}
	if cfg.TemplateTTL != 10*time.Minute {
		t.Fatalf("expected default template record TTL, got %s", cfg.TemplateTTL)
	}
	if cfg.BroadcastJobsTable != "broadcast_jobs" {
		t.Fatalf("expected default jobs table, got %s", cfg.BroadcastJobsTable)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("ENV", "production")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("DATABASE_URL", "postgres://user@host/db")
	t.Setenv("TEMPLATE_CACHE_SIZE", "64")
	t.Setenv("TEMPLATE_RECORD_TTL", "30m")
	t.Setenv("SMS_PROVIDER", "Sparrow")
	t.Setenv("SPARROW_SMS_TOKEN", "tok_123")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://app.sampark.io, https://admin.sampark.io")
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
	if cfg.TemplateCacheSize != 64 {
		t.Fatalf("expected cache size override, got %d", cfg.TemplateCacheSize)
	}
	if cfg.TemplateTTL != 30*time.Minute {
		t.Fatalf("expected TTL override, got %s", cfg.TemplateTTL)
	}
	if cfg.SMSProvider != "sparrow" {
		t.Fatalf("expected lowered sms provider, got %s", cfg.SMSProvider)
	}
	if cfg.SparrowToken != "tok_123" {
		t.Fatalf("expected sparrow token override, got %s", cfg.SparrowToken)
	}
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[1] != "https://admin.sampark.io" {
		t.Fatalf("expected trimmed CORS origins, got %v", cfg.CORSAllowedOrigins)
	}
}
