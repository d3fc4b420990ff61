package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	cfg, err := Load("does-not-exist.env")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.Port != "8080" {
		t.Errorf("expected default port 8080, got %q", cfg.Port)
	}
	if cfg.JWT.TTL != 72*time.Hour {
		t.Errorf("expected 72h token ttl, got %v", cfg.JWT.TTL)
	}
	if cfg.JWT.ResetTTL != 30*time.Minute {
		t.Errorf("expected 30m reset ttl, got %v", cfg.JWT.ResetTTL)
	}
	if cfg.RabbitMQ.Exchange != "job_topic" {
		t.Errorf("expected job_topic exchange, got %q", cfg.RabbitMQ.Exchange)
	}
	if cfg.Mail.Provider != "log" {
		t.Errorf("expected log mail provider, got %q", cfg.Mail.Provider)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("PORT", "9090")
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_NAME", "jobs")
	t.Setenv("APP_URL", "https://tradelink.example/")
	t.Setenv("MAIL_PROVIDER", "SMTP")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, ,https://b.example")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.Port != "9090" {
		t.Errorf("expected port 9090, got %q", cfg.Port)
	}
	if cfg.AppURL != "https://tradelink.example" {
		t.Errorf("expected trailing slash trimmed, got %q", cfg.AppURL)
	}
	if cfg.Mail.Provider != "smtp" {
		t.Errorf("expected provider lowercased, got %q", cfg.Mail.Provider)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "https://b.example" {
		t.Errorf("expected two trimmed origins, got %v", cfg.CORSOrigins)
	}
	want := "postgres://postgres:@db.internal:5432/jobs?sslmode=disable"
	if got := cfg.Database.DSN(); got != want {
		t.Errorf("expected dsn %q, got %q", want, got)
	}
}

func TestLoadRequiresSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected error when JWT_SECRET is empty")
	}
}

func TestLoadRejectsUnknownMailProvider(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("MAIL_PROVIDER", "pigeon")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for unknown mail provider")
	}
}
