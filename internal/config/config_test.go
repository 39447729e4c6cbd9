package config

import (
	"os"
	"testing"
	"time"
)

func TestLoadDefaultsAndNestedKeys(t *testing.T) {
	t.Setenv("DATABASE_URL", "file::memory:")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("S3_BUCKET", "invoices")
	t.Setenv("SMTP_HOST", "smtp.example.com")
	t.Setenv("TWILIO_ACCOUNT_SID", "AC123")
	t.Setenv("CLIENT_URL", "")
	t.Setenv("TWILIO_AUTH_TOKEN", "")
	t.Setenv("ALLOWED_ORIGINS", "https://app.itsdone.dev,https://staging.itsdone.dev")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Port != "3000" || cfg.DBDriver != "postgres" || cfg.JWTTTL != 168*time.Hour {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.DefaultAlertThreshold != 40 || cfg.ThresholdSweepInterval != time.Hour || cfg.RateLimitPerMinute != 20 {
		t.Fatalf("unexpected threshold defaults %+v", cfg)
	}
	if !cfg.S3.Enabled() || cfg.S3.Region != "us-east-1" {
		t.Fatalf("S3 config not decoded: %+v", cfg.S3)
	}
	if !cfg.SMTP.Enabled() || cfg.SMTP.Port != 587 {
		t.Fatalf("SMTP config not decoded: %+v", cfg.SMTP)
	}
	if cfg.Twilio.Enabled() {
		t.Fatalf("twilio enabled without token and sender")
	}
	if origins := cfg.Origins(); len(origins) != 4 {
		t.Fatalf("origins %v", origins)
	}
}

func TestLoadRequiresSecrets(t *testing.T) {
	// register restores before unsetting
	t.Setenv("DATABASE_URL", "")
	t.Setenv("JWT_SECRET", "")
	os.Unsetenv("DATABASE_URL")
	os.Unsetenv("JWT_SECRET")

	if _, err := Load(); err == nil {
		t.Fatalf("expected missing DATABASE_URL and JWT_SECRET to fail")
	}
}
