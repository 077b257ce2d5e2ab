package config

import (
	"strings"
	"testing"
	"time"

	_ "time/tzdata"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("ENV", "development")
	t.Setenv("JWT_SECRET", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != 3000 {
		t.Errorf("expected port 3000, got %d", cfg.Port)
	}
	if cfg.Auth.TokenTTL != time.Hour || cfg.Auth.ResetTokenTTL != time.Hour {
		t.Errorf("unexpected TTLs %v/%v", cfg.Auth.TokenTTL, cfg.Auth.ResetTokenTTL)
	}
	if cfg.Upload.MaxSize != 5*1024*1024 {
		t.Errorf("expected 5 MB upload limit, got %d", cfg.Upload.MaxSize)
	}
	if cfg.Jobs.DailyHour != 12 || cfg.Jobs.Location.String() != "Asia/Kolkata" {
		t.Errorf("unexpected job schedule %d %v", cfg.Jobs.DailyHour, cfg.Jobs.Location)
	}
	if cfg.Auth.JWTSecret == "" {
		t.Error("development must fall back to a dev secret")
	}
	if cfg.Mail.Enabled() {
		t.Error("mail must be disabled without SMTP_HOST")
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("JWT_TTL", "3h")
	t.Setenv("SMTP_HOST", "mail.example.com")
	t.Setenv("SMTP_ENCRYPTION", "SSL")
	t.Setenv("DAILY_JOB_TIMEZONE", "UTC")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != 8080 || cfg.Auth.TokenTTL != 3*time.Hour {
		t.Errorf("overrides not applied: port=%d ttl=%v", cfg.Port, cfg.Auth.TokenTTL)
	}
	if !cfg.Mail.Enabled() || cfg.Mail.Encryption != "ssl" {
		t.Errorf("unexpected mail config %+v", cfg.Mail)
	}
	if cfg.Jobs.Location != time.UTC {
		t.Errorf("expected UTC, got %v", cfg.Jobs.Location)
	}
}

func TestLoad_ProductionRequiresStrongSecret(t *testing.T) {
	t.Setenv("ENV", "production")

	t.Setenv("JWT_SECRET", "")
	if _, err := Load(); err == nil {
		t.Error("expected error for missing secret")
	}

	t.Setenv("JWT_SECRET", "short")
	if _, err := Load(); err == nil {
		t.Error("expected error for short secret")
	}

	t.Setenv("JWT_SECRET", strings.Repeat("k", 32))
	if _, err := Load(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestLoad_InvalidSchedule(t *testing.T) {
	t.Setenv("DAILY_JOB_HOUR", "24")
	if _, err := Load(); err == nil {
		t.Error("expected error for hour 24")
	}

	t.Setenv("DAILY_JOB_HOUR", "12")
	t.Setenv("DAILY_JOB_TIMEZONE", "Mars/Olympus")
	if _, err := Load(); err == nil {
		t.Error("expected error for unknown time zone")
	}
}

func TestDSN(t *testing.T) {
	d := DatabaseConfig{Host: "db", User: "u", Password: "p@ss:word", Name: "events"}
	dsn := d.DSN()
	for _, want := range []string{"tcp(db:3306)", "/events", "parseTime=true", "clientFoundRows=true"} {
		if !strings.Contains(dsn, want) {
			t.Errorf("DSN %q missing %q", dsn, want)
		}
	}

	d.dsnOverride = "root@tcp(x:1)/y"
	if d.DSN() != "root@tcp(x:1)/y" {
		t.Error("DATABASE_URL must win")
	}
}
