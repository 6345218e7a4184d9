package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("PORT", "")
	t.Setenv("PASS_TTL", "")

	cfg := Load()
	if cfg.Port != "8080" {
		t.Fatalf("expected default port 8080, got %s", cfg.Port)
	}
	if cfg.PassTTL != 24*time.Hour {
		t.Fatalf("expected default pass ttl 24h, got %v", cfg.PassTTL)
	}
	if cfg.DBDriver != "sqlite" {
		t.Fatalf("expected sqlite driver, got %s", cfg.DBDriver)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := "port: \"9000\"\npass_ttl: 2h\nmail_timeout: 3s\napi_keys:\n  - gate-a\n  - gate-b\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("PORT", "9100")
	t.Setenv("PASS_TTL", "")
	t.Setenv("API_KEYS", "")

	cfg := Load()
	if cfg.Port != "9100" {
		t.Fatalf("expected env port to win, got %s", cfg.Port)
	}
	if cfg.PassTTL != 2*time.Hour {
		t.Fatalf("expected file pass ttl 2h, got %v", cfg.PassTTL)
	}
	if cfg.MailTimeout != 3*time.Second {
		t.Fatalf("expected file mail timeout 3s, got %v", cfg.MailTimeout)
	}
	if len(cfg.APIKeys) != 2 || cfg.APIKeys[1] != "gate-b" {
		t.Fatalf("unexpected api keys %v", cfg.APIKeys)
	}
}

func TestGetStringSliceEnvTrims(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", " a:9092, ,b:9092 ")
	got := getStringSliceEnv("KAFKA_BROKERS", nil)
	if len(got) != 2 || got[0] != "a:9092" || got[1] != "b:9092" {
		t.Fatalf("unexpected brokers %v", got)
	}
}

func TestGetDurationEnvFallback(t *testing.T) {
	t.Setenv("MAIL_TIMEOUT", "not-a-duration")
	if got := getDurationEnv("MAIL_TIMEOUT", time.Second); got != time.Second {
		t.Fatalf("expected fallback, got %v", got)
	}
}
