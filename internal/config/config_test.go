package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	raw := `
server:
  port: "9090"
auth:
  secret: from-file
session:
  code_length: 8
  idle_ttl: 30m
  question_timeout: 20s
  hide_correct: true
`
	if err := os.WriteFile(path, []byte(raw), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != "9090" || cfg.Session.CodeLength != 8 || !cfg.Session.HideCorrect {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.Auth.Secret != "from-file" {
		t.Fatalf("expected secret from file, got %q", cfg.Auth.Secret)
	}
	if got := TTLDuration(cfg.Session.QuestionTimeout, 0); got != 20*time.Second {
		t.Fatalf("expected 20s question timeout, got %s", got)
	}

	t.Setenv("AUTH_SECRET", "from-env")
	cfg, err = Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Auth.Secret != "from-env" {
		t.Fatalf("expected env secret override, got %q", cfg.Auth.Secret)
	}
}

func TestTTLDuration(t *testing.T) {
	if got := TTLDuration("", time.Minute); got != time.Minute {
		t.Fatalf("expected fallback for empty, got %s", got)
	}
	if got := TTLDuration("nonsense", time.Minute); got != time.Minute {
		t.Fatalf("expected fallback for invalid, got %s", got)
	}
	if got := TTLDuration("90s", time.Minute); got != 90*time.Second {
		t.Fatalf("expected 90s, got %s", got)
	}
}
