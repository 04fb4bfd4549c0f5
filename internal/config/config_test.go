package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	t.Run("defaults applied", func(t *testing.T) {
		path := writeConfig(t, `
database:
  url: postgres://localhost/drobe
redis:
  url: localhost:6379
ai:
  gemini_key: test-key
`)
		cfg, err := LoadConfig(path, true)
		if err != nil {
			t.Fatalf("LoadConfig: %v", err)
		}
		if cfg.Server.Port != 8000 {
			t.Fatalf("port = %d", cfg.Server.Port)
		}
		if cfg.AI.Model != DefaultModel || cfg.AI.Voice != "Kore" {
			t.Fatalf("ai = %+v", cfg.AI)
		}
		if cfg.AI.CompressionTriggerTokens != 25600 || cfg.AI.CompressionTargetTokens != 12800 {
			t.Fatalf("compression = %d/%d", cfg.AI.CompressionTriggerTokens, cfg.AI.CompressionTargetTokens)
		}
		if cfg.Relay.StartTimeout != 15*time.Second || cfg.Relay.DrainStopTimeout != 5*time.Second {
			t.Fatalf("relay = %+v", cfg.Relay)
		}
		if cfg.Cleanup.IdleDays != 30 {
			t.Fatalf("cleanup = %+v", cfg.Cleanup)
		}
		if !cfg.Runtime.Dev {
			t.Fatal("dev flag not carried")
		}
	})

	t.Run("explicit values win", func(t *testing.T) {
		path := writeConfig(t, `
server:
  port: 9090
database:
  url: postgres://localhost/drobe
redis:
  url: localhost:6379
ai:
  gemini_key: test-key
  voice: Puck
relay:
  start_timeout: 3s
`)
		cfg, err := LoadConfig(path, false)
		if err != nil {
			t.Fatalf("LoadConfig: %v", err)
		}
		if cfg.Server.Port != 9090 || cfg.AI.Voice != "Puck" || cfg.Relay.StartTimeout != 3*time.Second {
			t.Fatalf("cfg = %+v", cfg)
		}
	})

	t.Run("missing required fields", func(t *testing.T) {
		cases := map[string]string{
			"database": "redis:\n  url: localhost:6379\nai:\n  gemini_key: k\n",
			"redis":    "database:\n  url: postgres://x\nai:\n  gemini_key: k\n",
			"ai key":   "database:\n  url: postgres://x\nredis:\n  url: localhost:6379\n",
		}
		for name, body := range cases {
			if _, err := LoadConfig(writeConfig(t, body), false); err == nil {
				t.Fatalf("%s: expected error", name)
			}
		}
	})

	t.Run("missing file", func(t *testing.T) {
		if _, err := LoadConfig("does-not-exist.yaml", false); err == nil {
			t.Fatal("expected error")
		}
	})
}
