package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"promptq/internal/config"
)

func TestDefaultValidates(t *testing.T) {
	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if exists {
		t.Fatal("expected exists=false for missing file")
	}
	if resolved != path {
		t.Fatalf("expected resolved path %q, got %q", path, resolved)
	}
	if cfg.Service.DefaultBranch != "master" {
		t.Fatalf("expected default branch master, got %q", cfg.Service.DefaultBranch)
	}
	if cfg.Segmenter.MinParagraphs != 2 {
		t.Fatalf("expected min_paragraphs 2, got %d", cfg.Segmenter.MinParagraphs)
	}
}

func TestLoadParsesAndNormalizes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := strings.Join([]string{
		"[paths]",
		`data_dir = "` + filepath.Join(dir, "data") + `"`,
		`log_dir = "` + filepath.Join(dir, "logs") + `"`,
		"[auth]",
		`owner_id = "  owner-1  "`,
		"[service]",
		`base_url = "https://tasks.example.com/api/"`,
		"request_timeout = 30",
	}, "\n")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !exists {
		t.Fatal("expected exists=true")
	}
	if cfg.Auth.OwnerID != "owner-1" {
		t.Fatalf("owner id not trimmed: %q", cfg.Auth.OwnerID)
	}
	if cfg.Service.BaseURL != "https://tasks.example.com/api" {
		t.Fatalf("base url not normalized: %q", cfg.Service.BaseURL)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"empty base url", func(c *config.Config) { c.Service.BaseURL = "" }},
		{"zero timeout", func(c *config.Config) { c.Service.RequestTimeout = 0 }},
		{"min paragraphs below 2", func(c *config.Config) { c.Segmenter.MinParagraphs = 1 }},
		{"negative pacing", func(c *config.Config) { c.Executor.PacingDelayMS = -1 }},
		{"bad log format", func(c *config.Config) { c.Logging.Format = "xml" }},
		{"zero notify timeout", func(c *config.Config) { c.Notifications.RequestTimeout = 0 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestEnsureDirectories(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(dir, "data")
	cfg.Paths.LogDir = filepath.Join(dir, "logs")
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, d := range []string{cfg.Paths.DataDir, cfg.Paths.LogDir} {
		info, err := os.Stat(d)
		if err != nil || !info.IsDir() {
			t.Fatalf("expected directory %q to exist", d)
		}
	}
}
