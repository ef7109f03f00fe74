package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseDefaultConfig(t *testing.T) {
	cfg, err := parse(DefaultConfigYAML)
	if err != nil {
		t.Fatalf("failed to parse default config: %v", err)
	}

	if !cfg.Sources.HackerNews.Enabled {
		t.Error("expected hackernews enabled by default")
	}
	if len(cfg.Sources.RSS.Feeds) == 0 {
		t.Error("expected default RSS feeds to be populated")
	}
	if cfg.Digest.Title != "Morning Byte" {
		t.Errorf("expected title 'Morning Byte', got %q", cfg.Digest.Title)
	}
	if cfg.Delivery.SMTP.Port != 587 {
		t.Errorf("expected SMTP port 587, got %d", cfg.Delivery.SMTP.Port)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestParseMinimalConfig(t *testing.T) {
	data := []byte(`
sources:
  reddit:
    enabled: false
digest:
  title: Evening Byte
fetch:
  timeout_seconds: 5
`)
	cfg, err := parse(data)
	if err != nil {
		t.Fatalf("failed to parse minimal config: %v", err)
	}

	if cfg.Sources.Reddit.Enabled {
		t.Error("expected reddit disabled")
	}
	if cfg.Digest.Title != "Evening Byte" {
		t.Errorf("expected overridden title, got %q", cfg.Digest.Title)
	}
	// Defaults should still be set for unspecified fields
	if !cfg.Sources.Lobsters.Enabled {
		t.Error("expected lobsters to keep its default")
	}
	if cfg.AdapterTimeout().Seconds() != 5 {
		t.Errorf("expected 5s adapter timeout, got %v", cfg.AdapterTimeout())
	}
}

func TestValidateNoSources(t *testing.T) {
	data := []byte(`
sources:
  hackernews: {enabled: false}
  reddit: {enabled: false}
  lobsters: {enabled: false}
  devto: {enabled: false}
  rss: {enabled: false}
`)
	cfg, err := parse(data)
	if err != nil {
		t.Fatalf("failed to parse: %v", err)
	}
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error with no sources enabled")
	}
}

func TestEnabledOrder(t *testing.T) {
	cfg, err := parse(DefaultConfigYAML)
	if err != nil {
		t.Fatalf("failed to parse: %v", err)
	}
	enabled := cfg.Enabled()
	if len(enabled) != 5 {
		t.Fatalf("expected 5 enabled sources, got %d", len(enabled))
	}
	if enabled[0].MaxItems != cfg.Sources.HackerNews.MaxItems {
		t.Error("expected hackernews first in section order")
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, DefaultConfigYAML, 0o644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if len(cfg.Sources.RSS.Feeds) == 0 {
		t.Error("expected feeds to be populated from file")
	}
}

func TestGetDataDir(t *testing.T) {
	cfg := &Config{}
	if cfg.GetDataDir() == "" {
		t.Error("expected non-empty default data dir")
	}

	cfg.Output.DataDir = "/custom/path"
	if cfg.GetDataDir() != "/custom/path" {
		t.Errorf("expected '/custom/path', got %q", cfg.GetDataDir())
	}
}
