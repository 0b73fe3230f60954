package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/msalah0e/causa/internal/causal"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.API.Timeout.Duration != 10*time.Second {
		t.Errorf("expected timeout 10s, got %v", cfg.API.Timeout)
	}
	if cfg.API.CacheTTL.Duration != 30*time.Second {
		t.Errorf("expected cache ttl 30s, got %v", cfg.API.CacheTTL)
	}
	if cfg.Editor.StrictAcyclic {
		t.Error("default strict_acyclic should be false")
	}
	if cfg.LinkType() != causal.LinkConfirmed {
		t.Errorf("expected default link type confirmada, got %q", cfg.LinkType())
	}
	if !cfg.UI.Color {
		t.Error("default color should be true")
	}
	if !cfg.Log.Activity {
		t.Error("default activity log should be enabled")
	}
}

func TestConfigDir(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/test-xdg")
	if dir := ConfigDir(); dir != "/tmp/test-xdg/causa" {
		t.Errorf("expected /tmp/test-xdg/causa, got %q", dir)
	}

	t.Setenv("XDG_CONFIG_HOME", "")
	home, _ := os.UserHomeDir()
	expected := filepath.Join(home, ".config", "causa")
	if dir := ConfigDir(); dir != expected {
		t.Errorf("expected %q, got %q", expected, dir)
	}
}

func TestLoadMissing(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.API.BaseURL != Default().API.BaseURL {
		t.Errorf("expected default base url, got %q", cfg.API.BaseURL)
	}
}

func TestSaveAndLoad(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg := Default()
	cfg.API.BaseURL = "https://safety.example.com/api"
	cfg.API.Timeout = Duration{3 * time.Second}
	cfg.Editor.StrictAcyclic = true
	cfg.Editor.DefaultLinkType = "probable"

	if err := Save(cfg); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.API.BaseURL != "https://safety.example.com/api" {
		t.Errorf("unexpected base url %q", loaded.API.BaseURL)
	}
	if loaded.API.Timeout.Duration != 3*time.Second {
		t.Errorf("expected timeout 3s, got %v", loaded.API.Timeout)
	}
	if !loaded.Editor.StrictAcyclic {
		t.Error("expected strict_acyclic true after load")
	}
	if loaded.LinkType() != causal.LinkProbable {
		t.Errorf("expected link type probable, got %q", loaded.LinkType())
	}
}

func TestLoadMalformed(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", tmp)
	os.MkdirAll(filepath.Join(tmp, "causa"), 0o755)
	os.WriteFile(filepath.Join(tmp, "causa", "config.toml"), []byte("[api]\ntimeout = \"soon\"\n"), 0o644)

	cfg, err := Load()
	if err == nil {
		t.Fatal("expected parse error for bad duration")
	}
	if cfg == nil || cfg.API.Timeout.Duration != 10*time.Second {
		t.Error("expected defaults alongside the error")
	}
}

func TestEnsureExists(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", tmpDir)

	if err := EnsureExists(); err != nil {
		t.Fatalf("EnsureExists failed: %v", err)
	}

	path := filepath.Join(tmpDir, "causa", "config.toml")
	if _, err := os.Stat(path); err != nil {
		t.Errorf("config file not created: %v", err)
	}

	// Second call should be no-op
	if err := EnsureExists(); err != nil {
		t.Fatalf("EnsureExists second call failed: %v", err)
	}
}
