package models

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigDefaultsWhenFileMissing(t *testing.T) {
	t.Setenv("OPENROUTER_API_KEY", "")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.ServerAddr != "127.0.0.1:8360" || cfg.GalleryDir != "./gallery" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.GenerateTimeoutSec != 300 {
		t.Fatalf("unexpected timeout: %d", cfg.GenerateTimeoutSec)
	}
	if cfg.APIKey != "" {
		t.Fatalf("api key should be empty, got %q", cfg.APIKey)
	}
}

func TestLoadConfigReadsFileAndEnv(t *testing.T) {
	t.Setenv("OPENROUTER_API_KEY", "sk-test")

	path := filepath.Join(t.TempDir(), "config.yaml")
	data := "server_addr: \"0.0.0.0:9000\"\ngallery_dir: \"/data/gallery\"\n"
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.ServerAddr != "0.0.0.0:9000" || cfg.GalleryDir != "/data/gallery" {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	// Unset fields keep their defaults.
	if cfg.Model == "" || cfg.OpenRouterBaseURL == "" {
		t.Fatalf("defaults lost: %+v", cfg)
	}
	if cfg.APIKey != "sk-test" {
		t.Fatalf("api key not read from env: %q", cfg.APIKey)
	}
}

func TestLoadConfigBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("server_addr: [unterminated"), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected yaml error")
	}
}
