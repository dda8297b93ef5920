package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault_Valid(t *testing.T) {
	if _, err := Load(""); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.SupportedYear != 2023 || cfg.WindowMinutes != 10 || cfg.MinRefreshSeconds != 300 {
		t.Errorf("defaults not applied: %+v", cfg)
	}
	if len(cfg.LiveRouteIDs) == 0 || len(cfg.LiveStopIDs) == 0 {
		t.Error("default allow-lists should not be empty")
	}
}

func TestLoad_FileOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "uqbus.yml")
	content := "static_dir: /srv/gtfs\nsupported_year: 2024\nwindow_minutes: 15\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.StaticDir != "/srv/gtfs" {
		t.Errorf("static_dir = %q", cfg.StaticDir)
	}
	if cfg.SupportedYear != 2024 || cfg.WindowMinutes != 15 {
		t.Errorf("overrides not applied: year=%d window=%d", cfg.SupportedYear, cfg.WindowMinutes)
	}
	// Untouched keys keep their defaults.
	if cfg.MinRefreshSeconds != 300 {
		t.Errorf("min_refresh_seconds = %d, want default 300", cfg.MinRefreshSeconds)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("UQBUS_STATIC_DIR", "/env/static")
	t.Setenv("UQBUS_SUPPORTED_YEAR", "2025")

	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.StaticDir != "/env/static" {
		t.Errorf("static_dir = %q", cfg.StaticDir)
	}
	if cfg.SupportedYear != 2025 {
		t.Errorf("supported_year = %d", cfg.SupportedYear)
	}
}

func TestLoad_BadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "uqbus.yml")
	if err := os.WriteFile(path, []byte("static_dir: [unterminated"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("want error for malformed YAML")
	}
}

func TestLoad_ValidationFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "uqbus.yml")
	// Explicitly blanking a required key must fail validation.
	if err := os.WriteFile(path, []byte(`feed_base_url: "not a url"`), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("want validation error for non-URL feed_base_url")
	}
}
