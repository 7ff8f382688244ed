package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestLoadCreatesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(cfg, DefaultConfig()) {
		t.Fatalf("Load() = %+v, want defaults", cfg)
	}
	fi, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := fi.Mode().Perm(); perm != 0o600 {
		t.Fatalf("perm = %o, want 600", perm)
	}
}

func TestLoadPartial(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte(`
log_level: debug
sensor:
  kind: static
display:
  driver: epd
  min_refresh_seconds: 0
render:
  band_policy: linear
  layout: banner
  scaling: stretch
`)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.LogLevel != "debug" || cfg.Sensor.Kind != "static" || cfg.Display.Driver != "epd" {
		t.Fatalf("explicit values lost: %+v", cfg)
	}
	if cfg.Render.BandPolicy != "linear" || cfg.Render.Layout != "banner" {
		t.Fatalf("render = %+v", cfg.Render)
	}
	// Unknown enum falls back, missing keys keep defaults.
	if cfg.Render.Scaling != "uniform" {
		t.Errorf("scaling = %q, want uniform", cfg.Render.Scaling)
	}
	if cfg.Display.Width != 296 || cfg.Display.Height != 128 || cfg.Sensor.RefreshHz != 1 {
		t.Errorf("defaults not kept: %+v", cfg.Display)
	}
	// Zero disables the refresh interval; only negative values are reset.
	if cfg.Display.MinRefreshSeconds != 0 {
		t.Errorf("min_refresh_seconds = %v, want 0", cfg.Display.MinRefreshSeconds)
	}
}

func TestLoadBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("sensor: [\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for malformed YAML")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := DefaultConfig()
	cfg.Render.Indexing = "legacy"
	cfg.Sensor.LEDPin = "GPIO13"
	if err := cfg.Save(path); err != nil {
		t.Fatal(err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, cfg) {
		t.Fatalf("Load() = %+v, want %+v", got, cfg)
	}
	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("%d files left in the config dir, want 1", len(entries))
	}
}

func TestNormalize(t *testing.T) {
	cfg := &Config{
		LogLevel: "verbose",
		Display:  DisplayConfig{MinRefreshSeconds: -1, MaxBusyPolls: -5},
		Render:   RenderConfig{TextPadding: -3, Indexing: "column-major"},
	}
	cfg.Normalize()
	def := DefaultConfig()
	if cfg.LogLevel != def.LogLevel {
		t.Errorf("log level = %q", cfg.LogLevel)
	}
	if cfg.Display.MinRefreshSeconds != def.Display.MinRefreshSeconds {
		t.Errorf("min refresh = %v", cfg.Display.MinRefreshSeconds)
	}
	if cfg.Display.MaxBusyPolls != def.Display.MaxBusyPolls {
		t.Errorf("max busy polls = %d", cfg.Display.MaxBusyPolls)
	}
	if cfg.Render.TextPadding != def.Render.TextPadding {
		t.Errorf("padding = %d", cfg.Render.TextPadding)
	}
	if cfg.Render.Indexing != "row-major" {
		t.Errorf("indexing = %q", cfg.Render.Indexing)
	}
}

func TestEmptyPath(t *testing.T) {
	if _, err := Load(""); err == nil {
		t.Error("Load: expected error for empty path")
	}
	if err := Save("", DefaultConfig()); err == nil {
		t.Error("Save: expected error for empty path")
	}
	if err := Save(filepath.Join(t.TempDir(), "c.yaml"), nil); err == nil {
		t.Error("Save: expected error for nil config")
	}
}
