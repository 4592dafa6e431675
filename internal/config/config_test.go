package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// useTempConfigDir points the package at a temp dir for one test
func useTempConfigDir(t *testing.T) string {
	t.Helper()
	oldDir := ConfigDir
	dir := filepath.Join(t.TempDir(), "beaconmap")
	SetConfigDir(dir)
	t.Cleanup(func() { SetConfigDir(oldDir) })
	return dir
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Display.Theme != "daylight" {
		t.Errorf("Display.Theme = %q, want %q", cfg.Display.Theme, "daylight")
	}
	if !cfg.Display.ShowGrid || !cfg.Display.ShowLabels || !cfg.Display.ShowTrack {
		t.Error("grid, labels and track should be shown by default")
	}
	if cfg.Map.CenterLat != 55.0084 || cfg.Map.CenterLon != 82.9357 {
		t.Errorf("Unexpected default center %v,%v", cfg.Map.CenterLat, cfg.Map.CenterLon)
	}
	if cfg.Map.Zoom != 13 {
		t.Errorf("Map.Zoom = %d, want 13", cfg.Map.Zoom)
	}
	if cfg.Connection.Port != 8000 || cfg.Connection.Transport != "rest" {
		t.Errorf("Unexpected connection defaults %+v", cfg.Connection)
	}
	if cfg.PollInterval() != time.Second {
		t.Errorf("PollInterval = %v, want 1s", cfg.PollInterval())
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoad_NoFile(t *testing.T) {
	useTempConfigDir(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Tracking.DeviceID != "tracker_1" {
		t.Errorf("Expected defaults, got device %q", cfg.Tracking.DeviceID)
	}
	if cfg.Grid.MaxLines != 512 {
		t.Errorf("Expected default max lines, got %d", cfg.Grid.MaxLines)
	}
}

func TestLoad_ValidFile(t *testing.T) {
	dir := useTempConfigDir(t)
	os.MkdirAll(dir, 0755)
	content := `{
		"display": {"theme": "night", "show_grid": false},
		"map": {"zoom": 16},
		"tracking": {"device_id": "phone-7", "ordering": "completion"}
	}`
	if err := os.WriteFile(ConfigFile, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Display.Theme != "night" || cfg.Display.ShowGrid {
		t.Errorf("Display not loaded: %+v", cfg.Display)
	}
	if cfg.Map.Zoom != 16 {
		t.Errorf("Map.Zoom = %d, want 16", cfg.Map.Zoom)
	}
	if cfg.Tracking.DeviceID != "phone-7" || cfg.Tracking.Ordering != "completion" {
		t.Errorf("Tracking not loaded: %+v", cfg.Tracking)
	}
	// untouched keys keep their defaults
	if cfg.Map.CenterLat != 55.0084 || !cfg.Display.ShowLabels {
		t.Error("Expected defaults for keys missing from the file")
	}
}

func TestLoad_InvalidJSON(t *testing.T) {
	dir := useTempConfigDir(t)
	os.MkdirAll(dir, 0755)
	os.WriteFile(ConfigFile, []byte("{not json"), 0644)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Display.Theme != "daylight" {
		t.Errorf("Expected defaults for invalid file, got theme %q", cfg.Display.Theme)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	useTempConfigDir(t)
	t.Setenv("BEACONMAP_CONNECTION_HOST", "backend.local")
	t.Setenv("BEACONMAP_MAP_ZOOM", "15")
	t.Setenv("BEACONMAP_DISPLAY_SHOW_GRID", "false")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Connection.Host != "backend.local" {
		t.Errorf("Host = %q, want backend.local", cfg.Connection.Host)
	}
	if cfg.Map.Zoom != 15 {
		t.Errorf("Zoom = %d, want 15", cfg.Map.Zoom)
	}
	if cfg.Display.ShowGrid {
		t.Error("Expected show_grid overridden to false")
	}
}

func TestSave_RoundTrip(t *testing.T) {
	dir := useTempConfigDir(t)

	cfg := DefaultConfig()
	cfg.Display.Theme = "amber"
	cfg.Tracking.DeviceID = "phone-9"
	cfg.Map.FloorPlan = "/tmp/floor.geojson"
	if err := Save(cfg); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "settings.json")); err != nil {
		t.Fatalf("settings file not written: %v", err)
	}

	data, _ := os.ReadFile(ConfigFile)
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("saved file is not JSON: %v", err)
	}
	if _, ok := raw["tracking"]; !ok {
		t.Error("Expected tracking section in saved file")
	}

	loaded, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Display.Theme != "amber" || loaded.Tracking.DeviceID != "phone-9" || loaded.Map.FloorPlan != "/tmp/floor.geojson" {
		t.Errorf("Round trip lost values: %+v", loaded)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"empty host", func(c *Config) { c.Connection.Host = "" }, "connection.host"},
		{"bad port", func(c *Config) { c.Connection.Port = 70000 }, "connection.port"},
		{"bad transport", func(c *Config) { c.Connection.Transport = "carrier-pigeon" }, "connection.transport"},
		{"no device", func(c *Config) { c.Tracking.DeviceID = "" }, "tracking.device_id"},
		{"zero interval", func(c *Config) { c.Tracking.PollIntervalMs = 0 }, "poll_interval_ms"},
		{"bad ordering", func(c *Config) { c.Tracking.Ordering = "random" }, "tracking.ordering"},
		{"zoom range", func(c *Config) { c.Map.MinZoom = 10; c.Map.MaxZoom = 5 }, "zoom range"},
		{"latitude", func(c *Config) { c.Map.CenterLat = 91 }, "center_lat"},
		{"step", func(c *Config) { c.Grid.BaseStep = 0 }, "grid.base_step"},
		{"metrics addr", func(c *Config) { c.Metrics.Enabled = true; c.Metrics.Addr = "" }, "metrics.addr"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("Expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q should mention %q", err, tt.want)
			}
		})
	}
}

func TestValidate_AggregatesProblems(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Connection.Host = ""
	cfg.Tracking.DeviceID = ""
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "connection.host") || !strings.Contains(err.Error(), "tracking.device_id") {
		t.Errorf("Expected both problems reported, got %v", err)
	}
}

func TestDerivedValues(t *testing.T) {
	useTempConfigDir(t)
	cfg := DefaultConfig()

	if got := cfg.APIBaseURL(); got != "http://localhost:8000/api/v1" {
		t.Errorf("APIBaseURL = %q", got)
	}
	if cfg.Timeout() != 5*time.Second {
		t.Errorf("Timeout = %v", cfg.Timeout())
	}
	opts := cfg.GridOptions()
	if opts.BaseStep != 0.01 || opts.ReferenceZoom != 13 || opts.Precision != 4 || opts.MaxLines != 512 {
		t.Errorf("Unexpected grid options %+v", opts)
	}
	if filepath.Base(cfg.LogFile()) != "beaconmap.log" {
		t.Errorf("Unexpected default log file %q", cfg.LogFile())
	}
	cfg.Logging.File = "/var/log/bm.log"
	if cfg.LogFile() != "/var/log/bm.log" {
		t.Error("Expected explicit log file")
	}
}
