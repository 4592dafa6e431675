package main

import (
	"bytes"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/beaconmap/beaconmap-go/internal/config"
	"github.com/beaconmap/beaconmap-go/internal/logging"
	"github.com/beaconmap/beaconmap-go/internal/testutil"
	"github.com/beaconmap/beaconmap-go/internal/theme"
)

// resetFlags restores every flag variable to its default
func resetFlags() {
	host, port, deviceID, logLevel = "", 0, "", ""
	lat, lon, zoom = 0, 0, 0
	themeName, listThemes, exportDir = "", false, ""
	transport, metricsAddr, floorPlan = "", "", ""
	exportFormat, exportOut = "csv", ""
	snapWidth, snapHeight, snapFit, snapHTML, snapColor = 80, 24, true, "", false
}

// setupCLI isolates config and flags for one test
func setupCLI(t *testing.T) {
	t.Helper()
	oldDir := config.ConfigDir
	config.SetConfigDir(t.TempDir())
	resetFlags()
	t.Cleanup(func() {
		config.SetConfigDir(oldDir)
		resetFlags()
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
	})
}

// executeCommand runs the root command with args and returns the output
func executeCommand(args ...string) (string, error) {
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

// serverArgs returns --host/--port flags for srv
func serverArgs(srv *testutil.MockServer) []string {
	h, p := srv.HostPort()
	return []string{"--host", h, "--port", strconv.Itoa(p)}
}

func TestListThemes(t *testing.T) {
	setupCLI(t)

	out, err := executeCommand("--list-themes")
	if err != nil {
		t.Fatalf("--list-themes failed: %v", err)
	}
	if !strings.Contains(out, "Available Themes:") {
		t.Error("Expected themes header")
	}
	for _, name := range theme.List() {
		if !strings.Contains(out, name) {
			t.Errorf("Expected theme %q in output", name)
		}
	}
}

func TestApplyOverrides(t *testing.T) {
	setupCLI(t)
	host, port, deviceID = "backend.local", 9000, "phone-3"
	lat, lon, zoom = 54.9, 82.7, 17
	themeName, transport, logLevel = "night", "websocket", "debug"
	metricsAddr = ":9999"
	exportDir = "exports"
	floorPlan = "plan.geojson"

	cfg := config.DefaultConfig()
	applyOverrides(cfg)

	if cfg.Connection.Host != "backend.local" || cfg.Connection.Port != 9000 {
		t.Errorf("Connection not overridden: %+v", cfg.Connection)
	}
	if cfg.Tracking.DeviceID != "phone-3" {
		t.Errorf("Device = %q", cfg.Tracking.DeviceID)
	}
	if cfg.Map.CenterLat != 54.9 || cfg.Map.CenterLon != 82.7 || cfg.Map.Zoom != 17 {
		t.Errorf("Map not overridden: %+v", cfg.Map)
	}
	if cfg.Display.Theme != "night" || cfg.Connection.Transport != "websocket" || cfg.Logging.Level != "debug" {
		t.Error("Theme, transport or log level not overridden")
	}
	if !cfg.Metrics.Enabled || cfg.Metrics.Addr != ":9999" {
		t.Errorf("Metrics not enabled: %+v", cfg.Metrics)
	}
	if !filepath.IsAbs(cfg.Export.Directory) || !filepath.IsAbs(cfg.Map.FloorPlan) {
		t.Error("Paths should be made absolute")
	}
}

func TestApplyOverrides_NoFlags(t *testing.T) {
	setupCLI(t)
	cfg := config.DefaultConfig()
	want := *cfg
	applyOverrides(cfg)
	if *cfg != want {
		t.Error("No flags should leave the config untouched")
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	setupCLI(t)
	transport = "carrier-pigeon"
	if _, err := loadConfig(); err == nil || !strings.Contains(err.Error(), "connection.transport") {
		t.Errorf("Expected transport validation error, got %v", err)
	}
}

func TestLoadFloorPlan(t *testing.T) {
	setupCLI(t)
	cfg := config.DefaultConfig()
	logger := logging.Discard()

	if loadFloorPlan(cfg, logger) != nil {
		t.Error("No plan configured should give nil")
	}

	cfg.Map.FloorPlan = filepath.Join(t.TempDir(), "missing.geojson")
	if loadFloorPlan(cfg, logger) != nil {
		t.Error("Unreadable plan should give nil")
	}

	cfg.Map.FloorPlan = testutil.WriteFile(t, "plan.geojson", `{
		"type": "FeatureCollection",
		"features": [{
			"type": "Feature",
			"properties": {"name": "Hall"},
			"geometry": {"type": "LineString", "coordinates": [[82.70, 54.90], [82.75, 54.90]]}
		}]
	}`)
	if loadFloorPlan(cfg, logger) == nil {
		t.Error("Expected the plan to load")
	}
}

func TestRun_InvalidConfig(t *testing.T) {
	setupCLI(t)
	if _, err := executeCommand("--transport", "smoke-signals"); err == nil {
		t.Error("Expected an error for an invalid transport")
	}
}
