// Package main provides the entry point for the Beacon Map CLI application
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/beaconmap/beaconmap-go/internal/api"
	"github.com/beaconmap/beaconmap-go/internal/app"
	"github.com/beaconmap/beaconmap-go/internal/config"
	"github.com/beaconmap/beaconmap-go/internal/geo"
	"github.com/beaconmap/beaconmap-go/internal/logging"
	"github.com/beaconmap/beaconmap-go/internal/metrics"
	"github.com/beaconmap/beaconmap-go/internal/theme"
	"github.com/beaconmap/beaconmap-go/internal/ws"
)

var (
	host        string
	port        int
	deviceID    string
	logLevel    string
	lat         float64
	lon         float64
	zoom        int
	themeName   string
	listThemes  bool
	exportDir   string
	transport   string
	metricsAddr string
	floorPlan   string
)

var rootCmd = &cobra.Command{
	Use:   "beaconmap",
	Short: "Beacon Map - Live Indoor Positioning Display",
	Long: `Beacon Map - Live Indoor Positioning Display

Terminal map of beacons, the reference path and a live device track,
drawn under an adaptive coordinate grid.
Settings saved to ~/.config/beaconmap/settings.json

Export:
  [e] Export track and beacons to CSV
  [Ctrl+E] Export session to JSON
  [s] Screenshot (HTML)

Examples:
  beaconmap --device tracker_2
  beaconmap --host 10.0.0.5 --port 8080 --transport websocket
  beaconmap --lat 54.91 --lon 82.72 --zoom 17 --theme night
  beaconmap --floor-plan building.geojson
  beaconmap export --format json
  beaconmap snapshot --width 100 --height 30`,
	RunE: run,
}

func init() {
	// Global flags (available to all commands)
	rootCmd.PersistentFlags().StringVar(&host, "host", "", "Backend hostname")
	rootCmd.PersistentFlags().IntVar(&port, "port", 0, "Backend port")
	rootCmd.PersistentFlags().StringVar(&deviceID, "device", "", "Tracked device id")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	// Root command flags
	rootCmd.Flags().Float64Var(&lat, "lat", 0, "Initial map center latitude")
	rootCmd.Flags().Float64Var(&lon, "lon", 0, "Initial map center longitude")
	rootCmd.Flags().IntVar(&zoom, "zoom", 0, "Initial zoom level")
	rootCmd.Flags().StringVar(&themeName, "theme", "", "Color theme")
	rootCmd.Flags().BoolVar(&listThemes, "list-themes", false, "List available themes")
	rootCmd.Flags().StringVar(&exportDir, "export-dir", "", "Directory for export files (default: current directory)")
	rootCmd.Flags().StringVar(&transport, "transport", "", "Track transport (rest or websocket)")
	rootCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")
	rootCmd.Flags().StringVar(&floorPlan, "floor-plan", "", "GeoJSON floor plan drawn under the data")

	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(snapshotCmd)
	rootCmd.AddCommand(configureCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// applyOverrides copies command line flags over the loaded configuration
func applyOverrides(cfg *config.Config) {
	if host != "" {
		cfg.Connection.Host = host
	}
	if port != 0 {
		cfg.Connection.Port = port
	}
	if deviceID != "" {
		cfg.Tracking.DeviceID = deviceID
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if lat != 0 {
		cfg.Map.CenterLat = lat
	}
	if lon != 0 {
		cfg.Map.CenterLon = lon
	}
	if zoom != 0 {
		cfg.Map.Zoom = zoom
	}
	if themeName != "" {
		cfg.Display.Theme = themeName
	}
	if transport != "" {
		cfg.Connection.Transport = transport
	}
	if metricsAddr != "" {
		cfg.Metrics.Enabled = true
		cfg.Metrics.Addr = metricsAddr
	}
	if floorPlan != "" {
		cfg.Map.FloorPlan = absPath(floorPlan)
	}
	if exportDir != "" {
		cfg.Export.Directory = absPath(exportDir)
	}
}

func absPath(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}

// loadConfig loads settings, applies flags and validates the result
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	applyOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newAPIClient(cfg *config.Config, logger *slog.Logger) *api.Client {
	return api.NewClient(cfg.APIBaseURL(), cfg.Timeout(), api.WithLogger(logger))
}

// loadFloorPlan returns nil when no plan is configured or it cannot be read
func loadFloorPlan(cfg *config.Config, logger *slog.Logger) *geo.FloorPlan {
	if cfg.Map.FloorPlan == "" {
		return nil
	}
	plan, err := geo.LoadFloorPlan(cfg.Map.FloorPlan)
	if err != nil {
		logger.Warn("floor plan not loaded", "path", cfg.Map.FloorPlan, "error", err)
		return nil
	}
	return plan
}

func printThemes(w io.Writer) {
	fmt.Fprintln(w, "\nAvailable Themes:")
	for _, t := range theme.GetInfo() {
		fmt.Fprintf(w, "  %-15s %-15s - %s\n", t.Key, t.Name, t.Description)
	}
	fmt.Fprintln(w)
}

func run(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	if listThemes {
		printThemes(out)
		return nil
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// the terminal belongs to the UI, so logs go to a file
	logger, closeLog, err := logging.SetupFile(cfg.Logging.Level, cfg.Logging.Format, cfg.LogFile())
	if err != nil {
		return err
	}
	defer closeLog()

	if cfg.Metrics.Enabled {
		srv := metrics.Serve(cfg.Metrics.Addr)
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := srv.Shutdown(ctx); err != nil {
				logger.Warn("metrics endpoint", "error", err)
			}
		}()
		logger.Info("metrics endpoint started", "addr", cfg.Metrics.Addr)
	}

	opts := app.Options{
		Client:    newAPIClient(cfg, logger),
		FloorPlan: loadFloorPlan(cfg, logger),
		Logger:    logger,
	}
	if cfg.Connection.Transport == "websocket" {
		stream := ws.NewClient(cfg.Connection.Host, cfg.Connection.Port, cfg.Tracking.DeviceID, cfg.Connection.ReconnectDelay)
		stream.SetLogger(logger)
		opts.Stream = stream
	}

	t := theme.Get(cfg.Display.Theme)
	banner := t.PrimaryBrightStyle().Bold(true)
	fmt.Fprintln(out, banner.Render("  ╔════════════════════════════════════════╗"))
	fmt.Fprintln(out, banner.Render("  ║      BEACON MAP - INITIALIZING...      ║"))
	fmt.Fprintln(out, banner.Render("  ╚════════════════════════════════════════╝"))
	fmt.Fprintf(out, "  Theme: %s\n", t.Name)
	fmt.Fprintf(out, "  Device: %s\n", cfg.Tracking.DeviceID)
	fmt.Fprintf(out, "  Connecting to %s (%s)...\n\n", cfg.APIBaseURL(), cfg.Connection.Transport)

	logger.Info("starting", "backend", cfg.APIBaseURL(), "device", cfg.Tracking.DeviceID, "transport", cfg.Connection.Transport)
	model := app.NewModel(cfg, opts)
	p := tea.NewProgram(model, tea.WithAltScreen())
	_, runErr := p.Run()

	// saves the config
	model.Shutdown()
	if runErr != nil {
		return runErr
	}
	fmt.Fprintf(out, "\n  Settings saved to %s\n\n", config.GetConfigPath())
	return nil
}
