// Package config handles configuration loading, saving, and defaults for beaconmap
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/beaconmap/beaconmap-go/internal/api"
	"github.com/beaconmap/beaconmap-go/internal/grid"
)

// EnvPrefix is the prefix for environment overrides: BEACONMAP_MAP_ZOOM -> map.zoom
const EnvPrefix = "BEACONMAP"

// Config directories and files
var (
	ConfigDir  string
	ConfigFile string
)

func init() {
	homeDir, _ := os.UserHomeDir()
	SetConfigDir(filepath.Join(homeDir, ".config", "beaconmap"))
}

// SetConfigDir points the config directory (and settings file) somewhere else
func SetConfigDir(dir string) {
	ConfigDir = dir
	ConfigFile = filepath.Join(dir, "settings.json")
}

// DisplaySettings contains UI display options
type DisplaySettings struct {
	Theme       string `json:"theme" mapstructure:"theme"`
	ShowGrid    bool   `json:"show_grid" mapstructure:"show_grid"`
	ShowLabels  bool   `json:"show_labels" mapstructure:"show_labels"`
	ShowPath    bool   `json:"show_path" mapstructure:"show_path"`
	ShowTrack   bool   `json:"show_track" mapstructure:"show_track"`
	ShowBeacons bool   `json:"show_beacons" mapstructure:"show_beacons"`
}

// MapSettings contains the initial view
type MapSettings struct {
	CenterLat  float64 `json:"center_lat" mapstructure:"center_lat"`
	CenterLon  float64 `json:"center_lon" mapstructure:"center_lon"`
	Zoom       int     `json:"zoom" mapstructure:"zoom"`
	MinZoom    int     `json:"min_zoom" mapstructure:"min_zoom"`
	MaxZoom    int     `json:"max_zoom" mapstructure:"max_zoom"`
	CellAspect float64 `json:"cell_aspect" mapstructure:"cell_aspect"`
	FloorPlan  string  `json:"floor_plan,omitempty" mapstructure:"floor_plan"`
}

// GridSettings configures the coordinate grid
type GridSettings struct {
	BaseStep       float64 `json:"base_step" mapstructure:"base_step"`
	ReferenceZoom  int     `json:"reference_zoom" mapstructure:"reference_zoom"`
	LabelPrecision int     `json:"label_precision" mapstructure:"label_precision"`
	MaxLines       int     `json:"max_lines" mapstructure:"max_lines"`
}

// ConnectionSettings contains backend connection options
type ConnectionSettings struct {
	Host           string `json:"host" mapstructure:"host"`
	Port           int    `json:"port" mapstructure:"port"`
	BasePath       string `json:"base_path" mapstructure:"base_path"`
	Transport      string `json:"transport" mapstructure:"transport"`
	TimeoutSec     int    `json:"timeout_sec" mapstructure:"timeout_sec"`
	ReconnectDelay int    `json:"reconnect_delay" mapstructure:"reconnect_delay"`
}

// TrackingSettings configures track polling
type TrackingSettings struct {
	DeviceID       string `json:"device_id" mapstructure:"device_id"`
	PollIntervalMs int    `json:"poll_interval_ms" mapstructure:"poll_interval_ms"`
	Ordering       string `json:"ordering" mapstructure:"ordering"`
}

// LoggingSettings configures slog
type LoggingSettings struct {
	Level  string `json:"level" mapstructure:"level"`
	Format string `json:"format" mapstructure:"format"`
	File   string `json:"file,omitempty" mapstructure:"file"`
}

// MetricsSettings configures the Prometheus endpoint
type MetricsSettings struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	Addr    string `json:"addr" mapstructure:"addr"`
}

// ExportSettings contains export options
type ExportSettings struct {
	Directory string `json:"directory" mapstructure:"directory"`
}

// Config is the main configuration container
type Config struct {
	Display    DisplaySettings    `json:"display" mapstructure:"display"`
	Map        MapSettings        `json:"map" mapstructure:"map"`
	Grid       GridSettings       `json:"grid" mapstructure:"grid"`
	Connection ConnectionSettings `json:"connection" mapstructure:"connection"`
	Tracking   TrackingSettings   `json:"tracking" mapstructure:"tracking"`
	Logging    LoggingSettings    `json:"logging" mapstructure:"logging"`
	Metrics    MetricsSettings    `json:"metrics" mapstructure:"metrics"`
	Export     ExportSettings     `json:"export" mapstructure:"export"`
}

// DefaultConfig returns a new Config with default values
func DefaultConfig() *Config {
	return &Config{
		Display: DisplaySettings{
			Theme:       "daylight",
			ShowGrid:    true,
			ShowLabels:  true,
			ShowPath:    true,
			ShowTrack:   true,
			ShowBeacons: true,
		},
		Map: MapSettings{
			CenterLat:  55.0084,
			CenterLon:  82.9357,
			Zoom:       13,
			MinZoom:    3,
			MaxZoom:    20,
			CellAspect: 2.0,
		},
		Grid: GridSettings{
			BaseStep:       grid.DefaultBaseStep,
			ReferenceZoom:  grid.DefaultReferenceZoom,
			LabelPrecision: grid.DefaultPrecision,
			MaxLines:       grid.DefaultMaxLines,
		},
		Connection: ConnectionSettings{
			Host:           "localhost",
			Port:           8000,
			BasePath:       api.DefaultBasePath,
			Transport:      "rest",
			TimeoutSec:     5,
			ReconnectDelay: 2,
		},
		Tracking: TrackingSettings{
			DeviceID:       "tracker_1",
			PollIntervalMs: 1000,
			Ordering:       "request",
		},
		Logging: LoggingSettings{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsSettings{
			Enabled: false,
			Addr:    ":9464",
		},
		Export: ExportSettings{
			Directory: "",
		},
	}
}

// setDefaults registers every key with viper so env overrides apply to all of them
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("display.theme", cfg.Display.Theme)
	v.SetDefault("display.show_grid", cfg.Display.ShowGrid)
	v.SetDefault("display.show_labels", cfg.Display.ShowLabels)
	v.SetDefault("display.show_path", cfg.Display.ShowPath)
	v.SetDefault("display.show_track", cfg.Display.ShowTrack)
	v.SetDefault("display.show_beacons", cfg.Display.ShowBeacons)

	v.SetDefault("map.center_lat", cfg.Map.CenterLat)
	v.SetDefault("map.center_lon", cfg.Map.CenterLon)
	v.SetDefault("map.zoom", cfg.Map.Zoom)
	v.SetDefault("map.min_zoom", cfg.Map.MinZoom)
	v.SetDefault("map.max_zoom", cfg.Map.MaxZoom)
	v.SetDefault("map.cell_aspect", cfg.Map.CellAspect)
	v.SetDefault("map.floor_plan", cfg.Map.FloorPlan)

	v.SetDefault("grid.base_step", cfg.Grid.BaseStep)
	v.SetDefault("grid.reference_zoom", cfg.Grid.ReferenceZoom)
	v.SetDefault("grid.label_precision", cfg.Grid.LabelPrecision)
	v.SetDefault("grid.max_lines", cfg.Grid.MaxLines)

	v.SetDefault("connection.host", cfg.Connection.Host)
	v.SetDefault("connection.port", cfg.Connection.Port)
	v.SetDefault("connection.base_path", cfg.Connection.BasePath)
	v.SetDefault("connection.transport", cfg.Connection.Transport)
	v.SetDefault("connection.timeout_sec", cfg.Connection.TimeoutSec)
	v.SetDefault("connection.reconnect_delay", cfg.Connection.ReconnectDelay)

	v.SetDefault("tracking.device_id", cfg.Tracking.DeviceID)
	v.SetDefault("tracking.poll_interval_ms", cfg.Tracking.PollIntervalMs)
	v.SetDefault("tracking.ordering", cfg.Tracking.Ordering)

	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.format", cfg.Logging.Format)
	v.SetDefault("logging.file", cfg.Logging.File)

	v.SetDefault("metrics.enabled", cfg.Metrics.Enabled)
	v.SetDefault("metrics.addr", cfg.Metrics.Addr)

	v.SetDefault("export.directory", cfg.Export.Directory)
}

// EnsureConfigDir creates the config directory if it doesn't exist
func EnsureConfigDir() error {
	return os.MkdirAll(ConfigDir, 0755)
}

// Load reads the settings file and environment overrides. A missing or
// unreadable file yields defaults (plus env overrides).
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v, DefaultConfig())

	v.SetConfigFile(ConfigFile)
	v.SetConfigType("json")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			// invalid file: fall back to defaults
			v = viper.New()
			setDefaults(v, DefaultConfig())
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return DefaultConfig(), fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}

// Save saves configuration to file
func Save(config *Config) error {
	if err := EnsureConfigDir(); err != nil {
		return err
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(ConfigFile, data, 0644)
}

// GetConfigPath returns the config file path
func GetConfigPath() string {
	return ConfigFile
}

// Validate checks that configuration values are usable
func (c *Config) Validate() error {
	var errs []string

	if c.Connection.Host == "" {
		errs = append(errs, "connection.host is required")
	}
	if c.Connection.Port <= 0 || c.Connection.Port > 65535 {
		errs = append(errs, fmt.Sprintf("connection.port must be 1-65535, got %d", c.Connection.Port))
	}
	if c.Connection.Transport != "rest" && c.Connection.Transport != "websocket" {
		errs = append(errs, fmt.Sprintf("connection.transport must be rest or websocket, got %q", c.Connection.Transport))
	}
	if c.Connection.TimeoutSec <= 0 {
		errs = append(errs, "connection.timeout_sec must be positive")
	}
	if c.Tracking.DeviceID == "" {
		errs = append(errs, "tracking.device_id is required")
	}
	if c.Tracking.PollIntervalMs <= 0 {
		errs = append(errs, "tracking.poll_interval_ms must be positive")
	}
	if c.Tracking.Ordering != "request" && c.Tracking.Ordering != "completion" {
		errs = append(errs, fmt.Sprintf("tracking.ordering must be request or completion, got %q", c.Tracking.Ordering))
	}
	if c.Map.MinZoom < 0 || c.Map.MinZoom > c.Map.MaxZoom {
		errs = append(errs, fmt.Sprintf("map zoom range %d-%d is invalid", c.Map.MinZoom, c.Map.MaxZoom))
	}
	if c.Map.CenterLat < -90 || c.Map.CenterLat > 90 {
		errs = append(errs, fmt.Sprintf("map.center_lat out of range: %v", c.Map.CenterLat))
	}
	if c.Map.CenterLon < -180 || c.Map.CenterLon > 180 {
		errs = append(errs, fmt.Sprintf("map.center_lon out of range: %v", c.Map.CenterLon))
	}
	if c.Map.CellAspect <= 0 {
		errs = append(errs, "map.cell_aspect must be positive")
	}
	if c.Grid.BaseStep <= 0 {
		errs = append(errs, "grid.base_step must be positive")
	}
	if c.Grid.MaxLines <= 0 {
		errs = append(errs, "grid.max_lines must be positive")
	}
	if c.Metrics.Enabled && c.Metrics.Addr == "" {
		errs = append(errs, "metrics.addr is required when metrics are enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// GridOptions converts the grid section to planner options
func (c *Config) GridOptions() grid.Options {
	return grid.Options{
		BaseStep:      c.Grid.BaseStep,
		ReferenceZoom: c.Grid.ReferenceZoom,
		Precision:     c.Grid.LabelPrecision,
		MaxLines:      c.Grid.MaxLines,
	}
}

// APIBaseURL returns the REST root for the configured backend
func (c *Config) APIBaseURL() string {
	return api.BaseURL(c.Connection.Host, c.Connection.Port, c.Connection.BasePath)
}

// Timeout returns the per-request timeout
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.Connection.TimeoutSec) * time.Second
}

// PollInterval returns the track polling cadence
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Tracking.PollIntervalMs) * time.Millisecond
}

// LogFile returns the configured log file, defaulting to beaconmap.log in the config dir
func (c *Config) LogFile() string {
	if c.Logging.File != "" {
		return c.Logging.File
	}
	return filepath.Join(ConfigDir, "beaconmap.log")
}
