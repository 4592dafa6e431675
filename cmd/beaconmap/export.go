package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/beaconmap/beaconmap-go/internal/api"
	"github.com/beaconmap/beaconmap-go/internal/config"
	"github.com/beaconmap/beaconmap-go/internal/export"
	"github.com/beaconmap/beaconmap-go/internal/geo"
	"github.com/beaconmap/beaconmap-go/internal/logging"
)

var (
	exportFormat string
	exportOut    string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Fetch beacons, path and track once and write them to files",
	Long: `Fetch the current beacons, reference path and device track from the
backend and write them without starting the interactive map.

Formats:
  csv    track and beacons as two CSV files
  json   one session document with beacons, path and track
  path   the backend's own .path export

Examples:
  beaconmap export
  beaconmap export --format json --out ./exports
  beaconmap export --format path --device tracker_2`,
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVar(&exportFormat, "format", "csv", "Output format (csv, json, path)")
	exportCmd.Flags().StringVar(&exportOut, "out", "", "Output directory (default: configured export directory)")
}

// exportData is one fetch of everything the map shows
type exportData struct {
	beacons []geo.Beacon
	path    []geo.Coordinate
	track   []geo.Coordinate
}

func fetchExportData(ctx context.Context, client *api.Client, device string) (*exportData, error) {
	beacons, err := client.Beacons(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch beacons: %w", err)
	}
	path, err := client.StandardPath(ctx)
	if err != nil && !errors.Is(err, api.ErrNotFound) {
		return nil, fmt.Errorf("fetch path: %w", err)
	}
	track, err := client.FetchTrack(ctx, device)
	if err != nil {
		return nil, fmt.Errorf("fetch track: %w", err)
	}
	return &exportData{beacons: beacons, path: path, track: track}, nil
}

// writeExport writes data in format to dir and returns the created files
func writeExport(ctx context.Context, client *api.Client, cfg *config.Config, format, dir string) ([]string, error) {
	device := cfg.Tracking.DeviceID
	if format == "path" {
		content, err := client.ExportPath(ctx)
		if err != nil {
			return nil, fmt.Errorf("export path: %w", err)
		}
		name, err := export.SavePathFile(content, dir)
		if err != nil {
			return nil, err
		}
		return []string{name}, nil
	}

	data, err := fetchExportData(ctx, client, device)
	if err != nil {
		return nil, err
	}

	switch format {
	case "csv":
		var files []string
		name, err := export.ExportTrackCSV(device, data.track, dir)
		if err != nil {
			return nil, err
		}
		files = append(files, name)
		name, err = export.ExportBeaconsCSV(data.beacons, dir)
		if err != nil {
			return files, err
		}
		return append(files, name), nil
	case "json":
		name, err := export.ExportSessionJSON(export.Session{
			DeviceID: device,
			Beacons:  data.beacons,
			Path:     data.path,
			Track:    data.track,
		}, dir)
		if err != nil {
			return nil, err
		}
		return []string{name}, nil
	default:
		return nil, fmt.Errorf("unknown export format %q (want csv, json or path)", format)
	}
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	applyOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	dir := cfg.Export.Directory
	if exportOut != "" {
		dir = absPath(exportOut)
	}

	logger := logging.New(cfg.Logging.Level, cfg.Logging.Format, cmd.ErrOrStderr())
	client := newAPIClient(cfg, logger)

	files, err := writeExport(cmd.Context(), client, cfg, exportFormat, dir)
	if err != nil {
		return err
	}
	printFiles(cmd.OutOrStdout(), files)
	return nil
}

func printFiles(w io.Writer, files []string) {
	for _, f := range files {
		fmt.Fprintf(w, "  wrote %s\n", f)
	}
}
