package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/beaconmap/beaconmap-go/internal/config"
	"github.com/beaconmap/beaconmap-go/internal/export"
	"github.com/beaconmap/beaconmap-go/internal/geo"
	"github.com/beaconmap/beaconmap-go/internal/logging"
	"github.com/beaconmap/beaconmap-go/internal/mapview"
	"github.com/beaconmap/beaconmap-go/internal/overlay"
	"github.com/beaconmap/beaconmap-go/internal/theme"
)

var (
	snapWidth  int
	snapHeight int
	snapFit    bool
	snapHTML   string
	snapColor  bool
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Render one frame of the map to stdout or HTML",
	Long: `Fetch the current data once and render a single map frame with the
coordinate grid, beacons, path and track. Useful for scripts and CI logs.

Examples:
  beaconmap snapshot
  beaconmap snapshot --width 100 --height 30 --fit=false
  beaconmap snapshot --html frame.html`,
	RunE: runSnapshot,
}

func init() {
	snapshotCmd.Flags().IntVar(&snapWidth, "width", 80, "Frame width in cells")
	snapshotCmd.Flags().IntVar(&snapHeight, "height", 24, "Frame height in cells")
	snapshotCmd.Flags().BoolVar(&snapFit, "fit", true, "Fit the view to the beacons")
	snapshotCmd.Flags().StringVar(&snapHTML, "html", "", "Write a styled HTML frame to this file instead of stdout")
	snapshotCmd.Flags().BoolVar(&snapColor, "color", false, "Keep ANSI colors on stdout")
}

// renderFrame draws data into a width x height frame. The returned string is
// styled with the theme's colors.
func renderFrame(cfg *config.Config, data *exportData, plan *geo.FloorPlan, width, height int, fit bool) string {
	t := theme.Get(cfg.Display.Theme)
	view := mapview.New(mapview.Options{
		Center:     geo.Coordinate{X: cfg.Map.CenterLon, Y: cfg.Map.CenterLat},
		Zoom:       cfg.Map.Zoom,
		MinZoom:    cfg.Map.MinZoom,
		MaxZoom:    cfg.Map.MaxZoom,
		Width:      width,
		Height:     height,
		CellAspect: cfg.Map.CellAspect,
	})
	if fit {
		coords := append(geo.BeaconCoordinates(data.beacons), data.track...)
		if b, ok := geo.CoordinatesBounds(coords); ok {
			view.FitBounds(b)
		}
	}

	renderer := overlay.NewRenderer(overlay.Options{
		Grid:       cfg.GridOptions(),
		Theme:      t,
		ShowGrid:   cfg.Display.ShowGrid,
		ShowLabels: cfg.Display.ShowLabels,
		Logger:     logging.Discard(),
	})
	handle := renderer.Mount(view)
	defer handle.Close()
	handle.SetBeacons(data.beacons)

	frame := handle.Surface()
	sc := overlay.Scene{FloorPlan: plan, DeviceID: cfg.Tracking.DeviceID}
	if cfg.Display.ShowBeacons {
		sc.Beacons = data.beacons
	}
	if cfg.Display.ShowPath {
		sc.Path = data.path
	}
	if cfg.Display.ShowTrack {
		sc.Track = data.track
	}
	overlay.DrawScene(frame, view.Projector(), sc, t)
	return frame.Render(t.Text)
}

func runSnapshot(cmd *cobra.Command, args []string) error {
	if snapWidth <= 0 || snapHeight <= 0 {
		return fmt.Errorf("frame size must be positive, got %dx%d", snapWidth, snapHeight)
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	applyOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := logging.New(cfg.Logging.Level, cfg.Logging.Format, cmd.ErrOrStderr())
	client := newAPIClient(cfg, logger)
	data, err := fetchExportData(cmd.Context(), client, cfg.Tracking.DeviceID)
	if err != nil {
		return err
	}

	frame := renderFrame(cfg, data, loadFloorPlan(cfg, logger), snapWidth, snapHeight, snapFit)
	return writeFrame(cmd.OutOrStdout(), frame, snapHTML, snapColor)
}

func writeFrame(w io.Writer, frame, htmlFile string, color bool) error {
	if htmlFile != "" {
		if err := export.SaveAsHTML(frame, htmlFile); err != nil {
			return err
		}
		fmt.Fprintf(w, "  wrote %s\n", htmlFile)
		return nil
	}
	if !color {
		frame = export.StripANSI(frame)
	}
	_, err := fmt.Fprintln(w, frame)
	return err
}
