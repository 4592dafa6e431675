package export

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/beaconmap/beaconmap-go/internal/geo"
)

// ExportVersion is written into every JSON export
const ExportVersion = "1.0"

// ViewExport describes the map view at export time
type ViewExport struct {
	Center   geo.Coordinate `json:"center"`
	Zoom     int            `json:"zoom"`
	Bounds   geo.Bounds     `json:"bounds"`
	GridStep float64        `json:"grid_step,omitempty"`
}

// Session is everything the map shows, as passed in by the caller
type Session struct {
	DeviceID string
	Beacons  []geo.Beacon
	Path     []geo.Coordinate
	Track    []geo.Coordinate
	View     *ViewExport
}

// SessionExportData is the JSON export structure
type SessionExportData struct {
	Timestamp     string           `json:"timestamp"`
	ExportVersion string           `json:"export_version"`
	DeviceID      string           `json:"device_id,omitempty"`
	TotalBeacons  int              `json:"total_beacons"`
	TotalPoints   int              `json:"total_points"`
	View          *ViewExport      `json:"view,omitempty"`
	Beacons       []geo.Beacon     `json:"beacons"`
	Path          []geo.Coordinate `json:"path"`
	Track         []geo.Coordinate `json:"track"`
}

func newSessionExport(s Session) SessionExportData {
	data := SessionExportData{
		Timestamp:     time.Now().Format(time.RFC3339),
		ExportVersion: ExportVersion,
		DeviceID:      s.DeviceID,
		TotalBeacons:  len(s.Beacons),
		View:          s.View,
		Beacons:       s.Beacons,
		Path:          geo.ValidCoordinates(s.Path),
		Track:         geo.ValidCoordinates(s.Track),
	}
	data.TotalPoints = len(data.Track)
	// empty arrays instead of null
	if data.Beacons == nil {
		data.Beacons = []geo.Beacon{}
	}
	if data.Path == nil {
		data.Path = []geo.Coordinate{}
	}
	if data.Track == nil {
		data.Track = []geo.Coordinate{}
	}
	return data
}

// ExportSessionJSON exports the session to pretty-printed JSON
func ExportSessionJSON(s Session, directory string) (string, error) {
	filename := GenerateFilename("beaconmap_session", "json", directory)
	if err := ExportSessionJSONToFile(s, filename); err != nil {
		return "", err
	}
	return filename, nil
}

// ExportSessionJSONToFile exports the session to a specific JSON file
func ExportSessionJSONToFile(s Session, filename string) error {
	jsonData, err := json.MarshalIndent(newSessionExport(s), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if dir := filepath.Dir(filename); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	if err := os.WriteFile(filename, jsonData, 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}
