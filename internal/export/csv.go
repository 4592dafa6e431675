// Package export writes tracks, beacons and screen captures to files
package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/beaconmap/beaconmap-go/internal/geo"
)

// createFile creates filename, making its directory when needed
func createFile(filename string) (*os.File, error) {
	file, err := os.Create(filename)
	if err == nil {
		return file, nil
	}
	if err := os.MkdirAll(filepath.Dir(filename), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}
	file, err = os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}
	return file, nil
}

// writeCSV writes header and rows to filename
func writeCSV(filename string, header []string, rows [][]string) error {
	file, err := createFile(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	if err := writer.WriteAll(rows); err != nil {
		return fmt.Errorf("failed to write rows: %w", err)
	}
	return nil
}

// ExportTrackCSV writes a device track as seq,x,y rows
func ExportTrackCSV(deviceID string, track []geo.Coordinate, directory string) (string, error) {
	filename := GenerateFilename("beaconmap_track", "csv", directory)
	if err := ExportTrackCSVToFile(deviceID, track, filename); err != nil {
		return "", err
	}
	return filename, nil
}

// ExportTrackCSVToFile writes a device track to a specific file
func ExportTrackCSVToFile(deviceID string, track []geo.Coordinate, filename string) error {
	timestamp := time.Now().Format(time.RFC3339)
	rows := make([][]string, 0, len(track))
	for i, c := range track {
		rows = append(rows, []string{
			deviceID,
			strconv.Itoa(i),
			formatCoord(c.X),
			formatCoord(c.Y),
			timestamp,
		})
	}
	return writeCSV(filename, []string{"device_id", "seq", "x", "y", "exported_at"}, rows)
}

// ExportBeaconsCSV writes beacons as id,x,y rows
func ExportBeaconsCSV(beacons []geo.Beacon, directory string) (string, error) {
	filename := GenerateFilename("beaconmap_beacons", "csv", directory)
	if err := ExportBeaconsCSVToFile(beacons, filename); err != nil {
		return "", err
	}
	return filename, nil
}

// ExportBeaconsCSVToFile writes beacons to a specific file
func ExportBeaconsCSVToFile(beacons []geo.Beacon, filename string) error {
	rows := make([][]string, 0, len(beacons))
	for _, b := range beacons {
		rows = append(rows, []string{b.ID, formatCoord(b.Position.X), formatCoord(b.Position.Y)})
	}
	return writeCSV(filename, []string{"id", "x", "y"}, rows)
}

// SavePathFile writes a path document produced by the backend as-is
func SavePathFile(content, directory string) (string, error) {
	filename := GenerateFilename("beaconmap_path", "path", directory)
	file, err := createFile(filename)
	if err != nil {
		return "", err
	}
	defer file.Close()
	if _, err := file.WriteString(content); err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	return filename, nil
}

// formatCoord formats a coordinate component with the 6 decimals used across exports
func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}
