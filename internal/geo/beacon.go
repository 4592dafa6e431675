package geo

import (
	"slices"
	"strings"
)

// Beacon is a fixed reference point with a unique identifier
type Beacon struct {
	ID       string     `json:"id"`
	Position Coordinate `json:"position"`
}

// BeaconsFromMap converts an id -> coordinate mapping into a slice ordered by id.
// Entries with invalid coordinates or empty ids are dropped.
func BeaconsFromMap(m map[string]Coordinate) []Beacon {
	out := make([]Beacon, 0, len(m))
	for id, c := range m {
		if id == "" || !c.Valid() {
			continue
		}
		out = append(out, Beacon{ID: id, Position: c})
	}
	slices.SortFunc(out, func(a, b Beacon) int {
		return strings.Compare(a.ID, b.ID)
	})
	return out
}

// BeaconCoordinates returns the positions of the beacons in order
func BeaconCoordinates(beacons []Beacon) []Coordinate {
	out := make([]Coordinate, len(beacons))
	for i, b := range beacons {
		out[i] = b.Position
	}
	return out
}

// ValidCoordinates returns the coordinates that are finite, preserving order
func ValidCoordinates(coords []Coordinate) []Coordinate {
	out := make([]Coordinate, 0, len(coords))
	for _, c := range coords {
		if c.Valid() {
			out = append(out, c)
		}
	}
	return out
}
