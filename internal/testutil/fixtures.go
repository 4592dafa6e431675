package testutil

import (
	"fmt"
	"math/rand"

	"github.com/beaconmap/beaconmap-go/internal/geo"
)

// Beacon ids commonly seen on the test floor
var beaconNames = []string{"A1", "A2", "B1", "B2", "C1", "C2", "D1", "D2"}

// SampleBeacons returns four beacons as id -> [x, y] on a small rectangle
// around lng 82.725, lat 54.91
func SampleBeacons() map[string][2]float64 {
	return map[string][2]float64{
		"A1": {82.705, 54.905},
		"A2": {82.745, 54.905},
		"B1": {82.705, 54.915},
		"B2": {82.745, 54.915},
	}
}

// SampleBeaconList is SampleBeacons as sorted geo.Beacon values
func SampleBeaconList() []geo.Beacon {
	coords := make(map[string]geo.Coordinate)
	for id, p := range SampleBeacons() {
		coords[id] = geo.Coordinate{X: p[0], Y: p[1]}
	}
	return geo.BeaconsFromMap(coords)
}

// GenerateBeacons returns count beacons scattered inside b, using seed for
// reproducible layouts. Ids past the named set are numbered.
func GenerateBeacons(count int, b geo.Bounds, seed int64) map[string][2]float64 {
	r := rand.New(rand.NewSource(seed))
	out := make(map[string][2]float64, count)
	for i := 0; i < count; i++ {
		id := fmt.Sprintf("B%03d", i)
		if i < len(beaconNames) {
			id = beaconNames[i]
		}
		out[id] = [2]float64{
			b.West + r.Float64()*(b.East-b.West),
			b.South + r.Float64()*(b.North-b.South),
		}
	}
	return out
}

// StraightTrack returns steps points evenly spaced from (x0,y0) to (x1,y1)
func StraightTrack(x0, y0, x1, y1 float64, steps int) []geo.Coordinate {
	if steps < 2 {
		return []geo.Coordinate{{X: x0, Y: y0}}
	}
	out := make([]geo.Coordinate, steps)
	dx := (x1 - x0) / float64(steps-1)
	dy := (y1 - y0) / float64(steps-1)
	for i := range out {
		out[i] = geo.Coordinate{X: x0 + dx*float64(i), Y: y0 + dy*float64(i)}
	}
	return out
}

// SamplePath returns a closed loop through the sample beacons
func SamplePath() []geo.Coordinate {
	return []geo.Coordinate{
		{X: 82.706, Y: 54.906},
		{X: 82.744, Y: 54.906},
		{X: 82.744, Y: 54.914},
		{X: 82.706, Y: 54.914},
		{X: 82.706, Y: 54.906},
	}
}
