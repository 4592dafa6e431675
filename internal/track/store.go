// Package track keeps the live device track and the loop that refreshes it
package track

import (
	"sync"
	"time"

	"github.com/beaconmap/beaconmap-go/internal/geo"
)

// DefaultMaxTrackLength is the default number of points kept for the displayed track
const DefaultMaxTrackLength = 10000

// StaleTimeout is the duration after which the current track is considered stale
const StaleTimeout = 30 * time.Second

// Snapshot is a consistent copy of the store
type Snapshot struct {
	Points    []geo.Coordinate
	Seq       uint64
	UpdatedAt time.Time
}

// Latest returns the current position (the last point)
func (s Snapshot) Latest() (geo.Coordinate, bool) {
	if len(s.Points) == 0 {
		return geo.Coordinate{}, false
	}
	return s.Points[len(s.Points)-1], true
}

// Store holds the track currently displayed. Results are applied by sequence
// number so an older request can never overwrite a newer one.
type Store struct {
	mu     sync.RWMutex
	points []geo.Coordinate
	seq    uint64
	// floor rejects results of requests numbered at or below it
	floor          uint64
	updatedAt      time.Time
	maxTrackLength int
	now            func() time.Time
}

// NewStore creates a store with default settings
func NewStore() *Store {
	return NewStoreWithLength(DefaultMaxTrackLength)
}

// NewStoreWithLength creates a store that keeps at most maxLength points
func NewStoreWithLength(maxLength int) *Store {
	if maxLength <= 0 {
		maxLength = DefaultMaxTrackLength
	}
	return &Store{
		maxTrackLength: maxLength,
		now:            time.Now,
	}
}

// MaxTrackLength returns the point limit
func (s *Store) MaxTrackLength() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.maxTrackLength
}

// Apply replaces the track with points if seq is newer than the last applied
// sequence. It reports whether the points were applied.
func (s *Store) Apply(seq uint64, points []geo.Coordinate) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if seq <= s.seq || seq <= s.floor {
		return false
	}
	s.setLocked(seq, points)
	return true
}

// Replace applies points unconditionally, giving them the next sequence number
// above both the applied sequence and the clear floor
func (s *Store) Replace(points []geo.Coordinate) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setLocked(max(s.seq, s.floor)+1, points)
	return s.seq
}

func (s *Store) setLocked(seq uint64, points []geo.Coordinate) {
	valid := geo.ValidCoordinates(points)
	// Keep the tail: the last point is the current position
	if len(valid) > s.maxTrackLength {
		valid = valid[len(valid)-s.maxTrackLength:]
	}
	s.points = valid
	s.seq = seq
	s.updatedAt = s.now()
}

// Snapshot returns a copy of the current track
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// Return a copy to prevent external modification
	points := make([]geo.Coordinate, len(s.points))
	copy(points, s.points)
	return Snapshot{Points: points, Seq: s.seq, UpdatedAt: s.updatedAt}
}

// Points returns a copy of the current track points
func (s *Store) Points() []geo.Coordinate {
	return s.Snapshot().Points
}

// Latest returns the current position
func (s *Store) Latest() (geo.Coordinate, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.points) == 0 {
		return geo.Coordinate{}, false
	}
	return s.points[len(s.points)-1], true
}

// Len returns the number of points
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.points)
}

// Seq returns the sequence number of the applied track
func (s *Store) Seq() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.seq
}

// IsStale reports whether nothing has been applied within timeout
func (s *Store) IsStale(timeout time.Duration) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.updatedAt.IsZero() {
		return true
	}
	return s.now().Sub(s.updatedAt) > timeout
}

// Clear drops the points. Results already applied or older stay rejected.
func (s *Store) Clear() {
	s.ClearThrough(0)
}

// ClearThrough drops the points and rejects every later Apply whose seq is at
// or below seq.
func (s *Store) ClearThrough(seq uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.points = nil
	if seq > s.floor {
		s.floor = seq
	}
	s.updatedAt = s.now()
}

// Floor returns the sequence number set by the last ClearThrough
func (s *Store) Floor() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.floor
}
