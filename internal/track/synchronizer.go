package track

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/beaconmap/beaconmap-go/internal/geo"
	"github.com/beaconmap/beaconmap-go/internal/metrics"
)

// DefaultInterval is the polling cadence
const DefaultInterval = time.Second

// Source fetches the current track for a device
type Source interface {
	FetchTrack(ctx context.Context, deviceID string) ([]geo.Coordinate, error)
}

// SourceFunc adapts a function to Source
type SourceFunc func(ctx context.Context, deviceID string) ([]geo.Coordinate, error)

// FetchTrack calls f
func (f SourceFunc) FetchTrack(ctx context.Context, deviceID string) ([]geo.Coordinate, error) {
	return f(ctx, deviceID)
}

// Ordering decides which of several overlapping fetches is displayed
type Ordering int

const (
	// OrderRequestStart applies a result only if no later-started request has
	// already been applied.
	OrderRequestStart Ordering = iota
	// OrderCompletion applies every successful result as it completes, so a
	// slow stale response may replace a newer one.
	OrderCompletion
)

// ParseOrdering maps a config value to an Ordering; unknown values use OrderRequestStart
func ParseOrdering(s string) Ordering {
	if s == "completion" {
		return OrderCompletion
	}
	return OrderRequestStart
}

func (o Ordering) String() string {
	if o == OrderCompletion {
		return "completion"
	}
	return "request"
}

// Ticker is the subset of time.Ticker the synchronizer uses
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type timeTicker struct{ t *time.Ticker }

func (t timeTicker) C() <-chan time.Time { return t.t.C }
func (t timeTicker) Stop()               { t.t.Stop() }

// NewTimeTicker wraps time.NewTicker
func NewTimeTicker(d time.Duration) Ticker {
	return timeTicker{t: time.NewTicker(d)}
}

// Options configures a Synchronizer
type Options struct {
	DeviceID string
	Interval time.Duration
	Ordering Ordering
	// FetchTimeout bounds a single fetch; zero means the interval
	FetchTimeout time.Duration
	// FetchOnStart polls once immediately instead of waiting for the first tick
	FetchOnStart bool
	NewTicker    func(time.Duration) Ticker
	Store        *Store
	Logger       *slog.Logger
}

// Update is published after a track result has been applied
type Update struct {
	DeviceID string
	Points   []geo.Coordinate
	Seq      uint64
	At       time.Time
}

// Stats summarises polling activity
type Stats struct {
	Polls     uint64
	Errors    uint64
	Applied   uint64
	Discarded uint64
	LastError error
}

// Synchronizer polls a Source on a fixed interval and republishes the latest
// track. It runs independently of the map view.
type Synchronizer struct {
	src     Source
	opts    Options
	store   *Store
	logger  *slog.Logger
	updates chan Update

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool

	// applyMu orders store application with publication
	applyMu sync.Mutex
	nextSeq atomic.Uint64

	polls     atomic.Uint64
	errs      atomic.Uint64
	applied   atomic.Uint64
	discarded atomic.Uint64

	// lastErr is the outcome of the latest-started fetch that has finished
	outcomeMu  sync.Mutex
	outcomeSeq uint64
	lastErr    error
}

// NewSynchronizer creates a synchronizer for src
func NewSynchronizer(src Source, opts Options) *Synchronizer {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = opts.Interval
	}
	if opts.NewTicker == nil {
		opts.NewTicker = NewTimeTicker
	}
	if opts.Store == nil {
		opts.Store = NewStore()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Synchronizer{
		src:     src,
		opts:    opts,
		store:   opts.Store,
		logger:  opts.Logger.With("component", "track", "device", opts.DeviceID),
		updates: make(chan Update, 1),
	}
}

// DeviceID returns the tracked device
func (s *Synchronizer) DeviceID() string { return s.opts.DeviceID }

// Store returns the backing track store
func (s *Synchronizer) Store() *Store { return s.store }

// Updates delivers applied tracks. Only the most recent update is buffered;
// a slow reader skips intermediate ones.
func (s *Synchronizer) Updates() <-chan Update { return s.updates }

// Current returns the currently displayed track
func (s *Synchronizer) Current() Snapshot { return s.store.Snapshot() }

// Running reports whether the polling loop is active
func (s *Synchronizer) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Start launches the polling loop. Calling Start on a running synchronizer
// does nothing.
func (s *Synchronizer) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.running = true

	ticker := s.opts.NewTicker(s.opts.Interval)
	s.wg.Add(1)
	go s.loop(ctx, ticker)
	s.logger.Info("track polling started", "interval", s.opts.Interval, "ordering", s.opts.Ordering.String())
}

// Stop cancels the timer and any in-flight fetch and waits for them to
// finish. No fetch is issued after Stop returns.
func (s *Synchronizer) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.cancel()
	s.running = false
	s.mu.Unlock()

	s.wg.Wait()
	s.logger.Info("track polling stopped")
}

func (s *Synchronizer) loop(ctx context.Context, ticker Ticker) {
	defer s.wg.Done()
	defer ticker.Stop()

	if s.opts.FetchOnStart {
		s.tick(ctx)
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			s.tick(ctx)
		}
	}
}

// tick starts one fetch without waiting for earlier ones to finish
func (s *Synchronizer) tick(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	seq := s.nextSeq.Add(1)
	s.wg.Add(1)
	go s.fetch(ctx, seq)
}

func (s *Synchronizer) fetch(ctx context.Context, seq uint64) {
	defer s.wg.Done()

	fctx, cancel := context.WithTimeout(ctx, s.opts.FetchTimeout)
	defer cancel()

	s.polls.Add(1)
	points, err := s.src.FetchTrack(fctx, s.opts.DeviceID)
	if ctx.Err() != nil {
		// stopped while in flight
		return
	}
	if err != nil {
		s.errs.Add(1)
		s.recordOutcome(seq, err)
		metrics.TrackPolls.WithLabelValues("error").Inc()
		if !errors.Is(err, context.DeadlineExceeded) {
			s.logger.Warn("track fetch failed", "seq", seq, "error", err)
		} else {
			s.logger.Warn("track fetch timed out", "seq", seq, "timeout", s.opts.FetchTimeout)
		}
		return
	}
	metrics.TrackPolls.WithLabelValues("ok").Inc()
	s.recordOutcome(seq, nil)

	s.applyMu.Lock()
	defer s.applyMu.Unlock()

	var applied bool
	switch s.opts.Ordering {
	case OrderCompletion:
		if seq > s.store.Floor() {
			s.store.Replace(points)
			applied = true
		}
	default:
		applied = s.store.Apply(seq, points)
	}
	if !applied {
		s.discarded.Add(1)
		metrics.TrackResults.WithLabelValues("stale").Inc()
		s.logger.Debug("discarded stale track result", "seq", seq, "current", s.store.Seq())
		return
	}

	s.applied.Add(1)
	metrics.TrackResults.WithLabelValues("applied").Inc()
	snap := s.store.Snapshot()
	metrics.TrackPoints.Set(float64(len(snap.Points)))
	s.publish(Update{
		DeviceID: s.opts.DeviceID,
		Points:   snap.Points,
		Seq:      snap.Seq,
		At:       snap.UpdatedAt,
	})
}

// publish replaces any unread update with u; callers hold applyMu
func (s *Synchronizer) publish(u Update) {
	for {
		select {
		case s.updates <- u:
			return
		default:
		}
		select {
		case <-s.updates:
		default:
		}
	}
}

// recordOutcome keeps the result of seq unless a later-started fetch has
// already reported
func (s *Synchronizer) recordOutcome(seq uint64, err error) {
	s.outcomeMu.Lock()
	defer s.outcomeMu.Unlock()
	if seq < s.outcomeSeq {
		return
	}
	s.outcomeSeq = seq
	s.lastErr = err
}

// Clear empties the displayed track and drops any unread update. Fetches
// started before Clear are discarded when they complete. It returns the
// sequence number at the time of the clear; updates published afterwards carry
// a higher Seq.
func (s *Synchronizer) Clear() uint64 {
	s.applyMu.Lock()
	defer s.applyMu.Unlock()
	watermark := s.nextSeq.Load()
	s.store.ClearThrough(watermark)
	select {
	case <-s.updates:
	default:
	}
	metrics.TrackPoints.Set(0)
	return watermark
}

// Stats returns polling counters
func (s *Synchronizer) Stats() Stats {
	st := Stats{
		Polls:     s.polls.Load(),
		Errors:    s.errs.Load(),
		Applied:   s.applied.Load(),
		Discarded: s.discarded.Load(),
	}
	s.outcomeMu.Lock()
	st.LastError = s.lastErr
	s.outcomeMu.Unlock()
	return st
}
