// Package app provides the Bubble Tea application model for the beacon map
package app

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/beaconmap/beaconmap-go/internal/api"
	"github.com/beaconmap/beaconmap-go/internal/config"
	"github.com/beaconmap/beaconmap-go/internal/export"
	"github.com/beaconmap/beaconmap-go/internal/geo"
	"github.com/beaconmap/beaconmap-go/internal/mapview"
	"github.com/beaconmap/beaconmap-go/internal/overlay"
	"github.com/beaconmap/beaconmap-go/internal/theme"
	"github.com/beaconmap/beaconmap-go/internal/track"
	"github.com/beaconmap/beaconmap-go/internal/ws"
)

// ViewMode represents the current view
type ViewMode int

const (
	ViewMap ViewMode = iota
	ViewHelp
)

const (
	sidebarWidth   = 36
	chromeHeight   = 3 // header, status bar, footer
	defaultWidth   = 120
	defaultHeight  = 36
	tickInterval   = 250 * time.Millisecond
	notifyDuration = 3 * time.Second
)

// Datasets fetched from the backend
const (
	datasetBeacons = "beacons"
	datasetPath    = "path"
	datasetTrack   = "track"
)

// Options carries the collaborators of a Model
type Options struct {
	// Client is the REST backend; required
	Client *api.Client
	// Stream, when set, replaces REST polling as the track source
	Stream    *ws.Client
	FloorPlan *geo.FloorPlan
	Logger    *slog.Logger
	// NewTicker overrides the synchronizer ticker (tests)
	NewTicker func(time.Duration) track.Ticker
}

// Model is the main application model
type Model struct {
	// Data, last known good
	beacons     []geo.Beacon
	path        []geo.Coordinate
	trackPoints []geo.Coordinate
	trackAt     time.Time
	// clearedSeq drops updates already in the message queue when the track was cleared
	clearedSeq uint64
	floorPlan  *geo.FloorPlan

	// Map and overlay
	view     *mapview.View
	renderer *overlay.Renderer
	handle   *overlay.Handle

	// Collaborators
	client *api.Client
	stream *ws.Client
	sync   *track.Synchronizer
	ctx    context.Context
	cancel context.CancelFunc
	logger *slog.Logger

	// UI state
	viewMode         ViewMode
	keys             KeyMap
	help             help.Model
	notification     string
	notifyUntil      time.Time
	failures         map[string]string
	width, height    int
	blink            bool
	lastRenderedView string
	closed           bool

	// Configuration
	config *config.Config
	theme  *theme.Theme
}

// NewModel creates the application model. Nothing runs until Init.
func NewModel(cfg *config.Config, opts Options) *Model {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	t := theme.Get(cfg.Display.Theme)

	view := mapview.New(mapview.Options{
		Center:     geo.Coordinate{X: cfg.Map.CenterLon, Y: cfg.Map.CenterLat},
		Zoom:       cfg.Map.Zoom,
		MinZoom:    cfg.Map.MinZoom,
		MaxZoom:    cfg.Map.MaxZoom,
		Width:      mapWidth(defaultWidth),
		Height:     mapHeight(defaultHeight),
		CellAspect: cfg.Map.CellAspect,
	})
	renderer := overlay.NewRenderer(overlay.Options{
		Grid:       cfg.GridOptions(),
		Theme:      t,
		ShowGrid:   cfg.Display.ShowGrid,
		ShowLabels: cfg.Display.ShowLabels,
		Logger:     logger,
	})

	var src track.Source = opts.Client
	if opts.Stream != nil {
		src = opts.Stream
	}
	synchronizer := track.NewSynchronizer(src, track.Options{
		DeviceID:     cfg.Tracking.DeviceID,
		Interval:     cfg.PollInterval(),
		Ordering:     track.ParseOrdering(cfg.Tracking.Ordering),
		FetchTimeout: cfg.Timeout(),
		FetchOnStart: true,
		NewTicker:    opts.NewTicker,
		Logger:       logger,
	})

	ctx, cancel := context.WithCancel(context.Background())
	h := help.New()
	h.ShowAll = false

	return &Model{
		beacons:   []geo.Beacon{},
		floorPlan: opts.FloorPlan,
		view:      view,
		renderer:  renderer,
		client:    opts.Client,
		stream:    opts.Stream,
		sync:      synchronizer,
		ctx:       ctx,
		cancel:    cancel,
		logger:    logger.With("component", "app"),
		viewMode:  ViewMap,
		keys:      DefaultKeyMap(),
		help:      h,
		failures:  make(map[string]string),
		width:     defaultWidth,
		height:    defaultHeight,
		config:    cfg,
		theme:     t,
	}
}

func mapWidth(total int) int  { return max(10, total-sidebarWidth-1) }
func mapHeight(total int) int { return max(5, total-chromeHeight) }

// Init mounts the overlay, starts track polling and loads beacons and path
func (m *Model) Init() tea.Cmd {
	m.mount()
	return tea.Batch(
		tickCmd(),
		m.fetchBeaconsCmd(),
		m.fetchPathCmd(),
		m.waitTrackCmd(),
	)
}

func (m *Model) mount() {
	if m.handle != nil || m.closed {
		return
	}
	m.handle = m.renderer.Mount(m.view)
	m.handle.SetBeacons(m.beacons)
	if m.stream != nil {
		m.stream.Start()
	}
	m.sync.Start(m.ctx)
}

// Shutdown unmounts the overlay, stops polling and saves the config. It is
// safe to call more than once.
func (m *Model) Shutdown() {
	if m.closed {
		return
	}
	m.closed = true
	m.sync.Stop()
	if m.stream != nil {
		m.stream.Stop()
	}
	m.cancel()
	m.handle.Close()
	if err := config.Save(m.config); err != nil {
		m.logger.Warn("saving config failed", "error", err)
	}
}

// tickMsg is sent on each UI tick
type tickMsg time.Time

// beaconsMsg carries a beacon fetch result
type beaconsMsg struct {
	beacons []geo.Beacon
	err     error
}

// pathMsg carries a reference path fetch result
type pathMsg struct {
	path []geo.Coordinate
	err  error
}

// trackMsg carries an applied track update
type trackMsg track.Update

// clearedMsg reports the backend track deletion
type clearedMsg struct{ err error }

func tickCmd() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m *Model) fetchBeaconsCmd() tea.Cmd {
	client, ctx := m.client, m.ctx
	return func() tea.Msg {
		b, err := client.Beacons(ctx)
		return beaconsMsg{beacons: b, err: err}
	}
}

func (m *Model) fetchPathCmd() tea.Cmd {
	client, ctx := m.client, m.ctx
	return func() tea.Msg {
		p, err := client.StandardPath(ctx)
		return pathMsg{path: p, err: err}
	}
}

func (m *Model) clearTrackCmd() tea.Cmd {
	client, ctx, device := m.client, m.ctx, m.config.Tracking.DeviceID
	return func() tea.Msg {
		return clearedMsg{err: client.ClearTrack(ctx, device)}
	}
}

// waitTrackCmd blocks until the synchronizer publishes or the model shuts down
func (m *Model) waitTrackCmd() tea.Cmd {
	updates, done := m.sync.Updates(), m.ctx.Done()
	return func() tea.Msg {
		select {
		case u := <-updates:
			return trackMsg(u)
		case <-done:
			return nil
		}
	}
}

// Update handles messages and updates state
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tickMsg:
		return m.handleTick(time.Time(msg))

	case beaconsMsg:
		m.applyBeacons(msg)
		return m, nil

	case pathMsg:
		m.applyPath(msg)
		return m, nil

	case trackMsg:
		m.applyTrack(track.Update(msg))
		if m.closed {
			return m, nil
		}
		return m, m.waitTrackCmd()

	case clearedMsg:
		if msg.err != nil {
			m.fail(datasetTrack, msg.err)
			return m, nil
		}
		m.notify("Track cleared")
		return m, nil
	}

	return m, nil
}

func (m *Model) resize(width, height int) {
	m.width, m.height = width, height
	m.help.Width = width
	// the overlay repaints itself from the resize event
	m.view.Resize(mapWidth(width), mapHeight(height))
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		m.Shutdown()
		return m, tea.Quit
	}

	if m.viewMode == ViewHelp {
		m.viewMode = ViewMap
		return m, nil
	}

	state := m.view.State()
	panX, panY := max(1, state.Width/8), max(1, state.Height/6)

	switch {
	case key.Matches(msg, m.keys.Up):
		m.view.Pan(0, -panY)
	case key.Matches(msg, m.keys.Down):
		m.view.Pan(0, panY)
	case key.Matches(msg, m.keys.Left):
		m.view.Pan(-panX, 0)
	case key.Matches(msg, m.keys.Right):
		m.view.Pan(panX, 0)
	case key.Matches(msg, m.keys.ZoomIn):
		m.view.ZoomIn()
		m.config.Map.Zoom = m.view.Zoom()
	case key.Matches(msg, m.keys.ZoomOut):
		m.view.ZoomOut()
		m.config.Map.Zoom = m.view.Zoom()
	case key.Matches(msg, m.keys.Center):
		m.centerOnDevice()
	case key.Matches(msg, m.keys.Fit):
		m.fitBeacons()
	case key.Matches(msg, m.keys.Grid):
		m.config.Display.ShowGrid = !m.config.Display.ShowGrid
		m.handle.SetGridVisible(m.config.Display.ShowGrid)
		m.notify("Grid: " + onOff(m.config.Display.ShowGrid))
	case key.Matches(msg, m.keys.Labels):
		m.config.Display.ShowLabels = !m.config.Display.ShowLabels
		m.handle.SetLabelsVisible(m.config.Display.ShowLabels)
		m.notify("Labels: " + onOff(m.config.Display.ShowLabels))
	case key.Matches(msg, m.keys.Path):
		m.config.Display.ShowPath = !m.config.Display.ShowPath
		m.notify("Path: " + onOff(m.config.Display.ShowPath))
	case key.Matches(msg, m.keys.Theme):
		m.setTheme(theme.Next(m.theme.Name))
	case key.Matches(msg, m.keys.Reload):
		m.notify("Reloading beacons and path")
		return m, tea.Batch(m.fetchBeaconsCmd(), m.fetchPathCmd())
	case key.Matches(msg, m.keys.ClearTrack):
		m.clearedSeq = m.sync.Clear()
		m.trackPoints = nil
		return m, m.clearTrackCmd()
	case key.Matches(msg, m.keys.ExportCSV):
		m.exportCSV()
	case key.Matches(msg, m.keys.ExportJSON):
		m.exportJSON()
	case key.Matches(msg, m.keys.Screenshot):
		m.exportScreenshot()
	case key.Matches(msg, m.keys.Help):
		m.viewMode = ViewHelp
	}
	return m, nil
}

func (m *Model) handleTick(now time.Time) (tea.Model, tea.Cmd) {
	if m.closed {
		return m, nil
	}
	m.blink = !m.blink
	if m.notification != "" && now.After(m.notifyUntil) {
		m.notification = ""
	}
	return m, tickCmd()
}

// applyBeacons replaces the whole beacon set, or keeps the old one on error
func (m *Model) applyBeacons(msg beaconsMsg) {
	if msg.err != nil {
		m.fail(datasetBeacons, msg.err)
		return
	}
	delete(m.failures, datasetBeacons)
	m.beacons = msg.beacons
	if m.beacons == nil {
		m.beacons = []geo.Beacon{}
	}
	m.handle.SetBeacons(m.beacons)
}

func (m *Model) applyPath(msg pathMsg) {
	if msg.err != nil {
		if errors.Is(msg.err, api.ErrNotFound) {
			// no reference path configured on the backend
			delete(m.failures, datasetPath)
			m.path = nil
			return
		}
		m.fail(datasetPath, msg.err)
		return
	}
	delete(m.failures, datasetPath)
	m.path = msg.path
}

func (m *Model) applyTrack(u track.Update) {
	if u.Seq <= m.clearedSeq {
		return
	}
	m.trackPoints = u.Points
	m.trackAt = u.At
}

// fail records a fetch failure without discarding data already shown
func (m *Model) fail(dataset string, err error) {
	if errors.Is(err, context.Canceled) {
		return
	}
	m.logger.Warn("fetch failed", "dataset", dataset, "error", err)
	m.failures[dataset] = err.Error()
	m.notify(dataset + " unavailable")
}

func (m *Model) centerOnDevice() {
	if len(m.trackPoints) == 0 {
		m.notify("No position yet")
		return
	}
	m.view.CenterOn(m.trackPoints[len(m.trackPoints)-1])
}

func (m *Model) fitBeacons() {
	b, ok := geo.CoordinatesBounds(geo.BeaconCoordinates(m.beacons))
	if !ok {
		m.notify("No beacons to fit")
		return
	}
	m.view.FitBounds(b)
	m.config.Map.Zoom = m.view.Zoom()
}

func (m *Model) setTheme(name string) {
	m.theme = theme.Get(name)
	m.config.Display.Theme = m.theme.Name
	m.renderer.SetTheme(m.theme)
	m.handle.Redraw(overlay.TriggerManual)
	m.notify("Theme: " + m.theme.Name)
}

func (m *Model) notify(message string) {
	m.notification = message
	m.notifyUntil = time.Now().Add(notifyDuration)
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

// IsConnected reports whether the track stream is up; REST mode is always "connected"
func (m *Model) IsConnected() bool {
	if m.stream != nil {
		return m.stream.IsConnected()
	}
	return m.sync.Stats().LastError == nil
}

// Scene returns what is drawn over the grid, honoring display toggles
func (m *Model) Scene() overlay.Scene {
	sc := overlay.Scene{
		FloorPlan: m.floorPlan,
		DeviceID:  m.config.Tracking.DeviceID,
	}
	if m.config.Display.ShowBeacons {
		sc.Beacons = m.beacons
	}
	if m.config.Display.ShowPath {
		sc.Path = m.path
	}
	if m.config.Display.ShowTrack {
		sc.Track = m.trackPoints
	}
	return sc
}

// Session snapshots the current data for exports
func (m *Model) Session() export.Session {
	state := m.view.State()
	step := 0.0
	if m.handle != nil {
		step = m.handle.Plan().Step
	}
	return export.Session{
		DeviceID: m.config.Tracking.DeviceID,
		Beacons:  m.beacons,
		Path:     m.path,
		Track:    m.trackPoints,
		View: &export.ViewExport{
			Center:   m.view.Center(),
			Zoom:     state.Zoom,
			Bounds:   state.Bounds,
			GridStep: step,
		},
	}
}

// SetLastRenderedView stores the last rendered view for screenshot exports
func (m *Model) SetLastRenderedView(view string) {
	m.lastRenderedView = view
}

// GetExportDirectory returns the configured export directory or current directory
func (m *Model) GetExportDirectory() string {
	return m.config.Export.Directory
}

// exportScreenshot saves the current view as HTML
func (m *Model) exportScreenshot() {
	if m.lastRenderedView == "" {
		m.notify("No view to export")
		return
	}
	filename, err := export.CaptureScreen(m.lastRenderedView, m.GetExportDirectory())
	if err != nil {
		m.notify("Export failed: " + err.Error())
		return
	}
	m.notify("Screenshot: " + filepath.Base(filename))
}

// exportCSV writes the track and the beacons to CSV
func (m *Model) exportCSV() {
	if len(m.trackPoints) == 0 && len(m.beacons) == 0 {
		m.notify("Nothing to export")
		return
	}
	dir := m.GetExportDirectory()
	var names []string
	if len(m.trackPoints) > 0 {
		filename, err := export.ExportTrackCSV(m.config.Tracking.DeviceID, m.trackPoints, dir)
		if err != nil {
			m.notify("Export failed: " + err.Error())
			return
		}
		names = append(names, filepath.Base(filename))
	}
	if len(m.beacons) > 0 {
		filename, err := export.ExportBeaconsCSV(m.beacons, dir)
		if err != nil {
			m.notify("Export failed: " + err.Error())
			return
		}
		names = append(names, filepath.Base(filename))
	}
	msg := "CSV:"
	for _, n := range names {
		msg += " " + n
	}
	m.notify(msg)
}

// exportJSON writes the session to JSON
func (m *Model) exportJSON() {
	filename, err := export.ExportSessionJSON(m.Session(), m.GetExportDirectory())
	if err != nil {
		m.notify("Export failed: " + err.Error())
		return
	}
	m.notify("JSON: " + filepath.Base(filename))
}
