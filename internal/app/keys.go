package app

import "github.com/charmbracelet/bubbles/key"

// KeyMap holds the map screen bindings
type KeyMap struct {
	Up         key.Binding
	Down       key.Binding
	Left       key.Binding
	Right      key.Binding
	ZoomIn     key.Binding
	ZoomOut    key.Binding
	Center     key.Binding
	Fit        key.Binding
	Grid       key.Binding
	Labels     key.Binding
	Path       key.Binding
	Theme      key.Binding
	Reload     key.Binding
	ClearTrack key.Binding
	ExportCSV  key.Binding
	ExportJSON key.Binding
	Screenshot key.Binding
	Help       key.Binding
	Quit       key.Binding
}

// DefaultKeyMap returns the standard bindings
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up:         key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "pan north")),
		Down:       key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "pan south")),
		Left:       key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "pan west")),
		Right:      key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "pan east")),
		ZoomIn:     key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "zoom in")),
		ZoomOut:    key.NewBinding(key.WithKeys("-", "_"), key.WithHelp("-", "zoom out")),
		Center:     key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "center on device")),
		Fit:        key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "fit beacons")),
		Grid:       key.NewBinding(key.WithKeys("g"), key.WithHelp("g", "grid")),
		Labels:     key.NewBinding(key.WithKeys("L"), key.WithHelp("L", "labels")),
		Path:       key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "path")),
		Theme:      key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "theme")),
		Reload:     key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload beacons")),
		ClearTrack: key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "clear track")),
		ExportCSV:  key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "export CSV")),
		ExportJSON: key.NewBinding(key.WithKeys("ctrl+e"), key.WithHelp("ctrl+e", "export JSON")),
		Screenshot: key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "screenshot")),
		Help:       key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:       key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// ShortHelp is shown in the footer
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.ZoomIn, k.ZoomOut, k.Center, k.Fit, k.Grid, k.Help, k.Quit}
}

// FullHelp is shown in the help panel
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Left, k.Right, k.ZoomIn, k.ZoomOut},
		{k.Center, k.Fit, k.Grid, k.Labels, k.Path, k.Theme},
		{k.Reload, k.ClearTrack, k.ExportCSV, k.ExportJSON, k.Screenshot, k.Help, k.Quit},
	}
}
