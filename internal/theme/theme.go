// Package theme provides color schemes for the beacon map display
package theme

import "github.com/charmbracelet/lipgloss"

// DefaultTheme is used when a theme name is unknown
const DefaultTheme = "daylight"

// Theme defines a color scheme for the map and its panels
type Theme struct {
	Name        string
	Description string

	// Panel colors
	Primary       lipgloss.Color
	PrimaryBright lipgloss.Color
	Secondary     lipgloss.Color

	// Status colors
	Success lipgloss.Color
	Warning lipgloss.Color
	Error   lipgloss.Color

	// UI elements
	Border   lipgloss.Color
	Text     lipgloss.Color
	TextDim  lipgloss.Color
	Selected lipgloss.Color

	// Map layers
	Grid      lipgloss.Color
	GridLabel lipgloss.Color
	FloorPlan lipgloss.Color
	Landmark  lipgloss.Color
	Beacon    lipgloss.Color
	Path      lipgloss.Color
	Track     lipgloss.Color
	TrackHead lipgloss.Color
}

// order is the cycle order used by List and the theme key
var order = []string{"daylight", "night", "blueprint", "amber", "high_contrast", "mono"}

var themes = map[string]*Theme{
	"daylight": {
		Name:          "Daylight",
		Description:   "Light grid with blue path and red track, like a paper map",
		Primary:       lipgloss.Color("33"),  // blue
		PrimaryBright: lipgloss.Color("39"),  // bright_blue
		Secondary:     lipgloss.Color("37"),  // cyan
		Success:       lipgloss.Color("34"),  // green
		Warning:       lipgloss.Color("214"), // orange
		Error:         lipgloss.Color("196"), // bright_red
		Border:        lipgloss.Color("33"),  // blue
		Text:          lipgloss.Color("252"), // light_grey
		TextDim:       lipgloss.Color("245"), // grey
		Selected:      lipgloss.Color("226"), // bright_yellow
		Grid:          lipgloss.Color("240"), // dark_grey
		GridLabel:     lipgloss.Color("245"), // grey
		FloorPlan:     lipgloss.Color("137"), // tan
		Landmark:      lipgloss.Color("180"), // light_tan
		Beacon:        lipgloss.Color("34"),  // green
		Path:          lipgloss.Color("33"),  // blue
		Track:         lipgloss.Color("196"), // red
		TrackHead:     lipgloss.Color("226"), // bright_yellow
	},
	"night": {
		Name:          "Night",
		Description:   "Dim palette for dark rooms",
		Primary:       lipgloss.Color("60"),  // slate
		PrimaryBright: lipgloss.Color("104"), // lavender
		Secondary:     lipgloss.Color("66"),  // teal
		Success:       lipgloss.Color("71"),  // muted_green
		Warning:       lipgloss.Color("136"), // dark_yellow
		Error:         lipgloss.Color("124"), // dark_red
		Border:        lipgloss.Color("60"),  // slate
		Text:          lipgloss.Color("248"), // grey
		TextDim:       lipgloss.Color("240"), // dark_grey
		Selected:      lipgloss.Color("179"), // gold
		Grid:          lipgloss.Color("236"), // near_black
		GridLabel:     lipgloss.Color("239"), // dark_grey
		FloorPlan:     lipgloss.Color("95"),  // brown
		Landmark:      lipgloss.Color("138"), // rose_grey
		Beacon:        lipgloss.Color("71"),  // muted_green
		Path:          lipgloss.Color("67"),  // steel_blue
		Track:         lipgloss.Color("131"), // brick
		TrackHead:     lipgloss.Color("179"), // gold
	},
	"blueprint": {
		Name:          "Blueprint",
		Description:   "White lines on architect blue",
		Primary:       lipgloss.Color("#4FA3FF"),
		PrimaryBright: lipgloss.Color("#A8D4FF"),
		Secondary:     lipgloss.Color("#7FDBFF"),
		Success:       lipgloss.Color("#7CFC9A"),
		Warning:       lipgloss.Color("#FFD166"),
		Error:         lipgloss.Color("#FF6B6B"),
		Border:        lipgloss.Color("#4FA3FF"),
		Text:          lipgloss.Color("#E6F1FF"),
		TextDim:       lipgloss.Color("#8AA9CC"),
		Selected:      lipgloss.Color("#FFFFFF"),
		Grid:          lipgloss.Color("#2F5D8C"),
		GridLabel:     lipgloss.Color("#5B88B8"),
		FloorPlan:     lipgloss.Color("#E6F1FF"),
		Landmark:      lipgloss.Color("#A8D4FF"),
		Beacon:        lipgloss.Color("#7CFC9A"),
		Path:          lipgloss.Color("#7FDBFF"),
		Track:         lipgloss.Color("#FF6B6B"),
		TrackHead:     lipgloss.Color("#FFD166"),
	},
	"amber": {
		Name:          "Amber",
		Description:   "Vintage amber monochrome display",
		Primary:       lipgloss.Color("178"), // yellow
		PrimaryBright: lipgloss.Color("226"), // bright_yellow
		Secondary:     lipgloss.Color("214"), // orange
		Success:       lipgloss.Color("226"), // bright_yellow
		Warning:       lipgloss.Color("231"), // bright_white
		Error:         lipgloss.Color("196"), // bright_red
		Border:        lipgloss.Color("178"), // yellow
		Text:          lipgloss.Color("178"), // yellow
		TextDim:       lipgloss.Color("130"), // dark_orange
		Selected:      lipgloss.Color("231"), // bright_white
		Grid:          lipgloss.Color("94"),  // brown
		GridLabel:     lipgloss.Color("130"), // dark_orange
		FloorPlan:     lipgloss.Color("136"), // dark_yellow
		Landmark:      lipgloss.Color("178"), // yellow
		Beacon:        lipgloss.Color("226"), // bright_yellow
		Path:          lipgloss.Color("214"), // orange
		Track:         lipgloss.Color("231"), // bright_white
		TrackHead:     lipgloss.Color("226"), // bright_yellow
	},
	"high_contrast": {
		Name:          "High Contrast",
		Description:   "Maximum visibility",
		Primary:       lipgloss.Color("231"), // bright_white
		PrimaryBright: lipgloss.Color("231"), // bright_white
		Secondary:     lipgloss.Color("51"),  // bright_cyan
		Success:       lipgloss.Color("46"),  // bright_green
		Warning:       lipgloss.Color("226"), // bright_yellow
		Error:         lipgloss.Color("196"), // bright_red
		Border:        lipgloss.Color("231"), // bright_white
		Text:          lipgloss.Color("231"), // bright_white
		TextDim:       lipgloss.Color("250"), // white
		Selected:      lipgloss.Color("226"), // bright_yellow
		Grid:          lipgloss.Color("244"), // grey
		GridLabel:     lipgloss.Color("250"), // white
		FloorPlan:     lipgloss.Color("231"), // bright_white
		Landmark:      lipgloss.Color("231"), // bright_white
		Beacon:        lipgloss.Color("46"),  // bright_green
		Path:          lipgloss.Color("51"),  // bright_cyan
		Track:         lipgloss.Color("201"), // bright_magenta
		TrackHead:     lipgloss.Color("226"), // bright_yellow
	},
	"mono": {
		Name:          "Monochrome",
		Description:   "Greyscale only, for screenshots and printing",
		Primary:       lipgloss.Color("#D0D0D0"),
		PrimaryBright: lipgloss.Color("#FFFFFF"),
		Secondary:     lipgloss.Color("#A0A0A0"),
		Success:       lipgloss.Color("#FFFFFF"),
		Warning:       lipgloss.Color("#D0D0D0"),
		Error:         lipgloss.Color("#FFFFFF"),
		Border:        lipgloss.Color("#808080"),
		Text:          lipgloss.Color("#D0D0D0"),
		TextDim:       lipgloss.Color("#808080"),
		Selected:      lipgloss.Color("#FFFFFF"),
		Grid:          lipgloss.Color("#404040"),
		GridLabel:     lipgloss.Color("#707070"),
		FloorPlan:     lipgloss.Color("#A0A0A0"),
		Landmark:      lipgloss.Color("#B0B0B0"),
		Beacon:        lipgloss.Color("#FFFFFF"),
		Path:          lipgloss.Color("#909090"),
		Track:         lipgloss.Color("#E0E0E0"),
		TrackHead:     lipgloss.Color("#FFFFFF"),
	},
}

// Get returns a theme by name, defaults to daylight if not found
func Get(name string) *Theme {
	if t, ok := themes[name]; ok {
		return t
	}
	return themes[DefaultTheme]
}

// Exists reports whether name is a known theme key
func Exists(name string) bool {
	_, ok := themes[name]
	return ok
}

// List returns all available theme names in display order
func List() []string {
	names := make([]string, len(order))
	copy(names, order)
	return names
}

// Next returns the theme key following name in display order
func Next(name string) string {
	for i, key := range order {
		if key == name {
			return order[(i+1)%len(order)]
		}
	}
	return order[0]
}

// ThemeInfo contains theme metadata for display
type ThemeInfo struct {
	Key         string
	Name        string
	Description string
}

// GetInfo returns information about all themes
func GetInfo() []ThemeInfo {
	info := make([]ThemeInfo, 0, len(order))
	for _, key := range order {
		t := themes[key]
		info = append(info, ThemeInfo{
			Key:         key,
			Name:        t.Name,
			Description: t.Description,
		})
	}
	return info
}

// Style helpers for creating lipgloss styles

// PrimaryStyle returns a style using the primary color
func (t *Theme) PrimaryStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Primary)
}

// PrimaryBrightStyle returns a bold style using the bright primary color
func (t *Theme) PrimaryBrightStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.PrimaryBright).Bold(true)
}

// SecondaryStyle returns a style using the secondary color
func (t *Theme) SecondaryStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Secondary)
}

// BorderStyle returns a style using the border color
func (t *Theme) BorderStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Border)
}

// TextStyle returns a style using the text color
func (t *Theme) TextStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Text)
}

// TextDimStyle returns a style using the dim text color
func (t *Theme) TextDimStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.TextDim)
}

// SuccessStyle returns a style using the success color
func (t *Theme) SuccessStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Success)
}

// WarningStyle returns a style using the warning color
func (t *Theme) WarningStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Warning)
}

// ErrorStyle returns a style using the error color
func (t *Theme) ErrorStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Error)
}

// LayerStyle returns a style for one of the map layer colors
func (t *Theme) LayerStyle(c lipgloss.Color) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(c)
}
