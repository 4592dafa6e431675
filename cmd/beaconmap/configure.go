package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/beaconmap/beaconmap-go/internal/config"
	"github.com/beaconmap/beaconmap-go/internal/theme"
)

var configureCmd = &cobra.Command{
	Use:   "configure",
	Short: "Interactive configuration wizard",
	Long: `Launch an interactive wizard to configure Beacon Map settings.

The wizard guides you through configuring:
  - Connection settings (backend host, port, transport, device)
  - Display settings (theme, grid, labels, layers)
  - Map settings (initial center, zoom, grid step)

Settings are saved to ~/.config/beaconmap/settings.json

Examples:
  beaconmap configure`,
	RunE: runConfigure,
}

// Wizard sections
const (
	sectionWelcome = iota
	sectionConnection
	sectionDisplay
	sectionMap
	sectionSummary
)

// Field kinds
const (
	fieldText = iota
	fieldNumber
	fieldFloat
	fieldBool
	fieldSelect
)

type wizardField struct {
	name        string
	label       string
	help        string
	kind        int
	options     []string
	optionKeys  []string
	input       textinput.Model
	boolValue   bool
	selectIndex int
}

// editable reports whether the field takes typed input
func (f *wizardField) editable() bool { return f.kind <= fieldFloat }

// value returns the field's current value as shown in the summary
func (f *wizardField) value() string {
	switch f.kind {
	case fieldBool:
		if f.boolValue {
			return "ON"
		}
		return "OFF"
	case fieldSelect:
		return f.optionKeys[f.selectIndex]
	default:
		return f.input.Value()
	}
}

type wizardModel struct {
	cfg          *config.Config
	section      int
	fieldIndex   int
	fields       [][]wizardField
	sectionNames []string
	width        int
	height       int
	quitting     bool
	saved        bool
	err          error

	titleStyle    lipgloss.Style
	sectionStyle  lipgloss.Style
	labelStyle    lipgloss.Style
	valueStyle    lipgloss.Style
	helpStyle     lipgloss.Style
	selectedStyle lipgloss.Style
	dimStyle      lipgloss.Style
	successStyle  lipgloss.Style
	errorStyle    lipgloss.Style
}

func newWizardModel(cfg *config.Config) wizardModel {
	t := theme.Get(cfg.Display.Theme)
	m := wizardModel{
		cfg:          cfg,
		section:      sectionWelcome,
		sectionNames: []string{"Welcome", "Connection", "Display", "Map", "Summary"},
		width:        80,
		height:       24,

		titleStyle:    t.PrimaryBrightStyle().MarginBottom(1),
		sectionStyle:  lipgloss.NewStyle().Foreground(t.Secondary).Bold(true),
		labelStyle:    t.TextStyle(),
		valueStyle:    lipgloss.NewStyle().Foreground(t.Success),
		helpStyle:     t.TextDimStyle().Italic(true),
		selectedStyle: lipgloss.NewStyle().Foreground(t.Selected).Bold(true),
		dimStyle:      t.TextDimStyle(),
		successStyle:  t.SuccessStyle(),
		errorStyle:    t.ErrorStyle(),
	}

	var themeOptions, themeKeys []string
	themeIndex := 0
	for i, info := range theme.GetInfo() {
		themeOptions = append(themeOptions, fmt.Sprintf("%s - %s", info.Name, info.Description))
		themeKeys = append(themeKeys, info.Key)
		if info.Key == cfg.Display.Theme {
			themeIndex = i
		}
	}
	transports := []string{"rest", "websocket"}
	transportIndex := 0
	if cfg.Connection.Transport == "websocket" {
		transportIndex = 1
	}

	m.fields = make([][]wizardField, sectionSummary+1)
	m.fields[sectionConnection] = []wizardField{
		textField("host", "Backend Host", "Hostname or IP of the positioning backend", cfg.Connection.Host),
		numberField("port", "Backend Port", "Port of the REST API", cfg.Connection.Port),
		selectField("transport", "Track Transport", "Poll over REST or follow the websocket stream", []string{"REST polling", "WebSocket stream"}, transports, transportIndex),
		textField("device_id", "Device ID", "Device whose track is shown", cfg.Tracking.DeviceID),
		numberField("poll_interval_ms", "Poll Interval (ms)", "How often the track is requested", cfg.Tracking.PollIntervalMs),
	}
	m.fields[sectionDisplay] = []wizardField{
		selectField("theme", "Color Theme", "Visual theme for the map", themeOptions, themeKeys, themeIndex),
		boolField("show_grid", "Show Grid", "Draw the coordinate grid", cfg.Display.ShowGrid),
		boolField("show_labels", "Show Labels", "Label grid lines with their coordinate", cfg.Display.ShowLabels),
		boolField("show_path", "Show Path", "Draw the reference path", cfg.Display.ShowPath),
		boolField("show_track", "Show Track", "Draw the device track", cfg.Display.ShowTrack),
		boolField("show_beacons", "Show Beacons", "Draw beacon markers", cfg.Display.ShowBeacons),
	}
	m.fields[sectionMap] = []wizardField{
		floatField("center_lat", "Center Latitude", "Initial map latitude (-90 to 90)", cfg.Map.CenterLat),
		floatField("center_lon", "Center Longitude", "Initial map longitude (-180 to 180)", cfg.Map.CenterLon),
		numberField("zoom", "Zoom", "Initial zoom level", cfg.Map.Zoom),
		floatField("base_step", "Grid Step (deg)", "Grid spacing at the reference zoom", cfg.Grid.BaseStep),
	}
	return m
}

func newInput(value string, limit, width int) textinput.Model {
	ti := textinput.New()
	ti.SetValue(value)
	ti.CharLimit = limit
	ti.Width = width
	return ti
}

func textField(name, label, help, value string) wizardField {
	return wizardField{name: name, label: label, help: help, kind: fieldText, input: newInput(value, 256, 40)}
}

func numberField(name, label, help string, value int) wizardField {
	return wizardField{name: name, label: label, help: help, kind: fieldNumber, input: newInput(strconv.Itoa(value), 10, 20)}
}

func floatField(name, label, help string, value float64) wizardField {
	return wizardField{name: name, label: label, help: help, kind: fieldFloat, input: newInput(strconv.FormatFloat(value, 'f', -1, 64), 20, 25)}
}

func boolField(name, label, help string, value bool) wizardField {
	return wizardField{name: name, label: label, help: help, kind: fieldBool, boolValue: value}
}

func selectField(name, label, help string, options, keys []string, selected int) wizardField {
	return wizardField{name: name, label: label, help: help, kind: fieldSelect, options: options, optionKeys: keys, selectIndex: selected}
}

func (m wizardModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m wizardModel) inFields() bool {
	return m.section > sectionWelcome && m.section < sectionSummary
}

func (m *wizardModel) current() *wizardField {
	return &m.fields[m.section][m.fieldIndex]
}

func (m *wizardModel) focus() {
	if m.inFields() && m.current().editable() {
		m.current().input.Focus()
	}
}

func (m *wizardModel) blur() {
	if m.inFields() {
		m.current().input.Blur()
	}
}

func (m wizardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		case "q":
			if !m.inFields() {
				m.quitting = true
				return m, tea.Quit
			}
		case "esc":
			if m.section > sectionWelcome {
				m.blur()
				m.section--
				m.fieldIndex = 0
				m.focus()
			}
			return m, nil
		case "enter":
			return m.handleEnter()
		case "tab", "down":
			return m.handleNext()
		case "shift+tab", "up":
			return m.handlePrev()
		case "left", "right", " ":
			if m.inFields() {
				m.current().cycle(msg.String())
				if !m.current().editable() {
					return m, nil
				}
			}
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	}

	if m.inFields() && m.current().editable() {
		f := m.current()
		var cmd tea.Cmd
		f.input, cmd = f.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

// cycle toggles bool fields and steps select fields
func (f *wizardField) cycle(key string) {
	switch f.kind {
	case fieldBool:
		f.boolValue = !f.boolValue
	case fieldSelect:
		switch key {
		case "left":
			if f.selectIndex > 0 {
				f.selectIndex--
			}
		case "right", " ":
			f.selectIndex = (f.selectIndex + 1) % len(f.options)
		}
	}
}

func (m wizardModel) handleEnter() (tea.Model, tea.Cmd) {
	if m.section == sectionSummary {
		m.applyFields()
		if err := m.cfg.Validate(); err != nil {
			m.err = err
		} else if err := config.Save(m.cfg); err != nil {
			m.err = err
		} else {
			m.saved = true
		}
		m.quitting = true
		return m, tea.Quit
	}
	return m.handleNext()
}

func (m wizardModel) handleNext() (tea.Model, tea.Cmd) {
	if m.section == sectionSummary {
		return m, nil
	}
	m.blur()
	if m.section == sectionWelcome {
		m.section = sectionConnection
		m.fieldIndex = 0
	} else {
		m.fieldIndex++
		if m.fieldIndex >= len(m.fields[m.section]) {
			m.section++
			m.fieldIndex = 0
		}
	}
	m.focus()
	return m, nil
}

func (m wizardModel) handlePrev() (tea.Model, tea.Cmd) {
	if m.section == sectionWelcome {
		return m, nil
	}
	m.blur()
	m.fieldIndex--
	if m.fieldIndex < 0 {
		if m.section > sectionConnection {
			m.section--
			m.fieldIndex = len(m.fields[m.section]) - 1
		} else {
			m.fieldIndex = 0
		}
	}
	m.focus()
	return m, nil
}

// applyFields copies the wizard values into the config. Unparseable numbers
// leave the old value in place.
func (m *wizardModel) applyFields() {
	c := m.cfg
	setInt := func(dst *int, s string) {
		if v, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			*dst = v
		}
	}
	setFloat := func(dst *float64, s string) {
		if v, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			*dst = v
		}
	}

	for _, section := range m.fields {
		for i := range section {
			f := &section[i]
			v := f.value()
			switch f.name {
			case "host":
				c.Connection.Host = strings.TrimSpace(v)
			case "port":
				setInt(&c.Connection.Port, v)
			case "transport":
				c.Connection.Transport = v
			case "device_id":
				c.Tracking.DeviceID = strings.TrimSpace(v)
			case "poll_interval_ms":
				setInt(&c.Tracking.PollIntervalMs, v)
			case "theme":
				c.Display.Theme = v
			case "show_grid":
				c.Display.ShowGrid = f.boolValue
			case "show_labels":
				c.Display.ShowLabels = f.boolValue
			case "show_path":
				c.Display.ShowPath = f.boolValue
			case "show_track":
				c.Display.ShowTrack = f.boolValue
			case "show_beacons":
				c.Display.ShowBeacons = f.boolValue
			case "center_lat":
				setFloat(&c.Map.CenterLat, v)
			case "center_lon":
				setFloat(&c.Map.CenterLon, v)
			case "zoom":
				setInt(&c.Map.Zoom, v)
			case "base_step":
				setFloat(&c.Grid.BaseStep, v)
			}
		}
	}
}

func (m wizardModel) View() string {
	if m.quitting {
		if m.err != nil {
			return m.errorStyle.Render(fmt.Sprintf("\n  Error saving configuration: %v\n\n", m.err))
		}
		if m.saved {
			return m.successStyle.Render(fmt.Sprintf("\n  Configuration saved to %s\n\n", config.GetConfigPath()))
		}
		return "\n  Configuration wizard cancelled.\n\n"
	}

	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(m.titleStyle.Render("  BEACON MAP CONFIGURATION"))
	b.WriteString("\n\n  ")

	// Progress indicator
	for i, name := range m.sectionNames {
		label := fmt.Sprintf("[%s]", name)
		switch {
		case i == m.section:
			b.WriteString(m.selectedStyle.Render(label))
		case i < m.section:
			b.WriteString(m.successStyle.Render(label))
		default:
			b.WriteString(m.dimStyle.Render(label))
		}
		if i < len(m.sectionNames)-1 {
			b.WriteString(m.dimStyle.Render(" > "))
		}
	}
	b.WriteString("\n\n")

	switch m.section {
	case sectionWelcome:
		b.WriteString(m.renderWelcome())
	case sectionSummary:
		b.WriteString(m.renderSummary())
	default:
		b.WriteString(m.renderFields())
	}

	b.WriteString("\n")
	switch m.section {
	case sectionWelcome:
		b.WriteString(m.helpStyle.Render("  Press Enter to start, q to quit"))
	case sectionSummary:
		b.WriteString(m.helpStyle.Render("  Press Enter to save, Esc to go back, q to quit without saving"))
	default:
		b.WriteString(m.helpStyle.Render("  Tab/Down: next  Shift+Tab/Up: previous  Space: toggle  Esc: back"))
	}
	b.WriteString("\n")
	return b.String()
}

func (m wizardModel) renderWelcome() string {
	welcome := `  Welcome to the Beacon Map configuration wizard!

  This wizard will help you configure:

    1. Connection  - Backend address, transport and tracked device
    2. Display     - Theme, grid and map layers
    3. Map         - Initial center, zoom and grid spacing

  Your settings will be saved to:
    ` + config.GetConfigPath() + `

  Command-line flags and BEACONMAP_* environment variables
  override individual settings.`
	return m.labelStyle.Render(welcome) + "\n"
}

func (m wizardModel) renderFields() string {
	var b strings.Builder
	b.WriteString(m.sectionStyle.Render(fmt.Sprintf("  %s Settings", m.sectionNames[m.section])))
	b.WriteString("\n\n")

	for i := range m.fields[m.section] {
		f := &m.fields[m.section][i]
		selected := i == m.fieldIndex
		if selected {
			b.WriteString(m.selectedStyle.Render(fmt.Sprintf("  > %s: ", f.label)))
		} else {
			b.WriteString(m.labelStyle.Render(fmt.Sprintf("    %s: ", f.label)))
		}

		switch f.kind {
		case fieldBool:
			if f.boolValue {
				b.WriteString(m.successStyle.Render("[ON] ") + m.dimStyle.Render("OFF"))
			} else {
				b.WriteString(m.dimStyle.Render("ON ") + m.errorStyle.Render("[OFF]"))
			}
		case fieldSelect:
			opt := m.valueStyle.Render(f.options[f.selectIndex])
			if selected {
				opt = m.dimStyle.Render("< ") + opt + m.dimStyle.Render(" >")
			}
			b.WriteString(opt)
		default:
			if selected {
				b.WriteString(f.input.View())
			} else {
				b.WriteString(m.valueStyle.Render(f.input.Value()))
			}
		}
		b.WriteString("\n")

		if selected && f.help != "" {
			b.WriteString(m.helpStyle.Render("      " + f.help))
			b.WriteString("\n")
		}
	}
	return b.String()
}

func (m wizardModel) renderSummary() string {
	var b strings.Builder
	b.WriteString(m.sectionStyle.Render("  Configuration Summary"))
	b.WriteString("\n\n")

	for s := sectionConnection; s < sectionSummary; s++ {
		b.WriteString(m.labelStyle.Render("  " + m.sectionNames[s] + ":"))
		b.WriteString("\n")
		for i := range m.fields[s] {
			f := &m.fields[s][i]
			b.WriteString(fmt.Sprintf("    %s: %s\n", m.dimStyle.Render(f.label), m.valueStyle.Render(f.value())))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func runConfigure(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	p := tea.NewProgram(newWizardModel(cfg))
	final, err := p.Run()
	if err != nil {
		return err
	}
	if wm, ok := final.(wizardModel); ok && wm.err != nil {
		return wm.err
	}
	return nil
}
