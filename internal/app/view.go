package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/beaconmap/beaconmap-go/internal/geo"
	"github.com/beaconmap/beaconmap-go/internal/overlay"
)

// maxSidebarBeacons caps the beacon list so the panel fits short terminals
const maxSidebarBeacons = 8

// View renders the application
func (m *Model) View() string {
	var sb strings.Builder

	sb.WriteString(m.renderHeader())
	sb.WriteString("\n")

	var side string
	if m.viewMode == ViewHelp {
		side = m.renderHelpPanel()
	} else {
		side = m.renderSidebar()
	}
	body := lipgloss.JoinHorizontal(lipgloss.Top, m.renderMap(), " ", side)
	sb.WriteString(body)
	sb.WriteString("\n")

	sb.WriteString(m.renderStatusBar())
	sb.WriteString("\n")
	sb.WriteString(m.renderFooter())

	result := sb.String()

	// Store last rendered view for screenshot exports
	m.lastRenderedView = result
	return result
}

// renderMap composes the grid layer with the data layers
func (m *Model) renderMap() string {
	if m.handle == nil || m.handle.Closed() {
		return ""
	}
	frame := m.handle.Surface()
	overlay.DrawScene(frame, m.view.Projector(), m.Scene(), m.theme)
	return frame.Render(m.theme.Text)
}

func (m *Model) renderHeader() string {
	title := lipgloss.NewStyle().Foreground(m.theme.PrimaryBright).Bold(true).Reverse(true)
	dim := m.theme.TextDimStyle()
	live := lipgloss.NewStyle().Foreground(m.theme.Secondary).Bold(true)

	var sb strings.Builder
	sb.WriteString(title.Render(" BEACON MAP "))
	sb.WriteString(dim.Render(" device "))
	sb.WriteString(live.Render(m.config.Tracking.DeviceID))
	sb.WriteString(dim.Render("  via " + strings.ToUpper(m.transport())))
	return lipgloss.NewStyle().MaxWidth(max(1, m.width)).Render(sb.String())
}

func (m *Model) transport() string {
	if m.stream != nil {
		return "websocket"
	}
	return "rest"
}

func (m *Model) renderSidebar() string {
	section := lipgloss.NewStyle().Foreground(m.theme.Secondary).Bold(true)
	label := m.theme.TextDimStyle()
	value := m.theme.TextStyle()
	warn := m.theme.WarningStyle()
	rule := m.theme.BorderStyle().Render(strings.Repeat("─", sidebarWidth-2))

	var lines []string
	add := func(s string) { lines = append(lines, s) }
	row := func(k, v string) { add(label.Render(fmt.Sprintf(" %-9s", k)) + value.Render(v)) }

	// Beacons
	add(section.Render(fmt.Sprintf(" BEACONS (%d)", len(m.beacons))))
	add(rule)
	for i, b := range m.beacons {
		if i == maxSidebarBeacons {
			add(label.Render(fmt.Sprintf("  … %d more", len(m.beacons)-i)))
			break
		}
		add(lipgloss.NewStyle().Foreground(m.theme.Beacon).Render(" "+string(overlay.GlyphBeacon)+" ") +
			value.Render(fmt.Sprintf("%-8s %s", truncate(b.ID, 8), formatCoordinate(b.Position))))
	}
	if len(m.beacons) == 0 {
		add(label.Render("  none"))
	}
	add("")

	// Track
	add(section.Render(" TRACK"))
	add(rule)
	row("points", fmt.Sprintf("%d", len(m.trackPoints)))
	if n := len(m.trackPoints); n > 0 {
		row("position", formatCoordinate(m.trackPoints[n-1]))
		row("updated", formatAge(time.Since(m.trackAt)))
	} else {
		row("position", "-")
	}
	st := m.sync.Stats()
	row("polls", fmt.Sprintf("%d ok %d err", st.Applied, st.Errors))
	add("")

	// View
	state := m.view.State()
	add(section.Render(" VIEW"))
	add(rule)
	row("zoom", fmt.Sprintf("%d", state.Zoom))
	if m.handle != nil {
		plan := m.handle.Plan()
		step := fmt.Sprintf("%g°", plan.Step)
		if plan.Truncated {
			step += " (capped)"
		}
		row("grid", step)
	}
	row("center", formatCoordinate(m.view.Center()))
	row("layers", m.layerFlags())
	add("")

	// Link
	add(section.Render(" LINK"))
	add(rule)
	if m.IsConnected() {
		row("status", "online")
	} else {
		add(label.Render(fmt.Sprintf(" %-9s", "status")) + warn.Render("offline"))
	}
	for _, ds := range []string{datasetBeacons, datasetPath, datasetTrack} {
		if msg, ok := m.failures[ds]; ok {
			add(warn.Render(" ! " + truncate(ds+": "+msg, sidebarWidth-4)))
		}
	}

	return lipgloss.NewStyle().Width(sidebarWidth).Render(strings.Join(lines, "\n"))
}

func (m *Model) layerFlags() string {
	flags := []struct {
		on   bool
		name string
	}{
		{m.config.Display.ShowGrid, "G"},
		{m.config.Display.ShowLabels, "L"},
		{m.config.Display.ShowPath, "P"},
		{m.config.Display.ShowTrack, "T"},
		{m.config.Display.ShowBeacons, "B"},
	}
	var sb strings.Builder
	for _, f := range flags {
		if f.on {
			sb.WriteString(f.name)
		} else {
			sb.WriteString("·")
		}
	}
	return sb.String()
}

func (m *Model) renderHelpPanel() string {
	title := lipgloss.NewStyle().Foreground(m.theme.PrimaryBright).Bold(true)
	keyStyle := lipgloss.NewStyle().Foreground(m.theme.PrimaryBright)
	rule := m.theme.BorderStyle().Render(strings.Repeat("─", sidebarWidth-2))

	var sb strings.Builder
	sb.WriteString(title.Render(" KEYS"))
	sb.WriteString("\n")
	for _, group := range m.keys.FullHelp() {
		sb.WriteString(rule)
		sb.WriteString("\n")
		for _, b := range group {
			h := b.Help()
			sb.WriteString(" " + keyStyle.Render(fmt.Sprintf("[%6s]", h.Key)) + " " + m.theme.TextStyle().Render(h.Desc))
			sb.WriteString("\n")
		}
	}
	sb.WriteString("\n")
	sb.WriteString(m.theme.TextDimStyle().Render(" Press any key to close"))
	return lipgloss.NewStyle().Width(sidebarWidth).Render(sb.String())
}

func (m *Model) renderStatusBar() string {
	ok := m.theme.SuccessStyle().Bold(true)
	bad := m.theme.ErrorStyle().Bold(true)
	dim := m.theme.TextDimStyle()
	info := lipgloss.NewStyle().Foreground(m.theme.Secondary).Bold(true)
	sep := m.theme.BorderStyle().Render("│")

	var sb strings.Builder
	if m.IsConnected() {
		ind := "◉"
		if !m.blink {
			ind = "○"
		}
		sb.WriteString(ok.Render(ind + " ON "))
	} else {
		sb.WriteString(bad.Render("○ OFF "))
	}
	sb.WriteString(sep)
	sb.WriteString(dim.Render(fmt.Sprintf(" z%d ", m.view.Zoom())))
	sb.WriteString(sep)
	sb.WriteString(dim.Render(" " + m.theme.Name + " "))
	sb.WriteString(sep)
	sb.WriteString(dim.Render(" " + time.Now().Format("15:04:05") + " "))
	if m.notification != "" {
		sb.WriteString(sep)
		sb.WriteString(info.Render(" " + m.notification + " "))
	}
	return lipgloss.NewStyle().MaxWidth(max(1, m.width)).Render(sb.String())
}

func (m *Model) renderFooter() string {
	return m.help.View(m.keys)
}

func formatCoordinate(c geo.Coordinate) string {
	if !c.Valid() {
		return "-"
	}
	return fmt.Sprintf("%.6f, %.6f", c.Y, c.X)
}

func formatAge(d time.Duration) string {
	switch {
	case d < time.Second:
		return "just now"
	case d < time.Minute:
		return fmt.Sprintf("%ds ago", int(d.Seconds()))
	default:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}
