package main

import (
	"os"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/beaconmap/beaconmap-go/internal/config"
)

func press(m wizardModel, keys ...string) wizardModel {
	for _, k := range keys {
		var msg tea.KeyMsg
		switch k {
		case "enter":
			msg = tea.KeyMsg{Type: tea.KeyEnter}
		case "tab":
			msg = tea.KeyMsg{Type: tea.KeyTab}
		case "shift+tab":
			msg = tea.KeyMsg{Type: tea.KeyShiftTab}
		case "esc":
			msg = tea.KeyMsg{Type: tea.KeyEsc}
		case "left":
			msg = tea.KeyMsg{Type: tea.KeyLeft}
		case "right":
			msg = tea.KeyMsg{Type: tea.KeyRight}
		case "space":
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{' '}}
		case "backspace":
			msg = tea.KeyMsg{Type: tea.KeyBackspace}
		default:
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
		}
		next, _ := m.Update(msg)
		m = next.(wizardModel)
	}
	return m
}

func TestWizard_Sections(t *testing.T) {
	m := newWizardModel(config.DefaultConfig())
	if m.section != sectionWelcome {
		t.Fatalf("Expected welcome, got %d", m.section)
	}
	if !strings.Contains(m.View(), "BEACON MAP CONFIGURATION") {
		t.Error("Expected wizard title")
	}

	m = press(m, "enter")
	if m.section != sectionConnection || m.fieldIndex != 0 {
		t.Fatalf("Expected first connection field, got %d/%d", m.section, m.fieldIndex)
	}
	if !m.current().input.Focused() {
		t.Error("Host field should be focused")
	}

	for range m.fields[sectionConnection] {
		m = press(m, "tab")
	}
	if m.section != sectionDisplay {
		t.Errorf("Expected display section, got %d", m.section)
	}

	m = press(m, "shift+tab")
	if m.section != sectionConnection || m.fieldIndex != len(m.fields[sectionConnection])-1 {
		t.Errorf("shift+tab should go back to the last connection field, got %d/%d", m.section, m.fieldIndex)
	}

	m = press(m, "esc")
	if m.section != sectionWelcome {
		t.Errorf("esc should go back a section, got %d", m.section)
	}
}

func TestWizard_EditAndApply(t *testing.T) {
	cfg := config.DefaultConfig()
	m := newWizardModel(cfg)
	m = press(m, "enter")

	// host: replace localhost with backend
	for range "localhost" {
		m = press(m, "backspace")
	}
	m = press(m, "backend")
	// port, then transport
	m = press(m, "tab", "tab", "right")
	if got := m.current().value(); got != "websocket" {
		t.Errorf("Expected websocket transport selected, got %q", got)
	}
	// device id, poll interval, first display field (theme), show grid
	m = press(m, "tab", "tab", "tab", "tab", "space")
	if m.current().name != "show_grid" || m.current().boolValue {
		t.Errorf("Expected show_grid toggled off, got %s=%v", m.current().name, m.current().boolValue)
	}

	m.applyFields()
	if cfg.Connection.Host != "backend" {
		t.Errorf("Host = %q, want backend", cfg.Connection.Host)
	}
	if cfg.Connection.Transport != "websocket" {
		t.Errorf("Transport = %q", cfg.Connection.Transport)
	}
	if cfg.Display.ShowGrid {
		t.Error("ShowGrid should be off")
	}
	if cfg.Connection.Port != 8000 {
		t.Errorf("Untouched port changed to %d", cfg.Connection.Port)
	}
}

func TestWizard_BadNumberKeepsValue(t *testing.T) {
	cfg := config.DefaultConfig()
	m := newWizardModel(cfg)
	for i := range m.fields[sectionMap] {
		if m.fields[sectionMap][i].name == "zoom" {
			m.fields[sectionMap][i].input.SetValue("lots")
		}
	}
	m.applyFields()
	if cfg.Map.Zoom != 13 {
		t.Errorf("Unparseable zoom should keep 13, got %d", cfg.Map.Zoom)
	}
}

func TestWizard_SaveFromSummary(t *testing.T) {
	oldDir := config.ConfigDir
	config.SetConfigDir(t.TempDir())
	defer config.SetConfigDir(oldDir)

	m := newWizardModel(config.DefaultConfig())
	m.section = sectionSummary
	view := m.View()
	for _, want := range []string{"Configuration Summary", "Connection:", "Display:", "Map:", "tracker_1"} {
		if !strings.Contains(view, want) {
			t.Errorf("Summary missing %q", want)
		}
	}

	next, cmd := m.handleEnter()
	m = next.(wizardModel)
	if !m.saved || m.err != nil {
		t.Fatalf("Expected saved, got err %v", m.err)
	}
	if cmd == nil {
		t.Error("Saving should quit")
	}
	if _, err := os.Stat(config.ConfigFile); err != nil {
		t.Errorf("Config not written: %v", err)
	}
	if !strings.Contains(m.View(), "Configuration saved") {
		t.Error("Expected saved message")
	}
}

func TestWizard_InvalidNotSaved(t *testing.T) {
	oldDir := config.ConfigDir
	config.SetConfigDir(t.TempDir())
	defer config.SetConfigDir(oldDir)

	cfg := config.DefaultConfig()
	m := newWizardModel(cfg)
	m.fields[sectionConnection][0].input.SetValue("")
	m.section = sectionSummary

	next, _ := m.handleEnter()
	m = next.(wizardModel)
	if m.err == nil || m.saved {
		t.Error("Empty host should fail validation")
	}
	if _, err := os.Stat(config.ConfigFile); !os.IsNotExist(err) {
		t.Error("Invalid config must not be written")
	}
}

func TestWizard_QuitFromWelcome(t *testing.T) {
	m := newWizardModel(config.DefaultConfig())
	m = press(m, "q")
	if !m.quitting {
		t.Error("q on the welcome page should quit")
	}
	if !strings.Contains(m.View(), "cancelled") {
		t.Error("Expected cancelled message")
	}
}

func TestWizard_QTypesInFields(t *testing.T) {
	m := newWizardModel(config.DefaultConfig())
	m = press(m, "enter", "q")
	if m.quitting {
		t.Error("q inside a text field should be typed, not quit")
	}
	if !strings.HasSuffix(m.current().input.Value(), "q") {
		t.Errorf("Expected q appended, got %q", m.current().input.Value())
	}
}

func TestWizardField_Cycle(t *testing.T) {
	f := selectField("s", "S", "", []string{"a", "b", "c"}, []string{"a", "b", "c"}, 0)
	f.cycle("left")
	if f.selectIndex != 0 {
		t.Error("left at the first option should stay")
	}
	f.cycle("right")
	f.cycle("right")
	f.cycle("right")
	if f.selectIndex != 0 {
		t.Errorf("right should wrap, got %d", f.selectIndex)
	}

	b := boolField("b", "B", "", true)
	b.cycle(" ")
	if b.value() != "OFF" {
		t.Errorf("Expected OFF, got %s", b.value())
	}
}
