// Package settings provides the settings configuration view for the TUI.
package settings

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/qms-rag/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/qms-rag/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/qms-rag/internal/core/ports/driving"
)

// View lists every settings key and edits one value at a time.
type View struct {
	styles          *styles.Styles
	settingsService driving.SettingsService

	entries  []messages.SettingEntry
	selected int
	editing  bool
	editor   textinput.Model
	notice   string
	err      error

	width  int
	height int
	ready  bool
}

// NewView creates a new settings view.
func NewView(s *styles.Styles, settingsService driving.SettingsService) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}

	editor := textinput.New()
	editor.CharLimit = 256

	return &View{
		styles:          s,
		settingsService: settingsService,
		editor:          editor,
	}
}

// Init initialises the view and loads settings.
func (v *View) Init() tea.Cmd {
	return v.loadSettings()
}

// loadSettings returns a command that reads every key's current value.
func (v *View) loadSettings() tea.Cmd {
	svc := v.settingsService
	return func() tea.Msg {
		if svc == nil {
			return messages.SettingsLoaded{Err: fmt.Errorf("settings service not available")}
		}
		keys := svc.Keys()
		entries := make([]messages.SettingEntry, 0, len(keys))
		for _, k := range keys {
			val, err := svc.Lookup(k)
			if err != nil {
				return messages.SettingsLoaded{Err: err}
			}
			entries = append(entries, messages.SettingEntry{Key: k, Value: val})
		}
		return messages.SettingsLoaded{Entries: entries}
	}
}

func (v *View) saveSetting(key, value string) tea.Cmd {
	svc := v.settingsService
	return func() tea.Msg {
		if svc == nil {
			return messages.SettingSaved{Key: key, Err: fmt.Errorf("settings service not available")}
		}
		return messages.SettingSaved{Key: key, Err: svc.Set(key, value)}
	}
}

// Update handles messages for the settings view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case messages.SettingsLoaded:
		v.err = msg.Err
		if msg.Err == nil {
			v.entries = msg.Entries
			v.selected = min(v.selected, max(len(v.entries)-1, 0))
		}
		return v, nil

	case messages.SettingSaved:
		if msg.Err != nil {
			v.err = msg.Err
			v.notice = ""
			return v, nil
		}
		v.err = nil
		v.notice = "Saved " + msg.Key
		return v, v.loadSettings()

	case tea.KeyMsg:
		if v.editing {
			return v.handleEditKey(msg)
		}
		return v.handleListKey(msg)
	}

	return v, nil
}

func (v *View) handleListKey(msg tea.KeyMsg) (*View, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if v.selected > 0 {
			v.selected--
		}
	case "down", "j":
		if v.selected < len(v.entries)-1 {
			v.selected++
		}
	case "enter":
		if len(v.entries) == 0 {
			return v, nil
		}
		entry := v.entries[v.selected]
		v.editing = true
		v.notice = ""
		v.err = nil
		if isSecret(entry.Key) {
			v.editor.EchoMode = textinput.EchoPassword
			v.editor.SetValue("")
		} else {
			v.editor.EchoMode = textinput.EchoNormal
			v.editor.SetValue(entry.Value)
		}
		v.editor.CursorEnd()
		return v, v.editor.Focus()
	case "esc":
		return v, func() tea.Msg {
			return messages.ViewChanged{View: messages.ViewMenu}
		}
	}
	return v, nil
}

func (v *View) handleEditKey(msg tea.KeyMsg) (*View, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		v.editing = false
		v.editor.Blur()
		return v, nil
	case tea.KeyEnter:
		v.editing = false
		v.editor.Blur()
		return v, v.saveSetting(v.entries[v.selected].Key, strings.TrimSpace(v.editor.Value()))
	default:
		var cmd tea.Cmd
		v.editor, cmd = v.editor.Update(msg)
		return v, cmd
	}
}

// View renders the settings view.
func (v *View) View() string {
	var b strings.Builder

	b.WriteString(v.styles.Title.Render("Settings"))
	b.WriteString("\n\n")

	if v.err != nil {
		b.WriteString(v.styles.Error.Render(fmt.Sprintf("Error: %s", v.err.Error())))
		b.WriteString("\n\n")
	}
	if v.notice != "" {
		b.WriteString(v.styles.Success.Render(v.notice))
		b.WriteString("\n\n")
	}

	if v.entries == nil {
		b.WriteString(v.styles.Muted.Render("Loading settings..."))
		return b.String()
	}

	b.WriteString(v.renderEntries())
	b.WriteString("\n")

	if v.editing {
		b.WriteString(v.styles.Normal.Render(v.entries[v.selected].Key + ":"))
		b.WriteString("\n")
		b.WriteString(v.styles.InputField.Render(v.editor.View()))
		b.WriteString("\n")
		b.WriteString(v.styles.Help.Render("[enter] save  [esc] cancel"))
		return b.String()
	}

	b.WriteString(v.renderValidation())
	b.WriteString("\n")
	b.WriteString(v.styles.Help.Render("[j/k] navigate  [enter] edit  [esc] back"))
	return b.String()
}

// renderEntries shows a window of entries around the selection.
func (v *View) renderEntries() string {
	visible := len(v.entries)
	if v.height > 0 {
		visible = max(v.height-10, 5)
	}
	start := 0
	if v.selected >= visible {
		start = v.selected - visible + 1
	}
	end := min(start+visible, len(v.entries))

	var b strings.Builder
	for i := start; i < end; i++ {
		e := v.entries[i]
		value := e.Value
		if isSecret(e.Key) {
			value = maskSecret(value)
		}
		if i == v.selected {
			b.WriteString(v.styles.Selected.Render(fmt.Sprintf("> %-30s %s", e.Key, value)))
		} else {
			b.WriteString(v.styles.Normal.Render(fmt.Sprintf("  %-30s ", e.Key)) + v.styles.Muted.Render(value))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (v *View) renderValidation() string {
	if v.settingsService == nil {
		return ""
	}
	if err := v.settingsService.Validate(); err != nil {
		return v.styles.Warning.Render(fmt.Sprintf("Warning: %s", err.Error()))
	}
	return v.styles.Success.Render("Configuration is valid")
}

func isSecret(key string) bool {
	return strings.HasSuffix(key, "api_key") || strings.HasSuffix(key, "dsn") || strings.HasSuffix(key, "password")
}

func maskSecret(value string) string {
	switch {
	case value == "":
		return "(not set)"
	case len(value) <= 8:
		return "****"
	default:
		return value[:4] + "..." + value[len(value)-4:]
	}
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true
}

// Editing reports whether a value is being edited.
func (v *View) Editing() bool {
	return v.editing
}

// Entries returns the loaded settings.
func (v *View) Entries() []messages.SettingEntry {
	return v.entries
}

// Reset resets the view to initial state.
func (v *View) Reset() {
	v.selected = 0
	v.editing = false
	v.notice = ""
	v.err = nil
	v.editor.SetValue("")
	v.editor.Blur()
}
