// Package procedures provides the procedure catalogue browser for the TUI.
package procedures

import (
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/qms-rag/internal/adapters/driving/tui/components/list"
	"github.com/custodia-labs/qms-rag/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/qms-rag/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/qms-rag/internal/core/domain"
	"github.com/custodia-labs/qms-rag/internal/core/ports/driving"
)

// ErrNoProcedureService is returned when the catalogue is not configured.
var ErrNoProcedureService = errors.New("procedure catalogue not configured")

type mode int

const (
	modeList mode = iota
	modeFilter
	modeDetail
)

// View lists catalogue procedures and shows one as a card.
type View struct {
	styles  *styles.Styles
	service driving.ProcedureService

	list   *list.ProcedureList
	filter textinput.Model
	detail viewport.Model

	mode    mode
	current *domain.Procedure
	err     error
	width   int
	height  int
	ready   bool
}

// NewView creates a new procedures view.
func NewView(s *styles.Styles, service driving.ProcedureService) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}

	filter := textinput.New()
	filter.Placeholder = "keyword or proc_id"
	filter.CharLimit = 128

	return &View{
		styles:  s,
		service: service,
		list:    list.NewProcedureList(s),
		filter:  filter,
		detail:  viewport.New(80, 18),
		width:   80,
		height:  24,
	}
}

// Init loads the full catalogue.
func (v *View) Init() tea.Cmd {
	return v.load("")
}

// load returns a command listing procedures that match term, or all of them.
func (v *View) load(term string) tea.Cmd {
	svc := v.service
	return func() tea.Msg {
		if svc == nil {
			return messages.ProceduresLoaded{Err: ErrNoProcedureService}
		}
		if term == "" {
			return messages.ProceduresLoaded{Procedures: svc.List(driving.ListOptions{SortBy: driving.SortByRequirement})}
		}
		if p, err := svc.Get(term); err == nil {
			return messages.ProceduresLoaded{Procedures: []domain.Procedure{*p}}
		}
		return messages.ProceduresLoaded{Procedures: svc.Find(term)}
	}
}

// Update handles messages for the procedures view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case messages.ProceduresLoaded:
		v.err = msg.Err
		v.list.SetProcedures(msg.Procedures)
		return v, nil

	case messages.ProcedureSelected:
		v.open(msg.Procedure)
		return v, nil

	case tea.KeyMsg:
		switch v.mode {
		case modeFilter:
			return v.handleFilterKey(msg)
		case modeDetail:
			return v.handleDetailKey(msg)
		case modeList:
			return v.handleListKey(msg)
		}
	}
	return v, nil
}

func (v *View) handleListKey(msg tea.KeyMsg) (*View, tea.Cmd) {
	switch msg.String() {
	case "esc":
		return v, func() tea.Msg {
			return messages.ViewChanged{View: messages.ViewMenu}
		}
	case "enter":
		if p := v.list.SelectedProcedure(); p != nil {
			selected := *p
			return v, func() tea.Msg {
				return messages.ProcedureSelected{Procedure: selected}
			}
		}
		return v, nil
	case "/":
		v.mode = modeFilter
		v.filter.SetValue("")
		return v, v.filter.Focus()
	case "r":
		return v, v.load("")
	}

	v.list, _ = v.list.Update(msg)
	return v, nil
}

func (v *View) handleFilterKey(msg tea.KeyMsg) (*View, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		v.mode = modeList
		v.filter.Blur()
		return v, nil
	case tea.KeyEnter:
		v.mode = modeList
		v.filter.Blur()
		return v, v.load(strings.TrimSpace(v.filter.Value()))
	default:
		var cmd tea.Cmd
		v.filter, cmd = v.filter.Update(msg)
		return v, cmd
	}
}

func (v *View) handleDetailKey(msg tea.KeyMsg) (*View, tea.Cmd) {
	if msg.Type == tea.KeyEsc {
		v.mode = modeList
		v.current = nil
		return v, nil
	}
	var cmd tea.Cmd
	v.detail, cmd = v.detail.Update(msg)
	return v, cmd
}

func (v *View) open(p domain.Procedure) {
	if v.service == nil {
		return
	}
	v.current = &p
	v.mode = modeDetail
	v.detail.SetContent(v.service.Format(p))
	v.detail.GotoTop()
}

// View renders the procedures view.
func (v *View) View() string {
	if !v.ready {
		return "Initialising..."
	}

	var b strings.Builder
	b.WriteString(v.styles.Title.Render("Procedures"))
	b.WriteString("\n\n")

	if v.err != nil {
		b.WriteString(v.styles.Error.Render("Error: " + v.err.Error()))
		b.WriteString("\n\n")
	}

	switch v.mode {
	case modeDetail:
		b.WriteString(v.styles.Subtitle.Render(v.current.ProcID))
		b.WriteString("\n")
		b.WriteString(v.detail.View())
		b.WriteString("\n\n")
		b.WriteString(v.styles.Help.Render("[↑/↓] Scroll  [Esc] Back to list"))
	case modeFilter:
		b.WriteString(v.styles.InputField.Render(v.filter.View()))
		b.WriteString("\n\n")
		b.WriteString(v.styles.Help.Render("[Enter] Apply  [Esc] Cancel"))
	case modeList:
		b.WriteString(v.list.View())
		b.WriteString("\n\n")
		b.WriteString(v.styles.Help.Render("[j/k] Navigate  [Enter] Open  [/] Filter  [r] All  [Esc] Menu"))
	}
	return b.String()
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true
	v.list.SetDimensions(width, height-6)
	v.detail.Width = width
	v.detail.Height = max(height-7, 3)
}

// Procedures returns the listed procedures.
func (v *View) Procedures() []domain.Procedure {
	return v.list.Procedures()
}

// Current returns the open procedure, or nil when the list is shown.
func (v *View) Current() *domain.Procedure {
	return v.current
}

// Err returns the last load error.
func (v *View) Err() error {
	return v.err
}

// Reset returns to the list.
func (v *View) Reset() {
	v.mode = modeList
	v.current = nil
	v.filter.Blur()
}
