// Package list provides list display components for the TUI.
package list

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/qms-rag/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/qms-rag/internal/core/domain"
)

// ProcedureList displays catalogue procedures in a navigable list.
type ProcedureList struct {
	procedures []domain.Procedure
	selected   int
	styles     *styles.Styles
	width      int
	height     int
}

// NewProcedureList creates a new procedure list component.
func NewProcedureList(s *styles.Styles) *ProcedureList {
	if s == nil {
		s = styles.DefaultStyles()
	}

	return &ProcedureList{
		styles: s,
		width:  80,
		height: 10,
	}
}

// Init initialises the list.
func (r *ProcedureList) Init() tea.Cmd {
	return nil
}

// Update handles list navigation messages.
func (r *ProcedureList) Update(msg tea.Msg) (*ProcedureList, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "up", "k":
			r.MoveUp()
		case "down", "j":
			r.MoveDown()
		}
	}
	return r, nil
}

// View renders the list.
func (r *ProcedureList) View() string {
	if len(r.procedures) == 0 {
		return r.styles.Muted.Render("No procedures")
	}

	lines := make([]string, 0, len(r.procedures)+2)
	lines = append(lines, r.styles.Subtitle.Render(fmt.Sprintf("Procedures (%d)", len(r.procedures))), "")

	// Two lines per procedure.
	visible := max((r.height-4)/2, 1)
	start := 0
	if r.selected >= visible {
		start = r.selected - visible + 1
	}
	end := min(start+visible, len(r.procedures))

	for i := start; i < end; i++ {
		lines = append(lines, r.renderProcedure(i, &r.procedures[i]))
	}
	return strings.Join(lines, "\n")
}

func (r *ProcedureList) renderProcedure(index int, p *domain.Procedure) string {
	indicator := "  "
	if index == r.selected {
		indicator = "> "
	}

	title := truncate(p.Title, max(r.width-30, 10))
	head := fmt.Sprintf("%s%-8s %s", indicator, p.Requirement, title)

	var titleLine string
	if index == r.selected {
		titleLine = r.styles.Selected.Render(head)
	} else {
		titleLine = r.styles.Normal.Render(head)
	}

	return titleLine + "\n" + r.styles.Muted.Render("    "+p.ProcID)
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-3]) + "..."
}

// SetProcedures replaces the listed procedures and resets the selection.
func (r *ProcedureList) SetProcedures(procedures []domain.Procedure) {
	r.procedures = procedures
	r.selected = 0
}

// Procedures returns the listed procedures.
func (r *ProcedureList) Procedures() []domain.Procedure {
	return r.procedures
}

// Selected returns the index of the selected procedure.
func (r *ProcedureList) Selected() int {
	return r.selected
}

// SelectedProcedure returns the selected procedure, or nil if the list is empty.
func (r *ProcedureList) SelectedProcedure() *domain.Procedure {
	if r.selected < 0 || r.selected >= len(r.procedures) {
		return nil
	}
	return &r.procedures[r.selected]
}

// MoveUp moves selection up.
func (r *ProcedureList) MoveUp() {
	if r.selected > 0 {
		r.selected--
	}
}

// MoveDown moves selection down.
func (r *ProcedureList) MoveDown() {
	if r.selected < len(r.procedures)-1 {
		r.selected++
	}
}

// SetDimensions sets the component dimensions.
func (r *ProcedureList) SetDimensions(width, height int) {
	r.width = width
	r.height = height
}

// Count returns the number of procedures.
func (r *ProcedureList) Count() int {
	return len(r.procedures)
}
