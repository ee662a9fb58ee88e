package list

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/qms-rag/internal/core/domain"
)

func sampleProcedures() []domain.Procedure {
	return []domain.Procedure{
		{ProcID: "PROC_4_2_4", Title: "Document Control", Requirement: "4.2.4"},
		{ProcID: "PROC_4_2_5", Title: "Record Control", Requirement: "4.2.5"},
		{ProcID: "PROC_8_5_2", Title: "Corrective Action", Requirement: "8.5.2"},
	}
}

func TestNewProcedureList(t *testing.T) {
	l := NewProcedureList(nil)

	require.NotNil(t, l)
	assert.NotNil(t, l.styles)
	assert.Equal(t, 0, l.Count())
	assert.Nil(t, l.SelectedProcedure())
	assert.Nil(t, l.Init())
}

func TestProcedureList_Navigation(t *testing.T) {
	l := NewProcedureList(nil)
	l.SetProcedures(sampleProcedures())

	l.MoveUp()
	assert.Equal(t, 0, l.Selected())

	l.Update(tea.KeyMsg{Type: tea.KeyDown})
	l.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'j'}})
	l.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'j'}})
	assert.Equal(t, 2, l.Selected())
	assert.Equal(t, "PROC_8_5_2", l.SelectedProcedure().ProcID)

	l.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'k'}})
	assert.Equal(t, 1, l.Selected())

	l.SetProcedures(sampleProcedures()[:1])
	assert.Equal(t, 0, l.Selected())
}

func TestProcedureList_View(t *testing.T) {
	l := NewProcedureList(nil)
	assert.Contains(t, l.View(), "No procedures")

	l.SetProcedures(sampleProcedures())
	l.SetDimensions(100, 20)
	view := l.View()

	assert.Contains(t, view, "Procedures (3)")
	assert.Contains(t, view, "> 4.2.4")
	assert.Contains(t, view, "Record Control")
	assert.Contains(t, view, "PROC_8_5_2")
}

func TestProcedureList_View_ScrollsToSelection(t *testing.T) {
	l := NewProcedureList(nil)
	l.SetProcedures(sampleProcedures())
	l.SetDimensions(100, 6) // room for one procedure

	l.MoveDown()
	l.MoveDown()
	view := l.View()

	assert.Contains(t, view, "Corrective Action")
	assert.NotContains(t, view, "Document Control")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "Managem...", truncate("Management Review", 10))
}
