package procedures

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/qms-rag/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/qms-rag/internal/core/domain"
	"github.com/custodia-labs/qms-rag/internal/core/ports/driving"
)

type mockProcedureService struct {
	procedures []domain.Procedure
	lastList   driving.ListOptions
	lastFind   string
}

func (m *mockProcedureService) Get(id string) (*domain.Procedure, error) {
	for i := range m.procedures {
		if m.procedures[i].ProcID == id {
			return &m.procedures[i], nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockProcedureService) Find(term string) []domain.Procedure {
	m.lastFind = term
	var out []domain.Procedure
	for _, p := range m.procedures {
		if strings.Contains(strings.ToLower(p.Title), strings.ToLower(term)) {
			out = append(out, p)
		}
	}
	return out
}

func (m *mockProcedureService) List(opts driving.ListOptions) []domain.Procedure {
	m.lastList = opts
	return m.procedures
}

func (m *mockProcedureService) Sections() []domain.Section { return nil }

func (m *mockProcedureService) Format(p domain.Procedure) string {
	return "## " + p.Title + "\n\n" + p.Description
}

func newService() *mockProcedureService {
	return &mockProcedureService{procedures: []domain.Procedure{
		{ProcID: "PROC_4_2_4", Title: "Document Control", Requirement: "4.2.4", Description: "Approve documents before issue."},
		{ProcID: "PROC_8_5_2", Title: "Corrective Action", Requirement: "8.5.2", Description: "Eliminate causes of nonconformities."},
	}}
}

func loadedView(t *testing.T, svc driving.ProcedureService) *View {
	t.Helper()
	v := NewView(nil, svc)
	v.SetDimensions(100, 30)
	v.Update(v.Init()())
	return v
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestView_Init_LoadsSortedCatalogue(t *testing.T) {
	svc := newService()
	v := loadedView(t, svc)

	assert.Len(t, v.Procedures(), 2)
	assert.Equal(t, driving.SortByRequirement, svc.lastList.SortBy)
	assert.Contains(t, v.View(), "Document Control")
}

func TestView_NoService(t *testing.T) {
	v := loadedView(t, nil)

	assert.ErrorIs(t, v.Err(), ErrNoProcedureService)
	assert.Contains(t, v.View(), "not configured")
}

func TestView_OpenAndClose(t *testing.T) {
	v := loadedView(t, newService())

	v.Update(key("j"))
	_, cmd := v.Update(key("enter"))
	require.NotNil(t, cmd)
	v.Update(cmd())

	require.NotNil(t, v.Current())
	assert.Equal(t, "PROC_8_5_2", v.Current().ProcID)
	assert.Contains(t, v.View(), "Eliminate causes")

	_, cmd = v.Update(key("esc"))
	assert.Nil(t, cmd)
	assert.Nil(t, v.Current())
	assert.Contains(t, v.View(), "Procedures (2)")
}

func TestView_Filter(t *testing.T) {
	svc := newService()
	v := loadedView(t, svc)

	v.Update(key("/"))
	assert.Contains(t, v.View(), "Apply")
	for _, r := range "corrective" {
		v.Update(key(string(r)))
	}
	_, cmd := v.Update(key("enter"))
	require.NotNil(t, cmd)
	v.Update(cmd())

	assert.Equal(t, "corrective", svc.lastFind)
	require.Len(t, v.Procedures(), 1)
	assert.Equal(t, "PROC_8_5_2", v.Procedures()[0].ProcID)

	_, cmd = v.Update(key("r"))
	v.Update(cmd())
	assert.Len(t, v.Procedures(), 2)
}

func TestView_Filter_ExactID(t *testing.T) {
	svc := newService()
	v := loadedView(t, svc)

	v.Update(key("/"))
	for _, r := range "PROC_4_2_4" {
		v.Update(key(string(r)))
	}
	_, cmd := v.Update(key("enter"))
	v.Update(cmd())

	assert.Empty(t, svc.lastFind, "exact ids skip keyword search")
	require.Len(t, v.Procedures(), 1)
	assert.Equal(t, "Document Control", v.Procedures()[0].Title)
}

func TestView_Filter_Cancel(t *testing.T) {
	v := loadedView(t, newService())

	v.Update(key("/"))
	_, cmd := v.Update(key("esc"))

	assert.Nil(t, cmd)
	assert.Contains(t, v.View(), "[/] Filter")
}

func TestView_Esc_BackToMenu(t *testing.T) {
	v := loadedView(t, newService())

	_, cmd := v.Update(key("esc"))

	require.NotNil(t, cmd)
	assert.Equal(t, messages.ViewChanged{View: messages.ViewMenu}, cmd())
}

func TestView_Reset(t *testing.T) {
	v := loadedView(t, newService())
	v.Update(messages.ProcedureSelected{Procedure: v.Procedures()[0]})

	v.Reset()

	assert.Nil(t, v.Current())
}

func TestView_NotReady(t *testing.T) {
	assert.Equal(t, "Initialising...", NewView(nil, nil).View())
}
