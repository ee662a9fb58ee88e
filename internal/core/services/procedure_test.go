package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/qms-rag/internal/core/domain"
	"github.com/custodia-labs/qms-rag/internal/core/ports/driving"
)

func TestProcedureService_Get(t *testing.T) {
	s := NewProcedureService(loadCatalogue(t))

	p, err := s.Get(" PROC_4_2_4 ")
	require.NoError(t, err)
	assert.Equal(t, "Document Control", p.Title)

	_, err = s.Get("PROC_9_9_9")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestProcedureService_Find(t *testing.T) {
	s := NewProcedureService(loadCatalogue(t))

	found := s.Find("RELEASE")
	require.Len(t, found, 1)
	assert.Equal(t, "PROC_8_2_10", found[0].ProcID)

	assert.Empty(t, s.Find("nothing matches this"))
}

func TestProcedureService_List(t *testing.T) {
	s := NewProcedureService(loadCatalogue(t))

	all := s.List(driving.ListOptions{})
	assert.Len(t, all, 6)

	under := s.List(driving.ListOptions{Clause: "8.2", SortBy: driving.SortByRequirement})
	ids := make([]string, len(under))
	for i, p := range under {
		ids[i] = p.ProcID
	}
	assert.Equal(t, []string{"PROC_8_2_0", "PROC_8_2_2", "PROC_8_2_10"}, ids)
}

func TestProcedureService_Sections(t *testing.T) {
	s := NewProcedureService(loadCatalogue(t))

	sections := s.Sections()
	require.Len(t, sections, 2)
	assert.Equal(t, "4", sections[0].SectionID)
	assert.Len(t, sections[1].Subsections, 3)
}

func TestProcedureService_Format(t *testing.T) {
	s := NewProcedureService(loadCatalogue(t))
	p, err := s.Get("PROC_4_2_5")
	require.NoError(t, err)

	card := s.Format(*p)
	assert.Contains(t, card, "Record Control")
	assert.Contains(t, card, "N/A")
}

func TestProcedureService_NoCatalogue(t *testing.T) {
	s := NewProcedureService(nil)

	_, err := s.Get("PROC_4_2_4")
	assert.ErrorIs(t, err, domain.ErrConfiguration)
	assert.Empty(t, s.Find("records"))
	assert.Empty(t, s.List(driving.ListOptions{}))
	assert.Empty(t, s.Sections())
	assert.Nil(t, s.Store())
}
