package mcp

import (
	"context"
	"strings"

	"github.com/custodia-labs/qms-rag/internal/core/domain"
	"github.com/custodia-labs/qms-rag/internal/core/ports/driving"
)

// mockRetrievalService is a mock implementation of driving.RetrievalService.
type mockRetrievalService struct {
	result *domain.RetrievalResult
	err    error
	opts   driving.RetrieveOptions
}

func (m *mockRetrievalService) Retrieve(
	_ context.Context,
	query string,
	opts driving.RetrieveOptions,
) (*domain.RetrievalResult, error) {
	m.opts = opts
	if m.err != nil {
		return nil, m.err
	}
	if m.result == nil {
		return &domain.RetrievalResult{Query: query, Path: domain.PathNone}, nil
	}
	return m.result, nil
}

// mockAskService is a mock implementation of driving.AskService.
type mockAskService struct {
	answer   *domain.Answer
	err      error
	question string
	opts     driving.RetrieveOptions
}

func (m *mockAskService) Ask(
	_ context.Context,
	question string,
	opts driving.RetrieveOptions,
) (*driving.AskResult, error) {
	m.question = question
	m.opts = opts
	if m.err != nil {
		return nil, m.err
	}
	return &driving.AskResult{Answer: m.answer, Retrieval: &domain.RetrievalResult{}}, nil
}

func (m *mockAskService) Answer(
	_ context.Context,
	_ string,
	_ []domain.RetrievedItem,
) (*domain.Answer, error) {
	return m.answer, m.err
}

// mockProcedureService is a mock implementation of driving.ProcedureService.
type mockProcedureService struct {
	procedures []domain.Procedure
	sections   []domain.Section
}

func (m *mockProcedureService) Get(id string) (*domain.Procedure, error) {
	for i := range m.procedures {
		if strings.EqualFold(m.procedures[i].ProcID, id) {
			return &m.procedures[i], nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockProcedureService) Find(term string) []domain.Procedure {
	var out []domain.Procedure
	for _, p := range m.procedures {
		if p.MatchesKeyword(term) {
			out = append(out, p)
		}
	}
	return out
}

func (m *mockProcedureService) List(_ driving.ListOptions) []domain.Procedure {
	return m.procedures
}

func (m *mockProcedureService) Sections() []domain.Section {
	return m.sections
}

func (m *mockProcedureService) Format(p domain.Procedure) string {
	return "### " + p.Title
}

// mockIndexService is a mock implementation of driving.IndexService.
type mockIndexService struct {
	manifests []domain.CollectionManifest
	err       error
}

func (m *mockIndexService) Build(_ context.Context, _ driving.BuildRequest) (*driving.BuildReport, error) {
	return nil, m.err
}

func (m *mockIndexService) Refresh(_ context.Context, _ driving.BuildRequest) (*driving.BuildReport, error) {
	return nil, m.err
}

func (m *mockIndexService) Load(_ context.Context, _ string) (*domain.CollectionManifest, error) {
	return nil, m.err
}

func (m *mockIndexService) Status(_ context.Context, _ string) (*driving.CollectionStatus, error) {
	return nil, m.err
}

func (m *mockIndexService) List(_ context.Context) ([]domain.CollectionManifest, error) {
	return m.manifests, m.err
}

func (m *mockIndexService) Delete(_ context.Context, _ string) error {
	return m.err
}

func testCatalogue() *mockProcedureService {
	complaint := domain.Procedure{
		ProcID:      "PROC_8_2_2",
		Title:       "Complaint Handling",
		Requirement: "ISO 13485:2016 Clause 8.2.2",
		Description: "Investigate customer complaints.",
		Keywords:    []string{"complaint", "feedback"},
	}
	manual := domain.Procedure{
		ProcID:      "PROC_4_0_1",
		Title:       "Quality Manual",
		Requirement: "ISO 13485:2016 Clause 4.2.2",
		Description: "Describe the QMS scope.",
		Keywords:    []string{"manual"},
	}
	return &mockProcedureService{
		procedures: []domain.Procedure{manual, complaint},
		sections: []domain.Section{
			{SectionID: "4", SectionName: "Quality Management System", Procedures: []domain.Procedure{manual}},
			{
				SectionID:   "8",
				SectionName: "Measurement, analysis and improvement",
				Subsections: []domain.Subsection{
					{SubsectionID: "8.2.2", SubsectionName: "Complaint handling", Procedures: []domain.Procedure{complaint}},
				},
			},
		},
	}
}
