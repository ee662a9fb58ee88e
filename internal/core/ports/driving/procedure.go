package driving

import "github.com/custodia-labs/qms-rag/internal/core/domain"

// ProcedureService exposes the structured procedure catalogue.
type ProcedureService interface {
	// Get returns a procedure by proc_id or domain.ErrNotFound.
	Get(id string) (*domain.Procedure, error)

	// Find returns procedures matching a keyword, case-insensitively.
	Find(term string) []domain.Procedure

	// List returns procedures filtered by clause prefix and sorted.
	List(opts ListOptions) []domain.Procedure

	// Sections returns the catalogue hierarchy.
	Sections() []domain.Section

	// Format renders a procedure as a markdown card.
	Format(p domain.Procedure) string
}

// ProcedureSort selects the ordering of List.
type ProcedureSort string

// Sort orders.
const (
	SortByID          ProcedureSort = "id"
	SortByTitle       ProcedureSort = "title"
	SortByRequirement ProcedureSort = "requirement"
)

// ListOptions filters and orders procedures.
type ListOptions struct {
	// Clause keeps procedures whose requirement starts with this prefix.
	Clause string

	// SortBy is the ordering; empty keeps catalogue order.
	SortBy ProcedureSort
}
