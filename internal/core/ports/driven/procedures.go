package driven

import "github.com/custodia-labs/qms-rag/internal/core/domain"

// ProcedureStore is the read-only structured procedure catalogue.
// It is safe for concurrent readers once loaded.
type ProcedureStore interface {
	// FindByID returns the procedure with the given proc_id.
	FindByID(id string) (domain.Procedure, bool)

	// FindByKeyword returns procedures whose title, description or keywords
	// contain term case-insensitively, in catalogue order.
	FindByKeyword(term string) []domain.Procedure

	// All returns every procedure in catalogue order.
	All() []domain.Procedure

	// Sections returns the catalogue hierarchy.
	Sections() []domain.Section

	// Lookup resolves an exact structural reference in a query.
	Lookup(query string) (DirectMatch, bool)
}

// DirectMatch is the structural unit a query referenced exactly.
type DirectMatch struct {
	// Kind is "procedure", "subsection" or "section".
	Kind string

	// ID is the matched proc_id, subsection_id or section_id.
	ID string

	// Name is the matched unit's display name.
	Name string

	// Procedures are the unit's procedures in catalogue order.
	Procedures []domain.Procedure
}
