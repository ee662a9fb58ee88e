package services

import (
	"fmt"
	"strings"

	"github.com/custodia-labs/qms-rag/internal/core/domain"
	"github.com/custodia-labs/qms-rag/internal/core/ports/driving"
	"github.com/custodia-labs/qms-rag/internal/procedures"
)

// Ensure ProcedureService implements the interface.
var _ driving.ProcedureService = (*ProcedureService)(nil)

// ProcedureService exposes the procedure catalogue. A nil store means no
// catalogue is configured: lookups by id fail and searches return nothing.
type ProcedureService struct {
	store *procedures.Store
}

// NewProcedureService creates a procedure service over store.
func NewProcedureService(store *procedures.Store) *ProcedureService {
	return &ProcedureService{store: store}
}

// Get returns a procedure by proc_id, matched case-insensitively.
func (s *ProcedureService) Get(id string) (*domain.Procedure, error) {
	if s.store == nil {
		return nil, fmt.Errorf("%w: no procedure catalogue configured", domain.ErrConfiguration)
	}
	p, ok := s.store.FindByID(strings.TrimSpace(id))
	if !ok {
		return nil, fmt.Errorf("procedure %s: %w", id, domain.ErrNotFound)
	}
	return &p, nil
}

// Find returns procedures matching term in title, description or keywords.
func (s *ProcedureService) Find(term string) []domain.Procedure {
	if s.store == nil {
		return []domain.Procedure{}
	}
	return s.store.FindByKeyword(strings.TrimSpace(term))
}

// List returns procedures under a clause prefix in the requested order.
func (s *ProcedureService) List(opts driving.ListOptions) []domain.Procedure {
	if s.store == nil {
		return []domain.Procedure{}
	}
	return s.store.List(opts.Clause, string(opts.SortBy))
}

// Sections returns the catalogue hierarchy.
func (s *ProcedureService) Sections() []domain.Section {
	if s.store == nil {
		return []domain.Section{}
	}
	return s.store.Sections()
}

// Format renders a procedure as a markdown card.
func (s *ProcedureService) Format(p domain.Procedure) string {
	return procedures.Format(p)
}

// Store returns the underlying catalogue, or nil.
func (s *ProcedureService) Store() *procedures.Store {
	return s.store
}
