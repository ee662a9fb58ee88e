// Package tui provides an interactive terminal chat over the QMS documentation.
// It implements a driving adapter following hexagonal architecture principles.
package tui

import (
	"github.com/custodia-labs/qms-rag/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the TUI.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Ask answers questions from the indexed documentation.
	Ask driving.AskService

	// Procedures browses the procedure catalogue. Optional.
	Procedures driving.ProcedureService

	// Settings manages application settings. Optional.
	Settings driving.SettingsService
}

// NewPorts creates a new Ports aggregate with the given services.
func NewPorts(
	ask driving.AskService,
	procedures driving.ProcedureService,
	settings driving.SettingsService,
) *Ports {
	return &Ports{
		Ask:        ask,
		Procedures: procedures,
		Settings:   settings,
	}
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Ask == nil {
		return ErrMissingAskService
	}
	return nil
}
