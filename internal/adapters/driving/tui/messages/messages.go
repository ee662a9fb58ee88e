// Package messages defines Bubbletea message types for the TUI.
// Messages represent events and commands that flow through the Elm architecture.
package messages

import (
	"github.com/custodia-labs/qms-rag/internal/core/domain"
	"github.com/custodia-labs/qms-rag/internal/core/ports/driving"
)

// QuestionSubmitted is sent when the user submits a question.
type QuestionSubmitted struct {
	Question string
}

// AnswerReceived carries an answer back to the model.
type AnswerReceived struct {
	Question string
	Result   *driving.AskResult
	Err      error
}

// ViewChanged is sent when navigating between views.
type ViewChanged struct {
	View ViewType
}

// ViewType identifies which view is currently active.
type ViewType int

const (
	// ViewMenu is the main navigation menu.
	ViewMenu ViewType = iota
	// ViewChat is the question and answer view.
	ViewChat
	// ViewProcedures browses the procedure catalogue.
	ViewProcedures
	// ViewHelp is the help/keybindings view.
	ViewHelp
	// ViewSettings is the settings configuration view.
	ViewSettings
)

// String returns the string representation of the view type.
func (v ViewType) String() string {
	switch v {
	case ViewMenu:
		return "menu"
	case ViewChat:
		return "chat"
	case ViewProcedures:
		return "procedures"
	case ViewHelp:
		return "help"
	case ViewSettings:
		return "settings"
	default:
		return "unknown"
	}
}

// ErrorOccurred signals that an error happened.
type ErrorOccurred struct {
	Err error
}

// Quit signals the application should exit.
type Quit struct{}

// ProceduresLoaded carries the procedure catalogue.
type ProceduresLoaded struct {
	Procedures []domain.Procedure
	Err        error
}

// ProcedureSelected signals a procedure was opened.
type ProcedureSelected struct {
	Procedure domain.Procedure
}

// SettingsLoaded carries the current value of every settings key.
type SettingsLoaded struct {
	Entries []SettingEntry
	Err     error
}

// SettingEntry is one key and its display value.
type SettingEntry struct {
	Key   string
	Value string
}

// SettingSaved signals a single key was updated.
type SettingSaved struct {
	Key string
	Err error
}
