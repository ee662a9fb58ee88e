package domain

import "strings"

// FallbackAnswer is returned verbatim when the context holds no answer.
const FallbackAnswer = "The requested information is not available in the provided ISO 13485 context."

// Answer is the grounded response to one question.
type Answer struct {
	Question string        `json:"question"`
	Text     string        `json:"answer"`
	Sources  []string      `json:"sources"`
	Fallback bool          `json:"fallback"`
	Path     RetrievalPath `json:"path"`
}

// IsFallback reports whether text is the fallback sentence, ignoring
// surrounding whitespace and quotes.
func IsFallback(text string) bool {
	return strings.Trim(strings.TrimSpace(text), `"`) == FallbackAnswer
}
