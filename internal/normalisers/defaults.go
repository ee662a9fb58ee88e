package normalisers

import (
	"github.com/custodia-labs/qms-rag/internal/normalisers/docx"
	"github.com/custodia-labs/qms-rag/internal/normalisers/pdf"
	"github.com/custodia-labs/qms-rag/internal/normalisers/plaintext"
	"github.com/custodia-labs/qms-rag/internal/normalisers/procedures"
	"github.com/custodia-labs/qms-rag/internal/normalisers/text"
)

// DefaultRegistry returns a registry with every built-in normaliser.
func DefaultRegistry(opts text.Options) *Registry {
	return NewRegistry(
		procedures.New(opts),
		pdf.New(opts),
		docx.New(opts),
		plaintext.New(opts),
	)
}
