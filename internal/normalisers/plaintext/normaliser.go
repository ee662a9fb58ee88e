package plaintext

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/custodia-labs/qms-rag/internal/core/domain"
	"github.com/custodia-labs/qms-rag/internal/core/ports/driven"
	"github.com/custodia-labs/qms-rag/internal/normalisers/text"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles plain text and markdown documents.
type Normaliser struct {
	opts text.Options
}

// New creates a new plain text normaliser.
func New(opts text.Options) *Normaliser {
	return &Normaliser{opts: opts}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{
		"text/plain",
		"text/markdown",
		"text/csv",
	}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 5 // Fallback normaliser
}

// Normalise converts a raw file to a normalised document.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}
	if !utf8.Valid(raw.Content) {
		return nil, fmt.Errorf("%w: %s is not valid UTF-8 text", domain.ErrInvalidInput, raw.URI)
	}

	doc := domain.Document{
		ID:        text.DocumentID(raw.URI),
		SourceID:  raw.URI,
		URI:       raw.URI,
		Title:     titleFromMetadataOrURI(raw),
		Content:   text.NormalizeParagraphs(string(raw.Content), n.opts),
		Metadata:  text.CopyMetadata(raw.Metadata),
		CreatedAt: time.Now(),
	}
	doc.Metadata[domain.MetaMIMEType] = raw.MIMEType
	doc.Metadata[domain.MetaSource] = raw.URI

	return &driven.NormaliseResult{
		Documents: []domain.Document{doc},
	}, nil
}

// titleFromMetadataOrURI checks metadata for a title first, then falls back to the URI.
func titleFromMetadataOrURI(raw *domain.RawDocument) string {
	if title, ok := raw.Metadata[domain.MetaTitle].(string); ok && title != "" {
		return title
	}
	return text.TitleFromURI(raw.URI)
}
