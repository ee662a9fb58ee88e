// Package procedures turns a procedure catalogue file into one document
// per procedure so the catalogue can be embedded alongside prose sources.
package procedures

import (
	"bytes"
	"context"
	"time"

	"github.com/custodia-labs/qms-rag/internal/core/domain"
	"github.com/custodia-labs/qms-rag/internal/core/ports/driven"
	"github.com/custodia-labs/qms-rag/internal/normalisers/text"
	"github.com/custodia-labs/qms-rag/internal/procedures"
)

// MIMEType identifies procedure catalogue JSON.
const MIMEType = "application/vnd.qmsrag.procedures+json"

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles procedure catalogues.
type Normaliser struct {
	opts text.Options
}

// New creates a procedure catalogue normaliser.
func New(opts text.Options) *Normaliser {
	return &Normaliser{opts: opts}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{MIMEType, "application/json"}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 80 // Format-specific
}

// Normalise validates the catalogue and emits one document per procedure.
// Invalid catalogues fail with domain.ErrConfiguration.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	store, err := procedures.Load(bytes.NewReader(raw.Content))
	if err != nil {
		return nil, err
	}

	flat := store.Flatten()
	docs := make([]domain.Document, 0, len(flat))
	for _, d := range flat {
		d.ID = text.DocumentID(raw.URI, d.SourceID)
		d.Content = text.NormalizeParagraphs(d.Content, n.opts)
		d.CreatedAt = time.Now()

		md := text.CopyMetadata(raw.Metadata)
		for k, v := range d.Metadata {
			md[k] = v
		}
		md[domain.MetaSource] = raw.URI
		md[domain.MetaMIMEType] = raw.MIMEType
		d.Metadata = md

		docs = append(docs, d)
	}
	return &driven.NormaliseResult{Documents: docs}, nil
}
