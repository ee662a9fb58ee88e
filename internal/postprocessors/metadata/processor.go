// Package metadata copies document-level provenance onto each chunk.
package metadata

import (
	"context"
	"fmt"

	"github.com/custodia-labs/qms-rag/internal/core/domain"
)

// DefaultKeys are the document metadata keys stamped onto every chunk.
var DefaultKeys = []string{
	domain.MetaSource,
	domain.MetaTitle,
	domain.MetaProcID,
	domain.MetaSection,
	domain.MetaSubsection,
}

// Processor stamps document metadata onto chunks produced upstream.
type Processor struct {
	keys []string
}

// Option configures the metadata processor.
type Option func(*Processor)

// WithKeys replaces the set of keys copied from the document.
func WithKeys(keys ...string) Option {
	return func(p *Processor) {
		p.keys = keys
	}
}

// New creates a metadata processor.
func New(opts ...Option) *Processor {
	p := &Processor{keys: DefaultKeys}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "metadata"
}

// Process returns copies of chunks with document metadata merged in.
// Values already present on a chunk are kept.
func (p *Processor) Process(_ context.Context, doc *domain.Document, chunks []domain.Chunk) ([]domain.Chunk, error) {
	if doc == nil {
		return nil, fmt.Errorf("%w: document is nil", domain.ErrInvalidInput)
	}

	stamp := p.documentMetadata(doc)

	out := make([]domain.Chunk, len(chunks))
	for i, c := range chunks {
		md := make(map[string]any, len(c.Metadata)+len(stamp))
		for k, v := range stamp {
			md[k] = v
		}
		for k, v := range c.Metadata {
			md[k] = v
		}
		c.Metadata = md
		out[i] = c
	}
	return out, nil
}

func (p *Processor) documentMetadata(doc *domain.Document) map[string]any {
	md := make(map[string]any, len(p.keys))
	for _, k := range p.keys {
		if v, ok := doc.Metadata[k]; ok && v != nil && v != "" {
			md[k] = v
		}
	}
	if _, ok := md[domain.MetaSource]; !ok && doc.URI != "" {
		md[domain.MetaSource] = doc.URI
	}
	if _, ok := md[domain.MetaTitle]; !ok && doc.Title != "" {
		md[domain.MetaTitle] = doc.Title
	}
	return md
}
