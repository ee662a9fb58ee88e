// Package pdf extracts text from PDF documents page by page.
package pdf

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"

	"github.com/custodia-labs/qms-rag/internal/core/domain"
	"github.com/custodia-labs/qms-rag/internal/core/ports/driven"
	"github.com/custodia-labs/qms-rag/internal/logger"
	"github.com/custodia-labs/qms-rag/internal/normalisers/text"
)

// MIMEType is the PDF content type.
const MIMEType = "application/pdf"

// maxTitleLength bounds the first-line title heuristic.
const maxTitleLength = 200

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// PageExtractor returns the plain text of each page of a PDF.
type PageExtractor interface {
	ExtractPages(content []byte) ([]string, error)
}

// Normaliser handles PDF documents.
type Normaliser struct {
	opts      text.Options
	extractor PageExtractor
}

// New creates a PDF normaliser backed by the pure Go PDF reader.
func New(opts text.Options) *Normaliser {
	return NewWithExtractor(opts, readerExtractor{})
}

// NewWithExtractor creates a PDF normaliser with a custom page extractor.
func NewWithExtractor(opts text.Options, extractor PageExtractor) *Normaliser {
	return &Normaliser{opts: opts, extractor: extractor}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{MIMEType}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 50
}

// Normalise extracts and cleans the text of every page. Pages become
// paragraphs so page boundaries are preferred split points.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	pages, err := n.extractor.ExtractPages(raw.Content)
	if err != nil {
		return nil, fmt.Errorf("%w: extract %s: %v", domain.ErrInvalidInput, raw.URI, err)
	}

	var blank int
	cleaned := make([]string, 0, len(pages))
	for _, page := range pages {
		c := text.NormalizeParagraphs(page, n.opts)
		if c == "" {
			blank++
			continue
		}
		cleaned = append(cleaned, c)
	}
	if blank > 0 {
		logger.Debug("pdf %s: %d of %d pages had no extractable text", raw.URI, blank, len(pages))
	}

	doc := domain.Document{
		ID:        text.DocumentID(raw.URI),
		SourceID:  raw.URI,
		URI:       raw.URI,
		Title:     extractTitle(pages, raw.URI),
		Content:   strings.Join(cleaned, "\n\n"),
		Metadata:  text.CopyMetadata(raw.Metadata),
		CreatedAt: time.Now(),
	}
	doc.Metadata[domain.MetaMIMEType] = raw.MIMEType
	doc.Metadata[domain.MetaFormat] = "pdf"
	doc.Metadata[domain.MetaSource] = raw.URI
	doc.Metadata[domain.MetaPages] = len(pages)

	return &driven.NormaliseResult{
		Documents: []domain.Document{doc},
	}, nil
}

// extractTitle uses the first short non-empty line of the first page with
// text, falling back to the filename.
func extractTitle(pages []string, uri string) string {
	for _, page := range pages {
		for _, line := range strings.Split(page, "\n") {
			line = strings.TrimSpace(strings.Trim(line, "\x00"))
			if line == "" {
				continue
			}
			if len(line) <= maxTitleLength {
				return line
			}
		}
	}
	return text.TitleFromURI(uri)
}

// readerExtractor reads pages with github.com/ledongthuc/pdf.
type readerExtractor struct{}

func (readerExtractor) ExtractPages(content []byte) (pages []string, err error) {
	// The reader panics on some malformed cross-reference tables.
	defer func() {
		if r := recover(); r != nil {
			pages, err = nil, fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, err
	}

	n := r.NumPage()
	pages = make([]string, 0, n)
	for i := 1; i <= n; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		s, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i, err)
		}
		pages = append(pages, s)
	}
	return pages, nil
}
