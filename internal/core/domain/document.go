package domain

import "time"

// Document represents a loaded source document after normalisation.
// It is immutable once loaded and lives for the duration of one build.
type Document struct {
	// ID is the unique identifier for the document.
	ID string

	// SourceID identifies the origin (file path or procedure id).
	SourceID string

	// URI is the original location of the document.
	URI string

	// Title is the human-readable title.
	Title string

	// Content is the full normalised text, before chunking.
	Content string

	// Metadata contains source metadata such as page, section or proc_id.
	Metadata map[string]any

	// CreatedAt is when the document was loaded.
	CreatedAt time.Time
}

// Chunk is a contiguous span of a document's normalised text.
// Chunks are created once at ingestion time and never mutated.
type Chunk struct {
	// ID is deterministic for a given document, position and content.
	ID string

	// DocumentID links to the parent Document.
	DocumentID string

	// Content is the non-empty text of this chunk.
	Content string

	// Position is the ordinal position within the document.
	Position int

	// Offset is the rune offset of Content within the document text.
	Offset int

	// Metadata holds scalar or string-list values (source, section, proc_id).
	Metadata map[string]any
}

// Source returns the label used when citing this chunk.
// It prefers proc_id, then title, then source metadata, then the document id.
func (c Chunk) Source() string {
	for _, key := range []string{MetaProcID, MetaTitle, MetaSource} {
		if v, ok := c.Metadata[key].(string); ok && v != "" {
			return v
		}
	}
	return c.DocumentID
}

// Well-known metadata keys.
const (
	MetaSource     = "source"
	MetaTitle      = "title"
	MetaProcID     = "proc_id"
	MetaSection    = "section"
	MetaSubsection = "subsection"
	MetaFormat     = "format"
	MetaMIMEType   = "mime_type"
	MetaPages      = "pages"
)

// RawDocument represents opaque bytes read from disk before extraction.
type RawDocument struct {
	// URI is the original location (file path).
	URI string

	// MIMEType is the content type (e.g., "application/pdf").
	MIMEType string

	// Content is the raw bytes.
	Content []byte

	// Metadata contains loader-specific key-value pairs.
	Metadata map[string]any
}
