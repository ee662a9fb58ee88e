package chunker

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/custodia-labs/qms-rag/internal/core/domain"
)

func TestNew(t *testing.T) {
	t.Run("default values", func(t *testing.T) {
		p, err := New()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if p.ChunkSize() != DefaultChunkSize {
			t.Errorf("expected chunkSize %d, got %d", DefaultChunkSize, p.ChunkSize())
		}
		if p.Overlap() != DefaultChunkOverlap {
			t.Errorf("expected overlap %d, got %d", DefaultChunkOverlap, p.Overlap())
		}
	})

	t.Run("custom values", func(t *testing.T) {
		p, err := New(WithChunkSize(500), WithOverlap(100))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if p.ChunkSize() != 500 || p.Overlap() != 100 {
			t.Errorf("expected 500/100, got %d/%d", p.ChunkSize(), p.Overlap())
		}
	})

	t.Run("overlap equal to chunk size is a configuration error", func(t *testing.T) {
		_, err := New(WithChunkSize(100), WithOverlap(100))
		if !errors.Is(err, domain.ErrConfiguration) {
			t.Errorf("expected ErrConfiguration, got %v", err)
		}
	})

	t.Run("overlap exceeding chunk size is a configuration error", func(t *testing.T) {
		_, err := New(WithChunkSize(100), WithOverlap(150))
		if !errors.Is(err, domain.ErrConfiguration) {
			t.Errorf("expected ErrConfiguration, got %v", err)
		}
	})

	t.Run("non-positive size is a configuration error", func(t *testing.T) {
		_, err := New(WithChunkSize(0), WithOverlap(0))
		if !errors.Is(err, domain.ErrConfiguration) {
			t.Errorf("expected ErrConfiguration, got %v", err)
		}
	})

	t.Run("negative overlap is a configuration error", func(t *testing.T) {
		_, err := New(WithOverlap(-1))
		if !errors.Is(err, domain.ErrConfiguration) {
			t.Errorf("expected ErrConfiguration, got %v", err)
		}
	})
}

func TestProcessor_Name(t *testing.T) {
	p, _ := New()
	if p.Name() != "chunker" {
		t.Errorf("expected name 'chunker', got '%s'", p.Name())
	}
}

func TestProcessor_Process(t *testing.T) {
	ctx := context.Background()

	t.Run("empty content produces no chunks", func(t *testing.T) {
		p, _ := New()
		chunks, err := p.Process(ctx, &domain.Document{ID: "doc-1"}, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(chunks) != 0 {
			t.Errorf("expected 0 chunks, got %d", len(chunks))
		}
	})

	t.Run("nil document is invalid input", func(t *testing.T) {
		p, _ := New()
		_, err := p.Process(ctx, nil, nil)
		if !errors.Is(err, domain.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("short document yields one chunk", func(t *testing.T) {
		p, _ := New(WithChunkSize(100), WithOverlap(10))
		doc := &domain.Document{ID: "doc-1", Content: "Quality policy statement."}

		chunks, err := p.Process(ctx, doc, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(chunks) != 1 {
			t.Fatalf("expected 1 chunk, got %d", len(chunks))
		}
		if chunks[0].Content != doc.Content {
			t.Errorf("expected full content, got %q", chunks[0].Content)
		}
		if chunks[0].DocumentID != "doc-1" || chunks[0].Position != 0 || chunks[0].Offset != 0 {
			t.Errorf("unexpected chunk header: %+v", chunks[0])
		}
		if chunks[0].Metadata == nil {
			t.Error("expected initialised metadata")
		}
	})

	t.Run("positions and ids", func(t *testing.T) {
		p, _ := New(WithChunkSize(50), WithOverlap(10))
		doc := &domain.Document{ID: "doc-1", Content: strings.Repeat("word ", 40)}

		chunks, err := p.Process(ctx, doc, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		ids := make(map[string]bool)
		for i, c := range chunks {
			if c.Position != i {
				t.Errorf("chunk %d has position %d", i, c.Position)
			}
			if ids[c.ID] {
				t.Errorf("duplicate chunk id %s", c.ID)
			}
			ids[c.ID] = true
		}
	})

	t.Run("ids are deterministic", func(t *testing.T) {
		p, _ := New(WithChunkSize(50), WithOverlap(10))
		doc := &domain.Document{ID: "doc-1", Content: strings.Repeat("word ", 40)}

		first, _ := p.Process(ctx, doc, nil)
		second, _ := p.Process(ctx, doc, nil)
		if len(first) != len(second) {
			t.Fatalf("chunk counts differ: %d vs %d", len(first), len(second))
		}
		for i := range first {
			if first[i].ID != second[i].ID {
				t.Errorf("chunk %d id changed between runs", i)
			}
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		p, _ := New()
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := p.Process(cctx, &domain.Document{ID: "d", Content: "x"}, nil)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})
}

func TestChunkID(t *testing.T) {
	a := ChunkID("doc", 0, "text")
	if a != ChunkID("doc", 0, "text") {
		t.Error("expected stable id")
	}
	if a == ChunkID("doc", 1, "text") {
		t.Error("position should change the id")
	}
	if a == ChunkID("other", 0, "text") {
		t.Error("document should change the id")
	}
	if a == ChunkID("doc", 0, "text2") {
		t.Error("content should change the id")
	}
}
