package chunker

import (
	"fmt"

	"github.com/custodia-labs/qms-rag/internal/core/domain"
)

// Span is one chunk of text with its rune offset in the source.
type Span struct {
	Offset int
	Text   string
}

// separatorTiers lists split boundaries from most to least preferred.
// Separators within a tier are equivalent; the latest one wins.
var separatorTiers = [][]string{
	{"\n\n"},
	{"\n"},
	{". ", "? ", "! "},
	{" "},
}

// Split cuts text into spans of at most size runes where consecutive spans
// share exactly overlap runes. Split points prefer paragraph breaks, then
// line breaks, then sentence ends, then spaces, and fall back to a hard cut.
func Split(text string, size, overlap int) ([]Span, error) {
	if err := validate(size, overlap); err != nil {
		return nil, err
	}

	runes := []rune(text)
	n := len(runes)
	if n == 0 {
		return nil, nil
	}

	spans := make([]Span, 0, n/(size-overlap)+1)
	start := 0
	for {
		if n-start <= size {
			spans = append(spans, Span{Offset: start, Text: string(runes[start:])})
			return spans, nil
		}
		end := splitPoint(runes, start, size, overlap)
		spans = append(spans, Span{Offset: start, Text: string(runes[start:end])})
		start = end - overlap
	}
}

func validate(size, overlap int) error {
	if size <= 0 {
		return fmt.Errorf("%w: chunk size must be positive, got %d", domain.ErrConfiguration, size)
	}
	if overlap < 0 {
		return fmt.Errorf("%w: overlap must not be negative, got %d", domain.ErrConfiguration, overlap)
	}
	if overlap >= size {
		return fmt.Errorf("%w: overlap %d must be smaller than chunk size %d", domain.ErrConfiguration, overlap, size)
	}
	return nil
}

// splitPoint returns the exclusive end of the chunk starting at start.
// The end always lies in (start+overlap, start+size] so the next chunk
// starts strictly after this one.
func splitPoint(runes []rune, start, size, overlap int) int {
	limit := start + size
	lowest := start + overlap + 1

	for _, tier := range separatorTiers {
		best := -1
		for _, sep := range tier {
			if end := lastSeparatorEnd(runes, sep, start, lowest, limit); end > best {
				best = end
			}
		}
		if best > 0 {
			return best
		}
	}
	return limit
}

// lastSeparatorEnd finds the last occurrence of sep that starts at or after
// start and ends within [lowest, limit], returning its end or -1.
func lastSeparatorEnd(runes []rune, sep string, start, lowest, limit int) int {
	s := []rune(sep)
	for i := limit - len(s); i >= start && i+len(s) >= lowest; i-- {
		if hasPrefixAt(runes, s, i) {
			return i + len(s)
		}
	}
	return -1
}

func hasPrefixAt(runes, prefix []rune, at int) bool {
	if at+len(prefix) > len(runes) {
		return false
	}
	for j, r := range prefix {
		if runes[at+j] != r {
			return false
		}
	}
	return true
}
