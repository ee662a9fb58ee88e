// Package text cleans raw extracted document text before chunking.
package text

import (
	"regexp"
	"strings"
)

// Options configures Normalize.
type Options struct {
	// StripPageNumbers removes "Page N", "Page N of M" and "N / M" artifacts.
	StripPageNumbers bool
}

var (
	pageWordPattern = regexp.MustCompile(`(?i)\bpage\s+\d+(\s+of\s+\d+)?\b`)
	pageFracPattern = regexp.MustCompile(`\b\d+\s*/\s*\d+\b`)

	// Word characters, whitespace and . , ; : ( ) - / survive.
	disallowedPattern = regexp.MustCompile(`[^\p{L}\p{N}\p{M}_\s.,;:()\-/]`)
	whitespacePattern = regexp.MustCompile(`\s+`)
	paragraphPattern  = regexp.MustCompile(`\n[ \t\r\f\v]*\n`)
)

// Normalize collapses whitespace to single spaces, drops characters outside
// the allow-list and optionally strips page-number artifacts.
// Empty input yields an empty string.
func Normalize(raw string, opts Options) string {
	if raw == "" {
		return ""
	}

	s := raw
	if opts.StripPageNumbers {
		s = pageWordPattern.ReplaceAllString(s, " ")
		s = pageFracPattern.ReplaceAllString(s, " ")
	}
	s = disallowedPattern.ReplaceAllString(s, "")
	s = whitespacePattern.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// NormalizeParagraphs applies Normalize to each blank-line separated
// paragraph and joins the survivors with "\n\n", so paragraph boundaries
// remain available to the chunker.
func NormalizeParagraphs(raw string, opts Options) string {
	if raw == "" {
		return ""
	}

	parts := paragraphPattern.Split(strings.ReplaceAll(raw, "\r\n", "\n"), -1)
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if cleaned := Normalize(part, opts); cleaned != "" {
			out = append(out, cleaned)
		}
	}
	return strings.Join(out, "\n\n")
}
