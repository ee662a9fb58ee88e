package procedures

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Tokens splits a query into lowercased whitespace tokens with surrounding
// punctuation removed. Inner punctuation such as clause dots is kept.
func Tokens(query string) []string {
	fields := strings.Fields(strings.ToLower(query))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.TrimFunc(f, isEdgePunct)
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}

// Keywords returns the tokens of query longer than three runes, in order and
// without repeats. A positive limit caps the number returned.
func Keywords(query string, limit int) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, tok := range Tokens(query) {
		if utf8.RuneCountInString(tok) <= 3 {
			continue
		}
		if _, ok := seen[tok]; ok {
			continue
		}
		seen[tok] = struct{}{}
		out = append(out, tok)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

func isEdgePunct(r rune) bool {
	return unicode.IsPunct(r) || unicode.IsSymbol(r)
}
