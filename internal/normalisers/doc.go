// Package normalisers provides implementations of the Normaliser interface
// for various document formats. Each normaliser knows how to extract text
// content from a specific MIME type.
//
// DefaultRegistry wires every built-in normaliser; the loader picks one by
// MIME type derived from the file extension.
package normalisers
