// Package mcp provides an MCP (Model Context Protocol) server adapter for qmsrag.
// It lets AI assistants ask grounded questions about the QMS documentation and
// browse the procedure catalogue.
package mcp

import "errors"

// ErrMissingRetrievalService is returned when the retrieval service is not provided.
var ErrMissingRetrievalService = errors.New("mcp: retrieval service is required")
