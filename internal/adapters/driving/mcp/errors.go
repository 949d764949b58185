// Package mcp provides an MCP (Model Context Protocol) server adapter for vigil.
// It lets AI assistants analyze files and manage the guidance knowledge base.
package mcp

import "errors"

// ErrMissingAnalysisService is returned when the analysis service is not provided.
var ErrMissingAnalysisService = errors.New("mcp: analysis service is required")

// ErrMissingKnowledgeService is returned when the knowledge base service is not provided.
var ErrMissingKnowledgeService = errors.New("mcp: knowledge base service is required")
