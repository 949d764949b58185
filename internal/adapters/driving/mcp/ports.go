package mcp

import (
	"github.com/custodia-labs/vigil/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Analysis analyzes source files.
	Analysis driving.AnalysisService

	// Knowledge manages the guidance corpus.
	Knowledge driving.KnowledgeBaseService
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p.Analysis == nil {
		return ErrMissingAnalysisService
	}
	if p.Knowledge == nil {
		return ErrMissingKnowledgeService
	}
	return nil
}
