package driving

import (
	"context"

	"github.com/custodia-labs/vigil/internal/core/domain"
)

// AnalysisService analyzes source files.
type AnalysisService interface {
	// AnalyzeFile chunks, analyzes and aggregates one file.
	//
	// A file that fails to parse yields a report with Failure set together
	// with a *domain.ParseError, unless the parse fallback is enabled.
	// Submitting the same path again cancels the in-flight run, which then
	// returns domain.ErrSuperseded.
	AnalyzeFile(ctx context.Context, path, fileText string) (*domain.FileReport, error)
}

// KnowledgeBaseService manages the guidance corpus.
type KnowledgeBaseService interface {
	// RebuildKnowledgeBase upserts documents (title -> markdown) and returns
	// the new generation ID.
	RebuildKnowledgeBase(ctx context.Context, documents map[string]string) (int64, error)

	// QueryGuidance returns up to k sections most similar to text.
	QueryGuidance(ctx context.Context, text string, k int) ([]domain.ScoredSection, error)

	// Generation returns the live generation ID (0 when empty).
	Generation() int64

	// Sections returns the live sections in insertion order.
	Sections() []domain.GuidanceSection
}
