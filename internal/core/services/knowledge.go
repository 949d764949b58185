package services

import (
	"context"

	"github.com/custodia-labs/vigil/internal/core/domain"
	"github.com/custodia-labs/vigil/internal/core/ports/driving"
)

// Ensure KnowledgeService implements the interface.
var _ driving.KnowledgeBaseService = (*KnowledgeService)(nil)

// KnowledgeService exposes a guidance index on its own, for callers that
// manage the knowledge base without analyzing files.
type KnowledgeService struct {
	index *GuidanceIndex
}

// NewKnowledgeService creates a knowledge base service over index.
func NewKnowledgeService(index *GuidanceIndex) *KnowledgeService {
	return &KnowledgeService{index: index}
}

// RebuildKnowledgeBase upserts guidance documents and returns the new generation ID.
func (s *KnowledgeService) RebuildKnowledgeBase(ctx context.Context, documents map[string]string) (int64, error) {
	return s.index.Rebuild(ctx, documents)
}

// QueryGuidance returns up to k live sections most similar to text.
func (s *KnowledgeService) QueryGuidance(ctx context.Context, text string, k int) ([]domain.ScoredSection, error) {
	return s.index.Query(ctx, text, k)
}

// Generation returns the live guidance generation ID.
func (s *KnowledgeService) Generation() int64 {
	return s.index.Generation()
}

// Sections returns the live guidance sections.
func (s *KnowledgeService) Sections() []domain.GuidanceSection {
	return s.index.Sections()
}
