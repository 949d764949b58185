package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/custodia-labs/vigil/internal/core/domain"
	"github.com/custodia-labs/vigil/internal/core/ports/driven"
)

// Ensure GuidanceStore implements the interface.
var _ driven.GuidanceStore = (*GuidanceStore)(nil)

// GuidanceStore is an in-memory implementation of driven.GuidanceStore.
// It keeps only the most recent generation, like the SQLite store.
type GuidanceStore struct {
	mu     sync.RWMutex
	latest *domain.GuidanceGeneration
}

// NewGuidanceStore creates a new in-memory guidance store.
func NewGuidanceStore() *GuidanceStore {
	return &GuidanceStore{}
}

// SaveGeneration stores a copy of the generation.
func (s *GuidanceStore) SaveGeneration(_ context.Context, gen *domain.GuidanceGeneration) error {
	if gen == nil {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latest = cloneGeneration(gen)
	return nil
}

// LoadLatest returns a copy of the last saved generation.
func (s *GuidanceStore) LoadLatest(_ context.Context) (*domain.GuidanceGeneration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.latest == nil {
		return nil, domain.ErrNotFound
	}
	return cloneGeneration(s.latest), nil
}

// Close is a no-op.
func (s *GuidanceStore) Close() error {
	return nil
}

func cloneGeneration(gen *domain.GuidanceGeneration) *domain.GuidanceGeneration {
	out := &domain.GuidanceGeneration{
		ID:                  gen.ID,
		Titles:              slices.Clone(gen.Titles),
		Sections:            slices.Clone(gen.Sections),
		EmbeddingModel:      gen.EmbeddingModel,
		EmbeddingDimensions: gen.EmbeddingDimensions,
	}
	for i := range out.Sections {
		out.Sections[i].Embedding = slices.Clone(out.Sections[i].Embedding)
	}
	return out
}
