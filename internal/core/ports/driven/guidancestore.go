package driven

import (
	"context"

	"github.com/custodia-labs/vigil/internal/core/domain"
)

// GuidanceStore persists guidance index generations, embeddings included.
// Backed by SQLite; an in-memory implementation exists for tests.
type GuidanceStore interface {
	// SaveGeneration persists a complete generation. It either stores the
	// whole generation or nothing.
	SaveGeneration(ctx context.Context, gen *domain.GuidanceGeneration) error

	// LoadLatest returns the most recent generation.
	// Returns domain.ErrNotFound if none was ever saved.
	LoadLatest(ctx context.Context) (*domain.GuidanceGeneration, error)

	// Close releases resources.
	Close() error
}
