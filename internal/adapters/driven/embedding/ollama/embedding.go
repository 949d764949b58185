// Package ollama embeds text with a local Ollama server.
package ollama

import (
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/vigil/internal/adapters/driven/httpapi"
	"github.com/custodia-labs/vigil/internal/core/domain"
	"github.com/custodia-labs/vigil/internal/core/ports/driven"
)

var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// Default configuration values.
const (
	DefaultBaseURL    = "http://localhost:11434"
	DefaultModel      = "nomic-embed-text"
	DefaultTimeout    = 30 * time.Second
	DefaultDimensions = 768 // nomic-embed-text
)

// Config holds configuration for the Ollama embedding service.
type Config struct {
	BaseURL    string
	Model      string
	Timeout    time.Duration
	Dimensions int
}

// EmbeddingService embeds through /api/embeddings, one text per request.
type EmbeddingService struct {
	api        *httpapi.Client
	model      string
	dimensions int
}

type embedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type embedResponse struct {
	Embedding []float32 `json:"embedding"`
}

// NewEmbeddingService creates an Ollama embedding service. No key is needed.
func NewEmbeddingService(cfg Config) *EmbeddingService {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Dimensions == 0 {
		cfg.Dimensions = DefaultDimensions
	}
	return &EmbeddingService{
		api:        httpapi.New("ollama", cfg.BaseURL, cfg.Timeout),
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
	}
}

// Embed embeds a single text.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	var resp embedResponse
	if err := s.api.PostJSON(ctx, "embed", "/api/embeddings", embedRequest{Model: s.model, Prompt: text}, &resp); err != nil {
		return nil, err
	}
	if len(resp.Embedding) == 0 {
		return nil, domain.NewPermanentError(s.api.Op("embed"), fmt.Errorf("empty embedding"))
	}
	return resp.Embedding, nil
}

// EmbedBatch embeds texts sequentially; the endpoint takes one prompt.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		v, err := s.Embed(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("embed text %d: %w", i, err)
		}
		vectors[i] = v
	}
	return vectors, nil
}

// Dimensions returns the configured vector size.
func (s *EmbeddingService) Dimensions() int { return s.dimensions }

// ModelName returns the model name.
func (s *EmbeddingService) ModelName() string { return s.model }

// Ping lists local models.
func (s *EmbeddingService) Ping(ctx context.Context) error {
	return s.api.Get(ctx, "ping", "/api/tags", nil)
}

// Close is a no-op.
func (s *EmbeddingService) Close() error { return nil }
