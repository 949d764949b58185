// Package openai embeds text with the OpenAI embeddings API.
package openai

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
	DefaultBaseURL = "https://api.openai.com/v1"
	DefaultModel   = "text-embedding-3-small"
	DefaultTimeout = 60 * time.Second
)

// Native vector sizes. The text-embedding-3 models also accept a smaller
// "dimensions" request parameter.
var modelDimensions = map[string]int{
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
	"text-embedding-ada-002": 1536,
}

// Config holds configuration for the OpenAI embedding service.
type Config struct {
	// APIKey is required.
	APIKey string

	// BaseURL may point at Azure OpenAI or another compatible API.
	BaseURL string

	Model   string
	Timeout time.Duration

	// Dimensions shortens text-embedding-3 vectors. Zero keeps the native size.
	Dimensions int
}

// EmbeddingService embeds guidance sections and chunk queries.
type EmbeddingService struct {
	api        *httpapi.Client
	model      string
	dimensions int
	shorten    bool
}

type embeddingRequest struct {
	Model      string   `json:"model"`
	Input      []string `json:"input"`
	Dimensions int      `json:"dimensions,omitempty"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
}

// NewEmbeddingService creates an OpenAI embedding service.
func NewEmbeddingService(cfg Config) (*EmbeddingService, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai: API key is required: %w", domain.ErrInvalidInput)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	native, known := modelDimensions[cfg.Model]
	if !known {
		native = 1536
	}
	svc := &EmbeddingService{
		api:        httpapi.New("openai", cfg.BaseURL, cfg.Timeout, httpapi.WithBearer(cfg.APIKey)),
		model:      cfg.Model,
		dimensions: native,
	}
	if cfg.Dimensions > 0 && cfg.Dimensions != native && cfg.Model != "text-embedding-ada-002" {
		svc.dimensions = cfg.Dimensions
		svc.shorten = true
	}
	return svc, nil
}

// Embed embeds a single text.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := s.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch embeds texts in one request. The API may answer out of
// order, so vectors are placed by their index.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	req := embeddingRequest{Model: s.model, Input: texts}
	if s.shorten {
		req.Dimensions = s.dimensions
	}
	var resp embeddingResponse
	if err := s.api.PostJSON(ctx, "embed", "/embeddings", req, &resp); err != nil {
		return nil, err
	}

	vectors := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(texts) {
			return nil, domain.NewPermanentError(s.api.Op("embed"), fmt.Errorf("embedding index %d out of range", d.Index))
		}
		vectors[d.Index] = d.Embedding
	}
	for i, v := range vectors {
		if len(v) == 0 {
			return nil, domain.NewPermanentError(s.api.Op("embed"), fmt.Errorf("no embedding returned for input %d", i))
		}
	}
	return vectors, nil
}

// Dimensions returns the vector size.
func (s *EmbeddingService) Dimensions() int { return s.dimensions }

// ModelName returns the model name.
func (s *EmbeddingService) ModelName() string { return s.model }

// Ping lists models, which checks the key without running inference.
func (s *EmbeddingService) Ping(ctx context.Context) error {
	return s.api.Get(ctx, "ping", "/models", nil)
}

// Close is a no-op.
func (s *EmbeddingService) Close() error { return nil }
