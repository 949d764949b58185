// Package ai provides factory functions for creating AI service adapters.
package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	ollamaembed "github.com/custodia-labs/vigil/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/custodia-labs/vigil/internal/adapters/driven/embedding/openai"
	anthropicllm "github.com/custodia-labs/vigil/internal/adapters/driven/llm/anthropic"
	ollamallm "github.com/custodia-labs/vigil/internal/adapters/driven/llm/ollama"
	openaillm "github.com/custodia-labs/vigil/internal/adapters/driven/llm/openai"
	"github.com/custodia-labs/vigil/internal/core/domain"
	"github.com/custodia-labs/vigil/internal/core/ports/driven"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// configHint is appended to configuration errors.
const configHint = "Check the [embedding] and [llm] tables in ~/.vigil/config.toml"

// InitResult contains the AI services built from settings.
type InitResult struct {
	EmbeddingService driven.EmbeddingService
	LLMService       driven.LLMService
}

// Init creates and validates both capabilities. Both are required: an
// unconfigured or unreachable provider is an error.
func Init(ctx context.Context, settings *domain.AppSettings) (*InitResult, error) {
	if settings == nil {
		return nil, fmt.Errorf("%w: no settings", domain.ErrInvalidInput)
	}

	embedder, err := CreateAndValidateEmbeddingService(ctx, &settings.Embedding)
	if err != nil {
		return nil, err
	}
	if embedder == nil {
		return nil, fmt.Errorf("%w: embedding provider not configured. %s", domain.ErrEmbeddingUnavailable, configHint)
	}

	llm, err := CreateAndValidateLLMService(ctx, &settings.LLM)
	if err != nil {
		embedder.Close()
		return nil, err
	}
	if llm == nil {
		embedder.Close()
		return nil, fmt.Errorf("%w: LLM provider not configured. %s", domain.ErrLLMUnavailable, configHint)
	}

	return &InitResult{EmbeddingService: embedder, LLMService: llm}, nil
}

// Close releases all resources held by InitResult.
func (r *InitResult) Close() error {
	var errs []error
	if r.EmbeddingService != nil {
		errs = append(errs, r.EmbeddingService.Close())
	}
	if r.LLMService != nil {
		errs = append(errs, r.LLMService.Close())
	}
	return errors.Join(errs...)
}

// CreateAndValidateEmbeddingService creates an embedding service and validates connectivity.
// Returns nil without error when the provider is not configured.
func CreateAndValidateEmbeddingService(ctx context.Context, settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	svc, err := CreateEmbeddingService(settings)
	if err != nil {
		return nil, fmt.Errorf("%w: %w. %s", domain.ErrEmbeddingUnavailable, err, configHint)
	}
	if svc == nil {
		return nil, nil
	}

	if err := ping(ctx, svc.Ping); err != nil {
		svc.Close()
		return nil, fmt.Errorf("%w: service unreachable (%w). %s", domain.ErrEmbeddingUnavailable, err, configHint)
	}
	return svc, nil
}

// CreateAndValidateLLMService creates an LLM service and validates connectivity.
// Returns nil without error when the provider is not configured.
func CreateAndValidateLLMService(ctx context.Context, settings *domain.LLMSettings) (driven.LLMService, error) {
	svc, err := CreateLLMService(settings)
	if err != nil {
		return nil, fmt.Errorf("%w: %w. %s", domain.ErrLLMUnavailable, err, configHint)
	}
	if svc == nil {
		return nil, nil
	}

	if err := ping(ctx, svc.Ping); err != nil {
		svc.Close()
		return nil, fmt.Errorf("%w: service unreachable (%w). %s", domain.ErrLLMUnavailable, err, configHint)
	}
	return svc, nil
}

func ping(ctx context.Context, fn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return fn(ctx)
}

// CreateEmbeddingService creates the appropriate embedding service based on settings.
// Returns nil if the provider is not configured.
func CreateEmbeddingService(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	switch settings.Provider {
	case domain.AIProviderOllama:
		return createOllamaEmbedding(settings), nil

	case domain.AIProviderOpenAI:
		return createOpenAIEmbedding(settings)

	case domain.AIProviderAnthropic:
		// Anthropic does not support embeddings.
		return nil, fmt.Errorf("anthropic does not support embeddings, use ollama or openai")

	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", settings.Provider)
	}
}

// CreateLLMService creates the appropriate LLM service based on settings.
// Returns nil if the provider is not configured.
func CreateLLMService(settings *domain.LLMSettings) (driven.LLMService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	switch settings.Provider {
	case domain.AIProviderOllama:
		return ollamallm.NewLLMService(ollamallm.LLMConfig{
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		}), nil

	case domain.AIProviderOpenAI:
		return openaillm.NewLLMService(openaillm.LLMConfig{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		})

	case domain.AIProviderAnthropic:
		return anthropicllm.NewLLMService(anthropicllm.Config{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		})

	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", settings.Provider)
	}
}

// createOllamaEmbedding creates an Ollama embedding service.
func createOllamaEmbedding(settings *domain.EmbeddingSettings) driven.EmbeddingService {
	dimensions := domain.EmbeddingDimensions()[settings.Model]
	if dimensions == 0 {
		dimensions = ollamaembed.DefaultDimensions
	}

	return ollamaembed.NewEmbeddingService(ollamaembed.Config{
		BaseURL:    settings.BaseURL,
		Model:      settings.Model,
		Dimensions: dimensions,
	})
}

// createOpenAIEmbedding creates an OpenAI embedding service.
func createOpenAIEmbedding(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	return openaiembed.NewEmbeddingService(openaiembed.Config{
		APIKey:     settings.APIKey,
		BaseURL:    settings.BaseURL,
		Model:      settings.Model,
		Dimensions: domain.EmbeddingDimensions()[settings.Model],
	})
}
