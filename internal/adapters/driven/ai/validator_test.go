package ai

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/custodia-labs/vigil/internal/core/domain"
	"github.com/custodia-labs/vigil/internal/core/ports/driven"
)

func TestConfigValidator_ImplementsInterface(t *testing.T) {
	var _ driven.AIConfigValidator = NewConfigValidator()
}

func TestConfigValidator_Unconfigured(t *testing.T) {
	v := NewConfigValidator()
	ctx := context.Background()

	assert.NoError(t, v.ValidateEmbedding(ctx, nil))
	assert.NoError(t, v.ValidateEmbedding(ctx, &domain.EmbeddingSettings{}))
	assert.NoError(t, v.ValidateLLM(ctx, nil))
	assert.NoError(t, v.ValidateLLM(ctx, &domain.LLMSettings{Provider: domain.AIProviderOpenAI}))
}

func TestConfigValidator_Reachability(t *testing.T) {
	v := NewConfigValidator()
	ctx := context.Background()

	ok := ollamaServer(t, http.StatusOK)
	assert.NoError(t, v.ValidateLLM(ctx, &domain.LLMSettings{Provider: domain.AIProviderOllama, BaseURL: ok}))
	assert.NoError(t, v.ValidateEmbedding(ctx, &domain.EmbeddingSettings{Provider: domain.AIProviderOllama, BaseURL: ok}))

	down := ollamaServer(t, http.StatusBadGateway)
	assert.ErrorIs(t, v.ValidateLLM(ctx, &domain.LLMSettings{Provider: domain.AIProviderOllama, BaseURL: down}), domain.ErrLLMUnavailable)
}
