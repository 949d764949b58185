package ai

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/vigil/internal/core/domain"
)

// ollamaServer answers the Ollama ping endpoint.
func ollamaServer(t *testing.T, status int) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/tags", r.URL.Path)
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return srv.URL
}

func TestCreateEmbeddingService(t *testing.T) {
	tests := []struct {
		name        string
		settings    *domain.EmbeddingSettings
		wantNil     bool
		wantErr     bool
		errContains string
	}{
		{
			name:     "nil settings returns nil",
			settings: nil,
			wantNil:  true,
		},
		{
			name:     "unconfigured settings returns nil",
			settings: &domain.EmbeddingSettings{},
			wantNil:  true,
		},
		{
			name: "ollama provider creates service",
			settings: &domain.EmbeddingSettings{
				Provider: domain.AIProviderOllama,
				Model:    "nomic-embed-text",
			},
		},
		{
			name: "openai provider creates service",
			settings: &domain.EmbeddingSettings{
				Provider: domain.AIProviderOpenAI,
				APIKey:   "test-key",
				Model:    "text-embedding-3-small",
			},
		},
		{
			name: "openai without key is unconfigured",
			settings: &domain.EmbeddingSettings{
				Provider: domain.AIProviderOpenAI,
			},
			wantNil: true,
		},
		{
			name: "anthropic provider returns error",
			settings: &domain.EmbeddingSettings{
				Provider: domain.AIProviderAnthropic,
				APIKey:   "test-key",
			},
			wantNil:     true,
			wantErr:     true,
			errContains: "does not support embeddings",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := CreateEmbeddingService(tt.settings)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errContains)
			} else {
				require.NoError(t, err)
			}
			if tt.wantNil {
				assert.Nil(t, svc)
			} else {
				assert.NotNil(t, svc)
			}
		})
	}
}

func TestCreateLLMService(t *testing.T) {
	tests := []struct {
		name      string
		settings  *domain.LLMSettings
		wantModel string
	}{
		{
			name:      "ollama",
			settings:  &domain.LLMSettings{Provider: domain.AIProviderOllama},
			wantModel: "llama3.2",
		},
		{
			name:      "openai",
			settings:  &domain.LLMSettings{Provider: domain.AIProviderOpenAI, APIKey: "k"},
			wantModel: "gpt-4o-mini",
		},
		{
			name:      "anthropic with explicit model",
			settings:  &domain.LLMSettings{Provider: domain.AIProviderAnthropic, APIKey: "k", Model: "claude-x"},
			wantModel: "claude-x",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := CreateLLMService(tt.settings)
			require.NoError(t, err)
			require.NotNil(t, svc)
			assert.Equal(t, tt.wantModel, svc.ModelName())
		})
	}

	svc, err := CreateLLMService(&domain.LLMSettings{})
	require.NoError(t, err)
	assert.Nil(t, svc)
}

func TestCreateOllamaEmbedding_Dimensions(t *testing.T) {
	known := createOllamaEmbedding(&domain.EmbeddingSettings{Provider: domain.AIProviderOllama, Model: "all-minilm"})
	assert.Equal(t, 384, known.Dimensions())

	unknown := createOllamaEmbedding(&domain.EmbeddingSettings{Provider: domain.AIProviderOllama, Model: "custom"})
	assert.Equal(t, 768, unknown.Dimensions())
}

func TestCreateAndValidateEmbeddingService(t *testing.T) {
	ctx := context.Background()

	svc, err := CreateAndValidateEmbeddingService(ctx, &domain.EmbeddingSettings{
		Provider: domain.AIProviderOllama,
		BaseURL:  ollamaServer(t, http.StatusOK),
	})
	require.NoError(t, err)
	require.NotNil(t, svc)

	_, err = CreateAndValidateEmbeddingService(ctx, &domain.EmbeddingSettings{
		Provider: domain.AIProviderOllama,
		BaseURL:  ollamaServer(t, http.StatusInternalServerError),
	})
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
	assert.Contains(t, err.Error(), "unreachable")
}

func TestCreateAndValidateLLMService(t *testing.T) {
	ctx := context.Background()

	svc, err := CreateAndValidateLLMService(ctx, &domain.LLMSettings{
		Provider: domain.AIProviderOllama,
		BaseURL:  ollamaServer(t, http.StatusOK),
	})
	require.NoError(t, err)
	require.NotNil(t, svc)

	_, err = CreateAndValidateLLMService(ctx, &domain.LLMSettings{
		Provider: domain.AIProviderOllama,
		BaseURL:  ollamaServer(t, http.StatusServiceUnavailable),
	})
	assert.ErrorIs(t, err, domain.ErrLLMUnavailable)
}

func TestInit(t *testing.T) {
	url := ollamaServer(t, http.StatusOK)
	settings := domain.DefaultAppSettings()
	settings.Embedding = domain.EmbeddingSettings{Provider: domain.AIProviderOllama, BaseURL: url}
	settings.LLM = domain.LLMSettings{Provider: domain.AIProviderOllama, BaseURL: url}

	result, err := Init(context.Background(), &settings)
	require.NoError(t, err)
	assert.NotNil(t, result.EmbeddingService)
	assert.NotNil(t, result.LLMService)
	assert.NoError(t, result.Close())
}

func TestInit_RequiresBothCapabilities(t *testing.T) {
	url := ollamaServer(t, http.StatusOK)

	settings := domain.DefaultAppSettings()
	_, err := Init(context.Background(), &settings)
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)

	settings.Embedding = domain.EmbeddingSettings{Provider: domain.AIProviderOllama, BaseURL: url}
	_, err = Init(context.Background(), &settings)
	assert.ErrorIs(t, err, domain.ErrLLMUnavailable)

	_, err = Init(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestInitResult_Close_Empty(t *testing.T) {
	assert.NoError(t, (&InitResult{}).Close())
}
