package driving

import (
	"context"

	"github.com/custodia-labs/vigil/internal/core/domain"
)

// SettingsService manages application settings.
type SettingsService interface {
	// Get retrieves current application settings, defaults filled in.
	Get() (*domain.AppSettings, error)

	// Save writes every setting to the config store.
	Save(settings *domain.AppSettings) error

	// SetEmbeddingProvider configures the embedding provider.
	SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error

	// SetLLMProvider configures the LLM provider.
	SetLLMProvider(provider domain.AIProvider, model, apiKey string) error

	// Validate checks that both capabilities are configured.
	Validate() error

	// ValidateEmbeddingConfig validates the current embedding configuration by pinging the provider.
	ValidateEmbeddingConfig(ctx context.Context) error

	// ValidateLLMConfig validates the current LLM configuration by pinging the provider.
	ValidateLLMConfig(ctx context.Context) error
}
