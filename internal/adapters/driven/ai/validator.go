package ai

import (
	"context"

	"github.com/custodia-labs/vigil/internal/core/domain"
	"github.com/custodia-labs/vigil/internal/core/ports/driven"
)

// Ensure ConfigValidator implements the interface.
var _ driven.AIConfigValidator = (*ConfigValidator)(nil)

// ConfigValidator validates AI provider configurations by pinging them.
type ConfigValidator struct{}

// NewConfigValidator creates a new AI config validator.
func NewConfigValidator() *ConfigValidator {
	return &ConfigValidator{}
}

// ValidateEmbedding validates an embedding configuration by pinging the provider.
// An unconfigured provider is valid.
func (v *ConfigValidator) ValidateEmbedding(ctx context.Context, config *domain.EmbeddingSettings) error {
	svc, err := CreateAndValidateEmbeddingService(ctx, config)
	if svc != nil {
		svc.Close()
	}
	return err
}

// ValidateLLM validates an LLM configuration by pinging the provider.
// An unconfigured provider is valid.
func (v *ConfigValidator) ValidateLLM(ctx context.Context, config *domain.LLMSettings) error {
	svc, err := CreateAndValidateLLMService(ctx, config)
	if svc != nil {
		svc.Close()
	}
	return err
}
