package services

import (
	"context"
	"fmt"
	"os"
	"slices"

	"github.com/custodia-labs/vigil/internal/core/domain"
	"github.com/custodia-labs/vigil/internal/core/ports/driven"
	"github.com/custodia-labs/vigil/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyEmbedProvider = "embedding.provider"
	keyEmbedModel    = "embedding.model"
	keyEmbedBaseURL  = "embedding.base_url"
	keyEmbedAPIKey   = "embedding.api_key"
	keyLLMProvider   = "llm.provider"
	keyLLMModel      = "llm.model"
	keyLLMBaseURL    = "llm.base_url"
	keyLLMAPIKey     = "llm.api_key"

	keyWorkers         = "analysis.workers"
	keyMaxRetries      = "analysis.max_retries"
	keyTopK            = "analysis.top_k"
	keyRequestsPerSec  = "analysis.requests_per_second"
	keyRetrievalQuery  = "analysis.retrieval_query"
	keyParseFallback   = "analysis.fallback_on_parse_error"
	keyUnknownSeverity = "analysis.unknown_severity"

	keyWatchDir        = "watch.dir"
	keyWatchExtensions = "watch.extensions"
	keyWatchDebounce   = "watch.debounce_ms"

	keyKnowledgeDir     = "knowledge.dir"
	keyKnowledgeDataDir = "knowledge.data_dir"
)

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
	aiValidator driven.AIConfigValidator
	getenv      func(string) string
}

// NewSettingsService creates a new settings service.
// aiValidator may be nil, in which case connectivity checks are skipped.
func NewSettingsService(configStore driven.ConfigStore, aiValidator driven.AIConfigValidator) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		aiValidator: aiValidator,
		getenv:      os.Getenv,
	}
}

// Get retrieves current application settings.
// API keys missing from the config file are read from the provider's
// environment variable.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	defaults := domain.DefaultAppSettings()

	settings := &domain.AppSettings{
		Embedding: domain.EmbeddingSettings{
			Provider: s.getProvider(keyEmbedProvider),
			BaseURL:  s.configStore.GetString(keyEmbedBaseURL), // No default - empty is valid for cloud providers
			APIKey:   s.configStore.GetString(keyEmbedAPIKey),
		},
		LLM: domain.LLMSettings{
			Provider: s.getProvider(keyLLMProvider),
			BaseURL:  s.configStore.GetString(keyLLMBaseURL),
			APIKey:   s.configStore.GetString(keyLLMAPIKey),
		},
		Analysis: domain.AnalysisSettings{
			Workers:              s.getInt(keyWorkers, defaults.Analysis.Workers),
			MaxRetries:           s.getInt(keyMaxRetries, defaults.Analysis.MaxRetries),
			TopK:                 s.getInt(keyTopK, defaults.Analysis.TopK),
			RequestsPerSecond:    s.getFloat(keyRequestsPerSec, defaults.Analysis.RequestsPerSecond),
			RetrievalQuery:       domain.RetrievalQuery(s.getString(keyRetrievalQuery, string(defaults.Analysis.RetrievalQuery))),
			FallbackOnParseError: s.getBool(keyParseFallback, defaults.Analysis.FallbackOnParseError),
			UnknownSeverity:      domain.UnknownPolicy(s.getString(keyUnknownSeverity, string(defaults.Analysis.UnknownSeverity))),
		},
		Watch: domain.WatchSettings{
			Dir:        s.configStore.GetString(keyWatchDir),
			Extensions: defaults.Watch.Extensions,
			DebounceMS: s.getInt(keyWatchDebounce, defaults.Watch.DebounceMS),
		},
		Knowledge: domain.KnowledgeSettings{
			Dir:     s.configStore.GetString(keyKnowledgeDir),
			DataDir: s.configStore.GetString(keyKnowledgeDataDir),
		},
	}
	if exts := s.configStore.GetStringSlice(keyWatchExtensions); len(exts) > 0 {
		settings.Watch.Extensions = exts
	}
	settings.Analysis = settings.Analysis.WithDefaults()

	settings.Embedding.Model = s.getString(keyEmbedModel, domain.DefaultEmbeddingModels()[settings.Embedding.Provider])
	settings.LLM.Model = s.getString(keyLLMModel, domain.DefaultLLMModels()[settings.LLM.Provider])
	if settings.Embedding.APIKey == "" {
		settings.Embedding.APIKey = s.envKey(settings.Embedding.Provider)
	}
	if settings.LLM.APIKey == "" {
		settings.LLM.APIKey = s.envKey(settings.LLM.Provider)
	}
	if settings.Embedding.BaseURL == "" {
		settings.Embedding.BaseURL = settings.Embedding.Provider.DefaultBaseURL()
	}
	if settings.LLM.BaseURL == "" {
		settings.LLM.BaseURL = settings.LLM.Provider.DefaultBaseURL()
	}

	return settings, nil
}

// Save persists application settings.
// API keys are only written when set, so keys from the environment are
// never copied into the config file by a round trip through Get.
func (s *SettingsService) Save(settings *domain.AppSettings) error {
	values := []struct {
		key   string
		value any
	}{
		{keyEmbedProvider, settings.Embedding.Provider.String()},
		{keyEmbedModel, settings.Embedding.Model},
		{keyEmbedBaseURL, settings.Embedding.BaseURL},
		{keyLLMProvider, settings.LLM.Provider.String()},
		{keyLLMModel, settings.LLM.Model},
		{keyLLMBaseURL, settings.LLM.BaseURL},
		{keyWorkers, settings.Analysis.Workers},
		{keyMaxRetries, settings.Analysis.MaxRetries},
		{keyTopK, settings.Analysis.TopK},
		{keyRequestsPerSec, settings.Analysis.RequestsPerSecond},
		{keyRetrievalQuery, string(settings.Analysis.RetrievalQuery)},
		{keyParseFallback, settings.Analysis.FallbackOnParseError},
		{keyUnknownSeverity, string(settings.Analysis.UnknownSeverity)},
		{keyWatchDir, settings.Watch.Dir},
		{keyWatchExtensions, settings.Watch.Extensions},
		{keyWatchDebounce, settings.Watch.DebounceMS},
		{keyKnowledgeDir, settings.Knowledge.Dir},
		{keyKnowledgeDataDir, settings.Knowledge.DataDir},
	}
	for _, v := range values {
		if err := s.configStore.Set(v.key, v.value); err != nil {
			return fmt.Errorf("save %s: %w", v.key, err)
		}
	}

	if settings.Embedding.APIKey != "" && settings.Embedding.APIKey != s.envKey(settings.Embedding.Provider) {
		if err := s.configStore.Set(keyEmbedAPIKey, settings.Embedding.APIKey); err != nil {
			return fmt.Errorf("save embedding api_key: %w", err)
		}
	}
	if settings.LLM.APIKey != "" && settings.LLM.APIKey != s.envKey(settings.LLM.Provider) {
		if err := s.configStore.Set(keyLLMAPIKey, settings.LLM.APIKey); err != nil {
			return fmt.Errorf("save llm api_key: %w", err)
		}
	}

	return nil
}

// SetEmbeddingProvider configures the embedding provider.
func (s *SettingsService) SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("%w: invalid embedding provider: %s", domain.ErrInvalidInput, provider)
	}
	if !slices.Contains(domain.AllEmbeddingProviders(), provider) {
		return fmt.Errorf("%w: provider %s does not support embeddings", domain.ErrInvalidInput, provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}
	if apiKey == "" {
		apiKey = s.envKey(provider)
	}
	if provider.RequiresAPIKey() && apiKey == "" {
		return fmt.Errorf("%w: API key required for %s (or set %s)", domain.ErrInvalidInput, provider, provider.APIKeyEnv())
	}

	settings.Embedding = domain.EmbeddingSettings{
		Provider: provider,
		Model:    model,
		BaseURL:  provider.DefaultBaseURL(),
		APIKey:   apiKey,
	}
	if settings.Embedding.Model == "" {
		settings.Embedding.Model = domain.DefaultEmbeddingModels()[provider]
	}

	return s.Save(settings)
}

// SetLLMProvider configures the LLM provider.
func (s *SettingsService) SetLLMProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("%w: invalid LLM provider: %s", domain.ErrInvalidInput, provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}
	if apiKey == "" {
		apiKey = s.envKey(provider)
	}
	if provider.RequiresAPIKey() && apiKey == "" {
		return fmt.Errorf("%w: API key required for %s (or set %s)", domain.ErrInvalidInput, provider, provider.APIKeyEnv())
	}

	settings.LLM = domain.LLMSettings{
		Provider: provider,
		Model:    model,
		BaseURL:  provider.DefaultBaseURL(),
		APIKey:   apiKey,
	}
	if settings.LLM.Model == "" {
		settings.LLM.Model = domain.DefaultLLMModels()[provider]
	}

	return s.Save(settings)
}

// Validate checks that both capabilities are configured.
// Analysis needs an embedder for retrieval and an LLM for both steps.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}
	if !settings.Embedding.IsConfigured() {
		return fmt.Errorf("%w: set [embedding] provider in %s", domain.ErrEmbeddingUnavailable, s.configStore.Path())
	}
	if !slices.Contains(domain.AllEmbeddingProviders(), settings.Embedding.Provider) {
		return fmt.Errorf("%w: provider %s does not support embeddings", domain.ErrEmbeddingUnavailable, settings.Embedding.Provider)
	}
	if !settings.LLM.IsConfigured() {
		return fmt.Errorf("%w: set [llm] provider in %s", domain.ErrLLMUnavailable, s.configStore.Path())
	}
	return nil
}

// ValidateEmbeddingConfig validates the current embedding configuration by pinging the provider.
func (s *SettingsService) ValidateEmbeddingConfig(ctx context.Context) error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateEmbedding(ctx, &settings.Embedding)
}

// ValidateLLMConfig validates the current LLM configuration by pinging the provider.
func (s *SettingsService) ValidateLLMConfig(ctx context.Context) error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateLLM(ctx, &settings.LLM)
}

// Helper methods for reading config with defaults.

func (s *SettingsService) envKey(provider domain.AIProvider) string {
	name := provider.APIKeyEnv()
	if name == "" {
		return ""
	}
	return s.getenv(name)
}

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetInt(key)
}

func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetFloat(key)
}

func (s *SettingsService) getBool(key string, defaultVal bool) bool {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetBool(key)
}

func (s *SettingsService) getProvider(key string) domain.AIProvider {
	provider := domain.AIProvider(s.configStore.GetString(key))
	if !provider.IsValid() {
		return ""
	}
	return provider
}
