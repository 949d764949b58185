package domain

const unknownDescription = "Unknown"

// AIProvider identifies an AI service provider for embeddings or LLM.
type AIProvider string

// Available AI providers.
const (
	// AIProviderOllama is local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is OpenAI cloud API.
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderAnthropic is Anthropic cloud API.
	AIProviderAnthropic AIProvider = "anthropic"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOllama, AIProviderOpenAI, AIProviderAnthropic:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI || p == AIProviderAnthropic
}

// IsLocal returns true if the provider runs on the local machine.
func (p AIProvider) IsLocal() bool {
	return p == AIProviderOllama
}

// DefaultBaseURL returns the base URL used for local providers.
func (p AIProvider) DefaultBaseURL() string {
	if p == AIProviderOllama {
		return "http://localhost:11434"
	}
	return ""
}

// APIKeyEnv returns the environment variable consulted when no key is configured.
func (p AIProvider) APIKeyEnv() string {
	switch p {
	case AIProviderOpenAI:
		return "OPENAI_API_KEY"
	case AIProviderAnthropic:
		return "ANTHROPIC_API_KEY"
	default:
		return ""
	}
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	case AIProviderAnthropic:
		return "Anthropic (cloud)"
	default:
		return unknownDescription
	}
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	Provider AIProvider
	Model    string
	BaseURL  string
	APIKey   string
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.IsValid() {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// LLMSettings holds LLM provider configuration.
type LLMSettings struct {
	Provider AIProvider
	Model    string
	BaseURL  string
	APIKey   string
}

// IsConfigured returns true if the LLM provider is set up.
func (l LLMSettings) IsConfigured() bool {
	if !l.Provider.IsValid() {
		return false
	}
	if l.Provider.RequiresAPIKey() && l.APIKey == "" {
		return false
	}
	return true
}

// RetrievalQuery selects the text used to query the guidance index.
type RetrievalQuery string

// Available retrieval query sources.
const (
	// RetrievalQueryCode queries with the chunk source text.
	RetrievalQueryCode RetrievalQuery = "code"

	// RetrievalQuerySummary queries with the context summary when one exists.
	RetrievalQuerySummary RetrievalQuery = "summary"
)

// IsValid returns true if the retrieval query source is recognised.
func (q RetrievalQuery) IsValid() bool {
	return q == RetrievalQueryCode || q == RetrievalQuerySummary
}

// AnalysisSettings controls the per-file pipeline.
type AnalysisSettings struct {
	// Workers bounds concurrent chunk pipelines per file.
	Workers int

	// MaxRetries bounds retries per capability call (attempts = 1 + MaxRetries).
	MaxRetries int

	// TopK is the number of guidance sections retrieved per chunk.
	TopK int

	// RequestsPerSecond throttles all capability calls. Zero disables throttling.
	RequestsPerSecond float64

	// RetrievalQuery selects the guidance query text.
	RetrievalQuery RetrievalQuery

	// FallbackOnParseError analyzes an unparsable file as one raw chunk
	// instead of reporting a failed file.
	FallbackOnParseError bool

	// UnknownSeverity is the alerting policy for Unknown findings.
	UnknownSeverity UnknownPolicy
}

// WithDefaults replaces out-of-range values with defaults.
func (s AnalysisSettings) WithDefaults() AnalysisSettings {
	def := DefaultAnalysisSettings()
	if s.Workers <= 0 {
		s.Workers = def.Workers
	}
	if s.MaxRetries < 0 {
		s.MaxRetries = 0
	}
	if s.TopK <= 0 {
		s.TopK = def.TopK
	}
	if s.RequestsPerSecond < 0 {
		s.RequestsPerSecond = 0
	}
	if !s.RetrievalQuery.IsValid() {
		s.RetrievalQuery = def.RetrievalQuery
	}
	if !s.UnknownSeverity.IsValid() {
		s.UnknownSeverity = def.UnknownSeverity
	}
	return s
}

// WatchSettings controls the directory watcher.
type WatchSettings struct {
	Dir        string
	Extensions []string
	DebounceMS int
}

// KnowledgeSettings locates the guidance corpus and its persisted index.
type KnowledgeSettings struct {
	// Dir holds guidance markdown documents.
	Dir string

	// DataDir holds the sqlite database. Empty uses ~/.vigil/data.
	DataDir string
}

// AppSettings holds all application settings.
type AppSettings struct {
	Embedding EmbeddingSettings
	LLM       LLMSettings
	Analysis  AnalysisSettings
	Watch     WatchSettings
	Knowledge KnowledgeSettings
}

// DefaultAnalysisSettings returns pipeline defaults.
func DefaultAnalysisSettings() AnalysisSettings {
	return AnalysisSettings{
		Workers:              4,
		MaxRetries:           2,
		TopK:                 3,
		RequestsPerSecond:    2,
		RetrievalQuery:       RetrievalQueryCode,
		FallbackOnParseError: false,
		UnknownSeverity:      UnknownEscalate,
	}
}

// DefaultAppSettings returns settings with sensible defaults.
// AI providers are left unconfigured.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Analysis: DefaultAnalysisSettings(),
		Watch: WatchSettings{
			Extensions: []string{".py", ".js"},
			DebounceMS: 300,
		},
	}
}

// AllEmbeddingProviders returns providers that support embeddings.
func AllEmbeddingProviders() []AIProvider {
	return []AIProvider{
		AIProviderOllama,
		AIProviderOpenAI,
	}
}

// AllLLMProviders returns providers that support LLM operations.
func AllLLMProviders() []AIProvider {
	return []AIProvider{
		AIProviderOllama,
		AIProviderOpenAI,
		AIProviderAnthropic,
	}
}

// DefaultEmbeddingModels returns default models for each embedding provider.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama: "nomic-embed-text",
		AIProviderOpenAI: "text-embedding-3-small",
	}
}

// DefaultLLMModels returns default models for each LLM provider.
func DefaultLLMModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama:    "llama3.2",
		AIProviderOpenAI:    "gpt-4o-mini",
		AIProviderAnthropic: "claude-3-5-sonnet-latest",
	}
}

// EmbeddingDimensions returns the vector dimensions for known models.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		// Ollama models
		"nomic-embed-text":  768,
		"mxbai-embed-large": 1024,
		"all-minilm":        384,
		// OpenAI models
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
	}
}
