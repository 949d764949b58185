// Package ollama completes prompts with a local Ollama server.
package ollama

import (
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/vigil/internal/adapters/driven/httpapi"
	"github.com/custodia-labs/vigil/internal/core/domain"
	"github.com/custodia-labs/vigil/internal/core/ports/driven"
)

var _ driven.LLMService = (*LLMService)(nil)

// Default configuration values.
const (
	DefaultBaseURL    = "http://localhost:11434"
	DefaultLLMModel   = "llama3.2"
	DefaultLLMTimeout = 120 * time.Second
)

// LLMConfig holds configuration for the Ollama LLM service.
type LLMConfig struct {
	BaseURL string
	Model   string
	Timeout time.Duration
}

// LLMService completes prompts through /api/generate without streaming.
type LLMService struct {
	api   *httpapi.Client
	model string
}

type generateRequest struct {
	Model   string   `json:"model"`
	Prompt  string   `json:"prompt"`
	System  string   `json:"system,omitempty"`
	Format  string   `json:"format,omitempty"`
	Stream  bool     `json:"stream"`
	Options *options `json:"options,omitempty"`
}

type options struct {
	NumPredict  int     `json:"num_predict,omitempty"`
	Temperature float64 `json:"temperature"`
}

type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
	Error    string `json:"error,omitempty"`
}

// NewLLMService creates an Ollama LLM service. No key is needed.
func NewLLMService(cfg LLMConfig) *LLMService {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultLLMModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultLLMTimeout
	}
	return &LLMService{
		api:   httpapi.New("ollama", cfg.BaseURL, cfg.Timeout),
		model: cfg.Model,
	}
}

// Generate completes prompt. JSON requests set format=json, which makes
// Ollama constrain the output to a JSON value.
func (s *LLMService) Generate(ctx context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	req := generateRequest{
		Model:  s.model,
		Prompt: prompt,
		System: opts.System,
		Options: &options{
			NumPredict:  opts.MaxTokens,
			Temperature: opts.Temperature,
		},
	}
	if opts.JSON {
		req.Format = "json"
	}

	var resp generateResponse
	if err := s.api.PostJSON(ctx, "generate", "/api/generate", req, &resp); err != nil {
		return "", err
	}
	// A 200 carrying an error usually means the model is still loading.
	if resp.Error != "" {
		return "", domain.NewTransientError(s.api.Op("generate"), fmt.Errorf("ollama error: %s", resp.Error))
	}
	return resp.Response, nil
}

// ModelName returns the model name.
func (s *LLMService) ModelName() string { return s.model }

// Ping lists local models.
func (s *LLMService) Ping(ctx context.Context) error {
	return s.api.Get(ctx, "ping", "/api/tags", nil)
}

// Close is a no-op.
func (s *LLMService) Close() error { return nil }
