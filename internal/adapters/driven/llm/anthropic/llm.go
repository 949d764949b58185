// Package anthropic completes prompts with the Anthropic messages API.
package anthropic

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/custodia-labs/vigil/internal/adapters/driven/httpapi"
	"github.com/custodia-labs/vigil/internal/core/domain"
	"github.com/custodia-labs/vigil/internal/core/ports/driven"
)

var _ driven.LLMService = (*LLMService)(nil)

// Default configuration values.
const (
	DefaultBaseURL   = "https://api.anthropic.com"
	DefaultModel     = "claude-3-5-sonnet-latest"
	DefaultTimeout   = 120 * time.Second
	DefaultMaxTokens = 1024

	anthropicVersion = "2023-06-01"
)

// jsonInstruction is appended to the system prompt when JSON output is
// requested. The messages API has no response format switch.
const jsonInstruction = "Respond with a single JSON object and nothing else."

// Config holds configuration for the Anthropic LLM service.
type Config struct {
	// APIKey is required.
	APIKey string

	BaseURL string
	Model   string
	Timeout time.Duration
}

// LLMService contextualizes chunks and generates findings.
type LLMService struct {
	api   *httpapi.Client
	model string
}

type messagesRequest struct {
	Model       string            `json:"model"`
	Messages    []messagesMessage `json:"messages"`
	MaxTokens   int               `json:"max_tokens"`
	System      string            `json:"system,omitempty"`
	Temperature float64           `json:"temperature"`
}

type messagesMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
}

// NewLLMService creates an Anthropic LLM service.
func NewLLMService(cfg Config) (*LLMService, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic: API key is required: %w", domain.ErrInvalidInput)
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
	return &LLMService{
		api: httpapi.New("anthropic", cfg.BaseURL, cfg.Timeout,
			httpapi.WithHeader("x-api-key", cfg.APIKey),
			httpapi.WithHeader("anthropic-version", anthropicVersion)),
		model: cfg.Model,
	}, nil
}

// Generate sends one user message. The API requires max_tokens, so
// DefaultMaxTokens is used when opts leaves it unset. Overloaded (529)
// responses are 5xx and therefore retried.
func (s *LLMService) Generate(ctx context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	req := messagesRequest{
		Model:       s.model,
		Messages:    []messagesMessage{{Role: "user", Content: prompt}},
		MaxTokens:   opts.MaxTokens,
		System:      opts.System,
		Temperature: opts.Temperature,
	}
	if req.MaxTokens == 0 {
		req.MaxTokens = DefaultMaxTokens
	}
	if opts.JSON {
		req.System = strings.TrimSpace(req.System + "\n\n" + jsonInstruction)
	}

	var resp messagesResponse
	if err := s.api.PostJSON(ctx, "generate", "/v1/messages", req, &resp); err != nil {
		return "", err
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return "", domain.NewPermanentError(s.api.Op("generate"), errors.New("no text content returned"))
	}
	return text.String(), nil
}

// ModelName returns the model name.
func (s *LLMService) ModelName() string { return s.model }

// Ping lists models, which checks the key without running inference.
func (s *LLMService) Ping(ctx context.Context) error {
	return s.api.Get(ctx, "ping", "/v1/models", nil)
}

// Close is a no-op.
func (s *LLMService) Close() error { return nil }
