// Package openai completes prompts with the OpenAI chat completions API.
package openai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/vigil/internal/adapters/driven/httpapi"
	"github.com/custodia-labs/vigil/internal/core/domain"
	"github.com/custodia-labs/vigil/internal/core/ports/driven"
)

var _ driven.LLMService = (*LLMService)(nil)

// Default configuration values.
const (
	DefaultBaseURL    = "https://api.openai.com/v1"
	DefaultLLMModel   = "gpt-4o-mini"
	DefaultLLMTimeout = 120 * time.Second
)

// LLMConfig holds configuration for the OpenAI LLM service.
type LLMConfig struct {
	// APIKey is required.
	APIKey string

	// BaseURL may point at Azure OpenAI or another compatible API.
	BaseURL string

	Model   string
	Timeout time.Duration
}

// LLMService contextualizes chunks and generates findings.
type LLMService struct {
	api   *httpapi.Client
	model string
}

type chatCompletionRequest struct {
	Model          string              `json:"model"`
	Messages       []chatCompletionMsg `json:"messages"`
	MaxTokens      int                 `json:"max_tokens,omitempty"`
	Temperature    float64             `json:"temperature"`
	ResponseFormat *responseFormat     `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatCompletionMsg struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

// NewLLMService creates an OpenAI LLM service.
func NewLLMService(cfg LLMConfig) (*LLMService, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai: API key is required: %w", domain.ErrInvalidInput)
	}
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
		api:   httpapi.New("openai", cfg.BaseURL, cfg.Timeout, httpapi.WithBearer(cfg.APIKey)),
		model: cfg.Model,
	}, nil
}

// Generate sends the system and user prompts as one chat turn.
// JSON requests use the json_object response format.
func (s *LLMService) Generate(ctx context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	req := chatCompletionRequest{
		Model:       s.model,
		MaxTokens:   opts.MaxTokens,
		Temperature: opts.Temperature,
	}
	if opts.System != "" {
		req.Messages = append(req.Messages, chatCompletionMsg{Role: "system", Content: opts.System})
	}
	req.Messages = append(req.Messages, chatCompletionMsg{Role: "user", Content: prompt})
	if opts.JSON {
		req.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	var resp chatCompletionResponse
	if err := s.api.PostJSON(ctx, "generate", "/chat/completions", req, &resp); err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", domain.NewPermanentError(s.api.Op("generate"), errors.New("no response choices returned"))
	}
	return resp.Choices[0].Message.Content, nil
}

// ModelName returns the model name.
func (s *LLMService) ModelName() string { return s.model }

// Ping lists models, which checks the key without running inference.
func (s *LLMService) Ping(ctx context.Context) error {
	return s.api.Get(ctx, "ping", "/models", nil)
}

// Close is a no-op.
func (s *LLMService) Close() error { return nil }
