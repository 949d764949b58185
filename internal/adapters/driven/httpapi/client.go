// Package httpapi is the JSON-over-HTTP client shared by the embedding and
// LLM adapters. Every failure it returns is a *domain.CapabilityError that
// says whether a retry can help: transport errors, 429 and 5xx are
// transient, everything else is permanent.
package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/custodia-labs/vigil/internal/core/domain"
)

// maxResponseBytes caps how much of a response body is read.
const maxResponseBytes = 16 << 20

// Client talks to one provider API.
type Client struct {
	provider string
	baseURL  string
	header   http.Header
	http     *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHeader sets a header on every request.
func WithHeader(key, value string) Option {
	return func(c *Client) {
		c.header.Set(key, value)
	}
}

// WithBearer authenticates with an Authorization bearer token.
func WithBearer(token string) Option {
	return WithHeader("Authorization", "Bearer "+token)
}

// New returns a client for provider (used in error ops, e.g. "openai")
// rooted at baseURL.
func New(provider, baseURL string, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		provider: provider,
		baseURL:  strings.TrimRight(baseURL, "/"),
		header:   make(http.Header),
		http:     &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Op names an operation of this provider, e.g. "openai embed".
func (c *Client) Op(name string) string {
	return c.provider + " " + name
}

// PostJSON sends in as JSON to path and decodes a 200 response into out.
func (c *Client) PostJSON(ctx context.Context, op, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return domain.NewPermanentError(c.Op(op), fmt.Errorf("encode request: %w", err))
	}
	return c.do(ctx, op, http.MethodPost, path, bytes.NewReader(body), out)
}

// Get fetches path. out may be nil when only the status matters.
func (c *Client) Get(ctx context.Context, op, path string, out any) error {
	return c.do(ctx, op, http.MethodGet, path, http.NoBody, out)
}

func (c *Client) do(ctx context.Context, op, method, path string, body io.Reader, out any) error {
	name := c.Op(op)

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return domain.NewPermanentError(name, err)
	}
	for k, v := range c.header {
		req.Header[k] = v
	}
	if method == http.MethodPost {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		// The caller gave up; retrying would only fail again.
		if ctx.Err() != nil {
			return domain.NewPermanentError(name, ctx.Err())
		}
		return domain.NewTransientError(name, fmt.Errorf("send request: %w", err))
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return domain.NewTransientError(name, fmt.Errorf("read response: %w", err))
	}
	if resp.StatusCode != http.StatusOK {
		return domain.NewStatusError(name, resp.StatusCode, ErrorMessage(data))
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return domain.NewPermanentError(name, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

// ErrorMessage extracts the message of a provider error body. OpenAI and
// Anthropic send {"error": {"message": ...}}, Ollama sends {"error": "..."}.
// Anything else is returned as trimmed text.
func ErrorMessage(body []byte) string {
	var envelope struct {
		Error json.RawMessage `json:"error"`
	}
	if json.Unmarshal(body, &envelope) == nil && len(envelope.Error) > 0 {
		var text string
		if json.Unmarshal(envelope.Error, &text) == nil && text != "" {
			return text
		}
		var obj struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(envelope.Error, &obj) == nil && obj.Message != "" {
			return obj.Message
		}
	}
	return strings.TrimSpace(string(body))
}
