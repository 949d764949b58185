package openai

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/vigil/internal/core/domain"
	"github.com/custodia-labs/vigil/internal/core/ports/driven"
)

func newTestService(t *testing.T, handler http.HandlerFunc) *LLMService {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	svc, err := NewLLMService(LLMConfig{APIKey: "sk-test", BaseURL: srv.URL})
	require.NoError(t, err)
	return svc
}

func TestNewLLMService_RequiresAPIKey(t *testing.T) {
	_, err := NewLLMService(LLMConfig{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestGenerate_Request(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var req chatCompletionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, DefaultLLMModel, req.Model)
		require.Len(t, req.Messages, 2)
		assert.Equal(t, "system", req.Messages[0].Role)
		assert.Equal(t, "be brief", req.Messages[0].Content)
		assert.Equal(t, "user", req.Messages[1].Role)
		assert.Equal(t, 64, req.MaxTokens)
		require.NotNil(t, req.ResponseFormat)
		assert.Equal(t, "json_object", req.ResponseFormat.Type)

		_, _ = w.Write([]byte(`{"choices": [{"message": {"content": "{\"severity\": \"Low\"}"}}]}`))
	})

	out, err := svc.Generate(t.Context(), "review this", driven.GenerateOptions{
		System:    "be brief",
		MaxTokens: 64,
		JSON:      true,
	})
	require.NoError(t, err)
	assert.Equal(t, `{"severity": "Low"}`, out)
}

func TestGenerate_PlainText(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		var req chatCompletionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Nil(t, req.ResponseFormat)
		assert.Len(t, req.Messages, 1)
		_, _ = w.Write([]byte(`{"choices": [{"message": {"content": "summary"}}]}`))
	})

	out, err := svc.Generate(t.Context(), "summarize", driven.GenerateOptions{})
	require.NoError(t, err)
	assert.Equal(t, "summary", out)
}

func TestGenerate_ErrorClassification(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		transient bool
	}{
		{"rate limited", http.StatusTooManyRequests, true},
		{"server error", http.StatusInternalServerError, true},
		{"unauthorized", http.StatusUnauthorized, false},
		{"bad request", http.StatusBadRequest, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"error": {"message": "denied"}}`))
			})

			_, err := svc.Generate(t.Context(), "x", driven.GenerateOptions{})
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrCapability)
			assert.Equal(t, tt.transient, domain.IsTransient(err))
		})
	}
}

func TestGenerate_NoChoices(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"choices": []}`))
	})

	_, err := svc.Generate(t.Context(), "x", driven.GenerateOptions{})
	require.Error(t, err)
	assert.False(t, domain.IsTransient(err))
}

func TestGenerate_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {}))
	url := srv.URL
	srv.Close()

	svc, err := NewLLMService(LLMConfig{APIKey: "sk-test", BaseURL: url})
	require.NoError(t, err)

	_, err = svc.Generate(t.Context(), "x", driven.GenerateOptions{})
	require.Error(t, err)
	assert.True(t, domain.IsTransient(err))
}
