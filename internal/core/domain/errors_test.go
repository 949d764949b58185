package domain

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestErrors_Existence tests that all error variables exist and are not nil
func TestErrors_Existence(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"ErrNotFound", ErrNotFound},
		{"ErrInvalidInput", ErrInvalidInput},
		{"ErrParse", ErrParse},
		{"ErrUnsupportedLanguage", ErrUnsupportedLanguage},
		{"ErrCapability", ErrCapability},
		{"ErrMalformedGeneration", ErrMalformedGeneration},
		{"ErrAggregation", ErrAggregation},
		{"ErrSuperseded", ErrSuperseded},
		{"ErrLLMUnavailable", ErrLLMUnavailable},
		{"ErrEmbeddingUnavailable", ErrEmbeddingUnavailable},
		{"ErrRateLimited", ErrRateLimited},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotNil(t, tt.err)
			assert.NotEmpty(t, tt.err.Error())
		})
	}
}

func TestParseError(t *testing.T) {
	err := &ParseError{Language: "python", Line: 3, Column: 7, Message: "missing )"}

	assert.Equal(t, "parse error: python source invalid at 3:7: missing )", err.Error())
	assert.ErrorIs(t, err, ErrParse)
	assert.ErrorIs(t, fmt.Errorf("chunk app.py: %w", err), ErrParse)

	bare := &ParseError{Language: "javascript", Line: 1, Column: 1}
	assert.Equal(t, "parse error: javascript source invalid at 1:1", bare.Error())
}

func TestCapabilityError(t *testing.T) {
	cause := errors.New("connection reset")
	err := NewTransientError("generate", cause)

	assert.ErrorIs(t, err, ErrCapability)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "generate")
	assert.Contains(t, err.Error(), "connection reset")

	var capErr *CapabilityError
	require.ErrorAs(t, err, &capErr)
	assert.True(t, capErr.Transient)

	perm := NewPermanentError("embed", ErrRateLimited)
	require.ErrorAs(t, perm, &capErr)
	assert.False(t, capErr.Transient)
	assert.ErrorIs(t, perm, ErrRateLimited)
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"transient capability", NewTransientError("op", errors.New("timeout")), true},
		{"permanent capability", NewPermanentError("op", errors.New("401")), false},
		{"wrapped transient", fmt.Errorf("call: %w", NewTransientError("op", errors.New("503"))), true},
		{"superseded", ErrSuperseded, false},
		{"malformed", &MalformedGenerationError{Reason: "bad json"}, false},
		{"llm unavailable", ErrLLMUnavailable, false},
		{"embedding unavailable", fmt.Errorf("query: %w", ErrEmbeddingUnavailable), false},
		{"canceled", context.Canceled, false},
		{"deadline", fmt.Errorf("wait: %w", context.DeadlineExceeded), false},
		{"capability wrapping deadline", NewTransientError("op", context.DeadlineExceeded), true},
		{"unclassified", errors.New("boom"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTransient(tt.err))
		})
	}
}

func TestMalformedGenerationError(t *testing.T) {
	err := &MalformedGenerationError{Reason: "severity \"Severe\" not in enum", Response: "{}"}

	assert.ErrorIs(t, err, ErrMalformedGeneration)
	assert.ErrorIs(t, err, ErrCapability)
	assert.False(t, errors.Is(err, ErrParse))
	assert.Contains(t, err.Error(), "Severe")
}

func TestAggregationError(t *testing.T) {
	err := &AggregationError{FilePath: "app.py", Reason: "duplicate chunk id"}

	assert.ErrorIs(t, err, ErrAggregation)
	assert.Equal(t, "aggregation contract violated: app.py: duplicate chunk id", err.Error())
}

func TestNewStatusError(t *testing.T) {
	tests := []struct {
		status    int
		transient bool
		limited   bool
	}{
		{status: 400},
		{status: 401},
		{status: 404},
		{status: 429, transient: true, limited: true},
		{status: 500, transient: true},
		{status: 503, transient: true},
	}

	for _, tt := range tests {
		err := NewStatusError("generate", tt.status, "boom")
		assert.ErrorIs(t, err, ErrCapability)
		assert.Equal(t, tt.transient, IsTransient(err), "status %d", tt.status)
		assert.Equal(t, tt.limited, errors.Is(err, ErrRateLimited), "status %d", tt.status)
		assert.Contains(t, err.Error(), "boom")
	}
}
