package domain

import (
	"context"
	"errors"
	"fmt"
)

// Domain errors represent analysis failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrParse indicates source text is not syntactically valid for its language.
	ErrParse = errors.New("parse error")

	// ErrUnsupportedLanguage indicates no chunker exists for a file's language.
	ErrUnsupportedLanguage = errors.New("unsupported language")

	// ErrCapability indicates an embedding or LLM call failed.
	ErrCapability = errors.New("capability call failed")

	// ErrMalformedGeneration indicates a generation response failed validation.
	ErrMalformedGeneration = errors.New("malformed generation")

	// ErrAggregation indicates findings violated the aggregation contract.
	// This is a programming error, never an input error.
	ErrAggregation = errors.New("aggregation contract violated")

	// ErrSuperseded indicates an analysis run was cancelled because the same
	// file was submitted again. Its results must be discarded.
	ErrSuperseded = errors.New("analysis superseded by newer submission")

	// ErrLLMUnavailable indicates the LLM service is not configured.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrRateLimited indicates the provider API rate limit was exceeded.
	ErrRateLimited = errors.New("rate limited")
)

// ParseError reports source text that failed to parse.
// Line and Column are 1-based and point at the first error node.
type ParseError struct {
	Language string
	Line     int
	Column   int
	Message  string
}

func (e *ParseError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: %s source invalid at %d:%d", ErrParse, e.Language, e.Line, e.Column)
	}
	return fmt.Sprintf("%s: %s source invalid at %d:%d: %s", ErrParse, e.Language, e.Line, e.Column, e.Message)
}

// Unwrap lets errors.Is match ErrParse.
func (e *ParseError) Unwrap() error { return ErrParse }

// CapabilityError wraps a failed embedding or LLM call.
// Transient errors (network, timeout, rate limit, 5xx) are retried;
// permanent ones (authentication, bad request) are not.
type CapabilityError struct {
	Op        string
	Transient bool
	Err       error
}

func (e *CapabilityError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrCapability, e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *CapabilityError) Unwrap() error { return e.Err }

// Is lets errors.Is match ErrCapability.
func (e *CapabilityError) Is(target error) bool { return target == ErrCapability }

// NewTransientError wraps err as a retryable capability failure.
func NewTransientError(op string, err error) error {
	return &CapabilityError{Op: op, Transient: true, Err: err}
}

// NewPermanentError wraps err as a non-retryable capability failure.
func NewPermanentError(op string, err error) error {
	return &CapabilityError{Op: op, Transient: false, Err: err}
}

// IsTransient reports whether err is worth retrying.
// Errors that were never classified by an adapter are treated as transient,
// except context cancellation of the caller.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrSuperseded) || errors.Is(err, ErrMalformedGeneration) ||
		errors.Is(err, ErrLLMUnavailable) || errors.Is(err, ErrEmbeddingUnavailable) {
		return false
	}
	var capErr *CapabilityError
	if errors.As(err, &capErr) {
		return capErr.Transient
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return true
}

// MalformedGenerationError reports a generation response that failed
// schema validation (bad JSON, missing fields, out-of-enum severity).
type MalformedGenerationError struct {
	Reason   string
	Response string
}

func (e *MalformedGenerationError) Error() string {
	return fmt.Sprintf("%s: %s", ErrMalformedGeneration, e.Reason)
}

// Is lets errors.Is match both ErrMalformedGeneration and ErrCapability.
func (e *MalformedGenerationError) Is(target error) bool {
	return target == ErrMalformedGeneration || target == ErrCapability
}

// AggregationError reports findings that cannot form a valid report.
type AggregationError struct {
	FilePath string
	Reason   string
}

func (e *AggregationError) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrAggregation, e.FilePath, e.Reason)
}

// Unwrap lets errors.Is match ErrAggregation.
func (e *AggregationError) Unwrap() error { return ErrAggregation }

// NewStatusError classifies an HTTP failure from a provider API.
// Rate limiting (429) and server errors (5xx) are transient; every other
// status is permanent.
func NewStatusError(op string, status int, message string) error {
	err := fmt.Errorf("status %d: %s", status, message)
	if status == 429 {
		err = fmt.Errorf("%w: %w", ErrRateLimited, err)
	}
	if status == 429 || status >= 500 {
		return NewTransientError(op, err)
	}
	return NewPermanentError(op, err)
}
