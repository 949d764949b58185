package services

import (
	"context"
	"errors"
	"hash/fnv"
	"strings"
	"sync"
	"unicode"

	"github.com/custodia-labs/vigil/internal/core/domain"
	"github.com/custodia-labs/vigil/internal/core/ports/driven"
)

const bowDimensions = 64

// bowEmbedder embeds text as a hashed bag of words. Identical word sets
// produce identical vectors, so retrieval is deterministic. The zero value
// is a 64-dimension "bag-of-words" model.
type bowEmbedder struct {
	model      string
	dims       int
	mu         sync.Mutex
	embedCalls int
	batchCalls int
	queries    []string
	embedErr   error
	batchErr   error
}

func (e *bowEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	e.embedCalls++
	e.queries = append(e.queries, text)
	err := e.embedErr
	e.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return bagOfWords(text, e.Dimensions()), nil
}

func (e *bowEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	e.batchCalls++
	err := e.batchErr
	e.mu.Unlock()
	if err != nil {
		return nil, err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = bagOfWords(t, e.Dimensions())
	}
	return out, nil
}

func (e *bowEmbedder) Dimensions() int {
	if e.dims > 0 {
		return e.dims
	}
	return bowDimensions
}

func (e *bowEmbedder) ModelName() string {
	if e.model != "" {
		return e.model
	}
	return "bag-of-words"
}

func (e *bowEmbedder) Ping(_ context.Context) error { return nil }
func (e *bowEmbedder) Close() error                 { return nil }

func (e *bowEmbedder) counts() (embed, batch int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.embedCalls, e.batchCalls
}

func bagOfWords(text string, dims int) []float32 {
	v := make([]float32, dims)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
	})
	for _, w := range words {
		h := fnv.New32a()
		_, _ = h.Write([]byte(w))
		v[h.Sum32()%uint32(dims)]++
	}
	return v
}

// constantEmbedder returns the same vector for every text.
type constantEmbedder struct{ bowEmbedder }

func (e *constantEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	return []float32{1, 0, 0}, nil
}

func (e *constantEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0, 0}
	}
	return out, nil
}

// fakeLLM answers through a function and counts calls per step.
type fakeLLM struct {
	mu       sync.Mutex
	respond  func(ctx context.Context, prompt string, opts driven.GenerateOptions) (string, error)
	contexts int
	generate int
	prompts  []string
	systems  []string
}

func (l *fakeLLM) Generate(ctx context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	l.mu.Lock()
	if opts.JSON {
		l.generate++
	} else {
		l.contexts++
	}
	l.prompts = append(l.prompts, prompt)
	l.systems = append(l.systems, opts.System)
	l.mu.Unlock()
	return l.respond(ctx, prompt, opts)
}

func (l *fakeLLM) ModelName() string            { return "fake" }
func (l *fakeLLM) Ping(_ context.Context) error { return nil }
func (l *fakeLLM) Close() error                 { return nil }

func (l *fakeLLM) calls() (contexts, generate int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.contexts, l.generate
}

// stubPrompts serves fixed templates.
type stubPrompts struct{}

func (stubPrompts) Load(name string) (string, error) {
	switch name {
	case driven.PromptContextualize:
		return "SUMMARIZE:\n%s", nil
	case driven.PromptGenerate:
		return "CONTEXT:\n%s\nGUIDANCE:\n%s\nCODE:\n%s", nil
	case driven.PromptSystem:
		return "You review code.", nil
	default:
		return "", domain.ErrNotFound
	}
}

func (stubPrompts) Reload() {}

// missingSystemPrompt serves every template except the system prompt.
type missingSystemPrompt struct{ stubPrompts }

func (p missingSystemPrompt) Load(name string) (string, error) {
	if name == driven.PromptSystem {
		return "", errors.New("permission denied")
	}
	return p.stubPrompts.Load(name)
}

// memoryGuidanceStore keeps the last saved generation.
type memoryGuidanceStore struct {
	mu      sync.Mutex
	latest  *domain.GuidanceGeneration
	saves   int
	saveErr error
}

func (s *memoryGuidanceStore) SaveGeneration(_ context.Context, gen *domain.GuidanceGeneration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saves++
	s.latest = gen
	return nil
}

func (s *memoryGuidanceStore) LoadLatest(_ context.Context) (*domain.GuidanceGeneration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.latest == nil {
		return nil, domain.ErrNotFound
	}
	return s.latest, nil
}

func (s *memoryGuidanceStore) Close() error { return nil }

var errFlaky = errors.New("connection reset by peer")
