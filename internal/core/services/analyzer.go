package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/vigil/internal/core/domain"
	"github.com/custodia-labs/vigil/internal/core/ports/driven"
	"github.com/custodia-labs/vigil/internal/logger"
)

// ContextPlaceholder replaces the summary when contextualization fails.
const ContextPlaceholder = "(context unavailable)"

// Notes recorded on findings.
const (
	noteNoGuidance = "no guidance matched"
)

// Generation parameters.
const (
	contextMaxTokens  = 256
	generateMaxTokens = 1024
)

// Analyzer runs the fixed contextualize -> retrieve -> generate pipeline
// for one chunk. It never fails: exhausted steps degrade into the finding.
// An Analyzer is safe for concurrent use.
type Analyzer struct {
	llm      driven.LLMService
	index    *GuidanceIndex
	prompts  driven.PromptStore
	settings domain.AnalysisSettings
	retry    retryPolicy
}

// NewAnalyzer creates a chunk analyzer. The limiter is shared by every
// capability call; nil builds one from settings.RequestsPerSecond.
func NewAnalyzer(
	llm driven.LLMService,
	index *GuidanceIndex,
	prompts driven.PromptStore,
	settings domain.AnalysisSettings,
	limiter *rate.Limiter,
) *Analyzer {
	settings = settings.WithDefaults()
	if limiter == nil {
		limiter = newLimiter(settings.RequestsPerSecond)
	}
	return &Analyzer{
		llm:      llm,
		index:    index,
		prompts:  prompts,
		settings: settings,
		retry:    newRetryPolicy(settings.MaxRetries, limiter),
	}
}

// Analyze produces the finding for one chunk against the live guidance.
func (a *Analyzer) Analyze(ctx context.Context, chunk domain.Chunk) domain.Finding {
	return a.analyze(ctx, a.index.Snapshot(), chunk)
}

func (a *Analyzer) analyze(ctx context.Context, gen *domain.GuidanceGeneration, chunk domain.Chunk) domain.Finding {
	finding := domain.Finding{
		ChunkID:         chunk.ID,
		MatchedGuidance: []string{},
		Recommendations: []string{},
	}
	var notes []string

	// 1. Contextualize
	summary, err := a.contextualize(ctx, chunk)
	if err != nil {
		logger.Warn("Contextualize %s failed: %v", chunk.Label(), err)
		notes = append(notes, "context unavailable: "+err.Error())
		summary = ContextPlaceholder
	}
	finding.ContextSummary = summary

	// 2. Retrieve
	query := chunk.Text
	if a.settings.RetrievalQuery == domain.RetrievalQuerySummary && summary != ContextPlaceholder {
		query = summary
	}
	hits, err := a.retrieve(ctx, gen, query)
	switch {
	case err != nil:
		logger.Warn("Retrieve guidance for %s failed: %v", chunk.Label(), err)
		notes = append(notes, "guidance retrieval failed: "+err.Error())
	case len(hits) == 0:
		notes = append(notes, noteNoGuidance)
	}
	finding.MatchedGuidance = append(finding.MatchedGuidance, domain.SectionIDs(hits)...)

	// 3. Generate
	severity, recs, attempts, err := a.generate(ctx, chunk, summary, hits)
	if err != nil {
		finding.Severity = domain.SeverityUnknown
		var malformed *domain.MalformedGenerationError
		if errors.As(err, &malformed) {
			notes = append(notes, "malformed generation: "+malformed.Reason)
		} else {
			notes = append(notes, fmt.Sprintf("generation failed after %d attempt(s): %v", attempts, err))
		}
		logger.Warn("Generate for %s failed: %v", chunk.Label(), err)
	} else {
		finding.Severity = severity
		finding.Recommendations = recs
	}

	finding.Note = strings.Join(notes, "; ")
	logger.Debug("Chunk %s (lines %d-%d): %s", chunk.Label(), chunk.StartLine, chunk.EndLine, finding.Severity)
	return finding
}

// systemPrompt returns the system prompt, or "" when it cannot be loaded.
// The chunk is still analyzed without it.
func (a *Analyzer) systemPrompt() string {
	system, err := a.prompts.Load(driven.PromptSystem)
	if err != nil {
		logger.Warn("System prompt unavailable, continuing without it: %v", err)
		return ""
	}
	return system
}

func (a *Analyzer) contextualize(ctx context.Context, chunk domain.Chunk) (string, error) {
	if a.llm == nil {
		return "", domain.ErrLLMUnavailable
	}
	template, err := a.prompts.Load(driven.PromptContextualize)
	if err != nil {
		return "", fmt.Errorf("load prompt: %w", err)
	}
	system := a.systemPrompt()
	prompt := fmt.Sprintf(template, chunk.Text)

	var summary string
	_, err = a.retry.do(ctx, "contextualize", func(ctx context.Context) error {
		out, err := a.llm.Generate(ctx, prompt, driven.GenerateOptions{
			System:    system,
			MaxTokens: contextMaxTokens,
		})
		if err != nil {
			return err
		}
		summary = strings.TrimSpace(out)
		return nil
	})
	if err != nil {
		return "", err
	}
	if summary == "" {
		return "", errors.New("empty summary")
	}
	return summary, nil
}

func (a *Analyzer) retrieve(ctx context.Context, gen *domain.GuidanceGeneration, query string) ([]domain.ScoredSection, error) {
	if gen == nil || len(gen.Sections) == 0 {
		return nil, nil
	}
	var hits []domain.ScoredSection
	_, err := a.retry.do(ctx, "retrieve", func(ctx context.Context) error {
		var err error
		hits, err = a.index.Search(ctx, gen, query, a.settings.TopK)
		return err
	})
	return hits, err
}

func (a *Analyzer) generate(
	ctx context.Context, chunk domain.Chunk, summary string, hits []domain.ScoredSection,
) (domain.Severity, []string, int, error) {
	if a.llm == nil {
		return "", nil, 0, domain.ErrLLMUnavailable
	}
	template, err := a.prompts.Load(driven.PromptGenerate)
	if err != nil {
		return "", nil, 0, fmt.Errorf("load prompt: %w", err)
	}
	system := a.systemPrompt()
	prompt := fmt.Sprintf(template, summary, renderGuidance(hits), chunk.Text)

	var severity domain.Severity
	var recs []string
	attempts, err := a.retry.do(ctx, "generate", func(ctx context.Context) error {
		out, err := a.llm.Generate(ctx, prompt, driven.GenerateOptions{
			System:    system,
			MaxTokens: generateMaxTokens,
			JSON:      true,
		})
		if err != nil {
			return err
		}
		// Malformed output is not transient, so it ends the loop.
		severity, recs, err = parseGeneration(out)
		return err
	})
	return severity, recs, attempts, err
}

// renderGuidance formats retrieved sections for the generate prompt.
func renderGuidance(hits []domain.ScoredSection) string {
	if len(hits) == 0 {
		return "(no guidance matched)"
	}
	var b strings.Builder
	for i, h := range hits {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "[%d] %s / %s\n%s", i+1, h.Section.DocumentTitle, h.Section.Heading, h.Section.Text)
	}
	return b.String()
}

// generationResponse is the JSON object the generate step must return.
type generationResponse struct {
	Severity        *string  `json:"severity"`
	Recommendations []string `json:"recommendations"`
}

// parseGeneration validates a generate response. Surrounding prose and
// code fences are tolerated; the first JSON object is decoded.
func parseGeneration(out string) (domain.Severity, []string, error) {
	start := strings.IndexByte(out, '{')
	end := strings.LastIndexByte(out, '}')
	if start < 0 || end < start {
		return "", nil, &domain.MalformedGenerationError{Reason: "no JSON object in response", Response: out}
	}

	var resp generationResponse
	if err := json.Unmarshal([]byte(out[start:end+1]), &resp); err != nil {
		return "", nil, &domain.MalformedGenerationError{Reason: "invalid JSON: " + err.Error(), Response: out}
	}
	if resp.Severity == nil {
		return "", nil, &domain.MalformedGenerationError{Reason: "missing severity", Response: out}
	}
	severity, ok := domain.ParseModelSeverity(*resp.Severity)
	if !ok {
		return "", nil, &domain.MalformedGenerationError{
			Reason:   fmt.Sprintf("severity %q not in enum", *resp.Severity),
			Response: out,
		}
	}

	recs := make([]string, 0, len(resp.Recommendations))
	for _, r := range resp.Recommendations {
		if r = strings.TrimSpace(r); r != "" {
			recs = append(recs, r)
		}
	}
	return severity, recs, nil
}
