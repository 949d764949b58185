package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/vigil/internal/chunker"
	"github.com/custodia-labs/vigil/internal/core/domain"
	"github.com/custodia-labs/vigil/internal/core/ports/driven"
	"github.com/custodia-labs/vigil/internal/core/ports/driving"
	"github.com/custodia-labs/vigil/internal/logger"
)

// Ensure AnalysisService implements the interfaces.
var (
	_ driving.AnalysisService      = (*AnalysisService)(nil)
	_ driving.KnowledgeBaseService = (*AnalysisService)(nil)
)

// run is one in-flight analysis of a file.
type run struct {
	cancel context.CancelCauseFunc
}

// AnalysisService is the file-level entry point of the core. It chunks a
// file, runs chunk pipelines on a bounded worker pool and aggregates the
// findings in source order.
type AnalysisService struct {
	index    *GuidanceIndex
	analyzer *Analyzer
	settings domain.AnalysisSettings

	mu       sync.Mutex
	inflight map[string]*run
}

// NewAnalysisService creates the analysis service.
func NewAnalysisService(
	index *GuidanceIndex,
	llm driven.LLMService,
	prompts driven.PromptStore,
	settings domain.AnalysisSettings,
) *AnalysisService {
	settings = settings.WithDefaults()
	return &AnalysisService{
		index:    index,
		analyzer: NewAnalyzer(llm, index, prompts, settings, nil),
		settings: settings,
		inflight: make(map[string]*run),
	}
}

// AnalyzeFile analyzes one file. A newer submission for the same path
// cancels this run, which then returns domain.ErrSuperseded and no report.
func (s *AnalysisService) AnalyzeFile(ctx context.Context, path, fileText string) (*domain.FileReport, error) {
	logger.Section("Analyze " + path)

	c, err := chunker.ForPath(path)
	if err != nil {
		return nil, err
	}

	ctx, done := s.begin(ctx, path)
	defer done()

	// One generation serves the whole run, even if a rebuild swaps in a newer one.
	gen := s.index.Snapshot()

	stop := logger.Timed("chunk " + path)
	chunks, err := c.Chunk(ctx, fileText)
	stop()
	if err != nil {
		if cerr := s.cancelled(ctx); cerr != nil {
			return nil, cerr
		}
		var parseErr *domain.ParseError
		if !errors.As(err, &parseErr) {
			return nil, fmt.Errorf("chunk %s: %w", path, err)
		}
		if !s.settings.FallbackOnParseError {
			logger.Warn("Parse failed for %s: %v", path, err)
			return failedReport(path, gen.ID, parseErr), err
		}
		logger.Info("Parse failed for %s, analyzing as one raw chunk", path)
		chunks = []domain.Chunk{chunker.RawChunk(fileText)}
	}
	logger.Debug("%s: %d chunks, %d workers, guidance generation %d", path, len(chunks), s.settings.Workers, gen.ID)

	stop = logger.Timed("analyze " + path)
	findings := make([]domain.Finding, len(chunks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.settings.Workers)
	for i, chunk := range chunks {
		g.Go(func() error {
			findings[i] = s.analyzer.analyze(gctx, gen, chunk)
			return nil
		})
	}
	_ = g.Wait() // chunk pipelines never fail
	stop()

	if cerr := s.cancelled(ctx); cerr != nil {
		return nil, cerr
	}

	report, err := Aggregate(path, findings, s.settings.UnknownSeverity)
	if err != nil {
		logger.Error("%v", err)
		return nil, err
	}
	report.Generation = gen.ID
	report.Entries = make([]domain.ReportEntry, len(chunks))
	for i := range chunks {
		report.Entries[i] = domain.ReportEntry{Chunk: chunks[i], Finding: report.Findings[i]}
	}
	return &report, nil
}

// begin registers a run for path and cancels any run it supersedes.
func (s *AnalysisService) begin(ctx context.Context, path string) (context.Context, func()) {
	key := filepath.Clean(path)
	ctx, cancel := context.WithCancelCause(ctx)
	r := &run{cancel: cancel}

	s.mu.Lock()
	if prev, ok := s.inflight[key]; ok {
		logger.Debug("Superseding in-flight analysis of %s", key)
		prev.cancel(domain.ErrSuperseded)
	}
	s.inflight[key] = r
	s.mu.Unlock()

	return ctx, func() {
		s.mu.Lock()
		if s.inflight[key] == r {
			delete(s.inflight, key)
		}
		s.mu.Unlock()
		cancel(nil)
	}
}

// cancelled returns the reason a run's context ended, or nil if it is live.
func (s *AnalysisService) cancelled(ctx context.Context) error {
	if ctx.Err() == nil {
		return nil
	}
	if cause := context.Cause(ctx); errors.Is(cause, domain.ErrSuperseded) {
		return domain.ErrSuperseded
	}
	return ctx.Err()
}

// failedReport records a file that could not be chunked.
func failedReport(path string, generation int64, parseErr *domain.ParseError) *domain.FileReport {
	return &domain.FileReport{
		FilePath:        path,
		Findings:        []domain.Finding{},
		OverallSeverity: domain.SeverityUnknown,
		AlertSeverity:   domain.SeverityUnknown,
		Counts:          map[domain.Severity]int{},
		Generation:      generation,
		Failure: &domain.FileFailure{
			Reason: parseErr.Error(),
			Line:   parseErr.Line,
		},
	}
}

// RebuildKnowledgeBase upserts guidance documents and returns the new generation ID.
func (s *AnalysisService) RebuildKnowledgeBase(ctx context.Context, documents map[string]string) (int64, error) {
	return s.index.Rebuild(ctx, documents)
}

// QueryGuidance returns up to k live sections most similar to text.
func (s *AnalysisService) QueryGuidance(ctx context.Context, text string, k int) ([]domain.ScoredSection, error) {
	return s.index.Query(ctx, text, k)
}

// Generation returns the live guidance generation ID.
func (s *AnalysisService) Generation() int64 {
	return s.index.Generation()
}

// Sections returns the live guidance sections.
func (s *AnalysisService) Sections() []domain.GuidanceSection {
	return s.index.Sections()
}
