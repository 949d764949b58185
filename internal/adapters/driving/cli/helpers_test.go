package cli

import (
	"bytes"
	"context"
	"strings"
	"sync"

	"github.com/custodia-labs/vigil/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/vigil/internal/core/domain"
	"github.com/custodia-labs/vigil/internal/core/services"
)

// mockAnalysisService returns a canned report per path.
type mockAnalysisService struct {
	mu      sync.Mutex
	reports map[string]*domain.FileReport
	errs    map[string]error
	paths   []string
}

func (m *mockAnalysisService) AnalyzeFile(_ context.Context, path, _ string) (*domain.FileReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.paths = append(m.paths, path)
	if err, ok := m.errs[path]; ok {
		return m.reports[path], err
	}
	if rep, ok := m.reports[path]; ok {
		return rep, nil
	}
	return &domain.FileReport{
		FilePath:        path,
		OverallSeverity: domain.SeverityNone,
		AlertSeverity:   domain.SeverityNone,
		Counts:          map[domain.Severity]int{},
	}, nil
}

// mockKnowledgeService records rebuilds and serves fixed hits.
type mockKnowledgeService struct {
	generation int64
	hits       []domain.ScoredSection
	documents  map[string]string
	k          int
}

func (m *mockKnowledgeService) RebuildKnowledgeBase(_ context.Context, documents map[string]string) (int64, error) {
	m.documents = documents
	m.generation++
	return m.generation, nil
}

func (m *mockKnowledgeService) QueryGuidance(_ context.Context, _ string, k int) ([]domain.ScoredSection, error) {
	m.k = k
	if len(m.hits) > k {
		return m.hits[:k], nil
	}
	return m.hits, nil
}

func (m *mockKnowledgeService) Generation() int64 {
	return m.generation
}

func (m *mockKnowledgeService) Sections() []domain.GuidanceSection {
	out := make([]domain.GuidanceSection, len(m.hits))
	for i := range m.hits {
		out[i] = m.hits[i].Section
	}
	return out
}

var (
	testAnalysis  *mockAnalysisService
	testKnowledge *mockKnowledgeService
	testConfig    *memory.ConfigStore
)

// setupTestServices injects in-memory services and returns a cleanup
// function that restores the globals and flag values.
func setupTestServices() func() {
	origSettings := settingsService
	origAnalysis := analysisService
	origKnowledge := knowledgeService

	testConfig = memory.NewConfigStore()
	testAnalysis = &mockAnalysisService{
		reports: make(map[string]*domain.FileReport),
		errs:    make(map[string]error),
	}
	testKnowledge = &mockKnowledgeService{}

	settingsService = services.NewSettingsService(testConfig, nil)
	analysisService = testAnalysis
	knowledgeService = testKnowledge

	return func() {
		settingsService = origSettings
		analysisService = origAnalysis
		knowledgeService = origKnowledge
		resetFlags()
	}
}

func resetFlags() {
	analyzeJSON = false
	analyzeFailOn = ""
	kbQueryLimit = 3
	kbQueryJSON = false
	verbose = false
	configDir = ""
}

// execute runs the root command with args and returns its output.
func execute(args ...string) (string, error) {
	return executeWithInput("", args...)
}

func executeWithInput(input string, args ...string) (string, error) {
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetIn(strings.NewReader(input))
	rootCmd.SetArgs(args)
	defer func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
	}()

	err := rootCmd.Execute()
	return buf.String(), err
}
