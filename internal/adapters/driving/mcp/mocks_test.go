package mcp

import (
	"context"
	"testing"

	"github.com/custodia-labs/vigil/internal/core/domain"
)

// mockAnalysisService is a mock implementation of driving.AnalysisService.
type mockAnalysisService struct {
	report *domain.FileReport
	err    error

	path    string
	content string
}

func (m *mockAnalysisService) AnalyzeFile(_ context.Context, path, fileText string) (*domain.FileReport, error) {
	m.path = path
	m.content = fileText
	return m.report, m.err
}

// mockKnowledgeService is a mock implementation of driving.KnowledgeBaseService.
type mockKnowledgeService struct {
	generation int64
	sections   []domain.GuidanceSection
	hits       []domain.ScoredSection
	err        error

	documents map[string]string
	k         int
}

func (m *mockKnowledgeService) RebuildKnowledgeBase(_ context.Context, documents map[string]string) (int64, error) {
	m.documents = documents
	if m.err != nil {
		return 0, m.err
	}
	m.generation++
	return m.generation, nil
}

func (m *mockKnowledgeService) QueryGuidance(_ context.Context, _ string, k int) ([]domain.ScoredSection, error) {
	m.k = k
	return m.hits, m.err
}

func (m *mockKnowledgeService) Generation() int64 {
	return m.generation
}

func (m *mockKnowledgeService) Sections() []domain.GuidanceSection {
	return m.sections
}

func newTestServer(t testing.TB, analysis *mockAnalysisService, kb *mockKnowledgeService, opts ...Option) *Server {
	t.Helper()
	if analysis == nil {
		analysis = &mockAnalysisService{}
	}
	if kb == nil {
		kb = &mockKnowledgeService{}
	}
	s, err := NewServer(&Ports{Analysis: analysis, Knowledge: kb}, opts...)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	return s
}
