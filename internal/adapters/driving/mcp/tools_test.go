package mcp

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/vigil/internal/core/domain"
)

func sampleReport(path string) *domain.FileReport {
	chunk := domain.Chunk{ID: "c1", Kind: domain.ChunkKindFunction, Name: "is_authorized", StartLine: 1, EndLine: 2}
	finding := domain.Finding{
		ChunkID:         "c1",
		ContextSummary:  "Always grants access.",
		Severity:        domain.SeverityHigh,
		MatchedGuidance: []string{"g1"},
		Recommendations: []string{"Check the user's role."},
	}
	return &domain.FileReport{
		FilePath:        path,
		Findings:        []domain.Finding{finding},
		Entries:         []domain.ReportEntry{{Chunk: chunk, Finding: finding}},
		OverallSeverity: domain.SeverityHigh,
		AlertSeverity:   domain.SeverityHigh,
		Counts:          map[domain.Severity]int{domain.SeverityHigh: 1},
		Generation:      4,
	}
}

func TestServer_handleAnalyzeFile(t *testing.T) {
	ctx := context.Background()

	t.Run("analyzes inline content", func(t *testing.T) {
		analysis := &mockAnalysisService{report: sampleReport("auth.py")}
		server := newTestServer(t, analysis, nil)

		input := AnalyzeFileInput{Path: "auth.py", Content: "def is_authorized(u):\n    return True\n"}
		_, output, err := server.handleAnalyzeFile(ctx, nil, input)

		require.NoError(t, err)
		assert.Equal(t, "auth.py", analysis.path)
		assert.Equal(t, input.Content, analysis.content)
		assert.Equal(t, "High", output.OverallSeverity)
		assert.Equal(t, int64(4), output.Generation)
		assert.Equal(t, map[string]int{"High": 1}, output.Counts)
		require.Len(t, output.Findings, 1)
		assert.Equal(t, "function", output.Findings[0].Kind)
		assert.Equal(t, "is_authorized", output.Findings[0].Name)
		assert.Equal(t, 1, output.Findings[0].StartLine)
		assert.Equal(t, []string{"g1"}, output.Findings[0].MatchedGuidance)
	})

	t.Run("reads the file when content is omitted", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "app.js")
		require.NoError(t, os.WriteFile(path, []byte("let x = 1;\n"), 0644))

		analysis := &mockAnalysisService{report: sampleReport(path)}
		server := newTestServer(t, analysis, nil)

		_, _, err := server.handleAnalyzeFile(ctx, nil, AnalyzeFileInput{Path: path})
		require.NoError(t, err)
		assert.Equal(t, "let x = 1;\n", analysis.content)
	})

	t.Run("relative paths resolve against root", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "a.py"), []byte("x = 1\n"), 0644))

		analysis := &mockAnalysisService{report: sampleReport("a.py")}
		server := newTestServer(t, analysis, nil, WithRoot(dir))

		_, _, err := server.handleAnalyzeFile(ctx, nil, AnalyzeFileInput{Path: "a.py"})
		require.NoError(t, err)
		assert.Equal(t, "x = 1\n", analysis.content)
	})

	t.Run("paths outside root are rejected", func(t *testing.T) {
		server := newTestServer(t, nil, nil, WithRoot(t.TempDir()))

		_, _, err := server.handleAnalyzeFile(ctx, nil, AnalyzeFileInput{Path: "../etc/passwd"})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("failed file is reported, not an error", func(t *testing.T) {
		analysis := &mockAnalysisService{
			report: &domain.FileReport{
				FilePath: "bad.py",
				Failure:  &domain.FileFailure{Reason: "syntax error", Line: 3},
			},
			err: &domain.ParseError{Language: "python", Line: 3, Message: "syntax error"},
		}
		server := newTestServer(t, analysis, nil)

		_, output, err := server.handleAnalyzeFile(ctx, nil, AnalyzeFileInput{Path: "bad.py", Content: "def ("})
		require.NoError(t, err)
		assert.Equal(t, "syntax error", output.Failure)
		assert.Equal(t, 3, output.FailureLine)
		assert.Empty(t, output.Findings)
	})

	t.Run("missing path", func(t *testing.T) {
		server := newTestServer(t, nil, nil)
		_, _, err := server.handleAnalyzeFile(ctx, nil, AnalyzeFileInput{Content: "x"})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("analysis error is returned", func(t *testing.T) {
		server := newTestServer(t, &mockAnalysisService{err: domain.ErrSuperseded}, nil)
		_, _, err := server.handleAnalyzeFile(ctx, nil, AnalyzeFileInput{Path: "a.py", Content: "x"})
		assert.ErrorIs(t, err, domain.ErrSuperseded)
	})
}

func TestServer_handleRebuild(t *testing.T) {
	ctx := context.Background()

	t.Run("inline documents", func(t *testing.T) {
		kb := &mockKnowledgeService{sections: make([]domain.GuidanceSection, 3)}
		server := newTestServer(t, nil, kb)

		docs := map[string]string{"SQL Injection": "# SQL Injection\n\nUse parameters.\n"}
		_, output, err := server.handleRebuild(ctx, nil, RebuildInput{Documents: docs})

		require.NoError(t, err)
		assert.Equal(t, docs, kb.documents)
		assert.Equal(t, RebuildOutput{Generation: 1, Documents: 1, Sections: 3}, output)
	})

	t.Run("documents from a directory", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "xss.md"), []byte("# Cross-Site Scripting\n\nEscape output.\n"), 0644))

		kb := &mockKnowledgeService{}
		server := newTestServer(t, nil, kb)

		_, output, err := server.handleRebuild(ctx, nil, RebuildInput{Dir: dir})
		require.NoError(t, err)
		assert.Contains(t, kb.documents, "Cross-Site Scripting")
		assert.Equal(t, 1, output.Documents)
	})

	t.Run("neither documents nor dir", func(t *testing.T) {
		server := newTestServer(t, nil, nil)
		_, _, err := server.handleRebuild(ctx, nil, RebuildInput{})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("rebuild failure", func(t *testing.T) {
		kb := &mockKnowledgeService{err: domain.ErrEmbeddingUnavailable}
		server := newTestServer(t, nil, kb)
		_, _, err := server.handleRebuild(ctx, nil, RebuildInput{Documents: map[string]string{"a": "b"}})
		assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
	})
}

func TestServer_handleQuery(t *testing.T) {
	ctx := context.Background()

	t.Run("returns hits", func(t *testing.T) {
		kb := &mockKnowledgeService{hits: []domain.ScoredSection{{
			Section: domain.GuidanceSection{ID: "s1", DocumentTitle: "SQL Injection", Heading: "Explanation", Text: "..."},
			Score:   0.9,
		}}}
		server := newTestServer(t, nil, kb)

		_, output, err := server.handleQuery(ctx, nil, QueryInput{Text: "SELECT", K: 5})
		require.NoError(t, err)
		assert.Equal(t, 5, kb.k)
		assert.Equal(t, 1, output.Count)
		assert.Equal(t, "s1", output.Results[0].ID)
		assert.Equal(t, "SQL Injection", output.Results[0].Document)
		assert.InDelta(t, 0.9, output.Results[0].Score, 1e-9)
	})

	t.Run("default k", func(t *testing.T) {
		kb := &mockKnowledgeService{}
		server := newTestServer(t, nil, kb)

		_, output, err := server.handleQuery(ctx, nil, QueryInput{Text: "x"})
		require.NoError(t, err)
		assert.Equal(t, defaultTopK, kb.k)
		assert.Equal(t, 0, output.Count)
	})

	t.Run("query failure", func(t *testing.T) {
		kb := &mockKnowledgeService{err: errors.New("embed failed")}
		server := newTestServer(t, nil, kb)

		_, _, err := server.handleQuery(ctx, nil, QueryInput{Text: "x"})
		assert.EqualError(t, err, "embed failed")
	})
}

func TestServer_resolvePath(t *testing.T) {
	root := t.TempDir()
	server := newTestServer(t, nil, nil, WithRoot(root))

	tests := []struct {
		name    string
		path    string
		want    string
		wantErr bool
	}{
		{"relative", "src/a.py", filepath.Join(root, "src", "a.py"), false},
		{"absolute inside", filepath.Join(root, "b.py"), filepath.Join(root, "b.py"), false},
		{"root itself", root, root, false},
		{"escapes", "../x.py", "", true},
		{"absolute outside", "/etc/passwd", "", true},
		{"dotdot prefix name", "..cache/x.py", filepath.Join(root, "..cache", "x.py"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := server.resolvePath(tt.path)
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrInvalidInput)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	open := newTestServer(t, nil, nil)
	got, err := open.resolvePath("a/../b.py")
	require.NoError(t, err)
	assert.Equal(t, "b.py", got)
}
