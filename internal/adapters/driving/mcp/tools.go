package mcp

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/vigil/internal/core/domain"
	"github.com/custodia-labs/vigil/internal/normalisers/markdown"
)

// defaultTopK is used by query_guidance when k is not set.
const defaultTopK = 3

// AnalyzeFileInput is the input schema for the analyze_file tool.
type AnalyzeFileInput struct {
	Path    string `json:"path" jsonschema:"path of the source file, also used as its identity"`
	Content string `json:"content,omitempty" jsonschema:"file text; read from path when omitted"`
}

// AnalyzeFileOutput is the output schema for the analyze_file tool.
type AnalyzeFileOutput struct {
	FilePath        string          `json:"file_path"`
	OverallSeverity string          `json:"overall_severity"`
	AlertSeverity   string          `json:"alert_severity"`
	Counts          map[string]int  `json:"counts"`
	Generation      int64           `json:"generation"`
	Findings        []FindingOutput `json:"findings"`
	Failure         string          `json:"failure,omitempty"`
	FailureLine     int             `json:"failure_line,omitempty"`
}

// FindingOutput is one chunk's finding.
type FindingOutput struct {
	ChunkID         string   `json:"chunk_id"`
	Kind            string   `json:"kind,omitempty"`
	Name            string   `json:"name,omitempty"`
	StartLine       int      `json:"start_line,omitempty"`
	EndLine         int      `json:"end_line,omitempty"`
	Severity        string   `json:"severity"`
	ContextSummary  string   `json:"context_summary,omitempty"`
	Recommendations []string `json:"recommendations"`
	MatchedGuidance []string `json:"matched_guidance"`
	Note            string   `json:"note,omitempty"`
}

// RebuildInput is the input schema for the rebuild_knowledge_base tool.
type RebuildInput struct {
	Documents map[string]string `json:"documents,omitempty" jsonschema:"guidance markdown keyed by document title"`
	Dir       string            `json:"dir,omitempty" jsonschema:"directory of markdown guidance files, used when documents is empty"`
}

// RebuildOutput is the output schema for the rebuild_knowledge_base tool.
type RebuildOutput struct {
	Generation int64 `json:"generation"`
	Documents  int   `json:"documents"`
	Sections   int   `json:"sections"`
}

// QueryInput is the input schema for the query_guidance tool.
type QueryInput struct {
	Text string `json:"text" jsonschema:"code or prose to match against the guidance"`
	K    int    `json:"k,omitempty" jsonschema:"number of sections to return (default 3)"`
}

// QueryOutput is the output schema for the query_guidance tool.
type QueryOutput struct {
	Results []SectionOutput `json:"results"`
	Count   int             `json:"count"`
}

// SectionOutput represents a single guidance section hit.
type SectionOutput struct {
	ID       string  `json:"id"`
	Document string  `json:"document"`
	Heading  string  `json:"heading"`
	Category string  `json:"category,omitempty"`
	Score    float64 `json:"score"`
	Text     string  `json:"text"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "analyze_file",
		Description: "Analyze a Python or JavaScript file against the security guidance knowledge base",
	}, s.handleAnalyzeFile)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "rebuild_knowledge_base",
		Description: "Ingest guidance documents; documents with an existing title replace it",
	}, s.handleRebuild)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "query_guidance",
		Description: "Return the guidance sections most similar to a snippet",
	}, s.handleQuery)
}

// handleAnalyzeFile handles the analyze_file tool invocation.
func (s *Server) handleAnalyzeFile(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AnalyzeFileInput,
) (*mcp.CallToolResult, AnalyzeFileOutput, error) {
	if strings.TrimSpace(input.Path) == "" {
		return nil, AnalyzeFileOutput{}, fmt.Errorf("%w: path is required", domain.ErrInvalidInput)
	}

	content := input.Content
	if content == "" {
		path, err := s.resolvePath(input.Path)
		if err != nil {
			return nil, AnalyzeFileOutput{}, err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, AnalyzeFileOutput{}, fmt.Errorf("reading %s: %w", input.Path, err)
		}
		content = string(data)
	}

	report, err := s.ports.Analysis.AnalyzeFile(ctx, input.Path, content)
	if report == nil {
		if err == nil {
			err = fmt.Errorf("no report for %s", input.Path)
		}
		return nil, AnalyzeFileOutput{}, err
	}

	return nil, toAnalyzeOutput(report), nil
}

// handleRebuild handles the rebuild_knowledge_base tool invocation.
func (s *Server) handleRebuild(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input RebuildInput,
) (*mcp.CallToolResult, RebuildOutput, error) {
	docs := input.Documents
	if len(docs) == 0 {
		if input.Dir == "" {
			return nil, RebuildOutput{}, fmt.Errorf("%w: documents or dir is required", domain.ErrInvalidInput)
		}
		dir, err := s.resolvePath(input.Dir)
		if err != nil {
			return nil, RebuildOutput{}, err
		}
		docs, err = markdown.LoadDocuments(dir)
		if err != nil {
			return nil, RebuildOutput{}, err
		}
	}

	gen, err := s.ports.Knowledge.RebuildKnowledgeBase(ctx, docs)
	if err != nil {
		return nil, RebuildOutput{}, err
	}

	return nil, RebuildOutput{
		Generation: gen,
		Documents:  len(docs),
		Sections:   len(s.ports.Knowledge.Sections()),
	}, nil
}

// handleQuery handles the query_guidance tool invocation.
func (s *Server) handleQuery(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input QueryInput,
) (*mcp.CallToolResult, QueryOutput, error) {
	k := input.K
	if k <= 0 {
		k = defaultTopK
	}

	hits, err := s.ports.Knowledge.QueryGuidance(ctx, input.Text, k)
	if err != nil {
		return nil, QueryOutput{}, err
	}

	output := QueryOutput{
		Results: make([]SectionOutput, len(hits)),
		Count:   len(hits),
	}
	for i := range hits {
		sec := hits[i].Section
		output.Results[i] = SectionOutput{
			ID:       sec.ID,
			Document: sec.DocumentTitle,
			Heading:  sec.Heading,
			Category: sec.Category,
			Score:    hits[i].Score,
			Text:     sec.Text,
		}
	}

	return nil, output, nil
}

// resolvePath maps a tool path onto the filesystem. With a root set,
// relative paths resolve against it and paths outside it are rejected.
func (s *Server) resolvePath(path string) (string, error) {
	if s.root == "" {
		return filepath.Clean(path), nil
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(s.root, path)
	}
	path = filepath.Clean(path)

	rel, err := filepath.Rel(s.root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s is outside %s", domain.ErrInvalidInput, path, s.root)
	}
	return path, nil
}

func toAnalyzeOutput(r *domain.FileReport) AnalyzeFileOutput {
	out := AnalyzeFileOutput{
		FilePath:        r.FilePath,
		OverallSeverity: r.OverallSeverity.String(),
		AlertSeverity:   r.AlertSeverity.String(),
		Counts:          make(map[string]int, len(r.Counts)),
		Generation:      r.Generation,
		Findings:        make([]FindingOutput, len(r.Findings)),
	}
	for sev, n := range r.Counts {
		out.Counts[sev.String()] = n
	}
	if r.Failure != nil {
		out.Failure = r.Failure.Reason
		out.FailureLine = r.Failure.Line
	}

	for i := range r.Findings {
		f := r.Findings[i]
		fo := FindingOutput{
			ChunkID:         f.ChunkID,
			Severity:        f.Severity.String(),
			ContextSummary:  f.ContextSummary,
			Recommendations: nonNil(f.Recommendations),
			MatchedGuidance: nonNil(f.MatchedGuidance),
			Note:            f.Note,
		}
		if i < len(r.Entries) {
			c := r.Entries[i].Chunk
			fo.Kind = c.Kind.String()
			fo.Name = c.Name
			fo.StartLine = c.StartLine
			fo.EndLine = c.EndLine
		}
		out.Findings[i] = fo
	}
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
