package chunker

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/custodia-labs/vigil/internal/core/domain"
)

// chunkNamespace seeds deterministic chunk IDs.
var chunkNamespace = uuid.MustParse("6d1c3f0e-5a8b-4c52-9d07-3b0c1f7e9a21")

// Chunker splits source text of one language into chunks.
// A Chunker is safe for concurrent use; each call uses its own parser.
type Chunker struct {
	lang    Language
	grammar *sitter.Language
	rules   ruleSet
}

// New creates a chunker for the given language.
func New(lang Language) (*Chunker, error) {
	g, rules, ok := grammar(lang)
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedLanguage, lang)
	}
	return &Chunker{
		lang:    lang,
		grammar: g,
		rules:   rules,
	}, nil
}

// ForPath creates a chunker for the language of path.
func ForPath(path string) (*Chunker, error) {
	lang, ok := LanguageForPath(path)
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedLanguage, path)
	}
	return New(lang)
}

// Language returns the language this chunker parses.
func (c *Chunker) Language() Language {
	return c.lang
}

// Chunk parses text and returns its chunks in ascending line order.
// Returns a *domain.ParseError if text is not valid source. Empty text
// produces no chunks.
func (c *Chunker) Chunk(ctx context.Context, text string) ([]domain.Chunk, error) {
	lines := splitLines(text)
	if len(lines) == 0 {
		return nil, nil
	}

	src := []byte(text)
	parser := sitter.NewParser()
	parser.SetLanguage(c.grammar)
	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", c.lang, err)
	}
	root := tree.RootNode()

	if root.HasError() {
		return nil, c.parseError(root)
	}

	units := make([]unit, 0, root.NamedChildCount())
	for i := 0; i < int(root.NamedChildCount()); i++ {
		u, ok := c.rules.classify(root.NamedChild(i), src)
		if !ok {
			continue
		}
		units = append(units, u)
	}

	spans := coalesce(units)
	if len(spans) == 0 {
		spans = []unit{{kind: domain.ChunkKindGlobal}}
	}
	cover(spans, len(lines))

	chunks := make([]domain.Chunk, 0, len(spans))
	for _, s := range spans {
		body := strings.Join(lines[s.start:s.end+1], "\n")
		chunks = append(chunks, domain.Chunk{
			ID:        chunkID(s.start+1, s.end+1, body),
			Kind:      s.kind,
			Name:      s.name,
			Text:      body,
			StartLine: s.start + 1,
			EndLine:   s.end + 1,
		})
	}
	return chunks, nil
}

// coalesce merges statements that share a line and runs of consecutive
// globals. A definition always breaks a run.
func coalesce(units []unit) []unit {
	var spans []unit
	for _, u := range units {
		if len(spans) == 0 {
			spans = append(spans, u)
			continue
		}
		last := &spans[len(spans)-1]

		if u.start <= last.end {
			last.end = max(last.end, u.end)
			if !last.kind.IsDefinition() && u.kind.IsDefinition() {
				last.kind, last.name = u.kind, u.name
			}
			last.isolated = last.isolated || u.isolated
			continue
		}

		if last.kind == domain.ChunkKindGlobal && u.kind == domain.ChunkKindGlobal &&
			!last.isolated && !u.isolated {
			last.end = u.end
			continue
		}

		spans = append(spans, u)
	}
	return spans
}

// cover stretches spans so they tile rows [0, lineCount). Rows before the
// first statement join the first span; rows after a span up to the next
// statement (blank lines, comments) join the span before them.
func cover(spans []unit, lineCount int) {
	spans[0].start = 0
	for i := 0; i < len(spans)-1; i++ {
		spans[i].end = spans[i+1].start - 1
	}
	spans[len(spans)-1].end = lineCount - 1
}

// parseError locates the first error node below root.
func (c *Chunker) parseError(root *sitter.Node) error {
	node := firstError(root)
	if node == nil {
		node = root
	}
	pt := node.StartPoint()
	msg := "syntax error"
	if node.IsMissing() {
		msg = "missing " + node.Type()
	}
	return &domain.ParseError{
		Language: string(c.lang),
		Line:     int(pt.Row) + 1,
		Column:   int(pt.Column) + 1,
		Message:  msg,
	}
}

// firstError returns the first ERROR or MISSING node in document order.
func firstError(node *sitter.Node) *sitter.Node {
	if node.Type() == "ERROR" || node.IsMissing() {
		return node
	}
	if !node.HasError() {
		return nil
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		if found := firstError(node.Child(i)); found != nil {
			return found
		}
	}
	return nil
}

// splitLines splits text into lines. A trailing newline does not start a
// new line.
func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	lines := strings.Split(text, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// chunkID derives a stable ID from a chunk's span and text.
func chunkID(startLine, endLine int, text string) string {
	return uuid.NewSHA1(chunkNamespace, []byte(fmt.Sprintf("%d:%d:%s", startLine, endLine, text))).String()
}

// RawChunk wraps a whole file as one unstructured chunk. It is used when a
// file cannot be parsed and the caller opts into falling back.
func RawChunk(text string) domain.Chunk {
	lines := splitLines(text)
	end := max(len(lines), 1)
	return domain.Chunk{
		ID:        chunkID(1, end, text),
		Kind:      domain.ChunkKindRaw,
		Text:      text,
		StartLine: 1,
		EndLine:   end,
	}
}
