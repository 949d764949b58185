package markdown

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/vigil/internal/core/domain"
)

// overviewHeading names text that precedes the first section heading.
const overviewHeading = "Overview"

// Section is one heading-delimited part of a guidance document.
type Section struct {
	Heading string
	Text    string
}

// Document is a guidance document split into sections.
type Document struct {
	Title    string
	Category string
	Sections []Section
}

// frontMatter is the optional YAML header of a guidance document.
type frontMatter struct {
	Title    string `yaml:"title"`
	Category string `yaml:"category"`
}

// Normaliser splits guidance markdown on its heading structure.
type Normaliser struct {
	md goldmark.Markdown
}

// New creates a new guidance normaliser.
func New() *Normaliser {
	return &Normaliser{md: goldmark.New()}
}

// Split parses a guidance document. A new section starts at every heading
// of the shallowest level below the document title. Body text keeps its
// original markdown, so code examples survive verbatim.
func (n *Normaliser) Split(title, content string) (*Document, error) {
	meta, body, err := splitFrontMatter(content)
	if err != nil {
		return nil, fmt.Errorf("%w: front matter in %q: %v", domain.ErrInvalidInput, title, err)
	}

	doc := &Document{
		Title:    title,
		Category: meta.Category,
	}

	src := []byte(body)
	root := n.md.Parser().Parse(text.NewReader(src))
	headings := topLevelHeadings(root, src)

	// A lone leading H1 is the document title, not a section.
	if len(headings) > 0 && headings[0].level == 1 && countLevel(headings, 1) == 1 {
		if doc.Title == "" {
			doc.Title = headings[0].text
		}
		src = src[headings[0].bodyStart:]
		shift := headings[0].bodyStart
		headings = headings[1:]
		for i := range headings {
			headings[i].lineStart -= shift
			headings[i].bodyStart -= shift
		}
	}
	if doc.Title == "" {
		doc.Title = meta.Title
	}
	if doc.Category == "" {
		doc.Category = deriveCategory(doc.Title)
	}

	level := minLevel(headings)
	var boundaries []heading
	for _, h := range headings {
		if h.level == level {
			boundaries = append(boundaries, h)
		}
	}

	if len(boundaries) == 0 {
		if t := strings.TrimSpace(string(src)); t != "" {
			doc.Sections = append(doc.Sections, Section{Heading: overviewHeading, Text: t})
		}
		return doc, nil
	}

	if pre := strings.TrimSpace(string(src[:boundaries[0].lineStart])); pre != "" {
		doc.Sections = append(doc.Sections, Section{Heading: overviewHeading, Text: pre})
	}
	for i, h := range boundaries {
		end := len(src)
		if i+1 < len(boundaries) {
			end = boundaries[i+1].lineStart
		}
		doc.Sections = append(doc.Sections, Section{
			Heading: h.text,
			Text:    strings.TrimSpace(string(src[h.bodyStart:end])),
		})
	}
	return doc, nil
}

// heading locates a top-level heading in the source.
type heading struct {
	level int
	text  string

	// lineStart is the offset of the first byte of the heading line.
	lineStart int

	// bodyStart is the offset just past the heading line.
	bodyStart int
}

func topLevelHeadings(root ast.Node, src []byte) []heading {
	var out []heading
	for node := root.FirstChild(); node != nil; node = node.NextSibling() {
		h, ok := node.(*ast.Heading)
		if !ok || h.Lines().Len() == 0 {
			continue
		}
		lines := h.Lines()
		first := lines.At(0)
		final := lines.At(lines.Len() - 1)

		bodyStart := final.Stop
		if bodyStart == 0 || src[bodyStart-1] != '\n' {
			bodyStart = lineEnd(src, bodyStart)
		}
		if isSetext(src, first.Start) {
			// Skip the = or - underline.
			bodyStart = lineEnd(src, bodyStart)
		}

		out = append(out, heading{
			level:     h.Level,
			text:      strings.TrimSpace(string(lines.Value(src))),
			lineStart: bytes.LastIndexByte(src[:first.Start], '\n') + 1,
			bodyStart: bodyStart,
		})
	}
	return out
}

// lineEnd returns the offset just past the newline ending the line at pos.
func lineEnd(src []byte, pos int) int {
	if pos >= len(src) {
		return len(src)
	}
	if i := bytes.IndexByte(src[pos:], '\n'); i >= 0 {
		return pos + i + 1
	}
	return len(src)
}

// isSetext reports whether the heading whose text starts at pos has no ATX marker.
func isSetext(src []byte, pos int) bool {
	start := bytes.LastIndexByte(src[:pos], '\n') + 1
	return !strings.HasPrefix(strings.TrimSpace(string(src[start:pos])), "#")
}

func countLevel(headings []heading, level int) int {
	n := 0
	for _, h := range headings {
		if h.level == level {
			n++
		}
	}
	return n
}

func minLevel(headings []heading) int {
	level := 0
	for _, h := range headings {
		if level == 0 || h.level < level {
			level = h.level
		}
	}
	return level
}

// splitFrontMatter separates an optional leading "---" YAML block.
func splitFrontMatter(content string) (frontMatter, string, error) {
	var meta frontMatter
	if !strings.HasPrefix(content, "---\n") && !strings.HasPrefix(content, "---\r\n") {
		return meta, content, nil
	}
	rest := content[strings.IndexByte(content, '\n')+1:]
	end := strings.Index(rest, "\n---")
	if end < 0 {
		return meta, content, nil
	}
	if err := yaml.Unmarshal([]byte(rest[:end]), &meta); err != nil {
		return meta, content, err
	}
	body := rest[end+len("\n---"):]
	if i := strings.IndexByte(body, '\n'); i >= 0 {
		body = body[i+1:]
	} else {
		body = ""
	}
	return meta, body, nil
}

// deriveCategory turns a title like "SQL Injection Guidance" into
// "sql-injection-guidance".
func deriveCategory(title string) string {
	fields := strings.FieldsFunc(strings.ToLower(title), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	})
	return strings.Join(fields, "-")
}

// Title extracts a document title from front matter, the first H1 heading
// or the file name.
func Title(content, path string) string {
	if meta, _, err := splitFrontMatter(content); err == nil && meta.Title != "" {
		return meta.Title
	}

	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "# ") {
			return strings.TrimSpace(strings.TrimPrefix(line, "#"))
		}
	}

	filename := filepath.Base(path)
	if ext := filepath.Ext(filename); ext != "" {
		filename = strings.TrimSuffix(filename, ext)
	}
	filename = strings.ReplaceAll(filename, "_", " ")
	filename = strings.ReplaceAll(filename, "-", " ")
	return filename
}

// Embeddable renders a section as the text embedded for retrieval.
func (s Section) Embeddable(title string) string {
	var buf bytes.Buffer
	buf.WriteString(title)
	buf.WriteString(" - ")
	buf.WriteString(s.Heading)
	buf.WriteString("\n\n")
	buf.WriteString(s.Text)
	return buf.String()
}
