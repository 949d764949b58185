package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"golang.org/x/term"

	"github.com/custodia-labs/vigil/internal/core/domain"
)

// Renderer writes file reports to a console.
type Renderer struct {
	w      io.Writer
	styles *Styles
}

// NewRenderer creates a renderer for w. Colour is used only when w is a
// terminal.
func NewRenderer(w io.Writer) *Renderer {
	styles := PlainStyles()
	if IsTerminal(w) {
		styles = DefaultStyles()
	}
	return &Renderer{w: w, styles: styles}
}

// NewRendererWithStyles creates a renderer with explicit styles.
func NewRendererWithStyles(w io.Writer, styles *Styles) *Renderer {
	if styles == nil {
		styles = PlainStyles()
	}
	return &Renderer{w: w, styles: styles}
}

// IsTerminal reports whether w is a terminal file descriptor.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(interface{ Fd() uintptr })
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

// Render writes one report in human-readable form.
func (r *Renderer) Render(rep *domain.FileReport) error {
	var b strings.Builder
	s := r.styles

	if rep.Failed() {
		reason := rep.Failure.Reason
		if rep.Failure.Line > 0 {
			reason = fmt.Sprintf("%s (line %d)", reason, rep.Failure.Line)
		}
		fmt.Fprintf(&b, "%s  %s\n", s.Header.Render(rep.FilePath), s.Error.Render("FAILED"))
		fmt.Fprintf(&b, "  %s\n\n", reason)
		_, err := io.WriteString(r.w, b.String())
		return err
	}

	fmt.Fprintf(&b, "%s  %s\n", s.Header.Render(rep.FilePath), r.badge(rep.OverallSeverity))
	b.WriteString("  ")
	b.WriteString(s.Muted.Render(summaryLine(rep)))
	b.WriteString("\n")

	for i := range rep.Findings {
		f := rep.Findings[i]
		label := f.ChunkID
		if i < len(rep.Entries) {
			label = chunkLabel(rep.Entries[i].Chunk)
		}
		fmt.Fprintf(&b, "\n  %s %s\n", r.badge(f.Severity), label)
		if f.ContextSummary != "" {
			fmt.Fprintf(&b, "      %s\n", s.Muted.Render(f.ContextSummary))
		}
		for _, rec := range f.Recommendations {
			fmt.Fprintf(&b, "      - %s\n", rec)
		}
		if len(f.MatchedGuidance) > 0 {
			fmt.Fprintf(&b, "      %s\n", s.Muted.Render("guidance: "+strings.Join(f.MatchedGuidance, ", ")))
		}
		if f.Note != "" {
			fmt.Fprintf(&b, "      %s\n", s.Muted.Render("note: "+f.Note))
		}
	}
	b.WriteString("\n")

	_, err := io.WriteString(r.w, b.String())
	return err
}

// JSON writes reports as an indented JSON array.
func (r *Renderer) JSON(reports []*domain.FileReport) error {
	if reports == nil {
		reports = []*domain.FileReport{}
	}
	enc := json.NewEncoder(r.w)
	enc.SetIndent("", "  ")
	return enc.Encode(reports)
}

func (r *Renderer) badge(sev domain.Severity) string {
	return r.styles.Severity(sev).Render("[" + sev.String() + "]")
}

func summaryLine(rep *domain.FileReport) string {
	parts := []string{
		fmt.Sprintf("generation %d", rep.Generation),
		fmt.Sprintf("%d chunks", len(rep.Findings)),
	}
	for _, sev := range domain.AllSeverities() {
		if n := rep.Counts[sev]; n > 0 {
			parts = append(parts, fmt.Sprintf("%s %d", sev, n))
		}
	}
	if rep.AlertSeverity != "" && rep.AlertSeverity != rep.OverallSeverity {
		parts = append(parts, "alert "+rep.AlertSeverity.String())
	}
	return strings.Join(parts, " · ")
}

func chunkLabel(c domain.Chunk) string {
	name := c.Kind.String()
	if c.Name != "" {
		name += " " + c.Name
	}
	if c.StartLine == c.EndLine {
		return fmt.Sprintf("%s (line %d)", name, c.StartLine)
	}
	return fmt.Sprintf("%s (lines %d-%d)", name, c.StartLine, c.EndLine)
}
