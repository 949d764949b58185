package report

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/vigil/internal/core/domain"
)

func sampleReport() *domain.FileReport {
	login := domain.Chunk{ID: "c1", Kind: domain.ChunkKindFunction, Name: "login", StartLine: 3, EndLine: 9}
	globals := domain.Chunk{ID: "c2", Kind: domain.ChunkKindGlobal, StartLine: 11, EndLine: 11}
	f1 := domain.Finding{
		ChunkID:         "c1",
		ContextSummary:  "Checks a password against the database.",
		Severity:        domain.SeverityCritical,
		MatchedGuidance: []string{"g1", "g2"},
		Recommendations: []string{"Use parameterized queries."},
	}
	f2 := domain.Finding{ChunkID: "c2", Severity: domain.SeverityUnknown, Note: "generate failed"}
	return &domain.FileReport{
		FilePath:        "app/auth.py",
		Findings:        []domain.Finding{f1, f2},
		Entries:         []domain.ReportEntry{{Chunk: login, Finding: f1}, {Chunk: globals, Finding: f2}},
		OverallSeverity: domain.SeverityCritical,
		AlertSeverity:   domain.SeverityCritical,
		Counts:          map[domain.Severity]int{domain.SeverityCritical: 1, domain.SeverityUnknown: 1},
		Generation:      2,
	}
}

func TestRenderer_Render(t *testing.T) {
	buf := new(bytes.Buffer)
	r := NewRenderer(buf)

	require.NoError(t, r.Render(sampleReport()))
	out := buf.String()

	assert.Contains(t, out, "app/auth.py  [Critical]")
	assert.Contains(t, out, "generation 2 · 2 chunks · Critical 1 · Unknown 1")
	assert.Contains(t, out, "[Critical] function login (lines 3-9)")
	assert.Contains(t, out, "Checks a password against the database.")
	assert.Contains(t, out, "- Use parameterized queries.")
	assert.Contains(t, out, "guidance: g1, g2")
	assert.Contains(t, out, "[Unknown] global (line 11)")
	assert.Contains(t, out, "note: generate failed")
	assert.NotContains(t, out, "\x1b[", "buffers are not terminals")
}

func TestRenderer_Render_AlertDiffers(t *testing.T) {
	rep := &domain.FileReport{
		FilePath:        "x.py",
		Findings:        []domain.Finding{{ChunkID: "c", Severity: domain.SeverityUnknown}},
		OverallSeverity: domain.SeverityUnknown,
		AlertSeverity:   domain.SeverityMedium,
		Counts:          map[domain.Severity]int{domain.SeverityUnknown: 1},
	}
	buf := new(bytes.Buffer)
	require.NoError(t, NewRenderer(buf).Render(rep))

	assert.Contains(t, buf.String(), "alert Medium")
	assert.Contains(t, buf.String(), "[Unknown] c", "findings without entries fall back to the chunk ID")
}

func TestRenderer_Render_Failed(t *testing.T) {
	rep := &domain.FileReport{
		FilePath: "broken.py",
		Failure:  &domain.FileFailure{Reason: "syntax error", Line: 4},
	}
	buf := new(bytes.Buffer)
	require.NoError(t, NewRenderer(buf).Render(rep))

	assert.Contains(t, buf.String(), "broken.py  FAILED")
	assert.Contains(t, buf.String(), "syntax error (line 4)")
}

func TestRenderer_JSON(t *testing.T) {
	buf := new(bytes.Buffer)
	require.NoError(t, NewRenderer(buf).JSON([]*domain.FileReport{sampleReport()}))

	var got []domain.FileReport
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "app/auth.py", got[0].FilePath)
	assert.Equal(t, domain.SeverityCritical, got[0].OverallSeverity)
	assert.Len(t, got[0].Findings, 2)
}

func TestRenderer_JSON_Empty(t *testing.T) {
	buf := new(bytes.Buffer)
	require.NoError(t, NewRenderer(buf).JSON(nil))
	assert.Equal(t, "[]\n", buf.String())
}

func TestIsTerminal(t *testing.T) {
	assert.False(t, IsTerminal(new(bytes.Buffer)))
}

func TestDefaultTheme_ColorsAreDistinct(t *testing.T) {
	theme := DefaultTheme()
	palette := []string{
		string(theme.Critical), string(theme.High), string(theme.Medium),
		string(theme.Low), string(theme.None), string(theme.Unknown),
	}

	seen := make(map[string]bool)
	for _, c := range palette {
		assert.False(t, seen[c], "duplicate colour: %s", c)
		seen[c] = true
	}
}

func TestNewStyles_NilTheme(t *testing.T) {
	styles := NewStyles(nil)

	require.NotNil(t, styles)
	assert.Equal(t, DefaultTheme(), styles.Theme())
}

func TestPlainStyles_RenderUnchanged(t *testing.T) {
	styles := PlainStyles()
	for _, sev := range domain.AllSeverities() {
		assert.Equal(t, "x", styles.Severity(sev).Render("x"))
	}
	assert.Equal(t, "x", styles.Severity("bogus").Render("x"))
}
