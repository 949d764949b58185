package markdown

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/vigil/internal/core/domain"
)

const brokenAccessControl = "# Broken Access Control\n" +
	"\n" +
	"Access checks that always succeed.\n" +
	"\n" +
	"## Explanation\n" +
	"\n" +
	"Authorization functions that return true unconditionally grant access to everyone.\n" +
	"\n" +
	"### Impact\n" +
	"\n" +
	"Privilege escalation.\n" +
	"\n" +
	"## Insecure Example\n" +
	"\n" +
	"```python\n" +
	"def is_admin(user):\n" +
	"    return True\n" +
	"```\n" +
	"\n" +
	"## Secure Example\n" +
	"\n" +
	"Check the role against a trusted store.\n"

func TestNew(t *testing.T) {
	normaliser := New()
	require.NotNil(t, normaliser)
	assert.IsType(t, &Normaliser{}, normaliser)
}

func TestSplit_Sections(t *testing.T) {
	doc, err := New().Split("Broken Access Control", brokenAccessControl)
	require.NoError(t, err)

	assert.Equal(t, "Broken Access Control", doc.Title)
	assert.Equal(t, "broken-access-control", doc.Category)

	headings := make([]string, len(doc.Sections))
	for i, s := range doc.Sections {
		headings[i] = s.Heading
	}
	assert.Equal(t, []string{"Overview", "Explanation", "Insecure Example", "Secure Example"}, headings)

	assert.Equal(t, "Access checks that always succeed.", doc.Sections[0].Text)

	// Deeper headings stay inside their section.
	assert.Contains(t, doc.Sections[1].Text, "### Impact")
	assert.Contains(t, doc.Sections[1].Text, "Privilege escalation.")

	// Code is kept verbatim.
	assert.Contains(t, doc.Sections[2].Text, "```python\ndef is_admin(user):\n    return True\n```")
	assert.Equal(t, "Check the role against a trusted store.", doc.Sections[3].Text)
}

func TestSplit_TitleFromHeading(t *testing.T) {
	doc, err := New().Split("", "# SQL Injection\n\n## Explanation\n\nUse parameters.\n")
	require.NoError(t, err)

	assert.Equal(t, "SQL Injection", doc.Title)
	assert.Equal(t, "sql-injection", doc.Category)
	require.Len(t, doc.Sections, 1)
	assert.Equal(t, "Explanation", doc.Sections[0].Heading)
	assert.Equal(t, "Use parameters.", doc.Sections[0].Text)
}

func TestSplit_FrontMatter(t *testing.T) {
	content := "---\ntitle: Hardcoded Secrets\ncategory: secrets\n---\n## Explanation\n\nNever commit keys.\n"

	doc, err := New().Split("", content)
	require.NoError(t, err)

	assert.Equal(t, "Hardcoded Secrets", doc.Title)
	assert.Equal(t, "secrets", doc.Category)
	require.Len(t, doc.Sections, 1)
	assert.Equal(t, "Never commit keys.", doc.Sections[0].Text)
}

func TestSplit_InvalidFrontMatter(t *testing.T) {
	_, err := New().Split("bad", "---\ntitle: [unclosed\n---\nbody\n")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestSplit_MultipleH1(t *testing.T) {
	doc, err := New().Split("doc", "# One\n\nfirst\n\n# Two\n\nsecond\n")
	require.NoError(t, err)

	require.Len(t, doc.Sections, 2)
	assert.Equal(t, "One", doc.Sections[0].Heading)
	assert.Equal(t, "first", doc.Sections[0].Text)
	assert.Equal(t, "Two", doc.Sections[1].Heading)
	assert.Equal(t, "second", doc.Sections[1].Text)
}

func TestSplit_SetextHeadings(t *testing.T) {
	doc, err := New().Split("doc", "Explanation\n-----------\n\nbody one\n\nReferences\n----------\n\nbody two\n")
	require.NoError(t, err)

	require.Len(t, doc.Sections, 2)
	assert.Equal(t, "Explanation", doc.Sections[0].Heading)
	assert.Equal(t, "body one", doc.Sections[0].Text)
	assert.Equal(t, "References", doc.Sections[1].Heading)
	assert.Equal(t, "body two", doc.Sections[1].Text)
}

func TestSplit_NoHeadings(t *testing.T) {
	doc, err := New().Split("notes", "Just some guidance text.\n")
	require.NoError(t, err)

	require.Len(t, doc.Sections, 1)
	assert.Equal(t, "Overview", doc.Sections[0].Heading)
	assert.Equal(t, "Just some guidance text.", doc.Sections[0].Text)
}

func TestSplit_Empty(t *testing.T) {
	doc, err := New().Split("empty", "")
	require.NoError(t, err)
	assert.Empty(t, doc.Sections)
}

func TestTitle(t *testing.T) {
	tests := []struct {
		name          string
		content       string
		path          string
		expectedTitle string
	}{
		{
			name:          "front matter",
			content:       "---\ntitle: From Meta\n---\n# Heading\n",
			path:          "/doc.md",
			expectedTitle: "From Meta",
		},
		{
			name:          "H1 heading",
			content:       "# My Document\n\nContent here.",
			path:          "/doc.md",
			expectedTitle: "My Document",
		},
		{
			name:          "no heading - fallback to filename",
			content:       "Just some content without heading.",
			path:          "/insecure_deserialization.md",
			expectedTitle: "insecure deserialization",
		},
		{
			name:          "H2 first - fallback to filename",
			content:       "## Second Level\n\nNo H1.",
			path:          "/path-traversal.md",
			expectedTitle: "path traversal",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expectedTitle, Title(tt.content, tt.path))
		})
	}
}

func TestSection_Embeddable(t *testing.T) {
	s := Section{Heading: "Explanation", Text: "body"}
	assert.Equal(t, "SQLi - Explanation\n\nbody", s.Embeddable("SQLi"))
}
