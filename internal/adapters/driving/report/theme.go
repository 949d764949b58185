// Package report renders file reports for the console.
package report

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/vigil/internal/core/domain"
)

// Theme defines the colour palette for rendered reports.
type Theme struct {
	// Primary is the main accent colour, used for file headers.
	Primary lipgloss.Color

	// Muted is for line ranges, context summaries and notes.
	Muted lipgloss.Color

	// Critical through None colour the severity badges.
	Critical lipgloss.Color
	High     lipgloss.Color
	Medium   lipgloss.Color
	Low      lipgloss.Color
	None     lipgloss.Color

	// Unknown marks pipeline failures.
	Unknown lipgloss.Color
}

// DefaultTheme returns the default colour theme.
func DefaultTheme() *Theme {
	return &Theme{
		Primary:  lipgloss.Color("#7C3AED"), // Purple
		Muted:    lipgloss.Color("#6C7086"), // Medium gray
		Critical: lipgloss.Color("#F38BA8"), // Red
		High:     lipgloss.Color("#FAB387"), // Peach
		Medium:   lipgloss.Color("#F9E2AF"), // Yellow
		Low:      lipgloss.Color("#89B4FA"), // Blue
		None:     lipgloss.Color("#A6E3A1"), // Green
		Unknown:  lipgloss.Color("#CBA6F7"), // Mauve
	}
}

// Styles contains pre-configured lipgloss styles.
type Styles struct {
	theme *Theme

	// Header style for file paths.
	Header lipgloss.Style

	// Muted style for secondary text.
	Muted lipgloss.Style

	// Error style for failed files.
	Error lipgloss.Style

	severity map[domain.Severity]lipgloss.Style
}

// NewStyles creates styles from a theme.
func NewStyles(theme *Theme) *Styles {
	if theme == nil {
		theme = DefaultTheme()
	}

	badge := func(c lipgloss.Color) lipgloss.Style {
		return lipgloss.NewStyle().Bold(true).Foreground(c)
	}

	return &Styles{
		theme: theme,

		Header: lipgloss.NewStyle().
			Bold(true).
			Foreground(theme.Primary),

		Muted: lipgloss.NewStyle().
			Foreground(theme.Muted),

		Error: lipgloss.NewStyle().
			Bold(true).
			Foreground(theme.Critical),

		severity: map[domain.Severity]lipgloss.Style{
			domain.SeverityCritical: badge(theme.Critical),
			domain.SeverityHigh:     badge(theme.High),
			domain.SeverityMedium:   badge(theme.Medium),
			domain.SeverityLow:      badge(theme.Low),
			domain.SeverityNone:     badge(theme.None),
			domain.SeverityUnknown:  badge(theme.Unknown),
		},
	}
}

// PlainStyles returns styles that render text unchanged.
func PlainStyles() *Styles {
	s := NewStyles(nil)
	plain := lipgloss.NewStyle()
	s.Header = plain
	s.Muted = plain
	s.Error = plain
	for k := range s.severity {
		s.severity[k] = plain
	}
	return s
}

// DefaultStyles returns styles with the default theme.
func DefaultStyles() *Styles {
	return NewStyles(DefaultTheme())
}

// Theme returns the theme used by these styles.
func (s *Styles) Theme() *Theme {
	return s.theme
}

// Severity returns the badge style for a severity.
func (s *Styles) Severity(sev domain.Severity) lipgloss.Style {
	if st, ok := s.severity[sev]; ok {
		return st
	}
	return s.Muted
}
