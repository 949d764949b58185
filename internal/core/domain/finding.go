package domain

import "strings"

// Severity is the ordinal risk level of a finding.
type Severity string

// Available severities.
const (
	SeverityCritical Severity = "Critical"
	SeverityHigh     Severity = "High"
	SeverityMedium   Severity = "Medium"
	SeverityLow      Severity = "Low"
	SeverityNone     Severity = "None"

	// SeverityUnknown is reserved for pipeline failures. A model never
	// produces it on the normal path.
	SeverityUnknown Severity = "Unknown"
)

// SeverityRank returns the reporting rank (higher = more severe).
// The total order is Critical > High > Medium > Low > None > Unknown.
// Unrecognised values rank below Unknown.
func SeverityRank(s Severity) int {
	switch s {
	case SeverityCritical:
		return 5
	case SeverityHigh:
		return 4
	case SeverityMedium:
		return 3
	case SeverityLow:
		return 2
	case SeverityNone:
		return 1
	case SeverityUnknown:
		return 0
	default:
		return -1
	}
}

// IsValid returns true if the severity is part of the enum.
func (s Severity) IsValid() bool {
	return SeverityRank(s) >= 0
}

// String returns the string representation.
func (s Severity) String() string {
	return string(s)
}

// ParseModelSeverity maps a model-produced label to a severity.
// Matching is case-insensitive. Unknown is not accepted because only the
// pipeline may assign it.
func ParseModelSeverity(label string) (Severity, bool) {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "critical":
		return SeverityCritical, true
	case "high":
		return SeverityHigh, true
	case "medium":
		return SeverityMedium, true
	case "low":
		return SeverityLow, true
	case "none":
		return SeverityNone, true
	default:
		return "", false
	}
}

// AllSeverities returns the enum from most to least severe.
func AllSeverities() []Severity {
	return []Severity{
		SeverityCritical,
		SeverityHigh,
		SeverityMedium,
		SeverityLow,
		SeverityNone,
		SeverityUnknown,
	}
}

// Finding is the analysis result for one chunk.
// It is created once per chunk per run and never mutated.
type Finding struct {
	ChunkID         string   `json:"chunk_id"`
	ContextSummary  string   `json:"context_summary"`
	Severity        Severity `json:"severity"`
	MatchedGuidance []string `json:"matched_guidance"`
	Recommendations []string `json:"recommendations"`
	Note            string   `json:"note,omitempty"`
}
