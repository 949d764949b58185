package domain

// UnknownPolicy controls how Unknown severity affects file-level alerting.
type UnknownPolicy string

// Available policies.
const (
	// UnknownEscalate treats Unknown as at least Medium for alerting.
	UnknownEscalate UnknownPolicy = "escalate"

	// UnknownIgnore ranks Unknown below None for alerting.
	UnknownIgnore UnknownPolicy = "ignore"
)

// IsValid returns true if the policy is recognised.
func (p UnknownPolicy) IsValid() bool {
	return p == UnknownEscalate || p == UnknownIgnore
}

// AlertLevel returns the severity s counts as for alerting. Under any
// policy other than UnknownIgnore, Unknown counts as Medium.
func (p UnknownPolicy) AlertLevel(s Severity) Severity {
	if s == SeverityUnknown && p != UnknownIgnore {
		return SeverityMedium
	}
	return s
}

// FileFailure describes a file that could not be analyzed at all.
type FileFailure struct {
	Reason string `json:"reason"`
	Line   int    `json:"line,omitempty"`
}

// ReportEntry pairs a finding with the chunk it was produced for.
type ReportEntry struct {
	Chunk   Chunk   `json:"chunk"`
	Finding Finding `json:"finding"`
}

// FileReport is the merged result for one file.
type FileReport struct {
	FilePath string `json:"file_path"`

	// Findings are in source order.
	Findings []Finding `json:"findings"`

	// Entries mirror Findings with chunk metadata, when chunks are known.
	Entries []ReportEntry `json:"entries,omitempty"`

	// OverallSeverity is the maximum under the reporting total order.
	OverallSeverity Severity `json:"overall_severity"`

	// AlertSeverity is the maximum under the configured UnknownPolicy.
	AlertSeverity Severity `json:"alert_severity"`

	// Counts is the number of findings per severity.
	Counts map[Severity]int `json:"counts"`

	// Generation is the guidance index generation the run read from.
	Generation int64 `json:"generation"`

	// Failure is set when the file failed before chunk analysis.
	Failure *FileFailure `json:"failure,omitempty"`
}

// Failed returns true if the file could not be analyzed.
func (r *FileReport) Failed() bool {
	return r.Failure != nil
}
