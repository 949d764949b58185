package services

import (
	"fmt"

	"github.com/custodia-labs/vigil/internal/core/domain"
)

// Aggregate merges per-chunk findings into a file report. Findings keep
// their input order. Aggregate is pure: identical input yields an identical
// report. A duplicate chunk ID or a severity outside the enum returns a
// *domain.AggregationError.
func Aggregate(filePath string, findings []domain.Finding, policy domain.UnknownPolicy) (domain.FileReport, error) {
	if !policy.IsValid() {
		policy = domain.UnknownEscalate
	}

	report := domain.FileReport{
		FilePath:        filePath,
		Findings:        make([]domain.Finding, len(findings)),
		OverallSeverity: domain.SeverityNone,
		AlertSeverity:   domain.SeverityNone,
		Counts:          make(map[domain.Severity]int),
	}
	copy(report.Findings, findings)

	seen := make(map[string]struct{}, len(findings))
	for i, f := range findings {
		if _, dup := seen[f.ChunkID]; dup {
			return domain.FileReport{}, &domain.AggregationError{
				FilePath: filePath,
				Reason:   fmt.Sprintf("duplicate chunk id %q at position %d", f.ChunkID, i),
			}
		}
		seen[f.ChunkID] = struct{}{}

		if !f.Severity.IsValid() {
			return domain.FileReport{}, &domain.AggregationError{
				FilePath: filePath,
				Reason:   fmt.Sprintf("severity %q of chunk %q not in enum", f.Severity, f.ChunkID),
			}
		}
		report.Counts[f.Severity]++

		if i == 0 || domain.SeverityRank(f.Severity) > domain.SeverityRank(report.OverallSeverity) {
			report.OverallSeverity = f.Severity
		}
		// Alert levels are real severities, so ties cannot depend on order.
		if alert := policy.AlertLevel(f.Severity); i == 0 || domain.SeverityRank(alert) > domain.SeverityRank(report.AlertSeverity) {
			report.AlertSeverity = alert
		}
	}
	return report, nil
}
