// Package analytics folds a completed finding set into summary
// distributions for the submission preview.
package analytics

import "github.com/hwelland/qcflow/internal/core/domain"

// Aggregate reduces findings to issue-type and severity distributions plus
// the arithmetic mean confidence. The result depends only on the multiset
// of findings, never on their order. An empty set yields the sentinel
// confidence and a single synthetic "no issues" bucket instead of dividing
// by zero.
func Aggregate(findings []domain.Finding) domain.Analytics {
	if len(findings) == 0 {
		return domain.Analytics{
			IssueTypes:           map[string]int{domain.NoIssuesBucket: 1},
			SeverityDistribution: map[string]int{string(domain.SeverityMinor): 1},
			Confidence:           domain.DefaultConfidence,
		}
	}

	issueTypes := make(map[string]int)
	severities := make(map[string]int)
	sum := 0.0
	for _, f := range findings {
		issueTypes[f.Category.DisplayName()]++
		severities[string(f.Severity)]++
		sum += f.Confidence
	}

	return domain.Analytics{
		IssueTypes:           issueTypes,
		SeverityDistribution: severities,
		Confidence:           sum / float64(len(findings)),
	}
}
