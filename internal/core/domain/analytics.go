package domain

// DefaultConfidence is reported when a finding set is empty and there is
// nothing to average over.
const DefaultConfidence = 0.8

// NoIssuesBucket is the synthetic issue-type bucket for an empty finding set.
const NoIssuesBucket = "No Issues Detected"

// Analytics summarizes a completed finding set.
type Analytics struct {
	IssueTypes           map[string]int `json:"issue_types"`
	SeverityDistribution map[string]int `json:"severity_distribution"`
	Confidence           float64        `json:"confidence"`
}
