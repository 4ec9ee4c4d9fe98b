package classify

import (
	"strings"

	"github.com/hwelland/qcflow/internal/core/domain"
)

// keyword rules are checked in order; the first match wins.
var categoryRules = []struct {
	keyword  string
	category domain.Category
}{
	{"material", domain.CategoryMaterialDefect},
	{"assembly", domain.CategoryAssemblyIssue},
	{"process", domain.CategoryProcessDeviation},
}

var severityRules = []struct {
	keyword  string
	severity domain.Severity
}{
	{"critical", domain.SeverityCritical},
	{"severe", domain.SeverityCritical},
	{"major", domain.SeverityMajor},
	{"significant", domain.SeverityMajor},
}

// Classify maps one raw recognized fragment to a typed finding. Explicit
// values from the backend win; otherwise a case-insensitive keyword
// heuristic over the fragment text decides, and the department falls back
// to the inspection context. Pure and deterministic.
func Classify(frag domain.Fragment, inspection domain.InspectionType) domain.Finding {
	text := strings.TrimSpace(frag.Text)

	finding := domain.Finding{
		Text:            text,
		Confidence:      clampConfidence(frag.Confidence),
		BoundingBox:     frag.BoundingBox,
		Category:        resolveCategory(frag.Category, text),
		Severity:        resolveSeverity(frag.Severity, text),
		Department:      resolveDepartment(frag.Department, inspection),
		Location:        strings.TrimSpace(frag.Location),
		IsTable:         frag.IsTable,
		TableCells:      frag.TableCells,
		IsStructuredRow: false,
	}
	return finding
}

func resolveCategory(explicit, text string) domain.Category {
	if c, ok := parseCategory(explicit); ok {
		return c
	}
	lower := strings.ToLower(text)
	for _, rule := range categoryRules {
		if strings.Contains(lower, rule.keyword) {
			return rule.category
		}
	}
	return domain.CategoryStandardViolation
}

func resolveSeverity(explicit, text string) domain.Severity {
	if s, ok := parseSeverity(explicit); ok {
		return s
	}
	lower := strings.ToLower(text)
	for _, rule := range severityRules {
		if strings.Contains(lower, rule.keyword) {
			return rule.severity
		}
	}
	return domain.SeverityMinor
}

func resolveDepartment(explicit string, inspection domain.InspectionType) string {
	if dep := strings.TrimSpace(explicit); dep != "" {
		return dep
	}
	return inspection.DefaultDepartment()
}

func parseCategory(raw string) (domain.Category, bool) {
	switch domain.Category(strings.ToLower(strings.TrimSpace(raw))) {
	case domain.CategoryMaterialDefect:
		return domain.CategoryMaterialDefect, true
	case domain.CategoryAssemblyIssue:
		return domain.CategoryAssemblyIssue, true
	case domain.CategoryStandardViolation:
		return domain.CategoryStandardViolation, true
	case domain.CategoryProcessDeviation:
		return domain.CategoryProcessDeviation, true
	case domain.CategoryUncategorized:
		return domain.CategoryUncategorized, true
	}
	return "", false
}

func parseSeverity(raw string) (domain.Severity, bool) {
	switch domain.Severity(strings.ToLower(strings.TrimSpace(raw))) {
	case domain.SeverityCritical:
		return domain.SeverityCritical, true
	case domain.SeverityMajor:
		return domain.SeverityMajor, true
	case domain.SeverityMinor:
		return domain.SeverityMinor, true
	}
	return "", false
}

func clampConfidence(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
