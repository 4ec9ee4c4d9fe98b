package classify

import (
	"testing"

	"github.com/hwelland/qcflow/internal/core/domain"
)

func TestClassifyKeywordHeuristics(t *testing.T) {
	tests := []struct {
		name         string
		frag         domain.Fragment
		inspection   domain.InspectionType
		wantCategory domain.Category
		wantSeverity domain.Severity
		wantDept     string
	}{
		{
			name:         "no keywords falls back to defaults",
			frag:         domain.Fragment{Text: "Bent bracket", Confidence: 0.9},
			inspection:   domain.InspectionFinalQC,
			wantCategory: domain.CategoryStandardViolation,
			wantSeverity: domain.SeverityMinor,
			wantDept:     "QualityControl",
		},
		{
			name:         "critical keyword overrides severity",
			frag:         domain.Fragment{Text: "Critical weld crack", Confidence: 0.95},
			inspection:   domain.InspectionFinalQC,
			wantCategory: domain.CategoryStandardViolation,
			wantSeverity: domain.SeverityCritical,
			wantDept:     "QualityControl",
		},
		{
			name:         "material keyword",
			frag:         domain.Fragment{Text: "Raw material contamination found"},
			inspection:   domain.InspectionInProcess,
			wantCategory: domain.CategoryMaterialDefect,
			wantSeverity: domain.SeverityMinor,
			wantDept:     "Manufacturing",
		},
		{
			name:         "assembly keyword with major severity",
			frag:         domain.Fragment{Text: "Major misalignment during assembly"},
			inspection:   domain.InspectionPDI,
			wantCategory: domain.CategoryAssemblyIssue,
			wantSeverity: domain.SeverityMajor,
			wantDept:     "PreDelivery",
		},
		{
			name:         "process keyword case-insensitive",
			frag:         domain.Fragment{Text: "PROCESS step skipped, severe risk"},
			inspection:   domain.InspectionExecutiveReview,
			wantCategory: domain.CategoryProcessDeviation,
			wantSeverity: domain.SeverityCritical,
			wantDept:     "Management",
		},
		{
			name: "explicit values win over keywords",
			frag: domain.Fragment{
				Text:       "material issue, critical",
				Category:   "assembly-issue",
				Severity:   "minor",
				Department: "Paintshop",
			},
			inspection:   domain.InspectionFinalQC,
			wantCategory: domain.CategoryAssemblyIssue,
			wantSeverity: domain.SeverityMinor,
			wantDept:     "Paintshop",
		},
		{
			name:         "unknown explicit values fall back to heuristic",
			frag:         domain.Fragment{Text: "significant material warp", Category: "bogus", Severity: "urgent"},
			inspection:   domain.InspectionFinalQC,
			wantCategory: domain.CategoryMaterialDefect,
			wantSeverity: domain.SeverityMajor,
			wantDept:     "QualityControl",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.frag, tt.inspection)
			if got.Category != tt.wantCategory {
				t.Errorf("Category = %q, want %q", got.Category, tt.wantCategory)
			}
			if got.Severity != tt.wantSeverity {
				t.Errorf("Severity = %q, want %q", got.Severity, tt.wantSeverity)
			}
			if got.Department != tt.wantDept {
				t.Errorf("Department = %q, want %q", got.Department, tt.wantDept)
			}
		})
	}
}

func TestClassifyClampsConfidence(t *testing.T) {
	low := Classify(domain.Fragment{Text: "x", Confidence: -0.2}, domain.InspectionFinalQC)
	if low.Confidence != 0 {
		t.Errorf("negative confidence not clamped: %v", low.Confidence)
	}
	high := Classify(domain.Fragment{Text: "x", Confidence: 1.4}, domain.InspectionFinalQC)
	if high.Confidence != 1 {
		t.Errorf("oversized confidence not clamped: %v", high.Confidence)
	}
}

func TestClassifyIsDeterministic(t *testing.T) {
	frag := domain.Fragment{Text: "Critical assembly gap at station 4", Confidence: 0.77}
	first := Classify(frag, domain.InspectionFinalQC)
	for i := 0; i < 5; i++ {
		if got := Classify(frag, domain.InspectionFinalQC); got.Category != first.Category ||
			got.Severity != first.Severity || got.Department != first.Department {
			t.Fatalf("classification changed between calls: %+v vs %+v", got, first)
		}
	}
}
