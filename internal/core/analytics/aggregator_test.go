package analytics

import (
	"math"
	"math/rand"
	"reflect"
	"testing"

	"github.com/hwelland/qcflow/internal/core/domain"
)

func TestAggregateEmptySet(t *testing.T) {
	got := Aggregate(nil)

	want := domain.Analytics{
		IssueTypes:           map[string]int{"No Issues Detected": 1},
		SeverityDistribution: map[string]int{"minor": 1},
		Confidence:           0.8,
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Aggregate(nil) = %+v, want %+v", got, want)
	}
}

func TestAggregateMeanConfidence(t *testing.T) {
	findings := []domain.Finding{
		{Category: domain.CategoryMaterialDefect, Severity: domain.SeverityMinor, Confidence: 0.5},
		{Category: domain.CategoryMaterialDefect, Severity: domain.SeverityMajor, Confidence: 0.7},
		{Category: domain.CategoryAssemblyIssue, Severity: domain.SeverityCritical, Confidence: 0.9},
	}
	got := Aggregate(findings)

	if math.Abs(got.Confidence-0.7) > 1e-9 {
		t.Errorf("Confidence = %v, want 0.7", got.Confidence)
	}
	if got.IssueTypes["Material Defect"] != 2 || got.IssueTypes["Assembly Issue"] != 1 {
		t.Errorf("IssueTypes = %v", got.IssueTypes)
	}
	if got.SeverityDistribution["minor"] != 1 ||
		got.SeverityDistribution["major"] != 1 ||
		got.SeverityDistribution["critical"] != 1 {
		t.Errorf("SeverityDistribution = %v", got.SeverityDistribution)
	}
}

func TestAggregateOrderIndependent(t *testing.T) {
	findings := []domain.Finding{
		{Category: domain.CategoryMaterialDefect, Severity: domain.SeverityMinor, Confidence: 0.3},
		{Category: domain.CategoryProcessDeviation, Severity: domain.SeverityMajor, Confidence: 0.6},
		{Category: domain.CategoryStandardViolation, Severity: domain.SeverityCritical, Confidence: 0.95},
		{Category: domain.CategoryUncategorized, Severity: domain.SeverityMinor, Confidence: 0.4},
		{Category: domain.CategoryAssemblyIssue, Severity: domain.SeverityMinor, Confidence: 0.8},
	}
	base := Aggregate(findings)

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 10; i++ {
		shuffled := make([]domain.Finding, len(findings))
		copy(shuffled, findings)
		rng.Shuffle(len(shuffled), func(a, b int) {
			shuffled[a], shuffled[b] = shuffled[b], shuffled[a]
		})

		got := Aggregate(shuffled)
		if !reflect.DeepEqual(got.IssueTypes, base.IssueTypes) ||
			!reflect.DeepEqual(got.SeverityDistribution, base.SeverityDistribution) ||
			math.Abs(got.Confidence-base.Confidence) > 1e-9 {
			t.Fatalf("permutation %d changed analytics: %+v vs %+v", i, got, base)
		}
	}
}
