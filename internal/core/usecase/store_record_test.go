package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hwelland/qcflow/internal/core/domain"
)

type inspectionRepoFake struct {
	recordIDs []string
	drafts    []domain.InspectionDraft
	err       error
}

func (f *inspectionRepoFake) CreateInspection(_ context.Context, recordID string, draft domain.InspectionDraft) error {
	if f.err != nil {
		return f.err
	}
	f.recordIDs = append(f.recordIDs, recordID)
	f.drafts = append(f.drafts, draft)
	return nil
}

func sampleDraft() domain.InspectionDraft {
	return domain.InspectionDraft{
		InspectionType: domain.InspectionFinalQC,
		SourceFilename: "scan.pdf",
		Defects: []domain.DefectEntry{
			{Description: "Dented panel", Severity: domain.SeverityMajor,
				Category: domain.CategoryAssemblyIssue, Department: "QualityControl",
				Status: domain.DefectStatusOpen},
		},
		SubmittedAt: time.Now().UTC(),
	}
}

func TestStoreInspectionMintsUniqueIDs(t *testing.T) {
	repo := &inspectionRepoFake{}
	uc := NewStoreInspection(repo, nil)

	first, err := uc.Store(context.Background(), sampleDraft())
	if err != nil {
		t.Fatalf("Store() error = %v", err)
	}
	second, err := uc.Store(context.Background(), sampleDraft())
	if err != nil {
		t.Fatalf("Store() error = %v", err)
	}

	// Not idempotent: the same draft twice yields two records.
	if first.RecordID == second.RecordID {
		t.Fatalf("duplicate record id %q", first.RecordID)
	}
	if len(repo.drafts) != 2 {
		t.Errorf("persisted %d drafts, want 2", len(repo.drafts))
	}
}

func TestStoreInspectionRejectsEmptyDraft(t *testing.T) {
	uc := NewStoreInspection(&inspectionRepoFake{}, nil)
	_, err := uc.Store(context.Background(), domain.InspectionDraft{})
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("error = %v, want ErrInvalidInput kind", err)
	}
}

func TestStoreInspectionPropagatesRepofailure(t *testing.T) {
	repo := &inspectionRepoFake{err: errors.New("connection reset")}
	uc := NewStoreInspection(repo, nil)

	_, err := uc.Store(context.Background(), sampleDraft())
	if err == nil {
		t.Fatal("expected error from repository failure")
	}
}
