package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/hwelland/qcflow/internal/core/domain"
	"github.com/hwelland/qcflow/internal/core/ports"
)

// StoreInspection is the recorder-side use case: it mints a sortable
// record id for each inspection draft and persists it. Every call creates
// a new record; there is deliberately no dedup key, so replaying the same
// draft produces a second record.
type StoreInspection struct {
	repo   ports.InspectionRepository
	logger *slog.Logger
}

func NewStoreInspection(repo ports.InspectionRepository, logger *slog.Logger) *StoreInspection {
	if logger == nil {
		logger = slog.Default()
	}
	return &StoreInspection{repo: repo, logger: logger}
}

func (uc *StoreInspection) Store(ctx context.Context, draft domain.InspectionDraft) (domain.RecordRef, error) {
	if len(draft.Defects) == 0 {
		return domain.RecordRef{}, domain.WrapError(domain.ErrInvalidInput, "store inspection",
			errors.New("draft has no defect entries"))
	}
	if draft.InspectionType == "" {
		draft.InspectionType = domain.InspectionFinalQC
	}
	if !draft.InspectionType.Valid() {
		return domain.RecordRef{}, domain.WrapError(domain.ErrInvalidInput, "store inspection",
			fmt.Errorf("unknown inspection type %q", draft.InspectionType))
	}

	now := time.Now().UTC()
	recordID := ulid.Make().String()

	if err := uc.repo.CreateInspection(ctx, recordID, draft); err != nil {
		return domain.RecordRef{}, fmt.Errorf("persist inspection: %w", err)
	}

	uc.logger.Info("inspection stored",
		"record_id", recordID,
		"inspection_type", draft.InspectionType,
		"defects", len(draft.Defects),
	)
	return domain.RecordRef{RecordID: recordID, CreatedAt: now}, nil
}
