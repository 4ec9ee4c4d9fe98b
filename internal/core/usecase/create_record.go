package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hwelland/qcflow/internal/core/domain"
	"github.com/hwelland/qcflow/internal/core/ports"
)

// RecordCreation converts a completed finding set into an inspection
// record via the shared record channel. The operation is not idempotent:
// sending the same finding set twice creates two records. No retry happens
// here; a failed handshake leaves the finding set intact so the caller can
// resubmit without re-running extraction.
type RecordCreation struct {
	pipeline *SubmissionPipeline
	channel  ports.RecordChannel
	observer Observer
	logger   *slog.Logger
}

func NewRecordCreation(
	pipeline *SubmissionPipeline,
	channel ports.RecordChannel,
	observer Observer,
	logger *slog.Logger,
) *RecordCreation {
	if logger == nil {
		logger = slog.Default()
	}
	return &RecordCreation{
		pipeline: pipeline,
		channel:  channel,
		observer: observer,
		logger:   logger,
	}
}

// CreateRecord runs the handshake for a completed session. It borrows a
// read-only snapshot of the finding set; the session itself is never
// mutated beyond its lifecycle state.
func (uc *RecordCreation) CreateRecord(ctx context.Context, sessionID string) (domain.RecordRef, error) {
	start := time.Now()

	draft, err := uc.beginRecord(sessionID)
	if err != nil {
		return domain.RecordRef{}, err
	}

	requestID := uuid.NewString()
	ref, err := uc.channel.CreateRecord(ctx, requestID, draft)
	if err != nil {
		uc.settleRecord(sessionID, domain.EventRecordFailed, "", err)
		uc.observeHandshake(outcomeFor(err), start)
		uc.logger.Warn("record creation failed",
			"session_id", sessionID, "request_id", requestID, "error", err)
		return domain.RecordRef{}, err
	}

	uc.settleRecord(sessionID, domain.EventRecordSucceeded, ref.RecordID, nil)
	uc.observeHandshake("created", start)
	uc.logger.Info("record created",
		"session_id", sessionID, "request_id", requestID, "record_id", ref.RecordID)
	return ref, nil
}

func (uc *RecordCreation) beginRecord(sessionID string) (domain.InspectionDraft, error) {
	p := uc.pipeline
	p.mu.Lock()
	defer p.mu.Unlock()

	s, ok := p.sessions[sessionID]
	if !ok {
		return domain.InspectionDraft{}, domain.WrapError(domain.ErrSessionNotFound,
			"create record", fmt.Errorf("id %q", sessionID))
	}
	if err := s.transition(domain.EventBeginRecord); err != nil {
		return domain.InspectionDraft{}, err
	}

	findings := make([]domain.Finding, len(s.findings))
	copy(findings, s.findings)

	var summary domain.Analytics
	if s.analytics != nil {
		summary = *s.analytics
	}

	return BuildDraft(findings, s.inspectionType, s.filename, summary), nil
}

func (uc *RecordCreation) settleRecord(sessionID string, event domain.SessionEvent, recordID string, failure error) {
	p := uc.pipeline
	p.mu.Lock()
	defer p.mu.Unlock()

	s, ok := p.sessions[sessionID]
	if !ok {
		return
	}
	if err := s.transition(event); err != nil {
		uc.logger.Error("record transition rejected", "session_id", sessionID, "error", err)
		return
	}
	s.recordID = recordID
	if failure != nil {
		s.errMsg = failure.Error()
	}
}

func (uc *RecordCreation) observeHandshake(outcome string, start time.Time) {
	if uc.observer != nil {
		uc.observer.HandshakeSettled(outcome, time.Since(start))
	}
}

func outcomeFor(err error) string {
	switch {
	case domain.IsKind(err, domain.ErrHandshakeTimeout):
		return "timeout"
	case domain.IsKind(err, domain.ErrChannelUnavailable):
		return "unavailable"
	default:
		return "error"
	}
}

// BuildDraft assembles the record-creation payload: one open defect entry
// per finding, carrying the finding's classification. The owning
// department doubles as the initial assignee until a person picks the
// defect up in the record store.
func BuildDraft(
	findings []domain.Finding,
	inspectionType domain.InspectionType,
	sourceFilename string,
	summary domain.Analytics,
) domain.InspectionDraft {
	if inspectionType == "" {
		inspectionType = domain.InspectionFinalQC
	}

	defects := make([]domain.DefectEntry, 0, len(findings))
	for _, f := range findings {
		defects = append(defects, domain.DefectEntry{
			Description: f.Text,
			Location:    f.Location,
			Severity:    f.Severity,
			Category:    f.Category,
			Department:  f.Department,
			Assignee:    f.Department,
			Status:      domain.DefectStatusOpen,
		})
	}

	return domain.InspectionDraft{
		InspectionType: inspectionType,
		SourceFilename: sourceFilename,
		Defects:        defects,
		Analytics:      summary,
		SubmittedAt:    time.Now().UTC(),
	}
}
