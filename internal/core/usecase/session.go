package usecase

import (
	"context"
	"time"

	"github.com/hwelland/qcflow/internal/core/domain"
	"github.com/hwelland/qcflow/internal/core/stage"
	"github.com/hwelland/qcflow/internal/core/stream"
)

// session groups one uploaded file with its derived findings, analytics
// and stage history. It is owned by the pipeline, never shared across
// submissions: a re-submit bumps the generation and replaces tracker,
// stream and results wholesale.
type session struct {
	id             string
	inspectionType domain.InspectionType

	// guarded by SubmissionPipeline.mu
	generation uint64
	state      domain.SessionState
	filename   string
	mimeType   string
	storageKey string
	pages      int

	tracker *stage.Tracker
	stream  *stream.Stream

	findings  []domain.Finding
	analytics *domain.Analytics
	recordID  string
	errMsg    string
	failure   error

	cancel context.CancelFunc
	done   chan struct{}

	createdAt time.Time
	updatedAt time.Time
}

func (s *session) transition(event domain.SessionEvent) error {
	next, err := domain.Transition(s.state, event)
	if err != nil {
		return err
	}
	s.state = next
	s.updatedAt = time.Now().UTC()
	return nil
}

func (s *session) snapshot() domain.SessionSnapshot {
	snap := domain.SessionSnapshot{
		ID:             s.id,
		State:          s.state,
		InspectionType: s.inspectionType,
		Filename:       s.filename,
		RecordID:       s.recordID,
		Error:          s.errMsg,
		CreatedAt:      s.createdAt,
		UpdatedAt:      s.updatedAt,
	}
	if s.tracker != nil {
		snap.Stages = s.tracker.Stages()
	}
	if s.findings != nil {
		snap.Findings = make([]domain.Finding, len(s.findings))
		copy(snap.Findings, s.findings)
	}
	if s.analytics != nil {
		a := *s.analytics
		snap.Analytics = &a
	}
	return snap
}
