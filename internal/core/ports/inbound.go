package ports

import (
	"context"
	"io"

	"github.com/hwelland/qcflow/internal/core/domain"
	"github.com/hwelland/qcflow/internal/core/stream"
)

// SubmitRequest carries one uploaded document into the pipeline.
// SessionID is optional: when set, the new submission supersedes whatever
// that session had in flight.
type SubmitRequest struct {
	SessionID      string
	Filename       string
	MimeType       string
	InspectionType domain.InspectionType
	Body           io.Reader
}

// SessionView is the live preview of one session: its snapshot plus the
// stream entries at or after the requested cursor.
type SessionView struct {
	Snapshot domain.SessionSnapshot
	Entries  []stream.Entry
	Cursor   int
}

// SubmissionService is the inbound contract for the extraction pipeline.
type SubmissionService interface {
	Submit(ctx context.Context, req SubmitRequest) (domain.SessionSnapshot, error)
	Session(ctx context.Context, sessionID string, cursor int) (SessionView, error)
	Discard(ctx context.Context, sessionID string) error
}

// RecordCreator is the inbound contract for the record-creation handshake.
type RecordCreator interface {
	CreateRecord(ctx context.Context, sessionID string) (domain.RecordRef, error)
}
