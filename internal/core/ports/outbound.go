package ports

import (
	"context"
	"io"

	"github.com/hwelland/qcflow/internal/core/domain"
)

// Recognizer submits a document to the optical-recognition backend and
// returns the raw response payload. Transport failures map to
// domain.ErrNetwork, non-2xx responses to domain.ErrService; payload shape
// is the caller's problem.
type Recognizer interface {
	Recognize(ctx context.Context, filename, mimeType string, data []byte) ([]byte, error)
}

// RecordChannel sends one record-creation request over the shared message
// bus and waits, bounded, for the correlated acknowledgement. A missing
// acknowledgement maps to domain.ErrHandshakeTimeout, an unreachable bus
// to domain.ErrChannelUnavailable. No retries happen here.
type RecordChannel interface {
	CreateRecord(ctx context.Context, requestID string, draft domain.InspectionDraft) (domain.RecordRef, error)
}

// ObjectStorage keeps uploaded source files for the lifetime of a session.
// The pipeline reads each run's input back through Open, so recognition
// sees the stored copy rather than the request body.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Remove(ctx context.Context, key string) error
}

// FileInspector validates an uploaded file beyond its declared media type.
// It returns the page count when one can be determined (0 otherwise).
type FileInspector interface {
	Inspect(filename, mimeType string, data []byte) (pages int, err error)
}

// TemplateBuilder produces the blank inspection spreadsheet artifact.
type TemplateBuilder interface {
	BlankInspection() ([]byte, error)
}

// InspectionRepository persists created inspection records. It lives on
// the recorder side of the record channel.
type InspectionRepository interface {
	CreateInspection(ctx context.Context, recordID string, draft domain.InspectionDraft) error
}
