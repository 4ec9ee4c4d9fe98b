package domain

import (
	"fmt"
	"time"
)

// SessionState is the lifecycle state of one submission session.
type SessionState string

const (
	SessionIdle            SessionState = "idle"
	SessionFileSelected    SessionState = "file_selected"
	SessionSubmitting      SessionState = "submitting"
	SessionComplete        SessionState = "complete"
	SessionFailed          SessionState = "failed"
	SessionRecordCreating  SessionState = "record_creating"
	SessionRecordCreated   SessionState = "record_created"
	SessionHandshakeFailed SessionState = "handshake_failed"
)

type SessionEvent string

const (
	EventSelectFile        SessionEvent = "select_file"
	EventBeginSubmit       SessionEvent = "begin_submit"
	EventPipelineSucceeded SessionEvent = "pipeline_succeeded"
	EventPipelineFailed    SessionEvent = "pipeline_failed"
	EventBeginRecord       SessionEvent = "begin_record"
	EventRecordSucceeded   SessionEvent = "record_succeeded"
	EventRecordFailed      SessionEvent = "record_failed"
	EventReset             SessionEvent = "reset"
)

// Transition is the single transition function for the session lifecycle.
// Submitting cannot be skipped, and record creation is only reachable from
// a completed extraction (or a failed handshake retry, which keeps the
// completed finding set).
func Transition(state SessionState, event SessionEvent) (SessionState, error) {
	if event == EventReset {
		return SessionIdle, nil
	}

	switch state {
	case SessionIdle:
		if event == EventSelectFile {
			return SessionFileSelected, nil
		}
	case SessionFileSelected:
		if event == EventBeginSubmit {
			return SessionSubmitting, nil
		}
	case SessionSubmitting:
		switch event {
		case EventPipelineSucceeded:
			return SessionComplete, nil
		case EventPipelineFailed:
			return SessionFailed, nil
		}
	case SessionComplete, SessionHandshakeFailed:
		if event == EventBeginRecord {
			return SessionRecordCreating, nil
		}
	case SessionRecordCreating:
		switch event {
		case EventRecordSucceeded:
			return SessionRecordCreated, nil
		case EventRecordFailed:
			return SessionHandshakeFailed, nil
		}
	}

	return state, WrapError(ErrSessionState, "session transition",
		fmt.Errorf("event %q not allowed in state %q", event, state))
}

// SessionSnapshot is the read model exposed to callers while a session is
// in flight or after it settled.
type SessionSnapshot struct {
	ID             string            `json:"id"`
	State          SessionState      `json:"state"`
	InspectionType InspectionType    `json:"inspection_type"`
	Filename       string            `json:"filename"`
	Stages         []ProcessingStage `json:"stages"`
	Findings       []Finding         `json:"findings,omitempty"`
	Analytics      *Analytics        `json:"analytics,omitempty"`
	RecordID       string            `json:"record_id,omitempty"`
	Error          string            `json:"error,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}
