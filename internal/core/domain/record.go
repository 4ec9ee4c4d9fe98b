package domain

import "time"

// DefectEntry is one line item of an inspection record draft, built from a
// single finding.
type DefectEntry struct {
	Description string   `json:"description"`
	Location    string   `json:"location,omitempty"`
	Severity    Severity `json:"severity"`
	Category    Category `json:"category"`
	Department  string   `json:"department"`
	Assignee    string   `json:"assignee,omitempty"`
	Status      string   `json:"status"`
}

// DefectStatusOpen is the initial status of every drafted defect entry.
const DefectStatusOpen = "open"

// InspectionDraft is the record-creation payload sent to the record store.
type InspectionDraft struct {
	InspectionType InspectionType `json:"inspection_type"`
	SourceFilename string         `json:"source_filename,omitempty"`
	Defects        []DefectEntry  `json:"defects"`
	Analytics      Analytics      `json:"analytics"`
	SubmittedAt    time.Time      `json:"submitted_at"`
}

// RecordRef points at an inspection record created by the record store.
type RecordRef struct {
	RecordID  string    `json:"record_id"`
	CreatedAt time.Time `json:"created_at"`
}
