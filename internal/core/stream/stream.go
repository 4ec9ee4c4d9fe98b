// Package stream holds the live preview sequence emitted while a
// submission is in flight.
package stream

import (
	"sync"

	"github.com/hwelland/qcflow/internal/core/domain"
)

// Entry is one element of the preview stream. Preview entries are
// synthesized stage commentary pushed while the recognition backend is
// still working; non-preview entries carry classified findings. The
// stream is a preview, not the source of truth: overlap with the final
// finding set is expected and never deduplicated here.
type Entry struct {
	Seq     int            `json:"seq"`
	Preview bool           `json:"preview"`
	Note    string         `json:"note,omitempty"`
	Finding *domain.Finding `json:"finding,omitempty"`
}

// Stream is an append-only, ordered, in-memory sequence of entries.
// Entries are never reordered or removed once appended. A new submission
// gets a fresh stream.
type Stream struct {
	mu      sync.Mutex
	entries []Entry
}

func New() *Stream {
	return &Stream{}
}

// AppendFinding appends a classified finding to the stream.
func (s *Stream) AppendFinding(f domain.Finding) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, Entry{
		Seq:     len(s.entries),
		Finding: &f,
	})
}

// AppendPreview appends a synthesized progress note.
func (s *Stream) AppendPreview(note string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, Entry{
		Seq:     len(s.entries),
		Preview: true,
		Note:    note,
	})
}

// Since returns a copy of all entries with sequence number >= cursor.
func (s *Stream) Since(cursor int) []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cursor < 0 {
		cursor = 0
	}
	if cursor >= len(s.entries) {
		return nil
	}
	out := make([]Entry, len(s.entries)-cursor)
	copy(out, s.entries[cursor:])
	return out
}

// Len reports how many entries have been appended.
func (s *Stream) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
