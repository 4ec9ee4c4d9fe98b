package usecase

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hwelland/qcflow/internal/core/domain"
	"github.com/hwelland/qcflow/internal/core/ports"
)

type recognizerFake struct {
	mu       sync.Mutex
	payload  []byte
	err      error
	gate     chan struct{}
	calls    int
	lastData []byte
}

func (f *recognizerFake) Recognize(ctx context.Context, _, _ string, data []byte) ([]byte, error) {
	f.mu.Lock()
	f.calls++
	f.lastData = data
	gate := f.gate
	payload, err := f.payload, f.err
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return payload, err
}

func (f *recognizerFake) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *recognizerFake) set(payload []byte, err error) {
	f.mu.Lock()
	f.payload, f.err = payload, err
	f.mu.Unlock()
}

func (f *recognizerFake) received() []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastData
}

type storageFake struct {
	mu      sync.Mutex
	saved   map[string][]byte
	removed []string
	saveErr error
	openErr error
}

func newStorageFake() *storageFake {
	return &storageFake{saved: make(map[string][]byte)}
}

func (f *storageFake) Save(_ context.Context, key string, data io.Reader) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	raw, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	f.mu.Lock()
	f.saved[key] = raw
	f.mu.Unlock()
	return nil
}

func (f *storageFake) Open(_ context.Context, key string) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.openErr != nil {
		return nil, f.openErr
	}
	raw, ok := f.saved[key]
	if !ok {
		return nil, errors.New("not found")
	}
	return io.NopCloser(bytes.NewReader(raw)), nil
}

func (f *storageFake) Remove(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, key)
	delete(f.saved, key)
	return nil
}

type inspectorFake struct {
	pages int
	err   error
}

func (f inspectorFake) Inspect(_, _ string, _ []byte) (int, error) {
	return f.pages, f.err
}

func fastConfig() PipelineConfig {
	return PipelineConfig{
		Tick:         5 * time.Millisecond,
		Grace:        time.Millisecond,
		MaxFileBytes: 1 << 20,
	}
}

func newPipeline(rec *recognizerFake) (*SubmissionPipeline, *storageFake) {
	storage := newStorageFake()
	return NewSubmissionPipeline(rec, storage, inspectorFake{pages: 1}, nil, nil, fastConfig()), storage
}

func pngRequest() ports.SubmitRequest {
	return ports.SubmitRequest{
		Filename:       "scan.png",
		MimeType:       "image/png",
		InspectionType: domain.InspectionFinalQC,
		Body:           strings.NewReader("fake image bytes"),
	}
}

func TestSubmitRejectsInvalidInput(t *testing.T) {
	tests := []struct {
		name string
		req  ports.SubmitRequest
	}{
		{
			name: "empty file",
			req: ports.SubmitRequest{
				Filename: "scan.png", MimeType: "image/png", Body: strings.NewReader(""),
			},
		},
		{
			name: "unsupported media type",
			req: ports.SubmitRequest{
				Filename: "notes.txt", MimeType: "text/plain", Body: strings.NewReader("hello"),
			},
		},
		{
			name: "unknown inspection type",
			req: ports.SubmitRequest{
				Filename: "scan.png", MimeType: "image/png",
				InspectionType: "midnight-audit", Body: strings.NewReader("data"),
			},
		},
		{
			name: "missing body",
			req:  ports.SubmitRequest{Filename: "scan.png", MimeType: "image/png"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &recognizerFake{}
			p, _ := newPipeline(rec)

			_, err := p.Submit(context.Background(), tt.req)
			if !domain.IsKind(err, domain.ErrInvalidInput) {
				t.Fatalf("error = %v, want ErrInvalidInput kind", err)
			}
			if rec.callCount() != 0 {
				t.Errorf("recognizer called %d times before validation", rec.callCount())
			}
		})
	}
}

func TestSubmitClassifiesFragments(t *testing.T) {
	rec := &recognizerFake{payload: []byte(`{
		"results": [
			{"text": "Bent bracket"},
			{"text": "Critical weld crack"}
		]
	}`)}
	p, _ := newPipeline(rec)

	snap, err := p.Submit(context.Background(), pngRequest())
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	final, err := p.Await(context.Background(), snap.ID)
	if err != nil {
		t.Fatalf("Await() error = %v", err)
	}
	if final.State != domain.SessionComplete {
		t.Fatalf("state = %q, want complete", final.State)
	}
	if len(final.Findings) != 2 {
		t.Fatalf("findings = %d, want 2", len(final.Findings))
	}

	first, second := final.Findings[0], final.Findings[1]
	if first.Category != domain.CategoryStandardViolation || first.Severity != domain.SeverityMinor {
		t.Errorf("finding 0 = %q/%q", first.Category, first.Severity)
	}
	if second.Category != domain.CategoryStandardViolation || second.Severity != domain.SeverityCritical {
		t.Errorf("finding 1 = %q/%q", second.Category, second.Severity)
	}
	if first.Department != "QualityControl" {
		t.Errorf("department = %q", first.Department)
	}

	for i, s := range final.Stages {
		if s.Status != domain.StageComplete {
			t.Errorf("stage %d = %q, want complete", i, s.Status)
		}
	}
	if final.Analytics == nil || final.Analytics.IssueTypes["Quality Standard Violation"] != 2 {
		t.Errorf("analytics = %+v", final.Analytics)
	}
}

func TestSubmitEmptyResults(t *testing.T) {
	rec := &recognizerFake{payload: []byte(`{"results": []}`)}
	p, _ := newPipeline(rec)

	snap, err := p.Submit(context.Background(), pngRequest())
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	final, err := p.Await(context.Background(), snap.ID)
	if err != nil {
		t.Fatalf("Await() error = %v", err)
	}

	if final.State != domain.SessionComplete {
		t.Fatalf("state = %q", final.State)
	}
	if final.Analytics == nil {
		t.Fatal("analytics missing")
	}
	if final.Analytics.IssueTypes["No Issues Detected"] != 1 ||
		final.Analytics.SeverityDistribution["minor"] != 1 ||
		final.Analytics.Confidence != 0.8 {
		t.Errorf("analytics = %+v", final.Analytics)
	}
}

func TestSubmitMalformedResponseDegrades(t *testing.T) {
	rec := &recognizerFake{payload: []byte("<html>oops</html>")}
	p, _ := newPipeline(rec)

	snap, err := p.Submit(context.Background(), pngRequest())
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	final, err := p.Await(context.Background(), snap.ID)
	if !domain.IsKind(err, domain.ErrMalformedResponse) {
		t.Fatalf("Await() error = %v, want ErrMalformedResponse kind", err)
	}

	if final.State != domain.SessionFailed {
		t.Errorf("state = %q, want failed", final.State)
	}
	if final.Findings == nil || len(final.Findings) != 0 {
		t.Errorf("findings = %v, want empty non-nil set", final.Findings)
	}
	if final.Analytics == nil || final.Analytics.IssueTypes["No Issues Detected"] != 1 {
		t.Errorf("analytics = %+v", final.Analytics)
	}

	errored := false
	for _, s := range final.Stages {
		if s.Status == domain.StageError {
			errored = true
		}
	}
	if !errored {
		t.Errorf("no stage marked error: %+v", final.Stages)
	}
}

func TestSubmitNetworkFailure(t *testing.T) {
	netErr := domain.WrapError(domain.ErrNetwork, "recognize", errors.New("connection refused"))
	rec := &recognizerFake{err: netErr}
	p, _ := newPipeline(rec)

	snap, err := p.Submit(context.Background(), pngRequest())
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	final, err := p.Await(context.Background(), snap.ID)
	if !domain.IsKind(err, domain.ErrNetwork) {
		t.Fatalf("Await() error = %v, want ErrNetwork kind", err)
	}

	if final.State != domain.SessionFailed {
		t.Errorf("state = %q, want failed", final.State)
	}
	if len(final.Findings) != 0 {
		t.Errorf("partial findings produced: %v", final.Findings)
	}

	// The session stays retryable: a fresh submit into the same session
	// must succeed.
	rec.set([]byte(`{"results": []}`), nil)
	req := pngRequest()
	req.SessionID = snap.ID
	if _, err := p.Submit(context.Background(), req); err != nil {
		t.Fatalf("retry Submit() error = %v", err)
	}
	retried, err := p.Await(context.Background(), snap.ID)
	if err != nil {
		t.Fatalf("retry Await() error = %v", err)
	}
	if retried.State != domain.SessionComplete {
		t.Errorf("retry state = %q, want complete", retried.State)
	}
	for i, s := range retried.Stages {
		if s.Status != domain.StageComplete {
			t.Errorf("stage state leaked across sessions: stage %d = %q", i, s.Status)
		}
	}
}

func TestRecognitionReadsStoredUpload(t *testing.T) {
	rec := &recognizerFake{payload: []byte(`{"results": []}`)}
	p, storage := newPipeline(rec)

	snap, err := p.Submit(context.Background(), pngRequest())
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if _, err := p.Await(context.Background(), snap.ID); err != nil {
		t.Fatalf("Await() error = %v", err)
	}

	storage.mu.Lock()
	stored, ok := storage.saved[snap.ID+"_scan.png"]
	storage.mu.Unlock()
	if !ok {
		t.Fatal("upload not present in storage under the session key")
	}
	if got := rec.received(); !bytes.Equal(got, stored) {
		t.Errorf("recognizer saw %q, want stored copy %q", got, stored)
	}
}

func TestSubmitFailsWhenStoredUploadUnreadable(t *testing.T) {
	rec := &recognizerFake{payload: []byte(`{"results": []}`)}
	p, storage := newPipeline(rec)
	storage.openErr = errors.New("backing volume detached")

	snap, err := p.Submit(context.Background(), pngRequest())
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	final, err := p.Await(context.Background(), snap.ID)
	if err == nil || !strings.Contains(err.Error(), "open stored upload") {
		t.Fatalf("Await() error = %v, want open stored upload failure", err)
	}
	if final.State != domain.SessionFailed {
		t.Errorf("state = %q, want failed", final.State)
	}
	if rec.callCount() != 0 {
		t.Errorf("recognizer called %d times with unreadable storage", rec.callCount())
	}
}

func TestGenerationGuardDiscardsStaleResponse(t *testing.T) {
	gate := make(chan struct{})
	rec := &recognizerFake{
		payload: []byte(`{"results": [{"text": "stale finding from file A"}]}`),
		gate:    gate,
	}
	p, _ := newPipeline(rec)

	snap, err := p.Submit(context.Background(), pngRequest())
	if err != nil {
		t.Fatalf("Submit(fileA) error = %v", err)
	}

	// Supersede while fileA's backend call is still blocked.
	rec.set([]byte(`{"results": [{"text": "finding from file B"}]}`), nil)
	reqB := pngRequest()
	reqB.SessionID = snap.ID
	reqB.Filename = "scan-b.png"
	if _, err := p.Submit(context.Background(), reqB); err != nil {
		t.Fatalf("Submit(fileB) error = %v", err)
	}

	// Release both in-flight backend calls; fileA's run was cancelled, and
	// even if its response raced through, the generation guard drops it.
	close(gate)

	final, err := p.Await(context.Background(), snap.ID)
	if err != nil {
		t.Fatalf("Await() error = %v", err)
	}
	if final.State != domain.SessionComplete {
		t.Fatalf("state = %q, want complete", final.State)
	}
	for _, f := range final.Findings {
		if strings.Contains(f.Text, "file A") {
			t.Fatalf("stale response populated new session: %+v", final.Findings)
		}
	}
	if len(final.Findings) != 1 || final.Findings[0].Text != "finding from file B" {
		t.Errorf("findings = %+v", final.Findings)
	}
}

func TestProgressSynthesisFeedsPreview(t *testing.T) {
	gate := make(chan struct{})
	rec := &recognizerFake{payload: []byte(`{"results": []}`), gate: gate}
	p, _ := newPipeline(rec)

	snap, err := p.Submit(context.Background(), pngRequest())
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	deadline := time.After(2 * time.Second)
	for {
		view, err := p.Session(context.Background(), snap.ID, 0)
		if err != nil {
			t.Fatalf("Session() error = %v", err)
		}
		if len(view.Entries) >= 2 {
			for _, e := range view.Entries {
				if !e.Preview {
					t.Errorf("non-preview entry while in flight: %+v", e)
				}
			}
			break
		}
		select {
		case <-deadline:
			t.Fatal("no preview entries while backend in flight")
		case <-time.After(2 * time.Millisecond):
		}
	}

	close(gate)
	if _, err := p.Await(context.Background(), snap.ID); err != nil {
		t.Fatalf("Await() error = %v", err)
	}
}

func TestDiscardStopsSession(t *testing.T) {
	gate := make(chan struct{})
	rec := &recognizerFake{payload: []byte(`{"results": []}`), gate: gate}
	p, storage := newPipeline(rec)

	snap, err := p.Submit(context.Background(), pngRequest())
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if err := p.Discard(context.Background(), snap.ID); err != nil {
		t.Fatalf("Discard() error = %v", err)
	}
	close(gate)

	if _, err := p.Session(context.Background(), snap.ID, 0); !domain.IsKind(err, domain.ErrSessionNotFound) {
		t.Errorf("Session() after discard error = %v, want ErrSessionNotFound", err)
	}

	storage.mu.Lock()
	removed := len(storage.removed)
	storage.mu.Unlock()
	if removed != 1 {
		t.Errorf("stored upload not removed on discard")
	}

	if err := p.Discard(context.Background(), snap.ID); !domain.IsKind(err, domain.ErrSessionNotFound) {
		t.Errorf("second Discard() error = %v, want ErrSessionNotFound", err)
	}
}

func TestSubmitDetectsMimeFromContent(t *testing.T) {
	rec := &recognizerFake{payload: []byte(`{"results": []}`)}
	p, _ := newPipeline(rec)

	// PNG magic bytes with no declared content type.
	png := append([]byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}, make([]byte, 64)...)
	snap, err := p.Submit(context.Background(), ports.SubmitRequest{
		Filename: "scan.bin",
		Body:     bytes.NewReader(png),
	})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if snap.InspectionType != domain.InspectionFinalQC {
		t.Errorf("inspection type default = %q, want final-qc", snap.InspectionType)
	}
	if _, err := p.Await(context.Background(), snap.ID); err != nil {
		t.Fatalf("Await() error = %v", err)
	}
}
