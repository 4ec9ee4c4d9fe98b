package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hwelland/qcflow/internal/core/analytics"
	"github.com/hwelland/qcflow/internal/core/classify"
	"github.com/hwelland/qcflow/internal/core/domain"
	"github.com/hwelland/qcflow/internal/core/ports"
	"github.com/hwelland/qcflow/internal/core/recognize"
	"github.com/hwelland/qcflow/internal/core/reconcile"
	"github.com/hwelland/qcflow/internal/core/stage"
	"github.com/hwelland/qcflow/internal/core/stream"
)

// Observer receives pipeline outcomes for metrics.
type Observer interface {
	SubmissionSettled(outcome string, duration time.Duration)
	HandshakeSettled(outcome string, duration time.Duration)
}

// PipelineConfig tunes the submission pipeline.
type PipelineConfig struct {
	// Tick is the progress-synthesis interval while the backend call is in
	// flight. Must stay under ~800ms so the preview is never silent.
	Tick time.Duration
	// Grace is the pause between progress reaching 100 and the stage
	// sequence flipping to complete.
	Grace time.Duration
	// MaxFileBytes caps accepted uploads.
	MaxFileBytes int64
}

func (c PipelineConfig) normalize() PipelineConfig {
	out := c
	if out.Tick <= 0 {
		out.Tick = 700 * time.Millisecond
	}
	if out.Grace <= 0 {
		out.Grace = 250 * time.Millisecond
	}
	if out.MaxFileBytes <= 0 {
		out.MaxFileBytes = 20 << 20
	}
	return out
}

// SubmissionPipeline orchestrates one document submission at a time per
// session: accept file, call the recognition backend, synthesize progress
// while waiting, classify and reconcile the response, aggregate analytics.
// Re-submitting into an existing session supersedes the in-flight run; a
// per-session generation counter guarantees a superseded run's late
// response is discarded instead of corrupting the new session.
type SubmissionPipeline struct {
	recognizer ports.Recognizer
	storage    ports.ObjectStorage
	inspector  ports.FileInspector
	observer   Observer
	logger     *slog.Logger
	cfg        PipelineConfig

	mu       sync.Mutex
	sessions map[string]*session
}

func NewSubmissionPipeline(
	recognizer ports.Recognizer,
	storage ports.ObjectStorage,
	inspector ports.FileInspector,
	observer Observer,
	logger *slog.Logger,
	cfg PipelineConfig,
) *SubmissionPipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &SubmissionPipeline{
		recognizer: recognizer,
		storage:    storage,
		inspector:  inspector,
		observer:   observer,
		logger:     logger,
		cfg:        cfg.normalize(),
		sessions:   make(map[string]*session),
	}
}

// Submit validates the upload, resets or creates the session, and starts
// the asynchronous pipeline run. It returns as soon as the run is in
// flight; callers follow progress via Session or block on Await.
func (p *SubmissionPipeline) Submit(ctx context.Context, req ports.SubmitRequest) (domain.SessionSnapshot, error) {
	inspectionType := req.InspectionType
	if inspectionType == "" {
		inspectionType = domain.InspectionFinalQC
	}
	if !inspectionType.Valid() {
		return domain.SessionSnapshot{}, domain.WrapError(domain.ErrInvalidInput, "submit",
			fmt.Errorf("unknown inspection type %q", inspectionType))
	}

	data, mimeType, err := p.readUpload(req)
	if err != nil {
		return domain.SessionSnapshot{}, err
	}

	pages := 0
	if p.inspector != nil {
		pages, err = p.inspector.Inspect(req.Filename, mimeType, data)
		if err != nil {
			return domain.SessionSnapshot{}, domain.WrapError(domain.ErrInvalidInput, "inspect upload", err)
		}
	}

	runCtx, cancel := context.WithCancel(context.Background())

	p.mu.Lock()
	s, err := p.resetSessionLocked(req.SessionID, inspectionType)
	if err != nil {
		p.mu.Unlock()
		cancel()
		return domain.SessionSnapshot{}, err
	}
	s.filename = req.Filename
	s.mimeType = mimeType
	s.pages = pages
	s.storageKey = s.id + "_" + filepath.Base(req.Filename)
	s.cancel = cancel
	gen := s.generation
	done := s.done
	key := s.storageKey
	tracker := s.tracker
	preview := s.stream
	p.mu.Unlock()

	tracker.Advance(5)

	if err := p.storage.Save(ctx, key, bytes.NewReader(data)); err != nil {
		p.settle(s, gen, func(s *session) {
			s.tracker.MarkErrorCurrent()
			p.fail(s, fmt.Errorf("store upload: %w", err))
		})
		cancel()
		close(done)
		return domain.SessionSnapshot{}, fmt.Errorf("store upload: %w", err)
	}
	tracker.Advance(10)

	go p.run(runCtx, s, gen, done, tracker, preview, key, mimeType, req.Filename, inspectionType)

	p.mu.Lock()
	snap := s.snapshot()
	p.mu.Unlock()
	return snap, nil
}

// Session returns the live view of a session: snapshot plus stream entries
// at or after cursor.
func (p *SubmissionPipeline) Session(_ context.Context, sessionID string, cursor int) (ports.SessionView, error) {
	p.mu.Lock()
	s, ok := p.sessions[sessionID]
	if !ok {
		p.mu.Unlock()
		return ports.SessionView{}, domain.WrapError(domain.ErrSessionNotFound, "get session",
			fmt.Errorf("id %q", sessionID))
	}
	snap := s.snapshot()
	preview := s.stream
	p.mu.Unlock()

	entries := preview.Since(cursor)
	next := cursor + len(entries)
	return ports.SessionView{Snapshot: snap, Entries: entries, Cursor: next}, nil
}

// Await blocks until the in-flight run settles and returns the final
// snapshot. A failed run returns the pipeline error alongside the snapshot
// so callers still see the degraded state.
func (p *SubmissionPipeline) Await(ctx context.Context, sessionID string) (domain.SessionSnapshot, error) {
	p.mu.Lock()
	s, ok := p.sessions[sessionID]
	if !ok {
		p.mu.Unlock()
		return domain.SessionSnapshot{}, domain.WrapError(domain.ErrSessionNotFound, "await session",
			fmt.Errorf("id %q", sessionID))
	}
	done := s.done
	p.mu.Unlock()

	select {
	case <-ctx.Done():
		return domain.SessionSnapshot{}, ctx.Err()
	case <-done:
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	return s.snapshot(), s.failure
}

// Discard drops the session: progress synthesis stops, pending timers are
// released, and any late backend response becomes a no-op. The stored
// source file is removed best-effort.
func (p *SubmissionPipeline) Discard(ctx context.Context, sessionID string) error {
	p.mu.Lock()
	s, ok := p.sessions[sessionID]
	if !ok {
		p.mu.Unlock()
		return domain.WrapError(domain.ErrSessionNotFound, "discard session",
			fmt.Errorf("id %q", sessionID))
	}
	if s.cancel != nil {
		s.cancel()
	}
	s.generation++ // invalidate any in-flight run
	key := s.storageKey
	delete(p.sessions, sessionID)
	p.mu.Unlock()

	if key != "" {
		if err := p.storage.Remove(ctx, key); err != nil {
			p.logger.Warn("remove stored upload", "session_id", sessionID, "error", err)
		}
	}
	return nil
}

func (p *SubmissionPipeline) readUpload(req ports.SubmitRequest) ([]byte, string, error) {
	if req.Body == nil {
		return nil, "", domain.WrapError(domain.ErrInvalidInput, "read upload", errors.New("missing file"))
	}
	data, err := io.ReadAll(io.LimitReader(req.Body, p.cfg.MaxFileBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("read upload: %w", err)
	}
	if len(data) == 0 {
		return nil, "", domain.WrapError(domain.ErrInvalidInput, "read upload", errors.New("empty file"))
	}
	if int64(len(data)) > p.cfg.MaxFileBytes {
		return nil, "", domain.WrapError(domain.ErrInvalidInput, "read upload",
			fmt.Errorf("file exceeds %d bytes", p.cfg.MaxFileBytes))
	}

	mimeType := strings.TrimSpace(req.MimeType)
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = http.DetectContentType(data)
	}
	if idx := strings.Index(mimeType, ";"); idx >= 0 {
		mimeType = strings.TrimSpace(mimeType[:idx])
	}
	if !acceptedMediaType(mimeType) {
		return nil, "", domain.WrapError(domain.ErrInvalidInput, "read upload",
			fmt.Errorf("unsupported media type %q", mimeType))
	}
	return data, mimeType, nil
}

func acceptedMediaType(mimeType string) bool {
	return strings.HasPrefix(mimeType, "image/") || mimeType == "application/pdf"
}

// resetSessionLocked returns a session ready for a fresh run. Reusing an
// existing id cancels interest in its in-flight run before resetting.
func (p *SubmissionPipeline) resetSessionLocked(sessionID string, inspectionType domain.InspectionType) (*session, error) {
	now := time.Now().UTC()

	var s *session
	if sessionID != "" {
		existing, ok := p.sessions[sessionID]
		if !ok {
			return nil, domain.WrapError(domain.ErrSessionNotFound, "reuse session",
				fmt.Errorf("id %q", sessionID))
		}
		if existing.cancel != nil {
			existing.cancel()
		}
		if err := existing.transition(domain.EventReset); err != nil {
			return nil, err
		}
		s = existing
	} else {
		s = &session{
			id:        uuid.NewString(),
			state:     domain.SessionIdle,
			createdAt: now,
		}
		p.sessions[s.id] = s
	}

	if err := s.transition(domain.EventSelectFile); err != nil {
		return nil, err
	}
	if err := s.transition(domain.EventBeginSubmit); err != nil {
		return nil, err
	}

	s.generation++
	s.inspectionType = inspectionType
	s.tracker = stage.NewTracker()
	s.stream = stream.New()
	s.findings = nil
	s.analytics = nil
	s.recordID = ""
	s.errMsg = ""
	s.failure = nil
	s.done = make(chan struct{})
	s.updatedAt = now
	return s, nil
}

// run drives one generation of the pipeline. Every mutation of session
// state goes through settle, which drops the write if the generation has
// been superseded or discarded in the meantime.
func (p *SubmissionPipeline) run(
	ctx context.Context,
	s *session,
	gen uint64,
	done chan struct{},
	tracker *stage.Tracker,
	preview *stream.Stream,
	storageKey string,
	mimeType, filename string,
	inspectionType domain.InspectionType,
) {
	defer close(done)
	start := time.Now()

	type recognition struct {
		payload []byte
		err     error
	}
	respCh := make(chan recognition, 1)
	go func() {
		payload, err := p.recognizeStored(ctx, storageKey, filename, mimeType)
		respCh <- recognition{payload: payload, err: err}
	}()

	ticker := time.NewTicker(p.cfg.Tick)
	defer ticker.Stop()

	progress := 10
	var resp recognition
wait:
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("pipeline run cancelled", "session_id", s.id, "generation", gen)
			return
		case resp = <-respCh:
			break wait
		case <-ticker.C:
			if progress < 90 {
				progress += 8
			}
			tracker.Advance(progress)
			if idx := tracker.CurrentIndex(); idx >= 0 {
				preview.AppendPreview(tracker.Stages()[idx].Description)
			}
		}
	}

	if resp.err != nil {
		tracker.MarkErrorCurrent()
		if p.settle(s, gen, func(s *session) { p.fail(s, resp.err) }) {
			p.observe("failed", start)
			p.logger.Error("recognition call failed", "session_id", s.id, "error", resp.err)
		}
		return
	}

	fragments, parseErr := recognize.ParseResponse(resp.payload)
	if parseErr != nil {
		// Degrade, don't abort: the session fails on the in-progress stage
		// but carries an empty, valid finding set and analytics.
		tracker.MarkErrorCurrent()
		if p.settle(s, gen, func(s *session) {
			s.findings = []domain.Finding{}
			a := analytics.Aggregate(nil)
			s.analytics = &a
			p.fail(s, parseErr)
		}) {
			p.observe("malformed", start)
			p.logger.Warn("malformed recognition response", "session_id", s.id, "error", parseErr)
		}
		return
	}

	tracker.Advance(100)

	// Grace period before the stage sequence flips to complete.
	graceTimer := time.NewTimer(p.cfg.Grace)
	select {
	case <-ctx.Done():
		graceTimer.Stop()
		return
	case <-graceTimer.C:
	}

	var classified []domain.Finding
	for _, frag := range fragments {
		if strings.TrimSpace(frag.Text) == "" {
			continue
		}
		finding := classify.Classify(frag, inspectionType)
		preview.AppendFinding(finding)
		classified = append(classified, finding)
	}

	reconciled := reconcile.Reconcile(classified)
	findings := reconciled.All()
	result := analytics.Aggregate(findings)

	tracker.CompleteAll()

	if p.settle(s, gen, func(s *session) {
		s.findings = findings
		s.analytics = &result
		if err := s.transition(domain.EventPipelineSucceeded); err != nil {
			p.logger.Error("complete transition rejected", "session_id", s.id, "error", err)
		}
	}) {
		p.observe("complete", start)
		p.logger.Info("pipeline run complete",
			"session_id", s.id,
			"generation", gen,
			"fragments", len(fragments),
			"findings", len(findings),
			"duration_ms", float64(time.Since(start).Microseconds())/1000.0,
		)
	}
}

// recognizeStored reads the upload back from object storage and feeds it
// to the recognition backend. The stored copy is the single source for a
// run, so re-submitting into the session never depends on the original
// request body still being around.
func (p *SubmissionPipeline) recognizeStored(ctx context.Context, key, filename, mimeType string) ([]byte, error) {
	rc, err := p.storage.Open(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("open stored upload: %w", err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read stored upload: %w", err)
	}
	return p.recognizer.Recognize(ctx, filename, mimeType, data)
}

// settle applies fn to the session only if gen is still current. It
// reports whether the write was applied.
func (p *SubmissionPipeline) settle(s *session, gen uint64, fn func(*session)) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if s.generation != gen {
		p.logger.Info("stale pipeline result discarded", "session_id", s.id, "generation", gen)
		return false
	}
	if _, ok := p.sessions[s.id]; !ok {
		return false
	}
	fn(s)
	s.updatedAt = time.Now().UTC()
	return true
}

func (p *SubmissionPipeline) fail(s *session, err error) {
	s.failure = err
	s.errMsg = err.Error()
	if terr := s.transition(domain.EventPipelineFailed); terr != nil {
		p.logger.Error("failed transition rejected", "session_id", s.id, "error", terr)
	}
}

func (p *SubmissionPipeline) observe(outcome string, start time.Time) {
	if p.observer != nil {
		p.observer.SubmissionSettled(outcome, time.Since(start))
	}
}
