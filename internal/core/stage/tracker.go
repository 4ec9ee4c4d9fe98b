// Package stage tracks progress of one submission across the fixed
// five-stage extraction sequence.
package stage

import (
	"sync"

	"github.com/hwelland/qcflow/internal/core/domain"
)

// Tracker maps monotonically increasing progress onto the stage sequence.
// Stages never move backward, at most one stage is in progress at a time,
// and an errored stage freezes all further advancement.
type Tracker struct {
	mu          sync.Mutex
	stages      []domain.ProcessingStage
	current     int
	maxProgress int
	failed      bool
}

func NewTracker() *Tracker {
	return &Tracker{
		stages:  domain.NewStages(),
		current: -1,
	}
}

// Advance moves the tracker to the stage owning progressPercent (0-100).
// Lower progress than previously seen is ignored. Reaching 100 marks the
// final stage in progress; the caller decides when to call CompleteAll.
func (t *Tracker) Advance(progressPercent int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.failed {
		return
	}
	if progressPercent < 0 {
		progressPercent = 0
	}
	if progressPercent > 100 {
		progressPercent = 100
	}
	if progressPercent < t.maxProgress {
		return
	}
	t.maxProgress = progressPercent

	target := stageFor(progressPercent)
	for i := 0; i < target; i++ {
		t.stages[i].Status = domain.StageComplete
	}
	if t.stages[target].Status != domain.StageComplete {
		t.stages[target].Status = domain.StageInProgress
	}
	t.current = target
}

// CompleteAll flips every stage to complete in one step. Used after the
// grace period that follows progress hitting 100.
func (t *Tracker) CompleteAll() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.failed {
		return
	}
	for i := range t.stages {
		t.stages[i].Status = domain.StageComplete
	}
	t.current = -1
	t.maxProgress = 100
}

// MarkError sets the given stage to error and halts further advancement.
// Earlier completed stages keep their status.
func (t *Tracker) MarkError(index int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if index < 0 || index >= len(t.stages) {
		return
	}
	t.stages[index].Status = domain.StageError
	t.failed = true
}

// MarkErrorCurrent errors the stage currently in progress, or the first
// stage when nothing has started yet.
func (t *Tracker) MarkErrorCurrent() {
	t.mu.Lock()
	index := t.current
	t.mu.Unlock()

	if index < 0 {
		index = 0
	}
	t.MarkError(index)
}

// Stages returns a copy of the stage sequence.
func (t *Tracker) Stages() []domain.ProcessingStage {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]domain.ProcessingStage, len(t.stages))
	copy(out, t.stages)
	return out
}

// CurrentIndex reports the in-progress stage index, or -1 when none is.
func (t *Tracker) CurrentIndex() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current
}

func stageFor(progress int) int {
	switch {
	case progress < 20:
		return 0
	case progress < 40:
		return 1
	case progress < 60:
		return 2
	case progress < 80:
		return 3
	default:
		return domain.StageCount - 1
	}
}
