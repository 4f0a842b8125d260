package services

import (
	"fmt"

	"hairsim/pkg/utils"
)

type Stage string

const (
	StageIdle       Stage = "idle"
	StageUploading  Stage = "uploading"
	StageGating     Stage = "gating"
	StageGenerating Stage = "generating"
	StagePersisting Stage = "persisting"
	StageCharging   Stage = "charging"
	StageDone       Stage = "done"
	StageError      Stage = "error"
)

var transitions = map[Stage][]Stage{
	StageIdle:       {StageUploading, StageGating, StagePersisting},
	StageUploading:  {StageDone, StageGating},
	StageGating:     {StageGenerating},
	StageGenerating: {StagePersisting},
	StagePersisting: {StageCharging},
	StageCharging:   {StageDone},
}

// Workflow tracks one attempt through its stages. Any non-terminal stage may
// move to StageError; done and error are terminal.
type Workflow struct {
	stage   Stage
	failed  Stage
	history []Stage
}

func NewWorkflow() *Workflow {
	return &Workflow{stage: StageIdle, history: []Stage{StageIdle}}
}

func (w *Workflow) Stage() Stage { return w.stage }

// FailedAt is the stage that was active when Fail was called.
func (w *Workflow) FailedAt() Stage { return w.failed }

func (w *Workflow) History() []Stage {
	out := make([]Stage, len(w.history))
	copy(out, w.history)
	return out
}

func (w *Workflow) Advance(next Stage) error {
	for _, allowed := range transitions[w.stage] {
		if allowed == next {
			w.stage = next
			w.history = append(w.history, next)
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", utils.ErrInvalidTransition, w.stage, next)
}

func (w *Workflow) Fail() {
	if w.stage == StageDone || w.stage == StageError {
		return
	}
	w.failed = w.stage
	w.stage = StageError
	w.history = append(w.history, StageError)
}

// RetrySafe reports whether the whole attempt can be started again.
// Failures while persisting are resumed from the pending result instead.
func RetrySafe(failedAt Stage) bool {
	switch failedAt {
	case StageIdle, StageUploading, StageGating, StageGenerating:
		return true
	}
	return false
}
