package orchestration

import "fmt"

// StatePhase is the coarse position of a run in its lifecycle.
type StatePhase string

const (
	StateIdle        StatePhase = "idle"
	StateApplying    StatePhase = "applying"
	StateApplied     StatePhase = "applied"
	StateVerifying   StatePhase = "verifying"
	StateTearingDown StatePhase = "tearing_down"
	StateFinished    StatePhase = "finished"
)

// RunState is the state of one Run. Index is the stage being applied or
// destroyed while Applying or TearingDown; Success is set once Finished.
type RunState struct {
	Phase   StatePhase
	Index   int
	Success bool
}

func (s RunState) String() string {
	switch s.Phase {
	case StateApplying, StateTearingDown:
		return fmt.Sprintf("%s(%d)", s.Phase, s.Index)
	case StateFinished:
		if s.Success {
			return "finished(success)"
		}
		return "finished(failed)"
	default:
		return string(s.Phase)
	}
}

// tracker records the transitions of a single run.
type tracker struct {
	current RunState
	history []RunState
}

func newTracker() *tracker {
	t := &tracker{current: RunState{Phase: StateIdle}}
	t.history = append(t.history, t.current)
	return t
}

func (t *tracker) enter(phase StatePhase, index int) {
	t.current = RunState{Phase: phase, Index: index}
	t.history = append(t.history, t.current)
}

func (t *tracker) finish(success bool) {
	t.current = RunState{Phase: StateFinished, Success: success}
	t.history = append(t.history, t.current)
}
