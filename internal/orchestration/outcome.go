package orchestration

import (
	"time"

	"github.com/imamik/netfabric/internal/provisioning"
	"github.com/imamik/netfabric/internal/util/teardown"
)

// Skip reasons recorded in StageOutcome.SkipReason.
const (
	SkipDisabled        = "disabled"
	SkipDependencyUnmet = "dependency not applied"
	SkipAborted         = "not reached"
)

// StageOutcome is what happened to one stage during the apply phase.
type StageOutcome struct {
	Stage      string
	Applied    bool
	Skipped    bool
	SkipReason string

	// Err is the init or apply failure of this stage.
	Err error

	// Destroyed is set once the stage was torn down; DestroyErr holds a
	// failed teardown.
	Destroyed  bool
	DestroyErr error
}

// RunOutcome summarises a Run.
type RunOutcome struct {
	Success bool

	// Err is the first failure of the run: an apply error, else a verify
	// error, else the first teardown error.
	Err error

	// VerifyErr is the error returned by Options.Verify.
	VerifyErr error

	Outcomes  []StageOutcome
	Applied   []string
	Destroyed []string

	// Failures holds every teardown failure in the order they happened.
	Failures []teardown.Failure

	// Preserved is set when teardown was skipped.
	Preserved bool

	State    RunState
	History  []RunState
	Duration time.Duration
}

// Outcome returns the outcome of the named stage.
func (o *RunOutcome) Outcome(stage string) (StageOutcome, bool) {
	for _, so := range o.Outcomes {
		if so.Stage == stage {
			return so, true
		}
	}
	return StageOutcome{}, false
}

// ApplyErr returns the apply-phase failure, if any.
func (o *RunOutcome) ApplyErr() error {
	for _, so := range o.Outcomes {
		if so.Err != nil {
			return so.Err
		}
	}
	return nil
}

// FailedPhase returns the backend phase of Err, or "" when Err is not a
// provisioning error.
func (o *RunOutcome) FailedPhase() provisioning.Phase {
	for _, phase := range []provisioning.Phase{provisioning.PhaseInit, provisioning.PhaseApply, provisioning.PhaseDestroy, provisioning.PhaseOutput} {
		if provisioning.IsPhase(o.Err, phase) {
			return phase
		}
	}
	return ""
}
