package orchestration

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/imamik/netfabric/internal/provisioning"
	"github.com/imamik/netfabric/internal/util/teardown"
)

const (
	phaseApply    = "apply"
	phaseVerify   = "verify"
	phaseTeardown = "teardown"
)

// Recorder observes backend operations on stages. *metrics.Recorder
// implements it.
type Recorder interface {
	ObserveStage(stage string, phase provisioning.Phase, err error, duration time.Duration)
}

// Options configures an Orchestrator.
type Options struct {
	// PreserveInfrastructure skips teardown.
	PreserveInfrastructure bool

	// Verify runs after every enabled stage applied and before teardown.
	Verify func(ctx context.Context) error

	// Observer receives lifecycle events. Defaults to a console observer.
	Observer provisioning.Observer

	Recorder Recorder
}

// Orchestrator runs staged deployments. It holds no per-run state and may
// be reused.
type Orchestrator struct {
	opts Options
}

// New creates an Orchestrator.
func New(opts Options) *Orchestrator {
	if opts.Observer == nil {
		opts.Observer = provisioning.NewConsoleObserver()
	}
	return &Orchestrator{opts: opts}
}

// run is the mutable state of one Run call.
type run struct {
	backend  provisioning.Backend
	stages   []provisioning.Stage
	state    *tracker
	outcome  *RunOutcome
	applied  *teardown.Worklist[int]
	failures teardown.Collector
}

// Run applies stages in order, verifies, and tears the applied stages down
// in reverse order. It never panics on backend failures; every failure is
// reported in the returned outcome.
func (o *Orchestrator) Run(ctx context.Context, stages []provisioning.Stage, backend provisioning.Backend) *RunOutcome {
	start := time.Now()
	r := newRun(stages, backend)

	applyErr := o.apply(ctx, r)

	var verifyErr error
	if applyErr == nil && o.opts.Verify != nil {
		verifyErr = o.verify(ctx, r)
	}

	if o.opts.PreserveInfrastructure {
		r.outcome.Preserved = true
		if r.applied.Len() > 0 {
			o.opts.Observer.Printf("[%s] Preserving %d applied stage(s)", phaseTeardown, r.applied.Len())
		}
	} else {
		// Teardown must still run after the caller cancelled the run.
		o.teardown(context.WithoutCancel(ctx), r)
	}

	out := r.outcome
	out.VerifyErr = verifyErr
	out.Failures = r.failures.Failures()
	switch {
	case applyErr != nil:
		out.Err = applyErr
	case verifyErr != nil:
		out.Err = verifyErr
	default:
		out.Err = r.failures.First()
	}
	return r.finish(start)
}

// Destroy tears down every enabled stage last-first without applying
// anything. It cleans up after a run that preserved its infrastructure.
// Stages skipped by Run are skipped here too.
func (o *Orchestrator) Destroy(ctx context.Context, stages []provisioning.Stage, backend provisioning.Backend) *RunOutcome {
	start := time.Now()
	r := newRun(stages, backend)

	previousSelected := false
	for i, stage := range r.stages {
		so := &r.outcome.Outcomes[i]
		switch {
		case !stage.Enabled():
			so.Skipped, so.SkipReason = true, SkipDisabled
			previousSelected = false
		case stage.DependsOnPrevious && !previousSelected:
			so.Skipped, so.SkipReason = true, SkipDependencyUnmet
		default:
			previousSelected = true
			r.applied.Push(i)
		}
	}

	o.teardown(context.WithoutCancel(ctx), r)

	r.outcome.Failures = r.failures.Failures()
	r.outcome.Err = r.failures.First()
	return r.finish(start)
}

func newRun(stages []provisioning.Stage, backend provisioning.Backend) *run {
	r := &run{
		backend: backend,
		stages:  slices.Clone(stages),
		state:   newTracker(),
		outcome: &RunOutcome{Outcomes: make([]StageOutcome, len(stages))},
	}
	r.applied = teardown.NewWorklist(func(i int) string { return r.stages[i].Name })
	for i, s := range r.stages {
		r.outcome.Outcomes[i].Stage = s.Name
	}
	return r
}

func (r *run) finish(start time.Time) *RunOutcome {
	out := r.outcome
	out.Success = out.Err == nil
	r.state.finish(out.Success)
	out.State = r.state.current
	out.History = r.state.history
	out.Duration = time.Since(start)
	return out
}

// apply initialises and applies each enabled stage until one fails.
func (o *Orchestrator) apply(ctx context.Context, r *run) error {
	obs := o.opts.Observer
	provisioning.LogPhaseStart(obs, phaseApply)
	start := time.Now()

	previousApplied := false
	for i, stage := range r.stages {
		so := &r.outcome.Outcomes[i]

		if !stage.Enabled() {
			so.Skipped, so.SkipReason = true, SkipDisabled
			provisioning.LogStage(obs, provisioning.EventStageSkipped, phaseApply, stage.Name, stage.Dir, SkipDisabled)
			previousApplied = false
			continue
		}
		if stage.DependsOnPrevious && !previousApplied {
			so.Skipped, so.SkipReason = true, SkipDependencyUnmet
			provisioning.LogStage(obs, provisioning.EventStageSkipped, phaseApply, stage.Name, stage.Dir, SkipDependencyUnmet)
			continue
		}
		if err := ctx.Err(); err != nil {
			so.Err = fmt.Errorf("stage %s: %w", stage.Name, err)
			o.skipRemaining(r, i+1)
			provisioning.LogPhaseFailed(obs, phaseApply, so.Err)
			return so.Err
		}

		r.state.enter(StateApplying, i)
		provisioning.LogStage(obs, provisioning.EventStageApplying, phaseApply, stage.Name, stage.Dir, fmt.Sprintf("applying stage %d/%d", i+1, len(r.stages)))

		if err := o.applyStage(ctx, r.backend, stage); err != nil {
			so.Err = err
			provisioning.LogStage(obs, provisioning.EventStageFailed, phaseApply, stage.Name, stage.Dir, err.Error())
			o.skipRemaining(r, i+1)
			provisioning.LogPhaseFailed(obs, phaseApply, err)
			return err
		}

		so.Applied = true
		previousApplied = true
		r.applied.Push(i)
		r.outcome.Applied = append(r.outcome.Applied, stage.Name)
		provisioning.LogStage(obs, provisioning.EventStageApplied, phaseApply, stage.Name, stage.Dir, "applied")
	}

	r.state.enter(StateApplied, 0)
	provisioning.LogPhaseComplete(obs, phaseApply, time.Since(start))
	return nil
}

func (o *Orchestrator) applyStage(ctx context.Context, backend provisioning.Backend, stage provisioning.Stage) error {
	start := time.Now()
	err := backend.Init(ctx, stage.Dir)
	o.record(stage.Name, provisioning.PhaseInit, err, time.Since(start))
	if err != nil {
		return err
	}

	start = time.Now()
	err = backend.Apply(ctx, stage.Dir, stage.VarFile)
	o.record(stage.Name, provisioning.PhaseApply, err, time.Since(start))
	return err
}

func (o *Orchestrator) skipRemaining(r *run, from int) {
	for i := from; i < len(r.stages); i++ {
		so := &r.outcome.Outcomes[i]
		so.Skipped, so.SkipReason = true, SkipAborted
	}
}

func (o *Orchestrator) verify(ctx context.Context, r *run) error {
	obs := o.opts.Observer
	r.state.enter(StateVerifying, 0)
	provisioning.LogPhaseStart(obs, phaseVerify)
	start := time.Now()

	if err := o.opts.Verify(ctx); err != nil {
		err = fmt.Errorf("verification failed: %w", err)
		provisioning.LogPhaseFailed(obs, phaseVerify, err)
		return err
	}
	provisioning.LogPhaseComplete(obs, phaseVerify, time.Since(start))
	return nil
}

// teardown destroys the applied stages last-first. Every destroy is
// attempted; failures are collected in r.failures.
func (o *Orchestrator) teardown(ctx context.Context, r *run) {
	if r.applied.Len() == 0 {
		return
	}
	obs := o.opts.Observer
	provisioning.LogPhaseStart(obs, phaseTeardown)
	start := time.Now()

	r.applied.Drain(ctx, &r.failures, func(ctx context.Context, i int) error {
		stage := r.stages[i]
		so := &r.outcome.Outcomes[i]
		r.state.enter(StateTearingDown, i)
		provisioning.LogStage(obs, provisioning.EventStageDestroying, phaseTeardown, stage.Name, stage.Dir, "destroying")

		destroyStart := time.Now()
		err := r.backend.Destroy(ctx, stage.Dir, stage.VarFile)
		o.record(stage.Name, provisioning.PhaseDestroy, err, time.Since(destroyStart))
		if err != nil {
			so.DestroyErr = err
			provisioning.LogStage(obs, provisioning.EventStageDestroyFailed, phaseTeardown, stage.Name, stage.Dir, err.Error())
			return err
		}

		so.Destroyed = true
		r.outcome.Destroyed = append(r.outcome.Destroyed, stage.Name)
		provisioning.LogStage(obs, provisioning.EventStageDestroyed, phaseTeardown, stage.Name, stage.Dir, "destroyed")
		return nil
	})

	if r.failures.Len() > 0 {
		provisioning.LogPhaseFailed(obs, phaseTeardown, fmt.Errorf("%d of %d stage(s) failed to destroy", r.failures.Len(), len(r.outcome.Applied)))
		return
	}
	provisioning.LogPhaseComplete(obs, phaseTeardown, time.Since(start))
}

func (o *Orchestrator) record(stage string, phase provisioning.Phase, err error, d time.Duration) {
	if o.opts.Recorder != nil {
		o.opts.Recorder.ObserveStage(stage, phase, err, d)
	}
}
