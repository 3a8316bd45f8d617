package provisioning

import "context"

// Backend is the external provisioning tool driven by the orchestrator.
// Every method either completes or fails with a *Error.
type Backend interface {
	// Init prepares the working directory (providers, modules, backend).
	Init(ctx context.Context, dir string) error

	// Apply creates or updates the infrastructure described in dir.
	Apply(ctx context.Context, dir, varFile string) error

	// Destroy removes the infrastructure described in dir.
	Destroy(ctx context.Context, dir, varFile string) error

	// ReadOutputs returns the outputs persisted for dir. It returns an empty
	// map when no state exists.
	ReadOutputs(ctx context.Context, dir string) (Outputs, error)
}

// Stage is one step of a staged deployment.
type Stage struct {
	// Name identifies the stage in logs and outcomes.
	Name string

	// Dir is the directory holding the stage's configuration.
	Dir string

	// VarFile overrides the run-wide variables file for this stage.
	VarFile string

	// DependsOnPrevious marks a stage that must not be applied unless the
	// stage before it was applied in the same run.
	DependsOnPrevious bool

	// Conditional stages are applied only when Condition reports true.
	Conditional bool
	Condition   func() bool
}

// Enabled reports whether the stage should be applied. Non-conditional
// stages are always enabled; a conditional stage without a predicate is not.
func (s Stage) Enabled() bool {
	if !s.Conditional {
		return true
	}
	return s.Condition != nil && s.Condition()
}

// Always returns a predicate with a fixed answer, for feature switches
// resolved once at start-up.
func Always(enabled bool) func() bool {
	return func() bool { return enabled }
}
