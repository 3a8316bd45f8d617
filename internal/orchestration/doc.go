// Package orchestration drives a staged deployment through its lifecycle.
//
// An [Orchestrator] applies a short ordered chain of stages through a
// provisioning.Backend, optionally runs a verification hook while the
// infrastructure is up, and then tears down every stage it applied in
// reverse order. Teardown is best effort: each destroy is attempted even
// when an earlier one failed, and every failure is kept in the
// [RunOutcome].
//
// # Workflow
//
//  1. Apply - init and apply each enabled stage in order, stopping at the
//     first failure
//  2. Verify - run Options.Verify when the apply phase succeeded
//  3. Teardown - destroy the applied stages last-first, unless
//     Options.PreserveInfrastructure is set
//
// The first error in that order is the run's error.
//
// # Usage
//
//	orch := orchestration.New(orchestration.Options{Observer: observer})
//	outcome := orch.Run(ctx, orchestration.StagesFromConfig(cfg), backend)
//	if !outcome.Success {
//		return outcome.Err
//	}
package orchestration
