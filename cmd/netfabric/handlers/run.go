package handlers

import (
	"context"
	"fmt"
	"time"

	"github.com/imamik/netfabric/internal/config"
	"github.com/imamik/netfabric/internal/metrics"
	"github.com/imamik/netfabric/internal/orchestration"
	"github.com/imamik/netfabric/internal/ui/report"
)

// RunOptions are command-line overrides for Run. Zero values keep the
// configured behaviour.
type RunOptions struct {
	VarFile     string
	SkipDestroy bool
	SkipDeploy  bool
	MetricsFile string
}

func (o RunOptions) apply(cfg *config.Config) bool {
	changed := false
	if o.VarFile != "" {
		cfg.VarFile = o.VarFile
		changed = true
	}
	if o.SkipDestroy {
		cfg.SkipDestroy = true
		changed = true
	}
	if o.SkipDeploy {
		cfg.SkipDeploy = true
		changed = true
	}
	if o.MetricsFile != "" {
		cfg.Metrics.File = o.MetricsFile
	}
	return changed
}

// Run deploys the fabric stage by stage, verifies reachability and monitor
// health across it, and tears it down again.
//
// The workflow is:
//  1. Load and validate the configuration, then check that terraform exists
//  2. Apply each enabled stage in order (skipped with skip_deploy)
//  3. Verify required outputs, probe the node matrix and poll the monitors
//  4. Destroy the applied stages in reverse order (skipped with skip_destroy)
//  5. Print a summary and export metrics when a metrics file is configured
//
// The returned error is the first failure: apply, then verification, then
// teardown.
func Run(ctx context.Context, configPath string, opts RunOptions) error {
	cfg, err := loadAndOverride(configPath, opts.apply)
	if err != nil {
		return err
	}

	if !cfg.SkipDeploy {
		if err := checkDefaultPrereqs().Error(); err != nil {
			return err
		}
	}

	observer := newObserver()
	recorder := metrics.NewRecorder()
	observer.Printf("Running fabric %s", cfg.Name)

	backend, err := newBackend(ctx, cfg, observer)
	if err != nil {
		return err
	}

	stages := orchestration.StagesFromConfig(cfg)
	v := newVerifier(cfg, backend, stages, observer, recorder)

	start := time.Now()
	summary := report.Summary{Name: cfg.Name}
	if cfg.SkipDeploy {
		observer.Printf("Skipping deploy, verifying existing infrastructure")
		summary.Err = v.Verify(ctx)
	} else {
		orch := orchestration.New(orchestration.Options{
			PreserveInfrastructure: cfg.SkipDestroy,
			Verify:                 v.Verify,
			Observer:               observer,
			Recorder:               recorder,
		})
		outcome := orch.Run(ctx, stages, backend)
		summary.Run = outcome
		summary.Err = outcome.Err
	}
	summary.Probes = v.probes
	summary.Monitors = v.monitors

	recorder.ObserveRun(cfg.Name, summary.Err == nil, time.Since(start), time.Now())
	exportMetrics(cfg, recorder, observer)

	if err := report.Write(stdout, summary); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return summary.Err
}
