package handlers

import (
	"context"
	"fmt"

	"github.com/imamik/netfabric/internal/config"
	"github.com/imamik/netfabric/internal/metrics"
	"github.com/imamik/netfabric/internal/orchestration"
	"github.com/imamik/netfabric/internal/ui/report"
)

// Destroy tears down every enabled stage in reverse order. It cleans up
// after a run made with skip_destroy.
func Destroy(ctx context.Context, configPath, varFile string) error {
	cfg, err := loadAndOverride(configPath, func(cfg *config.Config) bool {
		// Destroy always runs terraform, so var files must exist.
		cfg.SkipDeploy = false
		if varFile != "" {
			cfg.VarFile = varFile
		}
		return true
	})
	if err != nil {
		return err
	}
	if err := checkDefaultPrereqs().Error(); err != nil {
		return err
	}

	observer := newObserver()
	backend, err := newBackend(ctx, cfg, observer)
	if err != nil {
		return err
	}

	observer.Printf("Destroying fabric %s", cfg.Name)
	recorder := metrics.NewRecorder()
	orch := orchestration.New(orchestration.Options{Observer: observer, Recorder: recorder})
	outcome := orch.Destroy(ctx, orchestration.StagesFromConfig(cfg), backend)
	exportMetrics(cfg, recorder, observer)

	if err := report.Write(stdout, report.Summary{Name: cfg.Name, Run: outcome, Err: outcome.Err}); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return outcome.Err
}
