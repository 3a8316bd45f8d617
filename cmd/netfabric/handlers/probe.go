package handlers

import (
	"context"
	"fmt"

	"github.com/imamik/netfabric/internal/config"
	"github.com/imamik/netfabric/internal/metrics"
	"github.com/imamik/netfabric/internal/orchestration"
	"github.com/imamik/netfabric/internal/ui/report"
)

// Probe runs reachability checks against deployed infrastructure without
// applying or destroying anything. With source and target set it runs that
// single check instead of the configured matrix.
func Probe(ctx context.Context, configPath, source, target string) error {
	if (source == "") != (target == "") {
		return fmt.Errorf("--source and --target must be given together")
	}

	cfg, err := loadAndOverride(configPath, func(cfg *config.Config) bool {
		cfg.SkipDeploy = true
		if source != "" {
			cfg.Probe.Checks = []config.ProbeCheck{{Source: source, Target: target}}
		}
		return true
	})
	if err != nil {
		return err
	}

	observer := newObserver()
	backend, err := newBackend(ctx, cfg, observer)
	if err != nil {
		return err
	}

	recorder := metrics.NewRecorder()
	v := newVerifier(cfg, backend, orchestration.StagesFromConfig(cfg), observer, recorder)
	topo, err := v.topology(ctx)
	if err != nil {
		return err
	}
	probeErr := v.probe(ctx, topo)
	exportMetrics(cfg, recorder, observer)

	if err := report.Write(stdout, report.Summary{Name: cfg.Name, Probes: v.probes, Err: probeErr}); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return probeErr
}
