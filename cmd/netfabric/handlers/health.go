package handlers

import (
	"context"
	"fmt"

	"github.com/imamik/netfabric/internal/config"
	"github.com/imamik/netfabric/internal/metrics"
	"github.com/imamik/netfabric/internal/orchestration"
	"github.com/imamik/netfabric/internal/ui/report"
)

// Health polls the monitors of deployed infrastructure. With url set it
// polls only that monitor and fetches its endpoint statuses.
func Health(ctx context.Context, configPath, url string) error {
	cfg, err := loadAndOverride(configPath, func(cfg *config.Config) bool {
		cfg.SkipDeploy = true
		return true
	})
	if err != nil {
		return err
	}

	observer := newObserver()
	recorder := metrics.NewRecorder()
	v := newVerifier(cfg, nil, orchestration.StagesFromConfig(cfg), observer, recorder)

	var healthErr error
	if url != "" {
		healthErr = v.single(ctx, url)
	} else {
		backend, err := newBackend(ctx, cfg, observer)
		if err != nil {
			return err
		}
		v.backend = backend
		topo, err := v.topology(ctx)
		if err != nil {
			return err
		}
		healthErr = v.health(ctx, topo)
	}

	exportMetrics(cfg, recorder, observer)

	if err := report.Write(stdout, report.Summary{Name: cfg.Name, Monitors: v.monitors, Err: healthErr}); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return healthErr
}

// single checks one monitor given by URL.
func (v *verifier) single(ctx context.Context, url string) error {
	client := v.healthClient(url)
	mon := report.Monitor{Name: client.BaseURL(), Result: client.CheckHealth(ctx, healthPolicy(v.cfg))}
	defer func() { v.monitors = append(v.monitors, mon) }()

	if !mon.Result.Healthy {
		return fmt.Errorf("monitor %s: %s", mon.Name, mon.Result.Message)
	}
	return v.dashboardStatus(ctx, client, &mon)
}
