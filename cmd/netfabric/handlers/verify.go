package handlers

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/imamik/netfabric/internal/config"
	"github.com/imamik/netfabric/internal/health"
	"github.com/imamik/netfabric/internal/metrics"
	"github.com/imamik/netfabric/internal/probe"
	"github.com/imamik/netfabric/internal/provisioning"
	"github.com/imamik/netfabric/internal/topology"
	"github.com/imamik/netfabric/internal/ui/report"
)

const dashboardMonitor = "dashboard"

// verifier checks a deployed fabric. It keeps the probe and monitor
// results of its last Verify for the report.
type verifier struct {
	cfg      *config.Config
	backend  provisioning.Backend
	stages   []provisioning.Stage
	observer provisioning.Observer
	recorder *metrics.Recorder

	probes   *probe.Report
	monitors []report.Monitor
}

func newVerifier(cfg *config.Config, backend provisioning.Backend, stages []provisioning.Stage, observer provisioning.Observer, recorder *metrics.Recorder) *verifier {
	return &verifier{cfg: cfg, backend: backend, stages: stages, observer: observer, recorder: recorder}
}

// Verify checks required outputs, then probes the node matrix and polls
// every monitor. Output and topology problems stop verification; probe
// and health failures are joined.
func (v *verifier) Verify(ctx context.Context) error {
	if err := v.checkOutputs(ctx); err != nil {
		return err
	}

	topo, err := v.topology(ctx)
	if err != nil {
		return err
	}

	var errs []error
	if err := v.probe(ctx, topo); err != nil {
		errs = append(errs, err)
	}
	if err := v.health(ctx, topo); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (v *verifier) stage(name string) (provisioning.Stage, bool) {
	for _, s := range v.stages {
		if s.Name == name {
			return s, true
		}
	}
	return provisioning.Stage{}, false
}

// checkOutputs verifies the configured outputs of every enabled stage.
func (v *verifier) checkOutputs(ctx context.Context) error {
	names := make([]string, 0, len(v.cfg.Verify.RequiredOutputs))
	for name := range v.cfg.Verify.RequiredOutputs {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		stage, ok := v.stage(name)
		if !ok || !stage.Enabled() {
			continue
		}
		outputs, err := v.backend.ReadOutputs(ctx, stage.Dir)
		if err != nil {
			return fmt.Errorf("stage %s: %w", name, err)
		}
		if err := outputs.Require(v.cfg.Verify.RequiredOutputs[name]...); err != nil {
			return fmt.Errorf("stage %s: %w", name, err)
		}
	}
	return nil
}

func (v *verifier) topology(ctx context.Context) (*topology.Topology, error) {
	stage, ok := v.stage(v.cfg.Verify.TopologyStage)
	if !ok {
		return nil, fmt.Errorf("topology stage %q is not configured", v.cfg.Verify.TopologyStage)
	}
	outputs, err := v.backend.ReadOutputs(ctx, stage.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s outputs: %w", stage.Name, err)
	}
	topo, err := topology.FromOutputs(outputs, v.cfg.SSH.User)
	if err != nil {
		return nil, fmt.Errorf("failed to build topology from %s outputs: %w", stage.Name, err)
	}
	topo.ResolveKeyPaths(stage.Dir)
	return topo, nil
}

// probe runs the configured checks, or the default cross-site matrix.
func (v *verifier) probe(ctx context.Context, topo *topology.Topology) error {
	pairs := topo.DefaultPairs()
	names := map[string]string{}
	if len(v.cfg.Probe.Checks) > 0 {
		pairs = pairs[:0:0]
		for _, c := range v.cfg.Probe.Checks {
			pair := topology.Pair{Source: c.Source, Target: c.Target}
			pairs = append(pairs, pair)
			if c.Name != "" {
				names[pair.Name()] = c.Name
			}
		}
	}
	if len(pairs) == 0 {
		v.observer.Printf("[probe] No probe pairs in topology")
		return nil
	}

	checks, err := probe.ChecksFor(topo, pairs)
	if err != nil {
		return err
	}
	for i := range checks {
		if name, ok := names[checks[i].Name]; ok {
			checks[i].Name = name
		}
	}

	prober := probe.New(newExecutor(v.cfg),
		probe.WithObserver(v.observer),
		probe.WithRecorder(v.recorder),
		probe.WithSleeper(retrySleep),
	)
	v.probes = prober.ProbeAll(ctx, checks, probePolicy(v.cfg))
	return v.probes.Err()
}

func probePolicy(cfg *config.Config) probe.Policy {
	return probe.Policy{
		MaxAttempts: cfg.Probe.MaxAttempts,
		Delay:       cfg.Probe.Delay,
		Timeout:     cfg.Probe.Timeout,
		ProbeCount:  cfg.Probe.Count,
		PacketWait:  cfg.Probe.PacketWait,
	}
}

func healthPolicy(cfg *config.Config) health.Policy {
	return health.Policy{
		MaxAttempts: cfg.Health.MaxAttempts,
		Delay:       cfg.Health.Delay,
		Timeout:     cfg.Health.Timeout,
	}
}

func dashboardExpectation(cfg *config.Config) topology.Expectation {
	d := cfg.Verify.Dashboard
	return topology.Expectation{
		DashboardSite: d.Site,
		MinEndpoints:  d.MinEndpoints,
		Patterns:      d.EndpointPatterns,
	}
}

func (v *verifier) healthClient(url string) *health.Client {
	return health.NewClient(url,
		health.WithBasicAuth(v.cfg.Health.Username, v.cfg.Health.Password),
		health.WithVerifyTLS(v.cfg.Health.VerifyTLS),
		health.WithObserver(v.observer),
		health.WithRecorder(v.recorder),
		health.WithSleeper(retrySleep),
	)
}

// health polls the site monitors exported by the topology stage and, when
// the monitoring stage ran, checks its outputs and polls the central
// dashboard.
func (v *verifier) health(ctx context.Context, topo *topology.Topology) error {
	urls := topo.GatusURLs()
	dashboard, err := v.dashboard(ctx)
	if err != nil {
		return err
	}

	var errs []error
	if dashboard != nil {
		urls[dashboardMonitor] = dashboard.DashboardURL
		if err := dashboard.Verify(dashboardExpectation(v.cfg), topo.Sites); err != nil {
			v.observer.Printf("[health] Monitoring outputs do not match: %v", err)
			errs = append(errs, fmt.Errorf("stage %s: %w", v.cfg.Verify.MonitoringStage, err))
		}
	}
	if len(urls) == 0 {
		v.observer.Printf("[health] No monitors exported, skipping health checks")
		return errors.Join(errs...)
	}

	names := make([]string, 0, len(urls))
	for name := range urls {
		names = append(names, name)
	}
	sort.Strings(names)

	policy := healthPolicy(v.cfg)
	for _, name := range names {
		client := v.healthClient(urls[name])
		mon := report.Monitor{Name: name, Result: client.CheckHealth(ctx, policy)}
		if !mon.Result.Healthy {
			errs = append(errs, fmt.Errorf("monitor %s: %s", name, mon.Result.Message))
		} else if name == dashboardMonitor {
			if err := v.dashboardStatus(ctx, client, &mon); err != nil {
				errs = append(errs, err)
			}
		}
		v.monitors = append(v.monitors, mon)
	}
	return errors.Join(errs...)
}

// dashboard returns the monitoring stage's dashboard, or nil when the stage
// is absent or disabled.
func (v *verifier) dashboard(ctx context.Context) (*topology.Monitoring, error) {
	stage, ok := v.stage(v.cfg.Verify.MonitoringStage)
	if !ok || !stage.Enabled() {
		return nil, nil
	}
	outputs, err := v.backend.ReadOutputs(ctx, stage.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s outputs: %w", stage.Name, err)
	}
	if !outputs.Has(topology.OutputDashboardURL) {
		return nil, nil
	}
	return topology.MonitoringFromOutputs(outputs)
}

// dashboardStatus fetches endpoint statuses. A failed fetch is reported but
// not an error; a dashboard monitoring nothing is.
func (v *verifier) dashboardStatus(ctx context.Context, client *health.Client, mon *report.Monitor) error {
	groups, err := client.GetStatus(ctx, v.cfg.Health.Timeout)
	if err != nil {
		mon.StatusErr = err
		v.observer.Printf("[health] Could not get dashboard status: %v", err)
		return nil
	}
	summary := health.Summarize(groups)
	mon.Endpoints = &summary
	if summary.Total == 0 {
		return fmt.Errorf("monitor %s: no monitored endpoints reported", mon.Name)
	}
	return nil
}
