package probe

import (
	"context"
	"fmt"

	"github.com/imamik/netfabric/internal/provisioning"
	"github.com/imamik/netfabric/internal/topology"
)

// Check is a named probe from Source to the private address of Target.
type Check struct {
	Name   string
	Source *topology.Node
	Target *topology.Node
}

// ChecksFor resolves node-name pairs against topo.
func ChecksFor(topo *topology.Topology, pairs []topology.Pair) ([]Check, error) {
	checks := make([]Check, 0, len(pairs))
	for _, pair := range pairs {
		source, err := topo.Node(pair.Source)
		if err != nil {
			return nil, fmt.Errorf("check %s: %w", pair.Name(), err)
		}
		target, err := topo.Node(pair.Target)
		if err != nil {
			return nil, fmt.Errorf("check %s: %w", pair.Name(), err)
		}
		checks = append(checks, Check{Name: pair.Name(), Source: source, Target: target})
	}
	return checks, nil
}

// Report collects the results of a batch of checks in order.
type Report struct {
	Results []*Result
	Errors  map[string]error
}

// Failed returns the checks that did not succeed.
func (r *Report) Failed() []*Result {
	var failed []*Result
	for _, res := range r.Results {
		if !res.Success {
			failed = append(failed, res)
		}
	}
	return failed
}

// OK reports whether every check succeeded.
func (r *Report) OK() bool {
	return len(r.Errors) == 0 && len(r.Failed()) == 0
}

// Err summarises the failed checks, or returns nil.
func (r *Report) Err() error {
	if r.OK() {
		return nil
	}
	return fmt.Errorf("%d of %d reachability checks failed", len(r.Failed())+len(r.Errors), len(r.Results)+len(r.Errors))
}

// ProbeAll runs checks one after another. A check that cannot be run is
// recorded in Report.Errors and does not stop the rest.
func (p *Prober) ProbeAll(ctx context.Context, checks []Check, policy Policy) *Report {
	report := &Report{Errors: make(map[string]error)}
	for i, check := range checks {
		if ctx.Err() != nil {
			report.Errors[check.Name] = ctx.Err()
			continue
		}
		if p.observer != nil {
			p.observer.Progress(phase, i+1, len(checks))
		}

		res, err := p.Probe(ctx, check.Source, check.Target.PrivateAddress, policy)
		if err != nil {
			report.Errors[check.Name] = err
			continue
		}
		res.Name = check.Name
		report.Results = append(report.Results, res)

		if p.observer != nil {
			eventType := provisioning.EventPhaseCompleted
			msg := fmt.Sprintf("%s reachable after %d attempt(s)", check.Name, res.Attempts)
			if !res.Success {
				eventType = provisioning.EventPhaseFailed
				msg = fmt.Sprintf("%s: %s", check.Name, res.Message())
			}
			p.observer.Event(provisioning.Event{Type: eventType, Phase: phase, Resource: check.Name, Message: msg})
		}
	}
	return report
}
