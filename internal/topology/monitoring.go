package topology

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/imamik/netfabric/internal/provisioning"
)

// Monitoring describes the central Gatus dashboard deployed by the
// monitoring stage.
type Monitoring struct {
	DashboardURL  string
	DashboardSite string

	// Endpoints are the names of the monitored endpoints, sorted.
	Endpoints []string

	// EndpointsExported is set when the stage exports monitored_endpoints.
	EndpointsExported bool
}

// Expectation is what the monitoring stage must export.
type Expectation struct {
	// DashboardSite is the site the dashboard runs on. Empty skips it.
	DashboardSite string

	MinEndpoints int

	// Patterns must each occur in some endpoint name.
	Patterns []string
}

// MonitoringFromOutputs reads the monitoring stage outputs.
// monitored_endpoints may be exported as a list of names or as a map keyed
// by name.
func MonitoringFromOutputs(outputs provisioning.Outputs) (*Monitoring, error) {
	if err := outputs.Require(OutputDashboardURL); err != nil {
		return nil, err
	}

	m := &Monitoring{}
	var err error
	if m.DashboardURL, err = outputs.String(OutputDashboardURL); err != nil {
		return nil, err
	}
	if m.DashboardSite, err = outputs.String(OutputDashboardSite); err != nil {
		return nil, err
	}

	m.EndpointsExported = outputs.Has(OutputMonitoredEndpoints)
	switch v := outputs[OutputMonitoredEndpoints].Value.(type) {
	case nil:
	case []interface{}:
		for _, e := range v {
			name, ok := e.(string)
			if !ok {
				return nil, fmt.Errorf("%s: entry %v is %T, not a string", OutputMonitoredEndpoints, e, e)
			}
			m.Endpoints = append(m.Endpoints, name)
		}
	case map[string]interface{}:
		for name := range v {
			m.Endpoints = append(m.Endpoints, name)
		}
	default:
		return nil, fmt.Errorf("%s is %T, want list or map", OutputMonitoredEndpoints, v)
	}
	sort.Strings(m.Endpoints)

	return m, nil
}

// Verify checks m against want. When endpoints are checked, every site in
// sites needs an endpoint carrying its name, with underscores as dashes
// ("aws_site-1" matches "aws-site-1-us-east-1"). All problems are reported.
func (m *Monitoring) Verify(want Expectation, sites []Site) error {
	var errs []error
	if want.DashboardSite != "" && m.DashboardSite != want.DashboardSite {
		errs = append(errs, fmt.Errorf("%s is %q, want %q", OutputDashboardSite, m.DashboardSite, want.DashboardSite))
	}

	if !m.EndpointsExported && want.MinEndpoints == 0 {
		return errors.Join(errs...)
	}
	if len(m.Endpoints) < want.MinEndpoints {
		errs = append(errs, fmt.Errorf("%s has %d entries, want at least %d", OutputMonitoredEndpoints, len(m.Endpoints), want.MinEndpoints))
	}
	for _, site := range sites {
		name := strings.ReplaceAll(site.Name, "_", "-")
		if !m.hasEndpoint(name) {
			errs = append(errs, fmt.Errorf("%s has no endpoint for site %s", OutputMonitoredEndpoints, site.Name))
		}
	}
	for _, p := range want.Patterns {
		if !m.hasEndpoint(p) {
			errs = append(errs, fmt.Errorf("%s has no %q endpoint", OutputMonitoredEndpoints, p))
		}
	}
	return errors.Join(errs...)
}

func (m *Monitoring) hasEndpoint(substr string) bool {
	for _, e := range m.Endpoints {
		if strings.Contains(e, substr) {
			return true
		}
	}
	return false
}
