package handlers

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/imamik/netfabric/internal/config"
	"github.com/imamik/netfabric/internal/provisioning"
	nftesting "github.com/imamik/netfabric/internal/testing"
	"github.com/imamik/netfabric/internal/topology"
)

const twoEndpoints = `[
  {"name": "aws-site-1", "key": "_aws-site-1", "results": [{"success": true}]},
  {"name": "gcp", "key": "_gcp", "results": [{"success": false, "errors": ["timeout"]}, {"success": true}]}
]`

// gatusServer serves /health with healthStatus and the endpoint statuses
// with statuses.
func gatusServer(t *testing.T, healthStatus int, statuses string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(healthStatus)
		_, _ = w.Write([]byte(`{"status":"UP"}`))
	})
	mux.HandleFunc("/api/v1/endpoints/statuses", func(w http.ResponseWriter, _ *http.Request) {
		if statuses == "" {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(statuses))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestHealth_URL(t *testing.T) {
	f := newFixture(t, nftesting.NewConfigBuilder().Build())
	srv := gatusServer(t, http.StatusOK, twoEndpoints)

	err := Health(nftesting.TestContext(t), "", srv.URL+"/")
	require.NoError(t, err)

	assert.Empty(t, f.backend.Calls)
	out := f.out.String()
	assert.Contains(t, out, "healthy after 1 attempt(s)")
	assert.Contains(t, out, "2/2 endpoints healthy")
	assert.Contains(t, out, "PASSED")
}

func TestHealth_URLStatusesUnavailable(t *testing.T) {
	f := newFixture(t, nftesting.NewConfigBuilder().Build())
	srv := gatusServer(t, http.StatusOK, "")

	require.NoError(t, Health(nftesting.TestContext(t), "", srv.URL))
	assert.Contains(t, f.out.String(), "statuses unavailable: HTTP 404")
}

func TestHealth_URLUnhealthy(t *testing.T) {
	f := newFixture(t, nftesting.NewConfigBuilder().Build())
	srv := gatusServer(t, http.StatusServiceUnavailable, twoEndpoints)

	err := Health(nftesting.TestContext(t), "", srv.URL)
	require.Error(t, err)
	assert.ErrorContains(t, err, "Failed after 10 attempts")
	assert.Equal(t, config.DefaultHealthMaxAttempts-1, f.sleeps.Count())
	assert.Contains(t, f.out.String(), "FAILED")
}

func TestHealth_SiteMonitors(t *testing.T) {
	f := newFixture(t, nftesting.NewConfigBuilder().Build())
	srv := gatusServer(t, http.StatusOK, "")
	f.expectSiteOutputs(srv.URL)

	require.NoError(t, Health(nftesting.TestContext(t), "fabric.yaml", ""))

	out := f.out.String()
	assert.Contains(t, out, "aws_site-1")
	assert.Contains(t, out, "healthy after 1 attempt(s)")
	// Site monitors are not asked for endpoint statuses.
	assert.NotContains(t, out, "statuses unavailable")
}

func TestHealth_NoMonitors(t *testing.T) {
	f := newFixture(t, nftesting.NewConfigBuilder().Build())
	f.expectSiteOutputs("")

	require.NoError(t, Health(nftesting.TestContext(t), "fabric.yaml", ""))
	assert.Contains(t, f.observer.Messages(), "[health] No monitors exported, skipping health checks")
}

func TestHealth_Dashboard(t *testing.T) {
	tests := []struct {
		name     string
		statuses string
		wantErr  string
		wantOut  string
	}{
		{name: "endpoints reported", statuses: twoEndpoints, wantOut: "2/2 endpoints healthy"},
		{name: "nothing monitored", statuses: `[]`, wantErr: "no monitored endpoints reported"},
		{name: "statuses unavailable", wantOut: "statuses unavailable"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, nftesting.NewConfigBuilder().WithFeature(config.FeatureMonitoring, true).Build())
			srv := gatusServer(t, http.StatusOK, tt.statuses)
			f.expectSiteOutputs("")
			f.backend.On("ReadOutputs", mock.Anything, "/stages/monitoring").Return(provisioning.Outputs{
				topology.OutputDashboardURL:  {Value: srv.URL},
				topology.OutputDashboardSite: {Value: "gcp"},
			}, nil)

			err := Health(nftesting.TestContext(t), "fabric.yaml", "")
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Contains(t, f.out.String(), "dashboard")
			assert.Contains(t, f.out.String(), tt.wantOut)
		})
	}
}

func TestHealth_DashboardOutputs(t *testing.T) {
	endpoints := []interface{}{
		"aws-site-1-us-east-1-health", "aws-site-1-us-east-1-icmp",
		"aws-site-2-us-east-2-gatus", "aws-site-2-us-east-2-icmp", "aws-site-2-us-east-2-ssh",
		"gcp-vpc-us-central1-gatus", "gcp-vpc-us-central1-icmp", "gcp-vpc-us-central1-ssh",
	}

	tests := []struct {
		name      string
		site      string
		endpoints []interface{}
		wantErr   []string
	}{
		{name: "matching outputs", site: "site-1", endpoints: endpoints},
		{
			name:      "wrong site and missing endpoints",
			site:      "site-2",
			endpoints: endpoints[:2],
			wantErr: []string{
				"stage monitoring",
				`dashboard_site is "site-2", want "site-1"`,
				"monitored_endpoints has 2 entries, want at least 8",
				"no endpoint for site gcp",
			},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			cfg := nftesting.NewConfigBuilder().WithFeature(config.FeatureMonitoring, true).Build()
			cfg.Verify.Dashboard.Site = "site-1"
			cfg.Verify.Dashboard.MinEndpoints = 8
			f := newFixture(t, cfg)
			srv := gatusServer(t, http.StatusOK, twoEndpoints)
			f.expectSiteOutputs("")
			f.backend.On("ReadOutputs", mock.Anything, "/stages/monitoring").Return(provisioning.Outputs{
				topology.OutputDashboardURL:       {Value: srv.URL},
				topology.OutputDashboardSite:      {Value: tt.site},
				topology.OutputMonitoredEndpoints: {Value: tt.endpoints},
			}, nil)

			err := Health(nftesting.TestContext(t), "fabric.yaml", "")
			if len(tt.wantErr) == 0 {
				require.NoError(t, err)
				assert.Contains(t, f.out.String(), "2/2 endpoints healthy")
				return
			}
			require.Error(t, err)
			for _, msg := range tt.wantErr {
				assert.ErrorContains(t, err, msg)
			}
			// The dashboard itself is still polled.
			assert.Contains(t, f.out.String(), "2/2 endpoints healthy")
		})
	}
}

func TestHealth_WritesMetricsFile(t *testing.T) {
	cfg := nftesting.NewConfigBuilder().Build()
	cfg.Metrics.File = filepath.Join(t.TempDir(), "health.prom")
	newFixture(t, cfg)
	srv := gatusServer(t, http.StatusOK, twoEndpoints)

	require.NoError(t, Health(nftesting.TestContext(t), "", srv.URL))

	data, err := os.ReadFile(cfg.Metrics.File)
	require.NoError(t, err)
	assert.Contains(t, string(data), "netfabric_health_checks_total")
}
