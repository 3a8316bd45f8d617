package topology

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imamik/netfabric/internal/provisioning"
)

func vm(publicIP, bastionPrivate, privateIP, gatus string) map[string]interface{} {
	v := map[string]interface{}{
		"public_vm_public_ip":   publicIP,
		"public_vm_private_ip":  bastionPrivate,
		"private_vm_private_ip": privateIP,
		"gatus_url":             nil,
	}
	if gatus != "" {
		v["gatus_url"] = gatus
	}
	return v
}

func siteOutputs() provisioning.Outputs {
	return provisioning.Outputs{
		OutputAWSSites: {Value: map[string]interface{}{
			"site-2": map[string]interface{}{"vpc_id": "vpc-2", "vm": vm("54.0.0.2", "10.1.0.4", "10.1.1.10", "")},
			"site-1": map[string]interface{}{"vpc_id": "vpc-1", "vm": vm("54.0.0.1", "10.0.0.4", "10.0.1.10", "http://54.0.0.1:8080")},
		}},
		OutputAWSKeyFile: {Value: "/keys/aws.pem"},
		OutputGCPVM:      {Value: vm("34.0.0.1", "10.2.0.4", "10.2.1.10", "http://34.0.0.1:8080")},
		OutputGCPKeyFile: {Value: "/keys/gcp.pem"},
	}
}

func TestFromOutputs(t *testing.T) {
	t.Parallel()

	topo, err := FromOutputs(siteOutputs(), "ubuntu")
	require.NoError(t, err)

	assert.Equal(t, []string{
		"aws_site-1_bastion", "aws_site-1_private",
		"aws_site-2_bastion", "aws_site-2_private",
		"gcp_bastion", "gcp_private",
	}, topo.Names())

	private, err := topo.Node("aws_site-1_private")
	require.NoError(t, err)
	assert.Equal(t, "10.0.1.10", private.PrivateAddress)
	assert.Empty(t, private.PublicAddress)
	assert.Equal(t, "ubuntu", private.User)
	assert.Equal(t, "/keys/aws.pem", private.KeyPath)
	require.NotNil(t, private.Proxy)
	assert.Equal(t, "aws_site-1_bastion", private.Proxy.Name)
	assert.Equal(t, "54.0.0.1", private.Proxy.PublicAddress)

	gcp, err := topo.Node("gcp_private")
	require.NoError(t, err)
	assert.Equal(t, "/keys/gcp.pem", gcp.KeyPath)

	hops, err := Route(gcp)
	require.NoError(t, err)
	assert.Equal(t, []string{"gcp_bastion", "gcp_private"}, names(hops))

	_, err = topo.Node("azure_private")
	assert.ErrorContains(t, err, "unknown node")
}

func TestFromOutputs_GatusURLs(t *testing.T) {
	t.Parallel()
	topo, err := FromOutputs(siteOutputs(), "ubuntu")
	require.NoError(t, err)

	assert.Equal(t, map[string]string{
		"aws_site-1": "http://54.0.0.1:8080",
		"gcp":        "http://34.0.0.1:8080",
	}, topo.GatusURLs())
}

func TestFromOutputs_DefaultPairs(t *testing.T) {
	t.Parallel()
	topo, err := FromOutputs(siteOutputs(), "ubuntu")
	require.NoError(t, err)

	var got []string
	for _, p := range topo.DefaultPairs() {
		got = append(got, p.Name())
	}
	assert.Equal(t, []string{
		"aws_site-1_private -> gcp_private",
		"aws_site-2_private -> gcp_private",
		"gcp_private -> aws_site-1_private",
		"gcp_private -> aws_site-2_private",
		"aws_site-1_private -> aws_site-2_private",
	}, got)
}

func TestFromOutputs_AWSOnly(t *testing.T) {
	t.Parallel()
	outputs := siteOutputs()
	delete(outputs, OutputGCPVM)

	topo, err := FromOutputs(outputs, "ec2-user")
	require.NoError(t, err)
	assert.Len(t, topo.Sites, 2)
	assert.Equal(t, []Pair{{Source: "aws_site-1_private", Target: "aws_site-2_private"}}, topo.DefaultPairs())
}

func TestResolveKeyPaths(t *testing.T) {
	t.Parallel()
	outputs := siteOutputs()
	outputs[OutputAWSKeyFile] = provisioning.Output{Value: "aws-key.pem"}

	topo, err := FromOutputs(outputs, "ubuntu")
	require.NoError(t, err)
	topo.ResolveKeyPaths("/stages/site")

	bastion, err := topo.Node("aws_site-1_bastion")
	require.NoError(t, err)
	assert.Equal(t, "/stages/site/aws-key.pem", bastion.KeyPath)

	private, err := topo.Node("aws_site-2_private")
	require.NoError(t, err)
	assert.Equal(t, "/stages/site/aws-key.pem", private.KeyPath)

	gcp, err := topo.Node("gcp_private")
	require.NoError(t, err)
	assert.Equal(t, "/keys/gcp.pem", gcp.KeyPath)
}

func TestFromOutputs_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		outputs provisioning.Outputs
		wantErr string
	}{
		{
			name:    "empty",
			outputs: provisioning.Outputs{},
			wantErr: "neither",
		},
		{
			name: "bastion without public ip",
			outputs: provisioning.Outputs{
				OutputGCPVM: {Value: vm("", "10.2.0.4", "10.2.1.10", "")},
			},
			wantErr: "no public address",
		},
		{
			name: "key file not a string",
			outputs: provisioning.Outputs{
				OutputGCPVM:      {Value: vm("34.0.0.1", "10.2.0.4", "10.2.1.10", "")},
				OutputGCPKeyFile: {Value: 42.0},
			},
			wantErr: "not a string",
		},
		{
			name: "malformed sites",
			outputs: provisioning.Outputs{
				OutputAWSSites: {Value: "site-1"},
			},
			wantErr: "failed to decode",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := FromOutputs(tt.outputs, "ubuntu")
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestMonitoringFromOutputs(t *testing.T) {
	t.Parallel()

	m, err := MonitoringFromOutputs(provisioning.Outputs{
		OutputDashboardURL:  {Value: "http://54.0.0.1:8080"},
		OutputDashboardSite: {Value: "site-1"},
		OutputMonitoredEndpoints: {Value: map[string]interface{}{
			"gcp-vpc-us-central1-icmp": map[string]interface{}{},
			"aws-site-2-us-east-1":     map[string]interface{}{},
		}},
	})
	require.NoError(t, err)
	assert.Equal(t, "http://54.0.0.1:8080", m.DashboardURL)
	assert.Equal(t, "site-1", m.DashboardSite)
	assert.Equal(t, []string{"aws-site-2-us-east-1", "gcp-vpc-us-central1-icmp"}, m.Endpoints)
	assert.True(t, m.EndpointsExported)

	m, err = MonitoringFromOutputs(provisioning.Outputs{
		OutputDashboardURL:       {Value: "http://54.0.0.1:8080"},
		OutputMonitoredEndpoints: {Value: []interface{}{"b", "a"}},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, m.Endpoints)

	m, err = MonitoringFromOutputs(provisioning.Outputs{OutputDashboardURL: {Value: "http://x"}})
	require.NoError(t, err)
	assert.False(t, m.EndpointsExported)

	_, err = MonitoringFromOutputs(provisioning.Outputs{})
	assert.ErrorContains(t, err, "missing outputs: dashboard_url")

	_, err = MonitoringFromOutputs(provisioning.Outputs{
		OutputDashboardURL:       {Value: "http://x"},
		OutputMonitoredEndpoints: {Value: 3.0},
	})
	assert.ErrorContains(t, err, "want list or map")
}

func TestMonitoring_Verify(t *testing.T) {
	t.Parallel()

	topo, err := FromOutputs(siteOutputs(), "ubuntu")
	require.NoError(t, err)

	full := []string{
		"aws-site-1-us-east-1-health", "aws-site-1-us-east-1-icmp",
		"aws-site-2-us-east-2-gatus", "aws-site-2-us-east-2-icmp", "aws-site-2-us-east-2-ssh",
		"gcp-vpc-us-central1-gatus", "gcp-vpc-us-central1-icmp", "gcp-vpc-us-central1-ssh",
	}
	want := Expectation{DashboardSite: "site-1", MinEndpoints: 8, Patterns: []string{"icmp"}}

	tests := []struct {
		name    string
		mon     Monitoring
		want    Expectation
		wantErr []string
	}{
		{
			name: "all expectations met",
			mon:  Monitoring{DashboardSite: "site-1", Endpoints: full, EndpointsExported: true},
			want: want,
		},
		{
			name:    "dashboard on the wrong site",
			mon:     Monitoring{DashboardSite: "site-2", Endpoints: full, EndpointsExported: true},
			want:    want,
			wantErr: []string{`dashboard_site is "site-2", want "site-1"`},
		},
		{
			name: "too few endpoints and a site missing",
			mon: Monitoring{DashboardSite: "site-1", EndpointsExported: true, Endpoints: []string{
				"aws-site-1-us-east-1-icmp", "gcp-vpc-us-central1-icmp",
			}},
			want: want,
			wantErr: []string{
				"monitored_endpoints has 2 entries, want at least 8",
				"no endpoint for site aws_site-2",
			},
		},
		{
			name: "no icmp endpoints",
			mon: Monitoring{EndpointsExported: true, Endpoints: []string{
				"aws-site-1-health", "aws-site-2-ssh", "gcp-vpc-ssh",
			}},
			want:    Expectation{Patterns: []string{"icmp"}},
			wantErr: []string{`monitored_endpoints has no "icmp" endpoint`},
		},
		{
			name: "endpoints not exported and no minimum",
			mon:  Monitoring{DashboardSite: "site-1"},
			want: Expectation{DashboardSite: "site-1", Patterns: []string{"icmp"}},
		},
		{
			name:    "endpoints not exported with a minimum",
			mon:     Monitoring{},
			want:    Expectation{MinEndpoints: 1},
			wantErr: []string{"monitored_endpoints has 0 entries, want at least 1", "no endpoint for site gcp"},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.mon.Verify(tt.want, topo.Sites)
			if len(tt.wantErr) == 0 {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			for _, msg := range tt.wantErr {
				assert.ErrorContains(t, err, msg)
			}
		})
	}
}
