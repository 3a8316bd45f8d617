package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig(t *testing.T) *Config {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, dir, "fabric.tfvars", "")
	cfg := &Config{Name: "fabric", BaseDir: dir, VarFile: "fabric.tfvars"}
	ApplyDefaults(cfg)
	return cfg
}

func TestValidate(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid",
			mutate: func(*Config) {},
		},
		{
			name:    "missing name",
			mutate:  func(c *Config) { c.Name = "" },
			wantErr: "Name",
		},
		{
			name:    "bad stage name",
			mutate:  func(c *Config) { c.Stages[0].Name = "Site One" },
			wantErr: "stage_name",
		},
		{
			name: "duplicate stage",
			mutate: func(c *Config) {
				c.Stages[1].Name = c.Stages[0].Name
			},
			wantErr: "duplicate stage name",
		},
		{
			name:    "first stage depends on previous",
			mutate:  func(c *Config) { c.Stages[0].DependsOnPrevious = true },
			wantErr: "cannot depend",
		},
		{
			name:    "negative dashboard endpoint count",
			mutate:  func(c *Config) { c.Verify.Dashboard.MinEndpoints = -1 },
			wantErr: "MinEndpoints",
		},
		{
			name:    "unknown topology stage",
			mutate:  func(c *Config) { c.Verify.TopologyStage = "transit" },
			wantErr: "topology_stage",
		},
		{
			name: "required outputs for unknown stage",
			mutate: func(c *Config) {
				c.Verify.RequiredOutputs = map[string][]string{"transit": {"gw_name"}}
			},
			wantErr: "unknown stage",
		},
		{
			name:    "unknown backend",
			mutate:  func(c *Config) { c.State.Backend = "gcs" },
			wantErr: "oneof",
		},
		{
			name:    "s3 without bucket",
			mutate:  func(c *Config) { c.State.Backend = "s3" },
			wantErr: "bucket is required",
		},
		{
			name:    "probe attempts out of range",
			mutate:  func(c *Config) { c.Probe.MaxAttempts = 50 },
			wantErr: "MaxAttempts",
		},
		{
			name: "probe check to itself",
			mutate: func(c *Config) {
				c.Probe.Checks = []ProbeCheck{{Source: "gcp_bastion", Target: "gcp_bastion"}}
			},
			wantErr: "nefield",
		},
		{
			name:    "missing var file",
			mutate:  func(c *Config) { c.VarFile = filepath.Join(c.BaseDir, "absent.tfvars") },
			wantErr: "var file not found",
		},
		{
			name: "missing var file tolerated when not deploying",
			mutate: func(c *Config) {
				c.VarFile = "absent.tfvars"
				c.SkipDeploy = true
			},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := validConfig(t)
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidate_MissingVarFileIsTyped(t *testing.T) {
	t.Parallel()
	cfg := validConfig(t)
	cfg.VarFile = "absent.tfvars"

	err := cfg.Validate()
	assert.ErrorIs(t, err, ErrVarFileMissing)
}
