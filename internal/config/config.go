package config

import "time"

// Config is the run configuration, built once at start-up and passed by
// pointer into the orchestrator and verifiers.
type Config struct {
	// Name labels the run in logs and metrics.
	Name string `mapstructure:"name" yaml:"name" validate:"required"`

	// BaseDir resolves relative stage directories and the var file.
	// Defaults to the directory of the config file.
	BaseDir string `mapstructure:"base_dir" yaml:"base_dir"`

	// VarFile is the Terraform variables file passed to apply and destroy.
	VarFile string `mapstructure:"var_file" yaml:"var_file" validate:"required"`

	// SkipDestroy preserves the infrastructure after the run.
	SkipDestroy bool `mapstructure:"skip_destroy" yaml:"skip_destroy"`

	// SkipDeploy verifies existing infrastructure without applying or
	// destroying anything.
	SkipDeploy bool `mapstructure:"skip_deploy" yaml:"skip_deploy"`

	// Features are boolean switches that gate conditional stages.
	Features map[string]bool `mapstructure:"features" yaml:"features"`

	Stages  []StageConfig `mapstructure:"stages" yaml:"stages" validate:"required,min=1,dive"`
	State   StateConfig   `mapstructure:"state" yaml:"state"`
	SSH     SSHConfig     `mapstructure:"ssh" yaml:"ssh"`
	Probe   ProbeConfig   `mapstructure:"probe" yaml:"probe"`
	Health  HealthConfig  `mapstructure:"health" yaml:"health"`
	Verify  VerifyConfig  `mapstructure:"verify" yaml:"verify"`
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`

	// Timeouts is populated from the environment, not from the file.
	Timeouts *Timeouts `mapstructure:"-" yaml:"-"`
}

// StageConfig describes one deployment stage.
type StageConfig struct {
	Name string `mapstructure:"name" yaml:"name" validate:"required,stage_name"`
	Dir  string `mapstructure:"dir" yaml:"dir" validate:"required"`

	// VarFile overrides the run-wide var file for this stage.
	VarFile string `mapstructure:"var_file" yaml:"var_file"`

	DependsOnPrevious bool `mapstructure:"depends_on_previous" yaml:"depends_on_previous"`

	// When names the feature switch gating this stage. Empty means the
	// stage is always applied.
	When string `mapstructure:"when" yaml:"when"`
}

// StateConfig selects where stage outputs are read from.
type StateConfig struct {
	// Backend is "local" (terraform.tfstate in the stage dir) or "s3".
	Backend string   `mapstructure:"backend" yaml:"backend" validate:"oneof=local s3"`
	S3      S3Config `mapstructure:"s3" yaml:"s3"`
}

// S3Config locates remote Terraform state. Objects are read from
// <KeyPrefix><stage name>/terraform.tfstate.
type S3Config struct {
	Bucket    string `mapstructure:"bucket" yaml:"bucket"`
	KeyPrefix string `mapstructure:"key_prefix" yaml:"key_prefix"`
	Region    string `mapstructure:"region" yaml:"region"`
	Endpoint  string `mapstructure:"endpoint" yaml:"endpoint"`
	AccessKey string `mapstructure:"access_key" yaml:"access_key"`
	SecretKey string `mapstructure:"secret_key" yaml:"secret_key"`
}

// SSHConfig configures the remote executor.
type SSHConfig struct {
	User        string        `mapstructure:"user" yaml:"user" validate:"required"`
	Port        int           `mapstructure:"port" yaml:"port" validate:"min=1,max=65535"`
	DialTimeout time.Duration `mapstructure:"dial_timeout" yaml:"dial_timeout"`
}

// ProbeConfig configures reachability probes.
type ProbeConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts" yaml:"max_attempts" validate:"min=1,max=20"`
	Delay       time.Duration `mapstructure:"delay" yaml:"delay"`
	Timeout     time.Duration `mapstructure:"timeout" yaml:"timeout"`
	Count       int           `mapstructure:"count" yaml:"count" validate:"min=1"`
	PacketWait  time.Duration `mapstructure:"packet_wait" yaml:"packet_wait"`

	// Checks lists source→target probes. Empty means the default
	// cross-site matrix derived from the topology.
	Checks []ProbeCheck `mapstructure:"checks" yaml:"checks" validate:"dive"`
}

// ProbeCheck probes Target's private address from Source.
// Both name nodes of the discovered topology.
type ProbeCheck struct {
	Name   string `mapstructure:"name" yaml:"name"`
	Source string `mapstructure:"source" yaml:"source" validate:"required"`
	Target string `mapstructure:"target" yaml:"target" validate:"required,nefield=Source"`
}

// HealthConfig configures the Gatus health poller.
type HealthConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts" yaml:"max_attempts" validate:"min=1,max=20"`
	Delay       time.Duration `mapstructure:"delay" yaml:"delay"`
	Timeout     time.Duration `mapstructure:"timeout" yaml:"timeout"`
	Username    string        `mapstructure:"username" yaml:"username"`
	Password    string        `mapstructure:"password" yaml:"password"`

	// VerifyTLS enables certificate verification for HTTPS health
	// endpoints. Monitors on ephemeral VMs serve self-signed certificates,
	// so it is off unless set.
	VerifyTLS bool `mapstructure:"verify_tls" yaml:"verify_tls"`
}

// VerifyConfig names the stages whose outputs describe the fabric.
type VerifyConfig struct {
	TopologyStage   string `mapstructure:"topology_stage" yaml:"topology_stage"`
	MonitoringStage string `mapstructure:"monitoring_stage" yaml:"monitoring_stage"`

	// RequiredOutputs lists, per stage name, outputs that must be present
	// and non-null after apply.
	RequiredOutputs map[string][]string `mapstructure:"required_outputs" yaml:"required_outputs"`

	// Dashboard describes what the monitoring stage must export.
	Dashboard DashboardConfig `mapstructure:"dashboard" yaml:"dashboard"`
}

// DashboardConfig holds the expectations on the monitoring stage outputs.
// Endpoint checks run only when the stage exports monitored_endpoints or
// MinEndpoints is set.
type DashboardConfig struct {
	// Site is the site the dashboard must run on. Empty skips the check.
	Site string `mapstructure:"site" yaml:"site"`

	MinEndpoints int `mapstructure:"min_endpoints" yaml:"min_endpoints" validate:"min=0"`

	// EndpointPatterns must each occur in some monitored endpoint name.
	EndpointPatterns []string `mapstructure:"endpoint_patterns" yaml:"endpoint_patterns"`
}

// MetricsConfig configures the Prometheus textfile export.
type MetricsConfig struct {
	// File is written at the end of a run when set.
	File string `mapstructure:"file" yaml:"file"`
}

// FeatureEnabled reports whether the named feature switch is on.
func (c *Config) FeatureEnabled(name string) bool {
	return c.Features[name]
}
