package config

import "time"

// Stage and feature names of the default deployment.
const (
	StageSite       = "site"
	StageBackbone   = "backbone"
	StageMonitoring = "monitoring"

	FeatureMonitoring = "monitoring"
)

// Defaults applied when the config file leaves a value unset.
const (
	DefaultSSHUser        = "ubuntu"
	DefaultSSHPort        = 22
	DefaultSSHDialTimeout = 60 * time.Second

	// Cross-cloud routes take minutes to propagate after peering.
	DefaultProbeMaxAttempts = 8
	DefaultProbeDelay       = 15 * time.Second
	DefaultProbeTimeout     = 60 * time.Second
	DefaultProbeCount       = 3
	DefaultProbePacketWait  = 5 * time.Second

	// Gatus runs in a container that starts after cloud-init.
	DefaultHealthMaxAttempts = 10
	DefaultHealthDelay       = 15 * time.Second
	DefaultHealthTimeout     = 30 * time.Second

	DefaultStateBackend = "local"
)

// DefaultEndpointPatterns requires the dashboard to run ICMP checks.
var DefaultEndpointPatterns = []string{"icmp"}

// DefaultStages returns the site → backbone → monitoring chain.
// The monitoring stage is gated by the monitoring feature switch.
func DefaultStages() []StageConfig {
	return []StageConfig{
		{Name: StageSite, Dir: StageSite},
		{Name: StageBackbone, Dir: StageBackbone, DependsOnPrevious: true},
		{Name: StageMonitoring, Dir: StageMonitoring, DependsOnPrevious: true, When: FeatureMonitoring},
	}
}
