package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// Environment variables understood by Load.
const (
	EnvVarFile       = "AVX_TFVARS"
	EnvNoDestroy     = "AVX_NODESTROY"
	EnvSkipDeploy    = "TF_SKIP_DEPLOY"
	EnvEnableGatus   = "TF_VAR_enable_gatus"
	EnvHealthUser    = "NETFABRIC_HEALTH_USERNAME"
	EnvHealthPass    = "NETFABRIC_HEALTH_PASSWORD"
	EnvS3AccessKey   = "AWS_ACCESS_KEY_ID"
	EnvS3SecretKey   = "AWS_SECRET_ACCESS_KEY"
	EnvMetricsFile   = "NETFABRIC_METRICS_FILE"
	defaultConfigDir = "."
)

// LookupFunc looks up an environment variable, like os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// Load reads the config file, applies environment overrides and defaults,
// and validates the result. An empty path yields the default three-stage
// configuration rooted at the working directory.
func Load(path string) (*Config, error) {
	return load(path, os.LookupEnv)
}

func load(path string, lookup LookupFunc) (*Config, error) {
	var cfg *Config
	if path == "" {
		cfg = &Config{Name: "netfabric", BaseDir: defaultConfigDir}
	} else {
		var err error
		cfg, err = LoadFile(path)
		if err != nil {
			return nil, err
		}
	}

	ApplyEnv(cfg, lookup)
	cfg.Timeouts = LoadTimeouts(lookup)
	ApplyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// LoadFile reads and parses the configuration from a YAML file without
// applying defaults or validation.
func LoadFile(path string) (*Config, error) {
	// #nosec G304
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var rawConfig map[string]interface{}
	if err := yaml.Unmarshal(data, &rawConfig); err != nil {
		return nil, fmt.Errorf("failed to unmarshal yaml: %w", err)
	}

	var cfg Config
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           &cfg,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create config decoder: %w", err)
	}
	if err := decoder.Decode(rawConfig); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if cfg.BaseDir == "" {
		cfg.BaseDir = filepath.Dir(path)
	} else if !filepath.IsAbs(cfg.BaseDir) {
		cfg.BaseDir = filepath.Join(filepath.Dir(path), cfg.BaseDir)
	}

	return &cfg, nil
}

// ApplyEnv overrides file values with environment variables.
func ApplyEnv(cfg *Config, lookup LookupFunc) {
	if v, ok := lookup(EnvVarFile); ok && v != "" {
		cfg.VarFile = v
	}
	if v, ok := lookup(EnvNoDestroy); ok && v != "" {
		cfg.SkipDestroy = true
	}
	if v, ok := lookup(EnvSkipDeploy); ok && v != "" {
		cfg.SkipDeploy = true
	}
	// Terraform variable names are case-sensitive; only "true" enables it.
	if v, ok := lookup(EnvEnableGatus); ok {
		if cfg.Features == nil {
			cfg.Features = make(map[string]bool)
		}
		cfg.Features[FeatureMonitoring] = strings.EqualFold(v, "true")
	}
	if v, ok := lookup(EnvHealthUser); ok && v != "" {
		cfg.Health.Username = v
	}
	if v, ok := lookup(EnvHealthPass); ok && v != "" {
		cfg.Health.Password = v
	}
	if cfg.State.S3.AccessKey == "" {
		if v, ok := lookup(EnvS3AccessKey); ok {
			cfg.State.S3.AccessKey = v
		}
	}
	if cfg.State.S3.SecretKey == "" {
		if v, ok := lookup(EnvS3SecretKey); ok {
			cfg.State.S3.SecretKey = v
		}
	}
	if v, ok := lookup(EnvMetricsFile); ok && v != "" {
		cfg.Metrics.File = v
	}
}

// ApplyDefaults fills unset values.
func ApplyDefaults(cfg *Config) {
	if cfg.BaseDir == "" {
		cfg.BaseDir = defaultConfigDir
	}
	if len(cfg.Stages) == 0 {
		cfg.Stages = DefaultStages()
	}
	if cfg.Features == nil {
		cfg.Features = make(map[string]bool)
	}
	if cfg.State.Backend == "" {
		cfg.State.Backend = DefaultStateBackend
	}
	if cfg.SSH.User == "" {
		cfg.SSH.User = DefaultSSHUser
	}
	if cfg.SSH.Port == 0 {
		cfg.SSH.Port = DefaultSSHPort
	}
	if cfg.SSH.DialTimeout == 0 {
		cfg.SSH.DialTimeout = DefaultSSHDialTimeout
	}

	if cfg.Probe.MaxAttempts == 0 {
		cfg.Probe.MaxAttempts = DefaultProbeMaxAttempts
	}
	if cfg.Probe.Delay == 0 {
		cfg.Probe.Delay = DefaultProbeDelay
	}
	if cfg.Probe.Timeout == 0 {
		cfg.Probe.Timeout = DefaultProbeTimeout
	}
	if cfg.Probe.Count == 0 {
		cfg.Probe.Count = DefaultProbeCount
	}
	if cfg.Probe.PacketWait == 0 {
		cfg.Probe.PacketWait = DefaultProbePacketWait
	}

	if cfg.Health.MaxAttempts == 0 {
		cfg.Health.MaxAttempts = DefaultHealthMaxAttempts
	}
	if cfg.Health.Delay == 0 {
		cfg.Health.Delay = DefaultHealthDelay
	}
	if cfg.Health.Timeout == 0 {
		cfg.Health.Timeout = DefaultHealthTimeout
	}

	if cfg.Verify.TopologyStage == "" {
		cfg.Verify.TopologyStage = StageSite
	}
	if cfg.Verify.MonitoringStage == "" {
		cfg.Verify.MonitoringStage = StageMonitoring
	}
	if cfg.Verify.Dashboard.EndpointPatterns == nil {
		cfg.Verify.Dashboard.EndpointPatterns = append([]string(nil), DefaultEndpointPatterns...)
	}

	if cfg.Timeouts == nil {
		cfg.Timeouts = LoadTimeouts(func(string) (string, bool) { return "", false })
	}
}

// StageDir resolves a stage directory against BaseDir.
func (c *Config) StageDir(stage StageConfig) string {
	return c.resolve(stage.Dir)
}

// StageVarFile returns the var file used for stage.
func (c *Config) StageVarFile(stage StageConfig) string {
	if stage.VarFile != "" {
		return c.resolve(stage.VarFile)
	}
	return c.resolve(c.VarFile)
}

// FindStage returns the stage with the given name.
func (c *Config) FindStage(name string) (StageConfig, bool) {
	for _, s := range c.Stages {
		if s.Name == name {
			return s, true
		}
	}
	return StageConfig{}, false
}

func (c *Config) resolve(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.BaseDir, p)
}
