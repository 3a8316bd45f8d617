package testing

import (
	"maps"
	"slices"

	"github.com/imamik/netfabric/internal/config"
)

// ConfigBuilder provides a fluent interface for constructing test configs.
// Each method returns a new builder (immutable) for chaining.
type ConfigBuilder struct {
	cfg config.Config
}

// NewConfigBuilder creates a builder with the default stages and a var file
// that is not checked on disk.
func NewConfigBuilder() *ConfigBuilder {
	cfg := config.Config{
		Name:       "test-fabric",
		BaseDir:    "/stages",
		VarFile:    "fabric.tfvars",
		SkipDeploy: true,
	}
	config.ApplyDefaults(&cfg)
	return &ConfigBuilder{cfg: cfg}
}

// WithFeature sets a feature switch.
func (b *ConfigBuilder) WithFeature(name string, enabled bool) *ConfigBuilder {
	nb := b.clone()
	nb.cfg.Features[name] = enabled
	return nb
}

// WithStages replaces the stage list.
func (b *ConfigBuilder) WithStages(stages ...config.StageConfig) *ConfigBuilder {
	nb := b.clone()
	nb.cfg.Stages = slices.Clone(stages)
	return nb
}

// WithSkipDestroy sets the skip-destroy switch.
func (b *ConfigBuilder) WithSkipDestroy(skip bool) *ConfigBuilder {
	nb := b.clone()
	nb.cfg.SkipDestroy = skip
	return nb
}

// WithDeploy clears SkipDeploy so the run applies stages.
func (b *ConfigBuilder) WithDeploy() *ConfigBuilder {
	nb := b.clone()
	nb.cfg.SkipDeploy = false
	return nb
}

// Build returns a copy of the built config.
func (b *ConfigBuilder) Build() *config.Config {
	out := b.clone().cfg
	return &out
}

func (b *ConfigBuilder) clone() *ConfigBuilder {
	cfg := b.cfg
	cfg.Features = maps.Clone(b.cfg.Features)
	cfg.Stages = slices.Clone(b.cfg.Stages)
	return &ConfigBuilder{cfg: cfg}
}
