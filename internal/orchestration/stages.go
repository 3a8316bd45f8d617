package orchestration

import (
	"github.com/imamik/netfabric/internal/config"
	"github.com/imamik/netfabric/internal/provisioning"
)

// StagesFromConfig resolves the configured stages into backend stages.
// Directories and var files are made absolute against the config's base
// directory, and feature-gated stages are bound to their switch.
func StagesFromConfig(cfg *config.Config) []provisioning.Stage {
	stages := make([]provisioning.Stage, 0, len(cfg.Stages))
	for _, sc := range cfg.Stages {
		stage := provisioning.Stage{
			Name:              sc.Name,
			Dir:               cfg.StageDir(sc),
			VarFile:           cfg.StageVarFile(sc),
			DependsOnPrevious: sc.DependsOnPrevious,
		}
		if sc.When != "" {
			stage.Conditional = true
			stage.Condition = provisioning.Always(cfg.Features[sc.When])
		}
		stages = append(stages, stage)
	}
	return stages
}
