package handlers

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/imamik/netfabric/internal/config"
	"github.com/imamik/netfabric/internal/orchestration"
	"github.com/imamik/netfabric/internal/provisioning/terraform"
)

// Doctor checks the local environment and configuration without running
// terraform: tools, stage directories, var files and the state backend.
func Doctor(ctx context.Context, configPath string) error {
	var problems []error

	printHeader("Tools")
	tools := checkAllPrereqs()
	for _, r := range tools.Results {
		switch {
		case r.Found:
			printRow(r.Tool.Name, true, r.Version)
		case r.Tool.Required:
			printRow(r.Tool.Name, false, "missing, see "+r.Tool.InstallURL)
		default:
			printRow(r.Tool.Name, true, "not installed (optional)")
		}
	}
	if err := tools.Error(); err != nil {
		problems = append(problems, err)
	}

	printHeader("Configuration")
	cfg, err := loadConfig(configPath)
	if err != nil {
		printRow("config", false, err.Error())
		return errors.Join(append(problems, err)...)
	}
	printRow("config", true, fmt.Sprintf("%s, %d stage(s)", cfg.Name, len(cfg.Stages)))

	for _, stage := range orchestration.StagesFromConfig(cfg) {
		detail := stage.Dir
		if !stage.Enabled() {
			detail += " (disabled)"
		}
		if _, err := os.Stat(stage.Dir); err != nil {
			printRow(stage.Name, false, "directory missing: "+stage.Dir)
			problems = append(problems, fmt.Errorf("stage %s: directory %s not found", stage.Name, stage.Dir))
			continue
		}
		if _, err := os.Stat(stage.VarFile); err != nil {
			printRow(stage.Name, false, "var file missing: "+stage.VarFile)
			problems = append(problems, fmt.Errorf("stage %s: %w: %s", stage.Name, config.ErrVarFileMissing, stage.VarFile))
			continue
		}
		printRow(stage.Name, true, detail)
	}

	printHeader("State")
	if err := doctorState(ctx, cfg); err != nil {
		problems = append(problems, err)
	}

	fmt.Fprintln(stdout)
	return errors.Join(problems...)
}

func doctorState(ctx context.Context, cfg *config.Config) error {
	if cfg.State.Backend != "s3" {
		for _, stage := range cfg.Stages {
			path := filepath.Join(cfg.StageDir(stage), terraform.StateFile)
			if _, err := os.Stat(path); err != nil {
				printRow(stage.Name, true, "no local state")
				continue
			}
			printRow(stage.Name, true, "local state present")
		}
		return nil
	}

	sc := cfg.State.S3
	client, err := newS3Client(ctx, s3Options(cfg))
	if err != nil {
		printRow("s3", false, err.Error())
		return fmt.Errorf("failed to create S3 client: %w", err)
	}

	exists, err := client.BucketExists(ctx, sc.Bucket)
	switch {
	case err != nil:
		printRow("bucket", false, err.Error())
		return fmt.Errorf("failed to check bucket %s: %w", sc.Bucket, err)
	case !exists:
		printRow("bucket", false, sc.Bucket+" not found in "+client.Region())
		return fmt.Errorf("state bucket %s not found", sc.Bucket)
	}
	printRow("bucket", true, sc.Bucket+" ("+client.Region()+")")

	keys, err := client.ListObjects(ctx, sc.Bucket, sc.KeyPrefix)
	if err != nil {
		printRow("objects", false, err.Error())
		return fmt.Errorf("failed to list state objects: %w", err)
	}
	present := make(map[string]bool, len(keys))
	for _, k := range keys {
		present[k] = true
	}
	for _, stage := range cfg.Stages {
		key := terraform.StateKey(sc.KeyPrefix, stage.Name)
		if present[key] {
			printRow(stage.Name, true, "state at "+key)
			continue
		}
		printRow(stage.Name, true, "no state at "+key)
	}
	return nil
}

func printHeader(title string) {
	fmt.Fprintln(stdout)
	fmt.Fprintf(stdout, "  %s\n", title)
	fmt.Fprintln(stdout, "  "+strings.Repeat("═", len(title)))
}

func printRow(name string, ok bool, extra string) {
	indicator := "[OK]"
	if !ok {
		indicator = "[!!]"
	}
	if extra != "" {
		fmt.Fprintf(stdout, "  %s  %-20s %s\n", indicator, name, extra)
		return
	}
	fmt.Fprintf(stdout, "  %s  %s\n", indicator, name)
}
