// Package handlers implements the business logic for CLI commands.
//
// This package contains handler functions that are called by command definitions
// in the commands package. Handlers build every dependency from a single
// *config.Config and are testable without the CLI framework.
package handlers

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/imamik/netfabric/internal/config"
	"github.com/imamik/netfabric/internal/metrics"
	"github.com/imamik/netfabric/internal/platform/s3"
	"github.com/imamik/netfabric/internal/platform/ssh"
	"github.com/imamik/netfabric/internal/probe"
	"github.com/imamik/netfabric/internal/provisioning"
	"github.com/imamik/netfabric/internal/provisioning/terraform"
	"github.com/imamik/netfabric/internal/util/prerequisites"
)

// Factory function variables - can be replaced in tests for dependency injection.
var (
	// loadConfig loads, overlays and validates the configuration.
	loadConfig = config.Load

	// newBackend creates the provisioning backend for cfg.
	newBackend = func(ctx context.Context, cfg *config.Config, logger provisioning.Logger) (provisioning.Backend, error) {
		return buildBackend(ctx, cfg, logger)
	}

	// newExecutor creates the remote command executor.
	newExecutor = func(cfg *config.Config) probe.Executor {
		return ssh.NewExecutor(ssh.Config{
			Port:        cfg.SSH.Port,
			User:        cfg.SSH.User,
			DialTimeout: cfg.SSH.DialTimeout,
		})
	}

	// newS3Client creates the client for remote state.
	newS3Client = func(ctx context.Context, opts s3.Options) (*s3.Client, error) {
		return s3.NewClient(ctx, opts)
	}

	// newObserver creates the observer receiving lifecycle events.
	newObserver = func() provisioning.Observer {
		return provisioning.NewConsoleObserver()
	}

	// checkDefaultPrereqs runs prerequisite checks.
	checkDefaultPrereqs = prerequisites.CheckDefault

	// checkAllPrereqs runs the required and optional tool checks.
	checkAllPrereqs = prerequisites.CheckAll

	// retrySleep waits between probe and health attempts. Nil waits for real.
	retrySleep func(ctx context.Context, d time.Duration) error

	// stdout receives reports.
	stdout io.Writer = os.Stdout
)

// buildBackend creates a terraform backend reading outputs from the state
// backend selected in cfg.
func buildBackend(ctx context.Context, cfg *config.Config, logger provisioning.Logger) (*terraform.Backend, error) {
	t := cfg.Timeouts
	opts := []terraform.Option{
		terraform.WithLogger(logger),
		terraform.WithTimeouts(terraform.Timeouts{
			Init:           t.Init,
			Apply:          t.Apply,
			Destroy:        t.Destroy,
			InitRetries:    t.InitRetryAttempts,
			InitRetryDelay: t.InitRetryDelay,
		}),
	}

	if cfg.State.Backend == "s3" {
		reader, err := newS3StateReader(ctx, cfg)
		if err != nil {
			return nil, err
		}
		opts = append(opts, terraform.WithStateReader(reader))
	}

	return terraform.NewBackend(opts...), nil
}

func newS3StateReader(ctx context.Context, cfg *config.Config) (*terraform.S3StateReader, error) {
	sc := cfg.State.S3
	client, err := newS3Client(ctx, s3Options(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 client: %w", err)
	}

	keys := make(map[string]string, len(cfg.Stages))
	for _, stage := range cfg.Stages {
		keys[cfg.StageDir(stage)] = terraform.StateKey(sc.KeyPrefix, stage.Name)
	}
	return &terraform.S3StateReader{Client: client, Bucket: sc.Bucket, Keys: keys}, nil
}

func s3Options(cfg *config.Config) s3.Options {
	sc := cfg.State.S3
	return s3.Options{
		Region:    sc.Region,
		Endpoint:  sc.Endpoint,
		AccessKey: sc.AccessKey,
		SecretKey: sc.SecretKey,
	}
}

// loadAndOverride loads the config file and applies command-line overrides,
// re-validating when any were given.
func loadAndOverride(configPath string, overrides func(*config.Config) bool) (*config.Config, error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, err
	}
	if overrides != nil && overrides(cfg) {
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("configuration validation failed: %w", err)
		}
	}
	return cfg, nil
}

// exportMetrics writes the recorder to the configured metrics file, if any.
// A failed write is logged and does not fail the command.
func exportMetrics(cfg *config.Config, recorder *metrics.Recorder, observer provisioning.Observer) {
	if err := recorder.WriteTextfile(cfg.Metrics.File); err != nil {
		observer.Printf("Failed to write metrics to %s: %v", cfg.Metrics.File, err)
	}
}
