package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/netfabric/cmd/netfabric/handlers"
)

// Run returns the command that deploys, verifies and tears down the fabric.
//
// Optional flags:
//
//	--config, -c: Path to configuration YAML file
//	--var-file: Terraform variables file (overrides var_file and AVX_TFVARS)
//	--skip-destroy: Keep the infrastructure after the run
//	--skip-deploy: Verify existing infrastructure only
//	--metrics-file: Write Prometheus metrics to this file
func Run() *cobra.Command {
	var configPath string
	var opts handlers.RunOptions

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Deploy, verify and tear down the fabric",
		Long: `Deploy the fabric stage by stage, verify it, and tear it down.

Stages are applied in order. A failed stage stops the deployment; every
stage that was applied is then destroyed in reverse order, even when an
earlier destroy fails.

Verification reads the site stage outputs, pings every private VM from the
others through the site bastions, and polls the Gatus monitors.

Environment variables:
  AVX_TFVARS           Terraform variables file
  AVX_NODESTROY        Keep the infrastructure (any non-empty value)
  TF_SKIP_DEPLOY       Verify existing infrastructure (any non-empty value)
  TF_VAR_enable_gatus  "true" enables the monitoring stage

Examples:
  # Full lifecycle with the default three stages
  netfabric run -c fabric.yaml

  # Keep the infrastructure for debugging
  netfabric run -c fabric.yaml --skip-destroy

  # Re-verify infrastructure kept by an earlier run
  netfabric run -c fabric.yaml --skip-deploy`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Run(cmd.Context(), configPath, opts)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to configuration file")
	cmd.Flags().StringVar(&opts.VarFile, "var-file", "", "Terraform variables file")
	cmd.Flags().BoolVar(&opts.SkipDestroy, "skip-destroy", false, "Keep the infrastructure after the run")
	cmd.Flags().BoolVar(&opts.SkipDeploy, "skip-deploy", false, "Verify existing infrastructure without applying or destroying")
	cmd.Flags().StringVar(&opts.MetricsFile, "metrics-file", "", "Write Prometheus metrics to this file")

	return cmd
}
