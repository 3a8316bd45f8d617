package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/netfabric/cmd/netfabric/handlers"
)

// Probe returns the command that runs reachability checks on deployed
// infrastructure.
func Probe() *cobra.Command {
	var configPath, source, target string

	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Check reachability between deployed nodes",
		Long: `Probe pings private addresses between deployed nodes.

Without flags it runs the configured checks, or every AWS site to GCP and
back plus each AWS site to the next. Node names come from the site stage
outputs, e.g. aws_site-1_private or gcp_private.

Examples:
  netfabric probe -c fabric.yaml
  netfabric probe -c fabric.yaml --source gcp_private --target aws_site-1_private`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Probe(cmd.Context(), configPath, source, target)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to configuration file")
	cmd.Flags().StringVar(&source, "source", "", "Node to probe from")
	cmd.Flags().StringVar(&target, "target", "", "Node whose private address is probed")

	return cmd
}
