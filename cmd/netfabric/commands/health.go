package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/netfabric/cmd/netfabric/handlers"
)

// Health returns the command that polls the Gatus monitors.
func Health() *cobra.Command {
	var configPath, url string

	cmd := &cobra.Command{
		Use:   "health",
		Short: "Poll the Gatus monitors of deployed infrastructure",
		Long: `Health polls every Gatus monitor exported by the site and monitoring
stages until it reports healthy or the attempts run out.

With --url only that monitor is polled, and its endpoint statuses are
listed.

Examples:
  netfabric health -c fabric.yaml
  netfabric health --url https://54.1.2.3:8443`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Health(cmd.Context(), configPath, url)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to configuration file")
	cmd.Flags().StringVar(&url, "url", "", "Poll only this monitor")

	return cmd
}
