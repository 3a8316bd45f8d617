package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/netfabric/cmd/netfabric/handlers"
)

// Doctor returns the command for diagnosing the local setup.
func Doctor() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check tools, configuration and state backend",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Doctor(cmd.Context(), configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to configuration file")

	return cmd
}
