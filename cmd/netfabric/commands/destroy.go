package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/netfabric/cmd/netfabric/handlers"
)

// Destroy returns the destroy command.
//
// The destroy command tears down every enabled stage in reverse order. It
// cleans up infrastructure kept by "run --skip-destroy".
func Destroy() *cobra.Command {
	var configPath string
	var varFile string

	cmd := &cobra.Command{
		Use:   "destroy",
		Short: "Destroy every stage of the fabric",
		Long: `Destroy tears down every enabled stage in reverse order.

Each destroy is attempted even when an earlier one fails; all failures are
reported.

Example:
  netfabric destroy -c fabric.yaml`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Destroy(cmd.Context(), configPath, varFile)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to configuration file (required)")
	cmd.Flags().StringVar(&varFile, "var-file", "", "Terraform variables file")
	_ = cmd.MarkFlagRequired("config")

	return cmd
}
