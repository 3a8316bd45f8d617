// Package commands defines the CLI command structure and flag bindings.
//
// This package contains cobra command definitions that handle argument parsing
// and flag binding. Command execution is delegated to handler functions in the
// handlers package.
package commands

import "github.com/spf13/cobra"

// Root returns the root command for the netfabric CLI.
func Root() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "netfabric",
		Short:         "Deploy and verify a multi-cloud network fabric",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(Run())
	cmd.AddCommand(Destroy())
	cmd.AddCommand(Probe())
	cmd.AddCommand(Health())
	cmd.AddCommand(Doctor())
	cmd.AddCommand(Version())

	return cmd
}
