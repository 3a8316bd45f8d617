// Package main is the entry point for the netfabric CLI.
//
// netfabric deploys a multi-cloud network fabric stage by stage with
// terraform, verifies that private nodes on every site can reach each other
// through their bastions, polls the Gatus monitors deployed alongside, and
// tears everything down again.
//
// Commands: run, destroy, probe, health, doctor, version.
//
// For detailed usage information, run:
//
//	netfabric --help
package main

import (
	"fmt"
	"os"

	"github.com/imamik/netfabric/cmd/netfabric/commands"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.SetVersionInfo(version, commit, date)
	if err := commands.Root().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
