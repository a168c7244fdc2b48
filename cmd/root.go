/*
Copyright © 2025 STARMOUNTAIN1997
*/
package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "vaops",
	Short: "CLI for vLLM-Ascend deployment scripts and nightly CI tracking",
	Long: `vaops generates the launch scripts for vLLM-Ascend model serving and keeps
an archive of the nightly CI results.

Key Features:
  - Generate the single-node server startup script from the upstream test config
  - Generate matched node0/node1 scripts for dual-machine deployments
  - Generate the GSM8K dataset preparation script for benchmarking
  - Push generated scripts to serving nodes over SSH and start them in tmux
  - Share scripts with another operator via Magic Wormhole
  - Archive nightly CI job logs and track throughput in version control

Use "vaops [command] --help" for more information about a command.`,
	// Uncomment the following line if your bare application
	// has an action associated with it:
	// Run: func(cmd *cobra.Command, args []string) { },
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
