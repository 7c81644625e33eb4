package main

import (
	"github.com/spf13/cobra"

	"github.com/rookdaemon/agora/pkg/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print build version information",
	RunE:  runVersion,
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

func runVersion(cmd *cobra.Command, args []string) error {
	return printSuccess(version.Get())
}
