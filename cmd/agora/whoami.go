package main

import (
	"github.com/spf13/cobra"

	"github.com/rookdaemon/agora/config"
)

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Print this agent's public identity",
	RunE:  runWhoami,
}

func init() {
	rootCmd.AddCommand(whoamiCmd)
}

func runWhoami(cmd *cobra.Command, args []string) error {
	doc, err := config.LoadDocument(configPath)
	if err != nil {
		return printFailureAndReturn(fail("config_not_found", err))
	}

	return printSuccess(map[string]interface{}{
		"publicKey": doc.Identity.PublicKey,
		"name":      doc.Identity.Name,
		"relayURL":  doc.RelayURL,
		"vaulted":   doc.Identity.PrivateKey == "",
	})
}
