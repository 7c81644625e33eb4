package main

import (
	"github.com/spf13/cobra"

	"github.com/rookdaemon/agora/config"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print this agent's configuration summary",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	doc, err := config.LoadDocument(configPath)
	if err != nil {
		return printFailureAndReturn(fail("config_not_found", err))
	}

	return printSuccess(map[string]interface{}{
		"publicKey":        doc.Identity.PublicKey,
		"name":             doc.Identity.Name,
		"relayURL":         doc.RelayURL,
		"peerCount":        len(doc.Peers),
		"keepaliveSeconds": doc.KeepaliveSeconds,
	})
}
