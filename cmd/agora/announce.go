package main

import (
	"context"
	"encoding/json"
	"time"

	"github.com/spf13/cobra"

	"github.com/rookdaemon/agora/config"
	"github.com/rookdaemon/agora/envelope"
	"github.com/rookdaemon/agora/relayclient"
)

var (
	announceMetadata string
	announceTimeout  time.Duration
)

var announceCmd = &cobra.Command{
	Use:   "announce",
	Short: "Broadcast a presence announcement to every peer on the relay",
	RunE:  runAnnounce,
}

func init() {
	rootCmd.AddCommand(announceCmd)
	announceCmd.Flags().StringVar(&announceMetadata, "metadata", "{}", "JSON metadata body carried in the announcement")
	announceCmd.Flags().DurationVar(&announceTimeout, "timeout", 10*time.Second, "how long to wait for the relay connection")
}

func runAnnounce(cmd *cobra.Command, args []string) error {
	doc, err := config.LoadDocument(configPath)
	if err != nil {
		return printFailureAndReturn(fail("config_not_found", err))
	}
	if doc.RelayURL == "" {
		return printFailureAndReturn(fail("relay_url_not_configured", nil))
	}
	priv, err := resolveIdentityKey(doc)
	if err != nil {
		return printFailureAndReturn(fail("identity_unavailable", err))
	}

	env, err := envelope.Create(envelope.TypeAnnounce, doc.Identity.PublicKey, priv, json.RawMessage(announceMetadata), "")
	if err != nil {
		return printFailureAndReturn(fail("envelope_build_failed", err))
	}

	client := relayclient.New(relayclient.Config{
		URL:       doc.RelayURL,
		PublicKey: doc.Identity.PublicKey,
		Name:      doc.Identity.Name,
		Private:   priv,
	})
	defer client.Disconnect()

	ctx, cancel := context.WithTimeout(context.Background(), announceTimeout)
	defer cancel()
	if err := client.Connect(ctx); err != nil {
		return printFailureAndReturn(fail("relay_unavailable", err))
	}
	if err := client.Broadcast(env); err != nil {
		return printFailureAndReturn(fail("broadcast_failed", err))
	}

	return printSuccess(map[string]string{"status": "ok", "envelopeId": env.ID})
}
