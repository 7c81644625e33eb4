package main

import (
	"context"
	"encoding/json"
	"time"

	"github.com/spf13/cobra"

	"github.com/rookdaemon/agora/config"
	"github.com/rookdaemon/agora/envelope"
	"github.com/rookdaemon/agora/relayclient"
	"github.com/rookdaemon/agora/webhook"
)

var (
	sendType      string
	sendPayload   string
	sendInReplyTo string
	sendTimeout   time.Duration
)

var sendCmd = &cobra.Command{
	Use:   "send <publicKey>",
	Short: "Sign and deliver an envelope to a peer",
	Args:  cobra.ExactArgs(1),
	RunE:  runSend,
}

func init() {
	rootCmd.AddCommand(sendCmd)
	sendCmd.Flags().StringVar(&sendType, "type", string(envelope.TypeRequest), "envelope type")
	sendCmd.Flags().StringVar(&sendPayload, "payload", "{}", "JSON payload body")
	sendCmd.Flags().StringVar(&sendInReplyTo, "in-reply-to", "", "id of the envelope this replies to")
	sendCmd.Flags().DurationVar(&sendTimeout, "timeout", 10*time.Second, "delivery timeout when relaying")
}

func runSend(cmd *cobra.Command, args []string) error {
	to := args[0]

	doc, err := config.LoadDocument(configPath)
	if err != nil {
		return printFailureAndReturn(fail("config_not_found", err))
	}
	priv, err := resolveIdentityKey(doc)
	if err != nil {
		return printFailureAndReturn(fail("identity_unavailable", err))
	}

	env, err := envelope.Create(envelope.Type(sendType), doc.Identity.PublicKey, priv, json.RawMessage(sendPayload), sendInReplyTo)
	if err != nil {
		return printFailureAndReturn(fail("envelope_build_failed", err))
	}

	peer, hasPeer := doc.Peers[to]
	if hasPeer && peer.URL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		defer cancel()
		if err := webhook.NewClient().Send(ctx, peer.URL, peer.Token, env, doc.Identity.Name, ""); err != nil {
			return printFailureAndReturn(fail("webhook_delivery_failed", err))
		}
		return printSuccess(map[string]interface{}{"status": "ok", "envelopeId": env.ID, "via": "webhook"})
	}

	if doc.RelayURL == "" {
		return printFailureAndReturn(fail("no_delivery_path", nil))
	}

	client := relayclient.New(relayclient.Config{
		URL:       doc.RelayURL,
		PublicKey: doc.Identity.PublicKey,
		Name:      doc.Identity.Name,
		Private:   priv,
	})
	defer client.Disconnect()

	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()
	if err := client.Connect(ctx); err != nil {
		return printFailureAndReturn(fail("relay_unavailable", err))
	}
	if err := client.Send(to, env); err != nil {
		return printFailureAndReturn(fail("send_failed", err))
	}

	return printSuccess(map[string]interface{}{"status": "ok", "envelopeId": env.ID, "via": "relay"})
}
