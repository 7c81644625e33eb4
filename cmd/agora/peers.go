package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rookdaemon/agora/config"
	"github.com/rookdaemon/agora/envelope"
	"github.com/rookdaemon/agora/relayclient"
)

var peersCmd = &cobra.Command{
	Use:   "peers",
	Short: "Manage this agent's local peer table",
}

var peersAddCmd = &cobra.Command{
	Use:   "add <publicKey>",
	Short: "Add or update a peer table entry",
	Args:  cobra.ExactArgs(1),
	RunE:  runPeersAdd,
}

var peersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the local peer table",
	RunE:  runPeersList,
}

var peersRemoveCmd = &cobra.Command{
	Use:   "remove <publicKey>",
	Short: "Remove a peer table entry",
	Args:  cobra.ExactArgs(1),
	RunE:  runPeersRemove,
}

var peersDiscoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Ask a relay for its current peer directory",
	RunE:  runPeersDiscover,
}

var (
	peerName  string
	peerURL   string
	peerToken string

	discoverRelayKey string
	discoverTimeout  time.Duration
	discoverSave     bool
)

func init() {
	rootCmd.AddCommand(peersCmd)
	peersCmd.AddCommand(peersAddCmd, peersListCmd, peersRemoveCmd, peersDiscoverCmd)

	peersAddCmd.Flags().StringVar(&peerName, "name", "", "display name for this peer")
	peersAddCmd.Flags().StringVar(&peerURL, "url", "", "webhook URL to reach this peer while it is offline")
	peersAddCmd.Flags().StringVar(&peerToken, "token", "", "bearer token for the peer's webhook URL")

	peersDiscoverCmd.Flags().StringVar(&discoverRelayKey, "relay-key", "", "the relay's own public key (required)")
	peersDiscoverCmd.Flags().DurationVar(&discoverTimeout, "timeout", 10*time.Second, "how long to wait for the relay's response")
	peersDiscoverCmd.Flags().BoolVar(&discoverSave, "save", false, "add discovered peers to the local peer table")
}

func runPeersAdd(cmd *cobra.Command, args []string) error {
	doc, err := config.LoadDocument(configPath)
	if err != nil {
		return printFailureAndReturn(fail("config_not_found", err))
	}
	doc.Peers[args[0]] = config.PeerEntry{Name: peerName, URL: peerURL, Token: peerToken}
	if err := doc.Save(configPath); err != nil {
		return printFailureAndReturn(fail("config_write_failed", err))
	}
	return printSuccess(map[string]string{"status": "ok", "publicKey": args[0]})
}

func runPeersList(cmd *cobra.Command, args []string) error {
	doc, err := config.LoadDocument(configPath)
	if err != nil {
		return printFailureAndReturn(fail("config_not_found", err))
	}
	return printSuccess(map[string]interface{}{"peers": doc.Peers})
}

func runPeersRemove(cmd *cobra.Command, args []string) error {
	doc, err := config.LoadDocument(configPath)
	if err != nil {
		return printFailureAndReturn(fail("config_not_found", err))
	}
	if _, ok := doc.Peers[args[0]]; !ok {
		return printFailureAndReturn(fail("peer_not_found", nil))
	}
	delete(doc.Peers, args[0])
	if err := doc.Save(configPath); err != nil {
		return printFailureAndReturn(fail("config_write_failed", err))
	}
	return printSuccess(map[string]string{"status": "ok", "publicKey": args[0]})
}

// directoryPeer mirrors relay/directory.go's unexported wire shape: the
// relay never exports its payload types, so a caller on the other side of
// the wire re-declares the fields it needs to parse.
type directoryPeer struct {
	PublicKey string            `json:"publicKey"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	LastSeen  int64             `json:"lastSeen"`
}

type peerListResponsePayload struct {
	Peers          []directoryPeer `json:"peers"`
	TotalPeers     int             `json:"totalPeers"`
	RelayPublicKey string          `json:"relayPublicKey"`
}

func runPeersDiscover(cmd *cobra.Command, args []string) error {
	if discoverRelayKey == "" {
		return printFailureAndReturn(fail("relay_key_required", nil))
	}

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

	client := relayclient.New(relayclient.Config{
		URL:       doc.RelayURL,
		PublicKey: doc.Identity.PublicKey,
		Name:      doc.Identity.Name,
		Private:   priv,
	})
	defer client.Disconnect()

	ctx, cancel := context.WithTimeout(context.Background(), discoverTimeout)
	defer cancel()
	if err := client.Connect(ctx); err != nil {
		return printFailureAndReturn(fail("relay_unavailable", err))
	}

	requestEnv, err := envelope.Create(envelope.TypePeerListRequest, doc.Identity.PublicKey, priv, struct{}{}, "")
	if err != nil {
		return printFailureAndReturn(fail("envelope_build_failed", err))
	}
	if err := client.Send(discoverRelayKey, requestEnv); err != nil {
		return printFailureAndReturn(fail("send_failed", err))
	}

	for {
		select {
		case msg := <-client.Inbound():
			if msg.Envelope.Type != envelope.TypePeerListResponse || msg.Envelope.InReplyTo != requestEnv.ID {
				continue
			}
			var payload peerListResponsePayload
			if err := json.Unmarshal(msg.Envelope.Payload, &payload); err != nil {
				return printFailureAndReturn(fail("malformed_response", err))
			}
			if discoverSave {
				for _, p := range payload.Peers {
					if _, exists := doc.Peers[p.PublicKey]; !exists {
						doc.Peers[p.PublicKey] = config.PeerEntry{}
					}
				}
				if err := doc.Save(configPath); err != nil {
					return printFailureAndReturn(fail("config_write_failed", err))
				}
			}
			return printSuccess(payload)
		case <-ctx.Done():
			return printFailureAndReturn(fail("timeout", fmt.Errorf("no peer_list_response within %s", discoverTimeout)))
		}
	}
}
