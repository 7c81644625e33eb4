package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/rookdaemon/agora/config"
	"github.com/rookdaemon/agora/webhook"
)

var decodeTrustedOnly bool

var decodeCmd = &cobra.Command{
	Use:   "decode [message]",
	Short: "Decode and verify a webhook-encoded envelope",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runDecode,
}

func init() {
	rootCmd.AddCommand(decodeCmd)
	decodeCmd.Flags().BoolVar(&decodeTrustedOnly, "trusted-only", false, "reject envelopes from senders not in the local peer table")
}

func runDecode(cmd *cobra.Command, args []string) error {
	var message string
	if len(args) == 1 {
		message = args[0]
	} else {
		raw, err := io.ReadAll(os.Stdin)
		if err != nil {
			return printFailureAndReturn(fail("stdin_read_failed", err))
		}
		message = string(raw)
	}

	var knownSenders map[string]bool
	if decodeTrustedOnly {
		doc, err := config.LoadDocument(configPath)
		if err != nil {
			return printFailureAndReturn(fail("config_not_found", err))
		}
		knownSenders = make(map[string]bool, len(doc.Peers))
		for pk := range doc.Peers {
			knownSenders[pk] = true
		}
	}

	env, err := webhook.Decode(message, knownSenders)
	if err != nil {
		return printFailureAndReturn(fail(decodeReason(err), err))
	}
	return printSuccess(env)
}

func decodeReason(err error) string {
	var de *webhook.DecodeError
	if e, ok := err.(*webhook.DecodeError); ok {
		de = e
	}
	if de == nil {
		return "decode_failed"
	}
	return fmt.Sprintf("decode_failed_%s", de.Step)
}
