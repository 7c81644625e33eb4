package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	configPath string
	vaultDir   string
	passphrase string
)

var rootCmd = &cobra.Command{
	Use:   "agora",
	Short: "agora CLI - peer-to-peer agent messaging and reputation",
	Long: `agora is a thin driver over the core peer-to-peer messaging and
reputation substrate: agent identity, signed envelopes, a relay, and a
decaying trust score, fronted by a REST façade for non-Go callers.`,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.SilenceUsage = true
	rootCmd.SilenceErrors = true

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "agora.json", "path to the agent's identity/peer-table document")
	rootCmd.PersistentFlags().StringVar(&vaultDir, "vault-dir", "./vault", "directory for the encrypted identity vault")
	rootCmd.PersistentFlags().StringVar(&passphrase, "passphrase", "", "vault passphrase (falls back to AGORA_PASSPHRASE)")
}

func resolvedPassphrase() string {
	if passphrase != "" {
		return passphrase
	}
	return os.Getenv("AGORA_PASSPHRASE")
}
