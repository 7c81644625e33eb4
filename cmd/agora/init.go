package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/rookdaemon/agora/config"
	"github.com/rookdaemon/agora/crypto/keys"
	"github.com/rookdaemon/agora/crypto/vault"
)

var (
	initName     string
	initRelayURL string
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate a new agent identity and write the config document",
	RunE:  runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().StringVar(&initName, "name", "", "display name for this identity")
	initCmd.Flags().StringVar(&initRelayURL, "relay", "", "relay URL this agent connects to by default")
}

func runInit(cmd *cobra.Command, args []string) error {
	if _, err := os.Stat(configPath); err == nil {
		return printFailureAndReturn(fail("already_initialized", nil))
	}

	kp, err := keys.GenerateEd25519KeyPair()
	if err != nil {
		return printFailureAndReturn(fail("key_generation_failed", err))
	}
	hx := kp.(hexKeyPair)

	doc := config.NewDocument()
	doc.Identity = config.Identity{PublicKey: kp.ID(), Name: initName}
	doc.RelayURL = initRelayURL

	passphrase := resolvedPassphrase()
	if passphrase != "" {
		v, err := vault.NewFileVault(vaultDir)
		if err != nil {
			return printFailureAndReturn(fail("vault_init_failed", err))
		}
		if err := doc.StoreEncryptedIdentity(v, hx.PrivateHex(), passphrase); err != nil {
			return printFailureAndReturn(fail("vault_store_failed", err))
		}
	} else {
		doc.Identity.PrivateKey = hx.PrivateHex()
	}

	if err := doc.Save(configPath); err != nil {
		return printFailureAndReturn(fail("config_write_failed", err))
	}

	result := map[string]string{
		"status":     "ok",
		"publicKey":  kp.ID(),
		"configPath": configPath,
	}
	if passphrase == "" {
		result["warning"] = "private key stored unencrypted in the config document; set --passphrase or AGORA_PASSPHRASE to use the vault"
	}
	return printSuccess(result)
}
