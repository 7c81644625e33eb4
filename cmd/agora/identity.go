package main

import (
	"fmt"

	"github.com/rookdaemon/agora/config"
	sagecrypto "github.com/rookdaemon/agora/crypto"
	"github.com/rookdaemon/agora/crypto/keys"
	"github.com/rookdaemon/agora/crypto/vault"
)

// resolveIdentityKey returns doc's identity as a usable KeyPair, decrypting
// it from the vault under the resolved passphrase when the document itself
// carries no private key.
func resolveIdentityKey(doc *config.Document) (sagecrypto.KeyPair, error) {
	if doc.Identity.PrivateKey != "" {
		return keys.ImportEd25519KeyPair(doc.Identity.PublicKey, doc.Identity.PrivateKey)
	}

	passphrase := resolvedPassphrase()
	if passphrase == "" {
		return nil, fmt.Errorf("identity: private key is vaulted but no passphrase was given")
	}
	v, err := vault.NewFileVault(vaultDir)
	if err != nil {
		return nil, err
	}
	private, err := doc.ResolvePrivateKey(v, passphrase)
	if err != nil {
		return nil, err
	}
	return keys.ImportEd25519KeyPair(doc.Identity.PublicKey, private)
}
