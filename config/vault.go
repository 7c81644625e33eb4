package config

import (
	"fmt"

	"github.com/rookdaemon/agora/crypto/keys"
	"github.com/rookdaemon/agora/crypto/vault"
)

// ResolvePrivateKey returns the Document's identity private key, decrypting
// it from v under passphrase when the document stores no key of its own
// (the passphrase-protected path used by `agora init`). When the document
// already carries a hex private key, it is returned directly and the vault
// is not consulted.
func (d *Document) ResolvePrivateKey(v vault.SecureVault, passphrase string) (string, error) {
	if d.Identity.PrivateKey != "" {
		return d.Identity.PrivateKey, nil
	}
	raw, err := v.LoadDecrypted(d.Identity.PublicKey, passphrase)
	if err != nil {
		return "", fmt.Errorf("config: resolve private key from vault: %w", err)
	}
	return string(raw), nil
}

// StoreEncryptedIdentity encrypts private (hex-encoded) into v under
// passphrase, keyed by the identity's public key, and clears the
// Document's own PrivateKey field so it is never written to disk in the
// clear.
func (d *Document) StoreEncryptedIdentity(v vault.SecureVault, private string, passphrase string) error {
	kp, err := keys.ImportEd25519KeyPair(d.Identity.PublicKey, private)
	if err != nil {
		return fmt.Errorf("config: invalid identity keypair: %w", err)
	}
	probe := []byte("agora identity keypair check")
	sig, err := kp.Sign(probe)
	if err != nil || kp.Verify(probe, sig) != nil {
		return fmt.Errorf("config: invalid identity keypair: private key does not match public key")
	}
	if err := v.StoreEncrypted(d.Identity.PublicKey, []byte(private), passphrase); err != nil {
		return fmt.Errorf("config: store encrypted identity: %w", err)
	}
	d.Identity.PrivateKey = ""
	return nil
}
