package main

import (
	"encoding/json"
	"fmt"
	"os"

	sagecrypto "github.com/rookdaemon/agora/crypto"
	"github.com/rookdaemon/agora/crypto/keys"
)

// keyFile is the on-disk shape of a standalone keypair, used for the
// relay's own identity and the anchor operator key — both outside a
// per-agent config.Document.
type keyFile struct {
	Type       string `json:"type"`
	PublicKey  string `json:"publicKey"`
	PrivateKey string `json:"privateKey"`
}

type hexKeyPair interface {
	PublicHex() string
	PrivateHex() string
}

func writeKeyFile(path string, kp sagecrypto.KeyPair) error {
	hx, ok := kp.(hexKeyPair)
	if !ok {
		return fmt.Errorf("keyfile: key pair does not expose hex encodings")
	}
	raw, err := json.MarshalIndent(keyFile{
		Type:       string(kp.Type()),
		PublicKey:  hx.PublicHex(),
		PrivateKey: hx.PrivateHex(),
	}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, raw, 0o600)
}

func loadKeyFile(path string) (sagecrypto.KeyPair, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var kf keyFile
	if err := json.Unmarshal(raw, &kf); err != nil {
		return nil, fmt.Errorf("keyfile: parse %s: %w", path, err)
	}
	switch sagecrypto.KeyType(kf.Type) {
	case sagecrypto.KeyTypeEd25519:
		return keys.ImportEd25519KeyPair(kf.PublicKey, kf.PrivateKey)
	case sagecrypto.KeyTypeSecp256k1:
		return keys.ImportSecp256k1KeyPair(kf.PrivateKey)
	default:
		return nil, fmt.Errorf("keyfile: unsupported key type %q", kf.Type)
	}
}
