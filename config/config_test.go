package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rookdaemon/agora/crypto/keys"
	"github.com/rookdaemon/agora/crypto/vault"
)

type hexKeyPair interface {
	PrivateHex() string
}

func TestDocument_SaveAndLoadRoundTrip(t *testing.T) {
	kp, err := keys.GenerateEd25519KeyPair()
	require.NoError(t, err)

	doc := NewDocument()
	doc.Identity = Identity{PublicKey: kp.ID(), PrivateKey: kp.(hexKeyPair).PrivateHex(), Name: "alice"}
	doc.RelayURL = "wss://relay.example.com"
	doc.Peers["bob"] = PeerEntry{Name: "bob", URL: "wss://relay.example.com", Token: kp.ID()}

	path := filepath.Join(t.TempDir(), "agora.json")
	require.NoError(t, doc.Save(path))

	loaded, err := LoadDocument(path)
	require.NoError(t, err)
	require.Equal(t, doc.Identity, loaded.Identity)
	require.Equal(t, doc.RelayURL, loaded.RelayURL)
	require.Equal(t, doc.Peers["bob"], loaded.Peers["bob"])
	require.Equal(t, 30, loaded.KeepaliveSeconds)
}

func TestLoadDocument_MissingFileErrors(t *testing.T) {
	_, err := LoadDocument(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
}

func TestLoadDocument_InitializesNilPeerTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agora.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"identity":{"publicKey":"ab"}}`), 0o600))

	doc, err := LoadDocument(path)
	require.NoError(t, err)
	require.NotNil(t, doc.Peers)
	require.Empty(t, doc.Peers)
}

func TestDocument_ResolvePrivateKey_PrefersInlineKey(t *testing.T) {
	doc := NewDocument()
	doc.Identity = Identity{PublicKey: "pub", PrivateKey: "inline-priv"}

	priv, err := doc.ResolvePrivateKey(nil, "unused")
	require.NoError(t, err)
	require.Equal(t, "inline-priv", priv)
}

func TestDocument_StoreAndResolvePrivateKey_ViaVault(t *testing.T) {
	kp, err := keys.GenerateEd25519KeyPair()
	require.NoError(t, err)

	v, err := vault.NewFileVault(t.TempDir())
	require.NoError(t, err)

	doc := NewDocument()
	doc.Identity = Identity{PublicKey: kp.ID(), Name: "alice"}

	require.NoError(t, doc.StoreEncryptedIdentity(v, kp.(hexKeyPair).PrivateHex(), "s3cret"))
	require.Empty(t, doc.Identity.PrivateKey)

	priv, err := doc.ResolvePrivateKey(v, "s3cret")
	require.NoError(t, err)
	require.Equal(t, kp.(hexKeyPair).PrivateHex(), priv)

	_, err = doc.ResolvePrivateKey(v, "wrong")
	require.Error(t, err)
}

func TestDocument_StoreEncryptedIdentity_RejectsMismatchedKeypair(t *testing.T) {
	kp, err := keys.GenerateEd25519KeyPair()
	require.NoError(t, err)
	other, err := keys.GenerateEd25519KeyPair()
	require.NoError(t, err)

	v, err := vault.NewFileVault(t.TempDir())
	require.NoError(t, err)

	doc := NewDocument()
	doc.Identity = Identity{PublicKey: kp.ID()}

	err = doc.StoreEncryptedIdentity(v, other.(hexKeyPair).PrivateHex(), "s3cret")
	require.Error(t, err)
}
