// Package config loads and saves the two configuration surfaces of an
// agora deployment: a per-agent identity/peer-table JSON document, and an
// ops-facing YAML service config for the relay and CLI defaults.
package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// PeerEntry is one entry in a Document's peer table.
type PeerEntry struct {
	Name  string `json:"name,omitempty"`
	URL   string `json:"url,omitempty"`
	Token string `json:"token,omitempty"`
}

// Identity is the agent's own keypair and display name, as stored in a
// Document. PrivateKey is the hex-encoded Ed25519 private key, or empty
// when the key is held in the encrypted vault instead.
type Identity struct {
	PublicKey  string `json:"publicKey"`
	PrivateKey string `json:"privateKey,omitempty"`
	Name       string `json:"name,omitempty"`
}

// Document is the per-agent JSON key-value document: an identity and a
// peer table.
type Document struct {
	Identity         Identity             `json:"identity"`
	Peers            map[string]PeerEntry `json:"peers"`
	RelayURL         string               `json:"relayURL,omitempty"`
	KeepaliveSeconds int                  `json:"keepaliveSeconds,omitempty"`
}

// NewDocument returns an empty Document with an initialized peer table.
func NewDocument() *Document {
	return &Document{Peers: make(map[string]PeerEntry), KeepaliveSeconds: 30}
}

// LoadDocument reads and parses a Document from path.
func LoadDocument(path string) (*Document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read document: %w", err)
	}
	doc := NewDocument()
	if err := json.Unmarshal(raw, doc); err != nil {
		return nil, fmt.Errorf("config: parse document: %w", err)
	}
	if doc.Peers == nil {
		doc.Peers = make(map[string]PeerEntry)
	}
	return doc, nil
}

// Save writes doc to path as indented JSON.
func (d *Document) Save(path string) error {
	raw, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return fmt.Errorf("config: marshal document: %w", err)
	}
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		return fmt.Errorf("config: write document: %w", err)
	}
	return nil
}
