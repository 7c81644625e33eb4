package config

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rookdaemon/agora/relayclient"
)

func TestDocument_ApplyPresence_RefreshesNamesPreservesURLAndToken(t *testing.T) {
	doc := NewDocument()
	doc.Peers["pk-a"] = PeerEntry{Name: "old-name", URL: "wss://a.example.com", Token: "tok-a"}

	doc.ApplyPresence(map[string]relayclient.Reachability{
		"pk-a": {Online: true, Name: "new-name"},
		"pk-b": {StorageFor: true, Name: "bob"},
	})

	require.Equal(t, "new-name", doc.Peers["pk-a"].Name)
	require.Equal(t, "wss://a.example.com", doc.Peers["pk-a"].URL)
	require.Equal(t, "tok-a", doc.Peers["pk-a"].Token)
	require.Equal(t, "bob", doc.Peers["pk-b"].Name)
}

func TestDocument_ApplyPresence_InitializesNilPeerTable(t *testing.T) {
	doc := &Document{}
	doc.ApplyPresence(map[string]relayclient.Reachability{"pk-a": {Name: "alice"}})
	require.Equal(t, "alice", doc.Peers["pk-a"].Name)
}
