package config

import "github.com/rookdaemon/agora/relayclient"

// ApplyPresence merges a relayclient.Client's presence snapshot into the
// Document's peer table, so `peers list` has something to show even after
// the client disconnects — the supplemented peer-directory caching
// behavior. Existing PeerEntry.URL/Token are preserved; only Name is
// refreshed from the live snapshot.
func (d *Document) ApplyPresence(presence map[string]relayclient.Reachability) {
	if d.Peers == nil {
		d.Peers = make(map[string]PeerEntry)
	}
	for publicKey, r := range presence {
		entry := d.Peers[publicKey]
		if r.Name != "" {
			entry.Name = r.Name
		}
		d.Peers[publicKey] = entry
	}
}
