package relay

import (
	"encoding/json"
	"sort"
	"time"

	"github.com/rookdaemon/agora/envelope"
	"github.com/rookdaemon/agora/internal/metrics"
)

// peerListRequestPayload is the payload of a peer_list_request envelope.
type peerListRequestPayload struct {
	Filters struct {
		ActiveWithin int64 `json:"activeWithin,omitempty"` // milliseconds
		Limit        int   `json:"limit,omitempty"`
	} `json:"filters"`
}

// directoryPeer is one entry in a peer_list_response.
type directoryPeer struct {
	PublicKey string            `json:"publicKey"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	LastSeen  int64             `json:"lastSeen"`
}

// peerListResponsePayload is the payload of a peer_list_response envelope.
type peerListResponsePayload struct {
	Peers           []directoryPeer `json:"peers"`
	TotalPeers      int             `json:"totalPeers"`
	RelayPublicKey  string          `json:"relayPublicKey"`
}

// handlePeerListRequest serves a signed peer directory response, exposed
// when the relay has its own identity.
func (s *Server) handlePeerListRequest(conn *connection, request *envelope.Envelope) {
	var payload peerListRequestPayload
	if len(request.Payload) > 0 {
		_ = json.Unmarshal(request.Payload, &payload)
	}

	type candidate struct {
		directoryPeer
		seq uint64
	}

	s.mu.RLock()
	candidates := make([]candidate, 0, len(s.agents))
	for pk, entry := range s.agents {
		if pk == request.Sender || entry.conn == nil {
			continue
		}
		candidates = append(candidates, candidate{
			directoryPeer: directoryPeer{
				PublicKey: pk,
				Metadata:  entry.record.Metadata,
				LastSeen:  entry.record.LastSeen.UnixMilli(),
			},
			seq: entry.seq,
		})
	}
	s.mu.RUnlock()

	sort.Slice(candidates, func(i, j int) bool { return candidates[i].seq < candidates[j].seq })

	totalPeers := len(candidates)

	if aw := payload.Filters.ActiveWithin; aw > 0 {
		now := time.Now().UnixMilli()
		filtered := candidates[:0:0]
		for _, c := range candidates {
			if now-c.LastSeen < aw {
				filtered = append(filtered, c)
			}
		}
		candidates = filtered
	}
	if limit := payload.Filters.Limit; limit > 0 && limit < len(candidates) {
		candidates = candidates[:limit]
	}

	peers := make([]directoryPeer, len(candidates))
	for i, c := range candidates {
		peers[i] = c.directoryPeer
	}
	sort.Slice(peers, func(i, j int) bool { return peers[i].PublicKey < peers[j].PublicKey })

	respPayload := peerListResponsePayload{
		Peers:          peers,
		TotalPeers:     totalPeers,
		RelayPublicKey: s.identity.PublicKey,
	}

	response, err := envelope.Create(envelope.TypePeerListResponse, s.identity.PublicKey, s.identity.private, respPayload, request.ID)
	if err != nil {
		_ = conn.send(ErrorFrame("directory: failed to build response"))
		return
	}

	_ = conn.send(&Frame{Kind: FrameMessage, From: s.identity.PublicKey, Envl: response})
	metrics.PeerDirectoryRequests.Inc()
}
