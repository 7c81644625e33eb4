// Package relay implements the relay side of the messaging substrate: the
// agent registry, frame routing, presence gossip, broadcast, the
// relay-mediated peer directory, and the store-and-forward hookup for
// designated offline recipients.
package relay

import (
	"encoding/json"
	"fmt"

	"github.com/rookdaemon/agora/envelope"
)

// FrameKind discriminates the single JSON object carried by every relay
// WebSocket text frame.
type FrameKind string

const (
	// Client -> relay
	FrameRegister  FrameKind = "register"
	FrameMessage   FrameKind = "message"
	FrameBroadcast FrameKind = "broadcast"
	FramePing      FrameKind = "ping"

	// Relay -> client
	FrameRegistered  FrameKind = "registered"
	FramePeerOnline  FrameKind = "peer_online"
	FramePeerOffline FrameKind = "peer_offline"
	FramePong        FrameKind = "pong"
	FrameError       FrameKind = "error"
)

// PeerInfo describes a peer as advertised to a connecting or connected
// agent: in registered.peers, peer_online, and peer_offline frames.
type PeerInfo struct {
	PublicKey string `json:"publicKey"`
	Name      string `json:"name,omitempty"`
	StoredFor bool   `json:"storedFor,omitempty"`
}

// Frame is the generic envelope for a single relay WebSocket text message.
// Only the fields relevant to Kind are populated; callers decode with
// DecodeFrame and then branch on Kind.
type Frame struct {
	Kind FrameKind `json:"kind"`

	// register (client -> relay)
	PublicKey string `json:"publicKey,omitempty"`
	Name      string `json:"name,omitempty"`

	// message (both directions)
	To   string            `json:"to,omitempty"`
	From string            `json:"from,omitempty"`
	Envl *envelope.Envelope `json:"envelope,omitempty"`

	// registered (relay -> client)
	Peers       []PeerInfo `json:"peers,omitempty"`
	StoredPeers []PeerInfo `json:"storedPeers,omitempty"`

	// peer_online / peer_offline reuse PublicKey/Name and:
	StoredFor bool `json:"storedFor,omitempty"`

	// error (relay -> client)
	Message string `json:"message,omitempty"`
}

// Encode serializes f as a single compact JSON object, the wire form of
// one relay WebSocket text frame.
func (f *Frame) Encode() ([]byte, error) {
	return json.Marshal(f)
}

// DecodeFrame parses raw as a single relay frame.
func DecodeFrame(raw []byte) (*Frame, error) {
	var f Frame
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("relay: malformed frame: %w", err)
	}
	return &f, nil
}

// RegisterFrame builds a client -> relay register frame.
func RegisterFrame(publicKey, name string) *Frame {
	return &Frame{Kind: FrameRegister, PublicKey: publicKey, Name: name}
}

// MessageFrame builds a client -> relay directed message frame.
func MessageFrame(to string, env *envelope.Envelope) *Frame {
	return &Frame{Kind: FrameMessage, To: to, Envl: env}
}

// BroadcastFrame builds a client -> relay broadcast frame.
func BroadcastFrame(env *envelope.Envelope) *Frame {
	return &Frame{Kind: FrameBroadcast, Envl: env}
}

// PingFrame builds a client -> relay keepalive frame.
func PingFrame() *Frame {
	return &Frame{Kind: FramePing}
}

// ErrorFrame builds a relay -> client error frame.
func ErrorFrame(message string) *Frame {
	return &Frame{Kind: FrameError, Message: message}
}

// PongFrame builds a relay -> client keepalive reply.
func PongFrame() *Frame {
	return &Frame{Kind: FramePong}
}
