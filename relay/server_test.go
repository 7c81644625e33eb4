package relay

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/rookdaemon/agora/crypto/keys"
	"github.com/rookdaemon/agora/envelope"
)

func startTestServer(t *testing.T, cfg Config) (*Server, string) {
	t.Helper()
	s := NewServer(cfg)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http")
	return s, wsURL
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func register(t *testing.T, conn *websocket.Conn, publicKey, name string) *Frame {
	t.Helper()
	raw, err := RegisterFrame(publicKey, name).Encode()
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, raw))

	_, resp, err := conn.ReadMessage()
	require.NoError(t, err)
	frame, err := DecodeFrame(resp)
	require.NoError(t, err)
	require.Equal(t, FrameRegistered, frame.Kind)
	return frame
}

func readFrame(t *testing.T, conn *websocket.Conn) *Frame {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)
	frame, err := DecodeFrame(raw)
	require.NoError(t, err)
	return frame
}

// S2: relay routing.
func TestServer_RoutesDirectedMessage(t *testing.T) {
	_, url := startTestServer(t, Config{})

	a, err := keys.GenerateEd25519KeyPair()
	require.NoError(t, err)
	b, err := keys.GenerateEd25519KeyPair()
	require.NoError(t, err)

	connA := dial(t, url)
	connB := dial(t, url)
	register(t, connA, a.ID(), "a")
	register(t, connB, b.ID(), "b")

	env, err := envelope.Create(envelope.TypePublish, a.ID(), a, map[string]int{"n": 1}, "")
	require.NoError(t, err)

	raw, err := MessageFrame(b.ID(), env).Encode()
	require.NoError(t, err)
	require.NoError(t, connA.WriteMessage(websocket.TextMessage, raw))

	frame := readFrame(t, connB)
	require.Equal(t, FrameMessage, frame.Kind)
	require.Equal(t, a.ID(), frame.From)
	require.Equal(t, env.ID, frame.Envl.ID)
	require.NoError(t, envelope.Verify(frame.Envl))
}

// S3: presence gossip.
func TestServer_PresenceGossip(t *testing.T) {
	_, url := startTestServer(t, Config{})

	a, err := keys.GenerateEd25519KeyPair()
	require.NoError(t, err)
	b, err := keys.GenerateEd25519KeyPair()
	require.NoError(t, err)

	connA := dial(t, url)
	register(t, connA, a.ID(), "a")

	connB := dial(t, url)
	register(t, connB, b.ID(), "b")

	online := readFrame(t, connA)
	require.Equal(t, FramePeerOnline, online.Kind)
	require.Equal(t, b.ID(), online.PublicKey)

	require.NoError(t, connB.Close())

	offline := readFrame(t, connA)
	require.Equal(t, FramePeerOffline, offline.Kind)
	require.Equal(t, b.ID(), offline.PublicKey)
}

// S4: store-and-forward.
func TestServer_StoreAndForward(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	require.NoError(t, err)

	p, err := keys.GenerateEd25519KeyPair()
	require.NoError(t, err)
	a, err := keys.GenerateEd25519KeyPair()
	require.NoError(t, err)

	_, url := startTestServer(t, Config{StoragePeers: []string{p.ID()}, Store: store})

	connA := dial(t, url)
	register(t, connA, a.ID(), "a")

	envX, err := envelope.Create(envelope.TypePublish, a.ID(), a, map[string]string{"m": "x"}, "")
	require.NoError(t, err)
	envY, err := envelope.Create(envelope.TypePublish, a.ID(), a, map[string]string{"m": "y"}, "")
	require.NoError(t, err)

	for _, env := range []*envelope.Envelope{envX, envY} {
		raw, err := MessageFrame(p.ID(), env).Encode()
		require.NoError(t, err)
		require.NoError(t, connA.WriteMessage(websocket.TextMessage, raw))
	}

	// The relay handles frames asynchronously; wait until both are queued.
	var entries []StoredEntry
	require.Eventually(t, func() bool {
		entries, err = store.Load(p.ID())
		return err == nil && len(entries) == 2
	}, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	connP := dial(t, url)
	raw, err := RegisterFrame(p.ID(), "p").Encode()
	require.NoError(t, err)
	require.NoError(t, connP.WriteMessage(websocket.TextMessage, raw))

	registered := readFrame(t, connP)
	require.Equal(t, FrameRegistered, registered.Kind)

	first := readFrame(t, connP)
	require.Equal(t, envX.ID, first.Envl.ID)
	second := readFrame(t, connP)
	require.Equal(t, envY.ID, second.Envl.ID)

	// The queue is cleared after the sends, in the relay's own goroutine.
	var remaining []StoredEntry
	require.Eventually(t, func() bool {
		remaining, err = store.Load(p.ID())
		return err == nil && len(remaining) == 0
	}, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, err)
	require.Empty(t, remaining)
}

// S5: peer directory.
func TestServer_PeerDirectory(t *testing.T) {
	relayKP, err := keys.GenerateEd25519KeyPair()
	require.NoError(t, err)
	identity := NewIdentity(relayKP)

	_, url := startTestServer(t, Config{Identity: identity})

	a, err := keys.GenerateEd25519KeyPair()
	require.NoError(t, err)
	b, err := keys.GenerateEd25519KeyPair()
	require.NoError(t, err)

	connA := dial(t, url)
	register(t, connA, a.ID(), "a")

	connB := dial(t, url)
	register(t, connB, b.ID(), "b")

	// A must first drain the peer_online frame for B's registration.
	online := readFrame(t, connA)
	require.Equal(t, FramePeerOnline, online.Kind)

	req, err := envelope.Create(envelope.TypePeerListRequest, a.ID(), a, map[string]interface{}{}, "")
	require.NoError(t, err)
	raw, err := MessageFrame(identity.PublicKey, req).Encode()
	require.NoError(t, err)
	require.NoError(t, connA.WriteMessage(websocket.TextMessage, raw))

	resp := readFrame(t, connA)
	require.Equal(t, FrameMessage, resp.Kind)
	require.NoError(t, envelope.Verify(resp.Envl))
	require.Equal(t, envelope.TypePeerListResponse, resp.Envl.Type)
	require.Equal(t, req.ID, resp.Envl.InReplyTo)
}

// S5b: peer directory truncates to Limit in registration order, then
// formats the kept peers alphabetically by public key.
func TestServer_PeerDirectory_LimitKeepsFirstRegistered(t *testing.T) {
	relayKP, err := keys.GenerateEd25519KeyPair()
	require.NoError(t, err)
	identity := NewIdentity(relayKP)

	_, url := startTestServer(t, Config{Identity: identity})

	viewer, err := keys.GenerateEd25519KeyPair()
	require.NoError(t, err)
	connViewer := dial(t, url)
	register(t, connViewer, viewer.ID(), "viewer")

	var registered []string
	for i := 0; i < 3; i++ {
		kp, err := keys.GenerateEd25519KeyPair()
		require.NoError(t, err)
		conn := dial(t, url)
		register(t, conn, kp.ID(), "")
		registered = append(registered, kp.ID())

		online := readFrame(t, connViewer)
		require.Equal(t, FramePeerOnline, online.Kind)
	}

	req, err := envelope.Create(envelope.TypePeerListRequest, viewer.ID(), viewer, map[string]interface{}{
		"filters": map[string]interface{}{"limit": 2},
	}, "")
	require.NoError(t, err)
	raw, err := MessageFrame(identity.PublicKey, req).Encode()
	require.NoError(t, err)
	require.NoError(t, connViewer.WriteMessage(websocket.TextMessage, raw))

	resp := readFrame(t, connViewer)
	require.NoError(t, envelope.Verify(resp.Envl))

	var payload peerListResponsePayload
	require.NoError(t, json.Unmarshal(resp.Envl.Payload, &payload))
	require.Equal(t, 3, payload.TotalPeers)
	require.Len(t, payload.Peers, 2)

	kept := []string{payload.Peers[0].PublicKey, payload.Peers[1].PublicKey}
	require.ElementsMatch(t, registered[:2], kept, "limit should keep the first-registered agents, not the alphabetically-first ones")
}
