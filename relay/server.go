package relay

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rookdaemon/agora/envelope"
	"github.com/rookdaemon/agora/internal/logger"
	"github.com/rookdaemon/agora/internal/metrics"
	sagecrypto "github.com/rookdaemon/agora/crypto"
)

// Identity is the relay's own keypair, used only to sign peer_list_response
// envelopes for the directory service. It never participates in routing
// decisions otherwise.
type Identity struct {
	PublicKey string
	private   sagecrypto.KeyPair
}

// NewIdentity wraps a keypair as the relay's own identity.
func NewIdentity(kp sagecrypto.KeyPair) *Identity {
	return &Identity{PublicKey: kp.ID(), private: kp}
}

// Config configures a Server.
type Config struct {
	// StoragePeers is the fixed allowlist of public keys the store is
	// consulted for. A public key outside this list is never
	// store-and-forwarded to, even while offline.
	StoragePeers []string
	// Identity, if set, turns on the peer directory service.
	Identity *Identity
	// Store backs store-and-forward delivery. Required if StoragePeers is
	// non-empty.
	Store Store
	// Logger receives non-fatal per-connection errors. Defaults to the
	// package-level default logger.
	Logger logger.Logger
}

// agentEntry is the relay's in-memory record for one agent. conn is nil
// for a storage peer that is a configured but not currently connected.
type agentEntry struct {
	record AgentRecord
	conn   *connection
	// seq is the order this entry was registered in, used to keep
	// directory truncation stable regardless of map iteration order.
	seq uint64
}

// AgentRecord is the relay-side agent record.
type AgentRecord struct {
	PublicKey string
	Name      string
	LastSeen  time.Time
	Metadata  map[string]string
}

// connection wraps one WebSocket connection. gorilla/websocket connections
// may have at most one concurrent writer, hence writeMu.
type connection struct {
	ws        *websocket.Conn
	writeMu   sync.Mutex
	publicKey string
	name      string
}

func (c *connection) send(f *Frame) error {
	raw, err := f.Encode()
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.ws.WriteMessage(websocket.TextMessage, raw)
}

// Server is the relay: an agent registry, a frame router, and (optionally)
// a signed peer directory and store-and-forward for designated storage
// peers.
type Server struct {
	mu           sync.RWMutex
	agents       map[string]*agentEntry
	storageAllow map[string]bool
	nextSeq      uint64

	store    Store
	identity *Identity
	events   *EventBus
	log      logger.Logger
	upgrader websocket.Upgrader
}

// NewServer creates a Server from cfg.
func NewServer(cfg Config) *Server {
	allow := make(map[string]bool, len(cfg.StoragePeers))
	for _, pk := range cfg.StoragePeers {
		allow[pk] = true
	}

	log := cfg.Logger
	if log == nil {
		log = logger.GetDefaultLogger()
	}

	return &Server{
		agents:       make(map[string]*agentEntry),
		storageAllow: allow,
		store:        cfg.Store,
		identity:     cfg.Identity,
		events:       NewEventBus(),
		log:          log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Events returns the relay's event bus for observers.
func (s *Server) Events() *EventBus { return s.events }

// Handler returns an http.Handler that upgrades requests to the relay
// WebSocket protocol and serves one connection state machine per socket.
func (s *Server) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := s.upgrader.Upgrade(w, r, nil)
		if err != nil {
			http.Error(w, fmt.Sprintf("relay: upgrade failed: %v", err), http.StatusBadRequest)
			return
		}
		s.serveConnection(r.Context(), ws)
	})
}

// serveConnection runs the per-connection state machine:
// AwaitingRegister -> Registered -> Closed.
func (s *Server) serveConnection(ctx context.Context, ws *websocket.Conn) {
	conn := &connection{ws: ws}
	defer ws.Close()

	registered := false

	for {
		_, raw, err := ws.ReadMessage()
		if err != nil {
			break
		}

		frame, decodeErr := DecodeFrame(raw)

		if !registered {
			if decodeErr != nil || frame.Kind != FrameRegister || frame.PublicKey == "" {
				_ = conn.send(ErrorFrame("expected register"))
				return
			}
			s.handleRegister(conn, frame)
			registered = true
			continue
		}

		if decodeErr != nil {
			_ = conn.send(ErrorFrame("malformed frame"))
			continue
		}

		start := time.Now()
		switch frame.Kind {
		case FrameMessage:
			s.handleMessage(conn, frame)
		case FrameBroadcast:
			s.handleBroadcast(conn, frame)
		case FramePing:
			_ = conn.send(PongFrame())
		default:
			_ = conn.send(ErrorFrame("unrecognized frame kind"))
		}
		metrics.RoutingDuration.WithLabelValues(string(frame.Kind)).Observe(time.Since(start).Seconds())
	}

	s.handleClose(conn)
}

// handleRegister implements the register transition.
func (s *Server) handleRegister(conn *connection, frame *Frame) {
	pk := frame.PublicKey

	s.mu.Lock()
	if existing, ok := s.agents[pk]; ok && existing.conn != nil {
		// Last-write-wins: close the prior connection first.
		_ = existing.conn.ws.Close()
	}
	s.nextSeq++
	s.agents[pk] = &agentEntry{
		record: AgentRecord{PublicKey: pk, Name: frame.Name, LastSeen: time.Now()},
		conn:   conn,
		seq:    s.nextSeq,
	}
	peers := s.snapshotPeersLocked(pk)
	stored := s.snapshotStoragePeersLocked()
	s.mu.Unlock()

	conn.publicKey = pk
	conn.name = frame.Name

	_ = conn.send(&Frame{
		Kind:        FrameRegistered,
		PublicKey:   pk,
		Peers:       peers,
		StoredPeers: stored,
	})

	s.broadcastPresence(FramePeerOnline, pk, frame.Name, s.storageAllow[pk])

	metrics.AgentsRegistered.Inc()
	s.mu.RLock()
	metrics.AgentsOnline.Set(float64(len(s.agents)))
	s.mu.RUnlock()

	s.events.Publish(Event{Kind: EventPeerConnected, Fields: map[string]interface{}{"publicKey": pk}})

	if s.storageAllow[pk] && s.store != nil {
		entries, err := s.store.Load(pk)
		if err != nil {
			s.log.Error("relay: load store-and-forward queue failed", logger.String("publicKey", pk), logger.Error(err))
			return
		}
		for _, entry := range entries {
			_ = conn.send(&Frame{Kind: FrameMessage, From: entry.From, Name: entry.FromName, Envl: entry.Envelope})
			metrics.StoreForwardDelivered.Inc()
		}
		if err := s.store.Clear(pk); err != nil {
			s.log.Error("relay: clear store-and-forward queue failed", logger.String("publicKey", pk), logger.Error(err))
		}
	}
}

// snapshotPeersLocked builds the peers list for a registered frame: every
// other connected agent, plus any configured storage peer not already
// represented. Callers must hold s.mu.
func (s *Server) snapshotPeersLocked(exclude string) []PeerInfo {
	peers := make([]PeerInfo, 0, len(s.agents))
	seen := make(map[string]bool)

	for pk, entry := range s.agents {
		if pk == exclude || entry.conn == nil {
			continue
		}
		peers = append(peers, PeerInfo{PublicKey: pk, Name: entry.record.Name, StoredFor: s.storageAllow[pk]})
		seen[pk] = true
	}
	sort.Slice(peers, func(i, j int) bool { return peers[i].PublicKey < peers[j].PublicKey })

	for pk := range s.storageAllow {
		if pk == exclude || seen[pk] {
			continue
		}
		peers = append(peers, PeerInfo{PublicKey: pk, StoredFor: true})
	}
	return peers
}

// snapshotStoragePeersLocked lists every configured storage peer,
// connected or not, for the registered frame's storedPeers field.
func (s *Server) snapshotStoragePeersLocked() []PeerInfo {
	out := make([]PeerInfo, 0, len(s.storageAllow))
	for pk := range s.storageAllow {
		out = append(out, PeerInfo{PublicKey: pk})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PublicKey < out[j].PublicKey })
	return out
}

// broadcastPresence emits peer_online/peer_offline to every other
// currently connected agent.
func (s *Server) broadcastPresence(kind FrameKind, publicKey, name string, storedFor bool) {
	s.mu.RLock()
	targets := make([]*connection, 0, len(s.agents))
	for pk, entry := range s.agents {
		if pk == publicKey || entry.conn == nil {
			continue
		}
		targets = append(targets, entry.conn)
	}
	s.mu.RUnlock()

	frame := &Frame{Kind: kind, PublicKey: publicKey, Name: name, StoredFor: storedFor}
	for _, conn := range targets {
		if err := conn.send(frame); err != nil {
			s.events.Publish(Event{Kind: EventError, Fields: map[string]interface{}{
				"op": "presence", "publicKey": conn.publicKey, "error": err.Error(),
			}})
		}
	}
}

// handleMessage implements the Registered/message transition.
func (s *Server) handleMessage(conn *connection, frame *Frame) {
	env := frame.Envl
	if env == nil {
		_ = conn.send(ErrorFrame("missing envelope"))
		return
	}
	if err := envelope.Verify(env); err != nil {
		_ = conn.send(ErrorFrame("invalid envelope"))
		return
	}
	if env.Sender != conn.publicKey {
		_ = conn.send(ErrorFrame("sender mismatch"))
		return
	}
	s.touchLastSeen(conn.publicKey)

	if s.identity != nil && env.Type == envelope.TypePeerListRequest && frame.To == s.identity.PublicKey {
		s.handlePeerListRequest(conn, env)
		return
	}

	s.route(conn, frame.To, env)
}

// route delivers env to its recipient, buffering it if the recipient is a
// disconnected storage peer, or replying with an error otherwise.
func (s *Server) route(conn *connection, to string, env *envelope.Envelope) {
	s.mu.RLock()
	recipient, known := s.agents[to]
	isStorage := s.storageAllow[to]
	s.mu.RUnlock()

	switch {
	case known && recipient.conn != nil:
		msg := &Frame{Kind: FrameMessage, From: conn.publicKey, Name: conn.name, Envl: env}
		if err := recipient.conn.send(msg); err != nil {
			s.events.Publish(Event{Kind: EventError, Fields: map[string]interface{}{
				"op": "route", "to": to, "error": err.Error(),
			}})
		}
		metrics.MessagesRouted.WithLabelValues("delivered").Inc()
		s.events.Publish(Event{Kind: EventMessageRelayed, Fields: map[string]interface{}{
			"from": conn.publicKey, "to": to, "envelopeId": env.ID,
		}})
	case isStorage && s.store != nil:
		if err := s.store.Enqueue(to, StoredEntry{From: conn.publicKey, FromName: conn.name, Envelope: env}); err != nil {
			_ = conn.send(ErrorFrame("storage failure"))
			metrics.MessagesRouted.WithLabelValues("error").Inc()
			return
		}
		metrics.MessagesRouted.WithLabelValues("stored").Inc()
		metrics.StoreForwardEnqueued.Inc()
		s.events.Publish(Event{Kind: EventMessageRelayed, Fields: map[string]interface{}{
			"from": conn.publicKey, "to": to, "envelopeId": env.ID,
		}})
	default:
		_ = conn.send(ErrorFrame("Recipient not connected"))
		metrics.MessagesRouted.WithLabelValues("error").Inc()
		s.events.Publish(Event{Kind: EventError, Fields: map[string]interface{}{
			"op": "route", "to": to, "error": "recipient not connected",
		}})
	}
}

// handleBroadcast implements the Registered/broadcast transition.
func (s *Server) handleBroadcast(conn *connection, frame *Frame) {
	env := frame.Envl
	if env == nil {
		_ = conn.send(ErrorFrame("missing envelope"))
		return
	}
	if err := envelope.Verify(env); err != nil {
		_ = conn.send(ErrorFrame("invalid envelope"))
		return
	}
	if env.Sender != conn.publicKey {
		_ = conn.send(ErrorFrame("sender mismatch"))
		return
	}
	s.touchLastSeen(conn.publicKey)

	s.mu.RLock()
	targets := make([]*connection, 0, len(s.agents))
	for pk, entry := range s.agents {
		if pk == conn.publicKey || entry.conn == nil {
			continue
		}
		targets = append(targets, entry.conn)
	}
	s.mu.RUnlock()

	msg := &Frame{Kind: FrameMessage, From: conn.publicKey, Name: conn.name, Envl: env}
	for _, target := range targets {
		if err := target.send(msg); err != nil {
			s.events.Publish(Event{Kind: EventError, Fields: map[string]interface{}{
				"op": "broadcast", "to": target.publicKey, "error": err.Error(),
			}})
		}
	}
	metrics.Broadcasts.Inc()
}

// touchLastSeen updates an agent's lastSeen on every inbound frame.
func (s *Server) touchLastSeen(publicKey string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entry, ok := s.agents[publicKey]; ok {
		entry.record.LastSeen = time.Now()
	}
}

// handleClose implements the Registered/socket-close transition.
func (s *Server) handleClose(conn *connection) {
	if conn.publicKey == "" {
		return
	}

	s.mu.Lock()
	entry, ok := s.agents[conn.publicKey]
	isStorage := s.storageAllow[conn.publicKey]
	if ok && entry.conn == conn {
		if isStorage {
			entry.conn = nil
		} else {
			delete(s.agents, conn.publicKey)
		}
	}
	count := len(s.agents)
	s.mu.Unlock()

	if !ok {
		return
	}

	s.broadcastPresence(FramePeerOffline, conn.publicKey, conn.name, isStorage)
	metrics.AgentsOnline.Set(float64(count))
	s.events.Publish(Event{Kind: EventPeerDisconnected, Fields: map[string]interface{}{"publicKey": conn.publicKey}})
}
