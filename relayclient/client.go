package relayclient

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rookdaemon/agora/agoraerr"
	sagecrypto "github.com/rookdaemon/agora/crypto"
	"github.com/rookdaemon/agora/envelope"
	"github.com/rookdaemon/agora/internal/logger"
	"github.com/rookdaemon/agora/relay"
)

// State names a position in the per-connection-attempt state machine:
// Idle -> Connecting -> Open -> Registered -> Open/Closed.
type State string

const (
	StateIdle        State = "idle"
	StateConnecting  State = "connecting"
	StateOpen        State = "open"
	StateRegistered  State = "registered"
	StateClosed      State = "closed"
)

// Reachability is how a peer is currently known to the client: online via
// a live presence broadcast, a storage peer the relay buffers for while
// offline, both, or neither. Modeling this as one table, rather than two
// separate online/storage-peer sets, avoids updating them out of step on
// peer_offline.
type Reachability struct {
	Online      bool
	StorageFor  bool
	Name        string
}

func (r Reachability) reachable() bool { return r.Online || r.StorageFor }

// InboundMessage is a verified message delivered to the caller.
type InboundMessage struct {
	From     string
	FromName string
	Envelope *envelope.Envelope
}

// ErrorEvent is surfaced on the client's dedicated error channel: the
// client keeps reconnecting, callers observe failures best-effort.
type ErrorEvent struct {
	Op  string
	Err error
}

// Config configures a Client.
type Config struct {
	URL       string
	PublicKey string
	Name      string
	Private   sagecrypto.KeyPair

	DialTimeout       time.Duration
	KeepaliveInterval time.Duration
	MaxReconnectDelay time.Duration

	Logger logger.Logger

	// OnPresenceChange, if set, is called after every presence update
	// (registration, peer_online, peer_offline) with a snapshot of the
	// table, letting a caller persist it to a config.Document's peer
	// table so `peers list` still has something to show between
	// connected sessions.
	OnPresenceChange func(map[string]Reachability)
}

func (c *Config) setDefaults() {
	if c.DialTimeout == 0 {
		c.DialTimeout = 10 * time.Second
	}
	if c.KeepaliveInterval == 0 {
		c.KeepaliveInterval = 30 * time.Second
	}
	if c.MaxReconnectDelay == 0 {
		c.MaxReconnectDelay = 30 * time.Second
	}
}

// Client is a persistent, reconnecting relay connection for one agent
// identity.
type Client struct {
	cfg Config
	log logger.Logger

	mu            sync.RWMutex
	state         State
	ws            *websocket.Conn
	writeMu       sync.Mutex
	shouldRun     bool
	attempt       int
	reconnectTmr  *time.Timer
	keepaliveTmr  *time.Timer
	presence      map[string]Reachability

	inbound chan InboundMessage
	errs    chan ErrorEvent

	openWaiters []chan error
}

// New creates a Client. Call Connect to start the connection loop.
func New(cfg Config) *Client {
	cfg.setDefaults()
	log := cfg.Logger
	if log == nil {
		log = logger.GetDefaultLogger()
	}
	return &Client{
		cfg:      cfg,
		log:      log,
		state:    StateIdle,
		presence: make(map[string]Reachability),
		inbound:  make(chan InboundMessage, 64),
		errs:     make(chan ErrorEvent, 16),
	}
}

// Inbound returns the channel of verified messages delivered to this agent.
func (c *Client) Inbound() <-chan InboundMessage { return c.inbound }

// Errors returns the client's dedicated error channel.
func (c *Client) Errors() <-chan ErrorEvent { return c.errs }

// Registered reports whether the client currently holds an open,
// registered connection.
func (c *Client) Registered() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state == StateRegistered
}

// IsPeerOnline reports whether k is reachable: currently online, or a
// storage peer the relay buffers for while it is offline.
func (c *Client) IsPeerOnline(k string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.presence[k].reachable()
}

// Presence returns a snapshot of the client's full peer-reachability table.
func (c *Client) Presence() map[string]Reachability {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]Reachability, len(c.presence))
	for k, v := range c.presence {
		out[k] = v
	}
	return out
}

// Connect dials the relay and blocks until registration succeeds or the
// socket closes before it does. Calling it while a connection already
// exists is a no-op. Subsequent unexpected closes reconnect automatically
// in the background with no further calls required.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateIdle && c.state != StateClosed {
		c.mu.Unlock()
		return nil
	}
	c.shouldRun = true
	wait := make(chan error, 1)
	c.openWaiters = append(c.openWaiters, wait)
	c.mu.Unlock()

	go c.dial(ctx)

	select {
	case err := <-wait:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Client) resolveWaiters(err error) {
	c.mu.Lock()
	waiters := c.openWaiters
	c.openWaiters = nil
	c.mu.Unlock()
	for _, w := range waiters {
		w <- err
	}
}

func (c *Client) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

func (c *Client) dial(ctx context.Context) {
	c.setState(StateConnecting)

	dialer := &websocket.Dialer{HandshakeTimeout: c.cfg.DialTimeout}
	ws, _, err := dialer.DialContext(ctx, c.cfg.URL, nil)
	if err != nil {
		c.resolveWaiters(fmt.Errorf("relayclient: dial failed: %w", err))
		c.scheduleReconnect(ctx)
		return
	}

	c.mu.Lock()
	c.ws = ws
	c.state = StateOpen
	c.attempt = 0
	c.mu.Unlock()

	raw, err := relay.RegisterFrame(c.cfg.PublicKey, c.cfg.Name).Encode()
	if err != nil {
		c.resolveWaiters(err)
		_ = ws.Close()
		c.scheduleReconnect(ctx)
		return
	}
	if err := c.write(raw); err != nil {
		c.resolveWaiters(err)
		c.scheduleReconnect(ctx)
		return
	}

	go c.readLoop(ctx)
}

func (c *Client) write(raw []byte) error {
	c.mu.RLock()
	ws := c.ws
	c.mu.RUnlock()
	if ws == nil {
		return fmt.Errorf("relayclient: not connected")
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return ws.WriteMessage(websocket.TextMessage, raw)
}

func (c *Client) readLoop(ctx context.Context) {
	c.mu.RLock()
	ws := c.ws
	c.mu.RUnlock()

	for {
		_, raw, err := ws.ReadMessage()
		if err != nil {
			c.onClose()
			c.resolveWaiters(fmt.Errorf("relayclient: connection closed before registration: %w", err))
			c.scheduleReconnect(ctx)
			return
		}

		frame, err := relay.DecodeFrame(raw)
		if err != nil {
			c.emitError("decode", err)
			continue
		}

		switch frame.Kind {
		case relay.FrameRegistered:
			c.onRegistered(frame)
		case relay.FramePeerOnline:
			c.onPeerOnline(frame)
		case relay.FramePeerOffline:
			c.onPeerOffline(frame)
		case relay.FrameMessage:
			c.onMessage(frame)
		case relay.FramePong:
			// no action required.
		case relay.FrameError:
			c.emitError("relay", fmt.Errorf("%s", frame.Message))
		}
	}
}

func (c *Client) onRegistered(frame *relay.Frame) {
	c.mu.Lock()
	c.state = StateRegistered
	c.attempt = 0
	for _, p := range frame.Peers {
		c.presence[p.PublicKey] = Reachability{Online: true, StorageFor: p.StoredFor, Name: p.Name}
	}
	for _, p := range frame.StoredPeers {
		r := c.presence[p.PublicKey]
		r.StorageFor = true
		c.presence[p.PublicKey] = r
	}
	c.mu.Unlock()

	c.resolveWaiters(nil)
	c.startKeepalive()
	c.notifyPresenceChange()
}

func (c *Client) onPeerOnline(frame *relay.Frame) {
	c.mu.Lock()
	r := c.presence[frame.PublicKey]
	r.Online = true
	r.Name = frame.Name
	if frame.StoredFor {
		r.StorageFor = true
	}
	c.presence[frame.PublicKey] = r
	c.mu.Unlock()
	c.notifyPresenceChange()
}

func (c *Client) onPeerOffline(frame *relay.Frame) {
	c.mu.Lock()
	r := c.presence[frame.PublicKey]
	r.Online = false
	c.presence[frame.PublicKey] = r
	c.mu.Unlock()
	c.notifyPresenceChange()
}

func (c *Client) notifyPresenceChange() {
	if c.cfg.OnPresenceChange == nil {
		return
	}
	c.cfg.OnPresenceChange(c.Presence())
}

func (c *Client) onMessage(frame *relay.Frame) {
	env := frame.Envl
	if env == nil {
		c.emitError("inbound", fmt.Errorf("relayclient: message frame missing envelope"))
		return
	}
	if err := envelope.Verify(env); err != nil {
		c.emitError("inbound", agoraerr.New(agoraerr.InvalidEnvelope, err))
		return
	}
	if env.Sender != frame.From {
		c.emitError("inbound", agoraerr.New(agoraerr.SenderMismatch, fmt.Errorf("envelope sender %q does not match frame.from %q", env.Sender, frame.From)))
		return
	}

	select {
	case c.inbound <- InboundMessage{From: frame.From, FromName: frame.Name, Envelope: env}:
	default:
		c.emitError("inbound", fmt.Errorf("relayclient: inbound queue full, dropping message %s", env.ID))
	}
}

func (c *Client) emitError(op string, err error) {
	select {
	case c.errs <- ErrorEvent{Op: op, Err: err}:
	default:
	}
	c.log.Warn("relayclient: error", logger.String("op", op), logger.Error(err))
}

// Send transmits env to the agent identified by to. It fails fast without
// blocking when the client is not currently registered.
func (c *Client) Send(to string, env *envelope.Envelope) error {
	if !c.Registered() {
		return agoraerr.Sentinel(agoraerr.NotRegistered)
	}
	raw, err := relay.MessageFrame(to, env).Encode()
	if err != nil {
		return err
	}
	return c.write(raw)
}

// Broadcast transmits env to every other agent connected to the relay. It
// fails fast without blocking when the client is not currently registered.
func (c *Client) Broadcast(env *envelope.Envelope) error {
	if !c.Registered() {
		return agoraerr.Sentinel(agoraerr.NotRegistered)
	}
	raw, err := relay.BroadcastFrame(env).Encode()
	if err != nil {
		return err
	}
	return c.write(raw)
}

func (c *Client) startKeepalive() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.keepaliveTmr != nil {
		c.keepaliveTmr.Stop()
	}
	c.keepaliveTmr = time.AfterFunc(c.cfg.KeepaliveInterval, c.sendKeepalive)
}

func (c *Client) sendKeepalive() {
	c.mu.RLock()
	open := c.state == StateOpen || c.state == StateRegistered
	c.mu.RUnlock()
	if !open {
		return
	}
	raw, err := relay.PingFrame().Encode()
	if err == nil {
		_ = c.write(raw)
	}
	c.startKeepalive()
}

func (c *Client) onClose() {
	c.mu.Lock()
	c.state = StateClosed
	c.ws = nil
	if c.keepaliveTmr != nil {
		c.keepaliveTmr.Stop()
		c.keepaliveTmr = nil
	}
	for k, r := range c.presence {
		r.Online = false
		c.presence[k] = r
	}
	c.mu.Unlock()
}

// scheduleReconnect backs off by min(1000*2^n, maxReconnectDelay)
// milliseconds, with n reset to zero on a successful Open.
func (c *Client) scheduleReconnect(ctx context.Context) {
	c.mu.Lock()
	if !c.shouldRun {
		c.mu.Unlock()
		return
	}
	n := c.attempt
	c.attempt++
	delay := time.Duration(1000*(1<<uint(minInt(n, 20)))) * time.Millisecond
	if delay > c.cfg.MaxReconnectDelay {
		delay = c.cfg.MaxReconnectDelay
	}
	if c.reconnectTmr != nil {
		c.reconnectTmr.Stop()
	}
	c.reconnectTmr = time.AfterFunc(delay, func() { c.dial(ctx) })
	c.mu.Unlock()
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// Disconnect is the single cancellation point: it clears shouldRun, cancels
// any pending reconnect or keepalive timer, and closes the socket.
func (c *Client) Disconnect() error {
	c.mu.Lock()
	c.shouldRun = false
	if c.reconnectTmr != nil {
		c.reconnectTmr.Stop()
		c.reconnectTmr = nil
	}
	if c.keepaliveTmr != nil {
		c.keepaliveTmr.Stop()
		c.keepaliveTmr = nil
	}
	ws := c.ws
	c.ws = nil
	c.state = StateClosed
	c.mu.Unlock()

	if ws == nil {
		return nil
	}
	return ws.Close()
}
