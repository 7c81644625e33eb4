// Package restapi is an HTTP front end that lets a caller register a
// public key for a bearer token, then send/receive already-signed
// envelopes through a relay connection the façade manages on the
// caller's behalf. The façade never mints envelope ids or signatures; it
// only transports what the caller already signed.
package restapi

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/sync/singleflight"

	"github.com/rookdaemon/agora/envelope"
	"github.com/rookdaemon/agora/internal/logger"
	"github.com/rookdaemon/agora/relayclient"
)

// Config configures a Server.
type Config struct {
	Secret      []byte
	RelayURL    string
	MailboxSize int
	TokenTTL    time.Duration
	Logger      logger.Logger
}

func (c *Config) setDefaults() {
	if c.MailboxSize == 0 {
		c.MailboxSize = 64
	}
	if c.TokenTTL == 0 {
		c.TokenTTL = time.Hour
	}
}

// claims is the JWT payload minted by /register: the public key it is
// scoped to, nothing else. The façade never signs anything on the agent's
// behalf, so the token carries no capability beyond "route to/from this
// already-known public key".
type claims struct {
	PublicKey string `json:"publicKey"`
	jwt.RegisteredClaims
}

// session is the façade's per-token state: a lazily-opened relay
// connection and its bounded inbound mailbox.
type session struct {
	mu        sync.Mutex
	publicKey string
	name      string
	client    *relayclient.Client
	mailbox   *mailbox
}

// Server is the REST façade's HTTP handler set.
type Server struct {
	cfg Config
	log logger.Logger

	mu       sync.Mutex
	sessions map[string]*session // keyed by raw bearer token

	// connectSF collapses concurrent first-connect calls for the same
	// token into a single dial, so two requests racing to be the first
	// to use a fresh session don't open two relay connections.
	connectSF singleflight.Group
}

// NewServer returns a ready Server; call Handler to mount it.
func NewServer(cfg Config) *Server {
	cfg.setDefaults()
	log := cfg.Logger
	if log == nil {
		log = logger.GetDefaultLogger()
	}
	return &Server{cfg: cfg, log: log, sessions: make(map[string]*session)}
}

// Handler mounts the façade's routes on a fresh http.ServeMux.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /register", s.handleRegister)
	mux.HandleFunc("POST /send", s.withAuth(s.handleSend))
	mux.HandleFunc("GET /peers", s.withAuth(s.handlePeers))
	mux.HandleFunc("GET /messages", s.withAuth(s.handleMessages))
	mux.HandleFunc("POST /disconnect", s.withAuth(s.handleDisconnect))
	return mux
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeFailure(w http.ResponseWriter, status int, reason string) {
	writeJSON(w, status, map[string]string{"status": "failed", "reason": reason})
}

type registerRequest struct {
	PublicKey string `json:"publicKey"`
	Name      string `json:"name,omitempty"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFailure(w, http.StatusBadRequest, "malformed_request")
		return
	}
	if req.PublicKey == "" {
		writeFailure(w, http.StatusBadRequest, "missing_public_key")
		return
	}

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		PublicKey: req.PublicKey,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.TokenTTL)),
		},
	})
	signed, err := token.SignedString(s.cfg.Secret)
	if err != nil {
		writeFailure(w, http.StatusInternalServerError, "token_signing_failed")
		return
	}

	s.mu.Lock()
	s.sessions[signed] = &session{
		publicKey: req.PublicKey,
		name:      req.Name,
		mailbox:   newMailbox(s.cfg.MailboxSize),
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]string{"token": signed})
}

type ctxKey int

const sessionCtxKey ctxKey = 0

func (s *Server) withAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tok := bearerToken(r)
		if tok == "" {
			writeFailure(w, http.StatusUnauthorized, "missing_token")
			return
		}
		if _, err := jwt.ParseWithClaims(tok, &claims{}, func(*jwt.Token) (interface{}, error) {
			return s.cfg.Secret, nil
		}); err != nil {
			writeFailure(w, http.StatusUnauthorized, "invalid_token")
			return
		}

		s.mu.Lock()
		sess, ok := s.sessions[tok]
		s.mu.Unlock()
		if !ok {
			writeFailure(w, http.StatusUnauthorized, "unknown_token")
			return
		}

		next(w, r.WithContext(context.WithValue(r.Context(), sessionCtxKey, sess)))
	}
}

func bearerToken(r *http.Request) string {
	const prefix = "Bearer "
	auth := r.Header.Get("Authorization")
	if len(auth) <= len(prefix) || auth[:len(prefix)] != prefix {
		return ""
	}
	return auth[len(prefix):]
}

// ensureConnected lazily opens sess's relay connection the first time a
// call needs one, rather than at registration time. token keys the
// singleflight call so concurrent requests against the same session wait
// for one dial instead of racing to start their own.
func (s *Server) ensureConnected(ctx context.Context, token string, sess *session) (*relayclient.Client, error) {
	sess.mu.Lock()
	if sess.client != nil {
		c := sess.client
		sess.mu.Unlock()
		return c, nil
	}
	sess.mu.Unlock()

	v, err, _ := s.connectSF.Do(token, func() (interface{}, error) {
		sess.mu.Lock()
		defer sess.mu.Unlock()
		if sess.client != nil {
			return sess.client, nil
		}

		c := relayclient.New(relayclient.Config{
			URL:       s.cfg.RelayURL,
			PublicKey: sess.publicKey,
			Name:      sess.name,
			Logger:    s.log,
		})
		if err := c.Connect(ctx); err != nil {
			return nil, err
		}
		sess.client = c

		go func(mb *mailbox, inbound <-chan relayclient.InboundMessage) {
			for msg := range inbound {
				mb.push(msg)
			}
		}(sess.mailbox, c.Inbound())

		return c, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*relayclient.Client), nil
}

type sendRequest struct {
	To       string             `json:"to"`
	Envelope *envelope.Envelope `json:"envelope"`
}

func (s *Server) handleSend(w http.ResponseWriter, r *http.Request) {
	sess := r.Context().Value(sessionCtxKey).(*session)

	var req sendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Envelope == nil || req.To == "" {
		writeFailure(w, http.StatusBadRequest, "malformed_request")
		return
	}

	client, err := s.ensureConnected(r.Context(), bearerToken(r), sess)
	if err != nil {
		writeFailure(w, http.StatusServiceUnavailable, "relay_unavailable")
		return
	}

	if err := client.Send(req.To, req.Envelope); err != nil {
		writeFailure(w, http.StatusBadGateway, "send_failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type peerView struct {
	PublicKey  string `json:"publicKey"`
	Name       string `json:"name,omitempty"`
	Online     bool   `json:"online"`
	StorageFor bool   `json:"storageFor"`
}

func (s *Server) handlePeers(w http.ResponseWriter, r *http.Request) {
	sess := r.Context().Value(sessionCtxKey).(*session)

	client, err := s.ensureConnected(r.Context(), bearerToken(r), sess)
	if err != nil {
		writeFailure(w, http.StatusServiceUnavailable, "relay_unavailable")
		return
	}

	presence := client.Presence()
	peers := make([]peerView, 0, len(presence))
	for pk, r := range presence {
		peers = append(peers, peerView{PublicKey: pk, Name: r.Name, Online: r.Online, StorageFor: r.StorageFor})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"peers": peers})
}

func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request) {
	sess := r.Context().Value(sessionCtxKey).(*session)
	writeJSON(w, http.StatusOK, map[string]interface{}{"messages": sess.mailbox.drain()})
}

func (s *Server) handleDisconnect(w http.ResponseWriter, r *http.Request) {
	sess := r.Context().Value(sessionCtxKey).(*session)
	tok := bearerToken(r)

	sess.mu.Lock()
	if sess.client != nil {
		_ = sess.client.Disconnect()
		sess.client = nil
	}
	sess.mu.Unlock()

	s.mu.Lock()
	delete(s.sessions, tok)
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
