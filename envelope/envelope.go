// Package envelope implements the signed, content-addressed message
// primitive agents exchange over the relay: every envelope carries a
// closed-set message type, a canonical pre-image used for both its id and
// its signature, and an opaque payload whose shape is dictated by that
// type but never inspected by this package.
package envelope

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/rookdaemon/agora/canon"
	sagecrypto "github.com/rookdaemon/agora/crypto"
	"github.com/rookdaemon/agora/crypto/keys"
)

// Type is one of the closed set of message kinds the core recognizes.
// Unknown kinds still round-trip through Create/Verify as opaque
// envelopes; Type is a string, not a restricted Go type, precisely so
// callers can route an unrecognized kind without the compiler objecting.
type Type string

const (
	TypeAnnounce            Type = "announce"
	TypeDiscover            Type = "discover"
	TypeRequest             Type = "request"
	TypeResponse            Type = "response"
	TypePublish             Type = "publish"
	TypeSubscribe           Type = "subscribe"
	TypeVerify              Type = "verify"
	TypeAck                 Type = "ack"
	TypeError               Type = "error"
	TypePaperDiscovery      Type = "paper_discovery"
	TypeCapabilityAnnounce  Type = "capability_announce"
	TypeCapabilityQuery     Type = "capability_query"
	TypeCapabilityResponse  Type = "capability_response"
	TypePeerListRequest     Type = "peer_list_request"
	TypePeerListResponse    Type = "peer_list_response"
	TypePeerReferral        Type = "peer_referral"
	TypeCommit              Type = "commit"
	TypeReveal              Type = "reveal"
	TypeVerification        Type = "verification"
	TypeRevocation          Type = "revocation"
)

// knownTypes enumerates the closed set for documentation and CLI listing
// purposes only; it is never used to reject an envelope, per the
// "accept unknown kinds as opaque" requirement.
var knownTypes = []Type{
	TypeAnnounce, TypeDiscover, TypeRequest, TypeResponse, TypePublish,
	TypeSubscribe, TypeVerify, TypeAck, TypeError, TypePaperDiscovery,
	TypeCapabilityAnnounce, TypeCapabilityQuery, TypeCapabilityResponse,
	TypePeerListRequest, TypePeerListResponse, TypePeerReferral,
	TypeCommit, TypeReveal, TypeVerification, TypeRevocation,
}

// KnownTypes returns the closed set of message kinds the core enumerates.
func KnownTypes() []Type {
	out := make([]Type, len(knownTypes))
	copy(out, knownTypes)
	return out
}

// Envelope is the universal message wrapper.
type Envelope struct {
	ID        string          `json:"id"`
	Type      Type            `json:"type"`
	Sender    string          `json:"sender"`
	Timestamp int64           `json:"timestamp"`
	InReplyTo string          `json:"inReplyTo,omitempty"`
	Payload   json.RawMessage `json:"payload"`
	Signature string          `json:"signature"`
}

// Reason names which invariant check failed verification.
type Reason string

const (
	ReasonIDMismatch       Reason = "id_mismatch"
	ReasonSignatureInvalid Reason = "signature_invalid"
)

// VerifyError reports which invariant a failed envelope violated.
type VerifyError struct {
	Reason Reason
}

func (e *VerifyError) Error() string { return "envelope: " + string(e.Reason) }

var ErrInvalidSender = errors.New("envelope: sender is not valid hex")

// preimage builds the canonical-pre-image value for an envelope: the
// fields {payload, sender, timestamp, type, inReplyTo?}, with inReplyTo
// omitted entirely (not emitted as null) when absent.
func preimage(typ Type, sender string, timestamp int64, payload json.RawMessage, inReplyTo string) (map[string]interface{}, error) {
	var payloadValue interface{}
	if len(payload) == 0 {
		payloadValue = nil
	} else if err := json.Unmarshal(payload, &payloadValue); err != nil {
		return nil, err
	}

	m := map[string]interface{}{
		"type":      string(typ),
		"sender":    sender,
		"timestamp": timestamp,
		"payload":   payloadValue,
	}
	if inReplyTo != "" {
		m["inReplyTo"] = inReplyTo
	}
	return m, nil
}

// Create builds a signed, content-addressed envelope. payload is
// marshaled to JSON as-is; pass a json.RawMessage to carry bytes you've
// already serialized, or any other JSON-marshalable value otherwise.
func Create(typ Type, sender string, private sagecrypto.KeyPair, payload interface{}, inReplyTo string) (*Envelope, error) {
	payloadRaw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	timestamp := time.Now().UnixMilli()

	pre, err := preimage(typ, sender, timestamp, payloadRaw, inReplyTo)
	if err != nil {
		return nil, err
	}
	canonBytes, err := canon.MarshalChecked(pre)
	if err != nil {
		return nil, err
	}

	sum := sha256.Sum256(canonBytes)
	id := hex.EncodeToString(sum[:])

	sig, err := private.Sign(canonBytes)
	if err != nil {
		return nil, err
	}

	return &Envelope{
		ID:        id,
		Type:      typ,
		Sender:    sender,
		Timestamp: timestamp,
		InReplyTo: inReplyTo,
		Payload:   payloadRaw,
		Signature: sagecrypto.EncodeHex(sig),
	}, nil
}

// Verify recomputes the canonical pre-image from env's own fields and
// checks I1 (id matches) and I2 (signature verifies against sender). A
// verified envelope is safe to route, store, or display; no field may be
// mutated in place afterward without invalidating both checks.
func Verify(env *Envelope) error {
	pre, err := preimage(env.Type, env.Sender, env.Timestamp, env.Payload, env.InReplyTo)
	if err != nil {
		return &VerifyError{Reason: ReasonIDMismatch}
	}
	canonBytes, err := canon.MarshalChecked(pre)
	if err != nil {
		return &VerifyError{Reason: ReasonIDMismatch}
	}

	sum := sha256.Sum256(canonBytes)
	if hex.EncodeToString(sum[:]) != env.ID {
		return &VerifyError{Reason: ReasonIDMismatch}
	}

	senderKey, err := sagecrypto.DecodeHex(env.Sender)
	if err != nil {
		return &VerifyError{Reason: ReasonSignatureInvalid}
	}
	sig, err := sagecrypto.DecodeHex(env.Signature)
	if err != nil {
		return &VerifyError{Reason: ReasonSignatureInvalid}
	}

	verifier, err := keys.ImportEd25519PublicKey(sagecrypto.EncodeHex(senderKey))
	if err != nil {
		return &VerifyError{Reason: ReasonSignatureInvalid}
	}
	if err := verifier.Verify(canonBytes, sig); err != nil {
		return &VerifyError{Reason: ReasonSignatureInvalid}
	}
	return nil
}
