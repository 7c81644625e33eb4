// Package webhook implements the HTTP transport that delivers a signed
// envelope straight to a peer's own endpoint instead of through a relay.
// `agora send` uses it for a recipient whose peer-table entry has a URL.
package webhook

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rookdaemon/agora/envelope"
)

const envelopePrefix = "[AGORA_ENVELOPE]"

// Client posts envelopes to a peer's webhook endpoint.
type Client struct {
	httpClient *http.Client
}

// NewClient returns a Client with a 30s default timeout.
func NewClient() *Client {
	return &Client{httpClient: &http.Client{Timeout: 30 * time.Second}}
}

// outboundPayload is the JSON body POSTed to {peerURL}/agent.
type outboundPayload struct {
	Message    string `json:"message"`
	Name       string `json:"name,omitempty"`
	SessionKey string `json:"sessionKey,omitempty"`
	Deliver    bool   `json:"deliver"`
}

// Send POSTs env, wrapped per Encode, to {peerURL}/agent with peerToken as
// a bearer credential. name and sessionKey are carried through for the
// receiving agent's own bookkeeping; deliver is always false — this is a
// push notification, not a request awaiting a synchronous reply.
func (c *Client) Send(ctx context.Context, peerURL, peerToken string, env *envelope.Envelope, name, sessionKey string) error {
	encoded, err := Encode(env)
	if err != nil {
		return fmt.Errorf("webhook: encode envelope: %w", err)
	}

	body, err := json.Marshal(outboundPayload{
		Message:    encoded,
		Name:       name,
		SessionKey: sessionKey,
		Deliver:    false,
	})
	if err != nil {
		return fmt.Errorf("webhook: marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, peerURL+"/agent", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+peerToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("webhook: post to %s: %w", peerURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("webhook: %s returned %d: %s", peerURL, resp.StatusCode, string(respBody))
	}
	return nil
}

// Encode wraps env in the wire format Send posts: the literal prefix
// "[AGORA_ENVELOPE]" followed by the base64url encoding of env's JSON.
func Encode(env *envelope.Envelope) (string, error) {
	raw, err := json.Marshal(env)
	if err != nil {
		return "", err
	}
	return envelopePrefix + base64.URLEncoding.EncodeToString(raw), nil
}

// Step names the stage at which Decode failed.
type Step string

const (
	StepPrefix        Step = "prefix"
	StepBase64        Step = "base64"
	StepJSON          Step = "json"
	StepVerify        Step = "verify"
	StepUnknownSender Step = "unknown_sender"
)

// DecodeError names the exact step a Decode call failed at.
type DecodeError struct {
	Step  Step
	Cause error
}

func (e *DecodeError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("webhook: decode failed at %s: %v", e.Step, e.Cause)
	}
	return fmt.Sprintf("webhook: decode failed at %s", e.Step)
}

func (e *DecodeError) Unwrap() error { return e.Cause }

// Decode reverses Encode and verifies the result: prefix check, base64url
// decode, JSON unmarshal, envelope.Verify, then a known-peer check against
// knownSenders (a set of hex public keys the caller trusts). Any failing
// step returns a *DecodeError naming it.
func Decode(message string, knownSenders map[string]bool) (*envelope.Envelope, error) {
	if len(message) < len(envelopePrefix) || message[:len(envelopePrefix)] != envelopePrefix {
		return nil, &DecodeError{Step: StepPrefix}
	}

	raw, err := base64.URLEncoding.DecodeString(message[len(envelopePrefix):])
	if err != nil {
		return nil, &DecodeError{Step: StepBase64, Cause: err}
	}

	var env envelope.Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, &DecodeError{Step: StepJSON, Cause: err}
	}

	if err := envelope.Verify(&env); err != nil {
		return nil, &DecodeError{Step: StepVerify, Cause: err}
	}

	if knownSenders != nil && !knownSenders[env.Sender] {
		return nil, &DecodeError{Step: StepUnknownSender}
	}

	return &env, nil
}
