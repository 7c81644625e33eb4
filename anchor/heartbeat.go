package anchor

import (
	"encoding/json"
	"fmt"
	"time"

	sagecrypto "github.com/rookdaemon/agora/crypto"
)

// Heartbeat is the record BuildHeartbeat produces from a chain time and the
// local time (`agora diagnose --anchor` reports skew without building one).
// It is signed by the operator's
// secp256k1 key, never the agent's Ed25519 identity key — anchor
// transactions are unrelated to envelope or reputation-record signing.
type Heartbeat struct {
	Chain      string    `json:"chain"`
	ChainTime  time.Time `json:"chainTime"`
	LocalTime  time.Time `json:"localTime"`
	SkewMillis int64     `json:"skewMillis"`
	Operator   string    `json:"operator"`
	Signature  string    `json:"signature,omitempty"`
}

// heartbeatPreimage is what gets signed: every field but the signature
// itself, in a fixed order so signing is deterministic.
func (h Heartbeat) heartbeatPreimage() []byte {
	raw, _ := json.Marshal(struct {
		Chain      string `json:"chain"`
		ChainTime  int64  `json:"chainTime"`
		LocalTime  int64  `json:"localTime"`
		SkewMillis int64  `json:"skewMillis"`
		Operator   string `json:"operator"`
	}{
		Chain:      h.Chain,
		ChainTime:  h.ChainTime.UnixMilli(),
		LocalTime:  h.LocalTime.UnixMilli(),
		SkewMillis: h.SkewMillis,
		Operator:   h.Operator,
	})
	return raw
}

// BuildHeartbeat compares chainTime, read from the chain named clockChain,
// against localTime and signs the result
// with operator, a secp256k1 KeyPair (keys.GenerateSecp256k1KeyPair or
// keys.ImportSecp256k1KeyPair).
func BuildHeartbeat(clockChain string, chainTime, localTime time.Time, operator sagecrypto.KeyPair) (*Heartbeat, error) {
	if operator.Type() != sagecrypto.KeyTypeSecp256k1 {
		return nil, fmt.Errorf("anchor: heartbeat operator key must be secp256k1, got %s", operator.Type())
	}
	h := &Heartbeat{
		Chain:      clockChain,
		ChainTime:  chainTime,
		LocalTime:  localTime,
		SkewMillis: chainTime.Sub(localTime).Milliseconds(),
		Operator:   operator.ID(),
	}
	sig, err := operator.Sign(h.heartbeatPreimage())
	if err != nil {
		return nil, fmt.Errorf("anchor: sign heartbeat: %w", err)
	}
	h.Signature = sagecrypto.EncodeHex(sig)
	return h, nil
}

// VerifyHeartbeat checks h.Signature against operator, typically imported
// from h.Operator's hex public key for a purely local check (no chain
// submission is required — the heartbeat's value is in the signed record,
// not in on-chain settlement).
func VerifyHeartbeat(h *Heartbeat, operator sagecrypto.KeyPair) error {
	sig, err := sagecrypto.DecodeHex(h.Signature)
	if err != nil {
		return fmt.Errorf("anchor: decode heartbeat signature: %w", err)
	}
	if err := operator.Verify(h.heartbeatPreimage(), sig); err != nil {
		return fmt.Errorf("anchor: verify heartbeat: %w", err)
	}
	return nil
}
