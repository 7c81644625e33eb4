// Package reputation implements the signed record types of the reputation
// ledger: verifications, commit/reveal predictions, and revocations. Each
// create* function stamps the current time, canonicalizes the record
// payload, derives a content-addressed id, and signs the canonical bytes
// with the author's private key, mirroring the envelope package's
// construction discipline.
package reputation

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	sagecrypto "github.com/rookdaemon/agora/crypto"
	"github.com/rookdaemon/agora/crypto/keys"
	"github.com/rookdaemon/agora/canon"
)

// Verdict is the outcome a Verification asserts about its target.
type Verdict string

const (
	VerdictCorrect   Verdict = "correct"
	VerdictIncorrect Verdict = "incorrect"
	VerdictDisputed  Verdict = "disputed"
)

// Verification is a signed assertion about another agent's output in a
// named domain.
type Verification struct {
	ID         string                 `json:"id"`
	Verifier   string                 `json:"verifier"`
	Target     string                 `json:"target"`
	Domain     string                 `json:"domain"`
	Verdict    Verdict                `json:"verdict"`
	Confidence float64                `json:"confidence"`
	Evidence   map[string]interface{} `json:"evidence,omitempty"`
	Timestamp  int64                  `json:"timestamp"`
	Signature  string                 `json:"signature"`
}

// Commit binds an agent to a prediction before its outcome is observable.
type Commit struct {
	ID         string `json:"id"`
	Agent      string `json:"agent"`
	Domain     string `json:"domain"`
	Commitment string `json:"commitment"`
	Timestamp  int64  `json:"timestamp"`
	Expiry     int64  `json:"expiry"`
	Signature  string `json:"signature"`
}

// Reveal discloses the prediction bound by an earlier Commit.
type Reveal struct {
	ID           string                 `json:"id"`
	Agent        string                 `json:"agent"`
	CommitmentID string                 `json:"commitmentId"`
	Prediction   string                 `json:"prediction"`
	Outcome      string                 `json:"outcome"`
	Evidence     map[string]interface{} `json:"evidence,omitempty"`
	Timestamp    int64                  `json:"timestamp"`
	Signature    string                 `json:"signature"`
}

// Revocation retracts a previously issued Verification by the same
// verifier.
type Revocation struct {
	ID             string                 `json:"id"`
	Verifier       string                 `json:"verifier"`
	VerificationID string                 `json:"verificationId"`
	Reason         string                 `json:"reason"`
	Evidence       map[string]interface{} `json:"evidence,omitempty"`
	Timestamp      int64                  `json:"timestamp"`
	Signature      string                 `json:"signature"`
}

// MismatchReason names which bridging check in VerifyRevealMatches failed.
type MismatchReason string

const (
	MismatchCommitmentID MismatchReason = "commitment_id"
	MismatchAgent        MismatchReason = "agent"
	MismatchCommitment   MismatchReason = "commitment_hash"
)

// MismatchError reports a failed reveal/commit bridging check.
type MismatchError struct {
	Reason MismatchReason
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("reputation: reveal does not match commit: %s", e.Reason)
}

// stampAndSign canonicalizes fields (with id and signature blank), derives
// the content-addressed id, signs the canonical bytes, and returns both.
func stampAndSign(private sagecrypto.KeyPair, fields map[string]interface{}) (id, signature string, err error) {
	canonical, err := canon.MarshalChecked(fields)
	if err != nil {
		return "", "", fmt.Errorf("reputation: canonicalize record: %w", err)
	}
	sum := sha256.Sum256(canonical)
	id = hex.EncodeToString(sum[:])

	sig, err := private.Sign(canonical)
	if err != nil {
		return "", "", fmt.Errorf("reputation: sign record: %w", err)
	}
	return id, sagecrypto.EncodeHex(sig), nil
}

// CreateVerification builds and signs a Verification record.
func CreateVerification(private sagecrypto.KeyPair, target, domain string, verdict Verdict, confidence float64, evidence map[string]interface{}) (*Verification, error) {
	verifier := private.ID()
	ts := time.Now().UnixMilli()

	fields := map[string]interface{}{
		"verifier": verifier, "target": target, "domain": domain,
		"verdict": string(verdict), "confidence": confidence, "timestamp": ts,
	}
	if len(evidence) > 0 {
		fields["evidence"] = evidence
	}

	id, sig, err := stampAndSign(private, fields)
	if err != nil {
		return nil, err
	}
	return &Verification{
		ID: id, Verifier: verifier, Target: target, Domain: domain,
		Verdict: verdict, Confidence: confidence, Evidence: evidence,
		Timestamp: ts, Signature: sig,
	}, nil
}

// CreateCommit builds and signs a Commit record binding agent to prediction.
func CreateCommit(private sagecrypto.KeyPair, domain, prediction string, expiry time.Time) (*Commit, error) {
	agent := private.ID()
	ts := time.Now().UnixMilli()
	commitmentSum := sha256.Sum256([]byte(prediction))
	commitment := hex.EncodeToString(commitmentSum[:])
	expiryMs := expiry.UnixMilli()

	if expiryMs <= ts {
		return nil, fmt.Errorf("reputation: commit expiry must be after timestamp")
	}

	fields := map[string]interface{}{
		"agent": agent, "domain": domain, "commitment": commitment,
		"timestamp": ts, "expiry": expiryMs,
	}
	id, sig, err := stampAndSign(private, fields)
	if err != nil {
		return nil, err
	}
	return &Commit{
		ID: id, Agent: agent, Domain: domain, Commitment: commitment,
		Timestamp: ts, Expiry: expiryMs, Signature: sig,
	}, nil
}

// CreateReveal builds and signs a Reveal record disclosing commit's
// prediction and its observed outcome.
func CreateReveal(private sagecrypto.KeyPair, commitID, prediction, outcome string, evidence map[string]interface{}) (*Reveal, error) {
	agent := private.ID()
	ts := time.Now().UnixMilli()

	fields := map[string]interface{}{
		"agent": agent, "commitmentId": commitID, "prediction": prediction,
		"outcome": outcome, "timestamp": ts,
	}
	if len(evidence) > 0 {
		fields["evidence"] = evidence
	}

	id, sig, err := stampAndSign(private, fields)
	if err != nil {
		return nil, err
	}
	return &Reveal{
		ID: id, Agent: agent, CommitmentID: commitID, Prediction: prediction,
		Outcome: outcome, Evidence: evidence, Timestamp: ts, Signature: sig,
	}, nil
}

// CreateRevocation builds and signs a Revocation record retracting
// verificationID.
func CreateRevocation(private sagecrypto.KeyPair, verificationID, reason string, evidence map[string]interface{}) (*Revocation, error) {
	verifier := private.ID()
	if reason == "" {
		return nil, fmt.Errorf("reputation: revocation reason must not be empty")
	}
	ts := time.Now().UnixMilli()

	fields := map[string]interface{}{
		"verifier": verifier, "verificationId": verificationID,
		"reason": reason, "timestamp": ts,
	}
	if len(evidence) > 0 {
		fields["evidence"] = evidence
	}

	id, sig, err := stampAndSign(private, fields)
	if err != nil {
		return nil, err
	}
	return &Revocation{
		ID: id, Verifier: verifier, VerificationID: verificationID,
		Reason: reason, Evidence: evidence, Timestamp: ts, Signature: sig,
	}, nil
}

// VerifyRevealMatches is the bridging check between a Commit and the
// Reveal that discloses it.
func VerifyRevealMatches(commit *Commit, reveal *Reveal) error {
	if reveal.CommitmentID != commit.ID {
		return &MismatchError{Reason: MismatchCommitmentID}
	}
	if reveal.Agent != commit.Agent {
		return &MismatchError{Reason: MismatchAgent}
	}
	sum := sha256.Sum256([]byte(reveal.Prediction))
	if hex.EncodeToString(sum[:]) != commit.Commitment {
		return &MismatchError{Reason: MismatchCommitment}
	}
	return nil
}

// verificationFields, commitFields, revealFields and revocationFields
// rebuild the canonicalized preimage used to derive id/signature for each
// record kind, for use by validation.
func verificationFields(v *Verification) map[string]interface{} {
	fields := map[string]interface{}{
		"verifier": v.Verifier, "target": v.Target, "domain": v.Domain,
		"verdict": string(v.Verdict), "confidence": v.Confidence, "timestamp": v.Timestamp,
	}
	if len(v.Evidence) > 0 {
		fields["evidence"] = v.Evidence
	}
	return fields
}

func commitFields(c *Commit) map[string]interface{} {
	return map[string]interface{}{
		"agent": c.Agent, "domain": c.Domain, "commitment": c.Commitment,
		"timestamp": c.Timestamp, "expiry": c.Expiry,
	}
}

func revealFields(r *Reveal) map[string]interface{} {
	fields := map[string]interface{}{
		"agent": r.Agent, "commitmentId": r.CommitmentID, "prediction": r.Prediction,
		"outcome": r.Outcome, "timestamp": r.Timestamp,
	}
	if len(r.Evidence) > 0 {
		fields["evidence"] = r.Evidence
	}
	return fields
}

func revocationFields(r *Revocation) map[string]interface{} {
	fields := map[string]interface{}{
		"verifier": r.Verifier, "verificationId": r.VerificationID,
		"reason": r.Reason, "timestamp": r.Timestamp,
	}
	if len(r.Evidence) > 0 {
		fields["evidence"] = r.Evidence
	}
	return fields
}

// verifyCommon checks that id matches the recomputed hash of fields and
// that signature verifies against author's public key.
func verifyCommon(author, signature, id string, fields map[string]interface{}) error {
	canonical, err := canon.MarshalChecked(fields)
	if err != nil {
		return fmt.Errorf("reputation: canonicalize record: %w", err)
	}
	sum := sha256.Sum256(canonical)
	if hex.EncodeToString(sum[:]) != id {
		return fmt.Errorf("reputation: id mismatch")
	}

	authorKey, err := sagecrypto.DecodeHex(author)
	if err != nil {
		return fmt.Errorf("reputation: malformed author key: %w", err)
	}
	sigBytes, err := sagecrypto.DecodeHex(signature)
	if err != nil {
		return fmt.Errorf("reputation: malformed signature: %w", err)
	}
	verifier, err := keys.ImportEd25519PublicKey(sagecrypto.EncodeHex(authorKey))
	if err != nil {
		return fmt.Errorf("reputation: import author key: %w", err)
	}
	if err := verifier.Verify(canonical, sigBytes); err != nil {
		return fmt.Errorf("reputation: signature invalid: %w", err)
	}
	return nil
}

// ValidateVerification checks a Verification's structural and signature
// invariants.
func ValidateVerification(v *Verification) error {
	switch v.Verdict {
	case VerdictCorrect, VerdictIncorrect, VerdictDisputed:
	default:
		return fmt.Errorf("reputation: invalid verdict %q", v.Verdict)
	}
	if v.Confidence < 0 || v.Confidence > 1 {
		return fmt.Errorf("reputation: confidence out of range [0,1]: %v", v.Confidence)
	}
	return verifyCommon(v.Verifier, v.Signature, v.ID, verificationFields(v))
}

// ValidateCommit checks a Commit's structural and signature invariants.
func ValidateCommit(c *Commit) error {
	if len(c.Commitment) != 64 {
		return fmt.Errorf("reputation: commitment must be 64 hex chars, got %d", len(c.Commitment))
	}
	if _, err := hex.DecodeString(c.Commitment); err != nil {
		return fmt.Errorf("reputation: commitment not hex: %w", err)
	}
	if c.Expiry <= c.Timestamp {
		return fmt.Errorf("reputation: expiry must be after timestamp")
	}
	return verifyCommon(c.Agent, c.Signature, c.ID, commitFields(c))
}

// ValidateReveal checks a Reveal's structural and signature invariants.
func ValidateReveal(r *Reveal) error {
	if r.Prediction == "" {
		return fmt.Errorf("reputation: prediction must not be empty")
	}
	if r.Outcome == "" {
		return fmt.Errorf("reputation: outcome must not be empty")
	}
	return verifyCommon(r.Agent, r.Signature, r.ID, revealFields(r))
}

// ValidateRevocation checks a Revocation's structural and signature
// invariants.
func ValidateRevocation(r *Revocation) error {
	if r.Reason == "" {
		return fmt.Errorf("reputation: reason must not be empty")
	}
	return verifyCommon(r.Verifier, r.Signature, r.ID, revocationFields(r))
}

// MarshalTagged wraps v (a *Verification, *Commit, *Reveal, or *Revocation)
// with its type tag, for one line of the reputation log.
func MarshalTagged(kind string, v interface{}) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	out := make(map[string]interface{}, len(fields)+1)
	out["type"] = kind
	for k, v := range fields {
		var decoded interface{}
		if err := json.Unmarshal(v, &decoded); err != nil {
			return nil, err
		}
		out[k] = decoded
	}
	return canon.Marshal(out)
}
