package reputation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rookdaemon/agora/crypto/keys"
)

func TestCreateVerification_ValidatesClean(t *testing.T) {
	kp, err := keys.GenerateEd25519KeyPair()
	require.NoError(t, err)

	target, err := keys.GenerateEd25519KeyPair()
	require.NoError(t, err)

	v, err := CreateVerification(kp, target.ID(), "ocr", VerdictCorrect, 0.9, nil)
	require.NoError(t, err)
	require.NoError(t, ValidateVerification(v))
}

func TestValidateVerification_RejectsTamperedConfidence(t *testing.T) {
	kp, err := keys.GenerateEd25519KeyPair()
	require.NoError(t, err)
	target, err := keys.GenerateEd25519KeyPair()
	require.NoError(t, err)

	v, err := CreateVerification(kp, target.ID(), "ocr", VerdictCorrect, 0.9, nil)
	require.NoError(t, err)

	v.Confidence = 0.1
	require.Error(t, ValidateVerification(v))
}

func TestValidateVerification_RejectsBadVerdict(t *testing.T) {
	kp, err := keys.GenerateEd25519KeyPair()
	require.NoError(t, err)
	target, err := keys.GenerateEd25519KeyPair()
	require.NoError(t, err)

	v, err := CreateVerification(kp, target.ID(), "ocr", VerdictCorrect, 0.9, nil)
	require.NoError(t, err)
	v.Verdict = "maybe"
	require.Error(t, ValidateVerification(v))
}

func TestCommitReveal_RoundTrip(t *testing.T) {
	kp, err := keys.GenerateEd25519KeyPair()
	require.NoError(t, err)

	commit, err := CreateCommit(kp, "forecast", "rain tomorrow", time.Now().Add(24*time.Hour))
	require.NoError(t, err)
	require.NoError(t, ValidateCommit(commit))

	reveal, err := CreateReveal(kp, commit.ID, "rain tomorrow", "it rained", nil)
	require.NoError(t, err)
	require.NoError(t, ValidateReveal(reveal))

	require.NoError(t, VerifyRevealMatches(commit, reveal))
}

func TestCreateCommit_RejectsExpiryNotAfterTimestamp(t *testing.T) {
	kp, err := keys.GenerateEd25519KeyPair()
	require.NoError(t, err)

	_, err = CreateCommit(kp, "forecast", "rain", time.Now().Add(-time.Hour))
	require.Error(t, err)
}

func TestVerifyRevealMatches_DetectsEachMismatch(t *testing.T) {
	kp, err := keys.GenerateEd25519KeyPair()
	require.NoError(t, err)
	other, err := keys.GenerateEd25519KeyPair()
	require.NoError(t, err)

	commit, err := CreateCommit(kp, "forecast", "rain tomorrow", time.Now().Add(time.Hour))
	require.NoError(t, err)

	reveal, err := CreateReveal(kp, commit.ID, "rain tomorrow", "it rained", nil)
	require.NoError(t, err)

	badCommitment := *reveal
	badCommitment.Prediction = "snow tomorrow"
	err = VerifyRevealMatches(commit, &badCommitment)
	require.Error(t, err)
	require.Equal(t, MismatchCommitment, err.(*MismatchError).Reason)

	badCommitID := *reveal
	badCommitID.CommitmentID = "not-the-commit-id"
	err = VerifyRevealMatches(commit, &badCommitID)
	require.Equal(t, MismatchCommitmentID, err.(*MismatchError).Reason)

	otherCommit, err := CreateCommit(other, "forecast", "sun tomorrow", time.Now().Add(time.Hour))
	require.NoError(t, err)
	revealForOther, err := CreateReveal(other, otherCommit.ID, "sun tomorrow", "it was sunny", nil)
	require.NoError(t, err)
	// Point the other agent's reveal at this commit so only the agent check fails.
	revealForOther.CommitmentID = commit.ID
	err = VerifyRevealMatches(commit, revealForOther)
	require.Equal(t, MismatchAgent, err.(*MismatchError).Reason)
}

func TestCreateRevocation_ValidatesClean(t *testing.T) {
	kp, err := keys.GenerateEd25519KeyPair()
	require.NoError(t, err)

	rev, err := CreateRevocation(kp, "some-verification-id", "evidence retracted", nil)
	require.NoError(t, err)
	require.NoError(t, ValidateRevocation(rev))
}

func TestCreateRevocation_RejectsEmptyReason(t *testing.T) {
	kp, err := keys.GenerateEd25519KeyPair()
	require.NoError(t, err)

	_, err = CreateRevocation(kp, "some-verification-id", "", nil)
	require.Error(t, err)
}

func TestMarshalTagged_IncludesTypeAndIsCanonical(t *testing.T) {
	kp, err := keys.GenerateEd25519KeyPair()
	require.NoError(t, err)
	target, err := keys.GenerateEd25519KeyPair()
	require.NoError(t, err)

	v, err := CreateVerification(kp, target.ID(), "ocr", VerdictCorrect, 0.9, nil)
	require.NoError(t, err)

	raw, err := MarshalTagged("verification", v)
	require.NoError(t, err)
	require.Contains(t, string(raw), `"type":"verification"`)
}
