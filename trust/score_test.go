package trust

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rookdaemon/agora/reputation"
)

func verificationAt(t *testing.T, target string, verifier string, verdict reputation.Verdict, confidence float64, ts time.Time) *reputation.Verification {
	t.Helper()
	return &reputation.Verification{
		ID: "v-" + verifier + "-" + ts.String(), Verifier: verifier, Target: target,
		Domain: "ocr", Verdict: verdict, Confidence: confidence, Timestamp: ts.UnixMilli(),
	}
}

func TestCompute_EmptySetIsNeutral(t *testing.T) {
	s := Compute(nil, time.Now())
	require.Equal(t, 0.5, s.Value)
	require.Equal(t, 0, s.VerificationCount)
}

func TestCompute_TwoCorrectVerificationsScoreHigh(t *testing.T) {
	// Verification timestamps are whole milliseconds; a whole-millisecond
	// now keeps the decay of both at exactly 1.
	now := time.UnixMilli(time.Now().UnixMilli())
	vs := []*reputation.Verification{
		verificationAt(t, "A", "V1", reputation.VerdictCorrect, 0.9, now),
		verificationAt(t, "A", "V2", reputation.VerdictCorrect, 0.9, now),
	}
	s := Compute(vs, now)
	require.GreaterOrEqual(t, s.Value, 0.95)
	require.Equal(t, 2, s.VerificationCount)
}

func TestCompute_RevocationLowersScore(t *testing.T) {
	now := time.Now()
	both := []*reputation.Verification{
		verificationAt(t, "A", "V1", reputation.VerdictCorrect, 0.9, now),
		verificationAt(t, "A", "V2", reputation.VerdictCorrect, 0.9, now),
	}
	before := Compute(both, now)

	oneRevoked := []*reputation.Verification{both[0]} // simulate V2's revocation by excluding it.
	after := Compute(oneRevoked, now)
	require.Less(t, after.Value, before.Value)
}

func TestCompute_DecayHalvesContributionAt70Days(t *testing.T) {
	now := time.Now()
	recent := []*reputation.Verification{
		verificationAt(t, "A", "V1", reputation.VerdictIncorrect, 1.0, now),
	}
	old := []*reputation.Verification{
		verificationAt(t, "A", "V1", reputation.VerdictIncorrect, 1.0, now.Add(-70*24*time.Hour)),
	}

	recentScore := Compute(recent, now)
	oldScore := Compute(old, now)

	recentDeviation := 0.5 - recentScore.Value
	oldDeviation := 0.5 - oldScore.Value
	ratio := oldDeviation / recentDeviation
	require.InDelta(t, 0.5, ratio, 0.02)
}

func TestCompute_TopVerifiersOrderedByContribution(t *testing.T) {
	now := time.Now()
	vs := []*reputation.Verification{
		verificationAt(t, "A", "small", reputation.VerdictCorrect, 0.1, now),
		verificationAt(t, "A", "big", reputation.VerdictCorrect, 0.9, now),
	}
	s := Compute(vs, now)
	require.Equal(t, []string{"big", "small"}, s.TopVerifiers)
}

func TestCompute_TopVerifiersCappedAtFive(t *testing.T) {
	now := time.Now()
	var vs []*reputation.Verification
	names := []string{"v1", "v2", "v3", "v4", "v5", "v6", "v7"}
	for _, n := range names {
		vs = append(vs, verificationAt(t, "A", n, reputation.VerdictCorrect, 0.5, now))
	}
	s := Compute(vs, now)
	require.Len(t, s.TopVerifiers, 5)
}
