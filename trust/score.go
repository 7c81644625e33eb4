// Package trust computes time-decayed, domain-scoped trust scores from a
// set of verifications. The scorer is a pure function of its inputs; it
// never reads the reputation log itself.
package trust

import (
	"math"
	"sort"
	"time"

	"github.com/rookdaemon/agora/reputation"
)

// halfLifeDays is the default decay half-life: 70 days.
const halfLifeDays = 70.0

// lambda satisfies decay(70 days) = exp(-lambda*70) = 0.5.
var lambda = math.Ln2 / halfLifeDays

// Score is the result of scoring an agent in one domain.
type Score struct {
	Value             float64
	VerificationCount int
	LastVerified      time.Time
	TopVerifiers      []string
}

// verdictWeight maps a Verdict to its contribution sign.
func verdictWeight(v reputation.Verdict) float64 {
	switch v {
	case reputation.VerdictCorrect:
		return 1
	case reputation.VerdictIncorrect:
		return -1
	default: // disputed
		return 0
	}
}

// decay returns exp(-lambda * days(delta)), the time-decay factor for a
// verification delta in the past.
func decay(delta time.Duration) float64 {
	days := delta.Hours() / 24
	return math.Exp(-lambda * days)
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

// Compute computes score(A, D, t) over verifications, which callers must
// have already restricted to target A, domain D, and non-revoked. now is
// the reference time t.
func Compute(verifications []*reputation.Verification, now time.Time) Score {
	if len(verifications) == 0 {
		return Score{Value: 0.5}
	}

	var sum float64
	var lastVerified time.Time
	contribution := make(map[string]float64)
	order := make(map[string]int)
	next := 0

	for _, v := range verifications {
		ts := time.UnixMilli(v.Timestamp)
		if ts.After(lastVerified) {
			lastVerified = ts
		}

		weighted := verdictWeight(v.Verdict) * v.Confidence * decay(now.Sub(ts))
		sum += weighted

		if _, seen := order[v.Verifier]; !seen {
			order[v.Verifier] = next
			next++
		}
		contribution[v.Verifier] += math.Abs(weighted)
	}

	value := clamp01((sum/math.Max(float64(len(verifications)), 1) + 1) / 2)

	verifiers := make([]string, 0, len(contribution))
	for k := range contribution {
		verifiers = append(verifiers, k)
	}
	sort.Slice(verifiers, func(i, j int) bool {
		ci, cj := contribution[verifiers[i]], contribution[verifiers[j]]
		if ci != cj {
			return ci > cj
		}
		return order[verifiers[i]] < order[verifiers[j]]
	})
	if len(verifiers) > 5 {
		verifiers = verifiers[:5]
	}

	return Score{
		Value:             value,
		VerificationCount: len(verifications),
		LastVerified:      lastVerified,
		TopVerifiers:       verifiers,
	}
}
