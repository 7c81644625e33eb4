package reputationstore

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rookdaemon/agora/crypto/keys"
	"github.com/rookdaemon/agora/internal/logger"
	"github.com/rookdaemon/agora/reputation"
)

type stubChainClock struct{ now time.Time }

func (c stubChainClock) Now(_ context.Context) (time.Time, error) { return c.now, nil }
func (c stubChainClock) Chain() string                             { return "ethereum" }

func newTestStore(t *testing.T) (*FileStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "reputation.log")
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s, path
}

func TestFileStore_AppendAndQueryVerifications(t *testing.T) {
	s, _ := newTestStore(t)

	verifier, err := keys.GenerateEd25519KeyPair()
	require.NoError(t, err)
	target, err := keys.GenerateEd25519KeyPair()
	require.NoError(t, err)

	v, err := reputation.CreateVerification(verifier, target.ID(), "ocr", reputation.VerdictCorrect, 0.9, nil)
	require.NoError(t, err)
	require.NoError(t, s.AppendVerification(v))

	got, err := s.VerificationsFor(target.ID())
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, v.ID, got[0].ID)

	byVerifier, err := s.VerificationsBy(verifier.ID(), "ocr")
	require.NoError(t, err)
	require.Len(t, byVerifier, 1)
}

func TestFileStore_RejectsInvalidRecord(t *testing.T) {
	s, _ := newTestStore(t)

	verifier, err := keys.GenerateEd25519KeyPair()
	require.NoError(t, err)
	target, err := keys.GenerateEd25519KeyPair()
	require.NoError(t, err)

	v, err := reputation.CreateVerification(verifier, target.ID(), "ocr", reputation.VerdictCorrect, 0.9, nil)
	require.NoError(t, err)
	v.Confidence = 42

	err = s.AppendVerification(v)
	require.Error(t, err)

	got, err := s.VerificationsFor(target.ID())
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestFileStore_RevocationExcludesFromActive(t *testing.T) {
	s, _ := newTestStore(t)

	verifier, err := keys.GenerateEd25519KeyPair()
	require.NoError(t, err)
	target, err := keys.GenerateEd25519KeyPair()
	require.NoError(t, err)

	v, err := reputation.CreateVerification(verifier, target.ID(), "ocr", reputation.VerdictCorrect, 0.9, nil)
	require.NoError(t, err)
	require.NoError(t, s.AppendVerification(v))

	active, err := s.ActiveVerificationsFor(target.ID())
	require.NoError(t, err)
	require.Len(t, active, 1)

	revocation, err := reputation.CreateRevocation(verifier, v.ID, "retracted", nil)
	require.NoError(t, err)
	require.NoError(t, s.AppendRevocation(revocation))

	active, err = s.ActiveVerificationsFor(target.ID())
	require.NoError(t, err)
	require.Empty(t, active)

	all, err := s.VerificationsFor(target.ID())
	require.NoError(t, err)
	require.Len(t, all, 1)
}

func TestFileStore_CommitRevealIndices(t *testing.T) {
	s, _ := newTestStore(t)

	agent, err := keys.GenerateEd25519KeyPair()
	require.NoError(t, err)

	commit, err := reputation.CreateCommit(agent, "forecast", "rain tomorrow", time.Now().Add(time.Hour))
	require.NoError(t, err)
	require.NoError(t, s.AppendCommit(commit))

	reveal, err := reputation.CreateReveal(agent, commit.ID, "rain tomorrow", "it rained", nil)
	require.NoError(t, err)
	require.NoError(t, s.AppendReveal(reveal))

	gotCommit, err := s.CommitByID(commit.ID)
	require.NoError(t, err)
	require.Equal(t, commit.Commitment, gotCommit.Commitment)

	gotReveal, err := s.RevealForCommit(commit.ID)
	require.NoError(t, err)
	require.Equal(t, reveal.ID, gotReveal.ID)
}

func TestFileStore_RebuildsIndicesFromExistingLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reputation.log")
	s, err := Open(path)
	require.NoError(t, err)

	verifier, err := keys.GenerateEd25519KeyPair()
	require.NoError(t, err)
	target, err := keys.GenerateEd25519KeyPair()
	require.NoError(t, err)

	v, err := reputation.CreateVerification(verifier, target.ID(), "ocr", reputation.VerdictCorrect, 0.9, nil)
	require.NoError(t, err)
	require.NoError(t, s.AppendVerification(v))
	require.NoError(t, s.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.VerificationsFor(target.ID())
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, v.ID, got[0].ID)
}

func TestFileStore_DomainsListsDistinctDomains(t *testing.T) {
	s, _ := newTestStore(t)

	verifier, err := keys.GenerateEd25519KeyPair()
	require.NoError(t, err)
	target, err := keys.GenerateEd25519KeyPair()
	require.NoError(t, err)

	for _, domain := range []string{"ocr", "ocr", "translation"} {
		v, err := reputation.CreateVerification(verifier, target.ID(), domain, reputation.VerdictCorrect, 0.8, nil)
		require.NoError(t, err)
		require.NoError(t, s.AppendVerification(v))
	}

	domains, err := s.Domains(target.ID())
	require.NoError(t, err)
	require.Equal(t, []string{"ocr", "translation"}, domains)
}

func TestFileStore_SkipsMalformedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reputation.log")
	require.NoError(t, os.WriteFile(path, []byte("not json\n"), 0o600))

	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	all, err := s.ReadAll()
	require.NoError(t, err)
	require.Empty(t, all)
}

func TestFileStore_ChainClockSkewLogsWarning(t *testing.T) {
	s, _ := newTestStore(t)

	var buf bytes.Buffer
	log := logger.NewLogger(&buf, logger.WarnLevel)
	s.SetChainClock(stubChainClock{now: time.Now().Add(time.Hour)}, time.Minute, log)

	verifier, err := keys.GenerateEd25519KeyPair()
	require.NoError(t, err)
	target, err := keys.GenerateEd25519KeyPair()
	require.NoError(t, err)

	v, err := reputation.CreateVerification(verifier, target.ID(), "ocr", reputation.VerdictCorrect, 0.9, nil)
	require.NoError(t, err)
	require.NoError(t, s.AppendVerification(v))

	require.Contains(t, buf.String(), "chain clock skew")
}

func TestFileStore_ChainClockWithinBoundLogsNothing(t *testing.T) {
	s, _ := newTestStore(t)

	var buf bytes.Buffer
	log := logger.NewLogger(&buf, logger.WarnLevel)
	s.SetChainClock(stubChainClock{now: time.Now()}, time.Hour, log)

	verifier, err := keys.GenerateEd25519KeyPair()
	require.NoError(t, err)
	target, err := keys.GenerateEd25519KeyPair()
	require.NoError(t, err)

	v, err := reputation.CreateVerification(verifier, target.ID(), "ocr", reputation.VerdictCorrect, 0.9, nil)
	require.NoError(t, err)
	require.NoError(t, s.AppendVerification(v))

	require.Empty(t, buf.String())
}
