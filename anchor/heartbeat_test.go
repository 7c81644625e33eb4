package anchor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rookdaemon/agora/crypto/keys"
)

func TestBuildAndVerifyHeartbeat(t *testing.T) {
	operator, err := keys.GenerateSecp256k1KeyPair()
	require.NoError(t, err)

	chainTime := time.Date(2026, 1, 1, 0, 0, 3, 0, time.UTC)
	localTime := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	h, err := BuildHeartbeat("ethereum", chainTime, localTime, operator)
	require.NoError(t, err)
	require.Equal(t, "ethereum", h.Chain)
	require.Equal(t, int64(3000), h.SkewMillis)
	require.Equal(t, operator.ID(), h.Operator)
	require.NotEmpty(t, h.Signature)

	require.NoError(t, VerifyHeartbeat(h, operator))
}

func TestBuildHeartbeat_RejectsNonSecp256k1Key(t *testing.T) {
	ed, err := keys.GenerateEd25519KeyPair()
	require.NoError(t, err)

	_, err = BuildHeartbeat("ethereum", time.Now(), time.Now(), ed)
	require.Error(t, err)
}

func TestVerifyHeartbeat_RejectsTamperedSkew(t *testing.T) {
	operator, err := keys.GenerateSecp256k1KeyPair()
	require.NoError(t, err)

	h, err := BuildHeartbeat("solana", time.Now(), time.Now(), operator)
	require.NoError(t, err)

	h.SkewMillis += 1000
	require.Error(t, VerifyHeartbeat(h, operator))
}

func TestVerifyHeartbeat_ViaImportedPublicKey(t *testing.T) {
	operator, err := keys.GenerateSecp256k1KeyPair()
	require.NoError(t, err)

	h, err := BuildHeartbeat("ethereum", time.Now(), time.Now(), operator)
	require.NoError(t, err)

	verifyOnly, err := keys.ImportSecp256k1PublicKey(operator.ID())
	require.NoError(t, err)
	require.NoError(t, VerifyHeartbeat(h, verifyOnly))
}

func TestSkew_ReportsExceeded(t *testing.T) {
	chainTime := time.Now()
	localTime := chainTime.Add(10 * time.Minute)

	delta, exceeded := Skew(chainTime, localTime, 5*time.Minute)
	require.True(t, exceeded)
	require.InDelta(t, 10*time.Minute, delta, float64(time.Second))
}

func TestSkew_WithinBound(t *testing.T) {
	chainTime := time.Now()
	localTime := chainTime.Add(2 * time.Second)

	_, exceeded := Skew(chainTime, localTime, 5*time.Minute)
	require.False(t, exceeded)
}
