package anchor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rookdaemon/agora/config"
)

type stubClock struct {
	chain string
	now   time.Time
}

func (s stubClock) Now(_ context.Context) (time.Time, error) { return s.now, nil }
func (s stubClock) Chain() string                             { return s.chain }

func TestClockRegistry_RegisterAndGet(t *testing.T) {
	r := NewClockRegistry()
	c := stubClock{chain: "ethereum", now: time.Now()}
	r.Register("ethereum", c)

	got, ok := r.Get("ethereum")
	require.True(t, ok)
	require.Equal(t, "ethereum", got.Chain())

	_, ok = r.Get("solana")
	require.False(t, ok)
}

func TestNew_DisabledReturnsNilClock(t *testing.T) {
	clock, err := New(config.AnchorConfig{Enabled: false}, nil)
	require.NoError(t, err)
	require.Nil(t, clock)
}

func TestNew_UnsupportedChainErrors(t *testing.T) {
	_, err := New(config.AnchorConfig{Enabled: true, Chain: "bitcoin"}, nil)
	require.Error(t, err)
}
