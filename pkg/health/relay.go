package health

import (
	"context"
	"fmt"
	"time"

	"github.com/rookdaemon/agora/crypto/keys"
	"github.com/rookdaemon/agora/relayclient"
)

// CheckRelay probes a relay by connecting and registering an ephemeral,
// throwaway identity, measuring how long registration takes, then
// disconnecting. It never touches the caller's own identity or config.
func CheckRelay(relayURL string) *RelayHealth {
	health := &RelayHealth{URL: relayURL, Status: StatusUnhealthy}

	if relayURL == "" {
		health.Error = "relay URL not configured"
		return health
	}

	probe, err := keys.GenerateEd25519KeyPair()
	if err != nil {
		health.Error = fmt.Sprintf("failed to generate probe identity: %v", err)
		return health
	}

	client := relayclient.New(relayclient.Config{URL: relayURL, PublicKey: probe.ID(), Name: "diagnose-probe"})
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	start := time.Now()
	if err := client.Connect(ctx); err != nil {
		health.Error = fmt.Sprintf("connection failed: %v", err)
		return health
	}
	latency := time.Since(start)
	_ = client.Disconnect()

	health.Connected = true
	health.Latency = latency.String()

	switch {
	case latency < time.Second:
		health.Status = StatusHealthy
	case latency < 3*time.Second:
		health.Status = StatusDegraded
	default:
		health.Status = StatusUnhealthy
		health.Error = fmt.Sprintf("high latency: %v", latency)
	}

	return health
}
