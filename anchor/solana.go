package anchor

import (
	"context"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go/rpc"
	"github.com/mr-tron/base58"
)

// SolanaClock reads Now from the block time of the chain's current slot.
type SolanaClock struct {
	client       *rpc.Client
	feePayerAddr []byte
}

// NewSolanaClock dials rpcEndpoint. feePayer, if non-nil, is rendered in
// base58 by FeePayerAddress for `agora diagnose --anchor` output; it is
// never used to sign anything the clock itself does.
func NewSolanaClock(rpcEndpoint string, feePayer []byte) *SolanaClock {
	return &SolanaClock{client: rpc.New(rpcEndpoint), feePayerAddr: feePayer}
}

// Now returns the block time of the chain's current slot.
func (c *SolanaClock) Now(ctx context.Context) (time.Time, error) {
	slot, err := c.client.GetSlot(ctx, rpc.CommitmentFinalized)
	if err != nil {
		return time.Time{}, fmt.Errorf("anchor: fetch solana slot: %w", err)
	}
	blockTime, err := c.client.GetBlockTime(ctx, slot)
	if err != nil {
		return time.Time{}, fmt.Errorf("anchor: fetch solana block time: %w", err)
	}
	if blockTime == nil {
		return time.Time{}, fmt.Errorf("anchor: slot %d has no block time", slot)
	}
	return blockTime.Time().UTC(), nil
}

// Chain identifies this clock as "solana".
func (c *SolanaClock) Chain() string { return "solana" }

// FeePayerAddress renders the configured fee-payer public key in base58,
// or "" if none was configured.
func (c *SolanaClock) FeePayerAddress() string {
	if len(c.feePayerAddr) == 0 {
		return ""
	}
	return base58.Encode(c.feePayerAddr)
}
