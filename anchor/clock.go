// Package anchor provides an optional, strictly auxiliary chain-anchored
// clock: a cross-check against the local clock, never a participant in
// signing or validation. The local clock is always the source of truth for
// any stamped timestamp; a ChainClock only lets a relay or reputation-log
// writer flag unusual skew.
package anchor

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// ChainClock reads the current time as observed by the timestamp of a
// blockchain's most recent block.
type ChainClock interface {
	// Now returns the timestamp of the chain's most recent block.
	Now(ctx context.Context) (time.Time, error)
	// Chain names the backing chain ("ethereum" or "solana").
	Chain() string
}

// Skew reports how far a ChainClock's time differs from a local reference
// time, and whether that difference exceeds maxSkew.
func Skew(chainTime, localTime time.Time, maxSkew time.Duration) (delta time.Duration, exceeded bool) {
	delta = chainTime.Sub(localTime)
	if delta < 0 {
		delta = -delta
	}
	return delta, delta > maxSkew
}

// ClockRegistry holds named ChainClocks so a single process can keep more
// than one configured (e.g. an Ethereum clock for production, a Solana one
// for a secondary cross-check) without each caller re-dialing RPC endpoints.
type ClockRegistry struct {
	mu     sync.RWMutex
	clocks map[string]ChainClock
}

// NewClockRegistry returns an empty registry.
func NewClockRegistry() *ClockRegistry {
	return &ClockRegistry{clocks: make(map[string]ChainClock)}
}

// Register adds or replaces the clock for chain.
func (r *ClockRegistry) Register(chain string, clock ChainClock) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clocks[chain] = clock
}

// Get returns the registered clock for chain, if any.
func (r *ClockRegistry) Get(chain string) (ChainClock, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.clocks[chain]
	return c, ok
}

// errUnsupportedChain is returned by New for an AnchorConfig naming a chain
// other than "ethereum" or "solana".
type errUnsupportedChain string

func (e errUnsupportedChain) Error() string {
	return fmt.Sprintf("anchor: unsupported chain %q", string(e))
}
