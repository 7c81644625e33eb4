package anchor

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
)

// EthereumClock reads Now from the timestamp of the latest block header on
// an Ethereum-compatible chain.
type EthereumClock struct {
	client *ethclient.Client
}

// NewEthereumClock dials rpcEndpoint and returns a ready EthereumClock.
func NewEthereumClock(rpcEndpoint string) (*EthereumClock, error) {
	client, err := ethclient.Dial(rpcEndpoint)
	if err != nil {
		return nil, fmt.Errorf("anchor: dial ethereum rpc: %w", err)
	}
	return &EthereumClock{client: client}, nil
}

// Now returns the latest block's timestamp.
func (c *EthereumClock) Now(ctx context.Context) (time.Time, error) {
	header, err := c.client.HeaderByNumber(ctx, nil)
	if err != nil {
		return time.Time{}, fmt.Errorf("anchor: fetch latest ethereum header: %w", err)
	}
	return time.Unix(int64(header.Time), 0).UTC(), nil
}

// Chain identifies this clock as "ethereum".
func (c *EthereumClock) Chain() string { return "ethereum" }

// Close releases the underlying RPC connection.
func (c *EthereumClock) Close() { c.client.Close() }
