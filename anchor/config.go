package anchor

import (
	"github.com/rookdaemon/agora/config"
)

// New builds the ChainClock named by cfg.Chain, or returns nil with no
// error if the anchor feature is disabled. feePayer is optional raw
// public-key bytes shown by Solana's diagnostics; it is ignored for
// Ethereum.
func New(cfg config.AnchorConfig, feePayer []byte) (ChainClock, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	switch cfg.Chain {
	case "ethereum":
		return NewEthereumClock(cfg.RPCEndpoint)
	case "solana":
		return NewSolanaClock(cfg.RPCEndpoint, feePayer), nil
	default:
		return nil, errUnsupportedChain(cfg.Chain)
	}
}
