package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/rookdaemon/agora/anchor"
	"github.com/rookdaemon/agora/config"
	sagecrypto "github.com/rookdaemon/agora/crypto"
	"github.com/rookdaemon/agora/pkg/health"
)

var (
	diagnoseServiceConfig string
	diagnoseAnchor        bool
	diagnoseTimeout       time.Duration
)

var diagnoseCmd = &cobra.Command{
	Use:   "diagnose",
	Short: "Check relay reachability, anchor clock skew, and system health",
	RunE:  runDiagnose,
}

func init() {
	rootCmd.AddCommand(diagnoseCmd)
	diagnoseCmd.Flags().StringVar(&diagnoseServiceConfig, "service-config", "agora-service.yaml", "path to the ops-facing service config")
	diagnoseCmd.Flags().BoolVar(&diagnoseAnchor, "anchor", false, "cross-check the local clock against the configured chain anchor")
	diagnoseCmd.Flags().DurationVar(&diagnoseTimeout, "timeout", 15*time.Second, "overall diagnostic timeout")
}

func runDiagnose(cmd *cobra.Command, args []string) error {
	doc, err := config.LoadDocument(configPath)
	if err != nil {
		return printFailureAndReturn(fail("config_not_found", err))
	}

	checker := &health.Checker{RelayURL: doc.RelayURL}

	if diagnoseAnchor {
		svcCfg, err := config.LoadServiceConfig(diagnoseServiceConfig)
		if err != nil {
			return printFailureAndReturn(fail("service_config_not_found", err))
		}
		if !svcCfg.Anchor.Enabled {
			return printFailureAndReturn(fail("anchor_not_enabled", nil))
		}
		clock, err := buildChainClock(svcCfg.Anchor)
		if err != nil {
			return printFailureAndReturn(fail("anchor_unavailable", err))
		}
		checker.Anchor = clock
		checker.MaxSkew = svcCfg.Anchor.MaxSkew
	}

	ctx, cancel := context.WithTimeout(context.Background(), diagnoseTimeout)
	defer cancel()

	report := checker.CheckAll(ctx)
	return printSuccess(report)
}

func buildChainClock(cfg config.AnchorConfig) (anchor.ChainClock, error) {
	switch cfg.Chain {
	case "ethereum":
		return anchor.NewEthereumClock(cfg.RPCEndpoint)
	case "solana":
		var feePayer []byte
		if cfg.OperatorKeyFile != "" {
			kp, err := loadKeyFile(cfg.OperatorKeyFile)
			if err != nil {
				return nil, err
			}
			decoded, err := sagecrypto.DecodeHex(kp.ID())
			if err != nil {
				return nil, err
			}
			feePayer = decoded
		}
		return anchor.NewSolanaClock(cfg.RPCEndpoint, feePayer), nil
	default:
		return nil, &unsupportedChainError{cfg.Chain}
	}
}

type unsupportedChainError struct{ chain string }

func (e *unsupportedChainError) Error() string { return "diagnose: unsupported anchor chain " + e.chain }
