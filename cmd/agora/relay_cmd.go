package main

import (
	"net/http"

	"github.com/spf13/cobra"

	"github.com/rookdaemon/agora/config"
	"github.com/rookdaemon/agora/internal/logger"
	"github.com/rookdaemon/agora/internal/metrics"
	"github.com/rookdaemon/agora/relay"
)

var relayServiceConfigPath string

var relayCmd = &cobra.Command{
	Use:   "relay",
	Short: "Run a standalone relay server",
	RunE:  runRelay,
}

func init() {
	rootCmd.AddCommand(relayCmd)
	relayCmd.Flags().StringVar(&relayServiceConfigPath, "service-config", "agora-service.yaml", "path to the ops-facing service config")
}

func runRelay(cmd *cobra.Command, args []string) error {
	svcCfg, err := config.LoadServiceConfig(relayServiceConfigPath)
	if err != nil {
		return printFailureAndReturn(fail("service_config_not_found", err))
	}

	relayCfg := relay.Config{StoragePeers: svcCfg.Relay.StoragePeers}

	if svcCfg.Relay.IdentityKeyFile != "" {
		kp, err := loadKeyFile(svcCfg.Relay.IdentityKeyFile)
		if err != nil {
			return printFailureAndReturn(fail("identity_key_file_invalid", err))
		}
		relayCfg.Identity = relay.NewIdentity(kp)
	}

	if len(svcCfg.Relay.StoragePeers) > 0 {
		if svcCfg.Relay.StoreDir == "" {
			return printFailureAndReturn(fail("store_dir_required", nil))
		}
		store, err := relay.NewFileStore(svcCfg.Relay.StoreDir)
		if err != nil {
			return printFailureAndReturn(fail("store_init_failed", err))
		}
		relayCfg.Store = store
	}

	if svcCfg.Metrics.Enabled {
		go func() {
			if err := metrics.StartServer(svcCfg.Metrics.Addr, svcCfg.Metrics.Path); err != nil && err != http.ErrServerClosed {
				logger.GetDefaultLogger().Error("metrics server failed", logger.Error(err))
			}
		}()
	}

	srv := relay.NewServer(relayCfg)
	httpSrv := &http.Server{Addr: svcCfg.Relay.ListenAddr, Handler: srv.Handler()}
	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return printFailureAndReturn(fail("listen_failed", err))
	}
	return nil
}
