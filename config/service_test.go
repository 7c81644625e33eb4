package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadServiceConfig_AppliesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "service.yaml")
	require.NoError(t, os.WriteFile(path, []byte("environment: staging\n"), 0o644))

	cfg, err := LoadServiceConfig(path)
	require.NoError(t, err)
	require.Equal(t, "staging", cfg.Environment)
	require.Equal(t, ":8787", cfg.Relay.ListenAddr)
	require.Equal(t, 30, cfg.Relay.KeepaliveSeconds)
	require.Equal(t, 30*time.Second, cfg.Relay.MaxReconnectDelay)
	require.Equal(t, "info", cfg.Logging.Level)
	require.Equal(t, "json", cfg.Logging.Format)
	require.Equal(t, ":9090", cfg.Metrics.Addr)
	require.Equal(t, 5*time.Minute, cfg.Anchor.MaxSkew)
}

func TestLoadServiceConfig_SubstitutesEnvVars(t *testing.T) {
	t.Setenv("AGORA_RELAY_ADDR", ":9999")

	path := filepath.Join(t.TempDir(), "service.yaml")
	raw := "relay:\n  listen_addr: \"${AGORA_RELAY_ADDR}\"\n  store_dir: \"${AGORA_STORE_DIR:/tmp/agora}\"\n"
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o644))

	cfg, err := LoadServiceConfig(path)
	require.NoError(t, err)
	require.Equal(t, ":9999", cfg.Relay.ListenAddr)
	require.Equal(t, "/tmp/agora", cfg.Relay.StoreDir)
}

func TestLoadServiceConfig_MissingFileErrors(t *testing.T) {
	_, err := LoadServiceConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestSaveServiceConfig_RoundTrips(t *testing.T) {
	cfg := &ServiceConfig{}
	setServiceDefaults(cfg)
	cfg.Environment = "production"
	cfg.Relay.StoragePeers = []string{"pk-a", "pk-b"}

	path := filepath.Join(t.TempDir(), "service.yaml")
	require.NoError(t, SaveServiceConfig(cfg, path))

	loaded, err := LoadServiceConfig(path)
	require.NoError(t, err)
	require.Equal(t, cfg.Environment, loaded.Environment)
	require.Equal(t, cfg.Relay.StoragePeers, loaded.Relay.StoragePeers)
}

func TestSubstituteEnvVars_UsesDefaultWhenUnset(t *testing.T) {
	require.NoError(t, os.Unsetenv("AGORA_UNSET_VAR"))
	require.Equal(t, "fallback", SubstituteEnvVars("${AGORA_UNSET_VAR:fallback}"))
}

func TestSubstituteEnvVars_PrefersEnvOverDefault(t *testing.T) {
	t.Setenv("AGORA_SET_VAR", "real")
	require.Equal(t, "real", SubstituteEnvVars("${AGORA_SET_VAR:fallback}"))
}

func TestSubstituteEnvVars_LeavesPlainStringsUnchanged(t *testing.T) {
	require.Equal(t, "no-vars-here", SubstituteEnvVars("no-vars-here"))
}
