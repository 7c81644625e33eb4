package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// ServiceConfig is the ops-facing descriptor for the relay server and CLI
// defaults: storage-peer allowlist, relay identity, listener ports, and
// metrics toggles.
type ServiceConfig struct {
	Environment string        `yaml:"environment" json:"environment"`
	Relay       RelayConfig   `yaml:"relay" json:"relay"`
	Logging     LoggingConfig `yaml:"logging" json:"logging"`
	Metrics     MetricsConfig `yaml:"metrics" json:"metrics"`
	Anchor      AnchorConfig  `yaml:"anchor" json:"anchor"`
}

// RelayConfig configures a standalone relay server.
type RelayConfig struct {
	ListenAddr       string        `yaml:"listen_addr" json:"listen_addr"`
	IdentityKeyFile  string        `yaml:"identity_key_file" json:"identity_key_file"`
	StoragePeers     []string      `yaml:"storage_peers" json:"storage_peers"`
	StoreDir         string        `yaml:"store_dir" json:"store_dir"`
	KeepaliveSeconds int           `yaml:"keepalive_seconds" json:"keepalive_seconds"`
	MaxReconnectDelay time.Duration `yaml:"max_reconnect_delay" json:"max_reconnect_delay"`
}

// LoggingConfig controls the internal/logger sink.
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
	Output string `yaml:"output" json:"output"`
}

// MetricsConfig controls the Prometheus HTTP endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Addr    string `yaml:"addr" json:"addr"`
	Path    string `yaml:"path" json:"path"`
}

// AnchorConfig controls the optional chain-anchored clock. It is entirely
// auxiliary: when Enabled is false no ChainClock is constructed and the
// local clock alone is authoritative.
type AnchorConfig struct {
	Enabled     bool          `yaml:"enabled" json:"enabled"`
	Chain       string        `yaml:"chain" json:"chain"` // "ethereum" or "solana"
	RPCEndpoint string        `yaml:"rpc_endpoint" json:"rpc_endpoint"`
	MaxSkew     time.Duration `yaml:"max_skew" json:"max_skew"`
	OperatorKeyFile string    `yaml:"operator_key_file" json:"operator_key_file"`
}

func setServiceDefaults(cfg *ServiceConfig) {
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}
	if cfg.Relay.ListenAddr == "" {
		cfg.Relay.ListenAddr = ":8787"
	}
	if cfg.Relay.KeepaliveSeconds == 0 {
		cfg.Relay.KeepaliveSeconds = 30
	}
	if cfg.Relay.MaxReconnectDelay == 0 {
		cfg.Relay.MaxReconnectDelay = 30 * time.Second
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}
	if cfg.Metrics.Addr == "" {
		cfg.Metrics.Addr = ":9090"
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
	if cfg.Anchor.MaxSkew == 0 {
		cfg.Anchor.MaxSkew = 5 * time.Minute
	}
}

// LoadServiceConfig reads, applies env-var substitution to, and defaults a
// ServiceConfig from a YAML file at path.
func LoadServiceConfig(path string) (*ServiceConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read service config: %w", err)
	}

	cfg := &ServiceConfig{}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("config: parse service config: %w", err)
	}

	substituteServiceEnvVars(cfg)
	setServiceDefaults(cfg)
	return cfg, nil
}

// SaveServiceConfig writes cfg to path as YAML.
func SaveServiceConfig(cfg *ServiceConfig, path string) error {
	raw, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("config: marshal service config: %w", err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("config: write service config: %w", err)
	}
	return nil
}

// envVarPattern matches ${VAR} or ${VAR:default}.
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(?::([^}]*))?\}`)

// SubstituteEnvVars replaces ${VAR} or ${VAR:default} with the named
// environment variable's value, or the default if unset/empty.
func SubstituteEnvVars(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		parts := envVarPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}
		varName := parts[1]
		defaultValue := ""
		if len(parts) > 2 {
			defaultValue = parts[2]
		}
		if value := os.Getenv(varName); value != "" {
			return value
		}
		return defaultValue
	})
}

func substituteServiceEnvVars(cfg *ServiceConfig) {
	cfg.Relay.ListenAddr = SubstituteEnvVars(cfg.Relay.ListenAddr)
	cfg.Relay.IdentityKeyFile = SubstituteEnvVars(cfg.Relay.IdentityKeyFile)
	cfg.Relay.StoreDir = SubstituteEnvVars(cfg.Relay.StoreDir)
	cfg.Logging.Level = SubstituteEnvVars(cfg.Logging.Level)
	cfg.Logging.Output = SubstituteEnvVars(cfg.Logging.Output)
	cfg.Anchor.RPCEndpoint = SubstituteEnvVars(cfg.Anchor.RPCEndpoint)
	cfg.Anchor.OperatorKeyFile = SubstituteEnvVars(cfg.Anchor.OperatorKeyFile)
}
