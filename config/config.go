// Package config loads and validates the relayer service configuration.
//
// Configuration is environment-sourced: every value can be set through an
// environment variable, with an optional YAML file (--config) providing the
// same keys in nested form. Environment variables win over file values.
// Required values are validated at load time so a misconfigured process
// fails before serving any traffic.
package config

import (
	"fmt"
	"math/big"
	"net/url"
	"time"

	"github.com/spf13/viper"

	"github.com/digijoe7/mezo-relayer/logging"
)

const (
	// DefaultChainID is the chain this relayer is deployed for (Mezo testnet).
	DefaultChainID = 31612

	// DefaultPort is the HTTP listen port.
	DefaultPort = 8080

	// DefaultQueryTimeoutSeconds bounds individual chain queries.
	// 0 disables the bound and relies on transport defaults.
	DefaultQueryTimeoutSeconds = 30

	// DefaultBalanceCheckIntervalSeconds is the balance monitor period.
	DefaultBalanceCheckIntervalSeconds = 60

	// DefaultBalanceWarnWei is 0.1 native token.
	DefaultBalanceWarnWei = "100000000000000000"

	// DefaultBalanceCriticalWei is 0.01 native token.
	DefaultBalanceCriticalWei = "10000000000000000"
)

// Config is the full configuration for the relayer service.
type Config struct {
	// Node is the configuration for connecting to the EVM node.
	Node NodeConfig `yaml:"node"`

	// Keys configures the relayer signing key source.
	Keys KeysConfig `yaml:"keys"`

	// Server configures the public HTTP API.
	Server ServerConfig `yaml:"server"`

	// Metrics configuration.
	Metrics MetricsConfig `yaml:"metrics"`

	// Pprof configuration.
	Pprof PprofConfig `yaml:"pprof"`

	// Logging configuration.
	Logging logging.Config `yaml:"logging"`

	// BalanceMonitor configures background relayer balance monitoring.
	BalanceMonitor BalanceMonitorConfig `yaml:"balance_monitor"`
}

// NodeConfig contains the EVM node connection settings.
type NodeConfig struct {
	// RPCURL is the JSON-RPC endpoint of the node (env RPC_URL).
	// Required.
	RPCURL string `yaml:"rpc_url"`

	// ChainID is the chain identity this deployment expects (env CHAIN_ID).
	// The live node's reported id must match it.
	// Default: 31612
	ChainID int64 `yaml:"chain_id"`

	// QueryTimeoutSeconds bounds each chain query (env QUERY_TIMEOUT_SECONDS).
	// 0 disables the bound.
	// Default: 30
	QueryTimeoutSeconds int64 `yaml:"query_timeout_seconds"`
}

// KeysConfig configures where the relayer signing key comes from.
// Exactly one source must be set.
type KeysConfig struct {
	// PrivateKeyHex is the hex-encoded secp256k1 key (env RELAYER_PRIVATE_KEY).
	// A 0x prefix is accepted.
	PrivateKeyHex string `yaml:"private_key_hex"`

	// KeyFile is a path to a YAML key file (env RELAYER_KEY_FILE) with a
	// private_key_hex field.
	KeyFile string `yaml:"key_file"`
}

// ServerConfig contains the public HTTP API settings.
type ServerConfig struct {
	// Port is the listen port (env PORT).
	// Default: 8080
	Port int `yaml:"port"`

	// CORSAllowedOrigin is the single origin allowed by CORS
	// (env CORS_ALLOWED_ORIGIN). "*" permits all origins.
	// Default: "*"
	CORSAllowedOrigin string `yaml:"cors_allowed_origin"`
}

// BalanceMonitorConfig contains background balance monitoring settings.
// The monitor is observability only; the pipeline always checks funding
// live per request.
type BalanceMonitorConfig struct {
	// CheckIntervalSeconds is how often to read the relayer balance
	// (env BALANCE_CHECK_INTERVAL_SECONDS). 0 disables the monitor.
	// Default: 60
	CheckIntervalSeconds int64 `yaml:"check_interval_seconds"`

	// WarnThresholdWei logs a warning when the balance drops below it
	// (env BALANCE_WARN_WEI). Decimal wei string.
	// Default: 0.1 native token
	WarnThresholdWei string `yaml:"warn_threshold_wei"`

	// CriticalThresholdWei logs an error when the balance drops below it
	// (env BALANCE_CRITICAL_WEI). Decimal wei string.
	// Default: 0.01 native token
	CriticalThresholdWei string `yaml:"critical_threshold_wei"`
}

// envBindings maps viper keys to their environment variable names.
var envBindings = map[string]string{
	"node.rpc_url":                           "RPC_URL",
	"node.chain_id":                          "CHAIN_ID",
	"node.query_timeout_seconds":             "QUERY_TIMEOUT_SECONDS",
	"keys.private_key_hex":                   "RELAYER_PRIVATE_KEY",
	"keys.key_file":                          "RELAYER_KEY_FILE",
	"server.port":                            "PORT",
	"server.cors_allowed_origin":             "CORS_ALLOWED_ORIGIN",
	"metrics.enabled":                        "METRICS_ENABLED",
	"metrics.addr":                           "METRICS_ADDR",
	"pprof.enabled":                          "PPROF_ENABLED",
	"pprof.addr":                             "PPROF_ADDR",
	"logging.level":                          "LOG_LEVEL",
	"logging.format":                         "LOG_FORMAT",
	"balance_monitor.check_interval_seconds": "BALANCE_CHECK_INTERVAL_SECONDS",
	"balance_monitor.warn_threshold_wei":     "BALANCE_WARN_WEI",
	"balance_monitor.critical_threshold_wei": "BALANCE_CRITICAL_WEI",
}

// Load builds the configuration from the environment, merged over an
// optional YAML config file. Pass an empty path to skip the file.
func Load(configFile string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind env %s: %w", env, err)
		}
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{
		Node: NodeConfig{
			RPCURL:              v.GetString("node.rpc_url"),
			ChainID:             v.GetInt64("node.chain_id"),
			QueryTimeoutSeconds: v.GetInt64("node.query_timeout_seconds"),
		},
		Keys: KeysConfig{
			PrivateKeyHex: v.GetString("keys.private_key_hex"),
			KeyFile:       v.GetString("keys.key_file"),
		},
		Server: ServerConfig{
			Port:              v.GetInt("server.port"),
			CORSAllowedOrigin: v.GetString("server.cors_allowed_origin"),
		},
		Metrics: MetricsConfig{
			Enabled: v.GetBool("metrics.enabled"),
			Addr:    v.GetString("metrics.addr"),
		},
		Pprof: PprofConfig{
			Enabled: v.GetBool("pprof.enabled"),
			Addr:    v.GetString("pprof.addr"),
		},
		Logging: logging.Config{
			Level:             v.GetString("logging.level"),
			Format:            v.GetString("logging.format"),
			Async:             v.GetBool("logging.async"),
			AsyncBufferSize:   v.GetInt("logging.async_buffer_size"),
			AsyncPollInterval: v.GetInt("logging.async_poll_interval"),
			EnableCaller:      v.GetBool("logging.enable_caller"),
		},
		BalanceMonitor: BalanceMonitorConfig{
			CheckIntervalSeconds: v.GetInt64("balance_monitor.check_interval_seconds"),
			WarnThresholdWei:     v.GetString("balance_monitor.warn_threshold_wei"),
			CriticalThresholdWei: v.GetString("balance_monitor.critical_threshold_wei"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("node.chain_id", DefaultChainID)
	v.SetDefault("node.query_timeout_seconds", DefaultQueryTimeoutSeconds)
	v.SetDefault("server.port", DefaultPort)
	v.SetDefault("server.cors_allowed_origin", "*")
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.addr", ":9090")
	v.SetDefault("pprof.enabled", false)
	v.SetDefault("pprof.addr", "localhost:6060")

	logDefaults := logging.DefaultConfig()
	v.SetDefault("logging.level", logDefaults.Level)
	v.SetDefault("logging.format", logDefaults.Format)
	v.SetDefault("logging.async", logDefaults.Async)
	v.SetDefault("logging.async_buffer_size", logDefaults.AsyncBufferSize)
	v.SetDefault("logging.async_poll_interval", logDefaults.AsyncPollInterval)
	v.SetDefault("logging.enable_caller", logDefaults.EnableCaller)

	v.SetDefault("balance_monitor.check_interval_seconds", DefaultBalanceCheckIntervalSeconds)
	v.SetDefault("balance_monitor.warn_threshold_wei", DefaultBalanceWarnWei)
	v.SetDefault("balance_monitor.critical_threshold_wei", DefaultBalanceCriticalWei)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Node.RPCURL == "" {
		return fmt.Errorf("node.rpc_url is required (env RPC_URL)")
	}
	if _, err := url.Parse(c.Node.RPCURL); err != nil {
		return fmt.Errorf("invalid node.rpc_url: %w", err)
	}

	if c.Node.ChainID <= 0 {
		return fmt.Errorf("node.chain_id must be positive, got %d", c.Node.ChainID)
	}

	if c.Node.QueryTimeoutSeconds < 0 {
		return fmt.Errorf("node.query_timeout_seconds must be >= 0 (0 = no bound)")
	}

	if c.Keys.PrivateKeyHex == "" && c.Keys.KeyFile == "" {
		return fmt.Errorf("a relayer key source is required (env RELAYER_PRIVATE_KEY or RELAYER_KEY_FILE)")
	}
	if c.Keys.PrivateKeyHex != "" && c.Keys.KeyFile != "" {
		return fmt.Errorf("RELAYER_PRIVATE_KEY and RELAYER_KEY_FILE are mutually exclusive")
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in [1,65535], got %d", c.Server.Port)
	}

	if c.Server.CORSAllowedOrigin == "" {
		return fmt.Errorf("server.cors_allowed_origin must not be empty (use \"*\" to allow all)")
	}

	if c.BalanceMonitor.CheckIntervalSeconds < 0 {
		return fmt.Errorf("balance_monitor.check_interval_seconds must be >= 0 (0 = disabled)")
	}

	if _, err := parseWei(c.BalanceMonitor.WarnThresholdWei); err != nil {
		return fmt.Errorf("invalid balance_monitor.warn_threshold_wei: %w", err)
	}
	if _, err := parseWei(c.BalanceMonitor.CriticalThresholdWei); err != nil {
		return fmt.Errorf("invalid balance_monitor.critical_threshold_wei: %w", err)
	}

	return nil
}

// QueryTimeout returns the per-query bound as a duration. 0 means unbounded.
func (c *Config) QueryTimeout() time.Duration {
	return time.Duration(c.Node.QueryTimeoutSeconds) * time.Second
}

// ListenAddr returns the HTTP API listen address.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}

// BalanceCheckInterval returns the balance monitor period. 0 disables it.
func (c *Config) BalanceCheckInterval() time.Duration {
	return time.Duration(c.BalanceMonitor.CheckIntervalSeconds) * time.Second
}

// BalanceWarnThreshold returns the warn threshold in wei.
// Validate guarantees the stored string parses.
func (c *Config) BalanceWarnThreshold() *big.Int {
	wei, _ := parseWei(c.BalanceMonitor.WarnThresholdWei)
	return wei
}

// BalanceCriticalThreshold returns the critical threshold in wei.
func (c *Config) BalanceCriticalThreshold() *big.Int {
	wei, _ := parseWei(c.BalanceMonitor.CriticalThresholdWei)
	return wei
}

// parseWei parses a non-negative decimal wei amount.
func parseWei(s string) (*big.Int, error) {
	wei, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("not a decimal integer: %q", s)
	}
	if wei.Sign() < 0 {
		return nil, fmt.Errorf("must be >= 0, got %s", s)
	}
	return wei, nil
}
