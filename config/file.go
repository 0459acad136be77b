package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable the wallet reads.
// SLPWALLET_BCHD_TARGET sets bchd.target.
const EnvPrefix = "SLPWALLET"

// envReplacer maps config keys like `wallet.fee_rate` and flag names like
// `fee-rate` onto environment variable suffixes.
var envReplacer = strings.NewReplacer(".", "_", "-", "_")

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(envReplacer)
	v.AutomaticEnv()
	return v
}

// setDefaults registers every key with its default. Env lookups and
// Unmarshal only see registered keys.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("network", string(cfg.Network))
	v.SetDefault("datadir", cfg.DataDir)

	v.SetDefault("bchd.target", cfg.BCHD.Target)
	v.SetDefault("bchd.tls", cfg.BCHD.TLS)
	v.SetDefault("bchd.ca_cert", cfg.BCHD.CACert)
	v.SetDefault("bchd.timeout", cfg.BCHD.Timeout)

	v.SetDefault("wallet.keystore", cfg.Wallet.Keystore)
	v.SetDefault("wallet.dedup_capacity", cfg.Wallet.DedupCapacity)
	v.SetDefault("wallet.reconnect_backoff", cfg.Wallet.ReconnectBackoff)
	v.SetDefault("wallet.fee_rate", cfg.Wallet.FeeRate)

	v.SetDefault("rpc.enabled", cfg.RPC.Enabled)
	v.SetDefault("rpc.addr", cfg.RPC.Addr)
	v.SetDefault("rpc.port", cfg.RPC.Port)
	v.SetDefault("rpc.allowed_ips", cfg.RPC.AllowedIPs)
	v.SetDefault("rpc.cors_origins", cfg.RPC.CORSOrigins)

	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.file", cfg.Log.File)
	v.SetDefault("log.json", cfg.Log.JSON)
}

// readFile merges the config file at path into v. A missing file is not
// an error.
func readFile(v *viper.Viper, path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	return nil
}

// Load builds the configuration. overrides holds flag values keyed by
// config key and wins over everything else. configPath may be empty to
// use <datadir>/slpwallet.yaml.
//
// The network and data directory are resolved from overrides and the
// environment before the file is read, since they select the defaults
// and the file location.
func Load(configPath string, overrides map[string]interface{}) (*Config, error) {
	v := newViper()

	network := NetworkType(strings.ToLower(stringOverride(v, overrides, "network")))
	if network == "" {
		network = Mainnet
	}
	base := Default(network)
	if dir := stringOverride(v, overrides, "datadir"); dir != "" {
		base.DataDir = dir
	}
	setDefaults(v, base)

	if configPath == "" {
		configPath = base.ConfigFile()
	}
	if err := readFile(v, configPath); err != nil {
		return nil, fmt.Errorf("loading config file: %w", err)
	}
	for key, value := range overrides {
		v.Set(key, value)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	cfg.Network = NetworkType(strings.ToLower(string(cfg.Network)))
	if cfg.Network != base.Network {
		return nil, fmt.Errorf("config file %s sets network %q, but %q was selected; use --network", configPath, cfg.Network, base.Network)
	}
	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func stringOverride(v *viper.Viper, overrides map[string]interface{}, key string) string {
	if s, ok := overrides[key].(string); ok && s != "" {
		return s
	}
	return v.GetString(key)
}

// EnsureDataDirs creates the data directory structure and a default config
// file if they don't already exist. Safe to call on every startup.
func EnsureDataDirs(cfg *Config) error {
	dirs := []string{
		cfg.DataDir,
		cfg.NetworkDataDir(),
		cfg.LogsDir(),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("creating directory %s: %w", dir, err)
		}
	}

	configPath := cfg.ConfigFile()
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := WriteDefaultConfig(configPath, cfg.Network); err != nil {
			return fmt.Errorf("writing config file: %w", err)
		}
	}
	return nil
}

// WriteDefaultConfig writes a commented default config file.
func WriteDefaultConfig(path string, network NetworkType) error {
	def := Default(network)
	content := `# SLP wallet configuration
#
# Every key can also be set with an environment variable:
# bchd.target -> SLPWALLET_BCHD_TARGET. Command-line flags win over both.
# The network is chosen with --network or SLPWALLET_NETWORK.

network: ` + string(network) + `

bchd:
  # gRPC endpoint of a bchd node with --slpindex enabled.
  target: "` + def.BCHD.Target + `"
  tls: ` + fmt.Sprint(def.BCHD.TLS) + `
  # ca_cert: /path/to/rpc.cert
  timeout: 30s

wallet:
  # keystore: /path/to/keystore.json
  dedup_capacity: 100000
  reconnect_backoff: 500ms
  fee_rate: 1

rpc:
  enabled: true
  addr: 127.0.0.1
  port: ` + fmt.Sprint(def.RPC.Port) + `
  allowed_ips:
    - 127.0.0.1
  # cors_origins:
  #   - http://localhost:3000

log:
  level: info
  json: false
  # file: /path/to/slpwallet.log
`
	return os.WriteFile(path, []byte(content), 0600)
}
