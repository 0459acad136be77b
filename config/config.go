// Package config handles application configuration.
//
// Settings are layered, lowest precedence first: built-in defaults for the
// selected network, the optional slpwallet.yaml in the data directory,
// SLPWALLET_* environment variables and finally command-line flags.
package config

import (
	"net"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"time"

	"github.com/Klingon-tech/slpwallet/pkg/types"
)

// NetworkType identifies the BCH network the wallet runs on.
type NetworkType string

const (
	Mainnet NetworkType = "mainnet"
	Testnet NetworkType = "testnet"
	Regtest NetworkType = "regtest"
)

// AddressPrefix returns the CashAddr prefix of the network.
func (n NetworkType) AddressPrefix() string {
	switch n {
	case Testnet:
		return types.TestnetPrefix
	case Regtest:
		return types.RegtestPrefix
	default:
		return types.MainnetPrefix
	}
}

// ConfigFileName is the name of the optional config file in the data dir.
const ConfigFileName = "slpwallet.yaml"

// Config holds the wallet daemon's runtime configuration.
type Config struct {
	Network NetworkType `mapstructure:"network"`
	DataDir string      `mapstructure:"datadir"`

	// Node connection
	BCHD BCHDConfig `mapstructure:"bchd"`

	// Wallet engine
	Wallet WalletConfig `mapstructure:"wallet"`

	// Owner API
	RPC RPCConfig `mapstructure:"rpc"`

	// Logging
	Log LogConfig `mapstructure:"log"`
}

// BCHDConfig holds the bchd gRPC connection settings.
type BCHDConfig struct {
	Target  string        `mapstructure:"target"`
	TLS     bool          `mapstructure:"tls"`
	CACert  string        `mapstructure:"ca_cert"` // PEM file; empty uses the system roots.
	Timeout time.Duration `mapstructure:"timeout"` // Per unary call.
}

// WalletConfig holds wallet engine settings.
type WalletConfig struct {
	Keystore         string        `mapstructure:"keystore"` // Empty = <datadir>/<network>/keystore.json.
	DedupCapacity    int           `mapstructure:"dedup_capacity"`
	ReconnectBackoff time.Duration `mapstructure:"reconnect_backoff"`
	FeeRate          uint64        `mapstructure:"fee_rate"` // Satoshis per byte.
}

// RPCConfig holds owner API server settings.
type RPCConfig struct {
	Enabled     bool     `mapstructure:"enabled"`
	Addr        string   `mapstructure:"addr"`
	Port        int      `mapstructure:"port"`
	AllowedIPs  []string `mapstructure:"allowed_ips"`
	CORSOrigins []string `mapstructure:"cors_origins"` // "*" = all.
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
	JSON  bool   `mapstructure:"json"`
}

// =============================================================================
// Directory helpers
// =============================================================================

// DefaultDataDir returns the platform-specific default data directory.
//
//	Linux:   ~/.slpwallet
//	macOS:   ~/Library/Application Support/SLPWallet
//	Windows: %APPDATA%\SLPWallet
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".slpwallet"
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "SLPWallet")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData != "" {
			return filepath.Join(appData, "SLPWallet")
		}
		return filepath.Join(home, "AppData", "Roaming", "SLPWallet")
	default:
		return filepath.Join(home, ".slpwallet")
	}
}

// NetworkDataDir returns the network-specific data directory.
func (c *Config) NetworkDataDir() string {
	return filepath.Join(c.DataDir, string(c.Network))
}

// KeystorePath returns the keystore file path.
func (c *Config) KeystorePath() string {
	if c.Wallet.Keystore != "" {
		return c.Wallet.Keystore
	}
	return filepath.Join(c.NetworkDataDir(), "keystore.json")
}

// TokenDBDir returns the token metadata database directory. It is shared
// by all networks, each under its own key prefix.
func (c *Config) TokenDBDir() string {
	return filepath.Join(c.DataDir, "tokens")
}

// LogsDir returns the logs directory.
func (c *Config) LogsDir() string {
	return filepath.Join(c.DataDir, "logs")
}

// ConfigFile returns the config file path.
func (c *Config) ConfigFile() string {
	return filepath.Join(c.DataDir, ConfigFileName)
}

// RPCListenAddr returns host:port for the owner API listener.
func (c *Config) RPCListenAddr() string {
	return net.JoinHostPort(c.RPC.Addr, strconv.Itoa(c.RPC.Port))
}
