package config

import (
	"fmt"
	"net"
	"strings"

	"github.com/rs/zerolog"
)

// Validate checks the config for obvious operator mistakes.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	switch cfg.Network {
	case Mainnet, Testnet, Regtest:
	default:
		return fmt.Errorf("network must be %q, %q or %q", Mainnet, Testnet, Regtest)
	}
	if cfg.DataDir == "" {
		return fmt.Errorf("datadir is required")
	}

	if strings.TrimSpace(cfg.BCHD.Target) == "" {
		return fmt.Errorf("bchd.target is required")
	}
	if _, _, err := net.SplitHostPort(cfg.BCHD.Target); err != nil {
		return fmt.Errorf("bchd.target must be host:port: %w", err)
	}
	if cfg.BCHD.CACert != "" && !cfg.BCHD.TLS {
		return fmt.Errorf("bchd.ca_cert requires bchd.tls")
	}
	if cfg.BCHD.Timeout <= 0 {
		return fmt.Errorf("bchd.timeout must be positive")
	}

	if cfg.Wallet.DedupCapacity <= 0 {
		return fmt.Errorf("wallet.dedup_capacity must be positive")
	}
	if cfg.Wallet.ReconnectBackoff <= 0 {
		return fmt.Errorf("wallet.reconnect_backoff must be positive")
	}
	if cfg.Wallet.FeeRate == 0 {
		return fmt.Errorf("wallet.fee_rate must be at least 1 sat/byte")
	}

	if cfg.RPC.Port < 0 || cfg.RPC.Port > 65535 {
		return fmt.Errorf("rpc.port must be in range [0, 65535]")
	}
	for i, entry := range cfg.RPC.AllowedIPs {
		if _, _, err := net.ParseCIDR(entry); err == nil {
			continue
		}
		if net.ParseIP(entry) == nil {
			return fmt.Errorf("rpc.allowed_ips[%d] %q is not an IP or CIDR", i, entry)
		}
	}

	if _, err := zerolog.ParseLevel(strings.ToLower(cfg.Log.Level)); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	return nil
}
