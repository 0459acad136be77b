package config

import "time"

// DefaultMainnet returns the default configuration for mainnet.
func DefaultMainnet() *Config {
	return &Config{
		Network: Mainnet,
		DataDir: DefaultDataDir(),
		BCHD: BCHDConfig{
			Target:  "bchd.fountainhead.cash:443",
			TLS:     true,
			Timeout: 30 * time.Second,
		},
		Wallet: WalletConfig{
			DedupCapacity:    100_000,
			ReconnectBackoff: 500 * time.Millisecond,
			FeeRate:          1,
		},
		RPC: RPCConfig{
			Enabled:    true,
			Addr:       "127.0.0.1",
			Port:       8555,
			AllowedIPs: []string{"127.0.0.1"},
		},
		Log: LogConfig{
			Level: "info",
			JSON:  false,
		},
	}
}

// DefaultTestnet returns the default configuration for testnet. It expects
// a local bchd with the SLP index enabled.
func DefaultTestnet() *Config {
	cfg := DefaultMainnet()
	cfg.Network = Testnet
	cfg.BCHD.Target = "127.0.0.1:18335"
	cfg.BCHD.TLS = false
	cfg.RPC.Port = 18555
	return cfg
}

// DefaultRegtest returns the default configuration for regtest.
func DefaultRegtest() *Config {
	cfg := DefaultTestnet()
	cfg.Network = Regtest
	cfg.RPC.Port = 18655
	return cfg
}

// Default returns the default configuration for the given network.
func Default(network NetworkType) *Config {
	switch network {
	case Testnet:
		return DefaultTestnet()
	case Regtest:
		return DefaultRegtest()
	default:
		return DefaultMainnet()
	}
}
