package config

import (
	"github.com/urfave/cli/v2"
)

// ConfigFlag points at an alternative config file.
var ConfigFlag = &cli.StringFlag{
	Name:    "config",
	Aliases: []string{"c"},
	Usage:   "Config file path (default: <datadir>/" + ConfigFileName + ")",
}

var (
	NetworkFlag = &cli.StringFlag{
		Name:  "network",
		Usage: "Network: mainnet, testnet or regtest",
	}
	DataDirFlag = &cli.StringFlag{
		Name:  "datadir",
		Usage: "Data directory (default: ~/.slpwallet)",
	}
	BCHDFlag = &cli.StringFlag{
		Name:  "bchd",
		Usage: "bchd gRPC endpoint as host:port",
	}
	BCHDTLSFlag = &cli.BoolFlag{
		Name:  "bchd-tls",
		Usage: "Use TLS for the bchd connection",
	}
	BCHDCAFlag = &cli.StringFlag{
		Name:  "bchd-ca",
		Usage: "PEM certificate to trust for bchd (implies --bchd-tls)",
	}
	KeystoreFlag = &cli.StringFlag{
		Name:  "keystore",
		Usage: "Keystore file path (default: <datadir>/<network>/keystore.json)",
	}
	FeeRateFlag = &cli.Uint64Flag{
		Name:  "fee-rate",
		Usage: "Fee rate in satoshis per byte",
	}
	RPCFlag = &cli.BoolFlag{
		Name:  "rpc",
		Usage: "Enable the owner JSON-RPC server",
	}
	RPCAddrFlag = &cli.StringFlag{
		Name:  "rpc-addr",
		Usage: "Owner API listen address",
	}
	RPCPortFlag = &cli.IntFlag{
		Name:  "rpc-port",
		Usage: "Owner API port (mainnet: 8555, testnet: 18555, regtest: 18655)",
	}
	RPCAllowedFlag = &cli.StringSliceFlag{
		Name:  "rpc-allowed",
		Usage: "IPs or CIDRs allowed to call the owner API",
	}
	RPCCORSFlag = &cli.StringSliceFlag{
		Name:  "rpc-cors",
		Usage: "Allowed CORS origins for the owner API (\"*\" for all)",
	}
	LogLevelFlag = &cli.StringFlag{
		Name:  "log-level",
		Usage: "Log level: trace, debug, info, warn, error",
	}
	LogFileFlag = &cli.StringFlag{
		Name:  "log-file",
		Usage: "Also write logs to this file",
	}
	LogJSONFlag = &cli.BoolFlag{
		Name:  "log-json",
		Usage: "Output logs as JSON",
	}
)

// binding ties a flag to the config key it overrides.
type binding struct {
	flag  cli.Flag
	key   string
	value func(c *cli.Context, name string) interface{}
}

func stringValue(c *cli.Context, name string) interface{} { return c.String(name) }
func boolValue(c *cli.Context, name string) interface{}   { return c.Bool(name) }
func intValue(c *cli.Context, name string) interface{}    { return c.Int(name) }
func uint64Value(c *cli.Context, name string) interface{} { return c.Uint64(name) }
func sliceValue(c *cli.Context, name string) interface{}  { return c.StringSlice(name) }

var bindings = []binding{
	{NetworkFlag, "network", stringValue},
	{DataDirFlag, "datadir", stringValue},
	{BCHDFlag, "bchd.target", stringValue},
	{BCHDTLSFlag, "bchd.tls", boolValue},
	{BCHDCAFlag, "bchd.ca_cert", stringValue},
	{KeystoreFlag, "wallet.keystore", stringValue},
	{FeeRateFlag, "wallet.fee_rate", uint64Value},
	{RPCFlag, "rpc.enabled", boolValue},
	{RPCAddrFlag, "rpc.addr", stringValue},
	{RPCPortFlag, "rpc.port", intValue},
	{RPCAllowedFlag, "rpc.allowed_ips", sliceValue},
	{RPCCORSFlag, "rpc.cors_origins", sliceValue},
	{LogLevelFlag, "log.level", stringValue},
	{LogFileFlag, "log.file", stringValue},
	{LogJSONFlag, "log.json", boolValue},
}

// Flags returns the daemon's configuration flags.
func Flags() []cli.Flag {
	flags := []cli.Flag{ConfigFlag}
	for _, b := range bindings {
		flags = append(flags, b.flag)
	}
	return flags
}

// Overrides collects the flags explicitly set on c, keyed by config key.
func Overrides(c *cli.Context) map[string]interface{} {
	out := make(map[string]interface{})
	for _, b := range bindings {
		name := b.flag.Names()[0]
		if c.IsSet(name) {
			out[b.key] = b.value(c, name)
		}
	}
	// A CA certificate only makes sense over TLS.
	if c.IsSet(BCHDCAFlag.Name) && !c.IsSet(BCHDTLSFlag.Name) {
		out["bchd.tls"] = true
	}
	return out
}

// FromContext loads the configuration for a cli command.
func FromContext(c *cli.Context) (*Config, error) {
	return Load(c.String(ConfigFlag.Name), Overrides(c))
}
