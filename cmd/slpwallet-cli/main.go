// slpwallet-cli is a command-line client for a running slpwalletd.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"syscall"

	"github.com/Klingon-tech/slpwallet/config"
	"github.com/Klingon-tech/slpwallet/internal/rpc"
	"github.com/Klingon-tech/slpwallet/internal/rpcclient"
	"github.com/urfave/cli/v2"
	"golang.org/x/term"
)

var version = "0.1.0"

var (
	rpcFlag = &cli.StringFlag{
		Name:    "rpc",
		Usage:   "Owner API endpoint of slpwalletd",
		Value:   "http://127.0.0.1:8555",
		EnvVars: []string{config.EnvPrefix + "_RPC_URL"},
	}
	networkFlag = &cli.StringFlag{
		Name:    "network",
		Usage:   "Network of the daemon: mainnet, testnet or regtest",
		Value:   string(config.Mainnet),
		EnvVars: []string{config.EnvPrefix + "_NETWORK"},
	}
	jsonFlag = &cli.BoolFlag{
		Name:  "json",
		Usage: "Print raw JSON results",
	}
	tokenFlag = &cli.StringFlag{
		Name:  "token",
		Usage: "Token ID (hex)",
	}
)

func main() {
	app := &cli.App{
		Name:    "slpwallet-cli",
		Usage:   "command-line client for slpwalletd",
		Version: version,
		Flags:   []cli.Flag{rpcFlag, networkFlag, jsonFlag},
		Before: func(c *cli.Context) error {
			network := config.NetworkType(c.String(networkFlag.Name))
			switch network {
			case config.Mainnet, config.Testnet, config.Regtest:
			default:
				return fmt.Errorf("unknown network %q", network)
			}
			setAddressPrefix(network)
			return nil
		},
		Commands: []*cli.Command{
			addressCommand,
			balanceCommand,
			coinsCommand,
			tokenCommand,
			sendCommand,
			sendTokenCommand,
			statusCommand,
			reloadCommand,
			importCommand,
		},
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		switch rpcclient.ErrorCode(err) {
		case rpc.CodeInsufficientFunds:
			fmt.Fprintln(os.Stderr, "Run 'slpwallet-cli balance' to see spendable funds.")
		case rpc.CodeNetworkError:
			fmt.Fprintln(os.Stderr, "The wallet could not reach bchd; try again once 'status' shows connected.")
		}
		os.Exit(1)
	}
}

func client(c *cli.Context) *rpcclient.Client {
	return rpcclient.New(c.String(rpcFlag.Name))
}

var addressCommand = &cli.Command{
	Name:  "address",
	Usage: "Show the wallet address",
	Action: func(c *cli.Context) error {
		acct, err := client(c).Address()
		if err != nil {
			return fmt.Errorf("wallet_getAddress: %w", err)
		}
		if c.Bool(jsonFlag.Name) {
			return printJSON(acct)
		}
		fmt.Printf("Address: %s\n", acct.Address)
		fmt.Printf("Secret:  %s\n", acct.Kind)
		if acct.Path != "" {
			fmt.Printf("Path:    %s\n", acct.Path)
		}
		return nil
	},
}

var balanceCommand = &cli.Command{
	Name:  "balance",
	Usage: "Show base and token balances",
	Action: func(c *cli.Context) error {
		bal, err := client(c).Balance()
		if err != nil {
			return fmt.Errorf("wallet_getBalance: %w", err)
		}
		if c.Bool(jsonFlag.Name) {
			return printJSON(bal)
		}
		fmt.Printf("BCH: %s (%d sats in %d coins)\n", formatSats(bal.Base), bal.Base, bal.BaseCoins)
		if len(bal.Tokens) == 0 {
			return nil
		}
		fmt.Println("\nTokens:")
		for _, t := range bal.Tokens {
			label := t.Ticker
			if label == "" {
				label = t.ID.String()[:8]
			}
			fmt.Printf("  %-10s %s  (%s, %d coins)\n", label, t.Display.String(), t.Kind, t.Coins)
			fmt.Printf("  %-10s %s\n", "", t.ID)
		}
		return nil
	},
}

var coinsCommand = &cli.Command{
	Name:  "coins",
	Usage: "List spendable coins; with --token, list that token's coins",
	Flags: []cli.Flag{tokenFlag},
	Action: func(c *cli.Context) error {
		res, err := client(c).ListCoins(c.String(tokenFlag.Name))
		if err != nil {
			return fmt.Errorf("wallet_listCoins: %w", err)
		}
		if c.Bool(jsonFlag.Name) {
			return printJSON(res)
		}
		for _, coin := range res.Coins {
			switch {
			case coin.MintBaton:
				fmt.Printf("%s:%d  mint baton\n", coin.TxID, coin.Index)
			case coin.TokenID != nil:
				fmt.Printf("%s:%d  %s\n", coin.TxID, coin.Index, coin.Amount)
			default:
				fmt.Printf("%s:%d  %d sats\n", coin.TxID, coin.Index, coin.Value)
			}
		}
		fmt.Printf("Total: %s (%d coins)\n", res.Total, len(res.Coins))
		return nil
	},
}

var tokenCommand = &cli.Command{
	Name:      "token",
	Usage:     "Show token metadata",
	ArgsUsage: "<token_id>",
	Action: func(c *cli.Context) error {
		if c.NArg() != 1 {
			return cli.ShowCommandHelp(c, "token")
		}
		info, err := client(c).TokenInfo(c.Args().First())
		if err != nil {
			return fmt.Errorf("wallet_getTokenInfo: %w", err)
		}
		if c.Bool(jsonFlag.Name) {
			return printJSON(info)
		}
		fmt.Printf("Token:    %s\n", info.TokenID)
		fmt.Printf("Kind:     %s\n", info.Kind)
		fmt.Printf("Name:     %s\n", info.Name)
		fmt.Printf("Ticker:   %s\n", info.Ticker)
		fmt.Printf("Decimals: %d\n", info.Decimals)
		if info.GroupID != nil {
			fmt.Printf("Group:    %s\n", info.GroupID)
		}
		return nil
	},
}

var sendCommand = &cli.Command{
	Name:      "send",
	Usage:     "Send satoshis to an address",
	ArgsUsage: "<address> <sats>",
	Action: func(c *cli.Context) error {
		if c.NArg() != 2 {
			return cli.ShowCommandHelp(c, "send")
		}
		amount, err := strconv.ParseUint(c.Args().Get(1), 10, 64)
		if err != nil || amount == 0 {
			return fmt.Errorf("invalid amount %q: must be a positive number of satoshis", c.Args().Get(1))
		}
		res, err := client(c).Send(c.Args().Get(0), amount)
		if err != nil {
			return fmt.Errorf("wallet_send: %w", err)
		}
		return printSend(c, res)
	},
}

var sendTokenCommand = &cli.Command{
	Name:      "sendtoken",
	Usage:     "Send a token amount (in display units) to an address",
	ArgsUsage: "<address> <token_id> <amount>",
	Action: func(c *cli.Context) error {
		if c.NArg() != 3 {
			return cli.ShowCommandHelp(c, "sendtoken")
		}
		args := c.Args()
		res, err := client(c).SendToken(args.Get(0), args.Get(1), args.Get(2))
		if err != nil {
			return fmt.Errorf("wallet_sendToken: %w", err)
		}
		return printSend(c, res)
	},
}

var statusCommand = &cli.Command{
	Name:  "status",
	Usage: "Show connection state and sync height",
	Action: func(c *cli.Context) error {
		st, err := client(c).Status()
		if err != nil {
			return fmt.Errorf("wallet_getStatus: %w", err)
		}
		if c.Bool(jsonFlag.Name) {
			return printJSON(st)
		}
		fmt.Printf("Address:      %s\n", st.Address)
		fmt.Printf("Running:      %v\n", st.Running)
		fmt.Printf("Transactions: %s\n", st.State)
		fmt.Printf("Blocks:       %s\n", st.BlockState)
		fmt.Printf("Height:       %d\n", st.Height)
		fmt.Printf("Seen txids:   %d\n", st.Seen)
		fmt.Printf("Balance:      %d sats\n", st.BaseBalance)
		return nil
	},
}

var reloadCommand = &cli.Command{
	Name:  "reload",
	Usage: "Rebuild the ledger from the address history",
	Action: func(c *cli.Context) error {
		res, err := client(c).Reload()
		if err != nil {
			return fmt.Errorf("wallet_reload: %w", err)
		}
		if c.Bool(jsonFlag.Name) {
			return printJSON(res)
		}
		fmt.Printf("Reloaded: %d sats, %d tokens\n", res.BaseBalance, res.Tokens)
		return nil
	},
}

var importCommand = &cli.Command{
	Name:  "import",
	Usage: "Replace the wallet secret with a mnemonic or WIF read from the terminal",
	Action: func(c *cli.Context) error {
		secret, err := readSecret("Mnemonic or WIF: ")
		if err != nil {
			return err
		}
		res, err := client(c).ImportSecret(secret)
		if err != nil {
			return fmt.Errorf("wallet_importSecret: %w", err)
		}
		fmt.Printf("Imported. New address: %s\n", res.Address)
		return nil
	},
}

func printSend(c *cli.Context, res *rpc.SendResult) error {
	if c.Bool(jsonFlag.Name) {
		return printJSON(res)
	}
	fmt.Printf("Transaction sent!\n")
	fmt.Printf("  TxID:   %s\n", res.TxID)
	fmt.Printf("  Fee:    %d sats\n", res.Fee)
	fmt.Printf("  Output: %d sats\n", res.SendAmount)
	return nil
}

func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

// readSecret reads a secret without echo so it stays out of shell history.
func readSecret(prompt string) (string, error) {
	if !term.IsTerminal(int(syscall.Stdin)) {
		return "", fmt.Errorf("import needs a terminal")
	}
	fmt.Fprint(os.Stderr, prompt)
	b, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr) // newline after hidden input
	if err != nil {
		return "", err
	}
	return string(b), nil
}
