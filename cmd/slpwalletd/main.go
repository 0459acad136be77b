// SLP wallet daemon.
//
// Usage:
//
//	slpwalletd [--network=testnet --bchd=host:port ...]  Run wallet
//	slpwalletd --help                                     Show help
package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Klingon-tech/slpwallet/config"
	"github.com/Klingon-tech/slpwallet/internal/node"
	"github.com/urfave/cli/v2"
	"golang.org/x/term"
)

// passwordEnv unlocks the keystore without a prompt.
const passwordEnv = config.EnvPrefix + "_PASSWORD"

var version = "0.1.0"

func main() {
	app := &cli.App{
		Name:    "slpwalletd",
		Usage:   "single-address BCH and SLP token wallet daemon",
		Version: version,
		Flags:   config.Flags(),
		Action:  run,
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	cfg, err := config.FromContext(c)
	if err != nil {
		return err
	}
	if err := config.EnsureDataDirs(cfg); err != nil {
		return fmt.Errorf("ensuring data dirs: %w", err)
	}

	_, statErr := os.Stat(cfg.KeystorePath())
	password, err := readPassword(errors.Is(statErr, os.ErrNotExist))
	if err != nil {
		return err
	}

	n, err := node.New(cfg, node.Options{Password: password})
	if err != nil {
		return err
	}
	if m := n.NewMnemonic(); m != "" {
		fmt.Fprintln(os.Stderr, "New wallet created. Write down this mnemonic, it is shown only once:")
		fmt.Fprintf(os.Stderr, "\n  %s\n\n", m)
	}

	if err := n.Start(context.Background()); err != nil {
		n.Stop()
		return err
	}
	if addr := n.RPCAddr(); addr != "" {
		fmt.Fprintf(os.Stderr, "Owner API listening on http://%s\n", addr)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	n.Stop()
	return nil
}

// readPassword takes the keystore password from the environment or the
// terminal. A new keystore asks for confirmation.
func readPassword(create bool) ([]byte, error) {
	if pw := os.Getenv(passwordEnv); pw != "" {
		return []byte(pw), nil
	}
	if !term.IsTerminal(int(syscall.Stdin)) {
		return nil, fmt.Errorf("no terminal to prompt for a password; set %s", passwordEnv)
	}

	prompt := "Keystore password: "
	if create {
		prompt = "New keystore password: "
	}
	pw, err := promptPassword(prompt)
	if err != nil {
		return nil, err
	}
	if len(pw) == 0 {
		return nil, errors.New("password must not be empty")
	}
	if create {
		confirm, err := promptPassword("Confirm password: ")
		if err != nil {
			return nil, err
		}
		if !bytes.Equal(pw, confirm) {
			return nil, errors.New("passwords do not match")
		}
	}
	return pw, nil
}

func promptPassword(prompt string) ([]byte, error) {
	fmt.Fprint(os.Stderr, prompt)
	pw, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr) // newline after hidden input
	if err != nil {
		return nil, err
	}
	return pw, nil
}
