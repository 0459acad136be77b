// derive_key.go prints the pubkey, address and WIF for a mnemonic or WIF
// stored in a file.
// Usage: go run scripts/derive_key.go <secretfile> [mainnet|testnet|regtest]
package main

import (
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/Klingon-tech/slpwallet/config"
	"github.com/Klingon-tech/slpwallet/internal/wallet"
	"github.com/Klingon-tech/slpwallet/pkg/types"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: derive_key <secretfile> [network]")
		os.Exit(1)
	}
	network := config.Mainnet
	if len(os.Args) > 2 {
		network = config.NetworkType(os.Args[2])
	}
	types.SetAddressPrefix(network.AddressPrefix())

	data, err := os.ReadFile(os.Args[1])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	secret, err := wallet.ParseSecret(strings.TrimSpace(string(data)))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Printf("kind=%s\n", secret.Kind())
	if p := secret.Path(); p != "" {
		fmt.Printf("path=%s\n", p)
	}
	fmt.Printf("pubkey=%s\n", hex.EncodeToString(secret.Key().PublicKey()))
	fmt.Printf("address=%s\n", secret.Address().String())
	fmt.Printf("wif=%s\n", secret.WIF())
}
