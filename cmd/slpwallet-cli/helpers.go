package main

import (
	"github.com/Klingon-tech/slpwallet/config"
	"github.com/Klingon-tech/slpwallet/pkg/types"
	"github.com/shopspring/decimal"
)

// satsPerCoin is the number of decimal places of one BCH.
const satsPerCoin = 8

func setAddressPrefix(network config.NetworkType) {
	types.SetAddressPrefix(network.AddressPrefix())
}

// formatSats renders satoshis as a BCH amount with all eight decimals.
func formatSats(sats int64) string {
	return decimal.New(sats, -satsPerCoin).StringFixed(satsPerCoin) + " BCH"
}
