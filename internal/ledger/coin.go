package ledger

import (
	"sort"

	"github.com/Klingon-tech/slpwallet/pkg/types"
	"github.com/shopspring/decimal"
)

// BaseCoin is a base-currency output owned by the tracked address.
type BaseCoin struct {
	Outpoint types.Outpoint `json:"outpoint"`
	Amount   uint64         `json:"amount"`
	Address  string         `json:"address"`

	seq uint64
}

// TokenCoin is a token-carrying output owned by the tracked address.
// Dust is the base-currency value riding on the same output.
type TokenCoin struct {
	Outpoint  types.Outpoint  `json:"outpoint"`
	TokenID   types.TokenID   `json:"token_id"`
	Amount    decimal.Decimal `json:"amount"`
	Address   string          `json:"address"`
	Dust      uint64          `json:"dust"`
	MintBaton bool            `json:"mint_baton,omitempty"`

	seq uint64
}

// SortBaseCoins returns the coins ordered by ascending amount. Coins of
// equal amount keep the order in which the ledger first saw them.
func SortBaseCoins(coins map[types.OutpointKey]BaseCoin) []BaseCoin {
	out := make([]BaseCoin, 0, len(coins))
	for _, c := range coins {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Amount != out[j].Amount {
			return out[i].Amount < out[j].Amount
		}
		return out[i].seq < out[j].seq
	})
	return out
}

// SortTokenCoins orders token coins the same way as SortBaseCoins.
func SortTokenCoins(coins map[types.OutpointKey]TokenCoin) []TokenCoin {
	out := make([]TokenCoin, 0, len(coins))
	for _, c := range coins {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Amount.Cmp(out[j].Amount); c != 0 {
			return c < 0
		}
		return out[i].seq < out[j].seq
	})
	return out
}
