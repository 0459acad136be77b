package wallet

import (
	"github.com/Klingon-tech/slpwallet/internal/ledger"
	"github.com/Klingon-tech/slpwallet/pkg/types"
	"github.com/shopspring/decimal"
)

// TokenBalance is the balance of one token. Amount is in base units,
// Display is scaled by the token's decimals.
type TokenBalance struct {
	ID       types.TokenID   `json:"token_id"`
	Name     string          `json:"name"`
	Ticker   string          `json:"ticker"`
	Kind     string          `json:"kind"`
	Decimals int32           `json:"decimals"`
	Amount   decimal.Decimal `json:"amount"`
	Display  decimal.Decimal `json:"display"`
	Coins    int             `json:"coins"`
}

// Balance is the wallet balance for the base currency and every token.
type Balance struct {
	Base      int64          `json:"base"`
	BaseCoins int            `json:"base_coins"`
	Tokens    []TokenBalance `json:"tokens"`
}

// Summarize computes a Balance from the ledger. Tokens are ordered by ID.
func Summarize(l *ledger.Ledger) Balance {
	bal := Balance{
		Base:      l.BaseBalance(),
		BaseCoins: len(l.SpendableBaseCoins()),
		Tokens:    []TokenBalance{},
	}
	amounts := l.TokenBalances()
	for _, id := range l.TokenIDs() {
		meta, _ := l.Metadata(id)
		raw := amounts[id]
		tb := TokenBalance{
			ID:      id,
			Name:    meta.Name(),
			Ticker:  meta.Ticker(),
			Kind:    meta.Kind().String(),
			Amount:  raw,
			Display: l.DisplayBalance(id, raw),
			Coins:   len(l.SpendableTokenCoins(id)),
		}
		if d, err := meta.Decimals(); err == nil {
			tb.Decimals = d
		}
		bal.Tokens = append(bal.Tokens, tb)
	}
	return bal
}
