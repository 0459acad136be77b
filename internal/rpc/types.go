package rpc

import (
	"github.com/Klingon-tech/slpwallet/internal/ledger"
	"github.com/Klingon-tech/slpwallet/internal/token"
	"github.com/Klingon-tech/slpwallet/pkg/types"
)

// JSON-RPC 2.0 error codes.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
	CodeNotFound       = -32000

	// Wallet errors.
	CodeInsufficientFunds = -32001
	CodeSigningFailed     = -32002
	CodeNetworkError      = -32003
)

// Request is a JSON-RPC 2.0 request.
type Request struct {
	JSONRPC string      `json:"jsonrpc"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params"`
	ID      interface{} `json:"id"`
}

// Response is a JSON-RPC 2.0 response.
type Response struct {
	JSONRPC string      `json:"jsonrpc"`
	Result  interface{} `json:"result,omitempty"`
	Error   *Error      `json:"error,omitempty"`
	ID      interface{} `json:"id"`
}

// Error is a JSON-RPC 2.0 error object.
type Error struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// ── Param types ─────────────────────────────────────────────────────────

// TokenParam is used by wallet_getTokenInfo and wallet_listCoins.
type TokenParam struct {
	TokenID string `json:"token_id"`
}

// SendParam is used by wallet_send. Amount is in satoshis.
type SendParam struct {
	To     string `json:"to"`
	Amount uint64 `json:"amount"`
}

// SendTokenParam is used by wallet_sendToken. Amount is in display units
// and is scaled by the token's decimals.
type SendTokenParam struct {
	To      string `json:"to"`
	TokenID string `json:"token_id"`
	Amount  string `json:"amount"`
}

// ImportSecretParam is used by wallet_importSecret.
type ImportSecretParam struct {
	Secret string `json:"secret"`
}

// ── Result types ────────────────────────────────────────────────────────

// CoinResult is one spendable coin.
type CoinResult struct {
	Outpoint  string         `json:"outpoint"`
	TxID      types.Hash     `json:"txid"`
	Index     uint32         `json:"index"`
	Value     uint64         `json:"value"`
	TokenID   *types.TokenID `json:"token_id,omitempty"`
	Amount    string         `json:"amount,omitempty"`
	MintBaton bool           `json:"mint_baton,omitempty"`
}

// CoinListResult is returned by wallet_listCoins.
type CoinListResult struct {
	Coins []CoinResult `json:"coins"`
	Total string       `json:"total"`
}

// TokenInfoResult is returned by wallet_getTokenInfo.
type TokenInfoResult struct {
	TokenID  types.TokenID  `json:"token_id"`
	Kind     string         `json:"kind"`
	Name     string         `json:"name"`
	Ticker   string         `json:"ticker"`
	Decimals int32          `json:"decimals"`
	GroupID  *types.TokenID `json:"group_id,omitempty"`
}

// SendResult is returned by wallet_send and wallet_sendToken.
type SendResult struct {
	TxID       types.Hash `json:"txid"`
	Fee        uint64     `json:"fee"`
	SendAmount uint64     `json:"send_amount"`
}

// ImportSecretResult is returned by wallet_importSecret.
type ImportSecretResult struct {
	Address string `json:"address"`
}

// ReloadResult is returned by wallet_reload.
type ReloadResult struct {
	BaseBalance int64 `json:"base_balance"`
	Tokens      int   `json:"tokens"`
}

func baseCoinResult(c ledger.BaseCoin) CoinResult {
	return CoinResult{
		Outpoint: string(c.Outpoint.Key()),
		TxID:     c.Outpoint.TxID,
		Index:    c.Outpoint.Index,
		Value:    c.Amount,
	}
}

func tokenCoinResult(c ledger.TokenCoin) CoinResult {
	id := c.TokenID
	return CoinResult{
		Outpoint:  string(c.Outpoint.Key()),
		TxID:      c.Outpoint.TxID,
		Index:     c.Outpoint.Index,
		Value:     c.Dust,
		TokenID:   &id,
		Amount:    c.Amount.String(),
		MintBaton: c.MintBaton,
	}
}

func tokenInfoResult(m *token.Metadata) *TokenInfoResult {
	res := &TokenInfoResult{
		TokenID:  m.ID,
		Kind:     m.Kind().String(),
		Name:     m.Name(),
		Ticker:   m.Ticker(),
		Decimals: token.DisplayDecimals(m),
	}
	if child, ok := m.Details.(token.NFTChild); ok {
		group := child.GroupID
		res.GroupID = &group
	}
	return res
}
