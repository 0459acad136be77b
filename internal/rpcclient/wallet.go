package rpcclient

import (
	"github.com/Klingon-tech/slpwallet/internal/rpc"
	"github.com/Klingon-tech/slpwallet/internal/wallet"
)

// Address returns the wallet's account.
func (c *Client) Address() (*wallet.Account, error) {
	var res wallet.Account
	if err := c.Call("wallet_getAddress", nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Balance returns the base and token balances.
func (c *Client) Balance() (*wallet.Balance, error) {
	var res wallet.Balance
	if err := c.Call("wallet_getBalance", nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// ListCoins lists spendable coins. An empty tokenID lists base coins.
func (c *Client) ListCoins(tokenID string) (*rpc.CoinListResult, error) {
	var params interface{}
	if tokenID != "" {
		params = rpc.TokenParam{TokenID: tokenID}
	}
	var res rpc.CoinListResult
	if err := c.Call("wallet_listCoins", params, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) TokenInfo(tokenID string) (*rpc.TokenInfoResult, error) {
	var res rpc.TokenInfoResult
	if err := c.Call("wallet_getTokenInfo", rpc.TokenParam{TokenID: tokenID}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Send pays amount satoshis to the given CashAddr.
func (c *Client) Send(to string, amount uint64) (*rpc.SendResult, error) {
	var res rpc.SendResult
	if err := c.Call("wallet_send", rpc.SendParam{To: to, Amount: amount}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// SendToken pays a display-unit token amount to the given CashAddr.
func (c *Client) SendToken(to, tokenID, amount string) (*rpc.SendResult, error) {
	params := rpc.SendTokenParam{To: to, TokenID: tokenID, Amount: amount}
	var res rpc.SendResult
	if err := c.Call("wallet_sendToken", params, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) Status() (*wallet.Status, error) {
	var res wallet.Status
	if err := c.Call("wallet_getStatus", nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Reload rebuilds the daemon's ledger from the address history.
func (c *Client) Reload() (*rpc.ReloadResult, error) {
	var res rpc.ReloadResult
	if err := c.Call("wallet_reload", nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// ImportSecret replaces the daemon's secret with a mnemonic or WIF.
func (c *Client) ImportSecret(secret string) (*rpc.ImportSecretResult, error) {
	var res rpc.ImportSecretResult
	if err := c.Call("wallet_importSecret", rpc.ImportSecretParam{Secret: secret}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}
