package rpc

import (
	"context"
	"errors"
	"strconv"

	"github.com/Klingon-tech/slpwallet/internal/token"
	"github.com/Klingon-tech/slpwallet/internal/txbuilder"
	"github.com/Klingon-tech/slpwallet/internal/wallet"
	"github.com/Klingon-tech/slpwallet/internal/walleterr"
	"github.com/Klingon-tech/slpwallet/pkg/types"
	"github.com/shopspring/decimal"
)

// walletError maps a wallet failure onto a JSON-RPC error code.
func walletError(err error) *Error {
	switch {
	case errors.Is(err, walleterr.ErrInfeasibleSelection):
		return &Error{Code: CodeInsufficientFunds, Message: "insufficient funds: " + err.Error()}
	case errors.Is(err, txbuilder.ErrInvalidAddress),
		errors.Is(err, txbuilder.ErrBelowDust),
		errors.Is(err, txbuilder.ErrInvalidAmount),
		errors.Is(err, token.ErrTooManyOutputs),
		errors.Is(err, walleterr.ErrUnknownTokenType),
		errors.Is(err, wallet.ErrInvalidSecret):
		return &Error{Code: CodeInvalidParams, Message: err.Error()}
	case errors.Is(err, walleterr.ErrSigningFailure):
		return &Error{Code: CodeSigningFailed, Message: err.Error()}
	case errors.Is(err, walleterr.ErrTransientNetwork):
		return &Error{Code: CodeNetworkError, Message: err.Error()}
	default:
		return &Error{Code: CodeInternalError, Message: err.Error()}
	}
}

func parseTokenID(s string) (types.TokenID, *Error) {
	id, err := types.HexToTokenID(s)
	if err != nil || id.IsZero() {
		return types.TokenID{}, &Error{Code: CodeInvalidParams, Message: "invalid token_id: must be 32-byte hex"}
	}
	return id, nil
}

func sendResult(s *txbuilder.Signed) *SendResult {
	return &SendResult{TxID: s.TxID, Fee: s.Fee, SendAmount: s.SendAmount}
}

func (s *Server) handleGetAddress(_ *Request) (interface{}, *Error) {
	return s.wallet.Account(), nil
}

func (s *Server) handleGetBalance(_ *Request) (interface{}, *Error) {
	return s.wallet.Balance(), nil
}

// handleListCoins lists base coins, or the coins of token_id when given.
func (s *Server) handleListCoins(req *Request) (interface{}, *Error) {
	var p TokenParam
	if err := parseOptionalParams(req, &p); err != nil {
		return nil, err
	}

	res := &CoinListResult{Coins: []CoinResult{}}
	if p.TokenID == "" {
		var total uint64
		for _, c := range s.wallet.BaseCoins() {
			res.Coins = append(res.Coins, baseCoinResult(c))
			total += c.Amount
		}
		res.Total = strconv.FormatUint(total, 10)
		return res, nil
	}

	id, rpcErr := parseTokenID(p.TokenID)
	if rpcErr != nil {
		return nil, rpcErr
	}
	total := decimal.Zero
	for _, c := range s.wallet.TokenCoins(id) {
		res.Coins = append(res.Coins, tokenCoinResult(c))
		if !c.MintBaton {
			total = total.Add(c.Amount)
		}
	}
	res.Total = total.String()
	return res, nil
}

func (s *Server) handleGetTokenInfo(ctx context.Context, req *Request) (interface{}, *Error) {
	var p TokenParam
	if err := parseParams(req, &p); err != nil {
		return nil, err
	}
	id, rpcErr := parseTokenID(p.TokenID)
	if rpcErr != nil {
		return nil, rpcErr
	}
	meta, err := s.wallet.TokenInfo(ctx, id)
	if err != nil {
		if errors.Is(err, walleterr.ErrUnknownTokenType) {
			return nil, &Error{Code: CodeNotFound, Message: err.Error()}
		}
		return nil, walletError(err)
	}
	return tokenInfoResult(meta), nil
}

func (s *Server) handleSend(ctx context.Context, req *Request) (interface{}, *Error) {
	var p SendParam
	if err := parseParams(req, &p); err != nil {
		return nil, err
	}
	if p.To == "" || p.Amount == 0 {
		return nil, &Error{Code: CodeInvalidParams, Message: "to and amount are required"}
	}
	signed, err := s.wallet.Send(ctx, p.To, p.Amount)
	if err != nil {
		return nil, walletError(err)
	}
	return sendResult(signed), nil
}

func (s *Server) handleSendToken(ctx context.Context, req *Request) (interface{}, *Error) {
	var p SendTokenParam
	if err := parseParams(req, &p); err != nil {
		return nil, err
	}
	if p.To == "" || p.Amount == "" {
		return nil, &Error{Code: CodeInvalidParams, Message: "to and amount are required"}
	}
	id, rpcErr := parseTokenID(p.TokenID)
	if rpcErr != nil {
		return nil, rpcErr
	}
	signed, err := s.wallet.SendToken(ctx, p.To, id, p.Amount)
	if err != nil {
		return nil, walletError(err)
	}
	return sendResult(signed), nil
}

func (s *Server) handleGetStatus(_ *Request) (interface{}, *Error) {
	return s.wallet.Status(), nil
}

func (s *Server) handleReload(ctx context.Context, _ *Request) (interface{}, *Error) {
	if err := s.wallet.Reload(ctx); err != nil {
		return nil, walletError(err)
	}
	bal := s.wallet.Balance()
	return &ReloadResult{BaseBalance: bal.Base, Tokens: len(bal.Tokens)}, nil
}

func (s *Server) handleImportSecret(ctx context.Context, req *Request) (interface{}, *Error) {
	var p ImportSecretParam
	if err := parseParams(req, &p); err != nil {
		return nil, err
	}
	if err := s.wallet.ImportSecret(ctx, p.Secret); err != nil {
		return nil, walletError(err)
	}
	return &ImportSecretResult{Address: s.wallet.Account().Address.String()}, nil
}
