// Package txbuilder assembles base-currency and token payments from the
// ledger's spendable coins.
//
// Coins are selected smallest first. Token payments carry an SLP SEND
// metadata output at index 0, one dust output per requested amount and,
// when the selected token coins exceed the request, a token change output
// right after them. Base payments and base change follow.
package txbuilder

import (
	"errors"
	"fmt"

	"github.com/Klingon-tech/slpwallet/internal/ledger"
	"github.com/Klingon-tech/slpwallet/internal/log"
	"github.com/Klingon-tech/slpwallet/internal/token"
	"github.com/Klingon-tech/slpwallet/internal/walleterr"
	"github.com/Klingon-tech/slpwallet/pkg/tx"
	"github.com/Klingon-tech/slpwallet/pkg/types"
	"github.com/shopspring/decimal"
)

// Validation errors.
var (
	ErrInvalidAddress = errors.New("invalid address")
	ErrBelowDust      = errors.New("amount below dust limit")
	ErrInvalidAmount  = errors.New("invalid amount")
	ErrEmptyDraft     = errors.New("draft has no outputs")
)

// CoinSource supplies spendable coins and token metadata. *ledger.Ledger
// satisfies it.
type CoinSource interface {
	SpendableBaseCoins() map[types.OutpointKey]ledger.BaseCoin
	SpendableTokenCoins(id types.TokenID) map[types.OutpointKey]ledger.TokenCoin
	Metadata(id types.TokenID) (*token.Metadata, bool)
}

// Assembler owns one draft transaction. It is not safe for concurrent use.
type Assembler struct {
	owner   types.Address
	coins   CoinSource
	feeRate uint64

	ownerScript []byte
	state       State
	d           *draft
}

// New creates an assembler that funds drafts from coins and returns
// change to owner. A zero feeRate selects tx.MinFeeRate.
func New(owner types.Address, coins CoinSource, feeRate uint64) (*Assembler, error) {
	script, err := tx.PayToAddrScript(owner)
	if err != nil {
		return nil, fmt.Errorf("owner script: %w", err)
	}
	if feeRate == 0 {
		feeRate = tx.MinFeeRate
	}
	return &Assembler{
		owner:       owner,
		coins:       coins,
		feeRate:     feeRate,
		ownerScript: script,
		d:           &draft{},
	}, nil
}

// Clear discards the draft.
func (a *Assembler) Clear() {
	a.d = &draft{}
	a.state = StateEmpty
}

// State returns the draft lifecycle state.
func (a *Assembler) State() State {
	return a.state
}

// FeeRate returns the target fee rate in satoshis per byte.
func (a *Assembler) FeeRate() uint64 {
	return a.feeRate
}

func (a *Assembler) recipient(address string) (types.Address, []byte, error) {
	addr, err := types.ParseAddress(address)
	if err != nil {
		return types.Address{}, nil, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	script, err := tx.PayToAddrScript(addr)
	if err != nil {
		return types.Address{}, nil, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	return addr, script, nil
}

// AddBaseOutput appends a payment of amount satoshis and reselects base
// coins. An address or amount that fails validation leaves the draft
// untouched. When the coins cannot fund the draft the output stays and
// an InfeasibleSelection error is returned.
func (a *Assembler) AddBaseOutput(address string, amount uint64) error {
	addr, script, err := a.recipient(address)
	if err != nil {
		return err
	}
	if tx.IsDust(amount, script, a.feeRate) {
		return fmt.Errorf("%w: %d < %d", ErrBelowDust, amount, tx.DustLimit)
	}

	a.d.basePayments = append(a.d.basePayments, Output{
		Value:       amount,
		Script:      script,
		Address:     addr.String(),
		TokenAmount: decimal.Zero,
	})
	a.state = StateComposing
	return a.finish(a.selectBase(), "add base output")
}

// AddTokenOutput appends a payment of amount token base units of tokenID.
// A draft carries one token at a time: switching tokens drops the
// previous token's outputs and inputs. NFT children always move one unit.
func (a *Assembler) AddTokenOutput(address string, amount decimal.Decimal, tokenID types.TokenID) error {
	addr, script, err := a.recipient(address)
	if err != nil {
		return err
	}
	if !amount.IsPositive() || !amount.IsInteger() {
		return fmt.Errorf("%w: %s", ErrInvalidAmount, amount)
	}
	meta, ok := a.coins.Metadata(tokenID)
	if !ok || !meta.Kind().Valid() {
		return walleterr.New(walleterr.KindUnknownTokenType, "add token output", "token %s", tokenID)
	}
	sameToken := a.d.tokenID != nil && *a.d.tokenID == tokenID
	if sameToken && len(a.d.tokenAmounts) >= token.MaxSendOutputs-1 {
		return fmt.Errorf("add token output: %w", token.ErrTooManyOutputs)
	}

	if !sameToken {
		a.switchToken(tokenID)
	}
	a.d.baseChange = nil
	a.d.tokenChange = nil

	amount = token.TransferAmount(meta.Kind(), amount)
	a.d.tokenOutputs = append(a.d.tokenOutputs, Output{
		Value:       tx.DustLimit,
		Script:      script,
		Address:     addr.String(),
		TokenAmount: amount,
	})
	a.d.tokenAmounts = append(a.d.tokenAmounts, amount)
	a.state = StateComposing

	tokenOK, err := a.selectToken(tokenID, meta.Kind())
	if err != nil {
		return err
	}
	baseOK := a.selectBase()
	if !tokenOK {
		a.state = StateInfeasible
		return a.checkTokenCovered("add token output")
	}
	return a.finish(baseOK, "add token output")
}

// checkTokenCovered returns an InfeasibleSelection error when the draft's
// token inputs do not cover its token outputs.
func (a *Assembler) checkTokenCovered(op string) error {
	if a.d.tokenID == nil {
		return nil
	}
	id := *a.d.tokenID
	have, need := a.d.tokenInputAmount(id), token.Sum(a.d.tokenAmounts)
	if have.GreaterThanOrEqual(need) {
		return nil
	}
	return walleterr.New(walleterr.KindInfeasibleSelection, op,
		"token %s: have %s, need %s", id, have, need)
}

func (a *Assembler) switchToken(id types.TokenID) {
	if a.d.tokenID != nil {
		kept := a.d.inputs[:0]
		for _, in := range a.d.inputs {
			if in.Token == nil {
				kept = append(kept, in)
			}
		}
		a.d.inputs = kept
	}
	a.d.tokenID = &id
	a.d.metadata = nil
	a.d.tokenOutputs = nil
	a.d.tokenAmounts = nil
}

// finish settles the state after a selection pass. A draft whose token
// inputs fall short of its token outputs stays infeasible whatever the
// base selection did.
func (a *Assembler) finish(ok bool, op string) error {
	if err := a.checkTokenCovered(op); err != nil {
		a.state = StateInfeasible
		return err
	}
	if ok {
		a.state = StateReadyToSign
		return nil
	}
	a.state = StateInfeasible
	in, out := a.d.inputValue(), a.d.outputValue()
	return walleterr.New(walleterr.KindInfeasibleSelection, op,
		"have %d, need %d plus fee at %d sat/byte", in, out, a.feeRate)
}

// selectToken adds coins of tokenID until they cover the requested amounts.
// Coins are walked smallest first; when a single unselected coin closes
// the remaining gap, the smallest such coin is taken instead.
func (a *Assembler) selectToken(id types.TokenID, kind token.Kind) (bool, error) {
	var candidates []ledger.TokenCoin
	for _, c := range ledger.SortTokenCoins(a.coins.SpendableTokenCoins(id)) {
		if c.MintBaton || a.d.hasInput(c.Outpoint) {
			continue
		}
		candidates = append(candidates, c)
	}

	for len(candidates) > 0 {
		ok, err := a.checkToken(id, kind)
		if err != nil || ok {
			return ok, err
		}
		gap := token.Sum(a.d.tokenAmounts).Sub(a.d.tokenInputAmount(id))
		pick := 0
		for i, c := range candidates {
			if c.Amount.GreaterThanOrEqual(gap) {
				pick = i
				break
			}
		}
		c := candidates[pick]
		candidates = append(candidates[:pick], candidates[pick+1:]...)
		a.d.inputs = append(a.d.inputs, Input{
			Outpoint: c.Outpoint,
			Value:    c.Dust,
			Token:    &TokenInput{ID: c.TokenID, Amount: c.Amount},
		})
		log.TxBuilder.Trace().Str("coin", c.Outpoint.String()).Str("amount", c.Amount.String()).Msg("Selected token coin")
	}
	return a.checkToken(id, kind)
}

// checkToken rebuilds the token change and metadata outputs from the
// current inputs and reports whether they cover the requested amounts.
func (a *Assembler) checkToken(id types.TokenID, kind token.Kind) (bool, error) {
	a.d.tokenChange = nil

	in := a.d.tokenInputAmount(id)
	out := token.Sum(a.d.tokenAmounts)
	declared := append([]decimal.Decimal(nil), a.d.tokenAmounts...)

	if in.GreaterThan(out) {
		change := in.Sub(out)
		a.d.tokenChange = &Output{
			Value:       tx.DustLimit,
			Script:      a.ownerScript,
			Address:     a.owner.String(),
			TokenAmount: change,
		}
		declared = append(declared, change)
	}

	script, err := token.SendScript(kind, id, declared)
	if err != nil {
		return false, fmt.Errorf("metadata output: %w", err)
	}
	a.d.metadata = &Output{Script: script, TokenAmount: decimal.Zero}
	return in.GreaterThanOrEqual(out), nil
}

// selectBase adds base coins smallest first until inputs cover outputs
// plus fee at the target rate, retargeting the change output each time.
func (a *Assembler) selectBase() bool {
	for _, c := range ledger.SortBaseCoins(a.coins.SpendableBaseCoins()) {
		if a.d.hasInput(c.Outpoint) {
			continue
		}
		if a.d.hasOutputs() && a.checkBase() {
			return true
		}
		a.d.inputs = append(a.d.inputs, Input{Outpoint: c.Outpoint, Value: c.Amount})
		log.TxBuilder.Trace().Str("coin", c.Outpoint.String()).Uint64("amount", c.Amount).Msg("Selected base coin")
	}
	return a.checkBase()
}

// checkBase sets the change output to whatever the inputs leave after
// outputs and fee, dropping it when it would be dust, and reports whether
// the draft pays at least the target rate.
func (a *Assembler) checkBase() bool {
	a.d.baseChange = nil

	in := a.d.inputValue()
	out := a.d.outputValue()
	change := &Output{Script: a.ownerScript, Address: a.owner.String(), TokenAmount: decimal.Zero}
	a.d.baseChange = change
	fee := tx.EstimateFee(a.d.size(), a.feeRate)
	a.d.baseChange = nil

	if in > out+fee && !tx.IsDust(in-out-fee, a.ownerScript, a.feeRate) {
		change.Value = in - out - fee
		a.d.baseChange = change
		out += change.Value
	}

	size := a.d.size()
	return in >= out && tx.FeeRate(in, out, size) >= float64(a.feeRate)
}
