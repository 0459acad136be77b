package txbuilder

import (
	"github.com/Klingon-tech/slpwallet/pkg/tx"
	"github.com/Klingon-tech/slpwallet/pkg/types"
	"github.com/btcsuite/btcd/wire"
	"github.com/shopspring/decimal"
)

// State is the lifecycle of a draft transaction.
type State int

const (
	// StateEmpty is a draft with no outputs.
	StateEmpty State = iota
	// StateComposing is a draft whose latest output has not been funded yet.
	StateComposing
	// StateReadyToSign is a funded draft.
	StateReadyToSign
	// StateInfeasible is a draft the spendable coins cannot fund.
	StateInfeasible
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateComposing:
		return "composing"
	case StateReadyToSign:
		return "ready"
	case StateInfeasible:
		return "infeasible"
	default:
		return "unknown"
	}
}

// Input is a coin selected to fund the draft.
type Input struct {
	Outpoint types.Outpoint `json:"outpoint"`
	Value    uint64         `json:"value"`
	// Token is set when the coin carries tokens.
	Token *TokenInput `json:"token,omitempty"`
}

// TokenInput is the token part of a selected coin.
type TokenInput struct {
	ID     types.TokenID   `json:"id"`
	Amount decimal.Decimal `json:"amount"`
}

// Output is a draft output paired with the token amount it carries.
// Address is empty for the metadata output.
type Output struct {
	Value       uint64          `json:"value"`
	Script      []byte          `json:"script"`
	Address     string          `json:"address,omitempty"`
	TokenAmount decimal.Decimal `json:"token_amount"`
}

// TokenChange locates the token change output.
type TokenChange struct {
	Amount decimal.Decimal `json:"amount"`
	Index  int             `json:"index"`
}

// BaseChange locates the base-currency change output.
type BaseChange struct {
	Amount uint64 `json:"amount"`
	Index  int    `json:"index"`
}

// draft keeps outputs in sections and lays them out in transaction order:
// metadata, requested token outputs, token change, base payments, base change.
type draft struct {
	inputs []Input

	tokenID      *types.TokenID
	metadata     *Output
	tokenOutputs []Output
	tokenAmounts []decimal.Decimal
	tokenChange  *Output
	basePayments []Output
	baseChange   *Output
}

func (d *draft) outputs() []Output {
	out := make([]Output, 0, 3+len(d.tokenOutputs)+len(d.basePayments))
	if d.metadata != nil {
		out = append(out, *d.metadata)
	}
	out = append(out, d.tokenOutputs...)
	if d.tokenChange != nil {
		out = append(out, *d.tokenChange)
	}
	out = append(out, d.basePayments...)
	if d.baseChange != nil {
		out = append(out, *d.baseChange)
	}
	return out
}

func (d *draft) hasOutputs() bool {
	return d.metadata != nil || len(d.tokenOutputs) > 0 || len(d.basePayments) > 0
}

// tokenChangeIndex is the position right after the last requested output.
func (d *draft) tokenChangeIndex() int {
	return len(d.tokenAmounts) + 1
}

func (d *draft) baseChangeIndex() int {
	n := len(d.tokenOutputs) + len(d.basePayments)
	if d.metadata != nil {
		n++
	}
	if d.tokenChange != nil {
		n++
	}
	return n
}

func (d *draft) hasInput(op types.Outpoint) bool {
	for _, in := range d.inputs {
		if in.Outpoint == op {
			return true
		}
	}
	return false
}

func (d *draft) inputValue() uint64 {
	var sum uint64
	for _, in := range d.inputs {
		sum += in.Value
	}
	return sum
}

func (d *draft) outputValue() uint64 {
	var sum uint64
	for _, out := range d.outputs() {
		sum += out.Value
	}
	return sum
}

func (d *draft) tokenInputAmount(id types.TokenID) decimal.Decimal {
	sum := decimal.Zero
	for _, in := range d.inputs {
		if in.Token != nil && in.Token.ID == id {
			sum = sum.Add(in.Token.Amount)
		}
	}
	return sum
}

func wireOutputs(outs []Output) []*wire.TxOut {
	w := make([]*wire.TxOut, len(outs))
	for i, o := range outs {
		w[i] = wire.NewTxOut(int64(o.Value), o.Script)
	}
	return w
}

func (d *draft) size() int {
	return tx.EstimateSize(len(d.inputs), wireOutputs(d.outputs()))
}
