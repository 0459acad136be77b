package txbuilder

import (
	"encoding/hex"
	"fmt"

	"github.com/Klingon-tech/slpwallet/internal/walleterr"
	"github.com/Klingon-tech/slpwallet/pkg/crypto"
	"github.com/Klingon-tech/slpwallet/pkg/tx"
	"github.com/Klingon-tech/slpwallet/pkg/types"
	"github.com/btcsuite/btcd/wire"
	"github.com/shopspring/decimal"
)

// Signer fills in the signature scripts of an unsigned transaction.
type Signer interface {
	SignTransaction(b *tx.Builder) error
}

// KeySigner signs every input with a single secp256k1 key.
type KeySigner struct {
	Key crypto.Signer
}

// SignTransaction implements Signer.
func (s KeySigner) SignTransaction(b *tx.Builder) error {
	if s.Key == nil {
		return fmt.Errorf("no signing key")
	}
	return b.Sign(s.Key)
}

// Signed is a signed draft ready for broadcast.
type Signed struct {
	TxID types.Hash `json:"txid"`
	Raw  []byte     `json:"-"`
	Hex  string     `json:"hex"`
	// Fee is the sum of inputs minus the sum of outputs.
	Fee uint64 `json:"fee"`
	// SendAmount is the sum of all outputs, change included.
	SendAmount uint64 `json:"send_amount"`
}

// Sign produces the signed transaction for a funded draft. The draft is
// left as it was, so a failed signature can be retried with another
// signer.
func (a *Assembler) Sign(signer Signer) (*Signed, error) {
	switch a.state {
	case StateReadyToSign:
	case StateEmpty:
		return nil, ErrEmptyDraft
	default:
		return nil, walleterr.New(walleterr.KindInfeasibleSelection, "sign", "draft is %s", a.state)
	}
	// Never sign a draft that would burn tokens.
	if err := a.checkTokenCovered("sign"); err != nil {
		return nil, err
	}

	b := tx.NewBuilder()
	for _, in := range a.d.inputs {
		b.AddInput(in.Outpoint, a.ownerScript, in.Value)
	}
	outs := a.d.outputs()
	for _, out := range outs {
		b.AddOutput(wire.NewTxOut(int64(out.Value), out.Script))
	}

	if err := signer.SignTransaction(b); err != nil {
		return nil, walleterr.Wrap(walleterr.KindSigningFailure, "sign", err)
	}
	raw, err := b.Serialize()
	if err != nil {
		return nil, walleterr.Wrap(walleterr.KindSigningFailure, "serialize", err)
	}

	in, out := a.d.inputValue(), a.d.outputValue()
	return &Signed{
		TxID:       crypto.TxID(raw),
		Raw:        raw,
		Hex:        hex.EncodeToString(raw),
		Fee:        in - out,
		SendAmount: out,
	}, nil
}

// Inputs returns the selected coins.
func (a *Assembler) Inputs() []Input {
	return append([]Input(nil), a.d.inputs...)
}

// Outputs returns the outputs in transaction order, each with the token
// amount it carries.
func (a *Assembler) Outputs() []Output {
	return a.d.outputs()
}

// TokenID returns the active token, false while the draft only moves
// base currency.
func (a *Assembler) TokenID() (types.TokenID, bool) {
	if a.d.tokenID == nil {
		return types.TokenID{}, false
	}
	return *a.d.tokenID, true
}

// TokenOutputs returns the requested token amounts followed by the token
// change, if any. This is the list the metadata output declares.
func (a *Assembler) TokenOutputs() []decimal.Decimal {
	out := append([]decimal.Decimal(nil), a.d.tokenAmounts...)
	if a.d.tokenChange != nil {
		out = append(out, a.d.tokenChange.TokenAmount)
	}
	return out
}

// TokenChange locates the token change output.
func (a *Assembler) TokenChange() (TokenChange, bool) {
	if a.d.tokenChange == nil {
		return TokenChange{}, false
	}
	return TokenChange{Amount: a.d.tokenChange.TokenAmount, Index: a.d.tokenChangeIndex()}, true
}

// BaseChange locates the base-currency change output.
func (a *Assembler) BaseChange() (BaseChange, bool) {
	if a.d.baseChange == nil {
		return BaseChange{}, false
	}
	return BaseChange{Amount: a.d.baseChange.Value, Index: a.d.baseChangeIndex()}, true
}

// Fee returns inputs minus outputs, zero when the draft is underfunded.
func (a *Assembler) Fee() uint64 {
	in, out := a.d.inputValue(), a.d.outputValue()
	if in < out {
		return 0
	}
	return in - out
}

// EstimatedSize returns the estimated signed size in bytes.
func (a *Assembler) EstimatedSize() int {
	return a.d.size()
}
