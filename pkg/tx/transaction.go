// Package tx defines the observed transaction model reported by the network
// and the wire-level helpers used to build and sign BCH transactions.
package tx

import (
	"github.com/Klingon-tech/slpwallet/pkg/types"
)

// Transaction is a transaction as reported by the network: each input
// carries the value, address and token marker of the output it spends.
type Transaction struct {
	Hash        types.Hash `json:"hash"`
	Inputs      []Input    `json:"inputs"`
	Outputs     []Output   `json:"outputs"`
	BlockHeight int32      `json:"block_height"`
}

// Input spends a previous output.
type Input struct {
	Index   uint32           `json:"index"`
	PrevOut types.Outpoint   `json:"prevout"`
	Value   uint64           `json:"value"`
	Address string           `json:"address"`
	Token   *types.TokenData `json:"token,omitempty"`
}

// Output creates a new coin. Address is empty for null-data outputs.
type Output struct {
	Index   uint32           `json:"index"`
	Value   uint64           `json:"value"`
	Address string           `json:"address"`
	Token   *types.TokenData `json:"token,omitempty"`
}

// Confirmed reports whether the transaction has been mined.
func (tx *Transaction) Confirmed() bool {
	return tx.BlockHeight > 0
}

// Outpoint returns the outpoint created by output i of tx.
func (tx *Transaction) Outpoint(out Output) types.Outpoint {
	return types.Outpoint{TxID: tx.Hash, Index: out.Index}
}

// InputValue sums the values of all inputs.
func (tx *Transaction) InputValue() uint64 {
	var sum uint64
	for _, in := range tx.Inputs {
		sum += in.Value
	}
	return sum
}

// OutputValue sums the values of all outputs.
func (tx *Transaction) OutputValue() uint64 {
	var sum uint64
	for _, out := range tx.Outputs {
		sum += out.Value
	}
	return sum
}

// History is the transaction history of an address.
type History struct {
	Confirmed   []*Transaction `json:"confirmed"`
	Unconfirmed []*Transaction `json:"unconfirmed"`
}

// All returns confirmed transactions followed by unconfirmed ones.
func (h *History) All() []*Transaction {
	all := make([]*Transaction, 0, len(h.Confirmed)+len(h.Unconfirmed))
	all = append(all, h.Confirmed...)
	return append(all, h.Unconfirmed...)
}
