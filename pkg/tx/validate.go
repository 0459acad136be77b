package tx

import (
	"errors"
	"fmt"
)

// Validation errors for observed transactions.
var (
	ErrMissingHash     = errors.New("transaction hash missing")
	ErrMissingPrevOut  = errors.New("input has no previous outpoint")
	ErrMissingTokenID  = errors.New("token marker has no token id")
	ErrDuplicateIndex  = errors.New("duplicate output index")
	ErrTokenOnNullData = errors.New("token marker on output without address")
)

// Validate checks the envelope of an observed transaction. Individual
// inputs and outputs are checked separately so that one bad entry does
// not discard the rest.
func (tx *Transaction) Validate() error {
	if tx.Hash.IsZero() {
		return ErrMissingHash
	}
	seen := make(map[uint32]bool, len(tx.Outputs))
	for _, out := range tx.Outputs {
		if seen[out.Index] {
			return fmt.Errorf("output %d: %w", out.Index, ErrDuplicateIndex)
		}
		seen[out.Index] = true
	}
	return nil
}

// Validate checks a single input.
func (in *Input) Validate() error {
	if in.PrevOut.TxID.IsZero() {
		return ErrMissingPrevOut
	}
	if in.Token != nil && in.Token.ID.IsZero() {
		return ErrMissingTokenID
	}
	return nil
}

// Validate checks a single output.
func (out *Output) Validate() error {
	if out.Token != nil {
		if out.Token.ID.IsZero() {
			return ErrMissingTokenID
		}
		if out.Address == "" {
			return ErrTokenOnNullData
		}
	}
	return nil
}
