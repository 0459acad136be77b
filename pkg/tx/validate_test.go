package tx

import (
	"errors"
	"testing"

	"github.com/Klingon-tech/slpwallet/pkg/types"
)

func TestTransaction_Validate(t *testing.T) {
	ok := Transaction{
		Hash:    types.Hash{0x01},
		Outputs: []Output{{Index: 0}, {Index: 1}},
	}
	if err := ok.Validate(); err != nil {
		t.Fatalf("valid tx rejected: %v", err)
	}

	noHash := ok
	noHash.Hash = types.Hash{}
	if err := noHash.Validate(); !errors.Is(err, ErrMissingHash) {
		t.Errorf("got %v, want ErrMissingHash", err)
	}

	dup := ok
	dup.Outputs = []Output{{Index: 1}, {Index: 1}}
	if err := dup.Validate(); !errors.Is(err, ErrDuplicateIndex) {
		t.Errorf("got %v, want ErrDuplicateIndex", err)
	}
}

func TestInput_Validate(t *testing.T) {
	in := Input{PrevOut: types.Outpoint{TxID: types.Hash{0x01}}}
	if err := in.Validate(); err != nil {
		t.Fatalf("valid input rejected: %v", err)
	}

	in.Token = &types.TokenData{Amount: 5}
	if err := in.Validate(); !errors.Is(err, ErrMissingTokenID) {
		t.Errorf("got %v, want ErrMissingTokenID", err)
	}

	empty := Input{}
	if err := empty.Validate(); !errors.Is(err, ErrMissingPrevOut) {
		t.Errorf("got %v, want ErrMissingPrevOut", err)
	}
}

func TestOutput_Validate(t *testing.T) {
	out := Output{Address: "qq", Token: &types.TokenData{ID: types.TokenID{0x01}, Amount: 1}}
	if err := out.Validate(); err != nil {
		t.Fatalf("valid output rejected: %v", err)
	}

	out.Address = ""
	if err := out.Validate(); !errors.Is(err, ErrTokenOnNullData) {
		t.Errorf("got %v, want ErrTokenOnNullData", err)
	}
}

func TestTransaction_Sums(t *testing.T) {
	txn := Transaction{
		Inputs:  []Input{{Value: 10}, {Value: 20}},
		Outputs: []Output{{Value: 5}, {Value: 15}},
	}
	if txn.InputValue() != 30 || txn.OutputValue() != 20 {
		t.Errorf("sums = %d/%d", txn.InputValue(), txn.OutputValue())
	}
	if txn.Confirmed() {
		t.Error("zero height should be unconfirmed")
	}
}
