package tx

import (
	"testing"

	"github.com/Klingon-tech/slpwallet/pkg/types"
)

func TestPayToAddrScript_Roundtrip(t *testing.T) {
	for _, typ := range []types.AddressType{types.AddressP2PKH, types.AddressP2SH} {
		addr := types.Address{Type: typ}
		for i := range addr.Hash {
			addr.Hash[i] = byte(i + 1)
		}
		script, err := PayToAddrScript(addr)
		if err != nil {
			t.Fatalf("%v: PayToAddrScript: %v", typ, err)
		}
		got, ok := ExtractAddress(script)
		if !ok {
			t.Fatalf("%v: ExtractAddress failed on %x", typ, script)
		}
		if got != addr {
			t.Errorf("%v: roundtrip mismatch", typ)
		}
	}
}

func TestPayToAddrScript_P2PKHSize(t *testing.T) {
	script, err := PayToAddrScript(types.Address{Type: types.AddressP2PKH})
	if err != nil {
		t.Fatal(err)
	}
	if len(script) != P2PKHScriptSize {
		t.Errorf("len = %d, want %d", len(script), P2PKHScriptSize)
	}
}

func TestPayToAddrScript_UnknownType(t *testing.T) {
	if _, err := PayToAddrScript(types.Address{Type: 7}); err == nil {
		t.Error("expected error for unknown type")
	}
}

func TestIsNullData(t *testing.T) {
	if !IsNullData([]byte{0x6a, 0x04}) {
		t.Error("OP_RETURN script should be null data")
	}
	if IsNullData(nil) || IsNullData([]byte{0x76}) {
		t.Error("non OP_RETURN script misclassified")
	}
}
