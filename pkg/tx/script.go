package tx

import (
	"fmt"

	"github.com/Klingon-tech/slpwallet/pkg/types"
	"github.com/btcsuite/btcd/txscript"
)

// P2PKHScriptSize is the length of a pay-to-pubkey-hash locking script.
const P2PKHScriptSize = 25

// PayToAddrScript returns the locking script paying to addr.
func PayToAddrScript(addr types.Address) ([]byte, error) {
	switch addr.Type {
	case types.AddressP2PKH:
		return txscript.NewScriptBuilder().
			AddOp(txscript.OP_DUP).
			AddOp(txscript.OP_HASH160).
			AddData(addr.Hash[:]).
			AddOp(txscript.OP_EQUALVERIFY).
			AddOp(txscript.OP_CHECKSIG).
			Script()
	case types.AddressP2SH:
		return txscript.NewScriptBuilder().
			AddOp(txscript.OP_HASH160).
			AddData(addr.Hash[:]).
			AddOp(txscript.OP_EQUAL).
			Script()
	default:
		return nil, fmt.Errorf("unsupported address type %v", addr.Type)
	}
}

// ExtractAddress recovers the address paid by a P2PKH or P2SH script.
func ExtractAddress(script []byte) (types.Address, bool) {
	switch {
	case txscript.IsPayToPubKeyHash(script):
		a := types.Address{Type: types.AddressP2PKH}
		copy(a.Hash[:], script[3:23])
		return a, true
	case txscript.IsPayToScriptHash(script):
		a := types.Address{Type: types.AddressP2SH}
		copy(a.Hash[:], script[2:22])
		return a, true
	default:
		return types.Address{}, false
	}
}

// IsNullData reports whether script is an OP_RETURN output.
func IsNullData(script []byte) bool {
	return len(script) > 0 && script[0] == txscript.OP_RETURN
}
