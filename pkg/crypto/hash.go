// Package crypto provides the hashing and secp256k1 signing primitives
// used by the wallet.
package crypto

import (
	"github.com/Klingon-tech/slpwallet/pkg/types"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// DoubleSHA256 computes SHA256(SHA256(data)), the BCH transaction hash.
// The result is in wire order; use types.HashFromWire for a txid.
func DoubleSHA256(data []byte) [32]byte {
	return chainhash.DoubleHashH(data)
}

// TxID returns the display-order transaction id of a serialized transaction.
func TxID(rawTx []byte) types.Hash {
	h := DoubleSHA256(rawTx)
	id, _ := types.HashFromWire(h[:])
	return id
}

// Hash160 computes RIPEMD160(SHA256(data)).
func Hash160(data []byte) []byte {
	return btcutil.Hash160(data)
}

// AddressFromPubKey derives the P2PKH address of a compressed public key.
func AddressFromPubKey(pubKey []byte) types.Address {
	a := types.Address{Type: types.AddressP2PKH}
	copy(a.Hash[:], Hash160(pubKey))
	return a
}
