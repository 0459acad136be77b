package tx

import (
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/btcwallet/wallet/txrules"
	"github.com/btcsuite/btcwallet/wallet/txsizes"
)

// DustLimit is the minimum value carried by a P2PKH output, including
// the outputs that carry tokens.
const DustLimit = 546

// MinFeeRate is the network relay floor in satoshis per byte.
const MinFeeRate = 1

// EstimateSize returns the worst-case serialized size of a transaction
// spending numInputs compressed P2PKH coins into outputs.
func EstimateSize(numInputs int, outputs []*wire.TxOut) int {
	return txsizes.EstimateSerializeSize(numInputs, outputs, false)
}

// EstimateFee returns size * feeRate.
func EstimateFee(size int, feeRate uint64) uint64 {
	return uint64(size) * feeRate
}

// FeeRate returns the effective rate paid by a transaction of the given
// size moving inputValue into outputValue. A negative surplus pays zero.
func FeeRate(inputValue, outputValue uint64, size int) float64 {
	if inputValue <= outputValue || size <= 0 {
		return 0
	}
	return float64(inputValue-outputValue) / float64(size)
}

// IsDust reports whether an output of value paying to pkScript is below
// the relay dust threshold at feeRate. OP_RETURN outputs are never dust.
func IsDust(value uint64, pkScript []byte, feeRate uint64) bool {
	out := wire.NewTxOut(int64(value), pkScript)
	return txrules.IsDustOutput(out, btcutil.Amount(feeRate*1000))
}
