package tx

import (
	"bytes"
	"fmt"

	"github.com/Klingon-tech/slpwallet/pkg/crypto"
	"github.com/Klingon-tech/slpwallet/pkg/types"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
)

// TxVersion is the version stamped on built transactions.
const TxVersion = 2

// SigHashAllForkID is SIGHASH_ALL with the BCH replay-protection fork bit.
const SigHashAllForkID = txscript.SigHashAll | 0x40

// Builder constructs wire transactions incrementally.
type Builder struct {
	msg      *wire.MsgTx
	prevOuts *txscript.MultiPrevOutFetcher
}

// NewBuilder creates a new transaction builder.
func NewBuilder() *Builder {
	return &Builder{
		msg:      wire.NewMsgTx(TxVersion),
		prevOuts: txscript.NewMultiPrevOutFetcher(make(map[wire.OutPoint]*wire.TxOut)),
	}
}

// WireOutPoint converts an outpoint to its wire form.
func WireOutPoint(op types.Outpoint) wire.OutPoint {
	var h chainhash.Hash
	copy(h[:], op.TxID.WireBytes())
	return wire.OutPoint{Hash: h, Index: op.Index}
}

// AddInput adds an input spending prevOut, which locks value with pkScript.
func (b *Builder) AddInput(prevOut types.Outpoint, pkScript []byte, value uint64) *Builder {
	op := WireOutPoint(prevOut)
	b.msg.AddTxIn(wire.NewTxIn(&op, nil, nil))
	b.prevOuts.AddPrevOut(op, wire.NewTxOut(int64(value), pkScript))
	return b
}

// AddOutput appends an output.
func (b *Builder) AddOutput(out *wire.TxOut) *Builder {
	b.msg.AddTxOut(wire.NewTxOut(out.Value, out.PkScript))
	return b
}

// MsgTx returns the transaction under construction.
func (b *Builder) MsgTx() *wire.MsgTx {
	return b.msg
}

// SignatureHash computes the FORKID digest of input idx.
func (b *Builder) SignatureHash(idx int) ([]byte, error) {
	if idx < 0 || idx >= len(b.msg.TxIn) {
		return nil, fmt.Errorf("input %d out of range", idx)
	}
	prev := b.prevOuts.FetchPrevOutput(b.msg.TxIn[idx].PreviousOutPoint)
	if prev == nil {
		return nil, fmt.Errorf("input %d: unknown previous output", idx)
	}
	hashes := txscript.NewTxSigHashes(b.msg, b.prevOuts)
	return txscript.CalcWitnessSigHash(prev.PkScript, hashes, SigHashAllForkID, b.msg, idx, prev.Value)
}

// Sign fills every input's signature script with <sig||hashtype> <pubkey>.
// Inputs whose previous output is not locked to the signer's key fail.
func (b *Builder) Sign(signer crypto.Signer) error {
	pub := signer.PublicKey()
	want, err := PayToAddrScript(crypto.AddressFromPubKey(pub))
	if err != nil {
		return err
	}
	for i, in := range b.msg.TxIn {
		prev := b.prevOuts.FetchPrevOutput(in.PreviousOutPoint)
		if prev == nil {
			return fmt.Errorf("input %d: unknown previous output", i)
		}
		if !bytes.Equal(prev.PkScript, want) {
			return fmt.Errorf("input %d: no key for script %x", i, prev.PkScript)
		}
		digest, err := b.SignatureHash(i)
		if err != nil {
			return fmt.Errorf("input %d: sighash: %w", i, err)
		}
		sig, err := signer.Sign(digest)
		if err != nil {
			return fmt.Errorf("input %d: sign: %w", i, err)
		}
		script, err := txscript.NewScriptBuilder().
			AddData(append(sig, byte(SigHashAllForkID))).
			AddData(pub).
			Script()
		if err != nil {
			return fmt.Errorf("input %d: signature script: %w", i, err)
		}
		in.SignatureScript = script
	}
	return nil
}

// Serialize returns the wire encoding of the transaction.
func (b *Builder) Serialize() ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(b.msg.SerializeSize())
	if err := b.msg.Serialize(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
