package types

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
)

// OutpointKeySize is the byte length of an encoded outpoint key: a 32-byte
// txid followed by a 4-byte big-endian output index.
const OutpointKeySize = HashSize + 4

// OutpointKey is the 72-character hex form of an outpoint, used as the
// mapping key throughout the ledger.
type OutpointKey string

// Outpoint references a specific output in a transaction.
type Outpoint struct {
	TxID  Hash   `json:"txid"`
	Index uint32 `json:"index"`
}

// IsZero returns true if the outpoint has a zero TxID and zero index.
func (o Outpoint) IsZero() bool {
	return o.TxID.IsZero() && o.Index == 0
}

// String returns "txid:index" in hex.
func (o Outpoint) String() string {
	return fmt.Sprintf("%s:%d", o.TxID.String(), o.Index)
}

// Key returns the outpoint's ledger key.
func (o Outpoint) Key() OutpointKey {
	return OutpointToKey(o.TxID, o.Index)
}

// OutpointToKey encodes (txid, index) as txid || BE32(index), hex-encoded.
func OutpointToKey(txid Hash, index uint32) OutpointKey {
	var buf [OutpointKeySize]byte
	copy(buf[:HashSize], txid[:])
	binary.BigEndian.PutUint32(buf[HashSize:], index)
	return OutpointKey(hex.EncodeToString(buf[:]))
}

// KeyToOutpoint decodes a key produced by OutpointToKey.
func KeyToOutpoint(key OutpointKey) (Outpoint, error) {
	if len(key) != OutpointKeySize*2 {
		return Outpoint{}, fmt.Errorf("outpoint key must be %d hex chars, got %d", OutpointKeySize*2, len(key))
	}
	b, err := hex.DecodeString(string(key))
	if err != nil {
		return Outpoint{}, fmt.Errorf("invalid outpoint key: %w", err)
	}
	var op Outpoint
	copy(op.TxID[:], b[:HashSize])
	op.Index = binary.BigEndian.Uint32(b[HashSize:])
	return op, nil
}

// Outpoint decodes the key, panicking on malformed input. Keys built by
// OutpointToKey always decode.
func (k OutpointKey) Outpoint() Outpoint {
	op, err := KeyToOutpoint(k)
	if err != nil {
		panic(err)
	}
	return op
}

// ParseOutpoint parses the "txid:index" form returned by Outpoint.String.
func ParseOutpoint(s string) (Outpoint, error) {
	txid, idx, ok := strings.Cut(s, ":")
	if !ok {
		return Outpoint{}, fmt.Errorf("outpoint %q: missing ':'", s)
	}
	h, err := HexToHash(txid)
	if err != nil {
		return Outpoint{}, fmt.Errorf("outpoint %q: %w", s, err)
	}
	n, err := strconv.ParseUint(idx, 10, 32)
	if err != nil {
		return Outpoint{}, fmt.Errorf("outpoint %q: bad index: %w", s, err)
	}
	return Outpoint{TxID: h, Index: uint32(n)}, nil
}
