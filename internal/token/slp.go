package token

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/Klingon-tech/slpwallet/internal/walleterr"
	"github.com/Klingon-tech/slpwallet/pkg/types"
	"github.com/btcsuite/btcd/txscript"
	"github.com/shopspring/decimal"
)

// LokadID prefixes every SLP message.
var LokadID = []byte("SLP\x00")

var sendTag = []byte("SEND")

// MaxSendOutputs is the number of token outputs a SEND message can
// declare within the 223-byte OP_RETURN relay limit.
const MaxSendOutputs = 19

// SEND message errors.
var (
	ErrNoSendOutputs  = errors.New("send declares no outputs")
	ErrTooManyOutputs = fmt.Errorf("send declares more than %d outputs", MaxSendOutputs)
	ErrNotSLP         = errors.New("script is not an SLP message")
	ErrNotSend        = errors.New("SLP message is not a SEND")
	ErrMalformedSend  = errors.New("malformed SLP SEND message")
)

// Send is a decoded SEND message.
type Send struct {
	Kind    Kind
	TokenID types.TokenID
	Amounts []uint64
}

// SendScript builds the OP_RETURN script declaring that amounts[i] tokens
// go to output i+1. Pushes are written with explicit length prefixes:
// SLP forbids the small-integer opcodes a minimal encoder would pick.
func SendScript(kind Kind, id types.TokenID, amounts []decimal.Decimal) ([]byte, error) {
	if !kind.Valid() {
		return nil, walleterr.New(walleterr.KindUnknownTokenType, "send script", "token %s has kind %s", id, kind)
	}
	if len(amounts) == 0 {
		return nil, ErrNoSendOutputs
	}
	if len(amounts) > MaxSendOutputs {
		return nil, ErrTooManyOutputs
	}

	var buf bytes.Buffer
	buf.WriteByte(txscript.OP_RETURN)
	pushData(&buf, LokadID)
	pushData(&buf, []byte{byte(kind)})
	pushData(&buf, sendTag)
	pushData(&buf, id[:])
	for i, amt := range amounts {
		v, err := ToUint64(amt)
		if err != nil {
			return nil, fmt.Errorf("output %d: %w", i+1, err)
		}
		var b [8]byte
		binary.BigEndian.PutUint64(b[:], v)
		pushData(&buf, b[:])
	}
	return buf.Bytes(), nil
}

// pushData writes a direct push; every SEND field is shorter than OP_PUSHDATA1.
func pushData(buf *bytes.Buffer, data []byte) {
	buf.WriteByte(byte(len(data)))
	buf.Write(data)
}

// ParseSend decodes a SEND script built by SendScript.
func ParseSend(script []byte) (*Send, error) {
	tok := txscript.MakeScriptTokenizer(0, script)
	if !tok.Next() || tok.Opcode() != txscript.OP_RETURN {
		return nil, ErrNotSLP
	}

	var pushes [][]byte
	for tok.Next() {
		op := tok.Opcode()
		if op == txscript.OP_0 || op > txscript.OP_PUSHDATA4 {
			return nil, fmt.Errorf("%w: opcode %#x", ErrMalformedSend, op)
		}
		pushes = append(pushes, tok.Data())
	}
	if err := tok.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedSend, err)
	}

	if len(pushes) < 1 || !bytes.Equal(pushes[0], LokadID) {
		return nil, ErrNotSLP
	}
	if len(pushes) < 3 || !bytes.Equal(pushes[2], sendTag) {
		return nil, ErrNotSend
	}
	if len(pushes[1]) != 1 {
		return nil, fmt.Errorf("%w: token type length %d", ErrMalformedSend, len(pushes[1]))
	}
	if len(pushes) < 5 {
		return nil, ErrNoSendOutputs
	}
	if len(pushes[3]) != types.HashSize {
		return nil, fmt.Errorf("%w: token id length %d", ErrMalformedSend, len(pushes[3]))
	}

	s := &Send{Kind: Kind(pushes[1][0])}
	copy(s.TokenID[:], pushes[3])
	for _, p := range pushes[4:] {
		if len(p) != 8 {
			return nil, fmt.Errorf("%w: amount length %d", ErrMalformedSend, len(p))
		}
		s.Amounts = append(s.Amounts, binary.BigEndian.Uint64(p))
	}
	if len(s.Amounts) > MaxSendOutputs {
		return nil, ErrTooManyOutputs
	}
	return s, nil
}
