// Package types defines the primitive identifiers shared by the wallet:
// transaction hashes, token IDs, outpoints and CashAddr addresses.
package types

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// HashSize is the length of a hash in bytes.
const HashSize = 32

// Hash is a 256-bit transaction identifier held in natural (display) order.
// Network encodings that carry the byte-reversed form convert at the edge
// with HashFromWire and WireBytes.
type Hash [HashSize]byte

// TokenID identifies an SLP token: the txid of its genesis transaction.
type TokenID Hash

// IsZero returns true if the hash is all zeros.
func (h Hash) IsZero() bool {
	return h == Hash{}
}

// String returns the hex-encoded hash.
func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// Bytes returns a copy of the hash as a byte slice.
func (h Hash) Bytes() []byte {
	b := make([]byte, HashSize)
	copy(b, h[:])
	return b
}

// WireBytes returns the byte-reversed form used inside serialized transactions.
func (h Hash) WireBytes() []byte {
	b := make([]byte, HashSize)
	for i := range h {
		b[HashSize-1-i] = h[i]
	}
	return b
}

// HashFromWire converts a byte-reversed 32-byte hash into natural order.
func HashFromWire(b []byte) (Hash, error) {
	if len(b) != HashSize {
		return Hash{}, fmt.Errorf("hash must be %d bytes, got %d", HashSize, len(b))
	}
	var h Hash
	for i := range b {
		h[HashSize-1-i] = b[i]
	}
	return h, nil
}

// HashFromBytes copies a natural-order 32-byte slice into a Hash.
func HashFromBytes(b []byte) (Hash, error) {
	if len(b) != HashSize {
		return Hash{}, fmt.Errorf("hash must be %d bytes, got %d", HashSize, len(b))
	}
	var h Hash
	copy(h[:], b)
	return h, nil
}

// MarshalJSON encodes the hash as a hex string.
func (h Hash) MarshalJSON() ([]byte, error) {
	return json.Marshal(h.String())
}

// UnmarshalJSON decodes a hex string into a hash.
func (h *Hash) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*h = Hash{}
		return nil
	}
	decoded, err := HexToHash(s)
	if err != nil {
		return err
	}
	*h = decoded
	return nil
}

// HexToHash converts a hex string to a Hash.
// Returns an error if the string is not exactly 64 hex characters.
func HexToHash(s string) (Hash, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return Hash{}, fmt.Errorf("invalid hex: %w", err)
	}
	return HashFromBytes(b)
}

// HexToTokenID parses a 64-character hex token ID.
func HexToTokenID(s string) (TokenID, error) {
	h, err := HexToHash(s)
	return TokenID(h), err
}

// IsZero returns true if the token ID is all zeros.
func (t TokenID) IsZero() bool {
	return Hash(t).IsZero()
}

// String returns the hex-encoded token ID.
func (t TokenID) String() string {
	return Hash(t).String()
}

// MarshalJSON encodes the token ID as a hex string.
func (t TokenID) MarshalJSON() ([]byte, error) {
	return Hash(t).MarshalJSON()
}

// UnmarshalJSON decodes a hex string into a token ID.
func (t *TokenID) UnmarshalJSON(data []byte) error {
	return (*Hash)(t).UnmarshalJSON(data)
}

// MarshalText lets TokenID serve as a JSON object key.
func (t TokenID) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText parses a hex token ID map key.
func (t *TokenID) UnmarshalText(text []byte) error {
	id, err := HexToTokenID(string(text))
	if err != nil {
		return err
	}
	*t = id
	return nil
}
