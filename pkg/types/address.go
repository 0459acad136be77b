package types

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
)

// AddressSize is the length of an address hash in bytes.
const AddressSize = 20

// CashAddr prefixes per network.
const (
	MainnetPrefix = "bitcoincash"
	TestnetPrefix = "bchtest"
	RegtestPrefix = "bchreg"
)

// activePrefix is the CashAddr prefix used by String() and for parsing
// addresses that arrive without one. Set once at startup via SetAddressPrefix().
var activePrefix = MainnetPrefix

// SetAddressPrefix sets the active CashAddr prefix (call once at startup).
func SetAddressPrefix(prefix string) {
	activePrefix = strings.ToLower(strings.TrimSuffix(prefix, ":"))
}

// GetAddressPrefix returns the currently active CashAddr prefix.
func GetAddressPrefix() string {
	return activePrefix
}

// AddressType is the CashAddr type field.
type AddressType uint8

const (
	AddressP2PKH AddressType = 0
	AddressP2SH  AddressType = 1
)

// String returns a human-readable name for the address type.
func (t AddressType) String() string {
	switch t {
	case AddressP2PKH:
		return "P2PKH"
	case AddressP2SH:
		return "P2SH"
	default:
		return "Unknown"
	}
}

// Address is a 160-bit pay-to-pubkey-hash or pay-to-script-hash address.
type Address struct {
	Type AddressType
	Hash [AddressSize]byte
}

// NewP2PKHAddress builds a P2PKH address from a 20-byte pubkey hash.
func NewP2PKHAddress(hash []byte) (Address, error) {
	if len(hash) != AddressSize {
		return Address{}, fmt.Errorf("address must be %d bytes, got %d", AddressSize, len(hash))
	}
	a := Address{Type: AddressP2PKH}
	copy(a.Hash[:], hash)
	return a, nil
}

// IsZero returns true if the address hash is all zeros.
func (a Address) IsZero() bool {
	return a.Hash == [AddressSize]byte{}
}

// String returns the CashAddr encoding with the active prefix
// (e.g. "bitcoincash:qp...").
func (a Address) String() string {
	s, err := CashAddrEncode(activePrefix, a.payload())
	if err != nil {
		return activePrefix + ":" + hex.EncodeToString(a.Hash[:])
	}
	return s
}

// Short returns the CashAddr encoding without the prefix, the form
// bchd reports in transaction inputs and outputs.
func (a Address) Short() string {
	s := a.String()
	if i := strings.IndexByte(s, ':'); i >= 0 {
		return s[i+1:]
	}
	return s
}

// Hex returns the raw hex-encoded hash.
func (a Address) Hex() string {
	return hex.EncodeToString(a.Hash[:])
}

// Bytes returns a copy of the address hash.
func (a Address) Bytes() []byte {
	b := make([]byte, AddressSize)
	copy(b, a.Hash[:])
	return b
}

// payload is the version byte (type << 3 | size code 0 for 160 bits)
// followed by the hash.
func (a Address) payload() []byte {
	p := make([]byte, 0, 1+AddressSize)
	p = append(p, byte(a.Type)<<3)
	return append(p, a.Hash[:]...)
}

// MarshalJSON encodes the address as a CashAddr string.
func (a Address) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

// UnmarshalJSON decodes a CashAddr string.
func (a *Address) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*a = Address{}
		return nil
	}
	parsed, err := ParseAddress(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// ParseAddress parses a CashAddr string with or without its prefix.
// A prefix, when present, must match the active network.
func ParseAddress(s string) (Address, error) {
	if s == "" {
		return Address{}, fmt.Errorf("empty address")
	}
	prefix, payload, err := CashAddrDecode(strings.TrimSpace(s), activePrefix)
	if err != nil {
		return Address{}, fmt.Errorf("invalid cashaddr: %w", err)
	}
	if prefix != activePrefix {
		return Address{}, fmt.Errorf("address prefix %q does not match network %q", prefix, activePrefix)
	}
	if len(payload) != 1+AddressSize {
		return Address{}, fmt.Errorf("address payload must be %d bytes, got %d", 1+AddressSize, len(payload))
	}
	version := payload[0]
	if version&0x07 != 0 {
		return Address{}, fmt.Errorf("unsupported address size code %d", version&0x07)
	}
	typ := AddressType(version >> 3)
	if typ != AddressP2PKH && typ != AddressP2SH {
		return Address{}, fmt.Errorf("unsupported address type %d", typ)
	}
	a := Address{Type: typ}
	copy(a.Hash[:], payload[1:])
	return a, nil
}

// Matches reports whether s names this address. bchd omits the prefix,
// so both forms are accepted.
func (a Address) Matches(s string) bool {
	if s == "" {
		return false
	}
	s = strings.ToLower(s)
	return s == a.String() || s == a.Short()
}
