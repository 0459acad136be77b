// Package token models SLP token metadata and the SEND message that
// declares token movement in a transaction's OP_RETURN output.
//
// A token is one of three kinds, each carrying its own fields. Code that
// depends on the kind switches over the Details variants and treats any
// other value as ErrUnknownTokenType.
package token

import (
	"fmt"

	"github.com/Klingon-tech/slpwallet/internal/walleterr"
	"github.com/Klingon-tech/slpwallet/pkg/types"
)

// Kind is the SLP token_type byte.
type Kind uint8

const (
	KindUnknown  Kind = 0
	KindFungible Kind = 1
	KindNFTChild Kind = 65
	KindNFTGroup Kind = 129
)

// String returns a human-readable kind name.
func (k Kind) String() string {
	switch k {
	case KindFungible:
		return "fungible"
	case KindNFTChild:
		return "nft-child"
	case KindNFTGroup:
		return "nft-group"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(k))
	}
}

// Valid reports whether k is one of the three recognized kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindFungible, KindNFTChild, KindNFTGroup:
		return true
	}
	return false
}

// Details is the kind-specific part of token metadata. The set of
// implementations is closed: Fungible, NFTGroup and NFTChild.
type Details interface {
	Kind() Kind
	sealed()
}

// Fungible is a type 1 token.
type Fungible struct {
	Name     string `json:"name"`
	Ticker   string `json:"ticker"`
	Decimals uint8  `json:"decimals"`
}

// NFTGroup is a divisible group token that child NFTs are minted from.
type NFTGroup struct {
	Name     string `json:"name"`
	Ticker   string `json:"ticker"`
	Decimals uint8  `json:"decimals"`
}

// NFTChild is an indivisible quantity-1 token. Its decimals are always 0.
type NFTChild struct {
	Name    string        `json:"name"`
	Ticker  string        `json:"ticker"`
	GroupID types.TokenID `json:"group_id"`
}

func (Fungible) Kind() Kind { return KindFungible }
func (NFTGroup) Kind() Kind { return KindNFTGroup }
func (NFTChild) Kind() Kind { return KindNFTChild }

func (Fungible) sealed() {}
func (NFTGroup) sealed() {}
func (NFTChild) sealed() {}

// Metadata describes a token. Details is nil when the network reported a
// token type this wallet does not recognize.
type Metadata struct {
	ID      types.TokenID
	Details Details
}

// Kind returns the token kind, KindUnknown when Details is nil.
func (m *Metadata) Kind() Kind {
	if m == nil || m.Details == nil {
		return KindUnknown
	}
	return m.Details.Kind()
}

// Name returns the display name.
func (m *Metadata) Name() string {
	if m == nil {
		return ""
	}
	switch d := m.Details.(type) {
	case Fungible:
		return d.Name
	case NFTGroup:
		return d.Name
	case NFTChild:
		return d.Name
	default:
		return ""
	}
}

// Ticker returns the ticker symbol.
func (m *Metadata) Ticker() string {
	if m == nil {
		return ""
	}
	switch d := m.Details.(type) {
	case Fungible:
		return d.Ticker
	case NFTGroup:
		return d.Ticker
	case NFTChild:
		return d.Ticker
	default:
		return ""
	}
}

// Decimals returns the number of decimal places. NFT children always
// report 0. Unrecognized kinds fail with ErrUnknownTokenType.
func (m *Metadata) Decimals() (int32, error) {
	if m == nil {
		return 0, walleterr.New(walleterr.KindUnknownTokenType, "decimals", "no metadata")
	}
	switch d := m.Details.(type) {
	case Fungible:
		return int32(d.Decimals), nil
	case NFTGroup:
		return int32(d.Decimals), nil
	case NFTChild:
		return 0, nil
	default:
		return 0, walleterr.New(walleterr.KindUnknownTokenType, "decimals", "token %s", m.ID)
	}
}

// DisplayDecimals returns the decimals used to render amounts. Missing or
// unrecognized metadata renders with 0 decimals.
func DisplayDecimals(m *Metadata) int32 {
	d, err := m.Decimals()
	if err != nil {
		return 0
	}
	return d
}
