package token

import (
	"testing"

	"github.com/Klingon-tech/slpwallet/internal/walleterr"
	"github.com/Klingon-tech/slpwallet/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKind_Valid(t *testing.T) {
	tests := []struct {
		kind  Kind
		valid bool
		name  string
	}{
		{KindFungible, true, "fungible"},
		{KindNFTChild, true, "nft-child"},
		{KindNFTGroup, true, "nft-group"},
		{KindUnknown, false, "unknown(0)"},
		{Kind(2), false, "unknown(2)"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.valid, tt.kind.Valid(), "Valid(%d)", tt.kind)
		assert.Equal(t, tt.name, tt.kind.String())
	}
}

func TestMetadata_Decimals(t *testing.T) {
	fungible := &Metadata{Details: Fungible{Decimals: 8}}
	d, err := fungible.Decimals()
	require.NoError(t, err)
	assert.Equal(t, int32(8), d)

	group := &Metadata{Details: NFTGroup{Decimals: 2}}
	d, err = group.Decimals()
	require.NoError(t, err)
	assert.Equal(t, int32(2), d)

	child := &Metadata{Details: NFTChild{GroupID: types.TokenID{0x01}}}
	d, err = child.Decimals()
	require.NoError(t, err)
	assert.Equal(t, int32(0), d)
}

func TestMetadata_UnknownKind(t *testing.T) {
	m := &Metadata{ID: types.TokenID{0x07}}
	assert.Equal(t, KindUnknown, m.Kind())
	assert.Empty(t, m.Name())
	assert.Empty(t, m.Ticker())

	_, err := m.Decimals()
	require.Error(t, err)
	assert.ErrorIs(t, err, walleterr.ErrUnknownTokenType)
	assert.Equal(t, int32(0), DisplayDecimals(m))

	var missing *Metadata
	assert.Equal(t, KindUnknown, missing.Kind())
	assert.Equal(t, int32(0), DisplayDecimals(missing))
}

func TestMetadata_Accessors(t *testing.T) {
	m := &Metadata{Details: NFTChild{Name: "Card #7", Ticker: "CARD"}}
	assert.Equal(t, KindNFTChild, m.Kind())
	assert.Equal(t, "Card #7", m.Name())
	assert.Equal(t, "CARD", m.Ticker())
}
