package token

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDisplay(t *testing.T) {
	tests := []struct {
		in       string
		decimals int32
		want     string
		err      error
	}{
		{"1", 0, "1", nil},
		{"1.5", 2, "150", nil},
		{"0.00000001", 8, "1", nil},
		{"12.3456", 4, "123456", nil},
		{"1.234", 2, "", ErrFractionalAmount},
		{"-1", 0, "", ErrNegativeAmount},
	}
	for _, tt := range tests {
		got, err := ParseDisplay(tt.in, tt.decimals)
		if tt.err != nil {
			assert.ErrorIs(t, err, tt.err, "ParseDisplay(%q, %d)", tt.in, tt.decimals)
			continue
		}
		require.NoError(t, err, "ParseDisplay(%q, %d)", tt.in, tt.decimals)
		assert.Equal(t, tt.want, got.String(), "ParseDisplay(%q, %d)", tt.in, tt.decimals)
	}

	_, err := ParseDisplay("abc", 0)
	assert.Error(t, err)
}

func TestToDisplay(t *testing.T) {
	assert.Equal(t, "1.5", ToDisplay(decimal.NewFromInt(150), 2).String())
	assert.Equal(t, "400", ToDisplay(decimal.NewFromInt(400), 0).String())
}

func TestToUint64(t *testing.T) {
	v, err := ToUint64(FromBaseUnits(^uint64(0)))
	require.NoError(t, err)
	assert.Equal(t, ^uint64(0), v)

	_, err = ToUint64(FromBaseUnits(^uint64(0)).Add(decimal.NewFromInt(1)))
	assert.ErrorIs(t, err, ErrAmountOverflow)

	_, err = ToUint64(decimal.NewFromInt(-5))
	assert.ErrorIs(t, err, ErrNegativeAmount)

	_, err = ToUint64(decimal.RequireFromString("1.5"))
	assert.ErrorIs(t, err, ErrFractionalAmount)
}

func TestTransferAmount(t *testing.T) {
	req := decimal.NewFromInt(400)
	assert.True(t, TransferAmount(KindFungible, req).Equal(req))
	assert.True(t, TransferAmount(KindNFTGroup, req).Equal(req))
	assert.True(t, TransferAmount(KindNFTChild, req).Equal(decimal.NewFromInt(1)))
}

func TestSum(t *testing.T) {
	assert.True(t, Sum(nil).IsZero())
	total := Sum([]decimal.Decimal{decimal.NewFromInt(300), decimal.NewFromInt(500)})
	assert.Equal(t, "800", total.String())
}
