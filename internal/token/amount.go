package token

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// Amount errors.
var (
	ErrNegativeAmount   = errors.New("token amount is negative")
	ErrFractionalAmount = errors.New("token amount has more precision than the token allows")
	ErrAmountOverflow   = errors.New("token amount exceeds 64 bits")
)

var maxUint64 = decimal.NewFromBigInt(new(big.Int).SetUint64(^uint64(0)), 0)

// FromBaseUnits converts a raw on-chain amount to a decimal.
func FromBaseUnits(v uint64) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(v), 0)
}

// ToDisplay scales a base-unit amount down by decimals.
func ToDisplay(raw decimal.Decimal, decimals int32) decimal.Decimal {
	return raw.Shift(-decimals)
}

// ParseDisplay parses a user-entered amount and scales it to base units.
func ParseDisplay(s string, decimals int32) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse amount %q: %w", s, err)
	}
	raw := d.Shift(decimals)
	if raw.IsNegative() {
		return decimal.Zero, ErrNegativeAmount
	}
	if !raw.IsInteger() {
		return decimal.Zero, fmt.Errorf("%w: %s with %d decimals", ErrFractionalAmount, s, decimals)
	}
	return raw, nil
}

// ToUint64 converts a base-unit amount to its 8-byte wire value.
func ToUint64(raw decimal.Decimal) (uint64, error) {
	if raw.IsNegative() {
		return 0, ErrNegativeAmount
	}
	if !raw.IsInteger() {
		return 0, ErrFractionalAmount
	}
	if raw.GreaterThan(maxUint64) {
		return 0, ErrAmountOverflow
	}
	return raw.BigInt().Uint64(), nil
}

// TransferAmount returns the base-unit amount actually moved for a
// requested amount. NFT children always move exactly one unit.
func TransferAmount(kind Kind, requested decimal.Decimal) decimal.Decimal {
	if kind == KindNFTChild {
		return decimal.NewFromInt(1)
	}
	return requested
}

// Sum adds amounts.
func Sum(amounts []decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}
