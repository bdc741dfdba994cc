// Package amount converts between human-readable USDC amounts and the
// 6-decimal fixed-point smallest-unit integers used in contract calls.
package amount

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"

	"gousdcbridge/types"
)

// USDC carries 6 decimal places on every supported chain.
const Decimals = 6

// ToSmallestUnit parses a base-10 decimal string and converts it to USDC
// smallest units, rounding half-up. Sub-micro-USDC precision is lost by
// design. Returns ErrInvalidAmount for anything that is not a finite
// non-negative number.
func ToSmallestUnit(s string) (uint64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", types.ErrInvalidAmount, s)
	}
	if d.IsNegative() {
		return 0, fmt.Errorf("%w: %q is negative", types.ErrInvalidAmount, s)
	}

	// Round is half away from zero, which is half-up for non-negative
	// input
	units := d.Shift(Decimals).Round(0).BigInt()
	if !units.IsUint64() {
		return 0, fmt.Errorf("%w: %q overflows smallest-unit range", types.ErrInvalidAmount, s)
	}
	return units.Uint64(), nil
}

// FromSmallestUnit renders a smallest-unit amount as a decimal string,
// for display only. Trailing fractional zeroes are not preserved.
func FromSmallestUnit(units uint64) string {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(units), -Decimals).String()
}
