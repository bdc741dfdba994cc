package amount

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gousdcbridge/types"
)

func TestToSmallestUnit(t *testing.T) {
	testCases := []struct {
		in   string
		want uint64
	}{
		{"1.5", 1_500_000},
		{"10.00", 10_000_000},
		{"0", 0},
		{"0.000001", 1},
		{"123456.654321", 123_456_654_321},
		{"0.0000005", 1}, // half-up
		{"0.0000004", 0},
	}

	for _, tc := range testCases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ToSmallestUnit(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestToSmallestUnitRejectsGarbage(t *testing.T) {
	for _, in := range []string{"abc", "", "1.2.3", "-1", "10,5"} {
		t.Run(in, func(t *testing.T) {
			_, err := ToSmallestUnit(in)
			assert.ErrorIs(t, err, types.ErrInvalidAmount)
		})
	}
}

func TestFromSmallestUnit(t *testing.T) {
	assert.Equal(t, "10", FromSmallestUnit(10_000_000))
	assert.Equal(t, "1.5", FromSmallestUnit(1_500_000))
	assert.Equal(t, "0.000001", FromSmallestUnit(1))
	assert.Equal(t, "0", FromSmallestUnit(0))
}

// values with at most 6 fractional digits survive the round trip exactly
func TestRoundTrip(t *testing.T) {
	for _, in := range []string{"0", "1", "1.5", "10.00", "0.000001", "123456.654321", "999999.999999"} {
		t.Run(in, func(t *testing.T) {
			units, err := ToSmallestUnit(in)
			require.NoError(t, err)

			back := decimal.RequireFromString(FromSmallestUnit(units))
			assert.True(t, decimal.RequireFromString(in).Equal(back),
				"round trip of %s yielded %s", in, back)
		})
	}
}
