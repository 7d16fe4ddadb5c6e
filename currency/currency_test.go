package currency

import (
	"math/big"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

func TestToSmallestUnit(t *testing.T) {
	require.Equal(t, "150000000", ToSmallestUnit(dec(t, "1.5"), 8).String())
	require.Equal(t, "1", ToSmallestUnit(dec(t, "0.00000001"), 8).String())
	require.Equal(t, "500000000000000000", ToSmallestUnit(dec(t, "0.5"), 18).String())
	require.Equal(t, "0", ToSmallestUnit(decimal.Zero, 8).String())
}

func TestToSmallestUnitTruncates(t *testing.T) {
	// sub-unit dust is dropped, never rounded up
	require.Equal(t, "12345678", ToSmallestUnit(dec(t, "0.123456789"), 8).String())
	require.Equal(t, "0", ToSmallestUnit(dec(t, "0.000000009"), 8).String())
	require.Equal(t, "1999999", ToSmallestUnit(dec(t, "1.9999999999"), 6).String())
}

func TestFromSmallestUnit(t *testing.T) {
	wei, ok := new(big.Int).SetString("1000000000000000000", 10)
	require.True(t, ok)
	require.True(t, FromSmallestUnit(wei, 18).Equal(dec(t, "1")))

	require.True(t, FromSmallestUnitInt(12345678, 8).Equal(dec(t, "0.12345678")))
	require.True(t, FromSmallestUnitInt(0, 8).Equal(decimal.Zero))
}

func TestRoundTrip(t *testing.T) {
	for _, tc := range []struct {
		amount   string
		decimals int32
	}{
		{"1.5", 8},
		{"0.00000001", 8},
		{"123456.654321", 6},
		{"0.000000000000000001", 18},
		{"21000000", 8},
	} {
		d := dec(t, tc.amount)
		back := FromSmallestUnit(ToSmallestUnit(d, tc.decimals), tc.decimals)
		require.True(t, back.Equal(d), "round trip %s at %d decimals gave %s", tc.amount, tc.decimals, back)
	}
}

func TestExactArithmetic(t *testing.T) {
	// the canonical binary-float trap
	require.True(t, Add(dec(t, "0.1"), dec(t, "0.2")).Equal(dec(t, "0.3")))
	require.True(t, Sub(dec(t, "0.3"), dec(t, "0.1")).Equal(dec(t, "0.2")))
	require.True(t, Sub(dec(t, "1"), dec(t, "0.3"), dec(t, "0.3"), dec(t, "0.3")).Equal(dec(t, "0.1")))
	require.True(t, Mul(dec(t, "0.1"), dec(t, "0.1")).Equal(dec(t, "0.01")))
	require.True(t, Add().Equal(decimal.Zero))
}
