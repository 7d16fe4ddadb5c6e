// Package currency holds the exact fixed-point arithmetic every engine must
// route amounts through. Binary floats never touch an amount: a display
// value is a decimal.Decimal and a ledger value is a *big.Int in the coin's
// smallest unit.
package currency

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// ToSmallestUnit converts a display amount to the coin's smallest integer
// unit. Fractional units beyond the configured precision are truncated, not
// rounded.
func ToSmallestUnit(amount decimal.Decimal, decimals int32) *big.Int {
	return amount.Shift(decimals).Truncate(0).BigInt()
}

// FromSmallestUnit converts an integer amount of smallest units back to a
// display amount at the given precision.
func FromSmallestUnit(units *big.Int, decimals int32) decimal.Decimal {
	return decimal.NewFromBigInt(units, -decimals)
}

// FromSmallestUnitInt is FromSmallestUnit for the int64 amounts the UTXO
// cache stores.
func FromSmallestUnitInt(units int64, decimals int32) decimal.Decimal {
	return decimal.New(units, -decimals)
}

// Add sums display amounts exactly.
func Add(vals ...decimal.Decimal) decimal.Decimal {
	sum := decimal.Zero
	for _, v := range vals {
		sum = sum.Add(v)
	}
	return sum
}

// Sub subtracts each of subs from a, exactly.
func Sub(a decimal.Decimal, subs ...decimal.Decimal) decimal.Decimal {
	for _, s := range subs {
		a = a.Sub(s)
	}
	return a
}

// Mul multiplies display amounts exactly.
func Mul(vals ...decimal.Decimal) decimal.Decimal {
	prod := decimal.NewFromInt(1)
	for _, v := range vals {
		prod = prod.Mul(v)
	}
	return prod
}
