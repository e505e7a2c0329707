// Package fixedpoint provides the big-integer fixed-point arithmetic used by
// the sale and governance engines.
//
// Two scales exist in the system:
//
//   - percentages use a shared denominator of 1,000,000 (4 implied decimal
//     digits, so 1% = 10,000), see inter.Pct;
//   - prices use the 1e18 token/value scale.
//
// Rounding direction is part of the protocol: what a buyer owes is rounded
// up (CostCeil), what the protocol reserves for vesting or mints as fee is
// rounded up (MulDivCeil), and schedule releases round down and are capped.
package fixedpoint

import "math/big"

// PriceScale is the 1e18 token/value scale shared by all price conversions.
var PriceScale = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

// MulDivFloor returns floor(x * num / den). den must be positive.
func MulDivFloor(x, num, den *big.Int) *big.Int {
	r := new(big.Int).Mul(x, num)
	return r.Div(r, den)
}

// MulDivCeil returns ceil(x * num / den). den must be positive.
func MulDivCeil(x, num, den *big.Int) *big.Int {
	r := new(big.Int).Mul(x, num)
	r.Add(r, new(big.Int).Sub(den, big.NewInt(1)))
	return r.Div(r, den)
}

// CostCeil returns the settlement cost of buying amount token units at the
// given 1e18-scaled unit price, rounded up so the buyer never underpays.
func CostCeil(amount, price *big.Int) *big.Int {
	return MulDivCeil(amount, price, PriceScale)
}

// Min returns the smaller of a and b as a fresh big.Int.
func Min(a, b *big.Int) *big.Int {
	if a.Cmp(b) <= 0 {
		return new(big.Int).Set(a)
	}
	return new(big.Int).Set(b)
}
