package fixedpoint

import (
	"math/big"
	"testing"
)

// TestMulDivRounding verifies the two rounding directions against each other:
// ceil and floor agree on exact divisions and differ by exactly one unit
// everywhere else.
func TestMulDivRounding(t *testing.T) {
	tests := []struct {
		name      string
		x, num    int64
		den       int64
		wantFloor int64
		wantCeil  int64
	}{
		{"exact", 100, 50, 10, 500, 500},
		{"remainder", 100, 3, 7, 42, 43},
		{"below one", 1, 1, 3, 0, 1},
		{"zero x", 0, 123, 7, 0, 0},
		{"zero num", 123, 0, 7, 0, 0},
		{"den one", 13, 17, 1, 221, 221},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x := big.NewInt(tt.x)
			num := big.NewInt(tt.num)
			den := big.NewInt(tt.den)
			if got := MulDivFloor(x, num, den); got.Int64() != tt.wantFloor {
				t.Errorf("MulDivFloor(%d, %d, %d) = %s, want %d", tt.x, tt.num, tt.den, got, tt.wantFloor)
			}
			if got := MulDivCeil(x, num, den); got.Int64() != tt.wantCeil {
				t.Errorf("MulDivCeil(%d, %d, %d) = %s, want %d", tt.x, tt.num, tt.den, got, tt.wantCeil)
			}
		})
	}
}

// TestMulDivDoesNotMutateInputs verifies that the arithmetic helpers never
// write through their operands; callers routinely pass long-lived ledger
// values directly.
func TestMulDivDoesNotMutateInputs(t *testing.T) {
	x := big.NewInt(100)
	num := big.NewInt(3)
	den := big.NewInt(7)
	MulDivFloor(x, num, den)
	MulDivCeil(x, num, den)
	if x.Int64() != 100 || num.Int64() != 3 || den.Int64() != 7 {
		t.Errorf("inputs mutated: x=%s num=%s den=%s", x, num, den)
	}
}

// TestCostCeil verifies buyer-cost rounding at the 1e18 price scale.
func TestCostCeil(t *testing.T) {
	one := new(big.Int).Set(PriceScale) // price 1.0

	tests := []struct {
		name   string
		amount int64
		price  *big.Int
		want   int64
	}{
		{"unit price", 1000, one, 1000},
		{"half price", 1000, new(big.Int).Div(PriceScale, big.NewInt(2)), 500},
		{"cent price", 1000, new(big.Int).Div(PriceScale, big.NewInt(100)), 10},
		{"rounds up", 1, big.NewInt(1), 1}, // 1e-18 per unit still costs 1
		{"free is free", 0, one, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CostCeil(big.NewInt(tt.amount), tt.price)
			if got.Int64() != tt.want {
				t.Errorf("CostCeil(%d, %s) = %s, want %d", tt.amount, tt.price, got, tt.want)
			}
		})
	}
}

func TestMin(t *testing.T) {
	a := big.NewInt(5)
	b := big.NewInt(9)
	if got := Min(a, b); got.Int64() != 5 {
		t.Errorf("Min(5, 9) = %s, want 5", got)
	}
	if got := Min(b, a); got.Int64() != 5 {
		t.Errorf("Min(9, 5) = %s, want 5", got)
	}
	// the result is a copy, not an alias
	got := Min(a, b)
	got.SetInt64(42)
	if a.Int64() != 5 {
		t.Errorf("Min aliased its argument: a=%s", a)
	}
}
