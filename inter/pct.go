package inter

import (
	"fmt"
	"math/big"

	"github.com/rony4d/go-pool-core/utils/fixedpoint"
)

// PctDenom is the shared fixed-point denominator for every percentage-like
// threshold in the system: quorum, decision, vesting shares, protocol fee.
// 4 implied decimal digits, so 1% = 10,000 and 100% = 1,000,000.
const PctDenom uint64 = 1_000_000

// Pct is a fixed-point percentage over PctDenom.
type Pct uint64

// Common percentages used by presets and tests.
const (
	PctZero Pct = 0
	PctFull Pct = Pct(PctDenom)
)

// PctFromPercent converts whole percent units (e.g. 40 => 40%) to a Pct.
func PctFromPercent(p uint64) Pct {
	return Pct(p * PctDenom / 100)
}

// Valid reports whether the percentage lies in [0%, 100%].
func (p Pct) Valid() bool {
	return uint64(p) <= PctDenom
}

// IsZero reports whether the percentage is exactly 0%.
func (p Pct) IsZero() bool {
	return p == 0
}

// MulCeil returns ceil(x * p / PctDenom). Used everywhere the protocol must
// not under-reserve: vesting remainders, protocol fee.
func (p Pct) MulCeil(x *big.Int) *big.Int {
	return fixedpoint.MulDivCeil(x, new(big.Int).SetUint64(uint64(p)), denomBig())
}

// MulFloor returns floor(x * p / PctDenom). Used by schedule releases, which
// round down and are capped at the scheduled total.
func (p Pct) MulFloor(x *big.Int) *big.Int {
	return fixedpoint.MulDivFloor(x, new(big.Int).SetUint64(uint64(p)), denomBig())
}

func (p Pct) String() string {
	whole := uint64(p) / (PctDenom / 100)
	frac := uint64(p) % (PctDenom / 100)
	return fmt.Sprintf("%d.%04d%%", whole, frac)
}

func denomBig() *big.Int {
	return new(big.Int).SetUint64(PctDenom)
}
