package sale

import (
	"fmt"
	"math/big"

	"github.com/Fantom-foundation/lachesis-base/inter/idx"
	"github.com/ethereum/go-ethereum/common"

	"github.com/rony4d/go-pool-core/inter"
	"github.com/rony4d/go-pool-core/vesting"
)

// Params are the immutable parameters of a sale event, fixed at creation.
type Params struct {
	// Price is the 1e18-scaled settlement cost per token unit.
	Price *big.Int

	// Hardcap is the maximum total units sellable. Reaching it makes the
	// event Successful regardless of remaining time.
	Hardcap *big.Int

	// Softcap is the minimum total for a primary event to succeed. Nil for
	// secondary events, which carry no softcap at all.
	Softcap *big.Int

	// MinPurchase / MaxPurchase bound each account's purchases.
	MinPurchase *big.Int
	MaxPurchase *big.Int

	// Duration is the sale window in blocks from creation.
	Duration idx.Block

	// VestingPct is the share of every purchase reserved for vesting,
	// rounded up so the protocol never under-reserves.
	VestingPct      inter.Pct
	VestingSchedule vesting.Schedule

	// VestingTVL gates vesting claims: the claim gate opens once
	// totalPurchased reaches it. Nil or zero means no gate condition and
	// the gate starts pre-satisfied.
	VestingTVL *big.Int

	// LockupBlocks restricts transfers of event-credited balances for this
	// many blocks from creation. LockupTVL lifts the restriction early once
	// totalPurchased reaches it.
	LockupBlocks idx.Block
	LockupTVL    *big.Int

	// Whitelist restricts buyers; empty means public.
	Whitelist []common.Address
}

// Validate checks construction-time consistency. Failures reject creation
// synchronously; nothing is written.
func (p Params) Validate(primary bool) error {
	if p.Price == nil || p.Price.Sign() <= 0 {
		return fmt.Errorf("%w: price must be positive", inter.ErrInvalidParameters)
	}
	if p.Hardcap == nil || p.Hardcap.Sign() <= 0 {
		return fmt.Errorf("%w: hardcap must be positive", inter.ErrInvalidParameters)
	}
	if primary && p.Softcap == nil {
		return fmt.Errorf("%w: primary event requires a softcap", inter.ErrInvalidParameters)
	}
	if p.Softcap != nil {
		if p.Softcap.Sign() <= 0 {
			return fmt.Errorf("%w: softcap must be positive", inter.ErrInvalidParameters)
		}
		if p.Hardcap.Cmp(p.Softcap) < 0 {
			return fmt.Errorf("%w: hardcap below softcap", inter.ErrInvalidParameters)
		}
	}
	if p.MinPurchase == nil || p.MinPurchase.Sign() < 0 {
		return fmt.Errorf("%w: min purchase missing or negative", inter.ErrInvalidParameters)
	}
	if p.MaxPurchase == nil || p.MaxPurchase.Sign() <= 0 {
		return fmt.Errorf("%w: max purchase must be positive", inter.ErrInvalidParameters)
	}
	if p.MinPurchase.Cmp(p.MaxPurchase) > 0 {
		return fmt.Errorf("%w: min purchase above max purchase", inter.ErrInvalidParameters)
	}
	if p.Duration == 0 {
		return fmt.Errorf("%w: duration must be positive", inter.ErrInvalidParameters)
	}
	if !p.VestingPct.Valid() {
		return fmt.Errorf("%w: vesting percentage out of range", inter.ErrInvalidParameters)
	}
	if !p.VestingPct.IsZero() {
		if err := p.VestingSchedule.Validate(); err != nil {
			return err
		}
	}
	if p.VestingTVL != nil && p.VestingTVL.Sign() < 0 {
		return fmt.Errorf("%w: negative vesting TVL gate", inter.ErrInvalidParameters)
	}
	if p.LockupTVL != nil && p.LockupTVL.Sign() < 0 {
		return fmt.Errorf("%w: negative lockup TVL gate", inter.ErrInvalidParameters)
	}
	return nil
}

// vestingGated reports whether the event carries a claim-TVL gate condition.
func (p Params) vestingGated() bool {
	return p.VestingTVL != nil && p.VestingTVL.Sign() > 0
}

// lockupGated reports whether the event carries a lockup-TVL lift condition.
func (p Params) lockupGated() bool {
	return p.LockupTVL != nil && p.LockupTVL.Sign() > 0
}

func copyBig(x *big.Int) *big.Int {
	if x == nil {
		return nil
	}
	return new(big.Int).Set(x)
}

// clone deep-copies the parameters so the event's copy cannot be mutated by
// the creator afterwards.
func (p Params) clone() Params {
	c := p
	c.Price = copyBig(p.Price)
	c.Hardcap = copyBig(p.Hardcap)
	c.Softcap = copyBig(p.Softcap)
	c.MinPurchase = copyBig(p.MinPurchase)
	c.MaxPurchase = copyBig(p.MaxPurchase)
	c.VestingTVL = copyBig(p.VestingTVL)
	c.LockupTVL = copyBig(p.LockupTVL)
	c.Whitelist = append([]common.Address(nil), p.Whitelist...)
	return c
}
