// Package chaincore provides the fake-chain harness the engines run against
// in tests, in the launcher demo, and in any embedding that does not supply
// its own chain: a manually advanced block clock, a native value ledger, and
// fake-genesis account funding.
package chaincore

import "github.com/Fantom-foundation/lachesis-base/inter/idx"

// Clock is a manually advanced block-height clock. It implements inter.Clock.
// Height only moves forward.
type Clock struct {
	height idx.Block
}

// NewClock returns a clock positioned at the given starting height.
func NewClock(start idx.Block) *Clock {
	return &Clock{height: start}
}

// Current returns the current block height.
func (c *Clock) Current() idx.Block {
	return c.height
}

// Advance moves the clock forward by n blocks.
func (c *Clock) Advance(n idx.Block) {
	c.height += n
}

// AdvanceTo moves the clock forward to the given height. Moving backwards is
// ignored: block height is monotonic.
func (c *Clock) AdvanceTo(h idx.Block) {
	if h > c.height {
		c.height = h
	}
}
