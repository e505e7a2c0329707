package inter

import "github.com/Fantom-foundation/lachesis-base/inter/idx"

// Clock is the single source of "now" for every engine. Time is block height
// only: it moves forward in whole blocks and never backwards. Durations and
// voting windows are expressed as block-height deltas, never wall-clock
// timers, and readiness is always re-derived from the current height rather
// than cached.
type Clock interface {
	// Current returns the current block height.
	Current() idx.Block
}
