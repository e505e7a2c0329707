package inter

import "sync/atomic"

// Guard is the per-object mutual-exclusion latch acquired by every
// state-mutating entry point (purchase, redeem, claim, castVote, execute).
// The execution model is single-writer, so the guard never blocks: a
// re-entrant call chain (a transfer callback invoking back into the same
// object mid-mutation) finds the latch held and fails with ErrReentrant.
//
// The zero value is ready to use.
type Guard struct {
	held uint32
}

// Enter acquires the guard and returns the release function, or fails with
// ErrReentrant if the guard is already held.
//
//	release, err := g.Enter()
//	if err != nil {
//	    return err
//	}
//	defer release()
func (g *Guard) Enter() (release func(), err error) {
	if !atomic.CompareAndSwapUint32(&g.held, 0, 1) {
		return nil, ErrReentrant
	}
	return func() { atomic.StoreUint32(&g.held, 0) }, nil
}
